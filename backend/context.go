package backend

import (
	"fmt"

	"github.com/vkngwrapper/core/v2/core1_0"
	"golang.org/x/exp/slog"
)

// Context is an immutable snapshot of the capabilities of a single logical
// device: its memory-type table, physical-device limits and features, and the
// optional extensions that were detected when the device was created. It is
// built exactly once by New, at device-creation time, so that the rest of the
// backend never has to re-query the device (or worry about synchronizing
// reads- the snapshot never changes after construction).
type Context struct {
	logger *slog.Logger

	memoryProperties *core1_0.PhysicalDeviceMemoryProperties
	deviceProperties *core1_0.PhysicalDeviceProperties
	deviceFeatures   *core1_0.PhysicalDeviceFeatures
	capabilities     capabilityFlags

	depthFormat core1_0.Format
}

// DepthFormat returns the depth-buffer format selected for this device at
// construction time.
func (c *Context) DepthFormat() core1_0.Format {
	return c.depthFormat
}

// PhysicalDeviceLimits returns the numeric caps (max texture size, alignment
// requirements, etc.) reported by the physical device.
func (c *Context) PhysicalDeviceLimits() *core1_0.PhysicalDeviceLimits {
	return c.deviceProperties.Limits
}

// VendorID returns the PCI vendor identifier of the physical device.
func (c *Context) VendorID() uint32 {
	return c.deviceProperties.VendorID
}

// IsImageCubeArraySupported returns true if the device can create cube-array
// image views.
func (c *Context) IsImageCubeArraySupported() bool {
	return c.deviceFeatures.ImageCubeArray
}

func (c *Context) IsDebugMarkersSupported() bool {
	return c.capabilities.debugMarkers
}

func (c *Context) IsDebugUtilsSupported() bool {
	return c.capabilities.debugUtils
}

func (c *Context) IsPortabilitySubsetSupported() bool {
	return c.capabilities.portabilitySubset
}

func (c *Context) IsPortabilityEnumerationSupported() bool {
	return c.capabilities.portabilityEnumeration
}

func (c *Context) IsMaintenance1Supported() bool {
	return c.capabilities.maintenance[0]
}

func (c *Context) IsMaintenance2Supported() bool {
	return c.capabilities.maintenance[1]
}

func (c *Context) IsMaintenance3Supported() bool {
	return c.capabilities.maintenance[2]
}

// MemoryTypeCount returns the number of entries in the device's memory-type
// table.
func (c *Context) MemoryTypeCount() int {
	return len(c.memoryProperties.MemoryTypes)
}

// MemoryTypeProperties returns the memory-type table entry at the provided
// index.
func (c *Context) MemoryTypeProperties(memoryTypeIndex int) core1_0.MemoryType {
	return c.memoryProperties.MemoryTypes[memoryTypeIndex]
}

// MemoryTypeIndexToHeapIndex returns the index of the memory heap backing the
// provided memory type.
func (c *Context) MemoryTypeIndexToHeapIndex(memoryTypeIndex int) int {
	return c.memoryProperties.MemoryTypes[memoryTypeIndex].HeapIndex
}

// SelectMemoryType scans the device's memory-type table in ascending index
// order and returns the first type that is set in typeBits and whose property
// flags include every bit in requiredProperties. The ascending scan favors the
// driver's own preferred ordering of otherwise-equivalent types.
//
// An impossible combination of typeBits and requiredProperties is a caller
// bug- the platform layer is required to validate feasibility before
// requesting an allocation- so this method panics rather than return a
// sentinel that could silently corrupt an allocation.
func (c *Context) SelectMemoryType(typeBits uint32, requiredProperties core1_0.MemoryPropertyFlags) int {
	for memoryTypeIndex := 0; memoryTypeIndex < len(c.memoryProperties.MemoryTypes); memoryTypeIndex++ {
		if typeBits&(1<<uint(memoryTypeIndex)) == 0 {
			continue
		}

		if c.memoryProperties.MemoryTypes[memoryTypeIndex].PropertyFlags&requiredProperties == requiredProperties {
			return memoryTypeIndex
		}
	}

	panic(fmt.Sprintf("unable to find a memory type in mask 0x%x that meets the required properties %s", typeBits, requiredProperties))
}
