package backend

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/core/v2/core1_1"
	"github.com/vkngwrapper/extensions/v2/ext_debug_utils"
	"github.com/vkngwrapper/extensions/v2/khr_portability_enumeration"
	"github.com/vkngwrapper/extensions/v2/khr_portability_subset"
	"golang.org/x/exp/slog"
)

// Extensions probed by name because they have no package of their own-
// maintenance1-3 were promoted to core in Vulkan 1.1 and debug_marker was
// superseded by debug_utils.
const (
	debugMarkerExtensionName  = "VK_EXT_debug_marker"
	maintenance1ExtensionName = "VK_KHR_maintenance1"
	maintenance2ExtensionName = "VK_KHR_maintenance2"
	maintenance3ExtensionName = "VK_KHR_maintenance3"
)

// CreateOptions contains optional settings when creating a Context
type CreateOptions struct {
	// DepthFormat is the format to use for depth buffers created against this
	// device. When left as FormatUndefined, the first depth-format candidate
	// supported by the device is selected instead. When provided, it is still
	// validated against the device's format support.
	DepthFormat core1_0.Format
}

type capabilityFlags struct {
	debugMarkers           bool
	debugUtils             bool
	portabilitySubset      bool
	portabilityEnumeration bool
	maintenance            [3]bool
}

// Candidate depth formats, in preference order. D32 is supported nearly
// everywhere; the packed D24S8 format is the usual fallback on older desktop
// hardware.
var depthFormatCandidates = []core1_0.Format{
	core1_0.FormatD32SignedFloat,
	core1_0.FormatD32SignedFloatS8UnsignedInt,
	core1_0.FormatD24UnsignedNormalizedS8UnsignedInt,
}

// New creates a Context by querying the provided device exactly once. It is
// intended to be called by the platform layer as part of device bootstrap-
// every other component receives the resulting Context read-only.
//
// instance - The Instance the provided Device was created from
//
// physicalDevice - The PhysicalDevice that owns the provided Device
//
// device - The Device whose capabilities will be snapshotted
//
// options - Optional parameters: it is valid to leave all the fields blank
func New(logger *slog.Logger, instance core1_0.Instance, physicalDevice core1_0.PhysicalDevice, device core1_0.Device, options CreateOptions) (*Context, error) {
	logger = defaultLogger(logger)

	context := &Context{
		logger:       logger,
		capabilities: detectCapabilities(device, instance),
	}

	var err error
	context.deviceProperties, err = physicalDevice.Properties()
	if err != nil {
		return nil, errors.Wrap(err, "failed to query PhysicalDevice properties")
	}

	context.memoryProperties = physicalDevice.MemoryProperties()
	context.deviceFeatures = physicalDevice.Features()

	context.depthFormat, err = selectDepthFormat(physicalDevice, options.DepthFormat)
	if err != nil {
		return nil, err
	}

	logger.Debug("Context::New",
		slog.String("DepthFormat", context.depthFormat.String()),
		slog.Bool("DebugMarkers", context.capabilities.debugMarkers),
		slog.Bool("DebugUtils", context.capabilities.debugUtils),
		slog.Bool("PortabilitySubset", context.capabilities.portabilitySubset),
	)

	return context, nil
}

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

func detectCapabilities(device core1_0.Device, instance core1_0.Instance) capabilityFlags {
	capabilities := capabilityFlags{
		debugMarkers:           device.IsDeviceExtensionActive(debugMarkerExtensionName),
		debugUtils:             instance.IsInstanceExtensionActive(ext_debug_utils.ExtensionName),
		portabilitySubset:      device.IsDeviceExtensionActive(khr_portability_subset.ExtensionName),
		portabilityEnumeration: instance.IsInstanceExtensionActive(khr_portability_enumeration.ExtensionName),
	}

	// Core 1.1 active - maintenance1-3 are all part of core
	device11 := core1_1.PromoteDevice(device)
	if device11 != nil {
		capabilities.maintenance = [3]bool{true, true, true}
		return capabilities
	}

	capabilities.maintenance[0] = device.IsDeviceExtensionActive(maintenance1ExtensionName)
	capabilities.maintenance[1] = device.IsDeviceExtensionActive(maintenance2ExtensionName)
	capabilities.maintenance[2] = device.IsDeviceExtensionActive(maintenance3ExtensionName)

	return capabilities
}

func selectDepthFormat(physicalDevice core1_0.PhysicalDevice, requestedFormat core1_0.Format) (core1_0.Format, error) {
	candidates := depthFormatCandidates
	if requestedFormat != core1_0.FormatUndefined {
		candidates = []core1_0.Format{requestedFormat}
	}

	for _, format := range candidates {
		formatProperties := physicalDevice.FormatProperties(format)
		if formatProperties.OptimalTilingFeatures&core1_0.FormatFeatureDepthStencilAttachment != 0 {
			return format, nil
		}
	}

	return core1_0.FormatUndefined, errors.Errorf("the physical device does not support any of the candidate depth formats %s", candidates)
}
