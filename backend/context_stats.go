package backend

import (
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
)

// BuildCapsString writes the capability snapshot as json, for inclusion in
// bug reports and debug overlays.
func (c *Context) BuildCapsString(writer *jwriter.Writer) {
	obj := writer.Object()
	defer obj.End()

	obj.Name("VendorID").Int(int(c.deviceProperties.VendorID))
	obj.Name("DepthFormat").String(c.depthFormat.String())
	obj.Name("ImageCubeArray").Bool(c.deviceFeatures.ImageCubeArray)
	obj.Name("DebugMarkers").Bool(c.capabilities.debugMarkers)
	obj.Name("DebugUtils").Bool(c.capabilities.debugUtils)
	obj.Name("PortabilitySubset").Bool(c.capabilities.portabilitySubset)
	obj.Name("PortabilityEnumeration").Bool(c.capabilities.portabilityEnumeration)
	obj.Name("Maintenance1").Bool(c.capabilities.maintenance[0])
	obj.Name("Maintenance2").Bool(c.capabilities.maintenance[1])
	obj.Name("Maintenance3").Bool(c.capabilities.maintenance[2])

	memoryTypes := obj.Name("MemoryTypes").Array()
	for memoryTypeIndex := 0; memoryTypeIndex < len(c.memoryProperties.MemoryTypes); memoryTypeIndex++ {
		memoryType := c.memoryProperties.MemoryTypes[memoryTypeIndex]

		typeObj := memoryTypes.Object()
		typeObj.Name("HeapIndex").Int(memoryType.HeapIndex)
		typeObj.Name("PropertyFlags").String(memoryType.PropertyFlags.String())
		typeObj.End()
	}
	memoryTypes.End()
}
