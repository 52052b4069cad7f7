package backend

import (
	"encoding/json"
	"io"
	"testing"

	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/v2/core1_0"
	"golang.org/x/exp/slog"
)

// The memory-type table most of these tests run against, in driver preference
// order: a bare type, then device-local, then increasingly capable
// host-visible types.
var testMemoryTypes = []core1_0.MemoryType{
	{
		PropertyFlags: 0,
		HeapIndex:     1,
	},
	{
		PropertyFlags: core1_0.MemoryPropertyDeviceLocal,
		HeapIndex:     0,
	},
	{
		PropertyFlags: core1_0.MemoryPropertyHostVisible | core1_0.MemoryPropertyHostCoherent,
		HeapIndex:     1,
	},
	{
		PropertyFlags: core1_0.MemoryPropertyHostVisible | core1_0.MemoryPropertyHostCoherent | core1_0.MemoryPropertyHostCached,
		HeapIndex:     1,
	},
	{
		PropertyFlags: core1_0.MemoryPropertyDeviceLocal | core1_0.MemoryPropertyHostVisible | core1_0.MemoryPropertyHostCoherent,
		HeapIndex:     2,
	},
}

func testContext(t *testing.T) *Context {
	t.Helper()

	return &Context{
		logger: slog.New(slog.NewJSONHandler(io.Discard)),
		memoryProperties: &core1_0.PhysicalDeviceMemoryProperties{
			MemoryTypes: testMemoryTypes,
		},
		deviceProperties: &core1_0.PhysicalDeviceProperties{
			VendorID: 0x10de,
			Limits: &core1_0.PhysicalDeviceLimits{
				MaxImageDimension2D: 16384,
				TimestampPeriod:     1,
			},
		},
		deviceFeatures: &core1_0.PhysicalDeviceFeatures{
			ImageCubeArray: false,
		},
		capabilities: capabilityFlags{
			debugUtils:  true,
			maintenance: [3]bool{true, true, true},
		},
		depthFormat: core1_0.FormatD32SignedFloat,
	}
}

var selectMemoryTypeTestCases = map[string]struct {
	TypeBits      uint32
	RequiredFlags core1_0.MemoryPropertyFlags

	ExpectedIndex int
}{
	"AllCandidatesNoRequirements": {
		TypeBits:      0b11111,
		RequiredFlags: 0,
		ExpectedIndex: 0,
	},
	"LowestDeviceLocal": {
		TypeBits:      0b11111,
		RequiredFlags: core1_0.MemoryPropertyDeviceLocal,
		ExpectedIndex: 1,
	},
	"MaskExcludesLowerMatch": {
		TypeBits:      0b10000,
		RequiredFlags: core1_0.MemoryPropertyDeviceLocal,
		ExpectedIndex: 4,
	},
	"SupersetAccepted": {
		TypeBits:      0b11111,
		RequiredFlags: core1_0.MemoryPropertyHostVisible,
		ExpectedIndex: 2,
	},
	"MultipleRequiredBits": {
		TypeBits:      0b11111,
		RequiredFlags: core1_0.MemoryPropertyDeviceLocal | core1_0.MemoryPropertyHostVisible,
		ExpectedIndex: 4,
	},
}

func TestSelectMemoryType(t *testing.T) {
	context := testContext(t)

	for testName, testCase := range selectMemoryTypeTestCases {
		t.Run(testName, func(t *testing.T) {
			memoryTypeIndex := context.SelectMemoryType(testCase.TypeBits, testCase.RequiredFlags)
			require.Equal(t, testCase.ExpectedIndex, memoryTypeIndex)
		})
	}
}

func TestSelectMemoryTypeImpossibleRequest(t *testing.T) {
	context := testContext(t)

	// No lazily-allocated type exists in the table
	require.Panics(t, func() {
		context.SelectMemoryType(0b11111, core1_0.MemoryPropertyLazilyAllocated)
	})

	// An empty candidate mask can never match
	require.Panics(t, func() {
		context.SelectMemoryType(0, core1_0.MemoryPropertyDeviceLocal)
	})
}

func TestContextAccessors(t *testing.T) {
	context := testContext(t)

	require.Equal(t, core1_0.FormatD32SignedFloat, context.DepthFormat())
	require.Equal(t, uint32(0x10de), context.VendorID())
	require.Equal(t, 16384, context.PhysicalDeviceLimits().MaxImageDimension2D)

	require.False(t, context.IsDebugMarkersSupported())
	require.True(t, context.IsDebugUtilsSupported())
	require.False(t, context.IsPortabilitySubsetSupported())
	require.False(t, context.IsPortabilityEnumerationSupported())
	require.True(t, context.IsMaintenance1Supported())
	require.True(t, context.IsMaintenance2Supported())
	require.True(t, context.IsMaintenance3Supported())

	require.Equal(t, len(testMemoryTypes), context.MemoryTypeCount())
	require.Equal(t, 2, context.MemoryTypeIndexToHeapIndex(4))
	require.Equal(t, testMemoryTypes[3], context.MemoryTypeProperties(3))
}

func TestImageCubeArrayUnsupportedStaysUnsupported(t *testing.T) {
	context := testContext(t)

	// The snapshot is immutable- repeated reads always report the value
	// captured at construction
	for i := 0; i < 3; i++ {
		require.False(t, context.IsImageCubeArraySupported())
	}
}

func TestBuildCapsString(t *testing.T) {
	context := testContext(t)

	writer := jwriter.NewWriter()
	context.BuildCapsString(&writer)
	require.NoError(t, writer.Error())

	var caps map[string]any
	err := json.Unmarshal(writer.Bytes(), &caps)
	require.NoError(t, err)

	require.Equal(t, float64(0x10de), caps["VendorID"])
	require.Equal(t, true, caps["DebugUtils"])
	require.Equal(t, false, caps["PortabilitySubset"])
	require.Len(t, caps["MemoryTypes"], len(testMemoryTypes))
}
