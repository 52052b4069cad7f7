package backend

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/core/v2/mocks"
	"github.com/vkngwrapper/extensions/v2/ext_debug_utils"
	"github.com/vkngwrapper/extensions/v2/khr_portability_enumeration"
	"github.com/vkngwrapper/extensions/v2/khr_portability_subset"
	"go.uber.org/mock/gomock"
	"golang.org/x/exp/slog"
)

func TestDefaultLoggerFallsBackWhenNil(t *testing.T) {
	require.NotNil(t, defaultLogger(nil))

	logger := slog.New(slog.NewJSONHandler(io.Discard))
	require.Same(t, logger, defaultLogger(logger))
}

func TestDetectCapabilities_NoExtensions(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	instance, _, device := mocks.MockRig1_0(ctrl, common.Vulkan1_0, []string{}, []string{})

	capabilities := detectCapabilities(device, instance)

	require.Equal(t, capabilityFlags{}, capabilities)
}

func TestDetectCapabilities_Core1_1(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	instance, _, device := mocks.MockRig1_1(ctrl, common.Vulkan1_1, []string{}, []string{})

	capabilities := detectCapabilities(device, instance)

	// maintenance1-3 are core in 1.1, no extension strings required
	require.Equal(t, capabilityFlags{
		maintenance: [3]bool{true, true, true},
	}, capabilities)
}

func TestDetectCapabilities_InstanceExtensions(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	instance, _, device := mocks.MockRig1_0(ctrl, common.Vulkan1_0,
		[]string{
			ext_debug_utils.ExtensionName,
			khr_portability_enumeration.ExtensionName,
		},
		[]string{})

	capabilities := detectCapabilities(device, instance)

	require.Equal(t, capabilityFlags{
		debugUtils:             true,
		portabilityEnumeration: true,
	}, capabilities)
}

func TestDetectCapabilities_DeviceExtensions(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	instance, _, device := mocks.MockRig1_0(ctrl, common.Vulkan1_0,
		[]string{},
		[]string{
			debugMarkerExtensionName,
			khr_portability_subset.ExtensionName,
			maintenance1ExtensionName,
			maintenance3ExtensionName,
		})

	capabilities := detectCapabilities(device, instance)

	require.Equal(t, capabilityFlags{
		debugMarkers:      true,
		portabilitySubset: true,
		maintenance:       [3]bool{true, false, true},
	}, capabilities)
}
