package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
)

type resultText struct {
	name        string
	description string
}

// From: https://www.khronos.org/registry/vulkan/specs/1.3-extensions/man/html/VkResult.html
var resultTexts = map[vk.Result]resultText{
	vk.Success:                 {"VK_SUCCESS", "Command successfully completed"},
	vk.NotReady:                {"VK_NOT_READY", "A fence or query has not yet completed"},
	vk.Timeout:                 {"VK_TIMEOUT", "A wait operation has not completed in the specified time"},
	vk.EventSet:                {"VK_EVENT_SET", "An event is signaled"},
	vk.EventReset:              {"VK_EVENT_RESET", "An event is unsignaled"},
	vk.Incomplete:              {"VK_INCOMPLETE", "A return array was too small for the result"},
	vk.PipelineCompileRequired: {"VK_PIPELINE_COMPILE_REQUIRED_EXT", "Pipeline creation would have required compilation"},

	vk.ErrorOutOfHostMemory:      {"VK_ERROR_OUT_OF_HOST_MEMORY", "A host memory allocation has failed"},
	vk.ErrorOutOfDeviceMemory:    {"VK_ERROR_OUT_OF_DEVICE_MEMORY", "A device memory allocation has failed"},
	vk.ErrorInitializationFailed: {"VK_ERROR_INITIALIZATION_FAILED", "Initialization of an object could not be completed"},
	vk.ErrorDeviceLost:           {"VK_ERROR_DEVICE_LOST", "The logical or physical device has been lost"},
	vk.ErrorFeatureNotPresent:    {"VK_ERROR_FEATURE_NOT_PRESENT", "A requested feature is not supported"},
	vk.ErrorTooManyObjects:       {"VK_ERROR_TOO_MANY_OBJECTS", "Too many objects of the type have already been created"},
	vk.ErrorFormatNotSupported:   {"VK_ERROR_FORMAT_NOT_SUPPORTED", "A requested format is not supported on this device"},
	vk.ErrorInvalidShaderNv:      {"VK_ERROR_INVALID_SHADER_NV", "One or more shaders failed to compile or link"},
	vk.ErrorOutOfPoolMemory:      {"VK_ERROR_OUT_OF_POOL_MEMORY", "A pool memory allocation has failed"},
	vk.ErrorUnknown:              {"VK_ERROR_UNKNOWN", "An unknown error has occurred"},
}

// VulkanResultString names result, with its description when getExtended
// is set. Codes missing from the table are printed by value.
func VulkanResultString(result vk.Result, getExtended bool) string {
	text, ok := resultTexts[result]
	if !ok {
		return fmt.Sprintf("VkResult(%d)", int32(result))
	}
	if getExtended {
		return text.name + " " + text.description
	}
	return text.name
}

// VulkanResultIsSuccess follows the native convention: every negative code
// is an error, every other code a success or status.
func VulkanResultIsSuccess(result vk.Result) bool {
	return result >= 0
}

// VulkanSafeString null-terminates s for fields handed to the C API.
func VulkanSafeString(s string) string {
	if len(s) == 0 {
		return "\x00"
	}
	if s[len(s)-1] != '\x00' {
		return s + "\x00"
	}
	return s
}

// ResultError wraps a failed result from the native call named op. It
// returns nil for success codes.
func ResultError(op string, result vk.Result) error {
	if VulkanResultIsSuccess(result) {
		return nil
	}
	return fmt.Errorf("%s failed with %s", op, VulkanResultString(result, true))
}
