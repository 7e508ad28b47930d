package loaders

import (
	"errors"
	"fmt"
	"sort"

	vk "github.com/goki/vulkan"
)

// ErrUnknownName is returned for an enum spelling that has no native value.
var ErrUnknownName = errors.New("unknown name")

var formats = map[string]vk.Format{
	"r8_unorm":                 vk.FormatR8Unorm,
	"r8_snorm":                 vk.FormatR8Snorm,
	"r8_uint":                  vk.FormatR8Uint,
	"r8_sint":                  vk.FormatR8Sint,
	"r8g8_unorm":               vk.FormatR8g8Unorm,
	"r8g8_snorm":               vk.FormatR8g8Snorm,
	"r8g8_uint":                vk.FormatR8g8Uint,
	"r8g8_sint":                vk.FormatR8g8Sint,
	"r8g8b8a8_unorm":           vk.FormatR8g8b8a8Unorm,
	"r8g8b8a8_snorm":           vk.FormatR8g8b8a8Snorm,
	"r8g8b8a8_uint":            vk.FormatR8g8b8a8Uint,
	"r8g8b8a8_sint":            vk.FormatR8g8b8a8Sint,
	"r8g8b8a8_srgb":            vk.FormatR8g8b8a8Srgb,
	"b8g8r8a8_unorm":           vk.FormatB8g8r8a8Unorm,
	"b8g8r8a8_srgb":            vk.FormatB8g8r8a8Srgb,
	"a2b10g10r10_unorm_pack32": vk.FormatA2b10g10r10UnormPack32,
	"r16_unorm":                vk.FormatR16Unorm,
	"r16_sint":                 vk.FormatR16Sint,
	"r16_uint":                 vk.FormatR16Uint,
	"r16_sfloat":               vk.FormatR16Sfloat,
	"r16g16_unorm":             vk.FormatR16g16Unorm,
	"r16g16_sint":              vk.FormatR16g16Sint,
	"r16g16_uint":              vk.FormatR16g16Uint,
	"r16g16_sfloat":            vk.FormatR16g16Sfloat,
	"r16g16b16a16_unorm":       vk.FormatR16g16b16a16Unorm,
	"r16g16b16a16_sint":        vk.FormatR16g16b16a16Sint,
	"r16g16b16a16_uint":        vk.FormatR16g16b16a16Uint,
	"r16g16b16a16_sfloat":      vk.FormatR16g16b16a16Sfloat,
	"r32_uint":                 vk.FormatR32Uint,
	"r32_sint":                 vk.FormatR32Sint,
	"r32_sfloat":               vk.FormatR32Sfloat,
	"r32g32_uint":              vk.FormatR32g32Uint,
	"r32g32_sint":              vk.FormatR32g32Sint,
	"r32g32_sfloat":            vk.FormatR32g32Sfloat,
	"r32g32b32_uint":           vk.FormatR32g32b32Uint,
	"r32g32b32_sint":           vk.FormatR32g32b32Sint,
	"r32g32b32_sfloat":         vk.FormatR32g32b32Sfloat,
	"r32g32b32a32_uint":        vk.FormatR32g32b32a32Uint,
	"r32g32b32a32_sint":        vk.FormatR32g32b32a32Sint,
	"r32g32b32a32_sfloat":      vk.FormatR32g32b32a32Sfloat,
	"r64_sfloat":               vk.FormatR64Sfloat,
	"r64g64_sfloat":            vk.FormatR64g64Sfloat,
	"r64g64b64_sfloat":         vk.FormatR64g64b64Sfloat,
	"r64g64b64a64_sfloat":      vk.FormatR64g64b64a64Sfloat,
	"d32_sfloat":               vk.FormatD32Sfloat,
	"d24_unorm_s8_uint":        vk.FormatD24UnormS8Uint,
	"d32_sfloat_s8_uint":       vk.FormatD32SfloatS8Uint,
}

var imageLayouts = map[string]vk.ImageLayout{
	"undefined":                        vk.ImageLayoutUndefined,
	"general":                          vk.ImageLayoutGeneral,
	"color_attachment_optimal":         vk.ImageLayoutColorAttachmentOptimal,
	"depth_stencil_attachment_optimal": vk.ImageLayoutDepthStencilAttachmentOptimal,
	"depth_stencil_read_only_optimal":  vk.ImageLayoutDepthStencilReadOnlyOptimal,
	"shader_read_only_optimal":         vk.ImageLayoutShaderReadOnlyOptimal,
	"transfer_src_optimal":             vk.ImageLayoutTransferSrcOptimal,
	"transfer_dst_optimal":             vk.ImageLayoutTransferDstOptimal,
	"present_src":                      vk.ImageLayoutPresentSrc,
}

var loadOps = map[string]vk.AttachmentLoadOp{
	"load":      vk.AttachmentLoadOpLoad,
	"clear":     vk.AttachmentLoadOpClear,
	"dont_care": vk.AttachmentLoadOpDontCare,
}

var storeOps = map[string]vk.AttachmentStoreOp{
	"store":     vk.AttachmentStoreOpStore,
	"dont_care": vk.AttachmentStoreOpDontCare,
}

var sampleCounts = map[uint32]vk.SampleCountFlagBits{
	1: vk.SampleCount1Bit,
	2: vk.SampleCount2Bit,
	4: vk.SampleCount4Bit,
	8: vk.SampleCount8Bit,
}

var pipelineStages = map[string]vk.PipelineStageFlags{
	"top_of_pipe":             vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit),
	"vertex_input":            vk.PipelineStageFlags(vk.PipelineStageVertexInputBit),
	"vertex_shader":           vk.PipelineStageFlags(vk.PipelineStageVertexShaderBit),
	"fragment_shader":         vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
	"early_fragment_tests":    vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit),
	"late_fragment_tests":     vk.PipelineStageFlags(vk.PipelineStageLateFragmentTestsBit),
	"color_attachment_output": vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
	"transfer":                vk.PipelineStageFlags(vk.PipelineStageTransferBit),
	"bottom_of_pipe":          vk.PipelineStageFlags(vk.PipelineStageBottomOfPipeBit),
}

var accessMasks = map[string]vk.AccessFlags{
	"input_attachment_read":          vk.AccessFlags(vk.AccessInputAttachmentReadBit),
	"shader_read":                    vk.AccessFlags(vk.AccessShaderReadBit),
	"color_attachment_read":          vk.AccessFlags(vk.AccessColorAttachmentReadBit),
	"color_attachment_write":         vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
	"depth_stencil_attachment_read":  vk.AccessFlags(vk.AccessDepthStencilAttachmentReadBit),
	"depth_stencil_attachment_write": vk.AccessFlags(vk.AccessDepthStencilAttachmentWriteBit),
	"transfer_write":                 vk.AccessFlags(vk.AccessTransferWriteBit),
	"memory_read":                    vk.AccessFlags(vk.AccessMemoryReadBit),
}

var shaderStages = map[string]vk.ShaderStageFlags{
	"vertex":                  vk.ShaderStageFlags(vk.ShaderStageVertexBit),
	"tessellation_control":    vk.ShaderStageFlags(vk.ShaderStageTessellationControlBit),
	"tessellation_evaluation": vk.ShaderStageFlags(vk.ShaderStageTessellationEvaluationBit),
	"geometry":                vk.ShaderStageFlags(vk.ShaderStageGeometryBit),
	"fragment":                vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
}

var descriptorTypes = map[string]vk.DescriptorType{
	"sampler":                vk.DescriptorTypeSampler,
	"combined_image_sampler": vk.DescriptorTypeCombinedImageSampler,
	"sampled_image":          vk.DescriptorTypeSampledImage,
	"storage_image":          vk.DescriptorTypeStorageImage,
	"uniform_buffer":         vk.DescriptorTypeUniformBuffer,
	"storage_buffer":         vk.DescriptorTypeStorageBuffer,
	"uniform_buffer_dynamic": vk.DescriptorTypeUniformBufferDynamic,
	"storage_buffer_dynamic": vk.DescriptorTypeStorageBufferDynamic,
	"input_attachment":       vk.DescriptorTypeInputAttachment,
}

var topologies = map[string]vk.PrimitiveTopology{
	"point_list":     vk.PrimitiveTopologyPointList,
	"line_list":      vk.PrimitiveTopologyLineList,
	"line_strip":     vk.PrimitiveTopologyLineStrip,
	"triangle_list":  vk.PrimitiveTopologyTriangleList,
	"triangle_strip": vk.PrimitiveTopologyTriangleStrip,
	"patch_list":     vk.PrimitiveTopologyPatchList,
}

var polygonModes = map[string]vk.PolygonMode{
	"fill":  vk.PolygonModeFill,
	"line":  vk.PolygonModeLine,
	"point": vk.PolygonModePoint,
}

var cullModes = map[string]vk.CullModeFlags{
	"none":           vk.CullModeFlags(vk.CullModeNone),
	"front":          vk.CullModeFlags(vk.CullModeFrontBit),
	"back":           vk.CullModeFlags(vk.CullModeBackBit),
	"front_and_back": vk.CullModeFlags(vk.CullModeFrontAndBack),
}

var frontFaces = map[string]vk.FrontFace{
	"counter_clockwise": vk.FrontFaceCounterClockwise,
	"clockwise":         vk.FrontFaceClockwise,
}

var compareOps = map[string]vk.CompareOp{
	"never":            vk.CompareOpNever,
	"less":             vk.CompareOpLess,
	"equal":            vk.CompareOpEqual,
	"less_or_equal":    vk.CompareOpLessOrEqual,
	"greater":          vk.CompareOpGreater,
	"not_equal":        vk.CompareOpNotEqual,
	"greater_or_equal": vk.CompareOpGreaterOrEqual,
	"always":           vk.CompareOpAlways,
}

var dynamicStates = map[string]vk.DynamicState{
	"viewport":          vk.DynamicStateViewport,
	"scissor":           vk.DynamicStateScissor,
	"line_width":        vk.DynamicStateLineWidth,
	"depth_bias":        vk.DynamicStateDepthBias,
	"blend_constants":   vk.DynamicStateBlendConstants,
	"stencil_reference": vk.DynamicStateStencilReference,
}

var inputRates = map[string]vk.VertexInputRate{
	"vertex":   vk.VertexInputRateVertex,
	"instance": vk.VertexInputRateInstance,
}

// lookup resolves one enum spelling. An empty name yields def.
func lookup[T any](table map[string]T, kind, name string, def T) (T, error) {
	if name == "" {
		return def, nil
	}
	v, ok := table[name]
	if !ok {
		return def, fmt.Errorf("%w: %s %q (known: %v)", ErrUnknownName, kind, name, knownNames(table))
	}
	return v, nil
}

// mask ORs together the flag values of names.
func mask[T ~uint32](table map[string]T, kind string, names []string) (T, error) {
	var out T
	for _, n := range names {
		v, err := lookup(table, kind, n, 0)
		if err != nil {
			return 0, err
		}
		out |= v
	}
	return out, nil
}

func knownNames[T any](table map[string]T) []string {
	names := make([]string, 0, len(table))
	for n := range table {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
