package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkbuild/engine/renderer/builder"
)

func bool32(b bool) vk.Bool32 {
	if b {
		return vk.True
	}
	return vk.False
}

// GraphicsPipelineCreateInfo assembles a finalized pipeline against the
// native layout and render pass created from cfg.Layout() and
// cfg.RenderPass(). Viewports and scissors are always dynamic, so only
// their count is filled in.
func GraphicsPipelineCreateInfo(cfg *builder.GraphicsPipelineConfig, layout vk.PipelineLayout, renderPass vk.RenderPass) vk.GraphicsPipelineCreateInfo {
	stages := cfg.Stages()
	shaderStages := make([]vk.PipelineShaderStageCreateInfo, len(stages))
	for i, s := range stages {
		// TODO: translate s.Specialization once the binding exposes a Go-owned data pointer.
		shaderStages[i] = vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Flags:  s.Flags,
			Stage:  s.Stage,
			Module: s.Module.Handle,
			PName:  VulkanSafeString(s.EntryPoint),
		}
	}

	// Vertex input
	vertexInput := cfg.VertexInput()
	bindingDescriptions := make([]vk.VertexInputBindingDescription, len(vertexInput.Bindings))
	for i, b := range vertexInput.Bindings {
		bindingDescriptions[i] = vk.VertexInputBindingDescription{
			Binding:   b.Binding,
			Stride:    b.Stride,
			InputRate: b.InputRate,
		}
	}
	attributes := vertexInput.Attributes()
	attributeDescriptions := make([]vk.VertexInputAttributeDescription, len(attributes))
	for i, a := range attributes {
		attributeDescriptions[i] = vk.VertexInputAttributeDescription{
			Location: a.Location,
			Binding:  a.Binding,
			Format:   a.Format,
			Offset:   a.Offset,
		}
	}
	vertexInputInfo := vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   uint32(len(bindingDescriptions)),
		PVertexBindingDescriptions:      bindingDescriptions,
		VertexAttributeDescriptionCount: uint32(len(attributeDescriptions)),
		PVertexAttributeDescriptions:    attributeDescriptions,
	}

	// Input assembly
	ia := cfg.InputAssembly()
	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology:               ia.Topology,
		PrimitiveRestartEnable: bool32(ia.PrimitiveRestart),
	}

	// Viewport state
	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: cfg.ViewportCount(),
		ScissorCount:  cfg.ViewportCount(),
	}

	// Rasterizer
	r := cfg.Rasterization()
	rasterizerCreateInfo := vk.PipelineRasterizationStateCreateInfo{
		SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
		DepthClampEnable:        bool32(r.DepthClamp),
		RasterizerDiscardEnable: bool32(r.RasterizerDiscard),
		PolygonMode:             r.PolygonMode,
		LineWidth:               r.LineWidth,
		CullMode:                r.CullMode,
		FrontFace:               r.FrontFace,
		DepthBiasEnable:         bool32(r.DepthBias),
		DepthBiasConstantFactor: r.DepthBiasConstant,
		DepthBiasClamp:          r.DepthBiasClamp,
		DepthBiasSlopeFactor:    r.DepthBiasSlope,
	}

	// Multisampling.
	ms := cfg.Multisample()
	multisamplingCreateInfo := vk.PipelineMultisampleStateCreateInfo{
		SType:                 vk.StructureTypePipelineMultisampleStateCreateInfo,
		SampleShadingEnable:   bool32(ms.SampleShading),
		RasterizationSamples:  ms.Samples,
		MinSampleShading:      ms.MinSampleShading,
		AlphaToCoverageEnable: bool32(ms.AlphaToCoverage),
		AlphaToOneEnable:      bool32(ms.AlphaToOne),
	}

	// Depth and stencil testing.
	ds := cfg.DepthStencil()
	depthStencil := vk.PipelineDepthStencilStateCreateInfo{
		SType:                 vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthTestEnable:       bool32(ds.DepthTest),
		DepthWriteEnable:      bool32(ds.DepthWrite),
		DepthCompareOp:        ds.CompareOp,
		DepthBoundsTestEnable: bool32(ds.DepthBoundsTest),
		StencilTestEnable:     bool32(ds.StencilTest),
		Front:                 stencilOpState(ds.Front),
		Back:                  stencilOpState(ds.Back),
		MinDepthBounds:        ds.MinDepthBounds,
		MaxDepthBounds:        ds.MaxDepthBounds,
	}

	// Blending, one entry per color attachment of the subpass.
	cb := cfg.ColorBlend()
	blendAttachments := make([]vk.PipelineColorBlendAttachmentState, len(cb.Attachments))
	for i, a := range cb.Attachments {
		blendAttachments[i] = vk.PipelineColorBlendAttachmentState{
			BlendEnable:         bool32(a.BlendEnable),
			SrcColorBlendFactor: a.SrcColorFactor,
			DstColorBlendFactor: a.DstColorFactor,
			ColorBlendOp:        a.ColorOp,
			SrcAlphaBlendFactor: a.SrcAlphaFactor,
			DstAlphaBlendFactor: a.DstAlphaFactor,
			AlphaBlendOp:        a.AlphaOp,
			ColorWriteMask:      a.WriteMask,
		}
	}
	colorBlendStateCreateInfo := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOpEnable:   bool32(cb.LogicOpEnable),
		LogicOp:         cb.LogicOp,
		AttachmentCount: uint32(len(blendAttachments)),
		PAttachments:    blendAttachments,
		BlendConstants:  cb.Constants,
	}

	// Dynamic state
	dynamicStates := cfg.DynamicStates()
	dynamicStateCreateInfo := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}

	return vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		Flags:               cfg.Flags(),
		StageCount:          uint32(len(shaderStages)),
		PStages:             shaderStages,
		PVertexInputState:   &vertexInputInfo,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizerCreateInfo,
		PMultisampleState:   &multisamplingCreateInfo,
		PDepthStencilState:  &depthStencil,
		PColorBlendState:    &colorBlendStateCreateInfo,
		PDynamicState:       &dynamicStateCreateInfo,
		PTessellationState:  nil,
		Layout:              layout,
		RenderPass:          renderPass,
		Subpass:             cfg.Subpass(),
		BasePipelineHandle:  vk.NullPipeline,
		BasePipelineIndex:   -1,
	}
}

func stencilOpState(s builder.StencilOpState) vk.StencilOpState {
	return vk.StencilOpState{
		FailOp:      s.FailOp,
		PassOp:      s.PassOp,
		DepthFailOp: s.DepthFailOp,
		CompareOp:   s.CompareOp,
		CompareMask: s.CompareMask,
		WriteMask:   s.WriteMask,
		Reference:   s.Reference,
	}
}
