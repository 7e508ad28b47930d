package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkbuild/engine/renderer/builder"
	"github.com/stretchr/testify/require"
)

func deferredPass(t *testing.T) *builder.RenderPassConfig {
	t.Helper()

	rp := builder.NewRenderPass()
	albedo := rp.Attachment().Format(vk.FormatR8g8b8a8Unorm).StoreOp(vk.AttachmentStoreOpStore).Handle()
	depth := rp.Attachment().Format(vk.FormatD32Sfloat).Handle()
	swap := rp.Attachment().Format(vk.FormatB8g8r8a8Srgb).FinalLayout(vk.ImageLayoutPresentSrc).Handle()

	gbuffer := rp.Subpass().
		Color(albedo, vk.ImageLayoutColorAttachmentOptimal).
		DepthStencil(depth, vk.ImageLayoutDepthStencilAttachmentOptimal)
	lighting := rp.Subpass().
		Input(albedo, vk.ImageLayoutShaderReadOnlyOptimal).
		Color(swap, vk.ImageLayoutColorAttachmentOptimal).
		Preserve(depth)
	rp.Dependency().
		Src(gbuffer.Handle()).
		Dst(lighting.Handle()).
		SrcStageMask(vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)).
		DstStageMask(vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit)).
		Flags(vk.DependencyFlags(vk.DependencyByRegionBit))
	rp.Dependency().SrcExternal().Dst(gbuffer.Handle())

	cfg, err := rp.Config()
	require.NoError(t, err)
	return cfg
}

func TestRenderPassCreateInfo(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	cfg := deferredPass(t)

	// --- Act ---
	info := RenderPassCreateInfo(cfg)

	// --- Assert ---
	require.Equal(t, vk.StructureTypeRenderPassCreateInfo, info.SType)
	require.Equal(t, uint32(3), info.AttachmentCount)
	require.Len(t, info.PAttachments, 3)
	require.Equal(t, vk.FormatR8g8b8a8Unorm, info.PAttachments[0].Format)
	require.Equal(t, vk.AttachmentStoreOpStore, info.PAttachments[0].StoreOp)
	require.Equal(t, vk.ImageLayoutPresentSrc, info.PAttachments[2].FinalLayout)

	require.Equal(t, uint32(2), info.SubpassCount)
	gbuffer := info.PSubpasses[0]
	require.Equal(t, vk.PipelineBindPointGraphics, gbuffer.PipelineBindPoint)
	require.Equal(t, uint32(1), gbuffer.ColorAttachmentCount)
	require.Equal(t, uint32(0), gbuffer.PColorAttachments[0].Attachment)
	require.NotNil(t, gbuffer.PDepthStencilAttachment)
	require.Equal(t, uint32(1), gbuffer.PDepthStencilAttachment.Attachment)
	require.Zero(t, gbuffer.InputAttachmentCount)

	lighting := info.PSubpasses[1]
	require.Equal(t, uint32(1), lighting.InputAttachmentCount)
	require.Equal(t, vk.ImageLayoutShaderReadOnlyOptimal, lighting.PInputAttachments[0].Layout)
	require.Equal(t, uint32(2), lighting.PColorAttachments[0].Attachment)
	require.Nil(t, lighting.PDepthStencilAttachment)
	require.Equal(t, uint32(1), lighting.PreserveAttachmentCount)
	require.Equal(t, []uint32{1}, lighting.PPreserveAttachments)

	require.Equal(t, uint32(2), info.DependencyCount)
	require.Equal(t, uint32(0), info.PDependencies[0].SrcSubpass)
	require.Equal(t, uint32(1), info.PDependencies[0].DstSubpass)
	require.Equal(t, vk.DependencyFlags(vk.DependencyByRegionBit), info.PDependencies[0].DependencyFlags)
	require.Equal(t, builder.SubpassExternal, info.PDependencies[1].SrcSubpass)
}

func TestDescriptorSetLayoutCreateInfo(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	cfg, err := builder.NewDescriptorSet().
		Binding(1, vk.DescriptorTypeCombinedImageSampler, 2, vk.ShaderStageFlags(vk.ShaderStageFragmentBit)).
		Binding(0, vk.DescriptorTypeUniformBuffer, 1, vk.ShaderStageFlags(vk.ShaderStageVertexBit)).
		Config()
	require.NoError(t, err)

	// --- Act ---
	info := DescriptorSetLayoutCreateInfo(cfg)

	// --- Assert ---
	require.Equal(t, uint32(2), info.BindingCount)
	require.Equal(t, vk.DescriptorTypeUniformBuffer, info.PBindings[0].DescriptorType)
	require.Equal(t, uint32(1), info.PBindings[1].Binding)
	require.Equal(t, uint32(2), info.PBindings[1].DescriptorCount)
}

func TestPipelineLayoutCreateInfo(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	set, err := builder.NewDescriptorSet().
		Binding(0, vk.DescriptorTypeUniformBuffer, 1, vk.ShaderStageFlags(vk.ShaderStageVertexBit)).
		Config()
	require.NoError(t, err)
	cfg, err := builder.NewPipelineLayout().
		SetLayout(set).
		PushConstantRange(vk.ShaderStageFlags(vk.ShaderStageVertexBit), 0, 64).
		Config()
	require.NoError(t, err)

	t.Run("one native layout per set", func(t *testing.T) {
		t.Parallel()

		info, err := PipelineLayoutCreateInfo(cfg, make([]vk.DescriptorSetLayout, 1))

		require.NoError(t, err)
		require.Equal(t, uint32(1), info.SetLayoutCount)
		require.Equal(t, uint32(1), info.PushConstantRangeCount)
		require.Equal(t, uint32(64), info.PPushConstantRanges[0].Size)
	})

	t.Run("count mismatch", func(t *testing.T) {
		t.Parallel()

		_, err := PipelineLayoutCreateInfo(cfg, make([]vk.DescriptorSetLayout, 2))

		require.ErrorIs(t, err, ErrSetLayoutCount)
	})
}

func TestGraphicsPipelineCreateInfo(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	pass := deferredPass(t)
	layout, err := builder.NewPipelineLayout().Config()
	require.NoError(t, err)

	gp := builder.NewGraphicsPipeline()
	gp.ShaderStage().Vertex().Module(builder.ShaderModuleRef{Name: "fullscreen.vert"})
	gp.ShaderStage().Fragment().Module(builder.ShaderModuleRef{Name: "lighting.frag"})
	b := gp.VertexBinding(0).Stride(64).Attributes(0, 0, 4, vk.FormatR32g32b32a32Sfloat)
	gp.VertexInputState().Binding(b.Handle())
	gp.RasterizationState().CullMode(vk.CullModeFlags(vk.CullModeNone))
	gp.ColorBlendState().Constants(0.1, 0.2, 0.3, 0.4).Attachment().AlphaBlending()
	cfg, err := gp.Config(layout, pass, 1)
	require.NoError(t, err)

	// --- Act ---
	info := GraphicsPipelineCreateInfo(cfg, vk.NullPipelineLayout, vk.NullRenderPass)

	// --- Assert ---
	require.Equal(t, uint32(2), info.StageCount)
	require.Equal(t, "main\x00", info.PStages[0].PName)
	require.Equal(t, vk.ShaderStageFragmentBit, info.PStages[1].Stage)
	require.Equal(t, uint32(1), info.Subpass)
	require.Equal(t, int32(-1), info.BasePipelineIndex)

	require.Equal(t, uint32(1), info.PVertexInputState.VertexBindingDescriptionCount)
	require.Equal(t, uint32(4), info.PVertexInputState.VertexAttributeDescriptionCount)
	require.Equal(t, uint32(48), info.PVertexInputState.PVertexAttributeDescriptions[3].Offset)

	require.Equal(t, vk.CullModeFlags(vk.CullModeNone), info.PRasterizationState.CullMode)
	require.Equal(t, vk.Bool32(vk.False), info.PDepthStencilState.DepthTestEnable)
	require.Equal(t, uint32(1), info.PViewportState.ViewportCount)
	require.Equal(t, uint32(1), info.PViewportState.ScissorCount)
	require.Equal(t, uint32(2), info.PDynamicState.DynamicStateCount)

	require.Equal(t, uint32(1), info.PColorBlendState.AttachmentCount)
	require.Equal(t, vk.Bool32(vk.True), info.PColorBlendState.PAttachments[0].BlendEnable)
	require.Equal(t, [4]float32{0.1, 0.2, 0.3, 0.4}, info.PColorBlendState.BlendConstants)
}

func TestResultError(t *testing.T) {
	t.Parallel()

	require.NoError(t, ResultError("vkCreateRenderPass", vk.Success))

	err := ResultError("vkCreateGraphicsPipelines", vk.ErrorDeviceLost)
	require.Error(t, err)
	require.Contains(t, err.Error(), "vkCreateGraphicsPipelines failed with VK_ERROR_DEVICE_LOST")
	require.Equal(t, "VK_ERROR_DEVICE_LOST", VulkanResultString(vk.ErrorDeviceLost, false))

	require.NoError(t, ResultError("vkCreateGraphicsPipelines", vk.PipelineCompileRequired))
}

func TestResultError_UnlistedCodes(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	unlistedError := vk.Result(-1000338000)
	unlistedStatus := vk.Result(1000268000)

	// --- Act ---
	err := ResultError("vkCreateRenderPass", unlistedError)

	// --- Assert ---
	require.Error(t, err)
	require.Contains(t, err.Error(), "VkResult(-1000338000)")
	require.Equal(t, "VkResult(-1000338000)", VulkanResultString(unlistedError, false))
	require.False(t, VulkanResultIsSuccess(unlistedError))
	require.True(t, VulkanResultIsSuccess(unlistedStatus))
	require.NoError(t, ResultError("vkCreateRenderPass", unlistedStatus))
}

func TestVulkanSafeString(t *testing.T) {
	t.Parallel()

	require.Equal(t, "\x00", VulkanSafeString(""))
	require.Equal(t, "main\x00", VulkanSafeString("main"))
	require.Equal(t, "main\x00", VulkanSafeString("main\x00"))
}
