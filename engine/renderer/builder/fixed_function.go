package builder

import (
	"slices"

	vk "github.com/goki/vulkan"
)

/**
 * @brief Primitive assembly configuration.
 */
type InputAssemblyState struct {
	Topology         vk.PrimitiveTopology
	PrimitiveRestart bool
}

/**
 * @brief Rasterizer configuration.
 */
type RasterizationState struct {
	PolygonMode       vk.PolygonMode
	CullMode          vk.CullModeFlags
	FrontFace         vk.FrontFace
	LineWidth         float32
	DepthClamp        bool
	RasterizerDiscard bool
	DepthBias         bool
	DepthBiasConstant float32
	DepthBiasClamp    float32
	DepthBiasSlope    float32
}

/**
 * @brief Multisampling configuration.
 */
type MultisampleState struct {
	Samples          vk.SampleCountFlagBits
	SampleShading    bool
	MinSampleShading float32
	AlphaToCoverage  bool
	AlphaToOne       bool
}

/**
 * @brief Stencil operations for one face.
 */
type StencilOpState struct {
	FailOp      vk.StencilOp
	PassOp      vk.StencilOp
	DepthFailOp vk.StencilOp
	CompareOp   vk.CompareOp
	CompareMask uint32
	WriteMask   uint32
	Reference   uint32
}

/**
 * @brief Depth and stencil testing configuration.
 */
type DepthStencilState struct {
	DepthTest       bool
	DepthWrite      bool
	CompareOp       vk.CompareOp
	DepthBoundsTest bool
	MinDepthBounds  float32
	MaxDepthBounds  float32
	StencilTest     bool
	Front           StencilOpState
	Back            StencilOpState
}

/**
 * @brief Blending for one color attachment of the target subpass.
 */
type ColorBlendAttachmentState struct {
	BlendEnable    bool
	SrcColorFactor vk.BlendFactor
	DstColorFactor vk.BlendFactor
	ColorOp        vk.BlendOp
	SrcAlphaFactor vk.BlendFactor
	DstAlphaFactor vk.BlendFactor
	AlphaOp        vk.BlendOp
	WriteMask      vk.ColorComponentFlags
}

/**
 * @brief Color blending configuration. Attachments line up one-to-one with
 * the color references of the target subpass.
 */
type ColorBlendState struct {
	LogicOpEnable bool
	LogicOp       vk.LogicOp
	Constants     [4]float32
	Attachments   []ColorBlendAttachmentState
}

func (s ColorBlendState) clone() ColorBlendState {
	out := s
	out.Attachments = slices.Clone(s.Attachments)
	return out
}

// ColorWriteAll enables writes to every color component.
const ColorWriteAll = vk.ColorComponentFlags(vk.ColorComponentRBit) | vk.ColorComponentFlags(vk.ColorComponentGBit) |
	vk.ColorComponentFlags(vk.ColorComponentBBit) | vk.ColorComponentFlags(vk.ColorComponentABit)

func defaultInputAssembly() InputAssemblyState {
	return InputAssemblyState{Topology: vk.PrimitiveTopologyTriangleList}
}

func defaultRasterization() RasterizationState {
	return RasterizationState{
		PolygonMode: vk.PolygonModeFill,
		CullMode:    vk.CullModeFlags(vk.CullModeBackBit),
		FrontFace:   vk.FrontFaceCounterClockwise,
		LineWidth:   1.0,
	}
}

func defaultMultisample() MultisampleState {
	return MultisampleState{Samples: vk.SampleCount1Bit, MinSampleShading: 1.0}
}

func defaultDepthStencil() DepthStencilState {
	return DepthStencilState{CompareOp: vk.CompareOpLess, MaxDepthBounds: 1.0}
}

func defaultColorBlendAttachment() ColorBlendAttachmentState {
	return ColorBlendAttachmentState{
		SrcColorFactor: vk.BlendFactorOne,
		DstColorFactor: vk.BlendFactorZero,
		ColorOp:        vk.BlendOpAdd,
		SrcAlphaFactor: vk.BlendFactorOne,
		DstAlphaFactor: vk.BlendFactorZero,
		AlphaOp:        vk.BlendOpAdd,
		WriteMask:      ColorWriteAll,
	}
}

type InputAssemblyStateBuilder struct {
	parent *GraphicsPipelineBuilder
}

func (b *InputAssemblyStateBuilder) Topology(topology vk.PrimitiveTopology) *InputAssemblyStateBuilder {
	if b.parent.state.open() {
		b.parent.inputAssembly.Topology = topology
	}
	return b
}

func (b *InputAssemblyStateBuilder) PrimitiveRestart(enable bool) *InputAssemblyStateBuilder {
	if b.parent.state.open() {
		b.parent.inputAssembly.PrimitiveRestart = enable
	}
	return b
}

type RasterizationStateBuilder struct {
	parent *GraphicsPipelineBuilder
}

func (b *RasterizationStateBuilder) PolygonMode(mode vk.PolygonMode) *RasterizationStateBuilder {
	if b.parent.state.open() {
		b.parent.rasterization.PolygonMode = mode
	}
	return b
}

func (b *RasterizationStateBuilder) CullMode(mode vk.CullModeFlags) *RasterizationStateBuilder {
	if b.parent.state.open() {
		b.parent.rasterization.CullMode = mode
	}
	return b
}

func (b *RasterizationStateBuilder) FrontFace(face vk.FrontFace) *RasterizationStateBuilder {
	if b.parent.state.open() {
		b.parent.rasterization.FrontFace = face
	}
	return b
}

func (b *RasterizationStateBuilder) LineWidth(width float32) *RasterizationStateBuilder {
	if b.parent.state.open() {
		b.parent.rasterization.LineWidth = width
	}
	return b
}

func (b *RasterizationStateBuilder) DepthClamp(enable bool) *RasterizationStateBuilder {
	if b.parent.state.open() {
		b.parent.rasterization.DepthClamp = enable
	}
	return b
}

func (b *RasterizationStateBuilder) RasterizerDiscard(enable bool) *RasterizationStateBuilder {
	if b.parent.state.open() {
		b.parent.rasterization.RasterizerDiscard = enable
	}
	return b
}

// DepthBias enables depth bias with the given factors.
func (b *RasterizationStateBuilder) DepthBias(constant, clamp, slope float32) *RasterizationStateBuilder {
	if b.parent.state.open() {
		r := &b.parent.rasterization
		r.DepthBias = true
		r.DepthBiasConstant = constant
		r.DepthBiasClamp = clamp
		r.DepthBiasSlope = slope
	}
	return b
}

type MultisampleStateBuilder struct {
	parent *GraphicsPipelineBuilder
}

func (b *MultisampleStateBuilder) Samples(samples vk.SampleCountFlagBits) *MultisampleStateBuilder {
	if b.parent.state.open() {
		b.parent.multisample.Samples = samples
	}
	return b
}

func (b *MultisampleStateBuilder) SampleShading(minFraction float32) *MultisampleStateBuilder {
	if b.parent.state.open() {
		b.parent.multisample.SampleShading = true
		b.parent.multisample.MinSampleShading = minFraction
	}
	return b
}

func (b *MultisampleStateBuilder) AlphaToCoverage(enable bool) *MultisampleStateBuilder {
	if b.parent.state.open() {
		b.parent.multisample.AlphaToCoverage = enable
	}
	return b
}

func (b *MultisampleStateBuilder) AlphaToOne(enable bool) *MultisampleStateBuilder {
	if b.parent.state.open() {
		b.parent.multisample.AlphaToOne = enable
	}
	return b
}

type DepthStencilStateBuilder struct {
	parent *GraphicsPipelineBuilder
}

// DepthTest enables depth testing with the given comparison.
func (b *DepthStencilStateBuilder) DepthTest(op vk.CompareOp) *DepthStencilStateBuilder {
	if b.parent.state.open() {
		b.parent.depthStencil.DepthTest = true
		b.parent.depthStencil.CompareOp = op
	}
	return b
}

func (b *DepthStencilStateBuilder) DepthWrite(enable bool) *DepthStencilStateBuilder {
	if b.parent.state.open() {
		b.parent.depthStencil.DepthWrite = enable
	}
	return b
}

func (b *DepthStencilStateBuilder) DepthBounds(minDepth, maxDepth float32) *DepthStencilStateBuilder {
	if b.parent.state.open() {
		d := &b.parent.depthStencil
		d.DepthBoundsTest = true
		d.MinDepthBounds = minDepth
		d.MaxDepthBounds = maxDepth
	}
	return b
}

// Stencil enables stencil testing with per-face operations.
func (b *DepthStencilStateBuilder) Stencil(front, back StencilOpState) *DepthStencilStateBuilder {
	if b.parent.state.open() {
		d := &b.parent.depthStencil
		d.StencilTest = true
		d.Front = front
		d.Back = back
	}
	return b
}

type ColorBlendStateBuilder struct {
	parent *GraphicsPipelineBuilder
}

func (b *ColorBlendStateBuilder) LogicOp(op vk.LogicOp) *ColorBlendStateBuilder {
	if b.parent.state.open() {
		b.parent.colorBlend.LogicOpEnable = true
		b.parent.colorBlend.LogicOp = op
	}
	return b
}

func (b *ColorBlendStateBuilder) Constants(r, g, bl, a float32) *ColorBlendStateBuilder {
	if b.parent.state.open() {
		b.parent.colorBlend.Constants = [4]float32{r, g, bl, a}
	}
	return b
}

// Attachment appends the blend state for the next color attachment of the
// target subpass. Defaults: blending off, all components written.
func (b *ColorBlendStateBuilder) Attachment() *ColorBlendAttachmentBuilder {
	a := &ColorBlendAttachmentBuilder{parent: b.parent, desc: defaultColorBlendAttachment()}
	if b.parent.state.open() {
		b.parent.blendAttachments = append(b.parent.blendAttachments, a)
	}
	return a
}

type ColorBlendAttachmentBuilder struct {
	parent *GraphicsPipelineBuilder
	desc   ColorBlendAttachmentState
}

// Blend enables blending with the given factors and operations.
func (a *ColorBlendAttachmentBuilder) Blend(srcColor, dstColor vk.BlendFactor, colorOp vk.BlendOp, srcAlpha, dstAlpha vk.BlendFactor, alphaOp vk.BlendOp) *ColorBlendAttachmentBuilder {
	if a.parent.state.open() {
		a.desc.BlendEnable = true
		a.desc.SrcColorFactor = srcColor
		a.desc.DstColorFactor = dstColor
		a.desc.ColorOp = colorOp
		a.desc.SrcAlphaFactor = srcAlpha
		a.desc.DstAlphaFactor = dstAlpha
		a.desc.AlphaOp = alphaOp
	}
	return a
}

// AlphaBlending is classic source-over blending.
func (a *ColorBlendAttachmentBuilder) AlphaBlending() *ColorBlendAttachmentBuilder {
	return a.Blend(
		vk.BlendFactorSrcAlpha, vk.BlendFactorOneMinusSrcAlpha, vk.BlendOpAdd,
		vk.BlendFactorSrcAlpha, vk.BlendFactorOneMinusSrcAlpha, vk.BlendOpAdd,
	)
}

func (a *ColorBlendAttachmentBuilder) WriteMask(mask vk.ColorComponentFlags) *ColorBlendAttachmentBuilder {
	if a.parent.state.open() {
		a.desc.WriteMask = mask
	}
	return a
}
