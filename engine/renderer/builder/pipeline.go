package builder

import (
	"slices"

	vk "github.com/goki/vulkan"
	"github.com/google/uuid"
	"github.com/spaghettifunk/vkbuild/engine/core"
)

// GraphicsPipelineConfig is a finalized graphics pipeline. It references
// the pipeline layout and render pass it was validated against. Accessors
// return copies.
type GraphicsPipelineConfig struct {
	id            uuid.UUID
	flags         vk.PipelineCreateFlags
	stages        []ShaderStageDescription
	vertexInput   VertexInputState
	inputAssembly InputAssemblyState
	rasterization RasterizationState
	multisample   MultisampleState
	depthStencil  DepthStencilState
	colorBlend    ColorBlendState
	dynamicStates []vk.DynamicState
	viewportCount uint32
	layout        *PipelineLayoutConfig
	renderPass    *RenderPassConfig
	subpass       uint32
}

func (c *GraphicsPipelineConfig) ID() uuid.UUID {
	return c.id
}

func (c *GraphicsPipelineConfig) Flags() vk.PipelineCreateFlags {
	return c.flags
}

func (c *GraphicsPipelineConfig) Stages() []ShaderStageDescription {
	out := make([]ShaderStageDescription, len(c.stages))
	for i, s := range c.stages {
		out[i] = s.clone()
	}
	return out
}

func (c *GraphicsPipelineConfig) VertexInput() VertexInputState {
	return c.vertexInput.clone()
}

func (c *GraphicsPipelineConfig) InputAssembly() InputAssemblyState {
	return c.inputAssembly
}

func (c *GraphicsPipelineConfig) Rasterization() RasterizationState {
	return c.rasterization
}

func (c *GraphicsPipelineConfig) Multisample() MultisampleState {
	return c.multisample
}

func (c *GraphicsPipelineConfig) DepthStencil() DepthStencilState {
	return c.depthStencil
}

func (c *GraphicsPipelineConfig) ColorBlend() ColorBlendState {
	return c.colorBlend.clone()
}

func (c *GraphicsPipelineConfig) DynamicStates() []vk.DynamicState {
	return slices.Clone(c.dynamicStates)
}

func (c *GraphicsPipelineConfig) ViewportCount() uint32 {
	return c.viewportCount
}

func (c *GraphicsPipelineConfig) Layout() *PipelineLayoutConfig {
	return c.layout
}

func (c *GraphicsPipelineConfig) RenderPass() *RenderPassConfig {
	return c.renderPass
}

func (c *GraphicsPipelineConfig) Subpass() uint32 {
	return c.subpass
}

// GraphicsPipelineBuilder stages shader stages, vertex input and the
// fixed-function states of one graphics pipeline.
type GraphicsPipelineBuilder struct {
	state            *state
	flags            vk.PipelineCreateFlags
	stages           []*ShaderStageBuilder
	bindings         *arena[*VertexBindingBuilder, VertexBindingDescription]
	vertexInput      []VertexBindingHandle
	inputAssembly    InputAssemblyState
	rasterization    RasterizationState
	multisample      MultisampleState
	depthStencil     DepthStencilState
	colorBlend       ColorBlendState
	blendAttachments []*ColorBlendAttachmentBuilder
	dynamicStates    []vk.DynamicState
	viewportCount    uint32
}

// NewGraphicsPipeline returns a builder with the engine defaults: triangle
// lists, filled back-face-culled polygons, one sample, and dynamic viewport
// and scissor.
func NewGraphicsPipeline() *GraphicsPipelineBuilder {
	s := newState()
	return &GraphicsPipelineBuilder{
		state:         s,
		bindings:      newArena[*VertexBindingBuilder, VertexBindingDescription](s.id, RefVertexBinding),
		inputAssembly: defaultInputAssembly(),
		rasterization: defaultRasterization(),
		multisample:   defaultMultisample(),
		depthStencil:  defaultDepthStencil(),
		dynamicStates: []vk.DynamicState{vk.DynamicStateViewport, vk.DynamicStateScissor},
		viewportCount: 1,
	}
}

func (b *GraphicsPipelineBuilder) ID() uuid.UUID {
	return b.state.id
}

func (b *GraphicsPipelineBuilder) Err() error {
	return b.state.err
}

func (b *GraphicsPipelineBuilder) Flags(flags vk.PipelineCreateFlags) *GraphicsPipelineBuilder {
	if b.state.open() {
		b.flags = flags
	}
	return b
}

// ShaderStage appends a new stage. Stages keep their call order.
func (b *GraphicsPipelineBuilder) ShaderStage() *ShaderStageBuilder {
	s := &ShaderStageBuilder{parent: b, desc: ShaderStageDescription{EntryPoint: defaultEntryPoint}}
	if b.state.open() {
		b.stages = append(b.stages, s)
	}
	return s
}

// VertexBinding starts the description of vertex buffer binding number
// binding. It only feeds the pipeline once its handle is passed to
// VertexInputState().Binding.
func (b *GraphicsPipelineBuilder) VertexBinding(binding uint32) *VertexBindingBuilder {
	v := &VertexBindingBuilder{
		parent: b,
		desc:   VertexBindingDescription{Binding: binding, InputRate: vk.VertexInputRateVertex},
	}
	if b.state.open() {
		v.handle = b.bindings.add(v)
	}
	return v
}

func (b *GraphicsPipelineBuilder) VertexInputState() *VertexInputStateBuilder {
	return &VertexInputStateBuilder{parent: b}
}

func (b *GraphicsPipelineBuilder) InputAssemblyState() *InputAssemblyStateBuilder {
	return &InputAssemblyStateBuilder{parent: b}
}

func (b *GraphicsPipelineBuilder) RasterizationState() *RasterizationStateBuilder {
	return &RasterizationStateBuilder{parent: b}
}

func (b *GraphicsPipelineBuilder) MultisampleState() *MultisampleStateBuilder {
	return &MultisampleStateBuilder{parent: b}
}

func (b *GraphicsPipelineBuilder) DepthStencilState() *DepthStencilStateBuilder {
	return &DepthStencilStateBuilder{parent: b}
}

func (b *GraphicsPipelineBuilder) ColorBlendState() *ColorBlendStateBuilder {
	return &ColorBlendStateBuilder{parent: b}
}

// DynamicStates replaces the set of states supplied at draw time.
func (b *GraphicsPipelineBuilder) DynamicStates(states ...vk.DynamicState) *GraphicsPipelineBuilder {
	if b.state.open() {
		b.dynamicStates = slices.Clone(states)
	}
	return b
}

// ViewportCount sets how many viewports and scissors the pipeline uses.
// Their rectangles are always dynamic.
func (b *GraphicsPipelineBuilder) ViewportCount(count uint32) *GraphicsPipelineBuilder {
	if b.state.open() {
		b.viewportCount = count
	}
	return b
}

// Config validates the pipeline against the given finalized layout, render
// pass and subpass index, and consumes the builder.
func (b *GraphicsPipelineBuilder) Config(layout *PipelineLayoutConfig, pass *RenderPassConfig, subpass uint32) (*GraphicsPipelineConfig, error) {
	if err := b.state.finalize(); err != nil {
		return nil, err
	}
	if layout == nil {
		return nil, incomplete(RefDescriptorSet, 0, "no pipeline layout")
	}
	if pass == nil {
		return nil, incomplete(RefSubpass, subpass, "no render pass")
	}
	target, ok := pass.Subpass(subpass)
	if !ok {
		return nil, unknownReference(RefSubpass, subpass)
	}
	if b.viewportCount == 0 {
		return nil, invalidValue(RefDynamicState, 0, "viewport count must be non-zero")
	}

	stages, err := b.describeStages()
	if err != nil {
		return nil, err
	}
	vertexInput, err := b.describeVertexInput()
	if err != nil {
		return nil, err
	}
	if !vertexInput.IsEmpty() && !slices.ContainsFunc(stages, func(s ShaderStageDescription) bool {
		return s.Stage == vk.ShaderStageVertexBit
	}) {
		return nil, incomplete(RefShaderStage, 0, "vertex input configured without a vertex stage")
	}

	seen := make(map[vk.DynamicState]struct{}, len(b.dynamicStates))
	for _, ds := range b.dynamicStates {
		if _, dup := seen[ds]; dup {
			return nil, duplicateIndex(RefDynamicState, uint32(ds))
		}
		seen[ds] = struct{}{}
	}

	colorBlend := b.colorBlend.clone()
	colorBlend.Attachments = make([]ColorBlendAttachmentState, 0, len(b.blendAttachments))
	for _, a := range b.blendAttachments {
		colorBlend.Attachments = append(colorBlend.Attachments, a.desc)
	}
	if len(colorBlend.Attachments) != len(target.Color) {
		return nil, countMismatch(RefColorBlendAttachment, subpass,
			"%d color blend attachments for %d color attachments of subpass %d",
			len(colorBlend.Attachments), len(target.Color), subpass)
	}

	cfg := &GraphicsPipelineConfig{
		id:            b.state.id,
		flags:         b.flags,
		stages:        stages,
		vertexInput:   vertexInput,
		inputAssembly: b.inputAssembly,
		rasterization: b.rasterization,
		multisample:   b.multisample,
		depthStencil:  b.depthStencil,
		colorBlend:    colorBlend,
		dynamicStates: slices.Clone(b.dynamicStates),
		viewportCount: b.viewportCount,
		layout:        layout,
		renderPass:    pass,
		subpass:       subpass,
	}
	core.LogDebug("graphics pipeline %s finalized: %d stages, %d vertex bindings, render pass %s subpass %d",
		cfg.id, len(cfg.stages), len(cfg.vertexInput.Bindings), pass.ID(), subpass)
	return cfg, nil
}

func (b *GraphicsPipelineBuilder) describeStages() ([]ShaderStageDescription, error) {
	if len(b.stages) == 0 {
		return nil, incomplete(RefShaderStage, 0, "no shader stages")
	}
	out := make([]ShaderStageDescription, 0, len(b.stages))
	kinds := make(map[vk.ShaderStageFlagBits]struct{}, len(b.stages))
	for i, s := range b.stages {
		desc, err := s.describe(uint32(i))
		if err != nil {
			return nil, err
		}
		if _, dup := kinds[desc.Stage]; dup {
			return nil, duplicateIndex(RefShaderStage, uint32(desc.Stage))
		}
		kinds[desc.Stage] = struct{}{}
		out = append(out, desc)
	}
	return out, nil
}

func (b *GraphicsPipelineBuilder) describeVertexInput() (VertexInputState, error) {
	var state VertexInputState
	seen := make(map[uint32]struct{}, len(b.vertexInput))
	// attribute locations are shared by all bindings of the vertex input
	locations := make(map[uint32]uint32)
	for _, h := range b.vertexInput {
		vb, err := b.bindings.resolve(h)
		if err != nil {
			return VertexInputState{}, err
		}
		desc, err := vb.describe(locations)
		if err != nil {
			return VertexInputState{}, err
		}
		if _, dup := seen[desc.Binding]; dup {
			return VertexInputState{}, duplicateIndex(RefVertexBinding, desc.Binding)
		}
		seen[desc.Binding] = struct{}{}
		state.Bindings = append(state.Bindings, desc)
	}
	return state, nil
}
