package loaders

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	vk "github.com/goki/vulkan"
	"github.com/pelletier/go-toml/v2"
	"github.com/spaghettifunk/vkbuild/engine/core"
	"github.com/spaghettifunk/vkbuild/engine/renderer/builder"
)

// External is the subpass name dependencies use for work outside the pass.
const External = "external"

type attachmentRefDoc struct {
	Attachment string `toml:"attachment"`
	Layout     string `toml:"layout"`
}

type attachmentDoc struct {
	Name           string `toml:"name"`
	Format         string `toml:"format"`
	Samples        uint32 `toml:"samples"`
	LoadOp         string `toml:"load_op"`
	StoreOp        string `toml:"store_op"`
	StencilLoadOp  string `toml:"stencil_load_op"`
	StencilStoreOp string `toml:"stencil_store_op"`
	InitialLayout  string `toml:"initial_layout"`
	FinalLayout    string `toml:"final_layout"`
}

type subpassDoc struct {
	Name         string             `toml:"name"`
	Input        []attachmentRefDoc `toml:"input"`
	Color        []attachmentRefDoc `toml:"color"`
	Resolve      []attachmentRefDoc `toml:"resolve"`
	DepthStencil *attachmentRefDoc  `toml:"depth_stencil"`
	Preserve     []string           `toml:"preserve"`
}

type dependencyDoc struct {
	Src       string   `toml:"src"`
	Dst       string   `toml:"dst"`
	SrcStage  []string `toml:"src_stage"`
	DstStage  []string `toml:"dst_stage"`
	SrcAccess []string `toml:"src_access"`
	DstAccess []string `toml:"dst_access"`
	ByRegion  bool     `toml:"by_region"`
}

type bindingDoc struct {
	Binding uint32   `toml:"binding"`
	Type    string   `toml:"type"`
	Count   uint32   `toml:"count"`
	Stages  []string `toml:"stages"`
}

type descriptorSetDoc struct {
	Name     string       `toml:"name"`
	Bindings []bindingDoc `toml:"bindings"`
}

type pushConstantDoc struct {
	Stages []string `toml:"stages"`
	Offset uint32   `toml:"offset"`
	Size   uint32   `toml:"size"`
}

type specializationDoc struct {
	ID    uint32 `toml:"id"`
	Value uint32 `toml:"value"`
}

type stageDoc struct {
	Kind           string              `toml:"kind"`
	Module         string              `toml:"module"`
	EntryPoint     string              `toml:"entry_point"`
	Specialization []specializationDoc `toml:"specialization"`
}

type attributeDoc struct {
	Location uint32 `toml:"location"`
	Offset   uint32 `toml:"offset"`
	Format   string `toml:"format"`
	// Count > 1 declares consecutive slots, as for matrix columns.
	Count uint32 `toml:"count"`
}

type vertexBindingDoc struct {
	Binding    uint32         `toml:"binding"`
	Stride     uint32         `toml:"stride"`
	InputRate  string         `toml:"input_rate"`
	Attributes []attributeDoc `toml:"attributes"`
}

type blendDoc struct {
	// Mode is "opaque" (no blending) or "alpha".
	Mode string `toml:"mode"`
}

type pipelineDoc struct {
	Name           string             `toml:"name"`
	Subpass        string             `toml:"subpass"`
	Stages         []stageDoc         `toml:"stages"`
	VertexBindings []vertexBindingDoc `toml:"vertex_bindings"`
	Topology       string             `toml:"topology"`
	PolygonMode    string             `toml:"polygon_mode"`
	CullMode       string             `toml:"cull_mode"`
	FrontFace      string             `toml:"front_face"`
	LineWidth      float32            `toml:"line_width"`
	Samples        uint32             `toml:"samples"`
	DepthTest      string             `toml:"depth_test"`
	DepthWrite     bool               `toml:"depth_write"`
	Blend          []blendDoc         `toml:"blend"`
	DynamicStates  []string           `toml:"dynamic_states"`
	ViewportCount  uint32             `toml:"viewport_count"`
}

type pipelineFileDoc struct {
	Name           string             `toml:"name"`
	Attachments    []attachmentDoc    `toml:"attachments"`
	Subpasses      []subpassDoc       `toml:"subpasses"`
	Dependencies   []dependencyDoc    `toml:"dependencies"`
	DescriptorSets []descriptorSetDoc `toml:"descriptor_sets"`
	PushConstants  []pushConstantDoc  `toml:"push_constants"`
	Pipelines      []pipelineDoc      `toml:"pipelines"`
}

/**
 * @brief Everything one description file produces. The render pass and the
 * pipeline layout are shared by all pipelines of the file.
 */
type PipelineSet struct {
	Name       string
	Path       string
	RenderPass *builder.RenderPassConfig
	/** @brief Descriptor set layouts in set-number order. */
	SetLayouts []*builder.DescriptorSetLayoutConfig
	Layout     *builder.PipelineLayoutConfig
	Pipelines  map[string]*builder.GraphicsPipelineConfig
	/** @brief Subpass index by name. */
	Subpasses map[string]uint32
}

type PipelineLoader struct{}

func (pl *PipelineLoader) Load(path string) (*PipelineSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	set, err := pl.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	set.Path = path
	return set, nil
}

// Parse decodes a description and runs it through the builders. The first
// validation error is returned, wrapped with the name of the entity that
// caused it.
func (pl *PipelineLoader) Parse(data []byte) (*PipelineSet, error) {
	var doc pipelineFileDoc
	dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) && len(strict.Errors) > 0 {
			row, col := strict.Errors[0].Position()
			return nil, fmt.Errorf("unknown field %q at %d:%d", strings.Join(strict.Errors[0].Key(), "."), row, col)
		}
		return nil, err
	}
	if doc.Name == "" {
		return nil, errors.New("description has no name")
	}

	set := &PipelineSet{
		Name:      doc.Name,
		Pipelines: make(map[string]*builder.GraphicsPipelineConfig, len(doc.Pipelines)),
		Subpasses: make(map[string]uint32, len(doc.Subpasses)),
	}

	var err error
	if set.RenderPass, err = buildRenderPass(&doc, set.Subpasses); err != nil {
		return nil, fmt.Errorf("render pass: %w", err)
	}
	if set.SetLayouts, set.Layout, err = buildLayout(&doc); err != nil {
		return nil, err
	}
	for _, p := range doc.Pipelines {
		if _, dup := set.Pipelines[p.Name]; dup || p.Name == "" {
			return nil, fmt.Errorf("pipeline %q: name is empty or used twice", p.Name)
		}
		cfg, err := buildPipeline(&p, set)
		if err != nil {
			return nil, fmt.Errorf("pipeline %q: %w", p.Name, err)
		}
		set.Pipelines[p.Name] = cfg
	}

	core.LogDebug("parsed pipeline set %s: %d pipelines", set.Name, len(set.Pipelines))
	return set, nil
}

func buildRenderPass(doc *pipelineFileDoc, subpassIndex map[string]uint32) (*builder.RenderPassConfig, error) {
	rp := builder.NewRenderPass()

	attachments := make(map[string]builder.AttachmentHandle, len(doc.Attachments))
	for _, a := range doc.Attachments {
		if _, dup := attachments[a.Name]; dup || a.Name == "" {
			return nil, fmt.Errorf("attachment %q: name is empty or used twice", a.Name)
		}
		ab := rp.Attachment()
		if err := configureAttachment(ab, &a); err != nil {
			return nil, fmt.Errorf("attachment %q: %w", a.Name, err)
		}
		attachments[a.Name] = ab.Handle()
	}

	resolve := func(refs []attachmentRefDoc, add func(builder.AttachmentHandle, vk.ImageLayout) *builder.SubpassBuilder) error {
		for _, r := range refs {
			h, ok := attachments[r.Attachment]
			if !ok {
				return fmt.Errorf("%w: attachment %q", builder.ErrUnknownReference, r.Attachment)
			}
			layout, err := lookup(imageLayouts, "image layout", r.Layout, vk.ImageLayoutUndefined)
			if err != nil {
				return err
			}
			add(h, layout)
		}
		return nil
	}

	subpasses := make(map[string]builder.SubpassHandle, len(doc.Subpasses))
	for i, s := range doc.Subpasses {
		if _, dup := subpasses[s.Name]; dup || s.Name == "" || s.Name == External {
			return nil, fmt.Errorf("subpass %q: name is empty, reserved or used twice", s.Name)
		}
		sb := rp.Subpass()
		subpasses[s.Name] = sb.Handle()
		subpassIndex[s.Name] = uint32(i)

		if err := resolve(s.Input, sb.Input); err != nil {
			return nil, fmt.Errorf("subpass %q: %w", s.Name, err)
		}
		if err := resolve(s.Color, sb.Color); err != nil {
			return nil, fmt.Errorf("subpass %q: %w", s.Name, err)
		}
		if err := resolve(s.Resolve, sb.Resolve); err != nil {
			return nil, fmt.Errorf("subpass %q: %w", s.Name, err)
		}
		if s.DepthStencil != nil {
			if err := resolve([]attachmentRefDoc{*s.DepthStencil}, sb.DepthStencil); err != nil {
				return nil, fmt.Errorf("subpass %q: %w", s.Name, err)
			}
		}
		for _, name := range s.Preserve {
			h, ok := attachments[name]
			if !ok {
				return nil, fmt.Errorf("subpass %q: %w: attachment %q", s.Name, builder.ErrUnknownReference, name)
			}
			sb.Preserve(h)
		}
	}

	for i, d := range doc.Dependencies {
		if err := configureDependency(rp.Dependency(), &d, subpasses); err != nil {
			return nil, fmt.Errorf("dependency %d: %w", i, err)
		}
	}
	return rp.Config()
}

func configureAttachment(ab *builder.AttachmentBuilder, a *attachmentDoc) error {
	format, err := lookup(formats, "format", a.Format, vk.FormatUndefined)
	if err != nil {
		return err
	}
	if format == vk.FormatUndefined {
		return fmt.Errorf("%w: no format", builder.ErrIncomplete)
	}
	samples, err := sampleCount(a.Samples)
	if err != nil {
		return err
	}
	loadOp, err := lookup(loadOps, "load op", a.LoadOp, vk.AttachmentLoadOpDontCare)
	if err != nil {
		return err
	}
	storeOp, err := lookup(storeOps, "store op", a.StoreOp, vk.AttachmentStoreOpDontCare)
	if err != nil {
		return err
	}
	stencilLoadOp, err := lookup(loadOps, "load op", a.StencilLoadOp, vk.AttachmentLoadOpDontCare)
	if err != nil {
		return err
	}
	stencilStoreOp, err := lookup(storeOps, "store op", a.StencilStoreOp, vk.AttachmentStoreOpDontCare)
	if err != nil {
		return err
	}
	initial, err := lookup(imageLayouts, "image layout", a.InitialLayout, vk.ImageLayoutUndefined)
	if err != nil {
		return err
	}
	final, err := lookup(imageLayouts, "image layout", a.FinalLayout, vk.ImageLayoutUndefined)
	if err != nil {
		return err
	}

	ab.Format(format).
		Samples(samples).
		LoadOp(loadOp).
		StoreOp(storeOp).
		StencilLoadOp(stencilLoadOp).
		StencilStoreOp(stencilStoreOp).
		InitialLayout(initial).
		FinalLayout(final)
	return nil
}

func configureDependency(db *builder.DependencyBuilder, d *dependencyDoc, subpasses map[string]builder.SubpassHandle) error {
	switch h, ok := subpasses[d.Src]; {
	case d.Src == External:
		db.SrcExternal()
	case ok:
		db.Src(h)
	default:
		return fmt.Errorf("%w: subpass %q", builder.ErrUnknownReference, d.Src)
	}
	switch h, ok := subpasses[d.Dst]; {
	case d.Dst == External:
		db.DstExternal()
	case ok:
		db.Dst(h)
	default:
		return fmt.Errorf("%w: subpass %q", builder.ErrUnknownReference, d.Dst)
	}

	srcStage, err := mask(pipelineStages, "pipeline stage", d.SrcStage)
	if err != nil {
		return err
	}
	dstStage, err := mask(pipelineStages, "pipeline stage", d.DstStage)
	if err != nil {
		return err
	}
	srcAccess, err := mask(accessMasks, "access", d.SrcAccess)
	if err != nil {
		return err
	}
	dstAccess, err := mask(accessMasks, "access", d.DstAccess)
	if err != nil {
		return err
	}
	db.SrcStageMask(srcStage).
		DstStageMask(dstStage).
		SrcAccessMask(srcAccess).
		DstAccessMask(dstAccess)
	if d.ByRegion {
		db.Flags(vk.DependencyFlags(vk.DependencyByRegionBit))
	}
	return nil
}

func buildLayout(doc *pipelineFileDoc) ([]*builder.DescriptorSetLayoutConfig, *builder.PipelineLayoutConfig, error) {
	layout := builder.NewPipelineLayout()
	setLayouts := make([]*builder.DescriptorSetLayoutConfig, 0, len(doc.DescriptorSets))

	for i, s := range doc.DescriptorSets {
		ds := builder.NewDescriptorSet()
		for _, b := range s.Bindings {
			kind, err := lookup(descriptorTypes, "descriptor type", b.Type, vk.DescriptorTypeUniformBuffer)
			if err != nil {
				return nil, nil, fmt.Errorf("descriptor set %d %q: %w", i, s.Name, err)
			}
			stages, err := mask(shaderStages, "shader stage", b.Stages)
			if err != nil {
				return nil, nil, fmt.Errorf("descriptor set %d %q: %w", i, s.Name, err)
			}
			count := b.Count
			if count == 0 {
				count = 1
			}
			ds.Binding(b.Binding, kind, count, stages)
		}
		cfg, err := ds.Config()
		if err != nil {
			return nil, nil, fmt.Errorf("descriptor set %d %q: %w", i, s.Name, err)
		}
		setLayouts = append(setLayouts, cfg)
		layout.SetLayout(cfg)
	}

	for i, pc := range doc.PushConstants {
		stages, err := mask(shaderStages, "shader stage", pc.Stages)
		if err != nil {
			return nil, nil, fmt.Errorf("push constant range %d: %w", i, err)
		}
		layout.PushConstantRange(stages, pc.Offset, pc.Size)
	}

	cfg, err := layout.Config()
	if err != nil {
		return nil, nil, fmt.Errorf("pipeline layout: %w", err)
	}
	return setLayouts, cfg, nil
}

func buildPipeline(p *pipelineDoc, set *PipelineSet) (*builder.GraphicsPipelineConfig, error) {
	gp := builder.NewGraphicsPipeline()

	for _, s := range p.Stages {
		if err := configureStage(gp.ShaderStage(), &s); err != nil {
			return nil, err
		}
	}

	input := gp.VertexInputState()
	for _, vb := range p.VertexBindings {
		rate, err := lookup(inputRates, "input rate", vb.InputRate, vk.VertexInputRateVertex)
		if err != nil {
			return nil, err
		}
		b := gp.VertexBinding(vb.Binding).Stride(vb.Stride).InputRate(rate)
		for _, a := range vb.Attributes {
			format, err := lookup(formats, "format", a.Format, vk.FormatUndefined)
			if err != nil {
				return nil, err
			}
			if format == vk.FormatUndefined {
				return nil, fmt.Errorf("%w: attribute location %d has no format", builder.ErrIncomplete, a.Location)
			}
			if a.Count > 1 {
				b.Attributes(a.Location, a.Offset, a.Count, format)
			} else {
				b.Attribute(a.Location, a.Offset, format)
			}
		}
		input.Binding(b.Handle())
	}

	topology, err := lookup(topologies, "topology", p.Topology, vk.PrimitiveTopologyTriangleList)
	if err != nil {
		return nil, err
	}
	gp.InputAssemblyState().Topology(topology)

	polygonMode, err := lookup(polygonModes, "polygon mode", p.PolygonMode, vk.PolygonModeFill)
	if err != nil {
		return nil, err
	}
	cullMode, err := lookup(cullModes, "cull mode", p.CullMode, vk.CullModeFlags(vk.CullModeBackBit))
	if err != nil {
		return nil, err
	}
	frontFace, err := lookup(frontFaces, "front face", p.FrontFace, vk.FrontFaceCounterClockwise)
	if err != nil {
		return nil, err
	}
	raster := gp.RasterizationState().PolygonMode(polygonMode).CullMode(cullMode).FrontFace(frontFace)
	if p.LineWidth != 0 {
		raster.LineWidth(p.LineWidth)
	}

	samples, err := sampleCount(p.Samples)
	if err != nil {
		return nil, err
	}
	gp.MultisampleState().Samples(samples)

	if p.DepthTest != "" {
		op, err := lookup(compareOps, "compare op", p.DepthTest, vk.CompareOpLess)
		if err != nil {
			return nil, err
		}
		gp.DepthStencilState().DepthTest(op)
	}
	gp.DepthStencilState().DepthWrite(p.DepthWrite)

	blend := gp.ColorBlendState()
	for _, bd := range p.Blend {
		switch bd.Mode {
		case "", "opaque":
			blend.Attachment()
		case "alpha":
			blend.Attachment().AlphaBlending()
		default:
			return nil, fmt.Errorf("%w: blend mode %q", ErrUnknownName, bd.Mode)
		}
	}

	if p.DynamicStates != nil {
		states := make([]vk.DynamicState, 0, len(p.DynamicStates))
		for _, name := range p.DynamicStates {
			ds, err := lookup(dynamicStates, "dynamic state", name, vk.DynamicStateViewport)
			if err != nil {
				return nil, err
			}
			states = append(states, ds)
		}
		gp.DynamicStates(states...)
	}
	if p.ViewportCount != 0 {
		gp.ViewportCount(p.ViewportCount)
	}

	subpass, ok := set.Subpasses[p.Subpass]
	if !ok {
		return nil, fmt.Errorf("%w: subpass %q", builder.ErrUnknownReference, p.Subpass)
	}
	return gp.Config(set.Layout, set.RenderPass, subpass)
}

func configureStage(sb *builder.ShaderStageBuilder, s *stageDoc) error {
	switch s.Kind {
	case "vertex":
		sb.Vertex()
	case "fragment":
		sb.Fragment()
	case "geometry":
		sb.Geometry()
	case "tessellation_control":
		sb.TessellationControl()
	case "tessellation_evaluation":
		sb.TessellationEvaluation()
	default:
		return fmt.Errorf("%w: shader stage %q", ErrUnknownName, s.Kind)
	}
	sb.Module(builder.ShaderModuleRef{Name: s.Module})
	if s.EntryPoint != "" {
		sb.EntryPoint(s.EntryPoint)
	}
	for _, sp := range s.Specialization {
		sb.Specialize(sp.ID, sp.Value)
	}
	return nil
}

func sampleCount(n uint32) (vk.SampleCountFlagBits, error) {
	if n == 0 {
		return vk.SampleCount1Bit, nil
	}
	s, ok := sampleCounts[n]
	if !ok {
		return 0, fmt.Errorf("%w: sample count %d", ErrUnknownName, n)
	}
	return s, nil
}
