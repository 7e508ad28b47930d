package builder

import (
	"slices"

	vk "github.com/goki/vulkan"
	"github.com/google/uuid"
	"github.com/spaghettifunk/vkbuild/engine/core"
)

// SubpassExternal is the subpass index used by dependencies that synchronize
// with work outside the render pass.
const SubpassExternal = ^uint32(0)

/**
 * @brief One render target or depth/stencil slot of a render pass.
 */
type AttachmentDescription struct {
	/** @brief Slot of the attachment in the render pass, in registration order. */
	Index          uint32
	Flags          vk.AttachmentDescriptionFlags
	Format         vk.Format
	Samples        vk.SampleCountFlagBits
	LoadOp         vk.AttachmentLoadOp
	StoreOp        vk.AttachmentStoreOp
	StencilLoadOp  vk.AttachmentLoadOp
	StencilStoreOp vk.AttachmentStoreOp
	/** @brief Layout the image is expected in when the render pass begins. */
	InitialLayout vk.ImageLayout
	/** @brief Layout the image is transitioned to when the render pass ends. */
	FinalLayout vk.ImageLayout
}

/**
 * @brief A use of an attachment by a subpass.
 */
type AttachmentReference struct {
	/** @brief Index into the render pass attachment list. */
	Attachment uint32
	/** @brief Layout of the attachment during the subpass. */
	Layout vk.ImageLayout
}

/**
 * @brief One rendering step of a render pass. Reference order is
 * significant: the n-th color reference is fragment output location n.
 */
type SubpassDescription struct {
	Index        uint32
	Flags        vk.SubpassDescriptionFlags
	Input        []AttachmentReference
	Color        []AttachmentReference
	Resolve      []AttachmentReference
	DepthStencil *AttachmentReference
	Preserve     []uint32
}

func (s SubpassDescription) clone() SubpassDescription {
	out := s
	out.Input = slices.Clone(s.Input)
	out.Color = slices.Clone(s.Color)
	out.Resolve = slices.Clone(s.Resolve)
	out.Preserve = slices.Clone(s.Preserve)
	if s.DepthStencil != nil {
		ds := *s.DepthStencil
		out.DepthStencil = &ds
	}
	return out
}

/**
 * @brief Ordering constraint between two subpasses, or between a subpass
 * and work outside the render pass (SubpassExternal).
 */
type SubpassDependency struct {
	SrcSubpass    uint32
	DstSubpass    uint32
	SrcStageMask  vk.PipelineStageFlags
	DstStageMask  vk.PipelineStageFlags
	SrcAccessMask vk.AccessFlags
	DstAccessMask vk.AccessFlags
	Flags         vk.DependencyFlags
}

// RenderPassConfig is a finalized render pass. It is immutable: every
// accessor returns a copy, so a config can be shared freely.
type RenderPassConfig struct {
	id           uuid.UUID
	attachments  []AttachmentDescription
	subpasses    []SubpassDescription
	dependencies []SubpassDependency
}

// ID is the identity of the builder the config was produced by.
func (c *RenderPassConfig) ID() uuid.UUID {
	return c.id
}

func (c *RenderPassConfig) AttachmentCount() int {
	return len(c.attachments)
}

func (c *RenderPassConfig) SubpassCount() int {
	return len(c.subpasses)
}

func (c *RenderPassConfig) Attachments() []AttachmentDescription {
	return slices.Clone(c.attachments)
}

func (c *RenderPassConfig) Subpasses() []SubpassDescription {
	out := make([]SubpassDescription, len(c.subpasses))
	for i, s := range c.subpasses {
		out[i] = s.clone()
	}
	return out
}

// Subpass returns the subpass at index, if there is one.
func (c *RenderPassConfig) Subpass(index uint32) (SubpassDescription, bool) {
	if int(index) >= len(c.subpasses) {
		return SubpassDescription{}, false
	}
	return c.subpasses[index].clone(), true
}

func (c *RenderPassConfig) Dependencies() []SubpassDependency {
	return slices.Clone(c.dependencies)
}

// RenderPassBuilder stages attachments, subpasses and dependencies. It is
// meant to be driven by a single goroutine and consumed by Config.
type RenderPassBuilder struct {
	state        *state
	attachments  *arena[*AttachmentBuilder, AttachmentDescription]
	subpasses    *arena[*SubpassBuilder, SubpassDescription]
	dependencies []*DependencyBuilder
}

func NewRenderPass() *RenderPassBuilder {
	s := newState()
	return &RenderPassBuilder{
		state:       s,
		attachments: newArena[*AttachmentBuilder, AttachmentDescription](s.id, RefAttachment),
		subpasses:   newArena[*SubpassBuilder, SubpassDescription](s.id, RefSubpass),
	}
}

func (b *RenderPassBuilder) ID() uuid.UUID {
	return b.state.id
}

// Err returns the first error recorded by a chained call on this builder or
// any of its sub-builders.
func (b *RenderPassBuilder) Err() error {
	return b.state.err
}

// Attachment starts a new attachment. It joins the render pass the first
// time its Handle is taken, so it can be configured before it is used.
func (b *RenderPassBuilder) Attachment() *AttachmentBuilder {
	b.state.open()
	return &AttachmentBuilder{
		parent: b,
		desc: AttachmentDescription{
			Samples:        vk.SampleCount1Bit,
			LoadOp:         vk.AttachmentLoadOpDontCare,
			StoreOp:        vk.AttachmentStoreOpDontCare,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    vk.ImageLayoutUndefined,
		},
	}
}

// Subpass registers a new subpass. Subpasses are numbered in call order.
func (b *RenderPassBuilder) Subpass() *SubpassBuilder {
	sp := &SubpassBuilder{parent: b}
	if b.state.open() {
		sp.handle = b.subpasses.add(sp)
	}
	return sp
}

// Dependency registers a new subpass dependency.
func (b *RenderPassBuilder) Dependency() *DependencyBuilder {
	d := &DependencyBuilder{parent: b}
	if b.state.open() {
		b.dependencies = append(b.dependencies, d)
	}
	return d
}

// Config validates every reference and consumes the builder.
func (b *RenderPassBuilder) Config() (*RenderPassConfig, error) {
	if err := b.state.finalize(); err != nil {
		return nil, err
	}
	if b.subpasses.len() == 0 {
		return nil, incomplete(RefSubpass, 0, "render pass has no subpasses")
	}

	cfg := &RenderPassConfig{
		id:           b.state.id,
		attachments:  make([]AttachmentDescription, 0, b.attachments.len()),
		subpasses:    make([]SubpassDescription, 0, b.subpasses.len()),
		dependencies: make([]SubpassDependency, 0, len(b.dependencies)),
	}
	for i, a := range b.attachments.entries {
		desc := a.desc
		desc.Index = uint32(i)
		cfg.attachments = append(cfg.attachments, desc)
	}
	for i, sp := range b.subpasses.entries {
		desc, err := sp.describe(uint32(i))
		if err != nil {
			return nil, err
		}
		cfg.subpasses = append(cfg.subpasses, desc)
	}
	for i, d := range b.dependencies {
		dep, err := d.describe(uint32(i))
		if err != nil {
			return nil, err
		}
		cfg.dependencies = append(cfg.dependencies, dep)
	}

	core.LogDebug("render pass %s finalized: %d attachments, %d subpasses, %d dependencies",
		cfg.id, len(cfg.attachments), len(cfg.subpasses), len(cfg.dependencies))
	return cfg, nil
}

// AttachmentBuilder accumulates one attachment description. All setters are
// optional; defaults are one sample, don't-care ops and undefined layouts.
type AttachmentBuilder struct {
	parent     *RenderPassBuilder
	desc       AttachmentDescription
	handle     AttachmentHandle
	registered bool
}

func (a *AttachmentBuilder) set(fn func(d *AttachmentDescription)) *AttachmentBuilder {
	if a.parent.state.open() {
		fn(&a.desc)
	}
	return a
}

func (a *AttachmentBuilder) Flags(flags vk.AttachmentDescriptionFlags) *AttachmentBuilder {
	return a.set(func(d *AttachmentDescription) { d.Flags = flags })
}

func (a *AttachmentBuilder) Format(format vk.Format) *AttachmentBuilder {
	return a.set(func(d *AttachmentDescription) { d.Format = format })
}

func (a *AttachmentBuilder) Samples(samples vk.SampleCountFlagBits) *AttachmentBuilder {
	return a.set(func(d *AttachmentDescription) { d.Samples = samples })
}

func (a *AttachmentBuilder) LoadOp(op vk.AttachmentLoadOp) *AttachmentBuilder {
	return a.set(func(d *AttachmentDescription) { d.LoadOp = op })
}

func (a *AttachmentBuilder) StoreOp(op vk.AttachmentStoreOp) *AttachmentBuilder {
	return a.set(func(d *AttachmentDescription) { d.StoreOp = op })
}

func (a *AttachmentBuilder) StencilLoadOp(op vk.AttachmentLoadOp) *AttachmentBuilder {
	return a.set(func(d *AttachmentDescription) { d.StencilLoadOp = op })
}

func (a *AttachmentBuilder) StencilStoreOp(op vk.AttachmentStoreOp) *AttachmentBuilder {
	return a.set(func(d *AttachmentDescription) { d.StencilStoreOp = op })
}

func (a *AttachmentBuilder) InitialLayout(layout vk.ImageLayout) *AttachmentBuilder {
	return a.set(func(d *AttachmentDescription) { d.InitialLayout = layout })
}

func (a *AttachmentBuilder) FinalLayout(layout vk.ImageLayout) *AttachmentBuilder {
	return a.set(func(d *AttachmentDescription) { d.FinalLayout = layout })
}

// Handle registers the attachment in the render pass on first call and
// returns the same handle on every later call.
func (a *AttachmentBuilder) Handle() AttachmentHandle {
	if a.registered {
		return a.handle
	}
	if !a.parent.state.open() {
		return AttachmentHandle{}
	}
	a.handle = a.parent.attachments.add(a)
	a.registered = true
	return a.handle
}

type subpassRef struct {
	handle AttachmentHandle
	layout vk.ImageLayout
}

// SubpassBuilder composes attachment references into one subpass.
type SubpassBuilder struct {
	parent   *RenderPassBuilder
	handle   SubpassHandle
	flags    vk.SubpassDescriptionFlags
	input    []subpassRef
	color    []subpassRef
	resolve  []subpassRef
	depth    *subpassRef
	preserve []AttachmentHandle
}

func (s *SubpassBuilder) Handle() SubpassHandle {
	return s.handle
}

func (s *SubpassBuilder) Flags(flags vk.SubpassDescriptionFlags) *SubpassBuilder {
	if s.parent.state.open() {
		s.flags = flags
	}
	return s
}

// Color appends a color reference. Call order fixes the fragment output slot.
func (s *SubpassBuilder) Color(h AttachmentHandle, layout vk.ImageLayout) *SubpassBuilder {
	if s.parent.state.open() {
		s.color = append(s.color, subpassRef{h, layout})
	}
	return s
}

func (s *SubpassBuilder) Input(h AttachmentHandle, layout vk.ImageLayout) *SubpassBuilder {
	if s.parent.state.open() {
		s.input = append(s.input, subpassRef{h, layout})
	}
	return s
}

// Resolve appends a multisample resolve target. When used, there must be
// exactly one resolve reference per color reference.
func (s *SubpassBuilder) Resolve(h AttachmentHandle, layout vk.ImageLayout) *SubpassBuilder {
	if s.parent.state.open() {
		s.resolve = append(s.resolve, subpassRef{h, layout})
	}
	return s
}

// DepthStencil sets the depth/stencil reference, replacing any earlier one.
func (s *SubpassBuilder) DepthStencil(h AttachmentHandle, layout vk.ImageLayout) *SubpassBuilder {
	if s.parent.state.open() {
		s.depth = &subpassRef{h, layout}
	}
	return s
}

// Preserve marks an attachment the subpass does not touch but whose
// contents must survive it.
func (s *SubpassBuilder) Preserve(h AttachmentHandle) *SubpassBuilder {
	if s.parent.state.open() {
		s.preserve = append(s.preserve, h)
	}
	return s
}

func (s *SubpassBuilder) resolveRefs(refs []subpassRef) ([]AttachmentReference, error) {
	if len(refs) == 0 {
		return nil, nil
	}
	out := make([]AttachmentReference, 0, len(refs))
	for _, r := range refs {
		if _, err := s.parent.attachments.resolve(r.handle); err != nil {
			return nil, err
		}
		out = append(out, AttachmentReference{Attachment: r.handle.index, Layout: r.layout})
	}
	return out, nil
}

func (s *SubpassBuilder) describe(index uint32) (SubpassDescription, error) {
	desc := SubpassDescription{Index: index, Flags: s.flags}

	var err error
	if desc.Input, err = s.resolveRefs(s.input); err != nil {
		return desc, err
	}
	if desc.Color, err = s.resolveRefs(s.color); err != nil {
		return desc, err
	}
	if desc.Resolve, err = s.resolveRefs(s.resolve); err != nil {
		return desc, err
	}
	if len(desc.Resolve) > 0 && len(desc.Resolve) != len(desc.Color) {
		return desc, countMismatch(RefSubpass, index, "%d resolve attachments for %d color attachments", len(desc.Resolve), len(desc.Color))
	}
	if s.depth != nil {
		refs, err := s.resolveRefs([]subpassRef{*s.depth})
		if err != nil {
			return desc, err
		}
		desc.DepthStencil = &refs[0]
	}

	seen := make(map[uint32]struct{}, len(s.preserve))
	for _, h := range s.preserve {
		if _, err := s.parent.attachments.resolve(h); err != nil {
			return desc, err
		}
		if _, dup := seen[h.index]; dup {
			return desc, duplicateIndex(RefAttachment, h.index)
		}
		seen[h.index] = struct{}{}
		desc.Preserve = append(desc.Preserve, h.index)
	}
	return desc, nil
}

type subpassEndpoint struct {
	set      bool
	external bool
	handle   SubpassHandle
}

// DependencyBuilder describes one explicit execution/memory dependency.
type DependencyBuilder struct {
	parent        *RenderPassBuilder
	src, dst      subpassEndpoint
	srcStageMask  vk.PipelineStageFlags
	dstStageMask  vk.PipelineStageFlags
	srcAccessMask vk.AccessFlags
	dstAccessMask vk.AccessFlags
	flags         vk.DependencyFlags
}

func (d *DependencyBuilder) Src(h SubpassHandle) *DependencyBuilder {
	if d.parent.state.open() {
		d.src = subpassEndpoint{set: true, handle: h}
	}
	return d
}

func (d *DependencyBuilder) SrcExternal() *DependencyBuilder {
	if d.parent.state.open() {
		d.src = subpassEndpoint{set: true, external: true}
	}
	return d
}

func (d *DependencyBuilder) Dst(h SubpassHandle) *DependencyBuilder {
	if d.parent.state.open() {
		d.dst = subpassEndpoint{set: true, handle: h}
	}
	return d
}

func (d *DependencyBuilder) DstExternal() *DependencyBuilder {
	if d.parent.state.open() {
		d.dst = subpassEndpoint{set: true, external: true}
	}
	return d
}

func (d *DependencyBuilder) SrcStageMask(mask vk.PipelineStageFlags) *DependencyBuilder {
	if d.parent.state.open() {
		d.srcStageMask = mask
	}
	return d
}

func (d *DependencyBuilder) DstStageMask(mask vk.PipelineStageFlags) *DependencyBuilder {
	if d.parent.state.open() {
		d.dstStageMask = mask
	}
	return d
}

func (d *DependencyBuilder) SrcAccessMask(mask vk.AccessFlags) *DependencyBuilder {
	if d.parent.state.open() {
		d.srcAccessMask = mask
	}
	return d
}

func (d *DependencyBuilder) DstAccessMask(mask vk.AccessFlags) *DependencyBuilder {
	if d.parent.state.open() {
		d.dstAccessMask = mask
	}
	return d
}

func (d *DependencyBuilder) Flags(flags vk.DependencyFlags) *DependencyBuilder {
	if d.parent.state.open() {
		d.flags = flags
	}
	return d
}

func (d *DependencyBuilder) endpoint(e subpassEndpoint, index uint32, side string) (uint32, error) {
	if !e.set {
		return 0, incomplete(RefDependency, index, "%s subpass not set", side)
	}
	if e.external {
		return SubpassExternal, nil
	}
	if _, err := d.parent.subpasses.resolve(e.handle); err != nil {
		return 0, err
	}
	return e.handle.index, nil
}

func (d *DependencyBuilder) describe(index uint32) (SubpassDependency, error) {
	src, err := d.endpoint(d.src, index, "source")
	if err != nil {
		return SubpassDependency{}, err
	}
	dst, err := d.endpoint(d.dst, index, "destination")
	if err != nil {
		return SubpassDependency{}, err
	}
	return SubpassDependency{
		SrcSubpass:    src,
		DstSubpass:    dst,
		SrcStageMask:  d.srcStageMask,
		DstStageMask:  d.dstStageMask,
		SrcAccessMask: d.srcAccessMask,
		DstAccessMask: d.dstAccessMask,
		Flags:         d.flags,
	}, nil
}
