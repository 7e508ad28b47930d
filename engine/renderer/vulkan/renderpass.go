package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkbuild/engine/renderer/builder"
)

// RenderPassCreateInfo lays out a finalized render pass the way
// vkCreateRenderPass expects it. Attachment, subpass and dependency order
// is preserved exactly, so indices in references stay valid.
func RenderPassCreateInfo(cfg *builder.RenderPassConfig) vk.RenderPassCreateInfo {
	attachments := cfg.Attachments()
	attachmentDescriptions := make([]vk.AttachmentDescription, len(attachments))
	for i, a := range attachments {
		attachmentDescriptions[i] = vk.AttachmentDescription{
			Flags:          a.Flags,
			Format:         a.Format,
			Samples:        a.Samples,
			LoadOp:         a.LoadOp,
			StoreOp:        a.StoreOp,
			StencilLoadOp:  a.StencilLoadOp,
			StencilStoreOp: a.StencilStoreOp,
			InitialLayout:  a.InitialLayout,
			FinalLayout:    a.FinalLayout,
		}
	}

	subpasses := cfg.Subpasses()
	subpassDescriptions := make([]vk.SubpassDescription, len(subpasses))
	for i, sp := range subpasses {
		subpassDescriptions[i] = subpassDescription(sp)
	}

	deps := cfg.Dependencies()
	dependencies := make([]vk.SubpassDependency, len(deps))
	for i, d := range deps {
		dependencies[i] = vk.SubpassDependency{
			SrcSubpass:      d.SrcSubpass,
			DstSubpass:      d.DstSubpass,
			SrcStageMask:    d.SrcStageMask,
			DstStageMask:    d.DstStageMask,
			SrcAccessMask:   d.SrcAccessMask,
			DstAccessMask:   d.DstAccessMask,
			DependencyFlags: d.Flags,
		}
	}

	return vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachmentDescriptions)),
		PAttachments:    attachmentDescriptions,
		SubpassCount:    uint32(len(subpassDescriptions)),
		PSubpasses:      subpassDescriptions,
		DependencyCount: uint32(len(dependencies)),
		PDependencies:   dependencies,
	}
}

func subpassDescription(sp builder.SubpassDescription) vk.SubpassDescription {
	subpass := vk.SubpassDescription{
		Flags:             sp.Flags,
		PipelineBindPoint: vk.PipelineBindPointGraphics,
	}

	// Input from a shader
	if len(sp.Input) > 0 {
		subpass.InputAttachmentCount = uint32(len(sp.Input))
		subpass.PInputAttachments = attachmentReferences(sp.Input)
	}

	if len(sp.Color) > 0 {
		subpass.ColorAttachmentCount = uint32(len(sp.Color))
		subpass.PColorAttachments = attachmentReferences(sp.Color)
	}

	// Attachments used for multisampling colour attachments
	if len(sp.Resolve) > 0 {
		subpass.PResolveAttachments = attachmentReferences(sp.Resolve)
	}

	if sp.DepthStencil != nil {
		subpass.PDepthStencilAttachment = &vk.AttachmentReference{
			Attachment: sp.DepthStencil.Attachment,
			Layout:     sp.DepthStencil.Layout,
		}
	}

	// Attachments not used in this subpass, but must be preserved for the next.
	if len(sp.Preserve) > 0 {
		subpass.PreserveAttachmentCount = uint32(len(sp.Preserve))
		subpass.PPreserveAttachments = sp.Preserve
	}
	return subpass
}

func attachmentReferences(refs []builder.AttachmentReference) []vk.AttachmentReference {
	out := make([]vk.AttachmentReference, len(refs))
	for i, r := range refs {
		out[i] = vk.AttachmentReference{Attachment: r.Attachment, Layout: r.Layout}
	}
	return out
}
