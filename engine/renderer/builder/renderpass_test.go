package builder

import (
	"errors"
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

// forwardPass builds a color + depth pass with a single subpass.
func forwardPass(t *testing.T) *RenderPassConfig {
	t.Helper()

	rp := NewRenderPass()
	color := rp.Attachment().
		Format(vk.FormatB8g8r8a8Srgb).
		LoadOp(vk.AttachmentLoadOpClear).
		StoreOp(vk.AttachmentStoreOpStore).
		FinalLayout(vk.ImageLayoutPresentSrc).
		Handle()
	depth := rp.Attachment().
		Format(vk.FormatD32Sfloat).
		LoadOp(vk.AttachmentLoadOpClear).
		FinalLayout(vk.ImageLayoutDepthStencilAttachmentOptimal).
		Handle()
	rp.Subpass().
		Color(color, vk.ImageLayoutColorAttachmentOptimal).
		DepthStencil(depth, vk.ImageLayoutDepthStencilAttachmentOptimal)

	cfg, err := rp.Config()
	require.NoError(t, err)
	return cfg
}

func TestRenderPass_ConfigPreservesOrder(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	rp := NewRenderPass()
	color := rp.Attachment().
		Format(vk.FormatB8g8r8a8Srgb).
		LoadOp(vk.AttachmentLoadOpClear).
		StoreOp(vk.AttachmentStoreOpStore).
		FinalLayout(vk.ImageLayoutPresentSrc).
		Handle()
	depth := rp.Attachment().
		Format(vk.FormatD32Sfloat).
		LoadOp(vk.AttachmentLoadOpClear).
		FinalLayout(vk.ImageLayoutDepthStencilAttachmentOptimal).
		Handle()
	world := rp.Subpass().
		Color(color, vk.ImageLayoutColorAttachmentOptimal).
		DepthStencil(depth, vk.ImageLayoutDepthStencilAttachmentOptimal)
	rp.Dependency().
		SrcExternal().
		Dst(world.Handle()).
		SrcStageMask(vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)).
		DstStageMask(vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)).
		DstAccessMask(vk.AccessFlags(vk.AccessColorAttachmentWriteBit))

	// --- Act ---
	cfg, err := rp.Config()

	// --- Assert ---
	require.NoError(t, err)
	require.Equal(t, rp.ID(), cfg.ID())

	wantAttachments := []AttachmentDescription{
		{
			Index:          0,
			Format:         vk.FormatB8g8r8a8Srgb,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         vk.AttachmentLoadOpClear,
			StoreOp:        vk.AttachmentStoreOpStore,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    vk.ImageLayoutPresentSrc,
		},
		{
			Index:          1,
			Format:         vk.FormatD32Sfloat,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         vk.AttachmentLoadOpClear,
			StoreOp:        vk.AttachmentStoreOpDontCare,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    vk.ImageLayoutDepthStencilAttachmentOptimal,
		},
	}
	if diff := cmp.Diff(wantAttachments, cfg.Attachments()); diff != "" {
		t.Errorf("attachments mismatch (-want +got):\n%s", diff)
	}

	wantSubpasses := []SubpassDescription{
		{
			Index:        0,
			Color:        []AttachmentReference{{Attachment: 0, Layout: vk.ImageLayoutColorAttachmentOptimal}},
			DepthStencil: &AttachmentReference{Attachment: 1, Layout: vk.ImageLayoutDepthStencilAttachmentOptimal},
		},
	}
	if diff := cmp.Diff(wantSubpasses, cfg.Subpasses()); diff != "" {
		t.Errorf("subpasses mismatch (-want +got):\n%s", diff)
	}

	wantDependencies := []SubpassDependency{
		{
			SrcSubpass:    SubpassExternal,
			DstSubpass:    0,
			SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
			DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
			DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
		},
	}
	if diff := cmp.Diff(wantDependencies, cfg.Dependencies()); diff != "" {
		t.Errorf("dependencies mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderPass_AttachmentsJoinOnFirstHandle(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	rp := NewRenderPass()
	first := rp.Attachment().Format(vk.FormatR8g8b8a8Unorm)
	second := rp.Attachment().Format(vk.FormatD32Sfloat)
	rp.Attachment().Format(vk.FormatR16g16b16a16Sfloat) // never referenced

	// --- Act ---
	secondHandle := second.Handle()
	firstHandle := first.Handle()
	require.Equal(t, firstHandle, first.Handle())
	rp.Subpass().
		Color(firstHandle, vk.ImageLayoutColorAttachmentOptimal).
		DepthStencil(secondHandle, vk.ImageLayoutDepthStencilAttachmentOptimal)
	cfg, err := rp.Config()

	// --- Assert ---
	require.NoError(t, err)
	require.Equal(t, 2, cfg.AttachmentCount())
	attachments := cfg.Attachments()
	require.Equal(t, vk.FormatD32Sfloat, attachments[0].Format)
	require.Equal(t, vk.FormatR8g8b8a8Unorm, attachments[1].Format)
	require.Equal(t, uint32(1), firstHandle.Index())
	require.Equal(t, rp.ID(), firstHandle.Owner())
}

func TestRenderPass_ForeignHandleIsUnknownReference(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	other := NewRenderPass()
	var foreign AttachmentHandle
	for i := 0; i < 6; i++ {
		foreign = other.Attachment().Format(vk.FormatR8g8b8a8Unorm).Handle()
	}
	require.Equal(t, uint32(5), foreign.Index())

	rp := NewRenderPass()
	for i := 0; i < 3; i++ {
		rp.Attachment().Format(vk.FormatR8g8b8a8Unorm).Handle()
	}
	rp.Subpass().Color(foreign, vk.ImageLayoutColorAttachmentOptimal)

	// --- Act ---
	cfg, err := rp.Config()

	// --- Assert ---
	require.Nil(t, cfg)
	require.ErrorIs(t, err, ErrUnknownReference)
	var buildErr *BuildError
	require.True(t, errors.As(err, &buildErr))
	require.Equal(t, RefAttachment, buildErr.Kind)
	require.Equal(t, uint32(5), buildErr.Index)
}

func TestRenderPass_ValidationErrors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		arrange func(rp *RenderPassBuilder)
		wantErr error
	}{
		{
			name:    "no subpasses",
			arrange: func(rp *RenderPassBuilder) {},
			wantErr: ErrIncomplete,
		},
		{
			name: "resolve count differs from color count",
			arrange: func(rp *RenderPassBuilder) {
				a := rp.Attachment().Samples(vk.SampleCount4Bit).Handle()
				b := rp.Attachment().Samples(vk.SampleCount4Bit).Handle()
				r := rp.Attachment().Handle()
				rp.Subpass().
					Color(a, vk.ImageLayoutColorAttachmentOptimal).
					Color(b, vk.ImageLayoutColorAttachmentOptimal).
					Resolve(r, vk.ImageLayoutColorAttachmentOptimal)
			},
			wantErr: ErrAttachmentCountMismatch,
		},
		{
			name: "attachment preserved twice",
			arrange: func(rp *RenderPassBuilder) {
				a := rp.Attachment().Handle()
				rp.Subpass().Preserve(a).Preserve(a)
			},
			wantErr: ErrDuplicateIndex,
		},
		{
			name: "zero attachment handle",
			arrange: func(rp *RenderPassBuilder) {
				rp.Subpass().Input(AttachmentHandle{}, vk.ImageLayoutShaderReadOnlyOptimal)
			},
			wantErr: ErrUnknownReference,
		},
		{
			name: "dependency without destination",
			arrange: func(rp *RenderPassBuilder) {
				sp := rp.Subpass()
				rp.Dependency().Src(sp.Handle())
			},
			wantErr: ErrIncomplete,
		},
		{
			name: "dependency on a subpass of another pass",
			arrange: func(rp *RenderPassBuilder) {
				foreign := NewRenderPass().Subpass().Handle()
				rp.Subpass()
				rp.Dependency().SrcExternal().Dst(foreign)
			},
			wantErr: ErrUnknownReference,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			// --- Arrange ---
			rp := NewRenderPass()
			tc.arrange(rp)

			// --- Act ---
			cfg, err := rp.Config()

			// --- Assert ---
			require.Nil(t, cfg)
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestRenderPass_AlreadyFinalized(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	rp := NewRenderPass()
	rp.Subpass()
	_, err := rp.Config()
	require.NoError(t, err)

	// --- Act ---
	again, againErr := rp.Config()
	rp.Subpass()

	// --- Assert ---
	require.Nil(t, again)
	require.ErrorIs(t, againErr, ErrAlreadyFinalized)
	require.ErrorIs(t, rp.Err(), ErrAlreadyFinalized)
}

func TestRenderPass_FailedConfigStillFinalizes(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	rp := NewRenderPass()
	_, err := rp.Config()
	require.ErrorIs(t, err, ErrIncomplete)

	// --- Act ---
	_, err = rp.Config()

	// --- Assert ---
	require.ErrorIs(t, err, ErrAlreadyFinalized)
}

func TestRenderPassConfig_AccessorsReturnCopies(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	cfg := forwardPass(t)
	before := cfg.Subpasses()

	// --- Act ---
	attachments := cfg.Attachments()
	attachments[0].Format = vk.FormatUndefined
	subpasses := cfg.Subpasses()
	subpasses[0].Color[0].Attachment = 7
	subpasses[0].DepthStencil.Attachment = 9
	sp, ok := cfg.Subpass(0)
	require.True(t, ok)
	sp.Color[0].Layout = vk.ImageLayoutGeneral

	// --- Assert ---
	require.Equal(t, vk.FormatB8g8r8a8Srgb, cfg.Attachments()[0].Format)
	if diff := cmp.Diff(before, cfg.Subpasses()); diff != "" {
		t.Errorf("config changed through an accessor (-before +after):\n%s", diff)
	}
	_, ok = cfg.Subpass(1)
	require.False(t, ok)
}
