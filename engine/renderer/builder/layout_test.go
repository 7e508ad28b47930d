package builder

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const (
	vertexStage   = vk.ShaderStageFlags(vk.ShaderStageVertexBit)
	fragmentStage = vk.ShaderStageFlags(vk.ShaderStageFragmentBit)
)

func TestDescriptorSet_BindingsSortedByNumber(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	ds := NewDescriptorSet().
		Binding(2, vk.DescriptorTypeCombinedImageSampler, 4, fragmentStage).
		Binding(0, vk.DescriptorTypeUniformBuffer, 1, vertexStage|fragmentStage)

	// --- Act ---
	cfg, err := ds.Config()

	// --- Assert ---
	require.NoError(t, err)
	want := []DescriptorBinding{
		{Binding: 0, Type: vk.DescriptorTypeUniformBuffer, Count: 1, Stages: vertexStage | fragmentStage},
		{Binding: 2, Type: vk.DescriptorTypeCombinedImageSampler, Count: 4, Stages: fragmentStage},
	}
	if diff := cmp.Diff(want, cfg.Bindings()); diff != "" {
		t.Errorf("bindings mismatch (-want +got):\n%s", diff)
	}
}

func TestDescriptorSet_ValidationErrors(t *testing.T) {
	t.Parallel()

	t.Run("duplicate binding", func(t *testing.T) {
		t.Parallel()

		_, err := NewDescriptorSet().
			Binding(1, vk.DescriptorTypeUniformBuffer, 1, vertexStage).
			Binding(1, vk.DescriptorTypeStorageBuffer, 1, fragmentStage).
			Config()
		require.ErrorIs(t, err, ErrDuplicateIndex)
	})

	t.Run("zero descriptors", func(t *testing.T) {
		t.Parallel()

		_, err := NewDescriptorSet().
			Binding(0, vk.DescriptorTypeUniformBuffer, 0, vertexStage).
			Config()
		require.ErrorIs(t, err, ErrInvalidValue)
	})

	t.Run("already finalized", func(t *testing.T) {
		t.Parallel()

		ds := NewDescriptorSet()
		_, err := ds.Config()
		require.NoError(t, err)

		_, err = ds.Config()
		require.ErrorIs(t, err, ErrAlreadyFinalized)
	})
}

func TestPipelineLayout_SetOrderAndRanges(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	global, err := NewDescriptorSet().Binding(0, vk.DescriptorTypeUniformBuffer, 1, vertexStage).Config()
	require.NoError(t, err)
	material, err := NewDescriptorSet().Binding(0, vk.DescriptorTypeCombinedImageSampler, 1, fragmentStage).Config()
	require.NoError(t, err)

	// --- Act ---
	cfg, err := NewPipelineLayout().
		SetLayout(global).
		SetLayout(material).
		PushConstantRange(vertexStage, 0, 64).
		PushConstantRange(fragmentStage, 0, 16).
		Config()

	// --- Assert ---
	require.NoError(t, err)
	require.Equal(t, 2, cfg.SetLayoutCount())
	sets := cfg.SetLayouts()
	require.Same(t, global, sets[0])
	require.Same(t, material, sets[1])
	require.Equal(t, []PushConstantRange{
		{Stages: vertexStage, Offset: 0, Size: 64},
		{Stages: fragmentStage, Offset: 0, Size: 16},
	}, cfg.PushConstantRanges())
}

func TestPipelineLayout_ValidationErrors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		arrange func(b *PipelineLayoutBuilder)
		wantErr error
	}{
		{
			name: "overlapping ranges for a shared stage",
			arrange: func(b *PipelineLayoutBuilder) {
				b.PushConstantRange(vertexStage, 0, 64).
					PushConstantRange(vertexStage|fragmentStage, 60, 8)
			},
			wantErr: ErrDuplicateIndex,
		},
		{
			name: "disjoint ranges for a shared stage",
			arrange: func(b *PipelineLayoutBuilder) {
				b.PushConstantRange(vertexStage, 0, 16).
					PushConstantRange(vertexStage, 16, 16)
			},
			wantErr: ErrDuplicateIndex,
		},
		{
			name: "range past the guaranteed size",
			arrange: func(b *PipelineLayoutBuilder) {
				b.PushConstantRange(vertexStage, 120, 16)
			},
			wantErr: ErrInvalidValue,
		},
		{
			name: "range wrapping around",
			arrange: func(b *PipelineLayoutBuilder) {
				b.PushConstantRange(vertexStage, 0xFFFFFFFC, 8)
			},
			wantErr: ErrInvalidValue,
		},
		{
			name: "zero size",
			arrange: func(b *PipelineLayoutBuilder) {
				b.PushConstantRange(vertexStage, 0, 0)
			},
			wantErr: ErrInvalidValue,
		},
		{
			name: "misaligned offset",
			arrange: func(b *PipelineLayoutBuilder) {
				b.PushConstantRange(vertexStage, 2, 4)
			},
			wantErr: ErrInvalidValue,
		},
		{
			name: "no stages",
			arrange: func(b *PipelineLayoutBuilder) {
				b.PushConstantRange(0, 0, 4)
			},
			wantErr: ErrInvalidValue,
		},
		{
			name: "too many ranges",
			arrange: func(b *PipelineLayoutBuilder) {
				for i := uint32(0); i <= MaxPushConstantRanges; i++ {
					b.PushConstantRange(vertexStage, i*4, 4)
				}
			},
			wantErr: ErrInvalidValue,
		},
		{
			name: "nil set layout",
			arrange: func(b *PipelineLayoutBuilder) {
				b.SetLayout(nil)
			},
			wantErr: ErrIncomplete,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			// --- Arrange ---
			b := NewPipelineLayout()
			tc.arrange(b)

			// --- Act ---
			cfg, err := b.Config()

			// --- Assert ---
			require.Nil(t, cfg)
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestPushConstantHelpers(t *testing.T) {
	t.Parallel()

	require.True(t, isAligned(uint32(64), 4))
	require.False(t, isAligned(uint32(6), 4))
	require.True(t, fitsWithin(uint32(64), 64, 128))
	require.True(t, fitsWithin(uint32(0), 128, 128))
	require.False(t, fitsWithin(uint32(124), 8, 128))
	require.False(t, fitsWithin(uint32(0xFFFFFFFC), 8, 128))
}

func TestFormatSize(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		format vk.Format
		size   uint32
		ok     bool
	}{
		{vk.FormatR32Sfloat, 4, true},
		{vk.FormatR32g32b32Sfloat, 12, true},
		{vk.FormatR32g32b32a32Sfloat, 16, true},
		{vk.FormatR8g8b8a8Unorm, 4, true},
		{vk.FormatR16g16Sfloat, 4, true},
		{vk.FormatR64g64b64a64Sfloat, 32, true},
		{vk.FormatD32Sfloat, 0, false},
		{vk.FormatUndefined, 0, false},
	}
	for _, tc := range testCases {
		size, ok := FormatSize(tc.format)
		require.Equal(t, tc.ok, ok, "format %d", tc.format)
		require.Equal(t, tc.size, size, "format %d", tc.format)
	}
}
