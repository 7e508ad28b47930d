package builder

import (
	"slices"
	"strconv"

	vk "github.com/goki/vulkan"
	"github.com/google/uuid"
	"github.com/spaghettifunk/vkbuild/engine/core"
)

const (
	// MaxPushConstantRanges is the number of ranges a layout may declare. The
	// guaranteed 128 bytes of push constants at 4-byte granularity give 32.
	MaxPushConstantRanges = 32
	// MaxPushConstantsSize is the push constant space every device provides.
	MaxPushConstantsSize = 128
)

/**
 * @brief One shader-visible resource slot of a descriptor set layout.
 */
type DescriptorBinding struct {
	/** @brief The binding number used by shaders. */
	Binding uint32
	/** @brief The kind of descriptor (uniform buffer, sampler, ...). */
	Type vk.DescriptorType
	/** @brief Number of descriptors in the slot (array size). */
	Count uint32
	/** @brief Shader stages that can access the slot. */
	Stages vk.ShaderStageFlags
}

// DescriptorSetLayoutConfig is a finalized descriptor set layout. Bindings
// are kept sorted by binding number.
type DescriptorSetLayoutConfig struct {
	id       uuid.UUID
	flags    vk.DescriptorSetLayoutCreateFlags
	bindings []DescriptorBinding
}

func (c *DescriptorSetLayoutConfig) ID() uuid.UUID {
	return c.id
}

func (c *DescriptorSetLayoutConfig) Flags() vk.DescriptorSetLayoutCreateFlags {
	return c.flags
}

func (c *DescriptorSetLayoutConfig) Bindings() []DescriptorBinding {
	return slices.Clone(c.bindings)
}

// DescriptorSetBuilder accumulates the bindings of one descriptor set layout.
type DescriptorSetBuilder struct {
	state    *state
	flags    vk.DescriptorSetLayoutCreateFlags
	bindings []DescriptorBinding
}

func NewDescriptorSet() *DescriptorSetBuilder {
	return &DescriptorSetBuilder{state: newState()}
}

func (b *DescriptorSetBuilder) Err() error {
	return b.state.err
}

func (b *DescriptorSetBuilder) Flags(flags vk.DescriptorSetLayoutCreateFlags) *DescriptorSetBuilder {
	if b.state.open() {
		b.flags = flags
	}
	return b
}

// Binding declares binding number index holding count descriptors of the
// given type, visible to stages.
func (b *DescriptorSetBuilder) Binding(index uint32, kind vk.DescriptorType, count uint32, stages vk.ShaderStageFlags) *DescriptorSetBuilder {
	if b.state.open() {
		b.bindings = append(b.bindings, DescriptorBinding{
			Binding: index,
			Type:    kind,
			Count:   count,
			Stages:  stages,
		})
	}
	return b
}

func (b *DescriptorSetBuilder) Config() (*DescriptorSetLayoutConfig, error) {
	if err := b.state.finalize(); err != nil {
		return nil, err
	}

	seen := make(map[uint32]struct{}, len(b.bindings))
	for _, binding := range b.bindings {
		if _, dup := seen[binding.Binding]; dup {
			return nil, duplicateIndex(RefDescriptorBinding, binding.Binding)
		}
		seen[binding.Binding] = struct{}{}
		if binding.Count == 0 {
			return nil, invalidValue(RefDescriptorBinding, binding.Binding, "descriptor count must be non-zero")
		}
	}

	bindings := slices.Clone(b.bindings)
	slices.SortFunc(bindings, func(x, y DescriptorBinding) int {
		return int(x.Binding) - int(y.Binding)
	})

	core.LogDebug("descriptor set layout %s finalized: %d bindings", b.state.id, len(bindings))
	return &DescriptorSetLayoutConfig{
		id:       b.state.id,
		flags:    b.flags,
		bindings: bindings,
	}, nil
}

/**
 * @brief A block of push constant bytes visible to a set of stages.
 */
type PushConstantRange struct {
	Stages vk.ShaderStageFlags
	Offset uint32
	Size   uint32
}

// PipelineLayoutConfig is a finalized pipeline layout. Set number n is the
// n-th set layout passed to the builder.
type PipelineLayoutConfig struct {
	id            uuid.UUID
	setLayouts    []*DescriptorSetLayoutConfig
	pushConstants []PushConstantRange
}

func (c *PipelineLayoutConfig) ID() uuid.UUID {
	return c.id
}

func (c *PipelineLayoutConfig) SetLayoutCount() int {
	return len(c.setLayouts)
}

// SetLayouts returns the set layouts in set-number order. The layouts
// themselves are immutable and shared.
func (c *PipelineLayoutConfig) SetLayouts() []*DescriptorSetLayoutConfig {
	return slices.Clone(c.setLayouts)
}

func (c *PipelineLayoutConfig) PushConstantRanges() []PushConstantRange {
	return slices.Clone(c.pushConstants)
}

// PipelineLayoutBuilder aggregates descriptor set layouts and push constant
// ranges.
type PipelineLayoutBuilder struct {
	state         *state
	setLayouts    []*DescriptorSetLayoutConfig
	pushConstants []PushConstantRange
}

func NewPipelineLayout() *PipelineLayoutBuilder {
	return &PipelineLayoutBuilder{state: newState()}
}

func (b *PipelineLayoutBuilder) Err() error {
	return b.state.err
}

// SetLayout appends a finalized descriptor set layout as the next set.
func (b *PipelineLayoutBuilder) SetLayout(layout *DescriptorSetLayoutConfig) *PipelineLayoutBuilder {
	if !b.state.open() {
		return b
	}
	if layout == nil {
		b.state.fail(incomplete(RefDescriptorSet, uint32(len(b.setLayouts)), "nil descriptor set layout"))
		return b
	}
	b.setLayouts = append(b.setLayouts, layout)
	return b
}

func (b *PipelineLayoutBuilder) PushConstantRange(stages vk.ShaderStageFlags, offset, size uint32) *PipelineLayoutBuilder {
	if b.state.open() {
		b.pushConstants = append(b.pushConstants, PushConstantRange{Stages: stages, Offset: offset, Size: size})
	}
	return b
}

func (b *PipelineLayoutBuilder) Config() (*PipelineLayoutConfig, error) {
	if err := b.state.finalize(); err != nil {
		return nil, err
	}

	if len(b.pushConstants) > MaxPushConstantRanges {
		return nil, invalidValue(RefPushConstantRange, uint32(len(b.pushConstants)),
			"cannot have more than %d push constant ranges", MaxPushConstantRanges)
	}
	for i, r := range b.pushConstants {
		idx := uint32(i)
		switch {
		case r.Size == 0:
			return nil, invalidValue(RefPushConstantRange, idx, "size must be non-zero")
		case !isAligned(r.Offset, 4) || !isAligned(r.Size, 4):
			return nil, invalidValue(RefPushConstantRange, idx, "offset %d and size %d must be multiples of 4", r.Offset, r.Size)
		case r.Stages == 0:
			return nil, invalidValue(RefPushConstantRange, idx, "no shader stages")
		case !fitsWithin(r.Offset, r.Size, MaxPushConstantsSize):
			return nil, invalidValue(RefPushConstantRange, idx, "offset %d and size %d exceed %d bytes", r.Offset, r.Size, MaxPushConstantsSize)
		}
		// a stage may appear in one range only
		for j := 0; j < i; j++ {
			if b.pushConstants[j].Stages&r.Stages != 0 {
				return nil, &BuildError{
					Err:    ErrDuplicateIndex,
					Kind:   RefPushConstantRange,
					Index:  idx,
					Detail: "shares a shader stage with range " + strconv.Itoa(j),
				}
			}
		}
	}

	core.LogDebug("pipeline layout %s finalized: %d set layouts, %d push constant ranges",
		b.state.id, len(b.setLayouts), len(b.pushConstants))
	return &PipelineLayoutConfig{
		id:            b.state.id,
		setLayouts:    slices.Clone(b.setLayouts),
		pushConstants: slices.Clone(b.pushConstants),
	}, nil
}
