package vulkan

import (
	"errors"
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vkbuild/engine/renderer/builder"
)

// ErrSetLayoutCount is returned when the native set layouts handed to
// PipelineLayoutCreateInfo do not line up with the configured sets.
var ErrSetLayoutCount = errors.New("descriptor set layout count mismatch")

func DescriptorSetLayoutCreateInfo(cfg *builder.DescriptorSetLayoutConfig) vk.DescriptorSetLayoutCreateInfo {
	bindings := cfg.Bindings()
	layoutBindings := make([]vk.DescriptorSetLayoutBinding, len(bindings))
	for i, b := range bindings {
		layoutBindings[i] = vk.DescriptorSetLayoutBinding{
			Binding:         b.Binding,
			DescriptorType:  b.Type,
			DescriptorCount: b.Count,
			StageFlags:      b.Stages,
		}
	}
	return vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		Flags:        cfg.Flags(),
		BindingCount: uint32(len(layoutBindings)),
		PBindings:    layoutBindings,
	}
}

// PipelineLayoutCreateInfo needs one native layout per configured set, in
// set-number order: setLayouts[n] must have been created from
// cfg.SetLayouts()[n].
func PipelineLayoutCreateInfo(cfg *builder.PipelineLayoutConfig, setLayouts []vk.DescriptorSetLayout) (vk.PipelineLayoutCreateInfo, error) {
	if len(setLayouts) != cfg.SetLayoutCount() {
		return vk.PipelineLayoutCreateInfo{}, fmt.Errorf("%w: %d native layouts for %d sets",
			ErrSetLayoutCount, len(setLayouts), cfg.SetLayoutCount())
	}

	pipelineLayoutCreateInfo := vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: uint32(len(setLayouts)),
		PSetLayouts:    setLayouts,
	}

	// Push constants
	pushConstants := cfg.PushConstantRanges()
	if len(pushConstants) > 0 {
		ranges := make([]vk.PushConstantRange, len(pushConstants))
		for i, r := range pushConstants {
			ranges[i] = vk.PushConstantRange{
				StageFlags: r.Stages,
				Offset:     r.Offset,
				Size:       r.Size,
			}
		}
		pipelineLayoutCreateInfo.PushConstantRangeCount = uint32(len(ranges))
		pipelineLayoutCreateInfo.PPushConstantRanges = ranges
	}
	return pipelineLayoutCreateInfo, nil
}
