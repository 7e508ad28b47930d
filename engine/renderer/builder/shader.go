package builder

import (
	"encoding/binary"
	"slices"

	vk "github.com/goki/vulkan"
)

const defaultEntryPoint = "main"

// ShaderModuleRef points at a shader module owned by the shader loading
// code. Name is what the module was loaded from; Handle is the native
// module once it exists. Either one identifies the module.
type ShaderModuleRef struct {
	Name   string
	Handle vk.ShaderModule
}

func (m ShaderModuleRef) IsZero() bool {
	return m.Name == "" && m.Handle == vk.NullShaderModule
}

/**
 * @brief Constant ID to byte range mapping inside SpecializationInfo.Data.
 */
type SpecializationEntry struct {
	ConstantID uint32
	Offset     uint32
	Size       uint32
}

/**
 * @brief Specialization constants of one stage. Data is little endian.
 */
type SpecializationInfo struct {
	Entries []SpecializationEntry
	Data    []byte
}

func (s SpecializationInfo) clone() SpecializationInfo {
	return SpecializationInfo{Entries: slices.Clone(s.Entries), Data: slices.Clone(s.Data)}
}

/**
 * @brief One programmable stage of a pipeline.
 */
type ShaderStageDescription struct {
	Stage          vk.ShaderStageFlagBits
	Module         ShaderModuleRef
	EntryPoint     string
	Flags          vk.PipelineShaderStageCreateFlags
	Specialization SpecializationInfo
}

func (s ShaderStageDescription) clone() ShaderStageDescription {
	out := s
	out.Specialization = s.Specialization.clone()
	return out
}

// ShaderStageBuilder builds one stage of the parent pipeline. The stage
// kind must be picked with one of the kind methods.
type ShaderStageBuilder struct {
	parent  *GraphicsPipelineBuilder
	desc    ShaderStageDescription
	kindSet bool
}

func (s *ShaderStageBuilder) kind(stage vk.ShaderStageFlagBits) *ShaderStageBuilder {
	if s.parent.state.open() {
		s.desc.Stage = stage
		s.kindSet = true
	}
	return s
}

func (s *ShaderStageBuilder) Vertex() *ShaderStageBuilder {
	return s.kind(vk.ShaderStageVertexBit)
}

func (s *ShaderStageBuilder) Fragment() *ShaderStageBuilder {
	return s.kind(vk.ShaderStageFragmentBit)
}

func (s *ShaderStageBuilder) Geometry() *ShaderStageBuilder {
	return s.kind(vk.ShaderStageGeometryBit)
}

func (s *ShaderStageBuilder) TessellationControl() *ShaderStageBuilder {
	return s.kind(vk.ShaderStageTessellationControlBit)
}

func (s *ShaderStageBuilder) TessellationEvaluation() *ShaderStageBuilder {
	return s.kind(vk.ShaderStageTessellationEvaluationBit)
}

// Compute is accepted so that descriptions can be shared with compute
// pipelines, but a graphics pipeline rejects it at Config.
func (s *ShaderStageBuilder) Compute() *ShaderStageBuilder {
	return s.kind(vk.ShaderStageComputeBit)
}

func (s *ShaderStageBuilder) Module(module ShaderModuleRef) *ShaderStageBuilder {
	if s.parent.state.open() {
		s.desc.Module = module
	}
	return s
}

// EntryPoint overrides the default "main" entry point.
func (s *ShaderStageBuilder) EntryPoint(name string) *ShaderStageBuilder {
	if s.parent.state.open() {
		s.desc.EntryPoint = name
	}
	return s
}

func (s *ShaderStageBuilder) Flags(flags vk.PipelineShaderStageCreateFlags) *ShaderStageBuilder {
	if s.parent.state.open() {
		s.desc.Flags = flags
	}
	return s
}

// Specialize sets a 32-bit specialization constant.
func (s *ShaderStageBuilder) Specialize(constantID, value uint32) *ShaderStageBuilder {
	if !s.parent.state.open() {
		return s
	}
	spec := &s.desc.Specialization
	spec.Entries = append(spec.Entries, SpecializationEntry{
		ConstantID: constantID,
		Offset:     uint32(len(spec.Data)),
		Size:       4,
	})
	spec.Data = binary.LittleEndian.AppendUint32(spec.Data, value)
	return s
}

func (s *ShaderStageBuilder) describe(index uint32) (ShaderStageDescription, error) {
	if !s.kindSet {
		return ShaderStageDescription{}, incomplete(RefShaderStage, index, "stage kind not set")
	}
	if s.desc.Stage == vk.ShaderStageComputeBit {
		return ShaderStageDescription{}, invalidValue(RefShaderStage, index, "compute stage in a graphics pipeline")
	}
	if s.desc.Module.IsZero() {
		return ShaderStageDescription{}, incomplete(RefShaderStage, index, "no shader module")
	}
	if s.desc.EntryPoint == "" {
		return ShaderStageDescription{}, incomplete(RefShaderStage, index, "empty entry point")
	}
	seen := make(map[uint32]struct{}, len(s.desc.Specialization.Entries))
	for _, e := range s.desc.Specialization.Entries {
		if _, dup := seen[e.ConstantID]; dup {
			return ShaderStageDescription{}, duplicateIndex(RefSpecializationConstant, e.ConstantID)
		}
		seen[e.ConstantID] = struct{}{}
	}
	return s.desc.clone(), nil
}
