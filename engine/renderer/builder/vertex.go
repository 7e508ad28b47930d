package builder

import (
	"math"
	"slices"
	"strconv"

	vk "github.com/goki/vulkan"
)

/**
 * @brief One vertex shader input slot read from a binding.
 */
type VertexAttributeDescription struct {
	Location uint32
	Binding  uint32
	Offset   uint32
	Format   vk.Format
}

/**
 * @brief One vertex buffer binding and the attributes read from it,
 * in declaration order.
 */
type VertexBindingDescription struct {
	Binding    uint32
	Stride     uint32
	InputRate  vk.VertexInputRate
	Attributes []VertexAttributeDescription
}

func (b VertexBindingDescription) clone() VertexBindingDescription {
	out := b
	out.Attributes = slices.Clone(b.Attributes)
	return out
}

// VertexBindingBuilder describes one vertex buffer binding.
type VertexBindingBuilder struct {
	parent *GraphicsPipelineBuilder
	handle VertexBindingHandle
	desc   VertexBindingDescription
}

func (v *VertexBindingBuilder) Handle() VertexBindingHandle {
	return v.handle
}

func (v *VertexBindingBuilder) Stride(stride uint32) *VertexBindingBuilder {
	if v.parent.state.open() {
		v.desc.Stride = stride
	}
	return v
}

func (v *VertexBindingBuilder) InputRate(rate vk.VertexInputRate) *VertexBindingBuilder {
	if v.parent.state.open() {
		v.desc.InputRate = rate
	}
	return v
}

// Attribute appends one attribute slot.
func (v *VertexBindingBuilder) Attribute(location, offset uint32, format vk.Format) *VertexBindingBuilder {
	if v.parent.state.open() {
		v.desc.Attributes = append(v.desc.Attributes, VertexAttributeDescription{
			Location: location,
			Binding:  v.desc.Binding,
			Offset:   offset,
			Format:   format,
		})
	}
	return v
}

// Attributes appends count consecutive slots of the same format, the way a
// mat4 is fed as four vec4 columns: slot i is at location startLocation+i
// and offset startOffset+i*size(format).
func (v *VertexBindingBuilder) Attributes(startLocation, startOffset, count uint32, format vk.Format) *VertexBindingBuilder {
	if !v.parent.state.open() {
		return v
	}
	size, ok := FormatSize(format)
	if !ok {
		v.parent.state.fail(invalidValue(RefAttributeLocation, startLocation, "no element size known for format %d", format))
		return v
	}
	if count == 0 {
		v.parent.state.fail(invalidValue(RefAttributeLocation, startLocation, "attribute count must be non-zero"))
		return v
	}
	if last := uint64(startOffset) + uint64(count-1)*uint64(size); last > math.MaxUint32 {
		v.parent.state.fail(invalidValue(RefAttributeLocation, startLocation,
			"%d attributes of %d bytes from offset %d overflow the offset range", count, size, startOffset))
		return v
	}
	if uint64(startLocation)+uint64(count-1) > math.MaxUint32 {
		v.parent.state.fail(invalidValue(RefAttributeLocation, startLocation, "%d attributes overflow the location range", count))
		return v
	}
	for i := uint32(0); i < count; i++ {
		v.desc.Attributes = append(v.desc.Attributes, VertexAttributeDescription{
			Location: startLocation + i,
			Binding:  v.desc.Binding,
			Offset:   startOffset + i*size,
			Format:   format,
		})
	}
	return v
}

// describe checks the attribute locations of this binding against the
// locations already taken by earlier bindings of the same vertex input.
func (v *VertexBindingBuilder) describe(locations map[uint32]uint32) (VertexBindingDescription, error) {
	for _, a := range v.desc.Attributes {
		if owner, dup := locations[a.Location]; dup {
			return VertexBindingDescription{}, &BuildError{
				Err:    ErrDuplicateIndex,
				Kind:   RefAttributeLocation,
				Index:  a.Location,
				Detail: "already used by vertex binding " + strconv.FormatUint(uint64(owner), 10),
			}
		}
		locations[a.Location] = v.desc.Binding
	}
	return v.desc.clone(), nil
}

// VertexInputStateBuilder collects the bindings fed to the vertex stage, in
// call order.
type VertexInputStateBuilder struct {
	parent *GraphicsPipelineBuilder
}

func (s *VertexInputStateBuilder) Binding(h VertexBindingHandle) *VertexInputStateBuilder {
	if s.parent.state.open() {
		s.parent.vertexInput = append(s.parent.vertexInput, h)
	}
	return s
}

/**
 * @brief Finalized vertex input: bindings in the order they were added.
 */
type VertexInputState struct {
	Bindings []VertexBindingDescription
}

func (s VertexInputState) clone() VertexInputState {
	if s.Bindings == nil {
		return s
	}
	out := VertexInputState{Bindings: make([]VertexBindingDescription, len(s.Bindings))}
	for i, b := range s.Bindings {
		out.Bindings[i] = b.clone()
	}
	return out
}

// Attributes flattens the attributes of every binding, binding by binding.
func (s VertexInputState) Attributes() []VertexAttributeDescription {
	var out []VertexAttributeDescription
	for _, b := range s.Bindings {
		out = append(out, b.Attributes...)
	}
	return out
}

func (s VertexInputState) IsEmpty() bool {
	return len(s.Bindings) == 0
}
