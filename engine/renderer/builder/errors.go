package builder

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownReference is returned when a handle or index does not resolve
	// inside the builder that owns the reference.
	ErrUnknownReference = errors.New("unknown reference")
	// ErrDuplicateIndex is returned when two entries claim the same binding
	// index, attribute location, stage kind or push constant bytes.
	ErrDuplicateIndex = errors.New("duplicate index")
	// ErrAttachmentCountMismatch is returned when two attachment lists that
	// must line up have different lengths.
	ErrAttachmentCountMismatch = errors.New("attachment count mismatch")
	// ErrAlreadyFinalized is returned by any call made on a builder after its
	// Config has been called.
	ErrAlreadyFinalized = errors.New("builder already finalized")
	// ErrIncomplete is returned when a required field was never set.
	ErrIncomplete = errors.New("incomplete description")
	// ErrInvalidValue is returned for values the native API would reject
	// outright (zero sizes, misaligned ranges, unknown format sizes).
	ErrInvalidValue = errors.New("invalid value")
)

type RefKind int

const (
	RefAttachment RefKind = iota
	RefSubpass
	RefDependency
	RefShaderStage
	RefVertexBinding
	RefAttributeLocation
	RefDescriptorBinding
	RefDescriptorSet
	RefPushConstantRange
	RefSpecializationConstant
	RefDynamicState
	RefColorBlendAttachment
)

func (k RefKind) String() string {
	switch k {
	case RefAttachment:
		return "attachment"
	case RefSubpass:
		return "subpass"
	case RefDependency:
		return "dependency"
	case RefShaderStage:
		return "shader stage"
	case RefVertexBinding:
		return "vertex binding"
	case RefAttributeLocation:
		return "attribute location"
	case RefDescriptorBinding:
		return "descriptor binding"
	case RefDescriptorSet:
		return "descriptor set"
	case RefPushConstantRange:
		return "push constant range"
	case RefSpecializationConstant:
		return "specialization constant"
	case RefDynamicState:
		return "dynamic state"
	case RefColorBlendAttachment:
		return "color blend attachment"
	default:
		return fmt.Sprintf("RefKind(%d)", int(k))
	}
}

// BuildError carries the entity kind and index a validation failure is
// about. Err is always one of the package sentinels.
type BuildError struct {
	Err    error
	Kind   RefKind
	Index  uint32
	Detail string
}

func (e *BuildError) Error() string {
	msg := fmt.Sprintf("%s: %s %d", e.Err, e.Kind, e.Index)
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return msg
}

func (e *BuildError) Unwrap() error {
	return e.Err
}

func unknownReference(kind RefKind, index uint32) error {
	return &BuildError{Err: ErrUnknownReference, Kind: kind, Index: index}
}

func duplicateIndex(kind RefKind, index uint32) error {
	return &BuildError{Err: ErrDuplicateIndex, Kind: kind, Index: index}
}

func countMismatch(kind RefKind, index uint32, format string, args ...any) error {
	return &BuildError{Err: ErrAttachmentCountMismatch, Kind: kind, Index: index, Detail: fmt.Sprintf(format, args...)}
}

func incomplete(kind RefKind, index uint32, format string, args ...any) error {
	return &BuildError{Err: ErrIncomplete, Kind: kind, Index: index, Detail: fmt.Sprintf(format, args...)}
}

func invalidValue(kind RefKind, index uint32, format string, args ...any) error {
	return &BuildError{Err: ErrInvalidValue, Kind: kind, Index: index, Detail: fmt.Sprintf(format, args...)}
}
