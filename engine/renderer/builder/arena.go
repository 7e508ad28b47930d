package builder

import (
	"github.com/google/uuid"
	"golang.org/x/exp/constraints"
)

/**
 * @brief Shared staging state of a top-level builder and all of its
 * sub-builders. The first recorded error sticks until Config.
 */
type state struct {
	/** @brief Identity of the owning top-level builder. Handles carry it. */
	id uuid.UUID
	/** @brief Set once Config has been called, successfully or not. */
	finalized bool
	/** @brief The first error recorded by a chained call. */
	err error
}

func newState() *state {
	return &state{id: uuid.New()}
}

// open reports whether the builder still accepts calls. A call on a
// finalized builder records ErrAlreadyFinalized.
func (s *state) open() bool {
	if s.finalized {
		s.err = ErrAlreadyFinalized
		return false
	}
	return true
}

func (s *state) fail(err error) {
	if s.err == nil {
		s.err = err
	}
}

// finalize moves the builder to its terminal state and returns whatever
// error the chained calls recorded.
func (s *state) finalize() error {
	if s.finalized {
		s.err = ErrAlreadyFinalized
		return ErrAlreadyFinalized
	}
	s.finalized = true
	return s.err
}

// Handle is an opaque reference to an entity registered in a builder's
// arena. It only resolves against the builder instance that issued it.
type Handle[T any] struct {
	owner uuid.UUID
	index uint32
}

// Index is the 0-based registration slot of the referenced entity.
func (h Handle[T]) Index() uint32 {
	return h.index
}

// Owner is the identity of the builder that issued the handle.
func (h Handle[T]) Owner() uuid.UUID {
	return h.owner
}

func (h Handle[T]) IsZero() bool {
	return h.owner == uuid.Nil
}

type (
	AttachmentHandle    = Handle[AttachmentDescription]
	SubpassHandle       = Handle[SubpassDescription]
	VertexBindingHandle = Handle[VertexBindingDescription]
)

// arena stores entries of type E in registration order and issues handles
// typed by the description D they finalize into.
type arena[E any, D any] struct {
	owner   uuid.UUID
	kind    RefKind
	entries []E
}

func newArena[E any, D any](owner uuid.UUID, kind RefKind) *arena[E, D] {
	return &arena[E, D]{owner: owner, kind: kind}
}

func (a *arena[E, D]) add(e E) Handle[D] {
	a.entries = append(a.entries, e)
	return Handle[D]{owner: a.owner, index: uint32(len(a.entries) - 1)}
}

func (a *arena[E, D]) resolve(h Handle[D]) (E, error) {
	var zero E
	if h.owner != a.owner || int(h.index) >= len(a.entries) {
		return zero, unknownReference(a.kind, h.index)
	}
	return a.entries[h.index], nil
}

func (a *arena[E, D]) len() int {
	return len(a.entries)
}

func isAligned[T constraints.Unsigned](v, alignment T) bool {
	return v%alignment == 0
}

// fitsWithin reports whether [offset, offset+size) lies inside [0, limit)
// without the sum wrapping around.
func fitsWithin[T constraints.Unsigned](offset, size, limit T) bool {
	return offset <= limit && size <= limit-offset
}
