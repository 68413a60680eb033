package vault

import (
	"unsafe"

	iter_util "github.com/TheBitDrifter/util/iter"
	"github.com/rotisserie/eris"
)

// With pairs the component type with an initial value for use in spawn
// bundles, AddComponent, and CommandBuffer operations.
func (c AccessibleComponent[T]) With(value T) Component {
	v := value
	return ComponentValue{componentType: c.componentType, ptr: unsafe.Pointer(&v)}
}

// Mut marks the component as mutably accessed when used in a query. Two
// simultaneously active queries whose access overlaps on a mutable component
// are rejected at iteration start.
func (c AccessibleComponent[T]) Mut() Component {
	return mutComponent{Component: c.componentType}
}

// GetFromCursor returns the component value at the cursor position. The
// pointer is valid until the next structural mutation.
func (c AccessibleComponent[T]) GetFromCursor(cursor *Cursor) *T {
	col := cursor.currentArchetype.columnFor(c.id)
	return (*T)(col.ptrAt(cursor.entityIndex - 1))
}

// GetFromCursorSafe checks that the component exists in the archetype at the
// cursor position before resolving it.
func (c AccessibleComponent[T]) GetFromCursorSafe(cursor *Cursor) (bool, *T) {
	if !c.CheckCursor(cursor) {
		return false, nil
	}
	return true, c.GetFromCursor(cursor)
}

// CheckCursor reports whether the component exists in the archetype at the
// cursor position.
func (c AccessibleComponent[T]) CheckCursor(cursor *Cursor) bool {
	return cursor.currentArchetype.contains(c.id)
}

// GetFromEntity resolves the component value for e. Returns false when the
// handle is stale or the entity lacks the component; a stale handle is never
// dereferenced. The pointer is valid until the next structural mutation.
func (c AccessibleComponent[T]) GetFromEntity(sto Storage, e Entity) (*T, bool) {
	ptr, err := sto.(*storage).componentPtr(e, c.id)
	if err != nil {
		return nil, false
	}
	return (*T)(ptr), true
}

// Insert stores value on e. If the entity already has the component the old
// value is replaced in place and returned; otherwise the entity migrates to
// the extended archetype. Replacement is not a structural mutation and is
// permitted while the storage is locked, but it is mutable access on the
// component type and panics while any query holding that type is active.
func (c AccessibleComponent[T]) Insert(sto Storage, e Entity, value T) (old T, replaced bool, err error) {
	s := sto.(*storage)
	ptr, perr := s.componentPtr(e, c.id)
	switch {
	case perr == nil:
		s.access.pointWrite(c.id)
		old = *(*T)(ptr)
		*(*T)(ptr) = value
		return old, true, nil
	case eris.Is(perr, ErrComponentNotFound):
		return old, false, s.AddComponent(e, c.With(value))
	default:
		return old, false, eris.Wrapf(perr, "insert %s", c.typ.String())
	}
}

// Remove strips the component from e and returns the removed value. Removing
// a component the entity does not have reports false without error; only a
// stale handle (or a locked storage) is an error.
func (c AccessibleComponent[T]) Remove(sto Storage, e Entity) (old T, removed bool, err error) {
	s := sto.(*storage)
	ptr, perr := s.componentPtr(e, c.id)
	if perr != nil {
		if eris.Is(perr, ErrComponentNotFound) {
			return old, false, nil
		}
		return old, false, eris.Wrapf(perr, "remove %s", c.typ.String())
	}
	old = *(*T)(ptr)
	if err := s.RemoveComponent(e, c.componentType); err != nil {
		return old, false, err
	}
	return old, true, nil
}

// Has reports whether e currently has the component.
func (c AccessibleComponent[T]) Has(sto Storage, e Entity) bool {
	return sto.HasComponent(e, c.componentType)
}

// Count returns the number of live entities that have the component.
func (c AccessibleComponent[T]) Count(sto Storage) int {
	total := 0
	sto.EachArchetype(func(sig Signature, entities []Entity) bool {
		if sig.Contains(c.componentType) {
			total += len(entities)
		}
		return true
	})
	return total
}

// Entities returns the live entities that have the component, in archetype
// order. The slice is freshly allocated.
func (c AccessibleComponent[T]) Entities(sto Storage) []Entity {
	cursor := newCursor(newLeafNode([]Component{c.componentType}), sto)
	return iter_util.Collect(cursor.Entities())
}

// EnqueueInsert queues an insert on buf for the next Apply.
func (c AccessibleComponent[T]) EnqueueInsert(buf *CommandBuffer, e Entity, value T) {
	buf.Add(e, c.With(value))
}

// EnqueueRemove queues a removal on buf for the next Apply.
func (c AccessibleComponent[T]) EnqueueRemove(buf *CommandBuffer, e Entity) {
	buf.Remove(e, c.componentType)
}
