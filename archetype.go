package vault

import (
	"slices"
	"unsafe"

	"github.com/TheBitDrifter/mask"
)

type archetypeID uint32

// archetype stores every entity sharing one component-type signature: one
// column per component type plus a parallel entity list. All columns and the
// entity list have identical length at every observable point.
type archetype struct {
	id       archetypeID
	mask     mask.Mask
	order    []componentType // sorted by ComponentID
	columns  []*column       // parallel to order
	slots    [MaxComponentTypes]int16
	entities []Entity
}

func newArchetype(id archetypeID, comps []componentType) *archetype {
	sorted := slices.Clone(comps)
	slices.SortFunc(sorted, func(a, b componentType) int {
		return int(a.id) - int(b.id)
	})
	sorted = slices.CompactFunc(sorted, func(a, b componentType) bool {
		return a.id == b.id
	})

	a := &archetype{id: id, order: sorted}
	for i := range a.slots {
		a.slots[i] = -1
	}
	a.columns = make([]*column, len(sorted))
	for i, ct := range sorted {
		a.mask.Mark(uint32(ct.id))
		a.columns[i] = newColumn(ct)
		a.slots[ct.id] = int16(i)
	}
	return a
}

func (a *archetype) ID() uint32 {
	return uint32(a.id)
}

func (a *archetype) Len() int {
	return len(a.entities)
}

func (a *archetype) contains(id ComponentID) bool {
	return a.slots[id] >= 0
}

func (a *archetype) columnFor(id ComponentID) *column {
	slot := a.slots[id]
	if slot < 0 {
		return nil
	}
	return a.columns[slot]
}

// pushRow appends e with one value per column, in lockstep. values is indexed
// like columns; nil entries are zero-initialized. All columns are grown
// before any write so a row is never partially inserted.
func (a *archetype) pushRow(e Entity, values []unsafe.Pointer) int {
	needed := len(a.entities) + 1
	for _, col := range a.columns {
		col.ensure(needed)
	}
	row := len(a.entities)
	a.entities = append(a.entities, e)
	for i, col := range a.columns {
		col.push(values[i])
	}
	return row
}

// swapRemoveRow removes row from the entity list and every column in
// lockstep. It returns the entity that was moved into the vacated row, if
// any, so the caller can update its recorded location.
func (a *archetype) swapRemoveRow(row int) (moved Entity, ok bool) {
	last := len(a.entities) - 1
	if row != last {
		moved = a.entities[last]
		a.entities[row] = moved
		ok = true
	}
	a.entities = a.entities[:last]
	for _, col := range a.columns {
		col.swapRemove(row)
	}
	return moved, ok
}

// signature returns the public view of the archetype's component set.
func (a *archetype) signature() Signature {
	ids := make([]ComponentID, len(a.order))
	for i, ct := range a.order {
		ids[i] = ct.id
	}
	return Signature{mask: a.mask, ids: ids}
}
