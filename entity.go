package vault

// Entity is a lightweight handle identifying a logical object. It carries no
// data itself and is freely copyable. The generation distinguishes the current
// occupant of an index from earlier, destroyed occupants.
//
// The zero Entity is never valid; generations start at 1.
type Entity struct {
	ID         uint32
	Generation uint32
}

// entityLocation records where an entity's data lives. It is the single
// source of truth and is updated in the same operation as every migration.
type entityLocation struct {
	archetype archetypeID
	row       int
}

type entitySlot struct {
	location   entityLocation
	generation uint32
	alive      bool
}

// entityIndex maps entity handles to storage locations in O(1) via a dense
// slot array and a free list. Freed indices are reused with an incremented
// generation so stale handles are rejected, never dereferenced.
type entityIndex struct {
	slots      []entitySlot
	freeIDs    []uint32
	aliveCount int
}

func (idx *entityIndex) allocate() Entity {
	idx.aliveCount++
	if n := len(idx.freeIDs); n > 0 {
		id := idx.freeIDs[n-1]
		idx.freeIDs = idx.freeIDs[:n-1]
		slot := &idx.slots[id]
		slot.alive = true
		return Entity{ID: id, Generation: slot.generation}
	}
	idx.slots = append(idx.slots, entitySlot{generation: 1, alive: true})
	return Entity{ID: uint32(len(idx.slots) - 1), Generation: 1}
}

// free invalidates e, bumps its generation, and returns its index to the free
// list. Reports false for stale or unknown handles.
func (idx *entityIndex) free(e Entity) bool {
	if !idx.alive(e) {
		return false
	}
	slot := &idx.slots[e.ID]
	slot.generation++
	slot.alive = false
	slot.location = entityLocation{}
	idx.freeIDs = append(idx.freeIDs, e.ID)
	idx.aliveCount--
	return true
}

func (idx *entityIndex) alive(e Entity) bool {
	if int(e.ID) >= len(idx.slots) {
		return false
	}
	slot := idx.slots[e.ID]
	return slot.alive && slot.generation == e.Generation
}

func (idx *entityIndex) locationOf(e Entity) (entityLocation, bool) {
	if !idx.alive(e) {
		return entityLocation{}, false
	}
	return idx.slots[e.ID].location, true
}

func (idx *entityIndex) setLocation(e Entity, loc entityLocation) {
	if !idx.alive(e) {
		return
	}
	idx.slots[e.ID].location = loc
}
