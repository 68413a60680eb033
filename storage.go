package vault

import (
	"fmt"
	"unsafe"

	"github.com/TheBitDrifter/mask"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

var _ Storage = &storage{}

// storage is the single owner gluing the entity index, the archetype table,
// and the deferred operation queue. It is synchronous and single-threaded by
// contract; consumers receive it by explicit reference, never ambiently.
type storage struct {
	index      entityIndex
	archetypes archetypes
	deferred   CommandBuffer
	access     accessTracker
	locks      int
	log        zerolog.Logger
}

type archetypes struct {
	nextID           archetypeID
	asSlice          []*archetype
	idsGroupedByMask map[mask.Mask]archetypeID

	// version increments whenever an archetype is created, invalidating
	// cached query resolutions.
	version uint32
}

func (a *archetypes) byID(id archetypeID) *archetype {
	return a.asSlice[id-1]
}

func newStorage() Storage {
	sto := &storage{
		archetypes: archetypes{
			nextID:           1,
			idsGroupedByMask: make(map[mask.Mask]archetypeID),
		},
		log: Config.logger,
	}
	return sto
}

// getOrCreateArchetype resolves the archetype for the given component set,
// creating it on first use. Archetypes are retained once created, even with
// zero remaining rows, so repopulating a signature never reallocates.
func (sto *storage) getOrCreateArchetype(comps []componentType) *archetype {
	var sigMask mask.Mask
	for _, ct := range comps {
		sigMask.Mark(uint32(ct.id))
	}
	if id, found := sto.archetypes.idsGroupedByMask[sigMask]; found {
		return sto.archetypes.byID(id)
	}
	created := newArchetype(sto.archetypes.nextID, comps)
	sto.archetypes.asSlice = append(sto.archetypes.asSlice, created)
	sto.archetypes.idsGroupedByMask[sigMask] = created.id
	sto.archetypes.nextID++
	sto.archetypes.version++
	sto.log.Debug().
		Uint32("archetype", uint32(created.id)).
		Int("componentTypes", len(created.order)).
		Msg("archetype created")
	return created
}

// bundleEntry pairs a resolved component type with its value source (nil for
// zero initialization).
type bundleEntry struct {
	ct  componentType
	ptr unsafe.Pointer
}

// resolveBundle normalizes a spawn bundle: later entries for the same
// component type override earlier ones.
func resolveBundle(components []Component) []bundleEntry {
	entries := make([]bundleEntry, 0, len(components))
	for _, c := range components {
		entry := bundleEntry{ct: typeFor(c.TypeID()), ptr: valuePtr(c)}
		replaced := false
		for i := range entries {
			if entries[i].ct.id == entry.ct.id {
				entries[i] = entry
				replaced = true
				break
			}
		}
		if !replaced {
			entries = append(entries, entry)
		}
	}
	return entries
}

func (sto *storage) Spawn(components ...Component) (Entity, error) {
	entities, err := sto.NewEntities(1, components...)
	if err != nil {
		return Entity{}, err
	}
	return entities[0], nil
}

func (sto *storage) NewEntities(n int, components ...Component) ([]Entity, error) {
	if sto.locks > 0 {
		return nil, eris.Wrap(ErrStorageLocked, "cannot create entities")
	}
	entries := resolveBundle(components)
	comps := make([]componentType, len(entries))
	for i, en := range entries {
		comps[i] = en.ct
	}
	arch := sto.getOrCreateArchetype(comps)

	values := make([]unsafe.Pointer, len(arch.columns))
	for _, en := range entries {
		values[arch.slots[en.ct.id]] = en.ptr
	}

	entities := make([]Entity, n)
	for i := range entities {
		e := sto.index.allocate()
		row := arch.pushRow(e, values)
		sto.index.setLocation(e, entityLocation{archetype: arch.id, row: row})
		entities[i] = e
	}
	return entities, nil
}

func (sto *storage) DestroyEntities(entities ...Entity) error {
	if sto.locks > 0 {
		return eris.Wrap(ErrStorageLocked, "cannot destroy entities")
	}
	var firstErr error
	for _, e := range entities {
		loc, found := sto.index.locationOf(e)
		if !found {
			if firstErr == nil {
				firstErr = eris.Wrapf(ErrEntityNotFound, "destroy %d (generation %d)", e.ID, e.Generation)
			}
			continue
		}
		arch := sto.archetypes.byID(loc.archetype)
		if moved, ok := arch.swapRemoveRow(loc.row); ok {
			sto.index.setLocation(moved, loc)
		}
		sto.index.free(e)
	}
	return firstErr
}

func (sto *storage) Alive(e Entity) bool {
	return sto.index.alive(e)
}

func (sto *storage) EntityCount() int {
	return sto.index.aliveCount
}

// componentPtr resolves the storage slot for one component of one entity.
// Misses return bare sentinels; this sits on the hot path of every typed
// accessor.
func (sto *storage) componentPtr(e Entity, id ComponentID) (unsafe.Pointer, error) {
	loc, found := sto.index.locationOf(e)
	if !found {
		return nil, ErrEntityNotFound
	}
	col := sto.archetypes.byID(loc.archetype).columnFor(id)
	if col == nil {
		return nil, ErrComponentNotFound
	}
	return col.ptrAt(loc.row), nil
}

// AddComponent gives e the component type of c, migrating the entity to the
// archetype extended by that type. When the entity already has the type the
// stored value is overwritten in place (ComponentValue entries carry the new
// value; plain component types reset to zero) and no migration occurs. The
// in-place write is mutable access on the type and panics while any query
// holding it is active; use the Enqueue variants during iteration.
func (sto *storage) AddComponent(e Entity, c Component) error {
	loc, found := sto.index.locationOf(e)
	if !found {
		return eris.Wrapf(ErrEntityNotFound, "add %s to %d (generation %d)", typeNameFor(c.TypeID()), e.ID, e.Generation)
	}
	src := sto.archetypes.byID(loc.archetype)
	if col := src.columnFor(c.TypeID()); col != nil {
		sto.access.pointWrite(c.TypeID())
		col.set(loc.row, valuePtr(c))
		return nil
	}
	if sto.locks > 0 {
		return eris.Wrap(ErrStorageLocked, "cannot add component")
	}
	sto.migrate(e, loc, typeFor(c.TypeID()), valuePtr(c), false)
	return nil
}

// RemoveComponent strips the component type of c from e, migrating the entity
// to the archetype without that type. The removed value is discarded.
func (sto *storage) RemoveComponent(e Entity, c Component) error {
	loc, found := sto.index.locationOf(e)
	if !found {
		return eris.Wrapf(ErrEntityNotFound, "remove %s from %d (generation %d)", typeNameFor(c.TypeID()), e.ID, e.Generation)
	}
	src := sto.archetypes.byID(loc.archetype)
	if !src.contains(c.TypeID()) {
		return eris.Wrapf(ErrComponentNotFound, "remove %s", typeNameFor(c.TypeID()))
	}
	if sto.locks > 0 {
		return eris.Wrap(ErrStorageLocked, "cannot remove component")
	}
	sto.migrate(e, loc, typeFor(c.TypeID()), nil, true)
	return nil
}

func (sto *storage) HasComponent(e Entity, c Component) bool {
	_, err := sto.componentPtr(e, c.TypeID())
	return err == nil
}

// migrate re-homes e into the archetype with (or without) the given component
// type. Values are copied into the destination before the source row is
// removed, so a half-migrated entity is never observable; the entity index is
// updated as part of the same unit, along with the location of whichever
// entity was swapped into the vacated source row.
func (sto *storage) migrate(e Entity, loc entityLocation, ct componentType, value unsafe.Pointer, removing bool) {
	src := sto.archetypes.byID(loc.archetype)

	var comps []componentType
	if removing {
		comps = make([]componentType, 0, len(src.order)-1)
		for _, existing := range src.order {
			if existing.id != ct.id {
				comps = append(comps, existing)
			}
		}
	} else {
		comps = make([]componentType, 0, len(src.order)+1)
		comps = append(comps, src.order...)
		comps = append(comps, ct)
	}
	dst := sto.getOrCreateArchetype(comps)

	values := make([]unsafe.Pointer, len(dst.columns))
	for i, dstType := range dst.order {
		if srcCol := src.columnFor(dstType.id); srcCol != nil {
			values[i] = srcCol.ptrAt(loc.row)
		} else {
			values[i] = value
		}
	}
	row := dst.pushRow(e, values)

	if moved, ok := src.swapRemoveRow(loc.row); ok {
		sto.index.setLocation(moved, loc)
	}
	sto.index.setLocation(e, entityLocation{archetype: dst.id, row: row})
}

func (sto *storage) Locked() bool {
	return sto.locks > 0
}

func (sto *storage) Lock() {
	sto.locks++
}

// Unlock releases one lock. When the last lock is released the internal
// operation queue is applied; queue application failing indicates a bug in
// the calling system and panics.
func (sto *storage) Unlock() {
	if sto.locks == 0 {
		return
	}
	sto.locks--
	if sto.locks == 0 {
		if err := sto.deferred.Apply(sto); err != nil {
			panic(err)
		}
	}
}

func (sto *storage) EnqueueNewEntities(n int, components ...Component) error {
	if sto.locks == 0 {
		_, err := sto.NewEntities(n, components...)
		return err
	}
	sto.deferred.NewEntities(n, components...)
	return nil
}

func (sto *storage) EnqueueDestroyEntities(entities ...Entity) error {
	if sto.locks == 0 {
		return sto.DestroyEntities(entities...)
	}
	sto.deferred.Destroy(entities...)
	return nil
}

func (sto *storage) EnqueueAddComponent(e Entity, c Component) error {
	if sto.locks == 0 {
		return sto.AddComponent(e, c)
	}
	sto.deferred.Add(e, c)
	return nil
}

func (sto *storage) EnqueueRemoveComponent(e Entity, c Component) error {
	if sto.locks == 0 {
		return sto.RemoveComponent(e, c)
	}
	sto.deferred.Remove(e, c)
	return nil
}

// EachArchetype walks every archetype's signature and entity rows, including
// empty archetypes. Serialization collaborators use this to enumerate all
// data without the storage knowing anything about their formats. The entity
// slice is live storage; callers must not retain or mutate it.
func (sto *storage) EachArchetype(yield func(Signature, []Entity) bool) {
	for _, arch := range sto.archetypes.asSlice {
		if !yield(arch.signature(), arch.entities) {
			return
		}
	}
}

// accessTracker counts live query borrows per component type. Overlapping
// mutable access is a bug in the calling system, reported loudly rather than
// surfaced as a recoverable error.
type accessTracker struct {
	readers [MaxComponentTypes]int
	writers [MaxComponentTypes]int
}

func (t *accessTracker) acquire(a accessSet) {
	for _, id := range a.writeIDs {
		if t.writers[id] > 0 || t.readers[id] > 0 {
			panic(fmt.Sprintf("vault: conflicting mutable access on component %s (another query is active)", typeNameFor(id)))
		}
	}
	for _, id := range a.readIDs {
		if t.writers[id] > 0 {
			panic(fmt.Sprintf("vault: read access on component %s conflicts with an active mutable query", typeNameFor(id)))
		}
	}
	for _, id := range a.writeIDs {
		t.writers[id]++
	}
	for _, id := range a.readIDs {
		t.readers[id]++
	}
}

// pointWrite guards an in-place component write performed outside any
// cursor. The write is exclusive mutable access for its duration, so it must
// not overlap a live query borrow of the same type.
func (t *accessTracker) pointWrite(id ComponentID) {
	if t.writers[id] > 0 || t.readers[id] > 0 {
		panic(fmt.Sprintf("vault: in-place write on component %s (a query holding it is active)", typeNameFor(id)))
	}
}

func (t *accessTracker) release(a accessSet) {
	for _, id := range a.writeIDs {
		t.writers[id]--
	}
	for _, id := range a.readIDs {
		t.readers[id]--
	}
}
