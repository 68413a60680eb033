package vault

import (
	"github.com/rotisserie/eris"
)

type operationType int

const (
	opSpawn operationType = iota
	opDestroy
	opAddComponent
	opRemoveComponent
)

type operation struct {
	typ      operationType
	amount   int
	entity   Entity
	entities []Entity
	comps    []Component
}

// CommandBuffer queues structural mutations recorded while the storage may be
// under active iteration. Nothing takes effect until Apply, the sole
// synchronization point, drains the queue in FIFO order. The backing storage
// is reused across frames.
//
// Operations referencing entities destroyed by the time they are applied are
// skipped; destruction winning over a stale queued mutation is the intended
// outcome of FIFO replay.
type CommandBuffer struct {
	ops []operation
}

// Spawn queues creation of one entity with the given bundle. ComponentValue
// entries (see AccessibleComponent.With) carry initial values; plain
// component types are zero-initialized.
func (b *CommandBuffer) Spawn(components ...Component) {
	b.NewEntities(1, components...)
}

// NewEntities queues creation of n entities sharing one bundle.
func (b *CommandBuffer) NewEntities(n int, components ...Component) {
	b.ops = append(b.ops, operation{typ: opSpawn, amount: n, comps: components})
}

// Destroy queues destruction of the given entities.
func (b *CommandBuffer) Destroy(entities ...Entity) {
	b.ops = append(b.ops, operation{typ: opDestroy, entities: entities})
}

// Add queues a component addition (or in-place replacement) on e.
func (b *CommandBuffer) Add(e Entity, c Component) {
	b.ops = append(b.ops, operation{typ: opAddComponent, entity: e, comps: []Component{c}})
}

// Remove queues a component removal on e.
func (b *CommandBuffer) Remove(e Entity, c Component) {
	b.ops = append(b.ops, operation{typ: opRemoveComponent, entity: e, comps: []Component{c}})
}

// Len reports the number of queued operations.
func (b *CommandBuffer) Len() int {
	return len(b.ops)
}

// Apply drains the queue against sto in FIFO order. Applying an empty buffer
// is a no-op; applying while the storage is locked is an error (the driver
// must apply between phases, never inside one).
func (b *CommandBuffer) Apply(sto Storage) error {
	if len(b.ops) == 0 {
		return nil
	}
	s := sto.(*storage)
	if s.Locked() {
		return eris.Wrap(ErrStorageLocked, "cannot apply command buffer")
	}
	for i := range b.ops {
		op := &b.ops[i]
		switch op.typ {
		case opSpawn:
			if _, err := s.NewEntities(op.amount, op.comps...); err != nil {
				return eris.Wrap(err, "queued spawn")
			}
		case opDestroy:
			for _, e := range op.entities {
				if !s.Alive(e) {
					continue
				}
				if err := s.DestroyEntities(e); err != nil {
					return eris.Wrap(err, "queued destroy")
				}
			}
		case opAddComponent:
			if !s.Alive(op.entity) {
				continue
			}
			if err := s.AddComponent(op.entity, op.comps[0]); err != nil {
				return eris.Wrap(err, "queued add component")
			}
		case opRemoveComponent:
			if !s.Alive(op.entity) {
				continue
			}
			if err := s.RemoveComponent(op.entity, op.comps[0]); err != nil && !eris.Is(err, ErrComponentNotFound) {
				return eris.Wrap(err, "queued remove component")
			}
		}
	}
	applied := len(b.ops)
	b.ops = b.ops[:0]
	s.log.Debug().Int("operations", applied).Msg("command buffer applied")
	return nil
}
