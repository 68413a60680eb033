package vault

import (
	"iter"

	"github.com/TheBitDrifter/mask"
)

// Storage owns all entity and component data: the entity index, the
// archetype table, and the deferred operation queue. It is the only object
// external systems hold a handle to.
//
// Structural mutations (create, destroy, add, remove) fail with
// ErrStorageLocked while any cursor is iterating; the Enqueue variants defer
// them until the last lock is released.
type Storage interface {
	Spawn(components ...Component) (Entity, error)
	NewEntities(n int, components ...Component) ([]Entity, error)
	DestroyEntities(entities ...Entity) error

	AddComponent(e Entity, c Component) error
	RemoveComponent(e Entity, c Component) error
	HasComponent(e Entity, c Component) bool

	Alive(e Entity) bool
	EntityCount() int

	EnqueueNewEntities(n int, components ...Component) error
	EnqueueDestroyEntities(entities ...Entity) error
	EnqueueAddComponent(e Entity, c Component) error
	EnqueueRemoveComponent(e Entity, c Component) error

	Locked() bool
	Lock()
	Unlock()

	EachArchetype(yield func(Signature, []Entity) bool)
}

// Component identifies a registered component type. Concrete values are
// either the type handles produced by FactoryNewComponent or the value
// entries produced by AccessibleComponent.With.
type Component interface {
	TypeID() ComponentID
}

// Query builds a filter over archetype signatures from And/Or/Not nodes.
type Query interface {
	QueryNode
	And(items ...interface{}) QueryNode
	Or(items ...interface{}) QueryNode
	Not(items ...interface{}) QueryNode
}

// QueryNode is one node of a query filter tree, evaluated against an
// archetype signature mask.
type QueryNode interface {
	Evaluate(sig mask.Mask) bool
	access() accessSet
}

// Signature is the sorted, deduplicated set of component types defining an
// archetype, exposed to enumeration collaborators.
type Signature struct {
	mask mask.Mask
	ids  []ComponentID
}

func (s Signature) Mask() mask.Mask { return s.mask }

// ComponentIDs returns the signature's component types in ID order. The
// slice is shared; callers must not mutate it.
func (s Signature) ComponentIDs() []ComponentID { return s.ids }

func (s Signature) Contains(c Component) bool {
	var bit mask.Mask
	bit.Mark(uint32(c.TypeID()))
	return s.mask.ContainsAll(bit)
}

type iCursor interface {
	Entities() iter.Seq[Entity]
	Next() bool
}

// Cache is a bounded, string-keyed append-only index. The component registry
// is built on it.
type Cache[T any] interface {
	GetIndex(string) (int, bool)
	GetItem(int) *T
	GetItem32(uint32) *T
	Register(string, T) (int, error)
}

// Warning: internal dependencies abound!
type Cursor struct {
	// The query to filter entities
	query QueryNode

	// The storage to iterate over
	storage Storage

	// Current iteration state
	currentArchetype *archetype
	storageIndex     int
	entityIndex      int
	remaining        int

	// Initialization state
	initialized     bool
	locked          bool
	matchedStorages []*archetype
	matchedVersion  uint32
}

// AccessibleComponent pairs a component type handle with typed access to its
// storage. Create one per component type with FactoryNewComponent and share
// it; all methods are cheap value calls.
type AccessibleComponent[T any] struct {
	componentType
}

type SimpleCache[T any] struct {
	items       []T
	itemIndices map[string]int
	maxCapacity int
}
