package vault

import "reflect"

type factory struct{}

var Factory factory

func (f factory) NewStorage() Storage {
	return newStorage()
}

func (f factory) NewQuery() Query {
	return newQuery()
}

func (f factory) NewCursor(query QueryNode, storage Storage) *Cursor {
	return newCursor(query, storage)
}

func (f factory) NewCommandBuffer() *CommandBuffer {
	return &CommandBuffer{}
}

// FactoryNewComponent registers T (process wide, idempotent) and returns its
// typed accessor.
func FactoryNewComponent[T any]() AccessibleComponent[T] {
	ct := registerComponentType(reflect.TypeFor[T]())
	return AccessibleComponent[T]{componentType: ct}
}

func FactoryNewCache[T any](cap int) Cache[T] {
	return &SimpleCache[T]{
		itemIndices: make(map[string]int),
		maxCapacity: cap,
	}
}
