package vault

import (
	"reflect"
	"unsafe"

	"github.com/rotisserie/eris"
)

// MaxComponentTypes bounds the number of distinct component types a process
// can register. Each type occupies one signature bit.
const MaxComponentTypes = 64

// ComponentID identifies a registered component type. IDs are assigned once
// per Go type, process wide, and double as signature bit positions.
type ComponentID uint32

// componentType is the layout metadata recorded at registration: the Go type,
// its size, and its assigned ID. It is the concrete Component carried by
// every AccessibleComponent.
type componentType struct {
	typ  reflect.Type
	size uintptr
	id   ComponentID
}

func (c componentType) TypeID() ComponentID { return c.id }

// registry holds all registered component types, densely indexed by
// ComponentID and keyed by the type's string form.
var registry = FactoryNewCache[componentType](MaxComponentTypes)

// registerComponentType assigns (or retrieves) the ComponentID for typ.
// The registry index and the ID are the same value.
func registerComponentType(typ reflect.Type) componentType {
	key := typ.String()
	if idx, found := registry.GetIndex(key); found {
		return *registry.GetItem(idx)
	}
	idx, err := registry.Register(key, componentType{typ: typ, size: typ.Size()})
	if err != nil {
		panic(eris.Wrapf(ErrTooManyComponentTypes, "registering %s (limit %d)", key, MaxComponentTypes))
	}
	ct := registry.GetItem(idx)
	ct.id = ComponentID(idx)
	return *ct
}

// typeFor returns the layout metadata for a registered ID.
func typeFor(id ComponentID) componentType {
	return *registry.GetItem32(uint32(id))
}

func typeNameFor(id ComponentID) string {
	return typeFor(id).typ.String()
}

// ComponentValue is a bundle entry pairing a component type with an explicit
// initial value. Produced by AccessibleComponent.With; consumed by spawn,
// AddComponent, and CommandBuffer operations. The value bytes are copied into
// column storage when the entry is applied.
type ComponentValue struct {
	componentType
	ptr unsafe.Pointer
}

// valuePtr returns the source pointer for c, which is nil for plain component
// types (zero-initialized) and non-nil for ComponentValue entries.
func valuePtr(c Component) unsafe.Pointer {
	if cv, ok := c.(ComponentValue); ok {
		return cv.ptr
	}
	return nil
}
