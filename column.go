package vault

import (
	"reflect"
	"unsafe"
)

// column is a type-erased, contiguous, growable array of elements whose type
// is known only through registration metadata. The backing storage is a real
// Go slice of the element type allocated through reflection, so the garbage
// collector sees correctly typed memory; all per-row access goes through raw
// pointer strides.
//
// Row indices must be validated by the caller before use; rows are not stable
// across swapRemove.
type column struct {
	typ      reflect.Type
	itemSize uintptr
	data     unsafe.Pointer
	backing  reflect.Value // keeps the backing array reachable
	len      int
	cap      int
}

func newColumn(ct componentType) *column {
	return &column{typ: ct.typ, itemSize: ct.size}
}

// ensure grows the column so that at least capacity rows fit. Growth doubles;
// allocation failure aborts the process, consistent with treating storage as
// core runtime infrastructure.
func (c *column) ensure(capacity int) {
	if capacity <= c.cap {
		return
	}
	newCap := max(capacity, 2*c.cap, 8)
	backing := reflect.MakeSlice(reflect.SliceOf(c.typ), newCap, newCap)
	if c.len > 0 {
		reflect.Copy(backing, c.backing.Slice(0, c.len))
	}
	c.backing = backing
	c.data = backing.UnsafePointer()
	c.cap = newCap
}

func (c *column) ptrAt(row int) unsafe.Pointer {
	return unsafe.Add(c.data, uintptr(row)*c.itemSize)
}

// push appends one element copied from src; a nil src appends a zero value.
func (c *column) push(src unsafe.Pointer) int {
	c.ensure(c.len + 1)
	row := c.len
	c.len++
	c.set(row, src)
	return row
}

// set overwrites the element at row with the bytes at src, or zeroes the slot
// when src is nil. The slot may hold stale bytes from a previous occupant.
func (c *column) set(row int, src unsafe.Pointer) {
	if src != nil {
		memCopy(c.ptrAt(row), src, c.itemSize)
		return
	}
	c.zero(row)
}

// copyOut copies the element at row into dst.
func (c *column) copyOut(row int, dst unsafe.Pointer) {
	memCopy(dst, c.ptrAt(row), c.itemSize)
}

// swapRemove moves the last element into row and shrinks the column by one.
// When the removed element is being migrated to another archetype the caller
// must copy it out first; either way the vacated tail slot is zeroed so the
// collector can reclaim anything it referenced.
func (c *column) swapRemove(row int) {
	last := c.len - 1
	if row != last {
		memCopy(c.ptrAt(row), c.ptrAt(last), c.itemSize)
	}
	c.zero(last)
	c.len--
}

func (c *column) zero(row int) {
	if c.itemSize == 0 {
		return
	}
	b := unsafe.Slice((*byte)(c.ptrAt(row)), c.itemSize)
	clear(b)
}

// memCopy copies size bytes from src to dst.
func memCopy(dst, src unsafe.Pointer, size uintptr) {
	if size == 0 {
		return
	}
	dstBytes := unsafe.Slice((*byte)(dst), size)
	srcBytes := unsafe.Slice((*byte)(src), size)
	copy(dstBytes, srcBytes)
}
