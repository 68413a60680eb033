package vault

import (
	"github.com/TheBitDrifter/mask"
)

type Operation int

const (
	OpAnd Operation = iota
	OpOr
	OpNot
)

// accessSet records which component types a query reads and writes. An
// external scheduler can compare two queries' sets to prove their systems
// touch disjoint data; the storage compares them at iteration time to reject
// overlapping mutable borrows.
type accessSet struct {
	reads    mask.Mask
	writes   mask.Mask
	readIDs  []ComponentID
	writeIDs []ComponentID
}

func (a *accessSet) addRead(id ComponentID) {
	var bit mask.Mask
	bit.Mark(uint32(id))
	if a.reads.ContainsAll(bit) || a.writes.ContainsAll(bit) {
		return
	}
	a.reads.Mark(uint32(id))
	a.readIDs = append(a.readIDs, id)
}

func (a *accessSet) addWrite(id ComponentID) {
	var bit mask.Mask
	bit.Mark(uint32(id))
	if a.writes.ContainsAll(bit) {
		return
	}
	if a.reads.ContainsAll(bit) {
		// promote
		a.reads.Unmark(uint32(id))
		for i, rid := range a.readIDs {
			if rid == id {
				a.readIDs = append(a.readIDs[:i], a.readIDs[i+1:]...)
				break
			}
		}
	}
	a.writes.Mark(uint32(id))
	a.writeIDs = append(a.writeIDs, id)
}

func (a *accessSet) merge(other accessSet) {
	for _, id := range other.writeIDs {
		a.addWrite(id)
	}
	for _, id := range other.readIDs {
		a.addRead(id)
	}
}

// QueriesConflict reports whether two queries may not run concurrently: one
// writes a component type the other reads or writes.
func QueriesConflict(a, b QueryNode) bool {
	aa, ba := a.access(), b.access()
	return aa.writes.ContainsAny(ba.writes) ||
		aa.writes.ContainsAny(ba.reads) ||
		ba.writes.ContainsAny(aa.reads)
}

// mutComponent marks a component as mutably accessed within a query.
type mutComponent struct {
	Component
}

type compositeNode struct {
	op         Operation
	children   []QueryNode
	components []Component
	nodeMask   mask.Mask
	acc        accessSet
}

type leafNode struct {
	components []Component
	nodeMask   mask.Mask
	acc        accessSet
}

type query struct {
	root QueryNode
}

func newQuery() Query {
	return &query{}
}

func newCompositeNode(op Operation, components []Component, children []QueryNode) *compositeNode {
	n := &compositeNode{
		op:         op,
		children:   children,
		components: components,
	}
	for _, c := range components {
		n.nodeMask.Mark(uint32(c.TypeID()))
	}
	// Excluded component types are never touched, so Not contributes no
	// access of its own.
	if op != OpNot {
		for _, c := range components {
			if m, mutable := c.(mutComponent); mutable {
				n.acc.addWrite(m.TypeID())
			} else {
				n.acc.addRead(c.TypeID())
			}
		}
	}
	for _, child := range children {
		n.acc.merge(child.access())
	}
	return n
}

func newLeafNode(components []Component) *leafNode {
	n := &leafNode{components: components}
	for _, c := range components {
		n.nodeMask.Mark(uint32(c.TypeID()))
		if m, mutable := c.(mutComponent); mutable {
			n.acc.addWrite(m.TypeID())
		} else {
			n.acc.addRead(c.TypeID())
		}
	}
	return n
}

func (n *compositeNode) Evaluate(sig mask.Mask) bool {
	switch n.op {
	case OpAnd:
		if !sig.ContainsAll(n.nodeMask) {
			return false
		}
		for _, child := range n.children {
			if !child.Evaluate(sig) {
				return false
			}
		}
		return true

	case OpOr:
		if len(n.components) > 0 && sig.ContainsAny(n.nodeMask) {
			return true
		}
		for _, child := range n.children {
			if child.Evaluate(sig) {
				return true
			}
		}
		return false

	case OpNot:
		if len(n.children) == 0 {
			return sig.ContainsNone(n.nodeMask)
		}
		for _, child := range n.children {
			if child.Evaluate(sig) {
				return false
			}
		}
		return sig.ContainsNone(n.nodeMask)
	}
	return false
}

func (n *compositeNode) access() accessSet {
	return n.acc
}

func (n *leafNode) Evaluate(sig mask.Mask) bool {
	return sig.ContainsAll(n.nodeMask)
}

func (n *leafNode) access() accessSet {
	return n.acc
}

func (q *query) And(items ...interface{}) QueryNode {
	components, children := q.processItems(items...)
	// Component-only conjunctions are a plain mask containment check; no
	// node tree needed.
	var node QueryNode
	if len(children) == 0 {
		node = newLeafNode(components)
	} else {
		node = newCompositeNode(OpAnd, components, children)
	}
	if q.root == nil {
		q.root = node
	}
	return node
}

func (q *query) Or(items ...interface{}) QueryNode {
	components, children := q.processItems(items...)
	node := newCompositeNode(OpOr, components, children)
	if q.root == nil {
		q.root = node
	}
	return node
}

func (q *query) Not(items ...interface{}) QueryNode {
	components, children := q.processItems(items...)
	node := newCompositeNode(OpNot, components, children)
	if q.root == nil {
		q.root = node
	}
	return node
}

func (q *query) processItems(items ...interface{}) ([]Component, []QueryNode) {
	components := make([]Component, 0)
	children := make([]QueryNode, 0)

	for _, item := range items {
		switch v := item.(type) {
		case Component:
			components = append(components, v)
		case []Component:
			components = append(components, v...)
		case QueryNode:
			children = append(children, v)
		}
	}

	return components, children
}

func (q *query) Evaluate(sig mask.Mask) bool {
	if q.root == nil {
		return false
	}
	return q.root.Evaluate(sig)
}

func (q *query) access() accessSet {
	if q.root == nil {
		return accessSet{}
	}
	return q.root.access()
}
