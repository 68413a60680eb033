/*
Package vault provides archetype-based entity-component storage for games and
simulations.

Entities are generational handles, components are plain data, and entities
sharing the same set of component types are stored together column-wise for
cache-friendly iteration. Structural mutation (spawn, destroy, add, remove)
is rejected while any cursor is iterating; deferred variants queue the work
into a command buffer that is applied at an explicit synchronization point.

Core Concepts:

  - Entity: A generational handle identifying an object; stale handles are
    rejected, never dereferenced.
  - Component: A plain data value attached to at most one slot per entity.
  - Archetype: All entities sharing one component signature, stored together.
  - Query: A filter over archetype signatures with read/write access markers.
  - CommandBuffer: Deferred structural mutations, applied between phases.

Basic Usage:

	// Create storage
	storage := vault.Factory.NewStorage()

	// Define components
	position := vault.FactoryNewComponent[Position]()
	velocity := vault.FactoryNewComponent[Velocity]()

	// Create entities
	entities, _ := storage.NewEntities(100, position, velocity)
	_ = entities

	// Query entities and process them
	query := vault.Factory.NewQuery()
	queryNode := query.And(position.Mut(), velocity)
	cursor := vault.Factory.NewCursor(queryNode, storage)

	for cursor.Next() {
		pos := position.GetFromCursor(cursor)
		vel := velocity.GetFromCursor(cursor)
		pos.X += vel.X
		pos.Y += vel.Y
	}

The storage is synchronous and single-threaded by contract. Queries declare
the component types they read and write, and QueriesConflict lets an external
scheduler prove two systems touch disjoint data before running them in
parallel; overlapping mutable access from two live cursors panics.
*/
package vault
