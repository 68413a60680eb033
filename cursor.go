package vault

import (
	"iter"
)

var _ iCursor = &Cursor{}

func newCursor(query QueryNode, storage Storage) *Cursor {
	return &Cursor{
		query:   query,
		storage: storage,
	}
}

// Next advances the cursor, returning false once every matching entity has
// been yielded. The first call locks the storage and registers the query's
// component access; exhaustion (or an explicit Reset) releases both,
// flushing any operations queued while iterating.
func (c *Cursor) Next() bool {
	if c.entityIndex < c.remaining {
		c.entityIndex++
		return true
	}
	return c.advance()
}

func (c *Cursor) advance() bool {
	if !c.initialized {
		c.initialize()
	}
	for c.storageIndex < len(c.matchedStorages) {
		c.currentArchetype = c.matchedStorages[c.storageIndex]
		c.remaining = c.currentArchetype.Len()

		if c.entityIndex < c.remaining {
			c.entityIndex++
			return true
		}
		c.storageIndex++
		c.entityIndex = 0
	}
	c.Reset()
	return false
}

// Entities returns a single-use iterator over the matching entities. Access
// components at the yielded position with AccessibleComponent.GetFromCursor.
func (c *Cursor) Entities() iter.Seq[Entity] {
	return func(yield func(Entity) bool) {
		for c.Next() {
			if !yield(c.CurrentEntity()) {
				c.Reset()
				return
			}
		}
	}
}

// initialize resolves the matching archetypes. The resolution is cached by
// the cursor and reused across Reset as long as no new archetype has been
// created since.
func (c *Cursor) initialize() {
	if c.initialized {
		return
	}
	sto := c.storage.(*storage)
	sto.Lock()
	sto.access.acquire(c.query.access())
	c.locked = true

	if c.matchedStorages == nil || c.matchedVersion != sto.archetypes.version {
		c.matchedStorages = c.matchedStorages[:0]
		for _, arch := range sto.archetypes.asSlice {
			if c.query.Evaluate(arch.mask) {
				c.matchedStorages = append(c.matchedStorages, arch)
			}
		}
		c.matchedVersion = sto.archetypes.version
	}
	if len(c.matchedStorages) > 0 {
		c.storageIndex = 0
		c.currentArchetype = c.matchedStorages[0]
		c.remaining = c.currentArchetype.Len()
	}
	c.initialized = true
}

// Reset rewinds the cursor and releases its hold on the storage. The matched
// archetype cache is retained for the next pass.
func (c *Cursor) Reset() {
	c.storageIndex = 0
	c.entityIndex = 0
	c.remaining = 0
	c.initialized = false
	if c.locked {
		sto := c.storage.(*storage)
		sto.access.release(c.query.access())
		c.locked = false
		sto.Unlock()
	}
}

// CurrentEntity returns the entity at the cursor position.
func (c *Cursor) CurrentEntity() Entity {
	return c.currentArchetype.entities[c.entityIndex-1]
}

func (c *Cursor) RemainingInArchetype() int {
	return c.remaining - c.entityIndex
}

// TotalMatched counts every entity the cursor would yield. Calling it mid
// iteration does not disturb the position; calling it on a fresh cursor
// initializes (and locks) it, so follow with Reset or a full iteration.
func (c *Cursor) TotalMatched() int {
	if !c.initialized {
		c.initialize()
	}
	total := 0
	for _, arch := range c.matchedStorages {
		total += arch.Len()
	}
	return total
}
