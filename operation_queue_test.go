package vault

import (
	"errors"
	"testing"
)

func TestCommandBufferFIFO(t *testing.T) {
	storage := Factory.NewStorage()
	posComp := FactoryNewComponent[Position]()
	healthComp := FactoryNewComponent[Health]()

	e, err := storage.Spawn(posComp)
	if err != nil {
		t.Fatal(err)
	}

	// Add then remove for the same entity must replay in order, leaving the
	// component absent.
	buf := Factory.NewCommandBuffer()
	buf.Add(e, healthComp.With(Health{Value: 7}))
	buf.Remove(e, healthComp)
	if buf.Len() != 2 {
		t.Fatalf("buffered ops: %d, want 2", buf.Len())
	}
	if err := buf.Apply(storage); err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if storage.HasComponent(e, healthComp) {
		t.Error("add then remove should leave component absent")
	}
	if buf.Len() != 0 {
		t.Errorf("buffer not drained, %d ops remain", buf.Len())
	}

	// Reversed order leaves it present with the queued value.
	buf.Remove(e, healthComp)
	buf.Add(e, healthComp.With(Health{Value: 9}))
	if err := buf.Apply(storage); err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	hp, found := healthComp.GetFromEntity(storage, e)
	if !found || hp.Value != 9 {
		t.Errorf("remove then add: found=%v hp=%v, want Value 9", found, hp)
	}
}

func TestCommandBufferSpawnAndDestroy(t *testing.T) {
	storage := Factory.NewStorage()
	posComp := FactoryNewComponent[Position]()

	buf := Factory.NewCommandBuffer()
	buf.NewEntities(5, posComp)
	if err := buf.Apply(storage); err != nil {
		t.Fatal(err)
	}
	if storage.EntityCount() != 5 {
		t.Fatalf("entity count: %d, want 5", storage.EntityCount())
	}

	cursor := Factory.NewCursor(Factory.NewQuery().And(posComp), storage)
	var all []Entity
	for cursor.Next() {
		all = append(all, cursor.CurrentEntity())
	}

	buf.Destroy(all[:2]...)
	if err := buf.Apply(storage); err != nil {
		t.Fatal(err)
	}
	if storage.EntityCount() != 3 {
		t.Errorf("entity count after destroy: %d, want 3", storage.EntityCount())
	}
}

// TestCommandBufferSkipsDeadEntities checks ops against destroyed or stale
// entities are dropped silently at apply time.
func TestCommandBufferSkipsDeadEntities(t *testing.T) {
	storage := Factory.NewStorage()
	posComp := FactoryNewComponent[Position]()
	healthComp := FactoryNewComponent[Health]()

	e, err := storage.Spawn(posComp)
	if err != nil {
		t.Fatal(err)
	}

	buf := Factory.NewCommandBuffer()
	buf.Add(e, healthComp)
	buf.Destroy(e)
	buf.Add(e, healthComp)    // entity is dead by now
	buf.Remove(e, healthComp) // same
	buf.Destroy(e)            // double destroy
	if err := buf.Apply(storage); err != nil {
		t.Fatalf("apply should tolerate dead entities: %v", err)
	}
	if storage.Alive(e) {
		t.Error("entity should be destroyed")
	}
	if storage.EntityCount() != 0 {
		t.Errorf("entity count: %d, want 0", storage.EntityCount())
	}
}

func TestCommandBufferEmptyApply(t *testing.T) {
	storage := Factory.NewStorage()
	buf := Factory.NewCommandBuffer()
	if err := buf.Apply(storage); err != nil {
		t.Errorf("empty apply: %v", err)
	}
}

func TestCommandBufferApplyWhileLocked(t *testing.T) {
	storage := Factory.NewStorage()
	posComp := FactoryNewComponent[Position]()
	if _, err := storage.Spawn(posComp); err != nil {
		t.Fatal(err)
	}

	storage.Lock()
	defer storage.Unlock()

	buf := Factory.NewCommandBuffer()
	buf.NewEntities(1, posComp)
	err := buf.Apply(storage)
	if !errors.Is(err, ErrStorageLocked) {
		t.Errorf("apply while locked: %v, want ErrStorageLocked", err)
	}
	if buf.Len() != 1 {
		t.Errorf("failed apply must not drain the buffer, %d ops remain", buf.Len())
	}
}

// TestSnapshotSemantics verifies a live cursor is unaffected by mutations
// queued during iteration and applied afterwards.
func TestSnapshotSemantics(t *testing.T) {
	storage := Factory.NewStorage()
	posComp := FactoryNewComponent[Position]()

	if _, err := storage.NewEntities(6, posComp); err != nil {
		t.Fatal(err)
	}

	buf := Factory.NewCommandBuffer()
	cursor := Factory.NewCursor(Factory.NewQuery().And(posComp), storage)
	var doomed []Entity
	seen := 0
	for cursor.Next() {
		seen++
		if len(doomed) < 3 {
			doomed = append(doomed, cursor.CurrentEntity())
		}
	}
	if seen != 6 {
		t.Fatalf("iteration saw %d entities, want 6", seen)
	}
	buf.Destroy(doomed...)

	if err := buf.Apply(storage); err != nil {
		t.Fatalf("apply after iteration: %v", err)
	}
	if storage.EntityCount() != 3 {
		t.Errorf("entity count: %d, want 3", storage.EntityCount())
	}
	for _, e := range doomed {
		if storage.Alive(e) {
			t.Errorf("entity %v should be destroyed", e)
		}
	}
}

// TestDeferredEnqueueDuringLock checks storage-level Enqueue calls apply
// automatically when the last lock is released.
func TestDeferredEnqueueDuringLock(t *testing.T) {
	storage := Factory.NewStorage()
	posComp := FactoryNewComponent[Position]()
	healthComp := FactoryNewComponent[Health]()

	e, err := storage.Spawn(posComp)
	if err != nil {
		t.Fatal(err)
	}

	cursor := Factory.NewCursor(Factory.NewQuery().And(posComp), storage)
	for cursor.Next() {
		storage.EnqueueAddComponent(cursor.CurrentEntity(), healthComp.With(Health{Value: 3}))
		storage.EnqueueNewEntities(2, posComp)
	}
	if !storage.HasComponent(e, healthComp) {
		t.Error("deferred add not applied after iteration finished")
	}
	if storage.EntityCount() != 3 {
		t.Errorf("entity count: %d, want 3", storage.EntityCount())
	}
}
