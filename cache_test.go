package vault

import "testing"

func TestSimpleCache(t *testing.T) {
	// Clear is on the concrete type, not the Cache interface.
	cache := FactoryNewCache[string](3).(*SimpleCache[string])

	idx, err := cache.Register("a", "alpha")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if idx != 0 {
		t.Errorf("first index: %d, want 0", idx)
	}
	if _, err := cache.Register("b", "beta"); err != nil {
		t.Fatal(err)
	}
	if _, err := cache.Register("c", "gamma"); err != nil {
		t.Fatal(err)
	}

	got, ok := cache.GetIndex("b")
	if !ok || got != 1 {
		t.Errorf("GetIndex(b): %d %v, want 1 true", got, ok)
	}
	if _, ok := cache.GetIndex("missing"); ok {
		t.Error("GetIndex should miss on unknown key")
	}
	if item := cache.GetItem(2); *item != "gamma" {
		t.Errorf("GetItem(2): %q, want gamma", *item)
	}
	if item := cache.GetItem32(0); *item != "alpha" {
		t.Errorf("GetItem32(0): %q, want alpha", *item)
	}

	if _, err := cache.Register("d", "delta"); err == nil {
		t.Error("register past capacity should fail")
	}

	cache.Clear()
	if _, ok := cache.GetIndex("a"); ok {
		t.Error("cache should be empty after clear")
	}
	if _, err := cache.Register("e", "epsilon"); err != nil {
		t.Errorf("register after clear: %v", err)
	}
}
