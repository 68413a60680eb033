package vault

import "github.com/rotisserie/eris"

// Sentinel errors returned by storage operations. Callers match them with
// errors.Is; structural paths wrap them with entity or component context.
var (
	// ErrEntityNotFound reports a stale or unknown entity handle. Handles go
	// stale when the entity is destroyed; a later entity reusing the same
	// index is never confused with the old one.
	ErrEntityNotFound = eris.New("entity not found")

	// ErrComponentNotFound reports a component access on an entity whose
	// archetype does not include that component type.
	ErrComponentNotFound = eris.New("component not found on entity")

	// ErrStorageLocked reports a structural mutation attempted while the
	// storage is locked by active iteration. Use the Enqueue variants or a
	// CommandBuffer instead.
	ErrStorageLocked = eris.New("storage is locked")

	// ErrTooManyComponentTypes reports registration beyond MaxComponentTypes.
	ErrTooManyComponentTypes = eris.New("component type limit reached")
)
