package vault

import "github.com/rs/zerolog"

// Config holds global configuration for the storage system.
var Config config = config{logger: zerolog.Nop()}

type config struct {
	logger zerolog.Logger
}

// SetLogger configures the logger used by storages created afterwards.
// Storage diagnostics (archetype creation, command buffer flushes) are
// emitted at debug level; the default logger discards everything.
func (c *config) SetLogger(logger zerolog.Logger) {
	c.logger = logger
}
