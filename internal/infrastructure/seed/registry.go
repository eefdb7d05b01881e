package seed

import (
	"time"

	"github.com/rs/zerolog/log"

	"marketsim/internal/application/port"
)

// Factory builds a seed source from its configured URL and timeout.
type Factory func(url string, timeout time.Duration) port.SeedSource

var registry = make(map[string]Factory)

// Register adds a seed source factory under name. Called from the init()
// functions of the source implementations.
func Register(name string, factory Factory) {
	if factory == nil {
		log.Warn().Str("source", name).Msg("invalid seed source factory")
		return
	}
	if _, exists := registry[name]; exists {
		log.Warn().Str("source", name).Msg("seed source factory already registered, overwriting")
	}
	registry[name] = factory
}

// Get returns the registered factory for name.
func Get(name string) (Factory, bool) {
	factory, ok := registry[name]
	return factory, ok
}
