// vaultstress drives randomized structural churn against a vault storage and
// cross-checks it against a naive shadow model.
//
// Profiling:
//	go build ./cmd/vaultstress
//	./vaultstress -profile cpu
//	go tool pprof -http=":8000" ./vaultstress cpu.pprof

package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/TheBitDrifter/vault"
	"github.com/pkg/profile"
	"github.com/rs/zerolog"
)

type Config struct {
	Scenario ScenarioConfig `toml:"scenario"`
	Logging  LoggingConfig  `toml:"logging"`
}

type ScenarioConfig struct {
	Seed            int64 `toml:"seed"`
	InitialEntities int   `toml:"initial_entities"`
	Ticks           int   `toml:"ticks"`
	OpsPerTick      int   `toml:"ops_per_tick"`
	ValidateEvery   int   `toml:"validate_every"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

func loadConfig(path string) (*Config, error) {
	cfg := defaults()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Scenario: ScenarioConfig{
			Seed:            1,
			InitialEntities: 1000,
			Ticks:           200,
			OpsPerTick:      500,
			ValidateEvery:   10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

type Position struct {
	X, Y float64
}

type Velocity struct {
	X, Y float64
}

type Serial struct {
	Value uint64
}

var (
	positionComp = vault.FactoryNewComponent[Position]()
	velocityComp = vault.FactoryNewComponent[Velocity]()
	serialComp   = vault.FactoryNewComponent[Serial]()
)

func main() {
	configPath := flag.String("config", "", "path to TOML scenario config")
	profileMode := flag.String("profile", "", "enable profiling: cpu or mem")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}

	log := newLogger(cfg.Logging)
	vault.Config.SetLogger(log)

	switch *profileMode {
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	case "mem":
		defer profile.Start(profile.MemProfileAllocs, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	}

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("stress run failed")
	}
}

func newLogger(cfg LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	var log zerolog.Logger
	if cfg.Format == "json" {
		log = zerolog.New(os.Stderr)
	} else {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	return log.Level(level).With().Timestamp().Logger()
}

// shadow is the reference model: the serial value every live entity must
// still carry, plus whether it currently has a Velocity.
type shadow struct {
	serial    uint64
	hasVel    bool
	expectedX float64
}

func run(cfg *Config, log zerolog.Logger) error {
	sc := cfg.Scenario
	rng := rand.New(rand.NewSource(sc.Seed))
	storage := vault.Factory.NewStorage()
	buf := vault.Factory.NewCommandBuffer()

	model := make(map[vault.Entity]*shadow)
	var nextSerial uint64

	spawn := func(withVel bool) error {
		nextSerial++
		comps := []vault.Component{
			serialComp.With(Serial{Value: nextSerial}),
			positionComp.With(Position{X: float64(nextSerial)}),
		}
		if withVel {
			comps = append(comps, velocityComp.With(Velocity{X: 1}))
		}
		e, err := storage.Spawn(comps...)
		if err != nil {
			return err
		}
		model[e] = &shadow{serial: nextSerial, hasVel: withVel, expectedX: float64(nextSerial)}
		return nil
	}

	for i := 0; i < sc.InitialEntities; i++ {
		if err := spawn(i%2 == 0); err != nil {
			return err
		}
	}

	live := func() []vault.Entity {
		out := make([]vault.Entity, 0, len(model))
		for e := range model {
			out = append(out, e)
		}
		return out
	}

	start := time.Now()
	for tick := 0; tick < sc.Ticks; tick++ {
		// Phase 1: iterate movers mutably, queueing structural churn.
		cursor := vault.Factory.NewCursor(
			vault.Factory.NewQuery().And(positionComp.Mut(), velocityComp), storage)
		for cursor.Next() {
			pos := positionComp.GetFromCursor(cursor)
			vel := velocityComp.GetFromCursor(cursor)
			pos.X += vel.X
			model[cursor.CurrentEntity()].expectedX += vel.X
		}

		// Phase 2: random structural ops through the command buffer.
		entities := live()
		for i := 0; i < sc.OpsPerTick; i++ {
			switch n := rng.Intn(10); {
			case n < 4 || len(entities) == 0:
				nextSerial++
				withVel := rng.Intn(2) == 0
				comps := []vault.Component{
					serialComp.With(Serial{Value: nextSerial}),
					positionComp.With(Position{X: float64(nextSerial)}),
				}
				if withVel {
					comps = append(comps, velocityComp.With(Velocity{X: 1}))
				}
				buf.Spawn(comps...)
				// Queued spawns are invisible until Apply; the shadow entry is
				// reconciled after the sync point below.
			case n < 6:
				e := entities[rng.Intn(len(entities))]
				buf.Destroy(e)
				delete(model, e)
			case n < 8:
				e := entities[rng.Intn(len(entities))]
				if m, ok := model[e]; ok && !m.hasVel {
					velocityComp.EnqueueInsert(buf, e, Velocity{X: 1})
					m.hasVel = true
				}
			default:
				e := entities[rng.Intn(len(entities))]
				if m, ok := model[e]; ok && m.hasVel {
					velocityComp.EnqueueRemove(buf, e)
					m.hasVel = false
				}
			}
		}

		// Sync point.
		if err := buf.Apply(storage); err != nil {
			return fmt.Errorf("tick %d: %w", tick, err)
		}
		reconcile(storage, model)

		if sc.ValidateEvery > 0 && (tick+1)%sc.ValidateEvery == 0 {
			if err := validate(storage, model); err != nil {
				return fmt.Errorf("tick %d: %w", tick, err)
			}
			log.Debug().Int("tick", tick+1).Int("entities", storage.EntityCount()).Msg("validated")
		}
	}

	if err := validate(storage, model); err != nil {
		return err
	}
	elapsed := time.Since(start)
	totalOps := sc.Ticks * sc.OpsPerTick
	log.Info().
		Int("ticks", sc.Ticks).
		Int("structural_ops", totalOps).
		Int("final_entities", storage.EntityCount()).
		Dur("elapsed", elapsed).
		Float64("ops_per_sec", float64(totalOps)/elapsed.Seconds()).
		Msg("stress run passed")
	return nil
}

// reconcile folds entities spawned via the command buffer into the shadow
// model. They are the only live entities the model does not know yet.
func reconcile(storage vault.Storage, model map[vault.Entity]*shadow) {
	cursor := vault.Factory.NewCursor(vault.Factory.NewQuery().And(serialComp), storage)
	for cursor.Next() {
		e := cursor.CurrentEntity()
		if _, known := model[e]; known {
			continue
		}
		serial := serialComp.GetFromCursor(cursor)
		model[e] = &shadow{
			serial:    serial.Value,
			hasVel:    velocityComp.CheckCursor(cursor),
			expectedX: float64(serial.Value),
		}
	}
}

// validate checks the storage against the shadow model entity by entity.
func validate(storage vault.Storage, model map[vault.Entity]*shadow) error {
	if got, want := storage.EntityCount(), len(model); got != want {
		return fmt.Errorf("entity count %d, model has %d", got, want)
	}
	for e, m := range model {
		if !storage.Alive(e) {
			return fmt.Errorf("model entity %v is dead in storage", e)
		}
		serial, found := serialComp.GetFromEntity(storage, e)
		if !found {
			return fmt.Errorf("entity %v lost its serial", e)
		}
		if serial.Value != m.serial {
			return fmt.Errorf("entity %v serial %d, want %d", e, serial.Value, m.serial)
		}
		pos, found := positionComp.GetFromEntity(storage, e)
		if !found {
			return fmt.Errorf("entity %v lost its position", e)
		}
		if pos.X != m.expectedX {
			return fmt.Errorf("entity %v position %g, want %g", e, pos.X, m.expectedX)
		}
		if velocityComp.Has(storage, e) != m.hasVel {
			return fmt.Errorf("entity %v velocity presence mismatch", e)
		}
	}
	return nil
}
