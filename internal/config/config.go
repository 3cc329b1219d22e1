// Package config loads server settings from the environment and an optional
// .env file.
package config

import (
	"errors"
	"io/fs"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/parkjaeuk0210/nebulous-game/internal/observability"
	"github.com/parkjaeuk0210/nebulous-game/internal/sim"
	"github.com/parkjaeuk0210/nebulous-game/internal/telemetry"
	"github.com/parkjaeuk0210/nebulous-game/internal/world"
	"github.com/parkjaeuk0210/nebulous-game/logging"
)

const (
	DefaultAddr             = ":8080"
	DefaultCommandCapacity  = 1024
	DefaultPerActorLimit    = 32
	DefaultMessageRate      = 60.0
	DefaultMessageBurst     = 120
	DefaultRecordBatchTicks = 300
)

type Config struct {
	Addr      string
	ClientDir string

	World world.Config

	TickRate        int
	CommandCapacity int
	PerActorLimit   int

	MessageRate  float64
	MessageBurst int

	Logging logging.Config

	RecordDir        string
	RecordBatchTicks int

	Observability observability.Config
}

// Default returns the configuration used when no variables are set.
func Default() Config {
	cfg := Config{
		Addr:             DefaultAddr,
		World:            world.DefaultConfig(),
		TickRate:         sim.DefaultTickRate,
		CommandCapacity:  DefaultCommandCapacity,
		PerActorLimit:    DefaultPerActorLimit,
		MessageRate:      DefaultMessageRate,
		MessageBurst:     DefaultMessageBurst,
		Logging:          logging.DefaultConfig(),
		RecordBatchTicks: DefaultRecordBatchTicks,
	}
	return cfg
}

// Load reads the given dotenv files (".env" when none are named) and then the
// process environment, which takes precedence. A missing file is not an error.
// Invalid values are reported through logger and the default is kept.
func Load(logger telemetry.Logger, files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	fileEnv := make(map[string]string)
	for _, file := range files {
		values, err := godotenv.Read(file)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return Config{}, err
		}
		for key, value := range values {
			fileEnv[key] = value
		}
	}

	lookup := func(key string) (string, bool) {
		if value, ok := os.LookupEnv(key); ok {
			return value, true
		}
		value, ok := fileEnv[key]
		return value, ok
	}
	return FromLookup(lookup, logger), nil
}

// FromLookup builds a Config from an arbitrary variable source.
func FromLookup(lookup func(string) (string, bool), logger telemetry.Logger) Config {
	if logger == nil {
		logger = telemetry.LoggerFunc(nil)
	}
	cfg := Default()
	p := parser{lookup: lookup, logger: logger}

	p.str("ADDR", &cfg.Addr)
	p.str("CLIENT_DIR", &cfg.ClientDir)

	p.str("WORLD_SEED", &cfg.World.Seed)
	p.positiveFloat("WORLD_WIDTH", &cfg.World.Width)
	p.positiveFloat("WORLD_HEIGHT", &cfg.World.Height)
	if raw, ok := p.get("FOOD_COUNT"); ok {
		value, err := strconv.Atoi(raw)
		switch {
		case err != nil:
			logger.Printf("invalid FOOD_COUNT=%q: %v", raw, err)
		case value <= 0:
			cfg.World.FoodCount = world.NoFood
		default:
			cfg.World.FoodCount = value
		}
	}
	p.positiveInt("MAX_CELLS", &cfg.World.MaxCells)

	p.positiveInt("TICK_RATE", &cfg.TickRate)
	p.positiveInt("COMMAND_CAPACITY", &cfg.CommandCapacity)
	p.positiveInt("COMMAND_PER_ACTOR_LIMIT", &cfg.PerActorLimit)
	p.positiveFloat("MESSAGE_RATE", &cfg.MessageRate)
	p.positiveInt("MESSAGE_BURST", &cfg.MessageBurst)

	if raw, ok := p.get("LOG_SINKS"); ok {
		if sinks := logging.ParseSinks(raw); len(sinks) > 0 {
			cfg.Logging.EnabledSinks = sinks
		} else {
			logger.Printf("invalid LOG_SINKS=%q: no sinks named", raw)
		}
	}
	p.str("LOG_JSON_PATH", &cfg.Logging.JSON.FilePath)
	if raw, ok := p.get("LOG_LEVEL"); ok {
		if severity, err := logging.ParseSeverity(raw); err == nil {
			cfg.Logging.MinimumSeverity = severity
		} else {
			logger.Printf("invalid LOG_LEVEL=%q: %v", raw, err)
		}
	}

	p.str("RECORD_DIR", &cfg.RecordDir)
	p.positiveInt("RECORD_BATCH_TICKS", &cfg.RecordBatchTicks)

	if raw, ok := p.get("ENABLE_PPROF"); ok {
		if value, err := strconv.ParseBool(raw); err == nil {
			cfg.Observability.EnablePprof = value
		} else {
			logger.Printf("invalid ENABLE_PPROF=%q: %v", raw, err)
		}
	}
	return cfg
}

type parser struct {
	lookup func(string) (string, bool)
	logger telemetry.Logger
}

func (p parser) get(key string) (string, bool) {
	if p.lookup == nil {
		return "", false
	}
	raw, ok := p.lookup(key)
	if !ok {
		return "", false
	}
	raw = strings.TrimSpace(raw)
	return raw, raw != ""
}

func (p parser) str(key string, dst *string) {
	if raw, ok := p.get(key); ok {
		*dst = raw
	}
}

func (p parser) positiveInt(key string, dst *int) {
	raw, ok := p.get(key)
	if !ok {
		return
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		p.logger.Printf("invalid %s=%q: %v", key, raw, err)
		return
	}
	if value <= 0 {
		p.logger.Printf("invalid %s=%q: must be positive", key, raw)
		return
	}
	*dst = value
}

func (p parser) positiveFloat(key string, dst *float64) {
	raw, ok := p.get(key)
	if !ok {
		return
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		p.logger.Printf("invalid %s=%q: %v", key, raw, err)
		return
	}
	if value <= 0 || math.IsNaN(value) || math.IsInf(value, 0) {
		p.logger.Printf("invalid %s=%q: must be positive", key, raw)
		return
	}
	*dst = value
}
