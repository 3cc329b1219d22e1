package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/parkjaeuk0210/nebulous-game/internal/sim"
	"github.com/parkjaeuk0210/nebulous-game/internal/telemetry"
	"github.com/parkjaeuk0210/nebulous-game/internal/world"
	"github.com/parkjaeuk0210/nebulous-game/logging"
)

func mapLookup(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}
}

func captureLogger(lines *[]string) telemetry.Logger {
	return telemetry.LoggerFunc(func(format string, args ...any) {
		*lines = append(*lines, fmt.Sprintf(format, args...))
	})
}

func TestFromLookupDefaults(t *testing.T) {
	cfg := FromLookup(mapLookup(nil), nil)
	if cfg.Addr != DefaultAddr || cfg.TickRate != sim.DefaultTickRate {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.World.Width != world.DefaultWidth || cfg.World.FoodCount != world.DefaultFoodCount {
		t.Fatalf("unexpected world defaults %+v", cfg.World)
	}
	if !cfg.Logging.HasSink(logging.SinkConsole) {
		t.Fatalf("expected console sink by default")
	}
	if cfg.RecordDir != "" {
		t.Fatalf("expected recording disabled by default")
	}
}

func TestFromLookupParsesValues(t *testing.T) {
	cfg := FromLookup(mapLookup(map[string]string{
		"ADDR":                    ":9000",
		"CLIENT_DIR":              "/srv/client",
		"WORLD_SEED":              "arena",
		"WORLD_WIDTH":             "2000",
		"WORLD_HEIGHT":            "1500.5",
		"FOOD_COUNT":              "250",
		"MAX_CELLS":               "8",
		"TICK_RATE":               "20",
		"COMMAND_CAPACITY":        "64",
		"COMMAND_PER_ACTOR_LIMIT": "4",
		"MESSAGE_RATE":            "30",
		"MESSAGE_BURST":           "45",
		"LOG_SINKS":               "console, json",
		"LOG_JSON_PATH":           "/tmp/events.log",
		"LOG_LEVEL":               "debug",
		"RECORD_DIR":              "/tmp/ticks",
		"RECORD_BATCH_TICKS":      "60",
		"ENABLE_PPROF":            "true",
	}), nil)

	if cfg.Addr != ":9000" || cfg.ClientDir != "/srv/client" {
		t.Fatalf("unexpected listener config %+v", cfg)
	}
	if cfg.World.Seed != "arena" || cfg.World.Width != 2000 || cfg.World.Height != 1500.5 {
		t.Fatalf("unexpected world %+v", cfg.World)
	}
	if cfg.World.FoodCount != 250 || cfg.World.MaxCells != 8 {
		t.Fatalf("unexpected world limits %+v", cfg.World)
	}
	if cfg.TickRate != 20 || cfg.CommandCapacity != 64 || cfg.PerActorLimit != 4 {
		t.Fatalf("unexpected loop config %+v", cfg)
	}
	if cfg.MessageRate != 30 || cfg.MessageBurst != 45 {
		t.Fatalf("unexpected rate limit %v/%d", cfg.MessageRate, cfg.MessageBurst)
	}
	if !cfg.Logging.HasSink(logging.SinkJSON) || cfg.Logging.JSON.FilePath != "/tmp/events.log" {
		t.Fatalf("unexpected logging config %+v", cfg.Logging)
	}
	if cfg.Logging.MinimumSeverity != logging.SeverityDebug {
		t.Fatalf("expected debug severity, got %v", cfg.Logging.MinimumSeverity)
	}
	if cfg.RecordDir != "/tmp/ticks" || cfg.RecordBatchTicks != 60 {
		t.Fatalf("unexpected recorder config %+v", cfg)
	}
	if !cfg.Observability.EnablePprof {
		t.Fatalf("expected pprof enabled")
	}
}

func TestFromLookupKeepsDefaultsForInvalidValues(t *testing.T) {
	var lines []string
	cfg := FromLookup(mapLookup(map[string]string{
		"WORLD_WIDTH":   "wide",
		"WORLD_HEIGHT":  "-5",
		"TICK_RATE":     "0",
		"MESSAGE_RATE":  "NaN",
		"FOOD_COUNT":    "lots",
		"LOG_LEVEL":     "loud",
		"LOG_SINKS":     " , ",
		"MESSAGE_BURST": "  ",
	}), captureLogger(&lines))

	if cfg.World.Width != world.DefaultWidth || cfg.World.Height != world.DefaultHeight {
		t.Fatalf("expected default dimensions, got %vx%v", cfg.World.Width, cfg.World.Height)
	}
	if cfg.TickRate != sim.DefaultTickRate || cfg.MessageRate != DefaultMessageRate {
		t.Fatalf("expected default rates, got %+v", cfg)
	}
	if cfg.World.FoodCount != world.DefaultFoodCount {
		t.Fatalf("expected default food, got %d", cfg.World.FoodCount)
	}
	if cfg.Logging.MinimumSeverity != logging.SeverityInfo || !cfg.Logging.HasSink(logging.SinkConsole) {
		t.Fatalf("expected default logging, got %+v", cfg.Logging)
	}
	if cfg.MessageBurst != DefaultMessageBurst {
		t.Fatalf("blank values should be ignored")
	}
	if len(lines) != 7 {
		t.Fatalf("expected 7 reported values, got %d: %v", len(lines), lines)
	}
	for _, line := range lines {
		if !strings.HasPrefix(line, "invalid ") {
			t.Fatalf("unexpected log line %q", line)
		}
	}
}

func TestFromLookupZeroFoodDisablesFood(t *testing.T) {
	cfg := FromLookup(mapLookup(map[string]string{"FOOD_COUNT": "0"}), nil)
	if cfg.World.FoodCount >= 0 {
		t.Fatalf("expected negative food count, got %d", cfg.World.FoodCount)
	}
}

func TestLoadReadsDotenvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "server.env")
	content := "WORLD_SEED=from-file\nTICK_RATE=15\n# comment\nMAX_CELLS=4\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write env file: %v", err)
	}
	t.Setenv("MAX_CELLS", "6")

	cfg, err := Load(nil, path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.World.Seed != "from-file" || cfg.TickRate != 15 {
		t.Fatalf("expected values from env file, got %+v", cfg)
	}
	if cfg.World.MaxCells != 6 {
		t.Fatalf("expected process environment to win, got %d", cfg.World.MaxCells)
	}
}

func TestLoadIgnoresMissingFile(t *testing.T) {
	if _, err := Load(nil, filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("expected missing file to be ignored, got %v", err)
	}
}
