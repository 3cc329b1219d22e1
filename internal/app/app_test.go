package app

import (
	"context"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/parkjaeuk0210/nebulous-game/internal/config"
	"github.com/parkjaeuk0210/nebulous-game/internal/telemetry"
	"github.com/parkjaeuk0210/nebulous-game/logging"
)

func TestRunServesUntilCancelled(t *testing.T) {
	dir := t.TempDir()
	settings := config.Default()
	settings.Addr = "127.0.0.1:0"
	settings.ClientDir = dir
	settings.TickRate = 60
	settings.World.FoodCount = 5
	settings.Logging.EnabledSinks = []string{logging.SinkJSON}
	settings.Logging.JSON.FilePath = filepath.Join(dir, "events.log")
	settings.RecordDir = filepath.Join(dir, "ticks")
	settings.RecordBatchTicks = 5

	ready := make(chan net.Addr, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, Config{
			Logger:   telemetry.LoggerFunc(func(string, ...any) {}),
			Settings: settings,
			Ready:    func(addr net.Addr) { ready <- addr },
		})
	}()

	var addr net.Addr
	select {
	case addr = <-ready:
	case err := <-done:
		t.Fatalf("Run exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatalf("server never became ready")
	}

	resp, err := http.Get("http://" + addr.String() + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || string(body) != "ok" {
		t.Fatalf("unexpected health response %d %q", resp.StatusCode, body)
	}

	// Let a few batches of ticks accumulate.
	time.Sleep(200 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatalf("Run did not stop after cancellation")
	}

	matches, err := filepath.Glob(filepath.Join(settings.RecordDir, "*.parquet"))
	if err != nil {
		t.Fatalf("glob failed: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("expected recorded tick batches")
	}
	if _, err := os.Stat(settings.Logging.JSON.FilePath); err != nil {
		t.Fatalf("expected json log file: %v", err)
	}
}

func TestBuildSinksRejectsUnknownSink(t *testing.T) {
	_, err := buildSinks(logging.Config{EnabledSinks: []string{"console", "carrier-pigeon"}})
	if err == nil || !strings.Contains(err.Error(), "carrier-pigeon") {
		t.Fatalf("expected unknown sink error, got %v", err)
	}
}
