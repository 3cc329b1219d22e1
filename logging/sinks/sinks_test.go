package sinks

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/parkjaeuk0210/nebulous-game/logging"
)

func sampleEvent() logging.Event {
	return logging.Event{
		Type:     "gameplay.cell_absorbed",
		Tick:     12,
		Time:     time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC),
		Actor:    logging.PlayerRef("abc"),
		Targets:  []logging.EntityRef{logging.PlayerRef("def")},
		Severity: logging.SeverityDebug,
		Category: logging.CategoryGameplay,
		Payload:  map[string]float64{"resultRadius": 25},
	}
}

func TestConsoleFormatsEvent(t *testing.T) {
	var buf bytes.Buffer
	sink := NewConsole(&buf)
	if err := sink.Write(sampleEvent()); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	line := buf.String()
	for _, want := range []string{"[gameplay.cell_absorbed]", "tick=12", "actor=player:abc", "severity=debug", "targets=player:def", `payload={"resultRadius":25}`} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %q in %q", want, line)
		}
	}
}

func TestJSONWritesOneObjectPerLine(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSON(&buf, 0)
	if err := sink.Write(sampleEvent()); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := sink.Write(sampleEvent()); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := sink.Close(context.Background()); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &decoded); err != nil {
		t.Fatalf("line is not json: %v", err)
	}
	if decoded["severity"] != "debug" || decoded["type"] != "gameplay.cell_absorbed" {
		t.Fatalf("unexpected decoded event: %+v", decoded)
	}
}

func TestMemoryClonesEvents(t *testing.T) {
	sink := NewMemory()
	event := sampleEvent()
	event.Extra = map[string]any{"k": "v"}
	if err := sink.Write(event); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	event.Extra["k"] = "mutated"
	event.Targets[0].ID = "mutated"

	stored := sink.Events()[0]
	if stored.Extra["k"] != "v" || stored.Targets[0].ID != "def" {
		t.Fatalf("memory sink retained aliased event: %+v", stored)
	}
	if got := len(sink.EventsOfType("gameplay.cell_absorbed")); got != 1 {
		t.Fatalf("expected 1 filtered event, got %d", got)
	}
	sink.Reset()
	if got := len(sink.Events()); got != 0 {
		t.Fatalf("expected reset to clear events, got %d", got)
	}
}
