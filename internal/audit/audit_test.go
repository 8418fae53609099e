package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/Iron-Ham/postflow/internal/event"
)

func TestListener_AppendsEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "audit.jsonl")
	l := NewListener(path)

	bus := event.NewBus(nil)
	l.Register(bus)

	bus.Publish(event.NewStepRejectedEvent("acme", "p1", "s1", "ada", "off-brand"))
	bus.Publish(event.NewPostPublishedEvent("acme", "p1", "pete", "pub-1", []string{"x"}))

	entries, err := ReadEntries(path)
	if err != nil {
		t.Fatalf("ReadEntries() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[0].Type != event.TypeStepRejected || entries[1].Type != event.TypePostPublished {
		t.Errorf("types = %s, %s", entries[0].Type, entries[1].Type)
	}
	if _, err := entries[0].Time(); err != nil {
		t.Errorf("Time() error = %v", err)
	}

	var payload map[string]any
	if err := json.Unmarshal(entries[0].Payload, &payload); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if payload["comment"] != "off-brand" || payload["post_id"] != "p1" {
		t.Errorf("payload = %v", payload)
	}
}

func TestListener_WriteFailureDoesNotPanic(t *testing.T) {
	dir := t.TempDir()
	// a directory where the file should be
	path := filepath.Join(dir, "audit.jsonl")
	if err := os.Mkdir(path, 0o755); err != nil {
		t.Fatal(err)
	}

	l := NewListener(path)
	if err := l.Handle(event.NewPostApprovedEvent("acme", "p1", 1)); err == nil {
		t.Error("expected error writing to a directory")
	}

	bus := event.NewBus(nil)
	l.Register(bus)
	bus.Publish(event.NewPostApprovedEvent("acme", "p1", 1))
}

func TestReadEntries(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		entries, err := ReadEntries(filepath.Join(t.TempDir(), "none.jsonl"))
		if err != nil || entries != nil {
			t.Errorf("got %v, %v", entries, err)
		}
	})

	t.Run("skips malformed lines", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "audit.jsonl")
		data := `{"ts":"2026-03-01T09:00:00.000000Z","type":"post.approved","payload":{}}
not json

{"ts":"2026-03-01T09:00:01.000000Z","type":"post.published","payload":{}}
`
		if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
			t.Fatal(err)
		}
		entries, err := ReadEntries(path)
		if err != nil {
			t.Fatalf("ReadEntries() error = %v", err)
		}
		if len(entries) != 2 {
			t.Errorf("entries = %d, want 2", len(entries))
		}
	})
}
