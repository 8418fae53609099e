// Package audit writes domain events to an append-only JSON Lines file.
//
// The audit trail is best-effort: a write failure is returned to the event
// bus, which logs it, and never affects the command that produced the event.
package audit

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Iron-Ham/postflow/internal/event"
)

// timeFormat is RFC 3339 with microseconds.
const timeFormat = "2006-01-02T15:04:05.000000Z"

// Entry is one line of the audit file.
type Entry struct {
	Timestamp string          `json:"ts"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
}

// Listener appends events to a file.
type Listener struct {
	mu   sync.Mutex
	path string
}

// NewListener creates a listener writing to path. Parent directories are
// created on the first write.
func NewListener(path string) *Listener {
	return &Listener{path: path}
}

// Path returns the audit file path.
func (l *Listener) Path() string {
	return l.path
}

// Handle is an event.Handler.
func (l *Listener) Handle(e event.Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", e.EventType(), err)
	}
	line, err := json.Marshal(Entry{
		Timestamp: e.Timestamp().UTC().Format(timeFormat),
		Type:      e.EventType(),
		Payload:   payload,
	})
	if err != nil {
		return fmt.Errorf("encode audit entry: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create audit directory: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open audit file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write audit entry: %w", err)
	}
	return nil
}

// Register subscribes the listener to every event on bus and returns the
// subscription id.
func (l *Listener) Register(bus *event.Bus) string {
	return bus.SubscribeAll(l.Handle)
}

// ReadEntries reads the audit file at path. A missing file yields no
// entries. Malformed lines are skipped.
func ReadEntries(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var entries []Entry
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, sc.Err()
}

// Time parses the entry timestamp.
func (e Entry) Time() (time.Time, error) {
	return time.Parse(timeFormat, e.Timestamp)
}
