// Package testutil provides fixtures shared by postflow tests.
package testutil

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/Iron-Ham/postflow/internal/event"
	"github.com/Iron-Ham/postflow/internal/publisher"
	"github.com/Iron-Ham/postflow/internal/role"
	"github.com/Iron-Ham/postflow/internal/store"
	"github.com/Iron-Ham/postflow/internal/store/sqlstore"
)

// NewStore opens a migrated SQLite store in a temporary directory. The
// store is closed when the test completes.
func NewStore(t *testing.T) *sqlstore.Store {
	t.Helper()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "postflow.db")
	s, err := sqlstore.Open(ctx, sqlstore.DriverSQLite, sqlstore.SQLiteDSN(path))
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate test store: %v", err)
	}
	return s
}

// AddMembers grants r in orgID to every user, in order.
func AddMembers(t *testing.T, s *sqlstore.Store, orgID string, r role.Role, userIDs ...string) {
	t.Helper()

	for _, id := range userIDs {
		err := s.Members().Add(context.Background(), store.Membership{OrganizationID: orgID, UserID: id, Role: r})
		if err != nil {
			t.Fatalf("failed to add member %s: %v", id, err)
		}
	}
}

// FakeGateway is a publisher.Gateway that records requests and returns a
// configurable outcome.
type FakeGateway struct {
	mu       sync.Mutex
	requests []publisher.Request
	result   publisher.Result
	err      error
}

// NewFakeGateway returns a gateway that succeeds with publishID.
func NewFakeGateway(publishID string) *FakeGateway {
	return &FakeGateway{result: publisher.Result{Success: true, PublishID: publishID}}
}

// Fail makes subsequent calls return err.
func (g *FakeGateway) Fail(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.err = err
}

// Respond makes subsequent calls return res without an error.
func (g *FakeGateway) Respond(res publisher.Result) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.result = res
	g.err = nil
}

// Publish implements publisher.Gateway.
func (g *FakeGateway) Publish(_ context.Context, req publisher.Request) (publisher.Result, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
	if g.err != nil {
		return publisher.Result{}, g.err
	}
	return g.result, nil
}

// Requests returns a copy of the recorded requests.
func (g *FakeGateway) Requests() []publisher.Request {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]publisher.Request(nil), g.requests...)
}

// EventCollector records every event published on a bus.
type EventCollector struct {
	mu     sync.Mutex
	events []event.Event
}

// CollectEvents subscribes a new collector to every event type of bus.
func CollectEvents(bus *event.Bus) *EventCollector {
	c := &EventCollector{}
	bus.SubscribeAll(func(e event.Event) error {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.events = append(c.events, e)
		return nil
	})
	return c
}

// Events returns a copy of the collected events.
func (c *EventCollector) Events() []event.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]event.Event(nil), c.events...)
}

// Types returns the collected event types in delivery order.
func (c *EventCollector) Types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	types := make([]string, len(c.events))
	for i, e := range c.events {
		types[i] = e.EventType()
	}
	return types
}

// Count returns how many events of eventType were collected.
func (c *EventCollector) Count(eventType string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, e := range c.events {
		if e.EventType() == eventType {
			n++
		}
	}
	return n
}

// Reset drops the collected events.
func (c *EventCollector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = nil
}
