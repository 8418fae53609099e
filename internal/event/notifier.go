package event

import "github.com/Iron-Ham/postflow/internal/store"

// Publisher delivers events to listeners.
type Publisher interface {
	Publish(Event)
}

// Notifier queues events on a transaction and delivers them once it commits.
// Events queued on a transaction that rolls back are never delivered.
type Notifier struct {
	publisher Publisher
}

// NewNotifier creates a Notifier delivering through p. A nil publisher drops events.
func NewNotifier(p Publisher) *Notifier {
	return &Notifier{publisher: p}
}

// Queue registers events for delivery after tx commits, in order.
func (n *Notifier) Queue(tx store.Tx, events ...Event) {
	if n == nil || n.publisher == nil || len(events) == 0 {
		return
	}
	queued := append([]Event(nil), events...)
	tx.AfterCommit(func() {
		for _, e := range queued {
			n.publisher.Publish(e)
		}
	})
}
