// Package event provides the domain events of the approval workflow and a
// pub-sub bus that delivers them to listeners.
//
// Commands never publish directly. They queue events on their transaction
// through a [Notifier], which hands them to the [Bus] only after the
// transaction has committed. A rolled back command therefore emits nothing.
//
// # Main Types
//
//   - [Event]: Interface that all events must implement, providing EventType() and Timestamp()
//   - [Bus]: Synchronous pub-sub event dispatcher with thread-safe operations
//   - [Handler]: Function type for event handlers (func(Event) error)
//   - [Notifier]: Post-commit delivery bound to a store transaction
//
// # Event Categories
//
// Post Lifecycle:
//   - [PostSubmittedEvent], [PostApprovedEvent], [PostScheduledEvent], [PostPublishedEvent]
//
// Step Decisions:
//   - [StepApprovedEvent]: one per approved step
//   - [StepRejectedEvent]
//
// Tasks:
//   - [TaskCreatedEvent]: a review or publish task was assigned
//   - [TaskSkippedEvent]: no eligible member held the required role
//
// # Delivery Guarantees
//
// Delivery is best effort and at most once. Listeners run synchronously in
// registration order; an error returned by a listener or a panic inside it
// is logged and the remaining listeners still run. Nothing is retried or
// persisted, and listener failures never reach the command caller.
//
// # Basic Usage
//
//	bus := event.NewBus(logger)
//	bus.SubscribeAll(auditListener.Handle)
//	notifier := event.NewNotifier(bus)
//
//	err := uow.Do(ctx, func(tx store.Tx) error {
//	    // ... writes ...
//	    notifier.Queue(tx, event.NewPostSubmittedEvent(tenantID, postID, authorID, round, stepIDs))
//	    return nil
//	})
package event
