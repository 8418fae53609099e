// Package taskqueue creates and maintains the human tasks of the approval
// workflow.
//
// Every pending approval step gets a review task and every approved post a
// publish task. Assignees are the members of the post's organization who
// hold the required role, narrowed to the least loaded ones: candidates are
// ranked by their number of pending tasks in the organization, counted in a
// single grouped query, with ties broken by directory order.
//
// Task creation and resolution run inside the caller's transaction through
// the store.Tx handle, so they commit or roll back with the state change that
// caused them. Memberships are read through the same transaction unless a
// custom [directory.Directory] is configured. When nobody is eligible the orchestrator logs a warning,
// queues a task.skipped event and returns [ErrNoEligibleAssignees]; the post
// stays in a valid state without an actionable task.
//
// Usage:
//
//	orch := taskqueue.New(uow, taskqueue.Config{
//	    Notifier:         event.NewNotifier(bus),
//	    AssigneesPerTask: 1,
//	})
//
//	err := uow.Do(ctx, func(tx store.Tx) error {
//	    _, err := orch.CreateReviewTask(ctx, tx, post, step)
//	    if errors.Is(err, taskqueue.ErrNoEligibleAssignees) {
//	        return nil
//	    }
//	    return err
//	})
package taskqueue
