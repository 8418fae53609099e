// Package approval implements the post approval state machine.
//
// A post moves through these states:
//
//	DRAFT ──submit──▶ IN_REVIEW ──approve all──▶ APPROVED ──publish──▶ PUBLISHED
//	                    │   ▲                       │                     ▲
//	                 reject │ resubmit           schedule                 │
//	                    ▼   │                       ▼                     │
//	                  REJECTED                  SCHEDULED ───release──────┘
//
// Submission snapshots the resolved workflow template into ordered approval
// steps, one review round per submission. Each step is gated on a single
// role and is resolved exactly once. The lowest-order pending step always
// has a review task; when the last step is approved the post becomes
// APPROVED and a publish task is created.
//
// Every command of [Engine] runs in one store transaction: post, step,
// action and task writes commit together or not at all. Domain events are
// queued on the transaction and delivered only after it commits.
//
// # Concurrency
//
// Step resolution is a conditional update on the PENDING status, so of two
// concurrent approvals of the same step exactly one succeeds. The other
// either observes the resolved step and fails with an InvalidStateError or
// is aborted by the database with a retryable ConflictError.
//
// # Usage
//
//	engine := approval.New(st, approval.Config{
//	    Resolver: template.NewResolver(cfg.Roles.FallbackRoles()),
//	    Tasks:    orch,
//	    Gateway:  publisher.NewDryRun(logger),
//	    Notifier: event.NewNotifier(bus),
//	    Logger:   logger,
//	})
//
//	post, err := engine.SubmitForReview(ctx, approval.Actor{TenantID: "acme", UserID: "u1"}, postID)
package approval
