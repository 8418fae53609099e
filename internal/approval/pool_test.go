package approval

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/Iron-Ham/postflow/internal/event"
	"github.com/Iron-Ham/postflow/internal/model"
	"github.com/Iron-Ham/postflow/internal/role"
	"github.com/Iron-Ham/postflow/internal/store/sqlstore"
	"github.com/Iron-Ham/postflow/internal/taskqueue"
	"github.com/Iron-Ham/postflow/internal/testutil"
)

// Every command must fit in one pooled connection, or a bounded pool
// deadlocks against itself.
func TestWorkflow_SingleConnectionPool(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	path := filepath.Join(t.TempDir(), "postflow.db")
	s, err := sqlstore.Open(ctx, sqlstore.DriverSQLite, sqlstore.SQLiteDSN(path), sqlstore.WithMaxOpenConns(1))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	testutil.AddMembers(t, s, org, role.Member, "mia")
	testutil.AddMembers(t, s, org, role.Admin, "ada")
	testutil.AddMembers(t, s, org, role.Publisher, "pete")

	notifier := event.NewNotifier(event.NewBus(nil))
	engine := New(s, Config{
		Tasks:    taskqueue.New(s, taskqueue.Config{Notifier: notifier}),
		Gateway:  testutil.NewFakeGateway("pub-1"),
		Notifier: notifier,
	})

	post, err := engine.CreateDraft(ctx, author, DraftInput{OrganizationID: org, Content: "hello", Platforms: []string{"x"}})
	if err != nil {
		t.Fatalf("CreateDraft() error = %v", err)
	}
	if _, err := engine.SubmitForReview(ctx, author, post.ID); err != nil {
		t.Fatalf("SubmitForReview() error = %v", err)
	}
	view, err := engine.GetPost(ctx, tenant, post.ID)
	if err != nil {
		t.Fatalf("GetPost() error = %v", err)
	}
	if len(view.Tasks) != 1 || view.Tasks[0].AssigneeIDs[0] != "mia" {
		t.Fatalf("tasks after submit = %+v, want one review task for mia", view.Tasks)
	}

	for _, step := range view.Steps {
		reviewer := member
		if step.RequiredRole == role.Admin {
			reviewer = admin
		}
		if _, err := engine.ApproveSteps(ctx, reviewer, post.ID, []string{step.ID}, ""); err != nil {
			t.Fatalf("ApproveSteps(%s) error = %v", step.RequiredRole, err)
		}
	}
	published, err := engine.Publish(ctx, pub, post.ID, PublishInput{Platforms: []string{"x"}})
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if published.Status != model.PostPublished {
		t.Errorf("status = %s, want PUBLISHED", published.Status)
	}
}
