package approval

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/Iron-Ham/postflow/internal/errors"
	"github.com/Iron-Ham/postflow/internal/event"
	"github.com/Iron-Ham/postflow/internal/model"
	"github.com/Iron-Ham/postflow/internal/publisher"
	"github.com/Iron-Ham/postflow/internal/role"
	"github.com/Iron-Ham/postflow/internal/testutil"
)

func TestPublish_Preconditions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	approved := h.approved(t)
	inReview, _ := h.submitted(t)

	tests := []struct {
		name      string
		actor     Actor
		postID    string
		platforms []string
		want      errors.Kind
	}{
		{"no platforms", pub, approved.ID, nil, errors.KindValidation},
		{"unknown post", pub, "missing", []string{"x"}, errors.KindNotFound},
		{"member cannot publish", member, approved.ID, []string{"x"}, errors.KindForbidden},
		{"not approved", pub, inReview.ID, []string{"x"}, errors.KindInvalidState},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.engine.Publish(ctx, tt.actor, tt.postID, PublishInput{Platforms: tt.platforms})
			requireKind(t, err, tt.want)
		})
	}
	if n := len(h.gateway.Requests()); n != 0 {
		t.Errorf("gateway called %d times, want 0", n)
	}
}

func TestPublish_AdminMayPublish(t *testing.T) {
	h := newHarness(t)
	post := h.approved(t)

	published, err := h.engine.Publish(context.Background(), admin, post.ID, PublishInput{
		Platforms: []string{"x", "linkedin"},
		Media:     []model.MediaItem{{URL: "https://cdn.example.com/a.png", Type: "image"}},
	})
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if !slices.Equal(published.Platforms, []string{"x", "linkedin"}) || len(published.Media) != 1 {
		t.Errorf("published = %+v", published)
	}
	if req := h.gateway.Requests()[0]; len(req.Media) != 1 || req.Media[0].Type != "image" {
		t.Errorf("gateway request = %+v", req)
	}
}

func TestPublish_GatewayFailureRollsBack(t *testing.T) {
	tests := []struct {
		name  string
		setup func(g *testutil.FakeGateway)
	}{
		{"error", func(g *testutil.FakeGateway) { g.Fail(errors.New("connection refused")) }},
		{"unsuccessful result", func(g *testutil.FakeGateway) {
			g.Respond(publisher.Result{Success: false, Error: "token expired"})
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			post := h.approved(t)
			tt.setup(h.gateway)
			h.events.Reset()

			_, err := h.engine.Publish(context.Background(), pub, post.ID, PublishInput{Platforms: []string{"x"}})
			requireKind(t, err, errors.KindExternalFailure)

			view := h.view(t, post.ID)
			if view.Post.Status != model.PostApproved || view.Post.PublishID != "" {
				t.Errorf("post = %s %q, want APPROVED without publish id", view.Post.Status, view.Post.PublishID)
			}
			if n := len(tasksOf(view, model.TaskPublish, model.TaskPending)); n != 1 {
				t.Errorf("pending publish tasks = %d, want 1", n)
			}
			if got := h.events.Types(); len(got) != 0 {
				t.Errorf("events = %v, want none", got)
			}
		})
	}
}

func TestPublish_PastDatePublishesNow(t *testing.T) {
	h := newHarness(t)
	post := h.approved(t)
	past := h.clock().Add(-time.Hour)

	published, err := h.engine.Publish(context.Background(), pub, post.ID, PublishInput{Platforms: []string{"x"}, ScheduledFor: &past})
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if published.Status != model.PostPublished {
		t.Errorf("status = %s, want PUBLISHED", published.Status)
	}
}

func TestScheduleAndRelease(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	post := h.approved(t)
	at := h.clock().Add(2 * time.Hour)

	scheduled, err := h.engine.Publish(ctx, pub, post.ID, PublishInput{Platforms: []string{"x"}, ScheduledFor: &at})
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if scheduled.Status != model.PostScheduled || scheduled.ScheduledFor == nil || !scheduled.ScheduledFor.Equal(at) {
		t.Fatalf("scheduled = %+v", scheduled)
	}
	if n := len(h.gateway.Requests()); n != 0 {
		t.Fatalf("gateway called %d times before the due date", n)
	}
	if n := h.events.Count(event.TypePostScheduled); n != 1 {
		t.Errorf("post.scheduled events = %d, want 1", n)
	}
	if n := len(tasksOf(h.view(t, post.ID), model.TaskPublish, model.TaskCompleted)); n != 1 {
		t.Errorf("completed publish tasks = %d, want 1", n)
	}

	_, err = h.engine.ReleaseScheduled(ctx, tenant, post.ID)
	requireKind(t, err, errors.KindInvalidState)

	report, err := h.engine.ReleaseDue(ctx, 10)
	if err != nil {
		t.Fatalf("ReleaseDue() error = %v", err)
	}
	if len(report.Released) != 0 || len(report.Failed) != 0 {
		t.Fatalf("early report = %+v", report)
	}

	h.advance(3 * time.Hour)
	h.gateway.Fail(errors.New("timeout"))
	report, err = h.engine.ReleaseDue(ctx, 10)
	if err != nil {
		t.Fatalf("ReleaseDue() error = %v", err)
	}
	if len(report.Failed) != 1 || report.Failed[0].PostID != post.ID || !errors.Is(report.Failed[0].Err, errors.ErrExternalFailure) {
		t.Fatalf("failing report = %+v", report)
	}
	if status := h.view(t, post.ID).Post.Status; status != model.PostScheduled {
		t.Fatalf("status after failed release = %s, want SCHEDULED", status)
	}

	h.gateway.Respond(publisher.Result{Success: true, PublishID: "pub-later"})
	report, err = h.engine.ReleaseDue(ctx, 10)
	if err != nil {
		t.Fatalf("ReleaseDue() error = %v", err)
	}
	if !slices.Equal(report.Released, []string{post.ID}) {
		t.Fatalf("report = %+v", report)
	}

	view := h.view(t, post.ID)
	if view.Post.Status != model.PostPublished || view.Post.PublishID != "pub-later" {
		t.Errorf("post = %s %q", view.Post.Status, view.Post.PublishID)
	}
	reqs := h.gateway.Requests()
	if last := reqs[len(reqs)-1]; last.UserID != "author" || !slices.Equal(last.Platforms, []string{"x"}) {
		t.Errorf("release request = %+v, want author publishing to x", last)
	}

	_, err = h.engine.ReleaseScheduled(ctx, tenant, post.ID)
	requireKind(t, err, errors.KindInvalidState)
}

func TestReleaseDue_Limit(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	at := h.clock().Add(time.Minute)
	for i := 0; i < 3; i++ {
		post := h.approved(t)
		if _, err := h.engine.Publish(ctx, pub, post.ID, PublishInput{Platforms: []string{"x"}, ScheduledFor: &at}); err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
	}
	h.advance(time.Hour)

	report, err := h.engine.ReleaseDue(ctx, 2)
	if err != nil {
		t.Fatalf("ReleaseDue() error = %v", err)
	}
	if len(report.Released) != 2 {
		t.Errorf("released = %d, want 2", len(report.Released))
	}
	report, _ = h.engine.ReleaseDue(ctx, 2)
	if len(report.Released) != 1 {
		t.Errorf("second pass released = %d, want 1", len(report.Released))
	}
}

func TestPublish_CustomPublisherRoles(t *testing.T) {
	h := newHarness(t)
	// only the dedicated publisher role may publish
	h.engine.publishers = role.Set{role.Publisher}
	post := h.approved(t)

	_, err := h.engine.Publish(context.Background(), admin, post.ID, PublishInput{Platforms: []string{"x"}})
	requireKind(t, err, errors.KindForbidden)
}
