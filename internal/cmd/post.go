package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/Iron-Ham/postflow/internal/approval"
	"github.com/Iron-Ham/postflow/internal/errors"
	"github.com/Iron-Ham/postflow/internal/model"
	"github.com/spf13/cobra"
)

func newPostCmd() *cobra.Command {
	postCmd := &cobra.Command{
		Use:   "post",
		Short: "Create, review and publish posts",
		Long: `Create, review and publish posts.

Every post command acts as the user given by --tenant, --user and --role
(or POSTFLOW_TENANT, POSTFLOW_USER and POSTFLOW_ROLE).`,
	}
	postCmd.AddCommand(
		newPostCreateCmd(),
		newPostEditCmd(),
		newPostShowCmd(),
		newPostSubmitCmd(),
		newPostApproveCmd(),
		newPostRejectCmd(),
		newPostPublishCmd(),
	)
	return postCmd
}

func mediaItems(urls []string) []model.MediaItem {
	if len(urls) == 0 {
		return nil
	}
	items := make([]model.MediaItem, len(urls))
	for i, u := range urls {
		items[i] = model.MediaItem{URL: u}
	}
	return items
}

func emitPost(cmd *cobra.Command, post *model.Post, done string) error {
	return newPrinter(cmd).emit(post, func(w io.Writer) {
		success(w, "%s", done)
		printPost(w, post)
	})
}

func newPostCreateCmd() *cobra.Command {
	var (
		org, title, content string
		platforms, media    []string
	)
	c := &cobra.Command{
		Use:   "create",
		Short: "Create a draft post",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			act, err := actor()
			if err != nil {
				return err
			}
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			post, err := a.engine.CreateDraft(cmd.Context(), act, approval.DraftInput{
				OrganizationID: org,
				Title:          title,
				Content:        content,
				Platforms:      platforms,
				Media:          mediaItems(media),
			})
			if err != nil {
				return err
			}
			return emitPost(cmd, post, "Draft created")
		},
	}
	c.Flags().StringVar(&org, "org", "", "organization that reviews the post")
	c.Flags().StringVar(&title, "title", "", "post title")
	c.Flags().StringVar(&content, "content", "", "post body")
	c.Flags().StringSliceVar(&platforms, "platform", nil, "target platform (repeatable)")
	c.Flags().StringSliceVar(&media, "media", nil, "media URL (repeatable)")
	return c
}

func newPostEditCmd() *cobra.Command {
	var (
		title, content   string
		platforms, media []string
	)
	c := &cobra.Command{
		Use:   "edit <post>",
		Short: "Edit a draft or rejected post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			act, err := actor()
			if err != nil {
				return err
			}
			var upd approval.DraftUpdate
			if cmd.Flags().Changed("title") {
				upd.Title = &title
			}
			if cmd.Flags().Changed("content") {
				upd.Content = &content
			}
			if cmd.Flags().Changed("platform") {
				upd.Platforms = platforms
			}
			if cmd.Flags().Changed("media") {
				upd.Media = mediaItems(media)
			}

			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			post, err := a.engine.UpdateDraft(cmd.Context(), act, args[0], upd)
			if err != nil {
				return err
			}
			return emitPost(cmd, post, "Post updated")
		},
	}
	c.Flags().StringVar(&title, "title", "", "new title")
	c.Flags().StringVar(&content, "content", "", "new body")
	c.Flags().StringSliceVar(&platforms, "platform", nil, "replace target platforms")
	c.Flags().StringSliceVar(&media, "media", nil, "replace media URLs")
	return c
}

func newPostShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <post>",
		Short: "Show a post with its review steps, tasks and history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tenantID, err := tenant()
			if err != nil {
				return err
			}
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			view, err := a.engine.GetPost(cmd.Context(), tenantID, args[0])
			if err != nil {
				return err
			}

			p := newPrinter(cmd)
			return p.emit(view, func(w io.Writer) {
				printPost(w, view.Post)
				if len(view.Steps) > 0 {
					fmt.Fprintf(w, "\nReview round %d\n", view.Post.Round)
					tw := p.table("STEP", "ORDER", "NAME", "ROLE", "STATUS", "RESOLVED")
					for _, s := range view.Steps {
						fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\n",
							s.ID, s.Order, s.Name, s.RequiredRole, statusColor(s.Status.String()), formatTime(s.ResolvedAt))
					}
					_ = tw.Flush()
				}
				if len(view.Tasks) > 0 {
					fmt.Fprintln(w, "\nTasks")
					printTasks(p, view.Tasks)
				}
				if len(view.Actions) > 0 {
					fmt.Fprintln(w, "\nHistory")
					for _, act := range view.Actions {
						line := fmt.Sprintf("  %s  %s %s step %s", formatTime(&act.CreatedAt), act.ActorID, act.Action, act.StepID)
						if act.Comment != "" {
							line += fmt.Sprintf(": %q", act.Comment)
						}
						fmt.Fprintln(w, line)
					}
				}
			})
		},
	}
}

func newPostSubmitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "submit <post>",
		Short: "Submit a draft or rejected post for review",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			act, err := actor()
			if err != nil {
				return err
			}
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			post, err := a.engine.SubmitForReview(cmd.Context(), act, args[0])
			if err != nil {
				return err
			}
			return emitPost(cmd, post, "Submitted for review")
		},
	}
}

func newPostApproveCmd() *cobra.Command {
	var comment string
	c := &cobra.Command{
		Use:   "approve <post> <step>...",
		Short: "Approve one or more pending steps of a post",
		Long: `Approve one or more pending steps of a post in a single transaction.
Steps may be approved in any order; the post becomes APPROVED once every
step of the current round is approved.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			act, err := actor()
			if err != nil {
				return err
			}
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			post, err := a.engine.ApproveSteps(cmd.Context(), act, args[0], args[1:], comment)
			if err != nil {
				return err
			}
			done := fmt.Sprintf("Approved %d step(s)", len(args)-1)
			if post.Status == model.PostApproved {
				done += "; post is ready to publish"
			}
			return emitPost(cmd, post, done)
		},
	}
	c.Flags().StringVarP(&comment, "comment", "m", "", "review comment")
	return c
}

func newPostRejectCmd() *cobra.Command {
	var comment string
	c := &cobra.Command{
		Use:   "reject <post> <step>",
		Short: "Reject a pending step, sending the post back to its author",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			act, err := actor()
			if err != nil {
				return err
			}
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			post, err := a.engine.RejectStep(cmd.Context(), act, args[0], args[1], comment)
			if err != nil {
				return err
			}
			return emitPost(cmd, post, "Post rejected")
		},
	}
	c.Flags().StringVarP(&comment, "comment", "m", "", "reason for rejection (required)")
	return c
}

func newPostPublishCmd() *cobra.Command {
	var (
		platforms, media []string
		at               string
	)
	c := &cobra.Command{
		Use:   "publish <post>",
		Short: "Publish an approved post now or at a later time",
		Long: `Publish an approved post now, or schedule it with --at. Platforms default
to the ones stored on the post. Scheduled posts are released by
'postflow worker'.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			act, err := actor()
			if err != nil {
				return err
			}
			in := approval.PublishInput{Platforms: platforms, Media: mediaItems(media)}
			if at != "" {
				when, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return errors.NewValidationError("--at must be an RFC 3339 time").WithField("scheduled_for").WithValue(at).WithCause(err)
				}
				in.ScheduledFor = &when
			}

			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if len(in.Platforms) == 0 {
				view, err := a.engine.GetPost(cmd.Context(), act.TenantID, args[0])
				if err != nil {
					return err
				}
				in.Platforms = view.Post.Platforms
			}

			post, err := a.engine.Publish(cmd.Context(), act, args[0], in)
			if err != nil {
				return err
			}
			done := "Published as " + post.PublishID
			if post.Status == model.PostScheduled {
				done = "Scheduled for " + formatTime(post.ScheduledFor)
			}
			return emitPost(cmd, post, done)
		},
	}
	c.Flags().StringSliceVar(&platforms, "platform", nil, "target platform (repeatable)")
	c.Flags().StringSliceVar(&media, "media", nil, "replace media URLs")
	c.Flags().StringVar(&at, "at", "", "publish at this RFC 3339 time instead of now")
	return c
}
