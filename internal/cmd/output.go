package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/Iron-Ham/postflow/internal/errors"
	"github.com/Iron-Ham/postflow/internal/model"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

// printer renders command results. Output is JSON when --json is set or
// stdout is not a terminal.
type printer struct {
	out  io.Writer
	json bool
}

func newPrinter(cmd *cobra.Command) *printer {
	out := cmd.OutOrStdout()
	return &printer{out: out, json: viper.GetBool("json") || !isTerminal(out)}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// emit writes v as indented JSON, or calls text when printing for a terminal.
func (p *printer) emit(v any, text func(w io.Writer)) error {
	if p.json {
		enc := json.NewEncoder(p.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(p.out)
	return nil
}

func (p *printer) table(header ...string) *tabwriter.Writer {
	tw := tabwriter.NewWriter(p.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	return tw
}

func success(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, color.GreenString("✓")+" "+fmt.Sprintf(format, args...))
}

func hint(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, color.CyanString("→")+" "+fmt.Sprintf(format, args...))
}

// statusColor colors workflow statuses by outcome. Post, step and task
// statuses share values such as APPROVED and PENDING, so each value is
// listed once.
func statusColor(status string) string {
	switch status {
	case string(model.PostApproved), string(model.PostPublished), string(model.TaskCompleted):
		return color.GreenString(status)
	case string(model.PostRejected), string(model.TaskCanceled):
		return color.RedString(status)
	case string(model.PostInReview), string(model.PostScheduled), string(model.StepPending):
		return color.YellowString(status)
	default:
		return status
	}
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func printPost(w io.Writer, p *model.Post) {
	fmt.Fprintf(w, "Post:      %s\n", p.ID)
	if p.Title != "" {
		fmt.Fprintf(w, "Title:     %s\n", p.Title)
	}
	fmt.Fprintf(w, "Status:    %s\n", statusColor(p.Status.String()))
	fmt.Fprintf(w, "Author:    %s (org %s)\n", p.AuthorID, p.OrganizationID)
	fmt.Fprintf(w, "Round:     %d\n", p.Round)
	if len(p.Platforms) > 0 {
		fmt.Fprintf(w, "Platforms: %s\n", strings.Join(p.Platforms, ", "))
	}
	if p.ScheduledFor != nil {
		fmt.Fprintf(w, "Scheduled: %s\n", formatTime(p.ScheduledFor))
	}
	if p.PublishID != "" {
		fmt.Fprintf(w, "Published: %s (%s)\n", formatTime(p.PublishedAt), p.PublishID)
	}
}

func printTasks(p *printer, tasks []*model.Task) {
	tw := p.table("TASK", "TYPE", "STATUS", "POST", "STEP", "ASSIGNEES")
	for _, t := range tasks {
		step := t.StepID
		if step == "" {
			step = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			t.ID, t.Type, statusColor(t.Status.String()), t.PostID, step, strings.Join(t.AssigneeIDs, ","))
	}
	_ = tw.Flush()
}

// errorBody is the JSON shape of a failed command.
type errorBody struct {
	Error struct {
		Kind    errors.Kind `json:"kind"`
		Message string      `json:"message"`
	} `json:"error"`
}

// PrintError reports err on w. JSON output mirrors the --json setting.
func PrintError(w io.Writer, err error) {
	if viper.GetBool("json") {
		var body errorBody
		body.Error.Kind = errors.KindOf(err)
		body.Error.Message = err.Error()
		_ = json.NewEncoder(w).Encode(body)
		return
	}
	fmt.Fprintln(w, color.RedString("✗")+" "+err.Error())
	switch {
	case errors.IsRetryable(err):
		hint(w, "Another change touched the same post; run the command again")
	case !errors.IsUserFacing(err):
		hint(w, "See the log for details (logging.file, default stderr)")
	}
}
