package cmd

import (
	"io"
	"strings"

	"github.com/Iron-Ham/postflow/internal/errors"
	"github.com/Iron-Ham/postflow/internal/model"
	"github.com/Iron-Ham/postflow/internal/store"
	"github.com/spf13/cobra"
)

func newTaskCmd() *cobra.Command {
	taskCmd := &cobra.Command{
		Use:   "task",
		Short: "List tasks and manage their assignees",
	}
	taskCmd.AddCommand(
		newTaskListCmd(),
		newAssigneeCmd("reassign <task> <user>...", "Replace the assignees of a pending task", cobra.MinimumNArgs(2)),
		newAssigneeCmd("add-assignee <task> <user>", "Add an assignee to a pending task", cobra.ExactArgs(2)),
		newAssigneeCmd("remove-assignee <task> <user>", "Remove an assignee from a pending task", cobra.ExactArgs(2)),
	)
	return taskCmd
}

func newTaskListCmd() *cobra.Command {
	var (
		f           store.TaskFilter
		status, typ string
		mine        bool
	)
	c := &cobra.Command{
		Use:   "list",
		Short: "List tasks of the tenant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tenantID, err := tenant()
			if err != nil {
				return err
			}
			f.TenantID = tenantID
			if mine {
				act, err := actor()
				if err != nil {
					return err
				}
				f.AssigneeID = act.UserID
			}
			if status != "" {
				f.Status = model.TaskStatus(strings.ToUpper(status))
				if f.Status != model.TaskPending && !f.Status.IsTerminal() {
					return errors.NewValidationError("unknown task status").WithField("status").WithValue(status)
				}
			}
			if typ != "" {
				f.Type = model.TaskType(strings.ToUpper(typ))
				if f.Type != model.TaskReview && f.Type != model.TaskPublish {
					return errors.NewValidationError("unknown task type").WithField("type").WithValue(typ)
				}
			}

			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			tasks, err := a.tasks.ListTasks(cmd.Context(), f)
			if err != nil {
				return err
			}
			if tasks == nil {
				tasks = []*model.Task{}
			}

			p := newPrinter(cmd)
			return p.emit(tasks, func(w io.Writer) {
				if len(tasks) == 0 {
					hint(w, "No matching tasks")
					return
				}
				printTasks(p, tasks)
			})
		},
	}
	c.Flags().StringVar(&f.AssigneeID, "assignee", "", "only tasks assigned to this user")
	c.Flags().BoolVar(&mine, "mine", false, "only tasks assigned to --user")
	c.Flags().StringVar(&f.PostID, "post", "", "only tasks of this post")
	c.Flags().StringVar(&status, "status", "", "pending, completed or canceled")
	c.Flags().StringVar(&typ, "type", "", "review or publish")
	c.Flags().IntVar(&f.Limit, "limit", 0, "maximum number of tasks (0 = all)")
	return c
}

func newAssigneeCmd(use, short string, args cobra.PositionalArgs) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
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

			ctx, taskID := cmd.Context(), args[0]
			var task *model.Task
			switch cmd.Name() {
			case "reassign":
				task, err = a.tasks.Reassign(ctx, tenantID, taskID, args[1:])
			case "add-assignee":
				task, err = a.tasks.AddAssignee(ctx, tenantID, taskID, args[1])
			default:
				task, err = a.tasks.RemoveAssignee(ctx, tenantID, taskID, args[1])
			}
			if err != nil {
				return err
			}

			return newPrinter(cmd).emit(task, func(w io.Writer) {
				success(w, "Task %s assigned to %s", task.ID, strings.Join(task.AssigneeIDs, ", "))
			})
		},
	}
}
