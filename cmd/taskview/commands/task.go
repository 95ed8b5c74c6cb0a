package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/BuzzLyutic/taskview/cmd/taskview/output"
	"github.com/BuzzLyutic/taskview/internal/api"
	"github.com/BuzzLyutic/taskview/internal/model"
	"github.com/BuzzLyutic/taskview/internal/session"
)

// formFlags maps create/update flags to draft fields.
var formFlags = []struct {
	flag, field, usage string
}{
	{"title", session.FieldTitle, "Task title (3-120 characters)"},
	{"description", session.FieldDescription, "Task description"},
	{"status", session.FieldStatus, "todo, doing or done"},
	{"priority", session.FieldPriority, "low, med or high"},
	{"due", session.FieldDueDate, "Due date (YYYY-MM-DD), not in the past"},
	{"tags", session.FieldTags, "Comma-separated tags"},
	{"assign", session.FieldAssignedTo, "Assignee name"},
}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a task",
	Long: `Create a task. The form is validated before anything is sent; a
retry after a network failure reuses the same idempotency key.

Examples:
  taskview create --title "Fix login bug" --priority high --due 2026-12-01`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		s := newSession("", session.Options{})
		defer s.Close()
		return submit(ctx, cmd, s.OpenCreate())
	},
}

var updateCmd = &cobra.Command{
	Use:   "update ID",
	Short: "Update a task",
	Long: `Update a task. Fields not given keep their current value.

Examples:
  taskview update 42 --status done`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		ctx, cancel := signalContext()
		defer cancel()

		task, err := loadTask(ctx, newClient(), id)
		if err != nil {
			return err
		}
		s := newSession("", session.Options{})
		defer s.Close()
		return submit(ctx, cmd, s.OpenEdit(task))
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		ctx, cancel := signalContext()
		defer cancel()

		s := newSession("", session.Options{})
		defer s.Close()
		return s.Delete(ctx, id)
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show task counts per status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		counts, err := newClient().Stats(ctx)
		if err != nil {
			return errors.New(api.UserMessage(err, "Failed to load statistics"))
		}
		return formatter.Print(output.NewStatsResult(counts))
	},
}

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "List assignable users",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		users, err := newClient().Users(ctx)
		if err != nil {
			return errors.New(api.UserMessage(err, session.MsgLoadUsersFailed))
		}
		return formatter.Print(output.NewUsersResult(users))
	},
}

func init() {
	for _, cmd := range []*cobra.Command{createCmd, updateCmd} {
		for _, f := range formFlags {
			cmd.Flags().String(f.flag, "", f.usage)
		}
	}
	rootCmd.AddCommand(createCmd, updateCmd, deleteCmd, statsCmd, usersCmd)
}

// submit fills the modal from the flags that were given and sends it.
func submit(ctx context.Context, cmd *cobra.Command, m *session.Modal) error {
	for _, f := range formFlags {
		if !cmd.Flags().Changed(f.flag) {
			continue
		}
		value, _ := cmd.Flags().GetString(f.flag)
		if err := m.Update(f.field, value); err != nil {
			return fmt.Errorf("--%s: %w", f.flag, err)
		}
	}
	if !m.CanSubmit() {
		if err := formatter.Print(output.FormErrors{Fields: m.Errors()}); err != nil {
			return err
		}
		return session.ErrInvalidDraft
	}

	task, err := m.Submit(ctx)
	if err != nil {
		if errs := m.Errors(); len(errs) > 0 {
			_ = formatter.Print(output.FormErrors{Fields: errs})
		}
		return err
	}
	return formatter.Print(output.NewTaskRow(task, time.Now()))
}

// loadTask fetches the current state of the task being edited.
func loadTask(ctx context.Context, c *api.Client, id int64) (model.Task, error) {
	task, err := c.GetTask(ctx, id)
	if err != nil {
		return model.Task{}, errors.New(api.UserMessage(err, session.MsgLoadTasksFailed))
	}
	return task, nil
}
