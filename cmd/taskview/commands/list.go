package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/taskview/cmd/taskview/output"
	"github.com/BuzzLyutic/taskview/internal/query"
	"github.com/BuzzLyutic/taskview/internal/session"
)

// filterFlags maps list flags to query keys, in the order they are applied.
var filterFlags = []struct {
	flag, key, usage string
}{
	{"search", query.KeySearch, "Substring of title or description"},
	{"status", query.KeyStatus, "todo, doing, done or all"},
	{"priority", query.KeyPriority, "low, med, high or all"},
	{"tags", query.KeyTags, "Comma-separated tags, any of which must match"},
	{"due-from", query.KeyDueDateStart, "Earliest due date (YYYY-MM-DD)"},
	{"due-to", query.KeyDueDateEnd, "Latest due date (YYYY-MM-DD)"},
	{"assigned-to", query.KeyAssignedTo, "Assignee substring, or all"},
	{"sort-by", query.KeySortBy, "created_at, updated_at, due_date, priority, title, status or owner_name"},
	{"order", query.KeySortOrder, "asc or desc"},
	{"per-page", query.KeyPerPage, "Tasks per page (1-100)"},
}

var listCmd = &cobra.Command{
	Use:   "list [query]",
	Short: "List one page of tasks",
	Long: `List one page of tasks. The optional argument is a shared query string;
flags are applied on top of it, and the canonical query of the result is
printed so the view can be shared again.

Examples:
  taskview list --status doing --sort-by due_date --order asc
  taskview list 'search=bug&page=2' --output json`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		var raw string
		if len(args) == 1 {
			raw = args[0]
		}
		s := newSession(raw, session.Options{})
		defer s.Close()

		if err := applyFilterFlags(cmd, s); err != nil {
			return err
		}

		// счетчики и пользователи здесь не нужны, но Start грузит их параллельно
		if err := s.Start(ctx); err != nil {
			logger.Debug("initial load incomplete", zap.Error(err))
		}

		v := s.View()
		if err := formatter.Print(output.NewListResult(s.URL(), s.Filters().HasFilters(), v, time.Now())); err != nil {
			return err
		}
		if v.Err != nil {
			return fmt.Errorf("list tasks: %w", v.Err)
		}
		return nil
	},
}

func applyFilterFlags(cmd *cobra.Command, s *session.Session) error {
	for _, f := range filterFlags {
		if !cmd.Flags().Changed(f.flag) {
			continue
		}
		value, _ := cmd.Flags().GetString(f.flag)
		if err := s.Set(f.key, value); err != nil {
			return fmt.Errorf("--%s: %w", f.flag, err)
		}
	}
	// Страницу ставим последней: любой другой фильтр сбрасывает её на 1.
	if cmd.Flags().Changed("page") {
		page, _ := cmd.Flags().GetInt("page")
		if err := s.SetPage(page); err != nil {
			return fmt.Errorf("--page: %w", err)
		}
	}
	return nil
}

func addFilterFlags(cmd *cobra.Command) {
	for _, f := range filterFlags {
		cmd.Flags().String(f.flag, "", f.usage)
	}
	cmd.Flags().Int("page", 1, "Page number")
}

func init() {
	addFilterFlags(listCmd)
	rootCmd.AddCommand(listCmd)
}

// parseID reads a task id argument.
func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid task id %q", arg)
	}
	return id, nil
}
