package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/taskview/cmd/taskview/output"
	"github.com/BuzzLyutic/taskview/internal/query"
	"github.com/BuzzLyutic/taskview/internal/reconcile"
	"github.com/BuzzLyutic/taskview/internal/session"
)

const watchHelp = `commands:
  set KEY VALUE   change a filter (search, status, priority, tags,
                  due_date_start, due_date_end, assigned_to, sort_by,
                  sort_order, per_page)
  page N          go to page N
  clear           drop every filter
  open QUERY      replace the view with a shared query string
  url             print the canonical query string
  refresh         fetch the list and counts again
  quit            exit`

var watchCmd = &cobra.Command{
	Use:   "watch [query]",
	Short: "Interactive list view with debounced refreshes",
	Long: `Keep a task list open and change it line by line from stdin. Bursts of
changes are coalesced: the list is fetched once the input has been quiet
for the debounce interval (TASKVIEW_DEBOUNCE).

` + watchHelp,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		var raw string
		if len(args) == 1 {
			raw = args[0]
		}

		w := &watcher{}
		s := newSession(raw, session.Options{
			OnURL:  w.setURL,
			OnView: w.render,
		})
		defer s.Close()
		w.url = s.URL()
		w.filters = s.Filters

		if err := applyFilterFlags(cmd, s); err != nil {
			return err
		}
		if err := s.Start(ctx); err != nil {
			logger.Debug("initial load incomplete", zap.Error(err))
		}

		lines := make(chan string)
		go scanLines(ctx, cmd.InOrStdin(), lines)

		for {
			select {
			case <-ctx.Done():
				return nil
			case line, ok := <-lines:
				if !ok {
					return nil
				}
				quit, err := w.exec(ctx, s, line)
				if err != nil {
					w.print(func() { printer.Error("%v", err) })
				}
				if quit {
					return nil
				}
			}
		}
	},
}

func init() {
	addFilterFlags(watchCmd)
	rootCmd.AddCommand(watchCmd)
}

// watcher serialises output from the fetch goroutine and the input loop.
type watcher struct {
	mu      sync.Mutex
	url     string
	filters func() query.FilterSet
}

func (w *watcher) setURL(canonical string) {
	w.mu.Lock()
	w.url = canonical
	w.mu.Unlock()
}

func (w *watcher) render(v reconcile.View) {
	// промежуточные состояния загрузки не печатаем
	if v.Loading {
		return
	}
	filtered := w.filters != nil && w.filters().HasFilters()
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := formatter.Print(output.NewListResult(w.url, filtered, v, time.Now())); err != nil {
		logger.Warn("render failed", zap.Error(err))
	}
}

func (w *watcher) print(fn func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fn()
}

func (w *watcher) exec(ctx context.Context, s *session.Session, line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	switch fields[0] {
	case "set":
		if len(fields) < 2 {
			return false, errors.New("usage: set KEY VALUE")
		}
		// значение может содержать пробелы: "set search fix login"
		return false, s.Set(fields[1], afterFields(line, 2))
	case "page":
		if len(fields) != 2 {
			return false, errors.New("usage: page N")
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil {
			return false, fmt.Errorf("invalid page %q", fields[1])
		}
		return false, s.SetPage(n)
	case "clear":
		s.Clear()
	case "open":
		s.Replace(afterFields(line, 1))
	case "url":
		w.print(func() { printer.Println("?%s", s.URL()) })
	case "refresh":
		return false, s.Refresh(ctx)
	case "help":
		w.print(func() { printer.Println("%s", watchHelp) })
	case "quit", "exit":
		return true, nil
	default:
		return false, fmt.Errorf("unknown command %q, try help", fields[0])
	}
	return false, nil
}

// afterFields returns line with its first n whitespace-separated fields
// removed, inner spacing of the rest kept.
func afterFields(line string, n int) string {
	rest := line
	for i := 0; i < n; i++ {
		rest = strings.TrimLeftFunc(rest, unicode.IsSpace)
		end := strings.IndexFunc(rest, unicode.IsSpace)
		if end < 0 {
			return ""
		}
		rest = rest[end:]
	}
	return strings.TrimSpace(rest)
}

func scanLines(ctx context.Context, r io.Reader, out chan<- string) {
	defer close(out)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		select {
		case out <- sc.Text():
		case <-ctx.Done():
			return
		}
	}
	if err := sc.Err(); err != nil {
		logger.Warn("read input", zap.Error(err))
	}
}
