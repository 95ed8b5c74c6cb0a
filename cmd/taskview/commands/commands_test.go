package commands

import (
	"bytes"
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/taskview/cmd/taskview/output"
	"github.com/BuzzLyutic/taskview/internal/config"
	"github.com/BuzzLyutic/taskview/internal/memapi"
	"github.com/BuzzLyutic/taskview/internal/session"
)

// setupCommands points the package globals at an in-memory service.
func setupCommands(t *testing.T, tasks int) (*memapi.Server, *bytes.Buffer) {
	t.Helper()

	srv := memapi.NewServer(zap.NewNop())
	memapi.Seed(srv.Store(), tasks)
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	var out bytes.Buffer
	cfg = config.Config{APIURL: ts.URL, PerPage: 10, Debounce: time.Hour, LogLevel: "info", Addr: ":0"}
	logger = zap.NewNop()
	formatter = output.NewFormatter(output.FormatJSON, &out)
	printer = output.NewPrinter(&out)
	return srv, &out
}

func TestLoadTask(t *testing.T) {
	srv, _ := setupCommands(t, 150)

	task, err := loadTask(context.Background(), newClient(), 3)
	require.NoError(t, err)
	assert.Equal(t, "Task 3", task.Title)
	assert.Contains(t, srv.Requests(), "GET /tasks/3")

	_, err = loadTask(context.Background(), newClient(), 999)
	assert.EqualError(t, err, "Task not found")
}

func TestWatcher_Exec(t *testing.T) {
	srv, _ := setupCommands(t, 3)

	w := &watcher{}
	s := newSession("", session.Options{OnURL: w.setURL})
	defer s.Close()
	ctx := context.Background()

	quit, err := w.exec(ctx, s, "set search fix login")
	require.NoError(t, err)
	assert.False(t, quit)
	assert.Equal(t, "fix login", s.Filters().Search)

	_, err = w.exec(ctx, s, "page 3")
	require.NoError(t, err)
	assert.Equal(t, 3, s.Filters().Page)
	assert.Equal(t, "search=fix+login&page=3", w.url)

	_, err = w.exec(ctx, s, "set  search   bug")
	require.NoError(t, err)
	assert.Equal(t, "bug", s.Filters().Search)

	_, err = w.exec(ctx, s, "set status bogus")
	assert.Error(t, err)

	_, err = w.exec(ctx, s, "page x")
	assert.Error(t, err)

	_, err = w.exec(ctx, s, "frobnicate")
	assert.Error(t, err)

	_, err = w.exec(ctx, s, "open ?status=done")
	require.NoError(t, err)
	assert.Equal(t, "status=done", s.URL())

	_, err = w.exec(ctx, s, "open search=fix login&page=2")
	require.NoError(t, err)
	assert.Equal(t, "fix login", s.Filters().Search)
	assert.Equal(t, "search=fix+login&page=2", s.URL())

	_, err = w.exec(ctx, s, "clear")
	require.NoError(t, err)
	assert.Equal(t, "", s.URL())

	// debounce длиной в час: до refresh ни одного GET /tasks
	assert.Empty(t, srv.Requests())
	_, err = w.exec(ctx, s, "refresh")
	require.NoError(t, err)
	assert.NotEmpty(t, srv.Requests())

	quit, err = w.exec(ctx, s, "quit")
	require.NoError(t, err)
	assert.True(t, quit)
}

func TestAfterFields(t *testing.T) {
	tests := []struct {
		line string
		n    int
		want string
	}{
		{"set search bug", 2, "bug"},
		{"set  search   bug", 2, "bug"},
		{"set search fix  login ", 2, "fix  login"},
		{"set search", 2, ""},
		{"\tset\tsearch\tbug", 2, "bug"},
		{"open search=fix login", 1, "search=fix login"},
		{"open", 1, ""},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, tt.want, afterFields(tt.line, tt.n))
		})
	}
}

func TestParseID(t *testing.T) {
	id, err := parseID("42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, bad := range []string{"0", "-1", "abc", ""} {
		_, err := parseID(bad)
		assert.Error(t, err, bad)
	}
}
