package session

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/BuzzLyutic/taskview/internal/api"
	"github.com/BuzzLyutic/taskview/internal/memapi"
)

var testNow = time.Date(2026, time.June, 1, 9, 0, 0, 0, time.UTC)

type noticeLog struct {
	mu    sync.Mutex
	items []Notice
}

func (l *noticeLog) Notify(n Notice) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = append(l.items, n)
}

func (l *noticeLog) All() []Notice {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Notice(nil), l.items...)
}

func (l *noticeLog) Last() Notice {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.items) == 0 {
		return Notice{}
	}
	return l.items[len(l.items)-1]
}

type fixture struct {
	srv     *memapi.Server
	s       *Session
	notices *noticeLog

	mu   sync.Mutex
	urls []string
}

// setupSession starts an in-memory service and a session on top of it. The
// debounce delay is an hour unless opts say otherwise, so tests drive
// fetches with Flush.
func setupSession(t *testing.T, opts Options) *fixture {
	t.Helper()

	srv := memapi.NewServer(zap.NewNop(), memapi.WithClock(func() time.Time { return testNow }))
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	f := &fixture{srv: srv, notices: &noticeLog{}}
	opts.API = api.New(ts.URL, zap.NewNop())
	opts.Now = func() time.Time { return testNow }
	opts.Notifier = f.notices
	opts.Logger = zap.NewNop()
	if opts.Delay == 0 {
		opts.Delay = time.Hour
	}
	opts.OnURL = func(u string) {
		f.mu.Lock()
		f.urls = append(f.urls, u)
		f.mu.Unlock()
	}
	f.s = New(opts)
	t.Cleanup(f.s.Close)
	return f
}

func (f *fixture) URLs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.urls...)
}

// listRequests returns the GET /tasks requests seen by the server, stats
// excluded.
func (f *fixture) listRequests() []string {
	var out []string
	for _, r := range f.srv.Requests() {
		if strings.HasPrefix(r, "GET /tasks?") || r == "GET /tasks" {
			out = append(out, r)
		}
	}
	return out
}

func (f *fixture) countRequests(prefix string) int {
	n := 0
	for _, r := range f.srv.Requests() {
		if strings.HasPrefix(r, prefix) {
			n++
		}
	}
	return n
}

// failWith makes matching requests answer with a structured error.
func failWith(status int, body string, match func(r *http.Request) bool) memapi.Interceptor {
	return func(w http.ResponseWriter, r *http.Request) bool {
		if !match(r) {
			return false
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
		return true
	}
}

// WaitForCondition ждет выполнения условия с таймаутом
func WaitForCondition(t *testing.T, timeout time.Duration, condition func() bool) bool {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}
