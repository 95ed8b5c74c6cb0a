// Package session wires the query store, the debounced fetch scheduler, the
// REST client and the reconciler into one task-list view.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BuzzLyutic/taskview/internal/api"
	"github.com/BuzzLyutic/taskview/internal/model"
	"github.com/BuzzLyutic/taskview/internal/query"
	"github.com/BuzzLyutic/taskview/internal/reconcile"
	"github.com/BuzzLyutic/taskview/internal/service"
	"github.com/BuzzLyutic/taskview/internal/worker"
)

var ErrClosed = errors.New("session closed")

// API is the part of the REST service the session talks to. *api.Client
// implements it.
type API interface {
	ListTasks(ctx context.Context, rawQuery string) (model.TaskPage, error)
	Stats(ctx context.Context) (model.StatusCounts, error)
	Users(ctx context.Context) ([]model.User, error)
	CreateTask(ctx context.Context, d model.TaskFormDraft, idempotencyKey string) (model.Task, error)
	UpdateTask(ctx context.Context, id int64, d model.TaskFormDraft) (model.Task, error)
	DeleteTask(ctx context.Context, id int64) error
}

type Options struct {
	API      API
	// Query is the initial query string, usually taken from a shared URL.
	Query    string
	// PerPage overrides the default page size; zero keeps 10.
	PerPage  int
	Delay    time.Duration
	// Now is the clock used for due-date validation.
	Now      func() time.Time
	Logger   *zap.Logger
	Notifier Notifier
	// OnURL receives the canonical query string after every change.
	OnURL    func(canonical string)
	// OnView receives the view after every applied fetch result.
	OnView   func(v reconcile.View)
}

type Session struct {
	api      API
	codec    query.Codec
	store    *query.Store
	sched    *worker.Scheduler
	rec      *reconcile.Reconciler
	validate *service.FormValidator
	logger   *zap.Logger
	notifier Notifier

	unsub func()

	mu     sync.Mutex
	users  []model.User
	closed bool
}

func New(opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = logNotifier{logger: logger}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	codec := query.NewCodec(opts.PerPage)
	store := query.NewStore(codec, opts.Query, logger.Named("query"))
	initial := store.Get()

	s := &Session{
		api:      opts.API,
		codec:    codec,
		store:    store,
		rec:      reconcile.New(model.PaginationMeta{Page: int64(initial.Page), PerPage: int64(initial.PerPage)}, logger.Named("reconcile")),
		validate: service.NewFormValidator(now),
		logger:   logger,
		notifier: notifier,
	}
	s.sched = worker.NewScheduler(opts.Delay, store.Get, s.fetchTasks, logger.Named("worker"))

	if opts.OnView != nil {
		s.rec.Subscribe(opts.OnView)
	}
	onURL := opts.OnURL
	s.unsub = store.Subscribe(func(f query.FilterSet) {
		if onURL != nil {
			onURL(codec.Canonical(f))
		}
		s.sched.Trigger()
	})
	return s
}

// Start performs the initial load: the task list, the status counts and the
// assignable users, concurrently. The list outcome lands in View; the
// returned error covers counts and users.
func (s *Session) Start(ctx context.Context) error {
	if s.isClosed() {
		return ErrClosed
	}
	var g errgroup.Group
	g.Go(func() error {
		s.sched.Now()
		return nil
	})
	g.Go(func() error { return s.refreshStats(ctx) })
	g.Go(func() error { return s.loadUsers(ctx) })
	return g.Wait()
}

func (s *Session) Set(key, value string) error { return s.store.Set(key, value) }
func (s *Session) SetPage(page int) error { return s.store.SetPage(page) }
func (s *Session) Clear() { s.store.Clear() }
func (s *Session) Replace(raw string) { s.store.Replace(raw) }

// Filters returns the current query snapshot.
func (s *Session) Filters() query.FilterSet { return s.store.Get() }

// URL is the canonical query string of the current state.
func (s *Session) URL() string { return s.store.Canonical() }

func (s *Session) View() reconcile.View { return s.rec.Snapshot() }

// Flush runs a pending debounced fetch right away.
func (s *Session) Flush() bool { return s.sched.Flush() }

// Pending reports whether a debounced fetch is armed.
func (s *Session) Pending() bool { return s.sched.Pending() }

func (s *Session) Users() []model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.User, len(s.users))
	copy(out, s.users)
	return out
}

// Refresh reloads the list and the status counts, as after a mutation.
func (s *Session) Refresh(ctx context.Context) error {
	if s.isClosed() {
		return ErrClosed
	}
	var g errgroup.Group
	g.Go(func() error {
		s.sched.Now()
		return nil
	})
	g.Go(func() error { return s.refreshStats(ctx) })
	return g.Wait()
}

// Delete removes a task. Failures are reported through the notifier and
// leave the view untouched.
func (s *Session) Delete(ctx context.Context, id int64) error {
	if s.isClosed() {
		return ErrClosed
	}
	if err := s.api.DeleteTask(ctx, id); err != nil {
		s.notify(NoticeError, api.UserMessage(err, MsgDeleteFailed))
		return err
	}
	s.notify(NoticeSuccess, MsgTaskDeleted)
	_ = s.Refresh(ctx)
	return nil
}

// Close tears the session down: no further fetches are scheduled and every
// result that arrives afterwards is discarded. A fetch already on the wire
// is left to finish.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.unsub()
	s.sched.Stop()
	s.rec.Close()
	s.logger.Debug("session closed")
}

func (s *Session) fetchTasks(f query.FilterSet) {
	t := s.rec.BeginTasks()
	// Close не обрывает запрос: опоздавший ответ отбросит reconciler
	page, err := s.api.ListTasks(context.Background(), s.codec.Request(f))
	if !s.rec.ApplyTasks(t, page, err) {
		return
	}
	if err != nil {
		s.notify(NoticeError, api.UserMessage(err, MsgLoadTasksFailed))
	}
}

func (s *Session) refreshStats(ctx context.Context) error {
	t := s.rec.BeginStats()
	counts, err := s.api.Stats(ctx)
	s.rec.ApplyStats(t, counts, err)
	return err
}

func (s *Session) loadUsers(ctx context.Context) error {
	users, err := s.api.Users(ctx)
	if err != nil {
		s.notify(NoticeError, api.UserMessage(err, MsgLoadUsersFailed))
		return err
	}
	s.mu.Lock()
	s.users = users
	s.mu.Unlock()
	return nil
}

func (s *Session) notify(kind NoticeKind, msg string) {
	if s.isClosed() {
		return
	}
	s.notifier.Notify(Notice{Kind: kind, Message: msg})
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
