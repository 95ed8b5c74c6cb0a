// Package reconcile applies fetch results to the task-list view state and
// drops results that were superseded by a newer request.
package reconcile

import (
	"sync"

	"go.uber.org/zap"

	"github.com/BuzzLyutic/taskview/internal/model"
)

// Ticket tags one fetch with the sequence number it was issued under.
type Ticket struct {
	seq uint64
}

func (t Ticket) Seq() uint64 {
	return t.seq
}

// View is what the renderer draws. Tasks and Pagination always come from
// the same response.
type View struct {
	Tasks        []model.Task
	Pagination   model.PaginationMeta
	Stats        model.StatusCounts
	Loading      bool
	StatsLoading bool
	// Err is the failure of the latest list fetch, cleared by the next
	// successful one.
	Err error
}

// gate tracks one request stream: the latest issued sequence number and
// whether it is still outstanding.
type gate struct {
	issued  uint64
	settled uint64
}

func (g *gate) begin() Ticket {
	g.issued++
	return Ticket{seq: g.issued}
}

func (g *gate) current(t Ticket) bool {
	return t.seq == g.issued && t.seq > g.settled
}

func (g *gate) outstanding() bool {
	return g.issued > g.settled
}

type Reconciler struct {
	logger *zap.Logger

	// pubMu keeps subscribers seeing views in the order they were applied.
	pubMu sync.Mutex

	mu     sync.Mutex
	view   View
	tasks  gate
	stats  gate
	closed bool
	subs   []func(View)
}

func New(initial model.PaginationMeta, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		logger: logger,
		view:   View{Pagination: initial.Normalize()},
	}
}

// Subscribe registers fn to run after every applied change. It must be
// called before fetches start.
func (r *Reconciler) Subscribe(fn func(View)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs = append(r.subs, fn)
}

// BeginTasks tags a new list fetch. Issuing it supersedes every earlier
// list fetch.
func (r *Reconciler) BeginTasks() Ticket {
	r.mu.Lock()
	t := r.tasks.begin()
	r.view.Loading = !r.closed
	r.mu.Unlock()

	r.logger.Debug("task fetch issued", zap.Uint64("seq", t.seq))
	return t
}

// ApplyTasks settles a list fetch. It reports whether the result reached the
// view; results of superseded fetches, or arriving after Close, are dropped
// without touching the loading flag.
func (r *Reconciler) ApplyTasks(t Ticket, page model.TaskPage, err error) bool {
	r.pubMu.Lock()
	defer r.pubMu.Unlock()

	r.mu.Lock()
	if r.closed || !r.tasks.current(t) {
		latest := r.tasks.issued
		r.mu.Unlock()
		r.logger.Debug("stale task result dropped", zap.Uint64("seq", t.seq), zap.Uint64("latest", latest))
		return false
	}

	r.tasks.settled = t.seq
	r.view.Loading = false
	if err != nil {
		r.view.Err = err
	} else {
		tasks := make([]model.Task, len(page.Tasks))
		copy(tasks, page.Tasks)
		r.view.Tasks = tasks
		r.view.Pagination = page.Pagination.Normalize()
		r.view.Err = nil
	}
	v, subs := r.snapshotLocked()
	r.mu.Unlock()

	if err != nil {
		r.logger.Warn("task fetch failed, keeping previous page", zap.Uint64("seq", t.seq), zap.Error(err))
	}
	r.publish(v, subs)
	return true
}

// BeginStats tags a new status-count fetch.
func (r *Reconciler) BeginStats() Ticket {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := r.stats.begin()
	r.view.StatsLoading = !r.closed
	return t
}

// ApplyStats settles a status-count fetch under the same rule as
// ApplyTasks. Failed fetches keep the previous counts.
func (r *Reconciler) ApplyStats(t Ticket, counts model.StatusCounts, err error) bool {
	r.pubMu.Lock()
	defer r.pubMu.Unlock()

	r.mu.Lock()
	if r.closed || !r.stats.current(t) {
		r.mu.Unlock()
		return false
	}

	r.stats.settled = t.seq
	r.view.StatsLoading = false
	if err == nil {
		r.view.Stats = counts
	}
	v, subs := r.snapshotLocked()
	r.mu.Unlock()

	if err != nil {
		r.logger.Warn("stats fetch failed", zap.Error(err))
	}
	r.publish(v, subs)
	return true
}

// Close tears the reconciler down. Every result arriving later is dropped.
func (r *Reconciler) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.view.Loading = false
	r.view.StatsLoading = false
}

// Snapshot returns a copy of the view that shares no memory with the
// reconciler.
func (r *Reconciler) Snapshot() View {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, _ := r.snapshotLocked()
	return v
}

// Loading reports whether the latest list fetch is still outstanding.
func (r *Reconciler) Loading() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.closed && r.tasks.outstanding()
}

func (r *Reconciler) snapshotLocked() (View, []func(View)) {
	v := r.view
	v.Tasks = make([]model.Task, len(r.view.Tasks))
	copy(v.Tasks, r.view.Tasks)
	return v, r.subs
}

func (r *Reconciler) publish(v View, subs []func(View)) {
	for _, fn := range subs {
		fn(v)
	}
}
