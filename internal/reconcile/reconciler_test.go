package reconcile

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/taskview/internal/model"
)

func page(titles ...string) model.TaskPage {
	p := model.TaskPage{Pagination: model.PaginationMeta{Page: 1, PerPage: 10, Total: int64(len(titles))}}
	for i, title := range titles {
		p.Tasks = append(p.Tasks, model.Task{ID: int64(i + 1), Title: title})
	}
	return p
}

func titles(v View) []string {
	out := make([]string, 0, len(v.Tasks))
	for _, t := range v.Tasks {
		out = append(out, t.Title)
	}
	return out
}

func newTestReconciler() *Reconciler {
	return New(model.PaginationMeta{Page: 1, PerPage: 10}, zap.NewNop())
}

func TestReconciler_StaleResultRejected(t *testing.T) {
	r := newTestReconciler()

	a := r.BeginTasks()
	b := r.BeginTasks()
	assert.Greater(t, b.Seq(), a.Seq())

	require.True(t, r.ApplyTasks(b, page("fresh"), nil))
	assert.False(t, r.ApplyTasks(a, page("stale"), nil))

	assert.Equal(t, []string{"fresh"}, titles(r.Snapshot()))
	assert.False(t, r.Snapshot().Loading)
}

func TestReconciler_SupersededResultDroppedWhilePending(t *testing.T) {
	r := newTestReconciler()

	a := r.BeginTasks()
	b := r.BeginTasks()

	// A resolves first, but B is still outstanding ahead of it.
	assert.False(t, r.ApplyTasks(a, page("old"), nil))
	assert.True(t, r.Snapshot().Loading, "loading must not flicker for a superseded result")
	assert.Empty(t, r.Snapshot().Tasks)

	require.True(t, r.ApplyTasks(b, page("new"), nil))
	assert.False(t, r.Snapshot().Loading)
	assert.Equal(t, []string{"new"}, titles(r.Snapshot()))
}

func TestReconciler_ApplyOnlyOnce(t *testing.T) {
	r := newTestReconciler()

	a := r.BeginTasks()
	require.True(t, r.ApplyTasks(a, page("one"), nil))
	assert.False(t, r.ApplyTasks(a, page("two"), nil))
	assert.Equal(t, []string{"one"}, titles(r.Snapshot()))
}

func TestReconciler_FailureKeepsPreviousState(t *testing.T) {
	r := newTestReconciler()

	first := r.BeginTasks()
	ok := page("kept")
	ok.Pagination = model.PaginationMeta{Page: 2, PerPage: 10, Total: 25}
	require.True(t, r.ApplyTasks(first, ok, nil))

	boom := errors.New("connection reset")
	second := r.BeginTasks()
	require.True(t, r.ApplyTasks(second, model.TaskPage{}, boom))

	v := r.Snapshot()
	assert.Equal(t, []string{"kept"}, titles(v))
	assert.Equal(t, int64(2), v.Pagination.Page)
	assert.Equal(t, int64(3), v.Pagination.TotalPages)
	assert.ErrorIs(t, v.Err, boom)
	assert.False(t, v.Loading)

	third := r.BeginTasks()
	require.True(t, r.ApplyTasks(third, page("back"), nil))
	assert.NoError(t, r.Snapshot().Err)
}

func TestReconciler_PaginationNormalized(t *testing.T) {
	r := newTestReconciler()

	tk := r.BeginTasks()
	empty := model.TaskPage{Pagination: model.PaginationMeta{Page: 1, PerPage: 10, Total: 0, TotalPages: 0}}
	require.True(t, r.ApplyTasks(tk, empty, nil))

	assert.Equal(t, int64(1), r.Snapshot().Pagination.TotalPages)
}

func TestReconciler_CloseDropsLateResults(t *testing.T) {
	r := newTestReconciler()

	tk := r.BeginTasks()
	st := r.BeginStats()
	r.Close()

	assert.False(t, r.ApplyTasks(tk, page("late"), nil))
	assert.False(t, r.ApplyStats(st, model.StatusCounts{Todo: 1}, nil))
	assert.Empty(t, r.Snapshot().Tasks)
	assert.False(t, r.Loading())
	assert.False(t, r.Snapshot().Loading)
}

func TestReconciler_Stats(t *testing.T) {
	r := newTestReconciler()

	a := r.BeginStats()
	b := r.BeginStats()
	require.True(t, r.ApplyStats(b, model.StatusCounts{Todo: 1, Doing: 2, Done: 3}, nil))
	assert.False(t, r.ApplyStats(a, model.StatusCounts{Todo: 9}, nil))

	v := r.Snapshot()
	assert.Equal(t, int64(6), v.Stats.Total())
	assert.False(t, v.StatsLoading)

	c := r.BeginStats()
	require.True(t, r.ApplyStats(c, model.StatusCounts{}, errors.New("down")))
	assert.Equal(t, int64(6), r.Snapshot().Stats.Total())
}

func TestReconciler_StatsIndependentOfTasks(t *testing.T) {
	r := newTestReconciler()

	tk := r.BeginTasks()
	st := r.BeginStats()
	require.True(t, r.ApplyStats(st, model.StatusCounts{Done: 4}, nil))

	assert.True(t, r.Loading())
	require.True(t, r.ApplyTasks(tk, page("x"), nil))
	assert.Equal(t, int64(4), r.Snapshot().Stats.Done)
}

func TestReconciler_SnapshotIsCopy(t *testing.T) {
	r := newTestReconciler()
	tk := r.BeginTasks()
	require.True(t, r.ApplyTasks(tk, page("a"), nil))

	v := r.Snapshot()
	v.Tasks[0].Title = "mutated"

	assert.Equal(t, []string{"a"}, titles(r.Snapshot()))
}

func TestReconciler_Subscribe(t *testing.T) {
	r := newTestReconciler()

	var got [][]string
	r.Subscribe(func(v View) { got = append(got, titles(v)) })

	a := r.BeginTasks()
	b := r.BeginTasks()
	r.ApplyTasks(a, page("stale"), nil)
	r.ApplyTasks(b, page("fresh"), nil)

	assert.Equal(t, [][]string{{"fresh"}}, got)
}

func TestReconciler_OutOfOrderUnderLoad(t *testing.T) {
	r := newTestReconciler()

	const n = 50
	tickets := make([]Ticket, n)
	for i := range tickets {
		tickets[i] = r.BeginTasks()
	}

	var wg sync.WaitGroup
	for i := n - 1; i >= 0; i-- {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r.ApplyTasks(tickets[i], page(string(rune('A'+i%26))), nil)
		}(i)
	}
	wg.Wait()

	// Only the last issued fetch may land.
	assert.Equal(t, []string{string(rune('A' + (n-1)%26))}, titles(r.Snapshot()))
	assert.False(t, r.Loading())
}
