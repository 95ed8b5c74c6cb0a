package memapi

import (
	"fmt"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BuzzLyutic/taskview/internal/api"
	"github.com/BuzzLyutic/taskview/internal/model"
)

func TestStore_ConcurrentIdempotencyKeys(t *testing.T) {
	s := NewStore(nil)
	v := Viewer{UserID: 1}

	const goroutines = 10
	const idempKey = "concurrent-test-key"

	var wg sync.WaitGroup
	results := make([]model.Task, goroutines)
	errs := make([]error, goroutines)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			body := api.TaskBody{Title: fmt.Sprintf("Concurrent Task %d", idx)}
			results[idx], errs[idx] = s.Create(v, body, idempKey)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "request %d should not error", i)
	}
	firstID := results[0].ID
	for i, result := range results {
		assert.Equal(t, firstID, result.ID, "request %d should return same ID", i)
	}
	assert.Equal(t, int64(1), s.List(v, url.Values{}).Pagination.Total, "only one task should be created")
}

func TestStore_ConcurrentCreates(t *testing.T) {
	s := NewStore(nil)
	v := Viewer{UserID: 1}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			_, err := s.Create(v, api.TaskBody{Title: fmt.Sprintf("Task %d", idx)}, "")
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	page := s.List(v, url.Values{"per_page": {"100"}})
	assert.Len(t, page.Tasks, 50)

	seen := make(map[int64]bool)
	for _, task := range page.Tasks {
		assert.False(t, seen[task.ID], "duplicate id %d", task.ID)
		seen[task.ID] = true
	}
}

func TestSeed(t *testing.T) {
	s := NewStore(nil)
	tasks := Seed(s, 9)
	require.Len(t, tasks, 9)

	counts := s.Stats(Viewer{UserID: 1})
	assert.Equal(t, model.StatusCounts{Todo: 3, Doing: 3, Done: 3}, counts)
	assert.Len(t, s.Users(), 2)
}
