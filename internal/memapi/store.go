// Package memapi is an in-memory implementation of the task tracker REST
// service. It backs the demo server and the client tests.
package memapi

import (
	"errors"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BuzzLyutic/taskview/internal/api"
	"github.com/BuzzLyutic/taskview/internal/model"
)

var (
	ErrorNotFound = errors.New("not found")
	// ErrorConflict is a replayed idempotency key whose task is gone.
	ErrorConflict = errors.New("conflict")
)

// Viewer is the authenticated caller. Regular users see only their own
// tasks; admins see every task with owner details.
type Viewer struct {
	UserID int64
	Admin  bool
}

type Store struct {
	mu     sync.Mutex
	tasks  []model.Task
	users  []model.User
	idem   map[string]int64
	nextID int64
	now    func() time.Time
}

func NewStore(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		idem:   make(map[string]int64),
		nextID: 1,
		now:    now,
	}
}

func (s *Store) AddUser(u model.User) model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == 0 {
		u.ID = int64(len(s.users) + 1)
	}
	if u.Role == "" {
		u.Role = "user"
	}
	if u.CreatedAt == "" {
		u.CreatedAt = s.now().UTC().Format(time.RFC3339)
	}
	s.users = append(s.users, u)
	return u
}

// Users lists assignable users ordered by name, with their task counts.
func (s *Store) Users() []model.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.User, len(s.users))
	copy(out, s.users)
	for i := range out {
		out[i].TaskCount = 0
		for _, t := range s.tasks {
			if t.UserID == out[i].ID {
				out[i].TaskCount++
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Store) Create(v Viewer, b api.TaskBody, idempKey string) (model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if idempKey != "" {
		if id, ok := s.idem[idempKey]; ok {
			i, ok := s.find(id)
			if !ok {
				return model.Task{}, ErrorConflict
			}
			return s.decorate(v, s.tasks[i]), nil
		}
	}

	ts := s.now().UTC().Format(time.RFC3339Nano)
	t := model.Task{
		ID:        s.nextID,
		UserID:    v.UserID,
		Status:    model.StatusTodo,
		Priority:  model.PriorityMed,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	s.nextID++
	apply(&t, b)
	s.tasks = append(s.tasks, t)

	if idempKey != "" {
		s.idem[idempKey] = t.ID
	}
	return s.decorate(v, t), nil
}

func (s *Store) Get(v Viewer, id int64) (model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.find(id)
	if !ok || !visible(v, s.tasks[i]) {
		return model.Task{}, ErrorNotFound
	}
	return s.decorate(v, s.tasks[i]), nil
}

func (s *Store) Update(v Viewer, id int64, b api.TaskBody) (model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.find(id)
	if !ok || !visible(v, s.tasks[i]) {
		return model.Task{}, ErrorNotFound
	}
	t := s.tasks[i]
	apply(&t, b)
	t.UpdatedAt = s.now().UTC().Format(time.RFC3339Nano)
	s.tasks[i] = t
	return s.decorate(v, t), nil
}

func (s *Store) Delete(v Viewer, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.find(id)
	if !ok || !visible(v, s.tasks[i]) {
		return ErrorNotFound
	}
	s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
	return nil
}

// Stats counts the viewer's whole population, ignoring any list filter.
func (s *Store) Stats(v Viewer) model.StatusCounts {
	s.mu.Lock()
	defer s.mu.Unlock()

	var c model.StatusCounts
	for _, t := range s.tasks {
		if !visible(v, t) {
			continue
		}
		switch t.Status {
		case model.StatusTodo:
			c.Todo++
		case model.StatusDoing:
			c.Doing++
		case model.StatusDone:
			c.Done++
		}
	}
	return c
}

// List filters, sorts and pages the viewer's tasks the way the service
// interprets the GET /tasks query.
func (s *Store) List(v Viewer, q url.Values) model.TaskPage {
	s.mu.Lock()
	matched := make([]model.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if visible(v, t) && matches(t, q) {
			matched = append(matched, s.decorate(v, t))
		}
	}
	s.mu.Unlock()

	sortTasks(matched, q.Get("sort_by"), q.Get("sort_order"), v.Admin)

	page := atLeastOne(q.Get("page"), 1)
	perPage := atLeastOne(q.Get("per_page"), 10)
	total := int64(len(matched))

	start := (page - 1) * perPage
	if start > total {
		start = total
	}
	end := start + perPage
	if end > total {
		end = total
	}

	var totalPages int64
	if total > 0 {
		totalPages = (total + perPage - 1) / perPage
	}
	return model.TaskPage{
		Tasks: matched[start:end],
		Pagination: model.PaginationMeta{
			Page: page, PerPage: perPage, Total: total, TotalPages: totalPages,
		},
	}
}

func (s *Store) find(id int64) (int, bool) {
	for i, t := range s.tasks {
		if t.ID == id {
			return i, true
		}
	}
	return 0, false
}

func (s *Store) decorate(v Viewer, t model.Task) model.Task {
	if !v.Admin {
		return t
	}
	for _, u := range s.users {
		if u.ID == t.UserID {
			name, email := u.Name, u.Email
			t.OwnerName, t.OwnerEmail = &name, &email
			break
		}
	}
	return t
}

func visible(v Viewer, t model.Task) bool {
	return v.Admin || t.UserID == v.UserID
}

func apply(t *model.Task, b api.TaskBody) {
	if title := strings.TrimSpace(b.Title); title != "" {
		t.Title = title
	}
	if b.Status != "" {
		t.Status = b.Status
	}
	if b.Priority != "" {
		t.Priority = b.Priority
	}
	t.Description = b.Description
	t.DueDate = b.DueDate
	t.Tags = b.Tags
	t.AssignedTo = b.AssignedTo
}

func matches(t model.Task, q url.Values) bool {
	if term := strings.ToLower(strings.TrimSpace(q.Get("search"))); term != "" {
		if !strings.Contains(strings.ToLower(t.Title), term) && !strings.Contains(strings.ToLower(deref(t.Description)), term) {
			return false
		}
	}
	if set := splitList(q.Get("status")); len(set) > 0 && !contains(set, string(t.Status)) {
		return false
	}
	if set := splitList(q.Get("priority")); len(set) > 0 && !contains(set, string(t.Priority)) {
		return false
	}
	if tags := splitList(q.Get("tags")); len(tags) > 0 {
		have := strings.ToLower(deref(t.Tags))
		hit := false
		for _, tag := range tags {
			if strings.Contains(have, strings.ToLower(tag)) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	due, hasDue := t.Due()
	if start, ok := model.ParseDate(q.Get("due_date_start")); ok && (!hasDue || due.Before(start)) {
		return false
	}
	if end, ok := model.ParseDate(q.Get("due_date_end")); ok && (!hasDue || due.After(end)) {
		return false
	}
	switch who := strings.TrimSpace(q.Get("assigned_to")); who {
	case "":
	case "unassigned":
		if strings.TrimSpace(deref(t.AssignedTo)) != "" {
			return false
		}
	default:
		if !strings.Contains(strings.ToLower(deref(t.AssignedTo)), strings.ToLower(who)) {
			return false
		}
	}
	return true
}

var priorityRank = map[model.Priority]int{model.PriorityLow: 0, model.PriorityMed: 1, model.PriorityHigh: 2}

func sortTasks(tasks []model.Task, by, order string, admin bool) {
	desc := !strings.EqualFold(order, "asc")
	less := func(a, b model.Task) bool { return a.ID < b.ID }

	switch by {
	case "updated_at":
		less = func(a, b model.Task) bool { return a.UpdatedAt < b.UpdatedAt }
	case "due_date":
		less = func(a, b model.Task) bool { return deref(a.DueDate) < deref(b.DueDate) }
	case "priority":
		less = func(a, b model.Task) bool { return priorityRank[a.Priority] < priorityRank[b.Priority] }
	case "title":
		less = func(a, b model.Task) bool { return strings.ToLower(a.Title) < strings.ToLower(b.Title) }
	case "status":
		less = func(a, b model.Task) bool { return a.Status < b.Status }
	case "owner_name":
		if admin {
			less = func(a, b model.Task) bool { return deref(a.OwnerName) < deref(b.OwnerName) }
		}
	}

	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		if desc {
			a, b = b, a
		}
		if less(a, b) {
			return true
		}
		if less(b, a) {
			return false
		}
		// Ties fall back to creation order.
		return a.ID < b.ID
	})
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func atLeastOne(raw string, def int64) int64 {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 1 {
		return def
	}
	return n
}
