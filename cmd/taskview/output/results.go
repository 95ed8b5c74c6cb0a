package output

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BuzzLyutic/taskview/internal/model"
	"github.com/BuzzLyutic/taskview/internal/reconcile"
	"github.com/BuzzLyutic/taskview/internal/service"
	"github.com/BuzzLyutic/taskview/internal/view"
)

// TaskRow is one task as shown by the CLI.
type TaskRow struct {
	ID         int64          `json:"id" yaml:"id"`
	Title      string         `json:"title" yaml:"title"`
	Status     model.Status   `json:"status" yaml:"status"`
	Priority   model.Priority `json:"priority" yaml:"priority"`
	DueDate    string         `json:"due_date,omitempty" yaml:"due_date,omitempty"`
	Urgency    view.Urgency   `json:"urgency" yaml:"urgency"`
	Tags       []string       `json:"tags,omitempty" yaml:"tags,omitempty"`
	AssignedTo string         `json:"assigned_to,omitempty" yaml:"assigned_to,omitempty"`
	Owner      string         `json:"owner,omitempty" yaml:"owner,omitempty"`
}

func NewTaskRow(t model.Task, today time.Time) TaskRow {
	row := TaskRow{
		ID:       t.ID,
		Title:    t.Title,
		Status:   t.Status,
		Priority: t.Priority,
		Urgency:  view.DueUrgency(t, today),
		Tags:     t.TagList(),
	}
	if due, ok := t.Due(); ok {
		row.DueDate = due.Format(model.DateLayout)
	}
	if t.AssignedTo != nil {
		row.AssignedTo = *t.AssignedTo
	}
	if t.OwnerName != nil {
		row.Owner = *t.OwnerName
	}
	return row
}

func (r TaskRow) Text(p *Printer) {
	p.Success("#%d %s", r.ID, r.Title)
	p.Table([]string{"STATUS", "PRIORITY", "DUE", "TAGS", "ASSIGNEE"}, [][]Cell{{
		{Text: string(r.Status), Color: view.StatusCategory(r.Status).Color},
		{Text: string(r.Priority), Color: view.PriorityCategory(r.Priority).Color},
		{Text: r.DueDate, Color: urgencyColor[r.Urgency]},
		{Text: strings.Join(r.Tags, ", ")},
		{Text: r.AssignedTo},
	}})
}

type PageInfo struct {
	Page       int64  `json:"page" yaml:"page"`
	PerPage    int64  `json:"per_page" yaml:"per_page"`
	Total      int64  `json:"total" yaml:"total"`
	TotalPages int64  `json:"total_pages" yaml:"total_pages"`
	Label      string `json:"label" yaml:"label"`
}

// ListResult is the task list together with the canonical query that
// reproduces it.
type ListResult struct {
	Query      string    `json:"query" yaml:"query"`
	Filtered   bool      `json:"filtered" yaml:"filtered"`
	Tasks      []TaskRow `json:"tasks" yaml:"tasks"`
	Pagination PageInfo  `json:"pagination" yaml:"pagination"`
	Error      string    `json:"error,omitempty" yaml:"error,omitempty"`
}

// NewListResult renders v. filtered tells whether any narrowing filter was
// active, which changes what an empty list means.
func NewListResult(canonical string, filtered bool, v reconcile.View, today time.Time) ListResult {
	p := v.Pagination.Normalize()
	res := ListResult{
		Query:    canonical,
		Filtered: filtered,
		Tasks:    make([]TaskRow, 0, len(v.Tasks)),
		Pagination: PageInfo{
			Page: p.Page, PerPage: p.PerPage, Total: p.Total, TotalPages: p.TotalPages,
			Label: view.PageLabel(p),
		},
	}
	for _, t := range v.Tasks {
		res.Tasks = append(res.Tasks, NewTaskRow(t, today))
	}
	if v.Err != nil {
		res.Error = v.Err.Error()
	}
	return res
}

var urgencyColor = map[view.Urgency]view.ColorClass{
	view.UrgencyOverdue: view.ColorRed,
	view.UrgencyToday:   view.ColorYellow,
	view.UrgencySoon:    view.ColorBlue,
}

func (r ListResult) Text(p *Printer) {
	if r.Query != "" {
		p.Subtle("?%s", r.Query)
	}
	rows := make([][]Cell, 0, len(r.Tasks))
	for _, t := range r.Tasks {
		st := view.StatusCategory(t.Status)
		rows = append(rows, []Cell{
			{Text: strconv.FormatInt(t.ID, 10)},
			{Text: t.Title},
			{Text: string(t.Status), Color: st.Color},
			{Text: string(t.Priority), Color: view.PriorityCategory(t.Priority).Color},
			{Text: t.DueDate, Color: urgencyColor[t.Urgency]},
			{Text: t.AssignedTo},
		})
	}
	switch {
	case len(rows) == 0 && r.Filtered:
		p.Subtle("no tasks match the current filters")
	case len(rows) == 0:
		p.Subtle("no tasks")
	default:
		p.Table([]string{"ID", "TITLE", "STATUS", "PRIORITY", "DUE", "ASSIGNEE"}, rows)
	}
	p.Subtle("%s", r.Pagination.Label)
	if r.Error != "" {
		p.Error("%s", r.Error)
	}
}

type StatsResult struct {
	Todo  int64 `json:"todo" yaml:"todo"`
	Doing int64 `json:"doing" yaml:"doing"`
	Done  int64 `json:"done" yaml:"done"`
	Total int64 `json:"total" yaml:"total"`
}

func NewStatsResult(c model.StatusCounts) StatsResult {
	return StatsResult{Todo: c.Todo, Doing: c.Doing, Done: c.Done, Total: c.Total()}
}

func (r StatsResult) Text(p *Printer) {
	p.Table([]string{"STATUS", "COUNT"}, [][]Cell{
		{{Text: string(model.StatusTodo), Color: view.StatusCategory(model.StatusTodo).Color}, {Text: strconv.FormatInt(r.Todo, 10)}},
		{{Text: string(model.StatusDoing), Color: view.StatusCategory(model.StatusDoing).Color}, {Text: strconv.FormatInt(r.Doing, 10)}},
		{{Text: string(model.StatusDone), Color: view.StatusCategory(model.StatusDone).Color}, {Text: strconv.FormatInt(r.Done, 10)}},
		{{Text: "total"}, {Text: strconv.FormatInt(r.Total, 10)}},
	})
}

type UserRow struct {
	ID        int64  `json:"id" yaml:"id"`
	Name      string `json:"name" yaml:"name"`
	Email     string `json:"email" yaml:"email"`
	Role      string `json:"role" yaml:"role"`
	TaskCount int64  `json:"task_count" yaml:"task_count"`
}

type UsersResult []UserRow

func NewUsersResult(users []model.User) UsersResult {
	out := make(UsersResult, 0, len(users))
	for _, u := range users {
		out = append(out, UserRow{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role, TaskCount: u.TaskCount})
	}
	return out
}

func (r UsersResult) Text(p *Printer) {
	rows := make([][]Cell, 0, len(r))
	for _, u := range r {
		rows = append(rows, []Cell{
			{Text: strconv.FormatInt(u.ID, 10)}, {Text: u.Name}, {Text: u.Email}, {Text: u.Role},
			{Text: strconv.FormatInt(u.TaskCount, 10)},
		})
	}
	p.Table([]string{"ID", "NAME", "EMAIL", "ROLE", "TASKS"}, rows)
}

// FormErrors lists the validation messages that blocked a submit.
type FormErrors struct {
	Fields service.ValidationErrors `json:"fields" yaml:"fields"`
}

func (r FormErrors) Text(p *Printer) {
	for _, field := range sortedKeys(r.Fields) {
		p.Error("%s: %s", field, r.Fields[field])
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
