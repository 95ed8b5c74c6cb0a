package model

import (
	"strings"
	"time"
)

// DateLayout is the calendar-date form used by forms and filters.
const DateLayout = "2006-01-02"

type Status string

const (
	StatusTodo  Status = "todo"
	StatusDoing Status = "doing"
	StatusDone  Status = "done"
)

func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusDoing, StatusDone:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLow  Priority = "low"
	PriorityMed  Priority = "med"
	PriorityHigh Priority = "high"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMed, PriorityHigh:
		return true
	}
	return false
}

type Task struct {
	ID          int64    `json:"id"`
	UserID      int64    `json:"user_id,omitempty"`
	Title       string   `json:"title"`
	Description *string  `json:"description,omitempty"`
	Status      Status   `json:"status"`
	Priority    Priority `json:"priority"`
	DueDate     *string  `json:"due_date,omitempty"`
	Tags        *string  `json:"tags,omitempty"`
	AssignedTo  *string  `json:"assigned_to,omitempty"`
	OwnerName   *string  `json:"owner_name,omitempty"`
	OwnerEmail  *string  `json:"owner_email,omitempty"`
	CreatedAt   string   `json:"created_at"`
	UpdatedAt   string   `json:"updated_at"`
}

// TagList splits the comma-separated tags, dropping blanks.
func (t Task) TagList() []string {
	if t.Tags == nil {
		return nil
	}
	parts := strings.Split(*t.Tags, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Due returns the calendar date of the due date, if any.
func (t Task) Due() (time.Time, bool) {
	if t.DueDate == nil {
		return time.Time{}, false
	}
	return ParseDate(*t.DueDate)
}

// Draft returns an editable copy of the task. The draft shares no memory
// with the task.
func (t Task) Draft() TaskFormDraft {
	d := TaskFormDraft{
		Title:    t.Title,
		Status:   t.Status,
		Priority: t.Priority,
	}
	if t.Description != nil {
		d.Description = *t.Description
	}
	if t.Tags != nil {
		d.Tags = *t.Tags
	}
	if t.AssignedTo != nil {
		d.AssignedTo = *t.AssignedTo
	}
	if due, ok := t.Due(); ok {
		d.DueDate = due.Format(DateLayout)
	}
	return d
}

// TaskFormDraft is the in-progress form state of a task being created or
// edited.
type TaskFormDraft struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Status      Status   `json:"status"`
	Priority    Priority `json:"priority"`
	DueDate     string   `json:"due_date"`
	Tags        string   `json:"tags"`
	AssignedTo  string   `json:"assigned_to"`
}

func NewDraft() TaskFormDraft {
	return TaskFormDraft{Status: StatusTodo, Priority: PriorityMed}
}

// ParseDate accepts YYYY-MM-DD or RFC3339 and returns midnight UTC of the
// calendar date.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if d, err := time.Parse(DateLayout, s); err == nil {
		return d, true
	}
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		y, m, day := ts.Date()
		return time.Date(y, m, day, 0, 0, 0, 0, time.UTC), true
	}
	return time.Time{}, false
}

// PaginationMeta is replaced wholesale on every successful fetch.
type PaginationMeta struct {
	Page       int64 `json:"page"`
	PerPage    int64 `json:"per_page"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
}

// Normalize recomputes TotalPages as ceil(Total/PerPage) with a minimum of 1.
func (p PaginationMeta) Normalize() PaginationMeta {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PerPage < 1 {
		p.TotalPages = 1
		return p
	}
	p.TotalPages = (p.Total + p.PerPage - 1) / p.PerPage
	if p.TotalPages < 1 {
		p.TotalPages = 1
	}
	return p
}

// TaskPage is the body of GET /tasks.
type TaskPage struct {
	Tasks      []Task         `json:"tasks"`
	Pagination PaginationMeta `json:"pagination"`
}

// StatusCounts covers the caller's whole visible population, not the
// filtered page.
type StatusCounts struct {
	Todo  int64 `json:"todo"`
	Doing int64 `json:"doing"`
	Done  int64 `json:"done"`
}

func (c StatusCounts) Total() int64 {
	return c.Todo + c.Doing + c.Done
}

// User is an assignable user as listed by GET /users.
type User struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	TaskCount int64  `json:"task_count"`
	CreatedAt string `json:"created_at"`
}
