// Package query holds the task-list query state: the FilterSet value, its
// codec to and from the canonical query string, and the Store that owns it.
package query

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/BuzzLyutic/taskview/internal/model"
)

var (
	ErrUnknownKey   = errors.New("unknown query key")
	ErrInvalidValue = errors.New("invalid query value")
)

const (
	KeySearch       = "search"
	KeyStatus       = "status"
	KeyPriority     = "priority"
	KeyTags         = "tags"
	KeyDueDateStart = "due_date_start"
	KeyDueDateEnd   = "due_date_end"
	KeyAssignedTo   = "assigned_to"
	KeyPage         = "page"
	KeyPerPage      = "per_page"
	KeySortBy       = "sort_by"
	KeySortOrder    = "sort_order"
)

// Keys lists every query key in serialization order.
var Keys = []string{
	KeySearch, KeyStatus, KeyPriority, KeyTags, KeyDueDateStart, KeyDueDateEnd,
	KeyAssignedTo, KeyPage, KeyPerPage, KeySortBy, KeySortOrder,
}

const (
	DefaultPerPage = 10
	MaxPerPage     = 100
)

type SortField string

const (
	SortCreatedAt SortField = "created_at"
	SortUpdatedAt SortField = "updated_at"
	SortDueDate   SortField = "due_date"
	SortPriority  SortField = "priority"
	SortTitle     SortField = "title"
	SortStatus    SortField = "status"
	// SortOwnerName is honoured by the server for admins only.
	SortOwnerName SortField = "owner_name"
)

func (f SortField) Valid() bool {
	switch f {
	case SortCreatedAt, SortUpdatedAt, SortDueDate, SortPriority, SortTitle, SortStatus, SortOwnerName:
		return true
	}
	return false
}

type SortOrder string

const (
	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"
)

func (o SortOrder) Valid() bool {
	return o == Asc || o == Desc
}

// FilterSet is an immutable snapshot of every filter, sort and page
// parameter of the task list. Empty strings mean "no filter".
type FilterSet struct {
	Search       string
	Status       model.Status
	Priority     model.Priority
	Tags         string
	DueDateStart string
	DueDateEnd   string
	AssignedTo   string
	Page         int
	PerPage      int
	SortBy       SortField
	SortOrder    SortOrder
}

// Value returns the raw string form of key.
func (f FilterSet) Value(key string) string {
	switch key {
	case KeySearch:
		return f.Search
	case KeyStatus:
		return string(f.Status)
	case KeyPriority:
		return string(f.Priority)
	case KeyTags:
		return f.Tags
	case KeyDueDateStart:
		return f.DueDateStart
	case KeyDueDateEnd:
		return f.DueDateEnd
	case KeyAssignedTo:
		return f.AssignedTo
	case KeyPage:
		return strconv.Itoa(f.Page)
	case KeyPerPage:
		return strconv.Itoa(f.PerPage)
	case KeySortBy:
		return string(f.SortBy)
	case KeySortOrder:
		return string(f.SortOrder)
	}
	return ""
}

// HasFilters reports whether any narrowing filter is active.
func (f FilterSet) HasFilters() bool {
	return f.Search != "" || f.Status != "" || f.Priority != "" || f.Tags != "" ||
		f.DueDateStart != "" || f.DueDateEnd != "" || f.AssignedTo != ""
}

func isNoop(key, value string) bool {
	v := strings.TrimSpace(value)
	if v == "" {
		return true
	}
	switch key {
	case KeyStatus, KeyPriority:
		return strings.EqualFold(v, "all")
	case KeyAssignedTo:
		return strings.EqualFold(v, "all") || strings.EqualFold(v, "unassigned")
	}
	return false
}

// assign writes value into key of f. A no-op value resets the key to its
// default in defs. On error f is left untouched.
func assign(f *FilterSet, defs FilterSet, key, value string) error {
	if isNoop(key, value) {
		switch key {
		case KeySearch:
			f.Search = ""
		case KeyStatus:
			f.Status = ""
		case KeyPriority:
			f.Priority = ""
		case KeyTags:
			f.Tags = ""
		case KeyDueDateStart:
			f.DueDateStart = ""
		case KeyDueDateEnd:
			f.DueDateEnd = ""
		case KeyAssignedTo:
			f.AssignedTo = ""
		case KeyPage:
			f.Page = defs.Page
		case KeyPerPage:
			f.PerPage = defs.PerPage
		case KeySortBy:
			f.SortBy = defs.SortBy
		case KeySortOrder:
			f.SortOrder = defs.SortOrder
		default:
			return fmt.Errorf("%w: %q", ErrUnknownKey, key)
		}
		return nil
	}

	v := strings.TrimSpace(value)
	switch key {
	case KeySearch:
		f.Search = value
	case KeyTags:
		f.Tags = value
	case KeyAssignedTo:
		f.AssignedTo = value
	case KeyStatus:
		s := model.Status(strings.ToLower(v))
		if !s.Valid() {
			return invalid(key, value)
		}
		f.Status = s
	case KeyPriority:
		p := model.Priority(strings.ToLower(v))
		if !p.Valid() {
			return invalid(key, value)
		}
		f.Priority = p
	case KeyDueDateStart, KeyDueDateEnd:
		d, ok := model.ParseDate(v)
		if !ok {
			return invalid(key, value)
		}
		if key == KeyDueDateStart {
			f.DueDateStart = d.Format(model.DateLayout)
		} else {
			f.DueDateEnd = d.Format(model.DateLayout)
		}
	case KeyPage:
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return invalid(key, value)
		}
		f.Page = n
	case KeyPerPage:
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > MaxPerPage {
			return invalid(key, value)
		}
		f.PerPage = n
	case KeySortBy:
		s := SortField(strings.ToLower(v))
		if !s.Valid() {
			return invalid(key, value)
		}
		f.SortBy = s
	case KeySortOrder:
		o := SortOrder(strings.ToLower(v))
		if !o.Valid() {
			return invalid(key, value)
		}
		f.SortOrder = o
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	return nil
}

func invalid(key, value string) error {
	return fmt.Errorf("%w: %s=%q", ErrInvalidValue, key, value)
}
