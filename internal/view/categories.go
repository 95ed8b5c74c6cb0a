// Package view maps task fields to presentation categories. Every function
// is pure and total over its input domain.
package view

import (
	"fmt"
	"time"

	"github.com/BuzzLyutic/taskview/internal/model"
)

type IconKind string

const (
	IconCircle  IconKind = "circle"
	IconClock   IconKind = "clock"
	IconCheck   IconKind = "check-circle"
	IconUnknown IconKind = "help-circle"
)

type ColorClass string

const (
	ColorGray    ColorClass = "gray"
	ColorBlue    ColorClass = "blue"
	ColorGreen   ColorClass = "green"
	ColorYellow  ColorClass = "yellow"
	ColorRed     ColorClass = "red"
	ColorNeutral ColorClass = "neutral"
)

type StatusStyle struct {
	Icon  IconKind
	Color ColorClass
}

type PriorityStyle struct {
	Color ColorClass
}

// StatusCategory never fails; unknown statuses get a neutral style.
func StatusCategory(s model.Status) StatusStyle {
	switch s {
	case model.StatusTodo:
		return StatusStyle{Icon: IconCircle, Color: ColorGray}
	case model.StatusDoing:
		return StatusStyle{Icon: IconClock, Color: ColorBlue}
	case model.StatusDone:
		return StatusStyle{Icon: IconCheck, Color: ColorGreen}
	}
	return StatusStyle{Icon: IconUnknown, Color: ColorNeutral}
}

func PriorityCategory(p model.Priority) PriorityStyle {
	switch p {
	case model.PriorityHigh:
		return PriorityStyle{Color: ColorRed}
	case model.PriorityMed:
		return PriorityStyle{Color: ColorYellow}
	case model.PriorityLow:
		return PriorityStyle{Color: ColorGreen}
	}
	return PriorityStyle{Color: ColorNeutral}
}

type Urgency string

const (
	UrgencyNone    Urgency = "none"
	UrgencyOverdue Urgency = "overdue"
	UrgencyToday   Urgency = "today"
	UrgencySoon    Urgency = "soon"
	UrgencyLater   Urgency = "later"
)

// SoonWindow is how many days ahead a due date counts as soon.
const SoonWindow = 3

// DueUrgency compares calendar dates only; time of day is ignored.
func DueUrgency(t model.Task, today time.Time) Urgency {
	due, ok := t.Due()
	if !ok {
		return UrgencyNone
	}
	y, m, d := today.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	switch diff := int(due.Sub(day).Hours() / 24); {
	case diff < 0:
		return UrgencyOverdue
	case diff == 0:
		return UrgencyToday
	case diff <= SoonWindow:
		return UrgencySoon
	default:
		return UrgencyLater
	}
}

// PageLabel renders pagination as "Page 2 of 5 (42 tasks)".
func PageLabel(p model.PaginationMeta) string {
	p = p.Normalize()
	noun := "tasks"
	if p.Total == 1 {
		noun = "task"
	}
	return fmt.Sprintf("Page %d of %d (%d %s)", p.Page, p.TotalPages, p.Total, noun)
}
