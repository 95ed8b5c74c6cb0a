package memapi

import (
	"fmt"
	"time"

	"github.com/BuzzLyutic/taskview/internal/api"
	"github.com/BuzzLyutic/taskview/internal/model"
)

var demoTags = []string{"backend", "frontend", "ops", "docs", "bug"}

// Seed fills the store with two users and count tasks owned by the first
// one. Due dates spread around the store clock's current day.
func Seed(s *Store, count int) []model.Task {
	owner := s.AddUser(model.User{Name: "Ana Torres", Email: "ana@example.com", Role: "admin"})
	s.AddUser(model.User{Name: "Bruno Diaz", Email: "bruno@example.com"})

	statuses := []model.Status{model.StatusTodo, model.StatusDoing, model.StatusDone}
	priorities := []model.Priority{model.PriorityLow, model.PriorityMed, model.PriorityHigh}
	today := s.now().UTC()

	out := make([]model.Task, 0, count)
	for i := 0; i < count; i++ {
		due := today.AddDate(0, 0, i%7-2).Format(time.RFC3339)
		tags := demoTags[i%len(demoTags)]
		b := api.TaskBody{
			Title:    fmt.Sprintf("Task %d", i+1),
			Status:   statuses[i%len(statuses)],
			Priority: priorities[i%len(priorities)],
			DueDate:  &due,
			Tags:     &tags,
		}
		if i%2 == 0 {
			who := "Bruno Diaz"
			b.AssignedTo = &who
		}
		t, _ := s.Create(Viewer{UserID: owner.ID}, b, "")
		out = append(out, t)
	}
	return out
}
