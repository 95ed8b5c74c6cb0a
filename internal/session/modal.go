package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/taskview/internal/api"
	"github.com/BuzzLyutic/taskview/internal/model"
	"github.com/BuzzLyutic/taskview/internal/query"
	"github.com/BuzzLyutic/taskview/internal/service"
)

var (
	ErrInvalidDraft = errors.New("draft has validation errors")
	ErrModalClosed  = errors.New("modal closed")
	ErrUnknownField = errors.New("unknown field")
)

// Draft field names accepted by Modal.Update.
const (
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldStatus      = "status"
	FieldPriority    = "priority"
	FieldDueDate     = "due_date"
	FieldTags        = "tags"
	FieldAssignedTo  = "assigned_to"
)

// Modal is an open task form. It owns a private draft that never aliases
// the list's tasks, and keeps the validation errors current after every
// change.
type Modal struct {
	s        *Session
	taskID   int64
	// один ключ на форму: повторная отправка после сбоя сети не создаст дубль
	idempKey string

	mu     sync.Mutex
	draft  model.TaskFormDraft
	errs   service.ValidationErrors
	open   bool
	server map[string]string
}

// OpenCreate opens an empty form with status todo and priority med.
func (s *Session) OpenCreate() *Modal {
	return s.openModal(0, model.NewDraft())
}

// OpenEdit opens a form over a copy of task.
func (s *Session) OpenEdit(task model.Task) *Modal {
	return s.openModal(task.ID, task.Draft())
}

func (s *Session) openModal(id int64, d model.TaskFormDraft) *Modal {
	m := &Modal{
		s:        s,
		taskID:   id,
		idempKey: uuid.NewString(),
		draft:    d,
		open:     true,
	}
	m.errs = s.validate.Validate(d)
	return m
}

// Editing returns the task id when the modal edits an existing task.
func (m *Modal) Editing() (int64, bool) {
	return m.taskID, m.taskID != 0
}

func (m *Modal) Draft() model.TaskFormDraft {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.draft
}

// Update changes one draft field and revalidates.
func (m *Modal) Update(field, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.open {
		return ErrModalClosed
	}
	switch field {
	case FieldTitle:
		m.draft.Title = value
	case FieldDescription:
		m.draft.Description = value
	case FieldStatus:
		st := model.Status(value)
		if !st.Valid() {
			return fmt.Errorf("%w: %s=%q", query.ErrInvalidValue, field, value)
		}
		m.draft.Status = st
	case FieldPriority:
		p := model.Priority(value)
		if !p.Valid() {
			return fmt.Errorf("%w: %s=%q", query.ErrInvalidValue, field, value)
		}
		m.draft.Priority = p
	case FieldDueDate:
		m.draft.DueDate = value
	case FieldTags:
		m.draft.Tags = value
	case FieldAssignedTo:
		m.draft.AssignedTo = value
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	m.errs = m.s.validate.Validate(m.draft)
	delete(m.server, field)
	return nil
}

// Errors returns the current per-field messages, including the ones the
// server reported on the last failed submit for fields not edited since.
func (m *Modal) Errors() service.ValidationErrors {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(service.ValidationErrors, len(m.errs)+len(m.server))
	for k, v := range m.server {
		out[k] = v
	}
	for k, v := range m.errs {
		out[k] = v
	}
	return out
}

// CanSubmit reports whether the draft passes client-side validation.
func (m *Modal) CanSubmit() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.open && len(m.errs) == 0
}

func (m *Modal) Open() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.open
}

// Submit sends the draft. Nothing reaches the network while validation
// errors exist. On success the modal closes and the list and counts are
// refreshed; on failure a notice is raised and the draft is kept.
func (m *Modal) Submit(ctx context.Context) (model.Task, error) {
	m.mu.Lock()
	if !m.open {
		m.mu.Unlock()
		return model.Task{}, ErrModalClosed
	}
	m.errs = m.s.validate.Validate(m.draft)
	if len(m.errs) > 0 {
		err := fmt.Errorf("%w: %w", ErrInvalidDraft, m.errs)
		m.mu.Unlock()
		return model.Task{}, err
	}
	d := m.draft
	m.mu.Unlock()

	if m.s.isClosed() {
		return model.Task{}, ErrClosed
	}

	var (
		task model.Task
		err  error
		msg  = MsgTaskCreated
	)
	if id, editing := m.Editing(); editing {
		task, err = m.s.api.UpdateTask(ctx, id, d)
		msg = MsgTaskUpdated
	} else {
		task, err = m.s.api.CreateTask(ctx, d, m.idempKey)
	}
	if err != nil {
		m.s.logger.Warn("task save failed", zap.Int64("task_id", m.taskID), zap.Error(err))
		var apiErr *api.Error
		if errors.As(err, &apiErr) && len(apiErr.Fields) > 0 {
			m.mu.Lock()
			m.server = make(map[string]string, len(apiErr.Fields))
			for k, v := range apiErr.Fields {
				m.server[k] = v
			}
			m.mu.Unlock()
		}
		m.s.notify(NoticeError, api.UserMessage(err, MsgSaveFailed))
		return model.Task{}, err
	}

	m.mu.Lock()
	m.open = false
	m.mu.Unlock()

	m.s.notify(NoticeSuccess, msg)
	_ = m.s.Refresh(ctx)
	return task, nil
}

// Cancel closes the modal and discards the draft.
func (m *Modal) Cancel() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.open = false
	m.draft = model.TaskFormDraft{}
	m.errs = nil
	m.server = nil
}
