package memapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/taskview/internal/api"
	"github.com/BuzzLyutic/taskview/internal/model"
	"github.com/BuzzLyutic/taskview/internal/service"
	"github.com/BuzzLyutic/taskview/pkg/respond"
)

// Interceptor runs before routing. Returning true means it wrote the
// response itself and the request goes no further.
type Interceptor func(w http.ResponseWriter, r *http.Request) bool

type Server struct {
	store    *Store
	validate *service.FormValidator
	logger   *zap.Logger
	viewer   Viewer
	router   chi.Router

	mu        sync.Mutex
	intercept []Interceptor
	requests  []string
}

type Option func(*Server)

// WithViewer sets who every request is authenticated as.
func WithViewer(v Viewer) Option {
	return func(s *Server) { s.viewer = v }
}

func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.store.now = now
		s.validate = service.NewFormValidator(now)
	}
}

func NewServer(logger *zap.Logger, opts ...Option) *Server {
	s := &Server{
		store:    NewStore(time.Now),
		validate: service.NewFormValidator(time.Now),
		logger:   logger,
		viewer:   Viewer{UserID: 1},
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.record)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respond.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/users", s.listUsers)
	r.Route("/tasks", func(r chi.Router) {
		r.Get("/", s.listTasks)
		r.Post("/", s.createTask)
		r.Get("/stats", s.stats)
		r.Get("/{id}", s.getTask)
		r.Put("/{id}", s.updateTask)
		r.Delete("/{id}", s.deleteTask)
	})
	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) Store() *Store { return s.store }

// Intercept installs a hook consulted before every request, in order.
func (s *Server) Intercept(fn Interceptor) {
	s.mu.Lock()
	s.intercept = append(s.intercept, fn)
	s.mu.Unlock()
}

// Requests lists "METHOD /path?query" for every request seen so far.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.requests))
	copy(out, s.requests)
	return out
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, r.Method+" "+r.URL.RequestURI())
		hooks := append([]Interceptor(nil), s.intercept...)
		s.mu.Unlock()

		for _, h := range hooks {
			if h(w, r) {
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, r, http.StatusOK, s.store.List(s.viewer, r.URL.Query()))
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, r, http.StatusOK, s.store.Stats(s.viewer))
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, r, http.StatusOK, s.store.Users())
}

func (s *Server) createTask(w http.ResponseWriter, r *http.Request) {
	body, ok := s.decode(w, r)
	if !ok {
		return
	}

	task, err := s.store.Create(s.viewer, body, r.Header.Get(api.IdempotencyHeader))
	if err != nil {
		s.handleErrors(w, r, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/tasks/%d", task.ID))
	respond.JSON(w, r, http.StatusCreated, task)
}

func (s *Server) getTask(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respond.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid task id")
		return
	}
	task, err := s.store.Get(s.viewer, id)
	if err != nil {
		s.handleErrors(w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, task)
}

func (s *Server) updateTask(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respond.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid task id")
		return
	}
	body, ok := s.decode(w, r)
	if !ok {
		return
	}

	task, err := s.store.Update(s.viewer, id, body)
	if err != nil {
		s.handleErrors(w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, task)
}

func (s *Server) deleteTask(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respond.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid task id")
		return
	}
	if err := s.store.Delete(s.viewer, id); err != nil {
		s.handleErrors(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// decode reads a task body and runs the same field rules as the form.
func (s *Server) decode(w http.ResponseWriter, r *http.Request) (api.TaskBody, bool) {
	var body api.TaskBody
	if r.ContentLength == 0 {
		respond.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "empty request body")
		return body, false
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.logger.Error("failed to decode json", zap.Error(err))
		respond.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid json")
		return body, false
	}
	if body.Status != "" && !body.Status.Valid() {
		respond.ValidationError(w, r, "Validation failed", map[string]string{"status": "Invalid status"})
		return body, false
	}
	if body.Priority != "" && !body.Priority.Valid() {
		respond.ValidationError(w, r, "Validation failed", map[string]string{"priority": "Invalid priority"})
		return body, false
	}

	d := model.TaskFormDraft{Title: body.Title}
	if body.Tags != nil {
		d.Tags = *body.Tags
	}
	if body.DueDate != nil {
		d.DueDate = *body.DueDate
		if due, ok := model.ParseDate(*body.DueDate); ok {
			d.DueDate = due.Format(model.DateLayout)
		}
	}
	if errs := s.validate.Validate(d); len(errs) > 0 {
		if msg, ok := errs[service.FieldDueDate]; ok && len(errs) == 1 {
			respond.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", msg)
			return body, false
		}
		respond.ValidationError(w, r, "Validation failed", errs)
		return body, false
	}
	return body, true
}

func (s *Server) handleErrors(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrorNotFound):
		respond.Error(w, r, http.StatusNotFound, "NOT_FOUND", "Task not found")
	case errors.Is(err, ErrorConflict):
		respond.Error(w, r, http.StatusConflict, "CONFLICT", "Idempotency key already used")
	default:
		s.logger.Error("internal error", zap.Error(err))
		respond.Error(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error")
	}
}
