// Package api is the HTTP client of the task tracker REST service.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BuzzLyutic/taskview/internal/model"
)

// IdempotencyHeader carries the client-chosen key that makes task creation
// safe to retry.
const IdempotencyHeader = "Idempotency-Key"

const maxErrorBody = 1 << 20

type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *zap.Logger
}

type Option func(*Client)

func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func New(baseURL string, logger *zap.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListTasks fetches one page. rawQuery is the codec's request form.
func (c *Client) ListTasks(ctx context.Context, rawQuery string) (model.TaskPage, error) {
	var page model.TaskPage
	path := "/tasks"
	if rawQuery != "" {
		path += "?" + rawQuery
	}
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &page); err != nil {
		return model.TaskPage{}, err
	}
	if page.Tasks == nil {
		page.Tasks = []model.Task{}
	}
	return page, nil
}

func (c *Client) Stats(ctx context.Context) (model.StatusCounts, error) {
	var counts model.StatusCounts
	err := c.do(ctx, http.MethodGet, "/tasks/stats", nil, nil, &counts)
	return counts, err
}

func (c *Client) Users(ctx context.Context) ([]model.User, error) {
	var users []model.User
	err := c.do(ctx, http.MethodGet, "/users", nil, nil, &users)
	return users, err
}

func (c *Client) GetTask(ctx context.Context, id int64) (model.Task, error) {
	var task model.Task
	err := c.do(ctx, http.MethodGet, "/tasks/"+strconv.FormatInt(id, 10), nil, nil, &task)
	return task, err
}

func (c *Client) CreateTask(ctx context.Context, d model.TaskFormDraft, idempotencyKey string) (model.Task, error) {
	var task model.Task
	var hdr http.Header
	if idempotencyKey != "" {
		hdr = http.Header{IdempotencyHeader: []string{idempotencyKey}}
	}
	err := c.do(ctx, http.MethodPost, "/tasks", hdr, NewTaskBody(d), &task)
	return task, err
}

func (c *Client) UpdateTask(ctx context.Context, id int64, d model.TaskFormDraft) (model.Task, error) {
	var task model.Task
	err := c.do(ctx, http.MethodPut, "/tasks/"+strconv.FormatInt(id, 10), nil, NewTaskBody(d), &task)
	return task, err
}

func (c *Client) DeleteTask(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/tasks/"+strconv.FormatInt(id, 10), nil, nil, nil)
}

// TaskBody is the JSON body of POST /tasks and PUT /tasks/{id}.
type TaskBody struct {
	Title       string         `json:"title"`
	Description *string        `json:"description,omitempty"`
	Status      model.Status   `json:"status,omitempty"`
	Priority    model.Priority `json:"priority,omitempty"`
	DueDate     *string        `json:"due_date,omitempty"`
	Tags        *string        `json:"tags,omitempty"`
	AssignedTo  *string        `json:"assigned_to,omitempty"`
}

// NewTaskBody converts a draft. The due date is sent as RFC3339 midnight UTC.
func NewTaskBody(d model.TaskFormDraft) TaskBody {
	b := TaskBody{
		Title:       strings.TrimSpace(d.Title),
		Status:      d.Status,
		Priority:    d.Priority,
		Description: optional(d.Description),
		Tags:        optional(d.Tags),
		AssignedTo:  optional(d.AssignedTo),
	}
	if due, ok := model.ParseDate(d.DueDate); ok {
		s := due.Format(time.RFC3339)
		b.DueDate = &s
	}
	return b
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func (c *Client) do(ctx context.Context, method, path string, hdr http.Header, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	for k, v := range hdr {
		req.Header[k] = v
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("request failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return fmt.Errorf("%w: %s %s: %v", ErrTransport, method, path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("request done",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s %s: %v", ErrTransport, method, path, err)
	}
	return nil
}

// Error is a non-2xx response of the service.
type Error struct {
	Status  int
	Code    string
	Message string
	Fields  map[string]string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: status %d", e.Status)
	}
	return fmt.Sprintf("api: status %d: %s", e.Status, e.Message)
}

var ErrTransport = errors.New("transport error")

type errorEnvelope struct {
	Error json.RawMessage `json:"error"`
}

type errorDetail struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields"`
}

// decodeError accepts {"error":{"code","message","fields"}} as well as the
// flat {"error":"message"} form.
func decodeError(resp *http.Response) error {
	apiErr := &Error{Status: resp.StatusCode}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var env errorEnvelope
	if err := json.Unmarshal(raw, &env); err != nil || len(env.Error) == 0 {
		return apiErr
	}

	var detail errorDetail
	if err := json.Unmarshal(env.Error, &detail); err == nil {
		apiErr.Code = detail.Code
		apiErr.Message = detail.Message
		apiErr.Fields = detail.Fields
		return apiErr
	}
	var msg string
	if err := json.Unmarshal(env.Error, &msg); err == nil {
		apiErr.Message = msg
	}
	return apiErr
}

// UserMessage is the text shown in a transient notification: the server's
// message when it sent one, fallback otherwise.
func UserMessage(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
