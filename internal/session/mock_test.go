package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/BuzzLyutic/taskview/internal/api"
	"github.com/BuzzLyutic/taskview/internal/model"
)

// MockAPI - мок REST-сервиса
type MockAPI struct {
	mock.Mock
}

func (m *MockAPI) ListTasks(ctx context.Context, rawQuery string) (model.TaskPage, error) {
	args := m.Called(ctx, rawQuery)
	return args.Get(0).(model.TaskPage), args.Error(1)
}

func (m *MockAPI) Stats(ctx context.Context) (model.StatusCounts, error) {
	args := m.Called(ctx)
	return args.Get(0).(model.StatusCounts), args.Error(1)
}

func (m *MockAPI) Users(ctx context.Context) ([]model.User, error) {
	args := m.Called(ctx)
	return args.Get(0).([]model.User), args.Error(1)
}

func (m *MockAPI) CreateTask(ctx context.Context, d model.TaskFormDraft, idempotencyKey string) (model.Task, error) {
	args := m.Called(ctx, d, idempotencyKey)
	return args.Get(0).(model.Task), args.Error(1)
}

func (m *MockAPI) UpdateTask(ctx context.Context, id int64, d model.TaskFormDraft) (model.Task, error) {
	args := m.Called(ctx, id, d)
	return args.Get(0).(model.Task), args.Error(1)
}

func (m *MockAPI) DeleteTask(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func TestSession_StartWithMock(t *testing.T) {
	tests := []struct {
		name        string
		setupMock   func(*MockAPI)
		wantErr     bool
		wantStats   model.StatusCounts
		wantUsers   int
		wantNotices []Notice
	}{
		{
			name: "everything loads",
			setupMock: func(m *MockAPI) {
				m.On("ListTasks", mock.Anything, defaultRequest).Return(model.TaskPage{
					Tasks:      []model.Task{{ID: 1, Title: "one"}},
					Pagination: model.PaginationMeta{Page: 1, PerPage: 10, Total: 1},
				}, nil).Once()
				m.On("Stats", mock.Anything).Return(model.StatusCounts{Todo: 1}, nil).Once()
				m.On("Users", mock.Anything).Return([]model.User{{ID: 1, Name: "Ana"}}, nil).Once()
			},
			wantStats: model.StatusCounts{Todo: 1},
			wantUsers: 1,
		},
		{
			name: "stats failure keeps zero counts and stays quiet",
			setupMock: func(m *MockAPI) {
				m.On("ListTasks", mock.Anything, defaultRequest).Return(model.TaskPage{}, nil).Once()
				m.On("Stats", mock.Anything).Return(model.StatusCounts{}, &api.Error{Status: 500, Message: "db down"}).Once()
				m.On("Users", mock.Anything).Return([]model.User{}, nil).Once()
			},
			wantErr: true,
		},
		{
			name: "users failure notifies",
			setupMock: func(m *MockAPI) {
				m.On("ListTasks", mock.Anything, defaultRequest).Return(model.TaskPage{}, nil).Once()
				m.On("Stats", mock.Anything).Return(model.StatusCounts{Done: 2}, nil).Once()
				m.On("Users", mock.Anything).Return([]model.User(nil), errors.New("dial tcp: refused")).Once()
			},
			wantErr:     true,
			wantStats:   model.StatusCounts{Done: 2},
			wantNotices: []Notice{{Kind: NoticeError, Message: MsgLoadUsersFailed}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := new(MockAPI)
			tt.setupMock(m)
			notices := &noticeLog{}

			s := New(Options{API: m, Delay: time.Hour, Notifier: notices, Logger: zap.NewNop()})
			defer s.Close()

			err := s.Start(context.Background())
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantStats, s.View().Stats)
			assert.Len(t, s.Users(), tt.wantUsers)
			if tt.wantNotices == nil {
				assert.Empty(t, notices.All())
			} else {
				assert.Equal(t, tt.wantNotices, notices.All())
			}
			m.AssertExpectations(t)
		})
	}
}

func TestSession_DeleteFailureSkipsRefresh(t *testing.T) {
	m := new(MockAPI)
	m.On("DeleteTask", mock.Anything, int64(7)).Return(&api.Error{Status: 404, Code: "NOT_FOUND", Message: "Task not found"}).Once()
	notices := &noticeLog{}

	s := New(Options{API: m, Delay: time.Hour, Notifier: notices})
	defer s.Close()

	err := s.Delete(context.Background(), 7)
	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, Notice{Kind: NoticeError, Message: "Task not found"}, notices.Last())

	// ни списка, ни счетчиков после неудачного удаления
	m.AssertNotCalled(t, "ListTasks", mock.Anything, mock.Anything)
	m.AssertNotCalled(t, "Stats", mock.Anything)
	m.AssertExpectations(t)
}

func TestSession_DefaultNotifierLogs(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	m := new(MockAPI)
	m.On("ListTasks", mock.Anything, defaultRequest).Return(model.TaskPage{}, errors.New("connection reset")).Once()

	s := New(Options{API: m, Delay: time.Hour, Logger: zap.New(core)})
	defer s.Close()
	s.sched.Now()

	entries := logs.FilterMessage(MsgLoadTasksFailed).All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, string(NoticeError), entries[0].ContextMap()["kind"])
	m.AssertExpectations(t)
}
