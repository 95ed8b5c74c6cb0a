package session

import "go.uber.org/zap"

type NoticeKind string

const (
	NoticeSuccess NoticeKind = "success"
	NoticeError   NoticeKind = "error"
)

// Notice is a transient notification shown to the user.
type Notice struct {
	Kind    NoticeKind
	Message string
}

const (
	MsgLoadTasksFailed = "Failed to load tasks"
	MsgLoadUsersFailed = "Failed to load users"
	MsgSaveFailed      = "Failed to save task"
	MsgDeleteFailed    = "Failed to delete task"
	MsgTaskCreated     = "Task created"
	MsgTaskUpdated     = "Task updated"
	MsgTaskDeleted     = "Task deleted"
)

type Notifier interface {
	Notify(n Notice)
}

// NotifierFunc adapts a plain function to Notifier.
type NotifierFunc func(n Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

// logNotifier is used when the caller does not render notices itself.
type logNotifier struct {
	logger *zap.Logger
}

func (l logNotifier) Notify(n Notice) {
	if n.Kind == NoticeError {
		l.logger.Warn(n.Message, zap.String("kind", string(n.Kind)))
		return
	}
	l.logger.Info(n.Message, zap.String("kind", string(n.Kind)))
}
