package toast

import (
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/aniketsonkar22/Dashboard.Report.Generation.Portal/internal/notification"
)

// Presenter is the show-message primitive the rest of the app calls.
// The default implementation writes through zap; a UI shell can swap in
// its own.
type Presenter interface {
	Success(msg string)
	Error(msg string)
	Notify(n notification.Notification)
}

// Log is a zap-backed Presenter with flood suppression: a burst of push
// arrivals degrades to a counter in the logs instead of a toast storm.
type Log struct {
	log *zap.Logger
	lim *rate.Limiter
}

// NewLog builds a presenter allowing perMinute toasts with a small
// burst.
func NewLog(log *zap.Logger, perMinute int) *Log {
	if perMinute <= 0 {
		perMinute = 30
	}
	return &Log{
		log: log,
		lim: rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), 5),
	}
}

func (l *Log) Success(msg string) {
	if !l.lim.Allow() {
		return
	}
	l.log.Info("toast", zap.String("kind", "success"), zap.String("message", msg))
}

func (l *Log) Error(msg string) {
	if !l.lim.Allow() {
		return
	}
	l.log.Warn("toast", zap.String("kind", "error"), zap.String("message", msg))
}

func (l *Log) Notify(n notification.Notification) {
	if !l.lim.Allow() {
		l.log.Debug("toast suppressed", zap.String("id", n.ID))
		return
	}
	l.log.Info("toast",
		zap.String("kind", "notification"),
		zap.String("icon", Icon(n.Type)),
		zap.String("id", n.ID),
		zap.String("message", n.Message))
}

// Icon picks the display icon for an action type. The set is open
// ended; unknown types get the history icon.
func Icon(actionType string) string {
	switch actionType {
	case notification.ActionAssignKpi:
		return "add_chart"
	case notification.ActionKpiComment:
		return "comment"
	case notification.ActionKpiEdit:
		return "edit"
	case notification.ActionKpiApprove:
		return "check_circle"
	case notification.ActionKpiLock:
		return "lock"
	default:
		return "history"
	}
}
