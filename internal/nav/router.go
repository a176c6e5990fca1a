package nav

import (
	"context"
	"net/url"

	"go.uber.org/zap"

	"github.com/aniketsonkar22/Dashboard.Report.Generation.Portal/internal/notification"
)

// Target is a navigation destination: an app route plus query params.
type Target struct {
	Path  string
	Query url.Values
}

func (t Target) String() string {
	if len(t.Query) == 0 {
		return t.Path
	}
	return t.Path + "?" + t.Query.Encode()
}

// Navigator is the host application's navigation surface. The router
// calls into it with a target; route matching is the host's problem.
type Navigator interface {
	Navigate(Target)
}

// ReadMarker acknowledges a notification as read. *notification.Store
// satisfies this.
type ReadMarker interface {
	MarkRead(ctx context.Context, id, userID string) error
}

// Router dispatches a clicked notification to the page most relevant to
// its content, then marks it read. Navigation is never blocked on the
// mark-read round trip.
type Router struct {
	nav    Navigator
	marker ReadMarker
	log    *zap.Logger
}

func NewRouter(nav Navigator, marker ReadMarker, log *zap.Logger) *Router {
	return &Router{nav: nav, marker: marker, log: log}
}

// Resolve maps a notification to its navigation target: KPI comment
// notifications deep-link into the comments page, everything else lands
// on the audit log.
func Resolve(n notification.Notification) Target {
	if n.ReportType == notification.ReportKpi && n.Type == notification.ActionKpiComment {
		q := url.Values{}
		if n.DepartmentID != "" {
			q.Set("departmentId", n.DepartmentID)
		}
		if n.KpiID != "" {
			q.Set("kpiId", n.KpiID)
		}
		if n.CommentID != "" {
			q.Set("commentId", n.CommentID)
		}
		return Target{Path: "/comments", Query: q}
	}
	return Target{Path: "/logs", Query: url.Values{}}
}

// Open navigates to the notification's target and then issues the
// mark-read acknowledgement in the background.
func (r *Router) Open(ctx context.Context, n notification.Notification, userID string) {
	r.nav.Navigate(Resolve(n))

	go func() {
		if err := r.marker.MarkRead(ctx, n.ID, userID); err != nil {
			r.log.Warn("mark-read failed",
				zap.String("id", n.ID), zap.Error(err))
		}
	}()
}
