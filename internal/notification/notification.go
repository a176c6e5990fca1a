package notification

import "time"

// Categories a notification can fall into, derived from the wire payload:
// "Department" when the source carries a department id, "General" otherwise.
const (
	CategoryDepartment = "Department"
	CategoryGeneral    = "General"
)

// Report kinds, derived from the presence of a KPI correlation id.
const (
	ReportKpi     = "KpiNotification"
	ReportGeneral = "GeneralNotification"
)

// Well-known action types. The set is open ended; unknown values are kept
// as-is and only affect icon/label selection in the presenter.
const (
	ActionAssignKpi  = "AssignKpiToDepartment"
	ActionKpiComment = "KpiComment"
	ActionKpiEdit    = "KpiEdit"
	ActionKpiApprove = "KpiApprove"
	ActionKpiLock    = "KpiLock"
)

// Notification is the canonical in-memory record every consumer works
// with, regardless of which wire shape it originated from. IDs are kept
// as strings because the backend emits both numeric and uuid ids; the
// id is the sole key used for later mutation.
type Notification struct {
	ID           string    `json:"id"`
	Message      string    `json:"message"`
	Type         string    `json:"type"`
	ReportType   string    `json:"reportType"`
	Category     string    `json:"category"`
	RoleID       string    `json:"roleId"`
	DepartmentID string    `json:"departmentId,omitempty"`
	KpiID        string    `json:"kpiId,omitempty"`
	CommentID    string    `json:"commentId,omitempty"`
	Read         bool      `json:"read"`
	Timestamp    string    `json:"timestamp"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
