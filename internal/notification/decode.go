package notification

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// Decode errors. Callers are expected to branch with errors.Is: ErrMissingID
// accompanies a usable record (degraded, synthesized id), everything else
// means the input was rejected.
var (
	ErrBadPayload    = errors.New("malformed notification payload")
	ErrMissingID     = errors.New("notification payload has no id")
	ErrRequestFailed = errors.New("notification request unsuccessful")
)

// ident accepts JSON string or number ids; the backend emits both.
type ident string

func (i *ident) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*i = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*i = ident(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*i = ident(n.String())
	return nil
}

// userNotification is the wire record shared by the push event and the
// REST list/page responses.
type userNotification struct {
	NotificationID ident  `json:"notificationId"`
	ID             ident  `json:"id"`
	Description    string `json:"description"`
	DepartmentID   string `json:"departmentId"`
	KpiID          string `json:"kpiId"`
	CommentID      ident  `json:"commentId"`
	ActionType     ident  `json:"actionType"`
	UserID         string `json:"userId"`
	IsRead         bool   `json:"isRead"`
	ReadAt         string `json:"readAt"`
	CreatedAt      string `json:"createdAt"`
}

type listResponse struct {
	Success bool               `json:"success"`
	Message string             `json:"message"`
	Data    []userNotification `json:"data"`
}

type pagedResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    struct {
		Items    []userNotification `json:"items"`
		Total    int                `json:"total"`
		Page     int                `json:"page"`
		PageSize int                `json:"pageSize"`
	} `json:"data"`
}

func (u userNotification) canonical(roleID string) Notification {
	id := string(u.NotificationID)
	if id == "" {
		id = string(u.ID)
	}
	category := CategoryGeneral
	if u.DepartmentID != "" {
		category = CategoryDepartment
	}
	report := ReportGeneral
	if u.KpiID != "" {
		report = ReportKpi
	}
	ts := u.CreatedAt
	updated, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		// backend emits fractional timestamps without a zone as well
		updated, err = time.Parse("2006-01-02T15:04:05.9999999", ts)
	}
	if err != nil {
		updated = time.Now()
		if ts == "" {
			ts = updated.Format(time.RFC3339)
		}
	}
	return Notification{
		ID:           id,
		Message:      u.Description,
		Type:         string(u.ActionType),
		ReportType:   report,
		Category:     category,
		RoleID:       roleID,
		DepartmentID: u.DepartmentID,
		KpiID:        u.KpiID,
		CommentID:    string(u.CommentID),
		Read:         u.IsRead,
		Timestamp:    ts,
		UpdatedAt:    updated,
	}
}

// DecodePush converts a push-delivered payload into a canonical record.
// A payload without any id still yields a usable record keyed by the
// receipt timestamp, flagged with ErrMissingID so the caller can log the
// degraded path instead of it being masked.
func DecodePush(raw []byte) (Notification, error) {
	var u userNotification
	if err := json.Unmarshal(raw, &u); err != nil {
		return Notification{}, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	n := u.canonical("")
	if n.ID == "" {
		n.ID = strconv.FormatInt(time.Now().UnixMilli(), 10)
		return n, ErrMissingID
	}
	return n, nil
}

// DecodeResponse converts a REST response body into canonical records.
// Two envelope shapes exist in the wild: data as a bare array and data as
// a paginated object. The shape is dispatched on explicitly; anything
// else is rejected. roleID is stamped onto every record, matching the
// role the fetch was issued for.
func DecodeResponse(raw []byte, roleID string) ([]Notification, error) {
	var probe struct {
		Success bool            `json:"success"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	if !probe.Success {
		return nil, fmt.Errorf("%w: %s", ErrRequestFailed, probe.Message)
	}

	trimmed := bytes.TrimLeft(probe.Data, " \t\r\n")
	switch {
	case len(trimmed) > 0 && trimmed[0] == '[':
		var list listResponse
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
		}
		return canonicalAll(list.Data, roleID), nil
	case len(trimmed) > 0 && trimmed[0] == '{':
		var page pagedResponse
		if err := json.Unmarshal(raw, &page); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
		}
		return canonicalAll(page.Data.Items, roleID), nil
	}
	return nil, fmt.Errorf("%w: unrecognized data shape", ErrBadPayload)
}

func canonicalAll(us []userNotification, roleID string) []Notification {
	out := make([]Notification, 0, len(us))
	for _, u := range us {
		out = append(out, u.canonical(roleID))
	}
	return out
}
