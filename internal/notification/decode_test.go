package notification

import (
	"errors"
	"testing"
)

func TestDecodePush(t *testing.T) {
	raw := []byte(`{
		"notificationId": 59,
		"description": "x",
		"departmentId": "d1",
		"kpiId": "k1",
		"actionType": "2",
		"isRead": false,
		"createdAt": "2025-01-01T00:00:00Z",
		"userId": "u1"
	}`)
	n, err := DecodePush(raw)
	if err != nil {
		t.Fatalf("DecodePush failed: %v", err)
	}
	if n.ID != "59" {
		t.Errorf("id = %q, want 59", n.ID)
	}
	if n.Category != CategoryDepartment {
		t.Errorf("category = %q, want %q", n.Category, CategoryDepartment)
	}
	if n.ReportType != ReportKpi {
		t.Errorf("reportType = %q, want %q", n.ReportType, ReportKpi)
	}
	if n.Read {
		t.Error("read = true, want false")
	}
	if n.Message != "x" {
		t.Errorf("message = %q, want x", n.Message)
	}
	if n.Type != "2" {
		t.Errorf("type = %q, want 2", n.Type)
	}
}

func TestDecodePushCategoryDerivation(t *testing.T) {
	n, err := DecodePush([]byte(`{"notificationId": 1, "description": "a", "createdAt": "2025-01-01T00:00:00Z"}`))
	if err != nil {
		t.Fatalf("DecodePush failed: %v", err)
	}
	if n.Category != CategoryGeneral {
		t.Errorf("category without departmentId = %q, want %q", n.Category, CategoryGeneral)
	}
	if n.ReportType != ReportGeneral {
		t.Errorf("reportType without kpiId = %q, want %q", n.ReportType, ReportGeneral)
	}

	n, err = DecodePush([]byte(`{"notificationId": 2, "description": "b", "departmentId": "d9", "createdAt": "2025-01-01T00:00:00Z"}`))
	if err != nil {
		t.Fatalf("DecodePush failed: %v", err)
	}
	if n.Category != CategoryDepartment {
		t.Errorf("category with departmentId = %q, want %q", n.Category, CategoryDepartment)
	}
}

func TestDecodePushMissingID(t *testing.T) {
	n, err := DecodePush([]byte(`{"description": "no id", "createdAt": "2025-01-01T00:00:00Z"}`))
	if !errors.Is(err, ErrMissingID) {
		t.Fatalf("err = %v, want ErrMissingID", err)
	}
	if n.ID == "" {
		t.Error("expected a synthesized id on the degraded path")
	}
	if n.Message != "no id" {
		t.Errorf("message = %q, want %q", n.Message, "no id")
	}
}

func TestDecodePushMalformed(t *testing.T) {
	if _, err := DecodePush([]byte(`not json`)); !errors.Is(err, ErrBadPayload) {
		t.Fatalf("err = %v, want ErrBadPayload", err)
	}
	if _, err := DecodePush([]byte(`[1,2,3]`)); !errors.Is(err, ErrBadPayload) {
		t.Fatalf("array payload: err = %v, want ErrBadPayload", err)
	}
}

func TestDecodePushStringID(t *testing.T) {
	n, err := DecodePush([]byte(`{"notificationId": "abc-123", "description": "s", "createdAt": "2025-01-01T00:00:00Z"}`))
	if err != nil {
		t.Fatalf("DecodePush failed: %v", err)
	}
	if n.ID != "abc-123" {
		t.Errorf("id = %q, want abc-123", n.ID)
	}
}

func TestDecodeResponseList(t *testing.T) {
	raw := []byte(`{
		"success": true,
		"message": "",
		"data": [{
			"notificationId": 1,
			"description": "Assigned",
			"actionType": "AssignKpiToDepartment",
			"isRead": false,
			"createdAt": "2025-01-01T00:00:00Z",
			"userId": "u1"
		}]
	}`)
	ns, err := DecodeResponse(raw, "admin")
	if err != nil {
		t.Fatalf("DecodeResponse failed: %v", err)
	}
	if len(ns) != 1 {
		t.Fatalf("got %d notifications, want 1", len(ns))
	}
	n := ns[0]
	if n.ID != "1" || n.Type != "AssignKpiToDepartment" || n.Category != CategoryGeneral || n.Read {
		t.Errorf("unexpected record: %+v", n)
	}
	if n.RoleID != "admin" {
		t.Errorf("roleId = %q, want admin", n.RoleID)
	}
}

func TestDecodeResponsePaged(t *testing.T) {
	raw := []byte(`{
		"success": true,
		"message": "",
		"data": {
			"items": [
				{"notificationId": 7, "description": "c", "kpiId": "k1", "actionType": "KpiComment", "isRead": true, "createdAt": "2025-01-01T00:00:00Z", "userId": "u1"},
				{"notificationId": 8, "description": "d", "actionType": "KpiEdit", "isRead": false, "createdAt": "2025-01-02T00:00:00Z", "userId": "u1"}
			],
			"total": 2, "page": 1, "pageSize": 20
		}
	}`)
	ns, err := DecodeResponse(raw, "viewer")
	if err != nil {
		t.Fatalf("DecodeResponse failed: %v", err)
	}
	if len(ns) != 2 {
		t.Fatalf("got %d notifications, want 2", len(ns))
	}
	if ns[0].ReportType != ReportKpi || !ns[0].Read {
		t.Errorf("unexpected first record: %+v", ns[0])
	}
	if ns[1].ReportType != ReportGeneral {
		t.Errorf("unexpected second record: %+v", ns[1])
	}
}

func TestDecodeResponseFailures(t *testing.T) {
	if _, err := DecodeResponse([]byte(`{"success": false, "message": "nope", "data": null}`), "r"); !errors.Is(err, ErrRequestFailed) {
		t.Errorf("unsuccessful response: err = %v, want ErrRequestFailed", err)
	}
	if _, err := DecodeResponse([]byte(`{"success": true, "data": 42}`), "r"); !errors.Is(err, ErrBadPayload) {
		t.Errorf("scalar data: err = %v, want ErrBadPayload", err)
	}
	if _, err := DecodeResponse([]byte(`broken`), "r"); !errors.Is(err, ErrBadPayload) {
		t.Errorf("invalid json: err = %v, want ErrBadPayload", err)
	}
}
