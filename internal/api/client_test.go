package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

func TestListDecodesAndStampsRole(t *testing.T) {
	var gotAuth, gotUser string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/v1/notifications" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		gotUser = r.URL.Query().Get("userId")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"message":"","data":[{"notificationId":1,"description":"Assigned","actionType":"AssignKpiToDepartment","isRead":false,"createdAt":"2025-01-01T00:00:00Z","userId":"u1"}]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL}, func() string { return "tok" }, zap.NewNop())
	ns, err := c.List(context.Background(), "admin", "u1")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(ns) != 1 || ns[0].ID != "1" || ns[0].RoleID != "admin" {
		t.Fatalf("unexpected result %+v", ns)
	}
	if gotAuth != "Bearer tok" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotUser != "u1" {
		t.Errorf("userId = %q", gotUser)
	}
}

func TestMarkReadUsesPutAndFailsOnNon2xx(t *testing.T) {
	status := http.StatusOK
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("method = %s, want PUT", r.Method)
		}
		gotPath = r.URL.Path
		w.WriteHeader(status)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL}, func() string { return "" }, zap.NewNop())
	if err := c.MarkRead(context.Background(), "7", "u1"); err != nil {
		t.Fatalf("MarkRead failed: %v", err)
	}
	if gotPath != "/api/v1/notifications/7/mark-read" {
		t.Errorf("path = %q", gotPath)
	}

	status = http.StatusForbidden
	if err := c.MarkRead(context.Background(), "7", "u1"); err == nil {
		t.Fatal("expected failure on non-2xx status")
	}
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, BreakerMaxFailures: 2}, func() string { return "" }, zap.NewNop())
	for i := 0; i < 5; i++ {
		_ = c.MarkRead(context.Background(), "1", "u1")
	}
	if hits > 2 {
		t.Errorf("breaker let %d requests through, want at most 2", hits)
	}
}
