package profiles

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/runcrew/runcrew-backend/internal/httputil"
)

func ptr(s string) *string { return &s }

func TestUpdateRequest_Changes(t *testing.T) {
	got, err := updateRequest{Nickname: ptr("  새벽러너  "), Bio: ptr("한강 10km")}.changes()
	if err != nil {
		t.Fatalf("changes: %v", err)
	}
	if got["nickname"] != "새벽러너" || got["bio"] != "한강 10km" {
		t.Errorf("unexpected changes %v", got)
	}
	if _, ok := got["email"]; ok {
		t.Error("fields not sent must not be updated")
	}
}

func TestUpdateRequest_Rejects(t *testing.T) {
	cases := []updateRequest{
		{},
		{Nickname: ptr("   ")},
		{Nickname: ptr(strings.Repeat("러", 31))},
		{Bio: ptr(strings.Repeat("a", 301))},
	}
	for _, req := range cases {
		_, err := req.changes()
		var appErr *httputil.Error
		if !errors.As(err, &appErr) || appErr.Status != http.StatusBadRequest {
			t.Errorf("%+v: expected 400, got %v", req, err)
		}
	}
}

func TestGetProfile_MalformedIDIsNotFound(t *testing.T) {
	h := &Handler{}
	r := chi.NewRouter()
	r.Get("/api/profiles/{id}", h.GetProfile)

	req := httptest.NewRequest(http.MethodGet, "/api/profiles/not-a-uuid", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}
