package crews

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/runcrew/runcrew-backend/internal/httputil"
	"github.com/runcrew/runcrew-backend/internal/listing"
)

func TestCreateRequest_NormalizesTags(t *testing.T) {
	req := createRequest{Name: "  한강 새벽런  ", Tags: []string{"새벽", " 새벽 ", "", "10K"}}
	if err := req.validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if req.Name != "한강 새벽런" {
		t.Errorf("expected trimmed name, got %q", req.Name)
	}
	if len(req.Tags) != 2 || req.Tags[0] != "새벽" || req.Tags[1] != "10K" {
		t.Errorf("unexpected tags %v", req.Tags)
	}
}

func TestCreateRequest_Rejects(t *testing.T) {
	many := make([]string, 11)
	for i := range many {
		many[i] = strings.Repeat("t", i+1)
	}
	for _, req := range []createRequest{
		{Name: " "},
		{Name: strings.Repeat("크", 51)},
		{Name: "ok", Tags: many},
	} {
		err := req.validate()
		var appErr *httputil.Error
		if !errors.As(err, &appErr) || appErr.Status != http.StatusBadRequest {
			t.Errorf("%+v: expected 400, got %v", req, err)
		}
	}
}

func TestListSpec_RejectsUnknownSort(t *testing.T) {
	_, err := listing.Parse(url.Values{"sortBy": {"owner_id"}}, ListSpec)
	if err == nil {
		t.Fatal("expected owner_id to be rejected as a sort key")
	}
	if _, err := listing.Parse(url.Values{"sortBy": {"name"}, "status": {"active"}}, ListSpec); err != nil {
		t.Errorf("expected name sort to be accepted, got %v", err)
	}
}

func TestWriteRoutesRequireSession(t *testing.T) {
	r := SetupRoutes(&Handler{}, nil)

	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/"},
		{http.MethodPost, "/5f0c3c9e-3a7c-4c1e-9b43-0a4f2b7f1c11/join"},
		{http.MethodDelete, "/5f0c3c9e-3a7c-4c1e-9b43-0a4f2b7f1c11/members/me"},
	} {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: expected 401, got %d", tc.method, tc.path, rec.Code)
		}
	}
}
