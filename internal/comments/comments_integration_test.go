package comments_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/runcrew/runcrew-backend/internal/comments"
	"github.com/runcrew/runcrew-backend/internal/db"
	"github.com/runcrew/runcrew-backend/internal/models"
	"github.com/runcrew/runcrew-backend/internal/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var testDB *gorm.DB

func TestMain(m *testing.M) {
	_ = godotenv.Load("../../.env.local")

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		os.Exit(m.Run())
	}

	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)

	var err error
	if testDB, err = db.Connect(databaseURL, log); err != nil {
		log.Fatalf("connect: %v", err)
	}
	if err := models.Migrate(testDB); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	os.Exit(m.Run())
}

// asUser stands in for the session middleware.
func asUser(id uuid.UUID, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), utils.ContextUserIDKey, id.String())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func createProfile(t *testing.T) uuid.UUID {
	t.Helper()
	p := models.Profile{ID: uuid.New(), Nickname: "runner_" + uuid.NewString()[:8]}
	if err := testDB.Create(&p).Error; err != nil {
		t.Fatalf("create profile: %v", err)
	}
	t.Cleanup(func() {
		testDB.Where("user_id = ?", p.ID).Delete(&models.Notification{})
		testDB.Where("user_id = ?", p.ID).Delete(&models.CommentLike{})
		testDB.Where("author_id = ?", p.ID).Delete(&models.Comment{})
		testDB.Where("user_id = ?", p.ID).Delete(&models.Record{})
		testDB.Delete(&p)
	})
	return p.ID
}

func do(t *testing.T, user uuid.UUID, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	r := chi.NewRouter()
	r.Mount("/api/comments", comments.SetupRoutes(&comments.Handler{DB: testDB}))

	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	asUser(user, r).ServeHTTP(rec, req)

	out := map[string]any{}
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return rec.Code, out
}

func countNotifications(t *testing.T, user uuid.UUID) int64 {
	t.Helper()
	var n int64
	testDB.Model(&models.Notification{}).Where("user_id = ?", user).Count(&n)
	return n
}

func TestCommentLifecycle(t *testing.T) {
	if testDB == nil {
		t.Skip("skipping integration test (requires DATABASE_URL)")
	}
	owner := createProfile(t)
	other := createProfile(t)

	record := models.Record{UserID: owner, DistanceKm: 5, DurationSec: 1500, RecordedAt: time.Now()}
	if err := testDB.Create(&record).Error; err != nil {
		t.Fatalf("create record: %v", err)
	}

	// Commenting on someone else's record notifies them.
	code, body := do(t, other, http.MethodPost, "/api/comments", map[string]string{
		"entityType": "record",
		"entityId":   record.ID.String(),
		"content":    "나이스 페이스!",
	})
	if code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d %v", code, body)
	}
	commentID := body["comment"].(map[string]any)["id"].(string)
	if n := countNotifications(t, owner); n != 1 {
		t.Errorf("expected 1 notification for the record owner, got %d", n)
	}

	// Commenting on your own record does not.
	code, _ = do(t, owner, http.MethodPost, "/api/comments", map[string]string{
		"entityType": "record",
		"entityId":   record.ID.String(),
		"content":    "감사합니다",
	})
	if code != http.StatusCreated {
		t.Fatalf("self comment: expected 201, got %d", code)
	}
	if n := countNotifications(t, owner); n != 1 {
		t.Errorf("expected self comment not to notify, got %d notifications", n)
	}

	// Only the author can edit or delete.
	code, body = do(t, owner, http.MethodPatch, "/api/comments/"+commentID, map[string]string{"content": "hijack"})
	if code != http.StatusNotFound || !strings.Contains(fmt.Sprint(body["error"]), "권한이 없습니다") {
		t.Errorf("foreign edit: expected 404 not-succeeded, got %d %v", code, body)
	}
	code, _ = do(t, owner, http.MethodDelete, "/api/comments/"+commentID, nil)
	if code != http.StatusNotFound {
		t.Errorf("foreign delete: expected 404, got %d", code)
	}
	code, body = do(t, other, http.MethodPatch, "/api/comments/"+commentID, map[string]string{"content": "수정했어요"})
	if code != http.StatusOK {
		t.Errorf("own edit: expected 200, got %d %v", code, body)
	}

	// Likes are unique per user.
	code, body = do(t, owner, http.MethodPost, "/api/comments/"+commentID+"/like", nil)
	if code != http.StatusOK || body["likeCount"] != float64(1) {
		t.Errorf("like: expected 200 with 1 like, got %d %v", code, body)
	}
	if n := countNotifications(t, other); n != 1 {
		t.Errorf("expected the comment author to be notified of the like, got %d", n)
	}
	code, body = do(t, owner, http.MethodPost, "/api/comments/"+commentID+"/like", nil)
	if code != http.StatusBadRequest || body["error"] != "이미 좋아요를 누른 댓글입니다" {
		t.Errorf("duplicate like: expected 400, got %d %v", code, body)
	}

	// Listing shows the like from the owner's point of view.
	code, body = do(t, owner, http.MethodGet, "/api/comments?entityType=record&entityId="+record.ID.String(), nil)
	if code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", code)
	}
	pagination := body["pagination"].(map[string]any)
	if pagination["total"] != float64(2) || pagination["totalPages"] != float64(1) {
		t.Errorf("unexpected pagination %v", pagination)
	}
	first := body["comments"].([]any)[0].(map[string]any)
	if first["liked_by_me"] != true || first["like_count"] != float64(1) {
		t.Errorf("expected oldest comment liked by viewer, got %v", first)
	}

	code, _ = do(t, owner, http.MethodDelete, "/api/comments/"+commentID+"/like", nil)
	if code != http.StatusOK {
		t.Errorf("unlike: expected 200, got %d", code)
	}
	code, _ = do(t, owner, http.MethodDelete, "/api/comments/"+commentID+"/like", nil)
	if code != http.StatusNotFound {
		t.Errorf("second unlike: expected 404, got %d", code)
	}

	code, _ = do(t, other, http.MethodDelete, "/api/comments/"+commentID, nil)
	if code != http.StatusOK {
		t.Errorf("own delete: expected 200, got %d", code)
	}
}
