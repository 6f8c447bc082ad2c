package notifications

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/runcrew/runcrew-backend/internal/httputil"
	"github.com/runcrew/runcrew-backend/internal/listing"
	"github.com/runcrew/runcrew-backend/internal/models"
	"gorm.io/gorm"
)

const (
	StatusUnread = "unread"
	StatusRead   = "read"
)

var listSpec = listing.Spec{
	SearchColumns: []string{"message"},
	SortColumns: map[string]string{
		"created_at": "created_at",
	},
}

type Handler struct {
	DB  *gorm.DB
	Now func() time.Time
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

type notificationRow struct {
	models.Notification
	ActorNickname string `json:"actor_nickname"`
	Read          bool   `json:"read"`
}

// readFilter maps the status parameter onto read_at.
func readFilter(status string) (func(*gorm.DB) *gorm.DB, error) {
	switch status {
	case "":
		return func(q *gorm.DB) *gorm.DB { return q }, nil
	case StatusUnread:
		return func(q *gorm.DB) *gorm.DB { return q.Where("read_at IS NULL") }, nil
	case StatusRead:
		return func(q *gorm.DB) *gorm.DB { return q.Where("read_at IS NOT NULL") }, nil
	}
	return nil, httputil.BadRequest("status는 unread 또는 read여야 합니다")
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	me, err := httputil.Caller(r)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	p, err := listing.Parse(r.URL.Query(), listSpec)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	byStatus, err := readFilter(p.Status)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}

	ctx := r.Context()
	base := byStatus(h.DB.WithContext(ctx).Model(&models.Notification{}).Where("user_id = ?", me))

	var found []models.Notification
	page, err := listing.Find(base, p, listSpec, &found)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}

	actors := make([]uuid.UUID, len(found))
	for i, n := range found {
		actors[i] = n.ActorID
	}
	names, err := models.Nicknames(ctx, h.DB, actors)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}

	rows := make([]notificationRow, len(found))
	for i, n := range found {
		rows[i] = notificationRow{Notification: n, ActorNickname: names[n.ActorID], Read: n.ReadAt != nil}
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"notifications": rows,
		"pagination":    page,
	})
}

func (h *Handler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	me, err := httputil.Caller(r)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}

	var count int64
	if err := h.DB.WithContext(r.Context()).
		Model(&models.Notification{}).
		Where("user_id = ? AND read_at IS NULL", me).
		Count(&count).Error; err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int64{"count": count})
}

// MarkRead is idempotent; a notification that belongs to someone else is 404.
func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	me, err := httputil.Caller(r)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	id, err := httputil.PathUUID(r, "id", "알림을 찾을 수 없습니다")
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}

	res := h.DB.WithContext(r.Context()).
		Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, me).
		Update("read_at", gorm.Expr("COALESCE(read_at, ?)", h.now()))
	if res.Error != nil {
		httputil.WriteError(w, r, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		httputil.WriteError(w, r, httputil.NotFound("알림을 찾을 수 없습니다"))
		return
	}
	httputil.Success(w, "")
}

func (h *Handler) ReadAll(w http.ResponseWriter, r *http.Request) {
	me, err := httputil.Caller(r)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}

	res := h.DB.WithContext(r.Context()).
		Model(&models.Notification{}).
		Where("user_id = ? AND read_at IS NULL", me).
		Update("read_at", h.now())
	if res.Error != nil {
		httputil.WriteError(w, r, res.Error)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"updated": res.RowsAffected,
	})
}
