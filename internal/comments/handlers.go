// Package comments implements threads on records, missions, and crews, with
// likes.
package comments

import (
	"context"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/runcrew/runcrew-backend/internal/httputil"
	"github.com/runcrew/runcrew-backend/internal/listing"
	"github.com/runcrew/runcrew-backend/internal/models"
	"github.com/runcrew/runcrew-backend/internal/notifications"
	"gorm.io/gorm"
)

const (
	errNotFound       = "댓글을 찾을 수 없습니다"
	errNotOwned       = "댓글을 찾을 수 없거나 권한이 없습니다"
	errTargetNotFound = "댓글을 달 대상을 찾을 수 없습니다"
	maxContent        = 1000
)

var ListSpec = listing.Spec{
	SearchColumns: []string{"content"},
	SortColumns: map[string]string{
		"created_at": "created_at",
		"updated_at": "updated_at",
	},
}

var Counts = []listing.Count{
	{Name: "like_count", Model: &models.CommentLike{}, Column: "comment_id"},
}

type Handler struct {
	DB *gorm.DB
}

type CommentRow struct {
	models.Comment
	AuthorNickname string `json:"author_nickname"`
	LikeCount      int64  `json:"like_count"`
	LikedByMe      bool   `json:"liked_by_me"`
}

// Rows attaches author nicknames, like counts, and the viewer's likes.
// viewer may be uuid.Nil.
func Rows(ctx context.Context, db *gorm.DB, comments []models.Comment, viewer uuid.UUID) ([]CommentRow, error) {
	ids := make([]uuid.UUID, len(comments))
	authors := make([]uuid.UUID, len(comments))
	for i, c := range comments {
		ids[i] = c.ID
		authors[i] = c.AuthorID
	}

	counts, err := listing.Enrich(ctx, db, ids, Counts...)
	if err != nil {
		return nil, err
	}
	names, err := models.Nicknames(ctx, db, authors)
	if err != nil {
		return nil, err
	}

	liked := map[uuid.UUID]bool{}
	if viewer != uuid.Nil && len(ids) > 0 {
		var mine []uuid.UUID
		if err := db.WithContext(ctx).Model(&models.CommentLike{}).
			Where("user_id = ? AND comment_id IN ?", viewer, ids).
			Pluck("comment_id", &mine).Error; err != nil {
			return nil, err
		}
		for _, id := range mine {
			liked[id] = true
		}
	}

	rows := make([]CommentRow, len(comments))
	for i, c := range comments {
		rows[i] = CommentRow{
			Comment:        c,
			AuthorNickname: names[c.AuthorID],
			LikeCount:      counts.Get("like_count", c.ID),
			LikedByMe:      liked[c.ID],
		}
	}
	return rows, nil
}

// validEntity reports whether comments may be attached to entityType.
func validEntity(entityType string) bool {
	switch entityType {
	case models.EntityRecord, models.EntityMission, models.EntityCrew:
		return true
	}
	return false
}

func parseTarget(entityType, entityID string) (string, uuid.UUID, error) {
	entityType = strings.TrimSpace(entityType)
	if entityType == "" || strings.TrimSpace(entityID) == "" {
		return "", uuid.Nil, httputil.BadRequest("entityType과 entityId가 필요합니다")
	}
	if !validEntity(entityType) {
		return "", uuid.Nil, httputil.BadRequest("지원하지 않는 entityType입니다: " + entityType)
	}
	id, err := uuid.Parse(strings.TrimSpace(entityID))
	if err != nil {
		return "", uuid.Nil, httputil.BadRequest("entityId 형식이 올바르지 않습니다")
	}
	return entityType, id, nil
}

// targetOwner finds who should hear about a new comment on the entity.
func targetOwner(tx *gorm.DB, entityType string, id uuid.UUID) (uuid.UUID, error) {
	var (
		owner uuid.UUID
		err   error
	)
	switch entityType {
	case models.EntityRecord:
		var rec models.Record
		err = tx.Select("id", "user_id").First(&rec, "id = ?", id).Error
		owner = rec.UserID
	case models.EntityMission:
		var m models.Mission
		err = tx.Select("id", "created_by").First(&m, "id = ?", id).Error
		owner = m.CreatedBy
	case models.EntityCrew:
		var c models.Crew
		err = tx.Select("id", "owner_id").First(&c, "id = ?", id).Error
		owner = c.OwnerID
	default:
		return uuid.Nil, httputil.BadRequest("지원하지 않는 entityType입니다: " + entityType)
	}
	if err != nil {
		return uuid.Nil, httputil.FromDB(err, errTargetNotFound, "")
	}
	return owner, nil
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	entityType, entityID, err := parseTarget(q.Get("entityType"), q.Get("entityId"))
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	p, err := listing.Parse(q, ListSpec)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	if q.Get("sortOrder") == "" {
		p.SortOrder = "asc"
	}

	ctx := r.Context()
	var found []models.Comment
	base := h.DB.WithContext(ctx).Model(&models.Comment{}).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID)
	page, err := listing.Find(base, p, ListSpec, &found)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}

	viewer, _ := httputil.Caller(r)
	rows, err := Rows(ctx, h.DB, found, viewer)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"comments":   rows,
		"pagination": page,
	})
}

func normalizeContent(raw string) (string, error) {
	content := strings.TrimSpace(raw)
	if content == "" {
		return "", httputil.BadRequest("댓글 내용을 입력해주세요")
	}
	if utf8.RuneCountInString(content) > maxContent {
		return "", httputil.BadRequest("댓글은 1000자 이하여야 합니다")
	}
	return content, nil
}

type createRequest struct {
	EntityType string `json:"entityType"`
	EntityID   string `json:"entityId"`
	Content    string `json:"content"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	me, err := httputil.Caller(r)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	var req createRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	entityType, entityID, err := parseTarget(req.EntityType, req.EntityID)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	content, err := normalizeContent(req.Content)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}

	comment := models.Comment{
		EntityType: entityType,
		EntityID:   entityID,
		AuthorID:   me,
		Content:    content,
	}
	err = h.DB.WithContext(r.Context()).Transaction(func(tx *gorm.DB) error {
		owner, err := targetOwner(tx, entityType, entityID)
		if err != nil {
			return err
		}
		if err := tx.Create(&comment).Error; err != nil {
			return err
		}
		return notifications.Notify(tx, notifications.Notice{
			Recipient:  owner,
			Actor:      me,
			Type:       models.NotificationComment,
			EntityType: entityType,
			EntityID:   entityID,
			Message:    "새 댓글이 달렸습니다",
		})
	})
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}

	rows, err := Rows(r.Context(), h.DB, []models.Comment{comment}, me)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]any{"comment": rows[0]})
}

type updateRequest struct {
	Content string `json:"content"`
}

// Update only touches a comment written by the caller. Someone else's comment
// and a missing one look the same.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	me, err := httputil.Caller(r)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	id, err := httputil.PathUUID(r, "id", errNotOwned)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	var req updateRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	content, err := normalizeContent(req.Content)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}

	ctx := r.Context()
	res := h.DB.WithContext(ctx).Model(&models.Comment{}).
		Where("id = ? AND author_id = ?", id, me).
		Update("content", content)
	if res.Error != nil {
		httputil.WriteError(w, r, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		httputil.WriteError(w, r, httputil.NotFound(errNotOwned))
		return
	}

	var comment models.Comment
	if err := h.DB.WithContext(ctx).First(&comment, "id = ?", id).Error; err != nil {
		httputil.WriteError(w, r, httputil.FromDB(err, errNotFound, ""))
		return
	}
	rows, err := Rows(ctx, h.DB, []models.Comment{comment}, me)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"comment": rows[0]})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	me, err := httputil.Caller(r)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	id, err := httputil.PathUUID(r, "id", errNotOwned)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}

	err = h.DB.WithContext(r.Context()).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND author_id = ?", id, me).Delete(&models.Comment{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return httputil.NotFound(errNotOwned)
		}
		return tx.Where("comment_id = ?", id).Delete(&models.CommentLike{}).Error
	})
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.Success(w, "댓글이 삭제되었습니다")
}

func (h *Handler) Like(w http.ResponseWriter, r *http.Request) {
	me, err := httputil.Caller(r)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	id, err := httputil.PathUUID(r, "id", errNotFound)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}

	err = h.DB.WithContext(r.Context()).Transaction(func(tx *gorm.DB) error {
		var comment models.Comment
		if err := tx.First(&comment, "id = ?", id).Error; err != nil {
			return httputil.FromDB(err, errNotFound, "")
		}
		if err := tx.Create(&models.CommentLike{CommentID: id, UserID: me}).Error; err != nil {
			return httputil.FromDB(err, "", "이미 좋아요를 누른 댓글입니다")
		}
		return notifications.Notify(tx, notifications.Notice{
			Recipient:  comment.AuthorID,
			Actor:      me,
			Type:       models.NotificationCommentLike,
			EntityType: models.EntityComment,
			EntityID:   comment.ID,
			Message:    "회원님의 댓글을 좋아합니다",
		})
	})
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	h.writeLikeState(w, r, id, true)
}

func (h *Handler) Unlike(w http.ResponseWriter, r *http.Request) {
	me, err := httputil.Caller(r)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	id, err := httputil.PathUUID(r, "id", errNotFound)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}

	res := h.DB.WithContext(r.Context()).
		Where("comment_id = ? AND user_id = ?", id, me).
		Delete(&models.CommentLike{})
	if res.Error != nil {
		httputil.WriteError(w, r, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		httputil.WriteError(w, r, httputil.NotFound("좋아요를 누르지 않은 댓글입니다"))
		return
	}
	h.writeLikeState(w, r, id, false)
}

func (h *Handler) writeLikeState(w http.ResponseWriter, r *http.Request, id uuid.UUID, liked bool) {
	var n int64
	err := h.DB.WithContext(r.Context()).Model(&models.CommentLike{}).Where("comment_id = ?", id).Count(&n).Error
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"liked":     liked,
		"likeCount": n,
	})
}
