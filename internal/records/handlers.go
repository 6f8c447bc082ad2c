// Package records stores individual runs.
package records

import (
	"context"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/runcrew/runcrew-backend/internal/httputil"
	"github.com/runcrew/runcrew-backend/internal/listing"
	"github.com/runcrew/runcrew-backend/internal/models"
	"gorm.io/gorm"
)

const (
	errNotFound = "기록을 찾을 수 없습니다"
	errNotOwned = "기록을 찾을 수 없거나 권한이 없습니다"
	maxTitle    = 100
	maxMemo     = 1000
	maxDistance = 1000.0
)

var ListSpec = listing.Spec{
	SearchColumns: []string{"title", "memo"},
	SortColumns: map[string]string{
		"created_at":   "created_at",
		"recorded_at":  "recorded_at",
		"distance_km":  "distance_km",
		"duration_sec": "duration_sec",
	},
}

var Counts = []listing.Count{
	{
		Name:   "comment_count",
		Model:  &models.Comment{},
		Column: "entity_id",
		Where:  "entity_type = ?",
		Args:   []any{models.EntityRecord},
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

type RecordRow struct {
	models.Record
	PaceSecPerKm int   `json:"pace_sec_per_km"`
	CommentCount int64 `json:"comment_count"`
}

// Pace is whole seconds per kilometre, zero for a zero distance.
func Pace(distanceKm float64, durationSec int) int {
	if distanceKm <= 0 {
		return 0
	}
	return int(float64(durationSec)/distanceKm + 0.5)
}

func Rows(ctx context.Context, db *gorm.DB, records []models.Record) ([]RecordRow, error) {
	ids := make([]uuid.UUID, len(records))
	for i, rec := range records {
		ids[i] = rec.ID
	}
	counts, err := listing.Enrich(ctx, db, ids, Counts...)
	if err != nil {
		return nil, err
	}
	rows := make([]RecordRow, len(records))
	for i, rec := range records {
		rows[i] = RecordRow{
			Record:       rec,
			PaceSecPerKm: Pace(rec.DistanceKm, rec.DurationSec),
			CommentCount: counts.Get("comment_count", rec.ID),
		}
	}
	return rows, nil
}

// List returns the caller's own records.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	me, err := httputil.Caller(r)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	p, err := listing.Parse(r.URL.Query(), ListSpec)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}

	ctx := r.Context()
	var found []models.Record
	base := h.DB.WithContext(ctx).Model(&models.Record{}).Where("user_id = ?", me)
	page, err := listing.Find(base, p, ListSpec, &found)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	rows, err := Rows(ctx, h.DB, found)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"records":    rows,
		"pagination": page,
	})
}

type createRequest struct {
	Title       string    `json:"title"`
	DistanceKm  float64   `json:"distance_km"`
	DurationSec int       `json:"duration_sec"`
	RecordedAt  time.Time `json:"recorded_at"`
	Memo        string    `json:"memo"`
}

func (req *createRequest) validate(now time.Time) error {
	req.Title = strings.TrimSpace(req.Title)
	if req.DistanceKm <= 0 || req.DistanceKm > maxDistance {
		return httputil.BadRequest("거리는 0보다 크고 1000km 이하여야 합니다")
	}
	if req.DurationSec <= 0 {
		return httputil.BadRequest("시간은 0보다 커야 합니다")
	}
	if utf8.RuneCountInString(req.Title) > maxTitle {
		return httputil.BadRequest("제목은 100자 이하여야 합니다")
	}
	if utf8.RuneCountInString(req.Memo) > maxMemo {
		return httputil.BadRequest("메모는 1000자 이하여야 합니다")
	}
	if req.RecordedAt.IsZero() {
		req.RecordedAt = now
	}
	if req.RecordedAt.After(now.Add(time.Hour)) {
		return httputil.BadRequest("미래의 기록은 등록할 수 없습니다")
	}
	return nil
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
	if err := req.validate(h.now()); err != nil {
		httputil.WriteError(w, r, err)
		return
	}

	record := models.Record{
		UserID:      me,
		Title:       req.Title,
		DistanceKm:  req.DistanceKm,
		DurationSec: req.DurationSec,
		RecordedAt:  req.RecordedAt,
		Memo:        req.Memo,
	}
	if err := h.DB.WithContext(r.Context()).Create(&record).Error; err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]any{
		"record": RecordRow{Record: record, PaceSecPerKm: Pace(record.DistanceKm, record.DurationSec)},
	})
}

// Get is visible to any signed-in runner so records can be commented on.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathUUID(r, "id", errNotFound)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}

	ctx := r.Context()
	var record models.Record
	if err := h.DB.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		httputil.WriteError(w, r, httputil.FromDB(err, errNotFound, ""))
		return
	}
	rows, err := Rows(ctx, h.DB, []models.Record{record})
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	names, err := models.Nicknames(ctx, h.DB, []uuid.UUID{record.UserID})
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"record":         rows[0],
		"authorNickname": names[record.UserID],
	})
}

// Delete removes the caller's record along with its comments.
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
		res := tx.Where("id = ? AND user_id = ?", id, me).Delete(&models.Record{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return httputil.NotFound(errNotOwned)
		}
		return PurgeDependents(tx, id)
	})
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.Success(w, "기록이 삭제되었습니다")
}

// PurgeDependents deletes what hangs off a record: comments, their likes, and
// completion proofs pointing at it.
func PurgeDependents(tx *gorm.DB, recordID uuid.UUID) error {
	comments := tx.Model(&models.Comment{}).
		Select("id").
		Where("entity_type = ? AND entity_id = ?", models.EntityRecord, recordID)
	if err := tx.Where("comment_id IN (?)", comments).Delete(&models.CommentLike{}).Error; err != nil {
		return err
	}
	if err := tx.Where("entity_type = ? AND entity_id = ?", models.EntityRecord, recordID).
		Delete(&models.Comment{}).Error; err != nil {
		return err
	}
	return tx.Model(&models.MissionCompletion{}).
		Where("record_id = ?", recordID).
		Update("record_id", nil).Error
}
