// Package missions handles crew challenges and their completions.
package missions

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/runcrew/runcrew-backend/internal/httputil"
	"github.com/runcrew/runcrew-backend/internal/listing"
	"github.com/runcrew/runcrew-backend/internal/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	errNotFound     = "미션을 찾을 수 없습니다"
	errCrewNotFound = "크루를 찾을 수 없습니다"
	maxTitle        = 100
)

var ListSpec = listing.Spec{
	SearchColumns: []string{"title", "description"},
	SortColumns: map[string]string{
		"created_at":         "created_at",
		"start_date":         "start_date",
		"end_date":           "end_date",
		"target_distance_km": "target_distance_km",
		"title":              "title",
	},
	StatusColumn: "status",
}

var Counts = []listing.Count{
	{Name: "completion_count", Model: &models.MissionCompletion{}, Column: "mission_id"},
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

type MissionRow struct {
	models.Mission
	CompletionCount int64 `json:"completion_count"`
}

func Rows(ctx context.Context, db *gorm.DB, missions []models.Mission) ([]MissionRow, error) {
	ids := make([]uuid.UUID, len(missions))
	for i, m := range missions {
		ids[i] = m.ID
	}
	counts, err := listing.Enrich(ctx, db, ids, Counts...)
	if err != nil {
		return nil, err
	}
	rows := make([]MissionRow, len(missions))
	for i, m := range missions {
		rows[i] = MissionRow{Mission: m, CompletionCount: counts.Get("completion_count", m.ID)}
	}
	return rows, nil
}

func (h *Handler) findCrew(ctx context.Context, id uuid.UUID) (models.Crew, error) {
	var crew models.Crew
	if err := h.DB.WithContext(ctx).First(&crew, "id = ?", id).Error; err != nil {
		return models.Crew{}, httputil.FromDB(err, errCrewNotFound, "")
	}
	return crew, nil
}

// ListByCrew is GET /api/crews/{id}/missions.
func (h *Handler) ListByCrew(w http.ResponseWriter, r *http.Request) {
	crewID, err := httputil.PathUUID(r, "id", errCrewNotFound)
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
	if _, err := h.findCrew(ctx, crewID); err != nil {
		httputil.WriteError(w, r, err)
		return
	}

	var found []models.Mission
	base := h.DB.WithContext(ctx).Model(&models.Mission{}).Where("crew_id = ?", crewID)
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
		"missions":   rows,
		"pagination": page,
	})
}

type createRequest struct {
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	TargetDistanceKm float64   `json:"target_distance_km"`
	StartDate        time.Time `json:"start_date"`
	EndDate          time.Time `json:"end_date"`
}

func (req *createRequest) validate(now time.Time) error {
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return httputil.BadRequest("미션 제목을 입력해주세요")
	}
	if utf8.RuneCountInString(req.Title) > maxTitle {
		return httputil.BadRequest("미션 제목은 100자 이하여야 합니다")
	}
	if req.TargetDistanceKm < 0 {
		return httputil.BadRequest("목표 거리는 0 이상이어야 합니다")
	}
	if req.StartDate.IsZero() {
		req.StartDate = now
	}
	if req.EndDate.IsZero() {
		return httputil.BadRequest("종료일을 입력해주세요")
	}
	if req.EndDate.Before(req.StartDate) {
		return httputil.BadRequest("종료일은 시작일 이후여야 합니다")
	}
	return nil
}

// Create is restricted to the crew's leaders.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	me, err := httputil.Caller(r)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	crewID, err := httputil.PathUUID(r, "id", errCrewNotFound)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}

	ctx := r.Context()
	if _, err := h.findCrew(ctx, crewID); err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	member, ok, err := models.CrewMembership(ctx, h.DB, crewID, me)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	if !ok || member.Role != models.CrewRoleLeader {
		httputil.WriteError(w, r, httputil.Forbidden("크루장만 미션을 만들 수 있습니다"))
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

	mission := models.Mission{
		CrewID:           crewID,
		Title:            req.Title,
		Description:      req.Description,
		TargetDistanceKm: req.TargetDistanceKm,
		StartDate:        req.StartDate,
		EndDate:          req.EndDate,
		Status:           models.MissionActive,
		CreatedBy:        me,
	}
	if err := h.DB.WithContext(ctx).Create(&mission).Error; err != nil {
		httputil.WriteError(w, r, err)
		return
	}

	logrus.WithFields(logrus.Fields{"mission_id": mission.ID, "crew_id": crewID}).Info("mission created")
	httputil.WriteJSON(w, http.StatusCreated, map[string]any{"mission": MissionRow{Mission: mission}})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathUUID(r, "id", errNotFound)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}

	ctx := r.Context()
	var mission models.Mission
	if err := h.DB.WithContext(ctx).First(&mission, "id = ?", id).Error; err != nil {
		httputil.WriteError(w, r, httputil.FromDB(err, errNotFound, ""))
		return
	}
	rows, err := Rows(ctx, h.DB, []models.Mission{mission})
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}

	completedByMe := false
	if me, err := httputil.Caller(r); err == nil {
		var n int64
		if err := h.DB.WithContext(ctx).Model(&models.MissionCompletion{}).
			Where("mission_id = ? AND user_id = ?", id, me).
			Count(&n).Error; err != nil {
			httputil.WriteError(w, r, err)
			return
		}
		completedByMe = n > 0
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"mission":       rows[0],
		"completedByMe": completedByMe,
	})
}

type completeRequest struct {
	RecordID *uuid.UUID `json:"record_id"`
}

// Complete marks the mission done for the caller, optionally pointing at one
// of the caller's records as proof.
func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
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

	var req completeRequest
	if r.ContentLength != 0 {
		if err := httputil.DecodeJSON(w, r, &req); err != nil {
			httputil.WriteError(w, r, err)
			return
		}
	}

	ctx := r.Context()
	var mission models.Mission
	if err := h.DB.WithContext(ctx).First(&mission, "id = ?", id).Error; err != nil {
		httputil.WriteError(w, r, httputil.FromDB(err, errNotFound, ""))
		return
	}
	if mission.Status != models.MissionActive || h.now().After(mission.EndDate) {
		httputil.WriteError(w, r, httputil.BadRequest("종료된 미션입니다"))
		return
	}

	if _, ok, err := models.CrewMembership(ctx, h.DB, mission.CrewID, me); err != nil {
		httputil.WriteError(w, r, err)
		return
	} else if !ok {
		httputil.WriteError(w, r, httputil.Forbidden("크루 멤버만 미션을 완료할 수 있습니다"))
		return
	}

	if req.RecordID != nil {
		var record models.Record
		err := h.DB.WithContext(ctx).First(&record, "id = ? AND user_id = ?", *req.RecordID, me).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httputil.WriteError(w, r, httputil.NotFound("기록을 찾을 수 없습니다"))
			return
		}
		if err != nil {
			httputil.WriteError(w, r, err)
			return
		}
		if record.DistanceKm < mission.TargetDistanceKm {
			httputil.WriteError(w, r, httputil.BadRequest("목표 거리에 도달하지 않은 기록입니다"))
			return
		}
	}

	completion := models.MissionCompletion{MissionID: id, UserID: me, RecordID: req.RecordID}
	if err := h.DB.WithContext(ctx).Create(&completion).Error; err != nil {
		httputil.WriteError(w, r, httputil.FromDB(err, "", "이미 완료한 미션입니다"))
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, map[string]any{"completion": completion})
}
