// Package profiles serves the caller's own profile and public runner pages.
package profiles

import (
	"context"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/runcrew/runcrew-backend/internal/httputil"
	"github.com/runcrew/runcrew-backend/internal/models"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const (
	errNotFound      = "프로필을 찾을 수 없습니다"
	errNicknameTaken = "이미 사용 중인 닉네임입니다"
	maxNickname      = 30
	maxBio           = 300
)

type Handler struct {
	DB *gorm.DB
}

// Stats are derived totals shown next to a profile.
type Stats struct {
	RecordCount     int64   `json:"record_count"`
	TotalDistanceKm float64 `json:"total_distance_km"`
	TotalDurationS  int64   `json:"total_duration_sec"`
	CrewCount       int64   `json:"crew_count"`
	CompletionCount int64   `json:"completion_count"`
}

// LoadStats runs the profile aggregates concurrently.
func LoadStats(ctx context.Context, db *gorm.DB, userID uuid.UUID) (Stats, error) {
	var s Stats
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var row struct {
			Count    int64
			Distance float64
			Duration int64
		}
		err := db.WithContext(ctx).Model(&models.Record{}).
			Select("COUNT(*) AS count, COALESCE(SUM(distance_km), 0) AS distance, COALESCE(SUM(duration_sec), 0) AS duration").
			Where("user_id = ?", userID).
			Scan(&row).Error
		s.RecordCount, s.TotalDistanceKm, s.TotalDurationS = row.Count, row.Distance, row.Duration
		return err
	})
	g.Go(func() error {
		return db.WithContext(ctx).Model(&models.CrewMember{}).
			Where("user_id = ?", userID).
			Count(&s.CrewCount).Error
	})
	g.Go(func() error {
		return db.WithContext(ctx).Model(&models.MissionCompletion{}).
			Where("user_id = ?", userID).
			Count(&s.CompletionCount).Error
	})

	if err := g.Wait(); err != nil {
		return Stats{}, err
	}
	return s, nil
}

func (h *Handler) load(ctx context.Context, id uuid.UUID) (models.Profile, Stats, error) {
	var p models.Profile
	if err := h.DB.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return models.Profile{}, Stats{}, httputil.FromDB(err, errNotFound, "")
	}
	stats, err := LoadStats(ctx, h.DB, id)
	if err != nil {
		return models.Profile{}, Stats{}, err
	}
	return p, stats, nil
}

func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	me, err := httputil.Caller(r)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	p, stats, err := h.load(r.Context(), me)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"profile": p, "stats": stats})
}

// GetProfile is the public view; email stays private.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathUUID(r, "id", errNotFound)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	p, stats, err := h.load(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	p.Email = ""
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"profile": p, "stats": stats})
}

type updateRequest struct {
	Nickname  *string `json:"nickname"`
	Email     *string `json:"email"`
	Bio       *string `json:"bio"`
	AvatarURL *string `json:"avatar_url"`
}

// changes validates the request and returns the columns to update.
func (req updateRequest) changes() (map[string]any, error) {
	out := map[string]any{}
	if req.Nickname != nil {
		nick := strings.TrimSpace(*req.Nickname)
		if nick == "" {
			return nil, httputil.BadRequest("닉네임을 입력해주세요")
		}
		if utf8.RuneCountInString(nick) > maxNickname {
			return nil, httputil.BadRequest("닉네임은 30자 이하여야 합니다")
		}
		out["nickname"] = nick
	}
	if req.Email != nil {
		out["email"] = strings.TrimSpace(*req.Email)
	}
	if req.Bio != nil {
		if utf8.RuneCountInString(*req.Bio) > maxBio {
			return nil, httputil.BadRequest("소개는 300자 이하여야 합니다")
		}
		out["bio"] = *req.Bio
	}
	if req.AvatarURL != nil {
		out["avatar_url"] = strings.TrimSpace(*req.AvatarURL)
	}
	if len(out) == 0 {
		return nil, httputil.BadRequest("변경할 항목이 없습니다")
	}
	return out, nil
}

func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	me, err := httputil.Caller(r)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	var req updateRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	changes, err := req.changes()
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}

	ctx := r.Context()
	res := h.DB.WithContext(ctx).Model(&models.Profile{}).Where("id = ?", me).Updates(changes)
	if res.Error != nil {
		httputil.WriteError(w, r, httputil.FromDB(res.Error, "", errNicknameTaken))
		return
	}
	if res.RowsAffected == 0 {
		httputil.WriteError(w, r, httputil.NotFound(errNotFound))
		return
	}

	p, stats, err := h.load(ctx, me)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"profile": p, "stats": stats})
}
