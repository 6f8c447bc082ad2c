package admin

import (
	"context"
	"net/http"

	"github.com/runcrew/runcrew-backend/internal/httputil"
	"github.com/runcrew/runcrew-backend/internal/models"
	"github.com/runcrew/runcrew-backend/internal/utils"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

type Overview struct {
	Users           int64            `json:"users"`
	Admins          int64            `json:"admins"`
	Crews           int64            `json:"crews"`
	ActiveCrews     int64            `json:"active_crews"`
	Missions        int64            `json:"missions"`
	ActiveMissions  int64            `json:"active_missions"`
	Completions     int64            `json:"completions"`
	Records         int64            `json:"records"`
	TotalDistanceKm float64          `json:"total_distance_km"`
	Comments        int64            `json:"comments"`
	RecentUsers     []models.Profile `json:"recent_users"`
}

// LoadOverview runs every dashboard total concurrently.
func LoadOverview(ctx context.Context, db *gorm.DB) (Overview, error) {
	var o Overview
	g, ctx := errgroup.WithContext(ctx)

	count := func(dst *int64, model any, where string, args ...any) {
		g.Go(func() error {
			q := db.WithContext(ctx).Model(model)
			if where != "" {
				q = q.Where(where, args...)
			}
			return q.Count(dst).Error
		})
	}
	count(&o.Users, &models.Profile{}, "")
	count(&o.Admins, &models.Profile{}, "crew_role = ?", models.RoleAdmin)
	count(&o.Crews, &models.Crew{}, "")
	count(&o.ActiveCrews, &models.Crew{}, "status = ?", models.CrewActive)
	count(&o.Missions, &models.Mission{}, "")
	count(&o.ActiveMissions, &models.Mission{}, "status = ?", models.MissionActive)
	count(&o.Completions, &models.MissionCompletion{}, "")
	count(&o.Records, &models.Record{}, "")
	count(&o.Comments, &models.Comment{}, "")

	g.Go(func() error {
		return db.WithContext(ctx).Model(&models.Record{}).
			Select("COALESCE(SUM(distance_km), 0)").
			Scan(&o.TotalDistanceKm).Error
	})
	g.Go(func() error {
		return db.WithContext(ctx).Order("created_at DESC").Limit(5).Find(&o.RecentUsers).Error
	})

	if err := g.Wait(); err != nil {
		return Overview{}, err
	}
	return o, nil
}

func (h *Handler) Overview(w http.ResponseWriter, r *http.Request) {
	o, err := LoadOverview(r.Context(), h.DB)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	body := map[string]any{"overview": o}
	if name, ok := utils.GetAdminUsernameFromContext(r.Context()); ok {
		body["username"] = name
	}
	httputil.WriteJSON(w, http.StatusOK, body)
}

// LoginPage is the unauthenticated landing target of the dashboard gate.
func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message":       "관리자 로그인이 필요합니다",
		"loginEndpoint": "/admin/login",
	})
}
