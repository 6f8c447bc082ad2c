package admin

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/runcrew/runcrew-backend/internal/comments"
	"github.com/runcrew/runcrew-backend/internal/crews"
	"github.com/runcrew/runcrew-backend/internal/httputil"
	"github.com/runcrew/runcrew-backend/internal/missions"
	"github.com/runcrew/runcrew-backend/internal/models"
	"github.com/runcrew/runcrew-backend/internal/profiles"
	"github.com/runcrew/runcrew-backend/internal/records"
	"golang.org/x/sync/errgroup"
)

const (
	recentLimit    = 10
	errUserMissing = "사용자를 찾을 수 없습니다"
	errCrewMissing = "크루를 찾을 수 없습니다"
	errMission     = "미션을 찾을 수 없습니다"
	errRecord      = "기록을 찾을 수 없습니다"
)

type membershipRow struct {
	models.CrewMember
	CrewName string `json:"crew_name"`
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathUUID(r, "id", errUserMissing)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}

	ctx := r.Context()
	var user models.Profile
	if err := h.DB.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		httputil.WriteError(w, r, httputil.FromDB(err, errUserMissing, ""))
		return
	}

	var (
		stats       profiles.Stats
		memberships []models.CrewMember
		recent      []models.Record
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stats, err = profiles.LoadStats(gctx, h.DB, id)
		return err
	})
	g.Go(func() error {
		return h.DB.WithContext(gctx).Where("user_id = ?", id).Order("joined_at DESC").Find(&memberships).Error
	})
	g.Go(func() error {
		return h.DB.WithContext(gctx).Where("user_id = ?", id).
			Order("recorded_at DESC").Limit(recentLimit).Find(&recent).Error
	})
	if err := g.Wait(); err != nil {
		httputil.WriteError(w, r, err)
		return
	}

	crewIDs := make([]uuid.UUID, len(memberships))
	for i, m := range memberships {
		crewIDs[i] = m.CrewID
	}
	names, err := crewNames(ctx, h, crewIDs)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	crewRows := make([]membershipRow, len(memberships))
	for i, m := range memberships {
		crewRows[i] = membershipRow{CrewMember: m, CrewName: names[m.CrewID]}
	}

	recentRows, err := records.Rows(ctx, h.DB, recent)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"user":          user,
		"crews":         crewRows,
		"recentRecords": recentRows,
		"stats":         stats,
	})
}

type crewStats struct {
	MemberCount     int64 `json:"member_count"`
	MissionCount    int64 `json:"mission_count"`
	ActiveMissions  int64 `json:"active_mission_count"`
	CompletionCount int64 `json:"completion_count"`
}

func (h *Handler) GetCrew(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathUUID(r, "id", errCrewMissing)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}

	ctx := r.Context()
	var crew models.Crew
	if err := h.DB.WithContext(ctx).First(&crew, "id = ?", id).Error; err != nil {
		httputil.WriteError(w, r, httputil.FromDB(err, errCrewMissing, ""))
		return
	}

	var (
		members []crews.MemberRow
		found   []models.Mission
		stats   crewStats
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		members, err = crews.Members(gctx, h.DB, id)
		return err
	})
	g.Go(func() error {
		return h.DB.WithContext(gctx).Where("crew_id = ?", id).Order("created_at DESC").Find(&found).Error
	})
	g.Go(func() error {
		return h.DB.WithContext(gctx).Model(&models.Mission{}).
			Where("crew_id = ? AND status = ?", id, models.MissionActive).
			Count(&stats.ActiveMissions).Error
	})
	g.Go(func() error {
		missionIDs := h.DB.WithContext(gctx).Model(&models.Mission{}).Select("id").Where("crew_id = ?", id)
		return h.DB.WithContext(gctx).Model(&models.MissionCompletion{}).
			Where("mission_id IN (?)", missionIDs).
			Count(&stats.CompletionCount).Error
	})
	if err := g.Wait(); err != nil {
		httputil.WriteError(w, r, err)
		return
	}

	missionRows, err := missions.Rows(ctx, h.DB, found)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	stats.MemberCount = int64(len(members))
	stats.MissionCount = int64(len(found))

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"crew":     crew,
		"members":  members,
		"missions": missionRows,
		"stats":    stats,
	})
}

type completionRow struct {
	models.MissionCompletion
	Nickname string `json:"nickname"`
}

type missionStats struct {
	CompletionCount int64   `json:"completion_count"`
	MemberCount     int64   `json:"member_count"`
	CompletionRate  float64 `json:"completion_rate"`
}

// CompletionRate is completions over crew members, zero for an empty crew.
func CompletionRate(completions, members int64) float64 {
	if members <= 0 {
		return 0
	}
	return float64(completions) / float64(members)
}

func (h *Handler) GetMission(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathUUID(r, "id", errMission)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}

	ctx := r.Context()
	var mission models.Mission
	if err := h.DB.WithContext(ctx).First(&mission, "id = ?", id).Error; err != nil {
		httputil.WriteError(w, r, httputil.FromDB(err, errMission, ""))
		return
	}

	var (
		crew        models.Crew
		completions []models.MissionCompletion
		stats       missionStats
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return h.DB.WithContext(gctx).Limit(1).Find(&crew, "id = ?", mission.CrewID).Error
	})
	g.Go(func() error {
		return h.DB.WithContext(gctx).Where("mission_id = ?", id).Order("completed_at").Find(&completions).Error
	})
	g.Go(func() error {
		return h.DB.WithContext(gctx).Model(&models.CrewMember{}).
			Where("crew_id = ?", mission.CrewID).
			Count(&stats.MemberCount).Error
	})
	if err := g.Wait(); err != nil {
		httputil.WriteError(w, r, err)
		return
	}

	users := make([]uuid.UUID, len(completions))
	for i, c := range completions {
		users[i] = c.UserID
	}
	names, err := models.Nicknames(ctx, h.DB, users)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	rows := make([]completionRow, len(completions))
	for i, c := range completions {
		rows[i] = completionRow{MissionCompletion: c, Nickname: names[c.UserID]}
	}

	stats.CompletionCount = int64(len(completions))
	stats.CompletionRate = CompletionRate(stats.CompletionCount, stats.MemberCount)

	var crewOut any
	if crew.ID != uuid.Nil {
		crewOut = crew
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"mission":     mission,
		"crew":        crewOut,
		"completions": rows,
		"stats":       stats,
	})
}

type recordStats struct {
	CommentCount int64 `json:"comment_count"`
	LikeCount    int64 `json:"like_count"`
}

func (h *Handler) GetRecord(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathUUID(r, "id", errRecord)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}

	ctx := r.Context()
	var record models.Record
	if err := h.DB.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		httputil.WriteError(w, r, httputil.FromDB(err, errRecord, ""))
		return
	}

	var (
		author models.Profile
		found  []models.Comment
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return h.DB.WithContext(gctx).Limit(1).Find(&author, "id = ?", record.UserID).Error
	})
	g.Go(func() error {
		return h.DB.WithContext(gctx).
			Where("entity_type = ? AND entity_id = ?", models.EntityRecord, id).
			Order("created_at").
			Find(&found).Error
	})
	if err := g.Wait(); err != nil {
		httputil.WriteError(w, r, err)
		return
	}

	commentRows, err := comments.Rows(ctx, h.DB, found, uuid.Nil)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	stats := recordStats{CommentCount: int64(len(commentRows))}
	for _, c := range commentRows {
		stats.LikeCount += c.LikeCount
	}

	var authorOut any
	if author.ID != uuid.Nil {
		authorOut = author
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"record":   records.RecordRow{Record: record, PaceSecPerKm: records.Pace(record.DistanceKm, record.DurationSec), CommentCount: stats.CommentCount},
		"author":   authorOut,
		"comments": commentRows,
		"stats":    stats,
	})
}
