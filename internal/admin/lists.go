package admin

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/runcrew/runcrew-backend/internal/crews"
	"github.com/runcrew/runcrew-backend/internal/httputil"
	"github.com/runcrew/runcrew-backend/internal/listing"
	"github.com/runcrew/runcrew-backend/internal/missions"
	"github.com/runcrew/runcrew-backend/internal/models"
	"github.com/runcrew/runcrew-backend/internal/records"
)

var userSpec = listing.Spec{
	SearchColumns: []string{"nickname", "email"},
	SortColumns: map[string]string{
		"created_at": "created_at",
		"updated_at": "updated_at",
		"nickname":   "nickname",
	},
	StatusColumn: "crew_role",
}

var userCounts = []listing.Count{
	{Name: "record_count", Model: &models.Record{}, Column: "user_id"},
	{Name: "crew_count", Model: &models.CrewMember{}, Column: "user_id"},
	{Name: "comment_count", Model: &models.Comment{}, Column: "author_id"},
}

type userRow struct {
	models.Profile
	RecordCount  int64 `json:"record_count"`
	CrewCount    int64 `json:"crew_count"`
	CommentCount int64 `json:"comment_count"`
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	p, err := listing.Parse(r.URL.Query(), userSpec)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}

	ctx := r.Context()
	var found []models.Profile
	page, err := listing.Find(h.DB.WithContext(ctx).Model(&models.Profile{}), p, userSpec, &found)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}

	ids := make([]uuid.UUID, len(found))
	for i, u := range found {
		ids[i] = u.ID
	}
	counts, err := listing.Enrich(ctx, h.DB, ids, userCounts...)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}

	rows := make([]userRow, len(found))
	for i, u := range found {
		rows[i] = userRow{
			Profile:      u,
			RecordCount:  counts.Get("record_count", u.ID),
			CrewCount:    counts.Get("crew_count", u.ID),
			CommentCount: counts.Get("comment_count", u.ID),
		}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"users": rows, "pagination": page})
}

type adminCrewRow struct {
	crews.CrewRow
	OwnerNickname string `json:"owner_nickname"`
}

func (h *Handler) ListCrews(w http.ResponseWriter, r *http.Request) {
	p, err := listing.Parse(r.URL.Query(), crews.ListSpec)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}

	ctx := r.Context()
	var found []models.Crew
	page, err := listing.Find(h.DB.WithContext(ctx).Model(&models.Crew{}), p, crews.ListSpec, &found)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	base, err := crews.Rows(ctx, h.DB, found)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}

	owners := make([]uuid.UUID, len(found))
	for i, c := range found {
		owners[i] = c.OwnerID
	}
	names, err := models.Nicknames(ctx, h.DB, owners)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}

	rows := make([]adminCrewRow, len(base))
	for i, c := range base {
		rows[i] = adminCrewRow{CrewRow: c, OwnerNickname: names[c.OwnerID]}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"crews": rows, "pagination": page})
}

type adminMissionRow struct {
	missions.MissionRow
	CrewName string `json:"crew_name"`
}

// crewNames resolves crew names for ids in one query.
func crewNames(ctx context.Context, h *Handler, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	out := make(map[uuid.UUID]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var found []models.Crew
	if err := h.DB.WithContext(ctx).Select("id", "name").Where("id IN ?", models.Unique(ids)).Find(&found).Error; err != nil {
		return nil, err
	}
	for _, c := range found {
		out[c.ID] = c.Name
	}
	return out, nil
}

func (h *Handler) ListMissions(w http.ResponseWriter, r *http.Request) {
	p, err := listing.Parse(r.URL.Query(), missions.ListSpec)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}

	ctx := r.Context()
	var found []models.Mission
	page, err := listing.Find(h.DB.WithContext(ctx).Model(&models.Mission{}), p, missions.ListSpec, &found)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	base, err := missions.Rows(ctx, h.DB, found)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}

	crewIDs := make([]uuid.UUID, len(found))
	for i, m := range found {
		crewIDs[i] = m.CrewID
	}
	names, err := crewNames(ctx, h, crewIDs)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}

	rows := make([]adminMissionRow, len(base))
	for i, m := range base {
		rows[i] = adminMissionRow{MissionRow: m, CrewName: names[m.CrewID]}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"missions": rows, "pagination": page})
}

type adminRecordRow struct {
	records.RecordRow
	AuthorNickname string `json:"author_nickname"`
}

func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	p, err := listing.Parse(r.URL.Query(), records.ListSpec)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}

	ctx := r.Context()
	var found []models.Record
	page, err := listing.Find(h.DB.WithContext(ctx).Model(&models.Record{}), p, records.ListSpec, &found)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	base, err := records.Rows(ctx, h.DB, found)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}

	authors := make([]uuid.UUID, len(found))
	for i, rec := range found {
		authors[i] = rec.UserID
	}
	names, err := models.Nicknames(ctx, h.DB, authors)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}

	rows := make([]adminRecordRow, len(base))
	for i, rec := range base {
		rows[i] = adminRecordRow{RecordRow: rec, AuthorNickname: names[rec.UserID]}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"records": rows, "pagination": page})
}
