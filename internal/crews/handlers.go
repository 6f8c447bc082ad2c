// Package crews manages running crews and their membership.
package crews

import (
	"context"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/runcrew/runcrew-backend/internal/httputil"
	"github.com/runcrew/runcrew-backend/internal/listing"
	"github.com/runcrew/runcrew-backend/internal/models"
	"github.com/runcrew/runcrew-backend/internal/notifications"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	errNotFound      = "크루를 찾을 수 없습니다"
	errNameTaken     = "이미 존재하는 크루 이름입니다"
	errAlreadyJoined = "이미 가입한 크루입니다"
	maxName          = 50
	maxTags          = 10
)

// ListSpec is shared with the admin crew list.
var ListSpec = listing.Spec{
	SearchColumns: []string{"name", "description", "region"},
	SortColumns: map[string]string{
		"created_at": "created_at",
		"updated_at": "updated_at",
		"name":       "name",
		"region":     "region",
	},
	StatusColumn: "status",
}

// Counts are the derived counts attached to crew rows.
var Counts = []listing.Count{
	{Name: "member_count", Model: &models.CrewMember{}, Column: "crew_id"},
	{Name: "mission_count", Model: &models.Mission{}, Column: "crew_id"},
}

type Handler struct {
	DB *gorm.DB
}

type CrewRow struct {
	models.Crew
	MemberCount  int64 `json:"member_count"`
	MissionCount int64 `json:"mission_count"`
}

// Rows attaches derived counts to a page of crews.
func Rows(ctx context.Context, db *gorm.DB, crews []models.Crew) ([]CrewRow, error) {
	ids := make([]uuid.UUID, len(crews))
	for i, c := range crews {
		ids[i] = c.ID
	}
	counts, err := listing.Enrich(ctx, db, ids, Counts...)
	if err != nil {
		return nil, err
	}

	rows := make([]CrewRow, len(crews))
	for i, c := range crews {
		rows[i] = CrewRow{
			Crew:         c,
			MemberCount:  counts.Get("member_count", c.ID),
			MissionCount: counts.Get("mission_count", c.ID),
		}
	}
	return rows, nil
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	p, err := listing.Parse(r.URL.Query(), ListSpec)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}

	ctx := r.Context()
	base := h.DB.WithContext(ctx).Model(&models.Crew{})
	if region := strings.TrimSpace(r.URL.Query().Get("region")); region != "" {
		base = base.Where("region = ?", region)
	}

	var found []models.Crew
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
		"crews":      rows,
		"pagination": page,
	})
}

type MemberRow struct {
	models.CrewMember
	Nickname string `json:"nickname"`
}

// Members lists a crew's members, leaders first.
func Members(ctx context.Context, db *gorm.DB, crewID uuid.UUID) ([]MemberRow, error) {
	var members []models.CrewMember
	if err := db.WithContext(ctx).
		Where("crew_id = ?", crewID).
		Order("CASE WHEN role = '"+models.CrewRoleLeader+"' THEN 0 ELSE 1 END").
		Order("joined_at").
		Find(&members).Error; err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, len(members))
	for i, m := range members {
		ids[i] = m.UserID
	}
	names, err := models.Nicknames(ctx, db, ids)
	if err != nil {
		return nil, err
	}

	rows := make([]MemberRow, len(members))
	for i, m := range members {
		rows[i] = MemberRow{CrewMember: m, Nickname: names[m.UserID]}
	}
	return rows, nil
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathUUID(r, "id", errNotFound)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}

	ctx := r.Context()
	var crew models.Crew
	if err := h.DB.WithContext(ctx).First(&crew, "id = ?", id).Error; err != nil {
		httputil.WriteError(w, r, httputil.FromDB(err, errNotFound, ""))
		return
	}

	rows, err := Rows(ctx, h.DB, []models.Crew{crew})
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	members, err := Members(ctx, h.DB, id)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}

	myRole := ""
	if me, err := httputil.Caller(r); err == nil {
		for _, m := range members {
			if m.UserID == me {
				myRole = m.Role
			}
		}
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"crew":    rows[0],
		"members": members,
		"myRole":  myRole,
	})
}

type createRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Region      string   `json:"region"`
	Tags        []string `json:"tags"`
}

func (req *createRequest) validate() error {
	req.Name = strings.TrimSpace(req.Name)
	req.Region = strings.TrimSpace(req.Region)
	if req.Name == "" {
		return httputil.BadRequest("크루 이름을 입력해주세요")
	}
	if utf8.RuneCountInString(req.Name) > maxName {
		return httputil.BadRequest("크루 이름은 50자 이하여야 합니다")
	}

	tags := make([]string, 0, len(req.Tags))
	seen := map[string]struct{}{}
	for _, t := range req.Tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		tags = append(tags, t)
	}
	if len(tags) > maxTags {
		return httputil.BadRequest("태그는 10개까지 등록할 수 있습니다")
	}
	req.Tags = tags
	return nil
}

// Create makes the caller the crew's owner and first leader.
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
	if err := req.validate(); err != nil {
		httputil.WriteError(w, r, err)
		return
	}

	crew := models.Crew{
		Name:        req.Name,
		Description: req.Description,
		Region:      req.Region,
		Tags:        pq.StringArray(req.Tags),
		Status:      models.CrewActive,
		OwnerID:     me,
	}
	err = h.DB.WithContext(r.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&crew).Error; err != nil {
			return httputil.FromDB(err, "", errNameTaken)
		}
		return tx.Create(&models.CrewMember{
			CrewID: crew.ID,
			UserID: me,
			Role:   models.CrewRoleLeader,
		}).Error
	})
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}

	logrus.WithFields(logrus.Fields{"crew_id": crew.ID, "owner_id": me}).Info("crew created")
	httputil.WriteJSON(w, http.StatusCreated, map[string]any{
		"crew": CrewRow{Crew: crew, MemberCount: 1},
	})
}

func (h *Handler) Join(w http.ResponseWriter, r *http.Request) {
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
		var crew models.Crew
		if err := tx.First(&crew, "id = ?", id).Error; err != nil {
			return httputil.FromDB(err, errNotFound, "")
		}
		if crew.Status != models.CrewActive {
			return httputil.BadRequest("활동 중인 크루가 아닙니다")
		}

		if err := tx.Create(&models.CrewMember{
			CrewID: crew.ID,
			UserID: me,
			Role:   models.CrewRoleMember,
		}).Error; err != nil {
			return httputil.FromDB(err, "", errAlreadyJoined)
		}

		return notifications.Notify(tx, notifications.Notice{
			Recipient:  crew.OwnerID,
			Actor:      me,
			Type:       models.NotificationCrewJoin,
			EntityType: models.EntityCrew,
			EntityID:   crew.ID,
			Message:    "새 멤버가 " + crew.Name + " 크루에 가입했습니다",
		})
	})
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.Success(w, "크루에 가입했습니다")
}

func (h *Handler) Leave(w http.ResponseWriter, r *http.Request) {
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

	ctx := r.Context()
	member, ok, err := models.CrewMembership(ctx, h.DB, id, me)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	if !ok {
		httputil.WriteError(w, r, httputil.NotFound("가입한 크루가 아닙니다"))
		return
	}
	if member.Role == models.CrewRoleLeader {
		httputil.WriteError(w, r, httputil.BadRequest("크루장은 탈퇴할 수 없습니다"))
		return
	}

	if err := h.DB.WithContext(ctx).Delete(&models.CrewMember{}, "id = ?", member.ID).Error; err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.Success(w, "크루에서 탈퇴했습니다")
}
