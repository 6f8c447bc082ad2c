package admin

import (
	"net/http"
	"strings"

	"github.com/runcrew/runcrew-backend/internal/httputil"
	"github.com/runcrew/runcrew-backend/internal/models"
	"github.com/runcrew/runcrew-backend/internal/records"
	"github.com/runcrew/runcrew-backend/internal/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type updateUserRequest struct {
	CrewRole string `json:"crew_role"`
}

// UpdateUser changes a profile's crew_role, the flag the legacy admin tree
// checks.
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathUUID(r, "id", errUserMissing)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	var req updateUserRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	role := strings.TrimSpace(req.CrewRole)
	if role != models.RoleAdmin && role != models.RoleMember {
		httputil.WriteError(w, r, httputil.BadRequest("crew_role은 admin 또는 member여야 합니다"))
		return
	}

	ctx := r.Context()
	res := h.DB.WithContext(ctx).Model(&models.Profile{}).Where("id = ?", id).Update("crew_role", role)
	if res.Error != nil {
		httputil.WriteError(w, r, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		httputil.WriteError(w, r, httputil.NotFound(errUserMissing))
		return
	}

	admin, _ := utils.GetAdminUsernameFromContext(ctx)
	logrus.WithFields(logrus.Fields{"admin": admin, "user_id": id, "crew_role": role}).Info("crew role changed")

	var user models.Profile
	if err := h.DB.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		httputil.WriteError(w, r, httputil.FromDB(err, errUserMissing, ""))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"user": user})
}

type updateCrewRequest struct {
	Status string `json:"status"`
}

func (h *Handler) UpdateCrew(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathUUID(r, "id", errCrewMissing)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	var req updateCrewRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	status := strings.TrimSpace(req.Status)
	if status != models.CrewActive && status != models.CrewInactive {
		httputil.WriteError(w, r, httputil.BadRequest("status는 active 또는 inactive여야 합니다"))
		return
	}

	ctx := r.Context()
	res := h.DB.WithContext(ctx).Model(&models.Crew{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		httputil.WriteError(w, r, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		httputil.WriteError(w, r, httputil.NotFound(errCrewMissing))
		return
	}

	admin, _ := utils.GetAdminUsernameFromContext(ctx)
	logrus.WithFields(logrus.Fields{"admin": admin, "crew_id": id, "status": status}).Info("crew status changed")

	var crew models.Crew
	if err := h.DB.WithContext(ctx).First(&crew, "id = ?", id).Error; err != nil {
		httputil.WriteError(w, r, httputil.FromDB(err, errCrewMissing, ""))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"crew": crew})
}

// DeleteRecord removes any runner's record for moderation.
func (h *Handler) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathUUID(r, "id", errRecord)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}

	ctx := r.Context()
	err = h.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ?", id).Delete(&models.Record{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return httputil.NotFound(errRecord)
		}
		return records.PurgeDependents(tx, id)
	})
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}

	admin, _ := utils.GetAdminUsernameFromContext(ctx)
	logrus.WithFields(logrus.Fields{"admin": admin, "record_id": id}).Info("record deleted by admin")
	httputil.Success(w, "기록이 삭제되었습니다")
}
