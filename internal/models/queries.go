package models

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Nicknames resolves profile nicknames for ids in one query. Unknown ids are
// absent from the map.
func Nicknames(ctx context.Context, db *gorm.DB, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	out := make(map[uuid.UUID]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var rows []Profile
	if err := db.WithContext(ctx).
		Select("id", "nickname").
		Where("id IN ?", Unique(ids)).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, p := range rows {
		out[p.ID] = p.Nickname
	}
	return out, nil
}

// Unique drops repeated ids, keeping first-seen order.
func Unique(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// CrewMembership reports whether userID belongs to crewID and with which role.
func CrewMembership(ctx context.Context, db *gorm.DB, crewID, userID uuid.UUID) (CrewMember, bool, error) {
	var m CrewMember
	res := db.WithContext(ctx).
		Where("crew_id = ? AND user_id = ?", crewID, userID).
		Limit(1).
		Find(&m)
	if res.Error != nil {
		return CrewMember{}, false, res.Error
	}
	return m, res.RowsAffected > 0, nil
}
