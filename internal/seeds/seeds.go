// Package seeds loads the YAML demo fixture into an empty or partly seeded
// database.
package seeds

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/google/uuid"
	"github.com/runcrew/runcrew-backend/internal/auth"
	"github.com/runcrew/runcrew-backend/internal/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

//go:embed data/fixtures.yaml
var defaultFixture []byte

type Fixture struct {
	Users   []UserSeed   `yaml:"users"`
	Crews   []CrewSeed   `yaml:"crews"`
	Records []RecordSeed `yaml:"records"`
}

type UserSeed struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Nickname string `yaml:"nickname"`
	Email    string `yaml:"email"`
	Bio      string `yaml:"bio"`
	CrewRole string `yaml:"crew_role"`
}

type CrewSeed struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description"`
	Region      string        `yaml:"region"`
	Tags        []string      `yaml:"tags"`
	Owner       string        `yaml:"owner"`
	Members     []string      `yaml:"members"`
	Missions    []MissionSeed `yaml:"missions"`
}

type MissionSeed struct {
	Title            string  `yaml:"title"`
	Description      string  `yaml:"description"`
	TargetDistanceKm float64 `yaml:"target_distance_km"`
	Days             int     `yaml:"days"`
}

type RecordSeed struct {
	Username    string  `yaml:"username"`
	Title       string  `yaml:"title"`
	DistanceKm  float64 `yaml:"distance_km"`
	DurationSec int     `yaml:"duration_sec"`
	DaysAgo     int     `yaml:"days_ago"`
	Memo        string  `yaml:"memo"`
}

// Parse decodes and checks a fixture document.
func Parse(raw []byte) (Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return Fixture{}, fmt.Errorf("parse fixture: %w", err)
	}

	users := map[string]bool{}
	for _, u := range f.Users {
		if u.Username == "" || u.Password == "" {
			return Fixture{}, errors.New("fixture user needs username and password")
		}
		users[u.Username] = true
	}
	for _, c := range f.Crews {
		if c.Name == "" {
			return Fixture{}, errors.New("fixture crew needs a name")
		}
		for _, name := range append([]string{c.Owner}, c.Members...) {
			if !users[name] {
				return Fixture{}, fmt.Errorf("crew %q references unknown user %q", c.Name, name)
			}
		}
	}
	for _, r := range f.Records {
		if !users[r.Username] {
			return Fixture{}, fmt.Errorf("record %q references unknown user %q", r.Title, r.Username)
		}
	}
	return f, nil
}

func Default() (Fixture, error) {
	return Parse(defaultFixture)
}

// Result counts what a run inserted.
type Result struct {
	Users, Crews, Missions, Records int
}

// Apply inserts the fixture in one transaction. Existing usernames and crew
// names are left untouched, so the seeder can be re-run safely.
func Apply(ctx context.Context, db *gorm.DB, f Fixture, now time.Time) (Result, error) {
	var res Result
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ids, err := seedUsers(tx, f.Users, &res)
		if err != nil {
			return err
		}
		if err := seedCrews(tx, f.Crews, ids, now, &res); err != nil {
			return err
		}
		return seedRecords(tx, f.Records, ids, now, &res)
	})
	if err != nil {
		return Result{}, err
	}
	logrus.WithFields(logrus.Fields{
		"users":    res.Users,
		"crews":    res.Crews,
		"missions": res.Missions,
		"records":  res.Records,
	}).Info("seeding complete")
	return res, nil
}

func seedUsers(tx *gorm.DB, seeds []UserSeed, res *Result) (map[string]uuid.UUID, error) {
	ids := make(map[string]uuid.UUID, len(seeds))
	for _, s := range seeds {
		var existing auth.User
		err := tx.First(&existing, "username = ?", s.Username).Error
		if err == nil {
			id, perr := uuid.Parse(existing.UserID)
			if perr != nil {
				return nil, fmt.Errorf("user %s has a non-uuid id: %w", s.Username, perr)
			}
			ids[s.Username] = id
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}

		hashed, err := bcrypt.GenerateFromPassword([]byte(s.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		id := uuid.New()
		if err := tx.Create(&auth.User{
			UserID:         id.String(),
			Username:       s.Username,
			HashedPassword: string(hashed),
		}).Error; err != nil {
			return nil, fmt.Errorf("create user %s: %w", s.Username, err)
		}

		role := s.CrewRole
		if role == "" {
			role = models.RoleMember
		}
		nickname := s.Nickname
		if nickname == "" {
			nickname = s.Username
		}
		if err := tx.Create(&models.Profile{
			ID:       id,
			Nickname: nickname,
			Email:    s.Email,
			Bio:      s.Bio,
			CrewRole: role,
		}).Error; err != nil {
			return nil, fmt.Errorf("create profile %s: %w", s.Username, err)
		}
		ids[s.Username] = id
		res.Users++
	}
	return ids, nil
}

func seedCrews(tx *gorm.DB, seeds []CrewSeed, users map[string]uuid.UUID, now time.Time, res *Result) error {
	for _, s := range seeds {
		var n int64
		if err := tx.Model(&models.Crew{}).Where("LOWER(name) = LOWER(?)", s.Name).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			continue
		}

		owner := users[s.Owner]
		crew := models.Crew{
			Name:        s.Name,
			Description: s.Description,
			Region:      s.Region,
			Tags:        s.Tags,
			Status:      models.CrewActive,
			OwnerID:     owner,
		}
		if err := tx.Create(&crew).Error; err != nil {
			return fmt.Errorf("create crew %s: %w", s.Name, err)
		}
		res.Crews++

		members := []models.CrewMember{{CrewID: crew.ID, UserID: owner, Role: models.CrewRoleLeader}}
		for _, name := range s.Members {
			if users[name] == owner {
				continue
			}
			members = append(members, models.CrewMember{CrewID: crew.ID, UserID: users[name], Role: models.CrewRoleMember})
		}
		if err := tx.Create(&members).Error; err != nil {
			return fmt.Errorf("add members to %s: %w", s.Name, err)
		}

		for _, m := range s.Missions {
			days := m.Days
			if days <= 0 {
				days = 30
			}
			if err := tx.Create(&models.Mission{
				CrewID:           crew.ID,
				Title:            m.Title,
				Description:      m.Description,
				TargetDistanceKm: m.TargetDistanceKm,
				StartDate:        now,
				EndDate:          now.AddDate(0, 0, days),
				Status:           models.MissionActive,
				CreatedBy:        owner,
			}).Error; err != nil {
				return fmt.Errorf("create mission %s: %w", m.Title, err)
			}
			res.Missions++
		}
	}
	return nil
}

// seedRecords only runs for runners that have no records yet.
func seedRecords(tx *gorm.DB, seeds []RecordSeed, users map[string]uuid.UUID, now time.Time, res *Result) error {
	skip := map[uuid.UUID]bool{}
	for _, s := range seeds {
		id := users[s.Username]
		if _, seen := skip[id]; !seen {
			var n int64
			if err := tx.Model(&models.Record{}).Where("user_id = ?", id).Count(&n).Error; err != nil {
				return err
			}
			skip[id] = n > 0
		}
		if skip[id] {
			continue
		}
		if err := tx.Create(&models.Record{
			UserID:      id,
			Title:       s.Title,
			DistanceKm:  s.DistanceKm,
			DurationSec: s.DurationSec,
			RecordedAt:  now.AddDate(0, 0, -s.DaysAgo),
			Memo:        s.Memo,
		}).Error; err != nil {
			return fmt.Errorf("create record %s: %w", s.Title, err)
		}
		res.Records++
	}
	return nil
}
