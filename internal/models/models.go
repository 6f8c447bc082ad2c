package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Schema holds every application table except the identity provider's.
const Schema = "running"

const (
	RoleAdmin  = "admin"
	RoleMember = "member"

	CrewRoleLeader = "leader"
	CrewRoleMember = "member"

	CrewActive   = "active"
	CrewInactive = "inactive"

	MissionActive = "active"
	MissionClosed = "closed"
)

// Entity types a comment or notification can point at.
const (
	EntityRecord  = "record"
	EntityMission = "mission"
	EntityCrew    = "crew"
	EntityComment = "comment"
)

const (
	NotificationComment     = "comment"
	NotificationCommentLike = "comment_like"
	NotificationCrewJoin    = "crew_join"
)

// Profile is the public face of an identity. ID equals the auth user id.
type Profile struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Nickname  string    `gorm:"uniqueIndex;not null" json:"nickname"`
	Email     string    `gorm:"index" json:"email,omitempty"`
	Bio       string    `json:"bio"`
	AvatarURL string    `json:"avatar_url"`
	CrewRole  string    `gorm:"not null;default:'member';index" json:"crew_role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Profile) TableName() string { return "running.profiles" }

type Crew struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	Name        string         `gorm:"uniqueIndex;not null" json:"name"`
	Description string         `json:"description"`
	Region      string         `gorm:"index" json:"region"`
	Tags        pq.StringArray `gorm:"type:text[]" json:"tags"`
	Status      string         `gorm:"not null;default:'active';index" json:"status"`
	OwnerID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"owner_id"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

func (Crew) TableName() string { return "running.crews" }

type CrewMember struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	CrewID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_crew_member" json:"crew_id"`
	UserID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_crew_member;index" json:"user_id"`
	Role     string    `gorm:"not null;default:'member'" json:"role"`
	JoinedAt time.Time `gorm:"autoCreateTime" json:"joined_at"`
}

func (CrewMember) TableName() string { return "running.crew_members" }

type Mission struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	CrewID           uuid.UUID `gorm:"type:uuid;not null;index" json:"crew_id"`
	Title            string    `gorm:"not null" json:"title"`
	Description      string    `json:"description"`
	TargetDistanceKm float64   `json:"target_distance_km"`
	StartDate        time.Time `json:"start_date"`
	EndDate          time.Time `json:"end_date"`
	Status           string    `gorm:"not null;default:'active';index" json:"status"`
	CreatedBy        uuid.UUID `gorm:"type:uuid;not null" json:"created_by"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (Mission) TableName() string { return "running.missions" }

type MissionCompletion struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	MissionID   uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_mission_completion" json:"mission_id"`
	UserID      uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_mission_completion;index" json:"user_id"`
	RecordID    *uuid.UUID `gorm:"type:uuid" json:"record_id,omitempty"`
	CompletedAt time.Time  `gorm:"autoCreateTime" json:"completed_at"`
}

func (MissionCompletion) TableName() string { return "running.mission_completions" }

// Record is a single logged run.
type Record struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Title       string    `json:"title"`
	DistanceKm  float64   `gorm:"not null" json:"distance_km"`
	DurationSec int       `gorm:"not null" json:"duration_sec"`
	RecordedAt  time.Time `gorm:"not null;index" json:"recorded_at"`
	Memo        string    `json:"memo"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Record) TableName() string { return "running.records" }

type Comment struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	EntityType string    `gorm:"not null;index:idx_comment_entity" json:"entity_type"`
	EntityID   uuid.UUID `gorm:"type:uuid;not null;index:idx_comment_entity" json:"entity_id"`
	AuthorID   uuid.UUID `gorm:"type:uuid;not null;index" json:"author_id"`
	Content    string    `gorm:"not null" json:"content"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (Comment) TableName() string { return "running.comments" }

type CommentLike struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	CommentID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_comment_like" json:"comment_id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_comment_like" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (CommentLike) TableName() string { return "running.comment_likes" }

type Notification struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	UserID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	ActorID    uuid.UUID  `gorm:"type:uuid;not null" json:"actor_id"`
	Type       string     `gorm:"not null" json:"type"`
	EntityType string     `gorm:"not null" json:"entity_type"`
	EntityID   uuid.UUID  `gorm:"type:uuid;not null" json:"entity_id"`
	Message    string     `json:"message"`
	ReadAt     *time.Time `gorm:"index" json:"read_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

func (Notification) TableName() string { return "running.notifications" }
