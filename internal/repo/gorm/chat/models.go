package chatgorm

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// UserRecord is read-only for the chat engine; accounts are owned by the
// auth collaborator.
type UserRecord struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Nickname  string    `gorm:"size:128"`
	Avatar    string    `gorm:"size:512"`
	Role      string    `gorm:"size:16;index;not null;default:user"` // user|specialist|admin|owner
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (UserRecord) TableName() string { return "users" }

type CourseRecord struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Title        string     `gorm:"size:255;not null"`
	Avatar       string     `gorm:"size:512"`
	SpecialistID *uuid.UUID `gorm:"type:uuid;index"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (CourseRecord) TableName() string { return "courses" }

type CourseGroupRecord struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey"`
	CourseID     uuid.UUID  `gorm:"type:uuid;index;not null"`
	Name         string     `gorm:"size:255"`
	SpecialistID *uuid.UUID `gorm:"type:uuid;index"`
	Capacity     int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (CourseGroupRecord) TableName() string { return "course_groups" }

// EnrollmentRecord with a nil GroupID is pending placement.
type EnrollmentRecord struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID  `gorm:"type:uuid;uniqueIndex:idx_enrollment_user_course;not null"`
	CourseID  uuid.UUID  `gorm:"type:uuid;uniqueIndex:idx_enrollment_user_course;index;not null"`
	GroupID   *uuid.UUID `gorm:"type:uuid;index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (EnrollmentRecord) TableName() string { return "enrollments" }

// MessageRecord is either direct (ReceiverID set) or group-scoped
// (CourseID set, GroupID nil for course-wide). Only IsRead and Hidden are
// mutated after insert.
type MessageRecord struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey"`
	SenderID   uuid.UUID      `gorm:"type:uuid;index;not null"`
	ReceiverID *uuid.UUID     `gorm:"type:uuid;index"`
	CourseID   *uuid.UUID     `gorm:"type:uuid;index"`
	GroupID    *uuid.UUID     `gorm:"type:uuid;index"`
	Content    string         `gorm:"type:text"`
	Type       string         `gorm:"size:16"` // text|image|sticker|schedule|alert
	Metadata   datatypes.JSON `gorm:"type:json"`
	ReplyToID  *uuid.UUID     `gorm:"type:uuid"`
	Hidden     bool           `gorm:"not null;default:false"`
	IsRead     bool           `gorm:"column:is_read;index;not null;default:false"`
	CreatedAt  time.Time      `gorm:"index"`
}

func (MessageRecord) TableName() string { return "messages" }

// SessionRecord is the externally owned live-session row a schedule
// message points at.
type SessionRecord struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey"`
	CourseID    uuid.UUID  `gorm:"type:uuid;index;not null"`
	GroupID     *uuid.UUID `gorm:"type:uuid;index"`
	CreatedBy   uuid.UUID  `gorm:"type:uuid;not null"`
	Title       string     `gorm:"size:255"`
	ScheduledAt time.Time  `gorm:"index"`
	CreatedAt   time.Time
}

func (SessionRecord) TableName() string { return "sessions" }

func ensureID(id *uuid.UUID) error {
	if *id != uuid.Nil {
		return nil
	}
	v, err := uuid.NewV7()
	if err != nil {
		return err
	}
	*id = v
	return nil
}

func (u *UserRecord) BeforeCreate(*gorm.DB) error        { return ensureID(&u.ID) }
func (c *CourseRecord) BeforeCreate(*gorm.DB) error      { return ensureID(&c.ID) }
func (g *CourseGroupRecord) BeforeCreate(*gorm.DB) error { return ensureID(&g.ID) }
func (e *EnrollmentRecord) BeforeCreate(*gorm.DB) error  { return ensureID(&e.ID) }
func (m *MessageRecord) BeforeCreate(*gorm.DB) error     { return ensureID(&m.ID) }
func (s *SessionRecord) BeforeCreate(*gorm.DB) error     { return ensureID(&s.ID) }

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&UserRecord{},
		&CourseRecord{},
		&CourseGroupRecord{},
		&EnrollmentRecord{},
		&MessageRecord{},
		&SessionRecord{},
	)
}
