package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	chatgorm "github.com/cuihairu/cohortchat/internal/repo/gorm/chat"
)

// SessionRequest describes a live session to create for a course.
type SessionRequest struct {
	CourseID    uuid.UUID
	GroupID     *uuid.UUID
	CreatedBy   uuid.UUID
	Title       string
	ScheduledAt time.Time
}

// SessionScheduler owns live-session records. The chat engine only asks
// for one to exist and points a schedule message at it.
type SessionScheduler interface {
	CreateSession(ctx context.Context, req SessionRequest) (uuid.UUID, error)
}

// GormSessions writes sessions into the shared database.
type GormSessions struct {
	repo *chatgorm.Repo
}

func NewGormSessions(repo *chatgorm.Repo) *GormSessions { return &GormSessions{repo: repo} }

func (g *GormSessions) CreateSession(ctx context.Context, req SessionRequest) (uuid.UUID, error) {
	rec := &chatgorm.SessionRecord{
		CourseID:    req.CourseID,
		GroupID:     req.GroupID,
		CreatedBy:   req.CreatedBy,
		Title:       req.Title,
		ScheduledAt: req.ScheduledAt,
	}
	if err := g.repo.CreateSession(ctx, rec); err != nil {
		return uuid.Nil, err
	}
	return rec.ID, nil
}
