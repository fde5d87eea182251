package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/cuihairu/cohortchat/internal/chat"
	chatgorm "github.com/cuihairu/cohortchat/internal/repo/gorm/chat"
	"github.com/cuihairu/cohortchat/internal/security/rbac"
)

type ScheduleInput struct {
	Date  string `json:"date" validate:"required,datetime=2006-01-02"`
	Time  string `json:"time" validate:"required,datetime=15:04"`
	Title string `json:"title" validate:"required,max=200"`
}

// ScheduleMeta is stored as the metadata of a schedule message.
type ScheduleMeta struct {
	SessionID   uuid.UUID `json:"session_id"`
	Title       string    `json:"title"`
	Date        string    `json:"date"`
	Time        string    `json:"time"`
	ScheduledAt string    `json:"scheduled_at"`
}

// Schedule creates a live session for the course behind key and announces
// it with a schedule message in the course conversation.
func (s *Store) Schedule(ctx context.Context, key uuid.UUID, actor chat.Actor, in ScheduleInput) (*chat.Message, error) {
	in.Title = strings.TrimSpace(in.Title)
	if err := s.validate.Struct(in); err != nil {
		return nil, validationError(err)
	}
	target, err := s.routing.ResolveKey(ctx, key)
	if err != nil {
		return nil, err
	}
	course, err := s.repo.GetCourse(ctx, target.CourseID)
	if err != nil {
		return nil, chat.Upstream("load course", err)
	}
	if course == nil {
		return nil, chat.NotFoundf("course %s", target.CourseID)
	}
	if err := s.authorizeSchedule(ctx, actor, course); err != nil {
		return nil, err
	}
	at, err := time.ParseInLocation("2006-01-02 15:04", in.Date+" "+in.Time, s.loc)
	if err != nil {
		return nil, chat.Validationf("date and time: %v", err)
	}
	sessionID, err := s.sessions.CreateSession(ctx, SessionRequest{
		CourseID:    course.ID,
		GroupID:     target.GroupID,
		CreatedBy:   actor.UserID,
		Title:       in.Title,
		ScheduledAt: at,
	})
	if err != nil {
		return nil, chat.Upstream("create session", err)
	}
	meta, err := marshalMeta(ScheduleMeta{
		SessionID:   sessionID,
		Title:       in.Title,
		Date:        in.Date,
		Time:        in.Time,
		ScheduledAt: at.Format(time.RFC3339),
	})
	if err != nil {
		return nil, chat.Upstream("encode metadata", err)
	}
	courseID := course.ID
	rec := &chatgorm.MessageRecord{
		SenderID: actor.UserID,
		CourseID: &courseID,
		GroupID:  target.GroupID,
		Content:  fmt.Sprintf("%s · %s %s", in.Title, in.Date, in.Time),
		Type:     string(chat.TypeSchedule),
		Metadata: meta,
	}
	return s.insert(ctx, rec, chat.Group)
}

func (s *Store) authorizeSchedule(ctx context.Context, actor chat.Actor, course *chatgorm.CourseRecord) error {
	if s.policy.Can(string(actor.Role), rbac.PermScheduleAny) {
		return nil
	}
	if actor.Role == chat.RoleSpecialist {
		ok, err := s.routing.Teaches(ctx, actor.UserID, course)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}
	return chat.Forbiddenf("not allowed to schedule sessions for course %s", course.ID)
}

func validationError(err error) error {
	var fields validator.ValidationErrors
	if errors.As(err, &fields) {
		parts := make([]string, 0, len(fields))
		for _, f := range fields {
			parts = append(parts, fmt.Sprintf("%s failed %s", strings.ToLower(f.Field()), f.Tag()))
		}
		return chat.Validationf("%s", strings.Join(parts, "; "))
	}
	return chat.Validationf("%v", err)
}
