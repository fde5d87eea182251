// Package routing decides which group of a course a message belongs to and
// which groups a viewer may read.
package routing

import (
	"context"

	"github.com/google/uuid"

	"github.com/cuihairu/cohortchat/internal/chat"
	chatgorm "github.com/cuihairu/cohortchat/internal/repo/gorm/chat"
)

type Resolver struct {
	repo *chatgorm.Repo
}

func New(repo *chatgorm.Repo) *Resolver { return &Resolver{repo: repo} }

// Target is a resolved group conversation key.
type Target struct {
	CourseID uuid.UUID
	GroupID  *uuid.UUID // set when the key was a group id
}

// ResolveKey interprets key as a group id first, then as a course id.
func (r *Resolver) ResolveKey(ctx context.Context, key uuid.UUID) (Target, error) {
	g, err := r.repo.GetGroup(ctx, key)
	if err != nil {
		return Target{}, chat.Upstream("load group", err)
	}
	if g != nil {
		id := g.ID
		return Target{CourseID: g.CourseID, GroupID: &id}, nil
	}
	c, err := r.repo.GetCourse(ctx, key)
	if err != nil {
		return Target{}, chat.Upstream("load course", err)
	}
	if c == nil {
		return Target{}, chat.NotFoundf("course or group %s", key)
	}
	return Target{CourseID: c.ID}, nil
}

// ResolveGroupID returns the sender's enrollment group, else the group of
// the replied-to message, else the explicitly targeted group, else nil
// (course-wide).
func (r *Resolver) ResolveGroupID(ctx context.Context, sender, course uuid.UUID, replyTo, target *uuid.UUID) (*uuid.UUID, error) {
	e, err := r.repo.FindEnrollment(ctx, sender, course)
	if err != nil {
		return nil, chat.Upstream("load enrollment", err)
	}
	if e != nil && e.GroupID != nil {
		return e.GroupID, nil
	}
	if replyTo != nil {
		m, err := r.repo.GetMessage(ctx, *replyTo)
		if err != nil {
			return nil, chat.Upstream("load reply target", err)
		}
		if m != nil && m.CourseID != nil && *m.CourseID == course && m.GroupID != nil {
			return m.GroupID, nil
		}
	}
	if target != nil {
		return target, nil
	}
	return nil, nil
}

// Visibility returns the group scope the viewer reads within course. Staff
// read every group; enrolled students read their group plus course-wide
// rows; anyone else is refused.
func (r *Resolver) Visibility(ctx context.Context, viewer uuid.UUID, role chat.Role, course uuid.UUID) (chatgorm.GroupScope, error) {
	if role.Staff() {
		return chatgorm.GroupScope{All: true}, nil
	}
	e, err := r.repo.FindEnrollment(ctx, viewer, course)
	if err != nil {
		return chatgorm.GroupScope{}, chat.Upstream("load enrollment", err)
	}
	if e == nil {
		return chatgorm.GroupScope{}, chat.Forbiddenf("not enrolled in course %s", course)
	}
	return chatgorm.GroupScope{GroupID: e.GroupID}, nil
}

// Teaches reports whether user is the specialist of course or of one of
// its groups.
func (r *Resolver) Teaches(ctx context.Context, user uuid.UUID, course *chatgorm.CourseRecord) (bool, error) {
	if course.SpecialistID != nil && *course.SpecialistID == user {
		return true, nil
	}
	groups, err := r.repo.GroupsOfCourse(ctx, course.ID)
	if err != nil {
		return false, chat.Upstream("load groups", err)
	}
	for _, g := range groups {
		if g.SpecialistID != nil && *g.SpecialistID == user {
			return true, nil
		}
	}
	return false, nil
}
