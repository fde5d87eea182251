package realtime

import (
	"context"
	"log/slog"
	"slices"

	"github.com/cuihairu/cohortchat/internal/chat"
	"github.com/cuihairu/cohortchat/internal/chat/identity"
	"github.com/cuihairu/cohortchat/internal/chat/routing"
	chatgorm "github.com/cuihairu/cohortchat/internal/repo/gorm/chat"
)

// ChatAuthorizer admits clients to the rooms their chat visibility allows:
// their own identities' user rooms, the groups they may read, and course
// rooms for staff.
type ChatAuthorizer struct {
	repo     *chatgorm.Repo
	identity *identity.Resolver
	routing  *routing.Resolver
	log      *slog.Logger
}

func NewChatAuthorizer(repo *chatgorm.Repo, id *identity.Resolver, rt *routing.Resolver, log *slog.Logger) *ChatAuthorizer {
	if log == nil {
		log = slog.Default()
	}
	return &ChatAuthorizer{repo: repo, identity: id, routing: rt, log: log}
}

// InitialRooms joins every user room the actor reads plus the group rooms
// of their enrollments.
func (a *ChatAuthorizer) InitialRooms(ctx context.Context, actor chat.Actor) []string {
	var rooms []string
	for _, id := range a.identity.QueryIdentities(actor.UserID, actor.Role) {
		rooms = append(rooms, UserRoom(id))
	}
	enrollments, err := a.repo.EnrollmentsOf(ctx, actor.UserID)
	if err != nil {
		a.log.Warn("[realtime] load enrollments", "user", actor.UserID, "err", err)
		return rooms
	}
	for _, e := range enrollments {
		if e.GroupID != nil {
			rooms = append(rooms, GroupRoom(*e.GroupID))
		}
	}
	return rooms
}

func (a *ChatAuthorizer) CanJoin(ctx context.Context, actor chat.Actor, room string) bool {
	kind, id, ok := ParseRoom(room)
	if !ok {
		return false
	}
	switch kind {
	case "user":
		return slices.Contains(a.identity.QueryIdentities(actor.UserID, actor.Role), id)
	case "course":
		return actor.Role.Staff()
	case "group":
		g, err := a.repo.GetGroup(ctx, id)
		if err != nil || g == nil {
			return false
		}
		scope, err := a.routing.Visibility(ctx, actor.UserID, actor.Role, g.CourseID)
		if err != nil {
			return false
		}
		return scope.All || (scope.GroupID != nil && *scope.GroupID == g.ID)
	}
	return false
}
