// Package conversations derives a viewer's conversation list from stored
// messages. Nothing here is persisted; the list is rebuilt on every call.
package conversations

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/cuihairu/cohortchat/internal/chat"
	"github.com/cuihairu/cohortchat/internal/chat/identity"
	"github.com/cuihairu/cohortchat/internal/chat/msgtype"
	chatgorm "github.com/cuihairu/cohortchat/internal/repo/gorm/chat"
	"github.com/cuihairu/cohortchat/internal/security/rbac"
)

type Authorizer interface {
	Can(role, perm string) bool
}

type Aggregator struct {
	repo     *chatgorm.Repo
	identity *identity.Resolver
	policy   Authorizer
	log      *slog.Logger
}

func New(repo *chatgorm.Repo, id *identity.Resolver, policy Authorizer, log *slog.Logger) *Aggregator {
	if log == nil {
		log = slog.Default()
	}
	return &Aggregator{repo: repo, identity: id, policy: policy, log: log}
}

// List merges the viewer's direct threads and course conversations,
// newest activity first.
func (a *Aggregator) List(ctx context.Context, actor chat.Actor) ([]chat.Conversation, error) {
	hidden := a.seeHidden(actor.Role)
	direct, err := a.direct(ctx, actor, hidden)
	if err != nil {
		return nil, err
	}
	groups, err := a.groups(ctx, actor, hidden)
	if err != nil {
		return nil, err
	}
	out := append(direct, groups...)
	slices.SortStableFunc(out, func(x, y chat.Conversation) int {
		return y.LastMessageAt.Compare(x.LastMessageAt)
	})
	return out, nil
}

func (a *Aggregator) seeHidden(role chat.Role) bool {
	if a.policy == nil {
		return role.Privileged()
	}
	return a.policy.Can(string(role), rbac.PermSeeHidden)
}

type thread struct {
	latest chatgorm.MessageRecord
	unread int64
}

func (a *Aggregator) direct(ctx context.Context, actor chat.Actor, hidden bool) ([]chat.Conversation, error) {
	viewer := a.identity.QueryIdentities(actor.UserID, actor.Role)
	rows, err := a.repo.DirectInvolving(ctx, viewer, hidden)
	if err != nil {
		return nil, chat.Upstream("load direct messages", err)
	}
	threads := map[uuid.UUID]*thread{}
	var order []uuid.UUID
	for _, r := range rows {
		if r.ReceiverID == nil {
			continue
		}
		partner := a.identity.Partner(r.SenderID, *r.ReceiverID, viewer)
		if actor.Role != chat.RoleOwner {
			partner = a.identity.Canonical(partner)
		} else if a.identity.IsAlias(partner) || partner == actor.UserID {
			// traffic between the owner's own identities
			continue
		}
		th, ok := threads[partner]
		if !ok {
			// rows arrive newest first
			th = &thread{latest: r}
			threads[partner] = th
			order = append(order, partner)
		}
		if !r.IsRead && lo.Contains(viewer, *r.ReceiverID) && !lo.Contains(viewer, r.SenderID) {
			th.unread++
		}
	}

	humans := lo.Filter(order, func(id uuid.UUID, _ int) bool { return !a.identity.IsAlias(id) })
	users, err := a.repo.UsersByIDs(ctx, humans)
	if err != nil {
		return nil, chat.Upstream("load partners", err)
	}
	byID := lo.KeyBy(users, func(u chatgorm.UserRecord) uuid.UUID { return u.ID })

	out := make([]chat.Conversation, 0, len(order))
	for _, id := range order {
		p := identity.Participant{ID: id, Role: chat.RoleOwner}
		if !a.identity.IsAlias(id) {
			u, ok := byID[id]
			if !ok {
				a.log.Debug("conversation partner missing, skipped", "viewer", actor.UserID, "partner", id)
				continue
			}
			p = identity.Participant{ID: u.ID, Nickname: u.Nickname, Avatar: u.Avatar, Role: chat.ParseRole(u.Role)}
		}
		d := a.identity.MaskDisplay(p, actor.Role)
		th := threads[id]
		out = append(out, chat.Conversation{
			ID:            id,
			Type:          chat.Direct,
			Name:          d.Nickname,
			Avatar:        d.Avatar,
			LastMessage:   th.latest.Content,
			LastType:      msgtype.Resolve(th.latest.Type, th.latest.Content),
			LastMessageAt: th.latest.CreatedAt,
			UnreadCount:   th.unread,
		})
	}
	return out, nil
}

// entry is one course conversation before its preview is attached.
type entry struct {
	conv  chat.Conversation
	scope chatgorm.GroupScope
}

func (a *Aggregator) groups(ctx context.Context, actor chat.Actor, hidden bool) ([]chat.Conversation, error) {
	entries, err := a.entries(ctx, actor)
	if err != nil || len(entries) == 0 {
		return nil, err
	}
	courses := lo.Uniq(lo.Map(entries, func(e entry, _ int) uuid.UUID { return *e.conv.CourseID }))
	rows, err := a.repo.LatestGroupMessages(ctx, courses, hidden)
	if err != nil {
		return nil, chat.Upstream("load group previews", err)
	}
	out := make([]chat.Conversation, 0, len(entries))
	for _, e := range entries {
		// rows are newest first
		if r, ok := lo.Find(rows, func(r chatgorm.MessageRecord) bool {
			return *r.CourseID == *e.conv.CourseID && e.scope.Allows(r.GroupID)
		}); ok {
			e.conv.LastMessage = r.Content
			e.conv.LastType = msgtype.Resolve(r.Type, r.Content)
			e.conv.LastMessageAt = r.CreatedAt
		}
		out = append(out, e.conv)
	}
	return out, nil
}

// entries enumerates the course conversations the actor belongs to. Staff
// are keyed by course; students by their group when placed in one.
func (a *Aggregator) entries(ctx context.Context, actor chat.Actor) ([]entry, error) {
	switch actor.Role {
	case chat.RoleOwner, chat.RoleAdmin, chat.RoleSpecialist:
		var (
			courses []chatgorm.CourseRecord
			err     error
		)
		if actor.Role == chat.RoleSpecialist {
			courses, err = a.repo.CoursesTaughtBy(ctx, actor.UserID)
		} else {
			courses, err = a.repo.ListCourses(ctx)
		}
		if err != nil {
			return nil, chat.Upstream("load courses", err)
		}
		return lo.Map(courses, func(c chatgorm.CourseRecord, _ int) entry {
			return entry{conv: courseConversation(c, c.ID, c.Title, c.CreatedAt), scope: chatgorm.GroupScope{All: true}}
		}), nil
	}

	enrollments, err := a.repo.EnrollmentsOf(ctx, actor.UserID)
	if err != nil {
		return nil, chat.Upstream("load enrollments", err)
	}
	courses, err := a.repo.CoursesByIDs(ctx, lo.Map(enrollments, func(e chatgorm.EnrollmentRecord, _ int) uuid.UUID { return e.CourseID }))
	if err != nil {
		return nil, chat.Upstream("load courses", err)
	}
	groupIDs := lo.FilterMap(enrollments, func(e chatgorm.EnrollmentRecord, _ int) (uuid.UUID, bool) {
		if e.GroupID == nil {
			return uuid.Nil, false
		}
		return *e.GroupID, true
	})
	groups, err := a.repo.GroupsByIDs(ctx, groupIDs)
	if err != nil {
		return nil, chat.Upstream("load groups", err)
	}
	courseByID := lo.KeyBy(courses, func(c chatgorm.CourseRecord) uuid.UUID { return c.ID })
	groupByID := lo.KeyBy(groups, func(g chatgorm.CourseGroupRecord) uuid.UUID { return g.ID })

	out := make([]entry, 0, len(enrollments))
	for _, e := range enrollments {
		c, ok := courseByID[e.CourseID]
		if !ok {
			continue
		}
		key, name := c.ID, c.Title
		if e.GroupID != nil {
			if g, ok := groupByID[*e.GroupID]; ok {
				key, name = g.ID, g.Name
			}
		}
		out = append(out, entry{conv: courseConversation(c, key, name, e.CreatedAt), scope: chatgorm.GroupScope{GroupID: e.GroupID}})
	}
	return out, nil
}

// courseConversation builds an entry without preview. Until a message
// exists, the conversation sorts by since.
func courseConversation(c chatgorm.CourseRecord, key uuid.UUID, name string, since time.Time) chat.Conversation {
	course := c.ID
	return chat.Conversation{
		ID:            key,
		Type:          chat.Group,
		Name:          name,
		Avatar:        c.Avatar,
		CourseID:      &course,
		LastMessageAt: since,
	}
}
