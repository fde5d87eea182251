// Package readstate flips unread flags and counts what is still unread.
// Every flip is a single conditional UPDATE whose affected row count is
// reported back, so concurrent callers never double count.
package readstate

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/cuihairu/cohortchat/internal/chat"
	"github.com/cuihairu/cohortchat/internal/chat/identity"
	"github.com/cuihairu/cohortchat/internal/chat/routing"
	"github.com/cuihairu/cohortchat/internal/realtime"
	chatgorm "github.com/cuihairu/cohortchat/internal/repo/gorm/chat"
	"github.com/cuihairu/cohortchat/internal/security/rbac"
	"github.com/cuihairu/cohortchat/internal/telemetry"
)

// Notifier publishes to fixed rooms without blocking.
type Notifier interface {
	Emit(rooms []string, typ string, payload any)
}

type Authorizer interface {
	Can(role, perm string) bool
}

// ReadEvent tells the other side of a conversation that its messages were
// read.
type ReadEvent struct {
	ConversationID uuid.UUID             `json:"conversationId"`
	Type           chat.ConversationType `json:"type"`
	ReaderID       uuid.UUID             `json:"readerId"`
	Updated        int64                 `json:"updated"`
}

type Tracker struct {
	repo     *chatgorm.Repo
	identity *identity.Resolver
	routing  *routing.Resolver
	policy   Authorizer
	notify   Notifier
	metrics  *telemetry.ChatMetrics
	log      *slog.Logger
}

func New(repo *chatgorm.Repo, id *identity.Resolver, rt *routing.Resolver, policy Authorizer, notify Notifier, metrics *telemetry.ChatMetrics, log *slog.Logger) *Tracker {
	if metrics == nil {
		metrics = telemetry.Noop()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Tracker{repo: repo, identity: id, routing: rt, policy: policy, notify: notify, metrics: metrics, log: log}
}

// MarkRead marks the conversation behind key read for actor and returns how
// many rows this call changed.
func (t *Tracker) MarkRead(ctx context.Context, key uuid.UUID, typ chat.ConversationType, actor chat.Actor) (int64, error) {
	viewer := t.identity.QueryIdentities(actor.UserID, actor.Role)
	if typ == chat.Group {
		return t.markGroup(ctx, key, actor, viewer)
	}
	partner := t.identity.Expand(key)
	n, err := t.repo.MarkDirectRead(ctx, partner, viewer)
	if err != nil {
		return 0, chat.Upstream("mark direct read", err)
	}
	if n > 0 {
		t.metrics.MessagesRead(ctx, string(chat.Direct), n)
		rooms := lo.Map(lo.Union(partner, viewer), func(id uuid.UUID, _ int) string { return realtime.UserRoom(id) })
		t.emit(rooms, ReadEvent{
			ConversationID: t.identity.Canonical(actor.UserID),
			Type:           chat.Direct,
			ReaderID:       actor.UserID,
			Updated:        n,
		})
	}
	return n, nil
}

func (t *Tracker) markGroup(ctx context.Context, key uuid.UUID, actor chat.Actor, viewer []uuid.UUID) (int64, error) {
	target, err := t.routing.ResolveKey(ctx, key)
	if err != nil {
		return 0, err
	}
	if _, err := t.routing.Visibility(ctx, actor.UserID, actor.Role, target.CourseID); err != nil {
		return 0, err
	}
	n, err := t.repo.MarkGroupRead(ctx, target.CourseID, viewer)
	if err != nil {
		return 0, chat.Upstream("mark group read", err)
	}
	if n > 0 {
		t.metrics.MessagesRead(ctx, string(chat.Group), n)
		rooms := lo.Map(viewer, func(id uuid.UUID, _ int) string { return realtime.UserRoom(id) })
		t.emit(rooms, ReadEvent{ConversationID: key, Type: chat.Group, ReaderID: actor.UserID, Updated: n})
	}
	return n, nil
}

func (t *Tracker) emit(rooms []string, ev ReadEvent) {
	if t.notify == nil {
		return
	}
	t.notify.Emit(lo.Uniq(rooms), realtime.EventMessagesRead, ev)
}

// UnreadCount is the number of unread direct messages addressed to actor.
func (t *Tracker) UnreadCount(ctx context.Context, actor chat.Actor) (int64, error) {
	viewer := t.identity.QueryIdentities(actor.UserID, actor.Role)
	n, err := t.repo.CountDirectUnread(ctx, viewer, t.seeHidden(actor.Role))
	if err != nil {
		return 0, chat.Upstream("count unread", err)
	}
	return n, nil
}

func (t *Tracker) seeHidden(role chat.Role) bool {
	if t.policy == nil {
		return role.Privileged()
	}
	return t.policy.Can(string(role), rbac.PermSeeHidden)
}
