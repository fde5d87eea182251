package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/cuihairu/cohortchat/internal/chat"
	"github.com/cuihairu/cohortchat/internal/security/rbac"
)

// HiddenEvent is the payload of a message:hidden broadcast.
type HiddenEvent struct {
	ID     uuid.UUID `json:"id"`
	Hidden bool      `json:"hidden"`
}

// SetHidden toggles the moderation flag. The row is kept either way.
func (s *Store) SetHidden(ctx context.Context, id uuid.UUID, hidden bool, actor chat.Actor) (*chat.Message, error) {
	if !s.policy.Can(string(actor.Role), rbac.PermHide) {
		return nil, chat.Forbiddenf("role %s cannot hide messages", actor.Role)
	}
	rec, err := s.repo.GetMessage(ctx, id)
	if err != nil {
		return nil, chat.Upstream("load message", err)
	}
	if rec == nil {
		return nil, chat.NotFoundf("message %s", id)
	}
	if rec.Hidden != hidden {
		if _, err := s.repo.SetHidden(ctx, id, hidden); err != nil {
			return nil, chat.Upstream("update message", err)
		}
		rec.Hidden = hidden
	}
	m := ToMessage(*rec)
	if s.emitter != nil {
		s.emitter.EmitAbout(m, "message:hidden", HiddenEvent{ID: id, Hidden: hidden})
	}
	return &m, nil
}

// PurgeDirect deletes the whole direct thread between the actor's
// identities and the partner's.
func (s *Store) PurgeDirect(ctx context.Context, partnerKey uuid.UUID, actor chat.Actor) (int64, error) {
	viewer := s.identity.QueryIdentities(actor.UserID, actor.Role)
	n, err := s.repo.PurgeDirect(ctx, viewer, s.identity.Expand(partnerKey))
	if err != nil {
		return 0, chat.Upstream("purge conversation", err)
	}
	s.log.Info("direct conversation purged", "user", actor.UserID, "partner", partnerKey, "deleted", n)
	return n, nil
}

// PurgeBetween deletes the thread between two arbitrary participants. It is
// reserved for administrative tooling.
func (s *Store) PurgeBetween(ctx context.Context, actor chat.Actor, a, b uuid.UUID) (int64, error) {
	if !s.policy.Can(string(actor.Role), rbac.PermPurgeAny) {
		return 0, chat.Forbiddenf("role %s cannot purge conversations", actor.Role)
	}
	n, err := s.repo.PurgeDirect(ctx, s.identity.Expand(a), s.identity.Expand(b))
	if err != nil {
		return 0, chat.Upstream("purge conversation", err)
	}
	s.log.Info("direct conversation purged", "by", actor.UserID, "a", a, "b", b, "deleted", n)
	return n, nil
}
