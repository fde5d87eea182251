package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/cuihairu/cohortchat/internal/chat"
	chatgorm "github.com/cuihairu/cohortchat/internal/repo/gorm/chat"
)

// Fetch returns a conversation's history oldest first. Opening a direct
// thread marks the partner's messages read; group threads are only marked
// through the explicit mark-read call.
func (s *Store) Fetch(ctx context.Context, key uuid.UUID, conv chat.ConversationType, actor chat.Actor) ([]chat.Message, error) {
	if conv == chat.Group {
		return s.fetchGroup(ctx, key, actor)
	}
	return s.fetchDirect(ctx, key, actor)
}

func (s *Store) fetchDirect(ctx context.Context, key uuid.UUID, actor chat.Actor) ([]chat.Message, error) {
	if !s.identity.IsAlias(key) {
		u, err := s.repo.GetUser(ctx, key)
		if err != nil {
			return nil, chat.Upstream("load partner", err)
		}
		if u == nil {
			return nil, chat.NotFoundf("user %s", key)
		}
	}
	viewer := s.identity.QueryIdentities(actor.UserID, actor.Role)
	partner := s.identity.Expand(key)
	hidden := s.canSeeHidden(actor.Role)
	rows, err := s.repo.DirectHistory(ctx, viewer, partner, hidden)
	if err != nil {
		return nil, chat.Upstream("load direct history", err)
	}
	out, err := s.withReplies(ctx, rows, func(r chatgorm.MessageRecord) bool {
		return (hidden || !r.Hidden) && inThread(r, viewer, partner)
	})
	if err != nil {
		return nil, err
	}
	if s.reads != nil {
		if _, err := s.reads.MarkRead(ctx, key, chat.Direct, actor); err != nil {
			s.log.Warn("mark direct thread read", "user", actor.UserID, "partner", key, "err", err)
		}
	}
	return out, nil
}

func (s *Store) fetchGroup(ctx context.Context, key uuid.UUID, actor chat.Actor) ([]chat.Message, error) {
	target, err := s.routing.ResolveKey(ctx, key)
	if err != nil {
		return nil, err
	}
	scope, err := s.routing.Visibility(ctx, actor.UserID, actor.Role, target.CourseID)
	if err != nil {
		return nil, err
	}
	// a group key narrows the view to that group when it is readable
	if target.GroupID != nil && scope.Allows(target.GroupID) {
		scope = chatgorm.GroupScope{GroupID: target.GroupID}
	}
	hidden := s.canSeeHidden(actor.Role)
	rows, err := s.repo.GroupHistory(ctx, target.CourseID, scope, hidden)
	if err != nil {
		return nil, chat.Upstream("load group history", err)
	}
	return s.withReplies(ctx, rows, func(r chatgorm.MessageRecord) bool {
		return (hidden || !r.Hidden) && r.CourseID != nil && *r.CourseID == target.CourseID && scope.Allows(r.GroupID)
	})
}

// withReplies converts rows and attaches previews of replied-to messages
// the viewer may see. Vanished or invisible targets get no preview.
func (s *Store) withReplies(ctx context.Context, rows []chatgorm.MessageRecord, visible func(chatgorm.MessageRecord) bool) ([]chat.Message, error) {
	ids := lo.Uniq(lo.FilterMap(rows, func(r chatgorm.MessageRecord, _ int) (uuid.UUID, bool) {
		if r.ReplyToID == nil {
			return uuid.Nil, false
		}
		return *r.ReplyToID, true
	}))
	targets := map[uuid.UUID]chatgorm.MessageRecord{}
	if len(ids) > 0 {
		found, err := s.repo.MessagesByIDs(ctx, ids)
		if err != nil {
			return nil, chat.Upstream("load reply targets", err)
		}
		targets = lo.KeyBy(found, func(r chatgorm.MessageRecord) uuid.UUID { return r.ID })
	}
	out := make([]chat.Message, 0, len(rows))
	for _, r := range rows {
		m := ToMessage(r)
		if r.ReplyToID != nil {
			if t, ok := targets[*r.ReplyToID]; ok && visible(t) {
				tm := ToMessage(t)
				m.Reply = &chat.ReplyPreview{ID: tm.ID, SenderID: tm.SenderID, Content: tm.Content, Type: tm.Type}
			}
		}
		out = append(out, m)
	}
	return out, nil
}
