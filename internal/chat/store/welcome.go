package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/cuihairu/cohortchat/internal/chat"
	"github.com/cuihairu/cohortchat/internal/chat/identity"
	chatgorm "github.com/cuihairu/cohortchat/internal/repo/gorm/chat"
)

// Welcome greets a newly registered user from the support identity. It is
// best effort: failures are logged and a user who already has a support
// thread is left alone.
func (s *Store) Welcome(ctx context.Context, user uuid.UUID) {
	if !s.cfg.Welcome || s.identity.OwnerID == uuid.Nil || s.cfg.WelcomeText == "" {
		return
	}
	log := s.log.With("user", user)
	u, err := s.repo.GetUser(ctx, user)
	if err != nil || u == nil {
		log.Warn("welcome skipped, user not loaded", "err", err)
		return
	}
	role := chat.ParseRole(u.Role)
	if s.identity.IsAlias(user) {
		return
	}
	existing, err := s.repo.DirectHistory(ctx, []uuid.UUID{user}, s.identity.Aliases(), true)
	if err != nil {
		log.Warn("welcome skipped", "err", err)
		return
	}
	if len(existing) > 0 {
		return
	}
	receiver := user
	rec := &chatgorm.MessageRecord{
		SenderID:   s.identity.SendIdentity(s.identity.OwnerID, chat.RoleOwner, role),
		ReceiverID: &receiver,
		Content:    s.cfg.WelcomeText,
		Type:       string(chat.TypeText),
	}
	if _, err := s.insert(ctx, rec, chat.Direct); err != nil {
		log.Warn("welcome message not sent", "err", err)
	}
}

// SupportContact returns the conversation key and display of the support
// participant.
func (s *Store) SupportContact(ctx context.Context, actor chat.Actor) (chat.Display, error) {
	id := s.identity.Canonical(s.identity.OwnerID)
	if id == uuid.Nil {
		return chat.Display{}, chat.NotFoundf("support is not configured")
	}
	p := identity.Participant{ID: id, Role: chat.RoleOwner}
	if u, err := s.repo.GetUser(ctx, s.identity.OwnerID); err != nil {
		return chat.Display{}, chat.Upstream("load support", err)
	} else if u != nil {
		p.Nickname, p.Avatar = u.Nickname, u.Avatar
	}
	return s.identity.MaskDisplay(p, actor.Role), nil
}
