// Package identity maps the operator's accounts (the owner, a reserved
// system account and a legacy placeholder) onto one logical support
// participant. The same mapping is used when stamping senders and when
// collapsing partners on the read path.
package identity

import (
	"slices"

	"github.com/google/uuid"

	"github.com/cuihairu/cohortchat/internal/chat"
)

type Config struct {
	OwnerID       string `json:",optional"`
	SystemID      string `json:",optional"`
	LegacyID      string `json:",optional"`
	SupportName   string `json:",default=Support"`
	SupportAvatar string `json:",optional"`
}

type Resolver struct {
	OwnerID       uuid.UUID
	SystemID      uuid.UUID
	LegacyID      uuid.UUID
	SupportName   string
	SupportAvatar string
}

// New parses the configured ids. Empty ids stay uuid.Nil and never match.
func New(c Config) (*Resolver, error) {
	r := &Resolver{SupportName: c.SupportName, SupportAvatar: c.SupportAvatar}
	if r.SupportName == "" {
		r.SupportName = "Support"
	}
	for _, p := range []struct {
		dst *uuid.UUID
		src string
		key string
	}{
		{&r.OwnerID, c.OwnerID, "OwnerID"},
		{&r.SystemID, c.SystemID, "SystemID"},
		{&r.LegacyID, c.LegacyID, "LegacyID"},
	} {
		if p.src == "" {
			continue
		}
		id, err := uuid.Parse(p.src)
		if err != nil {
			return nil, chat.Validationf("identity %s: %v", p.key, err)
		}
		*p.dst = id
	}
	return r, nil
}

// Aliases returns the configured alias ids.
func (r *Resolver) Aliases() []uuid.UUID {
	out := make([]uuid.UUID, 0, 3)
	for _, id := range []uuid.UUID{r.OwnerID, r.SystemID, r.LegacyID} {
		if id != uuid.Nil {
			out = append(out, id)
		}
	}
	return out
}

func (r *Resolver) IsAlias(id uuid.UUID) bool {
	if id == uuid.Nil {
		return false
	}
	return id == r.OwnerID || id == r.SystemID || id == r.LegacyID
}

// QueryIdentities is {viewer} for non-owners and the viewer plus the system
// and legacy aliases for owners.
func (r *Resolver) QueryIdentities(viewer uuid.UUID, role chat.Role) []uuid.UUID {
	if role != chat.RoleOwner {
		return []uuid.UUID{viewer}
	}
	out := []uuid.UUID{viewer}
	for _, id := range []uuid.UUID{r.SystemID, r.LegacyID} {
		if id != uuid.Nil && id != viewer {
			out = append(out, id)
		}
	}
	return out
}

// SendIdentity stamps an owner writing to a plain user as the system alias.
func (r *Resolver) SendIdentity(sender uuid.UUID, senderRole, receiverRole chat.Role) uuid.UUID {
	if senderRole == chat.RoleOwner && receiverRole == chat.RoleUser && r.SystemID != uuid.Nil {
		return r.SystemID
	}
	return sender
}

// Canonical collapses any alias to the system id.
func (r *Resolver) Canonical(id uuid.UUID) uuid.UUID {
	if r.IsAlias(id) && r.SystemID != uuid.Nil {
		return r.SystemID
	}
	return id
}

// Expand returns every id the logical participant id stands for.
func (r *Resolver) Expand(id uuid.UUID) []uuid.UUID {
	if r.IsAlias(id) {
		return r.Aliases()
	}
	return []uuid.UUID{id}
}

// Participant is the raw identity fed into MaskDisplay.
type Participant struct {
	ID       uuid.UUID
	Nickname string
	Avatar   string
	Role     chat.Role
}

func (r *Resolver) MaskDisplay(p Participant, viewerRole chat.Role) chat.Display {
	if (p.Role == chat.RoleOwner && viewerRole != chat.RoleOwner) || (p.ID == r.SystemID && r.SystemID != uuid.Nil) {
		return chat.Display{ID: p.ID, Nickname: r.SupportName, Avatar: r.SupportAvatar, Masked: true}
	}
	return chat.Display{ID: p.ID, Nickname: p.Nickname, Avatar: p.Avatar}
}

// Partner picks the counterpart of a direct message from the viewer's side:
// the participant outside the viewer's identity set. When both or neither
// side belongs to the viewer, the non-alias side wins.
func (r *Resolver) Partner(sender, receiver uuid.UUID, viewerIDs []uuid.UUID) uuid.UUID {
	inS, inR := slices.Contains(viewerIDs, sender), slices.Contains(viewerIDs, receiver)
	switch {
	case inS && !inR:
		return receiver
	case inR && !inS:
		return sender
	case r.IsAlias(sender) && !r.IsAlias(receiver):
		return receiver
	case r.IsAlias(receiver) && !r.IsAlias(sender):
		return sender
	case inS:
		return receiver
	default:
		return sender
	}
}
