// Package chat holds the domain vocabulary shared by the chat engine:
// roles, message and conversation types, the request actor and the error
// taxonomy mapped to HTTP status codes by the service layer.
package chat

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser       Role = "user"
	RoleSpecialist Role = "specialist"
	RoleAdmin      Role = "admin"
	RoleOwner      Role = "owner"
)

// ParseRole normalizes a role string; unknown values degrade to RoleUser.
func ParseRole(s string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleSpecialist:
		return RoleSpecialist
	case RoleAdmin:
		return RoleAdmin
	case RoleOwner:
		return RoleOwner
	default:
		return RoleUser
	}
}

// Privileged roles may read moderation-hidden messages.
func (r Role) Privileged() bool {
	return r == RoleOwner || r == RoleSpecialist || r == RoleAdmin
}

// Staff roles read every group of a course unfiltered.
func (r Role) Staff() bool { return r.Privileged() }

type MessageType string

const (
	TypeText     MessageType = "text"
	TypeImage    MessageType = "image"
	TypeSticker  MessageType = "sticker"
	TypeSchedule MessageType = "schedule"
	TypeAlert    MessageType = "alert"
)

func (t MessageType) Valid() bool {
	switch t {
	case TypeText, TypeImage, TypeSticker, TypeSchedule, TypeAlert:
		return true
	}
	return false
}

type ConversationType string

const (
	Direct ConversationType = "direct"
	Group  ConversationType = "group"
)

// ParseConversationType defaults to Direct when s is empty.
func ParseConversationType(s string) (ConversationType, error) {
	switch ConversationType(strings.ToLower(strings.TrimSpace(s))) {
	case "", Direct:
		return Direct, nil
	case Group:
		return Group, nil
	default:
		return "", Validationf("unknown conversation type %q", s)
	}
}

// Actor is the verified {userId, role} pair attached to every request by
// the auth collaborator.
type Actor struct {
	UserID uuid.UUID
	Role   Role
}

// Display is the identity shown to a viewer, possibly masked as Support.
type Display struct {
	ID       uuid.UUID `json:"id"`
	Nickname string    `json:"nickname"`
	Avatar   string    `json:"avatar"`
	Masked   bool      `json:"masked,omitempty"`
}

type ReplyPreview struct {
	ID       uuid.UUID   `json:"id"`
	SenderID uuid.UUID   `json:"senderId"`
	Content  string      `json:"content"`
	Type     MessageType `json:"type"`
}

type Message struct {
	ID         uuid.UUID       `json:"id"`
	SenderID   uuid.UUID       `json:"senderId"`
	ReceiverID *uuid.UUID      `json:"receiverId,omitempty"`
	CourseID   *uuid.UUID      `json:"courseId,omitempty"`
	GroupID    *uuid.UUID      `json:"groupId,omitempty"`
	Content    string          `json:"content"`
	Type       MessageType     `json:"type"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
	ReplyToID  *uuid.UUID      `json:"replyToId,omitempty"`
	Reply      *ReplyPreview   `json:"replyTo,omitempty"`
	Hidden     bool            `json:"hidden"`
	Read       bool            `json:"read"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// IsDirect reports whether m targets a single receiver rather than a course.
func (m Message) IsDirect() bool { return m.ReceiverID != nil }

// Conversation is derived on every list request and never persisted.
type Conversation struct {
	ID            uuid.UUID        `json:"id"`
	Type          ConversationType `json:"type"`
	Name          string           `json:"name"`
	Avatar        string           `json:"avatar"`
	CourseID      *uuid.UUID       `json:"courseId,omitempty"`
	LastMessage   string           `json:"lastMessage"`
	LastType      MessageType      `json:"lastMessageType,omitempty"`
	LastMessageAt time.Time        `json:"lastMessageAt"`
	UnreadCount   int64            `json:"unreadCount"`
}
