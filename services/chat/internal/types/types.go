package types

import "github.com/cuihairu/cohortchat/internal/chat"

type (
	ConversationsResponse struct {
		Conversations []chat.Conversation `json:"conversations"`
	}

	UnreadCountResponse struct {
		UnreadCount int64 `json:"unreadCount"`
	}

	MarkReadRequest struct {
		Id   string `path:"id"`
		Type string `json:"type,optional"`
	}

	MarkReadResponse struct {
		Updated int64 `json:"updated"`
	}

	SupportResponse struct {
		Contact chat.Display `json:"contact"`
	}

	FetchRequest struct {
		Id   string `path:"id"`
		Type string `form:"type,optional"`
	}

	MessagesResponse struct {
		Messages []chat.Message `json:"messages"`
	}

	SendRequest struct {
		Id        string         `path:"id"`
		Content   string         `json:"content,optional"`
		Type      string         `json:"type,optional"`
		MsgType   string         `json:"msgType,optional"`
		Metadata  map[string]any `json:"metadata,optional"`
		ReplyToId string         `json:"replyToId,optional"`
	}

	MessageResponse struct {
		Message *chat.Message `json:"message"`
	}

	ImageRequest struct {
		Id        string `path:"id"`
		Type      string `form:"type,optional"`
		ReplyToId string `form:"replyToId,optional"`
	}

	ScheduleRequest struct {
		Id    string `path:"id"`
		Date  string `json:"date,optional"`
		Time  string `json:"time,optional"`
		Title string `json:"title,optional"`
	}

	PurgeRequest struct {
		Id   string `path:"id"`
		Type string `form:"type,optional"`
	}

	PurgeResponse struct {
		Deleted int64 `json:"deleted"`
	}

	HideRequest struct {
		Id     string `path:"id"`
		Hidden bool   `json:"hidden"`
	}

	UserRegisteredRequest struct {
		UserId string `json:"userId"`
	}

	UploadRequest struct {
		Name string `path:"name"`
	}
)
