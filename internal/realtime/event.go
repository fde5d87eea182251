// Package realtime fans chat events out to websocket rooms. Delivery is
// best effort; clients converge through polling.
package realtime

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
)

const (
	EventMessageNew    = "message:new"
	EventMessageHidden = "message:hidden"
	EventMessagesRead  = "messages:read"
)

func UserRoom(id uuid.UUID) string   { return "user_" + id.String() }
func GroupRoom(id uuid.UUID) string  { return "group_" + id.String() }
func CourseRoom(id uuid.UUID) string { return "course_" + id.String() }

// ParseRoom splits a room key into its kind (user, group, course) and id.
func ParseRoom(room string) (string, uuid.UUID, bool) {
	kind, raw, ok := strings.Cut(room, "_")
	if !ok {
		return "", uuid.Nil, false
	}
	switch kind {
	case "user", "group", "course":
	default:
		return "", uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", uuid.Nil, false
	}
	return kind, id, true
}

// Event is the frame written to websocket clients.
type Event struct {
	Type string          `json:"type"`
	Room string          `json:"room,omitempty"`
	Data json.RawMessage `json:"data"`
}

// Envelope is what crosses the bus between instances.
type Envelope struct {
	Rooms []string        `json:"rooms"`
	Type  string          `json:"type"`
	Data  json.RawMessage `json:"data"`
}
