package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/cuihairu/cohortchat/internal/chat"
)

const (
	writeTimeout = 10 * time.Second
	pingInterval = 25 * time.Second
)

// RoomAuthorizer decides room membership for websocket clients.
type RoomAuthorizer interface {
	InitialRooms(ctx context.Context, actor chat.Actor) []string
	CanJoin(ctx context.Context, actor chat.Actor, room string) bool
}

// frame is what clients send: {"action":"join","room":"group_<id>"}.
type frame struct {
	Action string `json:"action"`
	Room   string `json:"room"`
}

type WSConfig struct {
	OriginPatterns     []string `json:",optional"`
	InsecureSkipVerify bool     `json:",optional"`
}

type Server struct {
	hub  *Hub
	auth RoomAuthorizer
	opts websocket.AcceptOptions
	log  *slog.Logger
}

func NewServer(hub *Hub, auth RoomAuthorizer, c WSConfig, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		hub:  hub,
		auth: auth,
		opts: websocket.AcceptOptions{OriginPatterns: c.OriginPatterns, InsecureSkipVerify: c.InsecureSkipVerify},
		log:  log,
	}
}

// Serve upgrades the request and blocks until the client disconnects.
func (s *Server) Serve(w http.ResponseWriter, r *http.Request, actor chat.Actor) {
	conn, err := websocket.Accept(w, r, &s.opts)
	if err != nil {
		return // Accept already wrote the response
	}
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	c := NewClient(actor.UserID)
	for _, room := range s.auth.InitialRooms(ctx, actor) {
		s.hub.Join(c, room)
	}
	defer s.hub.Remove(c)

	go writeLoop(ctx, conn, c)
	go keepAlive(ctx, conn)

	for {
		var f frame
		if err := wsjson.Read(ctx, conn, &f); err != nil {
			break
		}
		switch f.Action {
		case "join":
			if !s.auth.CanJoin(ctx, actor, f.Room) {
				notify(c, "room:denied", f.Room)
				continue
			}
			s.hub.Join(c, f.Room)
			notify(c, "room:joined", f.Room)
		case "leave":
			s.hub.Leave(c, f.Room)
			notify(c, "room:left", f.Room)
		default:
			s.log.Debug("[realtime] unknown frame", "action", f.Action, "user", actor.UserID)
		}
	}
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
}

func notify(c *Client, typ, room string) {
	data, _ := json.Marshal(map[string]string{"room": room})
	select {
	case c.Send <- Event{Type: typ, Room: room, Data: data}:
	default:
	}
}

func writeLoop(ctx context.Context, conn *websocket.Conn, c *Client) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-c.Send:
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(wctx, conn, ev)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

func keepAlive(ctx context.Context, conn *websocket.Conn) {
	t := time.NewTicker(pingInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			_ = conn.Ping(pctx)
			cancel()
		}
	}
}
