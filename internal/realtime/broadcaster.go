package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/cuihairu/cohortchat/internal/chat"
	chatgorm "github.com/cuihairu/cohortchat/internal/repo/gorm/chat"
	"github.com/cuihairu/cohortchat/internal/telemetry"
)

// CourseGroups lists the groups of a course for course-wide fan-out.
type CourseGroups interface {
	GroupsOfCourse(ctx context.Context, course uuid.UUID) ([]chatgorm.CourseGroupRecord, error)
}

// Broadcaster publishes events without blocking the caller. Failures are
// logged and counted, never returned.
type Broadcaster struct {
	bus     Bus
	groups  CourseGroups
	metrics *telemetry.ChatMetrics
	log     *slog.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewBroadcaster(bus Bus, groups CourseGroups, metrics *telemetry.ChatMetrics, log *slog.Logger, timeout time.Duration) *Broadcaster {
	if log == nil {
		log = slog.Default()
	}
	if metrics == nil {
		metrics = telemetry.Noop()
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Broadcaster{bus: bus, groups: groups, metrics: metrics, log: log, timeout: timeout}
}

// Rooms returns the rooms a new message goes to: the sender's room, the
// receiver's room for direct messages, and for course messages the group
// and course rooms. A course-wide message reaches every group room.
func (b *Broadcaster) Rooms(ctx context.Context, m chat.Message) ([]string, error) {
	rooms := []string{UserRoom(m.SenderID)}
	switch {
	case m.ReceiverID != nil:
		rooms = append(rooms, UserRoom(*m.ReceiverID))
	case m.CourseID != nil:
		rooms = append(rooms, CourseRoom(*m.CourseID))
		if m.GroupID != nil {
			rooms = append(rooms, GroupRoom(*m.GroupID))
			break
		}
		groups, err := b.groups.GroupsOfCourse(ctx, *m.CourseID)
		if err != nil {
			return rooms, err
		}
		for _, g := range groups {
			rooms = append(rooms, GroupRoom(g.ID))
		}
	}
	return lo.Uniq(rooms), nil
}

// EmitMessage announces a freshly stored message.
func (b *Broadcaster) EmitMessage(m chat.Message) { b.EmitAbout(m, EventMessageNew, m) }

// EmitAbout sends payload to the rooms m was delivered to.
func (b *Broadcaster) EmitAbout(m chat.Message, typ string, payload any) {
	b.async(typ, func(ctx context.Context) ([]string, any, error) {
		rooms, err := b.Rooms(ctx, m)
		return rooms, payload, err
	})
}

// Emit sends payload to fixed rooms.
func (b *Broadcaster) Emit(rooms []string, typ string, payload any) {
	if len(rooms) == 0 {
		return
	}
	b.async(typ, func(context.Context) ([]string, any, error) {
		return rooms, payload, nil
	})
}

func (b *Broadcaster) async(typ string, build func(context.Context) ([]string, any, error)) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
		defer cancel()
		rooms, payload, err := build(ctx)
		if err != nil {
			// still reach the rooms resolved so far
			b.log.Warn("[realtime] room resolution incomplete", "type", typ, "err", err)
		}
		data, err := json.Marshal(payload)
		if err != nil {
			b.fail(ctx, typ, rooms, err)
			return
		}
		if err := b.bus.Publish(ctx, Envelope{Rooms: rooms, Type: typ, Data: data}); err != nil {
			b.fail(ctx, typ, rooms, err)
		}
	}()
}

func (b *Broadcaster) fail(ctx context.Context, typ string, rooms []string, err error) {
	b.log.Error("[realtime] emit failed", "type", typ, "rooms", rooms, "err", err)
	kind := "unknown"
	if len(rooms) > 0 {
		if k, _, ok := ParseRoom(rooms[0]); ok {
			kind = k
		}
	}
	b.metrics.BroadcastFailed(ctx, kind)
}

// Wait blocks until in-flight emits finish.
func (b *Broadcaster) Wait() { b.wg.Wait() }

// Pump delivers bus envelopes to the local hub until ctx is done.
func (b *Broadcaster) Pump(ctx context.Context, hub *Hub) error {
	return b.bus.Subscribe(ctx, func(env Envelope) { hub.Deliver(env) })
}
