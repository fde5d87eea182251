// Package store persists and reads chat messages: direct and course sends,
// image sends, session scheduling, moderation and purging.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/cuihairu/cohortchat/internal/chat"
	"github.com/cuihairu/cohortchat/internal/chat/identity"
	"github.com/cuihairu/cohortchat/internal/chat/msgtype"
	"github.com/cuihairu/cohortchat/internal/chat/routing"
	"github.com/cuihairu/cohortchat/internal/imaging"
	"github.com/cuihairu/cohortchat/internal/objstore"
	"github.com/cuihairu/cohortchat/internal/ratelimit"
	chatgorm "github.com/cuihairu/cohortchat/internal/repo/gorm/chat"
	"github.com/cuihairu/cohortchat/internal/security/rbac"
	"github.com/cuihairu/cohortchat/internal/telemetry"
)

// Emitter is the realtime side of a write. Implementations must not block.
type Emitter interface {
	EmitMessage(m chat.Message)
	EmitAbout(m chat.Message, typ string, payload any)
}

// Authorizer answers role permission checks.
type Authorizer interface {
	Can(role, perm string) bool
}

// ReadMarker flips unread rows when a conversation is fetched.
type ReadMarker interface {
	MarkRead(ctx context.Context, key uuid.UUID, typ chat.ConversationType, actor chat.Actor) (int64, error)
}

type Config struct {
	Images       imaging.Options
	Timezone     string `json:",default=UTC"`
	ObjectPrefix string `json:",default=chat"`
	WelcomeText  string `json:",default=Welcome! Message us here any time."`
	Welcome      bool   `json:",default=true"`
}

type Deps struct {
	Repo     *chatgorm.Repo
	Identity *identity.Resolver
	Routing  *routing.Resolver
	Limiter  ratelimit.Limiter
	Emitter  Emitter
	Objects  objstore.Store
	Sessions SessionScheduler
	Policy   Authorizer
	Reads    ReadMarker
	Metrics  *telemetry.ChatMetrics
	Log      *slog.Logger
}

type Store struct {
	repo     *chatgorm.Repo
	identity *identity.Resolver
	routing  *routing.Resolver
	limiter  ratelimit.Limiter
	emitter  Emitter
	objects  objstore.Store
	sessions SessionScheduler
	policy   Authorizer
	reads    ReadMarker
	metrics  *telemetry.ChatMetrics
	log      *slog.Logger

	cfg      Config
	loc      *time.Location
	validate *validator.Validate
	now      func() time.Time
}

func New(d Deps, c Config) (*Store, error) {
	tz := c.Timezone
	if tz == "" {
		tz = "UTC"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("schedule timezone %q: %w", tz, err)
	}
	if c.ObjectPrefix == "" {
		c.ObjectPrefix = "chat"
	}
	s := &Store{
		repo:     d.Repo,
		identity: d.Identity,
		routing:  d.Routing,
		limiter:  d.Limiter,
		emitter:  d.Emitter,
		objects:  d.Objects,
		sessions: d.Sessions,
		policy:   d.Policy,
		reads:    d.Reads,
		metrics:  d.Metrics,
		log:      d.Log,
		cfg:      c,
		loc:      loc,
		validate: validator.New(),
		now:      time.Now,
	}
	if s.limiter == nil {
		s.limiter = ratelimit.Unlimited{}
	}
	if s.sessions == nil {
		s.sessions = NewGormSessions(d.Repo)
	}
	if s.metrics == nil {
		s.metrics = telemetry.Noop()
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	return s, nil
}

func (s *Store) canSeeHidden(role chat.Role) bool {
	return s.policy.Can(string(role), rbac.PermSeeHidden)
}

// ToMessage converts a stored row into its client view. Untyped legacy rows
// are classified from their content.
func ToMessage(r chatgorm.MessageRecord) chat.Message {
	m := chat.Message{
		ID:         r.ID,
		SenderID:   r.SenderID,
		ReceiverID: r.ReceiverID,
		CourseID:   r.CourseID,
		GroupID:    r.GroupID,
		Content:    r.Content,
		Type:       msgtype.Resolve(r.Type, r.Content),
		ReplyToID:  r.ReplyToID,
		Hidden:     r.Hidden,
		Read:       r.IsRead,
		CreatedAt:  r.CreatedAt,
	}
	if len(r.Metadata) > 0 {
		m.Metadata = json.RawMessage(r.Metadata)
	}
	return m
}

func (s *Store) insert(ctx context.Context, rec *chatgorm.MessageRecord, conv chat.ConversationType) (*chat.Message, error) {
	if err := s.repo.CreateMessage(ctx, rec); err != nil {
		return nil, chat.Upstream("insert message", err)
	}
	m := ToMessage(*rec)
	s.metrics.MessageSent(ctx, string(conv), string(m.Type))
	if s.emitter != nil {
		s.emitter.EmitMessage(m)
	}
	return &m, nil
}

func marshalMeta(v any) (datatypes.JSON, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}
