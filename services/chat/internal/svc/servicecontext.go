package svc

import (
	"context"
	"fmt"
	"strings"

	"github.com/zeromicro/go-zero/core/logx"
	"gorm.io/gorm"

	"github.com/cuihairu/cohortchat/internal/auth/token"
	"github.com/cuihairu/cohortchat/internal/chat/conversations"
	"github.com/cuihairu/cohortchat/internal/chat/identity"
	"github.com/cuihairu/cohortchat/internal/chat/readstate"
	"github.com/cuihairu/cohortchat/internal/chat/routing"
	"github.com/cuihairu/cohortchat/internal/chat/store"
	"github.com/cuihairu/cohortchat/internal/db"
	"github.com/cuihairu/cohortchat/internal/objstore"
	"github.com/cuihairu/cohortchat/internal/ratelimit"
	"github.com/cuihairu/cohortchat/internal/realtime"
	chatgorm "github.com/cuihairu/cohortchat/internal/repo/gorm/chat"
	"github.com/cuihairu/cohortchat/internal/security/rbac"
	"github.com/cuihairu/cohortchat/internal/telemetry"
	"github.com/cuihairu/cohortchat/services/chat/internal/config"
)

type ServiceContext struct {
	Config config.Config

	DB            *gorm.DB
	Repo          *chatgorm.Repo
	Identity      *identity.Resolver
	Routing       *routing.Resolver
	Policy        *rbac.Policy
	Objects       objstore.Store
	Files         *objstore.FileStore // set for the file driver only
	Hub           *realtime.Hub
	Bus           realtime.Bus
	Broadcaster   *realtime.Broadcaster
	WS            *realtime.Server
	Store         *store.Store
	Reads         *readstate.Tracker
	Conversations *conversations.Aggregator
	Tokens        *token.Manager
	Telemetry     *telemetry.Provider

	cancel context.CancelFunc
}

// NewServiceContext wires every component from c and starts the realtime
// pump and policy watcher. Close stops them.
func NewServiceContext(c config.Config) (*ServiceContext, error) {
	ctx, cancel := context.WithCancel(context.Background())
	s := &ServiceContext{Config: c, cancel: cancel}
	if err := s.init(ctx); err != nil {
		cancel()
		s.Close()
		return nil, err
	}
	return s, nil
}

func MustNewServiceContext(c config.Config) *ServiceContext {
	s, err := NewServiceContext(c)
	logx.Must(err)
	return s
}

func (s *ServiceContext) init(ctx context.Context) error {
	c := s.Config
	log := Slog()

	var err error
	if s.Telemetry, err = telemetry.NewProvider(ctx, c.Telemetry); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	metrics := s.Telemetry.Metrics

	if s.DB, err = db.Open(c.Database); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if c.AutoMigrate {
		if err := chatgorm.AutoMigrate(s.DB); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	s.Repo = chatgorm.NewRepo(s.DB)
	if s.Identity, err = identity.New(c.Identity); err != nil {
		return err
	}
	s.Routing = routing.New(s.Repo)

	if s.Policy, err = rbac.New(c.RBAC, log); err != nil {
		return fmt.Errorf("rbac: %w", err)
	}
	if c.RBAC.PolicyFile != "" && c.RBAC.Watch {
		if err := s.Policy.Watch(ctx, c.RBAC.PolicyFile); err != nil {
			logx.Errorf("rbac watch disabled: %v", err)
		}
	}

	if s.Objects, err = objstore.Open(ctx, c.Storage); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if fs, ok := s.Objects.(*objstore.FileStore); ok {
		s.Files = fs
	}

	limiter, err := ratelimit.New(c.RateLimit)
	if err != nil {
		return fmt.Errorf("ratelimit: %w", err)
	}

	if s.Bus, err = realtime.NewBus(c.Realtime.Bus, log); err != nil {
		return fmt.Errorf("realtime bus: %w", err)
	}
	s.Hub = realtime.NewHub()
	s.Broadcaster = realtime.NewBroadcaster(s.Bus, s.Repo, metrics, log, c.Realtime.EmitTimeout)
	go func() {
		if err := s.Broadcaster.Pump(ctx, s.Hub); err != nil && ctx.Err() == nil {
			logx.Errorf("realtime pump stopped: %v", err)
		}
	}()
	s.WS = realtime.NewServer(s.Hub, realtime.NewChatAuthorizer(s.Repo, s.Identity, s.Routing, log), c.Realtime.WebSocket, log)

	s.Reads = readstate.New(s.Repo, s.Identity, s.Routing, s.Policy, s.Broadcaster, metrics, log)
	s.Conversations = conversations.New(s.Repo, s.Identity, s.Policy, log)
	s.Store, err = store.New(store.Deps{
		Repo:     s.Repo,
		Identity: s.Identity,
		Routing:  s.Routing,
		Limiter:  limiter,
		Emitter:  s.Broadcaster,
		Objects:  s.Objects,
		Policy:   s.Policy,
		Reads:    s.Reads,
		Metrics:  metrics,
		Log:      log,
	}, c.Chat)
	if err != nil {
		return err
	}
	if strings.TrimSpace(c.Auth.Secret) == "" {
		return fmt.Errorf("auth secret is empty")
	}
	s.Tokens = token.NewManager(c.Auth.Secret, c.Auth.Issuer)
	return nil
}

// Close stops background work and releases connections.
func (s *ServiceContext) Close() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.Broadcaster != nil {
		s.Broadcaster.Wait()
	}
	if s.Bus != nil {
		_ = s.Bus.Close()
	}
	if s.Telemetry != nil {
		_ = s.Telemetry.Shutdown(context.Background())
	}
	if s.DB != nil {
		if sqlDB, err := s.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}
