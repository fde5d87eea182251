package config

import (
	"time"

	"github.com/zeromicro/go-zero/rest"

	"github.com/cuihairu/cohortchat/internal/chat/identity"
	"github.com/cuihairu/cohortchat/internal/chat/store"
	"github.com/cuihairu/cohortchat/internal/db"
	"github.com/cuihairu/cohortchat/internal/objstore"
	"github.com/cuihairu/cohortchat/internal/ratelimit"
	"github.com/cuihairu/cohortchat/internal/realtime"
	"github.com/cuihairu/cohortchat/internal/security/rbac"
	"github.com/cuihairu/cohortchat/internal/telemetry"
)

type Config struct {
	rest.RestConf
	Database    db.Config
	Storage     objstore.Config
	Realtime    RealtimeConfig
	Identity    identity.Config
	RateLimit   ratelimit.Config
	Auth        AuthConfig
	Chat        store.Config
	RBAC        rbac.Config
	Telemetry   telemetry.Config
	Uploads     UploadsConfig
	AutoMigrate bool `json:",default=true"`
}

type AuthConfig struct {
	Secret string
	Issuer string `json:",optional"`
	// shared secret the auth service sends with lifecycle hooks
	HookToken string `json:",optional"`
}

type RealtimeConfig struct {
	Bus         realtime.BusConfig
	WebSocket   realtime.WSConfig
	EmitTimeout time.Duration `json:",default=3s"`
}

type UploadsConfig struct {
	MaxBytes int64 `json:",default=10485760"`
}
