// Package admincmd implements the chatctl maintenance commands. They read
// the same viper config as the rest of the CLI tooling and talk to the chat
// database directly.
package admincmd

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gorm.io/gorm"

	"github.com/cuihairu/cohortchat/internal/chat/identity"
	"github.com/cuihairu/cohortchat/internal/chat/routing"
	"github.com/cuihairu/cohortchat/internal/chat/store"
	"github.com/cuihairu/cohortchat/internal/db"
	"github.com/cuihairu/cohortchat/internal/realtime"
	chatgorm "github.com/cuihairu/cohortchat/internal/repo/gorm/chat"
	"github.com/cuihairu/cohortchat/internal/security/rbac"
)

type runtime struct {
	v    *viper.Viper
	log  *slog.Logger
	db   *gorm.DB
	repo *chatgorm.Repo
}

func dbConfig(v *viper.Viper) db.Config {
	c := db.Config{
		Driver:          v.GetString("database.driver"),
		DataSource:      v.GetString("database.datasource"),
		MaxOpenConns:    v.GetInt("database.max_open_conns"),
		MaxIdleConns:    v.GetInt("database.max_idle_conns"),
		ConnMaxLifetime: v.GetDuration("database.conn_max_lifetime"),
		LogLevel:        v.GetString("database.log_level"),
	}
	if c.LogLevel == "" {
		c.LogLevel = "error"
	}
	return c
}

func openRuntime(v *viper.Viper, log *slog.Logger) (*runtime, error) {
	gdb, err := db.Open(dbConfig(v))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return &runtime{v: v, log: log, db: gdb, repo: chatgorm.NewRepo(gdb)}, nil
}

func (r *runtime) Close() {
	if sqlDB, err := r.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func (r *runtime) identity() (*identity.Resolver, error) {
	return identity.New(identity.Config{
		OwnerID:       r.v.GetString("identity.owner_id"),
		SystemID:      r.v.GetString("identity.system_id"),
		LegacyID:      r.v.GetString("identity.legacy_id"),
		SupportName:   r.v.GetString("identity.support_name"),
		SupportAvatar: r.v.GetString("identity.support_avatar"),
	})
}

// store builds a chat store for the command. With a redis or kafka bus its
// events reach clients connected to the running service; the local bus only
// feeds a hub inside the same process, so chatctl emits nothing then. The
// returned func waits for pending events and closes the bus.
func (r *runtime) store() (*store.Store, *identity.Resolver, func(), error) {
	id, err := r.identity()
	if err != nil {
		return nil, nil, nil, err
	}
	policy, err := rbac.New(rbac.Config{PolicyFile: r.v.GetString("rbac.policy_file")}, r.log)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("rbac: %w", err)
	}
	emitter, done, err := r.emitter()
	if err != nil {
		return nil, nil, nil, err
	}
	welcome := true
	if r.v.IsSet("welcome.enabled") {
		welcome = r.v.GetBool("welcome.enabled")
	}
	s, err := store.New(store.Deps{
		Repo:     r.repo,
		Identity: id,
		Routing:  routing.New(r.repo),
		Emitter:  emitter,
		Policy:   policy,
		Log:      r.log,
	}, store.Config{
		Timezone:    orDefault(r.v.GetString("timezone"), "UTC"),
		WelcomeText: orDefault(r.v.GetString("welcome.text"), "Welcome! Message us here any time."),
		Welcome:     welcome,
	})
	if err != nil {
		done()
		return nil, nil, nil, err
	}
	return s, id, done, nil
}

func (r *runtime) emitter() (store.Emitter, func(), error) {
	driver := strings.ToLower(r.v.GetString("realtime.bus.driver"))
	if driver != "redis" && driver != "kafka" {
		r.log.Debug("realtime bus is local, events not published", "driver", driver)
		return nil, func() {}, nil
	}
	bus, err := realtime.NewBus(realtime.BusConfig{
		Driver:       driver,
		RedisURL:     r.v.GetString("realtime.bus.redis_url"),
		Channel:      orDefault(r.v.GetString("realtime.bus.channel"), "chat:realtime"),
		KafkaBrokers: r.v.GetStringSlice("realtime.bus.kafka_brokers"),
		KafkaTopic:   orDefault(r.v.GetString("realtime.bus.kafka_topic"), "chat.realtime"),
	}, r.log)
	if err != nil {
		return nil, nil, err
	}
	b := realtime.NewBroadcaster(bus, r.repo, nil, r.log, 5*time.Second)
	return b, func() {
		b.Wait()
		_ = bus.Close()
	}, nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
