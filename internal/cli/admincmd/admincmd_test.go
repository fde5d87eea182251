package admincmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/cuihairu/cohortchat/internal/db"
	chatgorm "github.com/cuihairu/cohortchat/internal/repo/gorm/chat"
)

const (
	ownerID   = "0190f5a4-6b7c-7d8e-9f00-000000000001"
	systemID  = "0190f5a4-6b7c-7d8e-9f00-000000000002"
	aliceID   = "0190f5a4-6b7c-7d8e-9f00-00000000000a"
	bobID     = "0190f5a4-6b7c-7d8e-9f00-00000000000b"
	courseID  = "0190f5a4-6b7c-7d8e-9f00-0000000000c1"
	groupID   = "0190f5a4-6b7c-7d8e-9f00-0000000000e1"
	fixtureFx = `
users:
  - {id: ` + ownerID + `, nickname: boss, role: owner}
  - {id: ` + systemID + `, nickname: system, role: owner}
  - {id: ` + aliceID + `, nickname: alice, role: user}
  - {id: ` + bobID + `, nickname: bob, role: specialist}
courses:
  - id: ` + courseID + `
    title: Go 101
    specialist: ` + bobID + `
    groups:
      - {id: ` + groupID + `, name: Evening, capacity: 12}
enrollments:
  - {user: ` + aliceID + `, course: ` + courseID + `, group: ` + groupID + `}
`
)

type cli struct {
	t   *testing.T
	dir string
	cfg string
}

func newCLI(t *testing.T) *cli {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
	dir := t.TempDir()
	cfg := filepath.Join(dir, "chatctl.yaml")
	body := fmt.Sprintf(`chat:
  database:
    driver: sqlite
    datasource: file:%s
    log_level: silent
  identity:
    owner_id: %s
    system_id: %s
  storage:
    driver: file
    base_dir: %s
  welcome:
    text: hello from support
  log:
    level: error
`, filepath.ToSlash(filepath.Join(dir, "chat.db")), ownerID, systemID, filepath.Join(dir, "uploads"))
	require.NoError(t, os.WriteFile(cfg, []byte(body), 0o600))
	return &cli{t: t, dir: dir, cfg: cfg}
}

func (c *cli) run(args ...string) (string, error) {
	root := &cobra.Command{Use: "chatctl", SilenceUsage: true, SilenceErrors: true}
	AddAll(root, &Options{})
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", c.cfg}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func (c *cli) repo() *chatgorm.Repo {
	gdb, err := db.Open(db.Config{Driver: "sqlite", DataSource: "file:" + filepath.ToSlash(filepath.Join(c.dir, "chat.db")), LogLevel: "silent"})
	require.NoError(c.t, err)
	sqlDB, err := gdb.DB()
	require.NoError(c.t, err)
	c.t.Cleanup(func() { _ = sqlDB.Close() })
	return chatgorm.NewRepo(gdb)
}

func TestMigrateSeedWelcomePurge(t *testing.T) {
	c := newCLI(t)
	out, err := c.run("migrate")
	require.NoError(t, err)
	require.Contains(t, out, "schema up to date")

	fx := filepath.Join(c.dir, "fixtures.yaml")
	require.NoError(t, os.WriteFile(fx, []byte(fixtureFx), 0o600))
	out, err = c.run("seed", "-f", fx)
	require.NoError(t, err)
	require.Contains(t, out, "seeded 7 rows")
	out, err = c.run("seed", "-f", fx)
	require.NoError(t, err)
	require.Contains(t, out, "seeded 0 rows")

	_, err = c.run("welcome", aliceID)
	require.NoError(t, err)
	_, err = c.run("welcome", aliceID)
	require.NoError(t, err)

	repo := c.repo()
	alice := uuid.MustParse(aliceID)
	msgs, err := repo.DirectInvolving(context.Background(), []uuid.UUID{alice}, true)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, "hello from support", msgs[0].Content)
	require.Equal(t, uuid.MustParse(systemID), msgs[0].SenderID)

	g, err := repo.GetGroup(context.Background(), uuid.MustParse(groupID))
	require.NoError(t, err)
	require.Equal(t, uuid.MustParse(courseID), g.CourseID)

	out, err = c.run("purge", "--viewer", aliceID, "--partner", ownerID)
	require.NoError(t, err)
	require.Contains(t, out, "deleted 1 messages")

	_, err = c.run("purge", "--viewer", "nope", "--partner", ownerID)
	require.Error(t, err)
	_, err = c.run("welcome", "not-a-uuid")
	require.Error(t, err)
}

func TestConfigCheck(t *testing.T) {
	c := newCLI(t)
	out, err := c.run("config", "check")
	require.NoError(t, err)
	require.Contains(t, out, "config OK")

	bad := filepath.Join(c.dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("chat:\n  identity:\n    owner_id: nope\n"), 0o600))
	_, err = c.run("--include", bad, "config", "check")
	require.ErrorContains(t, err, "identity.owner_id")
}

func TestEmitterOnlyForSharedBus(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	for _, driver := range []string{"", "local"} {
		v := viper.New()
		v.Set("realtime.bus.driver", driver)
		e, done, err := (&runtime{v: v, log: log}).emitter()
		require.NoError(t, err)
		require.Nil(t, e, "driver %q", driver)
		done()
	}

	v := viper.New()
	v.Set("realtime.bus.driver", "kafka")
	v.Set("realtime.bus.kafka_brokers", []string{"127.0.0.1:9"})
	e, done, err := (&runtime{v: v, log: log}).emitter()
	require.NoError(t, err)
	require.NotNil(t, e)
	done()
}
