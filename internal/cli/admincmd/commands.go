package admincmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/cuihairu/cohortchat/internal/chat"
	"github.com/cuihairu/cohortchat/internal/cli/common"
	chatgorm "github.com/cuihairu/cohortchat/internal/repo/gorm/chat"
)

// Options carries the persistent flags and the config they resolve to.
type Options struct {
	ConfigFile string
	Includes   []string

	v   *viper.Viper
	log *slog.Logger
}

// Bind registers the persistent flags on root and loads config before any
// subcommand runs.
func (o *Options) Bind(root *cobra.Command) {
	root.PersistentFlags().StringVar(&o.ConfigFile, "config", "", "config file path")
	root.PersistentFlags().StringSliceVar(&o.Includes, "include", nil, "extra config files merged in order")
	root.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		v, err := common.Load(o.ConfigFile, o.Includes)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		o.v = common.Section(v, "chat")
		o.log = common.SetupLogger(common.LogOptionsFrom(o.v))
		return nil
	}
}

func (o *Options) withRuntime(fn func(*runtime) error) error {
	rt, err := openRuntime(o.v, o.log)
	if err != nil {
		return err
	}
	defer rt.Close()
	return fn(rt)
}

// NewMigrate returns `chatctl migrate`.
func NewMigrate(o *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the chat tables",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.withRuntime(func(rt *runtime) error {
				if err := chatgorm.AutoMigrate(rt.db); err != nil {
					return fmt.Errorf("migrate: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
				return nil
			})
		},
	}
}

// NewSeed returns `chatctl seed -f fixtures.yaml`.
func NewSeed(o *Options) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load users, courses, groups and enrollments from a YAML file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if file == "" {
				return fmt.Errorf("-f required")
			}
			b, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			var fx Fixtures
			if err := yaml.Unmarshal(b, &fx); err != nil {
				return fmt.Errorf("parse %s: %w", file, err)
			}
			return o.withRuntime(func(rt *runtime) error {
				n, err := Seed(cmd.Context(), rt.db, fx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "seeded %d rows\n", n)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "fixtures file")
	return cmd
}

// NewWelcome returns `chatctl welcome <userId>`.
func NewWelcome(o *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "welcome <userId>",
		Short: "Send the support welcome to a user who has no support thread yet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid user id: %w", err)
			}
			return o.withRuntime(func(rt *runtime) error {
				s, _, done, err := rt.store()
				if err != nil {
					return err
				}
				defer done()
				s.Welcome(ctxOf(cmd), user)
				fmt.Fprintf(cmd.OutOrStdout(), "welcome processed for %s\n", user)
				return nil
			})
		},
	}
}

// NewPurge returns `chatctl purge --viewer A --partner B`.
func NewPurge(o *Options) *cobra.Command {
	var viewer, partner string
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete the direct conversation between two participants",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := uuid.Parse(viewer)
			if err != nil {
				return fmt.Errorf("--viewer: %w", err)
			}
			b, err := uuid.Parse(partner)
			if err != nil {
				return fmt.Errorf("--partner: %w", err)
			}
			return o.withRuntime(func(rt *runtime) error {
				s, id, done, err := rt.store()
				if err != nil {
					return err
				}
				defer done()
				n, err := s.PurgeBetween(ctxOf(cmd), chat.Actor{UserID: id.OwnerID, Role: chat.RoleOwner}, a, b)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %d messages\n", n)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&viewer, "viewer", "", "first participant id")
	cmd.Flags().StringVar(&partner, "partner", "", "second participant id")
	return cmd
}

// NewConfigCheck returns `chatctl config check`.
func NewConfigCheck(o *Options) *cobra.Command {
	cfg := &cobra.Command{Use: "config", Short: "Config helpers"}
	cfg.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Validate identity, storage and RBAC settings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := common.ValidateChatConfig(o.v); err != nil {
				return fmt.Errorf("config invalid: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "config OK")
			return nil
		},
	})
	return cfg
}

// AddAll registers every maintenance command on root.
func AddAll(root *cobra.Command, o *Options) {
	o.Bind(root)
	root.AddCommand(NewMigrate(o), NewSeed(o), NewWelcome(o), NewPurge(o), NewConfigCheck(o))
}

func ctxOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
