package common

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. COHORTCHAT_DATABASE_DATASOURCE.
const EnvPrefix = "COHORTCHAT"

// Load reads .env files when present, then the base config and its
// includes in order. Environment variables override file values.
func Load(base string, includes []string) (*viper.Viper, error) {
	_ = godotenv.Load()
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if base != "" {
		v.SetConfigFile(base)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}
	for _, inc := range includes {
		iv := viper.New()
		iv.SetConfigFile(inc)
		if err := iv.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("include %s: %w", inc, err)
		}
		if err := v.MergeConfigMap(iv.AllSettings()); err != nil {
			return nil, fmt.Errorf("include %s: %w", inc, err)
		}
	}
	return v, nil
}

// Section narrows v to a named section when it exists and keeps v
// otherwise, so flat and sectioned files both work.
func Section(v *viper.Viper, name string) *viper.Viper {
	if sub := v.Sub(name); sub != nil {
		sub.SetEnvPrefix(EnvPrefix)
		sub.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		sub.AutomaticEnv()
		return sub
	}
	return v
}
