package common

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/viper"

	"github.com/cuihairu/cohortchat/internal/objstore"
	"github.com/cuihairu/cohortchat/internal/security/rbac"
)

// ValidateChatConfig checks the parts of a chat config that fail late at
// runtime: identity ids, storage settings and the RBAC policy file.
func ValidateChatConfig(v *viper.Viper) error {
	var errs []error
	for _, key := range []string{"identity.owner_id", "identity.system_id", "identity.legacy_id"} {
		if s := v.GetString(key); s != "" {
			if _, err := uuid.Parse(s); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
			}
		}
	}
	sc := objstore.Config{
		Driver:    v.GetString("storage.driver"),
		Bucket:    v.GetString("storage.bucket"),
		Region:    v.GetString("storage.region"),
		Endpoint:  v.GetString("storage.endpoint"),
		AccessKey: v.GetString("storage.access_key"),
		SecretKey: v.GetString("storage.secret_key"),
		BaseDir:   v.GetString("storage.base_dir"),
	}
	if sc.Driver == "" {
		sc.Driver = "file"
	}
	if sc.Driver == "file" && sc.BaseDir == "" {
		sc.BaseDir = "./data/uploads"
	}
	if err := objstore.Validate(sc); err != nil {
		errs = append(errs, fmt.Errorf("storage: %w", err))
	}
	if p := v.GetString("rbac.policy_file"); p != "" {
		if _, err := rbac.New(rbac.Config{PolicyFile: p}, nil); err != nil {
			errs = append(errs, fmt.Errorf("rbac.policy_file: %w", err))
		}
	}
	return errors.Join(errs...)
}
