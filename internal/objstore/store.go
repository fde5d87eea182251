package objstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Store persists uploaded objects and hands back a URL clients can fetch.
type Store interface {
	Put(ctx context.Context, key string, r io.ReadSeeker, size int64, contentType string) error
	URL(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

type Config struct {
	Driver         string        `json:",default=file,options=s3|oss|cos|file"`
	Bucket         string        `json:",optional"`
	Region         string        `json:",optional"`
	Endpoint       string        `json:",optional"`
	AccessKey      string        `json:",optional"`
	SecretKey      string        `json:",optional"`
	ForcePathStyle bool          `json:",optional"`
	BaseDir        string        `json:",default=./data/uploads"`
	PublicBaseURL  string        `json:",optional"`
	SignedURLTTL   time.Duration `json:",default=168h"`
}

func FromEnv() Config {
	c := Config{
		Driver:        os.Getenv("STORAGE_DRIVER"),
		Bucket:        os.Getenv("STORAGE_BUCKET"),
		Region:        os.Getenv("STORAGE_REGION"),
		Endpoint:      os.Getenv("STORAGE_ENDPOINT"),
		AccessKey:     os.Getenv("STORAGE_ACCESS_KEY"),
		SecretKey:     os.Getenv("STORAGE_SECRET_KEY"),
		BaseDir:       os.Getenv("STORAGE_BASE_DIR"),
		PublicBaseURL: os.Getenv("STORAGE_PUBLIC_BASE_URL"),
	}
	if v := strings.ToLower(os.Getenv("STORAGE_FORCE_PATH_STYLE")); v == "true" || v == "1" || v == "yes" {
		c.ForcePathStyle = true
	}
	if v := os.Getenv("STORAGE_SIGNED_URL_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.SignedURLTTL = d
		}
	}
	return c
}

func Validate(c Config) error {
	switch strings.ToLower(c.Driver) {
	case "s3":
		if c.Bucket == "" {
			return errors.New("bucket required for s3 driver")
		}
	case "oss":
		if c.Bucket == "" || c.Endpoint == "" {
			return errors.New("bucket and endpoint required for oss driver")
		}
		if c.AccessKey == "" || c.SecretKey == "" {
			return errors.New("access_key/secret_key required for oss driver")
		}
	case "cos":
		if c.Bucket == "" {
			return errors.New("bucket required for cos driver")
		}
		if c.Region == "" && c.Endpoint == "" {
			return errors.New("region or endpoint required for cos driver")
		}
		if c.AccessKey == "" || c.SecretKey == "" {
			return errors.New("access_key/secret_key required for cos driver")
		}
	case "file":
		if c.BaseDir == "" {
			return errors.New("base_dir required for file driver")
		}
	case "":
		return errors.New("storage driver not set")
	default:
		return fmt.Errorf("unknown storage driver: %s", c.Driver)
	}
	return nil
}

// Open validates c and opens the configured driver.
func Open(ctx context.Context, c Config) (Store, error) {
	if err := Validate(c); err != nil {
		return nil, err
	}
	if c.SignedURLTTL <= 0 {
		c.SignedURLTTL = 7 * 24 * time.Hour
	}
	switch strings.ToLower(c.Driver) {
	case "s3":
		return openS3(ctx, c)
	case "oss":
		return openOSS(ctx, c)
	case "cos":
		return openCOS(ctx, c)
	default:
		fs, err := OpenFile(ctx, c)
		if err != nil {
			return nil, err
		}
		return fs, nil
	}
}

// publicURL joins a configured CDN/base URL with key, or returns "".
func publicURL(base, key string) string {
	if base == "" {
		return ""
	}
	return strings.TrimRight(base, "/") + "/" + (&url.URL{Path: key}).EscapedPath()
}

// sanitizeKey prevents path traversal.
func sanitizeKey(key string) string {
	key = filepath.ToSlash(key)
	key = strings.TrimLeft(key, "/")
	parts := strings.Split(key, "/")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" || p == "." || p == ".." {
			continue
		}
		out = append(out, p)
	}
	return strings.Join(out, "/")
}

// buildS3URL constructs a gocloud s3 URL with query params.
func buildS3URL(c Config) string {
	u := url.URL{Scheme: "s3", Host: c.Bucket}
	q := url.Values{}
	if c.Region != "" {
		q.Set("region", c.Region)
	}
	if c.Endpoint != "" {
		q.Set("endpoint", c.Endpoint)
	}
	if c.ForcePathStyle {
		q.Set("s3ForcePathStyle", "true")
	}
	u.RawQuery = q.Encode()
	return u.String()
}
