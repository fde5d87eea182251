package objstore

import (
	"context"
	"io"
	"time"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/s3blob"
)

type s3Store struct {
	bk     *blob.Bucket
	ttl    time.Duration
	public string
}

func openS3(ctx context.Context, c Config) (Store, error) {
	bk, err := blob.OpenBucket(ctx, buildS3URL(c))
	if err != nil {
		return nil, err
	}
	return &s3Store{bk: bk, ttl: c.SignedURLTTL, public: c.PublicBaseURL}, nil
}

func (s *s3Store) Put(ctx context.Context, key string, r io.ReadSeeker, _ int64, contentType string) error {
	key = sanitizeKey(key)
	w, err := s.bk.NewWriter(ctx, key, &blob.WriterOptions{ContentType: contentType})
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

func (s *s3Store) URL(ctx context.Context, key string) (string, error) {
	key = sanitizeKey(key)
	if u := publicURL(s.public, key); u != "" {
		return u, nil
	}
	return s.bk.SignedURL(ctx, key, &blob.SignedURLOptions{Method: "GET", Expiry: s.ttl})
}

func (s *s3Store) Delete(ctx context.Context, key string) error {
	return s.bk.Delete(ctx, sanitizeKey(key))
}
