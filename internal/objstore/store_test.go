package objstore

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSanitizeKey(t *testing.T) {
	require.Equal(t, "a/b.jpg", sanitizeKey("/../a/./b.jpg"))
	require.Equal(t, "x", sanitizeKey("../../x"))
}

func TestValidate(t *testing.T) {
	require.Error(t, Validate(Config{}))
	require.Error(t, Validate(Config{Driver: "oss", Bucket: "b"}))
	require.Error(t, Validate(Config{Driver: "ftp"}))
	require.NoError(t, Validate(Config{Driver: "s3", Bucket: "b"}))
}

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	st, err := Open(ctx, Config{Driver: "file", BaseDir: t.TempDir()})
	require.NoError(t, err)

	require.NoError(t, st.Put(ctx, "chat_1.jpg", bytes.NewReader([]byte("jpeg")), 4, "image/jpeg"))
	u, err := st.URL(ctx, "chat_1.jpg")
	require.NoError(t, err)
	require.Equal(t, "/uploads/chat_1.jpg", u)

	f, err := st.(*FileStore).Open("chat_1.jpg")
	require.NoError(t, err)
	data, err := io.ReadAll(f)
	require.NoError(t, f.Close())
	require.NoError(t, err)
	require.Equal(t, "jpeg", string(data))

	require.NoError(t, st.Delete(ctx, "chat_1.jpg"))
	_, err = st.(*FileStore).Open("chat_1.jpg")
	require.Error(t, err)
}

func TestPublicBaseURL(t *testing.T) {
	ctx := context.Background()
	st, err := Open(ctx, Config{Driver: "file", BaseDir: t.TempDir(), PublicBaseURL: "https://cdn.example.com/"})
	require.NoError(t, err)
	u, err := st.URL(ctx, "a b.jpg")
	require.NoError(t, err)
	require.Equal(t, "https://cdn.example.com/a%20b.jpg", u)
}
