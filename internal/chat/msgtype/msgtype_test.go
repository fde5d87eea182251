package msgtype

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cuihairu/cohortchat/internal/chat"
)

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		typ  chat.MessageType
		meta string
		ok   bool
	}{
		{"text any object", chat.TypeText, `{"x":1}`, true},
		{"text empty", chat.TypeText, ``, true},
		{"image ok", chat.TypeImage, `{"url":"https://cdn/x.jpg","mime":"image/jpeg","size":10,"original_name":"a.png"}`, true},
		{"image missing url", chat.TypeImage, `{"mime":"image/jpeg"}`, false},
		{"image wrong mime", chat.TypeImage, `{"url":"u","mime":"text/plain"}`, false},
		{"schedule ok", chat.TypeSchedule, `{"session_id":"s","title":"t","date":"2025-03-01","time":"18:00","scheduled_at":"2025-03-01T18:00:00Z"}`, true},
		{"schedule bad date", chat.TypeSchedule, `{"session_id":"s","title":"t","date":"03/01","time":"18:00","scheduled_at":"x"}`, false},
		{"sticker missing id", chat.TypeSticker, `{}`, false},
		{"alert level", chat.TypeAlert, `{"level":"warning"}`, true},
		{"alert unknown level", chat.TypeAlert, `{"level":"meh"}`, false},
		{"text array", chat.TypeText, `[1]`, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.typ, []byte(tc.meta))
			if tc.ok {
				require.NoError(t, err)
				return
			}
			require.True(t, errors.Is(err, chat.ErrValidation), "got %v", err)
		})
	}
}

func TestParse(t *testing.T) {
	typ, err := Parse("")
	require.NoError(t, err)
	require.Equal(t, chat.TypeText, typ)
	typ, err = Parse("Image")
	require.NoError(t, err)
	require.Equal(t, chat.TypeImage, typ)
	_, err = Parse("video")
	require.True(t, errors.Is(err, chat.ErrValidation))
}

func TestLegacy(t *testing.T) {
	require.Equal(t, chat.TypeImage, Legacy("https://cdn.example.com/a/b.JPG"))
	require.Equal(t, chat.TypeImage, Legacy("https://cdn.example.com/a.webp?x=1"))
	require.Equal(t, chat.TypeImage, Legacy("/uploads/chat_20250101_x.jpg"))
	require.Equal(t, chat.TypeText, Legacy("look at https://cdn.example.com/a.png please"))
	require.Equal(t, chat.TypeText, Legacy("hello"))
	require.Equal(t, chat.TypeSticker, Resolve("sticker", "https://x/y.png"))
	require.Equal(t, chat.TypeImage, Resolve("", "https://x/y.png"))
}
