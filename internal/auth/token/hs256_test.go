package token

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/cuihairu/cohortchat/internal/chat"
)

func TestSignVerify(t *testing.T) {
	m := NewManager("s3cret", "auth")
	want := chat.Actor{UserID: uuid.New(), Role: chat.RoleSpecialist}
	tok, err := m.Sign(want, time.Minute)
	require.NoError(t, err)

	got, err := m.Verify(tok)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestVerifyRejects(t *testing.T) {
	m := NewManager("s3cret", "auth")
	actor := chat.Actor{UserID: uuid.New(), Role: chat.RoleUser}

	expired, err := m.Sign(actor, -time.Minute)
	require.NoError(t, err)
	_, err = m.Verify(expired)
	require.ErrorIs(t, err, ErrInvalid)

	foreign, err := NewManager("other", "auth").Sign(actor, time.Minute)
	require.NoError(t, err)
	_, err = m.Verify(foreign)
	require.ErrorIs(t, err, ErrInvalid)

	wrongIssuer, err := NewManager("s3cret", "elsewhere").Sign(actor, time.Minute)
	require.NoError(t, err)
	_, err = m.Verify(wrongIssuer)
	require.ErrorIs(t, err, ErrInvalid)

	_, err = m.Verify("not.a.token")
	require.ErrorIs(t, err, ErrInvalid)
}
