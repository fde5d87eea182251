package svc

import (
	"context"
	"net/http"
	"strings"

	"github.com/cuihairu/cohortchat/internal/chat"
)

type actorKey struct{}

func WithActor(ctx context.Context, a chat.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

func ActorFrom(ctx context.Context) (chat.Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(chat.Actor)
	return a, ok
}

// Authenticate verifies the bearer token of r. Browsers cannot set headers
// on websocket upgrades, so a token query parameter is accepted too.
func (s *ServiceContext) Authenticate(r *http.Request) (chat.Actor, bool) {
	tok := ""
	if authz := r.Header.Get("Authorization"); strings.HasPrefix(authz, "Bearer ") {
		tok = strings.TrimSpace(strings.TrimPrefix(authz, "Bearer "))
	}
	if tok == "" {
		tok = r.URL.Query().Get("token")
	}
	if tok == "" {
		return chat.Actor{}, false
	}
	a, err := s.Tokens.Verify(tok)
	if err != nil {
		return chat.Actor{}, false
	}
	return a, true
}
