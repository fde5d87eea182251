package logic

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/cuihairu/cohortchat/internal/chat"
	"github.com/cuihairu/cohortchat/services/chat/internal/svc"
)

var ErrUnauthenticated = errors.New("unauthenticated")

func actorFrom(ctx context.Context) (chat.Actor, error) {
	a, ok := svc.ActorFrom(ctx)
	if !ok {
		return chat.Actor{}, ErrUnauthenticated
	}
	return a, nil
}

func parseID(name, s string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return uuid.Nil, chat.Validationf("invalid %s", name)
	}
	return id, nil
}

func parseOptionalID(name, s string) (*uuid.UUID, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	id, err := parseID(name, s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
