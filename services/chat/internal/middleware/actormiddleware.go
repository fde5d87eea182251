package middleware

import (
	"net/http"

	"github.com/zeromicro/go-zero/rest/httpx"

	"github.com/cuihairu/cohortchat/internal/i18n"
	"github.com/cuihairu/cohortchat/services/chat/internal/svc"
)

// ActorMiddleware attaches the verified actor to the request context.
type ActorMiddleware struct {
	ctx *svc.ServiceContext
}

func NewActorMiddleware(ctx *svc.ServiceContext) *ActorMiddleware {
	return &ActorMiddleware{ctx: ctx}
}

func (m *ActorMiddleware) Handle(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := m.ctx.Authenticate(r)
		if !ok {
			httpx.WriteJsonCtx(r.Context(), w, http.StatusUnauthorized, map[string]string{
				"message": i18n.T(r.Header.Get("Accept-Language"), i18n.Unauthorized),
			})
			return
		}
		next(w, r.WithContext(svc.WithActor(r.Context(), actor)))
	}
}
