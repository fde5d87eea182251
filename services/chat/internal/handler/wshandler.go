package handler

import (
	"net/http"

	"github.com/cuihairu/cohortchat/services/chat/internal/logic"
	"github.com/cuihairu/cohortchat/services/chat/internal/svc"
)

// WebSocketHandler upgrades an authenticated request; the actor middleware
// has already accepted the token query parameter.
func WebSocketHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := svc.ActorFrom(r.Context())
		if !ok {
			writeError(w, r, logic.ErrUnauthenticated)
			return
		}
		svcCtx.WS.Serve(w, r, actor)
	}
}
