package handler

import (
	"net/http"

	"github.com/zeromicro/go-zero/rest/httpx"

	"github.com/cuihairu/cohortchat/services/chat/internal/logic"
	"github.com/cuihairu/cohortchat/services/chat/internal/svc"
	"github.com/cuihairu/cohortchat/services/chat/internal/types"
)

func PurgeHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.PurgeRequest
		if err := httpx.Parse(r, &req); err != nil {
			badRequest(w, r, err)
			return
		}
		l := logic.NewPurgeLogic(r.Context(), svcCtx)
		resp, err := l.Purge(&req)
		if err != nil {
			writeError(w, r, err)
		} else {
			httpx.OkJsonCtx(r.Context(), w, resp)
		}
	}
}
