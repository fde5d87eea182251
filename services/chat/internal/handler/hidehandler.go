package handler

import (
	"net/http"

	"github.com/zeromicro/go-zero/rest/httpx"

	"github.com/cuihairu/cohortchat/services/chat/internal/logic"
	"github.com/cuihairu/cohortchat/services/chat/internal/svc"
	"github.com/cuihairu/cohortchat/services/chat/internal/types"
)

func HideHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.HideRequest
		if err := httpx.Parse(r, &req); err != nil {
			badRequest(w, r, err)
			return
		}
		l := logic.NewHideLogic(r.Context(), svcCtx)
		resp, err := l.Hide(&req)
		if err != nil {
			writeError(w, r, err)
		} else {
			httpx.OkJsonCtx(r.Context(), w, resp)
		}
	}
}
