package handler

import (
	"net/http"

	"github.com/zeromicro/go-zero/rest/httpx"

	"github.com/cuihairu/cohortchat/services/chat/internal/logic"
	"github.com/cuihairu/cohortchat/services/chat/internal/svc"
	"github.com/cuihairu/cohortchat/services/chat/internal/types"
)

func MarkReadHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.MarkReadRequest
		if err := httpx.Parse(r, &req); err != nil {
			badRequest(w, r, err)
			return
		}
		l := logic.NewMarkReadLogic(r.Context(), svcCtx)
		resp, err := l.MarkRead(&req)
		if err != nil {
			writeError(w, r, err)
		} else {
			httpx.OkJsonCtx(r.Context(), w, resp)
		}
	}
}
