package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/zeromicro/go-zero/rest/httpx"

	"github.com/cuihairu/cohortchat/internal/i18n"
	"github.com/cuihairu/cohortchat/services/chat/internal/logic"
	"github.com/cuihairu/cohortchat/services/chat/internal/svc"
	"github.com/cuihairu/cohortchat/services/chat/internal/types"
)

const imageField = "image"

func SendImageHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := svcCtx.Config.Uploads.MaxBytes
		r.Body = http.MaxBytesReader(w, r.Body, limit)
		var req types.ImageRequest
		if err := httpx.Parse(r, &req); err != nil {
			if tooLarge(err) {
				writeTooLarge(w, r)
				return
			}
			badRequest(w, r, err)
			return
		}
		file, header, err := r.FormFile(imageField)
		if err != nil {
			badRequest(w, r, errors.New("missing image"))
			return
		}
		defer file.Close()
		data, err := io.ReadAll(io.LimitReader(file, limit+1))
		if err != nil {
			badRequest(w, r, err)
			return
		}
		if int64(len(data)) > limit {
			writeTooLarge(w, r)
			return
		}
		l := logic.NewSendImageLogic(r.Context(), svcCtx)
		resp, err := l.SendImage(&req, data, header.Filename)
		if err != nil {
			writeError(w, r, err)
		} else {
			httpx.OkJsonCtx(r.Context(), w, resp)
		}
	}
}

func tooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}

func writeTooLarge(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJsonCtx(r.Context(), w, http.StatusRequestEntityTooLarge, map[string]string{
		"message": i18n.T(r.Header.Get("Accept-Language"), i18n.TooLarge),
	})
}
