package handler

import (
	"errors"
	"io/fs"
	"net/http"

	"github.com/zeromicro/go-zero/rest/httpx"

	"github.com/cuihairu/cohortchat/internal/chat"
	"github.com/cuihairu/cohortchat/services/chat/internal/svc"
	"github.com/cuihairu/cohortchat/services/chat/internal/types"
)

// UploadHandler serves images kept by the file storage driver. Image URLs
// end up in <img> tags, so the route is public; keys are unguessable.
func UploadHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.UploadRequest
		if err := httpx.Parse(r, &req); err != nil {
			badRequest(w, r, err)
			return
		}
		if svcCtx.Files == nil {
			writeError(w, r, chat.NotFoundf("uploads are not served by this instance"))
			return
		}
		f, err := svcCtx.Files.Open(req.Name)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				writeError(w, r, chat.NotFoundf("upload %s", req.Name))
			} else {
				writeError(w, r, err)
			}
			return
		}
		defer f.Close()
		info, err := f.Stat()
		if err != nil {
			writeError(w, r, err)
			return
		}
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		http.ServeContent(w, r, info.Name(), info.ModTime(), f)
	}
}
