package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/rest/httpx"

	"github.com/cuihairu/cohortchat/internal/i18n"
)

const HookTokenHeader = "X-Hook-Token"

// HookMiddleware guards lifecycle hooks called by the auth service. An
// empty token disables the hooks.
type HookMiddleware struct {
	token string
}

func NewHookMiddleware(token string) *HookMiddleware {
	return &HookMiddleware{token: token}
}

func (m *HookMiddleware) Handle(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		got := r.Header.Get(HookTokenHeader)
		if m.token == "" || subtle.ConstantTimeCompare([]byte(got), []byte(m.token)) != 1 {
			logx.WithContext(r.Context()).Infof("hook rejected: %s", r.URL.Path)
			httpx.WriteJsonCtx(r.Context(), w, http.StatusUnauthorized, map[string]string{
				"message": i18n.T(r.Header.Get("Accept-Language"), i18n.Unauthorized),
			})
			return
		}
		next(w, r)
	}
}
