package handler

import (
	"errors"
	"net/http"

	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/rest/httpx"

	"github.com/cuihairu/cohortchat/internal/chat"
	"github.com/cuihairu/cohortchat/internal/i18n"
	"github.com/cuihairu/cohortchat/services/chat/internal/logic"
)

// writeError maps the chat error taxonomy to a status and a localized
// message. Validation details are safe to return; anything else is logged
// and replaced by a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	lang := r.Header.Get("Accept-Language")
	body := func(key i18n.Key) map[string]string {
		return map[string]string{"message": i18n.T(lang, key)}
	}
	switch {
	case errors.Is(err, logic.ErrUnauthenticated):
		httpx.WriteJsonCtx(ctx, w, http.StatusUnauthorized, body(i18n.Unauthorized))
	case errors.Is(err, chat.ErrValidation):
		b := body(i18n.InvalidRequest)
		b["detail"] = err.Error()
		httpx.WriteJsonCtx(ctx, w, http.StatusBadRequest, b)
	case errors.Is(err, chat.ErrForbidden):
		httpx.WriteJsonCtx(ctx, w, http.StatusForbidden, body(i18n.Forbidden))
	case errors.Is(err, chat.ErrNotFound):
		httpx.WriteJsonCtx(ctx, w, http.StatusNotFound, body(i18n.NotFound))
	case errors.Is(err, chat.ErrRateLimited):
		httpx.WriteJsonCtx(ctx, w, http.StatusTooManyRequests, body(i18n.RateLimited))
	default:
		logx.WithContext(ctx).Errorf("%s %s: %v", r.Method, r.URL.Path, err)
		httpx.WriteJsonCtx(ctx, w, http.StatusInternalServerError, body(i18n.Internal))
	}
}

// badRequest reports a request that could not be parsed.
func badRequest(w http.ResponseWriter, r *http.Request, err error) {
	writeError(w, r, chat.Validationf("%v", err))
}
