package handler

import (
	"net/http"

	"github.com/zeromicro/go-zero/rest"

	"github.com/cuihairu/cohortchat/services/chat/internal/middleware"
	"github.com/cuihairu/cohortchat/services/chat/internal/svc"
)

func RegisterHandlers(server *rest.Server, serverCtx *svc.ServiceContext) {
	actor := middleware.NewActorMiddleware(serverCtx)
	hook := middleware.NewHookMiddleware(serverCtx.Config.Auth.HookToken)

	server.AddRoutes(
		rest.WithMiddlewares(
			[]rest.Middleware{actor.Handle},
			[]rest.Route{
				{
					Method:  http.MethodGet,
					Path:    "/conversations",
					Handler: ListConversationsHandler(serverCtx),
				},
				{
					Method:  http.MethodGet,
					Path:    "/unread-count",
					Handler: UnreadCountHandler(serverCtx),
				},
				{
					Method:  http.MethodPut,
					Path:    "/mark-read/:id",
					Handler: MarkReadHandler(serverCtx),
				},
				{
					Method:  http.MethodPost,
					Path:    "/support",
					Handler: SupportHandler(serverCtx),
				},
				{
					Method:  http.MethodGet,
					Path:    "/ws",
					Handler: WebSocketHandler(serverCtx),
				},
				{
					Method:  http.MethodGet,
					Path:    "/:id",
					Handler: FetchHandler(serverCtx),
				},
				{
					Method:  http.MethodPost,
					Path:    "/:id",
					Handler: SendHandler(serverCtx),
				},
				{
					Method:  http.MethodPost,
					Path:    "/:id/image",
					Handler: SendImageHandler(serverCtx),
				},
				{
					Method:  http.MethodPost,
					Path:    "/:id/schedule",
					Handler: ScheduleHandler(serverCtx),
				},
				{
					Method:  http.MethodDelete,
					Path:    "/conversations/:id",
					Handler: PurgeHandler(serverCtx),
				},
				{
					Method:  http.MethodPut,
					Path:    "/:id/hide",
					Handler: HideHandler(serverCtx),
				},
			}...,
		),
		rest.WithPrefix("/api/messages"),
	)

	server.AddRoutes(
		rest.WithMiddlewares(
			[]rest.Middleware{hook.Handle},
			rest.Route{
				Method:  http.MethodPost,
				Path:    "/hooks/user-registered",
				Handler: UserRegisteredHandler(serverCtx),
			},
		),
		rest.WithPrefix("/api/messages"),
	)

	server.AddRoutes(
		[]rest.Route{
			{
				Method:  http.MethodGet,
				Path:    "/uploads/:name",
				Handler: UploadHandler(serverCtx),
			},
		},
	)
}
