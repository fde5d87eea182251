package logic

import (
	"context"

	"github.com/zeromicro/go-zero/core/logx"

	"github.com/cuihairu/cohortchat/internal/chat"
	"github.com/cuihairu/cohortchat/services/chat/internal/svc"
	"github.com/cuihairu/cohortchat/services/chat/internal/types"
)

type PurgeLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewPurgeLogic(ctx context.Context, svcCtx *svc.ServiceContext) *PurgeLogic {
	return &PurgeLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

// Purge removes a direct thread. Course history cannot be purged.
func (l *PurgeLogic) Purge(req *types.PurgeRequest) (*types.PurgeResponse, error) {
	actor, err := actorFrom(l.ctx)
	if err != nil {
		return nil, err
	}
	key, err := parseID("conversation id", req.Id)
	if err != nil {
		return nil, err
	}
	typ, err := chat.ParseConversationType(req.Type)
	if err != nil {
		return nil, err
	}
	if typ != chat.Direct {
		return nil, chat.Validationf("only direct conversations can be deleted")
	}
	n, err := l.svcCtx.Store.PurgeDirect(l.ctx, key, actor)
	if err != nil {
		return nil, err
	}
	return &types.PurgeResponse{Deleted: n}, nil
}
