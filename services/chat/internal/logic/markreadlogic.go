package logic

import (
	"context"

	"github.com/zeromicro/go-zero/core/logx"

	"github.com/cuihairu/cohortchat/internal/chat"
	"github.com/cuihairu/cohortchat/services/chat/internal/svc"
	"github.com/cuihairu/cohortchat/services/chat/internal/types"
)

type MarkReadLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewMarkReadLogic(ctx context.Context, svcCtx *svc.ServiceContext) *MarkReadLogic {
	return &MarkReadLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

func (l *MarkReadLogic) MarkRead(req *types.MarkReadRequest) (*types.MarkReadResponse, error) {
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
	n, err := l.svcCtx.Reads.MarkRead(l.ctx, key, typ, actor)
	if err != nil {
		return nil, err
	}
	return &types.MarkReadResponse{Updated: n}, nil
}
