package logic

import (
	"context"

	"github.com/zeromicro/go-zero/core/logx"

	"github.com/cuihairu/cohortchat/internal/chat"
	"github.com/cuihairu/cohortchat/services/chat/internal/svc"
	"github.com/cuihairu/cohortchat/services/chat/internal/types"
)

type FetchLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewFetchLogic(ctx context.Context, svcCtx *svc.ServiceContext) *FetchLogic {
	return &FetchLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

func (l *FetchLogic) Fetch(req *types.FetchRequest) (*types.MessagesResponse, error) {
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
	msgs, err := l.svcCtx.Store.Fetch(l.ctx, key, typ, actor)
	if err != nil {
		return nil, err
	}
	if msgs == nil {
		msgs = []chat.Message{}
	}
	return &types.MessagesResponse{Messages: msgs}, nil
}
