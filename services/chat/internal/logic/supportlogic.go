package logic

import (
	"context"

	"github.com/zeromicro/go-zero/core/logx"

	"github.com/cuihairu/cohortchat/services/chat/internal/svc"
	"github.com/cuihairu/cohortchat/services/chat/internal/types"
)

type SupportLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewSupportLogic(ctx context.Context, svcCtx *svc.ServiceContext) *SupportLogic {
	return &SupportLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

func (l *SupportLogic) Support() (*types.SupportResponse, error) {
	actor, err := actorFrom(l.ctx)
	if err != nil {
		return nil, err
	}
	d, err := l.svcCtx.Store.SupportContact(l.ctx, actor)
	if err != nil {
		return nil, err
	}
	return &types.SupportResponse{Contact: d}, nil
}
