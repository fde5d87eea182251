package logic

import (
	"context"

	"github.com/zeromicro/go-zero/core/logx"

	"github.com/cuihairu/cohortchat/services/chat/internal/svc"
	"github.com/cuihairu/cohortchat/services/chat/internal/types"
)

type HideLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewHideLogic(ctx context.Context, svcCtx *svc.ServiceContext) *HideLogic {
	return &HideLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

func (l *HideLogic) Hide(req *types.HideRequest) (*types.MessageResponse, error) {
	actor, err := actorFrom(l.ctx)
	if err != nil {
		return nil, err
	}
	id, err := parseID("message id", req.Id)
	if err != nil {
		return nil, err
	}
	m, err := l.svcCtx.Store.SetHidden(l.ctx, id, req.Hidden, actor)
	if err != nil {
		return nil, err
	}
	l.Infof("message %s hidden=%v by %s", id, req.Hidden, actor.UserID)
	return &types.MessageResponse{Message: m}, nil
}
