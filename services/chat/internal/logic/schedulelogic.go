package logic

import (
	"context"

	"github.com/zeromicro/go-zero/core/logx"

	"github.com/cuihairu/cohortchat/internal/chat/store"
	"github.com/cuihairu/cohortchat/services/chat/internal/svc"
	"github.com/cuihairu/cohortchat/services/chat/internal/types"
)

type ScheduleLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewScheduleLogic(ctx context.Context, svcCtx *svc.ServiceContext) *ScheduleLogic {
	return &ScheduleLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

func (l *ScheduleLogic) Schedule(req *types.ScheduleRequest) (*types.MessageResponse, error) {
	actor, err := actorFrom(l.ctx)
	if err != nil {
		return nil, err
	}
	key, err := parseID("course id", req.Id)
	if err != nil {
		return nil, err
	}
	m, err := l.svcCtx.Store.Schedule(l.ctx, key, actor, store.ScheduleInput{
		Date:  req.Date,
		Time:  req.Time,
		Title: req.Title,
	})
	if err != nil {
		return nil, err
	}
	return &types.MessageResponse{Message: m}, nil
}
