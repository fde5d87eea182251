package logic

import (
	"context"

	"github.com/zeromicro/go-zero/core/logx"

	"github.com/cuihairu/cohortchat/services/chat/internal/svc"
	"github.com/cuihairu/cohortchat/services/chat/internal/types"
)

type UserRegisteredLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewUserRegisteredLogic(ctx context.Context, svcCtx *svc.ServiceContext) *UserRegisteredLogic {
	return &UserRegisteredLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

// UserRegistered sends the support welcome. Failures inside Welcome are
// logged there and never reach the caller.
func (l *UserRegisteredLogic) UserRegistered(req *types.UserRegisteredRequest) error {
	id, err := parseID("userId", req.UserId)
	if err != nil {
		return err
	}
	l.svcCtx.Store.Welcome(l.ctx, id)
	return nil
}
