package logic

import (
	"context"

	"github.com/zeromicro/go-zero/core/logx"

	"github.com/cuihairu/cohortchat/internal/chat"
	"github.com/cuihairu/cohortchat/internal/chat/store"
	"github.com/cuihairu/cohortchat/services/chat/internal/svc"
	"github.com/cuihairu/cohortchat/services/chat/internal/types"
)

type SendImageLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewSendImageLogic(ctx context.Context, svcCtx *svc.ServiceContext) *SendImageLogic {
	return &SendImageLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

func (l *SendImageLogic) SendImage(req *types.ImageRequest, data []byte, fileName string) (*types.MessageResponse, error) {
	actor, err := actorFrom(l.ctx)
	if err != nil {
		return nil, err
	}
	key, err := parseID("conversation id", req.Id)
	if err != nil {
		return nil, err
	}
	conv, err := chat.ParseConversationType(req.Type)
	if err != nil {
		return nil, err
	}
	replyTo, err := parseOptionalID("replyToId", req.ReplyToId)
	if err != nil {
		return nil, err
	}
	m, err := l.svcCtx.Store.SendImage(l.ctx, store.ImageInput{
		Actor:     actor,
		Key:       key,
		ConvType:  conv,
		Data:      data,
		FileName:  fileName,
		ReplyToID: replyTo,
	})
	if err != nil {
		return nil, err
	}
	l.Infof("image message %s stored for %s", m.ID, actor.UserID)
	return &types.MessageResponse{Message: m}, nil
}
