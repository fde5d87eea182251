package logic

import (
	"context"
	"encoding/json"

	"github.com/zeromicro/go-zero/core/logx"

	"github.com/cuihairu/cohortchat/internal/chat"
	"github.com/cuihairu/cohortchat/internal/chat/store"
	"github.com/cuihairu/cohortchat/services/chat/internal/svc"
	"github.com/cuihairu/cohortchat/services/chat/internal/types"
)

type SendLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewSendLogic(ctx context.Context, svcCtx *svc.ServiceContext) *SendLogic {
	return &SendLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

func (l *SendLogic) Send(req *types.SendRequest) (*types.MessageResponse, error) {
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
	var meta json.RawMessage
	if len(req.Metadata) > 0 {
		if meta, err = json.Marshal(req.Metadata); err != nil {
			return nil, chat.Validationf("invalid metadata")
		}
	}
	m, err := l.svcCtx.Store.Send(l.ctx, store.SendInput{
		Actor:     actor,
		Key:       key,
		ConvType:  conv,
		Content:   req.Content,
		MsgType:   req.MsgType,
		Metadata:  meta,
		ReplyToID: replyTo,
	})
	if err != nil {
		return nil, err
	}
	return &types.MessageResponse{Message: m}, nil
}
