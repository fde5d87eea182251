package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"gorm.io/datatypes"

	"github.com/cuihairu/cohortchat/internal/chat"
	"github.com/cuihairu/cohortchat/internal/chat/msgtype"
	"github.com/cuihairu/cohortchat/internal/imaging"
	chatgorm "github.com/cuihairu/cohortchat/internal/repo/gorm/chat"
	"github.com/cuihairu/cohortchat/internal/security/rbac"
)

type SendInput struct {
	Actor     chat.Actor
	Key       uuid.UUID // partner id for direct, group or course id for group
	ConvType  chat.ConversationType
	Content   string
	MsgType   string
	Metadata  json.RawMessage
	ReplyToID *uuid.UUID
}

type ImageInput struct {
	Actor     chat.Actor
	Key       uuid.UUID
	ConvType  chat.ConversationType
	Data      []byte
	FileName  string
	ReplyToID *uuid.UUID
}

// Send validates and stores a text-like message, then broadcasts it. Image
// and schedule rows have their own entry points (SendImage, Schedule) and
// are refused here.
func (s *Store) Send(ctx context.Context, in SendInput) (*chat.Message, error) {
	typ, err := msgtype.Parse(in.MsgType)
	if err != nil {
		return nil, err
	}
	switch typ {
	case chat.TypeImage:
		return nil, chat.Validationf("images must be uploaded")
	case chat.TypeSchedule:
		return nil, chat.Validationf("schedule messages are created by scheduling a session")
	case chat.TypeAlert:
		if !s.policy.Can(string(in.Actor.Role), rbac.PermAlert) {
			return nil, chat.Forbiddenf("not allowed to send alerts")
		}
	}
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, chat.Validationf("content is required")
	}
	if err := msgtype.Validate(typ, in.Metadata); err != nil {
		return nil, err
	}
	rec, err := s.prepare(ctx, in.Actor, in.Key, in.ConvType, in.ReplyToID)
	if err != nil {
		return nil, err
	}
	rec.Content = content
	rec.Type = string(typ)
	if len(in.Metadata) > 0 {
		rec.Metadata = datatypes.JSON(in.Metadata)
	}
	return s.insert(ctx, rec, in.ConvType)
}

// SendImage re-encodes and uploads the image before inserting the message.
// Any failure aborts the send; an uploaded object whose insert fails is
// removed again.
func (s *Store) SendImage(ctx context.Context, in ImageInput) (*chat.Message, error) {
	if len(in.Data) == 0 {
		return nil, chat.Validationf("image is required")
	}
	rec, err := s.prepare(ctx, in.Actor, in.Key, in.ConvType, in.ReplyToID)
	if err != nil {
		return nil, err
	}
	res, err := imaging.Reencode(in.Data, s.cfg.Images)
	if err != nil {
		if errors.Is(err, imaging.ErrUnsupported) {
			return nil, chat.Validationf("%v", err)
		}
		return nil, chat.Upstream("re-encode image", err)
	}
	key := fmt.Sprintf("%s_%s_%s.jpg", s.cfg.ObjectPrefix, s.now().In(s.loc).Format("20060102"), uuid.NewString())
	if err := s.objects.Put(ctx, key, bytes.NewReader(res.Data), int64(len(res.Data)), res.MIME); err != nil {
		return nil, chat.Upstream("upload image", err)
	}
	url, err := s.objects.URL(ctx, key)
	if err != nil {
		s.discard(key)
		return nil, chat.Upstream("resolve image url", err)
	}
	meta, err := marshalMeta(map[string]any{
		"url":           url,
		"original_name": filepath.Base(in.FileName),
		"original_size": len(in.Data),
		"original_mime": res.OriginalMIME,
		"size":          len(res.Data),
		"mime":          res.MIME,
		"width":         res.Width,
		"height":        res.Height,
	})
	if err != nil {
		s.discard(key)
		return nil, chat.Upstream("encode metadata", err)
	}
	rec.Content = url
	rec.Type = string(chat.TypeImage)
	rec.Metadata = meta
	m, err := s.insert(ctx, rec, in.ConvType)
	if err != nil {
		s.discard(key)
		return nil, err
	}
	s.metrics.ImageStored(ctx, len(res.Data))
	return m, nil
}

func (s *Store) discard(key string) {
	if err := s.objects.Delete(context.Background(), key); err != nil {
		s.log.Warn("discard uploaded image", "key", key, "err", err)
	}
}

// prepare applies the rate limit and resolves sender, receiver and group
// scope for a send. The returned record has no content yet.
func (s *Store) prepare(ctx context.Context, actor chat.Actor, key uuid.UUID, conv chat.ConversationType, replyTo *uuid.UUID) (*chatgorm.MessageRecord, error) {
	ok, err := s.limiter.Allow(ctx, "send:"+actor.UserID.String())
	if err != nil {
		s.log.Warn("rate limiter unavailable, allowing send", "user", actor.UserID, "err", err)
	} else if !ok {
		return nil, fmt.Errorf("%w: too many messages", chat.ErrRateLimited)
	}
	if conv == chat.Group {
		return s.prepareGroup(ctx, actor, key, replyTo)
	}
	return s.prepareDirect(ctx, actor, key, replyTo)
}

func (s *Store) prepareDirect(ctx context.Context, actor chat.Actor, key uuid.UUID, replyTo *uuid.UUID) (*chatgorm.MessageRecord, error) {
	viewer := s.identity.QueryIdentities(actor.UserID, actor.Role)
	if key == actor.UserID || (actor.Role == chat.RoleOwner && s.identity.IsAlias(key)) {
		return nil, chat.Validationf("cannot message yourself")
	}
	receiverRole := chat.RoleOwner
	if !s.identity.IsAlias(key) {
		u, err := s.repo.GetUser(ctx, key)
		if err != nil {
			return nil, chat.Upstream("load receiver", err)
		}
		if u == nil {
			return nil, chat.NotFoundf("user %s", key)
		}
		receiverRole = chat.ParseRole(u.Role)
	}
	rec := &chatgorm.MessageRecord{
		SenderID:   s.identity.SendIdentity(actor.UserID, actor.Role, receiverRole),
		ReceiverID: &key,
	}
	if replyTo != nil {
		r, err := s.repo.GetMessage(ctx, *replyTo)
		if err != nil {
			return nil, chat.Upstream("load reply target", err)
		}
		partner := s.identity.Expand(key)
		if r != nil && r.ReceiverID != nil && inThread(*r, viewer, partner) {
			rec.ReplyToID = replyTo
		}
	}
	return rec, nil
}

func (s *Store) prepareGroup(ctx context.Context, actor chat.Actor, key uuid.UUID, replyTo *uuid.UUID) (*chatgorm.MessageRecord, error) {
	target, err := s.routing.ResolveKey(ctx, key)
	if err != nil {
		return nil, err
	}
	scope, err := s.routing.Visibility(ctx, actor.UserID, actor.Role, target.CourseID)
	if err != nil {
		return nil, err
	}
	explicit := target.GroupID
	if explicit != nil && !scope.Allows(explicit) {
		explicit = nil
	}
	if replyTo != nil {
		r, err := s.repo.GetMessage(ctx, *replyTo)
		if err != nil {
			return nil, chat.Upstream("load reply target", err)
		}
		if r == nil || r.CourseID == nil || *r.CourseID != target.CourseID || !scope.Allows(r.GroupID) {
			replyTo = nil
		}
	}
	groupID, err := s.routing.ResolveGroupID(ctx, actor.UserID, target.CourseID, replyTo, explicit)
	if err != nil {
		return nil, err
	}
	course := target.CourseID
	return &chatgorm.MessageRecord{
		SenderID:  actor.UserID,
		CourseID:  &course,
		GroupID:   groupID,
		ReplyToID: replyTo,
	}, nil
}

// inThread reports whether a direct row was exchanged between the two
// identity sets.
func inThread(r chatgorm.MessageRecord, a, b []uuid.UUID) bool {
	if r.ReceiverID == nil {
		return false
	}
	return (lo.Contains(a, r.SenderID) && lo.Contains(b, *r.ReceiverID)) ||
		(lo.Contains(b, r.SenderID) && lo.Contains(a, *r.ReceiverID))
}
