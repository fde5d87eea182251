package store_test

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/cuihairu/cohortchat/internal/chat"
	"github.com/cuihairu/cohortchat/internal/chat/chattest"
	"github.com/cuihairu/cohortchat/internal/chat/conversations"
	"github.com/cuihairu/cohortchat/internal/chat/identity"
	"github.com/cuihairu/cohortchat/internal/chat/readstate"
	"github.com/cuihairu/cohortchat/internal/chat/routing"
	"github.com/cuihairu/cohortchat/internal/chat/store"
	"github.com/cuihairu/cohortchat/internal/objstore"
	"github.com/cuihairu/cohortchat/internal/ratelimit"
	"github.com/cuihairu/cohortchat/internal/security/rbac"
)

type recorder struct {
	mu    sync.Mutex
	sent  []chat.Message
	about []string
}

func (r *recorder) EmitMessage(m chat.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, m)
}

func (r *recorder) EmitAbout(_ chat.Message, typ string, _ any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.about = append(r.about, typ)
}

func (r *recorder) Emit(_ []string, typ string, _ any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.about = append(r.about, typ)
}

type env struct {
	*chattest.Fixture
	id     *identity.Resolver
	store  *store.Store
	reads  *readstate.Tracker
	rec    *recorder
	files  *objstore.FileStore
	owner  uuid.UUID
	system uuid.UUID
}

func newEnv(t *testing.T, limiter ratelimit.Limiter) *env {
	t.Helper()
	f := chattest.NewFixture(t)
	owner := f.User("boss", "owner")
	system := f.User("system", "owner")
	id, err := identity.New(identity.Config{OwnerID: owner.String(), SystemID: system.String(), SupportName: "Support"})
	require.NoError(t, err)
	policy, err := rbac.New(rbac.Config{}, nil)
	require.NoError(t, err)
	files, err := objstore.OpenFile(context.Background(), objstore.Config{BaseDir: t.TempDir()})
	require.NoError(t, err)

	rec := &recorder{}
	rt := routing.New(f.Repo)
	reads := readstate.New(f.Repo, id, rt, policy, rec, nil, nil)
	s, err := store.New(store.Deps{
		Repo:     f.Repo,
		Identity: id,
		Routing:  rt,
		Limiter:  limiter,
		Emitter:  rec,
		Objects:  files,
		Policy:   policy,
		Reads:    reads,
	}, store.Config{Timezone: "UTC", WelcomeText: "Welcome aboard", Welcome: true})
	require.NoError(t, err)
	return &env{Fixture: f, id: id, store: s, reads: reads, rec: rec, files: files, owner: owner, system: system}
}

func actor(id uuid.UUID, role chat.Role) chat.Actor { return chat.Actor{UserID: id, Role: role} }

func (e *env) send(t *testing.T, from chat.Actor, key uuid.UUID, conv chat.ConversationType, content string) *chat.Message {
	t.Helper()
	m, err := e.store.Send(context.Background(), store.SendInput{Actor: from, Key: key, ConvType: conv, Content: content})
	require.NoError(t, err)
	return m
}

func TestOwnerSendsAsSystemToPlainUsers(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	student := e.User("stu", "user")
	spec := e.User("spec", "specialist")
	own := actor(e.owner, chat.RoleOwner)

	m := e.send(t, own, student, chat.Direct, "hello")
	require.Equal(t, e.system, m.SenderID)
	require.Equal(t, student, *m.ReceiverID)

	m = e.send(t, own, spec, chat.Direct, "hi colleague")
	require.Equal(t, e.owner, m.SenderID)

	// the student reads the thread through the support key
	got, err := e.store.Fetch(ctx, e.system, chat.Direct, actor(student, chat.RoleUser))
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "hello", got[0].Content)

	reply := e.send(t, actor(student, chat.RoleUser), e.system, chat.Direct, "thanks")
	got, err = e.store.Fetch(ctx, student, chat.Direct, own)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, reply.ID, got[1].ID)
	require.Len(t, e.rec.sent, 3)
}

func TestSendValidation(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	u := e.User("u", "user")
	me := actor(u, chat.RoleUser)

	_, err := e.store.Send(ctx, store.SendInput{Actor: me, Key: e.owner, Content: "   "})
	require.ErrorIs(t, err, chat.ErrValidation)

	_, err = e.store.Send(ctx, store.SendInput{Actor: me, Key: uuid.New(), Content: "x"})
	require.ErrorIs(t, err, chat.ErrNotFound)

	_, err = e.store.Send(ctx, store.SendInput{Actor: me, Key: u, Content: "x"})
	require.ErrorIs(t, err, chat.ErrValidation)

	_, err = e.store.Send(ctx, store.SendInput{Actor: me, Key: e.owner, Content: "x", MsgType: "poll"})
	require.ErrorIs(t, err, chat.ErrValidation)

	_, err = e.store.Send(ctx, store.SendInput{Actor: me, Key: e.owner, Content: "x", MsgType: "sticker", Metadata: json.RawMessage(`{}`)})
	require.ErrorIs(t, err, chat.ErrValidation)

	m, err := e.store.Send(ctx, store.SendInput{Actor: me, Key: e.owner, Content: ":wave:", MsgType: "sticker",
		Metadata: json.RawMessage(`{"sticker_id":"wave"}`)})
	require.NoError(t, err)
	require.Equal(t, chat.TypeSticker, m.Type)
}

func TestSendRefusesTypesWithDedicatedPaths(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	spec := e.User("spec", "specialist")
	course := e.Course("Go 101", &spec)
	stu := e.User("stu", "user")
	e.Enroll(stu, course, nil)
	me := actor(stu, chat.RoleUser)

	_, err := e.store.Schedule(ctx, course, me, store.ScheduleInput{Date: "2030-01-02", Time: "18:00", Title: "Q&A"})
	require.ErrorIs(t, err, chat.ErrForbidden)

	_, err = e.store.Send(ctx, store.SendInput{Actor: me, Key: course, ConvType: chat.Group, Content: "Q&A", MsgType: "schedule",
		Metadata: json.RawMessage(`{"session_id":"fake","date":"2030-01-02","time":"18:00","title":"Q&A"}`)})
	require.ErrorIs(t, err, chat.ErrValidation)

	_, err = e.store.Send(ctx, store.SendInput{Actor: me, Key: e.owner, MsgType: "image",
		Metadata: json.RawMessage(`{"url":"https://evil.example/none.jpg","mime":"image/jpeg"}`)})
	require.ErrorIs(t, err, chat.ErrValidation)
	_, err = e.store.Send(ctx, store.SendInput{Actor: me, Key: e.owner, Content: "https://evil.example/none.jpg", MsgType: "image",
		Metadata: json.RawMessage(`{"url":"https://evil.example/none.jpg","mime":"image/jpeg"}`)})
	require.ErrorIs(t, err, chat.ErrValidation)

	alert := json.RawMessage(`{"level":"warning"}`)
	_, err = e.store.Send(ctx, store.SendInput{Actor: me, Key: course, ConvType: chat.Group, Content: "fire drill", MsgType: "alert", Metadata: alert})
	require.ErrorIs(t, err, chat.ErrForbidden)
	m, err := e.store.Send(ctx, store.SendInput{Actor: actor(spec, chat.RoleSpecialist), Key: course, ConvType: chat.Group, Content: "fire drill", MsgType: "alert", Metadata: alert})
	require.NoError(t, err)
	require.Equal(t, chat.TypeAlert, m.Type)

	msgs, err := e.store.Fetch(ctx, course, chat.Group, me)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, chat.TypeAlert, msgs[0].Type)
}

func TestSendRateLimited(t *testing.T) {
	e := newEnv(t, ratelimit.NewMemory(2, time.Minute))
	u := actor(e.User("u", "user"), chat.RoleUser)
	e.send(t, u, e.owner, chat.Direct, "1")
	e.send(t, u, e.owner, chat.Direct, "2")
	_, err := e.store.Send(context.Background(), store.SendInput{Actor: u, Key: e.owner, Content: "3"})
	require.ErrorIs(t, err, chat.ErrRateLimited)

	// limits are per sender
	other := actor(e.User("o", "user"), chat.RoleUser)
	e.send(t, other, e.owner, chat.Direct, "1")
}

func TestGroupRoutingAndIsolation(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	specialist := e.User("spec", "specialist")
	course := e.Course("go", &specialist)
	g1 := e.Group(course, "g1", nil)
	g2 := e.Group(course, "g2", nil)
	s1 := e.User("s1", "user")
	s2 := e.User("s2", "user")
	pending := e.User("pending", "user")
	e.Enroll(s1, course, &g1)
	e.Enroll(s2, course, &g2)
	e.Enroll(pending, course, nil)

	m := e.send(t, actor(s1, chat.RoleUser), course, chat.Group, "from g1")
	require.Equal(t, g1, *m.GroupID)

	// a student cannot post into another group by addressing it
	m = e.send(t, actor(s2, chat.RoleUser), g1, chat.Group, "from g2")
	require.Equal(t, g2, *m.GroupID)

	wide := e.send(t, actor(specialist, chat.RoleSpecialist), course, chat.Group, "everyone")
	require.Nil(t, wide.GroupID)
	targeted := e.send(t, actor(specialist, chat.RoleSpecialist), g2, chat.Group, "g2 only")
	require.Equal(t, g2, *targeted.GroupID)

	got, err := e.store.Fetch(ctx, course, chat.Group, actor(s2, chat.RoleUser))
	require.NoError(t, err)
	for _, m := range got {
		require.True(t, m.GroupID == nil || *m.GroupID == g2, "s2 saw %q", m.Content)
	}
	require.Len(t, got, 3)

	got, err = e.store.Fetch(ctx, course, chat.Group, actor(pending, chat.RoleUser))
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "everyone", got[0].Content)

	got, err = e.store.Fetch(ctx, course, chat.Group, actor(specialist, chat.RoleSpecialist))
	require.NoError(t, err)
	require.Len(t, got, 4)

	got, err = e.store.Fetch(ctx, g1, chat.Group, actor(specialist, chat.RoleSpecialist))
	require.NoError(t, err)
	require.Len(t, got, 2)

	outsider := e.User("out", "user")
	_, err = e.store.Fetch(ctx, course, chat.Group, actor(outsider, chat.RoleUser))
	require.ErrorIs(t, err, chat.ErrForbidden)
	_, err = e.store.Send(ctx, store.SendInput{Actor: actor(outsider, chat.RoleUser), Key: course, ConvType: chat.Group, Content: "x"})
	require.ErrorIs(t, err, chat.ErrForbidden)
	_, err = e.store.Fetch(ctx, uuid.New(), chat.Group, actor(specialist, chat.RoleSpecialist))
	require.ErrorIs(t, err, chat.ErrNotFound)
}

func TestReplyRoutingAndPreview(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	specialist := e.User("spec", "specialist")
	course := e.Course("go", &specialist)
	g1 := e.Group(course, "g1", nil)
	s1 := e.User("s1", "user")
	e.Enroll(s1, course, &g1)
	stu := actor(s1, chat.RoleUser)
	sp := actor(specialist, chat.RoleSpecialist)

	q := e.send(t, stu, course, chat.Group, "question")
	answer, err := e.store.Send(ctx, store.SendInput{Actor: sp, Key: course, ConvType: chat.Group, Content: "answer", ReplyToID: &q.ID})
	require.NoError(t, err)
	require.Equal(t, g1, *answer.GroupID, "reply inherits the replied group")
	require.Equal(t, q.ID, *answer.ReplyToID)

	missing := uuid.New()
	orphan, err := e.store.Send(ctx, store.SendInput{Actor: sp, Key: course, ConvType: chat.Group, Content: "orphan", ReplyToID: &missing})
	require.NoError(t, err)
	require.Nil(t, orphan.ReplyToID)
	require.Nil(t, orphan.GroupID)

	got, err := e.store.Fetch(ctx, course, chat.Group, stu)
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.NotNil(t, got[1].Reply)
	require.Equal(t, "question", got[1].Reply.Content)

	_, err = e.store.SetHidden(ctx, q.ID, true, sp)
	require.NoError(t, err)
	got, err = e.store.Fetch(ctx, course, chat.Group, stu)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "answer", got[0].Content)
	require.Nil(t, got[0].Reply, "hidden target has no preview for students")

	got, err = e.store.Fetch(ctx, course, chat.Group, sp)
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.NotNil(t, got[1].Reply)
}

func TestSetHidden(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	u := e.User("u", "user")
	m := e.send(t, actor(u, chat.RoleUser), e.owner, chat.Direct, "spam")

	_, err := e.store.SetHidden(ctx, m.ID, true, actor(u, chat.RoleUser))
	require.ErrorIs(t, err, chat.ErrForbidden)
	_, err = e.store.SetHidden(ctx, m.ID, true, actor(e.User("a", "admin"), chat.RoleAdmin))
	require.ErrorIs(t, err, chat.ErrForbidden)
	_, err = e.store.SetHidden(ctx, uuid.New(), true, actor(e.owner, chat.RoleOwner))
	require.ErrorIs(t, err, chat.ErrNotFound)

	hidden, err := e.store.SetHidden(ctx, m.ID, true, actor(e.owner, chat.RoleOwner))
	require.NoError(t, err)
	require.True(t, hidden.Hidden)
	require.Contains(t, e.rec.about, "message:hidden")

	got, err := e.store.Fetch(ctx, e.system, chat.Direct, actor(u, chat.RoleUser))
	require.NoError(t, err)
	require.Empty(t, got)
	got, err = e.store.Fetch(ctx, u, chat.Direct, actor(e.owner, chat.RoleOwner))
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.True(t, got[0].Hidden)
}

func TestFetchMarksDirectThreadRead(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	a := e.User("a", "user")
	b := e.User("b", "user")
	e.send(t, actor(a, chat.RoleUser), b, chat.Direct, "one")
	e.send(t, actor(a, chat.RoleUser), b, chat.Direct, "two")

	n, err := e.reads.UnreadCount(ctx, actor(b, chat.RoleUser))
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	_, err = e.store.Fetch(ctx, a, chat.Direct, actor(b, chat.RoleUser))
	require.NoError(t, err)
	n, err = e.reads.UnreadCount(ctx, actor(b, chat.RoleUser))
	require.NoError(t, err)
	require.Zero(t, n)
	require.Contains(t, e.rec.about, "messages:read")

	// the sender fetching does not mark the receiver's side
	n, err = e.reads.UnreadCount(ctx, actor(a, chat.RoleUser))
	require.NoError(t, err)
	require.Zero(t, n)
	_, err = e.store.Fetch(ctx, uuid.New(), chat.Direct, actor(a, chat.RoleUser))
	require.ErrorIs(t, err, chat.ErrNotFound)
}

func pngImage(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: 90, B: uint8(y), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestSendImageReencodesAndStores(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	u := actor(e.User("u", "user"), chat.RoleUser)
	raw := pngImage(t, 64, 32)

	m, err := e.store.SendImage(ctx, store.ImageInput{Actor: u, Key: e.owner, Data: raw, FileName: "../shot.png"})
	require.NoError(t, err)
	require.Equal(t, chat.TypeImage, m.Type)
	require.True(t, strings.HasPrefix(m.Content, objstore.PublicPrefix+"chat_"), m.Content)

	var meta map[string]any
	require.NoError(t, json.Unmarshal(m.Metadata, &meta))
	require.Equal(t, "shot.png", meta["original_name"])
	require.Equal(t, "image/png", meta["original_mime"])
	require.Equal(t, "image/jpeg", meta["mime"])
	require.EqualValues(t, len(raw), meta["original_size"])

	f, err := e.files.Open(strings.TrimPrefix(m.Content, objstore.PublicPrefix))
	require.NoError(t, err)
	defer f.Close()
	stored, err := io.ReadAll(f)
	require.NoError(t, err)
	require.NotEqual(t, raw, stored)

	_, err = e.store.SendImage(ctx, store.ImageInput{Actor: u, Key: e.owner, Data: []byte("not an image")})
	require.ErrorIs(t, err, chat.ErrValidation)
	_, err = e.store.SendImage(ctx, store.ImageInput{Actor: u, Key: uuid.New(), Data: raw})
	require.ErrorIs(t, err, chat.ErrNotFound)
}

func TestScheduleSession(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	specialist := e.User("spec", "specialist")
	groupSpec := e.User("gspec", "specialist")
	stranger := e.User("stranger", "specialist")
	course := e.Course("go", &specialist)
	e.Group(course, "g1", &groupSpec)
	in := store.ScheduleInput{Date: "2025-03-01", Time: "18:00", Title: "Session 1"}

	m, err := e.store.Schedule(ctx, course, actor(specialist, chat.RoleSpecialist), in)
	require.NoError(t, err)
	require.Equal(t, chat.TypeSchedule, m.Type)
	require.Equal(t, course, *m.CourseID)
	require.Equal(t, specialist, m.SenderID)

	var meta store.ScheduleMeta
	require.NoError(t, json.Unmarshal(m.Metadata, &meta))
	require.Equal(t, "2025-03-01T18:00:00Z", meta.ScheduledAt)
	require.Equal(t, "Session 1", meta.Title)
	require.NotEqual(t, uuid.Nil, meta.SessionID)

	got, err := e.store.Fetch(ctx, course, chat.Group, actor(specialist, chat.RoleSpecialist))
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, chat.TypeSchedule, got[0].Type)

	_, err = e.store.Schedule(ctx, course, actor(groupSpec, chat.RoleSpecialist), in)
	require.NoError(t, err)
	_, err = e.store.Schedule(ctx, course, actor(e.User("adm", "admin"), chat.RoleAdmin), in)
	require.NoError(t, err)

	_, err = e.store.Schedule(ctx, course, actor(stranger, chat.RoleSpecialist), in)
	require.ErrorIs(t, err, chat.ErrForbidden)
	_, err = e.store.Schedule(ctx, course, actor(e.User("s", "user"), chat.RoleUser), in)
	require.ErrorIs(t, err, chat.ErrForbidden)

	bad := in
	bad.Date = "01/03/2025"
	_, err = e.store.Schedule(ctx, course, actor(specialist, chat.RoleSpecialist), bad)
	require.ErrorIs(t, err, chat.ErrValidation)
	bad = in
	bad.Title = " "
	_, err = e.store.Schedule(ctx, course, actor(specialist, chat.RoleSpecialist), bad)
	require.ErrorIs(t, err, chat.ErrValidation)
	_, err = e.store.Schedule(ctx, uuid.New(), actor(specialist, chat.RoleSpecialist), in)
	require.ErrorIs(t, err, chat.ErrNotFound)
}

func TestWelcomeIsSentOnce(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	u := e.User("newbie", "user")

	e.store.Welcome(ctx, u)
	e.store.Welcome(ctx, u)

	got, err := e.store.Fetch(ctx, e.system, chat.Direct, actor(u, chat.RoleUser))
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, e.system, got[0].SenderID)
	require.Equal(t, "Welcome aboard", got[0].Content)

	// unknown users are ignored
	e.store.Welcome(ctx, uuid.New())
}

func TestSupportContactIsMasked(t *testing.T) {
	e := newEnv(t, nil)
	d, err := e.store.SupportContact(context.Background(), actor(e.User("u", "user"), chat.RoleUser))
	require.NoError(t, err)
	require.Equal(t, e.system, d.ID)
	require.Equal(t, "Support", d.Nickname)
	require.True(t, d.Masked)
}

func TestPurgeDirect(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	u := e.User("u", "user")
	other := e.User("o", "user")
	e.send(t, actor(e.owner, chat.RoleOwner), u, chat.Direct, "from system")
	e.send(t, actor(u, chat.RoleUser), e.owner, chat.Direct, "to owner")
	e.send(t, actor(other, chat.RoleUser), e.owner, chat.Direct, "keep")

	n, err := e.store.PurgeDirect(ctx, u, actor(e.owner, chat.RoleOwner))
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	got, err := e.store.Fetch(ctx, other, chat.Direct, actor(e.owner, chat.RoleOwner))
	require.NoError(t, err)
	require.Len(t, got, 1)

	_, err = e.store.PurgeBetween(ctx, actor(u, chat.RoleUser), other, e.owner)
	require.ErrorIs(t, err, chat.ErrForbidden)
	n, err = e.store.PurgeBetween(ctx, actor(e.owner, chat.RoleOwner), other, e.system)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
}

func TestRegisteredUserSeesSupportWelcome(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	u := e.User("u1", "user")
	e.store.Welcome(ctx, u)

	agg := conversations.New(e.Repo, e.id, nil, nil)
	list, err := agg.List(ctx, actor(u, chat.RoleUser))
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, e.system, list[0].ID)
	require.Equal(t, "Support", list[0].Name)
	require.EqualValues(t, 1, list[0].UnreadCount)

	// the owner sees the same thread keyed by the user
	list, err = agg.List(ctx, actor(e.owner, chat.RoleOwner))
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, u, list[0].ID)
	require.Zero(t, list[0].UnreadCount)
}
