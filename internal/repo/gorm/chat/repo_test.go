package chatgorm_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/cuihairu/cohortchat/internal/chat/chattest"
	chatgorm "github.com/cuihairu/cohortchat/internal/repo/gorm/chat"
)

func TestLookupsReturnNilWhenMissing(t *testing.T) {
	f := chattest.NewFixture(t)
	ctx := context.Background()

	u, err := f.Repo.GetUser(ctx, uuid.New())
	require.NoError(t, err)
	require.Nil(t, u)

	m, err := f.Repo.GetMessage(ctx, uuid.New())
	require.NoError(t, err)
	require.Nil(t, m)

	e, err := f.Repo.FindEnrollment(ctx, uuid.New(), uuid.New())
	require.NoError(t, err)
	require.Nil(t, e)
}

func TestCoursesTaughtBy(t *testing.T) {
	f := chattest.NewFixture(t)
	s := f.User("spec", "specialist")
	other := f.User("other", "specialist")
	c1 := f.Course("owned", &s)
	c2 := f.Course("via group", &other)
	f.Group(c2, "g", &s)
	f.Course("unrelated", &other)

	got, err := f.Repo.CoursesTaughtBy(context.Background(), s)
	require.NoError(t, err)
	ids := []uuid.UUID{}
	for _, c := range got {
		ids = append(ids, c.ID)
	}
	require.ElementsMatch(t, []uuid.UUID{c1, c2}, ids)
}

func TestDirectHistoryBothDirections(t *testing.T) {
	f := chattest.NewFixture(t)
	a := f.User("a", "user")
	b := f.User("b", "user")
	c := f.User("c", "user")
	f.Direct(a, b, "1")
	f.Direct(b, a, "2")
	f.Direct(a, c, "x")
	hidden := f.Direct(a, b, "3")
	_, err := f.Repo.SetHidden(context.Background(), hidden.ID, true)
	require.NoError(t, err)

	rows, err := f.Repo.DirectHistory(context.Background(), []uuid.UUID{a}, []uuid.UUID{b}, false)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "1", rows[0].Content)
	require.Equal(t, "2", rows[1].Content)

	rows, err = f.Repo.DirectHistory(context.Background(), []uuid.UUID{a}, []uuid.UUID{b}, true)
	require.NoError(t, err)
	require.Len(t, rows, 3)
}

func TestGroupScopeFiltering(t *testing.T) {
	f := chattest.NewFixture(t)
	s := f.User("s", "specialist")
	course := f.Course("c", &s)
	g1 := f.Group(course, "g1", nil)
	g2 := f.Group(course, "g2", nil)
	f.Post(s, course, nil, "all")
	f.Post(s, course, &g1, "one")
	f.Post(s, course, &g2, "two")
	ctx := context.Background()

	rows, err := f.Repo.GroupHistory(ctx, course, chatgorm.GroupScope{All: true}, false)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	rows, err = f.Repo.GroupHistory(ctx, course, chatgorm.GroupScope{GroupID: &g1}, false)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, r := range rows {
		require.True(t, r.GroupID == nil || *r.GroupID == g1)
	}

	rows, err = f.Repo.GroupHistory(ctx, course, chatgorm.GroupScope{}, false)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "all", rows[0].Content)

	require.False(t, chatgorm.GroupScope{GroupID: &g1}.Allows(&g2))
	require.True(t, chatgorm.GroupScope{GroupID: &g1}.Allows(nil))
	require.False(t, chatgorm.GroupScope{}.Allows(&g1))
}

func TestMarkDirectReadIsConditional(t *testing.T) {
	f := chattest.NewFixture(t)
	a := f.User("a", "user")
	b := f.User("b", "user")
	f.Direct(a, b, "1")
	f.Direct(a, b, "2")
	f.Direct(b, a, "reply")
	ctx := context.Background()

	n, err := f.Repo.CountDirectUnread(ctx, []uuid.UUID{b}, false)
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	n, err = f.Repo.MarkDirectRead(ctx, []uuid.UUID{a}, []uuid.UUID{b})
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	n, err = f.Repo.MarkDirectRead(ctx, []uuid.UUID{a}, []uuid.UUID{b})
	require.NoError(t, err)
	require.Zero(t, n)

	n, err = f.Repo.CountDirectUnread(ctx, []uuid.UUID{a}, false)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
}

func TestMarkGroupReadSkipsOwnMessages(t *testing.T) {
	f := chattest.NewFixture(t)
	s := f.User("s", "specialist")
	u := f.User("u", "user")
	course := f.Course("c", &s)
	f.Post(s, course, nil, "hello")
	f.Post(u, course, nil, "hi")

	n, err := f.Repo.MarkGroupRead(context.Background(), course, []uuid.UUID{u})
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
	n, err = f.Repo.MarkGroupRead(context.Background(), course, []uuid.UUID{u})
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestLatestGroupMessagesOnePerBucket(t *testing.T) {
	f := chattest.NewFixture(t)
	ctx := context.Background()
	s := f.User("s", "specialist")
	c1 := f.Course("c1", &s)
	c2 := f.Course("c2", &s)
	g := f.Group(c1, "g", nil)

	base := time.Now().Add(-time.Hour)
	post := func(course uuid.UUID, group *uuid.UUID, content string, hidden bool) {
		base = base.Add(time.Second)
		m := &chatgorm.MessageRecord{SenderID: s, CourseID: &course, GroupID: group, Content: content, Type: "text", Hidden: hidden, CreatedAt: base}
		require.NoError(t, f.Repo.CreateMessage(ctx, m))
	}
	post(c2, nil, "quiet", false)
	post(c1, &g, "group old", false)
	for i := 0; i < 20; i++ {
		post(c1, nil, "busy", false)
	}
	post(c1, &g, "group new", false)
	post(c1, &g, "hidden", true)

	rows, err := f.Repo.LatestGroupMessages(ctx, []uuid.UUID{c1, c2}, false)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, "group new", rows[0].Content)
	require.Equal(t, "busy", rows[1].Content)
	require.Equal(t, "quiet", rows[2].Content)

	rows, err = f.Repo.LatestGroupMessages(ctx, []uuid.UUID{c1}, true)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "hidden", rows[0].Content)
}

func TestPurgeDirectRemovesThreadOnly(t *testing.T) {
	f := chattest.NewFixture(t)
	a := f.User("a", "user")
	b := f.User("b", "user")
	c := f.User("c", "user")
	f.Direct(a, b, "1")
	f.Direct(b, a, "2")
	f.Direct(a, c, "keep")

	n, err := f.Repo.PurgeDirect(context.Background(), []uuid.UUID{b}, []uuid.UUID{a})
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	rows, err := f.Repo.DirectInvolving(context.Background(), []uuid.UUID{a}, true)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "keep", rows[0].Content)
}
