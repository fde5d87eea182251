// Package chattest builds in-memory chat databases for tests.
package chattest

import (
	"context"
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	chatgorm "github.com/cuihairu/cohortchat/internal/repo/gorm/chat"
)

// NewDB opens a private shared-cache sqlite database with a single
// connection, so concurrent callers observe one consistent database.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, chatgorm.AutoMigrate(db))
	return db
}

// Fixture seeds users, courses, groups and enrollments.
type Fixture struct {
	T    testing.TB
	Repo *chatgorm.Repo
}

func NewFixture(t testing.TB) *Fixture {
	return &Fixture{T: t, Repo: chatgorm.NewRepo(NewDB(t))}
}

func (f *Fixture) User(nickname, role string) uuid.UUID {
	f.T.Helper()
	u := &chatgorm.UserRecord{Nickname: nickname, Role: role, Avatar: nickname + ".png"}
	require.NoError(f.T, f.Repo.CreateUser(context.Background(), u))
	return u.ID
}

func (f *Fixture) Course(title string, specialist *uuid.UUID) uuid.UUID {
	f.T.Helper()
	c := &chatgorm.CourseRecord{Title: title, SpecialistID: specialist}
	require.NoError(f.T, f.Repo.CreateCourse(context.Background(), c))
	return c.ID
}

func (f *Fixture) Group(course uuid.UUID, name string, specialist *uuid.UUID) uuid.UUID {
	f.T.Helper()
	g := &chatgorm.CourseGroupRecord{CourseID: course, Name: name, SpecialistID: specialist, Capacity: 10}
	require.NoError(f.T, f.Repo.CreateGroup(context.Background(), g))
	return g.ID
}

func (f *Fixture) Enroll(user, course uuid.UUID, group *uuid.UUID) {
	f.T.Helper()
	e := &chatgorm.EnrollmentRecord{UserID: user, CourseID: course, GroupID: group}
	require.NoError(f.T, f.Repo.CreateEnrollment(context.Background(), e))
}

// Direct inserts a raw direct message bypassing the store.
func (f *Fixture) Direct(from, to uuid.UUID, content string) *chatgorm.MessageRecord {
	f.T.Helper()
	m := &chatgorm.MessageRecord{SenderID: from, ReceiverID: &to, Content: content, Type: "text"}
	require.NoError(f.T, f.Repo.CreateMessage(context.Background(), m))
	return m
}

// Post inserts a raw group message bypassing the store.
func (f *Fixture) Post(from, course uuid.UUID, group *uuid.UUID, content string) *chatgorm.MessageRecord {
	f.T.Helper()
	m := &chatgorm.MessageRecord{SenderID: from, CourseID: &course, GroupID: group, Content: content, Type: "text"}
	require.NoError(f.T, f.Repo.CreateMessage(context.Background(), m))
	return m
}

func Ptr[T any](v T) *T { return &v }
