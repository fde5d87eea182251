package admincmd

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	chatgorm "github.com/cuihairu/cohortchat/internal/repo/gorm/chat"
)

type Fixtures struct {
	Users       []UserFixture       `yaml:"users"`
	Courses     []CourseFixture     `yaml:"courses"`
	Enrollments []EnrollmentFixture `yaml:"enrollments"`
}

type UserFixture struct {
	ID       uuid.UUID `yaml:"id"`
	Nickname string    `yaml:"nickname"`
	Role     string    `yaml:"role"`
	Avatar   string    `yaml:"avatar"`
}

type CourseFixture struct {
	ID         uuid.UUID      `yaml:"id"`
	Title      string         `yaml:"title"`
	Avatar     string         `yaml:"avatar"`
	Specialist *uuid.UUID     `yaml:"specialist"`
	Groups     []GroupFixture `yaml:"groups"`
}

type GroupFixture struct {
	ID         uuid.UUID  `yaml:"id"`
	Name       string     `yaml:"name"`
	Specialist *uuid.UUID `yaml:"specialist"`
	Capacity   int        `yaml:"capacity"`
}

type EnrollmentFixture struct {
	User   uuid.UUID  `yaml:"user"`
	Course uuid.UUID  `yaml:"course"`
	Group  *uuid.UUID `yaml:"group"`
}

// Seed inserts fx in one transaction. Rows that conflict with existing keys
// are left untouched, so seeding twice is harmless. It returns the number
// of rows inserted.
func Seed(ctx context.Context, db *gorm.DB, fx Fixtures) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		create := func(v any) error {
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(v)
			n += res.RowsAffected
			return res.Error
		}
		for _, u := range fx.Users {
			if err := create(&chatgorm.UserRecord{ID: u.ID, Nickname: u.Nickname, Role: u.Role, Avatar: u.Avatar}); err != nil {
				return err
			}
		}
		for _, c := range fx.Courses {
			course := &chatgorm.CourseRecord{ID: c.ID, Title: c.Title, Avatar: c.Avatar, SpecialistID: c.Specialist}
			if err := create(course); err != nil {
				return err
			}
			for _, g := range c.Groups {
				if err := create(&chatgorm.CourseGroupRecord{ID: g.ID, CourseID: course.ID, Name: g.Name, SpecialistID: g.Specialist, Capacity: g.Capacity}); err != nil {
					return err
				}
			}
		}
		for _, e := range fx.Enrollments {
			if err := create(&chatgorm.EnrollmentRecord{UserID: e.User, CourseID: e.Course, GroupID: e.Group}); err != nil {
				return err
			}
		}
		return nil
	})
	return n, err
}
