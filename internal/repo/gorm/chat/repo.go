package chatgorm

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repo struct{ db *gorm.DB }

func NewRepo(db *gorm.DB) *Repo { return &Repo{db: db} }

func (r *Repo) DB() *gorm.DB { return r.db }

// first returns (nil, nil) when the row does not exist.
func first[T any](q *gorm.DB) (*T, error) {
	var out T
	if err := q.First(&out).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}

// Users

func (r *Repo) CreateUser(ctx context.Context, u *UserRecord) error {
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *Repo) GetUser(ctx context.Context, id uuid.UUID) (*UserRecord, error) {
	return first[UserRecord](r.db.WithContext(ctx).Where("id = ?", id))
}

func (r *Repo) UsersByIDs(ctx context.Context, ids []uuid.UUID) ([]UserRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var out []UserRecord
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&out).Error
	return out, err
}

// Courses and groups

func (r *Repo) CreateCourse(ctx context.Context, c *CourseRecord) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *Repo) CreateGroup(ctx context.Context, g *CourseGroupRecord) error {
	return r.db.WithContext(ctx).Create(g).Error
}

func (r *Repo) CreateEnrollment(ctx context.Context, e *EnrollmentRecord) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *Repo) GetCourse(ctx context.Context, id uuid.UUID) (*CourseRecord, error) {
	return first[CourseRecord](r.db.WithContext(ctx).Where("id = ?", id))
}

func (r *Repo) GetGroup(ctx context.Context, id uuid.UUID) (*CourseGroupRecord, error) {
	return first[CourseGroupRecord](r.db.WithContext(ctx).Where("id = ?", id))
}

func (r *Repo) ListCourses(ctx context.Context) ([]CourseRecord, error) {
	var out []CourseRecord
	err := r.db.WithContext(ctx).Order("created_at ASC").Find(&out).Error
	return out, err
}

// CoursesTaughtBy returns courses whose specialist is the given user, either
// on the course itself or on one of its groups.
func (r *Repo) CoursesTaughtBy(ctx context.Context, specialist uuid.UUID) ([]CourseRecord, error) {
	var out []CourseRecord
	sub := r.db.Model(&CourseGroupRecord{}).Select("course_id").Where("specialist_id = ?", specialist)
	err := r.db.WithContext(ctx).
		Where("specialist_id = ? OR id IN (?)", specialist, sub).
		Order("created_at ASC").
		Find(&out).Error
	return out, err
}

func (r *Repo) CoursesByIDs(ctx context.Context, ids []uuid.UUID) ([]CourseRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var out []CourseRecord
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&out).Error
	return out, err
}

func (r *Repo) GroupsByIDs(ctx context.Context, ids []uuid.UUID) ([]CourseGroupRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var out []CourseGroupRecord
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&out).Error
	return out, err
}

func (r *Repo) GroupsOfCourse(ctx context.Context, course uuid.UUID) ([]CourseGroupRecord, error) {
	var out []CourseGroupRecord
	err := r.db.WithContext(ctx).Where("course_id = ?", course).Find(&out).Error
	return out, err
}

func (r *Repo) FindEnrollment(ctx context.Context, user, course uuid.UUID) (*EnrollmentRecord, error) {
	return first[EnrollmentRecord](r.db.WithContext(ctx).Where("user_id = ? AND course_id = ?", user, course))
}

func (r *Repo) EnrollmentsOf(ctx context.Context, user uuid.UUID) ([]EnrollmentRecord, error) {
	var out []EnrollmentRecord
	err := r.db.WithContext(ctx).Where("user_id = ?", user).Find(&out).Error
	return out, err
}

// Sessions

func (r *Repo) CreateSession(ctx context.Context, s *SessionRecord) error {
	return r.db.WithContext(ctx).Create(s).Error
}
