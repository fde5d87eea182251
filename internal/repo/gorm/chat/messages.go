package chatgorm

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GroupScope restricts which group_id values of a course a viewer may read.
// All disables the filter; otherwise GroupID (when set) plus course-wide
// rows (group_id IS NULL) are visible.
type GroupScope struct {
	All     bool
	GroupID *uuid.UUID
}

// Allows applies the scope to a single row's group id.
func (s GroupScope) Allows(groupID *uuid.UUID) bool {
	if s.All || groupID == nil {
		return true
	}
	return s.GroupID != nil && *s.GroupID == *groupID
}

func (s GroupScope) apply(q *gorm.DB) *gorm.DB {
	switch {
	case s.All:
		return q
	case s.GroupID != nil:
		return q.Where("(group_id = ? OR group_id IS NULL)", *s.GroupID)
	default:
		return q.Where("group_id IS NULL")
	}
}

func visible(q *gorm.DB, includeHidden bool) *gorm.DB {
	if includeHidden {
		return q
	}
	return q.Where("hidden = ?", false)
}

func directBetween(q *gorm.DB, a, b []uuid.UUID) *gorm.DB {
	return q.Where("course_id IS NULL").
		Where("((sender_id IN ? AND receiver_id IN ?) OR (sender_id IN ? AND receiver_id IN ?))", a, b, b, a)
}

func (r *Repo) CreateMessage(ctx context.Context, m *MessageRecord) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *Repo) GetMessage(ctx context.Context, id uuid.UUID) (*MessageRecord, error) {
	return first[MessageRecord](r.db.WithContext(ctx).Where("id = ?", id))
}

func (r *Repo) MessagesByIDs(ctx context.Context, ids []uuid.UUID) ([]MessageRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var out []MessageRecord
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&out).Error
	return out, err
}

// DirectHistory returns the direct thread between the viewer identities and
// the partner identities, oldest first.
func (r *Repo) DirectHistory(ctx context.Context, viewer, partner []uuid.UUID, includeHidden bool) ([]MessageRecord, error) {
	var out []MessageRecord
	q := directBetween(r.db.WithContext(ctx).Model(&MessageRecord{}), viewer, partner)
	err := visible(q, includeHidden).Order("created_at ASC, id ASC").Find(&out).Error
	return out, err
}

// DirectInvolving returns every direct message sent or received by any of
// ids, newest first.
func (r *Repo) DirectInvolving(ctx context.Context, ids []uuid.UUID, includeHidden bool) ([]MessageRecord, error) {
	var out []MessageRecord
	q := r.db.WithContext(ctx).
		Where("course_id IS NULL AND receiver_id IS NOT NULL").
		Where("(sender_id IN ? OR receiver_id IN ?)", ids, ids)
	err := visible(q, includeHidden).Order("created_at DESC, id DESC").Find(&out).Error
	return out, err
}

func (r *Repo) GroupHistory(ctx context.Context, course uuid.UUID, scope GroupScope, includeHidden bool) ([]MessageRecord, error) {
	var out []MessageRecord
	q := r.db.WithContext(ctx).Where("course_id = ?", course)
	q = visible(scope.apply(q), includeHidden)
	err := q.Order("created_at ASC, id ASC").Find(&out).Error
	return out, err
}

// LatestGroupMessages returns the newest row of every (course, group)
// bucket in courses, newest first. Course-wide rows form the NULL bucket, so
// the result never exceeds one row per group plus one per course.
func (r *Repo) LatestGroupMessages(ctx context.Context, courses []uuid.UUID, includeHidden bool) ([]MessageRecord, error) {
	if len(courses) == 0 {
		return nil, nil
	}
	ranked := r.db.Model(&MessageRecord{}).
		Select("messages.*, ROW_NUMBER() OVER (PARTITION BY course_id, group_id ORDER BY created_at DESC, id DESC) AS rn").
		Where("course_id IN ?", courses)
	ranked = visible(ranked, includeHidden)
	var out []MessageRecord
	err := r.db.WithContext(ctx).Table("(?) AS latest", ranked).
		Where("rn = ?", 1).
		Order("created_at DESC, id DESC").
		Find(&out).Error
	return out, err
}

// MarkDirectRead flips unread rows from partner to viewer in one
// conditional statement; the affected row count is the only source of
// truth for how many were newly read.
func (r *Repo) MarkDirectRead(ctx context.Context, partner, viewer []uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Model(&MessageRecord{}).
		Where("course_id IS NULL AND sender_id IN ? AND receiver_id IN ? AND is_read = ?", partner, viewer, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}

func (r *Repo) MarkGroupRead(ctx context.Context, course uuid.UUID, viewer []uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Model(&MessageRecord{}).
		Where("course_id = ? AND sender_id NOT IN ? AND is_read = ?", course, viewer, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}

// CountDirectUnread counts direct rows addressed to viewer that are unread.
// Rows exchanged between the viewer's own identities are ignored.
func (r *Repo) CountDirectUnread(ctx context.Context, viewer []uuid.UUID, includeHidden bool) (int64, error) {
	var n int64
	q := r.db.WithContext(ctx).Model(&MessageRecord{}).
		Where("course_id IS NULL AND receiver_id IN ? AND sender_id NOT IN ? AND is_read = ?", viewer, viewer, false)
	err := visible(q, includeHidden).Count(&n).Error
	return n, err
}

func (r *Repo) SetHidden(ctx context.Context, id uuid.UUID, hidden bool) (int64, error) {
	res := r.db.WithContext(ctx).Model(&MessageRecord{}).
		Where("id = ?", id).
		Update("hidden", hidden)
	return res.RowsAffected, res.Error
}

// PurgeDirect hard-deletes a whole direct thread.
func (r *Repo) PurgeDirect(ctx context.Context, viewer, partner []uuid.UUID) (int64, error) {
	res := directBetween(r.db.WithContext(ctx), viewer, partner).Delete(&MessageRecord{})
	return res.RowsAffected, res.Error
}
