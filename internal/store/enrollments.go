package store

import (
	"context"

	"github.com/google/uuid"
)

// FindEnrollment loads the enrollment of userID in courseID.
func (database *Database) FindEnrollment(ctx context.Context, userID string, courseID string) (*Enrollment, error) {
	var enrollment Enrollment
	err := database.db.WithContext(ctx).Where("user_id = ? AND course_id = ?", userID, courseID).Take(&enrollment).Error
	if err != nil {
		return nil, database.wrap("enrollment.find", err)
	}
	return &enrollment, nil
}

// CreateEnrollment inserts an enrollment. A second enrollment of the same
// user in the same course fails with ErrDuplicate.
func (database *Database) CreateEnrollment(ctx context.Context, enrollment *Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	course := enrollment.Course
	enrollment.Course = nil
	defer func() { enrollment.Course = course }()
	if err := database.db.WithContext(ctx).Create(enrollment).Error; err != nil {
		return database.wrap("enrollment.create", err)
	}
	return nil
}

// EnrollmentsForUser lists the user's enrollments with their courses, oldest first.
func (database *Database) EnrollmentsForUser(ctx context.Context, userID string) ([]Enrollment, error) {
	enrollments := make([]Enrollment, 0)
	err := database.db.WithContext(ctx).Preload("Course").Where("user_id = ?", userID).
		Order("created_at ASC").Order("id ASC").Find(&enrollments).Error
	if err != nil {
		return nil, database.wrap("enrollment.list", err)
	}
	return enrollments, nil
}

// CountEnrollments reports how many enrollments the user holds.
func (database *Database) CountEnrollments(ctx context.Context, userID string) (int64, error) {
	var count int64
	if err := database.db.WithContext(ctx).Model(&Enrollment{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return 0, database.wrap("enrollment.count", err)
	}
	return count, nil
}
