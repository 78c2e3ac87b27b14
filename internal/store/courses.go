package store

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const maxCoursePageSize = 100

// CreateCourse inserts a course, assigning an identifier when absent.
func (database *Database) CreateCourse(ctx context.Context, course *Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	if err := database.db.WithContext(ctx).Create(course).Error; err != nil {
		return database.wrap("course.create", err)
	}
	return nil
}

// CourseByID loads a course by identifier.
func (database *Database) CourseByID(ctx context.Context, courseID string) (*Course, error) {
	var course Course
	if err := database.db.WithContext(ctx).Where("id = ?", courseID).Take(&course).Error; err != nil {
		return nil, database.wrap("course.by_id", err)
	}
	return &course, nil
}

// ListCourses returns one page of courses matching filter, oldest first.
func (database *Database) ListCourses(ctx context.Context, filter CourseFilter) ([]Course, error) {
	query := database.db.WithContext(ctx).Model(&Course{})
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.Level != "" {
		query = query.Where("level = ?", filter.Level)
	}
	if filter.Title != "" {
		query = query.Where("title LIKE ?", "%"+filter.Title+"%")
	}
	limit := filter.Limit
	if limit <= 0 || limit > maxCoursePageSize {
		limit = maxCoursePageSize
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	courses := make([]Course, 0)
	if err := query.Order("created_at ASC").Order("id ASC").Offset(offset).Limit(limit).Find(&courses).Error; err != nil {
		return nil, database.wrap("course.list", err)
	}
	return courses, nil
}

// UpdateCourse writes every mutable column of course back to its row.
func (database *Database) UpdateCourse(ctx context.Context, course *Course) error {
	result := database.db.WithContext(ctx).Model(&Course{}).Where("id = ?", course.ID).
		Select("title", "category", "level", "description", "instructor", "duration", "price").
		Updates(course)
	if result.Error != nil {
		return database.wrap("course.update", result.Error)
	}
	if result.RowsAffected == 0 {
		return database.wrap("course.update", gorm.ErrRecordNotFound)
	}
	return nil
}

// DeleteCourse removes the course together with its enrollments.
func (database *Database) DeleteCourse(ctx context.Context, courseID string) error {
	err := database.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("course_id = ?", courseID).Delete(&Enrollment{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", courseID).Delete(&Course{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return database.wrap("course.delete", err)
	}
	return nil
}
