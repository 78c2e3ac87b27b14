package store

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CreateUser inserts a user, assigning an identifier and the default role when absent.
func (database *Database) CreateUser(ctx context.Context, user *User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.Role == "" {
		user.Role = RoleUser
	}
	user.Email = strings.TrimSpace(user.Email)
	if err := database.db.WithContext(ctx).Create(user).Error; err != nil {
		return database.wrap("user.create", err)
	}
	return nil
}

// UserByID loads a user by identifier.
func (database *Database) UserByID(ctx context.Context, userID string) (*User, error) {
	var user User
	if err := database.db.WithContext(ctx).Where("id = ?", userID).Take(&user).Error; err != nil {
		return nil, database.wrap("user.by_id", err)
	}
	return &user, nil
}

// UserByEmail loads a user by email address.
func (database *Database) UserByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	if err := database.db.WithContext(ctx).Where("email = ?", strings.TrimSpace(email)).Take(&user).Error; err != nil {
		return nil, database.wrap("user.by_email", err)
	}
	return &user, nil
}

// UpdateUser writes every column of user back to its row.
func (database *Database) UpdateUser(ctx context.Context, user *User) error {
	result := database.db.WithContext(ctx).Model(&User{}).Where("id = ?", user.ID).Select("*").Omit("id", "created_at").Updates(user)
	if result.Error != nil {
		return database.wrap("user.update", result.Error)
	}
	if result.RowsAffected == 0 {
		return database.wrap("user.update", gorm.ErrRecordNotFound)
	}
	return nil
}

// SetResetToken stores a pending password reset token for the user.
func (database *Database) SetResetToken(ctx context.Context, userID string, resetToken string) error {
	result := database.db.WithContext(ctx).Model(&User{}).Where("id = ?", userID).Update("reset_token", resetToken)
	if result.Error != nil {
		return database.wrap("user.set_reset_token", result.Error)
	}
	if result.RowsAffected == 0 {
		return database.wrap("user.set_reset_token", gorm.ErrRecordNotFound)
	}
	return nil
}

// DeleteUser removes the user together with the user's enrollments.
func (database *Database) DeleteUser(ctx context.Context, userID string) error {
	err := database.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&Enrollment{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", userID).Delete(&User{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return database.wrap("user.delete", err)
	}
	return nil
}
