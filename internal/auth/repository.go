// internal/auth/repository.go
package auth

import (
	"context"
	"errors"

	"bible-quiz/internal/models"

	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetUserByLogin matches either the username or the email.
func (r *Repository) GetUserByLogin(ctx context.Context, login string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("username = ? OR email = ?", login, login).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *Repository) Exists(ctx context.Context, username, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("username = ? OR email = ?", username, email).
		Count(&count).Error
	return count > 0, err
}

func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// DeleteUser removes the user and their quiz sessions in one transaction and
// reports how many sessions went with them.
func (r *Repository) DeleteUser(ctx context.Context, userID string) (int64, error) {
	var purged int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sessions := tx.Where("user_id = ?", userID).Delete(&models.QuizSession{})
		if sessions.Error != nil {
			return sessions.Error
		}
		user := tx.Where("id = ?", userID).Delete(&models.User{})
		if user.Error != nil {
			return user.Error
		}
		if user.RowsAffected == 0 {
			return ErrUserNotFound
		}
		purged = sessions.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}
	return purged, nil
}
