// internal/quiz/repository.go
package quiz

import (
	"context"
	"errors"

	"bible-quiz/internal/models"
	"bible-quiz/pkg/logger"

	"gorm.io/gorm"
)

// Store is the durable home of quiz sessions. Finders return (nil, nil) when
// nothing matches.
type Store interface {
	Create(ctx context.Context, session *models.QuizSession) error
	FindActiveByUser(ctx context.Context, userID string) (*models.QuizSession, error)
	FindByID(ctx context.Context, id, userID string) (*models.QuizSession, error)
	// ListCompletedByUser returns completed sessions newest first; limit <= 0 means all.
	ListCompletedByUser(ctx context.Context, userID string, limit int) ([]models.QuizSession, error)
	// Save writes the mutable fields only if the stored progress still equals
	// expectedProgress, otherwise it returns ErrConcurrentUpdate.
	Save(ctx context.Context, session *models.QuizSession, expectedProgress int) error
	// CompleteExhausted flags every fully answered session as completed and
	// returns the distinct owners of the sessions it changed.
	CompleteExhausted(ctx context.Context) ([]string, int64, error)
}

type Repository struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRepository(db *gorm.DB, log *logger.Logger) *Repository {
	return &Repository{db: db, log: log.With("repo", "QuizRepository")}
}

func (r *Repository) Create(ctx context.Context, session *models.QuizSession) error {
	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		r.log.Error("Error creating quiz", "user_id", session.UserID, "error", err)
		return err
	}
	return nil
}

func (r *Repository) FindActiveByUser(ctx context.Context, userID string) (*models.QuizSession, error) {
	var session models.QuizSession
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND completed = ?", userID, false).
		Order("created_at desc").
		First(&session).Error
	return found(&session, err)
}

func (r *Repository) FindByID(ctx context.Context, id, userID string) (*models.QuizSession, error) {
	var session models.QuizSession
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&session).Error
	return found(&session, err)
}

func (r *Repository) ListCompletedByUser(ctx context.Context, userID string, limit int) ([]models.QuizSession, error) {
	var sessions []models.QuizSession
	q := r.db.WithContext(ctx).
		Where("user_id = ? AND completed = ?", userID, true).
		Order("created_at desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&sessions).Error; err != nil {
		r.log.Error("Error listing completed quizzes", "user_id", userID, "error", err)
		return nil, err
	}
	return sessions, nil
}

func (r *Repository) Save(ctx context.Context, session *models.QuizSession, expectedProgress int) error {
	result := r.db.WithContext(ctx).
		Model(&models.QuizSession{}).
		Where("id = ? AND user_id = ? AND progress = ? AND completed = ?", session.ID, session.UserID, expectedProgress, false).
		Updates(map[string]interface{}{
			"progress":      session.Progress,
			"correct_count": session.CorrectCount,
			"completed":     session.Completed,
		})
	if result.Error != nil {
		r.log.Error("Error saving quiz", "quiz_id", session.ID, "error", result.Error)
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrConcurrentUpdate
	}
	return nil
}

func (r *Repository) CompleteExhausted(ctx context.Context) ([]string, int64, error) {
	var (
		userIDs []string
		count   int64
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sessions []models.QuizSession
		if err := tx.Select("id", "user_id").
			Where("completed = ? AND progress >= ?", false, models.QuestionsPerQuiz).
			Find(&sessions).Error; err != nil {
			return err
		}
		if len(sessions) == 0 {
			return nil
		}

		ids := make([]string, 0, len(sessions))
		seen := make(map[string]bool)
		for _, s := range sessions {
			ids = append(ids, s.ID)
			if !seen[s.UserID] {
				seen[s.UserID] = true
				userIDs = append(userIDs, s.UserID)
			}
		}

		result := tx.Model(&models.QuizSession{}).
			Where("id IN ? AND completed = ?", ids, false).
			Update("completed", true)
		count = result.RowsAffected
		return result.Error
	})
	if err != nil {
		r.log.Error("Error completing exhausted quizzes", "error", err)
		return nil, 0, err
	}
	return userIDs, count, nil
}

func found(session *models.QuizSession, err error) (*models.QuizSession, error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}
