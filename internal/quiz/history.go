package quiz

import (
	"context"

	"bible-quiz/internal/models"
	"bible-quiz/pkg/logger"
)

// DefaultHistoryWindow is how many recent completed quizzes feed duplicate
// avoidance.
const DefaultHistoryWindow = 10

// HistoryCache stores computed summaries. A miss is reported as an error.
type HistoryCache interface {
	GetHistory(ctx context.Context, userID string) (*models.HistorySummary, error)
	SetHistory(ctx context.Context, userID string, summary *models.HistorySummary) error
	InvalidateHistory(ctx context.Context, userID string) error
}

type History struct {
	store Store
	cache HistoryCache
	log   *logger.Logger
}

// NewHistory builds the aggregator. cache may be nil.
func NewHistory(store Store, cache HistoryCache, log *logger.Logger) *History {
	return &History{
		store: store,
		cache: cache,
		log:   log.With("service", "QuizHistory"),
	}
}

func (h *History) PreviousQuestionTexts(ctx context.Context, userID string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = DefaultHistoryWindow
	}
	sessions, err := h.store.ListCompletedByUser(ctx, userID, limit)
	if err != nil {
		return nil, err
	}

	texts := make([]string, 0, len(sessions)*models.QuestionsPerQuiz)
	for _, session := range sessions {
		for _, q := range session.Questions {
			texts = append(texts, q.Text)
		}
	}
	return texts, nil
}

func (h *History) Summary(ctx context.Context, userID string) (*models.HistorySummary, error) {
	if h.cache != nil {
		if cached, err := h.cache.GetHistory(ctx, userID); err == nil && cached != nil {
			return cached, nil
		}
	}

	sessions, err := h.store.ListCompletedByUser(ctx, userID, 0)
	if err != nil {
		return nil, err
	}
	summary := Summarize(sessions)

	// A completion that invalidates between the read above and this write
	// leaves a stale entry behind; the cache TTL bounds how long it lives.
	if h.cache != nil {
		if err := h.cache.SetHistory(ctx, userID, summary); err != nil {
			h.log.Warn("Failed to cache quiz history", "user_id", userID, "error", err)
		}
	}
	return summary, nil
}

// Invalidate drops the cached summary; failures are only logged.
func (h *History) Invalidate(ctx context.Context, userID string) {
	if h.cache == nil {
		return
	}
	if err := h.cache.InvalidateHistory(ctx, userID); err != nil {
		h.log.Warn("Failed to invalidate quiz history", "user_id", userID, "error", err)
	}
}

// Summarize builds the history view from completed sessions, keeping their order.
func Summarize(sessions []models.QuizSession) *models.HistorySummary {
	summary := &models.HistorySummary{
		Quizzes: make([]models.HistoryEntry, 0, len(sessions)),
	}
	for _, s := range sessions {
		summary.Quizzes = append(summary.Quizzes, models.HistoryEntry{
			ID:             s.ID,
			Score:          s.CorrectCount,
			Answered:       s.Progress,
			TotalQuestions: s.TotalQuestions(),
			CreatedAt:      s.CreatedAt,
		})
		summary.Stats.TotalScore += s.CorrectCount
	}
	summary.Stats.TotalQuizzes = len(sessions)
	if summary.Stats.TotalQuizzes > 0 {
		summary.Stats.AverageScore = float64(summary.Stats.TotalScore) / float64(summary.Stats.TotalQuizzes)
	}
	return summary
}
