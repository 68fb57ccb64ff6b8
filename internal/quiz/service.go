// internal/quiz/service.go
package quiz

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bible-quiz/internal/models"
	"bible-quiz/pkg/logger"

	"github.com/google/uuid"
)

// QuestionSource produces the questions for a new quiz, avoiding the given
// previously asked question texts where it can.
type QuestionSource interface {
	Generate(ctx context.Context, exclude []string) ([]models.Question, error)
}

// Notifier pushes quiz events to a user's connected clients.
type Notifier interface {
	SendToUser(userID string, messageType string, data interface{})
}

const (
	EventQuizStarted   = "quiz_started"
	EventAnswerResult  = "answer_result"
	EventQuizCompleted = "quiz_completed"
)

type Service struct {
	store    Store
	source   QuestionSource
	history  *History
	notifier Notifier
	log      *logger.Logger
	now      func() time.Time
}

func NewService(store Store, source QuestionSource, history *History, notifier Notifier, log *logger.Logger) *Service {
	return &Service{
		store:    store,
		source:   source,
		history:  history,
		notifier: notifier,
		log:      log.With("service", "QuizService"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) StartQuiz(ctx context.Context, userID string) (*models.StartResult, error) {
	previous, err := s.history.PreviousQuestionTexts(ctx, userID, DefaultHistoryWindow)
	if err != nil {
		return nil, err
	}
	s.log.Info("Generating quiz", "user_id", userID, "excluded_questions", len(previous))

	generated, err := s.source.Generate(ctx, previous)
	if err != nil {
		s.log.Error("Question source failed", "user_id", userID, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrGenerationFailure, err)
	}

	questions, err := SanitizeQuestions(generated)
	if err != nil {
		s.log.Warn("Rejected generated questions", "user_id", userID, "generated", len(generated), "error", err)
		return nil, err
	}
	s.log.Debug("Sanitized generated questions", "user_id", userID, "generated", len(generated), "kept", len(questions))

	// A caller that went away during generation must not leave a session behind.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	session := &models.QuizSession{
		ID:        uuid.NewString(),
		UserID:    userID,
		Questions: questions,
		CreatedAt: s.now(),
	}
	if err := s.store.Create(ctx, session); err != nil {
		return nil, err
	}
	s.log.Info("Created quiz", "quiz_id", session.ID, "user_id", userID)

	result := &models.StartResult{
		QuizID:          session.ID,
		CurrentQuestion: session.Questions[0].ToView(),
	}
	s.notify(userID, EventQuizStarted, result)
	return result, nil
}

// CurrentState resolves quizID for the user, or the most recent incomplete
// quiz when quizID is empty.
func (s *Service) CurrentState(ctx context.Context, userID, quizID string) (*models.QuizState, error) {
	var (
		session *models.QuizSession
		err     error
	)
	quizID = strings.TrimSpace(quizID)
	if quizID == "" {
		session, err = s.store.FindActiveByUser(ctx, userID)
		if err == nil && session == nil {
			err = ErrNoActiveQuiz
		}
	} else {
		session, err = s.store.FindByID(ctx, quizID, userID)
		if err == nil && session == nil {
			err = ErrQuizNotFound
		}
	}
	if err != nil {
		return nil, err
	}

	if session.Exhausted() || session.Completed {
		if !session.Completed {
			if err := s.markCompleted(ctx, session); err != nil {
				return nil, err
			}
		}
		return &models.QuizState{
			QuizID:         session.ID,
			Completed:      true,
			TotalQuestions: session.TotalQuestions(),
			Score:          session.CorrectCount,
		}, nil
	}

	view := session.Questions[session.Progress].ToView()
	return &models.QuizState{
		QuizID:          session.ID,
		CurrentQuestion: &view,
		QuestionNumber:  session.Progress + 1,
		TotalQuestions:  session.TotalQuestions(),
		Score:           session.CorrectCount,
	}, nil
}

func (s *Service) SubmitAnswer(ctx context.Context, userID, quizID, answer string) (*models.AnswerResult, error) {
	quizID = strings.TrimSpace(quizID)
	if quizID == "" || answer == "" {
		return nil, fmt.Errorf("%w: quiz ID and answer are required", ErrValidation)
	}

	session, err := s.store.FindByID(ctx, quizID, userID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrQuizNotFound
	}
	if session.Completed || session.Exhausted() {
		return nil, ErrQuizAlreadyCompleted
	}

	idx := session.Progress
	question := session.Questions[idx]
	isCorrect := answer == question.CorrectAnswer
	if isCorrect {
		session.CorrectCount++
	}

	// The cursor always moves on, right or wrong.
	session.Progress = idx + 1
	isLast := idx == session.TotalQuestions()-1
	if isLast {
		session.Completed = true
	}

	if err := s.store.Save(ctx, session, idx); err != nil {
		if errors.Is(err, ErrConcurrentUpdate) {
			s.log.Warn("Rejected stale answer", "quiz_id", quizID, "user_id", userID, "expected_progress", idx)
		}
		return nil, err
	}

	result := &models.AnswerResult{
		IsCorrect:      isCorrect,
		CorrectAnswer:  question.CorrectAnswer,
		Explanation:    question.Explanation,
		Score:          session.CorrectCount,
		Completed:      session.Completed,
		TotalQuestions: session.TotalQuestions(),
	}
	if isLast {
		s.history.Invalidate(ctx, userID)
		s.log.Info("Quiz completed", "quiz_id", quizID, "user_id", userID, "score", session.CorrectCount)
		s.notify(userID, EventQuizCompleted, result)
	} else {
		next := idx + 2
		result.NextQuestionNumber = &next
		s.notify(userID, EventAnswerResult, result)
	}
	return result, nil
}

// History returns the user's completed-quiz summary.
func (s *Service) History(ctx context.Context, userID string) (*models.HistorySummary, error) {
	return s.history.Summary(ctx, userID)
}

// SweepExhausted completes every session whose questions are all answered but
// whose completed flag never got written.
func (s *Service) SweepExhausted(ctx context.Context) (int64, error) {
	userIDs, n, err := s.store.CompleteExhausted(ctx)
	if err != nil {
		return 0, err
	}
	for _, userID := range userIDs {
		s.history.Invalidate(ctx, userID)
	}
	if n > 0 {
		s.log.Info("Completed exhausted quizzes", "count", n, "users", len(userIDs))
	}
	return n, nil
}

func (s *Service) markCompleted(ctx context.Context, session *models.QuizSession) error {
	session.Completed = true
	err := s.store.Save(ctx, session, session.Progress)
	if errors.Is(err, ErrConcurrentUpdate) {
		// Progress cannot move past the end, so whoever won also completed it.
		err = nil
	}
	if err != nil {
		return err
	}
	s.log.Info("Lazily completed quiz", "quiz_id", session.ID, "user_id", session.UserID)
	s.history.Invalidate(ctx, session.UserID)
	return nil
}

func (s *Service) notify(userID, messageType string, data interface{}) {
	if s.notifier != nil {
		s.notifier.SendToUser(userID, messageType, data)
	}
}
