package quiz

import "errors"

var (
	ErrValidation           = errors.New("validation error")
	ErrNoActiveQuiz         = errors.New("no active quiz")
	ErrQuizNotFound         = errors.New("quiz not found")
	ErrQuizAlreadyCompleted = errors.New("quiz already completed")
	ErrGenerationFailure    = errors.New("failed to generate quiz questions")
	ErrConcurrentUpdate     = errors.New("quiz was modified by another request")
)
