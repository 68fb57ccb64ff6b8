// internal/models/quiz.go
package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	QuestionsPerQuiz   = 10
	OptionsPerQuestion = 4
)

type Question struct {
	Text          string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
	Explanation   string   `json:"explanation"`
}

// QuizSession is one user's ten-question attempt. Questions never change after
// creation; Progress is the index of the next unanswered question and
// CorrectCount the number of those answered correctly.
type QuizSession struct {
	ID           string                        `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID       string                        `json:"userId" gorm:"type:varchar(36);not null;index:idx_quiz_user_completed"`
	Questions    datatypes.JSONSlice[Question] `json:"questions" gorm:"not null"`
	Progress     int                           `json:"progress" gorm:"not null;default:0"`
	CorrectCount int                           `json:"correctCount" gorm:"not null;default:0"`
	Completed    bool                          `json:"completed" gorm:"not null;default:false;index:idx_quiz_user_completed"`
	CreatedAt    time.Time                     `json:"createdAt" gorm:"index"`
	UpdatedAt    time.Time                     `json:"updatedAt"`
}

func (QuizSession) TableName() string {
	return "quiz_sessions"
}

func (s *QuizSession) TotalQuestions() int {
	return len(s.Questions)
}

// Exhausted reports whether every question has been answered, regardless of
// whether Completed has been flipped yet.
func (s *QuizSession) Exhausted() bool {
	return s.Progress >= len(s.Questions)
}
