// internal/models/dto.go
package models

import "time"

// QuestionView is what a player sees before answering.
type QuestionView struct {
	Text    string   `json:"question"`
	Options []string `json:"options"`
}

func (q Question) ToView() QuestionView {
	options := make([]string, len(q.Options))
	copy(options, q.Options)
	return QuestionView{
		Text:    q.Text,
		Options: options,
	}
}

type StartResult struct {
	QuizID          string       `json:"quizId"`
	CurrentQuestion QuestionView `json:"currentQuestion"`
}

// QuizState is either a question view (Completed == false) or a completed view.
type QuizState struct {
	QuizID          string        `json:"quizId"`
	Completed       bool          `json:"completed"`
	CurrentQuestion *QuestionView `json:"currentQuestion,omitempty"`
	QuestionNumber  int           `json:"questionNumber,omitempty"`
	TotalQuestions  int           `json:"totalQuestions"`
	Score           int           `json:"score"`
}

type AnswerResult struct {
	IsCorrect          bool   `json:"isCorrect"`
	CorrectAnswer      string `json:"correctAnswer"`
	Explanation        string `json:"explanation"`
	Score              int    `json:"score"`
	Completed          bool   `json:"completed"`
	NextQuestionNumber *int   `json:"nextQuestionNumber"`
	TotalQuestions     int    `json:"totalQuestions"`
}

type HistoryEntry struct {
	ID             string    `json:"id"`
	Score          int       `json:"score"`
	Answered       int       `json:"answered"`
	TotalQuestions int       `json:"totalQuestions"`
	CreatedAt      time.Time `json:"createdAt"`
}

type HistoryStats struct {
	TotalScore   int     `json:"totalScore"`
	TotalQuizzes int     `json:"totalQuizzes"`
	AverageScore float64 `json:"averageScore"`
}

type HistorySummary struct {
	Quizzes []HistoryEntry `json:"quizzes"`
	Stats   HistoryStats   `json:"stats"`
}
