package quiz

import (
	"fmt"
	"strings"

	"bible-quiz/internal/models"
)

// SanitizeQuestions repairs generated questions and returns the first
// QuestionsPerQuiz usable ones. Fewer than that is a generation failure.
func SanitizeQuestions(raw []models.Question) ([]models.Question, error) {
	questions := make([]models.Question, 0, models.QuestionsPerQuiz)
	for _, q := range raw {
		if len(questions) == models.QuestionsPerQuiz {
			break
		}
		repaired, ok := RepairQuestion(q)
		if !ok {
			continue
		}
		questions = append(questions, repaired)
	}
	if len(questions) < models.QuestionsPerQuiz {
		return nil, fmt.Errorf("%w: got %d usable questions, need %d",
			ErrGenerationFailure, len(questions), models.QuestionsPerQuiz)
	}
	return questions, nil
}

// RepairQuestion enforces the four-distinct-options invariant with the correct
// answer among them. It reports false when the question has no text, correct
// answer or explanation, which cannot be made up.
func RepairQuestion(q models.Question) (models.Question, bool) {
	text := strings.TrimSpace(q.Text)
	correct := strings.TrimSpace(q.CorrectAnswer)
	explanation := strings.TrimSpace(q.Explanation)
	if text == "" || correct == "" || explanation == "" {
		return models.Question{}, false
	}

	seen := make(map[string]bool, len(q.Options))
	options := make([]string, 0, models.OptionsPerQuestion)
	for _, opt := range q.Options {
		opt = strings.TrimSpace(opt)
		if opt == "" || seen[opt] {
			continue
		}
		seen[opt] = true
		options = append(options, opt)
		if len(options) == models.OptionsPerQuestion {
			break
		}
	}

	for n := len(options) + 1; len(options) < models.OptionsPerQuestion; n++ {
		filler := fmt.Sprintf("Option %d", n)
		if seen[filler] || filler == correct {
			continue
		}
		seen[filler] = true
		options = append(options, filler)
	}

	if !seen[correct] {
		options[0] = correct
	}

	return models.Question{
		Text:          text,
		Options:       options,
		CorrectAnswer: correct,
		Explanation:   explanation,
	}, true
}
