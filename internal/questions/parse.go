package questions

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"bible-quiz/internal/models"
)

// ParseResult is either ParsedOK or ParseFailed.
type ParseResult interface {
	isParseResult()
}

type ParsedOK struct {
	Questions []models.Question
}

// ParseFailed keeps the raw model output so callers can log or fall back on it.
type ParseFailed struct {
	Raw    string
	Reason error
}

func (ParsedOK) isParseResult()    {}
func (ParseFailed) isParseResult() {}

var (
	textKeys        = []string{"question", "text", "prompt"}
	optionKeys      = []string{"options", "choices", "answers"}
	correctKeys     = []string{"correctanswer", "answer", "correct", "correctoption"}
	explanationKeys = []string{"explanation", "reason", "rationale"}
	listKeys        = []string{"questions", "quiz", "items", "data"}
)

// Parse reads a model response into questions. Key casing and separators are
// ignored, code fences and surrounding prose are stripped, and both a bare
// array and an object wrapping one are accepted. No repair happens here.
func Parse(raw string) ParseResult {
	cleaned := extractJSON(raw)
	if cleaned == "" {
		return ParseFailed{Raw: raw, Reason: errors.New("no JSON found in response")}
	}

	var payload interface{}
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return ParseFailed{Raw: raw, Reason: fmt.Errorf("decode response: %w", err)}
	}

	items, ok := questionList(payload)
	if !ok {
		return ParseFailed{Raw: raw, Reason: errors.New("response has no question list")}
	}

	questions := make([]models.Question, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		questions = append(questions, toQuestion(normalizeKeys(obj)))
	}
	if len(questions) == 0 {
		return ParseFailed{Raw: raw, Reason: errors.New("question list is empty")}
	}
	return ParsedOK{Questions: questions}
}

func extractJSON(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	s = strings.TrimSpace(s)

	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return ""
	}
	end := strings.LastIndexAny(s, "}]")
	if end < start {
		return ""
	}
	return s[start : end+1]
}

func questionList(payload interface{}) ([]interface{}, bool) {
	switch v := payload.(type) {
	case []interface{}:
		return v, true
	case map[string]interface{}:
		obj := normalizeKeys(v)
		for _, key := range listKeys {
			if list, ok := obj[key].([]interface{}); ok {
				return list, true
			}
		}
		// A single question object on its own.
		if _, ok := lookupString(obj, textKeys); ok {
			return []interface{}{v}, true
		}
	}
	return nil, false
}

func toQuestion(obj map[string]interface{}) models.Question {
	q := models.Question{}
	q.Text, _ = lookupString(obj, textKeys)
	q.Explanation, _ = lookupString(obj, explanationKeys)

	for _, key := range optionKeys {
		if list, ok := obj[key].([]interface{}); ok {
			for _, opt := range list {
				if s := scalarString(opt); s != "" {
					q.Options = append(q.Options, s)
				}
			}
			break
		}
	}

	for _, key := range correctKeys {
		val, ok := obj[key]
		if !ok {
			continue
		}
		q.CorrectAnswer = scalarString(val)
		if containsString(q.Options, q.CorrectAnswer) {
			break
		}
		// Some responses give the index of the correct option instead of its text.
		if idx, isNum := val.(float64); isNum && idx >= 0 && int(idx) < len(q.Options) && idx == float64(int(idx)) {
			q.CorrectAnswer = q.Options[int(idx)]
		}
		break
	}
	return q
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func normalizeKeys(obj map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(obj))
	for k, v := range obj {
		out[normalizeKey(k)] = v
	}
	return out
}

func normalizeKey(k string) string {
	k = strings.ToLower(strings.TrimSpace(k))
	return strings.NewReplacer("_", "", "-", "", " ", "").Replace(k)
}

func lookupString(obj map[string]interface{}, keys []string) (string, bool) {
	for _, key := range keys {
		if v, ok := obj[key]; ok {
			if s := scalarString(v); s != "" {
				return s, true
			}
		}
	}
	return "", false
}

func scalarString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64, bool:
		return fmt.Sprint(t)
	default:
		return ""
	}
}
