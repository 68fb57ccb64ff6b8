package questions

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"bible-quiz/internal/config"
	"bible-quiz/internal/models"
	"bible-quiz/pkg/logger"
)

const (
	chatCompletionsPath = "/v1/chat/completions"
	maxTokens           = 2000
	// Only the most recent texts go into the prompt so it stays bounded.
	maxExcluded = 100
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
	MaxTokens      int               `json:"max_tokens,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Source asks an OpenAI-compatible chat completions endpoint for quiz questions.
type Source struct {
	baseURL    string
	apiKey     string
	model      string
	timeout    time.Duration
	httpClient *http.Client
	log        *logger.Logger
}

func NewSource(cfg config.OpenAIConfig, log *logger.Logger) (*Source, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("openai: base url required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		return nil, errors.New("openai: model required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	return &Source{
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(cfg.APIKey),
		model:      model,
		timeout:    timeout,
		httpClient: &http.Client{Transport: tr},
		log:        log.With("component", "QuestionSource"),
	}, nil
}

// NewSourceWithHTTPClient swaps the transport, mostly for tests.
func NewSourceWithHTTPClient(cfg config.OpenAIConfig, httpClient *http.Client, log *logger.Logger) (*Source, error) {
	s, err := NewSource(cfg, log)
	if err != nil {
		return nil, err
	}
	if httpClient != nil {
		s.httpClient = httpClient
	}
	return s, nil
}

// Generate requests a fresh batch of questions. The returned questions are
// parsed but not repaired; callers enforce the quiz invariants.
func (s *Source) Generate(ctx context.Context, exclude []string) ([]models.Question, error) {
	req := chatCompletionRequest{
		Model:          s.model,
		Messages:       []chatMessage{{Role: "user", Content: BuildPrompt(exclude)}},
		ResponseFormat: map[string]string{"type": "json_object"},
		MaxTokens:      maxTokens,
	}

	content, err := s.complete(ctx, req)
	if err != nil {
		return nil, err
	}

	switch res := Parse(content).(type) {
	case ParsedOK:
		s.log.Debug("Parsed generated questions", "count", len(res.Questions))
		return res.Questions, nil
	case ParseFailed:
		s.log.Warn("Unusable model output", "reason", res.Reason, "raw_length", len(res.Raw))
		return nil, fmt.Errorf("parse model output: %w", res.Reason)
	default:
		return nil, errors.New("parse model output: unknown result")
	}
}

func (s *Source) complete(ctx context.Context, body chatCompletionRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	payload, err := json.Marshal(body)
	if err != nil {
		return "", err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+chatCompletionsPath, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	start := time.Now()
	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("openai request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("openai read body: %w", err)
	}
	s.log.Debug("Chat completion finished", "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("openai status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out chatCompletionResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("openai decode response: %w", err)
	}
	if out.Error != nil && out.Error.Message != "" {
		return "", fmt.Errorf("openai error: %s", out.Error.Message)
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return "", errors.New("openai returned no content")
	}
	return out.Choices[0].Message.Content, nil
}

const promptTemplate = `Generate %d Bible quiz questions. Each question should be a fill-in-the-blank format from Bible verses.
For each question, provide %d possible answers (one correct and three incorrect), and an explanation of why the correct answer is right.

Make sure the questions cover different parts of the Bible (Old and New Testament).
Ensure the options are plausible but only one is correct.
The explanation should provide the full verse and reference.
%s
Return the response in this exact JSON format:
{
  "questions": [
    {
      "question": "Fill in the blank: 'For God so loved the world, that he gave his only begotten Son, that whosoever believeth in him should not ___.'",
      "options": ["perish", "die", "suffer", "fall"],
      "correctAnswer": "perish",
      "explanation": "The full verse is John 3:16: 'For God so loved the world, that he gave his only begotten Son, that whosoever believeth in him should not perish, but have everlasting life.'"
    }
  ]
}`

// BuildPrompt renders the generation prompt, listing questions the user has
// already seen so the model avoids repeating them.
func BuildPrompt(exclude []string) string {
	if len(exclude) > maxExcluded {
		exclude = exclude[:maxExcluded]
	}

	var avoid strings.Builder
	seen := make(map[string]bool, len(exclude))
	for _, text := range exclude {
		text = strings.TrimSpace(text)
		if text == "" || seen[text] {
			continue
		}
		seen[text] = true
		if avoid.Len() == 0 {
			avoid.WriteString("\nDo not repeat any of these previously asked questions:\n")
		}
		avoid.WriteString("- ")
		avoid.WriteString(text)
		avoid.WriteString("\n")
	}

	return fmt.Sprintf(promptTemplate, models.QuestionsPerQuiz, models.OptionsPerQuestion, avoid.String())
}
