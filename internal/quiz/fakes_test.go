package quiz

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"bible-quiz/internal/models"
)

type memStore struct {
	mu       sync.Mutex
	sessions map[string]models.QuizSession
	creates  int
	saves    int
	saveErr  error
}

func newMemStore() *memStore {
	return &memStore{sessions: make(map[string]models.QuizSession)}
}

func clone(s models.QuizSession) *models.QuizSession {
	c := s
	c.Questions = append(c.Questions[:0:0], s.Questions...)
	return &c
}

func (m *memStore) Create(ctx context.Context, session *models.QuizSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates++
	m.sessions[session.ID] = *clone(*session)
	return nil
}

func (m *memStore) FindActiveByUser(ctx context.Context, userID string) (*models.QuizSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *models.QuizSession
	for _, s := range m.sessions {
		if s.UserID != userID || s.Completed {
			continue
		}
		if latest == nil || s.CreatedAt.After(latest.CreatedAt) {
			latest = clone(s)
		}
	}
	return latest, nil
}

func (m *memStore) FindByID(ctx context.Context, id, userID string) (*models.QuizSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || s.UserID != userID {
		return nil, nil
	}
	return clone(s), nil
}

func (m *memStore) ListCompletedByUser(ctx context.Context, userID string, limit int) ([]models.QuizSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.QuizSession
	for _, s := range m.sessions {
		if s.UserID == userID && s.Completed {
			out = append(out, *clone(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) Save(ctx context.Context, session *models.QuizSession, expectedProgress int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	stored, ok := m.sessions[session.ID]
	if !ok || stored.UserID != session.UserID || stored.Progress != expectedProgress || stored.Completed {
		return ErrConcurrentUpdate
	}
	m.saves++
	stored.Progress = session.Progress
	stored.CorrectCount = session.CorrectCount
	stored.Completed = session.Completed
	m.sessions[session.ID] = stored
	return nil
}

func (m *memStore) CompleteExhausted(ctx context.Context) ([]string, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var (
		userIDs []string
		n       int64
	)
	seen := make(map[string]bool)
	for id, s := range m.sessions {
		if !s.Completed && s.Progress >= models.QuestionsPerQuiz {
			s.Completed = true
			m.sessions[id] = s
			n++
			if !seen[s.UserID] {
				seen[s.UserID] = true
				userIDs = append(userIDs, s.UserID)
			}
		}
	}
	return userIDs, n, nil
}

func (m *memStore) get(id string) models.QuizSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *clone(m.sessions[id])
}

// put overwrites a stored session, for setting up odd states directly.
func (m *memStore) put(s models.QuizSession) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = *clone(s)
}

type fakeSource struct {
	questions []models.Question
	err       error
	calls     int
	excluded  []string
	onCall    func()
}

func (f *fakeSource) Generate(ctx context.Context, exclude []string) ([]models.Question, error) {
	f.calls++
	f.excluded = append([]string(nil), exclude...)
	if f.onCall != nil {
		f.onCall()
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.questions, nil
}

type sentEvent struct {
	userID string
	kind   string
	data   interface{}
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []sentEvent
}

func (f *fakeNotifier) SendToUser(userID, messageType string, data interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, sentEvent{userID: userID, kind: messageType, data: data})
}

func (f *fakeNotifier) kinds() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.kind)
	}
	return out
}

type memCache struct {
	entries     map[string]*models.HistorySummary
	invalidated int
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string]*models.HistorySummary)}
}

func (c *memCache) GetHistory(ctx context.Context, userID string) (*models.HistorySummary, error) {
	s, ok := c.entries[userID]
	if !ok {
		return nil, fmt.Errorf("miss")
	}
	return s, nil
}

func (c *memCache) SetHistory(ctx context.Context, userID string, summary *models.HistorySummary) error {
	c.entries[userID] = summary
	return nil
}

func (c *memCache) InvalidateHistory(ctx context.Context, userID string) error {
	c.invalidated++
	delete(c.entries, userID)
	return nil
}

// sampleQuestions returns n well-formed questions whose correct answer is
// always "A<i>".
func sampleQuestions(n int) []models.Question {
	out := make([]models.Question, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, models.Question{
			Text:          fmt.Sprintf("Question %d", i+1),
			Options:       []string{fmt.Sprintf("A%d", i+1), "B", "C", "D"},
			CorrectAnswer: fmt.Sprintf("A%d", i+1),
			Explanation:   fmt.Sprintf("Explanation %d", i+1),
		})
	}
	return out
}
