package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"bible-quiz/internal/models"
	"bible-quiz/internal/testutil"
	"bible-quiz/pkg/logger"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const testSecret = "test-secret"

type recordingInvalidator struct {
	invalidated []string
}

func (r *recordingInvalidator) Invalidate(ctx context.Context, userID string) {
	r.invalidated = append(r.invalidated, userID)
}

func newTestService(t *testing.T) (*Service, *recordingInvalidator) {
	t.Helper()
	svc, history, _ := newTestServiceWithDB(t)
	return svc, history
}

func newTestServiceWithDB(t *testing.T) (*Service, *recordingInvalidator, *gorm.DB) {
	t.Helper()
	db := testutil.DB(t)
	history := &recordingInvalidator{}
	return NewService(NewRepository(db), history, testSecret, logger.Nop()), history, db
}

func seedQuizzes(t *testing.T, db *gorm.DB, userID string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		session := &models.QuizSession{
			ID:        uuid.NewString(),
			UserID:    userID,
			Questions: []models.Question{{Text: "Q", Options: []string{"a", "b", "c", "d"}, CorrectAnswer: "a", Explanation: "E"}},
		}
		if err := db.Create(session).Error; err != nil {
			t.Fatalf("seed quiz: %v", err)
		}
	}
}

func countQuizzes(t *testing.T, db *gorm.DB, userID string) int64 {
	t.Helper()
	var n int64
	if err := db.Model(&models.QuizSession{}).Where("user_id = ?", userID).Count(&n).Error; err != nil {
		t.Fatalf("count quizzes: %v", err)
	}
	return n
}

func TestRegisterValidatesInput(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name, username, email, password string
	}{
		{"missing username", " ", "a@example.com", "password123"},
		{"bad email", "alice", "not-an-email", "password123"},
		{"short password", "alice", "a@example.com", "short"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.username, tt.email, tt.password)
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("err = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestRegisterLoginAndParseToken(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "alice", "Alice@Example.com", "password123")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.ID == "" || user.Email != "alice@example.com" || user.Password == "password123" {
		t.Fatalf("unexpected user %#v", user)
	}

	if _, err := svc.Register(ctx, "alice", "other@example.com", "password123"); !errors.Is(err, ErrUserExists) {
		t.Fatalf("duplicate Register = %v, want ErrUserExists", err)
	}

	for _, login := range []string{"alice", "alice@example.com"} {
		token, err := svc.Login(ctx, login, "password123")
		if err != nil {
			t.Fatalf("Login(%s): %v", login, err)
		}
		userID, err := svc.ParseToken(token)
		if err != nil || userID != user.ID {
			t.Fatalf("ParseToken = %q, %v; want %q", userID, err, user.ID)
		}
	}

	if _, err := svc.Login(ctx, "alice", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password = %v, want ErrInvalidCredentials", err)
	}
	if _, err := svc.Login(ctx, "bob", "password123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown user = %v, want ErrInvalidCredentials", err)
	}
}

func TestParseTokenRejectsBadTokens(t *testing.T) {
	svc, _ := newTestService(t)

	sign := func(secret string, method jwt.SigningMethod, claims jwt.MapClaims) string {
		var key interface{} = []byte(secret)
		token, err := jwt.NewWithClaims(method, claims).SignedString(key)
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return token
	}
	valid := jwt.MapClaims{"user_id": "u1", "exp": time.Now().Add(time.Hour).Unix()}

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not.a.token"},
		{"wrong secret", sign("other-secret", jwt.SigningMethodHS256, valid)},
		{"expired", sign(testSecret, jwt.SigningMethodHS256, jwt.MapClaims{"user_id": "u1", "exp": time.Now().Add(-time.Hour).Unix()})},
		{"missing user", sign(testSecret, jwt.SigningMethodHS256, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.ParseToken(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("err = %v, want ErrInvalidToken", err)
			}
		})
	}

	if id, err := svc.ParseToken(sign(testSecret, jwt.SigningMethodHS256, valid)); err != nil || id != "u1" {
		t.Fatalf("valid token = %q, %v", id, err)
	}
}

func TestDeleteAccountRemovesQuizzesAndCachedHistory(t *testing.T) {
	svc, history, db := newTestServiceWithDB(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "alice", "alice@example.com", "password123")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	seedQuizzes(t, db, user.ID, 2)
	seedQuizzes(t, db, "someone-else", 1)

	if err := svc.DeleteAccount(ctx, user.ID); err != nil {
		t.Fatalf("DeleteAccount: %v", err)
	}
	if n := countQuizzes(t, db, user.ID); n != 0 {
		t.Fatalf("%d quizzes left for deleted user", n)
	}
	if n := countQuizzes(t, db, "someone-else"); n != 1 {
		t.Fatalf("other user's quizzes touched: %d left", n)
	}
	if len(history.invalidated) != 1 || history.invalidated[0] != user.ID {
		t.Fatalf("invalidated = %v", history.invalidated)
	}
	if _, err := svc.Login(ctx, "alice", "password123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("deleted user can still log in: %v", err)
	}
}

func TestDeleteAccountRollsBackWhenUserMissing(t *testing.T) {
	svc, history, db := newTestServiceWithDB(t)
	seedQuizzes(t, db, "ghost", 3)

	err := svc.DeleteAccount(context.Background(), "ghost")
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("DeleteAccount = %v, want ErrUserNotFound", err)
	}
	if n := countQuizzes(t, db, "ghost"); n != 3 {
		t.Fatalf("failed delete removed quizzes: %d left, want 3", n)
	}
	if len(history.invalidated) != 0 {
		t.Fatalf("failed delete should not touch the cache: %v", history.invalidated)
	}
}
