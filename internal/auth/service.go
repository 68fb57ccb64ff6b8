// internal/auth/service.go
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"bible-quiz/internal/models"
	"bible-quiz/pkg/logger"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrUserExists         = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
)

const (
	tokenTTL          = 24 * time.Hour
	minPasswordLength = 8
)

// HistoryInvalidator drops cached per-user quiz history.
type HistoryInvalidator interface {
	Invalidate(ctx context.Context, userID string)
}

type Service struct {
	repo      *Repository
	history   HistoryInvalidator
	jwtSecret []byte
	log       *logger.Logger
	now       func() time.Time
}

// NewService builds the auth service. history may be nil.
func NewService(repo *Repository, history HistoryInvalidator, jwtSecret string, log *logger.Logger) *Service {
	return &Service{
		repo:      repo,
		history:   history,
		jwtSecret: []byte(jwtSecret),
		log:       log.With("service", "AuthService"),
		now:       time.Now,
	}
}

func (s *Service) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: a valid email is required", ErrInvalidInput)
	}
	if len(password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}

	exists, err := s.repo.Exists(ctx, username, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrUserExists
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ID:       uuid.NewString(),
		Username: username,
		Email:    email,
		Password: string(hashedPassword),
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	s.log.Info("Registered user", "user_id", user.ID)
	return user, nil
}

func (s *Service) Login(ctx context.Context, login, password string) (string, error) {
	user, err := s.repo.GetUserByLogin(ctx, strings.TrimSpace(login))
	if errors.Is(err, ErrUserNotFound) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  user.ID,
		"username": user.Username,
		"exp":      s.now().Add(tokenTTL).Unix(),
	})
	return token.SignedString(s.jwtSecret)
}

// ParseToken validates an HS256 token and returns its user ID.
func (s *Service) ParseToken(tokenString string) (string, error) {
	if tokenString == "" {
		return "", ErrInvalidToken
	}
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}
	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return "", ErrInvalidToken
	}
	return userID, nil
}

// DeleteAccount removes the user together with their quizzes.
func (s *Service) DeleteAccount(ctx context.Context, userID string) error {
	n, err := s.repo.DeleteUser(ctx, userID)
	if err != nil {
		return err
	}
	s.log.Info("Deleted user", "user_id", userID, "quizzes", n)
	if s.history != nil {
		s.history.Invalidate(ctx, userID)
	}
	return nil
}
