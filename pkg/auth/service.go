package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mcclellann/backoffice/internal/logger"
	"github.com/mcclellann/backoffice/pkg/models"
	"github.com/mcclellann/backoffice/pkg/store"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
)

const minPasswordLength = 6

// UserStore is the slice of storage the auth service needs. CreateUser
// decides an empty Role in the same write that stores the user: admin when
// no user exists yet, user otherwise.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

// RegisterInput is a sign-up request.
type RegisterInput struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResult is what a successful login hands back to the client.
type LoginResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *models.User `json:"user"`
}

// Service registers users and logs them in.
type Service struct {
	users  UserStore
	tokens *TokenService
	cost   int
	log    zerolog.Logger
}

func NewService(users UserStore, tokens *TokenService) *Service {
	return &Service{
		users:  users,
		tokens: tokens,
		cost:   bcrypt.DefaultCost,
		log:    logger.WithComponent("auth"),
	}
}

// Register creates a user. The first account ever created is the admin.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" {
		return nil, ErrInvalidCredentials
	}
	if len(in.Password) < minPasswordLength {
		return nil, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	u := &models.User{
		Username:     username,
		Email:        strings.TrimSpace(in.Email),
		PasswordHash: string(hash),
		CreatedAt:    time.Now(),
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}

	s.log.Info().Str("username", u.Username).Str("role", string(u.Role)).Msg("user registered")
	return u, nil
}

// Login checks the password and issues an access token.
func (s *Service) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	u, err := s.users.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		s.log.Warn().Str("username", u.Username).Msg("failed login")
		return nil, ErrInvalidCredentials
	}

	token, expires, err := s.tokens.Issue(u)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}
	return &LoginResult{Token: token, ExpiresAt: expires, User: u}, nil
}
