// Package session holds the signed-in user on the client side. A Session is
// loaded once and handed to every component that needs it.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/mcclellann/backoffice/pkg/models"
)

// ErrNoSession is returned by Load when nobody is signed in.
var ErrNoSession = errors.New("not signed in")

type Action string

const (
	ActionView   Action = "view"
	ActionCreate Action = "create"
	ActionEdit   Action = "edit"
	ActionDelete Action = "delete"
)

type User struct {
	ID       uuid.UUID   `json:"id"`
	Username string      `json:"username"`
	Email    string      `json:"email"`
	Role     models.Role `json:"role"`
}

type Session struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// FromUser builds a session from a freshly issued token.
func FromUser(token string, u *models.User) *Session {
	return &Session{
		Token: token,
		User:  User{ID: u.ID, Username: u.Username, Email: u.Email, Role: u.Role},
	}
}

func (s *Session) IsAdmin() bool {
	return s != nil && s.User.Role == models.RoleAdmin
}

// Allows reports whether the session may perform the action. Viewing and
// creating need any signed-in user; editing and deleting need an admin.
func (s *Session) Allows(a Action) bool {
	if s == nil || s.Token == "" {
		return false
	}
	switch a {
	case ActionView, ActionCreate:
		return true
	case ActionEdit, ActionDelete:
		return s.IsAdmin()
	}
	return false
}

// Load reads the session file. A missing file yields ErrNoSession.
func Load(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	if s.Token == "" {
		return nil, ErrNoSession
	}
	return &s, nil
}

// Save writes the session file, readable by the owner only.
func Save(path string, s *Session) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("failed to create session directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	return nil
}

// Clear signs out. Clearing an absent session is not an error.
func Clear(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
