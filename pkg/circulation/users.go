package circulation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"libraryms/pkg/models"
	"libraryms/pkg/store"
)

func (s *Service) RegisterUser(ctx context.Context, user models.User) (*models.User, error) {
	user.Username = strings.TrimSpace(user.Username)
	if user.Username == "" || user.Password == "" {
		return nil, fmt.Errorf("username and password are required: %w", store.ErrInvalidArgument)
	}
	user.ID = 0
	user.Role = models.RoleMember
	err := s.inTx(ctx, func(t *txn) error {
		_, err := t.Users.GetByUsername(user.Username)
		if err == nil {
			return fmt.Errorf("username %q is taken: %w", user.Username, ErrRuleViolation)
		}
		if !errors.Is(err, store.ErrNotFound) {
			return err
		}
		return t.Users.Add(&user)
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Login compares the stored password as-is.
func (s *Service) Login(ctx context.Context, username, password string) (Session, error) {
	user, err := s.read(ctx).Users.GetByUsername(username)
	if errors.Is(err, store.ErrNotFound) {
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}
	if user.Password != password {
		return Session{}, ErrInvalidCredentials
	}
	return NewSession(*user), nil
}

// SessionFor resolves a session for an already authenticated username.
func (s *Service) SessionFor(ctx context.Context, username string) (Session, error) {
	user, err := s.read(ctx).Users.GetByUsername(username)
	if err != nil {
		return Session{}, err
	}
	return NewSession(*user), nil
}
