package store

import (
	"context"
	"errors"
	"strings"

	"github.com/shelfkeeper/shelfkeeper/internal/domain"
)

const (
	userPrefix     = "user:"
	userEmailIndex = "email"
)

func (s *Store) initUsers() {
	s.Users = NewEntity[domain.User](s, userPrefix, ErrUserNotFound).
		WithIndex(userEmailIndex, func(u *domain.User) []string {
			return []string{normalizeEmail(u.Email)}
		}, normalizeEmail, ErrEmailExists)
}

// normalizeEmail lowercases and trims an address for index lookups.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateUser stores a new account. Emails are unique regardless of case.
func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	return s.Users.Create(ctx, user.ID, user)
}

// GetUser loads a user by ID. Soft-deleted users are not found.
func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.Users.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.IsDeleted() {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// GetUserByEmail loads a user by email address, ignoring case.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, err := s.Users.GetByIndex(ctx, userEmailIndex, email)
	if err != nil {
		return nil, err
	}
	if user.IsDeleted() {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// UpdateUser replaces an existing user and stamps UpdatedAt.
func (s *Store) UpdateUser(ctx context.Context, user *domain.User) error {
	if _, err := s.GetUser(ctx, user.ID); err != nil {
		return err
	}
	user.Touch()
	return s.Users.Update(ctx, user.ID, user)
}

// CountUsers returns the number of stored users, including soft-deleted ones.
func (s *Store) CountUsers(ctx context.Context) (int, error) {
	n := 0
	for _, err := range s.Users.List(ctx) {
		if err != nil {
			return 0, err
		}
		n++
	}
	return n, nil
}

// IsNotFound reports whether err is any store not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
