package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/crewlane/memberd/internal/member/domain"
	"github.com/crewlane/memberd/internal/member/store"
	"github.com/crewlane/memberd/pkg/slogx"
)

var (
	ErrInvalidUserRecord = errors.New("invalid user record")
	ErrEmailTaken        = errors.New("email belongs to a different user")
)

// UserService maintains the directory mirror of the external auth system.
// The auth service pushes records on signup and profile change; memberd
// only reads them.
type UserService struct {
	Store store.Store
}

// Upsert inserts or refreshes a directory record. The id is the auth
// system's user id and is authoritative; email moves with the user.
func (s *UserService) Upsert(ctx context.Context, id, email, name string) (domain.User, error) {
	log := slogx.FromContext(ctx)

	id = strings.TrimSpace(id)
	normalized, ok := normalizeEmail(email)
	if id == "" || !ok {
		return domain.User{}, ErrInvalidUserRecord
	}

	u := domain.User{
		ID:    id,
		Email: normalized,
		Name:  strings.TrimSpace(name),
	}

	if err := s.Store.Users().UpsertUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			// The email unique index tripped on a different id.
			return domain.User{}, ErrEmailTaken
		}
		log.Error("failed to upsert user", slog.Any("error", err))
		return domain.User{}, err
	}

	log.Debug("user record upserted", slog.String("user_id", id))
	return s.Store.Users().GetUserByID(ctx, id)
}

// Get returns a directory record by id.
func (s *UserService) Get(ctx context.Context, id string) (domain.User, error) {
	u, err := s.Store.Users().GetUserByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return domain.User{}, ErrUnknownUser
	}
	return u, err
}

// Delete removes a directory record. Memberships cascade away with it.
func (s *UserService) Delete(ctx context.Context, id string) error {
	err := s.Store.Users().DeleteUser(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return ErrUnknownUser
	}
	if err != nil {
		return err
	}

	slogx.FromContext(ctx).Info("user record deleted", slog.String("user_id", id))
	return nil
}
