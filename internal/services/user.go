package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/riosinforma/apiserver/internal/auth"
	"github.com/riosinforma/apiserver/internal/store"
	"github.com/riosinforma/apiserver/types"
)

// UserService encapsulates operator use-cases on accounts.
type UserService struct {
	repo   UserRepository
	hasher auth.PasswordHasher
}

func NewUserService(repo UserRepository, hasher auth.PasswordHasher) *UserService {
	return &UserService{repo: repo, hasher: hasher}
}

func (s *UserService) List(ctx context.Context) ([]types.User, error) {
	return s.repo.List(ctx)
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (types.User, error) {
	user, err := s.repo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return types.User{}, mapStoreError(err)
	}
	return user, nil
}

// SetRole changes the role of the account registered with email.
func (s *UserService) SetRole(ctx context.Context, email, role string) (types.User, error) {
	if role != types.RoleAdmin && role != types.RoleUser {
		return types.User{}, newValidationError("role", "debe ser uno de: admin user")
	}
	user, err := s.GetByEmail(ctx, email)
	if err != nil {
		return types.User{}, err
	}
	if user.Role == role {
		return user, nil
	}
	user.Role = role
	updated, err := s.repo.Update(ctx, user)
	if err != nil {
		return types.User{}, mapStoreError(err)
	}
	return updated, nil
}

// DeleteByEmail removes the account and, through the cascade, its articles.
func (s *UserService) DeleteByEmail(ctx context.Context, email string) error {
	user, err := s.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	return mapStoreError(s.repo.Delete(ctx, user.ID))
}

// EnsureUser creates the account unless the email is already registered.
// It reports whether a new account was created.
func (s *UserService) EnsureUser(ctx context.Context, name, email, password, role string) (types.User, bool, error) {
	existing, err := s.repo.GetByEmail(ctx, email)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return types.User{}, false, fmt.Errorf("check user: %w", err)
	}

	hashed, err := s.hasher.Hash(password)
	if err != nil {
		return types.User{}, false, fmt.Errorf("hash password: %w", err)
	}
	avatar := DefaultAvatar
	user, err := s.repo.Create(ctx, types.User{
		Name:         name,
		Email:        email,
		Role:         role,
		Avatar:       &avatar,
		PasswordHash: hashed,
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return types.User{}, false, ErrEmailTaken
		}
		return types.User{}, false, fmt.Errorf("create user: %w", err)
	}
	return user, true, nil
}
