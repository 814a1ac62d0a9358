package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/riosinforma/apiserver/internal/auth"
	"github.com/riosinforma/apiserver/internal/store"
	"github.com/riosinforma/apiserver/types"
)

// DefaultAvatar is assigned to newly registered users.
const DefaultAvatar = "https://images.unsplash.com/photo-1472099645785-5658abf4ff4e?w=100&h=100&fit=crop&crop=face"

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	List(ctx context.Context) ([]types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	Update(ctx context.Context, user types.User) (types.User, error)
	Delete(ctx context.Context, id int) error
}

// TokenService issues and verifies access tokens.
type TokenService interface {
	Issue(userID int, now time.Time) (string, error)
	Verify(token string, now time.Time) (auth.Claims, error)
}

// RegisterInput is the payload accepted by Register.
type RegisterInput struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email,max=120"`
	Password string `json:"password" validate:"required,min=6"`
}

// LoginInput is the payload accepted by Login.
type LoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// AuthResult is a user together with a freshly issued token.
type AuthResult struct {
	User  types.User
	Token string
}

// AuthService encapsulates registration, login and token checks.
type AuthService struct {
	users        UserRepository
	hasher       auth.PasswordHasher
	tokens       TokenService
	blacklist    auth.TokenBlacklist
	registerRole string
	now          func() time.Time
}

func NewAuthService(
	users UserRepository,
	hasher auth.PasswordHasher,
	tokens TokenService,
	blacklist auth.TokenBlacklist,
	registerRole string,
) *AuthService {
	if registerRole != types.RoleAdmin && registerRole != types.RoleUser {
		registerRole = types.RoleAdmin
	}
	return &AuthService{
		users:        users,
		hasher:       hasher,
		tokens:       tokens,
		blacklist:    blacklist,
		registerRole: registerRole,
		now:          time.Now,
	}
}

// Register creates an account with the configured registration role and
// returns it with a token.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (AuthResult, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	if err := validateStruct(in); err != nil {
		return AuthResult{}, err
	}

	if _, err := s.users.GetByEmail(ctx, in.Email); err == nil {
		return AuthResult{}, ErrEmailTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return AuthResult{}, fmt.Errorf("check email: %w", err)
	}

	hashed, err := s.hasher.Hash(in.Password)
	if err != nil {
		return AuthResult{}, fmt.Errorf("hash password: %w", err)
	}

	avatar := DefaultAvatar
	user, err := s.users.Create(ctx, types.User{
		Name:         in.Name,
		Email:        in.Email,
		Role:         s.registerRole,
		Avatar:       &avatar,
		PasswordHash: hashed,
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return AuthResult{}, ErrEmailTaken
		}
		return AuthResult{}, fmt.Errorf("create user: %w", err)
	}

	token, err := s.tokens.Issue(user.ID, s.now())
	if err != nil {
		return AuthResult{}, fmt.Errorf("issue token: %w", err)
	}
	return AuthResult{User: user, Token: token}, nil
}

// Login checks credentials. Unknown emails and wrong passwords are
// indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (AuthResult, error) {
	in.Email = strings.TrimSpace(in.Email)
	if err := validateStruct(in); err != nil {
		return AuthResult{}, err
	}

	user, err := s.users.GetByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return AuthResult{}, ErrInvalidCredentials
		}
		return AuthResult{}, fmt.Errorf("load user: %w", err)
	}
	if !s.hasher.Verify(in.Password, user.PasswordHash) {
		return AuthResult{}, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID, s.now())
	if err != nil {
		return AuthResult{}, fmt.Errorf("issue token: %w", err)
	}
	return AuthResult{User: user, Token: token}, nil
}

// Authenticate resolves a bearer token to its user. Every failure wraps
// ErrUnauthorized; token errors are wrapped too so callers can log them.
func (s *AuthService) Authenticate(ctx context.Context, token string) (types.User, error) {
	user, _, err := s.authenticate(ctx, token)
	return user, err
}

func (s *AuthService) authenticate(ctx context.Context, token string) (types.User, auth.Claims, error) {
	claims, err := s.tokens.Verify(token, s.now())
	if err != nil {
		return types.User{}, auth.Claims{}, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}

	if s.blacklist != nil {
		revoked, err := s.blacklist.IsRevoked(ctx, claims.TokenID)
		if err != nil {
			return types.User{}, auth.Claims{}, fmt.Errorf("check revocation: %w", err)
		}
		if revoked {
			return types.User{}, auth.Claims{}, fmt.Errorf("%w: token revoked", ErrUnauthorized)
		}
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, auth.Claims{}, fmt.Errorf("%w: subject no longer exists", ErrUnauthorized)
		}
		return types.User{}, auth.Claims{}, fmt.Errorf("load user: %w", err)
	}
	return user, claims, nil
}

// RequireRole returns ErrForbidden unless user holds role.
func (s *AuthService) RequireRole(user types.User, role string) error {
	if role != "" && user.Role != role {
		return ErrForbidden
	}
	return nil
}

// Authorize authenticates token and, when role is not empty, requires it.
func (s *AuthService) Authorize(ctx context.Context, token, role string) (types.User, error) {
	user, err := s.Authenticate(ctx, token)
	if err != nil {
		return types.User{}, err
	}
	if err := s.RequireRole(user, role); err != nil {
		return types.User{}, err
	}
	return user, nil
}

// Logout revokes token until it would have expired.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	_, claims, err := s.authenticate(ctx, token)
	if err != nil {
		return err
	}
	if s.blacklist == nil {
		return nil
	}
	ttl := claims.ExpiresAt.Sub(s.now())
	if err := s.blacklist.Revoke(ctx, claims.TokenID, ttl); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}
