package services

import (
	"context"
	"testing"

	"github.com/riosinforma/apiserver/internal/auth"
	"github.com/riosinforma/apiserver/internal/store"
	"github.com/riosinforma/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestUserService_SetRole(t *testing.T) {
	users := new(MockUserRepository)
	users.On("GetByEmail", mock.Anything, "ana@rios.com").Return(types.User{ID: 4, Role: types.RoleUser}, nil)
	users.On("GetByEmail", mock.Anything, "nadie@rios.com").Return(types.User{}, store.ErrNotFound)
	users.On("Update", mock.Anything, types.User{ID: 4, Role: types.RoleAdmin}).
		Return(types.User{ID: 4, Role: types.RoleAdmin}, nil)
	svc := NewUserService(users, auth.NewBcryptHasher(bcrypt.MinCost))

	updated, err := svc.SetRole(context.Background(), "ana@rios.com", types.RoleAdmin)
	require.NoError(t, err)
	assert.True(t, updated.IsAdmin())

	_, err = svc.SetRole(context.Background(), "nadie@rios.com", types.RoleAdmin)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.SetRole(context.Background(), "ana@rios.com", "root")
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestUserService_EnsureUser(t *testing.T) {
	users := new(MockUserRepository)
	users.On("GetByEmail", mock.Anything, "admin@rios.com").Return(types.User{}, store.ErrNotFound).Once()
	users.On("Create", mock.Anything, mock.MatchedBy(func(u types.User) bool {
		return u.Email == "admin@rios.com" && u.Role == types.RoleAdmin && u.PasswordHash != ""
	})).Return(types.User{ID: 1, Email: "admin@rios.com", Role: types.RoleAdmin}, nil).Once()
	users.On("GetByEmail", mock.Anything, "admin@rios.com").Return(types.User{ID: 1, Email: "admin@rios.com"}, nil)
	svc := NewUserService(users, auth.NewBcryptHasher(bcrypt.MinCost))

	_, created, err := svc.EnsureUser(context.Background(), "Administrador", "admin@rios.com", "admin123", types.RoleAdmin)
	require.NoError(t, err)
	assert.True(t, created)

	user, created, err := svc.EnsureUser(context.Background(), "Administrador", "admin@rios.com", "admin123", types.RoleAdmin)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 1, user.ID)
	users.AssertExpectations(t)
}

func TestUserService_DeleteByEmail(t *testing.T) {
	users := new(MockUserRepository)
	users.On("GetByEmail", mock.Anything, "ana@rios.com").Return(types.User{ID: 4}, nil)
	users.On("Delete", mock.Anything, 4).Return(nil)
	svc := NewUserService(users, auth.NewBcryptHasher(bcrypt.MinCost))

	require.NoError(t, svc.DeleteByEmail(context.Background(), "ana@rios.com"))
	users.AssertExpectations(t)
}
