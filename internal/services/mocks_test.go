package services

import (
	"context"
	"io"
	"time"

	"github.com/riosinforma/apiserver/types"
	"github.com/stretchr/testify/mock"
)

// MockUserRepository is a mock implementation of UserRepository.
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, id int) (types.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(types.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(types.User), args.Error(1)
}

func (m *MockUserRepository) List(ctx context.Context) ([]types.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.User), args.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	args := m.Called(ctx, user)
	return args.Get(0).(types.User), args.Error(1)
}

func (m *MockUserRepository) Update(ctx context.Context, user types.User) (types.User, error) {
	args := m.Called(ctx, user)
	return args.Get(0).(types.User), args.Error(1)
}

func (m *MockUserRepository) Delete(ctx context.Context, id int) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockArticleRepository is a mock implementation of ArticleRepository.
// UpdateWith and DeleteWith run the callback against the configured article
// the way the SQL repository does inside its transaction.
type MockArticleRepository struct {
	mock.Mock
}

func (m *MockArticleRepository) List(ctx context.Context, filter types.ArticleFilter) ([]types.Article, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]types.Article), args.Int(1), args.Error(2)
}

func (m *MockArticleRepository) Get(ctx context.Context, id int) (types.Article, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(types.Article), args.Error(1)
}

func (m *MockArticleRepository) Create(ctx context.Context, article types.Article) (types.Article, error) {
	args := m.Called(ctx, article)
	return args.Get(0).(types.Article), args.Error(1)
}

func (m *MockArticleRepository) UpdateWith(ctx context.Context, id int, mutate func(*types.Article) error) (types.Article, error) {
	args := m.Called(ctx, id)
	if err := args.Error(1); err != nil {
		return types.Article{}, err
	}
	article := args.Get(0).(types.Article)
	if err := mutate(&article); err != nil {
		return types.Article{}, err
	}
	return article, nil
}

func (m *MockArticleRepository) DeleteWith(ctx context.Context, id int, check func(types.Article) error) error {
	args := m.Called(ctx, id)
	if err := args.Error(1); err != nil {
		return err
	}
	return check(args.Get(0).(types.Article))
}

// MockBlacklist is a mock implementation of auth.TokenBlacklist.
type MockBlacklist struct {
	mock.Mock
}

func (m *MockBlacklist) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	args := m.Called(ctx, tokenID, ttl)
	return args.Error(0)
}

func (m *MockBlacklist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	args := m.Called(ctx, tokenID)
	return args.Bool(0), args.Error(1)
}

// MockObjectStore is a mock implementation of ObjectStore.
type MockObjectStore struct {
	mock.Mock
}

func (m *MockObjectStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	args := m.Called(ctx, key, size, contentType)
	return args.Error(0)
}

func (m *MockObjectStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}
