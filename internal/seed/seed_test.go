package seed

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/riosinforma/apiserver/internal/auth"
	"github.com/riosinforma/apiserver/internal/db"
	"github.com/riosinforma/apiserver/internal/logging"
	"github.com/riosinforma/apiserver/internal/services"
	"github.com/riosinforma/apiserver/internal/store"
	"github.com/riosinforma/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestSeeder(t *testing.T) (*Seeder, *store.ArticleRepository, auth.PasswordHasher) {
	t.Helper()
	ctx := context.Background()
	url := "sqlite://" + filepath.Join(t.TempDir(), "seed.db")
	require.NoError(t, db.MigrateUp(ctx, url))
	conn, _, err := db.Open(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	hasher := auth.NewBcryptHasher(bcrypt.MinCost)
	articles := store.NewArticleRepository(conn)
	users := services.NewUserService(store.NewUserRepository(conn), hasher)
	return New(users, articles, logging.Discard()), articles, hasher
}

func TestAdminIsIdempotent(t *testing.T) {
	seeder, _, hasher := newTestSeeder(t)
	ctx := context.Background()

	first, err := seeder.Admin(ctx, AdminName, AdminEmail, AdminPassword)
	require.NoError(t, err)
	assert.Equal(t, types.RoleAdmin, first.Role)
	assert.True(t, hasher.Verify(AdminPassword, first.PasswordHash))

	second, err := seeder.Admin(ctx, AdminName, AdminEmail, "otra-clave")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, hasher.Verify(AdminPassword, second.PasswordHash))
}

func TestNewsRequiresAuthor(t *testing.T) {
	seeder, _, _ := newTestSeeder(t)

	_, err := seeder.News(context.Background(), AdminEmail)
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestNewsSeedsOnlyEmptyTable(t *testing.T) {
	seeder, articles, _ := newTestSeeder(t)
	ctx := context.Background()

	admin, err := seeder.Admin(ctx, AdminName, AdminEmail, AdminPassword)
	require.NoError(t, err)

	created, err := seeder.News(ctx, AdminEmail)
	require.NoError(t, err)
	assert.Equal(t, len(sampleNews), created)

	created, err = seeder.News(ctx, AdminEmail)
	require.NoError(t, err)
	assert.Zero(t, created)

	items, total, err := articles.List(ctx, types.ArticleFilter{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, len(sampleNews), total)
	require.Len(t, items, len(sampleNews))
	assert.Equal(t, sampleNews[0].title, items[0].Title)
	assert.Equal(t, admin.ID, items[0].AuthorID)
	assert.Equal(t, AdminName, items[0].AuthorName)
	assert.Equal(t, sampleNews[0].image, items[0].Image())
}
