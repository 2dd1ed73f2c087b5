package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cassation-api/internal/domain"
	"cassation-api/internal/repository"
)

func newUserRepo(t *testing.T) repository.UserRepository {
	t.Helper()
	repo := NewUserRepository(setupDB(t))
	require.NoError(t, repo.Init(context.Background()))
	return repo
}

func TestUserRepository_CreateAndGet(t *testing.T) {
	repo := newUserRepo(t)
	ctx := context.Background()

	u := &domain.User{Username: "alice", Email: "alice@example.com", PasswordHash: "hash"}
	id, err := repo.Create(ctx, u)
	require.NoError(t, err)
	assert.Positive(t, id)
	assert.False(t, u.CreatedAt.IsZero())

	byEmail, err := repo.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, id, byEmail.ID)
	assert.Equal(t, "alice", byEmail.Username)
	assert.Equal(t, "hash", byEmail.PasswordHash)

	byID, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", byID.Email)
}

func TestUserRepository_UniqueConstraints(t *testing.T) {
	repo := newUserRepo(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, &domain.User{Username: "bob", Email: "bob@example.com", PasswordHash: "h"})
	require.NoError(t, err)

	_, err = repo.Create(ctx, &domain.User{Username: "bob", Email: "other@example.com", PasswordHash: "h"})
	require.ErrorIs(t, err, repository.ErrUserExists)

	_, err = repo.Create(ctx, &domain.User{Username: "bobby", Email: "bob@example.com", PasswordHash: "h"})
	require.ErrorIs(t, err, repository.ErrUserExists)
}

func TestUserRepository_NotFound(t *testing.T) {
	repo := newUserRepo(t)

	_, err := repo.GetByEmail(context.Background(), "nobody@example.com")
	require.ErrorIs(t, err, repository.ErrUserNotFound)
}
