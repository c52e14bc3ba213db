package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/premium_bot/internal/testutil"
)

func TestRegisteredUserRepository_Upsert(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewRegisteredUserRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, userA, "alice"))
	require.NoError(t, repo.Upsert(ctx, userA, "alice2"))

	user, err := repo.GetByID(ctx, userA)
	require.NoError(t, err)
	assert.Equal(t, "alice2", user.Name)
	assert.False(t, user.IsBlacklisted)
}

func TestRegisteredUserRepository_UpsertKeepsBlacklist(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewRegisteredUserRepository(db)
	ctx := context.Background()

	testutil.TestRegisteredUser(t, db, userA, "alice", testutil.WithBlacklist("spam"))
	require.NoError(t, repo.Upsert(ctx, userA, "renamed"))

	user, err := repo.GetByID(ctx, userA)
	require.NoError(t, err)
	assert.Equal(t, "renamed", user.Name)
	assert.True(t, user.IsBlacklisted)
	assert.Equal(t, "spam", *user.Reason)
}

func TestRegisteredUserRepository_GetNames(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewRegisteredUserRepository(db)

	testutil.TestRegisteredUser(t, db, userA, "alice")

	names, err := repo.GetNames(context.Background(), []string{userA, userB})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{userA: "alice"}, names)

	names, err = repo.GetNames(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestRegisteredUserRepository_Blacklist(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewRegisteredUserRepository(db)
	ctx := context.Background()

	reason := "fraude"
	require.NoError(t, repo.SetBlacklisted(ctx, userA, &reason))

	user, err := repo.GetByID(ctx, userA)
	require.NoError(t, err)
	assert.True(t, user.IsBlacklisted)
	assert.Equal(t, userA, user.Name)

	ok, err := repo.ClearBlacklist(ctx, userA)
	require.NoError(t, err)
	assert.True(t, ok)

	user, err = repo.GetByID(ctx, userA)
	require.NoError(t, err)
	assert.False(t, user.IsBlacklisted)
	assert.Nil(t, user.Reason)

	ok, err = repo.ClearBlacklist(ctx, userB)
	require.NoError(t, err)
	assert.False(t, ok)
}
