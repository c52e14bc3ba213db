package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/premium_bot/internal/repository"
	"github.com/qs3c/premium_bot/internal/testutil"
)

func setupUserService(t *testing.T) (*UserService, func()) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	service := NewUserService(repository.NewRegisteredUserRepository(db))

	cleanup := func() {
		testutil.CleanupTestDB(t, db)
	}

	return service, cleanup
}

func TestUserService_CheckBlacklisted_UnknownUser(t *testing.T) {
	service, cleanup := setupUserService(t)
	defer cleanup()

	assert.NoError(t, service.CheckBlacklisted(context.Background(), alice))
}

func TestUserService_CheckBlacklisted(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	service := NewUserService(repository.NewRegisteredUserRepository(db))
	testutil.TestRegisteredUser(t, db, alice, "alice")
	testutil.TestRegisteredUser(t, db, bob, "bob", testutil.WithBlacklist("spam"))

	ctx := context.Background()
	assert.NoError(t, service.CheckBlacklisted(ctx, alice))

	err := service.CheckBlacklisted(ctx, bob)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBlacklisted)

	var blErr *BlacklistedError
	require.True(t, errors.As(err, &blErr))
	assert.Equal(t, bob, blErr.UserID)
	assert.Equal(t, "spam", blErr.Reason)
}

func TestUserService_Blacklist_CreatesUnknownUser(t *testing.T) {
	service, cleanup := setupUserService(t)
	defer cleanup()

	ctx := context.Background()
	info, err := service.Blacklist(ctx, alice, "  ")
	require.NoError(t, err)
	assert.True(t, info.IsBlacklisted)
	assert.Equal(t, alice, info.Name)
	assert.Empty(t, info.Reason)

	err = service.CheckBlacklisted(ctx, alice)
	var blErr *BlacklistedError
	require.True(t, errors.As(err, &blErr))
	assert.Equal(t, DefaultBlacklistReason, blErr.Reason)
}

func TestUserService_Blacklist_KeepsName(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	service := NewUserService(repository.NewRegisteredUserRepository(db))
	testutil.TestRegisteredUser(t, db, alice, "alice")

	info, err := service.Blacklist(context.Background(), alice, "fraude")
	require.NoError(t, err)
	assert.Equal(t, "alice", info.Name)
	assert.Equal(t, "fraude", info.Reason)
}

func TestUserService_Unblacklist(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	service := NewUserService(repository.NewRegisteredUserRepository(db))
	testutil.TestRegisteredUser(t, db, alice, "alice", testutil.WithBlacklist("spam"))

	ctx := context.Background()
	info, err := service.Unblacklist(ctx, alice)
	require.NoError(t, err)
	assert.False(t, info.IsBlacklisted)
	assert.Empty(t, info.Reason)
	assert.NoError(t, service.CheckBlacklisted(ctx, alice))

	_, err = service.Unblacklist(ctx, bob)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserService_InvalidUserID(t *testing.T) {
	service, cleanup := setupUserService(t)
	defer cleanup()

	_, err := service.Blacklist(context.Background(), "nope", "")
	assert.ErrorIs(t, err, ErrInvalidUserID)

	_, err = service.Unblacklist(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidUserID)
}
