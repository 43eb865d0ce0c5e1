package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBlacklistRepo(t *testing.T) *BlacklistRepository {
	t.Helper()
	repo := NewBlacklistRepository(newTestDB(t))
	require.NoError(t, repo.MigrateTable())
	return repo
}

func TestBlacklistAddRemove(t *testing.T) {
	repo := newBlacklistRepo(t)

	banned, err := repo.IsBlacklisted(testUser)
	require.NoError(t, err)
	assert.False(t, banned)

	require.NoError(t, repo.AddToBlacklist(testUser, "spam", otherUser))

	banned, err = repo.IsBlacklisted(testUser)
	require.NoError(t, err)
	assert.True(t, banned)

	require.NoError(t, repo.RemoveFromBlacklist(testUser))

	banned, err = repo.IsBlacklisted(testUser)
	require.NoError(t, err)
	assert.False(t, banned)
}

func TestBlacklistReAddOverwritesReason(t *testing.T) {
	repo := newBlacklistRepo(t)

	require.NoError(t, repo.AddToBlacklist(testUser, "spam", otherUser))
	require.NoError(t, repo.AddToBlacklist(testUser, "exceeded warning threshold", otherUser))

	entries, err := repo.ListBlacklist()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "exceeded warning threshold", entries[0].Reason)
}

func TestWhitelistScopedToGroup(t *testing.T) {
	repo := newBlacklistRepo(t)
	otherGroup := "99911122@g.us"

	require.NoError(t, repo.AddToWhitelist(testGroup, testUser, otherUser))

	exempt, err := repo.IsWhitelisted(testGroup, testUser)
	require.NoError(t, err)
	assert.True(t, exempt)

	exempt, err = repo.IsWhitelisted(otherGroup, testUser)
	require.NoError(t, err)
	assert.False(t, exempt)

	require.NoError(t, repo.RemoveFromWhitelist(testGroup, testUser))

	exempt, err = repo.IsWhitelisted(testGroup, testUser)
	require.NoError(t, err)
	assert.False(t, exempt)
}

func TestWhitelistReAddIsIdempotent(t *testing.T) {
	repo := newBlacklistRepo(t)

	require.NoError(t, repo.AddToWhitelist(testGroup, testUser, otherUser))
	require.NoError(t, repo.AddToWhitelist(testGroup, testUser, otherUser))

	entries, err := repo.ListWhitelist(testGroup)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
