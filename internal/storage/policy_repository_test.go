package storage

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wa-groupguard/internal/models"
)

func newPolicyRepo(t *testing.T) *PolicyRepository {
	t.Helper()
	repo := NewPolicyRepository(newTestDB(t), 3, false)
	require.NoError(t, repo.MigrateTable())
	return repo
}

func TestGetCreatesDefaultPolicy(t *testing.T) {
	repo := newPolicyRepo(t)

	policy, err := repo.Get(testGroup)
	require.NoError(t, err)
	assert.Equal(t, 3, policy.MaxWarnings)
	assert.False(t, policy.Autoban)

	again, err := repo.Get(testGroup)
	require.NoError(t, err)
	assert.Equal(t, policy.ID, again.ID)
}

func TestUpdatePolicyFields(t *testing.T) {
	repo := newPolicyRepo(t)

	err := repo.Update(testGroup, map[string]interface{}{
		"max_warnings":       5,
		"punishment_message": "rules are rules",
	})
	require.NoError(t, err)

	policy, err := repo.Get(testGroup)
	require.NoError(t, err)
	assert.Equal(t, 5, policy.MaxWarnings)
	assert.Equal(t, "rules are rules", policy.PunishmentMessage)
}

func TestToggleFlipsAndPersists(t *testing.T) {
	repo := newPolicyRepo(t)

	on, err := repo.Toggle(testGroup, models.ToggleAntilink)
	require.NoError(t, err)
	assert.True(t, on)

	policy, err := repo.Get(testGroup)
	require.NoError(t, err)
	assert.True(t, policy.ToggleEnabled(models.ToggleAntilink))

	off, err := repo.Toggle(testGroup, models.ToggleAntilink)
	require.NoError(t, err)
	assert.False(t, off)

	policy, err = repo.Get(testGroup)
	require.NoError(t, err)
	assert.False(t, policy.ToggleEnabled(models.ToggleAntilink))
}

func TestToggleAutobanHitsColumn(t *testing.T) {
	repo := newPolicyRepo(t)

	on, err := repo.Toggle(testGroup, models.ToggleAutoban)
	require.NoError(t, err)
	assert.True(t, on)

	policy, err := repo.Get(testGroup)
	require.NoError(t, err)
	assert.True(t, policy.Autoban)
	assert.True(t, policy.ToggleEnabled(models.ToggleAutoban))
}

func TestToggleConcurrentFlips(t *testing.T) {
	repo := newPolicyRepo(t)
	const flips = 8 // even, so the toggle lands back where it started

	errs := make(chan error, flips)
	var wg sync.WaitGroup
	for i := 0; i < flips; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Toggle(testGroup, models.ToggleAntilink)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	policy, err := repo.Get(testGroup)
	require.NoError(t, err)
	assert.False(t, policy.ToggleEnabled(models.ToggleAntilink))
}

func TestTogglesAreIndependentPerGroup(t *testing.T) {
	repo := newPolicyRepo(t)
	otherGroup := "99911122@g.us"

	_, err := repo.Toggle(testGroup, models.ToggleWelcome)
	require.NoError(t, err)

	policy, err := repo.Get(otherGroup)
	require.NoError(t, err)
	assert.False(t, policy.ToggleEnabled(models.ToggleWelcome))
}
