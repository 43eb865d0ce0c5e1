package storage

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wa-groupguard/internal/models"
)

func newMemberRepo(t *testing.T) *MemberRepository {
	t.Helper()
	repo := NewMemberRepository(newTestDB(t))
	require.NoError(t, repo.MigrateTable())
	return repo
}

func TestGetOrCreateIsIdempotent(t *testing.T) {
	repo := newMemberRepo(t)

	first, err := repo.GetOrCreate(testGroup, testUser)
	require.NoError(t, err)
	assert.Equal(t, models.RoleMember, first.Role)
	assert.Equal(t, 0, first.WarningCount)

	second, err := repo.GetOrCreate(testGroup, testUser)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestAppendWarningReturnsPostCount(t *testing.T) {
	repo := newMemberRepo(t)
	now := time.Now()

	count, err := repo.AppendWarning(testGroup, testUser, "spam", now)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = repo.AppendWarning(testGroup, testUser, "links", now)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	record, err := repo.GetOrCreate(testGroup, testUser)
	require.NoError(t, err)
	assert.Equal(t, 2, record.WarningCount)
	history := record.Warnings()
	require.Len(t, history, 2)
	assert.Equal(t, "spam", history[0].Reason)
	assert.Equal(t, "links", history[1].Reason)
}

func TestRemoveOneWarningPopsNewest(t *testing.T) {
	repo := newMemberRepo(t)
	now := time.Now()

	_, err := repo.AppendWarning(testGroup, testUser, "first", now)
	require.NoError(t, err)
	_, err = repo.AppendWarning(testGroup, testUser, "second", now)
	require.NoError(t, err)

	count, err := repo.RemoveOneWarning(testGroup, testUser)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	record, err := repo.GetOrCreate(testGroup, testUser)
	require.NoError(t, err)
	history := record.Warnings()
	require.Len(t, history, 1)
	assert.Equal(t, "first", history[0].Reason)
}

func TestRemoveOneWarningClampsAtZero(t *testing.T) {
	repo := newMemberRepo(t)

	count, err := repo.RemoveOneWarning(testGroup, testUser)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	count, err = repo.RemoveOneWarning(testGroup, testUser)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestClearWarningsTargetsOneMember(t *testing.T) {
	repo := newMemberRepo(t)
	now := time.Now()

	_, err := repo.AppendWarning(testGroup, testUser, "spam", now)
	require.NoError(t, err)
	_, err = repo.AppendWarning(testGroup, otherUser, "spam", now)
	require.NoError(t, err)

	require.NoError(t, repo.ClearWarnings(testGroup, testUser))

	cleared, err := repo.GetOrCreate(testGroup, testUser)
	require.NoError(t, err)
	assert.Equal(t, 0, cleared.WarningCount)
	assert.Empty(t, cleared.Warnings())

	kept, err := repo.GetOrCreate(testGroup, otherUser)
	require.NoError(t, err)
	assert.Equal(t, 1, kept.WarningCount)
}

func TestClearAllWarningsScopedToGroup(t *testing.T) {
	repo := newMemberRepo(t)
	otherGroup := "99911122@g.us"
	now := time.Now()

	_, err := repo.AppendWarning(testGroup, testUser, "spam", now)
	require.NoError(t, err)
	_, err = repo.AppendWarning(otherGroup, testUser, "spam", now)
	require.NoError(t, err)

	require.NoError(t, repo.ClearAllWarnings(testGroup))

	warned, err := repo.GetWarned(testGroup)
	require.NoError(t, err)
	assert.Empty(t, warned)

	warned, err = repo.GetWarned(otherGroup)
	require.NoError(t, err)
	assert.Len(t, warned, 1)
}

func TestGetWarnedOrdersByCount(t *testing.T) {
	repo := newMemberRepo(t)
	now := time.Now()

	_, err := repo.AppendWarning(testGroup, testUser, "spam", now)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err = repo.AppendWarning(testGroup, otherUser, "spam", now)
		require.NoError(t, err)
	}

	warned, err := repo.GetWarned(testGroup)
	require.NoError(t, err)
	require.Len(t, warned, 2)
	assert.Equal(t, otherUser, warned[0].UserID)
	assert.Equal(t, testUser, warned[1].UserID)
}

func TestTouchActivityAndInactiveList(t *testing.T) {
	repo := newMemberRepo(t)

	old := time.Now().AddDate(0, 0, -30)
	require.NoError(t, repo.TouchActivity(testGroup, testUser, old))
	require.NoError(t, repo.TouchActivity(testGroup, otherUser, time.Now()))

	record, err := repo.GetOrCreate(testGroup, testUser)
	require.NoError(t, err)
	assert.Equal(t, 1, record.MessageCount)

	inactive, err := repo.GetInactive(testGroup, time.Now().AddDate(0, 0, -7))
	require.NoError(t, err)
	require.Len(t, inactive, 1)
	assert.Equal(t, testUser, inactive[0].UserID)
}

func TestSetAndGetRole(t *testing.T) {
	repo := newMemberRepo(t)

	// unknown members default to member
	role, err := repo.GetRole(testGroup, testUser)
	require.NoError(t, err)
	assert.Equal(t, models.RoleMember, role)

	require.NoError(t, repo.SetRole(testGroup, testUser, models.RoleMod))

	role, err = repo.GetRole(testGroup, testUser)
	require.NoError(t, err)
	assert.Equal(t, models.RoleMod, role)

	// the role is scoped to the group
	role, err = repo.GetRole("99911122@g.us", testUser)
	require.NoError(t, err)
	assert.Equal(t, models.RoleMember, role)
}

func TestAppendWarningConcurrentAppenders(t *testing.T) {
	repo := newMemberRepo(t)
	const workers = 8

	counts := make(chan int, workers)
	errs := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			count, err := repo.AppendWarning(testGroup, testUser, "spam", time.Now())
			counts <- count
			errs <- err
		}()
	}
	wg.Wait()
	close(counts)
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	// every append observes a distinct pre-count: the returned counts are
	// a permutation of 1..workers
	seen := make(map[int]bool)
	for count := range counts {
		assert.False(t, seen[count], "duplicate post-count %d", count)
		seen[count] = true
		assert.GreaterOrEqual(t, count, 1)
		assert.LessOrEqual(t, count, workers)
	}

	record, err := repo.GetOrCreate(testGroup, testUser)
	require.NoError(t, err)
	assert.Equal(t, workers, record.WarningCount)
	assert.Len(t, record.Warnings(), workers)
}

func TestGetOrCreateConcurrentFirstSight(t *testing.T) {
	repo := newMemberRepo(t)
	const workers = 8

	errs := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.GetOrCreate(testGroup, testUser)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	var records []struct{ ID uint }
	err := repo.db.Model(&models.MemberRecord{}).
		Where("group_id = ? AND user_id = ?", testGroup, testUser).Find(&records).Error
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestApplyDeltaUpdatesFields(t *testing.T) {
	repo := newMemberRepo(t)

	require.NoError(t, repo.ApplyDelta(testGroup, testUser, map[string]interface{}{"is_muted": true}))

	record, err := repo.GetOrCreate(testGroup, testUser)
	require.NoError(t, err)
	assert.True(t, record.IsMuted)
}
