package storage

import (
	"wa-groupguard/internal/models"

	"gorm.io/gorm"
)

// PolicyRepository handles database operations for GroupPolicy. Mutations
// serialize through a per-group mutex, same scheme as MemberRepository.
type PolicyRepository struct {
	db                 *gorm.DB
	locks              *keyedMutex
	defaultMaxWarnings int
	defaultAutoban     bool
}

// NewPolicyRepository creates a new PolicyRepository using the given
// defaults for newly seen groups.
func NewPolicyRepository(db *gorm.DB, defaultMaxWarnings int, defaultAutoban bool) *PolicyRepository {
	if defaultMaxWarnings < 1 {
		defaultMaxWarnings = 3
	}
	return &PolicyRepository{
		db:                 db,
		locks:              newKeyedMutex(),
		defaultMaxWarnings: defaultMaxWarnings,
		defaultAutoban:     defaultAutoban,
	}
}

// MigrateTable ensures the GroupPolicy table exists
func (r *PolicyRepository) MigrateTable() error {
	return r.db.AutoMigrate(&models.GroupPolicy{})
}

// Get returns the policy for a group, creating the default row on first access.
func (r *PolicyRepository) Get(groupID string) (*models.GroupPolicy, error) {
	r.locks.Lock(groupID)
	defer r.locks.Unlock(groupID)

	return r.fetchOrCreate(r.db, groupID)
}

// Update applies a partial field update to the group policy.
func (r *PolicyRepository) Update(groupID string, fields map[string]interface{}) error {
	r.locks.Lock(groupID)
	defer r.locks.Unlock(groupID)

	if _, err := r.fetchOrCreate(r.db, groupID); err != nil {
		return err
	}
	return r.db.Model(&models.GroupPolicy{}).
		Where("group_id = ?", groupID).
		Updates(fields).Error
}

// Toggle flips a named feature toggle and returns the new value, so the
// caller can report it without a second read. Serialized per group, so
// concurrent flips never read the same pre-state.
func (r *PolicyRepository) Toggle(groupID, name string) (bool, error) {
	r.locks.Lock(groupID)
	defer r.locks.Unlock(groupID)

	var newValue bool
	err := r.db.Transaction(func(tx *gorm.DB) error {
		policy, err := r.fetchOrCreate(tx, groupID)
		if err != nil {
			return err
		}
		toggles := policy.ToggleMap()
		newValue = !toggles[name]
		toggles[name] = newValue
		policy.SetToggleMap(toggles)
		return tx.Model(policy).
			Updates(map[string]interface{}{
				"toggles": policy.Toggles,
				"autoban": policy.Autoban,
			}).Error
	})
	if err != nil {
		return false, err
	}
	return newValue, nil
}

// fetchOrCreate loads a group's policy row, creating the default one if
// absent. Callers must hold the group's key.
func (r *PolicyRepository) fetchOrCreate(tx *gorm.DB, groupID string) (*models.GroupPolicy, error) {
	var policy models.GroupPolicy
	result := tx.Where("group_id = ?", groupID).First(&policy)
	if result.Error == nil {
		return &policy, nil
	}
	if result.Error != gorm.ErrRecordNotFound {
		return nil, result.Error
	}

	policy = models.GroupPolicy{
		GroupID:     groupID,
		MaxWarnings: r.defaultMaxWarnings,
		Autoban:     r.defaultAutoban,
		Toggles:     "{}",
	}
	if err := tx.Create(&policy).Error; err != nil {
		return nil, err
	}
	return &policy, nil
}
