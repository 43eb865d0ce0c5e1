package storage

import (
	"time"

	"wa-groupguard/internal/models"

	"gorm.io/gorm"
)

// MemberRepository handles database operations for MemberRecord. Mutations
// serialize through a per-(group, user) mutex so concurrent handlers never
// interleave read-modify-write sequences on the same row.
type MemberRepository struct {
	db    *gorm.DB
	locks *keyedMutex
}

// NewMemberRepository creates a new MemberRepository
func NewMemberRepository(db *gorm.DB) *MemberRepository {
	return &MemberRepository{db: db, locks: newKeyedMutex()}
}

// MigrateTable ensures the MemberRecord table exists
func (r *MemberRepository) MigrateTable() error {
	return r.db.AutoMigrate(&models.MemberRecord{})
}

func memberKey(groupID, userID string) string {
	return groupID + "|" + userID
}

// GetOrCreate returns the member record, creating one with defaults on
// first sight of the (group, user) pair.
func (r *MemberRepository) GetOrCreate(groupID, userID string) (*models.MemberRecord, error) {
	key := memberKey(groupID, userID)
	r.locks.Lock(key)
	defer r.locks.Unlock(key)

	return fetchOrCreateMember(r.db, groupID, userID)
}

// ApplyDelta applies a partial field update, last write wins per field.
func (r *MemberRepository) ApplyDelta(groupID, userID string, fields map[string]interface{}) error {
	key := memberKey(groupID, userID)
	r.locks.Lock(key)
	defer r.locks.Unlock(key)

	if _, err := fetchOrCreateMember(r.db, groupID, userID); err != nil {
		return err
	}
	return r.db.Model(&models.MemberRecord{}).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Updates(fields).Error
}

// AppendWarning appends an entry to the warning history and increments the
// count, returning the post-increment count. Serialized per member, so no
// two appends ever observe the same pre-count.
func (r *MemberRepository) AppendWarning(groupID, userID, reason string, at time.Time) (int, error) {
	key := memberKey(groupID, userID)
	r.locks.Lock(key)
	defer r.locks.Unlock(key)

	var newCount int
	err := r.db.Transaction(func(tx *gorm.DB) error {
		record, err := fetchOrCreateMember(tx, groupID, userID)
		if err != nil {
			return err
		}
		ws := append(record.Warnings(), models.Warning{Reason: reason, Date: at})
		record.SetWarnings(ws)
		newCount = record.WarningCount
		return tx.Model(record).
			Updates(map[string]interface{}{
				"warning_count":   record.WarningCount,
				"warning_history": record.WarningHistory,
			}).Error
	})
	if err != nil {
		return 0, err
	}
	return newCount, nil
}

// RemoveOneWarning pops the most recently appended warning, clamped at
// zero, and returns the resulting count.
func (r *MemberRepository) RemoveOneWarning(groupID, userID string) (int, error) {
	key := memberKey(groupID, userID)
	r.locks.Lock(key)
	defer r.locks.Unlock(key)

	var newCount int
	err := r.db.Transaction(func(tx *gorm.DB) error {
		record, err := fetchOrCreateMember(tx, groupID, userID)
		if err != nil {
			return err
		}
		ws := record.Warnings()
		if len(ws) == 0 {
			newCount = 0
			return nil
		}
		record.SetWarnings(ws[:len(ws)-1])
		newCount = record.WarningCount
		return tx.Model(record).
			Updates(map[string]interface{}{
				"warning_count":   record.WarningCount,
				"warning_history": record.WarningHistory,
			}).Error
	})
	if err != nil {
		return 0, err
	}
	return newCount, nil
}

// ClearWarnings resets the count and empties the history atomically.
func (r *MemberRepository) ClearWarnings(groupID, userID string) error {
	key := memberKey(groupID, userID)
	r.locks.Lock(key)
	defer r.locks.Unlock(key)

	if _, err := fetchOrCreateMember(r.db, groupID, userID); err != nil {
		return err
	}
	return r.db.Model(&models.MemberRecord{}).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Updates(map[string]interface{}{"warning_count": 0, "warning_history": "[]"}).Error
}

// ClearAllWarnings resets warnings for every member of a group. A single
// statement, so it needs no key.
func (r *MemberRepository) ClearAllWarnings(groupID string) error {
	return r.db.Model(&models.MemberRecord{}).
		Where("group_id = ?", groupID).
		Updates(map[string]interface{}{"warning_count": 0, "warning_history": "[]"}).Error
}

// GetWarned returns members of a group holding at least one warning.
func (r *MemberRepository) GetWarned(groupID string) ([]*models.MemberRecord, error) {
	var records []*models.MemberRecord
	result := r.db.Where("group_id = ? AND warning_count > 0", groupID).
		Order("warning_count DESC").Find(&records)
	return records, result.Error
}

// GetInactive returns members whose last activity is older than the cutoff.
func (r *MemberRepository) GetInactive(groupID string, before time.Time) ([]*models.MemberRecord, error) {
	var records []*models.MemberRecord
	result := r.db.Where("group_id = ? AND last_active_at < ?", groupID, before).
		Order("last_active_at ASC").Find(&records)
	return records, result.Error
}

// TouchActivity bumps the activity timestamp and message counter.
func (r *MemberRepository) TouchActivity(groupID, userID string, at time.Time) error {
	key := memberKey(groupID, userID)
	r.locks.Lock(key)
	defer r.locks.Unlock(key)

	if _, err := fetchOrCreateMember(r.db, groupID, userID); err != nil {
		return err
	}
	return r.db.Model(&models.MemberRecord{}).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Updates(map[string]interface{}{
			"last_active_at": at,
			"message_count":  gorm.Expr("message_count + 1"),
		}).Error
}

// SetRole assigns the stored role for a member.
func (r *MemberRepository) SetRole(groupID, userID string, role models.Role) error {
	return r.ApplyDelta(groupID, userID, map[string]interface{}{"role": role})
}

// GetRole returns the stored role, defaulting to member when no record exists.
func (r *MemberRepository) GetRole(groupID, userID string) (models.Role, error) {
	var record models.MemberRecord
	result := r.db.Where("group_id = ? AND user_id = ?", groupID, userID).First(&record)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return models.RoleMember, nil
		}
		return models.RoleMember, result.Error
	}
	if record.Role == "" {
		return models.RoleMember, nil
	}
	return record.Role, nil
}

// fetchOrCreateMember loads a member row, creating it with defaults if
// absent. Callers must hold the member's key.
func fetchOrCreateMember(tx *gorm.DB, groupID, userID string) (*models.MemberRecord, error) {
	var record models.MemberRecord
	result := tx.Where("group_id = ? AND user_id = ?", groupID, userID).First(&record)
	if result.Error == nil {
		return &record, nil
	}
	if result.Error != gorm.ErrRecordNotFound {
		return nil, result.Error
	}
	record = models.MemberRecord{
		GroupID:        groupID,
		UserID:         userID,
		Role:           models.RoleMember,
		WarningHistory: "[]",
		LastActiveAt:   time.Now(),
	}
	if err := tx.Create(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}
