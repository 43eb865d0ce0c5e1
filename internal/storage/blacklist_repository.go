package storage

import (
	"time"

	"wa-groupguard/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BlacklistRepository handles the global ban list and per-group whitelist
type BlacklistRepository struct {
	db *gorm.DB
}

// NewBlacklistRepository creates a new BlacklistRepository
func NewBlacklistRepository(db *gorm.DB) *BlacklistRepository {
	return &BlacklistRepository{db: db}
}

// MigrateTable ensures both tables exist
func (r *BlacklistRepository) MigrateTable() error {
	if err := r.db.AutoMigrate(&models.BlacklistEntry{}); err != nil {
		return err
	}
	return r.db.AutoMigrate(&models.WhitelistEntry{})
}

// AddToBlacklist upserts a global ban entry; re-adding overwrites the
// reason and attribution.
func (r *BlacklistRepository) AddToBlacklist(userID, reason, addedBy string) error {
	entry := models.BlacklistEntry{
		UserID:  userID,
		Reason:  reason,
		AddedBy: addedBy,
		AddedAt: time.Now(),
	}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"reason", "added_by", "added_at"}),
	}).Create(&entry).Error
}

// RemoveFromBlacklist deletes the global ban entry for a user.
func (r *BlacklistRepository) RemoveFromBlacklist(userID string) error {
	return r.db.Where("user_id = ?", userID).Delete(&models.BlacklistEntry{}).Error
}

// IsBlacklisted reports whether a user is on the global ban list.
func (r *BlacklistRepository) IsBlacklisted(userID string) (bool, error) {
	var count int64
	result := r.db.Model(&models.BlacklistEntry{}).Where("user_id = ?", userID).Count(&count)
	return count > 0, result.Error
}

// ListBlacklist returns all entries in added-time order.
func (r *BlacklistRepository) ListBlacklist() ([]*models.BlacklistEntry, error) {
	var entries []*models.BlacklistEntry
	result := r.db.Order("added_at ASC").Find(&entries)
	return entries, result.Error
}

// AddToWhitelist exempts a member from content-filter enforcement in one group.
func (r *BlacklistRepository) AddToWhitelist(groupID, userID, addedBy string) error {
	entry := models.WhitelistEntry{GroupID: groupID, UserID: userID, AddedBy: addedBy}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "group_id"}, {Name: "user_id"}},
		DoNothing: true,
	}).Create(&entry).Error
}

// RemoveFromWhitelist drops a member's exemption in one group.
func (r *BlacklistRepository) RemoveFromWhitelist(groupID, userID string) error {
	return r.db.Where("group_id = ? AND user_id = ?", groupID, userID).
		Delete(&models.WhitelistEntry{}).Error
}

// IsWhitelisted reports whether a member is exempt in a group.
func (r *BlacklistRepository) IsWhitelisted(groupID, userID string) (bool, error) {
	var count int64
	result := r.db.Model(&models.WhitelistEntry{}).
		Where("group_id = ? AND user_id = ?", groupID, userID).Count(&count)
	return count > 0, result.Error
}

// ListWhitelist returns a group's exemptions in insertion order.
func (r *BlacklistRepository) ListWhitelist(groupID string) ([]*models.WhitelistEntry, error) {
	var entries []*models.WhitelistEntry
	result := r.db.Where("group_id = ?", groupID).Order("created_at ASC").Find(&entries)
	return entries, result.Error
}
