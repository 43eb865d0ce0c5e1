package storage

import (
	"wa-groupguard/internal/models"

	"gorm.io/gorm"
)

// AuditRepository handles the append-only moderation audit log
type AuditRepository struct {
	db *gorm.DB
}

// NewAuditRepository creates a new AuditRepository
func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// MigrateTable ensures the AuditLogEntry table exists
func (r *AuditRepository) MigrateTable() error {
	return r.db.AutoMigrate(&models.AuditLogEntry{})
}

// Append writes one audit entry.
func (r *AuditRepository) Append(groupID, actorID, action, details string) error {
	entry := models.AuditLogEntry{
		GroupID: groupID,
		ActorID: actorID,
		Action:  action,
		Details: details,
	}
	return r.db.Create(&entry).Error
}

// Recent returns the newest entries for a group, most recent first.
func (r *AuditRepository) Recent(groupID string, limit int) ([]*models.AuditLogEntry, error) {
	var entries []*models.AuditLogEntry
	result := r.db.Where("group_id = ?", groupID).
		Order("id DESC").Limit(limit).Find(&entries)
	return entries, result.Error
}
