package models

import "time"

// AuditLogEntry is an append-only record of a state-mutating moderation
// action. Entries are never updated.
type AuditLogEntry struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	GroupID   string `gorm:"index;size:64;not null"`
	ActorID   string `gorm:"size:64;not null"`
	Action    string `gorm:"size:32;not null"`
	Details   string `gorm:"type:text"`
	CreatedAt time.Time
}
