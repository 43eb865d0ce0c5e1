package models

import "time"

// BlacklistEntry is a global (cross-group) ban-list row. A user appears at
// most once; re-adding overwrites reason and attribution.
type BlacklistEntry struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	UserID    string `gorm:"uniqueIndex;size:64;not null"`
	Reason    string `gorm:"type:text"`
	AddedBy   string `gorm:"size:64"`
	AddedAt   time.Time
	UpdatedAt time.Time
}

// WhitelistEntry exempts a member from automated content-filter enforcement
// within one group. It is never touched by the warning logic.
type WhitelistEntry struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	GroupID   string `gorm:"uniqueIndex:idx_whitelist_group_user;size:64;not null"`
	UserID    string `gorm:"uniqueIndex:idx_whitelist_group_user;size:64;not null"`
	AddedBy   string `gorm:"size:64"`
	CreatedAt time.Time
}
