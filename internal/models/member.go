package models

import (
	"encoding/json"
	"time"
)

// Warning is one entry in a member's warning history.
type Warning struct {
	Reason string    `json:"reason"`
	Date   time.Time `json:"date"`
}

// MemberRecord stores per-(group, user) moderation state. Records are
// created lazily on first observed interaction and never hard-deleted.
type MemberRecord struct {
	ID             uint   `gorm:"primaryKey;autoIncrement"`
	GroupID        string `gorm:"uniqueIndex:idx_member_group_user;size:64;not null"`
	UserID         string `gorm:"uniqueIndex:idx_member_group_user;size:64;not null"`
	Role           Role   `gorm:"size:16;default:'member'"`
	WarningCount   int    `gorm:"default:0"`
	WarningHistory string `gorm:"type:text"`
	IsMuted        bool   `gorm:"default:false"`
	LastActiveAt   time.Time
	MessageCount   int `gorm:"default:0"`
	StickerCount   int `gorm:"default:0"`
	Gold           int `gorm:"default:0"`
	Xp             int `gorm:"default:0"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Warnings decodes the warning history column. An empty or malformed
// column decodes to an empty history.
func (m *MemberRecord) Warnings() []Warning {
	if m.WarningHistory == "" {
		return nil
	}
	var ws []Warning
	if err := json.Unmarshal([]byte(m.WarningHistory), &ws); err != nil {
		return nil
	}
	return ws
}

// SetWarnings re-encodes the warning history column and keeps
// WarningCount in sync with it.
func (m *MemberRecord) SetWarnings(ws []Warning) {
	if len(ws) == 0 {
		m.WarningHistory = "[]"
		m.WarningCount = 0
		return
	}
	data, _ := json.Marshal(ws)
	m.WarningHistory = string(data)
	m.WarningCount = len(ws)
}
