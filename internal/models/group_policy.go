package models

import (
	"encoding/json"
	"time"
)

// Feature toggle names recognized by the command layer. Toggles not listed
// here can still be stored; the command layer decides what is exposed.
const (
	ToggleWelcome   = "welcome"
	ToggleAntilink  = "antilink"
	ToggleWarnLink  = "warnlink"
	ToggleAntiflood = "antiflood"
	ToggleWarnFlood = "warnflood"
	ToggleAutoban   = "autoban"
	ToggleAdminOnly = "adminonly"
)

// GroupPolicy stores per-group moderation settings. A row is created with
// configured defaults on first interaction with the group.
type GroupPolicy struct {
	ID                uint   `gorm:"primaryKey;autoIncrement"`
	GroupID           string `gorm:"uniqueIndex;size:64;not null"`
	MaxWarnings       int    `gorm:"default:3"`
	Autoban           bool   `gorm:"default:false"`
	PunishmentMessage string `gorm:"type:text"`
	WelcomeMessage    string `gorm:"type:text"`
	Toggles           string `gorm:"type:text"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// ToggleMap decodes the toggle column into a name to enabled mapping.
func (p *GroupPolicy) ToggleMap() map[string]bool {
	m := make(map[string]bool)
	if p.Toggles != "" {
		_ = json.Unmarshal([]byte(p.Toggles), &m)
	}
	// autoban is a first-class column but reads like a toggle
	m[ToggleAutoban] = p.Autoban
	return m
}

// SetToggleMap re-encodes the toggle column.
func (p *GroupPolicy) SetToggleMap(m map[string]bool) {
	if autoban, ok := m[ToggleAutoban]; ok {
		p.Autoban = autoban
		delete(m, ToggleAutoban)
	}
	data, _ := json.Marshal(m)
	p.Toggles = string(data)
}

// ToggleEnabled reports whether a named feature toggle is on.
func (p *GroupPolicy) ToggleEnabled(name string) bool {
	return p.ToggleMap()[name]
}
