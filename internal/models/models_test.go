package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRoleLevelLadder(t *testing.T) {
	assert.True(t, RoleOwner.Level() > RoleAdmin.Level())
	assert.True(t, RoleAdmin.Level() > RoleMod.Level())
	assert.True(t, RoleMod.Level() > RoleAux.Level())
	assert.True(t, RoleAux.Level() > RoleMember.Level())
	assert.Equal(t, LevelMember, Role("garbage").Level())
}

func TestParseRoleRejectsOwner(t *testing.T) {
	_, ok := ParseRole("owner")
	assert.False(t, ok)

	role, ok := ParseRole("mod")
	assert.True(t, ok)
	assert.Equal(t, RoleMod, role)

	_, ok = ParseRole("")
	assert.False(t, ok)
}

func TestWarningsRoundTrip(t *testing.T) {
	rec := &MemberRecord{}
	assert.Empty(t, rec.Warnings())

	now := time.Now().Truncate(time.Second)
	rec.SetWarnings([]Warning{{Reason: "spam", Date: now}})
	assert.Equal(t, 1, rec.WarningCount)

	ws := rec.Warnings()
	assert.Len(t, ws, 1)
	assert.Equal(t, "spam", ws[0].Reason)

	rec.SetWarnings(nil)
	assert.Equal(t, 0, rec.WarningCount)
	assert.Equal(t, "[]", rec.WarningHistory)
}

func TestWarningsIgnoresMalformedColumn(t *testing.T) {
	rec := &MemberRecord{WarningHistory: "{not json"}
	assert.Empty(t, rec.Warnings())
}

func TestToggleMapSurfacesAutoban(t *testing.T) {
	p := &GroupPolicy{Autoban: true, Toggles: `{"antilink":true}`}

	m := p.ToggleMap()
	assert.True(t, m[ToggleAutoban])
	assert.True(t, m[ToggleAntilink])
	assert.False(t, m[ToggleWelcome])

	m[ToggleAutoban] = false
	m[ToggleWelcome] = true
	p.SetToggleMap(m)

	assert.False(t, p.Autoban)
	assert.True(t, p.ToggleEnabled(ToggleWelcome))
	assert.True(t, p.ToggleEnabled(ToggleAntilink))
	assert.False(t, p.ToggleEnabled(ToggleAutoban))
}

func TestFloodTrackerWindow(t *testing.T) {
	tracker := NewFloodTracker(50 * time.Millisecond)

	assert.Equal(t, 1, tracker.Record("g", "u"))
	assert.Equal(t, 2, tracker.Record("g", "u"))
	// separate keys count independently
	assert.Equal(t, 1, tracker.Record("g", "other"))

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 1, tracker.Record("g", "u"))
}

func TestFloodTrackerReset(t *testing.T) {
	tracker := NewFloodTracker(time.Minute)

	tracker.Record("g", "u")
	tracker.Record("g", "u")
	tracker.Reset("g", "u")
	assert.Equal(t, 1, tracker.Record("g", "u"))
}
