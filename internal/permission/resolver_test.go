package permission

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"wa-groupguard/internal/models"
)

const (
	testGroup = "12036304@g.us"
	testOwner = "491555000@s.whatsapp.net"
)

type stubRoles struct {
	roles map[string]models.Role
	err   error
}

func (s *stubRoles) GetRole(groupID, userID string) (models.Role, error) {
	if s.err != nil {
		return models.RoleMember, s.err
	}
	if role, ok := s.roles[userID]; ok {
		return role, nil
	}
	return models.RoleMember, nil
}

func TestResolveLevelOwnerAlwaysWins(t *testing.T) {
	r := NewResolver(testOwner, &stubRoles{})

	assert.Equal(t, models.LevelOwner, r.ResolveLevel(testGroup, testOwner, false))
	assert.Equal(t, models.LevelOwner, r.ResolveLevel(testGroup, testOwner, true))
	assert.True(t, r.IsOwner(testOwner))
	assert.False(t, r.IsOwner("someone@s.whatsapp.net"))
}

func TestResolveLevelStoredRoles(t *testing.T) {
	roles := &stubRoles{roles: map[string]models.Role{
		"admin@s.whatsapp.net": models.RoleAdmin,
		"mod@s.whatsapp.net":   models.RoleMod,
		"aux@s.whatsapp.net":   models.RoleAux,
	}}
	r := NewResolver(testOwner, roles)

	assert.Equal(t, models.LevelAdmin, r.ResolveLevel(testGroup, "admin@s.whatsapp.net", false))
	assert.Equal(t, models.LevelMod, r.ResolveLevel(testGroup, "mod@s.whatsapp.net", false))
	assert.Equal(t, models.LevelAux, r.ResolveLevel(testGroup, "aux@s.whatsapp.net", false))
	assert.Equal(t, models.LevelMember, r.ResolveLevel(testGroup, "nobody@s.whatsapp.net", false))
}

func TestResolveLevelGroupAdminFloor(t *testing.T) {
	roles := &stubRoles{roles: map[string]models.Role{
		"mod@s.whatsapp.net": models.RoleMod,
	}}
	r := NewResolver(testOwner, roles)

	// the transport flag lifts anyone below admin up to admin
	assert.Equal(t, models.LevelAdmin, r.ResolveLevel(testGroup, "nobody@s.whatsapp.net", true))
	assert.Equal(t, models.LevelAdmin, r.ResolveLevel(testGroup, "mod@s.whatsapp.net", true))
}

func TestResolveLevelRoleErrorDefaultsToMember(t *testing.T) {
	r := NewResolver(testOwner, &stubRoles{err: errors.New("db closed")})

	assert.Equal(t, models.LevelMember, r.ResolveLevel(testGroup, "anyone@s.whatsapp.net", false))
	// the transport flag still applies when the store is unreadable
	assert.Equal(t, models.LevelAdmin, r.ResolveLevel(testGroup, "anyone@s.whatsapp.net", true))
}

func TestResolveLevelNilRoleSource(t *testing.T) {
	r := NewResolver(testOwner, nil)

	assert.Equal(t, models.LevelMember, r.ResolveLevel(testGroup, "anyone@s.whatsapp.net", false))
	assert.Equal(t, models.LevelOwner, r.ResolveLevel(testGroup, testOwner, false))
}

func TestCanExecuteBoundary(t *testing.T) {
	roles := &stubRoles{roles: map[string]models.Role{
		"mod@s.whatsapp.net": models.RoleMod,
	}}
	r := NewResolver(testOwner, roles)

	assert.True(t, r.CanExecute(testGroup, "mod@s.whatsapp.net", false, models.LevelMod))
	assert.True(t, r.CanExecute(testGroup, "mod@s.whatsapp.net", false, models.LevelAux))
	assert.False(t, r.CanExecute(testGroup, "mod@s.whatsapp.net", false, models.LevelAdmin))
	assert.True(t, r.CanExecute(testGroup, testOwner, false, models.LevelOwner))
}
