// Package permission computes effective permission levels for command
// senders. Resolution is pure: unknown actors rank as plain members and
// lookups never surface errors to the gate.
package permission

import (
	"wa-groupguard/internal/logger"
	"wa-groupguard/internal/models"
)

// RoleSource supplies the stored role for a member.
type RoleSource interface {
	GetRole(groupID, userID string) (models.Role, error)
}

// Resolver computes a requester's effective permission level from the
// configured owner identity, the transport-reported group-admin flag, and
// the stored role.
type Resolver struct {
	ownerJID string
	roles    RoleSource
}

// NewResolver creates a Resolver. roles may be nil, in which case only the
// owner identity and the transport flag contribute.
func NewResolver(ownerJID string, roles RoleSource) *Resolver {
	return &Resolver{ownerJID: ownerJID, roles: roles}
}

// IsOwner reports whether the actor is the configured owner identity.
func (r *Resolver) IsOwner(actorID string) bool {
	return actorID == r.ownerJID
}

// ResolveLevel computes the effective permission level. The owner identity
// always resolves to owner level; a transport-reported group admin is
// floored at admin level but keeps a higher stored role.
func (r *Resolver) ResolveLevel(groupID, actorID string, isGroupAdmin bool) models.PermissionLevel {
	if r.IsOwner(actorID) {
		return models.LevelOwner
	}

	stored := models.LevelMember
	if r.roles != nil {
		role, err := r.roles.GetRole(groupID, actorID)
		if err != nil {
			// treat an unreadable role as the default, never fail a gate
			logger.Warningf("Error reading role for %s in %s: %v", actorID, groupID, err)
		} else {
			stored = role.Level()
		}
	}
	if stored > models.LevelOwner {
		stored = models.LevelOwner
	}

	if isGroupAdmin && stored < models.LevelAdmin {
		return models.LevelAdmin
	}
	return stored
}

// CanExecute reports whether the actor meets the required level.
func (r *Resolver) CanExecute(groupID, actorID string, isGroupAdmin bool, required models.PermissionLevel) bool {
	return r.ResolveLevel(groupID, actorID, isGroupAdmin) >= required
}
