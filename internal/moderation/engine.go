// Package moderation implements the warning and punishment state machine.
// A member moves from clean to warned as warnings accrue; reaching the
// group's maximum triggers removal through the messaging gateway and,
// when autoban is set, a global blacklist entry. Warning state is always
// persisted before any enforcement side effect, and a failed side effect
// never rolls it back.
package moderation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wa-groupguard/internal/logger"
	"wa-groupguard/internal/models"
)

// AutobanReason is the blacklist reason recorded by the escalation cascade.
const AutobanReason = "exceeded warning threshold"

var (
	// ErrProtectedTarget is returned when an operation targets the owner.
	ErrProtectedTarget = errors.New("target is the protected owner identity")
	// ErrPermissionDenied is raised by the command layer when the sender's
	// level is insufficient; the engine itself trusts its caller.
	ErrPermissionDenied = errors.New("permission denied")
)

// ClearMode selects the scope of a clearWarning operation.
type ClearMode int

const (
	ClearOne ClearMode = iota
	ClearTarget
	ClearGroup
)

// Gateway is the messaging transport's administrative surface consumed by
// the engine. Any call may fail: the bot may lack admin rights, the target
// may already be gone, or the transport may reject the request.
type Gateway interface {
	RemoveParticipant(ctx context.Context, groupID, userID string) error
	SendMessage(ctx context.Context, groupID, text string, mentions []string) error
}

// MemberStore is the per-member warning state consumed by the engine.
type MemberStore interface {
	GetOrCreate(groupID, userID string) (*models.MemberRecord, error)
	AppendWarning(groupID, userID, reason string, at time.Time) (int, error)
	RemoveOneWarning(groupID, userID string) (int, error)
	ClearWarnings(groupID, userID string) error
	ClearAllWarnings(groupID string) error
}

// PolicyStore supplies group policies.
type PolicyStore interface {
	Get(groupID string) (*models.GroupPolicy, error)
}

// BlacklistStore receives autoban cascade entries.
type BlacklistStore interface {
	AddToBlacklist(userID, reason, addedBy string) error
}

// AuditStore records the audit trail.
type AuditStore interface {
	Append(groupID, actorID, action, details string) error
}

// Engine applies warnings and evaluates escalation. It does not check
// permissions and never composes user-facing text; both belong to the
// command layer.
type Engine struct {
	members        MemberStore
	policies       PolicyStore
	blacklist      BlacklistStore
	audit          AuditStore
	gateway        Gateway
	ownerJID       string
	removalTimeout time.Duration
}

// NewEngine creates a moderation engine.
func NewEngine(members MemberStore, policies PolicyStore, blacklist BlacklistStore, audit AuditStore, gateway Gateway, ownerJID string, removalTimeout time.Duration) *Engine {
	if removalTimeout <= 0 {
		removalTimeout = 5 * time.Second
	}
	return &Engine{
		members:        members,
		policies:       policies,
		blacklist:      blacklist,
		audit:          audit,
		gateway:        gateway,
		ownerJID:       ownerJID,
		removalTimeout: removalTimeout,
	}
}

// WarnResult describes the outcome of one issued warning. When Escalated
// is set and Removed is not, RemovalErr carries the delivery failure; the
// warning itself stands regardless.
type WarnResult struct {
	WarningCount int
	MaxWarnings  int
	Escalated    bool
	Removed      bool
	RemovalErr   error
	AutoBanned   bool
}

// IssueWarning appends a warning for the target and runs the escalation
// cascade when the group's threshold is reached. Data-layer errors abort
// the operation; a failed removal is reported in the result, never as an
// error.
func (e *Engine) IssueWarning(ctx context.Context, groupID, actorID, targetID, reason string) (*WarnResult, error) {
	if targetID == e.ownerJID {
		return nil, ErrProtectedTarget
	}

	policy, err := e.policies.Get(groupID)
	if err != nil {
		return nil, fmt.Errorf("loading group policy: %w", err)
	}

	count, err := e.members.AppendWarning(groupID, targetID, reason, time.Now())
	if err != nil {
		return nil, fmt.Errorf("appending warning: %w", err)
	}

	result := &WarnResult{
		WarningCount: count,
		MaxWarnings:  policy.MaxWarnings,
	}

	if count >= policy.MaxWarnings {
		result.Escalated = true
		e.escalate(ctx, groupID, actorID, targetID, policy, result)
	}

	detail := fmt.Sprintf("warned %s (%d/%d): %s", targetID, result.WarningCount, result.MaxWarnings, reason)
	if result.Escalated {
		detail += fmt.Sprintf("; escalated removed=%t autoban=%t", result.Removed, result.AutoBanned)
	}
	if err := e.audit.Append(groupID, actorID, "warn", detail); err != nil {
		logger.Warningf("Error writing audit entry: %v", err)
	}

	return result, nil
}

// escalate attempts removal and, on success, clears the target's warnings
// and applies the autoban cascade. A timeout counts as delivery failure.
func (e *Engine) escalate(ctx context.Context, groupID, actorID, targetID string, policy *models.GroupPolicy, result *WarnResult) {
	removalCtx, cancel := context.WithTimeout(ctx, e.removalTimeout)
	defer cancel()

	if err := e.gateway.RemoveParticipant(removalCtx, groupID, targetID); err != nil {
		logger.Warningf("Escalation removal of %s from %s failed: %v", targetID, groupID, err)
		result.RemovalErr = err
		return
	}
	result.Removed = true

	if err := e.members.ClearWarnings(groupID, targetID); err != nil {
		logger.Warningf("Error clearing warnings after removal of %s: %v", targetID, err)
	}

	if policy.Autoban {
		if err := e.blacklist.AddToBlacklist(targetID, AutobanReason, actorID); err != nil {
			logger.Warningf("Error blacklisting %s after escalation: %v", targetID, err)
		} else {
			result.AutoBanned = true
		}
	}
}

// ClearWarnings clears warning state according to mode: one pops the most
// recent warning for the target, target resets the target, group resets
// every member. Returns the target's resulting count (0 for group mode).
func (e *Engine) ClearWarnings(groupID, actorID, targetID string, mode ClearMode) (int, error) {
	var (
		count  int
		err    error
		detail string
	)

	switch mode {
	case ClearOne:
		count, err = e.members.RemoveOneWarning(groupID, targetID)
		detail = fmt.Sprintf("removed one warning from %s, %d remain", targetID, count)
	case ClearTarget:
		err = e.members.ClearWarnings(groupID, targetID)
		detail = fmt.Sprintf("cleared all warnings of %s", targetID)
	case ClearGroup:
		err = e.members.ClearAllWarnings(groupID)
		detail = "cleared all warnings in group"
	default:
		return 0, fmt.Errorf("unknown clear mode %d", mode)
	}
	if err != nil {
		return 0, fmt.Errorf("clearing warnings: %w", err)
	}

	if err := e.audit.Append(groupID, actorID, "clear_warnings", detail); err != nil {
		logger.Warningf("Error writing audit entry: %v", err)
	}
	return count, nil
}

// WarningStatus returns the target's current count and history alongside
// the group's threshold.
func (e *Engine) WarningStatus(groupID, targetID string) (int, int, []models.Warning, error) {
	policy, err := e.policies.Get(groupID)
	if err != nil {
		return 0, 0, nil, fmt.Errorf("loading group policy: %w", err)
	}
	record, err := e.members.GetOrCreate(groupID, targetID)
	if err != nil {
		return 0, 0, nil, fmt.Errorf("loading member record: %w", err)
	}
	return record.WarningCount, policy.MaxWarnings, record.Warnings(), nil
}
