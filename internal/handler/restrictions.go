package handler

import (
	"context"
	"regexp"
	"strings"

	"go.mau.fi/whatsmeow/types/events"

	"wa-groupguard/internal/logger"
	"wa-groupguard/internal/models"
	"wa-groupguard/internal/service"
)

var linkPattern = regexp.MustCompile(`(?i)(https?://|www\.|chat\.whatsapp\.com/)\S+`)

// runContentFilters applies the passive enforcement pipeline to a normal
// group message: mute enforcement, admin-only mode, antilink and antiflood.
// The first filter that fires wins; moderators and above are exempt.
func (h *Handler) runContentFilters(ctx context.Context, evt *events.Message, groupID, senderID, text string) {
	policy, err := service.Policies().Get(groupID)
	if err != nil {
		logger.Warningf("Error loading policy for %s: %v", groupID, err)
		return
	}

	record, err := service.Members().GetOrCreate(groupID, senderID)
	if err != nil {
		logger.Warningf("Error loading member record for %s: %v", senderID, err)
		return
	}

	if record.IsMuted {
		h.deleteOffendingMessage(ctx, evt, groupID, senderID, "muted member")
		return
	}

	isGroupAdmin, err := h.gateway.IsGroupAdmin(ctx, groupID, senderID)
	if err != nil {
		logger.Warningf("Error checking group admin status for %s: %v", senderID, err)
	}
	if h.resolver.ResolveLevel(groupID, senderID, isGroupAdmin) >= models.LevelMod {
		return
	}

	if policy.ToggleEnabled(models.ToggleAdminOnly) {
		h.deleteOffendingMessage(ctx, evt, groupID, senderID, "admin-only mode")
		return
	}

	if policy.ToggleEnabled(models.ToggleAntilink) && h.containsForbiddenLink(text) {
		h.enforceAntilink(ctx, evt, groupID, senderID, policy)
		return
	}

	if policy.ToggleEnabled(models.ToggleAntiflood) {
		h.enforceAntiflood(ctx, evt, groupID, senderID, policy)
	}
}

// containsForbiddenLink reports whether the text carries a link outside the
// configured allow list.
func (h *Handler) containsForbiddenLink(text string) bool {
	matches := linkPattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return false
	}
	for _, match := range matches {
		allowed := false
		for _, host := range h.cfg.Bot.AllowedLinks {
			if strings.Contains(strings.ToLower(match), strings.ToLower(host)) {
				allowed = true
				break
			}
		}
		if !allowed {
			return true
		}
	}
	return false
}

func (h *Handler) enforceAntilink(ctx context.Context, evt *events.Message, groupID, senderID string, policy *models.GroupPolicy) {
	exempt, err := service.Blacklist().IsWhitelisted(groupID, senderID)
	if err != nil {
		logger.Warningf("Error checking whitelist for %s: %v", senderID, err)
	}
	if exempt {
		return
	}

	h.deleteOffendingMessage(ctx, evt, groupID, senderID, "forbidden link")

	if !policy.ToggleEnabled(models.ToggleWarnLink) {
		return
	}
	self := h.selfJID()
	result, err := h.engine.IssueWarning(ctx, groupID, self, senderID, "posted a forbidden link")
	if err != nil {
		logger.Warningf("Error warning %s for link: %v", senderID, err)
		return
	}
	event := &CommandEvent{GroupID: groupID, SenderID: self, Target: senderID}
	h.reply(ctx, event, "Links are not allowed here. "+h.warnReplyText(event, result), senderID)
}

func (h *Handler) enforceAntiflood(ctx context.Context, evt *events.Message, groupID, senderID string, policy *models.GroupPolicy) {
	limit := h.cfg.Moderation.FloodLimit
	if limit < 1 {
		return
	}
	if service.Flood().Record(groupID, senderID) <= limit {
		return
	}

	h.deleteOffendingMessage(ctx, evt, groupID, senderID, "flooding")
	// fresh window so one burst yields one sanction
	service.Flood().Reset(groupID, senderID)

	if !policy.ToggleEnabled(models.ToggleWarnFlood) {
		return
	}
	self := h.selfJID()
	result, err := h.engine.IssueWarning(ctx, groupID, self, senderID, "flooding the group")
	if err != nil {
		logger.Warningf("Error warning %s for flooding: %v", senderID, err)
		return
	}
	event := &CommandEvent{GroupID: groupID, SenderID: self, Target: senderID}
	h.reply(ctx, event, "Slow down. "+h.warnReplyText(event, result), senderID)
}

func (h *Handler) deleteOffendingMessage(ctx context.Context, evt *events.Message, groupID, senderID, why string) {
	logger.Infof("Deleting message from %s in %s: %s", senderID, groupID, why)
	if err := h.gateway.DeleteMessage(ctx, groupID, evt.Info.Sender.String(), string(evt.Info.ID)); err != nil {
		logger.Warningf("Error deleting message from %s: %v", senderID, err)
	}
}
