package handler

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"wa-groupguard/internal/logger"
	"wa-groupguard/internal/models"
	"wa-groupguard/internal/service"
)

// cmdSettings lists the group's current policy and toggle states.
func (h *Handler) cmdSettings(ctx context.Context, event *CommandEvent) {
	if !h.require(ctx, event, models.LevelMod) {
		return
	}

	policy, err := service.Policies().Get(event.GroupID)
	if err != nil {
		logger.Errorf("Error loading policy for %s: %v", event.GroupID, err)
		h.reply(ctx, event, "Could not read the group settings, try again.")
		return
	}

	toggles := policy.ToggleMap()
	names := make([]string, 0, len(knownToggles))
	names = append(names, knownToggles...)
	for name := range toggles {
		if !isKnownToggle(name) {
			names = append(names, name)
		}
	}
	sort.Strings(names[len(knownToggles):])

	var sb strings.Builder
	fmt.Fprintf(&sb, "Settings for %s:", h.groupLabel(ctx, event.GroupID))
	fmt.Fprintf(&sb, "\nwarning limit: %d", policy.MaxWarnings)
	for _, name := range names {
		state := "off"
		if toggles[name] {
			state = "on"
		}
		fmt.Fprintf(&sb, "\n%s: %s", name, state)
	}
	h.reply(ctx, event, sb.String())
}

// cmdStatus summarizes the group: member counts, warned members, policy.
func (h *Handler) cmdStatus(ctx context.Context, event *CommandEvent) {
	if !h.require(ctx, event, models.LevelMod) {
		return
	}

	policy, err := service.Policies().Get(event.GroupID)
	if err != nil {
		logger.Errorf("Error loading policy for %s: %v", event.GroupID, err)
		h.reply(ctx, event, "Could not read the group status, try again.")
		return
	}
	warned, err := service.Members().GetWarned(event.GroupID)
	if err != nil {
		logger.Errorf("Error listing warned members in %s: %v", event.GroupID, err)
		h.reply(ctx, event, "Could not read the group status, try again.")
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Status of %s:", h.groupLabel(ctx, event.GroupID))
	fmt.Fprintf(&sb, "\nwarning limit: %d, autoban: %t", policy.MaxWarnings, policy.Autoban)
	fmt.Fprintf(&sb, "\nmembers with warnings: %d", len(warned))
	if policy.ToggleEnabled(models.ToggleAdminOnly) {
		sb.WriteString("\nthe group is in admin-only mode")
	}
	h.reply(ctx, event, sb.String())
}

// cmdActivity shows a member's message counter and last-seen time.
func (h *Handler) cmdActivity(ctx context.Context, event *CommandEvent) {
	target := event.Target
	if target == "" {
		target = event.SenderID
	}

	record, err := service.Members().GetOrCreate(event.GroupID, target)
	if err != nil {
		logger.Errorf("Error loading member record for %s: %v", target, err)
		h.reply(ctx, event, "Could not read activity, try again.")
		return
	}

	h.reply(ctx, event, fmt.Sprintf("%s: %d messages, last active %s.",
		mention(target), record.MessageCount, record.LastActiveAt.Format("2006-01-02 15:04")), target)
}

// cmdInactive lists members idle for longer than the configured cutoff.
func (h *Handler) cmdInactive(ctx context.Context, event *CommandEvent) {
	if !h.require(ctx, event, models.LevelMod) {
		return
	}

	days := h.cfg.Moderation.InactiveDays
	if days < 1 {
		days = 7
	}
	cutoff := time.Now().AddDate(0, 0, -days)

	records, err := service.Members().GetInactive(event.GroupID, cutoff)
	if err != nil {
		logger.Errorf("Error listing inactive members in %s: %v", event.GroupID, err)
		h.reply(ctx, event, "Could not list inactive members, try again.")
		return
	}
	if len(records) == 0 {
		h.reply(ctx, event, fmt.Sprintf("Nobody has been inactive for more than %d days.", days))
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Inactive for more than %d days:", days)
	mentions := make([]string, 0, len(records))
	for _, rec := range records {
		fmt.Fprintf(&sb, "\n%s, last seen %s", mention(rec.UserID), rec.LastActiveAt.Format("2006-01-02"))
		mentions = append(mentions, rec.UserID)
	}
	h.reply(ctx, event, sb.String(), mentions...)
}

// cmdPerms reports the sender's (or target's) effective permission level.
func (h *Handler) cmdPerms(ctx context.Context, event *CommandEvent) {
	target := event.Target
	isAdmin := event.IsGroupAdmin
	if target == "" {
		target = event.SenderID
	} else {
		var err error
		isAdmin, err = h.gateway.IsGroupAdmin(ctx, event.GroupID, target)
		if err != nil {
			logger.Warningf("Error checking group admin status for %s: %v", target, err)
		}
	}

	level := h.resolver.ResolveLevel(event.GroupID, target, isAdmin)
	h.reply(ctx, event, fmt.Sprintf("%s has %s level (%d).", mention(target), level, int(level)), target)
}

// cmdAudit shows the most recent moderation actions in the group.
func (h *Handler) cmdAudit(ctx context.Context, event *CommandEvent) {
	if !h.require(ctx, event, models.LevelAdmin) {
		return
	}

	entries, err := service.Audit().Recent(event.GroupID, 10)
	if err != nil {
		logger.Errorf("Error reading audit log for %s: %v", event.GroupID, err)
		h.reply(ctx, event, "Could not read the audit log, try again.")
		return
	}
	if len(entries) == 0 {
		h.reply(ctx, event, "No moderation actions recorded yet.")
		return
	}

	var sb strings.Builder
	sb.WriteString("Recent moderation actions:")
	for _, e := range entries {
		fmt.Fprintf(&sb, "\n[%s] %s by %s: %s",
			e.CreatedAt.Format("01-02 15:04"), e.Action, mention(e.ActorID), e.Details)
	}
	h.reply(ctx, event, sb.String())
}

// cmdRules shows the group description as the house rules.
func (h *Handler) cmdRules(ctx context.Context, event *CommandEvent) {
	topic := h.gateway.GroupTopic(ctx, event.GroupID)
	if topic == "" {
		h.reply(ctx, event, "This group has no description set.")
		return
	}
	h.reply(ctx, event, "Rules of "+h.groupLabel(ctx, event.GroupID)+":\n"+topic)
}

// groupLabel prefers the group subject, falling back to the JID.
func (h *Handler) groupLabel(ctx context.Context, groupID string) string {
	if name := h.gateway.GroupName(ctx, groupID); name != "" {
		return name
	}
	return groupID
}
