package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"wa-groupguard/internal/logger"
	"wa-groupguard/internal/models"
	"wa-groupguard/internal/moderation"
	"wa-groupguard/internal/service"
)

// Dispatch routes a parsed command to its implementation. Every recognized
// command produces exactly one reply; unknown words are ignored so the bot
// stays quiet on other bots' prefixes.
func (h *Handler) Dispatch(ctx context.Context, event *CommandEvent) {
	switch event.Cmd {
	case "warn", "advertir":
		h.cmdWarn(ctx, event)
	case "unwarn":
		h.cmdClearWarnings(ctx, event, moderation.ClearOne)
	case "clearwarns", "clearwarnings":
		if len(event.Args) > 0 && strings.EqualFold(event.Args[0], "all") {
			h.cmdClearWarnings(ctx, event, moderation.ClearGroup)
		} else {
			h.cmdClearWarnings(ctx, event, moderation.ClearTarget)
		}
	case "warnings", "warns":
		h.cmdWarningStatus(ctx, event)
	case "warned":
		h.cmdWarned(ctx, event)
	case "mute":
		h.cmdSetMuted(ctx, event, true)
	case "unmute":
		h.cmdSetMuted(ctx, event, false)
	case "setrole", "rol":
		h.cmdSetRole(ctx, event)
	case "promote":
		h.cmdGroupAdmin(ctx, event, true)
	case "demote":
		h.cmdGroupAdmin(ctx, event, false)
	case "kick", "ban":
		h.cmdKick(ctx, event)
	case "add":
		h.cmdAdd(ctx, event)
	case "blacklist", "listanegra":
		h.cmdBlacklist(ctx, event)
	case "unblacklist":
		h.cmdUnblacklist(ctx, event)
	case "blacklisted":
		h.cmdListBlacklist(ctx, event)
	case "whitelist":
		h.cmdWhitelist(ctx, event, true)
	case "unwhitelist":
		h.cmdWhitelist(ctx, event, false)
	case "setmaxwarns":
		h.cmdSetMaxWarnings(ctx, event)
	case "setbanmsg":
		h.cmdSetMessage(ctx, event, "punishment_message")
	case "setwelcome":
		h.cmdSetMessage(ctx, event, "welcome_message")
	case "toggle", "enable", "disable":
		h.cmdToggle(ctx, event)
	case "settings", "toggles":
		h.cmdSettings(ctx, event)
	case "status":
		h.cmdStatus(ctx, event)
	case "activity", "actividad":
		h.cmdActivity(ctx, event)
	case "inactive", "inactivos":
		h.cmdInactive(ctx, event)
	case "rules", "reglas":
		h.cmdRules(ctx, event)
	case "perms", "nivel":
		h.cmdPerms(ctx, event)
	case "audit", "log":
		h.cmdAudit(ctx, event)
	default:
		// unknown word after one of our prefixes, stay quiet
		logger.Debugf("Unhandled command %q from %s in %s", event.Cmd, event.SenderID, event.GroupID)
	}
}

// reply sends the single user-facing response for a command.
func (h *Handler) reply(ctx context.Context, event *CommandEvent, text string, mentions ...string) {
	if err := h.gateway.SendMessage(ctx, event.GroupID, text, mentions); err != nil {
		logger.Warningf("Error sending reply to %s: %v", event.GroupID, err)
	}
}

// require gates a command on the sender's effective level, replying with a
// denial when the gate fails.
func (h *Handler) require(ctx context.Context, event *CommandEvent, level models.PermissionLevel) bool {
	if h.resolver.CanExecute(event.GroupID, event.SenderID, event.IsGroupAdmin, level) {
		return true
	}
	logger.Infof("Denied %s for %s in %s: %v", event.Cmd, event.SenderID, event.GroupID, moderation.ErrPermissionDenied)
	h.reply(ctx, event, fmt.Sprintf("You need %s level or above to use this command.", level))
	return false
}

// requireTarget checks the command named someone to act on.
func (h *Handler) requireTarget(ctx context.Context, event *CommandEvent) bool {
	if event.Target != "" {
		return true
	}
	h.reply(ctx, event, "Mention a user, reply to their message, or pass their number.")
	return false
}

func (h *Handler) cmdWarn(ctx context.Context, event *CommandEvent) {
	if !h.require(ctx, event, models.LevelMod) || !h.requireTarget(ctx, event) {
		return
	}

	reason := reasonFromArgs(event.Args)
	result, err := h.engine.IssueWarning(ctx, event.GroupID, event.SenderID, event.Target, reason)
	if err != nil {
		if errors.Is(err, moderation.ErrProtectedTarget) {
			h.reply(ctx, event, "The owner cannot be warned.")
			return
		}
		logger.Errorf("Error issuing warning to %s in %s: %v", event.Target, event.GroupID, err)
		h.reply(ctx, event, "Could not record the warning, try again.")
		return
	}

	h.reply(ctx, event, h.warnReplyText(event, result), event.Target)
}

// warnReplyText composes the single reply for a warning outcome, covering
// the plain warning, a successful removal, and a failed removal.
func (h *Handler) warnReplyText(event *CommandEvent, result *moderation.WarnResult) string {
	base := fmt.Sprintf("%s has been warned (%d/%d).", mention(event.Target), result.WarningCount, result.MaxWarnings)
	if !result.Escalated {
		return base
	}
	if !result.Removed {
		return base + " Warning limit reached but I could not remove them. Make sure I am a group admin."
	}

	text := base + " Warning limit reached, removing."
	if result.AutoBanned {
		text += " They are now blacklisted."
	}
	if policy, err := service.Policies().Get(event.GroupID); err == nil && policy.PunishmentMessage != "" {
		text += "\n" + policy.PunishmentMessage
	}
	return text
}

func (h *Handler) cmdClearWarnings(ctx context.Context, event *CommandEvent, mode moderation.ClearMode) {
	required := models.LevelMod
	if mode == moderation.ClearGroup {
		required = models.LevelAdmin
	}
	if !h.require(ctx, event, required) {
		return
	}
	if mode != moderation.ClearGroup && !h.requireTarget(ctx, event) {
		return
	}

	count, err := h.engine.ClearWarnings(event.GroupID, event.SenderID, event.Target, mode)
	if err != nil {
		logger.Errorf("Error clearing warnings in %s: %v", event.GroupID, err)
		h.reply(ctx, event, "Could not clear warnings, try again.")
		return
	}

	switch mode {
	case moderation.ClearOne:
		h.reply(ctx, event, fmt.Sprintf("Removed one warning from %s, %d remaining.", mention(event.Target), count), event.Target)
	case moderation.ClearTarget:
		h.reply(ctx, event, fmt.Sprintf("Cleared all warnings of %s.", mention(event.Target)), event.Target)
	case moderation.ClearGroup:
		h.reply(ctx, event, "Cleared all warnings in this group.")
	}
}

func (h *Handler) cmdWarningStatus(ctx context.Context, event *CommandEvent) {
	target := event.Target
	if target == "" {
		target = event.SenderID
	}

	count, max, history, err := h.engine.WarningStatus(event.GroupID, target)
	if err != nil {
		logger.Errorf("Error reading warning status for %s: %v", target, err)
		h.reply(ctx, event, "Could not read warning status, try again.")
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s has %d/%d warnings.", mention(target), count, max)
	for i, w := range history {
		fmt.Fprintf(&sb, "\n%d. %s (%s)", i+1, w.Reason, w.Date.Format("2006-01-02"))
	}
	h.reply(ctx, event, sb.String(), target)
}

func (h *Handler) cmdWarned(ctx context.Context, event *CommandEvent) {
	if !h.require(ctx, event, models.LevelMod) {
		return
	}

	records, err := service.Members().GetWarned(event.GroupID)
	if err != nil {
		logger.Errorf("Error listing warned members in %s: %v", event.GroupID, err)
		h.reply(ctx, event, "Could not list warned members, try again.")
		return
	}
	if len(records) == 0 {
		h.reply(ctx, event, "Nobody in this group has warnings.")
		return
	}

	var sb strings.Builder
	sb.WriteString("Warned members:")
	mentions := make([]string, 0, len(records))
	for _, rec := range records {
		fmt.Fprintf(&sb, "\n%s: %d", mention(rec.UserID), rec.WarningCount)
		mentions = append(mentions, rec.UserID)
	}
	h.reply(ctx, event, sb.String(), mentions...)
}

func (h *Handler) cmdSetMuted(ctx context.Context, event *CommandEvent, muted bool) {
	if !h.require(ctx, event, models.LevelMod) || !h.requireTarget(ctx, event) {
		return
	}
	if muted && h.resolver.IsOwner(event.Target) {
		h.reply(ctx, event, "The owner cannot be muted.")
		return
	}

	err := service.Members().ApplyDelta(event.GroupID, event.Target, map[string]interface{}{"is_muted": muted})
	if err != nil {
		logger.Errorf("Error updating mute state for %s: %v", event.Target, err)
		h.reply(ctx, event, "Could not update mute state, try again.")
		return
	}

	action, text := "unmute", "%s is no longer muted."
	if muted {
		action, text = "mute", "%s is muted, their messages will be deleted."
	}
	if err := service.Audit().Append(event.GroupID, event.SenderID, action, "target "+event.Target); err != nil {
		logger.Warningf("Error writing audit entry: %v", err)
	}
	h.reply(ctx, event, fmt.Sprintf(text, mention(event.Target)), event.Target)
}

func (h *Handler) cmdSetRole(ctx context.Context, event *CommandEvent) {
	if !h.require(ctx, event, models.LevelAdmin) || !h.requireTarget(ctx, event) {
		return
	}

	roleArg := ""
	for _, arg := range event.Args {
		if _, isNumber := numberToJID(arg); !isNumber && !strings.HasPrefix(arg, "@") {
			roleArg = arg
			break
		}
	}
	role, ok := models.ParseRole(strings.ToLower(roleArg))
	if !ok {
		h.reply(ctx, event, "Usage: setrole @user <admin|mod|aux|member>")
		return
	}
	if h.resolver.IsOwner(event.Target) {
		h.reply(ctx, event, "The owner's role cannot be changed.")
		return
	}

	if err := service.Members().SetRole(event.GroupID, event.Target, role); err != nil {
		logger.Errorf("Error setting role for %s: %v", event.Target, err)
		h.reply(ctx, event, "Could not set the role, try again.")
		return
	}
	if err := service.Audit().Append(event.GroupID, event.SenderID, "setrole", fmt.Sprintf("%s -> %s", event.Target, role)); err != nil {
		logger.Warningf("Error writing audit entry: %v", err)
	}
	h.reply(ctx, event, fmt.Sprintf("%s is now %s.", mention(event.Target), role), event.Target)
}

func (h *Handler) cmdGroupAdmin(ctx context.Context, event *CommandEvent, promote bool) {
	if !h.require(ctx, event, models.LevelAdmin) || !h.requireTarget(ctx, event) {
		return
	}

	var err error
	if promote {
		err = h.gateway.PromoteParticipant(ctx, event.GroupID, event.Target)
	} else {
		err = h.gateway.DemoteParticipant(ctx, event.GroupID, event.Target)
	}
	if err != nil {
		logger.Warningf("Error changing group admin for %s in %s: %v", event.Target, event.GroupID, err)
		h.reply(ctx, event, "Could not change group admin status. Make sure I am a group admin.")
		return
	}

	action, text := "demote", "%s is no longer a group admin."
	if promote {
		action, text = "promote", "%s is now a group admin."
	}
	if err := service.Audit().Append(event.GroupID, event.SenderID, action, "target "+event.Target); err != nil {
		logger.Warningf("Error writing audit entry: %v", err)
	}
	h.reply(ctx, event, fmt.Sprintf(text, mention(event.Target)), event.Target)
}

func (h *Handler) cmdKick(ctx context.Context, event *CommandEvent) {
	if !h.require(ctx, event, models.LevelMod) || !h.requireTarget(ctx, event) {
		return
	}
	if h.resolver.IsOwner(event.Target) {
		h.reply(ctx, event, "The owner cannot be removed.")
		return
	}

	if err := h.gateway.RemoveParticipant(ctx, event.GroupID, event.Target); err != nil {
		logger.Warningf("Error removing %s from %s: %v", event.Target, event.GroupID, err)
		h.reply(ctx, event, "Could not remove them. Make sure I am a group admin.")
		return
	}
	if err := service.Audit().Append(event.GroupID, event.SenderID, "kick", "target "+event.Target); err != nil {
		logger.Warningf("Error writing audit entry: %v", err)
	}
	h.reply(ctx, event, fmt.Sprintf("%s has been removed.", mention(event.Target)), event.Target)
}

func (h *Handler) cmdAdd(ctx context.Context, event *CommandEvent) {
	if !h.require(ctx, event, models.LevelAdmin) || !h.requireTarget(ctx, event) {
		return
	}

	banned, err := service.Blacklist().IsBlacklisted(event.Target)
	if err != nil {
		logger.Warningf("Error checking blacklist for %s: %v", event.Target, err)
	}
	if banned {
		h.reply(ctx, event, fmt.Sprintf("%s is blacklisted, remove them from the blacklist first.", mention(event.Target)), event.Target)
		return
	}

	if err := h.gateway.AddParticipant(ctx, event.GroupID, event.Target); err != nil {
		logger.Warningf("Error adding %s to %s: %v", event.Target, event.GroupID, err)
		h.reply(ctx, event, "Could not add them. They may have left recently or blocked invites.")
		return
	}
	if err := service.Audit().Append(event.GroupID, event.SenderID, "add", "target "+event.Target); err != nil {
		logger.Warningf("Error writing audit entry: %v", err)
	}
	h.reply(ctx, event, fmt.Sprintf("%s has been added.", mention(event.Target)), event.Target)
}

func (h *Handler) cmdBlacklist(ctx context.Context, event *CommandEvent) {
	if !h.require(ctx, event, models.LevelAdmin) || !h.requireTarget(ctx, event) {
		return
	}
	if h.resolver.IsOwner(event.Target) {
		h.reply(ctx, event, "The owner cannot be blacklisted.")
		return
	}

	reason := reasonFromArgs(event.Args)
	if err := service.Blacklist().AddToBlacklist(event.Target, reason, event.SenderID); err != nil {
		logger.Errorf("Error blacklisting %s: %v", event.Target, err)
		h.reply(ctx, event, "Could not update the blacklist, try again.")
		return
	}
	if err := service.Audit().Append(event.GroupID, event.SenderID, "blacklist", fmt.Sprintf("%s: %s", event.Target, reason)); err != nil {
		logger.Warningf("Error writing audit entry: %v", err)
	}

	// best effort removal from the group where the command was issued
	removed := ""
	if err := h.gateway.RemoveParticipant(ctx, event.GroupID, event.Target); err == nil {
		removed = " and removed from this group"
	}
	h.reply(ctx, event, fmt.Sprintf("%s has been blacklisted%s.", mention(event.Target), removed), event.Target)
}

func (h *Handler) cmdUnblacklist(ctx context.Context, event *CommandEvent) {
	if !h.require(ctx, event, models.LevelAdmin) || !h.requireTarget(ctx, event) {
		return
	}

	if err := service.Blacklist().RemoveFromBlacklist(event.Target); err != nil {
		logger.Errorf("Error unblacklisting %s: %v", event.Target, err)
		h.reply(ctx, event, "Could not update the blacklist, try again.")
		return
	}
	if err := service.Audit().Append(event.GroupID, event.SenderID, "unblacklist", "target "+event.Target); err != nil {
		logger.Warningf("Error writing audit entry: %v", err)
	}
	h.reply(ctx, event, fmt.Sprintf("%s has been removed from the blacklist.", mention(event.Target)), event.Target)
}

func (h *Handler) cmdListBlacklist(ctx context.Context, event *CommandEvent) {
	if !h.require(ctx, event, models.LevelMod) {
		return
	}

	entries, err := service.Blacklist().ListBlacklist()
	if err != nil {
		logger.Errorf("Error listing blacklist: %v", err)
		h.reply(ctx, event, "Could not read the blacklist, try again.")
		return
	}
	if len(entries) == 0 {
		h.reply(ctx, event, "The blacklist is empty.")
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Blacklisted users (%d):", len(entries))
	for _, e := range entries {
		fmt.Fprintf(&sb, "\n%s - %s", mention(e.UserID), e.Reason)
	}
	h.reply(ctx, event, sb.String())
}

func (h *Handler) cmdWhitelist(ctx context.Context, event *CommandEvent, add bool) {
	if !h.require(ctx, event, models.LevelAdmin) || !h.requireTarget(ctx, event) {
		return
	}

	var err error
	action, text := "unwhitelist", "%s is no longer exempt from content filters."
	if add {
		err = service.Blacklist().AddToWhitelist(event.GroupID, event.Target, event.SenderID)
		action, text = "whitelist", "%s is now exempt from content filters."
	} else {
		err = service.Blacklist().RemoveFromWhitelist(event.GroupID, event.Target)
	}
	if err != nil {
		logger.Errorf("Error updating whitelist for %s: %v", event.Target, err)
		h.reply(ctx, event, "Could not update the whitelist, try again.")
		return
	}
	if err := service.Audit().Append(event.GroupID, event.SenderID, action, "target "+event.Target); err != nil {
		logger.Warningf("Error writing audit entry: %v", err)
	}
	h.reply(ctx, event, fmt.Sprintf(text, mention(event.Target)), event.Target)
}

func (h *Handler) cmdSetMaxWarnings(ctx context.Context, event *CommandEvent) {
	if !h.require(ctx, event, models.LevelAdmin) {
		return
	}

	if len(event.Args) == 0 {
		h.reply(ctx, event, "Usage: setmaxwarns <number>")
		return
	}
	max, err := strconv.Atoi(event.Args[0])
	if err != nil || max < 1 {
		h.reply(ctx, event, "The warning limit must be a number of at least 1.")
		return
	}

	if err := service.Policies().Update(event.GroupID, map[string]interface{}{"max_warnings": max}); err != nil {
		logger.Errorf("Error updating max warnings for %s: %v", event.GroupID, err)
		h.reply(ctx, event, "Could not update the warning limit, try again.")
		return
	}
	if err := service.Audit().Append(event.GroupID, event.SenderID, "setmaxwarns", strconv.Itoa(max)); err != nil {
		logger.Warningf("Error writing audit entry: %v", err)
	}
	h.reply(ctx, event, fmt.Sprintf("Warning limit set to %d.", max))
}

func (h *Handler) cmdSetMessage(ctx context.Context, event *CommandEvent, column string) {
	if !h.require(ctx, event, models.LevelAdmin) {
		return
	}
	if event.FullArgs == "" {
		h.reply(ctx, event, "Provide the message text after the command.")
		return
	}

	if err := service.Policies().Update(event.GroupID, map[string]interface{}{column: event.FullArgs}); err != nil {
		logger.Errorf("Error updating %s for %s: %v", column, event.GroupID, err)
		h.reply(ctx, event, "Could not save the message, try again.")
		return
	}
	if err := service.Audit().Append(event.GroupID, event.SenderID, "set_"+column, event.FullArgs); err != nil {
		logger.Warningf("Error writing audit entry: %v", err)
	}
	h.reply(ctx, event, "Message saved.")
}

var knownToggles = []string{
	models.ToggleWelcome,
	models.ToggleAntilink,
	models.ToggleWarnLink,
	models.ToggleAntiflood,
	models.ToggleWarnFlood,
	models.ToggleAutoban,
	models.ToggleAdminOnly,
}

func isKnownToggle(name string) bool {
	for _, t := range knownToggles {
		if t == name {
			return true
		}
	}
	return false
}

func (h *Handler) cmdToggle(ctx context.Context, event *CommandEvent) {
	if !h.require(ctx, event, models.LevelAdmin) {
		return
	}

	if len(event.Args) == 0 || !isKnownToggle(strings.ToLower(event.Args[0])) {
		h.reply(ctx, event, "Usage: toggle <"+strings.Join(knownToggles, "|")+">")
		return
	}
	name := strings.ToLower(event.Args[0])

	enabled, err := service.Policies().Toggle(event.GroupID, name)
	if err != nil {
		logger.Errorf("Error flipping toggle %s for %s: %v", name, event.GroupID, err)
		h.reply(ctx, event, "Could not change the setting, try again.")
		return
	}
	if err := service.Audit().Append(event.GroupID, event.SenderID, "toggle", fmt.Sprintf("%s=%t", name, enabled)); err != nil {
		logger.Warningf("Error writing audit entry: %v", err)
	}

	state := "disabled"
	if enabled {
		state = "enabled"
	}
	h.reply(ctx, event, fmt.Sprintf("%s is now %s.", name, state))
}

// reasonFromArgs strips mention tokens and phone numbers from the argument
// list, leaving the free-text reason.
func reasonFromArgs(args []string) string {
	var words []string
	for _, arg := range args {
		if strings.HasPrefix(arg, "@") {
			continue
		}
		if _, ok := numberToJID(arg); ok {
			continue
		}
		words = append(words, arg)
	}
	reason := strings.Join(words, " ")
	if reason == "" {
		reason = "no reason given"
	}
	return reason
}
