// Package handler turns inbound WhatsApp events into moderation
// operations. Commands are parsed from prefixed group messages; content
// filters and join enforcement run on everything else.
package handler

import (
	"context"
	"strings"
	"sync/atomic"

	"go.mau.fi/whatsmeow"
	waProto "go.mau.fi/whatsmeow/binary/proto"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"

	"wa-groupguard/internal/config"
	"wa-groupguard/internal/crash"
	"wa-groupguard/internal/gateway"
	"wa-groupguard/internal/logger"
	"wa-groupguard/internal/models"
	"wa-groupguard/internal/moderation"
	"wa-groupguard/internal/permission"
	"wa-groupguard/internal/service"
)

// Handler processes inbound events for one bot instance.
type Handler struct {
	cfg      *config.Config
	engine   *moderation.Engine
	resolver *permission.Resolver
	gateway  *gateway.WhatsmeowGateway

	// own JID, written on registration and (re)connect, read by handler
	// goroutines
	botJID atomic.Value
}

// New creates a Handler.
func New(cfg *config.Config, engine *moderation.Engine, resolver *permission.Resolver, gw *gateway.WhatsmeowGateway) *Handler {
	return &Handler{cfg: cfg, engine: engine, resolver: resolver, gateway: gw}
}

// Register attaches the handler to a whatsmeow client.
func (h *Handler) Register(client *whatsmeow.Client) {
	// restored sessions know their JID before any event arrives
	if client.Store.ID != nil {
		h.botJID.Store(client.Store.ID.ToNonAD().String())
	}
	client.AddEventHandler(func(evt interface{}) {
		switch v := evt.(type) {
		case *events.Message:
			// off the client's event loop so slow handling never stalls it
			crash.SafeGoroutine("message", func() { h.handleMessage(v) })
		case *events.GroupInfo:
			crash.SafeGoroutine("group-info", func() { h.handleGroupInfo(v) })
		case *events.Connected:
			if client.Store.ID != nil {
				h.botJID.Store(client.Store.ID.ToNonAD().String())
			}
			logger.Infof("Connected to WhatsApp")
		}
	})
}

// selfJID returns the bot's own JID, empty until the first pairing
// completes.
func (h *Handler) selfJID() string {
	if jid, ok := h.botJID.Load().(string); ok {
		return jid
	}
	return ""
}

// CommandEvent is one parsed inbound command.
type CommandEvent struct {
	GroupID      string
	SenderID     string
	Target       string
	Cmd          string
	Args         []string
	FullArgs     string
	IsGroupAdmin bool
	MessageID    string
}

func (h *Handler) handleMessage(evt *events.Message) {
	if !evt.Info.IsGroup || evt.Info.IsFromMe {
		return
	}

	ctx := context.Background()
	groupID := evt.Info.Chat.String()
	senderID := evt.Info.Sender.ToNonAD().String()
	text := extractText(evt.Message)

	// every observed interaction keeps the member record warm
	if err := service.Members().TouchActivity(groupID, senderID, evt.Info.Timestamp); err != nil {
		logger.Warningf("Error recording activity for %s: %v", senderID, err)
	}

	cmd, args, ok := h.parseCommand(text)
	if !ok {
		h.runContentFilters(ctx, evt, groupID, senderID, text)
		return
	}

	isGroupAdmin, err := h.gateway.IsGroupAdmin(ctx, groupID, senderID)
	if err != nil {
		logger.Warningf("Error checking group admin status for %s: %v", senderID, err)
	}

	event := &CommandEvent{
		GroupID:      groupID,
		SenderID:     senderID,
		Target:       extractTarget(evt.Message, args),
		Cmd:          cmd,
		Args:         args,
		FullArgs:     strings.Join(args, " "),
		IsGroupAdmin: isGroupAdmin,
		MessageID:    string(evt.Info.ID),
	}

	h.Dispatch(ctx, event)
}

// parseCommand strips a configured prefix and splits the command word from
// its arguments.
func (h *Handler) parseCommand(text string) (string, []string, bool) {
	if text == "" {
		return "", nil, false
	}
	for _, prefix := range h.cfg.Bot.Prefixes {
		if strings.HasPrefix(text, prefix) {
			fields := strings.Fields(strings.TrimPrefix(text, prefix))
			if len(fields) == 0 {
				return "", nil, false
			}
			return strings.ToLower(fields[0]), fields[1:], true
		}
	}
	return "", nil, false
}

// handleGroupInfo enforces the blacklist on sight and welcomes joiners.
func (h *Handler) handleGroupInfo(evt *events.GroupInfo) {
	ctx := context.Background()
	groupID := evt.JID.String()

	for _, jid := range evt.Join {
		userID := jid.ToNonAD().String()

		banned, err := service.Blacklist().IsBlacklisted(userID)
		if err != nil {
			logger.Warningf("Error checking blacklist for %s: %v", userID, err)
		}
		if banned {
			logger.Infof("Blacklisted user %s joined %s, removing", userID, groupID)
			if err := h.gateway.RemoveParticipant(ctx, groupID, userID); err != nil {
				logger.Warningf("Error removing blacklisted user %s: %v", userID, err)
				continue
			}
			if err := service.Audit().Append(groupID, h.selfJID(), "autoremove", "removed blacklisted "+userID); err != nil {
				logger.Warningf("Error writing audit entry: %v", err)
			}
			continue
		}

		h.welcome(ctx, groupID, userID)
	}
}

func (h *Handler) welcome(ctx context.Context, groupID, userID string) {
	policy, err := service.Policies().Get(groupID)
	if err != nil {
		logger.Warningf("Error loading policy for %s: %v", groupID, err)
		return
	}
	if !policy.ToggleEnabled(models.ToggleWelcome) {
		return
	}
	caption := policy.WelcomeMessage
	if caption == "" {
		caption = "Welcome to the group, " + mention(userID) + "!"
	} else {
		caption = strings.ReplaceAll(caption, "@user", mention(userID))
	}
	if err := h.gateway.SendMessage(ctx, groupID, caption, []string{userID}); err != nil {
		logger.Warningf("Error sending welcome message: %v", err)
	}
}

func extractText(msg *waProto.Message) string {
	if msg == nil {
		return ""
	}
	if msg.GetConversation() != "" {
		return msg.GetConversation()
	}
	if ext := msg.GetExtendedTextMessage(); ext != nil {
		return ext.GetText()
	}
	if img := msg.GetImageMessage(); img != nil {
		return img.GetCaption()
	}
	if vid := msg.GetVideoMessage(); vid != nil {
		return vid.GetCaption()
	}
	return ""
}

// extractTarget picks the command target: an explicit mention wins, then
// the quoted message's sender, then a phone number argument.
func extractTarget(msg *waProto.Message, args []string) string {
	if ext := msg.GetExtendedTextMessage(); ext != nil {
		if ci := ext.GetContextInfo(); ci != nil {
			if len(ci.GetMentionedJID()) > 0 {
				return ci.GetMentionedJID()[0]
			}
			if ci.GetParticipant() != "" {
				return ci.GetParticipant()
			}
		}
	}
	for _, arg := range args {
		if jid, ok := numberToJID(arg); ok {
			return jid
		}
	}
	return ""
}

// numberToJID turns a bare phone number argument into a user JID.
func numberToJID(s string) (string, bool) {
	num := strings.TrimLeft(s, "+@")
	if num == "" {
		return "", false
	}
	for _, r := range num {
		if r < '0' || r > '9' {
			return "", false
		}
	}
	if len(num) < 7 {
		return "", false
	}
	return types.NewJID(num, types.DefaultUserServer).String(), true
}

// mention renders a JID as the @number form WhatsApp links to the
// mentioned contact.
func mention(userID string) string {
	jid, err := types.ParseJID(userID)
	if err != nil {
		return "@" + userID
	}
	return "@" + jid.User
}
