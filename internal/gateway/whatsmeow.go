// Package gateway adapts the whatsmeow client to the narrow administrative
// surface the rest of the bot consumes. All calls go to the WhatsApp
// transport and can fail or time out; callers decide what a failure means.
package gateway

import (
	"context"
	"fmt"

	"go.mau.fi/whatsmeow"
	waProto "go.mau.fi/whatsmeow/binary/proto"
	"go.mau.fi/whatsmeow/types"
	"google.golang.org/protobuf/proto"
)

// WhatsmeowGateway implements the moderation and command-layer gateway
// contracts over a connected whatsmeow client.
type WhatsmeowGateway struct {
	client *whatsmeow.Client
}

// NewWhatsmeowGateway wraps a whatsmeow client.
func NewWhatsmeowGateway(client *whatsmeow.Client) *WhatsmeowGateway {
	return &WhatsmeowGateway{client: client}
}

func parseJIDs(groupID, userID string) (types.JID, types.JID, error) {
	group, err := types.ParseJID(groupID)
	if err != nil {
		return types.EmptyJID, types.EmptyJID, fmt.Errorf("invalid group jid %q: %w", groupID, err)
	}
	user, err := types.ParseJID(userID)
	if err != nil {
		return types.EmptyJID, types.EmptyJID, fmt.Errorf("invalid user jid %q: %w", userID, err)
	}
	return group, user, nil
}

// RemoveParticipant removes a user from a group.
func (g *WhatsmeowGateway) RemoveParticipant(ctx context.Context, groupID, userID string) error {
	group, user, err := parseJIDs(groupID, userID)
	if err != nil {
		return err
	}
	_, err = g.client.UpdateGroupParticipants(ctx, group, []types.JID{user}, whatsmeow.ParticipantChangeRemove)
	if err != nil {
		return fmt.Errorf("removing %s from %s: %w", userID, groupID, err)
	}
	return nil
}

// AddParticipant invites a user into a group.
func (g *WhatsmeowGateway) AddParticipant(ctx context.Context, groupID, userID string) error {
	group, user, err := parseJIDs(groupID, userID)
	if err != nil {
		return err
	}
	_, err = g.client.UpdateGroupParticipants(ctx, group, []types.JID{user}, whatsmeow.ParticipantChangeAdd)
	if err != nil {
		return fmt.Errorf("adding %s to %s: %w", userID, groupID, err)
	}
	return nil
}

// PromoteParticipant grants platform group-admin rights.
func (g *WhatsmeowGateway) PromoteParticipant(ctx context.Context, groupID, userID string) error {
	group, user, err := parseJIDs(groupID, userID)
	if err != nil {
		return err
	}
	_, err = g.client.UpdateGroupParticipants(ctx, group, []types.JID{user}, whatsmeow.ParticipantChangePromote)
	if err != nil {
		return fmt.Errorf("promoting %s in %s: %w", userID, groupID, err)
	}
	return nil
}

// DemoteParticipant revokes platform group-admin rights.
func (g *WhatsmeowGateway) DemoteParticipant(ctx context.Context, groupID, userID string) error {
	group, user, err := parseJIDs(groupID, userID)
	if err != nil {
		return err
	}
	_, err = g.client.UpdateGroupParticipants(ctx, group, []types.JID{user}, whatsmeow.ParticipantChangeDemote)
	if err != nil {
		return fmt.Errorf("demoting %s in %s: %w", userID, groupID, err)
	}
	return nil
}

// SendMessage delivers a text reply to a chat, optionally tagging mentions.
func (g *WhatsmeowGateway) SendMessage(ctx context.Context, groupID, text string, mentions []string) error {
	group, err := types.ParseJID(groupID)
	if err != nil {
		return fmt.Errorf("invalid group jid %q: %w", groupID, err)
	}

	var msg *waProto.Message
	if len(mentions) > 0 {
		msg = &waProto.Message{
			ExtendedTextMessage: &waProto.ExtendedTextMessage{
				Text: proto.String(text),
				ContextInfo: &waProto.ContextInfo{
					MentionedJID: mentions,
				},
			},
		}
	} else {
		msg = &waProto.Message{Conversation: proto.String(text)}
	}

	_, err = g.client.SendMessage(ctx, group, msg)
	if err != nil {
		return fmt.Errorf("sending message to %s: %w", groupID, err)
	}
	return nil
}

// DeleteMessage revokes a message in a chat.
func (g *WhatsmeowGateway) DeleteMessage(ctx context.Context, groupID, senderID string, messageID string) error {
	group, sender, err := parseJIDs(groupID, senderID)
	if err != nil {
		return err
	}
	_, err = g.client.SendMessage(ctx, group, g.client.BuildRevoke(group, sender, types.MessageID(messageID)))
	if err != nil {
		return fmt.Errorf("revoking message %s in %s: %w", messageID, groupID, err)
	}
	return nil
}

// IsGroupAdmin reports whether a user holds platform admin rights in a group.
func (g *WhatsmeowGateway) IsGroupAdmin(ctx context.Context, groupID, userID string) (bool, error) {
	group, user, err := parseJIDs(groupID, userID)
	if err != nil {
		return false, err
	}
	info, err := g.client.GetGroupInfo(ctx, group)
	if err != nil {
		return false, fmt.Errorf("fetching group info for %s: %w", groupID, err)
	}
	for _, p := range info.Participants {
		if p.JID.User == user.User && (p.IsAdmin || p.IsSuperAdmin) {
			return true, nil
		}
	}
	return false, nil
}

// GroupName returns the subject of a group, empty when unavailable.
func (g *WhatsmeowGateway) GroupName(ctx context.Context, groupID string) string {
	group, err := types.ParseJID(groupID)
	if err != nil {
		return ""
	}
	info, err := g.client.GetGroupInfo(ctx, group)
	if err != nil {
		return ""
	}
	return info.Name
}

// GroupTopic returns the group description, empty when unavailable.
func (g *WhatsmeowGateway) GroupTopic(ctx context.Context, groupID string) string {
	group, err := types.ParseJID(groupID)
	if err != nil {
		return ""
	}
	info, err := g.client.GetGroupInfo(ctx, group)
	if err != nil {
		return ""
	}
	return info.Topic
}
