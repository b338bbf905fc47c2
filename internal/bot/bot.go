// Package bot wires the ingestion coordinator to Discord: it watches one
// channel for messages carrying attachments, extracts the client-name context
// and submitter identity, and posts back the coordinator's summary and status
// reaction.
package bot

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"stocktake/internal/config"
	"stocktake/internal/ingest"
)

// Bot owns the Discord session and the message handler.
type Bot struct {
	session     *discordgo.Session
	coordinator *ingest.Coordinator
	channelID   string
	log         *zap.Logger
}

// New builds the bot and registers its handlers. The session is not opened
// yet; call Start.
func New(cfg config.DiscordConfig, coordinator *ingest.Coordinator, log *zap.Logger) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentMessageContent
	// Dispatch handlers synchronously; the default spawns a goroutine per
	// event, which would run two pipelines at once when messages arrive
	// back-to-back.
	session.SyncEvents = true

	b := &Bot{
		session:     session,
		coordinator: coordinator,
		channelID:   cfg.ChannelID,
		log:         log,
	}
	session.AddHandler(b.onReady)
	session.AddHandler(b.onMessage)
	return b, nil
}

// Start opens the gateway connection.
func (b *Bot) Start() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord session: %w", err)
	}
	return nil
}

// Stop closes the gateway connection.
func (b *Bot) Stop() error {
	return b.session.Close()
}

func (b *Bot) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	b.log.Info("connected to discord",
		zap.String("user", r.User.Username),
		zap.String("channel", b.channelID))
}

// onMessage handles one inbound message to completion before discordgo
// dispatches the next one to us (SyncEvents is set on the session); there is
// no concurrent event processing of our own on top of that.
func (b *Bot) onMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.ID == s.State.User.ID {
		return
	}
	if m.ChannelID != b.channelID {
		return
	}
	// Only messages carrying attachments engage the pipeline; plain chatter
	// in the channel is left alone.
	if len(m.Attachments) == 0 {
		return
	}

	clientName := strings.TrimSpace(m.Content)
	if clientName == "" {
		clientName = stripMentions(m.Content)
	}

	ev := ingest.Event{
		ClientName:  clientName,
		Submitter:   displayName(m),
		CreatedAt:   m.Timestamp,
		Attachments: convertAttachments(m.Attachments),
	}

	// The acknowledgement counts only what the pipeline will actually
	// process; non-image attachments don't inflate it. With no images there
	// is nothing to wait for, so the outcome is posted directly.
	var ack *discordgo.Message
	if images := len(ingest.ImageAttachments(ev.Attachments)); images > 0 {
		var err error
		ack, err = s.ChannelMessageSendReply(m.ChannelID, ackText(images), m.Reference())
		if err != nil {
			b.log.Warn("failed to send processing acknowledgement", zap.Error(err))
		}
	}

	// One event runs to completion; no cancellation mechanism exists once a
	// pipeline run has started.
	out := b.coordinator.Process(context.Background(), ev)

	if ack != nil {
		if _, err := s.ChannelMessageEdit(m.ChannelID, ack.ID, out.Reply); err != nil {
			b.log.Warn("failed to edit acknowledgement, replying fresh", zap.Error(err))
			ack = nil
		}
	}
	if ack == nil {
		if _, err := s.ChannelMessageSendReply(m.ChannelID, out.Reply, m.Reference()); err != nil {
			b.log.Error("failed to send reply", zap.Error(err))
		}
	}

	if err := s.MessageReactionAdd(m.ChannelID, m.ID, reactionFor(out.Status)); err != nil {
		b.log.Warn("failed to add reaction", zap.Error(err))
	}
}

func ackText(images int) string {
	return fmt.Sprintf("⏳ Processing %d image attachment(s)… Please wait.", images)
}

// reactionFor maps an outcome status to its reaction marker.
func reactionFor(status ingest.Status) string {
	switch status {
	case ingest.StatusSuccess:
		return "✅"
	case ingest.StatusPartial:
		return "⚠️"
	case ingest.StatusNoInput:
		return "❓"
	default:
		return "❌"
	}
}

var mentionPattern = regexp.MustCompile(`<@[!&]?\d+>|<#\d+>`)

// stripMentions removes user, role, and channel mention markup, leaving any
// plain text the message carried around them.
func stripMentions(content string) string {
	return strings.TrimSpace(mentionPattern.ReplaceAllString(content, ""))
}

// displayName prefers the server nickname, then the global display name,
// then the account username.
func displayName(m *discordgo.MessageCreate) string {
	if m.Member != nil && m.Member.Nick != "" {
		return m.Member.Nick
	}
	if m.Author.GlobalName != "" {
		return m.Author.GlobalName
	}
	return m.Author.Username
}

func convertAttachments(atts []*discordgo.MessageAttachment) []ingest.Attachment {
	out := make([]ingest.Attachment, 0, len(atts))
	for _, a := range atts {
		out = append(out, ingest.Attachment{
			URL:         a.URL,
			Filename:    a.Filename,
			ContentType: a.ContentType,
		})
	}
	return out
}
