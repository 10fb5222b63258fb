package bot

import (
	"context"
	"fmt"
	"time"

	"spectral-companion/internal/analytics"
	"spectral-companion/internal/challenge"
	"spectral-companion/internal/config"
	"spectral-companion/internal/leveling"
	"spectral-companion/internal/modules/activity"
	"spectral-companion/internal/modules/verification"
	"spectral-companion/internal/storage"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

type Bot struct {
	cfg       config.Config
	logger    *zap.Logger
	store     *storage.Store
	session   *discordgo.Session
	scheduler *challenge.Scheduler
	verify    *verification.Module
	leveling  *leveling.Engine
	analytics *analytics.Service
	activity  *activity.Logger
}

func New(cfg config.Config, logger *zap.Logger, store *storage.Store, verify *verification.Module, levelingEngine *leveling.Engine, analyticsService *analytics.Service, activityLogger *activity.Logger) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, err
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsMessageContent

	return &Bot{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		session:   session,
		verify:    verify,
		leveling:  levelingEngine,
		analytics: analyticsService,
		activity:  activityLogger,
	}, nil
}

// SetScheduler wires the challenge scheduler after construction. The bot is
// built first because the scheduler needs it as its delivery sink.
func (b *Bot) SetScheduler(scheduler *challenge.Scheduler) {
	b.scheduler = scheduler
}

func (b *Bot) Start() error {
	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onMessageCreate)
	b.session.AddHandler(b.onInteractionCreate)

	if err := b.session.Open(); err != nil {
		return err
	}

	if err := b.registerCommands(); err != nil {
		return err
	}

	return nil
}

func (b *Bot) Close(ctx context.Context) {
	_ = ctx
	if b.session != nil {
		_ = b.session.Close()
	}
}

func (b *Bot) onReady(session *discordgo.Session, event *discordgo.Ready) {
	b.logger.Info("discord ready", zap.String("user", session.State.User.Username), zap.Int("guilds", len(event.Guilds)))
}

func (b *Bot) onMessageCreate(session *discordgo.Session, msg *discordgo.MessageCreate) {
	if msg.Author == nil || msg.Author.Bot {
		return
	}
	if msg.GuildID == "" {
		return
	}
	_ = session
	b.leveling.Award(msg.GuildID, msg.Author.ID, b.cfg.Leveling.MessageXP)
}

// SendChallenge delivers a rendered challenge embed into the guild channel.
// The scheduler advances renewal state only when this returns nil, so any
// failure here keeps the guild eligible for the next tick.
func (b *Bot) SendChallenge(ctx context.Context, channelID string, announcement challenge.Announcement) error {
	_ = ctx
	if channelID == "" {
		return fmt.Errorf("guild %s has no challenge channel", announcement.GuildID)
	}

	embed := b.buildChallengeEmbed(announcement)
	if _, err := b.session.ChannelMessageSendEmbed(channelID, embed); err != nil {
		return fmt.Errorf("send challenge to channel %s: %w", channelID, err)
	}
	return nil
}

func (b *Bot) buildChallengeEmbed(announcement challenge.Announcement) *discordgo.MessageEmbed {
	fields := []*discordgo.MessageEmbedField{
		{Name: "Cadence", Value: announcement.FrequencyLabel, Inline: true},
		{Name: "Next challenge", Value: fmt.Sprintf("<t:%d:R>", announcement.NextRenewal.Unix()), Inline: true},
	}
	if announcement.Bonus {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Bonus", Value: "Ghost objective included", Inline: true})
	}

	return &discordgo.MessageEmbed{
		Title:       announcement.Icon + " " + announcement.CategoryName + " Challenge",
		Description: announcement.Task,
		Color:       b.cfg.EmbedColors.Action,
		Timestamp:   time.Now().Format(time.RFC3339),
		Footer:      &discordgo.MessageEmbedFooter{Text: "Spectral Companion | " + announcement.TraceID},
		Fields:      fields,
	}
}

func (b *Bot) respond(session *discordgo.Session, interaction *discordgo.InteractionCreate, content string, ephemeral bool) {
	flags := discordgo.MessageFlags(0)
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	_ = session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   flags,
		},
	})
}

func (b *Bot) respondEmbed(session *discordgo.Session, interaction *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, ephemeral bool) {
	if embed == nil {
		b.respond(session, interaction, "No response available.", ephemeral)
		return
	}
	flags := discordgo.MessageFlags(0)
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	_ = session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Flags:  flags,
		},
	})
}

func (b *Bot) commandEmbed(title, description string, color int, fields []*discordgo.MessageEmbedField) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       color,
		Timestamp:   time.Now().Format(time.RFC3339),
		Fields:      fields,
	}
}
