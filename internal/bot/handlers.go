package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"spectral-companion/internal/challenge"
	"spectral-companion/internal/leveling"
	"spectral-companion/internal/modules/activity"
	"spectral-companion/internal/modules/verification"
	"spectral-companion/internal/storage"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

func (b *Bot) onInteractionCreate(session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	if interaction.Type != discordgo.InteractionApplicationCommand {
		return
	}

	ctx := context.Background()
	data := interaction.ApplicationCommandData()
	switch data.Name {
	case "challenge":
		b.handleChallenge(ctx, session, interaction, data.Options)
	case "verify":
		b.handleVerify(ctx, session, interaction)
	case "verify-answer":
		b.handleVerifyAnswer(ctx, session, interaction, data.Options)
	case "rank":
		b.handleRank(session, interaction, data.Options)
	case "stats":
		b.handleStats(ctx, session, interaction, data.Options)
	}
}

func (b *Bot) handleChallenge(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	if interaction.GuildID == "" {
		b.respondEmbed(session, interaction, b.commandEmbed("Challenge", "This command only works inside a server.", b.cfg.EmbedColors.Error, nil), true)
		return
	}
	if len(options) == 0 {
		b.respondEmbed(session, interaction, b.commandEmbed("Challenge", "Missing action.", b.cfg.EmbedColors.Error, nil), true)
		return
	}

	byName := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(options))
	for _, option := range options {
		byName[option.Name] = option
	}

	switch byName["action"].StringValue() {
	case "setup":
		b.handleChallengeSetup(ctx, session, interaction, byName)
	case "enable":
		b.handleChallengeToggle(ctx, session, interaction, true)
	case "disable":
		b.handleChallengeToggle(ctx, session, interaction, false)
	case "trigger":
		b.handleChallengeTrigger(ctx, session, interaction)
	case "status":
		b.handleChallengeStatus(ctx, session, interaction)
	}
}

func (b *Bot) handleChallengeSetup(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, byName map[string]*discordgo.ApplicationCommandInteractionDataOption) {
	channelOption, ok := byName["channel"]
	if !ok {
		b.respondEmbed(session, interaction, b.commandEmbed("Challenge setup", "Pick a channel for the challenge posts.", b.cfg.EmbedColors.Error, nil), true)
		return
	}
	channel := channelOption.ChannelValue(session)
	if channel == nil {
		b.respondEmbed(session, interaction, b.commandEmbed("Challenge setup", "Could not resolve that channel.", b.cfg.EmbedColors.Error, nil), true)
		return
	}

	freq := challenge.FreqDaily
	if option, ok := byName["frequency"]; ok {
		parsed, err := challenge.ParseFrequency(option.StringValue())
		if err != nil {
			b.respondEmbed(session, interaction, b.commandEmbed("Challenge setup", "Unknown frequency.", b.cfg.EmbedColors.Error, nil), true)
			return
		}
		freq = parsed
	}

	hour := b.cfg.Challenge.DefaultHour
	if option, ok := byName["hour"]; ok {
		hour = int(option.IntValue())
	}

	cfg := storage.ChallengeConfig{
		GuildID:    interaction.GuildID,
		ChannelID:  channel.ID,
		Enabled:    true,
		Frequency:  string(freq),
		CustomHour: hour,
	}
	if err := b.store.UpsertChallengeConfig(ctx, cfg); err != nil {
		b.logger.Warn("challenge setup failed", zap.String("guild_id", interaction.GuildID), zap.Error(err))
		b.respondEmbed(session, interaction, b.commandEmbed("Challenge setup", "Saving the configuration failed.", b.cfg.EmbedColors.Error, nil), true)
		return
	}

	fields := []*discordgo.MessageEmbedField{
		{Name: "Channel", Value: "<#" + channel.ID + ">", Inline: true},
		{Name: "Cadence", Value: freq.Label(), Inline: true},
	}
	if freq == challenge.FreqDaily {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Hour (UTC)", Value: fmt.Sprintf("%02d:00", hour), Inline: true})
	}
	b.respondEmbed(session, interaction, b.commandEmbed("Challenge setup", "Challenges are configured and enabled.", b.cfg.EmbedColors.Action, fields), true)
}

func (b *Bot) handleChallengeToggle(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, enabled bool) {
	found, err := b.store.SetChallengeEnabled(ctx, interaction.GuildID, enabled)
	if err != nil {
		b.respondEmbed(session, interaction, b.commandEmbed("Challenge", "Updating the configuration failed.", b.cfg.EmbedColors.Error, nil), true)
		return
	}
	if !found {
		b.respondEmbed(session, interaction, b.commandEmbed("Challenge", "No configuration yet. Run `/challenge setup` first.", b.cfg.EmbedColors.Warning, nil), true)
		return
	}
	message := "Challenges are paused."
	if enabled {
		message = "Challenges are running again."
	}
	b.respondEmbed(session, interaction, b.commandEmbed("Challenge", message, b.cfg.EmbedColors.Action, nil), true)
}

func (b *Bot) handleChallengeTrigger(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	if b.scheduler == nil {
		b.respondEmbed(session, interaction, b.commandEmbed("Challenge", "The scheduler is not running.", b.cfg.EmbedColors.Error, nil), true)
		return
	}
	if err := b.scheduler.ManualRenewal(ctx, interaction.GuildID); err != nil {
		if errors.Is(err, challenge.ErrNotConfigured) {
			b.respondEmbed(session, interaction, b.commandEmbed("Challenge", "No configuration yet. Run `/challenge setup` first.", b.cfg.EmbedColors.Warning, nil), true)
			return
		}
		b.logger.Warn("manual renewal failed", zap.String("guild_id", interaction.GuildID), zap.Error(err))
		b.respondEmbed(session, interaction, b.commandEmbed("Challenge", "Posting the challenge failed.", b.cfg.EmbedColors.Error, nil), true)
		return
	}
	b.respondEmbed(session, interaction, b.commandEmbed("Challenge", "A fresh challenge was posted.", b.cfg.EmbedColors.Action, nil), true)
}

func (b *Bot) handleChallengeStatus(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	cfg, found, err := b.store.GetChallengeConfig(ctx, interaction.GuildID)
	if err != nil {
		b.respondEmbed(session, interaction, b.commandEmbed("Challenge status", "Loading the configuration failed.", b.cfg.EmbedColors.Error, nil), true)
		return
	}
	if !found {
		b.respondEmbed(session, interaction, b.commandEmbed("Challenge status", "No configuration yet. Run `/challenge setup` first.", b.cfg.EmbedColors.Warning, nil), true)
		return
	}

	freq, err := challenge.ParseFrequency(cfg.Frequency)
	if err != nil {
		freq = challenge.FreqDaily
	}

	state := "paused"
	if cfg.Enabled {
		state = "running"
	}
	lastRenewal := "never"
	if cfg.LastRenewal != nil {
		lastRenewal = fmt.Sprintf("<t:%d:R>", cfg.LastRenewal.Unix())
	}

	fields := []*discordgo.MessageEmbedField{
		{Name: "State", Value: state, Inline: true},
		{Name: "Channel", Value: "<#" + cfg.ChannelID + ">", Inline: true},
		{Name: "Cadence", Value: freq.Label(), Inline: true},
		{Name: "Last challenge", Value: lastRenewal, Inline: true},
	}
	if cfg.Enabled {
		next := freq.NextRenewal(time.Now().UTC(), cfg.CustomHour)
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Next challenge", Value: fmt.Sprintf("<t:%d:R>", next.Unix()), Inline: true})
	}
	if b.scheduler != nil {
		status := b.scheduler.Status()
		tier, ok := status.Tiers[cfg.Frequency]
		scheduled := ok && tier.Running
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Scheduler", Value: fmt.Sprintf("%t", scheduled), Inline: true})
	}
	b.respondEmbed(session, interaction, b.commandEmbed("Challenge status", "Current challenge configuration.", b.cfg.EmbedColors.Action, fields), true)
}

func (b *Bot) handleVerify(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	if interaction.GuildID == "" || interaction.Member == nil || interaction.Member.User == nil {
		b.respondEmbed(session, interaction, b.commandEmbed("Verification", "This command only works inside a server.", b.cfg.EmbedColors.Error, nil), true)
		return
	}
	userID := interaction.Member.User.ID

	quiz, err := b.verify.Start(ctx, interaction.GuildID, userID)
	if err != nil {
		if errors.Is(err, verification.ErrRateLimited) {
			b.respondEmbed(session, interaction, b.commandEmbed("Verification", "Too many attempts. Wait a few minutes and try again.", b.cfg.EmbedColors.Warning, nil), true)
			return
		}
		b.logger.Warn("verification start failed", zap.String("user_id", userID), zap.Error(err))
		b.respondEmbed(session, interaction, b.commandEmbed("Verification", "Starting the check failed.", b.cfg.EmbedColors.Error, nil), true)
		return
	}

	var body strings.Builder
	body.WriteString(quiz.Question.Prompt)
	body.WriteString("\n\n")
	for i, option := range quiz.Question.Options {
		fmt.Fprintf(&body, "**%d.** %s\n", i+1, option)
	}
	fmt.Fprintf(&body, "\nAnswer with `/verify-answer` before <t:%d:R>.", quiz.ExpiresAt.Unix())

	b.respondEmbed(session, interaction, b.commandEmbed("Ghost knowledge check", body.String(), b.cfg.EmbedColors.Action, nil), true)
}

func (b *Bot) handleVerifyAnswer(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	if interaction.Member == nil || interaction.Member.User == nil {
		b.respondEmbed(session, interaction, b.commandEmbed("Verification", "This command only works inside a server.", b.cfg.EmbedColors.Error, nil), true)
		return
	}
	if len(options) == 0 {
		b.respondEmbed(session, interaction, b.commandEmbed("Verification", "Missing answer number.", b.cfg.EmbedColors.Error, nil), true)
		return
	}
	userID := interaction.Member.User.ID
	index := int(options[0].IntValue()) - 1

	result, err := b.verify.Answer(ctx, userID, index)
	if err != nil {
		if errors.Is(err, verification.ErrNoPending) {
			b.respondEmbed(session, interaction, b.commandEmbed("Verification", "No open check. Start one with `/verify`.", b.cfg.EmbedColors.Warning, nil), true)
			return
		}
		b.logger.Warn("verification answer failed", zap.String("user_id", userID), zap.Error(err))
		b.respondEmbed(session, interaction, b.commandEmbed("Verification", "Resolving the check failed.", b.cfg.EmbedColors.Error, nil), true)
		return
	}

	switch {
	case result.TimedOut:
		b.respondEmbed(session, interaction, b.commandEmbed("Verification", "Too slow, the check expired. Start a new one with `/verify`.", b.cfg.EmbedColors.Warning, nil), true)
	case result.Correct:
		message := fmt.Sprintf("Correct, answered in %s.", result.Elapsed.Round(time.Second))
		b.respondEmbed(session, interaction, b.commandEmbed("Verification", message, b.cfg.EmbedColors.Action, nil), true)
	default:
		message := "Wrong answer."
		if result.CorrectOption != "" {
			message = "Wrong answer. It was: " + result.CorrectOption
		}
		b.respondEmbed(session, interaction, b.commandEmbed("Verification", message, b.cfg.EmbedColors.Warning, nil), true)
	}
}

func (b *Bot) handleRank(session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	if interaction.GuildID == "" {
		b.respondEmbed(session, interaction, b.commandEmbed("Rank", "This command only works inside a server.", b.cfg.EmbedColors.Error, nil), true)
		return
	}

	userID := ""
	if len(options) > 0 {
		if user := options[0].UserValue(session); user != nil {
			userID = user.ID
		}
	}
	if userID == "" && interaction.Member != nil && interaction.Member.User != nil {
		userID = interaction.Member.User.ID
	}
	if userID == "" {
		b.respondEmbed(session, interaction, b.commandEmbed("Rank", "Could not resolve the member.", b.cfg.EmbedColors.Error, nil), true)
		return
	}

	xp := b.leveling.XP(interaction.GuildID, userID)
	fields := []*discordgo.MessageEmbedField{
		{Name: "Member", Value: "<@" + userID + ">", Inline: true},
		{Name: "Level", Value: fmt.Sprintf("%d", leveling.Level(xp)), Inline: true},
		{Name: "XP", Value: fmt.Sprintf("%.0f", xp), Inline: true},
	}
	if top := b.leveling.Top(interaction.GuildID, 5); len(top) > 0 {
		lines := make([]string, 0, len(top))
		for i, entry := range top {
			lines = append(lines, fmt.Sprintf("%d. <@%s> - level %d (%.0f XP)", i+1, entry.UserID, leveling.Level(entry.XP), entry.XP))
		}
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Top hunters", Value: strings.Join(lines, "\n"), Inline: false})
	}
	b.respondEmbed(session, interaction, b.commandEmbed("Rank", "Activity rank for this server.", b.cfg.EmbedColors.Action, fields), true)
}

func (b *Bot) handleStats(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	if interaction.GuildID == "" {
		b.respondEmbed(session, interaction, b.commandEmbed("Stats", "This command only works inside a server.", b.cfg.EmbedColors.Error, nil), true)
		return
	}

	period := "day"
	if len(options) > 0 {
		period = options[0].StringValue()
	}
	since := time.Now().Add(-24 * time.Hour)
	if period == "week" {
		since = time.Now().Add(-7 * 24 * time.Hour)
	}

	report, err := b.analytics.Report(ctx, interaction.GuildID, since)
	if err != nil {
		b.respondEmbed(session, interaction, b.commandEmbed("Stats", "Loading the stats failed.", b.cfg.EmbedColors.Error, nil), true)
		return
	}
	quizStats := b.verify.GuildStats(interaction.GuildID)

	fields := []*discordgo.MessageEmbedField{
		{Name: "Events", Value: fmt.Sprintf("%d", report.Total), Inline: true},
		{Name: "Challenges posted", Value: fmt.Sprintf("%d", report.ByEvent[activity.EventChallengeRenewed]), Inline: true},
		{Name: "Failed posts", Value: fmt.Sprintf("%d", report.ByEvent[activity.EventChallengeFailed]), Inline: true},
		{Name: "Checks started", Value: fmt.Sprintf("%d", quizStats.Started), Inline: true},
		{Name: "Checks passed", Value: fmt.Sprintf("%d", quizStats.Passed), Inline: true},
		{Name: "Checks failed", Value: fmt.Sprintf("%d", quizStats.Failed+quizStats.TimedOut), Inline: true},
	}
	b.respondEmbed(session, interaction, b.commandEmbed("Stats", fmt.Sprintf("Activity over the last %s.", period), b.cfg.EmbedColors.Action, fields), true)
}
