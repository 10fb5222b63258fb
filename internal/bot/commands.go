package bot

import "github.com/bwmarrin/discordgo"

func (b *Bot) registerCommands() error {
	adminPerms := int64(discordgo.PermissionManageServer)
	minAnswer := float64(1)
	minHour := float64(0)

	commands := []*discordgo.ApplicationCommand{
		{
			Name:                     "challenge",
			Description:              "Manage the recurring community challenge",
			DefaultMemberPermissions: &adminPerms,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "action",
					Description: "What to do",
					Required:    true,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "setup", Value: "setup"},
						{Name: "enable", Value: "enable"},
						{Name: "disable", Value: "disable"},
						{Name: "trigger", Value: "trigger"},
						{Name: "status", Value: "status"},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionChannel,
					Name:        "channel",
					Description: "Channel to post challenges in",
					Required:    false,
					ChannelTypes: []discordgo.ChannelType{
						discordgo.ChannelTypeGuildText,
						discordgo.ChannelTypeGuildNews,
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "frequency",
					Description: "How often a new challenge is posted",
					Required:    false,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "every hour", Value: "hourly"},
						{Name: "every 3 hours", Value: "every3h"},
						{Name: "every 6 hours", Value: "every6h"},
						{Name: "every 12 hours", Value: "every12h"},
						{Name: "daily", Value: "daily"},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "hour",
					Description: "Hour of day for the daily tier (0-23, UTC)",
					Required:    false,
					MinValue:    &minHour,
					MaxValue:    23,
				},
			},
		},
		{
			Name:        "verify",
			Description: "Start a ghost hunting knowledge check",
		},
		{
			Name:        "verify-answer",
			Description: "Answer your pending knowledge check",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "number",
					Description: "Option number (1-4)",
					Required:    true,
					MinValue:    &minAnswer,
					MaxValue:    4,
				},
			},
		},
		{
			Name:        "rank",
			Description: "Show activity rank",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "Member to look up",
					Required:    false,
				},
			},
		},
		{
			Name:        "stats",
			Description: "Show community activity stats",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "period",
					Description: "Reporting window",
					Required:    false,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "day", Value: "day"},
						{Name: "week", Value: "week"},
					},
				},
			},
		},
	}

	appID := b.session.State.User.ID
	existing, err := b.session.ApplicationCommands(appID, "")
	if err != nil {
		for _, cmd := range commands {
			if _, err := b.session.ApplicationCommandCreate(appID, "", cmd); err != nil {
				return err
			}
		}
		return nil
	}

	existingByName := make(map[string]*discordgo.ApplicationCommand)
	for _, cmd := range existing {
		existingByName[cmd.Name] = cmd
	}

	desired := make(map[string]struct{})
	for _, cmd := range commands {
		desired[cmd.Name] = struct{}{}
		if current, ok := existingByName[cmd.Name]; ok {
			if _, err := b.session.ApplicationCommandEdit(appID, "", current.ID, cmd); err != nil {
				return err
			}
			continue
		}
		if _, err := b.session.ApplicationCommandCreate(appID, "", cmd); err != nil {
			return err
		}
	}

	for _, cmd := range existing {
		if _, ok := desired[cmd.Name]; ok {
			continue
		}
		_ = b.session.ApplicationCommandDelete(appID, "", cmd.ID)
	}

	return nil
}
