package bot

import (
	"github.com/ACUCyS/weekly-ctf-bot/constants"
	"github.com/ACUCyS/weekly-ctf-bot/utils"

	"github.com/bwmarrin/discordgo"
)

// CommandRegistrar 슬래시 명령어 등록에 필요한 discordgo.Session 메서드입니다
type CommandRegistrar interface {
	ApplicationCommandBulkOverwrite(appID string, guildID string, commands []*discordgo.ApplicationCommand, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
}

func challengeOption(description string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:         discordgo.ApplicationCommandOptionString,
		Name:         constants.OptionChallenge,
		Description:  description,
		Required:     false,
		Autocomplete: true,
	}
}

// SlashCommands 봇이 등록하는 슬래시 명령어 목록입니다
func SlashCommands() []*discordgo.ApplicationCommand {
	adminOnly := int64(discordgo.PermissionAdministrator)
	guildOnly := false

	return []*discordgo.ApplicationCommand{
		{
			Name:         constants.CommandNewChallenge,
			Description:  "Create a new challenge.",
			DMPermission: &guildOnly,
		},
		{
			Name:         constants.CommandChallenge,
			Description:  "Get information about the current challenge(s).",
			DMPermission: &guildOnly,
			Options: []*discordgo.ApplicationCommandOption{
				challengeOption("The challenge to view. Leave blank to view the current challenge."),
			},
		},
		{
			Name:         constants.CommandSubmitFlag,
			Description:  "Submit the flag for a challenge.",
			DMPermission: &guildOnly,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        constants.OptionFlag,
					Description: "The flag to submit",
					Required:    false,
					MaxLength:   constants.MaxSubmittedFlagLength,
				},
				challengeOption("The challenge to submit the flag to. Leave blank to select the current active challenge."),
			},
		},
		{
			Name:         constants.CommandSubmissions,
			Description:  "Get information about a challenge's submissions.",
			DMPermission: &guildOnly,
			Options: []*discordgo.ApplicationCommandOption{
				challengeOption("The challenge to view the submissions for. Leave blank to view the current challenge."),
			},
		},
		{
			Name:         constants.CommandEditChallenge,
			Description:  "Edit a challenge.",
			DMPermission: &guildOnly,
			Options: []*discordgo.ApplicationCommandOption{
				challengeOption("The challenge to edit. Leave blank to edit the current challenge."),
			},
		},
		{
			Name:         constants.CommandSetStatus,
			Description:  "Set a challenge's status.",
			DMPermission: &guildOnly,
			Options: []*discordgo.ApplicationCommandOption{
				challengeOption("The challenge to update. Leave blank to update the current challenge."),
			},
		},
		{
			Name:                     constants.CommandServerSettings,
			Description:              "View or change this server's bot settings.",
			DefaultMemberPermissions: &adminOnly,
			DMPermission:             &guildOnly,
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionRole, Name: constants.OptionAuthorRole, Description: "Role allowed to manage challenges"},
				{Type: discordgo.ApplicationCommandOptionRole, Name: constants.OptionPingRole, Description: "Role pinged by announcements (default @everyone)"},
				{
					Type:         discordgo.ApplicationCommandOptionChannel,
					Name:         constants.OptionAnnouncementChannel,
					Description:  "Channel for challenge announcements",
					ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText, discordgo.ChannelTypeGuildNews},
				},
				{
					Type:         discordgo.ApplicationCommandOptionChannel,
					Name:         constants.OptionSolveChannel,
					Description:  "Channel for solve notifications",
					ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText, discordgo.ChannelTypeGuildNews},
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        constants.OptionClear,
					Description: "Reset one setting",
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "Author role", Value: constants.OptionAuthorRole},
						{Name: "Ping role", Value: constants.OptionPingRole},
						{Name: "Announcement channel", Value: constants.OptionAnnouncementChannel},
						{Name: "Solve channel", Value: constants.OptionSolveChannel},
					},
				},
			},
		},
		{
			Name:        constants.CommandUptime,
			Description: "Displays how long the bot has been running.",
		},
	}
}

// RegisterCommands 슬래시 명령어를 등록합니다. guildID 가 비어있으면 전역으로 등록합니다
func RegisterCommands(r CommandRegistrar, appID, guildID string) error {
	registered, err := r.ApplicationCommandBulkOverwrite(appID, guildID, SlashCommands())
	if err != nil {
		return err
	}
	scope := "globally"
	if guildID != "" {
		scope = "in guild " + guildID
	}
	utils.Info("Synced %d slash commands %s", len(registered), scope)
	return nil
}
