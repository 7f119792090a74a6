package bot

import (
	"context"
	"slices"

	"github.com/ACUCyS/weekly-ctf-bot/constants"
	"github.com/ACUCyS/weekly-ctf-bot/errors"
	"github.com/ACUCyS/weekly-ctf-bot/models"
	"github.com/ACUCyS/weekly-ctf-bot/utils"

	"github.com/bwmarrin/discordgo"
)

// isAdministrator 길드 관리자 권한이 있는지 확인합니다
func isAdministrator(i *discordgo.Interaction) bool {
	return i.Member != nil && i.Member.Permissions&discordgo.PermissionAdministrator != 0
}

// isAuthor 관리자이거나 길드에 설정된 작성자 역할을 가진 사용자인지 확인합니다
func (ch *CommandHandler) isAuthor(ctx context.Context, i *discordgo.Interaction) bool {
	if i.Member == nil || i.GuildID == "" {
		return false
	}
	if isAdministrator(i) {
		return true
	}

	server, err := ch.deps.Storage.GetServer(ctx, i.GuildID)
	if err != nil {
		utils.Warn("Failed to load server settings for %s: %v", i.GuildID, err)
		return false
	}
	return server.AuthorRoleID != "" && slices.Contains(i.Member.Roles, server.AuthorRoleID)
}

func (ch *CommandHandler) requireAuthor(ctx context.Context, i *discordgo.Interaction) error {
	if ch.isAuthor(ctx, i) {
		return nil
	}
	return permissionError()
}

func permissionError() error {
	return errors.NewPermissionError("INSUFFICIENT_PERMISSIONS", "author role required",
		constants.ErrorMessages["INSUFFICIENT_PERMISSIONS"])
}

// handleServerSettings 길드 설정을 보여주거나 변경합니다. 옵션이 없으면 현재 설정만 보여줍니다
func (ch *CommandHandler) handleServerSettings(ctx context.Context, r Responder, i *discordgo.Interaction, data discordgo.ApplicationCommandInteractionData) error {
	if !isAdministrator(i) {
		return errors.NewPermissionError("ADMINISTRATOR_REQUIRED", "administrator required", constants.MsgAdministratorRequired)
	}

	update, changed := settingsUpdate(optionMap(data.Options))
	var (
		server *models.Server
		err    error
	)
	if changed {
		server, err = ch.deps.Storage.UpdateServer(ctx, i.GuildID, update)
	} else {
		server, err = ch.deps.Storage.GetServer(ctx, i.GuildID)
	}
	if err != nil {
		return errors.NewSystemError("STORAGE_ERROR", "server settings", err)
	}

	content := ""
	if changed {
		utils.Info("Server settings for guild %s updated by %s", i.GuildID, interactionUserID(i))
		content = constants.EmojiSuccess + " " + constants.MsgSettingsUpdated
	}
	return errors.RespondEphemeralComplex(r, i, &discordgo.InteractionResponseData{
		Content: content,
		Embeds:  []*discordgo.MessageEmbed{ServerSettingsEmbed(server)},
	})
}

// settingsUpdate 명령어 옵션을 설정 변경 내용으로 바꿉니다. clear 는 다른 옵션보다 나중에 적용됩니다
func settingsUpdate(options map[string]string) (models.ServerUpdate, bool) {
	var update models.ServerUpdate
	changed := false

	fields := map[string]**string{
		constants.OptionAuthorRole:          &update.AuthorRoleID,
		constants.OptionPingRole:            &update.PingRoleID,
		constants.OptionAnnouncementChannel: &update.AnnouncementChannelID,
		constants.OptionSolveChannel:        &update.SolveChannelID,
	}
	for name, field := range fields {
		if value, ok := options[name]; ok && value != "" {
			v := value
			*field = &v
			changed = true
		}
	}

	if target, ok := fields[options[constants.OptionClear]]; ok {
		empty := ""
		*target = &empty
		changed = true
	}
	return update, changed
}
