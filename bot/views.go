package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/ACUCyS/weekly-ctf-bot/constants"
	"github.com/ACUCyS/weekly-ctf-bot/models"
	"github.com/ACUCyS/weekly-ctf-bot/utils"

	"github.com/bwmarrin/discordgo"
)

// 모달 입력 필드 CustomID
const (
	fieldName        = "name"
	fieldDescription = "description"
	fieldFlag        = "flag"
	fieldURL         = "url"
	fieldFiles       = "files"
	fieldStart       = "start"
	fieldFinish      = "finish"
	fieldHidden      = "hidden"
	fieldConfirm     = "confirm"
)

func timestamp(now time.Time) string {
	return now.UTC().Format(time.RFC3339)
}

// OpenAnnouncementEmbed 챌린지 시작 공지 임베드를 만듭니다
func OpenAnnouncementEmbed(c *models.Challenge, now time.Time) *discordgo.MessageEmbed {
	var sb strings.Builder
	sb.WriteString(c.Description)
	sb.WriteString("\n\n")
	if c.HasFinish() {
		sb.WriteString(fmt.Sprintf(constants.MsgChallengeClosesAt, c.Finish.Unix()))
		sb.WriteString("\n")
	}
	sb.WriteString(constants.MsgChallengeOpenedFooter)

	return &discordgo.MessageEmbed{
		Title:       fmt.Sprintf(constants.MsgChallengeOpenedTitle, c.Name),
		Description: utils.TruncateString(sb.String(), constants.MaxEmbedDescription),
		Color:       constants.ColorOpen,
		Timestamp:   timestamp(now),
	}
}

// CloseAnnouncementEmbed 챌린지 종료 공지 임베드를 만듭니다. solvers 는 먼저 푼 순서입니다
func CloseAnnouncementEmbed(c *models.Challenge, solvers []models.Submission, now time.Time) *discordgo.MessageEmbed {
	var sb strings.Builder
	sb.WriteString(c.Description)
	sb.WriteString("\n\n")
	if len(solvers) == 0 {
		sb.WriteString(constants.MsgChallengeNoSolvers)
	} else {
		mentions := make([]string, 0, len(solvers))
		for _, s := range solvers {
			mentions = append(mentions, "<@"+s.UserID+">")
		}
		sb.WriteString(fmt.Sprintf(constants.MsgChallengeSolvers, strings.Join(mentions, ", ")))
		sb.WriteString("\n-# In order from first to solve, to last to solve.")
	}

	return &discordgo.MessageEmbed{
		Title:       fmt.Sprintf(constants.MsgChallengeClosedTitle, c.Name),
		Description: utils.TruncateString(sb.String(), constants.MaxEmbedDescription),
		Color:       constants.ColorClosed,
		Timestamp:   timestamp(now),
	}
}

// ChallengeEmbed 챌린지 상세 임베드를 만듭니다
func ChallengeEmbed(c *models.Challenge, now time.Time) *discordgo.MessageEmbed {
	color := constants.ColorInfo
	switch {
	case !c.Visible:
		color = constants.ColorHidden
	case c.IsOpen(now):
		color = constants.ColorOpen
	case c.HasFinish() && !c.Finish.After(now):
		color = constants.ColorClosed
	}

	closes := constants.MsgChallengeNotSet
	if c.HasFinish() {
		closes = utils.DiscordTimestamp(c.Finish.Time, utils.TimestampSeconds)
	}

	fields := []*discordgo.MessageEmbedField{
		{Name: constants.MsgChallengeOpensAt, Value: utils.DiscordTimestamp(c.Start.Time, utils.TimestampSeconds), Inline: true},
		{Name: constants.MsgChallengeClosesAtLabel, Value: closes, Inline: true},
	}
	if c.URL != "" {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:  constants.EmojiLink + " " + constants.MsgChallengeConnect,
			Value: "`" + c.URL + "`",
		})
	}
	if len(c.Files) > 0 {
		links := make([]string, 0, len(c.Files))
		for _, f := range c.Files {
			links = append(links, fmt.Sprintf("[%s](%s)", f.Name, f.URL))
		}
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:  constants.EmojiFile + " " + constants.MsgChallengeFiles,
			Value: utils.TruncateString(strings.Join(links, "\n"), 1024),
		})
	}

	embed := &discordgo.MessageEmbed{
		Title:       c.Name,
		Description: utils.TruncateString(c.Description, constants.MaxEmbedDescription),
		Color:       color,
		Fields:      fields,
		Timestamp:   timestamp(now),
	}
	if !c.Visible {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: constants.MsgChallengeHiddenNotice}
	}
	return embed
}

// ChallengeComponents 챌린지 상세 화면의 버튼들입니다. 작성자에게는 관리 버튼이 추가됩니다
func ChallengeComponents(c *models.Challenge, isAuthor bool) []discordgo.MessageComponent {
	buttons := []discordgo.MessageComponent{
		discordgo.Button{Label: constants.LabelSubmitFlag, Style: discordgo.PrimaryButton, CustomID: challengeButtonID(actionSubmit, c.ID)},
	}
	rows := []discordgo.MessageComponent{discordgo.ActionsRow{Components: buttons}}
	if !isAuthor {
		return rows
	}

	hideLabel := constants.LabelHide
	if !c.Visible {
		hideLabel = constants.LabelUnhide
	}
	rows[0] = discordgo.ActionsRow{Components: append(buttons,
		discordgo.Button{Label: constants.LabelViewSubmissions, Style: discordgo.SecondaryButton, CustomID: challengeButtonID(actionSubmissions, c.ID)},
	)}
	rows = append(rows, discordgo.ActionsRow{Components: []discordgo.MessageComponent{
		discordgo.Button{Label: constants.LabelEdit, Style: discordgo.SecondaryButton, CustomID: challengeButtonID(actionEdit, c.ID)},
		discordgo.Button{Label: constants.LabelSetStatus, Style: discordgo.SecondaryButton, CustomID: challengeButtonID(actionStatus, c.ID)},
		discordgo.Button{Label: hideLabel, Style: discordgo.SecondaryButton, CustomID: challengeButtonID(actionHide, c.ID)},
		discordgo.Button{Label: constants.LabelDelete, Style: discordgo.DangerButton, CustomID: challengeButtonID(actionDelete, c.ID)},
	}})
	return rows
}

// CreateButtonComponents 챌린지가 없을 때 작성자에게 보여주는 생성 버튼입니다
func CreateButtonComponents() []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{Label: constants.LabelCreateChallenge, Style: discordgo.SuccessButton, CustomID: CustomID{Prefix: prefixChallenge, Action: actionCreate}.String()},
		}},
	}
}

// ChallengeSelectComponents 여러 챌린지 중 하나를 고르는 선택 메뉴입니다. 선택 후 action 이 실행됩니다
func ChallengeSelectComponents(action string, challenges []models.Challenge) []discordgo.MessageComponent {
	options := make([]discordgo.SelectMenuOption, 0, len(challenges))
	for i, c := range challenges {
		if i >= constants.MaxSelectOptions {
			break
		}
		options = append(options, discordgo.SelectMenuOption{
			Label: utils.TruncateString(c.Name, constants.MaxSelectLabelLength),
			Value: fmt.Sprintf("%d", c.ID),
		})
	}

	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.SelectMenu{
				CustomID:    selectID(action),
				Placeholder: constants.MsgSelectChallenge,
				Options:     options,
			},
		}},
	}
}

// SubmissionsEmbed 사용자별 제출 요약 임베드입니다
func SubmissionsEmbed(c *models.Challenge, groups []models.UserSubmissions, now time.Time) *discordgo.MessageEmbed {
	description := constants.MsgSubmissionsEmpty
	if len(groups) > 0 {
		lines := make([]string, 0, len(groups))
		for _, g := range groups {
			state := constants.MsgSubmissionsPending
			if g.Solved {
				state = constants.EmojiFlag + " " + constants.MsgSubmissionsSolved
			}
			lines = append(lines, fmt.Sprintf(constants.MsgSubmissionsSummary, g.UserID, len(g.Submissions), state))
		}
		description = strings.Join(lines, "\n")
	}

	return &discordgo.MessageEmbed{
		Title:       fmt.Sprintf(constants.MsgSubmissionsTitle, c.Name),
		Description: utils.TruncateString(description, constants.MaxEmbedDescription),
		Color:       constants.ColorInfo,
		Timestamp:   timestamp(now),
	}
}

// SubmissionsComponents 사용자를 골라 상세 제출 기록을 보는 선택 메뉴입니다
func SubmissionsComponents(c *models.Challenge, groups []models.UserSubmissions) []discordgo.MessageComponent {
	if len(groups) == 0 {
		return nil
	}
	options := make([]discordgo.SelectMenuOption, 0, len(groups))
	for i, g := range groups {
		if i >= constants.MaxSelectOptions {
			break
		}
		options = append(options, discordgo.SelectMenuOption{
			Label:       g.UserID,
			Value:       g.UserID,
			Description: fmt.Sprintf("%d submission(s)", len(g.Submissions)),
		})
	}
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.SelectMenu{
				CustomID:    submissionsID(actionUser, c.ID),
				Placeholder: constants.MsgSelectUser,
				Options:     options,
			},
		}},
	}
}

// UserSubmissionsEmbed 한 사용자의 제출 기록 임베드입니다
func UserSubmissionsEmbed(c *models.Challenge, userID string, submissions []models.Submission, now time.Time) *discordgo.MessageEmbed {
	lines := make([]string, 0, len(submissions))
	for _, s := range submissions {
		mark := constants.EmojiError
		if s.IsCorrect {
			mark = constants.EmojiSuccess
		}
		lines = append(lines, fmt.Sprintf("%s `%s` %s", mark, utils.SanitizeString(s.Flag),
			utils.DiscordTimestamp(s.Timestamp.Time, utils.TimestampShortDateTime)))
	}
	description := constants.MsgSubmissionsEmpty
	if len(lines) > 0 {
		description = strings.Join(lines, "\n")
	}

	return &discordgo.MessageEmbed{
		Title:       fmt.Sprintf(constants.MsgSubmissionsTitle, c.Name),
		Description: fmt.Sprintf("<@%s>\n\n%s", userID, utils.TruncateString(description, constants.MaxEmbedDescription-64)),
		Color:       constants.ColorInfo,
		Timestamp:   timestamp(now),
	}
}

// UserSubmissionsComponents 제출 기록 하나를 골라 삭제하는 선택 메뉴입니다
func UserSubmissionsComponents(c *models.Challenge, submissions []models.Submission) []discordgo.MessageComponent {
	if len(submissions) == 0 {
		return nil
	}
	options := make([]discordgo.SelectMenuOption, 0, len(submissions))
	for i, s := range submissions {
		if i >= constants.MaxSelectOptions {
			break
		}
		options = append(options, discordgo.SelectMenuOption{
			Label:       utils.TruncateString(s.Flag, constants.MaxSelectLabelLength),
			Value:       fmt.Sprintf("%d", s.ID),
			Description: utils.FormatDateTime(s.Timestamp.Time),
		})
	}
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.SelectMenu{
				CustomID:    submissionsID(actionDelete, c.ID),
				Placeholder: constants.MsgSelectSubmission,
				Options:     options,
			},
		}},
	}
}

// ServerSettingsEmbed 길드 설정 임베드입니다
func ServerSettingsEmbed(s *models.Server) *discordgo.MessageEmbed {
	role := func(id string) string {
		if id == "" {
			return constants.MsgChallengeNotSet
		}
		return fmt.Sprintf(constants.MsgPingRole, id)
	}
	channel := func(id string) string {
		if id == "" {
			return constants.MsgChallengeNotSet
		}
		return "<#" + id + ">"
	}

	ping := role(s.PingRoleID)
	if s.PingRoleID == "" {
		ping = constants.MsgPingEveryone
	}

	return &discordgo.MessageEmbed{
		Title: constants.MsgSettingsTitle,
		Color: constants.ColorInfo,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Author role", Value: role(s.AuthorRoleID), Inline: true},
			{Name: "Ping role", Value: ping, Inline: true},
			{Name: "Announcement channel", Value: channel(s.AnnouncementChannelID), Inline: true},
			{Name: "Solve channel", Value: channel(s.SolveChannelID), Inline: true},
		},
	}
}

func textInput(id, label string, style discordgo.TextInputStyle, value string, required bool, minLen, maxLen int) discordgo.ActionsRow {
	return discordgo.ActionsRow{Components: []discordgo.MessageComponent{
		discordgo.TextInput{
			CustomID:  id,
			Label:     label,
			Style:     style,
			Value:     value,
			Required:  required,
			MinLength: minLen,
			MaxLength: maxLen,
		},
	}}
}

// ChallengeModal 생성/수정 모달입니다. existing 이 nil 이면 생성 모달입니다
func ChallengeModal(existing *models.Challenge) *discordgo.InteractionResponseData {
	title := constants.ModalNewChallenge
	customID := CustomID{Prefix: prefixModal, Action: actionCreate}.String()
	var name, description, flag, url, files string
	if existing != nil {
		title = constants.ModalEditChallenge
		customID = modalID(actionEdit, existing.ID)
		name, description, flag, url = existing.Name, existing.Description, existing.Flag, existing.URL
		files = existing.Files.FormatFileInput()
	}

	return &discordgo.InteractionResponseData{
		CustomID: customID,
		Title:    title,
		Components: []discordgo.MessageComponent{
			textInput(fieldName, constants.FieldName, discordgo.TextInputShort, name, true, constants.MinNameLength, constants.MaxNameLength),
			textInput(fieldDescription, constants.FieldDescription, discordgo.TextInputParagraph, description, true, 1, 4000),
			textInput(fieldFlag, constants.FieldFlag, discordgo.TextInputShort, flag, true, constants.MinFlagLength, constants.MaxFlagLength),
			textInput(fieldURL, constants.FieldURL, discordgo.TextInputShort, url, false, 0, constants.MaxURLLength),
			textInput(fieldFiles, constants.FieldFiles, discordgo.TextInputParagraph, files, false, 0, 4000),
		},
	}
}

// StatusModal 일정과 공개 여부 모달입니다
func StatusModal(c *models.Challenge) *discordgo.InteractionResponseData {
	finish := ""
	if c.HasFinish() {
		finish = fmt.Sprintf("%d", c.Finish.Unix())
	}
	hidden := "no"
	if !c.Visible {
		hidden = "yes"
	}

	return &discordgo.InteractionResponseData{
		CustomID: modalID(actionStatus, c.ID),
		Title:    utils.TruncateString(constants.ModalChallengeStatus+": "+c.Name, 45),
		Components: []discordgo.MessageComponent{
			textInput(fieldStart, constants.FieldStart, discordgo.TextInputShort, fmt.Sprintf("%d", c.Start.Unix()), false, 0, 32),
			textInput(fieldFinish, constants.FieldFinish, discordgo.TextInputShort, finish, true, 1, 32),
			textInput(fieldHidden, constants.FieldHidden, discordgo.TextInputShort, hidden, true, 1, 5),
		},
	}
}

// FlagModal 플래그 제출 모달입니다
func FlagModal(c *models.Challenge) *discordgo.InteractionResponseData {
	return &discordgo.InteractionResponseData{
		CustomID: modalID(actionSubmit, c.ID),
		Title:    utils.TruncateString(constants.ModalSubmitFlag+": "+c.Name, 45),
		Components: []discordgo.MessageComponent{
			textInput(fieldFlag, constants.FieldFlag, discordgo.TextInputShort, "", true, 1, constants.MaxSubmittedFlagLength),
		},
	}
}

// DeleteModal 삭제 확인 모달입니다
func DeleteModal(c *models.Challenge) *discordgo.InteractionResponseData {
	return &discordgo.InteractionResponseData{
		CustomID: modalID(actionDelete, c.ID),
		Title:    utils.TruncateString(constants.ModalDeleteChallenge+": "+c.Name, 45),
		Components: []discordgo.MessageComponent{
			textInput(fieldConfirm, constants.FieldConfirmName, discordgo.TextInputShort, "", true, 1, constants.MaxNameLength),
		},
	}
}

// modalValues 모달 제출 값을 필드 ID 별로 꺼냅니다
func modalValues(data discordgo.ModalSubmitInteractionData) map[string]string {
	values := make(map[string]string)
	for _, row := range data.Components {
		actionsRow, ok := row.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, component := range actionsRow.Components {
			if input, ok := component.(*discordgo.TextInput); ok {
				values[input.CustomID] = input.Value
			}
		}
	}
	return values
}
