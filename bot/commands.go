package bot

import (
	"context"
	stderrors "errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/ACUCyS/weekly-ctf-bot/constants"
	"github.com/ACUCyS/weekly-ctf-bot/errors"
	"github.com/ACUCyS/weekly-ctf-bot/models"
	"github.com/ACUCyS/weekly-ctf-bot/storage"
	"github.com/ACUCyS/weekly-ctf-bot/utils"

	"github.com/bwmarrin/discordgo"
)

// Responder 인터랙션 응답에 필요한 discordgo.Session 메서드들입니다
type Responder = errors.InteractionResponder

type CommandHandler struct {
	deps              *CommandDependencies
	challengeHandler  *ChallengeHandler
	submissionHandler *SubmissionHandler
	now               func() time.Time
}

func NewCommandHandler(deps *CommandDependencies) *CommandHandler {
	ch := &CommandHandler{
		deps: deps,
		now:  time.Now,
	}
	ch.challengeHandler = NewChallengeHandler(ch)
	ch.submissionHandler = NewSubmissionHandler(ch)
	return ch
}

// HandleInteraction discordgo 이벤트 핸들러로 등록되는 진입점입니다
func (ch *CommandHandler) HandleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ch.Dispatch(s, i.Interaction)
}

// Dispatch 인터랙션 종류에 따라 처리합니다. 처리 중 발생한 패닉은 사용자 응답과 로그로 바뀝니다
func (ch *CommandHandler) Dispatch(r Responder, i *discordgo.Interaction) {
	ctx, cancel := context.WithTimeout(context.Background(), constants.InteractionTimeout)
	defer cancel()
	defer ch.recoverPanic(r, i)

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		ch.handleCommand(ctx, r, i)
	case discordgo.InteractionApplicationCommandAutocomplete:
		ch.handleAutocomplete(ctx, r, i)
	case discordgo.InteractionMessageComponent:
		ch.report(r, i, ch.handleComponent(ctx, r, i))
	case discordgo.InteractionModalSubmit:
		ch.report(r, i, ch.handleModal(ctx, r, i))
	default:
		utils.Debug("Ignoring interaction type %v", i.Type)
	}
}

func (ch *CommandHandler) recoverPanic(r Responder, i *discordgo.Interaction) {
	rec := recover()
	if rec == nil {
		return
	}
	stack := string(debug.Stack())
	utils.Error("Panic while handling interaction %s: %v\n%s", i.ID, rec, stack)

	detail := ""
	if ch.deps.DevMode {
		detail = fmt.Sprintf("%v\n%s", rec, stack)
	}
	errors.RespondError(r, i, errors.NewSystemError("PANIC", fmt.Sprint(rec), nil), detail)
}

// report 오류가 있으면 사용자에게 알립니다. 개발 모드에서는 내부 오류 내용을 함께 보여줍니다
func (ch *CommandHandler) report(r Responder, i *discordgo.Interaction, err error) {
	if err == nil {
		return
	}
	detail := ""
	if ch.deps.DevMode && !errors.IsUserFacing(err) {
		detail = err.Error()
	}
	errors.RespondError(r, i, err, detail)
}

func (ch *CommandHandler) handleCommand(ctx context.Context, r Responder, i *discordgo.Interaction) {
	data := i.ApplicationCommandData()
	userID := interactionUserID(i)
	utils.Debug("Command /%s from %s in guild %s", data.Name, userID, i.GuildID)

	if ok, wait := ch.deps.Cooldowns.Allow(data.Name, userID); !ok {
		if err := errors.RespondEphemeral(r, i, fmt.Sprintf(constants.MsgCooldown, wait.Seconds())); err != nil {
			utils.Error("Failed to send cooldown response: %v", err)
		}
		return
	}

	start := time.Now()
	err := ch.routeCommand(ctx, r, i, data)
	ch.deps.Metrics.RecordCommand(data.Name, time.Since(start), err == nil || errors.IsUserFacing(err))
	ch.report(r, i, err)
}

// routeCommand 명령어를 해당 핸들러로 라우팅합니다
func (ch *CommandHandler) routeCommand(ctx context.Context, r Responder, i *discordgo.Interaction, data discordgo.ApplicationCommandInteractionData) error {
	if data.Name == constants.CommandUptime {
		return ch.handleUptime(r, i)
	}
	if i.GuildID == "" || i.Member == nil {
		return errors.RespondEphemeral(r, i, constants.MsgGuildOnly)
	}

	options := optionMap(data.Options)
	name := strings.TrimSpace(options[constants.OptionChallenge])

	switch data.Name {
	case constants.CommandNewChallenge:
		if err := ch.requireAuthor(ctx, i); err != nil {
			return err
		}
		return respondModal(r, i, ChallengeModal(nil))
	case constants.CommandChallenge:
		return ch.challengeHandler.HandleChallenge(ctx, r, i, name)
	case constants.CommandSubmitFlag:
		return ch.submissionHandler.HandleSubmitFlag(ctx, r, i, name, options[constants.OptionFlag])
	case constants.CommandSubmissions:
		if err := ch.requireAuthor(ctx, i); err != nil {
			return err
		}
		return ch.withChallenge(ctx, r, i, name, actionSubmissions, true, func(c *models.Challenge) error {
			return ch.submissionHandler.ShowSubmissions(ctx, r, i, c)
		})
	case constants.CommandEditChallenge:
		if err := ch.requireAuthor(ctx, i); err != nil {
			return err
		}
		return ch.withChallenge(ctx, r, i, name, actionEdit, true, func(c *models.Challenge) error {
			return respondModal(r, i, ChallengeModal(c))
		})
	case constants.CommandSetStatus:
		if err := ch.requireAuthor(ctx, i); err != nil {
			return err
		}
		return ch.withChallenge(ctx, r, i, name, actionStatus, true, func(c *models.Challenge) error {
			return respondModal(r, i, StatusModal(c))
		})
	case constants.CommandServerSettings:
		return ch.handleServerSettings(ctx, r, i, data)
	default:
		utils.Warn("Unknown command: %s", data.Name)
		return nil
	}
}

func (ch *CommandHandler) handleUptime(r Responder, i *discordgo.Interaction) error {
	uptime := utils.FormatUptime(ch.now().Sub(ch.deps.StartedAt))
	return errors.RespondEphemeralComplex(r, i, &discordgo.InteractionResponseData{
		Embeds: []*discordgo.MessageEmbed{{
			Title:       constants.EmojiClock + " Uptime",
			Description: fmt.Sprintf(constants.MsgUptime, "`"+uptime+"`"),
			Color:       constants.ColorOpen,
		}},
	})
}

// handleAutocomplete 진행 중인 챌린지 이름을 자동완성합니다
func (ch *CommandHandler) handleAutocomplete(ctx context.Context, r Responder, i *discordgo.Interaction) {
	data := i.ApplicationCommandData()
	current := ""
	for _, opt := range data.Options {
		if opt.Focused {
			current = opt.StringValue()
			break
		}
	}

	choices := []*discordgo.ApplicationCommandOptionChoice{}
	if i.GuildID != "" {
		active, err := ch.deps.Storage.ListActiveChallenges(ctx, i.GuildID)
		if err != nil {
			utils.Warn("Failed to load active challenges for autocomplete: %v", err)
		}
		choices = AutocompleteChoices(active, current)
	}

	err := r.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionApplicationCommandAutocompleteResult,
		Data: &discordgo.InteractionResponseData{Choices: choices},
	})
	if err != nil {
		utils.Error("Failed to respond to autocomplete: %v", err)
	}
}

// AutocompleteChoices 입력을 포함하는 챌린지 이름을 최대 25개까지 반환합니다
func AutocompleteChoices(challenges []models.Challenge, current string) []*discordgo.ApplicationCommandOptionChoice {
	needle := strings.ToLower(strings.TrimSpace(current))
	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(challenges))
	for _, c := range challenges {
		if len(choices) >= constants.MaxAutocompleteChoices {
			break
		}
		if needle == "" || strings.Contains(strings.ToLower(c.Name), needle) {
			choices = append(choices, &discordgo.ApplicationCommandOptionChoice{Name: c.Name, Value: c.Name})
		}
	}
	return choices
}

// handleComponent 버튼과 선택 메뉴 상호작용을 처리합니다
func (ch *CommandHandler) handleComponent(ctx context.Context, r Responder, i *discordgo.Interaction) error {
	data := i.MessageComponentData()
	id, err := ParseCustomID(data.CustomID)
	if err != nil {
		utils.Warn("Ignoring component: %v", err)
		return nil
	}
	if i.GuildID == "" || i.Member == nil {
		return errors.RespondEphemeral(r, i, constants.MsgGuildOnly)
	}

	switch id.Prefix {
	case prefixSelect:
		if len(data.Values) == 0 {
			return nil
		}
		challengeID, err := parseUintValue(data.Values[0])
		if err != nil {
			return errors.NewValidationError("INVALID_SELECTION", err.Error(), constants.MsgChallengeGone)
		}
		return ch.runAction(ctx, r, i, id.Action, challengeID)
	case prefixChallenge:
		if id.Action == actionCreate {
			if err := ch.requireAuthor(ctx, i); err != nil {
				return err
			}
			return respondModal(r, i, ChallengeModal(nil))
		}
		return ch.runAction(ctx, r, i, id.Action, id.ID)
	case prefixSubmissions:
		if err := ch.requireAuthor(ctx, i); err != nil {
			return err
		}
		if len(data.Values) == 0 {
			return nil
		}
		if _, err := ch.guildChallenge(ctx, i, id.ID); err != nil {
			return challengeGone(r, i, err)
		}
		switch id.Action {
		case actionUser:
			return ch.submissionHandler.ShowUserSubmissions(ctx, r, i, id.ID, data.Values[0])
		case actionDelete:
			return ch.submissionHandler.DeleteSubmission(ctx, r, i, id.ID, data.Values[0])
		}
	}
	utils.Warn("Unhandled component %s", data.CustomID)
	return nil
}

// runAction 챌린지 하나를 대상으로 하는 버튼/선택 동작을 실행합니다
func (ch *CommandHandler) runAction(ctx context.Context, r Responder, i *discordgo.Interaction, action string, challengeID uint) error {
	isAuthor := ch.isAuthor(ctx, i)
	challenge, err := ch.guildChallenge(ctx, i, challengeID)
	if err == nil && !challenge.Visible && !isAuthor {
		err = storage.ErrNotFound
	}
	if err != nil {
		return challengeGone(r, i, err)
	}

	switch action {
	case actionView:
		return ch.challengeHandler.ShowChallenge(r, i, challenge, isAuthor)
	case actionSubmit:
		return respondModal(r, i, FlagModal(challenge))
	}

	if !isAuthor {
		return permissionError()
	}
	switch action {
	case actionSubmissions:
		return ch.submissionHandler.ShowSubmissions(ctx, r, i, challenge)
	case actionEdit:
		return respondModal(r, i, ChallengeModal(challenge))
	case actionStatus:
		return respondModal(r, i, StatusModal(challenge))
	case actionHide:
		return ch.challengeHandler.ToggleHidden(ctx, r, i, challenge.ID)
	case actionDelete:
		return respondModal(r, i, DeleteModal(challenge))
	}
	utils.Warn("Unhandled challenge action %q", action)
	return nil
}

// guildChallenge 인터랙션이 온 길드의 챌린지를 불러옵니다. 다른 길드의 챌린지는 없는 것으로 취급합니다
func (ch *CommandHandler) guildChallenge(ctx context.Context, i *discordgo.Interaction, challengeID uint) (*models.Challenge, error) {
	challenge, err := ch.deps.Storage.GetChallenge(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	if challenge.GuildID != i.GuildID {
		utils.Warn("Interaction from guild %s referenced challenge %d of guild %s", i.GuildID, challengeID, challenge.GuildID)
		return nil, storage.ErrNotFound
	}
	return challenge, nil
}

// challengeGone 찾을 수 없는 챌린지는 안내 메시지로, 그 밖의 저장소 오류는 시스템 오류로 응답합니다
func challengeGone(r Responder, i *discordgo.Interaction, err error) error {
	if !stderrors.Is(err, storage.ErrNotFound) {
		return errors.NewSystemError("STORAGE_ERROR", "load challenge", err)
	}
	return errors.RespondEphemeral(r, i, constants.EmojiError+" "+constants.MsgChallengeGone)
}

// handleModal 모달 제출을 처리합니다
func (ch *CommandHandler) handleModal(ctx context.Context, r Responder, i *discordgo.Interaction) error {
	data := i.ModalSubmitData()
	id, err := ParseCustomID(data.CustomID)
	if err != nil || id.Prefix != prefixModal {
		utils.Warn("Ignoring modal %q", data.CustomID)
		return nil
	}
	if i.GuildID == "" || i.Member == nil {
		return errors.RespondEphemeral(r, i, constants.MsgGuildOnly)
	}

	if id.ID != 0 {
		if _, err := ch.guildChallenge(ctx, i, id.ID); err != nil {
			return challengeGone(r, i, err)
		}
	}

	values := modalValues(data)
	if id.Action == actionSubmit {
		return ch.submissionHandler.Submit(ctx, r, i, id.ID, values[fieldFlag])
	}

	if err := ch.requireAuthor(ctx, i); err != nil {
		return err
	}
	switch id.Action {
	case actionCreate:
		return ch.challengeHandler.Create(ctx, r, i, values)
	case actionEdit:
		return ch.challengeHandler.Edit(ctx, r, i, id.ID, values)
	case actionStatus:
		return ch.challengeHandler.SetStatus(ctx, r, i, id.ID, values)
	case actionDelete:
		return ch.challengeHandler.Delete(ctx, r, i, id.ID, values[fieldConfirm])
	}
	utils.Warn("Unhandled modal %s", data.CustomID)
	return nil
}

// withChallenge 이름 또는 진행 중 챌린지로 대상을 정한 뒤 fn 을 실행합니다.
// 바로 정할 수 없으면 선택 메뉴나 안내 메시지로 응답합니다.
func (ch *CommandHandler) withChallenge(ctx context.Context, r Responder, i *discordgo.Interaction, name, action string, isAuthor bool, fn func(*models.Challenge) error) error {
	if name != "" {
		challenge, err := ch.deps.Storage.SearchChallenge(ctx, i.GuildID, name)
		if err != nil && !stderrors.Is(err, storage.ErrNotFound) {
			return errors.NewSystemError("STORAGE_ERROR", "search challenge", err)
		}
		if err != nil || (!challenge.Visible && !isAuthor) {
			return ch.respondNotFound(r, i, name, isAuthor)
		}
		return fn(challenge)
	}

	active, err := ch.deps.Storage.ListActiveChallenges(ctx, i.GuildID)
	if err != nil {
		return errors.NewSystemError("STORAGE_ERROR", "list active challenges", err)
	}
	switch len(active) {
	case 0:
		return errors.RespondInfo(r, i, constants.MsgNoActiveChallenges)
	case 1:
		return fn(&active[0])
	default:
		return errors.RespondEphemeralComplex(r, i, &discordgo.InteractionResponseData{
			Content:    constants.MsgSelectChallenge,
			Components: ChallengeSelectComponents(action, active),
		})
	}
}

func (ch *CommandHandler) respondNotFound(r Responder, i *discordgo.Interaction, name string, isAuthor bool) error {
	data := &discordgo.InteractionResponseData{
		Content: constants.EmojiError + " " + fmt.Sprintf(constants.MsgChallengeNotFound, utils.SanitizeString(name)),
	}
	if isAuthor {
		data.Components = CreateButtonComponents()
	}
	return errors.RespondEphemeralComplex(r, i, data)
}

func respondModal(r Responder, i *discordgo.Interaction, data *discordgo.InteractionResponseData) error {
	return r.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: data,
	})
}

// optionMap 문자열로 표현되는 명령어 옵션 값을 이름별로 모읍니다
func optionMap(options []*discordgo.ApplicationCommandInteractionDataOption) map[string]string {
	values := make(map[string]string, len(options))
	for _, opt := range options {
		switch opt.Type {
		case discordgo.ApplicationCommandOptionString:
			values[opt.Name] = opt.StringValue()
		case discordgo.ApplicationCommandOptionRole:
			values[opt.Name] = opt.RoleValue(nil, "").ID
		case discordgo.ApplicationCommandOptionChannel:
			values[opt.Name] = opt.ChannelValue(nil).ID
		}
	}
	return values
}

// interactionUserID 길드와 DM 모두에서 사용자 ID 를 꺼냅니다
func interactionUserID(i *discordgo.Interaction) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}
