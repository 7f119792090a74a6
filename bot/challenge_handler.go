package bot

import (
	"context"
	"fmt"

	"github.com/ACUCyS/weekly-ctf-bot/constants"
	"github.com/ACUCyS/weekly-ctf-bot/errors"
	"github.com/ACUCyS/weekly-ctf-bot/lifecycle"
	"github.com/ACUCyS/weekly-ctf-bot/models"
	"github.com/ACUCyS/weekly-ctf-bot/utils"

	"github.com/bwmarrin/discordgo"
)

// ChallengeHandler 챌린지 조회와 작성자용 관리 흐름을 처리합니다
type ChallengeHandler struct {
	ch *CommandHandler
}

func NewChallengeHandler(ch *CommandHandler) *ChallengeHandler {
	return &ChallengeHandler{ch: ch}
}

func (h *ChallengeHandler) controller() *lifecycle.Controller {
	return h.ch.deps.Controller
}

// HandleChallenge /challenge 명령어를 처리합니다
func (h *ChallengeHandler) HandleChallenge(ctx context.Context, r Responder, i *discordgo.Interaction, name string) error {
	isAuthor := h.ch.isAuthor(ctx, i)
	return h.ch.withChallenge(ctx, r, i, name, actionView, isAuthor, func(c *models.Challenge) error {
		return h.ShowChallenge(r, i, c, isAuthor)
	})
}

// ShowChallenge 챌린지 상세 정보를 본인에게만 보여줍니다
func (h *ChallengeHandler) ShowChallenge(r Responder, i *discordgo.Interaction, c *models.Challenge, isAuthor bool) error {
	return errors.RespondEphemeralComplex(r, i, &discordgo.InteractionResponseData{
		Embeds:     []*discordgo.MessageEmbed{ChallengeEmbed(c, h.ch.now())},
		Components: ChallengeComponents(c, isAuthor),
	})
}

func (h *ChallengeHandler) Create(ctx context.Context, r Responder, i *discordgo.Interaction, values map[string]string) error {
	challenge, err := h.controller().CreateChallenge(ctx, lifecycle.CreateRequest{
		GuildID:     i.GuildID,
		Name:        values[fieldName],
		Description: values[fieldDescription],
		Flag:        values[fieldFlag],
		Files:       values[fieldFiles],
		URL:         values[fieldURL],
	})
	if err != nil {
		return err
	}

	utils.Info("Challenge %d (%s) created in guild %s by %s", challenge.ID, challenge.Name, i.GuildID, interactionUserID(i))
	return errors.RespondEphemeralComplex(r, i, &discordgo.InteractionResponseData{
		Content:    constants.EmojiSuccess + " " + fmt.Sprintf(constants.MsgChallengeCreated, challenge.Name),
		Embeds:     []*discordgo.MessageEmbed{ChallengeEmbed(challenge, h.ch.now())},
		Components: ChallengeComponents(challenge, true),
	})
}

func (h *ChallengeHandler) Edit(ctx context.Context, r Responder, i *discordgo.Interaction, id uint, values map[string]string) error {
	challenge, err := h.controller().EditChallengeContent(ctx, lifecycle.EditRequest{
		ID:          id,
		Name:        values[fieldName],
		Description: values[fieldDescription],
		Flag:        values[fieldFlag],
		Files:       values[fieldFiles],
		URL:         values[fieldURL],
	})
	if err != nil {
		return err
	}

	utils.Info("Challenge %d content edited by %s", challenge.ID, interactionUserID(i))
	return errors.RespondSuccess(r, i, fmt.Sprintf(constants.MsgChallengeUpdated, challenge.Name))
}

// SetStatus 일정과 공개 여부를 바꾸고 이벤트를 다시 예약합니다
func (h *ChallengeHandler) SetStatus(ctx context.Context, r Responder, i *discordgo.Interaction, id uint, values map[string]string) error {
	hidden, err := utils.ParseYesNo(values[fieldHidden])
	if err != nil {
		return errors.NewValidationError("INVALID_HIDDEN", err.Error(), constants.ErrorMessages["INVALID_HIDDEN"])
	}

	challenge, err := h.controller().EditChallengeStatus(ctx, lifecycle.StatusRequest{
		ID:     id,
		Start:  values[fieldStart],
		Finish: values[fieldFinish],
		Hidden: hidden,
	})
	if err != nil {
		return err
	}

	utils.Info("Challenge %d status set by %s (visible=%t)", challenge.ID, interactionUserID(i), challenge.Visible)
	return errors.RespondEphemeralComplex(r, i, &discordgo.InteractionResponseData{
		Content: constants.EmojiSuccess + " " + fmt.Sprintf(constants.MsgChallengeStatusUpdated, challenge.Name),
		Embeds:  []*discordgo.MessageEmbed{ChallengeEmbed(challenge, h.ch.now())},
	})
}

func (h *ChallengeHandler) ToggleHidden(ctx context.Context, r Responder, i *discordgo.Interaction, id uint) error {
	challenge, err := h.controller().ToggleHidden(ctx, id)
	if err != nil {
		return err
	}

	message := constants.MsgChallengeVisible
	if !challenge.Visible {
		message = constants.MsgChallengeHidden
	}
	return errors.RespondSuccess(r, i, fmt.Sprintf(message, challenge.Name))
}

// Delete 확인 이름이 일치할 때만 챌린지를 삭제합니다
func (h *ChallengeHandler) Delete(ctx context.Context, r Responder, i *discordgo.Interaction, id uint, confirmation string) error {
	challenge, err := h.controller().DeleteChallengeConfirmed(ctx, id, confirmation)
	if err != nil {
		return err
	}

	utils.Info("Challenge %d (%s) deleted by %s", challenge.ID, challenge.Name, interactionUserID(i))
	return errors.RespondSuccess(r, i, fmt.Sprintf(constants.MsgChallengeDeleted, challenge.Name))
}
