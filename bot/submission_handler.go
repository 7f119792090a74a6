package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ACUCyS/weekly-ctf-bot/constants"
	"github.com/ACUCyS/weekly-ctf-bot/errors"
	"github.com/ACUCyS/weekly-ctf-bot/lifecycle"
	"github.com/ACUCyS/weekly-ctf-bot/models"
	"github.com/ACUCyS/weekly-ctf-bot/utils"

	"github.com/bwmarrin/discordgo"
)

// SubmissionHandler 플래그 제출과 제출 기록 관리 흐름을 처리합니다
type SubmissionHandler struct {
	ch *CommandHandler
}

func NewSubmissionHandler(ch *CommandHandler) *SubmissionHandler {
	return &SubmissionHandler{ch: ch}
}

// HandleSubmitFlag /submit-flag 명령어를 처리합니다. 플래그가 없으면 입력 모달을 엽니다
func (h *SubmissionHandler) HandleSubmitFlag(ctx context.Context, r Responder, i *discordgo.Interaction, name, flag string) error {
	isAuthor := h.ch.isAuthor(ctx, i)
	return h.ch.withChallenge(ctx, r, i, name, actionSubmit, isAuthor, func(c *models.Challenge) error {
		if strings.TrimSpace(flag) == "" {
			return respondModal(r, i, FlagModal(c))
		}
		return h.Submit(ctx, r, i, c.ID, flag)
	})
}

// Submit 플래그를 채점하고 결과를 제출자에게만 보여줍니다
func (h *SubmissionHandler) Submit(ctx context.Context, r Responder, i *discordgo.Interaction, challengeID uint, flag string) error {
	userID := interactionUserID(i)
	result, err := h.ch.deps.Controller.SubmitFlag(ctx, challengeID, userID, flag)
	if err != nil {
		return err
	}
	if result.Outcome != lifecycle.SubmitAlreadySolved {
		h.ch.deps.Metrics.RecordSubmission(result.Outcome == lifecycle.SubmitCorrect)
	}
	utils.Debug("Flag submission by %s for challenge %d: %s", userID, challengeID, result.Outcome)

	return errors.RespondEphemeralComplex(r, i, &discordgo.InteractionResponseData{
		Embeds: []*discordgo.MessageEmbed{SubmitResultEmbed(result, h.ch.now())},
	})
}

// ShowSubmissions 챌린지의 사용자별 제출 요약을 보여줍니다
func (h *SubmissionHandler) ShowSubmissions(ctx context.Context, r Responder, i *discordgo.Interaction, c *models.Challenge) error {
	challenge, groups, err := h.ch.deps.Controller.ListSubmissions(ctx, c.ID)
	if err != nil {
		return err
	}
	return errors.RespondEphemeralComplex(r, i, &discordgo.InteractionResponseData{
		Embeds:     []*discordgo.MessageEmbed{SubmissionsEmbed(challenge, groups, h.ch.now())},
		Components: SubmissionsComponents(challenge, groups),
	})
}

// ShowUserSubmissions 한 사용자의 제출 기록과 삭제 메뉴를 보여줍니다
func (h *SubmissionHandler) ShowUserSubmissions(ctx context.Context, r Responder, i *discordgo.Interaction, challengeID uint, userID string) error {
	challenge, err := h.ch.guildChallenge(ctx, i, challengeID)
	if err != nil {
		return challengeGone(r, i, err)
	}
	submissions, err := h.ch.deps.Controller.UserSubmissions(ctx, challengeID, userID)
	if err != nil {
		return err
	}
	return errors.RespondEphemeralComplex(r, i, &discordgo.InteractionResponseData{
		Embeds:     []*discordgo.MessageEmbed{UserSubmissionsEmbed(challenge, userID, submissions, h.ch.now())},
		Components: UserSubmissionsComponents(challenge, submissions),
	})
}

// DeleteSubmission 선택한 제출 기록을 삭제합니다. 기록은 challengeID 챌린지에 속해야 합니다
func (h *SubmissionHandler) DeleteSubmission(ctx context.Context, r Responder, i *discordgo.Interaction, challengeID uint, value string) error {
	id, err := parseUintValue(value)
	if err != nil {
		return errors.NewValidationError("INVALID_SELECTION", err.Error(), constants.ErrorMessages["SUBMISSION_NOT_FOUND"])
	}
	if err := h.ch.deps.Controller.DeleteSubmission(ctx, challengeID, id); err != nil {
		return err
	}
	utils.Info("Submission %d deleted by %s", id, interactionUserID(i))
	return errors.RespondSuccess(r, i, constants.MsgSubmissionDeleted)
}

// SubmitResultEmbed 채점 결과 임베드입니다
func SubmitResultEmbed(result *lifecycle.SubmitResult, now time.Time) *discordgo.MessageEmbed {
	name := result.Challenge.Name
	embed := &discordgo.MessageEmbed{
		Title:     fmt.Sprintf("%s Flag submission for %s", constants.EmojiFlag, name),
		Timestamp: timestamp(now),
	}
	switch result.Outcome {
	case lifecycle.SubmitCorrect:
		embed.Description = fmt.Sprintf(constants.MsgFlagCorrect, constants.EmojiSuccess, name)
		embed.Color = constants.ColorOpen
	case lifecycle.SubmitAlreadySolved:
		embed.Description = fmt.Sprintf(constants.MsgFlagAlreadySolved, name)
		embed.Color = constants.ColorInfo
	default:
		embed.Description = fmt.Sprintf(constants.MsgFlagIncorrect, constants.EmojiError, name)
		embed.Color = constants.ColorWarning
	}
	return embed
}
