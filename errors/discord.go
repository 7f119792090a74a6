package errors

import (
	"context"
	"fmt"
	"time"

	"github.com/ACUCyS/weekly-ctf-bot/constants"
	"github.com/ACUCyS/weekly-ctf-bot/utils"
	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"
)

// InteractionResponder 인터랙션 응답에 필요한 discordgo.Session 메서드들입니다
type InteractionResponder interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	FollowupMessageCreate(interaction *discordgo.Interaction, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// ChannelSender 채널 메시지 전송에 필요한 discordgo.Session 메서드입니다
type ChannelSender interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// maxDetailLength 개발 모드에서 응답에 붙이는 상세 정보의 최대 길이
const maxDetailLength = 1500

// UserReport 오류를 사용자에게 보여줄 문구로 변환합니다.
// 시스템 오류에는 로그와 대조할 수 있는 참조 ID를 붙이고, detail 이 있으면 코드 블록으로 덧붙입니다.
func UserReport(err error, detail string) (content string, reference string) {
	if appErr, ok := AsAppError(err); ok && appErr.Type != TypeSystem {
		return constants.EmojiError + " " + appErr.GetUserMessage(), ""
	}

	reference = uuid.NewString()
	content = constants.EmojiError + " " + fmt.Sprintf(constants.MsgInternalError, reference)
	if detail != "" {
		content += "\n```\n" + utils.TruncateString(detail, maxDetailLength) + "\n```"
	}
	return content, reference
}

// RespondError 오류를 기록하고 인터랙션에 임시 메시지로 응답합니다
func RespondError(r InteractionResponder, interaction *discordgo.Interaction, err error, detail string) {
	content, reference := UserReport(err, detail)
	if reference != "" {
		utils.Error("interaction %s failed (ref %s): %v", interaction.ID, reference, err)
		if detail != "" {
			utils.Debug("ref %s detail: %s", reference, detail)
		}
	} else {
		utils.Debug("interaction %s rejected: %v", interaction.ID, err)
	}

	if respondErr := RespondEphemeral(r, interaction, content); respondErr != nil {
		utils.Error("DISCORD API ERROR: failed to send error response: %v", respondErr)
	}
}

// RespondEphemeral 본인에게만 보이는 메시지로 응답합니다. 이미 응답한 인터랙션이면 후속 메시지로 보냅니다
func RespondEphemeral(r InteractionResponder, interaction *discordgo.Interaction, content string) error {
	return RespondEphemeralComplex(r, interaction, &discordgo.InteractionResponseData{Content: content})
}

// RespondEphemeralComplex 임베드와 컴포넌트가 포함된 임시 메시지로 응답합니다
func RespondEphemeralComplex(r InteractionResponder, interaction *discordgo.Interaction, data *discordgo.InteractionResponseData) error {
	data.Flags |= discordgo.MessageFlagsEphemeral
	err := r.InteractionRespond(interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
	if err == nil {
		return nil
	}

	_, followErr := r.FollowupMessageCreate(interaction, true, &discordgo.WebhookParams{
		Content:    data.Content,
		Embeds:     data.Embeds,
		Components: data.Components,
		Flags:      data.Flags,
	})
	if followErr != nil {
		return pkgerrors.Wrapf(followErr, "respond: %v, followup", err)
	}
	return nil
}

// RespondSuccess 성공 메시지로 응답합니다
func RespondSuccess(r InteractionResponder, interaction *discordgo.Interaction, message string) error {
	return RespondEphemeral(r, interaction, constants.EmojiSuccess+" "+message)
}

// RespondInfo 정보 메시지로 응답합니다
func RespondInfo(r InteractionResponder, interaction *discordgo.Interaction, message string) error {
	return RespondEphemeral(r, interaction, constants.EmojiInfo+" "+message)
}

// SendChannelMessageWithRetry 채널 메시지 전송을 지수 백오프 재시도와 함께 수행합니다
func SendChannelMessageWithRetry(ctx context.Context, s ChannelSender, channelID string, message *discordgo.MessageSend) error {
	const maxRetries = constants.MaxDiscordRetries
	const baseDelay = constants.BaseRetryDelay

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		_, err := s.ChannelMessageSendComplex(channelID, message, discordgo.WithContext(ctx))
		if err == nil {
			if attempt > 0 {
				utils.Info("Discord message sent successfully after %d retries", attempt)
			}
			return nil
		}

		lastErr = err
		if attempt < maxRetries-1 {
			delay := time.Duration(1<<attempt) * baseDelay // 1s, 2s, 4s
			utils.Warn("Discord API call failed (attempt %d/%d): %v. Retrying in %v...",
				attempt+1, maxRetries, err, delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	utils.Error("DISCORD API ERROR: All retry attempts failed: %v", lastErr)
	return lastErr
}
