package bot

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ACUCyS/weekly-ctf-bot/constants"
	"github.com/ACUCyS/weekly-ctf-bot/errors"
	"github.com/ACUCyS/weekly-ctf-bot/interfaces"
	"github.com/ACUCyS/weekly-ctf-bot/models"
	"github.com/ACUCyS/weekly-ctf-bot/utils"

	"github.com/bwmarrin/discordgo"
	pkgerrors "github.com/pkg/errors"
	"go.uber.org/ratelimit"
)

// AnnouncementSender 공지 전송에 필요한 discordgo.Session 메서드들입니다
type AnnouncementSender interface {
	errors.ChannelSender
	WebhookExecute(webhookID, token string, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// AnnouncerConfig 공지 전송 설정
type AnnouncerConfig struct {
	RatePerSecond   int
	SolveWebhookURL string
	WebhookTimeout  time.Duration
}

// DiscordAnnouncer 길드 설정에 따라 공지 채널과 솔브 채널, 솔브 웹훅으로 메시지를 보냅니다
type DiscordAnnouncer struct {
	sender         AnnouncementSender
	servers        interfaces.ServerRepository
	limiter        ratelimit.Limiter
	webhookID      string
	webhookToken   string
	webhookTimeout time.Duration
	metrics        MetricsRecorder
	now            func() time.Time
}

// NewDiscordAnnouncer 새로운 DiscordAnnouncer 를 생성합니다
func NewDiscordAnnouncer(sender AnnouncementSender, servers interfaces.ServerRepository, cfg AnnouncerConfig, metrics MetricsRecorder) (*DiscordAnnouncer, error) {
	limiter := ratelimit.NewUnlimited()
	if cfg.RatePerSecond > 0 {
		limiter = ratelimit.New(cfg.RatePerSecond)
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}

	a := &DiscordAnnouncer{
		sender:         sender,
		servers:        servers,
		limiter:        limiter,
		webhookTimeout: cfg.WebhookTimeout,
		metrics:        metrics,
		now:            time.Now,
	}
	if a.webhookTimeout <= 0 {
		a.webhookTimeout = constants.DefaultWebhookTimeout
	}

	if cfg.SolveWebhookURL != "" {
		id, token, err := ParseWebhookURL(cfg.SolveWebhookURL)
		if err != nil {
			return nil, err
		}
		a.webhookID, a.webhookToken = id, token
	}
	return a, nil
}

// ParseWebhookURL https://discord.com/api/webhooks/<id>/<token> 형식의 URL 에서 ID 와 토큰을 꺼냅니다
func ParseWebhookURL(raw string) (id, token string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", pkgerrors.Wrap(err, "invalid webhook url")
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := 0; i+2 < len(parts); i++ {
		if parts[i] == "webhooks" && parts[i+1] != "" && parts[i+2] != "" {
			return parts[i+1], parts[i+2], nil
		}
	}
	return "", "", pkgerrors.Errorf("invalid webhook url: expected /api/webhooks/<id>/<token>")
}

func announcementMentions() *discordgo.MessageAllowedMentions {
	return &discordgo.MessageAllowedMentions{
		Parse: []discordgo.AllowedMentionType{
			discordgo.AllowedMentionTypeRoles,
			discordgo.AllowedMentionTypeEveryone,
			discordgo.AllowedMentionTypeUsers,
		},
	}
}

// AnnounceOpen 챌린지 시작을 공지 채널에 알립니다. 공지 채널이 없으면 아무것도 하지 않습니다
func (a *DiscordAnnouncer) AnnounceOpen(ctx context.Context, c *models.Challenge) error {
	return a.announce(ctx, "open", c, OpenAnnouncementEmbed(c, a.now()))
}

// AnnounceClose 챌린지 종료와 푼 사람 목록을 공지 채널에 알립니다
func (a *DiscordAnnouncer) AnnounceClose(ctx context.Context, c *models.Challenge, solvers []models.Submission) error {
	return a.announce(ctx, "close", c, CloseAnnouncementEmbed(c, solvers, a.now()))
}

func (a *DiscordAnnouncer) announce(ctx context.Context, kind string, c *models.Challenge, embed *discordgo.MessageEmbed) error {
	server, err := a.servers.GetServer(ctx, c.GuildID)
	if err != nil {
		a.metrics.RecordAnnouncement(kind, false)
		return pkgerrors.Wrap(err, "load server settings")
	}
	if server.AnnouncementChannelID == "" {
		utils.Info("Guild %s has no announcement channel, skipping %s announcement for %s", c.GuildID, kind, c.Name)
		return nil
	}

	a.limiter.Take()
	err = errors.SendChannelMessageWithRetry(ctx, a.sender, server.AnnouncementChannelID, &discordgo.MessageSend{
		Content:         server.PingMention(),
		Embeds:          []*discordgo.MessageEmbed{embed},
		AllowedMentions: announcementMentions(),
	})
	a.metrics.RecordAnnouncement(kind, err == nil)
	if err != nil {
		return pkgerrors.Wrapf(err, "send %s announcement", kind)
	}
	utils.Info("Sent %s announcement for challenge %d to channel %s", kind, c.ID, server.AnnouncementChannelID)
	return nil
}

// AnnounceSolve 솔브 채널과 솔브 웹훅에 정답 소식을 보냅니다. 두 곳 모두 선택 사항입니다
func (a *DiscordAnnouncer) AnnounceSolve(ctx context.Context, c *models.Challenge, userID string) error {
	content := fmt.Sprintf(constants.MsgChallengeSolved, constants.EmojiFlag, userID, c.Name)
	var errs []error

	server, err := a.servers.GetServer(ctx, c.GuildID)
	switch {
	case err != nil:
		errs = append(errs, pkgerrors.Wrap(err, "load server settings"))
	case server.SolveChannelID != "":
		a.limiter.Take()
		if err := a.sendSolveMessage(ctx, server.SolveChannelID, content); err != nil {
			errs = append(errs, err)
		}
	}

	if a.webhookID != "" {
		if err := a.executeWebhook(ctx, content); err != nil {
			errs = append(errs, err)
		}
	}

	err = stderrors.Join(errs...)
	a.metrics.RecordAnnouncement("solve", err == nil)
	return err
}

// sendSolveMessage 솔브 채널에 한 번만 보냅니다. 실패해도 다시 시도하지 않습니다
func (a *DiscordAnnouncer) sendSolveMessage(ctx context.Context, channelID, content string) error {
	ctx, cancel := context.WithTimeout(ctx, a.webhookTimeout)
	defer cancel()

	_, err := a.sender.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content:         content,
		AllowedMentions: &discordgo.MessageAllowedMentions{Parse: []discordgo.AllowedMentionType{discordgo.AllowedMentionTypeUsers}},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return pkgerrors.Wrap(err, "send solve message")
	}
	return nil
}

func (a *DiscordAnnouncer) executeWebhook(ctx context.Context, content string) error {
	ctx, cancel := context.WithTimeout(ctx, a.webhookTimeout)
	defer cancel()

	_, err := a.sender.WebhookExecute(a.webhookID, a.webhookToken, false, &discordgo.WebhookParams{
		Content:         content,
		AllowedMentions: &discordgo.MessageAllowedMentions{Parse: []discordgo.AllowedMentionType{discordgo.AllowedMentionTypeUsers}},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return pkgerrors.Wrap(err, "execute solve webhook")
	}
	return nil
}
