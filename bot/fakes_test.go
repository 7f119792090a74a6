package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ACUCyS/weekly-ctf-bot/models"
	"github.com/bwmarrin/discordgo"
)

// fakeResponder 인터랙션 응답을 기록합니다
type fakeResponder struct {
	mu        sync.Mutex
	responses []*discordgo.InteractionResponse
	followups []*discordgo.WebhookParams
	failFirst bool
}

func (f *fakeResponder) InteractionRespond(_ *discordgo.Interaction, resp *discordgo.InteractionResponse, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFirst {
		f.failFirst = false
		return fmt.Errorf("interaction already acknowledged")
	}
	f.responses = append(f.responses, resp)
	return nil
}

func (f *fakeResponder) FollowupMessageCreate(_ *discordgo.Interaction, _ bool, data *discordgo.WebhookParams, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.followups = append(f.followups, data)
	return &discordgo.Message{}, nil
}

func (f *fakeResponder) last() *discordgo.InteractionResponse {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.responses) == 0 {
		return nil
	}
	return f.responses[len(f.responses)-1]
}

// fakeSender 채널 메시지와 웹훅 실행을 기록합니다
type fakeSender struct {
	mu       sync.Mutex
	messages map[string][]*discordgo.MessageSend
	webhooks []*discordgo.WebhookParams
	attempts map[string]int
	err      error
}

func newFakeSender() *fakeSender {
	return &fakeSender{messages: make(map[string][]*discordgo.MessageSend), attempts: make(map[string]int)}
}

func (f *fakeSender) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts[channelID]++
	if f.err != nil {
		return nil, f.err
	}
	f.messages[channelID] = append(f.messages[channelID], data)
	return &discordgo.Message{ChannelID: channelID}, nil
}

func (f *fakeSender) WebhookExecute(webhookID, token string, _ bool, data *discordgo.WebhookParams, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.webhooks = append(f.webhooks, data)
	return nil, nil
}

func (f *fakeSender) attemptCount(channelID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts[channelID]
}

func (f *fakeSender) sent(channelID string) []*discordgo.MessageSend {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.messages[channelID]
}

type nopAnnouncer struct{}

func (nopAnnouncer) AnnounceOpen(context.Context, *models.Challenge) error { return nil }
func (nopAnnouncer) AnnounceClose(context.Context, *models.Challenge, []models.Submission) error {
	return nil
}
func (nopAnnouncer) AnnounceSolve(context.Context, *models.Challenge, string) error { return nil }

// recordingMetrics 기록된 지표 수를 셉니다
type recordingMetrics struct {
	mu          sync.Mutex
	commands    map[string]int
	submissions []bool
	announces   map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{commands: make(map[string]int), announces: make(map[string]int)}
}

func (m *recordingMetrics) RecordCommand(command string, _ time.Duration, _ bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commands[command]++
}

func (m *recordingMetrics) RecordSubmission(correct bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submissions = append(m.submissions, correct)
}

func (m *recordingMetrics) RecordAnnouncement(kind string, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := kind
	if !success {
		key += ":failed"
	}
	m.announces[key]++
}
