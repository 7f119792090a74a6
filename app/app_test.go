package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/ACUCyS/weekly-ctf-bot/config"
	"github.com/ACUCyS/weekly-ctf-bot/constants"

	"github.com/bwmarrin/discordgo"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Mode: constants.BotModeDev,
		Discord: config.DiscordConfig{
			Token:          "test-token-12345",
			WebhookTimeout: time.Second,
		},
		Database: config.DatabaseConfig{
			URL:         "sqlite://" + filepath.Join(t.TempDir(), "app.db"),
			AutoMigrate: true,
		},
		Cache:         config.CacheConfig{ActiveTTL: time.Minute},
		Announcements: config.AnnouncementConfig{RatePerSecond: 5},
		Logging:       config.LoggingConfig{Level: constants.LogLevelInfo},
		Health:        config.HealthConfig{Port: "0"},
	}
}

func TestApplication_New(t *testing.T) {
	t.Run("Successful application creation", func(t *testing.T) {
		app, err := NewWithConfig(testConfig(t))
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		defer app.Stop()

		if app.storage == nil {
			t.Error("Expected non-nil storage")
		}
		if app.session == nil {
			t.Error("Expected non-nil Discord session")
		}
		if app.controller == nil || app.commandHandler == nil {
			t.Error("Expected lifecycle controller and command handler")
		}
		if app.session.Identify.Intents != discordgo.IntentsGuilds {
			t.Errorf("길드 인텐트만 사용해야 합니다: %d", app.session.Identify.Intents)
		}
		if app.metrics.Enabled() {
			t.Error("텔레메트리는 기본적으로 꺼져 있어야 합니다")
		}
	})

	t.Run("Missing token should fail", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Discord.Token = ""

		app, err := NewWithConfig(cfg)
		if err == nil {
			t.Error("Expected error for missing token")
		}
		if app != nil {
			t.Error("Expected nil application on error")
			app.Stop()
		}
	})

	t.Run("Unsupported database should fail", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Database.URL = "oracle://db"

		if _, err := NewWithConfig(cfg); err == nil {
			t.Error("Expected error for unsupported database url")
		}
	})
}

func TestApplication_HealthReportsDatabase(t *testing.T) {
	app, err := NewWithConfig(testConfig(t))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	defer app.Stop()

	status := app.healthServer.Check(context.Background())
	if status.Status != constants.HealthStatusHealthy {
		t.Errorf("상태 = %q, 예상값 %q", status.Status, constants.HealthStatusHealthy)
	}
	if status.Checks["database"] != constants.HealthStatusHealthy {
		t.Errorf("데이터베이스 검사 결과 = %q", status.Checks["database"])
	}
	if _, ok := status.Checks["redis"]; ok {
		t.Error("REDIS_URL 이 없으면 redis 검사가 없어야 합니다")
	}
	if status.Scheduled["start"] != 0 || status.Scheduled["finish"] != 0 {
		t.Errorf("예약된 이벤트가 없어야 합니다: %v", status.Scheduled)
	}
}

func TestApplication_Stop(t *testing.T) {
	app, err := NewWithConfig(testConfig(t))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if err := app.Stop(); err != nil {
		t.Errorf("종료 중 에러가 없어야 합니다: %v", err)
	}
	if len(app.stopWorkers) != 0 {
		t.Error("종료 후 정리 작업이 남아있으면 안 됩니다")
	}
}
