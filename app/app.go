package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ACUCyS/weekly-ctf-bot/bot"
	"github.com/ACUCyS/weekly-ctf-bot/cache"
	"github.com/ACUCyS/weekly-ctf-bot/config"
	"github.com/ACUCyS/weekly-ctf-bot/constants"
	"github.com/ACUCyS/weekly-ctf-bot/health"
	"github.com/ACUCyS/weekly-ctf-bot/interfaces"
	"github.com/ACUCyS/weekly-ctf-bot/lifecycle"
	"github.com/ACUCyS/weekly-ctf-bot/storage"
	"github.com/ACUCyS/weekly-ctf-bot/telemetry"
	"github.com/ACUCyS/weekly-ctf-bot/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"
)

// statsSource 캐시 통계를 제공하는 캐시 구현체
type statsSource interface {
	GetStats() cache.CacheStats
}

type Application struct {
	config         *config.Config
	session        *discordgo.Session
	storage        interfaces.StorageRepository
	cache          interfaces.ChallengeListCache
	announcer      *bot.DiscordAnnouncer
	controller     *lifecycle.Controller
	cooldowns      *bot.CooldownManager
	commandHandler *bot.CommandHandler
	healthServer   *health.Server
	metrics        *telemetry.MetricsClient
	stopWorkers    []func()
	errors         *utils.ErrorHelper
}

func New() (*Application, error) {
	return NewWithConfig(config.Load())
}

// NewWithConfig 주어진 설정으로 애플리케이션을 구성합니다. 디스코드 연결은 Start 에서 합니다
func NewWithConfig(cfg *config.Config) (*Application, error) {
	app := &Application{config: cfg, errors: utils.NewErrorHelper("app")}

	if err := app.loadConfig(); err != nil {
		return nil, err
	}

	if err := app.initializeDependencies(); err != nil {
		return nil, err
	}

	if err := app.initializeDiscord(); err != nil {
		app.closeStorage()
		return nil, err
	}

	if err := app.setupHandlers(); err != nil {
		app.closeStorage()
		return nil, err
	}
	app.initializeHealth()

	return app, nil
}

func (app *Application) loadConfig() error {
	if err := app.config.Validate(); err != nil {
		return app.errors.WrapError(err, "config validation failed")
	}
	utils.SetLevel(app.config.Logging.Level)
	if app.config.IsDebugMode() {
		utils.SetLevel(constants.LogLevelDebug)
	}
	return nil
}

func (app *Application) initializeDependencies() error {
	ctx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
	defer cancel()

	db, err := storage.Open(ctx, app.config.Database)
	if err != nil {
		return app.errors.WrapError(err, "failed to initialize storage")
	}

	app.cache = app.newChallengeCache(ctx)
	app.storage = storage.NewCachedStorage(db, app.cache)

	app.metrics = telemetry.NewMetricsClient(ctx, app.config.Telemetry)
	app.metrics.StartFlushWorker(constants.TelemetryFlushInterval)
	return nil
}

// newChallengeCache REDIS_URL 이 있으면 redis 를, 없거나 연결할 수 없으면 메모리 캐시를 사용합니다
func (app *Application) newChallengeCache(ctx context.Context) interfaces.ChallengeListCache {
	ttl := app.config.Cache.ActiveTTL
	if app.config.Cache.RedisURL != "" {
		redisCache, err := cache.NewRedisChallengeCache(ctx, app.config.Cache.RedisURL, ttl)
		if err == nil {
			utils.Info("Using redis for the active challenge cache")
			return redisCache
		}
		app.errors.LogError(err, "redis unavailable, falling back to memory cache")
	}

	memoryCache := cache.NewMemoryChallengeCache(ttl)
	memoryCache.StartCleanupWorker(constants.CacheCleanupInterval)
	return memoryCache
}

func (app *Application) initializeDiscord() error {
	session, err := discordgo.New("Bot " + app.config.Discord.Token)
	if err != nil {
		return app.errors.WrapError(err, "디스코드 세션 생성 실패")
	}

	session.Identify.Intents = discordgo.IntentsGuilds
	app.session = session
	return nil
}

func (app *Application) setupHandlers() error {
	announcer, err := bot.NewDiscordAnnouncer(app.session, app.storage, bot.AnnouncerConfig{
		RatePerSecond:   app.config.Announcements.RatePerSecond,
		SolveWebhookURL: app.config.Discord.SolveWebhookURL,
		WebhookTimeout:  app.config.Discord.WebhookTimeout,
	}, app.metrics)
	if err != nil {
		return app.errors.WrapError(err, "invalid solve webhook")
	}
	app.announcer = announcer
	app.controller = lifecycle.NewController(app.storage, announcer)

	app.cooldowns = bot.NewCooldownManager(constants.CommandCooldowns)
	app.stopWorkers = append(app.stopWorkers, app.cooldowns.StartCleanupWorker(constants.CacheCleanupInterval))

	deps := bot.NewCommandDependencies(app.controller, app.cooldowns, app.metrics, app.config.IsDevelopment())
	app.commandHandler = bot.NewCommandHandler(deps)

	app.session.AddHandler(app.commandHandler.HandleInteraction)
	app.session.AddHandler(app.handleReady)
	return nil
}

func (app *Application) initializeHealth() {
	app.healthServer = health.NewServer(app.config.Health.Port)
	app.healthServer.Register("database", app.storage)
	if redisCache, ok := app.cache.(*cache.RedisChallengeCache); ok {
		app.healthServer.Register("redis", redisCache)
	}
	app.healthServer.SetScheduledSource(app.scheduledCounts)
}

// scheduledCounts 대기 중인 시작과 종료 이벤트 수
func (app *Application) scheduledCounts() map[string]int {
	start, finish := app.controller.Scheduler().Counts()
	return map[string]int{"start": start, "finish": finish}
}

func (app *Application) Start() error {
	app.healthServer.Start()

	if err := app.session.Open(); err != nil {
		return app.errors.WrapError(err, "웹소켓 연결 실패")
	}

	app.printStartupMessage()
	return nil
}

func (app *Application) printStartupMessage() {
	utils.Info("Weekly CTF Bot v%s (%s mode)", constants.BotVersion, app.config.Mode)
	if app.config.Discord.GuildID != "" {
		utils.Info("Slash commands are registered to guild %s", app.config.Discord.GuildID)
	}
	if app.config.Discord.SolveWebhookURL == "" {
		utils.Warn("SOLVE_WEBHOOK_URL is not set. Solve announcements go to guild channels only.")
	}
}

func (app *Application) Run() error {
	if err := app.Start(); err != nil {
		app.Stop()
		return err
	}

	// 종료 신호 대기
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc

	return app.Stop()
}

func (app *Application) handleReady(s *discordgo.Session, event *discordgo.Ready) {
	utils.Info("Discord bot connected successfully as %s", event.User.Username)
	utils.Info("Bot is serving %d guilds", len(event.Guilds))

	// 봇 상태 설정
	if err := s.UpdateGameStatus(0, constants.BotStatusMessage); err != nil {
		utils.Warn("Failed to set bot status: %v", err)
	}

	if err := bot.RegisterCommands(s, event.User.ID, app.config.Discord.GuildID); err != nil {
		app.errors.LogError(err, "slash command registration")
	}

	// Ready 는 재연결마다 오지만 같은 챌린지의 예약은 덮어쓰므로 중복되지 않습니다
	ctx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
	defer cancel()
	if err := app.controller.Restore(ctx); err != nil {
		app.errors.LogError(err, "restore scheduled events")
	}
}

// printCacheStats 캐시 통계를 출력하고 지표로 보냅니다
func (app *Application) printCacheStats() {
	source, ok := app.cache.(statsSource)
	if !ok {
		return
	}
	stats := source.GetStats()
	utils.Info("📊 %s cache: %d entries, hits=%d misses=%d (%.1f%%)",
		stats.Backend, stats.Entries, stats.Hits, stats.Misses, stats.HitRate()*100)
	if app.metrics != nil {
		app.metrics.RecordCacheStats(stats)
	}
}

func (app *Application) closeStorage() {
	if app.metrics != nil {
		if err := app.metrics.Close(); err != nil {
			app.errors.LogError(err, "telemetry close")
		}
	}
	if app.storage != nil {
		if err := app.storage.Close(); err != nil {
			app.errors.LogError(err, "storage close")
		}
	}
}

func (app *Application) Stop() error {
	utils.Info("🔄 봇을 종료하는 중...")

	ctx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
	defer cancel()

	var firstErr error
	keep := func(err error, what string) {
		if err == nil {
			return
		}
		app.errors.LogError(err, what)
		if firstErr == nil {
			firstErr = errors.Wrap(err, what)
		}
	}

	if app.session != nil {
		keep(app.session.Close(), "discord session close")
	}
	if app.controller != nil {
		app.controller.Stop(ctx)
	}
	if app.healthServer != nil {
		keep(app.healthServer.Shutdown(ctx), "health server shutdown")
	}
	for _, stop := range app.stopWorkers {
		stop()
	}
	app.stopWorkers = nil

	// 종료 전 캐시 통계 출력
	app.printCacheStats()
	app.closeStorage()

	utils.Info("봇이 정상적으로 종료되었습니다. (%s)", time.Now().Format(time.RFC3339))
	return firstErr
}
