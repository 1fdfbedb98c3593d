package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"sentinelpi/internal/collector"
	appconfig "sentinelpi/internal/config"
	"sentinelpi/internal/dedup"
	"sentinelpi/internal/dispatch"
	"sentinelpi/internal/domain/entity"
	"sentinelpi/internal/filter"
	"sentinelpi/internal/infra/adapter/persistence/sqlite"
	"sentinelpi/internal/infra/db"
	"sentinelpi/internal/infra/fetcher"
	"sentinelpi/internal/infra/httpclient"
	"sentinelpi/internal/infra/summarizer"
	workerPkg "sentinelpi/internal/infra/worker"
	"sentinelpi/internal/notify"
	"sentinelpi/internal/preference"
	"sentinelpi/internal/repository"
	"sentinelpi/internal/resilience/circuitbreaker"
	"sentinelpi/internal/scheduler"
	"sentinelpi/internal/scorer"
	"sentinelpi/internal/usecase/pipeline"
)

func main() {
	if handled := runCLICommand(os.Args[1:]); handled {
		return
	}

	logger := initLogger()

	appCfg, alertsCfg := loadConfigFiles(logger)
	bridgeEnvDefaults(appCfg)

	database := initDatabase(logger)
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	workerMetrics := workerPkg.NewWorkerMetrics()
	workerMetrics.MustRegister()
	schedulerBase := workerPkg.DefaultConfig()
	schedulerBase.TickInterval = appCfg.Scheduler.TickInterval
	schedulerBase.MaxParallel = appCfg.Scheduler.MaxParallel
	schedulerBase.CrawlTimeout = appCfg.Scheduler.CrawlTimeout
	schedulerBase.AggregationWindow = appCfg.Scheduler.AggregationWindow
	schedulerBase.HealthPort = appCfg.HealthPort
	schedulerBase.Timezone = appCfg.Scheduler.Timezone

	schedulerConfig, err := workerPkg.LoadConfigFromEnvWithBase(schedulerBase, logger, workerMetrics)
	if err != nil {
		logger.Error("failed to load scheduler configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("scheduler configuration loaded",
		slog.Duration("tick_interval", schedulerConfig.TickInterval),
		slog.Int("max_parallel", schedulerConfig.MaxParallel),
		slog.Duration("crawl_timeout", schedulerConfig.CrawlTimeout),
		slog.Duration("aggregation_window", schedulerConfig.AggregationWindow),
		slog.Int("health_port", schedulerConfig.HealthPort),
		slog.String("timezone", schedulerConfig.Timezone))

	dbBreaker := circuitbreaker.NewDBCircuitBreaker(database)
	sourceRepo := sqlite.NewSourceRepo(dbBreaker)
	itemRepo := sqlite.NewItemRepo(dbBreaker)
	filterRepo := sqlite.NewFilterRepo(dbBreaker)
	alertRepo := sqlite.NewAlertRepo(dbBreaker)
	preferenceRepo := sqlite.NewPreferenceRepo(dbBreaker)

	dispatcher := setupDispatcher(logger, alertsCfg, schedulerConfig.AggregationWindow, sourceRepo, filterRepo)

	svc := setupPipeline(logger, appCfg, itemRepo, alertRepo, preferenceRepo, dispatcher, filterRepo)

	healthAddr := formatAddr(schedulerConfig.HealthPort)
	healthServer := workerPkg.NewHealthServer(healthAddr, logger)
	go func() {
		if err := healthServer.Start(ctx); err != nil && err != http.ErrServerClosed {
			logger.Error("health server failed", slog.Any("error", err))
		}
	}()
	logger.Info("health check server started", slog.String("addr", healthAddr))

	metricsServer := startMetricsServer(logger, appCfg, dispatcher)

	sched := scheduler.New(scheduler.Config{
		TickInterval: schedulerConfig.TickInterval,
		MaxParallel:  schedulerConfig.MaxParallel,
		JobTimeout:   schedulerConfig.CrawlTimeout,
		Timezone:     schedulerConfig.Timezone,
	}, sourceRepo, svc, scheduler.NewMetrics(), logger)

	if err := sched.Start(ctx); err != nil {
		logger.Error("failed to start scheduler", slog.Any("error", err))
		os.Exit(1)
	}
	healthServer.SetReady(true)
	logger.Info("sentinelpi started")

	<-ctx.Done()
	logger.Info("shutdown signal received")

	healthServer.SetReady(false)
	sched.Stop()
	dispatcher.Flush()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown failed", slog.Any("error", err))
	}
	logger.Info("sentinelpi stopped")
}

func initLogger() *slog.Logger {
	logLevel := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// loadConfigFiles reads config.yaml and alerts.yaml, the first tier of
// the station's two-tier configuration. Neither file is required: a
// missing file falls back to defaults and is logged as a warning, not
// an error, so a fresh station boots with sane behavior out of the box.
func loadConfigFiles(logger *slog.Logger) (appconfig.AppConfig, appconfig.AlertsConfig) {
	appCfg, warnings, err := appconfig.LoadAppConfig(envOr("CONFIG_PATH", "config.yaml"))
	if err != nil {
		logger.Error("failed to parse config.yaml", slog.Any("error", err))
		os.Exit(1)
	}
	for _, w := range warnings {
		logger.Warn("config.yaml fallback", slog.String("warning", w))
	}

	alertsCfg, warnings, err := appconfig.LoadAlertsConfig(envOr("ALERTS_PATH", "alerts.yaml"))
	if err != nil {
		logger.Error("failed to parse alerts.yaml", slog.Any("error", err))
		os.Exit(1)
	}
	for _, w := range warnings {
		logger.Warn("alerts.yaml fallback", slog.String("warning", w))
	}

	return appCfg, alertsCfg
}

// bridgeEnvDefaults seeds the environment with config.yaml's values for
// packages that only know how to load themselves from the environment
// (db.Open, fetcher.LoadConfigFromEnv). It never overwrites a variable
// the operator already set, so an explicit environment override still
// wins over the YAML tier.
func bridgeEnvDefaults(appCfg appconfig.AppConfig) {
	setEnvDefault("SENTINELPI_DATABASE_PATH", appCfg.Database.Path)
	setEnvDefault("CONTENT_FETCH_ENABLED", strconv.FormatBool(appCfg.ContentFetch.Enabled))
	setEnvDefault("CONTENT_FETCH_THRESHOLD", strconv.Itoa(appCfg.ContentFetch.Threshold))
	setEnvDefault("CONTENT_FETCH_TIMEOUT", appCfg.ContentFetch.Timeout.String())
	setEnvDefault("SUMMARIZER_TYPE", appCfg.Summarizer.Type)
	setEnvDefault("CROSS_SOURCE_DEDUP", appCfg.CrossSourceDedup)
}

func setEnvDefault(key, value string) {
	if value == "" {
		return
	}
	if _, set := os.LookupEnv(key); set {
		return
	}
	_ = os.Setenv(key, value)
}

// initDatabase opens the SQLite database and applies migrations. Unlike a
// multi-process Postgres deployment, migrations run in-process against the
// single embedded file, so there is nothing external to wait for.
func initDatabase(logger *slog.Logger) *sql.DB {
	database := db.Open()
	if err := db.MigrateUp(database); err != nil {
		logger.Error("failed to apply migrations", slog.Any("error", err))
		os.Exit(1)
	}
	return database
}

func setupPipeline(
	logger *slog.Logger,
	appCfg appconfig.AppConfig,
	itemRepo repository.ItemRepository,
	alertRepo repository.AlertRepository,
	preferenceRepo repository.PreferenceRepository,
	dispatcher *dispatch.Dispatcher,
	filterRepo repository.FilterRepository,
) *pipeline.Service {
	filters, err := filterRepo.List(context.Background())
	if err != nil {
		logger.Error("failed to load filters, starting with none", slog.Any("error", err))
	}
	filterValues := make([]entity.Filter, len(filters))
	for i, f := range filters {
		filterValues[i] = *f
	}

	contentFetchConfig, err := fetcher.LoadConfigFromEnv()
	if err != nil {
		logger.Warn("invalid content fetch configuration, disabling", slog.Any("error", err))
		contentFetchConfig = fetcher.DefaultConfig()
		contentFetchConfig.Enabled = false
	}
	var contentFetcher pipeline.ContentFetcher
	if contentFetchConfig.Enabled {
		contentFetcher = fetcher.NewReadabilityFetcher(contentFetchConfig)
		logger.Info("content fetching enabled",
			slog.Int("threshold", contentFetchConfig.Threshold),
			slog.Duration("timeout", contentFetchConfig.Timeout))
	} else {
		logger.Info("content fetching disabled")
	}

	policy := dedup.CrossSourcePolicy(envOr("CROSS_SOURCE_DEDUP", appCfg.CrossSourceDedup))

	return &pipeline.Service{
		Collectors:     collector.NewRegistry(httpclient.NewCollectorClient()),
		Dedup:          dedup.New(itemRepo, policy),
		Filters:        filter.NewEngine(filterValues),
		Scorer:         scorer.NewDefault(),
		Preference:     preference.New(preferenceRepo, preference.DefaultConfig()),
		Items:          itemRepo,
		Alerts:         alertRepo,
		Dispatcher:     dispatcher,
		ContentFetcher: contentFetcher,
		ContentConfig: pipeline.ContentFetchConfig{
			Enabled:   contentFetchConfig.Enabled,
			Threshold: contentFetchConfig.Threshold,
		},
		Summarizer: createSummarizer(logger, appCfg),
		Logger:     logger,
	}
}

// createSummarizer selects a summarization backend, preferring
// config.yaml's summarizer.type with SUMMARIZER_TYPE able to override it.
// Defaults to a no-op summarizer, since summary enrichment is optional
// enrichment rather than a pipeline invariant.
func createSummarizer(logger *slog.Logger, appCfg appconfig.AppConfig) pipeline.Summarizer {
	switch envOr("SUMMARIZER_TYPE", appCfg.Summarizer.Type) {
	case "claude":
		apiKey := os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			logger.Error("ANTHROPIC_API_KEY is required when SUMMARIZER_TYPE=claude")
			os.Exit(1)
		}
		logger.Info("using Claude API for summarization")
		return summarizer.NewClaude(apiKey)
	case "openai":
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			logger.Error("OPENAI_API_KEY is required when SUMMARIZER_TYPE=openai")
			os.Exit(1)
		}
		config, err := summarizer.LoadOpenAIConfig()
		if err != nil {
			logger.Error("failed to load OpenAI configuration", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("using OpenAI API for summarization")
		return summarizer.NewOpenAI(apiKey, config)
	default:
		logger.Info("summarization disabled")
		return summarizer.NewNoOp()
	}
}

func setupDispatcher(
	logger *slog.Logger,
	alertsCfg appconfig.AlertsConfig,
	window time.Duration,
	sourceRepo repository.SourceRepository,
	filterRepo repository.FilterRepository,
) *dispatch.Dispatcher {
	var registrations []dispatch.ChannelRegistration

	if ch := loadTelegramChannel(logger, alertsCfg.Channel("telegram")); ch != nil {
		registrations = append(registrations, *ch)
	}
	if ch := loadEmailChannel(logger, alertsCfg.Channel("email")); ch != nil {
		registrations = append(registrations, *ch)
	}
	if ch := loadWebhookChannel(logger, alertsCfg.Channel("webhook")); ch != nil {
		registrations = append(registrations, *ch)
	}
	if ch := loadDesktopChannel(logger, alertsCfg.Channel("desktop")); ch != nil {
		registrations = append(registrations, *ch)
	}

	filterName := func(id string) string {
		f, err := filterRepo.Get(context.Background(), id)
		if err != nil || f == nil {
			return id
		}
		return f.Name
	}
	sourceName := func(id string) string {
		s, err := sourceRepo.Get(context.Background(), id)
		if err != nil || s == nil {
			return id
		}
		return s.Name
	}

	logger.Info("notification channels initialized", slog.Int("count", len(registrations)))
	return dispatch.New(dispatch.Config{Window: window}, registrations, filterName, sourceName, logger)
}

func loadTelegramChannel(logger *slog.Logger, ch appconfig.ChannelConfig) *dispatch.ChannelRegistration {
	if !ch.Enabled && os.Getenv("TELEGRAM_ENABLED") != "true" {
		logger.Info("telegram channel disabled")
		return nil
	}
	botToken := ch.Credential("bot_token", "TELEGRAM_BOT_TOKEN")
	chatID := ch.Credential("chat_id", "TELEGRAM_CHAT_ID")
	if botToken == "" || chatID == "" {
		logger.Warn("telegram bot token or chat id missing, disabling channel")
		return nil
	}
	channel := notify.NewTelegramChannel(notify.TelegramConfig{
		Enabled:  true,
		BotToken: botToken,
		ChatID:   chatID,
		Timeout:  15 * time.Second,
	})
	logger.Info("telegram channel initialized")
	return &dispatch.ChannelRegistration{
		Channel:     channel,
		MinSeverity: minSeverityFromConfig(ch.MinSeverity, "TELEGRAM_MIN_SEVERITY", entity.SeverityNotice),
		RateLimiter: dispatch.NewRateLimiter(1, 5),
	}
}

func loadEmailChannel(logger *slog.Logger, ch appconfig.ChannelConfig) *dispatch.ChannelRegistration {
	if !ch.Enabled && os.Getenv("EMAIL_ENABLED") != "true" {
		logger.Info("email channel disabled")
		return nil
	}
	host := ch.Credential("smtp_host", "SMTP_HOST")
	from := ch.Credential("from", "EMAIL_FROM")
	to := ch.Credential("to", "EMAIL_TO")
	if host == "" || from == "" || to == "" {
		logger.Warn("SMTP host, from, or to address missing, disabling email channel")
		return nil
	}
	channel := notify.NewEmailChannel(notify.EmailConfig{
		Enabled:  true,
		Host:     host,
		Port:     envIntOr("SMTP_PORT", 587),
		Username: ch.Credential("username", "EMAIL_USER"),
		Password: ch.Credential("password", "EMAIL_PASSWORD"),
		From:     from,
		To:       []string{to},
		Timeout:  15 * time.Second,
	})
	logger.Info("email channel initialized")
	return &dispatch.ChannelRegistration{
		Channel:     channel,
		MinSeverity: minSeverityFromConfig(ch.MinSeverity, "EMAIL_MIN_SEVERITY", entity.SeverityWarning),
		RateLimiter: dispatch.NewRateLimiter(0.2, 2),
	}
}

func loadWebhookChannel(logger *slog.Logger, ch appconfig.ChannelConfig) *dispatch.ChannelRegistration {
	if !ch.Enabled && os.Getenv("WEBHOOK_ENABLED") != "true" {
		logger.Info("webhook channel disabled")
		return nil
	}
	url := ch.Credential("url", "WEBHOOK_URL")
	if url == "" {
		logger.Warn("webhook URL missing, disabling channel")
		return nil
	}
	channel := notify.NewWebhookChannel(notify.WebhookConfig{
		Enabled: true,
		URL:     url,
		Timeout: 15 * time.Second,
		Discord: ch.Templates["discord"] == "true" || os.Getenv("WEBHOOK_DISCORD") == "true",
	})
	logger.Info("webhook channel initialized")
	return &dispatch.ChannelRegistration{
		Channel:     channel,
		MinSeverity: minSeverityFromConfig(ch.MinSeverity, "WEBHOOK_MIN_SEVERITY", entity.SeverityInfo),
		RateLimiter: dispatch.NewRateLimiter(2, 10),
	}
}

func loadDesktopChannel(logger *slog.Logger, ch appconfig.ChannelConfig) *dispatch.ChannelRegistration {
	if !ch.Enabled && os.Getenv("DESKTOP_ENABLED") != "true" {
		return nil
	}
	channel := notify.NewDesktopChannel(notify.DesktopConfig{Enabled: true})
	if !channel.IsEnabled() {
		logger.Info("desktop channel requested but notify-send is unavailable, disabling")
		return nil
	}
	logger.Info("desktop channel initialized")
	return &dispatch.ChannelRegistration{
		Channel:     channel,
		MinSeverity: minSeverityFromConfig(ch.MinSeverity, "DESKTOP_MIN_SEVERITY", entity.SeverityWarning),
		RateLimiter: dispatch.NewRateLimiter(5, 10),
	}
}

// minSeverityFromConfig prefers an explicit environment override over
// alerts.yaml's min_severity, falling back to def when neither is set.
func minSeverityFromConfig(fromYAML, envKey string, def entity.Severity) entity.Severity {
	if v := os.Getenv(envKey); v != "" {
		return entity.ParseSeverity(v)
	}
	if fromYAML != "" {
		return entity.ParseSeverity(fromYAML)
	}
	return def
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOr(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func formatAddr(port int) string {
	return ":" + strconv.Itoa(port)
}
