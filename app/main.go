package main

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"psycheos-gateway/internal/handlers"
	"psycheos-gateway/internal/oracle"
	"psycheos-gateway/internal/policy"
	"psycheos-gateway/internal/repositories"
	"psycheos-gateway/internal/routes"
	"psycheos-gateway/internal/screening"
	"psycheos-gateway/internal/services"
	"psycheos-gateway/pkg/config"
	"psycheos-gateway/pkg/customvalidator"
	"psycheos-gateway/pkg/database/postgresql"
	applogger "psycheos-gateway/pkg/logger"
	"psycheos-gateway/pkg/ratelimit"
	"psycheos-gateway/pkg/service"
	"psycheos-gateway/pkg/telegram"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

func main() {
	cfg := config.New()
	logger := applogger.NewLogger()

	v := validator.New()
	if err := customvalidator.RegisterCustomValidations(v); err != nil {
		logger.Fatal("main: не удалось зарегистрировать кастомные валидаторы", zap.Error(err))
	}

	e := echo.New()
	e.Validator = &CustomValidator{validator: v}

	pool := postgresql.ConnectDB(cfg.Postgres.DSN)
	logger.Info("main: успешное подключение к базе данных")

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
	})

	jwtSvc := service.NewJWTService(cfg.JWT.SecretKey, cfg.JWT.AccessTokenTTL, cfg.JWT.RefreshTokenTTL)
	logger.Info("main: JWTService успешно создан")

	limiter := ratelimit.New(redisClient, cfg.Oracle.RateLimitPerMin)
	oracleClient := oracle.New(cfg.Oracle.APIKey, limiter, cfg.Oracle.RequestTimeout)

	botHandlers, botServices := buildBotHandlers(cfg, pool, oracleClient, logger)

	routes.InitRouter(e, pool, jwtSvc, cfg, logger, botHandlers)

	registerWebhooks(cfg, botServices, logger)

	logger.Info("🚀 Сервер запущен", zap.String("port", cfg.Server.Port))
	if err := e.Start(":" + cfg.Server.Port); err != nil {
		logger.Fatal("Ошибка запуска сервера", zap.Error(err))
	}
}

// buildBotHandlers wires one Handler per bot. Every bot shares the
// identity/FSM/link/artifact repositories and services; each bot owns its
// own telegram.Service, since every bot is a distinct Telegram application
// with its own token.
func buildBotHandlers(
	cfg *config.Config,
	pool *pgxpool.Pool,
	oracleClient oracle.Client,
	logger *zap.Logger,
) (map[config.BotKey]handlers.Handler, map[config.BotKey]telegram.ServiceInterface) {
	users := repositories.NewUserRepository(pool)
	contexts := repositories.NewContextRepository(pool)
	invites := repositories.NewInviteRepository(pool)
	fsm := repositories.NewFSMRepository(pool)
	linkRepo := repositories.NewLinkTokenRepository(pool)
	artifactRepo := repositories.NewArtifactRepository(pool)
	screeningRepo := repositories.NewScreeningRepository(pool)
	profiles := repositories.NewSpecialistProfileRepository(pool)

	linkSvc := services.NewLinkTokenService(linkRepo, cfg.Link.TokenTTL)
	artifactSvc := services.NewArtifactService(artifactRepo)

	policyEngine := policy.NewEngine()
	orchestrator := screening.NewOrchestrator(screeningRepo, oracleClient)

	botServices := make(map[config.BotKey]telegram.ServiceInterface, len(config.AllBotKeys))
	botUsernames := make(map[config.BotKey]string, len(config.AllBotKeys))
	for _, key := range config.AllBotKeys {
		bot := cfg.Bots[key]
		if bot.Token == "" {
			logger.Warn("main: токен бота не задан, бот не будет обслуживаться", zap.String("bot_id", string(key)))
			continue
		}
		tgSvc, err := telegram.NewService(bot.Token)
		if err != nil {
			logger.Fatal("main: не удалось инициализировать Telegram-бота", zap.String("bot_id", string(key)), zap.Error(err))
		}
		botServices[key] = tgSvc
		botUsernames[key] = bot.Username
	}

	botHandlers := make(map[config.BotKey]handlers.Handler, len(config.AllBotKeys))
	if tg, ok := botServices[config.BotPro]; ok {
		botHandlers[config.BotPro] = handlers.NewProHandler(botUsernames, users, contexts, invites, fsm, linkSvc, tg)
	}
	if tg, ok := botServices[config.BotInterpreter]; ok {
		botHandlers[config.BotInterpreter] = handlers.NewInterpreterHandler(fsm, contexts, users, artifactSvc, linkSvc, oracleClient, policyEngine, tg)
	}
	if tg, ok := botServices[config.BotConceptualizer]; ok {
		botHandlers[config.BotConceptualizer] = handlers.NewConceptualizerHandler(fsm, artifactSvc, linkSvc, oracleClient, tg)
	}
	if tg, ok := botServices[config.BotSimulator]; ok {
		botHandlers[config.BotSimulator] = handlers.NewSimulatorHandler(fsm, profiles, artifactSvc, linkSvc, oracleClient, tg)
	}
	if tg, ok := botServices[config.BotScreen]; ok {
		botHandlers[config.BotScreen] = handlers.NewScreenHandler(fsm, screeningRepo, contexts, users, artifactSvc, linkSvc, orchestrator, tg)
	}

	return botHandlers, botServices
}

// registerWebhooks points every configured bot's Telegram webhook at this
// process, the way the teacher's telegram_router.go registers its single
// bot's webhook at startup — done here for all five instead of one.
func registerWebhooks(cfg *config.Config, botServices map[config.BotKey]telegram.ServiceInterface, logger *zap.Logger) {
	for key, tg := range botServices {
		bot := cfg.Bots[key]
		publicURL := cfg.PublicBaseURL + "/webhook/" + string(key)
		go func(key config.BotKey, tg telegram.ServiceInterface, publicURL, secret string) {
			if err := tg.SetWebhook(context.Background(), publicURL, secret); err != nil {
				logger.Error("main: не удалось зарегистрировать webhook", zap.String("bot_id", string(key)), zap.Error(err))
			}
		}(key, tg, publicURL, bot.WebhookSecret)
	}
}
