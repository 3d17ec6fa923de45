// Файл: internal/routes/webhook_router.go
package routes

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"psycheos-gateway/internal/controllers"
	"psycheos-gateway/internal/handlers"
	"psycheos-gateway/internal/repositories"
	"psycheos-gateway/pkg/config"
)

// runWebhookRouter registers the one webhook endpoint every bot posts to.
// No auth middleware: the per-bot secret header check happens inside the
// controller, exactly where the teacher checks its own webhook secret.
func runWebhookRouter(
	e *echo.Echo,
	pool *pgxpool.Pool,
	cfg *config.Config,
	botHandlers map[config.BotKey]handlers.Handler,
	logger *zap.Logger,
) {
	dedupRepo := repositories.NewDedupRepository(pool)
	ctrl := controllers.NewWebhookController(cfg.Bots, botHandlers, dedupRepo, logger)

	e.POST("/webhook/:bot_id", ctrl.HandleWebhook)
}
