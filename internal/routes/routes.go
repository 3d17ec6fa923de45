// Файл: internal/routes/routes.go
package routes

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"psycheos-gateway/internal/handlers"
	"psycheos-gateway/pkg/config"
	"psycheos-gateway/pkg/service"
)

// InitRouter composes the gateway's three route groups — webhook intake,
// link-token issuance/verification, artifact reads — the way the
// teacher's InitRouter composes one run<X>Router per resource.
func InitRouter(
	e *echo.Echo,
	pool *pgxpool.Pool,
	jwtSvc service.JWTService,
	cfg *config.Config,
	logger *zap.Logger,
	botHandlers map[config.BotKey]handlers.Handler,
) {
	logger.Info("InitRouter: регистрация маршрутов")

	runWebhookRouter(e, pool, cfg, botHandlers, logger)

	api := e.Group("/v1")
	runLinkRouter(api, pool, jwtSvc, cfg, logger)
	runArtifactRouter(api, pool, jwtSvc, logger)

	logger.Info("InitRouter: маршруты зарегистрированы")
}
