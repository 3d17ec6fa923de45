// Файл: internal/routes/link_router.go
package routes

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"psycheos-gateway/internal/controllers"
	"psycheos-gateway/internal/services"
	"psycheos-gateway/internal/repositories"
	"psycheos-gateway/pkg/config"
	"psycheos-gateway/pkg/middleware"
	"psycheos-gateway/pkg/service"
)

// runLinkRouter registers the link-token REST surface for the Pro bot's
// backing host process, behind the service-to-service JWT middleware.
func runLinkRouter(api *echo.Group, pool *pgxpool.Pool, jwtSvc service.JWTService, cfg *config.Config, logger *zap.Logger) {
	linkRepo := repositories.NewLinkTokenRepository(pool)
	linkSvc := services.NewLinkTokenService(linkRepo, cfg.Link.TokenTTL)
	ctrl := controllers.NewLinkController(linkSvc, logger)

	authMW := middleware.NewAuthMiddleware(jwtSvc)
	group := api.Group("/links", authMW.Auth)

	group.POST("/issue", ctrl.Issue)
	group.POST("/verify", ctrl.Verify)
}
