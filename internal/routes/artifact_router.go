// Файл: internal/routes/artifact_router.go
package routes

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"psycheos-gateway/internal/controllers"
	"psycheos-gateway/internal/repositories"
	"psycheos-gateway/internal/services"
	"psycheos-gateway/pkg/middleware"
	"psycheos-gateway/pkg/service"
)

// runArtifactRouter registers the artifact read surface, behind the same
// service-to-service JWT middleware as the link router.
func runArtifactRouter(api *echo.Group, pool *pgxpool.Pool, jwtSvc service.JWTService, logger *zap.Logger) {
	artifactRepo := repositories.NewArtifactRepository(pool)
	artifactSvc := services.NewArtifactService(artifactRepo)
	ctrl := controllers.NewArtifactController(artifactSvc, logger)

	authMW := middleware.NewAuthMiddleware(jwtSvc)
	group := api.Group("/artifacts", authMW.Auth)

	group.GET("", ctrl.List)
	group.GET("/:id", ctrl.Get)
}
