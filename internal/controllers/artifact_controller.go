// Файл: internal/controllers/artifact_controller.go
package controllers

import (
	"net/http"

	"psycheos-gateway/internal/dto"
	"psycheos-gateway/internal/services"
	apperrors "psycheos-gateway/pkg/errors"
	"psycheos-gateway/pkg/utils"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ArtifactController exposes the artifact store for read access by the
// Pro bot's backing host process (spec §5.4/§6).
type ArtifactController struct {
	artifacts *services.ArtifactService
	logger    *zap.Logger
}

func NewArtifactController(artifacts *services.ArtifactService, logger *zap.Logger) *ArtifactController {
	return &ArtifactController{artifacts: artifacts, logger: logger}
}

func (c *ArtifactController) List(ctx echo.Context) error {
	var q dto.ListArtifactsQuery
	if err := ctx.Bind(&q); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewBadRequestError("Неверные параметры запроса"))
	}
	if err := ctx.Validate(&q); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewBadRequestError(err.Error()))
	}

	list, err := c.artifacts.List(ctx.Request().Context(), q)
	if err != nil {
		c.logger.Error("artifact: ошибка получения списка", zap.Error(err))
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, list, "Список артефактов получен", http.StatusOK)
}

func (c *ArtifactController) Get(ctx echo.Context) error {
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewBadRequestError("Неверный ID артефакта"))
	}

	artifact, err := c.artifacts.Get(ctx.Request().Context(), id)
	if err != nil {
		c.logger.Warn("artifact: не найден", zap.String("id", id.String()), zap.Error(err))
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, artifact, "Артефакт получен", http.StatusOK)
}
