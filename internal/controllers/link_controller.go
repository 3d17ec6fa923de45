// Файл: internal/controllers/link_controller.go
package controllers

import (
	"net/http"

	"psycheos-gateway/internal/dto"
	"psycheos-gateway/internal/services"
	apperrors "psycheos-gateway/pkg/errors"
	"psycheos-gateway/pkg/utils"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// LinkController exposes the link-token lifecycle to the Pro bot's
// backing host process over REST (spec §5.11/§6) — the in-process bot
// handler calls LinkTokenService directly and never goes through here.
type LinkController struct {
	links  *services.LinkTokenService
	logger *zap.Logger
}

func NewLinkController(links *services.LinkTokenService, logger *zap.Logger) *LinkController {
	return &LinkController{links: links, logger: logger}
}

func (c *LinkController) Issue(ctx echo.Context) error {
	var req dto.IssueLinkDTO
	if err := ctx.Bind(&req); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewBadRequestError("Неверное тело запроса"))
	}
	if err := ctx.Validate(&req); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewBadRequestError(err.Error()))
	}

	resp, err := c.links.Issue(ctx.Request().Context(), req)
	if err != nil {
		c.logger.Warn("link: ошибка выдачи токена", zap.Error(err))
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, resp, "Токен выдан", http.StatusCreated)
}

func (c *LinkController) Verify(ctx echo.Context) error {
	var req dto.VerifyLinkDTO
	if err := ctx.Bind(&req); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewBadRequestError("Неверное тело запроса"))
	}
	if err := ctx.Validate(&req); err != nil {
		return utils.ErrorResponse(ctx, apperrors.NewBadRequestError(err.Error()))
	}

	resp, err := c.links.Verify(ctx.Request().Context(), req)
	if err != nil {
		c.logger.Info("link: токен не прошёл проверку", zap.Error(err))
		return utils.ErrorResponse(ctx, err)
	}
	return utils.SuccessResponse(ctx, resp, "Токен подтверждён", http.StatusOK)
}
