// Файл: internal/controllers/webhook_controller.go
package controllers

import (
	"context"
	"net/http"

	"psycheos-gateway/internal/handlers"
	"psycheos-gateway/internal/repositories"
	"psycheos-gateway/pkg/config"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// WebhookController serves all five bot webhooks behind one route
// (POST /webhook/:bot_id); the path parameter selects which Handler gets
// the update (Design Note §9 — one Handler implementation per bot rather
// than five copy-pasted controllers, generalising the teacher's single
// telegram_controller.go).
type WebhookController struct {
	bots     map[config.BotKey]config.BotConfig
	handlers map[config.BotKey]handlers.Handler
	dedup    *repositories.DedupRepository
	logger   *zap.Logger
}

func NewWebhookController(
	bots map[config.BotKey]config.BotConfig,
	botHandlers map[config.BotKey]handlers.Handler,
	dedup *repositories.DedupRepository,
	logger *zap.Logger,
) *WebhookController {
	return &WebhookController{bots: bots, handlers: botHandlers, dedup: dedup, logger: logger}
}

// HandleWebhook binds the update, authenticates it via the per-bot secret
// header, deduplicates on (bot_id, update_id), and — unlike the teacher's
// fire-and-forget goroutine — dispatches to the Handler synchronously so
// the FSM/dedup/artifact writes are committed before Telegram is told to
// stop retrying (spec §4.1 step 7). It always replies 200: a webhook that
// returns anything else just earns a retry storm from Telegram, and every
// failure mode here is already logged and visible in the dedup ledger.
func (c *WebhookController) HandleWebhook(ctx echo.Context) error {
	botKey := config.BotKey(ctx.Param("bot_id"))
	bot, known := c.bots[botKey]
	if !known {
		c.logger.Warn("webhook: неизвестный bot_id", zap.String("bot_id", string(botKey)))
		return ctx.NoContent(http.StatusOK)
	}

	if bot.WebhookSecret != "" && ctx.Request().Header.Get("X-Telegram-Bot-Api-Secret-Token") != bot.WebhookSecret {
		c.logger.Warn("webhook: неверный секрет", zap.String("bot_id", string(botKey)))
		return ctx.NoContent(http.StatusOK)
	}

	var raw tgbotapi.Update
	if err := ctx.Bind(&raw); err != nil {
		c.logger.Error("webhook: не удалось разобрать update", zap.Error(err))
		return ctx.NoContent(http.StatusOK)
	}

	chatID, updateID := chatAndUpdateID(raw)
	if chatID == 0 {
		return ctx.NoContent(http.StatusOK)
	}

	reqCtx := ctx.Request().Context()
	fresh, err := c.dedup.TryInsert(reqCtx, string(botKey), int64(updateID), chatID)
	if err != nil {
		c.logger.Error("webhook: ошибка дедупликации", zap.String("bot_id", string(botKey)), zap.Error(err))
		return ctx.NoContent(http.StatusOK)
	}
	if !fresh {
		c.logger.Info("webhook: повторная доставка отброшена", zap.String("bot_id", string(botKey)), zap.Int("update_id", updateID))
		return ctx.NoContent(http.StatusOK)
	}

	h, ok := c.handlers[botKey]
	if !ok {
		c.logger.Error("webhook: нет обработчика для bot_id", zap.String("bot_id", string(botKey)))
		return ctx.NoContent(http.StatusOK)
	}

	c.dispatch(reqCtx, h, parseUpdate(&raw))
	return ctx.NoContent(http.StatusOK)
}

// dispatch recovers any panic from the handler — the teacher's
// recoverPanic, kept in spirit — and logs a handler error instead of
// propagating it, since the caller always replies 200 regardless.
func (c *WebhookController) dispatch(ctx context.Context, h handlers.Handler, u handlers.Update) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("webhook: обработчик паниковал", zap.Any("panic", r), zap.Stack("stack"))
		}
	}()

	if err := h.Handle(ctx, u); err != nil {
		c.logger.Error("webhook: ошибка обработки update", zap.Int64("chat_id", u.ChatID), zap.Error(err))
	}
}

func chatAndUpdateID(raw tgbotapi.Update) (chatID int64, updateID int) {
	switch {
	case raw.Message != nil && raw.Message.Chat != nil:
		return raw.Message.Chat.ID, raw.UpdateID
	case raw.CallbackQuery != nil && raw.CallbackQuery.Message != nil && raw.CallbackQuery.Message.Chat != nil:
		return raw.CallbackQuery.Message.Chat.ID, raw.UpdateID
	default:
		return 0, raw.UpdateID
	}
}

// parseUpdate strips transport concerns out of the raw Telegram update,
// leaving handlers.Update — the subset every Handler actually reads.
func parseUpdate(raw *tgbotapi.Update) handlers.Update {
	if raw.CallbackQuery != nil {
		cq := raw.CallbackQuery
		u := handlers.Update{
			CallbackData:    cq.Data,
			CallbackQueryID: cq.ID,
			Raw:             raw,
		}
		if cq.From != nil {
			u.TelegramUserID = cq.From.ID
		}
		if cq.Message != nil && cq.Message.Chat != nil {
			u.ChatID = cq.Message.Chat.ID
			u.MessageID = cq.Message.MessageID
		}
		return u
	}

	if raw.Message == nil {
		return handlers.Update{Raw: raw}
	}

	msg := raw.Message
	u := handlers.Update{
		Text:      msg.Text,
		MessageID: msg.MessageID,
		Raw:       raw,
	}
	if msg.Chat != nil {
		u.ChatID = msg.Chat.ID
	}
	if msg.From != nil {
		u.TelegramUserID = msg.From.ID
	}
	if msg.IsCommand() {
		u.Command = msg.Command()
		u.CommandArgs = msg.CommandArguments()
	}
	return u
}
