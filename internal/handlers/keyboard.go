package handlers

import (
	"context"

	"psycheos-gateway/pkg/telegram"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// tgButton is a single inline keyboard button shared by every handler that
// renders a multi-select or multi-choice screen.
type tgButton struct {
	text string
	data string
}

func sendWithButtons(ctx context.Context, tg telegram.ServiceInterface, chatID int64, text string, rows [][]tgButton) error {
	if len(rows) == 0 {
		return tg.SendMessage(ctx, chatID, text)
	}

	keyboard := make([][]tgbotapi.InlineKeyboardButton, len(rows))
	for i, row := range rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, len(row))
		for j, b := range row {
			buttons[j] = tgbotapi.NewInlineKeyboardButtonData(b.text, b.data)
		}
		keyboard[i] = buttons
	}
	return tg.SendMessageEx(ctx, chatID, text, telegram.WithKeyboard(keyboard))
}
