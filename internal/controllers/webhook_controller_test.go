package controllers

import (
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
)

func TestParseUpdate_CommandMessage(t *testing.T) {
	raw := &tgbotapi.Update{
		UpdateID: 7,
		Message: &tgbotapi.Message{
			MessageID: 3,
			From:      &tgbotapi.User{ID: 111},
			Chat:      &tgbotapi.Chat{ID: 222},
			Text:      "/start abc123",
			Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: 6}},
		},
	}

	u := parseUpdate(raw)

	assert.Equal(t, int64(222), u.ChatID)
	assert.Equal(t, int64(111), u.TelegramUserID)
	assert.Equal(t, "start", u.Command)
	assert.Equal(t, "abc123", u.CommandArgs)
}

func TestParseUpdate_FreeTextMessage(t *testing.T) {
	raw := &tgbotapi.Update{
		Message: &tgbotapi.Message{
			From: &tgbotapi.User{ID: 111},
			Chat: &tgbotapi.Chat{ID: 222},
			Text: "мне приснилась лестница",
		},
	}

	u := parseUpdate(raw)

	assert.Equal(t, "мне приснилась лестница", u.Text)
	assert.Empty(t, u.Command)
}

func TestParseUpdate_CallbackQuery(t *testing.T) {
	raw := &tgbotapi.Update{
		CallbackQuery: &tgbotapi.CallbackQuery{
			ID:   "cb-1",
			From: &tgbotapi.User{ID: 111},
			Message: &tgbotapi.Message{
				MessageID: 9,
				Chat:      &tgbotapi.Chat{ID: 222},
			},
			Data: "mode:practice",
		},
	}

	u := parseUpdate(raw)

	assert.Equal(t, int64(222), u.ChatID)
	assert.Equal(t, int64(111), u.TelegramUserID)
	assert.Equal(t, "cb-1", u.CallbackQueryID)
	assert.Equal(t, "mode:practice", u.CallbackData)
	assert.Equal(t, 9, u.MessageID)
}

func TestChatAndUpdateID(t *testing.T) {
	t.Run("message", func(t *testing.T) {
		chatID, updateID := chatAndUpdateID(tgbotapi.Update{
			UpdateID: 5,
			Message:  &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 400}},
		})
		assert.Equal(t, int64(400), chatID)
		assert.Equal(t, 5, updateID)
	})

	t.Run("callback query", func(t *testing.T) {
		chatID, updateID := chatAndUpdateID(tgbotapi.Update{
			UpdateID:      6,
			CallbackQuery: &tgbotapi.CallbackQuery{Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 500}}},
		})
		assert.Equal(t, int64(500), chatID)
		assert.Equal(t, 6, updateID)
	})

	t.Run("neither", func(t *testing.T) {
		chatID, _ := chatAndUpdateID(tgbotapi.Update{UpdateID: 1})
		assert.Equal(t, int64(0), chatID)
	})
}
