// Файл: pkg/telegram/service.go
package telegram

import (
	"context"
	"fmt"
	"os"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// --- ОСНОВНОЙ ИНТЕРФЕЙС СЕРВИСА ---

type ServiceInterface interface {
	SendMessage(ctx context.Context, chatID int64, text string) error

	SendMessageEx(ctx context.Context, chatID int64, text string, options ...MessageOption) error

	AnswerCallbackQuery(ctx context.Context, callbackQueryID string, text string) error

	EditMessageText(ctx context.Context, chatID int64, messageID int, text string, options ...MessageOption) error
	EditOrSendMessage(ctx context.Context, chatID int64, messageID int, text string, options ...MessageOption) error

	SendDocument(ctx context.Context, chatID int64, filename string, data []byte, caption string) error

	SetWebhook(ctx context.Context, publicURL string, secretToken string) error
}

// --- СТРУКТУРА СЕРВИСА ---

type Service struct {
	bot   *tgbotapi.BotAPI
	debug bool
}

func NewService(botToken string) (ServiceInterface, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("не удалось инициализировать Telegram-бота: %w", err)
	}
	bot.Debug = strings.Contains(strings.ToLower(os.Getenv("DEBUG")), "telegram")

	return &Service{bot: bot, debug: bot.Debug}, nil
}

// --- ОПЦИИ СООБЩЕНИЯ ---

type messageOptions struct {
	parseMode   string
	replyMarkup interface{}
}

type MessageOption func(*messageOptions)

func WithKeyboard(rows [][]tgbotapi.InlineKeyboardButton) MessageOption {
	return func(o *messageOptions) {
		if len(rows) > 0 {
			o.replyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
		}
	}
}

func WithReplyKeyboard(rows [][]tgbotapi.KeyboardButton) MessageOption {
	return func(o *messageOptions) {
		if len(rows) > 0 {
			o.replyMarkup = tgbotapi.NewReplyKeyboard(rows...)
		}
	}
}

func WithMarkdownV2() MessageOption {
	return func(o *messageOptions) {
		o.parseMode = tgbotapi.ModeMarkdownV2
	}
}

func WithHTML() MessageOption {
	return func(o *messageOptions) {
		o.parseMode = tgbotapi.ModeHTML
	}
}

// --- ОТПРАВКА ---

func (s *Service) SendMessage(ctx context.Context, chatID int64, text string) error {
	escaped := EscapeTextForMarkdownV2(text)
	return s.SendMessageEx(ctx, chatID, escaped, WithMarkdownV2())
}

func (s *Service) SendMessageEx(ctx context.Context, chatID int64, text string, options ...MessageOption) error {
	opts := &messageOptions{}
	for _, opt := range options {
		opt(opts)
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = opts.parseMode
	if opts.replyMarkup != nil {
		msg.ReplyMarkup = opts.replyMarkup
	}

	if _, err := s.bot.Request(msg); err != nil {
		return fmt.Errorf("ошибка отправки сообщения в Telegram: %w", err)
	}
	return nil
}

func (s *Service) EditMessageText(ctx context.Context, chatID int64, messageID int, text string, options ...MessageOption) error {
	if messageID == 0 {
		return s.SendMessageEx(ctx, chatID, text, options...)
	}

	opts := &messageOptions{}
	for _, opt := range options {
		opt(opts)
	}

	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = opts.parseMode
	if markup, ok := opts.replyMarkup.(tgbotapi.InlineKeyboardMarkup); ok {
		edit.ReplyMarkup = &markup
	}

	if _, err := s.bot.Request(edit); err != nil {
		return fmt.Errorf("ошибка редактирования сообщения в Telegram: %w", err)
	}
	return nil
}

func (s *Service) EditOrSendMessage(ctx context.Context, chatID int64, messageID int, text string, options ...MessageOption) error {
	if messageID == 0 {
		return s.SendMessageEx(ctx, chatID, text, options...)
	}
	return s.EditMessageText(ctx, chatID, messageID, text, options...)
}

func (s *Service) SendDocument(ctx context.Context, chatID int64, filename string, data []byte, caption string) error {
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: filename, Bytes: data})
	doc.Caption = caption
	if _, err := s.bot.Request(doc); err != nil {
		return fmt.Errorf("ошибка отправки документа в Telegram: %w", err)
	}
	return nil
}

func (s *Service) AnswerCallbackQuery(ctx context.Context, callbackQueryID string, text string) error {
	if callbackQueryID == "" {
		return fmt.Errorf("callbackQueryID не может быть пустым")
	}

	callback := tgbotapi.NewCallback(callbackQueryID, text)
	if _, err := s.bot.Request(callback); err != nil {
		return fmt.Errorf("ошибка ответа на callback-запрос: %w", err)
	}
	return nil
}

func (s *Service) SetWebhook(ctx context.Context, publicURL string, secretToken string) error {
	wh, err := tgbotapi.NewWebhook(publicURL)
	if err != nil {
		return fmt.Errorf("ошибка построения конфигурации вебхука: %w", err)
	}
	wh.SecretToken = secretToken

	if _, err := s.bot.Request(wh); err != nil {
		return fmt.Errorf("ошибка регистрации вебхука в Telegram: %w", err)
	}
	return nil
}

// --- ЭКРАНИРОВАНИЕ ДЛЯ MARKDOWNV2 ---

func EscapeTextForMarkdownV2(text string) string {
	replacer := strings.NewReplacer(
		"_", "\\_", "*", "\\*", "[", "\\[", "]", "\\]",
		"(", "\\(", ")", "\\)", "\\", "\\\\",
		"~", "\\~", "`", "\\`", ">", "\\>", "#", "\\#", "+", "\\+",
		"-", "\\-", "=", "\\=", "|", "\\|", "{", "\\{", "}", "\\}", ".", "\\.", "!", "\\!",
	)
	return replacer.Replace(text)
}
