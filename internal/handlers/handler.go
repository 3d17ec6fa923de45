// Package handlers implements one Handler per tool bot (spec §9 "Service
// polymorphism" — a single capability, "process one update", specialized
// per bot rather than dispatched through a registry of function pointers).
package handlers

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Update is the subset of a Telegram update every handler needs, already
// stripped of transport concerns (secret check, dedup, JSON decoding all
// happen in the webhook controller before a Handler ever sees it).
type Update struct {
	ChatID         int64
	TelegramUserID int64
	Text           string
	Command        string
	CommandArgs    string
	CallbackData   string
	CallbackQueryID string
	MessageID      int
	Raw            *tgbotapi.Update
}

// Handler processes exactly one update for one bot. There is no enclosing
// database transaction: each repository call it makes runs on its own
// against the pool. It loads/saves its own FSM row and never returns a
// non-nil error for user-facing failures — those are delivered as a chat
// message instead, so the webhook controller can always reply 200 to
// Telegram regardless of what happened inside (spec §4.1/§7).
type Handler interface {
	Handle(ctx context.Context, u Update) error
}
