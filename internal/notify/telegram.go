// Package notify forwards moderation reports to an admin Telegram chat.
package notify

import (
	"fmt"
	"log"

	"callgogo/backend/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramAlerter sends report alerts to a fixed admin chat. A nil alerter
// is valid and silently does nothing, so the moderation ledger never has to
// care whether alerting is configured.
type TelegramAlerter struct {
	BotAPI *tgbotapi.BotAPI
	ChatID int64
}

// NewTelegramAlerter authorizes the bot for the admin chat.
func NewTelegramAlerter(token string, chatID int64) (*TelegramAlerter, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	bot.Debug = false
	log.Printf("✅ Authorized on account %s", bot.Self.UserName)
	return &TelegramAlerter{BotAPI: bot, ChatID: chatID}, nil
}

// ReportAlert pushes a new report to the admin chat, best-effort.
func (a *TelegramAlerter) ReportAlert(rec *models.ModerationRecord) {
	if a == nil || a.BotAPI == nil {
		return
	}
	text := fmt.Sprintf("🚨 New report [%s]\nReason: %s\nReporter: %s\nReported: %s\nSession: %s",
		rec.Severity, rec.Reason, rec.ActorID, rec.TargetID, rec.SessionID)
	if rec.Description != "" {
		text += "\n\n" + rec.Description
	}
	msg := tgbotapi.NewMessage(a.ChatID, text)
	if _, err := a.BotAPI.Send(msg); err != nil {
		log.Printf("WARNING: failed to send report alert: %v", err)
	}
}
