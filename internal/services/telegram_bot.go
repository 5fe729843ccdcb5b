package services

import (
	"fmt"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramService — канал доставки уведомлений в чат оператора.
// Пустой токен переводит сервис в no-op режим: уведомления
// логируются и пропускаются.
type TelegramService struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

func NewTelegramService(botToken string, chatID int64) (*TelegramService, error) {
	if botToken == "" {
		return &TelegramService{chatID: chatID}, nil
	}
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("telegram init: %w", err)
	}
	log.Printf("[tg][init] authorized as @%s", bot.Self.UserName)
	return &TelegramService{bot: bot, chatID: chatID}, nil
}

func (t *TelegramService) Enabled() bool {
	return t != nil && t.bot != nil && t.chatID != 0
}

func (t *TelegramService) SendMessage(text string) error {
	if !t.Enabled() {
		log.Printf("[tg][skip] token or chatID empty")
		return nil
	}
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	if _, err := t.bot.Send(msg); err != nil {
		log.Printf("[tg][send][err] %v", err)
		return fmt.Errorf("telegram sendMessage failed: %w", err)
	}
	return nil
}

// SendPhoto отправляет скриншот с подписью.
func (t *TelegramService) SendPhoto(caption string, photo []byte) error {
	if !t.Enabled() {
		log.Printf("[tg][skip] token or chatID empty")
		return nil
	}
	msg := tgbotapi.NewPhoto(t.chatID, tgbotapi.FileBytes{
		Name:  "screenshot.png",
		Bytes: photo,
	})
	msg.Caption = caption
	msg.ParseMode = tgbotapi.ModeHTML

	if _, err := t.bot.Send(msg); err != nil {
		log.Printf("[tg][photo][err] %v", err)
		return fmt.Errorf("telegram sendPhoto failed: %w", err)
	}
	return nil
}
