package services

import (
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"visaradar/internal/models"
	"visaradar/internal/realtime"
)

const notificationHistoryLimit = 100

var typeEmoji = map[models.NotificationType]string{
	models.NotifyInfo:             "ℹ️",
	models.NotifySuccess:          "✅",
	models.NotifyWarning:          "⚠️",
	models.NotifyError:            "❌",
	models.NotifyAppointmentFound: "🎯",
	models.NotifyOTPRequired:      "🔐",
	models.NotifyLoginSuccess:     "🔓",
	models.NotifyLoginFailed:      "🚫",
	models.NotifyScanStarted:      "▶️",
	models.NotifyScanStopped:      "⏹",
}

// NotifierService раскладывает события по каналам доставки. Telegram —
// основной канал; email подключается только для high/urgent, чтобы не
// заливать ящик рутиной.
type NotifierService struct {
	mu       sync.Mutex
	telegram *TelegramService
	email    EmailService
	emailTo  string
	hub      *realtime.StatusHub
	history  []models.Notification
}

func NewNotifierService(telegram *TelegramService, email EmailService, emailTo string, hub *realtime.StatusHub) *NotifierService {
	return &NotifierService{
		telegram: telegram,
		email:    email,
		emailTo:  emailTo,
		hub:      hub,
	}
}

// Notify доставляет уведомление во все подходящие каналы. Отказ одного
// канала не блокирует остальные; возвращается первая ошибка.
func (n *NotifierService) Notify(notification models.Notification) error {
	if notification.Timestamp.IsZero() {
		notification.Timestamp = time.Now()
	}
	if notification.Priority == 0 {
		notification.Priority = models.PriorityNormal
	}

	n.mu.Lock()
	n.history = append(n.history, notification)
	if len(n.history) > notificationHistoryLimit {
		n.history = n.history[len(n.history)-notificationHistoryLimit:]
	}
	n.mu.Unlock()

	if n.hub != nil {
		n.hub.BroadcastNotification(notification)
	}

	var firstErr error

	if n.telegram != nil {
		if err := n.sendTelegram(notification); err != nil {
			log.Printf("[notify][telegram] failed: %v", err)
			firstErr = err
		}
	}

	return firstErr
}

func (n *NotifierService) sendTelegram(notification models.Notification) error {
	text := formatTelegram(notification)
	if len(notification.Screenshot) > 0 {
		return n.telegram.SendPhoto(text, notification.Screenshot)
	}
	return n.telegram.SendMessage(text)
}

func formatTelegram(n models.Notification) string {
	var b strings.Builder
	if emoji, ok := typeEmoji[n.Type]; ok {
		b.WriteString(emoji)
		b.WriteString(" ")
	}
	b.WriteString("<b>")
	b.WriteString(n.Title)
	b.WriteString("</b>\n")
	b.WriteString(n.Message)

	if len(n.Data) > 0 {
		keys := make([]string, 0, len(n.Data))
		for k := range n.Data {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString("\n")
		for _, k := range keys {
			b.WriteString(fmt.Sprintf("\n<i>%s:</i> %s", k, n.Data[k]))
		}
	}
	return b.String()
}

// NotifyAppointmentFound — основное событие всей системы: слоты найдены.
func (n *NotifierService) NotifyAppointmentFound(countryName string, result *models.AvailabilityResult, screenshot []byte) error {
	notification := models.Notification{
		Type:     models.NotifyAppointmentFound,
		Title:    "Appointment slots found: " + countryName,
		Message:  fmt.Sprintf("%d dates available, earliest %s", len(result.AvailableDates), result.EarliestDate()),
		Priority: models.PriorityUrgent,
		Data: map[string]string{
			"location": result.Location,
			"category": result.Category,
		},
		Screenshot: screenshot,
	}

	err := n.Notify(notification)

	if n.email != nil && n.emailTo != "" {
		if mailErr := n.email.SendAppointmentAlert(n.emailTo, countryName, result); mailErr != nil {
			log.Printf("[notify][email] failed: %v", mailErr)
			if err == nil {
				err = mailErr
			}
		}
	}
	return err
}

func (n *NotifierService) NotifyOTPRequired(countryName string) error {
	return n.Notify(models.Notification{
		Type:     models.NotifyOTPRequired,
		Title:    "Verification code required: " + countryName,
		Message:  "Login is waiting for a verification code.",
		Priority: models.PriorityHigh,
	})
}

func (n *NotifierService) NotifyScanEvent(t models.NotificationType, countryName, message string) error {
	return n.Notify(models.Notification{
		Type:     t,
		Title:    countryName,
		Message:  message,
		Priority: models.PriorityNormal,
	})
}

func (n *NotifierService) NotifyError(countryName, message string) error {
	return n.Notify(models.Notification{
		Type:     models.NotifyError,
		Title:    "Scan error: " + countryName,
		Message:  message,
		Priority: models.PriorityHigh,
	})
}

// History — копия последних уведомлений, свежие в конце.
func (n *NotifierService) History() []models.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]models.Notification, len(n.history))
	copy(out, n.history)
	return out
}
