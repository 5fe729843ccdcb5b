package services

import (
	"log"
	"sync"
	"time"

	"visaradar/internal/utils"
)

const smsRetention = 300 * time.Second

type inboundSMS struct {
	code       string
	sender     string
	receivedAt time.Time
	used       bool
}

// SMSInboxService принимает входящие SMS с вебхука и отдаёт из них коды
// подтверждения. Читается всегда самый свежий неиспользованный код;
// использование помечается явно, чтобы повторный логин не съел чужой код.
type SMSInboxService struct {
	mu       sync.Mutex
	messages []inboundSMS
}

func NewSMSInboxService() *SMSInboxService {
	return &SMSInboxService{}
}

// Push разбирает текст сообщения; без шестизначного кода сообщение
// игнорируется. Возвращает извлечённый код (пустая строка — не найден).
func (s *SMSInboxService) Push(sender, text string) string {
	code := utils.ExtractOTP(text)
	if code == "" {
		log.Printf("[sms][push] no code in message from %s", utils.MaskPhone(sender))
		return ""
	}

	s.mu.Lock()
	s.pruneLocked(time.Now())
	s.messages = append(s.messages, inboundSMS{
		code:       code,
		sender:     sender,
		receivedAt: time.Now(),
	})
	s.mu.Unlock()

	log.Printf("[sms][push] code received from %s", utils.MaskPhone(sender))
	return code
}

// Latest — самый свежий неиспользованный и непросроченный код.
func (s *SMSInboxService) Latest() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked(time.Now())
	for i := len(s.messages) - 1; i >= 0; i-- {
		if !s.messages[i].used {
			return s.messages[i].code, true
		}
	}
	return "", false
}

// MarkUsed помечает использованным самое свежее вхождение кода.
func (s *SMSInboxService) MarkUsed(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := len(s.messages) - 1; i >= 0; i-- {
		if s.messages[i].code == code && !s.messages[i].used {
			s.messages[i].used = true
			return
		}
	}
}

// WaitForCode блокирует опросом до появления кода или истечения таймаута.
func (s *SMSInboxService) WaitForCode(timeout time.Duration) (string, bool) {
	deadline := time.Now().Add(timeout)
	for {
		if code, ok := s.Latest(); ok {
			return code, true
		}
		if time.Now().After(deadline) {
			return "", false
		}
		time.Sleep(time.Second)
	}
}

func (s *SMSInboxService) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked(time.Now())
	return len(s.messages)
}

func (s *SMSInboxService) pruneLocked(now time.Time) {
	cutoff := now.Add(-smsRetention)
	kept := s.messages[:0]
	for _, m := range s.messages {
		if m.receivedAt.After(cutoff) {
			kept = append(kept, m)
		}
	}
	s.messages = kept
}
