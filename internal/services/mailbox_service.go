package services

import (
	"log"
	"strings"
	"sync"
	"time"

	"visaradar/internal/utils"
)

// MailMessage — входящее письмо в том виде, в котором его отдаёт источник.
type MailMessage struct {
	From       string
	Subject    string
	Body       string
	ReceivedAt time.Time
}

// MessageSource абстрагирует почтовый ящик: реализация опрашивает
// IMAP/API и отдаёт новые письма с момента последнего вызова.
type MessageSource interface {
	FetchNew() ([]MailMessage, error)
}

const mailRetention = 10 * time.Minute

type harvestedCode struct {
	code       string
	sender     string
	receivedAt time.Time
	used       bool
}

// MailboxService вылавливает коды подтверждения из входящей почты.
// Письма от отправителей вне allowlist отбрасываются не читаясь.
type MailboxService struct {
	mu             sync.Mutex
	source         MessageSource
	allowedSenders []string
	codes          []harvestedCode
}

func NewMailboxService(source MessageSource, allowedSenders []string) *MailboxService {
	return &MailboxService{
		source:         source,
		allowedSenders: allowedSenders,
	}
}

func (s *MailboxService) senderAllowed(from string) bool {
	if len(s.allowedSenders) == 0 {
		return true
	}
	lower := strings.ToLower(from)
	for _, allowed := range s.allowedSenders {
		if strings.Contains(lower, strings.ToLower(allowed)) {
			return true
		}
	}
	return false
}

// Harvest забирает новые письма и складывает найденные коды.
// Возвращает число добавленных кодов. Без источника — тихий no-op:
// почтовый канал опционален, коды тогда приходят только из SMS.
func (s *MailboxService) Harvest() (int, error) {
	if s.source == nil {
		return 0, nil
	}
	messages, err := s.source.FetchNew()
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked(time.Now())

	added := 0
	for _, msg := range messages {
		if !s.senderAllowed(msg.From) {
			continue
		}
		code := utils.ExtractOTP(msg.Subject + " " + msg.Body)
		if code == "" {
			continue
		}
		receivedAt := msg.ReceivedAt
		if receivedAt.IsZero() {
			receivedAt = time.Now()
		}
		s.codes = append(s.codes, harvestedCode{
			code:       code,
			sender:     msg.From,
			receivedAt: receivedAt,
		})
		added++
		log.Printf("[mailbox][harvest] code from %s", utils.MaskEmail(msg.From))
	}
	return added, nil
}

// Latest — самый свежий неиспользованный код из почты.
func (s *MailboxService) Latest() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked(time.Now())
	for i := len(s.codes) - 1; i >= 0; i-- {
		if !s.codes[i].used {
			return s.codes[i].code, true
		}
	}
	return "", false
}

func (s *MailboxService) MarkUsed(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := len(s.codes) - 1; i >= 0; i-- {
		if s.codes[i].code == code && !s.codes[i].used {
			s.codes[i].used = true
			return
		}
	}
}

// WaitForCode собирает почту раз в pollEvery до появления кода.
func (s *MailboxService) WaitForCode(timeout, pollEvery time.Duration) (string, bool) {
	deadline := time.Now().Add(timeout)
	for {
		if _, err := s.Harvest(); err != nil {
			log.Printf("[mailbox][harvest] failed: %v", err)
		}
		if code, ok := s.Latest(); ok {
			return code, true
		}
		if time.Now().After(deadline) {
			return "", false
		}
		time.Sleep(pollEvery)
	}
}

func (s *MailboxService) pruneLocked(now time.Time) {
	cutoff := now.Add(-mailRetention)
	kept := s.codes[:0]
	for _, c := range s.codes {
		if c.receivedAt.After(cutoff) {
			kept = append(kept, c)
		}
	}
	s.codes = kept
}
