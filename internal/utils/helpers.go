package utils

import (
	"math/rand"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

var otpPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(\d{6})\b`),
	regexp.MustCompile(`(?i)code[:\s]*(\d{6})`),
	regexp.MustCompile(`(?i)OTP[:\s]*(\d{6})`),
	regexp.MustCompile(`(?i)verification[:\s]*(\d{6})`),
}

// ExtractOTP достаёт 6-значный код из произвольного текста.
func ExtractOTP(text string) string {
	for _, p := range otpPatterns {
		if m := p.FindStringSubmatch(text); m != nil {
			return m[1]
		}
	}
	return ""
}

// MaskSensitive — маскирует токены/пароли для логов.
func MaskSensitive(text string, visible int) string {
	if text == "" {
		return ""
	}
	if len(text) <= visible {
		return strings.Repeat("*", len(text))
	}
	return text[:visible] + strings.Repeat("*", len(text)-visible)
}

func MaskEmail(email string) string {
	at := strings.Index(email, "@")
	if email == "" || at < 0 {
		return MaskSensitive(email, 1)
	}
	local, domain := email[:at], email[at+1:]
	if len(local) <= 1 {
		return "***@" + domain
	}
	return local[:1] + "***@" + domain
}

func MaskPhone(phone string) string {
	if len(phone) <= 4 {
		return "***"
	}
	return phone[:2] + "***" + phone[len(phone)-4:]
}

func CleanText(text string) string {
	return strings.TrimSpace(regexp.MustCompile(`\s+`).ReplaceAllString(text, " "))
}

func Truncate(text string, max int) string {
	const suffix = "..."
	if len(text) <= max {
		return text
	}
	return text[:max-len(suffix)] + suffix
}

// Jitter — интервал со случайным смещением, чтобы страны не опрашивали
// сайт синхронно.
func Jitter(base time.Duration, minOffset, maxOffset time.Duration) time.Duration {
	span := int64(maxOffset - minOffset)
	if span <= 0 {
		return base
	}
	d := base + minOffset + time.Duration(rand.Int63n(span))
	if d < 0 {
		return 0
	}
	return d
}

func NewSessionID() string {
	return uuid.NewString()[:8]
}

// Retry — повтор с удвоением задержки между попытками.
func Retry(attempts int, delay time.Duration, fn func() error) error {
	var last error
	for i := 0; i < attempts; i++ {
		if last = fn(); last == nil {
			return nil
		}
		if i < attempts-1 {
			time.Sleep(delay)
			delay *= 2
		}
	}
	return last
}
