package services

import (
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"math/big"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"visaradar/internal/models"
	"visaradar/internal/utils"
)

var (
	ErrCodeExpired     = errors.New("code expired")
	ErrCodeInvalid     = errors.New("code invalid")
	ErrTooManyAttempts = errors.New("too many attempts")
)

const (
	defaultOTPLength   = 6
	defaultOTPTTL      = 5 * time.Minute
	defaultMaxAttempts = 3
)

// DeliverFunc — доставка кода вызывающей стороной. Вызывается не более
// одного раза на выдачу; её ошибка не отменяет саму выдачу.
type DeliverFunc func(identifier, code string, channel models.OTPChannel) error

// OTPService — хранилище одноразовых кодов по ключу (identifier, channel).
// Плейнтекст кода живёт только внутри вызова Issue.
type OTPService struct {
	mu          sync.Mutex
	records     map[string]*models.VerificationRecord
	codeLength  int
	ttl         time.Duration
	maxAttempts int
}

func NewOTPService(codeLength int, ttl time.Duration, maxAttempts int) *OTPService {
	if codeLength <= 0 {
		codeLength = defaultOTPLength
	}
	if ttl <= 0 {
		ttl = defaultOTPTTL
	}
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	return &OTPService{
		records:     make(map[string]*models.VerificationRecord),
		codeLength:  codeLength,
		ttl:         ttl,
		maxAttempts: maxAttempts,
	}
}

func storageKey(identifier string, channel models.OTPChannel) string {
	return string(channel) + ":" + identifier
}

func (s *OTPService) generateCode() (string, error) {
	digits := make([]byte, s.codeLength)
	for i := range digits {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", fmt.Errorf("generate code: %w", err)
		}
		digits[i] = byte('0' + n.Int64())
	}
	return string(digits), nil
}

func maskIdentifier(identifier string, channel models.OTPChannel) string {
	switch channel {
	case models.ChannelSMS:
		return utils.MaskPhone(identifier)
	case models.ChannelEmail:
		return utils.MaskEmail(identifier)
	}
	return "***"
}

// Issue генерирует код, заменяет живую запись по ключу и доставляет код
// через deliver. На ключ всегда не больше одной живой записи.
func (s *OTPService) Issue(identifier string, channel models.OTPChannel, deliver DeliverFunc) (*models.IssueResult, error) {
	code, err := s.generateCode()
	if err != nil {
		return nil, err
	}
	hashBytes, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("bcrypt generate: %w", err)
	}

	now := time.Now()
	rec := &models.VerificationRecord{
		CodeHash:  string(hashBytes),
		Channel:   channel,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	s.mu.Lock()
	s.records[storageKey(identifier, channel)] = rec
	s.mu.Unlock()

	deliveryStatus := "pending"
	if deliver != nil {
		if err := deliver(identifier, code, channel); err != nil {
			deliveryStatus = "failed: " + err.Error()
			log.Printf("[otp][issue] delivery failed: channel=%s id=%s err=%v",
				channel, maskIdentifier(identifier, channel), err)
		} else {
			deliveryStatus = "sent"
		}
	}

	log.Printf("[otp][issue] ok: channel=%s id=%s expires=%s",
		channel, maskIdentifier(identifier, channel), rec.ExpiresAt.Format(time.RFC3339))

	return &models.IssueResult{
		Identifier:     maskIdentifier(identifier, channel),
		Channel:        channel,
		ExpiresAt:      rec.ExpiresAt,
		DeliveryStatus: deliveryStatus,
	}, nil
}

// Verify сверяет кандидата с bcrypt-хэшем. Закрыт по умолчанию:
// неизвестный или использованный ключ — invalid, просроченный — expired
// с удалением записи, исчерпанные попытки — max_attempts_exceeded
// с удалением записи.
func (s *OTPService) Verify(identifier string, channel models.OTPChannel, candidate string) *models.VerifyResult {
	key := storageKey(identifier, channel)

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]
	if !ok {
		return &models.VerifyResult{
			Status:  models.OTPStatusInvalid,
			Message: "no code found for this identifier",
		}
	}
	if rec.Verified {
		// одноразовость: повторная проверка никогда не проходит
		return &models.VerifyResult{
			Status:  models.OTPStatusInvalid,
			Message: "code has already been used",
		}
	}
	if time.Now().After(rec.ExpiresAt) {
		delete(s.records, key)
		return &models.VerifyResult{
			Status:  models.OTPStatusExpired,
			Message: "code has expired",
		}
	}
	if rec.Attempts >= s.maxAttempts {
		delete(s.records, key)
		return &models.VerifyResult{
			Status:  models.OTPStatusMaxAttemptsExceeded,
			Message: "maximum verification attempts exceeded",
		}
	}

	rec.Attempts++

	if bcrypt.CompareHashAndPassword([]byte(rec.CodeHash), []byte(candidate)) == nil {
		rec.Verified = true
		log.Printf("[otp][verify] OK channel=%s id=%s", channel, maskIdentifier(identifier, channel))
		return &models.VerifyResult{
			Verified: true,
			Status:   models.OTPStatusVerified,
			Message:  "code verified successfully",
		}
	}

	remaining := s.maxAttempts - rec.Attempts
	if remaining <= 0 {
		delete(s.records, key)
		return &models.VerifyResult{
			Status:  models.OTPStatusMaxAttemptsExceeded,
			Message: "maximum verification attempts exceeded",
		}
	}
	return &models.VerifyResult{
		Status:            models.OTPStatusInvalid,
		Message:           fmt.Sprintf("invalid code, %d attempts remaining", remaining),
		RemainingAttempts: remaining,
	}
}

// Reissue — инвалидация старой записи и новая выдача.
func (s *OTPService) Reissue(identifier string, channel models.OTPChannel, deliver DeliverFunc) (*models.IssueResult, error) {
	s.mu.Lock()
	delete(s.records, storageKey(identifier, channel))
	s.mu.Unlock()
	return s.Issue(identifier, channel, deliver)
}

func (s *OTPService) Status(identifier string, channel models.OTPChannel) *models.OTPStatusInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[storageKey(identifier, channel)]
	if !ok {
		return &models.OTPStatusInfo{Status: "not_found"}
	}

	expired := time.Now().After(rec.ExpiresAt)
	status := models.OTPStatusPending
	if expired {
		status = models.OTPStatusExpired
	}
	remaining := s.maxAttempts - rec.Attempts
	if remaining < 0 {
		remaining = 0
	}
	return &models.OTPStatusInfo{
		Exists:            true,
		Status:            status,
		Verified:          rec.Verified,
		AttemptsUsed:      rec.Attempts,
		AttemptsRemaining: remaining,
		ExpiresAt:         rec.ExpiresAt,
		IsExpired:         expired,
	}
}
