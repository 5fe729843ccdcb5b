package models

import "time"

// Канал доставки одноразового кода.
type OTPChannel string

const (
	ChannelSMS   OTPChannel = "sms"
	ChannelEmail OTPChannel = "email"
)

type OTPStatus string

const (
	OTPStatusPending             OTPStatus = "pending"
	OTPStatusVerified            OTPStatus = "verified"
	OTPStatusExpired             OTPStatus = "expired"
	OTPStatusInvalid             OTPStatus = "invalid"
	OTPStatusMaxAttemptsExceeded OTPStatus = "max_attempts_exceeded"
)

// VerificationRecord — одна запись на выданный код.
// Храним только bcrypt-хэш (CodeHash), TTL и счётчик попыток.
type VerificationRecord struct {
	CodeHash  string     `json:"-"`
	Channel   OTPChannel `json:"channel"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt time.Time  `json:"expires_at"`
	Attempts  int        `json:"attempts"`
	Verified  bool       `json:"verified"`
}

// IssueResult — метаданные выдачи; идентификатор уже замаскирован.
type IssueResult struct {
	Identifier     string     `json:"identifier"`
	Channel        OTPChannel `json:"channel"`
	ExpiresAt      time.Time  `json:"expires_at"`
	DeliveryStatus string     `json:"delivery_status"`
}

type VerifyResult struct {
	Verified          bool      `json:"verified"`
	Status            OTPStatus `json:"status"`
	Message           string    `json:"message"`
	RemainingAttempts int       `json:"remaining_attempts,omitempty"`
}

type OTPStatusInfo struct {
	Exists            bool      `json:"exists"`
	Status            OTPStatus `json:"status"`
	Verified          bool      `json:"verified"`
	AttemptsUsed      int       `json:"attempts_used"`
	AttemptsRemaining int       `json:"attempts_remaining"`
	ExpiresAt         time.Time `json:"expires_at,omitempty"`
	IsExpired         bool      `json:"is_expired"`
}
