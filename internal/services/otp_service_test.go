package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visaradar/internal/models"
)

type capturedDelivery struct {
	identifier string
	code       string
	channel    models.OTPChannel
}

func captureDelivery(store *capturedDelivery) DeliverFunc {
	return func(identifier, code string, channel models.OTPChannel) error {
		store.identifier = identifier
		store.code = code
		store.channel = channel
		return nil
	}
}

func TestOTPIssueAndVerify(t *testing.T) {
	svc := NewOTPService(6, time.Minute, 3)
	var delivered capturedDelivery

	result, err := svc.Issue("+905551234567", models.ChannelSMS, captureDelivery(&delivered))
	require.NoError(t, err)
	assert.Equal(t, "sent", result.DeliveryStatus)
	assert.Len(t, delivered.code, 6)

	// в ответе только маскированный идентификатор
	assert.Equal(t, "+9***4567", result.Identifier)

	verify := svc.Verify("+905551234567", models.ChannelSMS, delivered.code)
	assert.True(t, verify.Verified)
	assert.Equal(t, models.OTPStatusVerified, verify.Status)
}

func TestOTPVerifyIsOneShot(t *testing.T) {
	svc := NewOTPService(6, time.Minute, 3)
	var delivered capturedDelivery
	_, err := svc.Issue("user@example.com", models.ChannelEmail, captureDelivery(&delivered))
	require.NoError(t, err)

	first := svc.Verify("user@example.com", models.ChannelEmail, delivered.code)
	require.True(t, first.Verified)

	second := svc.Verify("user@example.com", models.ChannelEmail, delivered.code)
	assert.False(t, second.Verified)
	assert.Equal(t, models.OTPStatusInvalid, second.Status)
	assert.Contains(t, second.Message, "already been used")
}

func TestOTPWrongCodeCountsAttempts(t *testing.T) {
	svc := NewOTPService(6, time.Minute, 3)
	var delivered capturedDelivery
	_, err := svc.Issue("+905551234567", models.ChannelSMS, captureDelivery(&delivered))
	require.NoError(t, err)

	r1 := svc.Verify("+905551234567", models.ChannelSMS, "000000")
	assert.Equal(t, models.OTPStatusInvalid, r1.Status)
	assert.Equal(t, 2, r1.RemainingAttempts)

	r2 := svc.Verify("+905551234567", models.ChannelSMS, "000000")
	assert.Equal(t, 1, r2.RemainingAttempts)

	// третья неверная попытка упирается в лимит и удаляет запись
	r3 := svc.Verify("+905551234567", models.ChannelSMS, "000000")
	assert.Equal(t, models.OTPStatusMaxAttemptsExceeded, r3.Status)

	// правильный код после исчерпания лимита уже не принимается
	r4 := svc.Verify("+905551234567", models.ChannelSMS, delivered.code)
	assert.False(t, r4.Verified)
	assert.Equal(t, models.OTPStatusInvalid, r4.Status)
}

func TestOTPExpiredCode(t *testing.T) {
	svc := NewOTPService(6, time.Nanosecond, 3)
	var delivered capturedDelivery
	_, err := svc.Issue("+905551234567", models.ChannelSMS, captureDelivery(&delivered))
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	result := svc.Verify("+905551234567", models.ChannelSMS, delivered.code)
	assert.False(t, result.Verified)
	assert.Equal(t, models.OTPStatusExpired, result.Status)

	// запись удалена, дальше ключ неизвестен
	again := svc.Verify("+905551234567", models.ChannelSMS, delivered.code)
	assert.Equal(t, models.OTPStatusInvalid, again.Status)
}

func TestOTPUnknownIdentifier(t *testing.T) {
	svc := NewOTPService(6, time.Minute, 3)
	result := svc.Verify("+900000000000", models.ChannelSMS, "123456")
	assert.False(t, result.Verified)
	assert.Equal(t, models.OTPStatusInvalid, result.Status)
}

func TestOTPChannelsAreIndependent(t *testing.T) {
	svc := NewOTPService(6, time.Minute, 3)
	var smsCode, emailCode capturedDelivery

	_, err := svc.Issue("ident", models.ChannelSMS, captureDelivery(&smsCode))
	require.NoError(t, err)
	_, err = svc.Issue("ident", models.ChannelEmail, captureDelivery(&emailCode))
	require.NoError(t, err)

	// код одного канала не проходит в другом
	cross := svc.Verify("ident", models.ChannelEmail, smsCode.code)
	if smsCode.code != emailCode.code {
		assert.False(t, cross.Verified)
	}

	ok := svc.Verify("ident", models.ChannelSMS, smsCode.code)
	assert.True(t, ok.Verified)
}

func TestOTPReissueInvalidatesOldCode(t *testing.T) {
	svc := NewOTPService(6, time.Minute, 3)
	var first, second capturedDelivery

	_, err := svc.Issue("+905551234567", models.ChannelSMS, captureDelivery(&first))
	require.NoError(t, err)
	_, err = svc.Reissue("+905551234567", models.ChannelSMS, captureDelivery(&second))
	require.NoError(t, err)

	if first.code != second.code {
		old := svc.Verify("+905551234567", models.ChannelSMS, first.code)
		assert.False(t, old.Verified)
	}
	fresh := svc.Verify("+905551234567", models.ChannelSMS, second.code)
	assert.True(t, fresh.Verified)
}

func TestOTPDeliveryFailureDoesNotBlockIssue(t *testing.T) {
	svc := NewOTPService(6, time.Minute, 3)
	var delivered string
	failing := func(identifier, code string, channel models.OTPChannel) error {
		delivered = code
		return errors.New("smtp down")
	}

	result, err := svc.Issue("user@example.com", models.ChannelEmail, failing)
	require.NoError(t, err)
	assert.Contains(t, result.DeliveryStatus, "failed")

	// выдача состоялась, код проверяем
	verify := svc.Verify("user@example.com", models.ChannelEmail, delivered)
	assert.True(t, verify.Verified)
}

func TestOTPStatusReporting(t *testing.T) {
	svc := NewOTPService(6, time.Minute, 3)

	missing := svc.Status("nobody", models.ChannelSMS)
	assert.False(t, missing.Exists)

	var delivered capturedDelivery
	_, err := svc.Issue("+905551234567", models.ChannelSMS, captureDelivery(&delivered))
	require.NoError(t, err)

	svc.Verify("+905551234567", models.ChannelSMS, "000000")

	info := svc.Status("+905551234567", models.ChannelSMS)
	assert.True(t, info.Exists)
	assert.Equal(t, 1, info.AttemptsUsed)
	assert.Equal(t, 2, info.AttemptsRemaining)
	assert.False(t, info.IsExpired)
}
