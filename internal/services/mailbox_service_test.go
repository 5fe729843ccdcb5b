package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMailSource struct {
	batches [][]MailMessage
	err     error
}

func (s *fakeMailSource) FetchNew() ([]MailMessage, error) {
	if s.err != nil {
		return nil, s.err
	}
	if len(s.batches) == 0 {
		return nil, nil
	}
	batch := s.batches[0]
	s.batches = s.batches[1:]
	return batch, nil
}

func TestHarvestCollectsCodesFromAllowedSenders(t *testing.T) {
	source := &fakeMailSource{batches: [][]MailMessage{{
		{From: "noreply@vfsglobal.com", Subject: "Verification", Body: "Your code is 987654", ReceivedAt: time.Now()},
		{From: "spam@lottery.example", Subject: "You won!", Body: "code: 111111", ReceivedAt: time.Now()},
		{From: "info@vfsglobal.com", Subject: "Your appointment", Body: "See you tomorrow", ReceivedAt: time.Now()},
	}}}

	mailbox := NewMailboxService(source, []string{"vfsglobal"})
	added, err := mailbox.Harvest()
	require.NoError(t, err)
	// письмо вне allowlist и письмо без кода отброшены
	assert.Equal(t, 1, added)

	code, ok := mailbox.Latest()
	require.True(t, ok)
	assert.Equal(t, "987654", code)
}

func TestHarvestEmptyAllowlistAcceptsAll(t *testing.T) {
	source := &fakeMailSource{batches: [][]MailMessage{{
		{From: "anyone@example.com", Body: "code: 555555"},
	}}}

	mailbox := NewMailboxService(source, nil)
	added, err := mailbox.Harvest()
	require.NoError(t, err)
	assert.Equal(t, 1, added)
}

func TestHarvestWithoutSourceIsNoop(t *testing.T) {
	// почтовый источник опционален: без него Harvest не должен падать
	mailbox := NewMailboxService(nil, nil)
	added, err := mailbox.Harvest()
	require.NoError(t, err)
	assert.Zero(t, added)

	_, ok := mailbox.Latest()
	assert.False(t, ok)
}

func TestHarvestPropagatesSourceError(t *testing.T) {
	source := &fakeMailSource{err: errors.New("imap: connection refused")}

	mailbox := NewMailboxService(source, nil)
	_, err := mailbox.Harvest()
	assert.Error(t, err)
}

func TestMailboxMarkUsed(t *testing.T) {
	source := &fakeMailSource{batches: [][]MailMessage{{
		{From: "a@vfs.com", Body: "code: 666666"},
	}}}

	mailbox := NewMailboxService(source, nil)
	_, err := mailbox.Harvest()
	require.NoError(t, err)

	code, ok := mailbox.Latest()
	require.True(t, ok)

	mailbox.MarkUsed(code)
	_, ok = mailbox.Latest()
	assert.False(t, ok)
}
