package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visaradar/internal/models"
)

func TestStartSessionRespectsBudget(t *testing.T) {
	r := NewSessionRegistry(3)

	require.NoError(t, r.StartSession("fra", "", 5))
	require.NoError(t, r.StartSession("dnk", "", 5))
	require.NoError(t, r.StartSession("hrv", "", 5))

	err := r.StartSession("cze", "", 5)
	assert.ErrorIs(t, err, ErrScanLimitReached)
	assert.Equal(t, 3, r.ActiveCount())

	// освобождение квоты пускает следующую страну
	r.StopSession("fra")
	assert.NoError(t, r.StartSession("cze", "", 5))
}

func TestStartSessionRejectsDuplicate(t *testing.T) {
	r := NewSessionRegistry(3)
	require.NoError(t, r.StartSession("fra", "", 5))

	err := r.StartSession("fra", "", 5)
	assert.Error(t, err)
}

func TestPausedSessionDoesNotHoldQuota(t *testing.T) {
	r := NewSessionRegistry(1)
	require.NoError(t, r.StartSession("fra", "", 5))

	r.PauseSession("fra")
	assert.Equal(t, 0, r.ActiveCount())
	assert.NoError(t, r.StartSession("dnk", "", 5))
}

func TestCountersSurvivePauseAndStop(t *testing.T) {
	r := NewSessionRegistry(3)
	require.NoError(t, r.StartSession("fra", "", 5))

	r.UpdateProgress("fra", 2, 3, 10)
	r.RecordAppointmentFound("fra")
	r.PauseSession("fra")

	s, ok := r.Session("fra")
	require.True(t, ok)
	assert.Equal(t, 2, s.CurrentRound)
	assert.Equal(t, 1, s.AppointmentsFound)
	assert.Equal(t, 1, s.TotalChecks)

	r.StopSession("fra")
	s, _ = r.Session("fra")
	assert.Equal(t, models.StatusIdle, s.Status)
	assert.Equal(t, 1, s.AppointmentsFound)
}

func TestResetSessionDropsRecord(t *testing.T) {
	r := NewSessionRegistry(3)
	require.NoError(t, r.StartSession("fra", "", 5))
	r.RecordAppointmentFound("fra")

	r.ResetSession("fra")
	_, ok := r.Session("fra")
	assert.False(t, ok)
}

func TestLoginSlotIsExclusive(t *testing.T) {
	r := NewSessionRegistry(3)
	require.NoError(t, r.StartSession("fra", "", 5))
	require.NoError(t, r.StartSession("dnk", "", 5))

	require.NoError(t, r.RequestLogin(context.Background(), "fra"))

	s, _ := r.Session("fra")
	assert.Equal(t, models.StatusLoggingIn, s.Status)

	// вторая страна блокируется, пока слот занят
	acquired := make(chan struct{})
	go func() {
		if err := r.RequestLogin(context.Background(), "dnk"); err == nil {
			close(acquired)
		}
	}()

	select {
	case <-acquired:
		t.Fatal("second country entered login section while slot was held")
	case <-time.After(50 * time.Millisecond):
	}

	s, _ = r.Session("dnk")
	assert.Equal(t, models.StatusWaitingLogin, s.Status)

	r.ReleaseLogin("fra")

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("waiting country did not acquire the slot after release")
	}

	s, _ = r.Session("fra")
	assert.Equal(t, models.StatusScanning, s.Status)
}

func TestRequestLoginHonorsContextCancel(t *testing.T) {
	r := NewSessionRegistry(3)
	require.NoError(t, r.StartSession("fra", "", 5))
	require.NoError(t, r.StartSession("dnk", "", 5))

	require.NoError(t, r.RequestLogin(context.Background(), "fra"))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- r.RequestLogin(ctx, "dnk")
	}()

	cancel()
	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled waiter did not return")
	}
}

func TestReleaseLoginIgnoresNonHolder(t *testing.T) {
	r := NewSessionRegistry(3)
	require.NoError(t, r.StartSession("fra", "", 5))
	require.NoError(t, r.RequestLogin(context.Background(), "fra"))

	// чужой релиз не освобождает слот
	r.ReleaseLogin("dnk")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := r.RequestLogin(ctx, "hrv")
	assert.Error(t, err)

	r.ReleaseLogin("fra")
}

func TestStatsAggregation(t *testing.T) {
	r := NewSessionRegistry(3)
	require.NoError(t, r.StartSession("fra", "", 5))
	require.NoError(t, r.StartSession("dnk", "", 5))

	r.UpdateProgress("fra", 1, 1, 4)
	r.UpdateProgress("dnk", 1, 2, 4)
	r.RecordAppointmentFound("dnk")

	stats := r.Stats()
	assert.Equal(t, 2, stats.ActiveScans)
	assert.Equal(t, 3, stats.MaxParallel)
	assert.Equal(t, 1, stats.TotalAppointmentsFound)
	assert.Equal(t, 2, stats.TotalChecks)
	assert.ElementsMatch(t, []string{"fra", "dnk"}, stats.ActiveCountries)
}

func TestStartSessionAssignsSessionID(t *testing.T) {
	r := NewSessionRegistry(3)
	require.NoError(t, r.StartSession("fra", "1.2.3.4:8080", 5))

	s, ok := r.Session("fra")
	require.True(t, ok)
	assert.NotEmpty(t, s.SessionID)
	assert.Equal(t, "1.2.3.4:8080", s.CurrentProxy)
	assert.False(t, s.StartTime.IsZero())
}
