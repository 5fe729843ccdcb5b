package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"visaradar/internal/models"
	"visaradar/internal/utils"
)

var (
	ErrScanLimitReached = errors.New("max parallel scans reached")
	ErrSessionNotFound  = errors.New("session not found")
)

// SessionRegistry — единственный владелец состояния CountrySession.
// Бюджет параллельности и сериализация логина живут здесь.
type SessionRegistry struct {
	mu          sync.RWMutex
	maxParallel int
	sessions    map[string]*models.CountrySession

	// один слот на логин для всех стран; ожидающие встают в очередь
	// на отправку в канал в порядке прихода
	loginSlot   chan struct{}
	loginHolder string
}

func NewSessionRegistry(maxParallel int) *SessionRegistry {
	if maxParallel <= 0 {
		maxParallel = 3
	}
	return &SessionRegistry{
		maxParallel: maxParallel,
		sessions:    make(map[string]*models.CountrySession),
		loginSlot:   make(chan struct{}, 1),
	}
}

func (r *SessionRegistry) getLocked(countryCode string) *models.CountrySession {
	s, ok := r.sessions[countryCode]
	if !ok {
		s = &models.CountrySession{
			CountryCode: countryCode,
			Status:      models.StatusIdle,
		}
		r.sessions[countryCode] = s
	}
	return s
}

func (r *SessionRegistry) activeCountLocked() int {
	n := 0
	for _, s := range r.sessions {
		if s.Status.Active() {
			n++
		}
	}
	return n
}

func (r *SessionRegistry) ActiveCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.activeCountLocked()
}

func (r *SessionRegistry) CanStart() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.activeCountLocked() < r.maxParallel
}

func (r *SessionRegistry) ActiveCountries() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for code, s := range r.sessions {
		if s.Status.Active() {
			out = append(out, code)
		}
	}
	return out
}

// StartSession — допуск страны в активное сканирование. Проверка бюджета
// и переход в checking атомарны, иначе две страны могли бы пройти
// через одну свободную квоту.
func (r *SessionRegistry) StartSession(countryCode, proxy string, totalRounds int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.getLocked(countryCode)
	if s.Status.Active() {
		return errors.New("scan already running for " + countryCode)
	}
	if r.activeCountLocked() >= r.maxParallel {
		return ErrScanLimitReached
	}

	now := time.Now()
	s.SessionID = utils.NewSessionID()
	s.Status = models.StatusChecking
	s.StartTime = now
	s.LastUpdate = now
	s.CurrentRound = 0
	s.CurrentCombo = 0
	s.ErrorMessage = ""
	s.CurrentProxy = proxy
	if totalRounds > 0 {
		s.TotalRounds = totalRounds
	}
	return nil
}

// RequestLogin ставит страну в очередь на единственный логин-слот.
// Пока слот занят другой страной, статус waiting_login; внутри секции —
// logging_in. Отмена контекста снимает страну с очереди.
func (r *SessionRegistry) RequestLogin(ctx context.Context, countryCode string) error {
	r.SetStatus(countryCode, models.StatusWaitingLogin, "")

	select {
	case r.loginSlot <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	r.mu.Lock()
	r.loginHolder = countryCode
	s := r.getLocked(countryCode)
	s.Status = models.StatusLoggingIn
	s.LastUpdate = time.Now()
	r.mu.Unlock()
	return nil
}

// ReleaseLogin освобождает логин-слот. Вызывается владельцем секции
// всегда, в том числе при неудачном логине — иначе остальные страны
// зависнут в waiting_login. Успешный логин переводит в scanning.
func (r *SessionRegistry) ReleaseLogin(countryCode string) {
	r.mu.Lock()
	held := r.loginHolder == countryCode
	if held {
		r.loginHolder = ""
		s := r.getLocked(countryCode)
		if s.Status == models.StatusLoggingIn {
			s.Status = models.StatusScanning
			s.LastUpdate = time.Now()
		}
	}
	r.mu.Unlock()

	if held {
		<-r.loginSlot
	}
}

func (r *SessionRegistry) SetStatus(countryCode string, status models.ScanStatus, errMsg string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.getLocked(countryCode)
	s.Status = status
	s.LastUpdate = time.Now()
	if errMsg != "" {
		s.ErrorMessage = errMsg
	}
}

func (r *SessionRegistry) UpdateProgress(countryCode string, round, combination, totalCombinations int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.getLocked(countryCode)
	s.CurrentRound = round
	s.CurrentCombo = combination
	s.TotalCombos = totalCombinations
	s.TotalChecks++
	s.LastUpdate = time.Now()
}

func (r *SessionRegistry) RecordAppointmentFound(countryCode string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.getLocked(countryCode)
	s.AppointmentsFound++
	s.LastUpdate = time.Now()
}

func (r *SessionRegistry) SetProxy(countryCode, proxy string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.getLocked(countryCode)
	s.CurrentProxy = proxy
	s.LastUpdate = time.Now()
}

// StopSession возвращает страну в idle; счётчики сохраняются.
func (r *SessionRegistry) StopSession(countryCode string) {
	r.SetStatus(countryCode, models.StatusIdle, "")
}

// PauseSession останавливает итерации без потери round/combination.
func (r *SessionRegistry) PauseSession(countryCode string) {
	r.SetStatus(countryCode, models.StatusPaused, "")
}

// ResetSession — единственная разрушающая операция: запись удаляется
// вместе со счётчиками.
func (r *SessionRegistry) ResetSession(countryCode string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, countryCode)
}

func (r *SessionRegistry) Session(countryCode string) (models.CountrySession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[countryCode]
	if !ok {
		return models.CountrySession{}, false
	}
	return *s, true
}

// Snapshot — копия всех сессий для HTTP-слоя.
func (r *SessionRegistry) Snapshot() map[string]models.CountrySession {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]models.CountrySession, len(r.sessions))
	for code, s := range r.sessions {
		out[code] = *s
	}
	return out
}

func (r *SessionRegistry) MaxParallel() int {
	return r.maxParallel
}

func (r *SessionRegistry) Stats() models.RegistryStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := models.RegistryStats{
		MaxParallel: r.maxParallel,
	}
	for code, s := range r.sessions {
		stats.TotalAppointmentsFound += s.AppointmentsFound
		stats.TotalChecks += s.TotalChecks
		if s.Status.Active() {
			stats.ActiveScans++
			stats.ActiveCountries = append(stats.ActiveCountries, code)
		}
	}
	return stats
}
