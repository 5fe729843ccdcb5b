package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"visaradar/internal/browser"
	"visaradar/internal/config"
	"visaradar/internal/models"
	"visaradar/internal/realtime"
	"visaradar/internal/utils"
)

var ErrUnknownCountry = errors.New("unknown country code")

// consecutiveErrorLimit: после стольких ошибок подряд раннер ротирует
// прокси и пересоздаёт браузерную сессию.
const consecutiveErrorLimit = 3

type runner struct {
	cancel context.CancelFunc
	pause  chan bool
	done   chan struct{}
}

// ScannerService — движок сканирования: по одному раннеру на страну,
// допуск через SessionRegistry, доступность — через AvailabilityService.
type ScannerService struct {
	mu           sync.Mutex
	cfg          *config.Config
	registry     *SessionRegistry
	proxies      *ProxyService
	browsers     *browser.Manager
	screens      *ScreenService
	availability *AvailabilityService
	login        *LoginService
	notifier     *NotifierService
	hub          *realtime.StatusHub
	runners      map[string]*runner
}

func NewScannerService(
	cfg *config.Config,
	registry *SessionRegistry,
	proxies *ProxyService,
	browsers *browser.Manager,
	screens *ScreenService,
	availability *AvailabilityService,
	login *LoginService,
	notifier *NotifierService,
	hub *realtime.StatusHub,
) *ScannerService {
	return &ScannerService{
		cfg:          cfg,
		registry:     registry,
		proxies:      proxies,
		browsers:     browsers,
		screens:      screens,
		availability: availability,
		login:        login,
		notifier:     notifier,
		hub:          hub,
		runners:      make(map[string]*runner),
	}
}

// pushStatus шлёт снимок сессии на живой дашборд, если он подключён.
func (s *ScannerService) pushStatus(countryCode string) {
	if s.hub == nil {
		return
	}
	if session, ok := s.registry.Session(countryCode); ok {
		s.hub.BroadcastSession(session)
	}
}

// Start допускает страну в сканирование и запускает её раннер.
// Ошибка допуска (бюджет, дубль) возвращается как есть.
func (s *ScannerService) Start(countryCode string) error {
	country, ok := s.cfg.CountryByCode(countryCode)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCountry, countryCode)
	}

	proxy, err := s.proxies.Assign(countryCode)
	proxyAddr := ""
	if err == nil {
		proxyAddr = proxy.Addr()
	} else if !errors.Is(err, ErrNoProxy) {
		return err
	}

	if err := s.registry.StartSession(countryCode, proxyAddr, s.cfg.Scan.RoundsPerScan); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &runner{
		cancel: cancel,
		pause:  make(chan bool, 1),
		done:   make(chan struct{}),
	}

	s.mu.Lock()
	s.runners[countryCode] = r
	s.mu.Unlock()

	go s.run(ctx, r, country)

	log.Printf("[scan][%s] started", countryCode)
	s.notifier.NotifyScanEvent(models.NotifyScanStarted, country.Name, "Scan started")
	return nil
}

// Stop снимает раннер и дожидается его завершения.
func (s *ScannerService) Stop(countryCode string) error {
	s.mu.Lock()
	r, ok := s.runners[countryCode]
	if ok {
		delete(s.runners, countryCode)
	}
	s.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}

	r.cancel()
	<-r.done

	s.registry.StopSession(countryCode)
	if country, ok := s.cfg.CountryByCode(countryCode); ok {
		s.notifier.NotifyScanEvent(models.NotifyScanStopped, country.Name, "Scan stopped")
	}
	log.Printf("[scan][%s] stopped", countryCode)
	return nil
}

// Pause приостанавливает итерации; браузер и счётчики остаются на месте.
func (s *ScannerService) Pause(countryCode string) error {
	return s.signalPause(countryCode, true)
}

func (s *ScannerService) Resume(countryCode string) error {
	return s.signalPause(countryCode, false)
}

func (s *ScannerService) signalPause(countryCode string, paused bool) error {
	s.mu.Lock()
	r, ok := s.runners[countryCode]
	s.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}

	select {
	case r.pause <- paused:
	default:
		// предыдущий сигнал ещё не прочитан, перезаписываем
		select {
		case <-r.pause:
		default:
		}
		r.pause <- paused
	}
	return nil
}

// StopAll останавливает все раннеры; используется при выключении сервиса.
func (s *ScannerService) StopAll() {
	s.mu.Lock()
	codes := make([]string, 0, len(s.runners))
	for code := range s.runners {
		codes = append(codes, code)
	}
	s.mu.Unlock()

	for _, code := range codes {
		_ = s.Stop(code)
	}
}

func (s *ScannerService) run(ctx context.Context, r *runner, country models.Country) {
	defer close(r.done)
	defer s.browsers.CloseSession(country.Code)

	page, err := s.openBrowser(country)
	if err != nil {
		s.failSession(country, "browser: "+err.Error())
		return
	}

	if err := s.loginFlow(ctx, page, country); err != nil {
		if !errors.Is(err, context.Canceled) {
			s.failSession(country, "login: "+err.Error())
		}
		return
	}

	s.scanLoop(ctx, r, page, country)
}

func (s *ScannerService) openBrowser(country models.Country) (browser.Page, error) {
	var proxyPtr *models.Proxy
	if proxy, err := s.proxies.Assign(country.Code); err == nil {
		proxyPtr = &proxy
	}

	page, err := s.browsers.OpenSession(country.Code, proxyPtr)
	if err != nil {
		return nil, err
	}
	// навигация через мобильные прокси срывается, даём ей три шанса
	if err := utils.Retry(3, 2*time.Second, func() error {
		return page.Navigate(country.URL)
	}); err != nil {
		s.browsers.CloseSession(country.Code)
		return nil, fmt.Errorf("navigate: %w", err)
	}
	return page, nil
}

// loginFlow берёт единственный логин-слот и проводит страницу через
// логин. Слот освобождается на всех путях выхода.
func (s *ScannerService) loginFlow(ctx context.Context, page browser.Page, country models.Country) error {
	if err := s.registry.RequestLogin(ctx, country.Code); err != nil {
		return err
	}
	defer s.registry.ReleaseLogin(country.Code)

	info, err := s.login.Login(ctx, page, country.Code)
	if err != nil {
		s.notifier.NotifyScanEvent(models.NotifyLoginFailed, country.Name, err.Error())
		return err
	}
	if info.ScreenType == models.ScreenOTPVerification {
		s.notifier.NotifyOTPRequired(country.Name)
		return ErrOTPTimeout
	}

	if info.ScreenType == models.ScreenDashboard {
		if err := s.login.NavigateToBooking(ctx, page); err != nil {
			log.Printf("[scan][%s] booking navigation: %v", country.Code, err)
		}
	}

	s.notifier.NotifyScanEvent(models.NotifyLoginSuccess, country.Name, "Logged in")
	return nil
}

// scanLoop — основной цикл: проверка, отчёт, джиттерная пауза.
// Пауза между итерациями случайна, чтобы запросы стран не шли в такт.
func (s *ScannerService) scanLoop(ctx context.Context, r *runner, page browser.Page, country models.Country) {
	paused := false
	errorStreak := 0
	round := 0
	totalRounds := s.cfg.Scan.RoundsPerScan

	for {
		select {
		case <-ctx.Done():
			return
		case paused = <-r.pause:
			if paused {
				s.registry.PauseSession(country.Code)
				log.Printf("[scan][%s] paused", country.Code)
			} else {
				s.registry.SetStatus(country.Code, models.StatusScanning, "")
				log.Printf("[scan][%s] resumed", country.Code)
			}
			s.pushStatus(country.Code)
		default:
		}

		if paused {
			if !sleepCtx(ctx, time.Second) {
				return
			}
			continue
		}

		round++
		if totalRounds > 0 && round > totalRounds {
			_ = s.login.Logout(page)
			s.registry.SetStatus(country.Code, models.StatusCompleted, "")
			s.pushStatus(country.Code)
			log.Printf("[scan][%s] completed %d rounds", country.Code, totalRounds)
			return
		}

		if err := s.checkOnce(ctx, page, country, round); err != nil {
			errorStreak++
			log.Printf("[scan][%s] check failed (%d/%d): %v",
				country.Code, errorStreak, consecutiveErrorLimit, err)
			if errorStreak >= consecutiveErrorLimit {
				newPage, rotateErr := s.rotateIdentity(country)
				if rotateErr != nil {
					s.failSession(country, "rotate: "+rotateErr.Error())
					return
				}
				page = newPage
				if err := s.loginFlow(ctx, page, country); err != nil {
					if !errors.Is(err, context.Canceled) {
						s.failSession(country, "relogin: "+err.Error())
					}
					return
				}
				errorStreak = 0
			}
		} else {
			errorStreak = 0
		}

		wait := utils.Jitter(s.cfg.Scan.CheckInterval, -5*time.Second, 10*time.Second)
		if !sleepCtx(ctx, wait) {
			return
		}
	}
}

func (s *ScannerService) checkOnce(ctx context.Context, page browser.Page, country models.Country, round int) error {
	info := s.screens.Classify(page)

	if s.screens.IsErrorState(info) {
		return fmt.Errorf("screen %s: %s", info.ScreenType, info.ErrorMessage)
	}
	if info.ScreenType == models.ScreenLogin {
		return fmt.Errorf("session dropped to login screen")
	}

	result := s.availability.Check(page, country.Name, "short_stay")
	if result.Error != "" {
		return errors.New(result.Error)
	}

	s.registry.UpdateProgress(country.Code, round, 1, 1)
	s.pushStatus(country.Code)

	if result.HasAvailability {
		s.registry.RecordAppointmentFound(country.Code)

		screenshot, err := page.Screenshot()
		if err != nil {
			screenshot = nil
		}
		s.notifier.NotifyAppointmentFound(country.Name, result, screenshot)
		log.Printf("[scan][%s] appointments found: %d dates", country.Code, len(result.AvailableDates))
	}
	return nil
}

// rotateIdentity меняет прокси и пересоздаёт браузерную сессию с чистым
// состоянием.
func (s *ScannerService) rotateIdentity(country models.Country) (browser.Page, error) {
	s.browsers.CloseSession(country.Code)

	proxy, err := s.proxies.Rotate(country.Code)
	var proxyPtr *models.Proxy
	if err == nil {
		proxyPtr = &proxy
		s.registry.SetProxy(country.Code, proxy.Addr())
	} else if !errors.Is(err, ErrNoProxy) {
		return nil, err
	}

	page, err := s.browsers.OpenSession(country.Code, proxyPtr)
	if err != nil {
		return nil, err
	}
	if err := page.Navigate(country.URL); err != nil {
		s.browsers.CloseSession(country.Code)
		return nil, fmt.Errorf("navigate: %w", err)
	}
	return page, nil
}

func (s *ScannerService) failSession(country models.Country, msg string) {
	msg = utils.Truncate(msg, 300)
	s.registry.SetStatus(country.Code, models.StatusError, msg)
	s.pushStatus(country.Code)
	s.notifier.NotifyError(country.Name, msg)
	log.Printf("[scan][%s] error: %s", country.Code, msg)
}
