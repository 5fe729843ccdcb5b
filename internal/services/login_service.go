package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"visaradar/internal/browser"
	"visaradar/internal/models"
)

var (
	ErrLoginFailed     = errors.New("login failed")
	ErrOTPTimeout      = errors.New("verification code wait timeout")
	ErrCloudflareStuck = errors.New("cloudflare challenge did not clear")
)

var emailSelectors = []string{"input[type='email']", "input[name='email']", "#email", "input[name='username']"}

var passwordSelectors = []string{"input[type='password']", "input[name='password']", "#password"}

var submitSelectors = []string{"button[type='submit']", ".login-btn", "input[type='submit']"}

var otpInputSelectors = []string{"input[name='otp']", ".otp-input", "input[maxlength='6']", "input[autocomplete='one-time-code']"}

var spinnerSelectors = []string{".spinner", ".loading", ".loader"}

var bookingSelectors = []string{"a[href*='appointment']", ".book-appointment", ".new-booking"}

var logoutSelectors = []string{"a[href*='logout']", ".logout-btn", "button:has-text('Cikis')"}

const (
	cloudflareWait  = 60 * time.Second
	spinnerWait     = 30 * time.Second
	otpDefaultWait  = 120 * time.Second
	otpDefaultPoll  = 2 * time.Second
	postSubmitPause = 3 * time.Second
)

// LoginService проводит страницу через логин: cloudflare, форма, капча,
// код подтверждения. Учётные данные приходят из конфигурации, сервис их
// в логи не пишет.
type LoginService struct {
	screens  *ScreenService
	captcha  *CaptchaService
	smsInbox *SMSInboxService
	mailbox  *MailboxService
	registry *SessionRegistry
	email    string
	password string
	otpWait  time.Duration
	otpPoll  time.Duration
}

// Нулевые otpWait/otpPoll заменяются значениями по умолчанию.
func NewLoginService(screens *ScreenService, captcha *CaptchaService, smsInbox *SMSInboxService, mailbox *MailboxService, registry *SessionRegistry, email, password string, otpWait, otpPoll time.Duration) *LoginService {
	if otpWait <= 0 {
		otpWait = otpDefaultWait
	}
	if otpPoll <= 0 {
		otpPoll = otpDefaultPoll
	}
	return &LoginService{
		screens:  screens,
		captcha:  captcha,
		smsInbox: smsInbox,
		mailbox:  mailbox,
		registry: registry,
		email:    email,
		password: password,
		otpWait:  otpWait,
		otpPoll:  otpPoll,
	}
}

// Login выполняет полный проход до рабочего экрана. Возвращает
// классификацию экрана, на котором проход закончился.
func (s *LoginService) Login(ctx context.Context, page browser.Page, countryCode string) (*models.ScreenInfo, error) {
	log.Printf("[login][%s] starting", countryCode)

	if err := s.waitCloudflare(ctx, page); err != nil {
		return nil, err
	}
	if err := s.waitSpinner(ctx, page); err != nil {
		return nil, err
	}

	info := s.screens.Classify(page)
	if info.ScreenType != models.ScreenLogin {
		// уже внутри или на неожиданном экране
		log.Printf("[login][%s] no login form, screen=%s", countryCode, info.ScreenType)
		return info, nil
	}

	if err := s.fillCredentials(page); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoginFailed, err)
	}

	if info.HasCaptcha {
		// решение капчи негарантированно: при отказе пробуем сабмит без
		// токена, сайт сам решит судьбу запроса
		if err := s.solveCaptcha(ctx, page); err != nil {
			log.Printf("[login][%s] captcha not solved: %v", countryCode, err)
		}
	}

	if err := clickFirst(page, submitSelectors); err != nil {
		return nil, fmt.Errorf("%w: submit: %v", ErrLoginFailed, err)
	}
	sleepCtx(ctx, postSubmitPause)
	if err := page.WaitForLoad(); err != nil {
		log.Printf("[login][%s] wait after submit: %v", countryCode, err)
	}

	info = s.screens.Classify(page)
	if info.ScreenType == models.ScreenOTPVerification {
		if err := s.submitOTP(ctx, page, countryCode); err != nil {
			return info, err
		}
		info = s.screens.Classify(page)
	}

	if info.HasError {
		return info, fmt.Errorf("%w: %s", ErrLoginFailed, info.ErrorMessage)
	}
	log.Printf("[login][%s] finished, screen=%s", countryCode, info.ScreenType)
	return info, nil
}

// waitCloudflare ждёт, пока уйдёт заставка "Just a moment".
func (s *LoginService) waitCloudflare(ctx context.Context, page browser.Page) error {
	deadline := time.Now().Add(cloudflareWait)
	for {
		title, err := page.Title()
		if err == nil && !isCloudflareTitle(title) {
			return nil
		}
		if time.Now().After(deadline) {
			return ErrCloudflareStuck
		}
		if !sleepCtx(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func isCloudflareTitle(title string) bool {
	lower := strings.ToLower(title)
	return strings.Contains(lower, "just a moment") || strings.Contains(lower, "checking your browser")
}

func (s *LoginService) waitSpinner(ctx context.Context, page browser.Page) error {
	deadline := time.Now().Add(spinnerWait)
	for {
		if !anyVisible(page, spinnerSelectors) {
			return nil
		}
		if time.Now().After(deadline) {
			// спиннер завис — пробуем работать с тем, что есть
			return nil
		}
		if !sleepCtx(ctx, time.Second) {
			return ctx.Err()
		}
	}
}

func (s *LoginService) fillCredentials(page browser.Page) error {
	if err := fillFirst(page, emailSelectors, s.email); err != nil {
		return fmt.Errorf("email field: %w", err)
	}
	if err := fillFirst(page, passwordSelectors, s.password); err != nil {
		return fmt.Errorf("password field: %w", err)
	}
	return nil
}

func (s *LoginService) solveCaptcha(ctx context.Context, page browser.Page) error {
	if s.captcha == nil || !s.captcha.Enabled() {
		return fmt.Errorf("captcha present but solver disabled")
	}

	el, err := page.Query("[data-sitekey]")
	if err != nil || el == nil {
		return fmt.Errorf("sitekey element not found")
	}
	siteKey, err := el.GetAttribute("data-sitekey")
	if err != nil || siteKey == "" {
		return fmt.Errorf("sitekey attribute missing")
	}

	token, err := s.captcha.SolveTurnstile(ctx, siteKey, page.URL())
	if err != nil {
		return err
	}

	script := fmt.Sprintf(
		`document.querySelector("[name='cf-turnstile-response']").value = %q`, token)
	if _, err := page.Evaluate(script); err != nil {
		return fmt.Errorf("inject token: %w", err)
	}
	return nil
}

// submitOTP ждёт код из SMS-вебхука или почты и вводит его в форму.
func (s *LoginService) submitOTP(ctx context.Context, page browser.Page, countryCode string) error {
	log.Printf("[login][%s] waiting for verification code", countryCode)
	if s.registry != nil {
		s.registry.SetStatus(countryCode, models.StatusWaitingOTP, "")
		defer s.registry.SetStatus(countryCode, models.StatusLoggingIn, "")
	}

	code, ok := s.waitForCode(ctx)
	if !ok {
		return ErrOTPTimeout
	}

	if err := fillFirst(page, otpInputSelectors, code); err != nil {
		return fmt.Errorf("otp field: %w", err)
	}
	if err := clickFirst(page, submitSelectors); err != nil {
		return fmt.Errorf("otp submit: %w", err)
	}

	if s.smsInbox != nil {
		s.smsInbox.MarkUsed(code)
	}
	if s.mailbox != nil {
		s.mailbox.MarkUsed(code)
	}

	sleepCtx(ctx, postSubmitPause)
	return page.WaitForLoad()
}

func (s *LoginService) waitForCode(ctx context.Context) (string, bool) {
	deadline := time.Now().Add(s.otpWait)
	for {
		if s.smsInbox != nil {
			if code, ok := s.smsInbox.Latest(); ok {
				return code, true
			}
		}
		if s.mailbox != nil {
			if _, err := s.mailbox.Harvest(); err != nil {
				log.Printf("[login][otp] mail harvest: %v", err)
			}
			if code, ok := s.mailbox.Latest(); ok {
				return code, true
			}
		}
		if time.Now().After(deadline) {
			return "", false
		}
		if !sleepCtx(ctx, s.otpPoll) {
			return "", false
		}
	}
}

// NavigateToBooking переходит с дашборда к выбору записи.
func (s *LoginService) NavigateToBooking(ctx context.Context, page browser.Page) error {
	if err := clickFirst(page, bookingSelectors); err != nil {
		return fmt.Errorf("booking link: %w", err)
	}
	sleepCtx(ctx, postSubmitPause)
	return page.WaitForLoad()
}

// Logout завершает сессию на сайте; отсутствие кнопки не считается ошибкой.
func (s *LoginService) Logout(page browser.Page) error {
	if err := clickFirst(page, logoutSelectors); err != nil {
		return nil
	}
	return page.WaitForLoad()
}

func fillFirst(page browser.Page, selectors []string, value string) error {
	for _, sel := range selectors {
		el, err := page.Query(sel)
		if err != nil || el == nil {
			continue
		}
		if err := page.Fill(sel, value); err == nil {
			return nil
		}
	}
	return fmt.Errorf("no matching field among %s", strings.Join(selectors, ", "))
}

func clickFirst(page browser.Page, selectors []string) error {
	for _, sel := range selectors {
		el, err := page.Query(sel)
		if err != nil || el == nil {
			continue
		}
		if err := page.Click(sel); err == nil {
			return nil
		}
	}
	return fmt.Errorf("no clickable element among %s", strings.Join(selectors, ", "))
}

func anyVisible(page browser.Page, selectors []string) bool {
	for _, sel := range selectors {
		el, err := page.Query(sel)
		if err != nil || el == nil {
			continue
		}
		if visible, err := el.IsVisible(); err == nil && visible {
			return true
		}
	}
	return false
}

// sleepCtx спит не дольше d; false — контекст отменён раньше.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
