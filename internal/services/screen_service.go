package services

import (
	"regexp"
	"strings"
	"sync"

	"visaradar/internal/browser"
	"visaradar/internal/models"
)

const screenHistoryLimit = 50

type screenURLRule struct {
	screen   models.ScreenType
	patterns []*regexp.Regexp
}

type screenSelectorRule struct {
	screen    models.ScreenType
	selectors []string
}

// Порядок правил фиксирован: первый совпавший выигрывает.
var urlRules = []screenURLRule{
	{models.ScreenLogin, compileAll(`/login`, `/sign-in`)},
	{models.ScreenOTPVerification, compileAll(`/otp`, `/verify`, `/2fa`)},
	{models.ScreenDashboard, compileAll(`/dashboard`, `/home`)},
	{models.ScreenAppointmentSelection, compileAll(`/appointment`, `/book`)},
	{models.ScreenDateSelection, compileAll(`/date`, `/calendar`)},
	{models.ScreenConfirmation, compileAll(`/confirm`, `/review`)},
	{models.ScreenSuccess, compileAll(`/success`, `/complete`)},
}

var selectorRules = []screenSelectorRule{
	{models.ScreenLogin, []string{"input[type='email']", "input[type='password']", "#login-form"}},
	{models.ScreenOTPVerification, []string{"input[name='otp']", ".otp-input", "input[maxlength='6']"}},
	{models.ScreenDashboard, []string{".dashboard", ".user-profile", ".welcome-message"}},
	{models.ScreenDateSelection, []string{".calendar", ".date-picker", ".available-dates"}},
	{models.ScreenTimeSelection, []string{".time-slots", ".slot-picker"}},
	{models.ScreenCaptcha, []string{"iframe[src*='recaptcha']", ".g-recaptcha", "[data-sitekey]"}},
	{models.ScreenNoAppointment, []string{".no-appointment", ".no-slots"}},
}

var captchaSelectors = []string{"iframe[src*='recaptcha']", ".g-recaptcha", "[data-sitekey]", "iframe[src*='challenges.cloudflare.com']"}

var errorSelectors = []string{".error-message", ".alert-danger", ".error"}

var actionSelectors = []struct {
	action   string
	selector string
}{
	{"login", "button[type='submit'], .login-btn"},
	{"continue", ".continue-btn, button:has-text('Devam')"},
	{"select_date", ".available-date, td.available"},
	{"select_time", ".time-slot"},
	{"confirm", ".confirm-btn, button:has-text('Onayla')"},
}

// nextActionTable — чистая таблица "экран -> следующий шаг".
// Для unknown/error/blocked/maintenance автоматического шага нет,
// решение за оператором.
var nextActionTable = map[models.ScreenType]string{
	models.ScreenLogin:           "login",
	models.ScreenOTPVerification: "enter_otp",
	models.ScreenDashboard:       "navigate_to_appointment",
	models.ScreenDateSelection:   "select_date",
	models.ScreenTimeSelection:   "select_time",
	models.ScreenConfirmation:    "confirm",
	models.ScreenCaptcha:         "solve_captcha",
}

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, regexp.MustCompile(p))
	}
	return out
}

// ScreenService классифицирует текущую страницу в один из известных
// экранов. История последних классификаций — только для диагностики,
// на результат не влияет.
type ScreenService struct {
	mu         sync.Mutex
	lastScreen *models.ScreenInfo
	history    []models.ScreenType
}

func NewScreenService() *ScreenService {
	return &ScreenService{}
}

// Classify: сперва URL-паттерны, затем пробы селекторов в порядке таблицы,
// иначе unknown. Капча и баннер ошибки проверяются независимо от типа.
func (s *ScreenService) Classify(page browser.Page) *models.ScreenInfo {
	url := page.URL()
	title, _ := page.Title()

	screenType := detectFromURL(url)
	if screenType == models.ScreenUnknown {
		screenType = detectFromElements(page)
	}

	hasCaptcha := checkCaptcha(page)
	hasError, errMsg := checkError(page)

	info := &models.ScreenInfo{
		ScreenType:       screenType,
		URL:              url,
		Title:            title,
		HasCaptcha:       hasCaptcha,
		HasError:         hasError,
		ErrorMessage:     errMsg,
		AvailableActions: collectActions(page),
		Metadata:         collectMetadata(page, screenType),
	}

	s.mu.Lock()
	s.lastScreen = info
	s.history = append(s.history, screenType)
	if len(s.history) > screenHistoryLimit {
		s.history = s.history[len(s.history)-screenHistoryLimit:]
	}
	s.mu.Unlock()

	return info
}

func detectFromURL(url string) models.ScreenType {
	lower := strings.ToLower(url)
	for _, rule := range urlRules {
		for _, p := range rule.patterns {
			if p.MatchString(lower) {
				return rule.screen
			}
		}
	}
	return models.ScreenUnknown
}

func detectFromElements(page browser.Page) models.ScreenType {
	for _, rule := range selectorRules {
		for _, sel := range rule.selectors {
			el, err := page.Query(sel)
			if err != nil {
				continue
			}
			if el != nil {
				return rule.screen
			}
		}
	}
	return models.ScreenUnknown
}

func checkCaptcha(page browser.Page) bool {
	for _, sel := range captchaSelectors {
		el, err := page.Query(sel)
		if err == nil && el != nil {
			return true
		}
	}
	return false
}

func checkError(page browser.Page) (bool, string) {
	for _, sel := range errorSelectors {
		el, err := page.Query(sel)
		if err != nil || el == nil {
			continue
		}
		msg, err := el.TextContent()
		if err != nil {
			return true, ""
		}
		return true, strings.TrimSpace(msg)
	}
	return false, ""
}

func collectActions(page browser.Page) []string {
	actions := make([]string, 0, len(actionSelectors))
	for _, a := range actionSelectors {
		el, err := page.Query(a.selector)
		if err != nil || el == nil {
			continue
		}
		visible, err := el.IsVisible()
		if err == nil && visible {
			actions = append(actions, a.action)
		}
	}
	return actions
}

func collectMetadata(page browser.Page, screenType models.ScreenType) map[string]string {
	metadata := make(map[string]string)
	if screenType != models.ScreenDateSelection {
		return metadata
	}
	elements, err := page.QueryAll(".available-date, td.available")
	if err != nil {
		return metadata
	}
	var dates []string
	for _, el := range elements {
		text, err := el.TextContent()
		if err == nil && strings.TrimSpace(text) != "" {
			dates = append(dates, strings.TrimSpace(text))
		}
	}
	if len(dates) > 0 {
		metadata["available_dates"] = strings.Join(dates, ",")
	}
	return metadata
}

// NextAction возвращает символический следующий шаг; пустая строка
// означает "наверх, оператору".
func (s *ScreenService) NextAction(info *models.ScreenInfo) string {
	return nextActionTable[info.ScreenType]
}

func (s *ScreenService) IsSuccessState(info *models.ScreenInfo) bool {
	return info.ScreenType == models.ScreenSuccess
}

func (s *ScreenService) IsErrorState(info *models.ScreenInfo) bool {
	switch info.ScreenType {
	case models.ScreenError, models.ScreenBlocked, models.ScreenMaintenance:
		return true
	}
	return false
}

func (s *ScreenService) LastScreen() *models.ScreenInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastScreen
}

// History — копия окна последних классификаций.
func (s *ScreenService) History() []models.ScreenType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ScreenType, len(s.history))
	copy(out, s.history)
	return out
}
