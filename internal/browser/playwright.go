package browser

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"visaradar/internal/models"
)

const (
	defaultViewportWidth  = 1920
	defaultViewportHeight = 1080
	defaultTimeoutMs      = 30000
	defaultUserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0"
)

type session struct {
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page
}

// Manager держит по одному Firefox-браузеру на страну.
type Manager struct {
	mu          sync.Mutex
	pw          *playwright.Playwright
	sessions    map[string]*session
	headless    bool
	initialized bool
}

func NewManager(headless bool) *Manager {
	return &Manager{
		sessions: make(map[string]*session),
		headless: headless,
	}
}

func (m *Manager) Initialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized {
		return nil
	}

	opts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}
	if err := playwright.Install(opts); err != nil {
		return fmt.Errorf("install playwright: %w", err)
	}
	pw, err := playwright.Run(opts)
	if err != nil {
		return fmt.Errorf("start playwright: %w", err)
	}

	m.pw = pw
	m.initialized = true
	return nil
}

// OpenSession создаёт браузер/контекст/страницу для страны.
// Прокси опционален: при nil работаем напрямую.
func (m *Manager) OpenSession(countryCode string, proxy *models.Proxy) (Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return nil, fmt.Errorf("browser manager not initialized")
	}
	if _, exists := m.sessions[countryCode]; exists {
		return nil, fmt.Errorf("browser session for %q already exists", countryCode)
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(m.headless),
	}
	if proxy != nil {
		launchOpts.Proxy = &playwright.Proxy{
			Server:   fmt.Sprintf("http://%s:%d", proxy.Host, proxy.Port),
			Username: playwright.String(proxy.Username),
			Password: playwright.String(proxy.Password),
		}
	}

	browser, err := m.pw.Firefox.Launch(launchOpts)
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	context, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  defaultViewportWidth,
			Height: defaultViewportHeight,
		},
		Locale:     playwright.String("tr-TR"),
		TimezoneId: playwright.String("Europe/Istanbul"),
		UserAgent:  playwright.String(defaultUserAgent),
	})
	if err != nil {
		browser.Close()
		return nil, fmt.Errorf("create context: %w", err)
	}

	page, err := context.NewPage()
	if err != nil {
		context.Close()
		browser.Close()
		return nil, fmt.Errorf("create page: %w", err)
	}
	page.SetDefaultTimeout(defaultTimeoutMs)

	m.sessions[countryCode] = &session{browser: browser, context: context, page: page}
	return &playwrightPage{page: page}, nil
}

func (m *Manager) GetPage(countryCode string) (Page, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[countryCode]
	if !ok {
		return nil, false
	}
	return &playwrightPage{page: s.page}, true
}

// ClearData чистит cookies и web storage, сохраняя сам браузер.
func (m *Manager) ClearData(countryCode string) error {
	m.mu.Lock()
	s, ok := m.sessions[countryCode]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("browser session for %q not found", countryCode)
	}

	if err := s.context.ClearCookies(); err != nil {
		return fmt.Errorf("clear cookies: %w", err)
	}
	if _, err := s.page.Evaluate("window.localStorage.clear()"); err != nil {
		return fmt.Errorf("clear localStorage: %w", err)
	}
	if _, err := s.page.Evaluate("window.sessionStorage.clear()"); err != nil {
		return fmt.Errorf("clear sessionStorage: %w", err)
	}
	return nil
}

func (m *Manager) CloseSession(countryCode string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[countryCode]
	if !ok {
		return nil
	}
	_ = s.page.Close()
	_ = s.context.Close()
	_ = s.browser.Close()
	delete(m.sessions, countryCode)
	return nil
}

func (m *Manager) CloseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for code, s := range m.sessions {
		_ = s.page.Close()
		_ = s.context.Close()
		_ = s.browser.Close()
		delete(m.sessions, code)
	}
	if m.initialized && m.pw != nil {
		_ = m.pw.Stop()
		m.initialized = false
	}
}

// playwrightPage адаптирует playwright.Page под контракт Page.
type playwrightPage struct {
	page playwright.Page
}

func (p *playwrightPage) URL() string { return p.page.URL() }

func (p *playwrightPage) Title() (string, error) { return p.page.Title() }

func (p *playwrightPage) InnerText(selector string) (string, error) {
	return p.page.InnerText(selector)
}

func (p *playwrightPage) Query(selector string) (Element, error) {
	handle, err := p.page.QuerySelector(selector)
	if err != nil {
		return nil, err
	}
	if handle == nil {
		return nil, nil
	}
	return &playwrightElement{handle: handle}, nil
}

func (p *playwrightPage) QueryAll(selector string) ([]Element, error) {
	handles, err := p.page.QuerySelectorAll(selector)
	if err != nil {
		return nil, err
	}
	out := make([]Element, 0, len(handles))
	for _, h := range handles {
		out = append(out, &playwrightElement{handle: h})
	}
	return out, nil
}

func (p *playwrightPage) Click(selector string) error {
	return p.page.Click(selector)
}

func (p *playwrightPage) Fill(selector, value string) error {
	return p.page.Fill(selector, value)
}

func (p *playwrightPage) SelectOption(selector, label string) error {
	_, err := p.page.SelectOption(selector, playwright.SelectOptionValues{
		Labels: &[]string{label},
	})
	return err
}

func (p *playwrightPage) Evaluate(script string) (any, error) {
	return p.page.Evaluate(script)
}

func (p *playwrightPage) Screenshot() ([]byte, error) {
	return p.page.Screenshot(playwright.PageScreenshotOptions{
		FullPage: playwright.Bool(true),
	})
}

func (p *playwrightPage) Navigate(url string) error {
	waitUntil := playwright.WaitUntilState("networkidle")
	_, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: &waitUntil,
		Timeout:   playwright.Float(float64(60 * time.Second / time.Millisecond)),
	})
	return err
}

func (p *playwrightPage) WaitForLoad() error {
	return p.page.WaitForLoadState()
}

type playwrightElement struct {
	handle playwright.ElementHandle
}

func (e *playwrightElement) TextContent() (string, error) {
	return e.handle.TextContent()
}

func (e *playwrightElement) GetAttribute(name string) (string, error) {
	return e.handle.GetAttribute(name)
}

func (e *playwrightElement) IsVisible() (bool, error) {
	return e.handle.IsVisible()
}

func (e *playwrightElement) Click() error {
	return e.handle.Click()
}
