package services

import (
	"net/http"
	"time"
)

// HealthService — сводка живости для /health и мониторинга.
type HealthService struct {
	startedAt time.Time
	registry  *SessionRegistry
	proxies   *ProxyService
	captcha   *CaptchaService
	telegram  *TelegramService
	siteURL   string
	client    *http.Client
}

func NewHealthService(registry *SessionRegistry, proxies *ProxyService, captcha *CaptchaService, telegram *TelegramService, siteURL string) *HealthService {
	return &HealthService{
		startedAt: time.Now(),
		registry:  registry,
		proxies:   proxies,
		captcha:   captcha,
		telegram:  telegram,
		siteURL:   siteURL,
		client:    &http.Client{Timeout: 5 * time.Second},
	}
}

type HealthReport struct {
	Status          string `json:"status"`
	UptimeSeconds   int64  `json:"uptime_seconds"`
	ActiveScans     int    `json:"active_scans"`
	MaxParallel     int    `json:"max_parallel"`
	ProxyCount      int    `json:"proxy_count"`
	CaptchaEnabled  bool   `json:"captcha_enabled"`
	TelegramEnabled bool   `json:"telegram_enabled"`
	SiteReachable   *bool  `json:"site_reachable,omitempty"`
}

func (h *HealthService) Report() HealthReport {
	report := HealthReport{
		Status:          "ok",
		UptimeSeconds:   int64(time.Since(h.startedAt).Seconds()),
		ActiveScans:     h.registry.ActiveCount(),
		MaxParallel:     h.registry.MaxParallel(),
		ProxyCount:      h.proxies.Count(),
		CaptchaEnabled:  h.captcha != nil && h.captcha.Enabled(),
		TelegramEnabled: h.telegram.Enabled(),
	}
	if h.siteURL != "" {
		reachable := h.probeSite()
		report.SiteReachable = &reachable
		if !reachable {
			report.Status = "degraded"
		}
	}
	return report
}

// probeSite проверяет доступность целевого сайта. Cloudflare на HEAD
// отвечает 403 — это тоже признак жизни, важен только факт ответа.
func (h *HealthService) probeSite() bool {
	resp, err := h.client.Head(h.siteURL)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}
