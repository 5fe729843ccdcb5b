package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var (
	ErrCaptchaTimeout    = errors.New("captcha solve timeout")
	ErrCaptchaUnsolvable = errors.New("captcha unsolvable")
)

const (
	captchaSubmitURL   = "http://2captcha.com/in.php"
	captchaResultURL   = "http://2captcha.com/res.php"
	captchaPollEvery   = 5 * time.Second
	captchaSolveWithin = 120 * time.Second
)

// CaptchaService решает Cloudflare Turnstile через внешний сервис.
// Пустой ключ выключает возможность целиком.
type CaptchaService struct {
	apiKey    string
	submitURL string
	resultURL string
	pollEvery time.Duration
	client    *http.Client
}

func NewCaptchaService(apiKey string) *CaptchaService {
	return &CaptchaService{
		apiKey:    apiKey,
		submitURL: captchaSubmitURL,
		resultURL: captchaResultURL,
		pollEvery: captchaPollEvery,
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *CaptchaService) Enabled() bool {
	return s.apiKey != ""
}

type captchaSubmitResponse struct {
	Status  int    `json:"status"`
	Request string `json:"request"`
}

// SolveTurnstile отправляет задачу и опрашивает результат раз в 5 секунд,
// не дольше двух минут. Возвращает токен для cf-turnstile-response.
func (s *CaptchaService) SolveTurnstile(ctx context.Context, siteKey, pageURL string) (string, error) {
	if !s.Enabled() {
		return "", fmt.Errorf("captcha api key not configured")
	}

	taskID, err := s.submit(ctx, siteKey, pageURL)
	if err != nil {
		return "", err
	}
	log.Printf("[captcha][submit] task=%s", taskID)

	deadline := time.Now().Add(captchaSolveWithin)
	ticker := time.NewTicker(s.pollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}
		if time.Now().After(deadline) {
			return "", ErrCaptchaTimeout
		}

		token, done, err := s.poll(ctx, taskID)
		if err != nil {
			return "", err
		}
		if done {
			log.Printf("[captcha][solved] task=%s", taskID)
			return token, nil
		}
	}
}

func (s *CaptchaService) submit(ctx context.Context, siteKey, pageURL string) (string, error) {
	form := url.Values{
		"key":     {s.apiKey},
		"method":  {"turnstile"},
		"sitekey": {siteKey},
		"pageurl": {pageURL},
		"json":    {"1"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.submitURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("captcha submit: %w", err)
	}
	defer resp.Body.Close()

	var body captchaSubmitResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("captcha submit decode: %w", err)
	}
	if body.Status != 1 {
		return "", fmt.Errorf("captcha submit rejected: %s", body.Request)
	}
	return body.Request, nil
}

// poll: второй результат true означает "готово". CAPCHA_NOT_READY — ждать
// дальше, ERROR_CAPTCHA_UNSOLVABLE — терминальный отказ.
func (s *CaptchaService) poll(ctx context.Context, taskID string) (string, bool, error) {
	q := url.Values{
		"key":    {s.apiKey},
		"action": {"get"},
		"id":     {taskID},
		"json":   {"1"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		s.resultURL+"?"+q.Encode(), nil)
	if err != nil {
		return "", false, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", false, fmt.Errorf("captcha poll: %w", err)
	}
	defer resp.Body.Close()

	var body captchaSubmitResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", false, fmt.Errorf("captcha poll decode: %w", err)
	}

	if body.Status == 1 {
		return body.Request, true, nil
	}
	switch body.Request {
	case "CAPCHA_NOT_READY":
		return "", false, nil
	case "ERROR_CAPTCHA_UNSOLVABLE":
		return "", false, ErrCaptchaUnsolvable
	}
	return "", false, fmt.Errorf("captcha poll error: %s", body.Request)
}
