package utils

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// Client — SMS-провайдер (Mobizon) для доставки кодов подтверждения.
type Client struct {
	ApiKey string
	Sender string // опционально
	DryRun bool   // dry-run режим
}

type SendSMSResponse struct {
	Code int `json:"code"`
	Data struct {
		MessageID string `json:"messageId"`
	} `json:"data"`
}

func NewClient(apiKey string) *Client {
	return &Client{ApiKey: apiKey}
}

func NewClientWithOptions(apiKey, sender string, dryRun bool) *Client {
	return &Client{ApiKey: apiKey, Sender: sender, DryRun: dryRun}
}

// SendSMS — отправка кода через Mobizon (или имитация в dry-run).
// Номер в логи попадает только в маскированном виде.
func (c *Client) SendSMS(to, code string) (*SendSMSResponse, error) {
	if c.DryRun || c.ApiKey == "" || c.ApiKey == "dry-run" {
		fmt.Printf("[mobizon][dry-run] to=%s sender=%q\n", MaskPhone(to), c.Sender)
		return &SendSMSResponse{Code: 0}, nil
	}

	text := fmt.Sprintf("Dogrulama kodu: %s", code)

	apiURL := "https://api.mobizon.kz/service/message/sendsmsmessage"

	form := url.Values{
		"apiKey":    {c.ApiKey},
		"recipient": {to},
		"text":      {text},
	}
	if c.Sender != "" {
		form.Set("from", c.Sender)
	}

	resp, err := http.PostForm(apiURL, form)
	if err != nil {
		return nil, fmt.Errorf("send SMS request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	fmt.Printf("[mobizon][sent] to=%s status=%d\n", MaskPhone(to), resp.StatusCode)

	var result SendSMSResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if result.Code != 0 {
		return nil, fmt.Errorf("mobizon returned error code: %d", result.Code)
	}
	return &result, nil
}
