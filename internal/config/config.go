package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"visaradar/internal/models"
)

type ServerConfig struct {
	Port      int    `yaml:"port"`
	JWTSecret string `yaml:"jwt_secret"`
}

type ScanConfig struct {
	MaxParallel   int           `yaml:"max_parallel"`
	RoundsPerScan int           `yaml:"rounds_per_scan"`
	CheckInterval time.Duration `yaml:"check_interval"`
	OTPTimeout    time.Duration `yaml:"otp_timeout"`
	OTPPoll       time.Duration `yaml:"otp_poll"`
	Headless      bool          `yaml:"headless"`
}

type OTPConfig struct {
	CodeLength  int           `yaml:"code_length"`
	TTL         time.Duration `yaml:"ttl"`
	MaxAttempts int           `yaml:"max_attempts"`
}

type AccountConfig struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Phone    string `yaml:"phone"`
}

type EmailConfig struct {
	SMTPHost       string   `yaml:"smtp_host"`
	SMTPPort       int      `yaml:"smtp_port"`
	SMTPUser       string   `yaml:"smtp_user"`
	SMTPPassword   string   `yaml:"smtp_password"`
	FromEmail      string   `yaml:"from_email"`
	AllowedSenders []string `yaml:"allowed_senders"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   int64  `yaml:"chat_id"`
}

type ProxyConfig struct {
	APIURL string `yaml:"api_url"`
}

type SMSProviderConfig struct {
	APIKey   string `yaml:"api_key"`
	SenderID string `yaml:"sender_id"`
	DryRun   bool   `yaml:"dry_run"`
}

type CaptchaConfig struct {
	APIKey string `yaml:"api_key"`
}

type PreferencesConfig struct {
	Dates []string `yaml:"dates"`
	Days  []string `yaml:"days"`
}

type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Scan        ScanConfig        `yaml:"scan"`
	OTP         OTPConfig         `yaml:"otp"`
	Account     AccountConfig     `yaml:"account"`
	Email       EmailConfig       `yaml:"email"`
	Telegram    TelegramConfig    `yaml:"telegram"`
	Proxy       ProxyConfig       `yaml:"proxy"`
	SMS         SMSProviderConfig `yaml:"sms"`
	Captcha     CaptchaConfig     `yaml:"captcha"`
	Preferences PreferencesConfig `yaml:"preferences"`
	Countries   []models.Country  `yaml:"countries"`
}

const DefaultConfigPath = "config/config.yaml"

// DefaultCountries — список стран по умолчанию, порядок фиксирован:
// от него зависит детерминированное стартовое распределение прокси.
func DefaultCountries() []models.Country {
	base := "https://visa.vfsglobal.com/tur/tr"
	codes := []struct{ code, name string }{
		{"fra", "Fransa"},
		{"dnk", "Danimarka"},
		{"hrv", "Hirvatistan"},
		{"cze", "Cek Cumhuriyeti"},
		{"nld", "Hollanda"},
		{"lux", "Luksemburg"},
		{"bel", "Belcika"},
		{"swe", "Isvec"},
		{"ltu", "Litvanya"},
		{"fin", "Finlandiya"},
		{"bgr", "Bulgaristan"},
	}
	out := make([]models.Country, 0, len(codes))
	for _, c := range codes {
		out = append(out, models.Country{
			Code: c.code,
			Name: c.name,
			URL:  fmt.Sprintf("%s/%s/login", base, c.code),
		})
	}
	return out
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: 8000},
		Scan: ScanConfig{
			MaxParallel:   3,
			RoundsPerScan: 5,
			CheckInterval: 30 * time.Second,
			OTPTimeout:    120 * time.Second,
			OTPPoll:       3 * time.Second,
			Headless:      true,
		},
		OTP: OTPConfig{
			CodeLength:  6,
			TTL:         5 * time.Minute,
			MaxAttempts: 3,
		},
		Email: EmailConfig{
			SMTPHost:       "smtp.gmail.com",
			SMTPPort:       587,
			AllowedSenders: []string{"vfs", "vfsglobal", "visa", "appointment"},
		},
		Countries: DefaultCountries(),
	}
}

// LoadConfig читает yaml-конфиг; отсутствие файла — не ошибка,
// возвращаются значения по умолчанию. Секреты не зашиваются в код.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigPath
	}

	cfg := Default()

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("[config][load] %s not found, using defaults", path)
			return cfg, nil
		}
		return nil, fmt.Errorf("open config %s: %w", path, err)
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	def := Default()
	if cfg.Server.Port == 0 {
		cfg.Server.Port = def.Server.Port
	}
	if cfg.Scan.MaxParallel <= 0 {
		cfg.Scan.MaxParallel = def.Scan.MaxParallel
	}
	if cfg.Scan.RoundsPerScan <= 0 {
		cfg.Scan.RoundsPerScan = def.Scan.RoundsPerScan
	}
	if cfg.Scan.CheckInterval <= 0 {
		cfg.Scan.CheckInterval = def.Scan.CheckInterval
	}
	if cfg.Scan.OTPTimeout <= 0 {
		cfg.Scan.OTPTimeout = def.Scan.OTPTimeout
	}
	if cfg.Scan.OTPPoll <= 0 {
		cfg.Scan.OTPPoll = def.Scan.OTPPoll
	}
	if cfg.OTP.CodeLength <= 0 {
		cfg.OTP.CodeLength = def.OTP.CodeLength
	}
	if cfg.OTP.TTL <= 0 {
		cfg.OTP.TTL = def.OTP.TTL
	}
	if cfg.OTP.MaxAttempts <= 0 {
		cfg.OTP.MaxAttempts = def.OTP.MaxAttempts
	}
	if len(cfg.Email.AllowedSenders) == 0 {
		cfg.Email.AllowedSenders = def.Email.AllowedSenders
	}
	if len(cfg.Countries) == 0 {
		cfg.Countries = def.Countries
	}
}

// CountryCodes — фиксированный порядок кодов для детерминированной ротации.
func (c *Config) CountryCodes() []string {
	out := make([]string, 0, len(c.Countries))
	for _, country := range c.Countries {
		out = append(out, country.Code)
	}
	return out
}

func (c *Config) CountryByCode(code string) (models.Country, bool) {
	for _, country := range c.Countries {
		if country.Code == code {
			return country, true
		}
	}
	return models.Country{}, false
}
