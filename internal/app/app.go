package app

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"visaradar/internal/browser"
	"visaradar/internal/config"
	"visaradar/internal/handlers"
	"visaradar/internal/models"
	"visaradar/internal/realtime"
	"visaradar/internal/routes"
	"visaradar/internal/services"
	"visaradar/internal/utils"
)

func Run() {
	cfg, err := config.LoadConfig(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatal("Ошибка загрузки конфигурации: ", err)
	}

	// === Browser ===
	browsers := browser.NewManager(cfg.Scan.Headless)
	if err := browsers.Initialize(); err != nil {
		log.Fatal("Ошибка инициализации браузера: ", err)
	}
	defer browsers.CloseAll()

	// === Services ===
	emailService := services.NewEmailService(
		cfg.Email.SMTPHost,
		cfg.Email.SMTPPort,
		cfg.Email.SMTPUser,
		cfg.Email.SMTPPassword,
		cfg.Email.FromEmail,
	)

	telegramService, err := services.NewTelegramService(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
	if err != nil {
		log.Fatal("Ошибка инициализации Telegram: ", err)
	}

	hub := realtime.NewStatusHub()
	notifier := services.NewNotifierService(telegramService, emailService, cfg.Account.Email, hub)

	registry := services.NewSessionRegistry(cfg.Scan.MaxParallel)
	proxyService := services.NewProxyService(cfg.Proxy.APIURL, cfg.CountryCodes())
	if cfg.Proxy.APIURL != "" {
		if _, err := proxyService.Refresh(); err != nil {
			log.Printf("[app] proxy refresh failed, continuing without pool: %v", err)
		}
	}

	otpService := services.NewOTPService(cfg.OTP.CodeLength, cfg.OTP.TTL, cfg.OTP.MaxAttempts)

	// SMS провайдер (Mobizon) для доставки кодов
	smsClient := utils.NewClientWithOptions(cfg.SMS.APIKey, cfg.SMS.SenderID, cfg.SMS.DryRun)
	deliver := func(identifier, code string, channel models.OTPChannel) error {
		switch channel {
		case models.ChannelSMS:
			_, err := smsClient.SendSMS(identifier, code)
			return err
		case models.ChannelEmail:
			return emailService.SendVerificationCode(identifier, code)
		}
		return fmt.Errorf("unsupported channel: %s", channel)
	}

	smsInbox := services.NewSMSInboxService()
	mailbox := services.NewMailboxService(nil, cfg.Email.AllowedSenders)

	screenService := services.NewScreenService()
	availability := services.NewAvailabilityService(cfg.Preferences.Days, cfg.Preferences.Dates)
	captchaService := services.NewCaptchaService(cfg.Captcha.APIKey)
	loginService := services.NewLoginService(
		screenService, captchaService, smsInbox, mailbox, registry,
		cfg.Account.Email, cfg.Account.Password,
		cfg.Scan.OTPTimeout, cfg.Scan.OTPPoll,
	)

	scanner := services.NewScannerService(
		cfg, registry, proxyService, browsers,
		screenService, availability, loginService, notifier, hub,
	)
	defer scanner.StopAll()

	var probeURL string
	if len(cfg.Countries) > 0 {
		probeURL = cfg.Countries[0].URL
	}
	healthService := services.NewHealthService(registry, proxyService, captchaService, telegramService, probeURL)

	// === Handlers ===
	authHandler := handlers.NewAuthHandler(cfg.Account.Email, cfg.Account.Password, cfg.Server.JWTSecret)
	scanHandler := handlers.NewScanHandler(scanner, registry)
	otpHandler := handlers.NewOTPHandler(otpService, deliver)
	webhookHandler := handlers.NewWebhookHandler(smsInbox)
	proxyHandler := handlers.NewProxyHandler(proxyService)
	healthHandler := handlers.NewHealthHandler(healthService, notifier, screenService)
	wsHandler := handlers.NewWSHandler(hub)

	// === Gin ===
	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	routes.SetupRoutes(
		router,
		cfg.Server.JWTSecret,
		authHandler,
		scanHandler,
		otpHandler,
		webhookHandler,
		proxyHandler,
		healthHandler,
		wsHandler,
	)

	// корректное выключение по сигналу: останавливаем раннеры и браузеры
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Println("[app] shutdown signal received")
		scanner.StopAll()
		browsers.CloseAll()
		os.Exit(0)
	}()

	// === Run ===
	listenAddr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("Сервер запущен на %s", listenAddr)
	if err := router.Run(listenAddr); err != nil {
		log.Fatal("Ошибка запуска сервера: ", err)
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
