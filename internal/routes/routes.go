package routes

import (
	"github.com/gin-gonic/gin"

	"visaradar/internal/handlers"
	"visaradar/internal/middleware"
)

func SetupRoutes(
	r *gin.Engine,
	jwtSecret string,
	authHandler *handlers.AuthHandler,
	scanHandler *handlers.ScanHandler,
	otpHandler *handlers.OTPHandler,
	webhookHandler *handlers.WebhookHandler,
	proxyHandler *handlers.ProxyHandler,
	healthHandler *handlers.HealthHandler,
	wsHandler *handlers.WSHandler,
) *gin.Engine {

	// ---- public
	r.GET("/health", healthHandler.Health)
	r.POST("/auth/login", authHandler.Login)
	r.POST("/auth/refresh", authHandler.RefreshToken)
	r.POST("/webhook/sms", webhookHandler.ReceiveSMS)
	r.GET("/ws/status", wsHandler.Status)

	// ---- protected
	r.Use(middleware.AuthMiddleware(jwtSecret))

	// SCANS
	scans := r.Group("/scans")
	{
		scans.GET("/", scanHandler.List)
		scans.GET("/stats", scanHandler.Stats)
		scans.GET("/:country", scanHandler.Status)
		scans.POST("/:country/start", scanHandler.Start)
		scans.POST("/:country/stop", scanHandler.Stop)
		scans.POST("/:country/pause", scanHandler.Pause)
		scans.POST("/:country/resume", scanHandler.Resume)
		scans.POST("/:country/reset", scanHandler.Reset)
	}

	// OTP
	otp := r.Group("/otp")
	{
		otp.POST("/send", otpHandler.Send)
		otp.POST("/resend", otpHandler.Resend)
		otp.POST("/verify", otpHandler.Verify)
		otp.GET("/status", otpHandler.Status)
	}

	// INBOUND CODES
	codes := r.Group("/codes")
	{
		codes.GET("/latest", webhookHandler.LatestCode)
		codes.POST("/mark-used", webhookHandler.MarkUsed)
	}

	// PROXIES
	proxies := r.Group("/proxies")
	{
		proxies.POST("/refresh", proxyHandler.Refresh)
		proxies.GET("/stats", proxyHandler.Stats)
		proxies.POST("/:country/rotate", proxyHandler.Rotate)
		proxies.POST("/:country/reset", proxyHandler.Reset)
	}

	// MONITORING
	r.GET("/notifications", healthHandler.Notifications)
	r.GET("/screens/history", healthHandler.ScreenHistory)

	return r
}
