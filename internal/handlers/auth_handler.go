package handlers

import (
	"crypto/subtle"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"visaradar/internal/middleware"
	"visaradar/internal/utils"
)

const (
	accessTokenTTL  = 24 * time.Hour
	refreshTokenTTL = 7 * 24 * time.Hour
)

// AuthHandler выдаёт операторские токены. Единственная учётка оператора
// приходит из конфигурации; хранилища пользователей нет.
type AuthHandler struct {
	mu            sync.Mutex
	operatorEmail string
	operatorPass  string
	jwtSecret     string
	refreshTokens map[string]time.Time
}

func NewAuthHandler(operatorEmail, operatorPass, jwtSecret string) *AuthHandler {
	return &AuthHandler{
		operatorEmail: operatorEmail,
		operatorPass:  operatorPass,
		jwtSecret:     jwtSecret,
		refreshTokens: make(map[string]time.Time),
	}
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	if h.operatorEmail == "" || h.operatorPass == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Operator account is not configured"})
		return
	}

	emailOK := subtle.ConstantTimeCompare([]byte(req.Email), []byte(h.operatorEmail)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(req.Password), []byte(h.operatorPass)) == 1
	if !emailOK || !passOK {
		log.Printf("[auth][login] rejected for %s", utils.MaskEmail(req.Email))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	access, err := h.issueAccessToken()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue token"})
		return
	}
	refresh, err := utils.NewRefreshToken(0)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue token"})
		return
	}

	h.mu.Lock()
	h.refreshTokens[refresh] = time.Now().Add(refreshTokenTTL)
	h.mu.Unlock()

	log.Printf("[auth][login] ok for %s", utils.MaskEmail(req.Email))
	c.JSON(http.StatusOK, gin.H{
		"access_token":  access,
		"refresh_token": refresh,
		"expires_in":    int(accessTokenTTL.Seconds()),
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// RefreshToken меняет живой refresh-токен на новую пару. Старый токен
// инвалидируется независимо от исхода.
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	h.mu.Lock()
	expires, ok := h.refreshTokens[req.RefreshToken]
	delete(h.refreshTokens, req.RefreshToken)
	h.mu.Unlock()

	if !ok || time.Now().After(expires) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired refresh token"})
		return
	}

	access, err := h.issueAccessToken()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue token"})
		return
	}
	refresh, err := utils.NewRefreshToken(0)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue token"})
		return
	}

	h.mu.Lock()
	h.refreshTokens[refresh] = time.Now().Add(refreshTokenTTL)
	h.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{
		"access_token":  access,
		"refresh_token": refresh,
		"expires_in":    int(accessTokenTTL.Seconds()),
	})
}

func (h *AuthHandler) issueAccessToken() (string, error) {
	now := time.Now()
	claims := middleware.Claims{
		Subject: "operator",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(accessTokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.jwtSecret))
}
