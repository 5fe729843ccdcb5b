package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"visaradar/internal/services"
)

// WebhookHandler принимает входящие SMS от шлюза. Эндпоинт публичный,
// тело без кода просто игнорируется.
type WebhookHandler struct {
	Inbox *services.SMSInboxService
}

func NewWebhookHandler(inbox *services.SMSInboxService) *WebhookHandler {
	return &WebhookHandler{Inbox: inbox}
}

type inboundSMSRequest struct {
	From    string `json:"from"`
	Message string `json:"message" binding:"required"`
}

func (h *WebhookHandler) ReceiveSMS(c *gin.Context) {
	var req inboundSMSRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	code := h.Inbox.Push(req.From, req.Message)
	if code == "" {
		c.JSON(http.StatusOK, gin.H{"message": "No verification code found", "stored": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Code stored", "stored": true})
}

func (h *WebhookHandler) LatestCode(c *gin.Context) {
	code, ok := h.Inbox.Latest()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "No unused code available"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"code": code})
}

type markUsedRequest struct {
	Code string `json:"code" binding:"required"`
}

func (h *WebhookHandler) MarkUsed(c *gin.Context) {
	var req markUsedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	h.Inbox.MarkUsed(req.Code)
	c.JSON(http.StatusOK, gin.H{"message": "Code marked as used"})
}
