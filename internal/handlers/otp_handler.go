package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"visaradar/internal/models"
	"visaradar/internal/services"
)

type OTPHandler struct {
	Service *services.OTPService
	deliver services.DeliverFunc
}

func NewOTPHandler(service *services.OTPService, deliver services.DeliverFunc) *OTPHandler {
	return &OTPHandler{Service: service, deliver: deliver}
}

type otpRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	Channel    string `json:"channel" binding:"required"`
}

func parseChannel(raw string) (models.OTPChannel, bool) {
	switch models.OTPChannel(raw) {
	case models.ChannelSMS:
		return models.ChannelSMS, true
	case models.ChannelEmail:
		return models.ChannelEmail, true
	}
	return "", false
}

func (h *OTPHandler) Send(c *gin.Context) {
	var req otpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	channel, ok := parseChannel(req.Channel)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown channel: " + req.Channel})
		return
	}

	result, err := h.Service.Issue(req.Identifier, channel, h.deliver)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *OTPHandler) Resend(c *gin.Context) {
	var req otpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	channel, ok := parseChannel(req.Channel)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown channel: " + req.Channel})
		return
	}

	result, err := h.Service.Reissue(req.Identifier, channel, h.deliver)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

type otpVerifyRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	Channel    string `json:"channel" binding:"required"`
	Code       string `json:"code" binding:"required"`
}

func (h *OTPHandler) Verify(c *gin.Context) {
	var req otpVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	channel, ok := parseChannel(req.Channel)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown channel: " + req.Channel})
		return
	}

	result := h.Service.Verify(req.Identifier, channel, req.Code)
	if !result.Verified {
		c.JSON(http.StatusBadRequest, result)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *OTPHandler) Status(c *gin.Context) {
	identifier := c.Query("identifier")
	channel, ok := parseChannel(c.Query("channel"))
	if identifier == "" || !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "identifier and channel query params required"})
		return
	}

	c.JSON(http.StatusOK, h.Service.Status(identifier, channel))
}
