package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"visaradar/internal/services"
)

type HealthHandler struct {
	HealthSvc *services.HealthService
	Notifier  *services.NotifierService
	Screens   *services.ScreenService
}

func NewHealthHandler(health *services.HealthService, notifier *services.NotifierService, screens *services.ScreenService) *HealthHandler {
	return &HealthHandler{HealthSvc: health, Notifier: notifier, Screens: screens}
}

func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, h.HealthSvc.Report())
}

func (h *HealthHandler) Notifications(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"notifications": h.Notifier.History()})
}

func (h *HealthHandler) ScreenHistory(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"history": h.Screens.History(),
		"last":    h.Screens.LastScreen(),
	})
}
