package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"visaradar/internal/services"
)

type ProxyHandler struct {
	Service *services.ProxyService
}

func NewProxyHandler(service *services.ProxyService) *ProxyHandler {
	return &ProxyHandler{Service: service}
}

func (h *ProxyHandler) Refresh(c *gin.Context) {
	count, err := h.Service.Refresh()
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Proxy pool refreshed", "count": count})
}

func (h *ProxyHandler) Rotate(c *gin.Context) {
	countryCode := c.Param("country")

	proxy, err := h.Service.Rotate(countryCode)
	if err != nil {
		if errors.Is(err, services.ErrNoProxy) {
			c.JSON(http.StatusConflict, gin.H{"error": "Proxy pool is empty"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Proxy rotated", "proxy": proxy.Addr()})
}

func (h *ProxyHandler) Reset(c *gin.Context) {
	countryCode := c.Param("country")
	h.Service.Reset(countryCode)
	c.JSON(http.StatusOK, gin.H{"message": "Proxy assignment reset", "country": countryCode})
}

func (h *ProxyHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.Service.Stats())
}
