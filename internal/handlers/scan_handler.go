package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"visaradar/internal/services"
)

type ScanHandler struct {
	Scanner  *services.ScannerService
	Registry *services.SessionRegistry
}

func NewScanHandler(scanner *services.ScannerService, registry *services.SessionRegistry) *ScanHandler {
	return &ScanHandler{Scanner: scanner, Registry: registry}
}

func (h *ScanHandler) Start(c *gin.Context) {
	countryCode := c.Param("country")

	if err := h.Scanner.Start(countryCode); err != nil {
		switch {
		case errors.Is(err, services.ErrScanLimitReached):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, services.ErrUnknownCountry):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Scan started", "country": countryCode})
}

func (h *ScanHandler) Stop(c *gin.Context) {
	countryCode := c.Param("country")

	if err := h.Scanner.Stop(countryCode); err != nil {
		if errors.Is(err, services.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "No running scan for " + countryCode})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Scan stopped", "country": countryCode})
}

func (h *ScanHandler) Pause(c *gin.Context) {
	countryCode := c.Param("country")

	if err := h.Scanner.Pause(countryCode); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No running scan for " + countryCode})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Scan paused", "country": countryCode})
}

func (h *ScanHandler) Resume(c *gin.Context) {
	countryCode := c.Param("country")

	if err := h.Scanner.Resume(countryCode); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No running scan for " + countryCode})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Scan resumed", "country": countryCode})
}

func (h *ScanHandler) Reset(c *gin.Context) {
	countryCode := c.Param("country")

	// активный раннер сперва останавливаем, потом чистим запись
	_ = h.Scanner.Stop(countryCode)
	h.Registry.ResetSession(countryCode)

	c.JSON(http.StatusOK, gin.H{"message": "Session reset", "country": countryCode})
}

func (h *ScanHandler) Status(c *gin.Context) {
	countryCode := c.Param("country")

	session, ok := h.Registry.Session(countryCode)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "No session for " + countryCode})
		return
	}

	c.JSON(http.StatusOK, session)
}

func (h *ScanHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"sessions": h.Registry.Snapshot(),
	})
}

func (h *ScanHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.Registry.Stats())
}
