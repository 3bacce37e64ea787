package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/switchboard/internal/models"
	"github.com/zulandar/switchboard/internal/pool"
)

// registerRoutes sets up all front-door routes.
func (s *Server) registerRoutes(router *gin.Engine) {
	// Liveness. Answered straight from the supervisor snapshot, never a
	// worker round-trip, so it responds even with every slot saturated.
	router.GET("/health", s.handleHealth)

	// Static client page, no session side effects.
	router.GET("/", s.handleClient)
	router.GET("/client", s.handleClient)
	router.GET("/capabilities", s.handleCapabilities)

	// Session creation.
	router.POST("/start", s.handleStart)
	router.POST("/twilio/webhook", s.handleWebhook("twilio"))
	router.POST("/telnyx/webhook", s.handleWebhook("telnyx"))
	router.POST("/plivo/webhook", s.handleWebhook("plivo"))
	router.GET("/ws", s.handleWS)

	// Operator APIs.
	router.GET("/api/slots", s.handleSlots)
	router.GET("/api/sessions", s.handleSessions)
	router.GET("/api/events", s.handleSSE)
}

func (s *Server) handleHealth(c *gin.Context) {
	h := s.sup.Health()
	code := http.StatusOK
	if h.Status == pool.StatusUnavailable {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, h)
}

func (s *Server) handleCapabilities(c *gin.Context) {
	configured := []string{}
	for _, name := range []string{"webrtc", "daily", "twilio", "telnyx", "plivo"} {
		if s.transportReady(name) {
			configured = append(configured, name)
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"transport":             s.cfg.Transport,
		"configured_transports": configured,
		"workers":               s.cfg.Pool.Workers,
		"session_timeout":       s.cfg.Pool.SessionTimeoutSec,
		"queue_policy":          s.cfg.Pool.QueuePolicy,
	})
}

func (s *Server) handleSlots(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"slots": s.sup.Slots()})
}

func (s *Server) handleSessions(c *gin.Context) {
	if s.db == nil {
		c.JSON(http.StatusOK, gin.H{"sessions": []models.Session{}})
		return
	}
	var sessions []models.Session
	if err := s.db.Order("started_at DESC").Limit(50).Find(&sessions).Error; err != nil {
		detail(c, http.StatusInternalServerError, "session store query failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}
