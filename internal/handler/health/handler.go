package health

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/cleanguard/qc-api/internal/notifier"
)

type Handler struct {
	db  *sqlx.DB
	svc *notifier.Service
}

func NewHandler(db *sqlx.DB, svc *notifier.Service) *Handler {
	return &Handler{
		db:  db,
		svc: svc,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	health := r.Group("/health")
	{
		health.GET("/live", h.LivenessCheck)
		health.GET("/ready", h.ReadinessCheck)
	}
}

func (h *Handler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "UP"})
}

// ReadinessCheck pings the database and verifies every registered delivery
// channel. A channel failing verification degrades readiness so a bad SMTP
// host or revoked FCM credential is visible before users notice.
func (h *Handler) ReadinessCheck(c *gin.Context) {
	if err := h.db.PingContext(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "DOWN",
			"reason": "Database connection failed",
		})
		return
	}

	channels := gin.H{}
	healthy := true
	for _, ch := range h.svc.Channels() {
		if err := ch.Verify(c.Request.Context()); err != nil {
			channels[string(ch.Name())] = err.Error()
			healthy = false
		} else {
			channels[string(ch.Name())] = "UP"
		}
	}

	if !healthy {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "DOWN",
			"reason":   "Channel verification failed",
			"channels": channels,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "UP", "channels": channels})
}
