package notification

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/cleanguard/qc-api/internal/handler"
	"github.com/cleanguard/qc-api/internal/model"
	"github.com/cleanguard/qc-api/internal/notifier"
	"github.com/cleanguard/qc-api/pkg/logger"
)

// Handler exposes the notification admin surface: inspecting and pruning
// registered channels, listing the event catalog, and hand-firing a
// dispatch for operational testing.
type Handler struct {
	svc        *notifier.Service
	dispatcher *notifier.Dispatcher
	logger     *logger.Logger
}

func NewHandler(svc *notifier.Service, dispatcher *notifier.Dispatcher, log *logger.Logger) *Handler {
	return &Handler{
		svc:        svc,
		dispatcher: dispatcher,
		logger:     log,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	notifications := r.Group("/notifications")
	{
		notifications.GET("/channels", h.ListChannels)
		notifications.DELETE("/channels/:name", h.RemoveChannel)
		notifications.GET("/events", h.ListEvents)
		notifications.POST("/dispatch", h.Dispatch)
	}
}

func (h *Handler) ListChannels(c *gin.Context) {
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"channels": h.svc.RegisteredChannels(),
	}))
}

// RemoveChannel unregisters a delivery channel at runtime. Events keep
// dispatching on their remaining channels; the removed one reports
// "channel not registered" until the process restarts.
func (h *Handler) RemoveChannel(c *gin.Context) {
	name := model.ChannelName(c.Param("name"))
	if !h.svc.HasChannel(name) {
		c.JSON(http.StatusNotFound, handler.NewErrorResponse("channel not registered"))
		return
	}
	h.svc.RemoveChannel(name)
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"removed": name}))
}

func (h *Handler) ListEvents(c *gin.Context) {
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"events": notifier.Events(),
	}))
}

type dispatchRequest struct {
	Event      model.EventKey         `json:"event" binding:"required"`
	Recipients []model.Recipient      `json:"recipients" binding:"required,min=1,dive"`
	Data       map[string]interface{} `json:"data"`
}

var validate = validator.New()

func validateRecipients(recipients []model.Recipient) error {
	for i, rec := range recipients {
		if err := validate.Var(rec.Email, "omitempty,email"); err != nil {
			return fmt.Errorf("recipient %d has an invalid email address", i)
		}
	}
	return nil
}

// Dispatch enqueues a notification without waiting for delivery. 202 means
// queued, not delivered; outcomes show up in logs and metrics.
func (h *Handler) Dispatch(c *gin.Context) {
	var req dispatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	if _, err := notifier.LookupEvent(req.Event); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	if err := validateRecipients(req.Recipients); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	queued := h.dispatcher.Dispatch(req.Event, model.NotificationPayload{
		Recipients: req.Recipients,
		Data:       req.Data,
	})
	if !queued {
		c.JSON(http.StatusServiceUnavailable, handler.NewErrorResponse("dispatch queue full"))
		return
	}

	c.JSON(http.StatusAccepted, handler.NewSuccessResponse(gin.H{"queued": true}))
}
