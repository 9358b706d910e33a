package controllers

import (
	"errors"
	"net/http"

	"github.com/cheongsim/delivery-app/models"
	"github.com/cheongsim/delivery-app/services"
	"github.com/cheongsim/delivery-app/utils"
	"github.com/gin-gonic/gin"
)

type NotificationController struct {
	Dispatcher *services.Dispatcher
}

func NewNotificationController(dispatcher *services.Dispatcher) *NotificationController {
	return &NotificationController{Dispatcher: dispatcher}
}

// GetNotifications -> GET /api/notifications?status=
func (nc *NotificationController) GetNotifications(c *gin.Context) {
	status := c.Query("status")
	switch status {
	case "", models.NotificationPending, models.NotificationSent, models.NotificationDead:
	default:
		utils.RespondError(c, http.StatusBadRequest, errors.New("status must be pending, sent or dead"))
		return
	}

	tasks, err := nc.Dispatcher.Tasks(c.Request.Context(), status)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of notifications", tasks)
}

// RetryNotification -> POST /api/notifications/:id/retry
func (nc *NotificationController) RetryNotification(c *gin.Context) {
	task, err := nc.Dispatcher.Retry(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Notification rescheduled", task)
}

// GetMetrics -> GET /api/notifications/metrics
func (nc *NotificationController) GetMetrics(c *gin.Context) {
	counts, err := nc.Dispatcher.StatusCounts(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Notification metrics", gin.H{
		"counters": nc.Dispatcher.Metrics(),
		"tasks":    counts,
	})
}
