// Notification HTTP handlers.
//
// This file exposes REST endpoints for the notification feed:
//   - GET  /notifications            (feed, optionally unread only)
//   - POST /notifications/{id}/read  (acknowledge one entry)
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/servx/servx-server/internal/domain"
)

// NotificationsResponse wraps the caller's notification feed.
type NotificationsResponse struct {
	Notifications []domain.Notification `json:"notifications"`
}

// ListNotifications godoc
// @ID          listNotifications
// @Summary     List notifications
// @Description Returns the caller's notifications, newest first. Pass unread=true to restrict to unacknowledged entries.
// @Tags        Notifications
// @Produce     json
//
// @Param       X-User-ID  header  string  true   "Caller user ID"  example(user123)
// @Param       unread     query   bool    false  "Unread entries only"  default(false)
//
// @Success     200  {object}  handlers.NotificationsResponse
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /notifications [get]
func (h *Handlers) ListNotifications(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	unreadOnly := strings.EqualFold(c.Query("unread"), "true")

	items, err := h.notifSvc.List(c.Request.Context(), uid, unreadOnly)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, NotificationsResponse{Notifications: items})
}

// MarkNotificationRead godoc
// @ID          markNotificationRead
// @Summary     Acknowledge a notification
// @Description Marks one notification as read. Only the addressee can acknowledge; anyone else sees 404.
// @Tags        Notifications
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "Caller user ID"  example(user123)
// @Param       id         path    string  true  "Notification ID (UUID)"  format(uuid)
//
// @Success     204  {string}  string  "No Content"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Notification not found"
// @Router      /notifications/{id}/read [post]
func (h *Handlers) MarkNotificationRead(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	notificationID := c.Param("id")
	if _, err := uuid.Parse(notificationID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "notification id must be a UUID")
		return
	}

	if err := h.notifSvc.MarkRead(c.Request.Context(), uid, notificationID); err != nil {
		failService(c, err)
		return
	}
	noContent(c)
}
