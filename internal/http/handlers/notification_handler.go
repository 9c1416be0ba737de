// Notification HTTP handlers.
//
// Endpoints:
//   - GET /notifications             (paginated inbox, newest first)
//   - PUT /notifications/{id}/read   (mark one as read)
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/roomly/go-rental-backend/internal/domain"
	"github.com/roomly/go-rental-backend/internal/query"
	"github.com/roomly/go-rental-backend/internal/services"
)

// ListNotificationsResponse wraps a page of notifications and pagination
// metadata.
type ListNotificationsResponse struct {
	Notifications []domain.Notification `json:"notifications"`
	Pagination    query.Result          `json:"pagination"`
}

// ListNotifications returns a page of the caller's notifications, newest
// first. Pass unread=true to restrict the page to unread entries.
func (h *Handlers) ListNotifications(c *gin.Context) {
	unreadOnly := strings.EqualFold(c.Query("unread"), "true") || c.Query("unread") == "1"

	items, meta, err := h.notifSvc.ListPage(c.Request.Context(), userID(c), unreadOnly, pageFromQuery(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ListNotificationsResponse{Notifications: items, Pagination: meta})
}

// MarkNotificationRead flags a notification owned by the caller as read.
func (h *Handlers) MarkNotificationRead(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "notification id must be a UUID")
		return
	}

	if err := h.notifSvc.MarkRead(c.Request.Context(), userID(c), id); err != nil {
		switch {
		case errors.Is(err, services.ErrNotificationNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "notification not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	noContent(c)
}
