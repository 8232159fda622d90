package transport

import (
	"errors"
	"net/http"

	"gamemarket/internal/middleware"
	"gamemarket/internal/repository"
	"gamemarket/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// NotificationHandler handles HTTP requests for user notifications
type NotificationHandler struct {
	notificationService service.NotificationService
	logger              *zap.Logger
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(notificationService service.NotificationService, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
		logger:              logger,
	}
}

// RegisterRoutes registers all notification routes
func (h *NotificationHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/notifications", func(r chi.Router) {
		r.Use(authMiddleware)

		r.Get("/", h.List)
		r.Put("/{id}/read", h.MarkRead)
	})
}

// List returns the authenticated user's notifications, newest first
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := authenticatedUserID(w, r, h.logger)
	if !ok {
		return
	}

	notifications, err := h.notificationService.ListForUser(r.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to list notifications", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list notifications")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, notifications)
}

// MarkRead marks one of the user's notifications as read
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := authenticatedUserID(w, r, h.logger)
	if !ok {
		return
	}

	notificationID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid notification ID")
		return
	}

	if err := h.notificationService.MarkRead(r.Context(), notificationID, userID); err != nil {
		if errors.Is(err, repository.ErrNotificationNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "notification not found")
			return
		}
		h.logger.Error("Failed to mark notification read", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to mark notification read")
		return
	}

	middleware.RespondWithSuccess(w, http.StatusOK, "notification marked as read", nil)
}
