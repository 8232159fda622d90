package service

import (
	"context"
	"fmt"
	"time"

	"gamemarket/internal/domain"
	"gamemarket/internal/repository"

	"github.com/google/uuid"
)

// NotificationService creates and serves user notifications. It also
// implements Notifier for the checkout engine.
type NotificationService interface {
	Notifier
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*domain.Notification, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID) error
}

type notificationService struct {
	notificationRepo repository.NotificationRepository
}

// NewNotificationService creates a new instance of NotificationService
func NewNotificationService(notificationRepo repository.NotificationRepository) NotificationService {
	return &notificationService{notificationRepo: notificationRepo}
}

// SalesCreated records one notification per seller for a batch of freshly
// committed sales.
func (s *notificationService) SalesCreated(ctx context.Context, sales []*domain.Sale) error {
	if len(sales) == 0 {
		return nil
	}

	now := time.Now()
	notifications := make([]*domain.Notification, 0, len(sales))
	for _, sale := range sales {
		notifications = append(notifications, &domain.Notification{
			ID:     uuid.New(),
			UserID: sale.SellerID,
			Title:  "Nova venda",
			Message: fmt.Sprintf("Você recebeu uma nova venda no valor de R$ %d,%02d",
				sale.TotalCents/100, sale.TotalCents%100),
			Type:      "sale",
			CreatedAt: now,
		})
	}

	return s.notificationRepo.CreateBatch(ctx, notifications)
}

// ListForUser retrieves a user's notifications
func (s *notificationService) ListForUser(ctx context.Context, userID uuid.UUID) ([]*domain.Notification, error) {
	return s.notificationRepo.ListByUser(ctx, userID)
}

// MarkRead flags a notification as read
func (s *notificationService) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	return s.notificationRepo.MarkRead(ctx, id, userID)
}
