package service

import (
	"context"
	"time"

	"gamemarket/internal/domain"
	"gamemarket/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PaymentService handles the external payment-confirmation callback.
type PaymentService interface {
	Confirm(ctx context.Context, saleID uuid.UUID, transactionCode string) (*domain.Sale, error)
}

type paymentService struct {
	store    repository.SaleStore
	saleRepo repository.SaleRepository
	logger   *zap.Logger
}

// NewPaymentService creates a new instance of PaymentService
func NewPaymentService(store repository.SaleStore, saleRepo repository.SaleRepository, logger *zap.Logger) PaymentService {
	return &paymentService{
		store:    store,
		saleRepo: saleRepo,
		logger:   logger,
	}
}

// Confirm approves a sale's payment and marks the sale paid in one
// transaction; both writes land or neither does. A payment that is already
// approved fails with ErrAlreadyConfirmed, including when two confirmations
// race: the loser's guarded update matches zero rows.
func (s *paymentService) Confirm(ctx context.Context, saleID uuid.UUID, transactionCode string) (*domain.Sale, error) {
	payment, err := s.saleRepo.FindPaymentBySaleID(ctx, saleID)
	if err != nil {
		return nil, err
	}

	if payment.Status == domain.PaymentStatusApproved {
		return nil, ErrAlreadyConfirmed
	}

	now := time.Now()
	err = s.store.WithTx(ctx, func(tx repository.SaleTx) error {
		approved, err := tx.ApprovePayment(ctx, saleID, transactionCode, now)
		if err != nil {
			return err
		}
		if !approved {
			return ErrAlreadyConfirmed
		}
		return tx.MarkSalePaid(ctx, saleID, now)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("payment confirmed",
		zap.String("sale_id", saleID.String()),
		zap.String("transaction_code", transactionCode),
	)

	return s.saleRepo.FindByID(ctx, saleID)
}
