package service

import (
	"context"
	"fmt"
	"time"

	"gamemarket/internal/domain"
	"gamemarket/internal/repository"

	"github.com/google/uuid"
)

// SaleKind selects which side of a user's sales history to list.
type SaleKind string

const (
	SaleKindPurchases SaleKind = "compras"
	SaleKindSales     SaleKind = "vendas"
)

// SaleDetail is a sale with its line items and payment record.
type SaleDetail struct {
	Sale    *domain.Sale       `json:"sale"`
	Items   []*domain.SaleItem `json:"items"`
	Payment *domain.Payment    `json:"payment"`
}

// OrderService governs the sale lifecycle after checkout.
type OrderService interface {
	UpdateStatus(ctx context.Context, saleID, actorID uuid.UUID, actorRole string, status domain.SaleStatus) (*domain.Sale, error)
	GetByID(ctx context.Context, saleID, actorID uuid.UUID, actorRole string) (*SaleDetail, error)
	ListForUser(ctx context.Context, userID uuid.UUID, kind SaleKind, status *domain.SaleStatus, page, pageSize int) ([]*domain.Sale, int, error)
	Statement(ctx context.Context, buyerID uuid.UUID, status *domain.PaymentStatus, page, pageSize int) ([]*repository.StatementEntry, int, error)
}

type orderService struct {
	saleRepo repository.SaleRepository
}

// NewOrderService creates a new instance of OrderService
func NewOrderService(saleRepo repository.SaleRepository) OrderService {
	return &orderService{saleRepo: saleRepo}
}

// UpdateStatus sets a sale's status. Only the sale's seller or an admin may
// do so, and the target must be one of the named lifecycle states. No
// transition graph is enforced beyond that: a seller may move a delivered
// sale back to cancelled, matching the behavior the platform shipped with.
func (s *orderService) UpdateStatus(ctx context.Context, saleID, actorID uuid.UUID, actorRole string, status domain.SaleStatus) (*domain.Sale, error) {
	if !status.ValidUpdateTarget() {
		return nil, ErrInvalidSaleStatus
	}

	sale, err := s.saleRepo.FindByID(ctx, saleID)
	if err != nil {
		return nil, err
	}

	if sale.SellerID != actorID && actorRole != domain.RoleAdmin {
		return nil, ErrForbidden
	}

	updated, err := s.saleRepo.UpdateStatus(ctx, saleID, status, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to update sale status: %w", err)
	}

	return updated, nil
}

// GetByID retrieves a sale with items and payment. Visible to the buyer,
// the seller, and admins only.
func (s *orderService) GetByID(ctx context.Context, saleID, actorID uuid.UUID, actorRole string) (*SaleDetail, error) {
	sale, err := s.saleRepo.FindByID(ctx, saleID)
	if err != nil {
		return nil, err
	}

	if sale.BuyerID != actorID && sale.SellerID != actorID && actorRole != domain.RoleAdmin {
		return nil, ErrForbidden
	}

	items, err := s.saleRepo.ListItems(ctx, saleID)
	if err != nil {
		return nil, err
	}

	payment, err := s.saleRepo.FindPaymentBySaleID(ctx, saleID)
	if err != nil && err != repository.ErrPaymentNotFound {
		return nil, err
	}

	return &SaleDetail{Sale: sale, Items: items, Payment: payment}, nil
}

// ListForUser lists a user's purchases or sales with pagination
func (s *orderService) ListForUser(ctx context.Context, userID uuid.UUID, kind SaleKind, status *domain.SaleStatus, page, pageSize int) ([]*domain.Sale, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 10
	}

	if kind == SaleKindSales {
		return s.saleRepo.ListBySeller(ctx, userID, status, page, pageSize)
	}
	return s.saleRepo.ListByBuyer(ctx, userID, status, page, pageSize)
}

// Statement lists a buyer's payments with their sales
func (s *orderService) Statement(ctx context.Context, buyerID uuid.UUID, status *domain.PaymentStatus, page, pageSize int) ([]*repository.StatementEntry, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 10
	}

	return s.saleRepo.Statement(ctx, buyerID, status, page, pageSize)
}
