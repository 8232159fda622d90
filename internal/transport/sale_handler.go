package transport

import (
	"errors"
	"net/http"
	"strconv"

	"gamemarket/internal/domain"
	"gamemarket/internal/middleware"
	"gamemarket/internal/repository"
	"gamemarket/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CheckoutItemRequest is one purchase line in a checkout request.
type CheckoutItemRequest struct {
	ProductID string `json:"produto_id" validate:"required,uuid"`
	Quantity  int    `json:"quantidade" validate:"required,min=1"`
}

// CheckoutRequest is the body of POST /api/sales.
type CheckoutRequest struct {
	PaymentMethod string                `json:"metodo_pagamento" validate:"required,oneof=pix cartao boleto saldo"`
	Items         []CheckoutItemRequest `json:"itens" validate:"required,min=1,dive"`
}

// CheckoutResponse reports the sales created by a checkout, one per seller.
type CheckoutResponse struct {
	Success    bool           `json:"success"`
	Message    string         `json:"message"`
	Sales      []*domain.Sale `json:"vendas"`
	TotalCents int64          `json:"valor_total"`
}

// UpdateStatusRequest is the body of PUT /api/sales/{id}/status.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// ConfirmPaymentRequest is the body of POST /api/sales/{id}/confirm-payment.
type ConfirmPaymentRequest struct {
	TransactionCode string `json:"codigo_transacao" validate:"required"`
}

// SaleListResponse is a paginated page of sales.
type SaleListResponse struct {
	Sales    []*domain.Sale `json:"sales"`
	Total    int            `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
}

// StatementResponse is a paginated page of a buyer's payment statement.
type StatementResponse struct {
	Entries  []*repository.StatementEntry `json:"entries"`
	Total    int                          `json:"total"`
	Page     int                          `json:"page"`
	PageSize int                          `json:"page_size"`
}

// SaleHandler handles HTTP requests for checkout and the sale lifecycle
type SaleHandler struct {
	checkoutService service.CheckoutService
	orderService    service.OrderService
	paymentService  service.PaymentService
	logger          *zap.Logger
}

// NewSaleHandler creates a new SaleHandler
func NewSaleHandler(
	checkoutService service.CheckoutService,
	orderService service.OrderService,
	paymentService service.PaymentService,
	logger *zap.Logger,
) *SaleHandler {
	return &SaleHandler{
		checkoutService: checkoutService,
		orderService:    orderService,
		paymentService:  paymentService,
		logger:          logger,
	}
}

// RegisterRoutes registers all sale routes. Every route requires
// authentication; rate limiting is applied by the caller.
func (h *SaleHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler, extra ...func(http.Handler) http.Handler) {
	r.Route("/api/sales", func(r chi.Router) {
		r.Use(authMiddleware)
		for _, mw := range extra {
			r.Use(mw)
		}

		r.Post("/", h.Checkout)
		r.Get("/", h.List)
		r.Get("/statement", h.Statement)
		r.Get("/{id}", h.GetByID)
		r.Put("/{id}/status", h.UpdateStatus)
		r.Post("/{id}/confirm-payment", h.ConfirmPayment)
	})
}

// Checkout converts the buyer's purchase lines into per-seller sales
func (h *SaleHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	buyerID, ok := authenticatedUserID(w, r, h.logger)
	if !ok {
		return
	}

	var req CheckoutRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Checkout validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	items := make([]service.CheckoutItem, 0, len(req.Items))
	for _, line := range req.Items {
		productID, err := uuid.Parse(line.ProductID)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid product ID")
			return
		}
		items = append(items, service.CheckoutItem{
			ProductID: productID,
			Quantity:  line.Quantity,
		})
	}

	result, err := h.checkoutService.Checkout(r.Context(), buyerID, domain.PaymentMethod(req.PaymentMethod), items)
	if err != nil {
		h.respondCheckoutError(w, err)
		return
	}

	h.logger.Info("Checkout completed",
		zap.String("buyer_id", buyerID.String()),
		zap.Int("sales", len(result.Sales)),
		zap.Int64("total_cents", result.TotalCents))

	middleware.RespondWithJSON(w, http.StatusCreated, CheckoutResponse{
		Success:    true,
		Message:    "purchase completed successfully",
		Sales:      result.Sales,
		TotalCents: result.TotalCents,
	})
}

func (h *SaleHandler) respondCheckoutError(w http.ResponseWriter, err error) {
	var unavailable *service.ProductUnavailableError
	var stock *service.InsufficientStockError

	switch {
	case errors.Is(err, service.ErrEmptyCart),
		errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrInvalidPaymentMethod),
		errors.Is(err, service.ErrSelfPurchase):
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &unavailable):
		middleware.RespondWithError(w, http.StatusBadRequest, unavailable.Error())
	case errors.As(err, &stock):
		middleware.RespondWithError(w, http.StatusBadRequest, stock.Error())
	default:
		h.logger.Error("Checkout failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to complete purchase")
	}
}

// List returns the authenticated user's sales or purchases
func (h *SaleHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := authenticatedUserID(w, r, h.logger)
	if !ok {
		return
	}

	kind := service.SaleKindPurchases
	if t := r.URL.Query().Get("tipo"); t != "" {
		switch service.SaleKind(t) {
		case service.SaleKindPurchases, service.SaleKindSales:
			kind = service.SaleKind(t)
		default:
			middleware.RespondWithError(w, http.StatusBadRequest, "tipo must be compras or vendas")
			return
		}
	}

	var status *domain.SaleStatus
	if s := r.URL.Query().Get("status"); s != "" {
		st := domain.SaleStatus(s)
		status = &st
	}

	page, pageSize := paginationParams(r)

	sales, total, err := h.orderService.ListForUser(r.Context(), userID, kind, status, page, pageSize)
	if err != nil {
		h.logger.Error("Failed to list sales", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list sales")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, SaleListResponse{
		Sales:    sales,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	})
}

// Statement returns the buyer's payment statement
func (h *SaleHandler) Statement(w http.ResponseWriter, r *http.Request) {
	userID, ok := authenticatedUserID(w, r, h.logger)
	if !ok {
		return
	}

	var status *domain.PaymentStatus
	if s := r.URL.Query().Get("status"); s != "" {
		st := domain.PaymentStatus(s)
		status = &st
	}

	page, pageSize := paginationParams(r)

	entries, total, err := h.orderService.Statement(r.Context(), userID, status, page, pageSize)
	if err != nil {
		h.logger.Error("Failed to load statement", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to load statement")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, StatementResponse{
		Entries:  entries,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	})
}

// GetByID returns a sale with its items and payment record
func (h *SaleHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	userID, ok := authenticatedUserID(w, r, h.logger)
	if !ok {
		return
	}

	saleID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid sale ID")
		return
	}

	role, _ := middleware.GetUserRole(r.Context())

	detail, err := h.orderService.GetByID(r.Context(), saleID, userID, role)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrSaleNotFound):
			middleware.RespondWithError(w, http.StatusNotFound, "sale not found")
		case errors.Is(err, service.ErrForbidden):
			middleware.RespondWithError(w, http.StatusForbidden, "you do not have access to this sale")
		default:
			h.logger.Error("Failed to get sale", zap.Error(err))
			middleware.RespondWithError(w, http.StatusInternalServerError, "failed to get sale")
		}
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, detail)
}

// UpdateStatus sets a sale's lifecycle status
func (h *SaleHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := authenticatedUserID(w, r, h.logger)
	if !ok {
		return
	}

	saleID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid sale ID")
		return
	}

	var req UpdateStatusRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	role, _ := middleware.GetUserRole(r.Context())

	sale, err := h.orderService.UpdateStatus(r.Context(), saleID, userID, role, domain.SaleStatus(req.Status))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidSaleStatus):
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid sale status")
		case errors.Is(err, repository.ErrSaleNotFound):
			middleware.RespondWithError(w, http.StatusNotFound, "sale not found")
		case errors.Is(err, service.ErrForbidden):
			middleware.RespondWithError(w, http.StatusForbidden, "only the seller can update this sale")
		default:
			h.logger.Error("Failed to update sale status", zap.Error(err))
			middleware.RespondWithError(w, http.StatusInternalServerError, "failed to update sale status")
		}
		return
	}

	h.logger.Info("Sale status updated",
		zap.String("sale_id", saleID.String()),
		zap.String("status", string(sale.Status)))
	middleware.RespondWithSuccess(w, http.StatusOK, "sale status updated", sale)
}

// ConfirmPayment marks a sale's payment as approved and the sale as paid
func (h *SaleHandler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	if _, ok := authenticatedUserID(w, r, h.logger); !ok {
		return
	}

	saleID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid sale ID")
		return
	}

	var req ConfirmPaymentRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sale, err := h.paymentService.Confirm(r.Context(), saleID, req.TransactionCode)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrPaymentNotFound):
			middleware.RespondWithError(w, http.StatusNotFound, "payment not found for this sale")
		case errors.Is(err, service.ErrAlreadyConfirmed):
			middleware.RespondWithError(w, http.StatusBadRequest, "payment has already been confirmed")
		default:
			h.logger.Error("Failed to confirm payment", zap.Error(err))
			middleware.RespondWithError(w, http.StatusInternalServerError, "failed to confirm payment")
		}
		return
	}

	h.logger.Info("Payment confirmed", zap.String("sale_id", saleID.String()))
	middleware.RespondWithSuccess(w, http.StatusOK, "payment confirmed", sale)
}

// paginationParams reads page/page_size query parameters, leaving the
// clamping of out-of-range values to the service layer.
func paginationParams(r *http.Request) (page, pageSize int) {
	page = 1
	pageSize = 20
	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		page = p
	}
	if ps, err := strconv.Atoi(r.URL.Query().Get("page_size")); err == nil && ps > 0 {
		pageSize = ps
	}
	return page, pageSize
}
