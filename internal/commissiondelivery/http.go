// Package commissiondelivery manages delivery layer of payment completions.
package commissiondelivery

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/go-petr/wallet-ledger/internal/domain"
	"github.com/go-petr/wallet-ledger/pkg/errorspkg"
	"github.com/go-petr/wallet-ledger/pkg/web"
)

// Service provides service layer interface needed by commission delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package commissiondelivery
type Service interface {
	Handle(ctx context.Context, event domain.PaymentCompleted) (domain.CommissionResult, error)
}

// Handler facilitates commission delivery layer logic.
type Handler struct {
	service Service
}

// NewHandler returns commission handler.
func NewHandler(s Service) Handler {
	return Handler{service: s}
}

type paymentCompletedRequest struct {
	OrderID           string   `json:"order_id" binding:"required,max=128"`
	PayerOwnerID      string   `json:"payer_owner_id" binding:"required"`
	PaidAmount        string   `json:"paid_amount" binding:"required,numeric"`
	PayerDesignations []string `json:"payer_designations"`
}

type response struct {
	Data domain.CommissionResult `json:"data"`
}

// PaymentCompleted handles http request reporting that an order was paid.
func (h *Handler) PaymentCompleted(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req paymentCompletedRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.BindingError(err))

		return
	}

	paid, err := decimal.NewFromString(req.PaidAmount)
	if err != nil {
		gctx.JSON(http.StatusBadRequest, web.Error(domain.ErrInvalidAmount))
		return
	}

	res, err := h.service.Handle(ctx, domain.PaymentCompleted{
		OrderID:           req.OrderID,
		PayerOwnerID:      domain.OwnerID(req.PayerOwnerID),
		PaidAmount:        paid,
		PayerDesignations: req.PayerDesignations,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidOwner), errors.Is(err, domain.ErrMissingReference):
			gctx.JSON(http.StatusBadRequest, web.Error(err))
		case errors.Is(err, domain.ErrConcurrencyConflict):
			gctx.JSON(http.StatusConflict, web.Error(err))
		default:
			gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))
		}

		return
	}

	gctx.JSON(http.StatusOK, response{Data: res})
}
