// Package ledgerdelivery manages delivery layer of wallets.
package ledgerdelivery

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/go-petr/wallet-ledger/internal/domain"
	"github.com/go-petr/wallet-ledger/internal/middleware"
	"github.com/go-petr/wallet-ledger/pkg/errorspkg"
	"github.com/go-petr/wallet-ledger/pkg/moneypkg"
	"github.com/go-petr/wallet-ledger/pkg/web"
)

// LedgerService provides balance mutations needed by wallet delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package ledgerdelivery
type LedgerService interface {
	Credit(ctx context.Context, arg domain.MutationParams) (domain.Entry, error)
	Debit(ctx context.Context, arg domain.MutationParams) (domain.Entry, error)
}

// HistoryService provides reads needed by wallet delivery layer.
type HistoryService interface {
	ListTransactions(ctx context.Context, owner domain.OwnerID, pageID, pageSize int32) ([]domain.Entry, error)
	GetBalance(ctx context.Context, owner domain.OwnerID) (decimal.Decimal, error)
	Reconcile(ctx context.Context, owner domain.OwnerID) (domain.Reconciliation, error)
}

// Handler facilitates wallet delivery layer logic.
type Handler struct {
	ledger  LedgerService
	history HistoryService
}

// NewHandler returns wallet handler.
func NewHandler(ls LedgerService, hs HistoryService) Handler {
	return Handler{
		ledger:  ls,
		history: hs,
	}
}

// RegisterValidators registers the money binding tag used by the mutation requests.
func RegisterValidators() error {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		return v.RegisterValidation("money", moneypkg.ValidMoney)
	}

	return nil
}

// status maps service errors to http status codes.
func status(err error) (int, error) {
	switch {
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidPage),
		errors.Is(err, domain.ErrInvalidOwner),
		errors.Is(err, domain.ErrMissingReference):
		return http.StatusBadRequest, err
	case errors.Is(err, domain.ErrInsufficientBalance):
		return http.StatusUnprocessableEntity, err
	case errors.Is(err, domain.ErrConcurrencyConflict):
		return http.StatusConflict, err
	}

	return http.StatusInternalServerError, errorspkg.ErrInternal
}

func abort(gctx *gin.Context, err error) {
	code, err := status(err)
	gctx.JSON(code, web.Error(err))
}

type wallet struct {
	OwnerID domain.OwnerID  `json:"owner_id"`
	Balance decimal.Decimal `json:"balance"`
}

type walletResponse struct {
	Data wallet `json:"data"`
}

func (h *Handler) renderWallet(gctx *gin.Context, owner domain.OwnerID) {
	balance, err := h.history.GetBalance(gctx.Request.Context(), owner)
	if err != nil {
		abort(gctx, err)
		return
	}

	gctx.JSON(http.StatusOK, walletResponse{Data: wallet{OwnerID: owner, Balance: balance}})
}

// GetWallet handles http request to get the caller balance.
func (h *Handler) GetWallet(gctx *gin.Context) {
	h.renderWallet(gctx, middleware.Owner(gctx))
}

type ownerRequest struct {
	OwnerID string `uri:"owner_id" binding:"required,max=128"`
}

// bindOwner reads the owner of the service desk request from the path.
func bindOwner(gctx *gin.Context) (domain.OwnerID, bool) {
	var req ownerRequest
	if err := gctx.ShouldBindUri(&req); err != nil {
		zerolog.Ctx(gctx.Request.Context()).Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.BindingError(err))

		return "", false
	}

	return domain.OwnerID(req.OwnerID), true
}

// GetOwnerWallet handles service desk http request to get the balance of the owner in the path.
func (h *Handler) GetOwnerWallet(gctx *gin.Context) {
	owner, ok := bindOwner(gctx)
	if !ok {
		return
	}

	h.renderWallet(gctx, owner)
}

type listRequest struct {
	PageID   int32 `form:"page_id" binding:"required,min=1"`
	PageSize int32 `form:"page_size" binding:"required,min=1,max=100"`
}

type dataEntries struct {
	Entries []domain.Entry `json:"entries"`
}

type entriesResponse struct {
	Data dataEntries `json:"data"`
}

func (h *Handler) renderTransactions(gctx *gin.Context, owner domain.OwnerID) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req listRequest
	if err := gctx.ShouldBindQuery(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.BindingError(err))

		return
	}

	entries, err := h.history.ListTransactions(ctx, owner, req.PageID, req.PageSize)
	if err != nil {
		abort(gctx, err)
		return
	}

	gctx.JSON(http.StatusOK, entriesResponse{Data: dataEntries{Entries: entries}})
}

// ListTransactions handles http request to list the caller entries newest first.
func (h *Handler) ListTransactions(gctx *gin.Context) {
	h.renderTransactions(gctx, middleware.Owner(gctx))
}

// ListOwnerTransactions handles service desk http request to list the entries of the owner in the path.
func (h *Handler) ListOwnerTransactions(gctx *gin.Context) {
	owner, ok := bindOwner(gctx)
	if !ok {
		return
	}

	h.renderTransactions(gctx, owner)
}

type reconciliationResponse struct {
	Data domain.Reconciliation `json:"data"`
}

// Reconcile handles http request to compare the caller balance with the entry log.
func (h *Handler) Reconcile(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	res, err := h.history.Reconcile(ctx, middleware.Owner(gctx))
	if err != nil {
		abort(gctx, err)
		return
	}

	gctx.JSON(http.StatusOK, reconciliationResponse{Data: res})
}

type mutationRequest struct {
	OwnerID     string `json:"owner_id" binding:"required"`
	Amount      string `json:"amount" binding:"required,money"`
	Description string `json:"description" binding:"max=255"`
	ReferenceID string `json:"reference_id" binding:"max=128"`
	Category    string `json:"category" binding:"max=64"`
}

type dataEntry struct {
	Entry domain.Entry `json:"entry"`
}

type entryResponse struct {
	Data dataEntry `json:"data"`
}

type mutation func(ctx context.Context, arg domain.MutationParams) (domain.Entry, error)

func (h *Handler) mutate(gctx *gin.Context, apply mutation) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req mutationRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.BindingError(err))

		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		gctx.JSON(http.StatusBadRequest, web.Error(domain.ErrInvalidAmount))
		return
	}

	entry, err := apply(ctx, domain.MutationParams{
		OwnerID:     domain.OwnerID(req.OwnerID),
		Amount:      amount,
		Category:    req.Category,
		Description: req.Description,
		ReferenceID: req.ReferenceID,
	})
	if err != nil {
		abort(gctx, err)
		return
	}

	gctx.JSON(http.StatusOK, entryResponse{Data: dataEntry{Entry: entry}})
}

// Credit handles http request to top up a wallet.
func (h *Handler) Credit(gctx *gin.Context) {
	h.mutate(gctx, h.ledger.Credit)
}

// Debit handles http request to charge a wallet.
func (h *Handler) Debit(gctx *gin.Context) {
	h.mutate(gctx, h.ledger.Debit)
}
