// Package handler содержит HTTP-обработчики API сервиса комплектования.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/acquisitions/internal/exchange"
	"github.com/mmeshcher/acquisitions/internal/locker"
	"github.com/mmeshcher/acquisitions/internal/middleware"
	"github.com/mmeshcher/acquisitions/internal/model"
	"github.com/mmeshcher/acquisitions/internal/money"
	"github.com/mmeshcher/acquisitions/internal/permission"
	"github.com/mmeshcher/acquisitions/internal/service"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	Precision() int32

	CreateBudget(ctx context.Context, actor permission.Actor, in service.BudgetInput) (*model.Budget, error)
	GetBudget(ctx context.Context, actor permission.Actor, id string) (*model.Budget, error)
	ListBudgets(ctx context.Context, actor permission.Actor, organisationID string) ([]*model.Budget, error)
	SetBudgetActive(ctx context.Context, actor permission.Actor, id string, revision int64, active bool) (*model.Budget, error)
	DeleteBudget(ctx context.Context, actor permission.Actor, id string, revision int64) error

	CreateAccount(ctx context.Context, actor permission.Actor, in service.AccountInput) (*model.Account, error)
	GetAccount(ctx context.Context, actor permission.Actor, id string) (*model.Account, error)
	ListAccounts(ctx context.Context, actor permission.Actor, budgetID string) ([]*model.Account, error)
	UpdateAccount(ctx context.Context, actor permission.Actor, id string, revision int64, in service.AccountUpdate) (*model.Account, error)
	DeleteAccount(ctx context.Context, actor permission.Actor, id string, revision int64) error
	AccountBalance(ctx context.Context, actor permission.Actor, id string) (model.Balance, error)

	CreateVendor(ctx context.Context, actor permission.Actor, in service.VendorInput) (*model.Vendor, error)
	GetVendor(ctx context.Context, actor permission.Actor, id string) (*model.Vendor, error)
	CreateDocument(ctx context.Context, actor permission.Actor, in service.DocumentInput) (*model.Document, error)
	GetDocument(ctx context.Context, actor permission.Actor, id string) (*model.Document, error)

	CreateOrder(ctx context.Context, actor permission.Actor, in service.OrderInput) (*model.Order, error)
	GetOrder(ctx context.Context, actor permission.Actor, id string) (*model.Order, error)
	OrderLines(ctx context.Context, actor permission.Actor, orderID string) ([]*model.OrderLine, error)
	OrderStatus(ctx context.Context, actor permission.Actor, orderID string) (model.OrderStatus, error)
	CancelOrder(ctx context.Context, actor permission.Actor, orderID string) error
	DeleteOrder(ctx context.Context, actor permission.Actor, orderID string, revision int64) error
	ExportRows(ctx context.Context, actor permission.Actor, orderID string) ([]model.ExportRow, error)

	AddOrderLine(ctx context.Context, actor permission.Actor, orderID string, in service.OrderLineInput) (*model.OrderLine, error)
	GetOrderLine(ctx context.Context, actor permission.Actor, id string) (*model.OrderLine, error)
	UpdateOrderLine(ctx context.Context, actor permission.Actor, id string, revision int64, in service.OrderLineUpdate) (*model.OrderLine, error)
	CancelOrderLine(ctx context.Context, actor permission.Actor, id string, revision int64) (*model.OrderLine, error)

	CreateReceipt(ctx context.Context, actor permission.Actor, orderID string, in service.ReceiptInput) (*model.Receipt, error)
	GetReceipt(ctx context.Context, actor permission.Actor, id string) (*model.Receipt, error)
	ReceiptLines(ctx context.Context, actor permission.Actor, receiptID string) ([]*model.ReceiptLine, error)
	CreateReceiptLine(ctx context.Context, actor permission.Actor, receiptID string, in service.ReceiptLineInput) (*model.ReceiptLine, error)
	GetReceiptLine(ctx context.Context, actor permission.Actor, id string) (*model.ReceiptLine, error)
	ReceiptLineTotal(ctx context.Context, actor permission.Actor, id string) (money.Money, error)
}

// Handler реализует HTTP-обработчики API сервиса комплектования.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
	}
}

type errorResponse struct {
	Error    string `json:"error"`
	Category string `json:"category,omitempty"`
	Field    string `json:"field,omitempty"`
}

// statusFor выбирает код ответа по виду ошибки.
func statusFor(err error) int {
	var denied *model.PermissionDeniedError
	var limited *exchange.RateLimitedError

	switch {
	case errors.Is(err, model.ErrNotFound), errors.Is(err, exchange.ErrUnknownCurrency):
		return http.StatusNotFound
	case errors.As(err, &denied):
		if denied.Anonymous {
			return http.StatusUnauthorized
		}
		return http.StatusForbidden
	case errors.As(err, &limited), errors.Is(err, locker.ErrNotObtained):
		return http.StatusServiceUnavailable
	}

	switch model.CategoryOf(err) {
	case model.CategoryValidation:
		return http.StatusUnprocessableEntity
	case model.CategoryInsufficientFunds:
		return http.StatusPaymentRequired
	case model.CategoryIllegalTransition:
		return http.StatusConflict
	case model.CategoryConflict:
		return http.StatusPreconditionFailed
	}
	return http.StatusInternalServerError
}

func (h *Handler) writeError(w http.ResponseWriter, err error, msg string, fields ...zap.Field) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error(msg, append(fields, zap.Error(err))...)
		http.Error(w, http.StatusText(status), status)
		return
	}

	var limited *exchange.RateLimitedError
	if errors.As(err, &limited) && limited.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(int(limited.RetryAfter/time.Second)))
	}

	resp := errorResponse{Error: err.Error(), Category: model.CategoryOf(err)}
	var verr *model.ValidationError
	if errors.As(err, &verr) {
		resp.Field = verr.Field
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeRecord отвечает записью и выставляет её ревизию в ETag.
func writeRecord(w http.ResponseWriter, status int, revision int64, v any) {
	w.Header().Set("ETag", strconv.FormatInt(revision, 10))
	writeJSON(w, status, v)
}

// decode разбирает тело запроса в dst. При ошибке отвечает 400 и возвращает false.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return false
	}
	return true
}

// revisionFrom читает ожидаемую ревизию записи из заголовка If-Match.
// Без корректной ревизии отвечает 428 и возвращает false.
func revisionFrom(w http.ResponseWriter, r *http.Request) (int64, bool) {
	rev, err := strconv.ParseInt(strings.Trim(r.Header.Get("If-Match"), `"`), 10, 64)
	if err != nil || rev <= 0 {
		http.Error(w, http.StatusText(http.StatusPreconditionRequired), http.StatusPreconditionRequired)
		return 0, false
	}
	return rev, true
}

func actorOf(r *http.Request) permission.Actor {
	return middleware.GetActorFromContext(r.Context())
}

func idParam(r *http.Request) string {
	return chi.URLParam(r, "id")
}
