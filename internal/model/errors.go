package model

import (
	"errors"
	"fmt"
)

// ErrNotFound возвращается, если запись не найдена.
var ErrNotFound = errors.New("record not found")

// Категории ошибок, по которым граничный слой выбирает код ответа.
const (
	CategoryValidation        = "validation"
	CategoryInsufficientFunds = "insufficient_funds"
	CategoryIllegalTransition = "illegal_transition"
	CategoryConflict          = "conflict"
	CategoryPermissionDenied  = "permission_denied"
)

// ValidationError сообщает о некорректных входных данных.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Category() string { return CategoryValidation }

// NewValidationError создаёт ошибку валидации поля.
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// InsufficientFundsError возвращается, если запись привела бы доступный остаток счёта в минус.
type InsufficientFundsError struct {
	AccountID string
	Available string
	Requested string
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds on account %s: available %s, requested %s",
		e.AccountID, e.Available, e.Requested)
}

func (e *InsufficientFundsError) Category() string { return CategoryInsufficientFunds }

// IllegalTransitionError сообщает о переходе, запрещённом конечным автоматом.
type IllegalTransitionError struct {
	Kind   Kind
	ID     string
	From   string
	To     string
	Reason string
}

func (e *IllegalTransitionError) Error() string {
	msg := fmt.Sprintf("illegal transition of %s %s from %s to %s", e.Kind, e.ID, e.From, e.To)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *IllegalTransitionError) Category() string { return CategoryIllegalTransition }

// ConflictError возвращается, если запись изменилась с момента чтения. Повтор остаётся на вызывающей стороне.
type ConflictError struct {
	Kind     Kind
	ID       string
	Expected int64
	Actual   int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("revision conflict on %s %s: expected %d, actual %d", e.Kind, e.ID, e.Expected, e.Actual)
}

func (e *ConflictError) Category() string { return CategoryConflict }

// PermissionDeniedError возвращается, если у пользователя нет права на действие.
type PermissionDeniedError struct {
	Action    string
	Kind      Kind
	ID        string
	Anonymous bool
}

func (e *PermissionDeniedError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("permission denied: %s %s", e.Action, e.Kind)
	}
	return fmt.Sprintf("permission denied: %s %s %s", e.Action, e.Kind, e.ID)
}

func (e *PermissionDeniedError) Category() string { return CategoryPermissionDenied }

// Categorized реализуют все типизированные ошибки домена.
type Categorized interface {
	error
	Category() string
}

// CategoryOf возвращает категорию ошибки или пустую строку для прочих ошибок.
func CategoryOf(err error) string {
	var c Categorized
	if errors.As(err, &c) {
		return c.Category()
	}
	return ""
}
