package model

// OrderStatus описывает вычисляемый статус заказа.
type OrderStatus string

const (
	OrderStatusPending           OrderStatus = "PENDING"
	OrderStatusPartiallyReceived OrderStatus = "PARTIALLY_RECEIVED"
	OrderStatusReceived          OrderStatus = "RECEIVED"
	OrderStatusCancelled         OrderStatus = "CANCELLED"
)

// OrderLineStatus описывает статус позиции заказа.
type OrderLineStatus string

const (
	OrderLineApproved  OrderLineStatus = "APPROVED"
	OrderLineReceived  OrderLineStatus = "RECEIVED"
	OrderLineCancelled OrderLineStatus = "CANCELLED"
)

// CanTransitionTo проверяет допустимость перехода статуса позиции.
// Разрешены только APPROVED -> RECEIVED и APPROVED -> CANCELLED.
func (s OrderLineStatus) CanTransitionTo(target OrderLineStatus) bool {
	if s != OrderLineApproved {
		return false
	}
	return target == OrderLineReceived || target == OrderLineCancelled
}
