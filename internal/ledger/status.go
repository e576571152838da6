package ledger

import "github.com/mmeshcher/acquisitions/internal/model"

// OrderStatus выводит статус заказа из статусов его позиций.
// Заказ без позиций считается ожидающим.
func OrderStatus(lines []model.OrderLineStatus) model.OrderStatus {
	var cancelled, received, active int
	for _, s := range lines {
		switch s {
		case model.OrderLineCancelled:
			cancelled++
		case model.OrderLineReceived:
			received++
			active++
		default:
			active++
		}
	}

	switch {
	case len(lines) > 0 && cancelled == len(lines):
		return model.OrderStatusCancelled
	case active > 0 && received == active:
		return model.OrderStatusReceived
	case received > 0:
		return model.OrderStatusPartiallyReceived
	default:
		return model.OrderStatusPending
	}
}

// StatusOfLines вычисляет OrderStatus по загруженным позициям.
func StatusOfLines(lines []*model.OrderLine) model.OrderStatus {
	statuses := make([]model.OrderLineStatus, 0, len(lines))
	for _, l := range lines {
		statuses = append(statuses, l.Status)
	}
	return OrderStatus(statuses)
}
