package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/mmeshcher/acquisitions/internal/export"
	"github.com/mmeshcher/acquisitions/internal/model"
	"github.com/mmeshcher/acquisitions/internal/service"
)

// CreateOrder создаёт заказ.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var in service.OrderInput
	if !decode(w, r, &in) {
		return
	}

	o, err := h.service.CreateOrder(r.Context(), actorOf(r), in)
	if err != nil {
		h.writeError(w, err, "create order error")
		return
	}
	writeRecord(w, http.StatusCreated, o.Revision, o)
}

type orderResponse struct {
	*model.Order
	Status model.OrderStatus `json:"status"`
}

// GetOrder возвращает заказ вместе с вычисленным статусом.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.service.GetOrder(r.Context(), actorOf(r), idParam(r))
	if err != nil {
		h.writeError(w, err, "get order error", zap.String("order_id", idParam(r)))
		return
	}
	status, err := h.service.OrderStatus(r.Context(), actorOf(r), o.ID)
	if err != nil {
		h.writeError(w, err, "order status error", zap.String("order_id", o.ID))
		return
	}
	writeRecord(w, http.StatusOK, o.Revision, orderResponse{Order: o, Status: status})
}

type statusResponse struct {
	OrderID string            `json:"order_id"`
	Status  model.OrderStatus `json:"status"`
}

// OrderStatus возвращает вычисленный статус заказа.
func (h *Handler) OrderStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.OrderStatus(r.Context(), actorOf(r), idParam(r))
	if err != nil {
		h.writeError(w, err, "order status error", zap.String("order_id", idParam(r)))
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{OrderID: idParam(r), Status: status})
}

// CancelOrder отменяет заказ целиком.
func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.service.CancelOrder(r.Context(), actorOf(r), idParam(r)); err != nil {
		h.writeError(w, err, "cancel order error", zap.String("order_id", idParam(r)))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteOrder удаляет заказ без позиций. Ревизия передаётся в If-Match.
func (h *Handler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	rev, ok := revisionFrom(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteOrder(r.Context(), actorOf(r), idParam(r), rev); err != nil {
		h.writeError(w, err, "delete order error", zap.String("order_id", idParam(r)))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// OrderLines возвращает позиции заказа или 204, если их нет.
func (h *Handler) OrderLines(w http.ResponseWriter, r *http.Request) {
	lines, err := h.service.OrderLines(r.Context(), actorOf(r), idParam(r))
	if err != nil {
		h.writeError(w, err, "order lines error", zap.String("order_id", idParam(r)))
		return
	}
	if len(lines) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, lines)
}

// AddOrderLine добавляет позицию в заказ.
func (h *Handler) AddOrderLine(w http.ResponseWriter, r *http.Request) {
	var in service.OrderLineInput
	if !decode(w, r, &in) {
		return
	}

	line, err := h.service.AddOrderLine(r.Context(), actorOf(r), idParam(r), in)
	if err != nil {
		h.writeError(w, err, "add order line error", zap.String("order_id", idParam(r)))
		return
	}
	writeRecord(w, http.StatusCreated, line.Revision, line)
}

// GetOrderLine возвращает позицию заказа.
func (h *Handler) GetOrderLine(w http.ResponseWriter, r *http.Request) {
	line, err := h.service.GetOrderLine(r.Context(), actorOf(r), idParam(r))
	if err != nil {
		h.writeError(w, err, "get order line error", zap.String("order_line_id", idParam(r)))
		return
	}
	writeRecord(w, http.StatusOK, line.Revision, line)
}

// UpdateOrderLine меняет количество и цену позиции.
func (h *Handler) UpdateOrderLine(w http.ResponseWriter, r *http.Request) {
	rev, ok := revisionFrom(w, r)
	if !ok {
		return
	}
	var in service.OrderLineUpdate
	if !decode(w, r, &in) {
		return
	}

	line, err := h.service.UpdateOrderLine(r.Context(), actorOf(r), idParam(r), rev, in)
	if err != nil {
		h.writeError(w, err, "update order line error", zap.String("order_line_id", idParam(r)))
		return
	}
	writeRecord(w, http.StatusOK, line.Revision, line)
}

// CancelOrderLine отменяет позицию заказа.
func (h *Handler) CancelOrderLine(w http.ResponseWriter, r *http.Request) {
	rev, ok := revisionFrom(w, r)
	if !ok {
		return
	}

	line, err := h.service.CancelOrderLine(r.Context(), actorOf(r), idParam(r), rev)
	if err != nil {
		h.writeError(w, err, "cancel order line error", zap.String("order_line_id", idParam(r)))
		return
	}
	writeRecord(w, http.StatusOK, line.Revision, line)
}

// ExportOrder выгружает позиции заказа в CSV или, при format=xlsx, в Excel.
func (h *Handler) ExportOrder(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "xlsx" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	rows, err := h.service.ExportRows(r.Context(), actorOf(r), idParam(r))
	if err != nil {
		h.writeError(w, err, "export order error", zap.String("order_id", idParam(r)))
		return
	}

	filename := "order-" + idParam(r) + "." + format
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)

	if format == "xlsx" {
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		err = export.WriteXLSX(w, rows, h.service.Precision())
	} else {
		w.Header().Set("Content-Type", "text/csv")
		err = export.WriteCSV(w, rows, h.service.Precision())
	}
	if err != nil {
		h.logger.Error("write export error", zap.Error(err), zap.String("order_id", idParam(r)))
	}
}
