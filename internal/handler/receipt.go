package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/mmeshcher/acquisitions/internal/service"
)

// CreateReceipt регистрирует поставку по заказу из URL.
func (h *Handler) CreateReceipt(w http.ResponseWriter, r *http.Request) {
	var in service.ReceiptInput
	if !decode(w, r, &in) {
		return
	}

	rc, err := h.service.CreateReceipt(r.Context(), actorOf(r), idParam(r), in)
	if err != nil {
		h.writeError(w, err, "create receipt error", zap.String("order_id", idParam(r)))
		return
	}
	writeRecord(w, http.StatusCreated, rc.Revision, rc)
}

// GetReceipt возвращает поставку.
func (h *Handler) GetReceipt(w http.ResponseWriter, r *http.Request) {
	rc, err := h.service.GetReceipt(r.Context(), actorOf(r), idParam(r))
	if err != nil {
		h.writeError(w, err, "get receipt error", zap.String("receipt_id", idParam(r)))
		return
	}
	writeRecord(w, http.StatusOK, rc.Revision, rc)
}

// ReceiptLines возвращает позиции поставки или 204, если их нет.
func (h *Handler) ReceiptLines(w http.ResponseWriter, r *http.Request) {
	lines, err := h.service.ReceiptLines(r.Context(), actorOf(r), idParam(r))
	if err != nil {
		h.writeError(w, err, "receipt lines error", zap.String("receipt_id", idParam(r)))
		return
	}
	if len(lines) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, lines)
}

// CreateReceiptLine регистрирует получение позиции заказа по поставке.
func (h *Handler) CreateReceiptLine(w http.ResponseWriter, r *http.Request) {
	var in service.ReceiptLineInput
	if !decode(w, r, &in) {
		return
	}

	rl, err := h.service.CreateReceiptLine(r.Context(), actorOf(r), idParam(r), in)
	if err != nil {
		h.writeError(w, err, "create receipt line error",
			zap.String("receipt_id", idParam(r)),
			zap.String("order_line_id", in.OrderLineID),
		)
		return
	}
	writeRecord(w, http.StatusCreated, rl.Revision, rl)
}

// GetReceiptLine возвращает позицию поставки.
func (h *Handler) GetReceiptLine(w http.ResponseWriter, r *http.Request) {
	rl, err := h.service.GetReceiptLine(r.Context(), actorOf(r), idParam(r))
	if err != nil {
		h.writeError(w, err, "get receipt line error", zap.String("receipt_line_id", idParam(r)))
		return
	}
	writeRecord(w, http.StatusOK, rl.Revision, rl)
}

type totalResponse struct {
	ReceiptLineID string `json:"receipt_line_id"`
	Total         string `json:"total"`
}

// ReceiptLineTotal возвращает итог позиции поставки с НДС и курсом.
func (h *Handler) ReceiptLineTotal(w http.ResponseWriter, r *http.Request) {
	total, err := h.service.ReceiptLineTotal(r.Context(), actorOf(r), idParam(r))
	if err != nil {
		h.writeError(w, err, "receipt line total error", zap.String("receipt_line_id", idParam(r)))
		return
	}
	writeJSON(w, http.StatusOK, totalResponse{
		ReceiptLineID: idParam(r),
		Total:         total.StringFixed(h.service.Precision()),
	})
}
