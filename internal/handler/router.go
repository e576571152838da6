package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	custommiddleware "github.com/mmeshcher/acquisitions/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса комплектования.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))
	r.Use(h.authMiddleware.Middleware)

	r.Route("/api/acquisition", func(r chi.Router) {
		r.Route("/budgets", func(r chi.Router) {
			r.Get("/", h.ListBudgets)
			r.Post("/", h.CreateBudget)
			r.Get("/{id}", h.GetBudget)
			r.Delete("/{id}", h.DeleteBudget)
			r.Post("/{id}/activate", h.setBudgetActive(true))
			r.Post("/{id}/deactivate", h.setBudgetActive(false))
			r.Get("/{id}/accounts", h.ListAccounts)
		})

		r.Route("/accounts", func(r chi.Router) {
			r.Post("/", h.CreateAccount)
			r.Get("/{id}", h.GetAccount)
			r.Put("/{id}", h.UpdateAccount)
			r.Delete("/{id}", h.DeleteAccount)
			r.Get("/{id}/balance", h.AccountBalance)
		})

		r.Post("/vendors", h.CreateVendor)
		r.Get("/vendors/{id}", h.GetVendor)
		r.Post("/documents", h.CreateDocument)
		r.Get("/documents/{id}", h.GetDocument)

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", h.CreateOrder)
			r.Get("/{id}", h.GetOrder)
			r.Delete("/{id}", h.DeleteOrder)
			r.Get("/{id}/status", h.OrderStatus)
			r.Post("/{id}/cancel", h.CancelOrder)
			r.Get("/{id}/lines", h.OrderLines)
			r.Post("/{id}/lines", h.AddOrderLine)
			r.Post("/{id}/receipts", h.CreateReceipt)
			r.Get("/{id}/export", h.ExportOrder)
		})

		r.Route("/order-lines", func(r chi.Router) {
			r.Get("/{id}", h.GetOrderLine)
			r.Put("/{id}", h.UpdateOrderLine)
			r.Post("/{id}/cancel", h.CancelOrderLine)
		})

		r.Route("/receipts", func(r chi.Router) {
			r.Get("/{id}", h.GetReceipt)
			r.Get("/{id}/lines", h.ReceiptLines)
			r.Post("/{id}/lines", h.CreateReceiptLine)
		})

		r.Route("/receipt-lines", func(r chi.Router) {
			r.Get("/{id}", h.GetReceiptLine)
			r.Get("/{id}/total", h.ReceiptLineTotal)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
