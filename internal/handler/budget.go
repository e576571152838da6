package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/mmeshcher/acquisitions/internal/service"
)

// ListBudgets возвращает бюджеты организации из параметра organisation_id.
func (h *Handler) ListBudgets(w http.ResponseWriter, r *http.Request) {
	org := r.URL.Query().Get("organisation_id")
	if org == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	budgets, err := h.service.ListBudgets(r.Context(), actorOf(r), org)
	if err != nil {
		h.writeError(w, err, "list budgets error", zap.String("organisation_id", org))
		return
	}
	if len(budgets) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, budgets)
}

// CreateBudget создаёт бюджет.
func (h *Handler) CreateBudget(w http.ResponseWriter, r *http.Request) {
	var in service.BudgetInput
	if !decode(w, r, &in) {
		return
	}

	b, err := h.service.CreateBudget(r.Context(), actorOf(r), in)
	if err != nil {
		h.writeError(w, err, "create budget error")
		return
	}
	writeRecord(w, http.StatusCreated, b.Revision, b)
}

// GetBudget возвращает бюджет.
func (h *Handler) GetBudget(w http.ResponseWriter, r *http.Request) {
	b, err := h.service.GetBudget(r.Context(), actorOf(r), idParam(r))
	if err != nil {
		h.writeError(w, err, "get budget error", zap.String("budget_id", idParam(r)))
		return
	}
	writeRecord(w, http.StatusOK, b.Revision, b)
}

func (h *Handler) setBudgetActive(active bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rev, ok := revisionFrom(w, r)
		if !ok {
			return
		}

		b, err := h.service.SetBudgetActive(r.Context(), actorOf(r), idParam(r), rev, active)
		if err != nil {
			h.writeError(w, err, "set budget active error", zap.String("budget_id", idParam(r)))
			return
		}
		writeRecord(w, http.StatusOK, b.Revision, b)
	}
}

// DeleteBudget удаляет бюджет без счетов.
func (h *Handler) DeleteBudget(w http.ResponseWriter, r *http.Request) {
	rev, ok := revisionFrom(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteBudget(r.Context(), actorOf(r), idParam(r), rev); err != nil {
		h.writeError(w, err, "delete budget error", zap.String("budget_id", idParam(r)))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListAccounts возвращает счета бюджета.
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.service.ListAccounts(r.Context(), actorOf(r), idParam(r))
	if err != nil {
		h.writeError(w, err, "list accounts error", zap.String("budget_id", idParam(r)))
		return
	}
	if len(accounts) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

// CreateAccount создаёт счёт в бюджете.
func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var in service.AccountInput
	if !decode(w, r, &in) {
		return
	}

	acc, err := h.service.CreateAccount(r.Context(), actorOf(r), in)
	if err != nil {
		h.writeError(w, err, "create account error")
		return
	}
	writeRecord(w, http.StatusCreated, acc.Revision, acc)
}

// GetAccount возвращает счёт.
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	acc, err := h.service.GetAccount(r.Context(), actorOf(r), idParam(r))
	if err != nil {
		h.writeError(w, err, "get account error", zap.String("account_id", idParam(r)))
		return
	}
	writeRecord(w, http.StatusOK, acc.Revision, acc)
}

// UpdateAccount меняет параметры счёта. Ревизия передаётся в If-Match.
func (h *Handler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	rev, ok := revisionFrom(w, r)
	if !ok {
		return
	}
	var in service.AccountUpdate
	if !decode(w, r, &in) {
		return
	}

	acc, err := h.service.UpdateAccount(r.Context(), actorOf(r), idParam(r), rev, in)
	if err != nil {
		h.writeError(w, err, "update account error", zap.String("account_id", idParam(r)))
		return
	}
	writeRecord(w, http.StatusOK, acc.Revision, acc)
}

// DeleteAccount удаляет счёт без дочерних счетов и позиций.
func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	rev, ok := revisionFrom(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteAccount(r.Context(), actorOf(r), idParam(r), rev); err != nil {
		h.writeError(w, err, "delete account error", zap.String("account_id", idParam(r)))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type balanceResponse struct {
	AccountID   string `json:"account_id"`
	Allocated   string `json:"allocated"`
	Encumbrance string `json:"encumbrance"`
	Expenditure string `json:"expenditure"`
	Available   string `json:"available"`
}

// AccountBalance возвращает остаток счёта с учётом поддерева.
func (h *Handler) AccountBalance(w http.ResponseWriter, r *http.Request) {
	b, err := h.service.AccountBalance(r.Context(), actorOf(r), idParam(r))
	if err != nil {
		h.writeError(w, err, "account balance error", zap.String("account_id", idParam(r)))
		return
	}

	p := h.service.Precision()
	writeJSON(w, http.StatusOK, balanceResponse{
		AccountID:   idParam(r),
		Allocated:   b.Allocated.StringFixed(p),
		Encumbrance: b.Encumbrance.StringFixed(p),
		Expenditure: b.Expenditure.StringFixed(p),
		Available:   b.Available.StringFixed(p),
	})
}

// CreateVendor создаёт поставщика.
func (h *Handler) CreateVendor(w http.ResponseWriter, r *http.Request) {
	var in service.VendorInput
	if !decode(w, r, &in) {
		return
	}

	v, err := h.service.CreateVendor(r.Context(), actorOf(r), in)
	if err != nil {
		h.writeError(w, err, "create vendor error")
		return
	}
	writeRecord(w, http.StatusCreated, v.Revision, v)
}

// GetVendor возвращает поставщика.
func (h *Handler) GetVendor(w http.ResponseWriter, r *http.Request) {
	v, err := h.service.GetVendor(r.Context(), actorOf(r), idParam(r))
	if err != nil {
		h.writeError(w, err, "get vendor error", zap.String("vendor_id", idParam(r)))
		return
	}
	writeRecord(w, http.StatusOK, v.Revision, v)
}

// CreateDocument создаёт документ каталога.
func (h *Handler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	var in service.DocumentInput
	if !decode(w, r, &in) {
		return
	}

	d, err := h.service.CreateDocument(r.Context(), actorOf(r), in)
	if err != nil {
		h.writeError(w, err, "create document error")
		return
	}
	writeRecord(w, http.StatusCreated, d.Revision, d)
}

// GetDocument возвращает документ каталога.
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	d, err := h.service.GetDocument(r.Context(), actorOf(r), idParam(r))
	if err != nil {
		h.writeError(w, err, "get document error", zap.String("document_id", idParam(r)))
		return
	}
	writeRecord(w, http.StatusOK, d.Revision, d)
}
