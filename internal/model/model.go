// Package model содержит доменные сущности бюджета комплектования библиотеки.
package model

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/acquisitions/internal/money"
)

// Kind определяет тип хранимой записи.
type Kind string

const (
	KindBudget      Kind = "budget"
	KindAccount     Kind = "account"
	KindOrder       Kind = "order"
	KindOrderLine   Kind = "order_line"
	KindReceipt     Kind = "receipt"
	KindReceiptLine Kind = "receipt_line"
	KindVendor      Kind = "vendor"
	KindDocument    Kind = "document"
)

// Meta содержит служебные поля, которые назначает хранилище.
type Meta struct {
	ID        string    `json:"id"`
	Revision  int64     `json:"revision"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GetMeta возвращает служебные поля записи.
func (m *Meta) GetMeta() Meta { return *m }

// SetMeta обновляет служебные поля записи.
func (m *Meta) SetMeta(meta Meta) { *m = meta }

// Budget ограничивает финансовый период организации и объединяет счета.
type Budget struct {
	Meta
	OrganisationID string    `json:"organisation_id"`
	Name           string    `json:"name"`
	StartDate      time.Time `json:"start_date"`
	EndDate        time.Time `json:"end_date"`
	IsActive       bool      `json:"is_active"`
}

func (*Budget) Kind() Kind { return KindBudget }

// Overlaps сообщает, пересекаются ли периоды двух бюджетов.
func (b *Budget) Overlaps(other *Budget) bool {
	return !b.StartDate.After(other.EndDate) && !other.StartDate.After(b.EndDate)
}

// Account описывает часть бюджета, из которой оплачиваются заказы.
type Account struct {
	Meta
	BudgetID       string      `json:"budget_id"`
	ParentID       string      `json:"parent_id,omitempty"`
	Name           string      `json:"name"`
	Number         string      `json:"number,omitempty"`
	Allocated      money.Money `json:"allocated"`
	AllowOverspend bool        `json:"allow_overspend"`
	OrganisationID string      `json:"organisation_id"`
	LibraryID      string      `json:"library_id"`
}

func (*Account) Kind() Kind { return KindAccount }

// Order описывает заказ поставщику. Статус заказа не хранится, а вычисляется по строкам.
type Order struct {
	Meta
	VendorID       string `json:"vendor_id"`
	Reference      string `json:"reference,omitempty"`
	OrganisationID string `json:"organisation_id"`
	LibraryID      string `json:"library_id"`
}

func (*Order) Kind() Kind { return KindOrder }

// OrderLine описывает позицию заказа по одному документу.
type OrderLine struct {
	Meta
	OrderID          string          `json:"order_id"`
	AccountID        string          `json:"account_id"`
	DocumentID       string          `json:"document_id"`
	Quantity         int64           `json:"quantity"`
	ReceivedQuantity int64           `json:"received_quantity"`
	UnitPrice        money.Money     `json:"unit_price"`
	Status           OrderLineStatus `json:"status"`
	OrganisationID   string          `json:"organisation_id"`
	LibraryID        string          `json:"library_id"`
}

func (*OrderLine) Kind() Kind { return KindOrderLine }

// Amount возвращает полную стоимость позиции.
func (l *OrderLine) Amount() money.Money {
	return l.UnitPrice.Mul(l.Quantity)
}

// RemainingQuantity возвращает количество, которое ещё не получено.
func (l *OrderLine) RemainingQuantity() int64 {
	if l.ReceivedQuantity >= l.Quantity {
		return 0
	}
	return l.Quantity - l.ReceivedQuantity
}

// Receipt фиксирует поставку по заказу.
type Receipt struct {
	Meta
	OrderID        string    `json:"order_id"`
	ReceiptDate    time.Time `json:"receipt_date"`
	Reference      string    `json:"reference,omitempty"`
	OrganisationID string    `json:"organisation_id"`
	LibraryID      string    `json:"library_id"`
}

func (*Receipt) Kind() Kind { return KindReceipt }

// ReceiptLine фиксирует получение части или всей позиции заказа. Итоговая сумма не хранится.
type ReceiptLine struct {
	Meta
	ReceiptID      string          `json:"receipt_id"`
	OrderLineID    string          `json:"order_line_id"`
	AccountID      string          `json:"account_id"`
	Quantity       int64           `json:"quantity"`
	Amount         money.Money     `json:"amount"`
	VATRate        decimal.Decimal `json:"vat_rate"`
	ExchangeRate   decimal.Decimal `json:"exchange_rate"`
	Notes          []Note          `json:"notes,omitempty"`
	OrganisationID string          `json:"organisation_id"`
	LibraryID      string          `json:"library_id"`
}

func (*ReceiptLine) Kind() Kind { return KindReceiptLine }

// NoteType определяет назначение примечания.
type NoteType string

const (
	NoteStaff   NoteType = "staff_note"
	NoteVendor  NoteType = "vendor_note"
	NoteReceipt NoteType = "receipt_note"
)

// IsValid проверяет, что тип примечания известен.
func (t NoteType) IsValid() bool {
	switch t {
	case NoteStaff, NoteVendor, NoteReceipt:
		return true
	}
	return false
}

// Note содержит текстовое примечание с типом.
type Note struct {
	Type    NoteType `json:"type"`
	Content string   `json:"content"`
}

// Vendor описывает поставщика, на которого оформляются заказы.
type Vendor struct {
	Meta
	Name           string `json:"name"`
	OrganisationID string `json:"organisation_id"`
}

func (*Vendor) Kind() Kind { return KindVendor }

// Document описывает заказываемый документ каталога.
type Document struct {
	Meta
	Title          string `json:"title"`
	OrganisationID string `json:"organisation_id"`
}

func (*Document) Kind() Kind { return KindDocument }

// Balance содержит вычисленное состояние счёта.
type Balance struct {
	Allocated   money.Money `json:"allocated"`
	Encumbrance money.Money `json:"encumbrance"`
	Expenditure money.Money `json:"expenditure"`
	Available   money.Money `json:"available"`
}

// ExportRow содержит плоскую строку выгрузки по паре позиция заказа / позиция поставки.
type ExportRow struct {
	OrderID          string
	OrderReference   string
	VendorName       string
	DocumentTitle    string
	AccountName      string
	OrderedQuantity  int64
	OrderedAmount    money.Money
	ReceivedQuantity int64
	ReceivedAmount   money.Money
	ReceiptDate      *time.Time
}
