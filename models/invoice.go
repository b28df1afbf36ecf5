package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Invoice statuses. No transition table is enforced; any status may be
// set over any other via the status endpoint.
const (
	StatusDraft     = "draft"
	StatusSent      = "sent"
	StatusPaid      = "paid"
	StatusCancelled = "cancelled"
)

// ValidStatus reports whether s is a member of the status set.
func ValidStatus(s string) bool {
	switch s {
	case StatusDraft, StatusSent, StatusPaid, StatusCancelled:
		return true
	}
	return false
}

type Invoice struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	CompanyID     uint            `gorm:"index;not null" json:"company_id"`
	CreatedBy     uint            `gorm:"not null" json:"created_by"`
	InvoiceNumber string          `gorm:"size:50;not null" json:"invoice_number"`
	InvoiceDate   *time.Time      `json:"invoice_date"`
	DueDate       *time.Time      `json:"due_date"`
	CustomerName  string          `gorm:"size:255;not null" json:"customer_name"`
	CustomerEmail string          `gorm:"size:255" json:"customer_email"`
	CustomerPhone string          `gorm:"size:50" json:"customer_phone"`
	Subtotal      decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"subtotal"`
	TaxRate       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"tax_rate"`
	TaxAmount     decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"tax_amount"`     // subtotal * tax_rate / 100
	TotalAmount   decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"total_amount"`   // subtotal + tax_amount
	Notes         string          `gorm:"type:text" json:"notes"`
	Status        string          `gorm:"size:20;default:'draft'" json:"status"` // draft, sent, paid, cancelled
	Items         []InvoiceItem   `gorm:"foreignKey:InvoiceID" json:"items,omitempty"`
}

// TableName overrides the table name
func (Invoice) TableName() string {
	return "invoices"
}

type InvoiceItem struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	InvoiceID   uint            `gorm:"index;not null" json:"invoice_id"`
	CompanyID   uint            `gorm:"index;not null" json:"company_id"`
	ItemName    string          `gorm:"size:255;not null" json:"item_name"`
	Description string          `gorm:"type:text" json:"description"`
	Quantity    decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"unit_price"`
	TotalPrice  decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"total_price"` // quantity * unit_price
}

// TableName overrides the table name
func (InvoiceItem) TableName() string {
	return "invoice_items"
}
