package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment is recorded against an invoice that is not yet paid. Creating
// the row and flipping the invoice to paid happen in one transaction.
type Payment struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	InvoiceID       uint            `gorm:"index;not null" json:"invoice_id"`
	CompanyID       uint            `gorm:"index;not null" json:"company_id"`
	Amount          decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	PaymentDate     time.Time       `gorm:"not null" json:"payment_date"`
	PaymentMethod   string          `gorm:"size:50;not null" json:"payment_method"`
	ReferenceNumber string          `gorm:"size:100" json:"reference_number"`
}

// TableName overrides the table name
func (Payment) TableName() string {
	return "payments"
}
