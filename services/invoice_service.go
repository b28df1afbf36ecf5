package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yourusername/billing-saas/models"
	"gorm.io/gorm"
)

var oneHundred = decimal.NewFromInt(100)

// InvoiceService owns the invoice lifecycle: monetary computation, atomic
// persistence of headers with their items, scoped retrieval, status
// transitions and payment recording. Every operation is scoped to the
// principal's company; an invoice belonging to another company is
// indistinguishable from one that does not exist.
type InvoiceService struct {
	db      *gorm.DB
	timeout time.Duration
}

func NewInvoiceService(db *gorm.DB, timeout time.Duration) *InvoiceService {
	return &InvoiceService{db: db, timeout: timeout}
}

type InvoiceItemInput struct {
	ItemName    string          `json:"item_name"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

type CreateInvoiceInput struct {
	InvoiceNumber string             `json:"invoice_number"`
	InvoiceDate   string             `json:"invoice_date"`
	DueDate       string             `json:"due_date"`
	CustomerName  string             `json:"customer_name"`
	CustomerEmail string             `json:"customer_email"`
	CustomerPhone string             `json:"customer_phone"`
	TaxRate       decimal.Decimal    `json:"tax_rate"`
	Notes         string             `json:"notes"`
	Items         []InvoiceItemInput `json:"items"`
}

type ListResult struct {
	Page       int              `json:"page"`
	Limit      int              `json:"limit"`
	Total      int64            `json:"total"`
	TotalPages int              `json:"totalPages"`
	Data       []models.Invoice `json:"data"`
}

type RecordPaymentInput struct {
	Amount          decimal.Decimal `json:"amount"`
	PaymentDate     string          `json:"payment_date"`
	PaymentMethod   string          `json:"payment_method"`
	ReferenceNumber string          `json:"reference_number"`
}

type PaymentResult struct {
	InvoiceID  uint            `json:"invoice_id"`
	PaidAmount decimal.Decimal `json:"paid_amount"`
	Status     string          `json:"status"`
}

// Create computes line totals, subtotal and tax with decimal arithmetic
// and persists the header plus all items as one transaction. Either every
// row becomes visible or none do.
func (s *InvoiceService) Create(ctx context.Context, principal models.Principal, input CreateInvoiceInput) (*models.Invoice, error) {
	if len(input.Items) == 0 {
		return nil, newValidationError("EmptyItemSet", "items", "invoice must have at least one item")
	}

	invoiceDate, err := parseDate(input.InvoiceDate, "invoice_date")
	if err != nil {
		return nil, err
	}
	dueDate, err := parseDate(input.DueDate, "due_date")
	if err != nil {
		return nil, err
	}

	subtotal := decimal.Zero
	items := make([]models.InvoiceItem, 0, len(input.Items))
	for _, item := range input.Items {
		lineTotal := item.Quantity.Mul(item.UnitPrice)
		subtotal = subtotal.Add(lineTotal)
		items = append(items, models.InvoiceItem{
			CompanyID:   principal.CompanyID,
			ItemName:    item.ItemName,
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			TotalPrice:  lineTotal,
		})
	}

	taxAmount := subtotal.Mul(input.TaxRate).Div(oneHundred)
	totalAmount := subtotal.Add(taxAmount)

	invoice := models.Invoice{
		CompanyID:     principal.CompanyID,
		CreatedBy:     principal.UserID,
		InvoiceNumber: input.InvoiceNumber,
		InvoiceDate:   invoiceDate,
		DueDate:       dueDate,
		CustomerName:  input.CustomerName,
		CustomerEmail: input.CustomerEmail,
		CustomerPhone: input.CustomerPhone,
		Subtotal:      subtotal,
		TaxRate:       input.TaxRate,
		TaxAmount:     taxAmount,
		TotalAmount:   totalAmount,
		Notes:         input.Notes,
		Status:        models.StatusDraft,
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&invoice).Error; err != nil {
			return err
		}
		for i := range items {
			items[i].InvoiceID = invoice.ID
		}
		if err := tx.Create(&items).Error; err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, persistenceError("create invoice", err)
	}

	invoice.Items = items
	return &invoice, nil
}

// List returns a page of the company's invoices, newest first. The search
// term matches invoice_number or customer_name as a case-insensitive
// substring. Total is counted before pagination is applied.
func (s *InvoiceService) List(ctx context.Context, principal models.Principal, page, limit int, search string) (*ListResult, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	scoped := func() *gorm.DB {
		q := s.db.WithContext(ctx).Model(&models.Invoice{}).Where("company_id = ?", principal.CompanyID)
		if search != "" {
			term := "%" + strings.ToLower(search) + "%"
			q = q.Where("LOWER(invoice_number) LIKE ? OR LOWER(customer_name) LIKE ?", term, term)
		}
		return q
	}

	var total int64
	if err := scoped().Count(&total).Error; err != nil {
		return nil, persistenceError("count invoices", err)
	}

	var invoices []models.Invoice
	if err := scoped().Order("id DESC").Offset((page - 1) * limit).Limit(limit).Find(&invoices).Error; err != nil {
		return nil, persistenceError("list invoices", err)
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))

	return &ListResult{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
		Data:       invoices,
	}, nil
}

// Get returns the invoice with its items, or ErrInvoiceNotFound if no
// invoice with that id exists within the principal's company.
func (s *InvoiceService) Get(ctx context.Context, principal models.Principal, invoiceID uint) (*models.Invoice, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var invoice models.Invoice
	err := s.db.WithContext(ctx).
		Preload("Items").
		Where("id = ? AND company_id = ?", invoiceID, principal.CompanyID).
		First(&invoice).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvoiceNotFound
		}
		return nil, persistenceError("get invoice", err)
	}

	return &invoice, nil
}

// UpdateStatus sets the invoice status. Any member of the status set may
// replace any other; there is no transition table.
func (s *InvoiceService) UpdateStatus(ctx context.Context, principal models.Principal, invoiceID uint, status string) (*models.Invoice, error) {
	if !models.ValidStatus(status) {
		return nil, newValidationError("InvalidStatus", "status", fmt.Sprintf("status must be one of draft, sent, paid, cancelled; got %q", status))
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var invoice models.Invoice
	err := s.db.WithContext(ctx).
		Where("id = ? AND company_id = ?", invoiceID, principal.CompanyID).
		First(&invoice).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvoiceNotFound
		}
		return nil, persistenceError("get invoice", err)
	}

	if err := s.db.WithContext(ctx).Model(&invoice).Update("status", status).Error; err != nil {
		return nil, persistenceError("update invoice status", err)
	}

	invoice.Status = status
	return &invoice, nil
}

// RecordPayment inserts a payment row and flips the invoice to paid in
// one transaction. The status flip is a compare-and-set guarded on
// status <> 'paid', so under concurrent attempts at most one caller wins;
// the rest observe ErrInvoiceAlreadyPaid.
func (s *InvoiceService) RecordPayment(ctx context.Context, principal models.Principal, invoiceID uint, input RecordPaymentInput) (*PaymentResult, error) {
	if input.Amount.IsZero() {
		return nil, missingFieldError("amount")
	}
	paymentDateStr := strings.TrimSpace(input.PaymentDate)
	if paymentDateStr == "" {
		return nil, missingFieldError("payment_date")
	}
	if input.PaymentMethod == "" {
		return nil, missingFieldError("payment_method")
	}

	paymentDate, err := parseDate(paymentDateStr, "payment_date")
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var invoice models.Invoice
		if err := tx.Where("id = ? AND company_id = ?", invoiceID, principal.CompanyID).First(&invoice).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInvoiceNotFound
			}
			return err
		}

		if invoice.Status == models.StatusPaid {
			return ErrInvoiceAlreadyPaid
		}

		res := tx.Model(&models.Invoice{}).
			Where("id = ? AND company_id = ? AND status <> ?", invoiceID, principal.CompanyID, models.StatusPaid).
			Update("status", models.StatusPaid)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Another request paid this invoice between our read and the update.
			return ErrInvoiceAlreadyPaid
		}

		payment := models.Payment{
			InvoiceID:       invoiceID,
			CompanyID:       principal.CompanyID,
			Amount:          input.Amount,
			PaymentDate:     *paymentDate,
			PaymentMethod:   input.PaymentMethod,
			ReferenceNumber: input.ReferenceNumber,
		}
		return tx.Create(&payment).Error
	})
	if err != nil {
		return nil, wrapStoreError("record payment", err)
	}

	return &PaymentResult{
		InvoiceID:  invoiceID,
		PaidAmount: input.Amount,
		Status:     models.StatusPaid,
	}, nil
}

// wrapStoreError passes domain errors through untouched and wraps
// everything else as a persistence failure.
func wrapStoreError(op string, err error) error {
	var vErr *ValidationError
	if errors.Is(err, ErrInvoiceNotFound) || errors.Is(err, ErrInvoiceAlreadyPaid) || errors.As(err, &vErr) {
		return err
	}
	return persistenceError(op, err)
}

const dateOnlyLayout = "2006-01-02"

// parseDate accepts RFC3339 or a bare date. An empty value is not an
// error; required fields are checked by the caller.
func parseDate(value, field string) (*time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	if parsed, err := time.Parse(time.RFC3339, trimmed); err == nil {
		return &parsed, nil
	}
	if parsed, err := time.Parse(dateOnlyLayout, trimmed); err == nil {
		return &parsed, nil
	}
	return nil, newValidationError("InvalidDate", field, fmt.Sprintf("%s must be an RFC3339 timestamp or YYYY-MM-DD date", field))
}
