package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/billing-saas/config"
	"github.com/yourusername/billing-saas/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupTestDB opens a named in-memory database limited to one
// connection, so concurrent transactions serialize the way row locks
// serialize them in postgres.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, config.Migrate(db))
	return db
}

func testPrincipal(companyID uint) models.Principal {
	return models.Principal{UserID: 1, Role: "user", CompanyID: companyID}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimalEqual(t *testing.T, want, got decimal.Decimal) {
	t.Helper()
	assert.True(t, want.Equal(got), "want %s, got %s", want, got)
}

func newTestService(db *gorm.DB) *InvoiceService {
	return NewInvoiceService(db, 5*time.Second)
}

func TestCreateComputesTotals(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(db)

	invoice, err := svc.Create(context.Background(), testPrincipal(1), CreateInvoiceInput{
		InvoiceNumber: "INV-001",
		InvoiceDate:   "2024-01-15",
		CustomerName:  "Acme Corp",
		TaxRate:       dec("10"),
		Items: []InvoiceItemInput{
			{ItemName: "Widget", Quantity: dec("2"), UnitPrice: dec("50.00")},
			{ItemName: "Gadget", Quantity: dec("1"), UnitPrice: dec("25.50")},
		},
	})
	require.NoError(t, err)

	assertDecimalEqual(t, dec("125.50"), invoice.Subtotal)
	assertDecimalEqual(t, dec("12.55"), invoice.TaxAmount)
	assertDecimalEqual(t, dec("138.05"), invoice.TotalAmount)
	assert.Equal(t, models.StatusDraft, invoice.Status)
	assert.Equal(t, uint(1), invoice.CompanyID)
	assert.Equal(t, uint(1), invoice.CreatedBy)

	require.Len(t, invoice.Items, 2)
	assertDecimalEqual(t, dec("100.00"), invoice.Items[0].TotalPrice)
	assertDecimalEqual(t, dec("25.50"), invoice.Items[1].TotalPrice)

	var stored models.Invoice
	require.NoError(t, db.Preload("Items").First(&stored, invoice.ID).Error)
	assertDecimalEqual(t, dec("138.05"), stored.TotalAmount)
	assert.Len(t, stored.Items, 2)
}

func TestCreateZeroTaxRate(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(db)

	invoice, err := svc.Create(context.Background(), testPrincipal(1), CreateInvoiceInput{
		InvoiceNumber: "INV-002",
		CustomerName:  "Acme Corp",
		Items: []InvoiceItemInput{
			{ItemName: "Widget", Quantity: dec("3"), UnitPrice: dec("19.99")},
		},
	})
	require.NoError(t, err)

	assertDecimalEqual(t, dec("59.97"), invoice.Subtotal)
	assertDecimalEqual(t, dec("0"), invoice.TaxAmount)
	assertDecimalEqual(t, dec("59.97"), invoice.TotalAmount)
}

func TestCreateRejectsEmptyItemSet(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(db)

	_, err := svc.Create(context.Background(), testPrincipal(1), CreateInvoiceInput{
		InvoiceNumber: "INV-003",
		CustomerName:  "Acme Corp",
	})

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "EmptyItemSet", vErr.Code)

	var count int64
	require.NoError(t, db.Model(&models.Invoice{}).Count(&count).Error)
	assert.Zero(t, count, "no header row may persist for a rejected invoice")
}

func TestCreateRollsBackWhenItemInsertFails(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(db)

	// Fail the item insert after the header insert has succeeded.
	require.NoError(t, db.Callback().Create().Before("gorm:create").Register("fail_items", func(tx *gorm.DB) {
		if tx.Statement.Table == "invoice_items" {
			tx.AddError(errors.New("injected item insert failure"))
		}
	}))
	defer db.Callback().Create().Remove("fail_items")

	_, err := svc.Create(context.Background(), testPrincipal(1), CreateInvoiceInput{
		InvoiceNumber: "INV-004",
		CustomerName:  "Acme Corp",
		Items: []InvoiceItemInput{
			{ItemName: "Widget", Quantity: dec("1"), UnitPrice: dec("10.00")},
		},
	})

	var pErr *PersistenceError
	require.ErrorAs(t, err, &pErr)
	assert.Contains(t, pErr.Err.Error(), "injected item insert failure")

	var invoiceCount, itemCount int64
	require.NoError(t, db.Model(&models.Invoice{}).Count(&invoiceCount).Error)
	require.NoError(t, db.Model(&models.InvoiceItem{}).Count(&itemCount).Error)
	assert.Zero(t, invoiceCount, "header must roll back with the items")
	assert.Zero(t, itemCount)
}

func TestUnparseableDatesRejected(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(db)

	oneItem := []InvoiceItemInput{
		{ItemName: "Widget", Quantity: dec("1"), UnitPrice: dec("10.00")},
	}

	cases := []struct {
		name  string
		run   func() error
		field string
	}{
		{
			name: "garbage invoice date",
			run: func() error {
				_, err := svc.Create(context.Background(), testPrincipal(1), CreateInvoiceInput{
					InvoiceNumber: "INV-600",
					InvoiceDate:   "not-a-date",
					CustomerName:  "Acme Corp",
					Items:         oneItem,
				})
				return err
			},
			field: "invoice_date",
		},
		{
			name: "garbage due date",
			run: func() error {
				_, err := svc.Create(context.Background(), testPrincipal(1), CreateInvoiceInput{
					InvoiceNumber: "INV-601",
					DueDate:       "15/01/2024",
					CustomerName:  "Acme Corp",
					Items:         oneItem,
				})
				return err
			},
			field: "due_date",
		},
		{
			name: "garbage payment date",
			run: func() error {
				invoice := seedInvoice(t, db, 1, "INV-602", models.StatusSent)
				_, err := svc.RecordPayment(context.Background(), testPrincipal(1), invoice.ID, RecordPaymentInput{
					Amount:        dec("10"),
					PaymentDate:   "soon",
					PaymentMethod: "cash",
				})
				return err
			},
			field: "payment_date",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.run()
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, "InvalidDate", vErr.Code)
			assert.Equal(t, tc.field, vErr.Field)
		})
	}

	var invoices int64
	require.NoError(t, db.Model(&models.Invoice{}).Where("invoice_number LIKE ?", "INV-60_").Where("invoice_number <> ?", "INV-602").Count(&invoices).Error)
	assert.Zero(t, invoices, "rejected invoices must not persist")
}

func seedInvoice(t *testing.T, db *gorm.DB, companyID uint, number, status string) *models.Invoice {
	t.Helper()
	invoice := &models.Invoice{
		CompanyID:     companyID,
		CreatedBy:     1,
		InvoiceNumber: number,
		CustomerName:  "Customer " + number,
		Subtotal:      dec("100"),
		TaxAmount:     dec("10"),
		TotalAmount:   dec("110"),
		Status:        status,
	}
	require.NoError(t, db.Create(invoice).Error)
	return invoice
}

func TestGetScopedToCompany(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(db)

	invoice := seedInvoice(t, db, 1, "INV-100", models.StatusDraft)

	got, err := svc.Get(context.Background(), testPrincipal(1), invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, invoice.ID, got.ID)

	// The same id from another company reads as nonexistent.
	_, err = svc.Get(context.Background(), testPrincipal(2), invoice.ID)
	assert.ErrorIs(t, err, ErrInvoiceNotFound)

	_, err = svc.Get(context.Background(), testPrincipal(1), invoice.ID+999)
	assert.ErrorIs(t, err, ErrInvoiceNotFound)
}

func TestUpdateStatus(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(db)

	invoice := seedInvoice(t, db, 1, "INV-200", models.StatusDraft)

	t.Run("valid transition", func(t *testing.T) {
		updated, err := svc.UpdateStatus(context.Background(), testPrincipal(1), invoice.ID, models.StatusSent)
		require.NoError(t, err)
		assert.Equal(t, models.StatusSent, updated.Status)
	})

	t.Run("invalid status rejected", func(t *testing.T) {
		_, err := svc.UpdateStatus(context.Background(), testPrincipal(1), invoice.ID, "archived")
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "InvalidStatus", vErr.Code)
	})

	t.Run("paid back to draft is permitted", func(t *testing.T) {
		_, err := svc.UpdateStatus(context.Background(), testPrincipal(1), invoice.ID, models.StatusPaid)
		require.NoError(t, err)
		updated, err := svc.UpdateStatus(context.Background(), testPrincipal(1), invoice.ID, models.StatusDraft)
		require.NoError(t, err)
		assert.Equal(t, models.StatusDraft, updated.Status)
	})

	t.Run("cross company reads as not found", func(t *testing.T) {
		_, err := svc.UpdateStatus(context.Background(), testPrincipal(2), invoice.ID, models.StatusSent)
		assert.ErrorIs(t, err, ErrInvoiceNotFound)
	})
}

func TestRecordPayment(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(db)

	validInput := RecordPaymentInput{
		Amount:        dec("110"),
		PaymentDate:   "2024-02-01",
		PaymentMethod: "bank_transfer",
	}

	t.Run("success flips status and stores the row", func(t *testing.T) {
		invoice := seedInvoice(t, db, 1, "INV-300", models.StatusSent)

		result, err := svc.RecordPayment(context.Background(), testPrincipal(1), invoice.ID, validInput)
		require.NoError(t, err)
		assert.Equal(t, invoice.ID, result.InvoiceID)
		assert.Equal(t, models.StatusPaid, result.Status)
		assertDecimalEqual(t, dec("110"), result.PaidAmount)

		var stored models.Invoice
		require.NoError(t, db.First(&stored, invoice.ID).Error)
		assert.Equal(t, models.StatusPaid, stored.Status)

		var payments int64
		require.NoError(t, db.Model(&models.Payment{}).Where("invoice_id = ?", invoice.ID).Count(&payments).Error)
		assert.EqualValues(t, 1, payments)
	})

	t.Run("missing fields", func(t *testing.T) {
		invoice := seedInvoice(t, db, 1, "INV-301", models.StatusSent)

		cases := []struct {
			name  string
			input RecordPaymentInput
			field string
		}{
			{"no amount", RecordPaymentInput{PaymentDate: "2024-02-01", PaymentMethod: "cash"}, "amount"},
			{"no payment date", RecordPaymentInput{Amount: dec("10"), PaymentMethod: "cash"}, "payment_date"},
			{"whitespace payment date", RecordPaymentInput{Amount: dec("10"), PaymentDate: "   ", PaymentMethod: "cash"}, "payment_date"},
			{"no payment method", RecordPaymentInput{Amount: dec("10"), PaymentDate: "2024-02-01"}, "payment_method"},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				_, err := svc.RecordPayment(context.Background(), testPrincipal(1), invoice.ID, tc.input)
				var vErr *ValidationError
				require.ErrorAs(t, err, &vErr)
				assert.Equal(t, "MissingField", vErr.Code)
				assert.Equal(t, tc.field, vErr.Field)
			})
		}
	})

	t.Run("already paid conflicts", func(t *testing.T) {
		invoice := seedInvoice(t, db, 1, "INV-302", models.StatusPaid)

		_, err := svc.RecordPayment(context.Background(), testPrincipal(1), invoice.ID, validInput)
		assert.ErrorIs(t, err, ErrInvoiceAlreadyPaid)

		var payments int64
		require.NoError(t, db.Model(&models.Payment{}).Where("invoice_id = ?", invoice.ID).Count(&payments).Error)
		assert.Zero(t, payments, "a conflicting payment must not persist")
	})

	t.Run("cross company reads as not found", func(t *testing.T) {
		invoice := seedInvoice(t, db, 1, "INV-303", models.StatusSent)

		_, err := svc.RecordPayment(context.Background(), testPrincipal(2), invoice.ID, validInput)
		assert.ErrorIs(t, err, ErrInvoiceNotFound)
	})
}

func TestConcurrentPaymentsSingleWinner(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(db)

	invoice := seedInvoice(t, db, 1, "INV-400", models.StatusSent)

	input := RecordPaymentInput{
		Amount:        dec("110"),
		PaymentDate:   "2024-02-01",
		PaymentMethod: "card",
	}

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.RecordPayment(context.Background(), testPrincipal(1), invoice.ID, input)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var successes, conflicts int
	for err := range results {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, ErrInvoiceAlreadyPaid):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, successes, "exactly one payment may win")
	assert.Equal(t, 1, conflicts, "the loser must observe the conflict")

	var payments int64
	require.NoError(t, db.Model(&models.Payment{}).Where("invoice_id = ?", invoice.ID).Count(&payments).Error)
	assert.EqualValues(t, 1, payments)
}

func TestListPagination(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(db)

	for i := 1; i <= 25; i++ {
		seedInvoice(t, db, 1, fmt.Sprintf("INV-%03d", i), models.StatusDraft)
	}
	// Another tenant's invoices never leak into the count.
	seedInvoice(t, db, 2, "OTHER-001", models.StatusDraft)

	result, err := svc.List(context.Background(), testPrincipal(1), 2, 10, "")
	require.NoError(t, err)

	assert.Equal(t, 2, result.Page)
	assert.Equal(t, 10, result.Limit)
	assert.EqualValues(t, 25, result.Total)
	assert.Equal(t, 3, result.TotalPages)
	require.Len(t, result.Data, 10)

	// Newest first: page 2 starts after the ten highest ids.
	assert.Equal(t, uint(15), result.Data[0].ID)
	assert.Equal(t, uint(6), result.Data[9].ID)
	for i := 1; i < len(result.Data); i++ {
		assert.Greater(t, result.Data[i-1].ID, result.Data[i].ID)
	}
}

func TestListDefaultsAndSearch(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(db)

	seedInvoice(t, db, 1, "INV-500", models.StatusDraft)
	acme := seedInvoice(t, db, 1, "INV-501", models.StatusDraft)
	require.NoError(t, db.Model(acme).Update("customer_name", "ACME Industries").Error)

	t.Run("non numeric page and limit fall back to defaults", func(t *testing.T) {
		result, err := svc.List(context.Background(), testPrincipal(1), 0, -3, "")
		require.NoError(t, err)
		assert.Equal(t, 1, result.Page)
		assert.Equal(t, 10, result.Limit)
		assert.EqualValues(t, 2, result.Total)
	})

	t.Run("search matches customer name case-insensitively", func(t *testing.T) {
		result, err := svc.List(context.Background(), testPrincipal(1), 1, 10, "acme")
		require.NoError(t, err)
		require.Len(t, result.Data, 1)
		assert.Equal(t, "INV-501", result.Data[0].InvoiceNumber)
	})

	t.Run("search matches invoice number", func(t *testing.T) {
		result, err := svc.List(context.Background(), testPrincipal(1), 1, 10, "inv-500")
		require.NoError(t, err)
		require.Len(t, result.Data, 1)
		assert.Equal(t, "INV-500", result.Data[0].InvoiceNumber)
	})

	t.Run("no matches", func(t *testing.T) {
		result, err := svc.List(context.Background(), testPrincipal(1), 1, 10, "nothing")
		require.NoError(t, err)
		assert.Empty(t, result.Data)
		assert.Zero(t, result.Total)
		assert.Zero(t, result.TotalPages)
	})
}
