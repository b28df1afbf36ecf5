package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/billing-saas/middleware"
	"github.com/yourusername/billing-saas/services"
)

type InvoiceHandler struct {
	invoices *services.InvoiceService
}

func NewInvoiceHandler(invoices *services.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{invoices: invoices}
}

// Create builds an invoice with its line items from the request body.
// Tenant and author come from the verified token, never from the body.
func (h *InvoiceHandler) Create(c *gin.Context) {
	principal, ok := middleware.CurrentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var input services.CreateInvoiceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	invoice, err := h.invoices.Create(c.Request.Context(), principal, input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"invoice_id":   invoice.ID,
		"subtotal":     invoice.Subtotal,
		"tax_amount":   invoice.TaxAmount,
		"total_amount": invoice.TotalAmount,
	})
}

// List returns a paginated, searchable page of the company's invoices.
// Non-numeric page/limit values fall back to the defaults.
func (h *InvoiceHandler) List(c *gin.Context) {
	principal, ok := middleware.CurrentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	page, err := strconv.Atoi(c.Query("page"))
	if err != nil {
		page = 1
	}
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil {
		limit = 10
	}
	search := c.Query("search")

	result, err := h.invoices.List(c.Request.Context(), principal, page, limit, search)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *InvoiceHandler) Get(c *gin.Context) {
	principal, ok := middleware.CurrentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	invoiceID, ok := parseInvoiceID(c)
	if !ok {
		return
	}

	invoice, err := h.invoices.Get(c.Request.Context(), principal, invoiceID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"invoice": invoice,
		"items":   invoice.Items,
	})
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *InvoiceHandler) UpdateStatus(c *gin.Context) {
	principal, ok := middleware.CurrentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	invoiceID, ok := parseInvoiceID(c)
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	invoice, err := h.invoices.UpdateStatus(c.Request.Context(), principal, invoiceID, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, invoice)
}

func (h *InvoiceHandler) RecordPayment(c *gin.Context) {
	principal, ok := middleware.CurrentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	invoiceID, ok := parseInvoiceID(c)
	if !ok {
		return
	}

	var input services.RecordPaymentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.invoices.RecordPayment(c.Request.Context(), principal, invoiceID, input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// parseInvoiceID reads the :id path param. A value that is not a positive
// integer cannot name an invoice in any tenant, so it reads as not found
// rather than as a distinct validation failure.
func parseInvoiceID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Invoice not found", "code": "NotFound"})
		return 0, false
	}
	return uint(id), true
}
