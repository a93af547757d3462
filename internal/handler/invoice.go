package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/vetcontrol/companion/internal/model"
	"github.com/vetcontrol/companion/internal/payments"
	"github.com/vetcontrol/companion/internal/store"
	"github.com/vetcontrol/companion/internal/websocket"
)

// InvoiceBackend is the slice of the clinic API the invoice handler needs.
type InvoiceBackend interface {
	MarkInvoicePaid(ctx context.Context, id, method string) (*model.Invoice, error)
}

type InvoiceHandler struct {
	invoices *store.InvoiceStore
	backend  InvoiceBackend
	payments *payments.Client
	hub      *websocket.Hub
	logger   *slog.Logger
}

func NewInvoiceHandler(invoices *store.InvoiceStore, backend InvoiceBackend, pay *payments.Client, hub *websocket.Hub, logger *slog.Logger) *InvoiceHandler {
	return &InvoiceHandler{invoices: invoices, backend: backend, payments: pay, hub: hub, logger: logger}
}

// List handles GET /api/invoices; ?status=unpaid narrows to payable ones.
func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	var (
		invoices []model.Invoice
		err      error
	)
	if r.URL.Query().Get("status") == "unpaid" {
		invoices, err = h.invoices.ListUnpaid()
	} else {
		invoices, err = h.invoices.List()
	}
	if err != nil {
		h.logger.Error("list invoices", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list invoices")
		return
	}
	writeJSON(w, http.StatusOK, invoices)
}

// PaymentSheet handles POST /api/invoices/{id}/payment-sheet
func (h *InvoiceHandler) PaymentSheet(w http.ResponseWriter, r *http.Request) {
	if h.payments == nil || !h.payments.Enabled() {
		writeError(w, http.StatusNotImplemented, "card payments not configured")
		return
	}

	inv, err := h.invoices.GetByID(r.PathValue("id"))
	if err != nil {
		h.logger.Error("get invoice", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get invoice")
		return
	}
	if inv == nil {
		writeError(w, http.StatusNotFound, "invoice not found")
		return
	}
	if inv.Status == model.InvoicePaid || inv.Status == model.InvoiceVoided {
		writeError(w, http.StatusConflict, "invoice is not payable")
		return
	}

	sheet, err := h.payments.CreatePaymentSheet(inv)
	if err != nil {
		h.logger.Error("create payment sheet", "invoice", inv.ID, "error", err)
		writeError(w, http.StatusBadGateway, "failed to create payment sheet")
		return
	}
	writeJSON(w, http.StatusOK, sheet)
}

type payRequest struct {
	Method string `json:"method"`
}

// Pay handles POST /api/invoices/{id}/pay. The UI calls this after the
// payment sheet confirms; we report the payment to the backend and update
// the cache with the record it returns.
func (h *InvoiceHandler) Pay(w http.ResponseWriter, r *http.Request) {
	var req payRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Method == "" {
		req.Method = "card"
	}

	id := r.PathValue("id")
	paid, err := h.backend.MarkInvoicePaid(r.Context(), id, req.Method)
	if err != nil {
		writeBackendError(w, h.logger, err)
		return
	}

	if err := h.invoices.Upsert(paid); err != nil {
		h.logger.Error("cache paid invoice", "invoice", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update invoice")
		return
	}

	if h.hub != nil {
		h.hub.Broadcast(websocket.NewMessage("invoice", "paid", id, nil))
	}
	writeJSON(w, http.StatusOK, paid)
}
