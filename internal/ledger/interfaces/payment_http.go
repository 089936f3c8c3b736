package interfaces

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"meterbill/internal/audit"
	billing "meterbill/internal/billing/domain"
	ledgerapp "meterbill/internal/ledger/application"
	ledger "meterbill/internal/ledger/domain"
)

// PaymentHandler provides payment and account HTTP endpoints.
type PaymentHandler struct {
	service *ledgerapp.PaymentService
	auditor audit.Logger
}

// NewPaymentHandler constructs a handler. The auditor may be nil.
func NewPaymentHandler(service *ledgerapp.PaymentService, auditor audit.Logger) (*PaymentHandler, error) {
	if service == nil {
		return nil, errors.New("payment handler: nil service")
	}
	return &PaymentHandler{service: service, auditor: auditor}, nil
}

func (h *PaymentHandler) audit(r *http.Request, action, resourceID, customerID string) {
	if h.auditor == nil {
		return
	}
	_ = h.auditor.Log(r.Context(), audit.Entry{
		Actor:        r.Header.Get("X-Actor"),
		Action:       action,
		ResourceType: audit.ResourcePayment,
		ResourceID:   resourceID,
		CustomerID:   customerID,
		IP:           r.RemoteAddr,
		UserAgent:    r.UserAgent(),
	})
}

// ServeHTTP handles /api/v1/payments, /api/v1/accounts and subroutes.
func (h *PaymentHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/api/v1/payments":
		switch r.Method {
		case http.MethodPost:
			h.handleRecord(w, r)
		case http.MethodGet:
			h.handleList(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case strings.HasPrefix(r.URL.Path, "/api/v1/payments/"):
		h.handleAction(w, r)
	case strings.HasPrefix(r.URL.Path, "/api/v1/accounts/"):
		h.handleAccount(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type recordPaymentRequest struct {
	CustomerID string `json:"customer_id"`
	InvoiceID  string `json:"invoice_id"`
	Amount     string `json:"amount"`
	Method     string `json:"method"`
}

func (h *PaymentHandler) handleRecord(w http.ResponseWriter, r *http.Request) {
	var req recordPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		http.Error(w, "amount must be a decimal", http.StatusBadRequest)
		return
	}
	input := ledgerapp.RecordPaymentInput{
		CustomerID: req.CustomerID,
		Amount:     amount,
		Method:     ledger.PaymentMethod(req.Method),
	}
	if req.InvoiceID != "" {
		invoiceID, err := uuid.Parse(req.InvoiceID)
		if err != nil {
			http.Error(w, "invoice_id must be a uuid", http.StatusBadRequest)
			return
		}
		input.InvoiceID = &invoiceID
	}

	payment, err := h.service.RecordPayment(r.Context(), input)
	if err != nil {
		respondError(w, err)
		return
	}
	h.audit(r, "payment.record", payment.ID.String(), payment.CustomerID)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(payment)
}

func (h *PaymentHandler) handleList(w http.ResponseWriter, r *http.Request) {
	customerID := r.URL.Query().Get("customer_id")
	if customerID == "" {
		http.Error(w, "customer_id is required", http.StatusBadRequest)
		return
	}
	payments, err := h.service.ListCustomerPayments(r.Context(), customerID)
	if err != nil {
		respondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payments)
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

func (h *PaymentHandler) handleAction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/payments/")
	parts := strings.Split(path, "/")
	if len(parts) != 2 {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	id, err := uuid.Parse(parts[0])
	if err != nil {
		http.Error(w, "payment id must be a uuid", http.StatusBadRequest)
		return
	}
	var req reasonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	var payment *ledger.Payment
	switch parts[1] {
	case "refund":
		payment, err = h.service.RefundPayment(r.Context(), id, req.Reason)
	case "fail":
		payment, err = h.service.FailPayment(r.Context(), id, req.Reason)
	default:
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if err != nil {
		respondError(w, err)
		return
	}
	h.audit(r, "payment."+parts[1], payment.ID.String(), payment.CustomerID)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payment)
}

type debtResponse struct {
	CustomerID string `json:"customer_id"`
	InDebt     bool   `json:"in_debt"`
	DebtAmount string `json:"debt_amount"`
}

func (h *PaymentHandler) handleAccount(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/accounts/")
	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[1] != "debt" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	customerID := parts[0]

	inDebt, amount, err := h.service.CustomerDebt(r.Context(), customerID)
	if err != nil {
		respondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(debtResponse{
		CustomerID: customerID,
		InDebt:     inDebt,
		DebtAmount: amount.StringFixed(2),
	})
}

func respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrPaymentNotFound),
		errors.Is(err, ledger.ErrAccountNotFound),
		errors.Is(err, billing.ErrInvoiceNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ledger.ErrPaymentNotCompleted),
		errors.Is(err, billing.ErrInvoiceCancelled),
		errors.Is(err, billing.ErrInvoiceDisputed):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusBadRequest)
	}
}
