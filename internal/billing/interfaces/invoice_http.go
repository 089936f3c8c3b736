package interfaces

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"meterbill/internal/audit"
	billingapp "meterbill/internal/billing/application"
	billing "meterbill/internal/billing/domain"
	metering "meterbill/internal/metering/domain"
	"meterbill/internal/observability/metrics"
	tariff "meterbill/internal/tariff/domain"
)

const timeLayout = time.RFC3339

// InvoiceHandler provides reading and invoice HTTP endpoints.
type InvoiceHandler struct {
	service *billingapp.InvoiceService
	auditor audit.Logger
}

// NewInvoiceHandler constructs a handler. The auditor may be nil.
func NewInvoiceHandler(service *billingapp.InvoiceService, auditor audit.Logger) (*InvoiceHandler, error) {
	if service == nil {
		return nil, errors.New("invoice handler: nil service")
	}
	return &InvoiceHandler{service: service, auditor: auditor}, nil
}

func (h *InvoiceHandler) audit(r *http.Request, action, resourceType, resourceID, customerID string) {
	if h.auditor == nil {
		return
	}
	_ = h.auditor.Log(r.Context(), audit.Entry{
		Actor:        r.Header.Get("X-Actor"),
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		CustomerID:   customerID,
		IP:           r.RemoteAddr,
		UserAgent:    r.UserAgent(),
	})
}

// ServeHTTP handles /api/v1/readings, /api/v1/meters, /api/v1/tariffs,
// /api/v1/invoices and subroutes.
func (h *InvoiceHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/api/v1/readings":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleRecordReading(w, r)
	case r.URL.Path == "/api/v1/meters":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleRegisterMeter(w, r)
	case r.URL.Path == "/api/v1/tariffs":
		switch r.Method {
		case http.MethodPost:
			h.handleCreateTariff(w, r)
		case http.MethodGet:
			h.handleListTariffs(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case r.URL.Path == "/api/v1/invoices":
		switch r.Method {
		case http.MethodPost:
			h.handleGenerate(w, r)
		case http.MethodGet:
			h.handleList(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case strings.HasPrefix(r.URL.Path, "/api/v1/invoices/"):
		h.handleInvoiceSubroute(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type recordReadingRequest struct {
	MeterID     string `json:"meter_id"`
	Value       string `json:"value"`
	DayValue    string `json:"day_value"`
	NightValue  string `json:"night_value"`
	PeriodStart string `json:"period_start"`
	PeriodEnd   string `json:"period_end"`
	Kind        string `json:"kind"`
}

func (h *InvoiceHandler) handleRecordReading(w http.ResponseWriter, r *http.Request) {
	var req recordReadingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	periodStart, err := time.Parse(timeLayout, req.PeriodStart)
	if err != nil {
		http.Error(w, "period_start must be RFC3339", http.StatusBadRequest)
		return
	}
	periodEnd, err := time.Parse(timeLayout, req.PeriodEnd)
	if err != nil {
		http.Error(w, "period_end must be RFC3339", http.StatusBadRequest)
		return
	}
	kind := metering.ReadingKind(req.Kind)
	if kind == "" {
		kind = metering.ReadingActual
	}

	var reading *metering.MeterReading
	if req.DayValue != "" || req.NightValue != "" {
		day, err := decimal.NewFromString(req.DayValue)
		if err != nil {
			http.Error(w, "day_value must be a decimal", http.StatusBadRequest)
			return
		}
		night, err := decimal.NewFromString(req.NightValue)
		if err != nil {
			http.Error(w, "night_value must be a decimal", http.StatusBadRequest)
			return
		}
		reading, err = h.service.RecordDayNightReading(r.Context(), req.MeterID, day, night, periodStart.UTC(), periodEnd.UTC(), kind)
		if err != nil {
			respondError(w, err)
			return
		}
	} else {
		value, err := decimal.NewFromString(req.Value)
		if err != nil {
			http.Error(w, "value must be a decimal", http.StatusBadRequest)
			return
		}
		reading, err = h.service.RecordReading(r.Context(), req.MeterID, value, periodStart.UTC(), periodEnd.UTC(), kind)
		if err != nil {
			respondError(w, err)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(reading)
}

type registerMeterRequest struct {
	MeterID     string `json:"meter_id"`
	MeterType   string `json:"meter_type"`
	DayNight    bool   `json:"day_night"`
	Imperial    bool   `json:"imperial"`
	InstalledAt string `json:"installed_at"`
}

func (h *InvoiceHandler) handleRegisterMeter(w http.ResponseWriter, r *http.Request) {
	var req registerMeterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	installedAt, err := time.Parse(timeLayout, req.InstalledAt)
	if err != nil {
		http.Error(w, "installed_at must be RFC3339", http.StatusBadRequest)
		return
	}

	meter, err := h.service.RegisterMeter(r.Context(), req.MeterID, tariff.MeterType(req.MeterType), req.DayNight, req.Imperial, installedAt.UTC())
	if err != nil {
		respondError(w, err)
		return
	}
	h.audit(r, "meter.register", audit.ResourceMeter, meter.ID, "")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(meter)
}

type createTariffRequest struct {
	Name             string `json:"name"`
	Mode             string `json:"mode"`
	UnitRate         string `json:"unit_rate"`
	NightRate        string `json:"night_rate"`
	Threshold        string `json:"threshold"`
	Tier2Rate        string `json:"tier2_rate"`
	StandingCharge   string `json:"standing_charge_pence"`
	VATRate          string `json:"vat_rate"`
	ValidFrom        string `json:"valid_from"`
	CalorificValue   string `json:"calorific_value"`
	CorrectionFactor string `json:"correction_factor"`
}

func (h *InvoiceHandler) handleCreateTariff(w http.ResponseWriter, r *http.Request) {
	var req createTariffRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	validFrom, err := time.Parse(timeLayout, req.ValidFrom)
	if err != nil {
		http.Error(w, "valid_from must be RFC3339", http.StatusBadRequest)
		return
	}

	input := billingapp.CreateTariffInput{
		Name:      req.Name,
		Mode:      req.Mode,
		ValidFrom: validFrom.UTC(),
	}
	fields := []struct {
		name string
		raw  string
		dest *decimal.Decimal
	}{
		{"unit_rate", req.UnitRate, &input.UnitRate},
		{"night_rate", req.NightRate, &input.NightRate},
		{"threshold", req.Threshold, &input.Threshold},
		{"tier2_rate", req.Tier2Rate, &input.Tier2Rate},
		{"standing_charge_pence", req.StandingCharge, &input.StandingChargePence},
	}
	for _, field := range fields {
		if field.raw == "" {
			continue
		}
		parsed, err := decimal.NewFromString(field.raw)
		if err != nil {
			http.Error(w, field.name+" must be a decimal", http.StatusBadRequest)
			return
		}
		*field.dest = parsed
	}
	if req.VATRate != "" {
		vat, err := decimal.NewFromString(req.VATRate)
		if err != nil {
			http.Error(w, "vat_rate must be a decimal", http.StatusBadRequest)
			return
		}
		input.VATRate = &vat
	}
	if req.CalorificValue != "" || req.CorrectionFactor != "" {
		calorific, err := decimal.NewFromString(req.CalorificValue)
		if err != nil {
			http.Error(w, "calorific_value must be a decimal", http.StatusBadRequest)
			return
		}
		correction, err := decimal.NewFromString(req.CorrectionFactor)
		if err != nil {
			http.Error(w, "correction_factor must be a decimal", http.StatusBadRequest)
			return
		}
		cal, err := tariff.NewGasCalibration(calorific, correction)
		if err != nil {
			respondError(w, err)
			return
		}
		input.Gas = &cal
	}

	trf, err := h.service.CreateTariff(r.Context(), input)
	if err != nil {
		respondError(w, err)
		return
	}
	h.audit(r, "tariff.create", audit.ResourceTariff, trf.ID.String(), "")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(trf)
}

func (h *InvoiceHandler) handleListTariffs(w http.ResponseWriter, r *http.Request) {
	meterType := r.URL.Query().Get("meter_type")
	if meterType == "" {
		http.Error(w, "meter_type is required", http.StatusBadRequest)
		return
	}
	tariffs, err := h.service.ListActiveTariffs(r.Context(), tariff.MeterType(meterType))
	if err != nil {
		respondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(tariffs)
}

type generateInvoiceRequest struct {
	CustomerID       string `json:"customer_id"`
	TariffID         string `json:"tariff_id"`
	ReadingID        string `json:"reading_id"`
	VATMode          string `json:"vat_mode"`
	UnitCostOverride string `json:"unit_cost_override"`
}

func (h *InvoiceHandler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	tariffID, err := uuid.Parse(req.TariffID)
	if err != nil {
		http.Error(w, "tariff_id must be a uuid", http.StatusBadRequest)
		return
	}
	readingID, err := uuid.Parse(req.ReadingID)
	if err != nil {
		http.Error(w, "reading_id must be a uuid", http.StatusBadRequest)
		return
	}
	input := billingapp.GenerateInvoiceInput{
		CustomerID: req.CustomerID,
		TariffID:   tariffID,
		ReadingID:  readingID,
		VATMode:    billing.VATMode(req.VATMode),
	}
	if req.UnitCostOverride != "" {
		override, err := decimal.NewFromString(req.UnitCostOverride)
		if err != nil {
			http.Error(w, "unit_cost_override must be a decimal", http.StatusBadRequest)
			return
		}
		input.UnitCostOverride = &override
	}

	invoice, err := h.service.GenerateInvoice(r.Context(), input)
	if err != nil {
		respondError(w, err)
		return
	}
	h.audit(r, "invoice.generate", audit.ResourceInvoice, invoice.ID.String(), invoice.CustomerID)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(invoice)
}

func (h *InvoiceHandler) handleList(w http.ResponseWriter, r *http.Request) {
	customerID := r.URL.Query().Get("customer_id")
	if customerID == "" {
		http.Error(w, "customer_id is required", http.StatusBadRequest)
		return
	}
	invoices, err := h.service.ListCustomerInvoices(r.Context(), customerID)
	if err != nil {
		respondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(invoices)
}

func (h *InvoiceHandler) handleInvoiceSubroute(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/invoices/")
	parts := strings.Split(path, "/")
	id, err := uuid.Parse(parts[0])
	if err != nil {
		http.Error(w, "invoice id must be a uuid", http.StatusBadRequest)
		return
	}

	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		invoice, err := h.service.GetInvoice(r.Context(), id)
		if err != nil {
			respondError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(invoice)
		return
	}
	if len(parts) != 2 {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch parts[1] {
	case "cancel":
		h.handleStatusAction(w, r, id, billing.StatusCancelled)
	case "dispute":
		h.handleStatusAction(w, r, id, billing.StatusDisputed)
	case "export.pdf":
		h.handleExport(w, r, id, "pdf")
	case "export.xlsx":
		h.handleExport(w, r, id, "xlsx")
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

func (h *InvoiceHandler) handleStatusAction(w http.ResponseWriter, r *http.Request, id uuid.UUID, target string) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req reasonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	var (
		invoice *billing.Invoice
		err     error
	)
	switch target {
	case billing.StatusCancelled:
		invoice, err = h.service.CancelInvoice(r.Context(), id, req.Reason)
	case billing.StatusDisputed:
		invoice, err = h.service.DisputeInvoice(r.Context(), id, req.Reason)
	}
	if err != nil {
		respondError(w, err)
		return
	}
	h.audit(r, "invoice."+target, audit.ResourceInvoice, invoice.ID.String(), invoice.CustomerID)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(invoice)
}

func (h *InvoiceHandler) handleExport(w http.ResponseWriter, r *http.Request, id uuid.UUID, format string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	started := time.Now()
	invoice, err := h.service.GetInvoice(r.Context(), id)
	if err != nil {
		metrics.ObserveInvoiceExport(format, metrics.ResultError, time.Since(started))
		respondError(w, err)
		return
	}

	var payload []byte
	switch format {
	case "pdf":
		payload, err = BuildInvoicePDF(invoice)
		w.Header().Set("Content-Type", "application/pdf")
	case "xlsx":
		payload, err = BuildInvoiceXLSX(invoice)
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	}
	if err != nil {
		metrics.ObserveInvoiceExport(format, metrics.ResultError, time.Since(started))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	metrics.ObserveInvoiceExport(format, metrics.ResultSuccess, time.Since(started))
	w.Header().Set("Content-Disposition", "attachment; filename=invoice-"+id.String()+"."+format)
	_, _ = w.Write(payload)
}

// respondError maps domain errors onto HTTP status codes: lookups to 404,
// state conflicts to 409, everything else to 400.
func respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, billing.ErrInvoiceNotFound),
		errors.Is(err, tariff.ErrTariffNotFound),
		errors.Is(err, metering.ErrMeterNotFound),
		errors.Is(err, metering.ErrReadingNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, billing.ErrInvoiceCancelled),
		errors.Is(err, billing.ErrInvoiceDisputed),
		errors.Is(err, billing.ErrInvoicePaid),
		errors.Is(err, metering.ErrAlreadyBilled),
		errors.Is(err, tariff.ErrTariffInactive):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusBadRequest)
	}
}
