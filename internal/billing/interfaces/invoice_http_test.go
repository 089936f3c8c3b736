package interfaces

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	billingapp "meterbill/internal/billing/application"
	billingmem "meterbill/internal/billing/infrastructure/memory"
	metering "meterbill/internal/metering/domain"
	meteringmem "meterbill/internal/metering/infrastructure/memory"
	tariff "meterbill/internal/tariff/domain"
	tariffmem "meterbill/internal/tariff/infrastructure/memory"
)

var (
	baselineStart = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	baselineEnd   = time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)
	periodStart   = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	periodEnd     = time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC)
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("decimal %q: %v", s, err)
	}
	return d
}

func newHandler(t *testing.T) (*InvoiceHandler, *tariffmem.TariffRepository, *meteringmem.MeterRepository) {
	t.Helper()
	tariffs := tariffmem.NewTariffRepository()
	meters := meteringmem.NewMeterRepository()
	readings := meteringmem.NewReadingRepository()
	invoices := billingmem.NewInvoiceRepository()

	cfg, err := billingapp.LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	svc, err := billingapp.NewInvoiceService(invoices, tariffs, meters, readings, nil, &fakeClock{now: periodEnd}, cfg, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	handler, err := NewInvoiceHandler(svc, nil)
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	return handler, tariffs, meters
}

func seedEconomySeven(t *testing.T, tariffs *tariffmem.TariffRepository, meters *meteringmem.MeterRepository) *tariff.Tariff {
	t.Helper()
	trf, err := tariff.NewDayNightElectricityTariff("Economy 7",
		dec(t, "19.349"), dec(t, "19.349"), dec(t, "22.63"), dec(t, "0.05"), periodStart)
	if err != nil {
		t.Fatalf("new tariff: %v", err)
	}
	if err := tariffs.Save(context.Background(), trf); err != nil {
		t.Fatalf("save tariff: %v", err)
	}
	m, err := metering.NewMeter("ELEC-1", tariff.MeterTypeElectricity, periodStart.AddDate(-1, 0, 0))
	if err != nil {
		t.Fatalf("new meter: %v", err)
	}
	m.DayNight = true
	if err := meters.Save(context.Background(), m); err != nil {
		t.Fatalf("save meter: %v", err)
	}
	return trf
}

func postJSON(t *testing.T, handler http.Handler, path string, body map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func recordRegisters(t *testing.T, handler http.Handler, day, night string, start, end time.Time) string {
	t.Helper()
	rec := postJSON(t, handler, "/api/v1/readings", map[string]string{
		"meter_id":     "ELEC-1",
		"day_value":    day,
		"night_value":  night,
		"period_start": start.Format(time.RFC3339),
		"period_end":   end.Format(time.RFC3339),
		"kind":         "smart",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("record reading: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var reading struct {
		ID string `json:"ID"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &reading); err != nil {
		t.Fatalf("decode reading: %v", err)
	}
	return reading.ID
}

func TestReadingAndInvoiceOverHTTP(t *testing.T) {
	handler, tariffs, meters := newHandler(t)
	trf := seedEconomySeven(t, tariffs, meters)

	recordRegisters(t, handler, "1000", "500", baselineStart, baselineEnd)
	readingID := recordRegisters(t, handler, "1236.212", "546.050", periodStart, periodEnd)

	rec := postJSON(t, handler, "/api/v1/invoices", map[string]string{
		"customer_id": "CUST-100",
		"tariff_id":   trf.ID.String(),
		"reading_id":  readingID,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("generate invoice: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var invoice struct {
		ID          string `json:"ID"`
		TotalAmount string `json:"TotalAmount"`
		Status      string `json:"Status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &invoice); err != nil {
		t.Fatalf("decode invoice: %v", err)
	}
	if invoice.TotalAmount != "65.18" {
		t.Fatalf("expected total 65.18, got %s", invoice.TotalAmount)
	}

	// Second generation against the same reading must conflict.
	rec = postJSON(t, handler, "/api/v1/invoices", map[string]string{
		"customer_id": "CUST-100",
		"tariff_id":   trf.ID.String(),
		"reading_id":  readingID,
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 on rebilled reading, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/invoices/"+invoice.ID, nil)
	getRec := httptest.NewRecorder()
	handler.ServeHTTP(getRec, req)
	if getRec.Code != http.StatusOK {
		t.Fatalf("get invoice: expected 200, got %d", getRec.Code)
	}

	rec = postJSON(t, handler, "/api/v1/invoices/"+invoice.ID+"/cancel", map[string]string{
		"reason": "duplicate bill",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("cancel: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	rec = postJSON(t, handler, "/api/v1/invoices/"+invoice.ID+"/cancel", map[string]string{
		"reason": "again",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("second cancel: expected 409, got %d", rec.Code)
	}
}

func TestInvoiceExportOverHTTP(t *testing.T) {
	handler, tariffs, meters := newHandler(t)
	trf := seedEconomySeven(t, tariffs, meters)

	recordRegisters(t, handler, "1000", "500", baselineStart, baselineEnd)
	readingID := recordRegisters(t, handler, "1236.212", "546.050", periodStart, periodEnd)
	rec := postJSON(t, handler, "/api/v1/invoices", map[string]string{
		"customer_id": "CUST-100",
		"tariff_id":   trf.ID.String(),
		"reading_id":  readingID,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("generate invoice: %d", rec.Code)
	}
	var invoice struct {
		ID string `json:"ID"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &invoice); err != nil {
		t.Fatalf("decode invoice: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/invoices/"+invoice.ID+"/export.pdf", nil)
	pdfRec := httptest.NewRecorder()
	handler.ServeHTTP(pdfRec, req)
	if pdfRec.Code != http.StatusOK {
		t.Fatalf("export pdf: expected 200, got %d", pdfRec.Code)
	}
	if !strings.HasPrefix(pdfRec.Body.String(), "%PDF") {
		t.Fatal("pdf export must start with %PDF header")
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/invoices/"+invoice.ID+"/export.xlsx", nil)
	xlsxRec := httptest.NewRecorder()
	handler.ServeHTTP(xlsxRec, req)
	if xlsxRec.Code != http.StatusOK {
		t.Fatalf("export xlsx: expected 200, got %d", xlsxRec.Code)
	}
	if xlsxRec.Body.Len() == 0 {
		t.Fatal("xlsx export must not be empty")
	}
}

func TestUnknownInvoiceReturns404(t *testing.T) {
	handler, _, _ := newHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/invoices/7b3e8f1e-ffb6-4c2a-a2bb-111111111111", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
