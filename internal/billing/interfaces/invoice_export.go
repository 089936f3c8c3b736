package interfaces

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	billing "meterbill/internal/billing/domain"
)

var hundred = decimal.NewFromInt(100)

// BuildInvoicePDF renders a minimal PDF for an invoice, including the gas
// conversion audit trail and the day/night breakdown when present.
func BuildInvoicePDF(inv *billing.Invoice) ([]byte, error) {
	if inv == nil {
		return nil, billing.ErrNilInvoice
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Energy Invoice")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Invoice: %s (%s)", invoiceReference(inv), inv.ID))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Customer: %s", inv.CustomerID))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Fuel: %s", inv.MeterType))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Period: %s to %s (%d days)",
		inv.PeriodStart.Format("2006-01-02"), inv.PeriodEnd.Format("2006-01-02"), inv.BillingDays))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Due: %s", inv.DueDate.Format("2006-01-02")))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Status: %s", inv.Status))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Issued: %s", inv.CreatedAt.Format(time.RFC3339)))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 10)
	pdf.Cell(0, 6, "Consumption")
	pdf.Ln(6)
	pdf.SetFont("Arial", "", 10)
	if inv.Consumption.Gas {
		pdf.Cell(0, 6, fmt.Sprintf("Meter units: %s", inv.Consumption.MeterUnits.StringFixed(3)))
		pdf.Ln(5)
		pdf.Cell(0, 6, fmt.Sprintf("Volume (m3): %s", inv.Consumption.CubicMeters.StringFixed(3)))
		pdf.Ln(5)
		pdf.Cell(0, 6, fmt.Sprintf("Corrected volume: %s", inv.Consumption.CorrectedVolume.StringFixed(3)))
		pdf.Ln(5)
		pdf.Cell(0, 6, fmt.Sprintf("Energy (kWh): %s", inv.Consumption.KWh.StringFixed(2)))
		pdf.Ln(5)
	} else if inv.Consumption.HasRegisters {
		pdf.Cell(0, 6, fmt.Sprintf("Day (kWh): %s at %sp", inv.Consumption.DayUnits.StringFixed(3), inv.UnitRate))
		pdf.Ln(5)
		pdf.Cell(0, 6, fmt.Sprintf("Night (kWh): %s at %sp", inv.Consumption.NightUnits.StringFixed(3), inv.NightRate))
		pdf.Ln(5)
	} else {
		pdf.Cell(0, 6, fmt.Sprintf("Units (kWh): %s at %sp", inv.Consumption.Units.StringFixed(3), inv.UnitRate))
		pdf.Ln(5)
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(90, 6, "Charge", "1", 0, "L", false, 0, "")
	pdf.CellFormat(50, 6, "Amount (GBP)", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	rows := []struct {
		label  string
		amount string
	}{
		{"Unit cost", inv.UnitCost.StringFixed(2)},
		{fmt.Sprintf("Standing charge (%sp x %d days)", inv.StandingChargePence, inv.BillingDays), inv.StandingChargeTotal.StringFixed(2)},
		{"Subtotal", inv.Subtotal.StringFixed(2)},
		{fmt.Sprintf("VAT (%s, %s)", inv.VATRate.Mul(hundred).StringFixed(0)+"%", inv.VATMode), inv.VATAmount.StringFixed(2)},
		{"Total", inv.TotalAmount.StringFixed(2)},
		{"Paid", inv.AmountPaid.StringFixed(2)},
		{"Balance due", inv.BalanceDue.StringFixed(2)},
	}
	for _, row := range rows {
		pdf.CellFormat(90, 6, row.label, "1", 0, "L", false, 0, "")
		pdf.CellFormat(50, 6, row.amount, "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildInvoiceXLSX renders a minimal XLSX for an invoice.
func BuildInvoiceXLSX(inv *billing.Invoice) ([]byte, error) {
	if inv == nil {
		return nil, billing.ErrNilInvoice
	}
	f := excelize.NewFile()
	summarySheet := "summary"
	chargesSheet := "charges"
	f.SetSheetName("Sheet1", summarySheet)
	f.NewSheet(chargesSheet)

	_ = f.SetCellValue(summarySheet, "A1", "Energy Invoice")
	_ = f.SetCellValue(summarySheet, "A3", "Invoice")
	_ = f.SetCellValue(summarySheet, "B3", invoiceReference(inv))
	_ = f.SetCellValue(summarySheet, "A4", "Customer")
	_ = f.SetCellValue(summarySheet, "B4", inv.CustomerID)
	_ = f.SetCellValue(summarySheet, "A5", "Fuel")
	_ = f.SetCellValue(summarySheet, "B5", string(inv.MeterType))
	_ = f.SetCellValue(summarySheet, "A6", "Period Start")
	_ = f.SetCellValue(summarySheet, "B6", inv.PeriodStart.Format("2006-01-02"))
	_ = f.SetCellValue(summarySheet, "A7", "Period End")
	_ = f.SetCellValue(summarySheet, "B7", inv.PeriodEnd.Format("2006-01-02"))
	_ = f.SetCellValue(summarySheet, "A8", "Billing Days")
	_ = f.SetCellValue(summarySheet, "B8", inv.BillingDays)
	_ = f.SetCellValue(summarySheet, "A9", "Due Date")
	_ = f.SetCellValue(summarySheet, "B9", inv.DueDate.Format("2006-01-02"))
	_ = f.SetCellValue(summarySheet, "A10", "Status")
	_ = f.SetCellValue(summarySheet, "B10", inv.Status)

	row := 12
	if inv.Consumption.Gas {
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), "Meter Units")
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), inv.Consumption.MeterUnits.StringFixed(3))
		row++
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), "Volume (m3)")
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), inv.Consumption.CubicMeters.StringFixed(3))
		row++
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), "Corrected Volume")
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), inv.Consumption.CorrectedVolume.StringFixed(3))
		row++
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), "Energy (kWh)")
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), inv.Consumption.KWh.StringFixed(2))
	} else if inv.Consumption.HasRegisters {
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), "Day (kWh)")
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), inv.Consumption.DayUnits.StringFixed(3))
		row++
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), "Night (kWh)")
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), inv.Consumption.NightUnits.StringFixed(3))
	} else {
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), "Units (kWh)")
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), inv.Consumption.Units.StringFixed(3))
	}

	_ = f.SetCellValue(chargesSheet, "A1", "Charge")
	_ = f.SetCellValue(chargesSheet, "B1", "Amount (GBP)")
	charges := []struct {
		label  string
		amount string
	}{
		{"Unit cost", inv.UnitCost.StringFixed(2)},
		{"Standing charge", inv.StandingChargeTotal.StringFixed(2)},
		{"Subtotal", inv.Subtotal.StringFixed(2)},
		{"VAT", inv.VATAmount.StringFixed(2)},
		{"Total", inv.TotalAmount.StringFixed(2)},
		{"Paid", inv.AmountPaid.StringFixed(2)},
		{"Balance due", inv.BalanceDue.StringFixed(2)},
	}
	for i, charge := range charges {
		r := i + 2
		_ = f.SetCellValue(chargesSheet, fmt.Sprintf("A%d", r), charge.label)
		_ = f.SetCellValue(chargesSheet, fmt.Sprintf("B%d", r), charge.amount)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// invoiceReference falls back to the raw id for invoices stored before
// references were assigned.
func invoiceReference(inv *billing.Invoice) string {
	if inv.Reference != "" {
		return inv.Reference
	}
	return inv.ID.String()
}
