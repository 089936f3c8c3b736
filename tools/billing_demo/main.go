package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/shopspring/decimal"

	billingapp "meterbill/internal/billing/application"
	billingmem "meterbill/internal/billing/infrastructure/memory"
	billinghttp "meterbill/internal/billing/interfaces"
	"meterbill/internal/eventstream"
	ledgerapp "meterbill/internal/ledger/application"
	ledger "meterbill/internal/ledger/domain"
	ledgermem "meterbill/internal/ledger/infrastructure/memory"
	metering "meterbill/internal/metering/domain"
	meteringmem "meterbill/internal/metering/infrastructure/memory"
	tariff "meterbill/internal/tariff/domain"
	tariffmem "meterbill/internal/tariff/infrastructure/memory"
)

// This example walks the full billing flow on in-memory repositories:
// 1. Register tariffs and meters
// 2. Record meter readings (day/night electricity, imperial gas)
// 3. Generate invoices from the readings
// 4. Record payments until the invoice settles
// 5. Check the customer's account position

func main() {
	logger := log.New(os.Stdout, "", 0)
	ctx := context.Background()

	tariffs := tariffmem.NewTariffRepository()
	meters := meteringmem.NewMeterRepository()
	readings := meteringmem.NewReadingRepository()
	invoices := billingmem.NewInvoiceRepository()
	payments := ledgermem.NewPaymentRepository()
	accounts := ledgermem.NewAccountRepository()
	publisher := eventstream.NewLoggingPublisher(logger)

	cfg, err := billingapp.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}
	invoiceService, err := billingapp.NewInvoiceService(invoices, tariffs, meters, readings, publisher, billingapp.SystemClock{}, cfg, logger)
	if err != nil {
		log.Fatal(err)
	}
	paymentService, err := ledgerapp.NewPaymentService(payments, accounts, invoices, publisher, ledgerapp.SystemClock{}, logger)
	if err != nil {
		log.Fatal(err)
	}

	periodStart := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	periodEnd := time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC)

	fmt.Println("=== Meter Billing - Complete Flow Example ===")
	fmt.Println()

	// Step 1: Tariffs and meters
	fmt.Println("Step 1: Registering Tariffs and Meters")
	fmt.Println("--------------------------------------")

	// VAT comes from the configured default on both tariffs.
	economySeven, err := invoiceService.CreateTariff(ctx, billingapp.CreateTariffInput{
		Name:                "Economy 7",
		Mode:                tariff.ModeDayNight,
		UnitRate:            dec("19.349"),
		NightRate:           dec("19.349"),
		StandingChargePence: dec("22.63"),
		ValidFrom:           periodStart,
	})
	if err != nil {
		log.Fatal(err)
	}

	gasCal, err := tariff.NewGasCalibration(dec("39.5"), dec("1.02264"))
	if err != nil {
		log.Fatal(err)
	}
	standardGas, err := invoiceService.CreateTariff(ctx, billingapp.CreateTariffInput{
		Name:                "Standard Gas",
		Mode:                tariff.ModeFlat,
		UnitRate:            dec("7.32"),
		StandingChargePence: dec("27.47"),
		ValidFrom:           periodStart,
		Gas:                 &gasCal,
	})
	if err != nil {
		log.Fatal(err)
	}

	elecMeter, err := invoiceService.RegisterMeter(ctx, "ELEC-1001", tariff.MeterTypeElectricity, true, false, periodStart.AddDate(-2, 0, 0))
	if err != nil {
		log.Fatal(err)
	}

	gasMeter, err := invoiceService.RegisterMeter(ctx, "GAS-2001", tariff.MeterTypeGas, false, true, periodStart.AddDate(-2, 0, 0))
	if err != nil {
		log.Fatal(err)
	}
	gasMeter.CurrentReading = dec("1000")
	must(meters.Save(ctx, gasMeter))

	fmt.Printf("  tariff %q (%s)\n", economySeven.Name, economySeven.Pricing.Mode())
	fmt.Printf("  tariff %q (%s)\n", standardGas.Name, standardGas.Pricing.Mode())
	fmt.Printf("  meter %s (day/night electricity)\n", elecMeter.ID)
	fmt.Printf("  meter %s (imperial gas)\n", gasMeter.ID)
	fmt.Println()

	// Step 2: Readings
	fmt.Println("Step 2: Recording Meter Readings")
	fmt.Println("--------------------------------")

	elecReading, err := invoiceService.RecordDayNightReading(ctx, elecMeter.ID,
		dec("1236.212"), dec("546.050"), periodStart, periodEnd, metering.ReadingSmart)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("  electricity: day=%s night=%s\n", elecReading.DayValue, elecReading.NightValue)

	gasReading, err := invoiceService.RecordReading(ctx, gasMeter.ID,
		dec("1036.1"), periodStart, periodEnd, metering.ReadingActual)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("  gas: dial=%s (100 ft3 units)\n", gasReading.Value)
	fmt.Println()

	// Step 3: Invoices
	fmt.Println("Step 3: Generating Invoices")
	fmt.Println("---------------------------")

	elecInvoice, err := invoiceService.GenerateInvoice(ctx, billingapp.GenerateInvoiceInput{
		CustomerID: "CUST-100",
		TariffID:   economySeven.ID,
		ReadingID:  elecReading.ID,
	})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("  %s electricity: %d days, total %s GBP (VAT %s)\n",
		elecInvoice.Reference, elecInvoice.BillingDays,
		elecInvoice.TotalAmount.StringFixed(2), elecInvoice.VATAmount.StringFixed(2))

	gasInvoice, err := invoiceService.GenerateInvoice(ctx, billingapp.GenerateInvoiceInput{
		CustomerID: "CUST-100",
		TariffID:   standardGas.ID,
		ReadingID:  gasReading.ID,
	})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("  %s gas: %s kWh from %s m3, total %s GBP\n",
		gasInvoice.Reference, gasInvoice.Consumption.KWh.StringFixed(2),
		gasInvoice.Consumption.CubicMeters.StringFixed(3), gasInvoice.TotalAmount.StringFixed(2))
	fmt.Println()

	// Step 4: Payments
	fmt.Println("Step 4: Recording Payments")
	fmt.Println("--------------------------")

	partial := elecInvoice.TotalAmount.Div(dec("2")).Round(2)
	if _, err := paymentService.RecordPayment(ctx, ledgerapp.RecordPaymentInput{
		CustomerID: "CUST-100",
		InvoiceID:  &elecInvoice.ID,
		Amount:     partial,
		Method:     ledger.MethodDirectDebit,
	}); err != nil {
		log.Fatal(err)
	}
	afterPartial, err := invoiceService.GetInvoice(ctx, elecInvoice.ID)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("  paid %s, status=%s balance=%s\n", partial.StringFixed(2), afterPartial.Status, afterPartial.BalanceDue.StringFixed(2))

	if _, err := paymentService.RecordPayment(ctx, ledgerapp.RecordPaymentInput{
		CustomerID: "CUST-100",
		InvoiceID:  &elecInvoice.ID,
		Amount:     afterPartial.BalanceDue,
		Method:     ledger.MethodCard,
	}); err != nil {
		log.Fatal(err)
	}
	settled, err := invoiceService.GetInvoice(ctx, elecInvoice.ID)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("  paid %s, status=%s\n", afterPartial.BalanceDue.StringFixed(2), settled.Status)
	fmt.Println()

	// Step 5: Account position
	fmt.Println("Step 5: Account Position")
	fmt.Println("------------------------")

	if _, err := paymentService.ChargeAccount(ctx, "CUST-100", gasInvoice.TotalAmount); err != nil {
		log.Fatal(err)
	}
	inDebt, debt, err := paymentService.CustomerDebt(ctx, "CUST-100")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("  gas charge on account, in debt: %v, amount: %s GBP\n", inDebt, debt.StringFixed(2))

	if _, err := paymentService.RecordPayment(ctx, ledgerapp.RecordPaymentInput{
		CustomerID: "CUST-100",
		Amount:     debt,
		Method:     ledger.MethodBankTransfer,
	}); err != nil {
		log.Fatal(err)
	}
	inDebt, debt, err = paymentService.CustomerDebt(ctx, "CUST-100")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("  after bank transfer, in debt: %v, amount: %s GBP\n", inDebt, debt.StringFixed(2))

	pdf, err := billinghttp.BuildInvoicePDF(settled)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("  settled invoice PDF rendered, %d bytes\n", len(pdf))
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		log.Fatal(err)
	}
	return d
}

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
