package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"meterbill/internal/audit"
	billingapp "meterbill/internal/billing/application"
	billing "meterbill/internal/billing/domain"
	billingmem "meterbill/internal/billing/infrastructure/memory"
	billingrepo "meterbill/internal/billing/infrastructure/postgres"
	billinghttp "meterbill/internal/billing/interfaces"
	"meterbill/internal/eventstream"
	ledgerapp "meterbill/internal/ledger/application"
	ledger "meterbill/internal/ledger/domain"
	ledgermem "meterbill/internal/ledger/infrastructure/memory"
	ledgerrepo "meterbill/internal/ledger/infrastructure/postgres"
	ledgerhttp "meterbill/internal/ledger/interfaces"
	metering "meterbill/internal/metering/domain"
	meteringmem "meterbill/internal/metering/infrastructure/memory"
	meteringrepo "meterbill/internal/metering/infrastructure/postgres"
	"meterbill/internal/observability/metrics"
	tariff "meterbill/internal/tariff/domain"
	tariffmem "meterbill/internal/tariff/infrastructure/memory"
	tariffrepo "meterbill/internal/tariff/infrastructure/postgres"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := loadConfig()
	logger := log.New(os.Stdout, "", log.LstdFlags)

	billingCfg, err := billingapp.LoadConfig()
	if err != nil {
		logger.Fatalf("billing config error: %v", err)
	}

	var (
		db       *sql.DB
		tariffs  tariff.Repository
		meters   metering.MeterRepository
		readings metering.ReadingRepository
		invoices billing.Repository
		payments ledger.PaymentRepository
		accounts ledger.AccountRepository
		auditor  audit.Logger
	)
	if cfg.DatabaseURL != "" {
		db, err = sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			logger.Fatalf("db open error: %v", err)
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			logger.Fatalf("db ping error: %v", err)
		}

		tariffs = tariffrepo.NewTariffRepository(db)
		meters = meteringrepo.NewMeterRepository(db)
		readings = meteringrepo.NewReadingRepository(db)
		invoices = billingrepo.NewInvoiceRepository(db)
		payments = ledgerrepo.NewPaymentRepository(db)
		accounts = ledgerrepo.NewAccountRepository(db)
		auditor = audit.NewRepository(db)
	} else {
		logger.Printf("DATABASE_URL not set, using in-memory repositories")
		tariffs = tariffmem.NewTariffRepository()
		meters = meteringmem.NewMeterRepository()
		readings = meteringmem.NewReadingRepository()
		invoices = billingmem.NewInvoiceRepository()
		payments = ledgermem.NewPaymentRepository()
		accounts = ledgermem.NewAccountRepository()
	}
	metrics.Init(db, logger)

	var publisher eventstream.Publisher
	if cfg.KafkaBrokers != "" {
		producer, err := eventstream.NewSyncProducer(strings.Split(cfg.KafkaBrokers, ","))
		if err != nil {
			logger.Fatalf("kafka producer error: %v", err)
		}
		zlog, err := zap.NewProduction()
		if err != nil {
			logger.Fatalf("zap logger error: %v", err)
		}
		defer func() { _ = zlog.Sync() }()
		kafkaPublisher, err := eventstream.NewKafkaPublisher(producer, cfg.KafkaTopic, zlog)
		if err != nil {
			logger.Fatalf("kafka publisher error: %v", err)
		}
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
	} else {
		publisher = eventstream.NewLoggingPublisher(logger)
	}

	invoiceService, err := billingapp.NewInvoiceService(invoices, tariffs, meters, readings, publisher, billingapp.SystemClock{}, billingCfg, logger)
	if err != nil {
		logger.Fatalf("invoice service error: %v", err)
	}
	paymentService, err := ledgerapp.NewPaymentService(payments, accounts, invoices, publisher, ledgerapp.SystemClock{}, logger)
	if err != nil {
		logger.Fatalf("payment service error: %v", err)
	}

	invoiceHandler, err := billinghttp.NewInvoiceHandler(invoiceService, auditor)
	if err != nil {
		logger.Fatalf("invoice handler error: %v", err)
	}
	paymentHandler, err := ledgerhttp.NewPaymentHandler(paymentService, auditor)
	if err != nil {
		logger.Fatalf("payment handler error: %v", err)
	}

	go runOverdueSweep(invoiceService, billingCfg.OverdueSweep, logger)

	mux := http.NewServeMux()
	mux.Handle("/api/v1/readings", invoiceHandler)
	mux.Handle("/api/v1/meters", invoiceHandler)
	mux.Handle("/api/v1/tariffs", invoiceHandler)
	mux.Handle("/api/v1/invoices", invoiceHandler)
	mux.Handle("/api/v1/invoices/", invoiceHandler)
	mux.Handle("/api/v1/payments", paymentHandler)
	mux.Handle("/api/v1/payments/", paymentHandler)
	mux.Handle("/api/v1/accounts/", paymentHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: loggingMiddleware(mux, logger)}
	logger.Printf("http listening on %s", cfg.HTTPAddr)
	logger.Fatal(server.ListenAndServe())
}

type config struct {
	DatabaseURL  string
	HTTPAddr     string
	KafkaBrokers string
	KafkaTopic   string
}

func loadConfig() config {
	return config{
		DatabaseURL:  getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		HTTPAddr:     getenvDefault("HTTP_ADDR", ":8080"),
		KafkaBrokers: getenvDefault("KAFKA_BROKERS", ""),
		KafkaTopic:   getenvDefault("KAFKA_TOPIC", "billing-events"),
	}
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

// runOverdueSweep moves invoices past their due date to overdue once a day
// at the configured local time.
func runOverdueSweep(service *billingapp.InvoiceService, dailyAt string, logger *log.Logger) {
	at, err := time.Parse("15:04", dailyAt)
	if err != nil {
		logger.Printf("overdue sweep disabled, bad time %q: %v", dailyAt, err)
		return
	}
	for {
		now := time.Now()
		next := time.Date(now.Year(), now.Month(), now.Day(), at.Hour(), at.Minute(), 0, 0, now.Location())
		if !next.After(now) {
			next = next.AddDate(0, 0, 1)
		}
		time.Sleep(time.Until(next))

		moved, err := service.SweepOverdue(context.Background())
		if err != nil {
			logger.Printf("overdue sweep error: %v", err)
			continue
		}
		if moved > 0 {
			logger.Printf("overdue sweep moved %d invoices", moved)
		}
	}
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
