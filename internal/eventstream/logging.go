package eventstream

import (
	"context"
	"log"
)

// LoggingPublisher writes events to a standard logger. It is the default
// publisher when no broker is configured and the publisher used by tests.
type LoggingPublisher struct {
	logger *log.Logger
}

// NewLoggingPublisher constructs a logging publisher. A nil logger disables
// output without disabling the publisher.
func NewLoggingPublisher(logger *log.Logger) *LoggingPublisher {
	return &LoggingPublisher{logger: logger}
}

func (p *LoggingPublisher) PublishInvoiceIssued(_ context.Context, event InvoiceIssued) error {
	if p != nil && p.logger != nil {
		p.logger.Printf("event invoice_issued invoice=%s customer=%s total=%s", event.InvoiceID, event.CustomerID, event.TotalAmount)
	}
	return nil
}

func (p *LoggingPublisher) PublishPaymentRecorded(_ context.Context, event PaymentRecorded) error {
	if p != nil && p.logger != nil {
		p.logger.Printf("event payment_recorded payment=%s customer=%s amount=%s method=%s", event.PaymentID, event.CustomerID, event.Amount, event.Method)
	}
	return nil
}
