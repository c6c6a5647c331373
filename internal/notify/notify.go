package notify

import (
	"context"
	"fmt"
	"log"

	"github.com/254Kioko/chemist-mgs/internal/domain"
)

// Sender delivers a single text message to a phone number.
type Sender interface {
	Send(ctx context.Context, phone string, message string) error
}

// NoopSender drops messages. Used when no gateway is configured.
type NoopSender struct{}

func (NoopSender) Send(context.Context, string, string) error { return nil }

// Dispatcher formats domain notifications and forwards them through a
// Sender. Delivery failures are logged and swallowed; a dead gateway must
// never fail a committed sale.
type Dispatcher struct {
	sender Sender
}

func NewDispatcher(sender Sender) *Dispatcher {
	if sender == nil {
		sender = NoopSender{}
	}
	return &Dispatcher{sender: sender}
}

// SaleRecorded sends the post-checkout summary to the admin phone. Empty
// phone means no admin number is configured and the event is dropped.
func (d *Dispatcher) SaleRecorded(ctx context.Context, phone string, sale domain.Sale) {
	if phone == "" {
		return
	}
	msg := fmt.Sprintf("Sale %s recorded: %d item(s), total %s via %s by %s",
		sale.SaleNumber, len(sale.Items), formatCents(sale.TotalAmountCents), sale.PaymentMethod, sale.CashierUsername)
	if err := d.sender.Send(ctx, phone, msg); err != nil {
		log.Printf("[notify] sale sms failed: %v", err)
	}
}

// LowStock sends one alert per threshold crossing.
func (d *Dispatcher) LowStock(ctx context.Context, phone string, events []domain.LowStockEvent) {
	if phone == "" || len(events) == 0 {
		return
	}
	for _, ev := range events {
		msg := fmt.Sprintf("Low stock alert: %s is down to %d unit(s). Restock soon.", ev.Name, ev.Quantity)
		if err := d.sender.Send(ctx, phone, msg); err != nil {
			log.Printf("[notify] low-stock sms failed for %s: %v", ev.MedicineID, err)
		}
	}
}

func formatCents(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}
