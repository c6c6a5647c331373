package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/254Kioko/chemist-mgs/internal/domain"
)

type failingSender struct{ calls int }

func (f *failingSender) Send(context.Context, string, string) error {
	f.calls++
	return errors.New("gateway down")
}

func TestDispatcherSwallowsSenderFailures(t *testing.T) {
	sender := &failingSender{}
	d := NewDispatcher(sender)

	d.SaleRecorded(context.Background(), "+254700000001", domain.Sale{SaleNumber: "SALE-20260828-0001"})
	d.LowStock(context.Background(), "+254700000001", []domain.LowStockEvent{{MedicineID: "med-1", Name: "Paracetamol", Quantity: 4}})

	if sender.calls != 2 {
		t.Fatalf("expected 2 send attempts, got %d", sender.calls)
	}
}

func TestDispatcherDropsWithoutPhone(t *testing.T) {
	sender := &failingSender{}
	d := NewDispatcher(sender)

	d.SaleRecorded(context.Background(), "", domain.Sale{SaleNumber: "SALE-20260828-0001"})
	d.LowStock(context.Background(), "", []domain.LowStockEvent{{MedicineID: "med-1", Name: "Paracetamol", Quantity: 4}})

	if sender.calls != 0 {
		t.Fatalf("expected no send attempts without a phone, got %d", sender.calls)
	}
}

func TestSMSGatewayPostsPayload(t *testing.T) {
	var got smsPayload
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	gw := NewSMSGateway(srv.URL, "secret-token", "CHEMIST")
	if err := gw.Send(context.Background(), "+254700000001", "Low stock alert: Paracetamol is down to 4 unit(s). Restock soon."); err != nil {
		t.Fatalf("send: %v", err)
	}

	if got.To != "+254700000001" {
		t.Fatalf("wrong recipient: %s", got.To)
	}
	if got.From != "CHEMIST" {
		t.Fatalf("wrong sender id: %s", got.From)
	}
	if !strings.Contains(got.Message, "Paracetamol") {
		t.Fatalf("message lost content: %s", got.Message)
	}
	if auth != "Bearer secret-token" {
		t.Fatalf("wrong auth header: %s", auth)
	}
}

func TestSMSGatewayRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	gw := NewSMSGateway(srv.URL, "", "")
	if err := gw.Send(context.Background(), "+254700000001", "test"); err == nil {
		t.Fatalf("expected error for 502 response")
	}
}
