package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

func insertInvoice(t *testing.T, s Store, id, number string, amount float64) {
	t.Helper()
	err := s.Insert(context.Background(), "invoices", map[string]any{
		"id":          id,
		"number":      number,
		"amount":      amount,
		"balance_due": amount,
		"status":      "sent",
		"created_at":  "2026-01-01T10:00:00Z",
		"updated_at":  "2026-01-01T10:00:00Z",
	})
	if err != nil {
		t.Fatalf("insert invoice: %v", err)
	}
}

func TestRecordPaymentPartialThenPaid(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	insertInvoice(t, s, "inv1", "INV-1", 1000)
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	p, inv, err := s.RecordPayment(ctx, "inv1", 400, "check", "", now)
	if err != nil {
		t.Fatalf("record payment: %v", err)
	}
	if p.Amount != 400 || p.InvoiceID != "inv1" {
		t.Fatalf("payment = %+v", p)
	}
	if inv.BalanceDue != 600 || inv.Status != "partial" {
		t.Fatalf("invoice after partial = %+v", inv)
	}

	_, inv, err = s.RecordPayment(ctx, "inv1", 600, "card", "final", now)
	if err != nil {
		t.Fatalf("record payment: %v", err)
	}
	if inv.BalanceDue != 0 || inv.Status != "paid" {
		t.Fatalf("invoice after full = %+v", inv)
	}
}

func TestRecordPaymentOverpaymentClampsToZero(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	insertInvoice(t, s, "inv1", "INV-1", 100)

	_, inv, err := s.RecordPayment(ctx, "inv1", 250, "", "", time.Now())
	if err != nil {
		t.Fatalf("record payment: %v", err)
	}
	if inv.BalanceDue != 0 || inv.Status != "paid" {
		t.Fatalf("invoice = %+v", inv)
	}
}

func TestRecordPaymentRejectsNonPositiveAmount(t *testing.T) {
	s := openStore(t)
	insertInvoice(t, s, "inv1", "INV-1", 100)
	for _, amount := range []float64{0, -5} {
		if _, _, err := s.RecordPayment(context.Background(), "inv1", amount, "", "", time.Now()); err == nil {
			t.Fatalf("amount %v should be rejected", amount)
		}
	}
}

func TestRecordPaymentUnknownInvoice(t *testing.T) {
	s := openStore(t)
	_, _, err := s.RecordPayment(context.Background(), "ghost", 50, "", "", time.Now())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
