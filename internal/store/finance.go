package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"roofdesk/internal/domain"
)

// RecordPayment inserts a payment and applies it to the invoice balance in a
// single transaction so concurrent recordings cannot lose an update. Status
// follows the balance: paid at zero, partial otherwise.
func (s Store) RecordPayment(ctx context.Context, invoiceID string, amount float64, method, note string, now time.Time) (domain.Payment, domain.Invoice, error) {
	if amount <= 0 {
		return domain.Payment{}, domain.Invoice{}, fmt.Errorf("payment amount must be positive")
	}
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Payment{}, domain.Invoice{}, err
	}
	defer tx.Rollback()

	var balance float64
	err = tx.QueryRowContext(ctx, `SELECT balance_due FROM invoices WHERE id=?`, invoiceID).Scan(&balance)
	if err == sql.ErrNoRows {
		return domain.Payment{}, domain.Invoice{}, ErrNotFound
	}
	if err != nil {
		return domain.Payment{}, domain.Invoice{}, err
	}

	ts := now.UTC().Format(time.RFC3339)
	p := domain.Payment{
		ID:        uuid.NewString(),
		InvoiceID: invoiceID,
		Amount:    amount,
		Method:    method,
		Note:      note,
		CreatedAt: ts,
	}
	if err := insertRow(ctx, tx, "payments", map[string]any{
		"id":         p.ID,
		"invoice_id": p.InvoiceID,
		"amount":     p.Amount,
		"method":     nullable(p.Method),
		"note":       nullable(p.Note),
		"created_at": p.CreatedAt,
	}); err != nil {
		return domain.Payment{}, domain.Invoice{}, err
	}

	newBalance := balance - amount
	if newBalance < 0 {
		newBalance = 0
	}
	status := "partial"
	if newBalance == 0 {
		status = "paid"
	}
	if _, err := updateRows(ctx, tx, "invoices", map[string]any{
		"balance_due": newBalance,
		"status":      status,
		"updated_at":  ts,
	}, []Cond{Eq("id", invoiceID)}); err != nil {
		return domain.Payment{}, domain.Invoice{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Payment{}, domain.Invoice{}, err
	}
	inv, err := s.GetInvoice(ctx, invoiceID)
	return p, inv, err
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
