package agent

import (
	"context"
	"fmt"

	"roofdesk/internal/events"
	"roofdesk/internal/store"
)

var invoiceStatuses = []string{"draft", "sent", "partial", "paid", "void"}

func financeTools() []ToolSpec {
	target := []ParamSpec{
		{Name: "invoice_id", Type: "string", Description: "exact invoice id"},
		{Name: "invoice_number", Type: "string", Description: "invoice number or a fragment of it; also accepts latest/oldest"},
	}
	return []ToolSpec{
		{
			Name:        "query_invoices",
			Description: "List invoices filtered by status, with the total outstanding balance across the matching set.",
			Params: []ParamSpec{
				{Name: "status", Type: "string", Description: "invoice status filter", Enum: invoiceStatuses},
				{Name: "limit", Type: "number", Description: "maximum number of results"},
			},
			Visual:  VisualList,
			Handler: handleQueryInvoices,
		},
		{
			Name:        "get_invoice_details",
			Description: "Fetch one invoice by id or number fragment.",
			Params:      target,
			Visual:      VisualCard,
			Handler:     handleGetInvoice,
		},
		{
			Name:        "create_invoice",
			Description: "Create an invoice. Number and amount are required; the balance due starts equal to the amount.",
			Params: []ParamSpec{
				{Name: "number", Type: "string", Description: "invoice number", Required: true},
				{Name: "amount", Type: "number", Description: "invoice total", Required: true},
				{Name: "project_name", Type: "string", Description: "project to attach the invoice to, by name or id"},
				{Name: "due_date", Type: "string", Description: "due date (RFC3339)"},
			},
			Visual:  VisualCard,
			Handler: handleCreateInvoice,
		},
		{
			Name:        "update_invoice_status",
			Description: "Set an invoice status. Paid and partial are derived from payments; use record_payment for those.",
			Params: append(target,
				ParamSpec{Name: "new_status", Type: "string", Description: "target status", Required: true, Enum: []string{"draft", "sent", "void"}},
			),
			Visual:  VisualConfirmation,
			Handler: handleUpdateInvoiceStatus,
		},
		{
			Name:        "delete_invoice",
			Description: "Permanently delete an invoice and its payments.",
			Params:      target,
			Visual:      VisualConfirmation,
			Handler:     handleDeleteInvoice,
		},
		{
			Name:        "record_payment",
			Description: "Record a payment against an invoice. The payment row and the balance update are applied atomically.",
			Params: append(target,
				ParamSpec{Name: "amount", Type: "number", Description: "payment amount", Required: true},
				ParamSpec{Name: "method", Type: "string", Description: "payment method", Enum: []string{"cash", "check", "card", "ach", "other"}},
				ParamSpec{Name: "note", Type: "string", Description: "free-form note"},
			),
			Visual:  VisualConfirmation,
			Handler: handleRecordPayment,
		},
		{
			Name:        "query_payments",
			Description: "List payments, optionally for one invoice, with the total amount paid across the matching set.",
			Params: []ParamSpec{
				{Name: "invoice_number", Type: "string", Description: "limit to one invoice by number or id"},
				{Name: "limit", Type: "number", Description: "maximum number of results"},
			},
			Visual:  VisualList,
			Handler: handleQueryPayments,
		},
		{
			Name:        "outstanding_balance_summary",
			Description: "Report the total balance due across all unpaid invoices.",
			Visual:      VisualChart,
			Handler:     handleOutstandingBalance,
		},
	}
}

func handleQueryInvoices(ctx context.Context, d *Dispatcher, p Params) Result {
	q := store.Query{Table: "invoices", OrderBy: "created_at", Desc: true, Limit: d.limit(p)}
	if s := p.Str("status"); s != "" {
		q.Conds = append(q.Conds, store.Eq("status", s))
	}
	return d.queryRows(ctx, q, map[string]string{"total_due": "balance_due"})
}

func handleGetInvoice(ctx context.Context, d *Dispatcher, p Params) Result {
	row, res, okResolved := d.resolveTarget(ctx, invoiceEntity, p.Str("invoice_id"), p.Str("invoice_number"))
	if !okResolved {
		return res
	}
	return ok("", row)
}

func handleCreateInvoice(ctx context.Context, d *Dispatcher, p Params) Result {
	if res, missing := checkRequired(p,
		NeededField{Name: "number", Description: "the invoice number"},
		NeededField{Name: "amount", Description: "the invoice total"},
	); missing {
		return res
	}
	amount, okAmount := p.Float("amount")
	if !okAmount || amount <= 0 {
		return failure("amount must be a positive number")
	}
	var projectID any
	if hint := p.Str("project_name"); hint != "" {
		project, res, okResolved := d.resolveTarget(ctx, projectEntity, "", hint)
		if !okResolved {
			return res
		}
		projectID = project["id"]
	}
	now := d.timestamp()
	row := map[string]any{
		"id":          d.newID(),
		"number":      p.Str("number"),
		"project_id":  projectID,
		"amount":      amount,
		"balance_due": amount,
		"status":      "draft",
		"due_date":    nullable(p.Str("due_date")),
		"created_at":  now,
		"updated_at":  now,
	}
	if err := d.Store.Insert(ctx, "invoices", row); err != nil {
		return storeFailure("create invoice", err)
	}
	d.recordEvent(ctx, "invoice.created", "invoice", rowID(row), events.EventPayload{"number": p.Str("number"), "amount": amount})
	return ok(fmt.Sprintf("created invoice %s for %.2f", p.Str("number"), amount), row)
}

func handleUpdateInvoiceStatus(ctx context.Context, d *Dispatcher, p Params) Result {
	if res, missing := checkRequired(p, NeededField{Name: "new_status", Description: "the target status"}); missing {
		return res
	}
	newStatus := p.Str("new_status")
	if !validStatus(newStatus, []string{"draft", "sent", "void"}) {
		return failure(fmt.Sprintf("invalid invoice status %q; paid and partial are set by record_payment", newStatus))
	}
	row, res, okResolved := d.resolveTarget(ctx, invoiceEntity, p.Str("invoice_id"), p.Str("invoice_number"))
	if !okResolved {
		return res
	}
	return d.transition(ctx, "invoices", "invoice", row, newStatus)
}

func handleDeleteInvoice(ctx context.Context, d *Dispatcher, p Params) Result {
	row, res, okResolved := d.resolveTarget(ctx, invoiceEntity, p.Str("invoice_id"), p.Str("invoice_number"))
	if !okResolved {
		return res
	}
	id := rowID(row)
	if _, err := d.Store.Delete(ctx, "invoices", []store.Cond{store.Eq("id", id)}); err != nil {
		return storeFailure("delete invoice", err)
	}
	d.recordEvent(ctx, "invoice.deleted", "invoice", id, events.EventPayload{"number": rowStr(row, "number")})
	return ok(fmt.Sprintf("deleted invoice %s", rowStr(row, "number")), map[string]any{"id": id})
}

func handleRecordPayment(ctx context.Context, d *Dispatcher, p Params) Result {
	if res, missing := checkRequired(p, NeededField{Name: "amount", Description: "the payment amount"}); missing {
		return res
	}
	amount, okAmount := p.Float("amount")
	if !okAmount || amount <= 0 {
		return failure("amount must be a positive number")
	}
	row, res, okResolved := d.resolveTarget(ctx, invoiceEntity, p.Str("invoice_id"), p.Str("invoice_number"))
	if !okResolved {
		return res
	}
	previousStatus := rowStr(row, "status")
	payment, invoice, err := d.Store.RecordPayment(ctx, rowID(row), amount, p.Str("method"), p.Str("note"), d.now())
	if err != nil {
		return storeFailure("record payment", err)
	}
	d.recordEvent(ctx, "invoice.payment_recorded", "invoice", invoice.ID, events.EventPayload{
		"amount":          amount,
		"previous_status": previousStatus,
		"new_status":      invoice.Status,
	})
	return ok(fmt.Sprintf("recorded %.2f payment on invoice %s; balance due %.2f", amount, invoice.Number, invoice.BalanceDue),
		map[string]any{
			"payment":         payment,
			"invoice":         invoice,
			"previous_status": previousStatus,
			"new_status":      invoice.Status,
		})
}

func handleQueryPayments(ctx context.Context, d *Dispatcher, p Params) Result {
	q := store.Query{Table: "payments", OrderBy: "created_at", Desc: true, Limit: d.limit(p)}
	if hint := p.Str("invoice_number"); hint != "" {
		invoice, res, okResolved := d.resolveTarget(ctx, invoiceEntity, "", hint)
		if !okResolved {
			return res
		}
		q.Conds = append(q.Conds, store.Eq("invoice_id", invoice["id"]))
	}
	return d.queryRows(ctx, q, map[string]string{"total_paid": "amount"})
}

func handleOutstandingBalance(ctx context.Context, d *Dispatcher, _ Params) Result {
	open := store.Query{Table: "invoices", Conds: []store.Cond{store.Gte("balance_due", 0.01)}}
	total, err := d.Store.Sum(ctx, open, "balance_due")
	if err != nil {
		return storeFailure("sum balances", err)
	}
	n, err := d.Store.Count(ctx, open)
	if err != nil {
		return storeFailure("count open invoices", err)
	}
	return Result{
		Success:    true,
		Message:    fmt.Sprintf("%d open invoices totaling %.2f due", n, total),
		Data:       map[string]any{"open_invoices": n, "total_due": total},
		Count:      &n,
		Aggregates: map[string]float64{"total_due": total},
		VisualType: VisualChart,
	}
}
