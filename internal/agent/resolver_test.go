package agent

import (
	"context"
	"errors"
	"testing"

	"roofdesk/internal/store"
)

func TestResolveByIDSkipsSearch(t *testing.T) {
	d := newTestDispatcher(t)
	seedLead(t, d, "l1", "Alpha", "", "", "new", "2026-01-01T10:00:00Z")
	seedLead(t, d, "l2", "Alpha", "", "", "new", "2026-01-02T10:00:00Z")

	row, err := d.resolve(context.Background(), leadEntity, "l1", "alpha")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if row["id"] != "l1" {
		t.Fatalf("resolved %v, want l1", row["id"])
	}
}

func TestResolveLatestAndOldest(t *testing.T) {
	d := newTestDispatcher(t)
	seedLead(t, d, "old", "First Lead", "", "", "new", "2026-01-01T10:00:00Z")
	seedLead(t, d, "new", "Second Lead", "", "", "new", "2026-02-01T10:00:00Z")
	ctx := context.Background()

	cases := []struct {
		hint string
		want string
	}{
		{"latest", "new"},
		{"last", "new"},
		{"newest", "new"},
		{"most recent", "new"},
		{"recent", "new"},
		{"Latest", "new"},
		{"oldest", "old"},
		{"first", "old"},
		{"FIRST", "old"},
	}
	for _, tc := range cases {
		row, err := d.resolve(ctx, leadEntity, "", tc.hint)
		if err != nil {
			t.Fatalf("resolve %q: %v", tc.hint, err)
		}
		if row["id"] != tc.want {
			t.Errorf("resolve %q = %v, want %s", tc.hint, row["id"], tc.want)
		}
	}
}

func TestResolvePartialMatchAcrossFields(t *testing.T) {
	d := newTestDispatcher(t)
	seedLead(t, d, "l1", "Maria Gonzales", "maria@example.com", "12 Oak Street", "new", "2026-01-01T10:00:00Z")
	ctx := context.Background()

	for _, hint := range []string{"gonzales", "maria@", "Oak Street"} {
		row, err := d.resolve(ctx, leadEntity, "", hint)
		if err != nil {
			t.Fatalf("resolve %q: %v", hint, err)
		}
		if row["id"] != "l1" {
			t.Fatalf("resolve %q = %v", hint, row["id"])
		}
	}
}

func TestResolveNormalizesSeparators(t *testing.T) {
	d := newTestDispatcher(t)
	seedLead(t, d, "l1", "Maria Gonzales", "", "12 Oak Street", "new", "2026-01-01T10:00:00Z")

	row, err := d.resolve(context.Background(), leadEntity, "", "oak-street")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if row["id"] != "l1" {
		t.Fatalf("resolved %v", row["id"])
	}
}

func TestResolveFallsBackToDigits(t *testing.T) {
	d := newTestDispatcher(t)
	ctx := context.Background()
	err := d.Store.Insert(ctx, "invoices", map[string]any{
		"id":          "inv1",
		"number":      "INV-0042",
		"amount":      100.0,
		"balance_due": 100.0,
		"status":      "sent",
		"created_at":  "2026-01-01T10:00:00Z",
		"updated_at":  "2026-01-01T10:00:00Z",
	})
	if err != nil {
		t.Fatalf("seed invoice: %v", err)
	}

	row, err := d.resolve(ctx, invoiceEntity, "", "invoice number 0042")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if row["id"] != "inv1" {
		t.Fatalf("resolved %v", row["id"])
	}
}

func TestResolveTieBreaksOnMostRecentlyUpdated(t *testing.T) {
	d := newTestDispatcher(t)
	ctx := context.Background()
	seedLead(t, d, "stale", "Smith Roofing", "", "", "new", "2026-01-01T10:00:00Z")
	seedLead(t, d, "fresh", "Smith Gutters", "", "", "new", "2026-01-01T10:00:00Z")
	if _, err := d.Store.Update(ctx, "leads",
		map[string]any{"updated_at": "2026-03-01T10:00:00Z"},
		[]store.Cond{store.Eq("id", "fresh")}); err != nil {
		t.Fatalf("touch lead: %v", err)
	}

	row, err := d.resolve(ctx, leadEntity, "", "smith")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if row["id"] != "fresh" {
		t.Fatalf("resolved %v, want most recently updated", row["id"])
	}
}

func TestResolveWithoutHintAsksForOne(t *testing.T) {
	d := newTestDispatcher(t)
	_, err := d.resolve(context.Background(), leadEntity, "", "   ")
	if !errors.Is(err, errNoHint) {
		t.Fatalf("err = %v, want errNoHint", err)
	}

	_, res, resolved := d.resolveTarget(context.Background(), leadEntity, "", "")
	if resolved {
		t.Fatal("expected resolution to fail")
	}
	if res.VisualType != VisualInputForm || len(res.NeededFields) == 0 {
		t.Fatalf("result = %+v, want input form with needed fields", res)
	}
}

func TestResolveNotFound(t *testing.T) {
	d := newTestDispatcher(t)
	_, err := d.resolve(context.Background(), leadEntity, "", "nobody")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	_, res, resolved := d.resolveTarget(context.Background(), leadEntity, "", "nobody")
	if resolved || res.Success {
		t.Fatal("expected failure result")
	}
	if res.Error == "" {
		t.Fatal("failure should carry an error message")
	}
}

func TestNormalizeHint(t *testing.T) {
	cases := map[string]string{
		"oak-street":   "oak street",
		"oak_street":   "oak street",
		"  two  words": "two words",
		"plain":        "plain",
	}
	for in, want := range cases {
		if got := normalizeHint(in); got != want {
			t.Errorf("normalizeHint(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDigitFragment(t *testing.T) {
	if got := digitFragment("INV-0042"); got != "0042" {
		t.Fatalf("digitFragment = %q", got)
	}
	if got := digitFragment("no digits"); got != "" {
		t.Fatalf("digitFragment = %q, want empty", got)
	}
}
