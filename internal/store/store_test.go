package store

import (
	"context"
	"errors"
	"testing"

	"roofdesk/internal/db"
	"roofdesk/internal/domain"
	"roofdesk/internal/migrate"
)

func openStore(t *testing.T) Store {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return Store{DB: conn}
}

func insertLead(t *testing.T, s Store, id, name, status, createdAt string) {
	t.Helper()
	err := s.Insert(context.Background(), "leads", map[string]any{
		"id":         id,
		"name":       name,
		"status":     status,
		"created_at": createdAt,
		"updated_at": createdAt,
	})
	if err != nil {
		t.Fatalf("insert lead %s: %v", id, err)
	}
}

func TestInsertSelectRoundTrip(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	insertLead(t, s, "l1", "Maria", "new", "2026-01-01T10:00:00Z")

	rows, err := s.Select(ctx, Query{Table: "leads"})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(rows) != 1 || rows[0]["name"] != "Maria" {
		t.Fatalf("rows = %+v", rows)
	}
}

func TestSelectOneNotFound(t *testing.T) {
	s := openStore(t)
	_, err := s.SelectOne(context.Background(), Query{
		Table: "leads",
		Conds: []Cond{Eq("id", "ghost")},
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestMatchAnySearchesAcrossColumns(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	insertLead(t, s, "l1", "Maria Gonzales", "new", "2026-01-01T10:00:00Z")
	insertLead(t, s, "l2", "Pete Smith", "new", "2026-01-02T10:00:00Z")

	rows, err := s.Select(ctx, Query{
		Table:    "leads",
		MatchAny: []Cond{Like("name", "gonza"), Like("email", "gonza")},
	})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(rows) != 1 || rows[0]["id"] != "l1" {
		t.Fatalf("rows = %+v", rows)
	}
}

func TestOrderByBreaksTiesOnID(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	insertLead(t, s, "a", "One", "new", "2026-01-01T10:00:00Z")
	insertLead(t, s, "b", "Two", "new", "2026-01-01T10:00:00Z")

	rows, err := s.Select(ctx, Query{Table: "leads", OrderBy: "created_at", Desc: true})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(rows) != 2 || rows[0]["id"] != "b" || rows[1]["id"] != "a" {
		t.Fatalf("order = %v, %v", rows[0]["id"], rows[1]["id"])
	}
}

func TestUpdateAndDeleteReportAffectedRows(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	insertLead(t, s, "l1", "Maria", "new", "2026-01-01T10:00:00Z")

	n, err := s.Update(ctx, "leads", map[string]any{"status": "contacted"}, []Cond{Eq("id", "l1")})
	if err != nil || n != 1 {
		t.Fatalf("update n=%d err=%v", n, err)
	}
	n, err = s.Update(ctx, "leads", map[string]any{"status": "contacted"}, []Cond{Eq("id", "ghost")})
	if err != nil || n != 0 {
		t.Fatalf("update missing n=%d err=%v", n, err)
	}
	n, err = s.Delete(ctx, "leads", []Cond{Eq("id", "l1")})
	if err != nil || n != 1 {
		t.Fatalf("delete n=%d err=%v", n, err)
	}
}

func TestCountAndSum(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	for i, amt := range []float64{100, 250} {
		err := s.Insert(ctx, "invoices", map[string]any{
			"id":          []string{"i1", "i2"}[i],
			"number":      []string{"INV-1", "INV-2"}[i],
			"amount":      amt,
			"balance_due": amt,
			"status":      "sent",
			"created_at":  "2026-01-01T10:00:00Z",
			"updated_at":  "2026-01-01T10:00:00Z",
		})
		if err != nil {
			t.Fatalf("insert invoice: %v", err)
		}
	}

	n, err := s.Count(ctx, Query{Table: "invoices", Conds: []Cond{Eq("status", "sent")}})
	if err != nil || n != 2 {
		t.Fatalf("count = %d, %v", n, err)
	}
	total, err := s.Sum(ctx, Query{Table: "invoices"}, "balance_due")
	if err != nil || total != 350 {
		t.Fatalf("sum = %v, %v", total, err)
	}
	empty, err := s.Sum(ctx, Query{Table: "invoices", Conds: []Cond{Eq("status", "void")}}, "balance_due")
	if err != nil || empty != 0 {
		t.Fatalf("empty sum = %v, %v", empty, err)
	}
}

func TestListLeadsFilters(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	insertLead(t, s, "l1", "Maria Gonzales", "new", "2026-01-01T10:00:00Z")
	insertLead(t, s, "l2", "Pete Smith", "contacted", "2026-01-02T10:00:00Z")

	leads, err := s.ListLeads(ctx, LeadFilters{Status: "contacted"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(leads) != 1 || leads[0].Name != "Pete Smith" {
		t.Fatalf("leads = %+v", leads)
	}

	leads, err = s.ListLeads(ctx, LeadFilters{Search: "gonza"})
	if err != nil || len(leads) != 1 || leads[0].ID != "l1" {
		t.Fatalf("search leads = %+v, %v", leads, err)
	}
}

func TestEventsAfterPagesForward(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := s.DB.ExecContext(ctx,
			`INSERT INTO events(ts,type,entity_kind,actor_id,payload_json) VALUES (?,?,?,?,?)`,
			"2026-01-01T10:00:00Z", "lead.created", "lead", "tester", "{}")
		if err != nil {
			t.Fatalf("insert event: %v", err)
		}
	}

	all, err := s.EventsAfter(ctx, 10, 0)
	if err != nil || len(all) != 3 {
		t.Fatalf("all = %d, %v", len(all), err)
	}
	rest, err := s.EventsAfter(ctx, 10, all[0].ID)
	if err != nil || len(rest) != 2 {
		t.Fatalf("rest = %d, %v", len(rest), err)
	}
	if rest[0].ID <= all[0].ID {
		t.Fatalf("paging went backwards: %d then %d", all[0].ID, rest[0].ID)
	}
}

func TestAPIKeyLookupByHash(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	secret := "rdk_test_secret"
	err := s.InsertAPIKey(ctx, domain.APIKey{ID: "k1", ActorID: "alice", KeyHash: HashAPIKey(secret)})
	if err != nil {
		t.Fatalf("insert key: %v", err)
	}

	key, err := s.GetAPIKeyByHash(ctx, HashAPIKey(secret))
	if err != nil {
		t.Fatalf("get key: %v", err)
	}
	if key.ActorID != "alice" {
		t.Fatalf("actor = %q", key.ActorID)
	}
	if _, err := s.GetAPIKeyByHash(ctx, HashAPIKey("wrong")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
