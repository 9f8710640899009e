package agent

import (
	"context"
	"testing"
	"time"

	"roofdesk/internal/db"
	"roofdesk/internal/migrate"
	"roofdesk/internal/store"
)

func newTestDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewDispatcher(store.Store{DB: conn}, NewRegistry(), Options{
		ActorID:      "tester",
		DefaultLimit: 25,
		MaxLimit:     100,
	})
}

func seedLead(t *testing.T, d *Dispatcher, id, name, email, address, status, createdAt string) {
	t.Helper()
	err := d.Store.Insert(context.Background(), "leads", map[string]any{
		"id":         id,
		"name":       name,
		"email":      nullable(email),
		"address":    nullable(address),
		"status":     status,
		"created_at": createdAt,
		"updated_at": createdAt,
	})
	if err != nil {
		t.Fatalf("seed lead %s: %v", name, err)
	}
}

func seedMember(t *testing.T, d *Dispatcher, id, name, role string) {
	t.Helper()
	now := time.Now().UTC().Format(time.RFC3339)
	err := d.Store.Insert(context.Background(), "team_members", map[string]any{
		"id":         id,
		"name":       name,
		"role":       nullable(role),
		"active":     1,
		"created_at": now,
		"updated_at": now,
	})
	if err != nil {
		t.Fatalf("seed member %s: %v", name, err)
	}
}
