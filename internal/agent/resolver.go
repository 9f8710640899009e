package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"roofdesk/internal/store"
)

// entity describes how a table is resolved from free text.
type entity struct {
	Label        string // human name used in error messages
	Table        string
	SearchFields []string // human-readable columns matched by partial text
}

var (
	leadEntity      = entity{Label: "lead", Table: "leads", SearchFields: []string{"name", "email", "phone", "address"}}
	projectEntity   = entity{Label: "project", Table: "projects", SearchFields: []string{"name", "address", "customer_name"}}
	invoiceEntity   = entity{Label: "invoice", Table: "invoices", SearchFields: []string{"number"}}
	scheduleEntity  = entity{Label: "schedule entry", Table: "schedule_entries", SearchFields: []string{"title", "assignee"}}
	workOrderEntity = entity{Label: "work order", Table: "work_orders", SearchFields: []string{"title"}}
	ticketEntity    = entity{Label: "ticket", Table: "tickets", SearchFields: []string{"title"}}
	todoEntity      = entity{Label: "todo", Table: "todos", SearchFields: []string{"title", "assignee"}}
	incidentEntity  = entity{Label: "incident", Table: "incidents", SearchFields: []string{"title", "description"}}
	memberEntity    = entity{Label: "team member", Table: "team_members", SearchFields: []string{"name", "email", "role"}}
)

var entityByName = map[string]entity{
	"lead":           leadEntity,
	"project":        projectEntity,
	"invoice":        invoiceEntity,
	"schedule_entry": scheduleEntity,
	"work_order":     workOrderEntity,
	"ticket":         ticketEntity,
	"todo":           todoEntity,
	"incident":       incidentEntity,
	"team_member":    memberEntity,
}

var latestTokens = map[string]bool{
	"latest": true, "last": true, "newest": true, "most recent": true, "recent": true,
}

var oldestTokens = map[string]bool{
	"oldest": true, "first": true,
}

var errNoHint = errors.New("no identifier supplied")

// resolve maps an explicit id or a free-text hint to exactly one row.
// Resolution never mutates anything; store.ErrNotFound is the normal
// zero-match outcome. Ties are broken by most-recently-updated first, which is
// deterministic but makes no claim of being the best match.
func (d *Dispatcher) resolve(ctx context.Context, ent entity, id, hint string) (map[string]any, error) {
	if id != "" {
		return d.Store.SelectOne(ctx, store.Query{
			Table: ent.Table,
			Conds: []store.Cond{store.Eq("id", id)},
		})
	}
	hint = strings.TrimSpace(hint)
	if hint == "" {
		return nil, errNoHint
	}
	lowered := strings.ToLower(hint)
	if latestTokens[lowered] {
		return d.Store.SelectOne(ctx, store.Query{Table: ent.Table, OrderBy: "created_at", Desc: true})
	}
	if oldestTokens[lowered] {
		return d.Store.SelectOne(ctx, store.Query{Table: ent.Table, OrderBy: "created_at"})
	}

	attempts := []string{hint}
	if normalized := normalizeHint(hint); normalized != hint {
		attempts = append(attempts, normalized)
	}
	if digits := digitFragment(hint); digits != "" && digits != hint {
		attempts = append(attempts, digits)
	}
	for _, term := range attempts {
		row, err := d.searchOne(ctx, ent, term)
		if err == nil {
			return row, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
	}
	return nil, store.ErrNotFound
}

func (d *Dispatcher) searchOne(ctx context.Context, ent entity, term string) (map[string]any, error) {
	matchAny := make([]store.Cond, 0, len(ent.SearchFields))
	for _, f := range ent.SearchFields {
		matchAny = append(matchAny, store.Like(f, term))
	}
	orderBy := "updated_at"
	if !tableHasUpdatedAt(ent.Table) {
		orderBy = "created_at"
	}
	return d.Store.SelectOne(ctx, store.Query{
		Table:    ent.Table,
		MatchAny: matchAny,
		OrderBy:  orderBy,
		Desc:     true,
	})
}

func tableHasUpdatedAt(table string) bool {
	return table != "payments" && table != "events" && table != "api_keys"
}

func normalizeHint(hint string) string {
	replacer := strings.NewReplacer("-", " ", "_", " ")
	return strings.Join(strings.Fields(replacer.Replace(hint)), " ")
}

func digitFragment(hint string) string {
	var b strings.Builder
	for _, r := range hint {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func notFound(ent entity, term string) Result {
	return failure(fmt.Sprintf("no %s found matching %q", ent.Label, term))
}
