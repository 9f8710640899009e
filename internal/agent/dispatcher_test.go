package agent

import (
	"context"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestExecuteUnknownTool(t *testing.T) {
	d := newTestDispatcher(t)
	res := d.Execute(context.Background(), "summon_dragon", nil)
	if res.Success {
		t.Fatal("expected failure for unknown tool")
	}
	if !strings.Contains(res.Error, "summon_dragon") {
		t.Fatalf("error should name the tool, got %q", res.Error)
	}
}

func TestCreateLeadMissingNameAsksForIt(t *testing.T) {
	d := newTestDispatcher(t)
	res := d.Execute(context.Background(), "create_lead", map[string]any{"phone": "555-0101"})
	if res.Success {
		t.Fatal("expected needs-more-input result")
	}
	if res.VisualType != VisualInputForm {
		t.Fatalf("visual = %q, want %q", res.VisualType, VisualInputForm)
	}
	if len(res.NeededFields) != 1 || res.NeededFields[0].Name != "name" {
		t.Fatalf("needed fields = %+v, want exactly [name]", res.NeededFields)
	}
}

func TestQueryToolsAreIdempotent(t *testing.T) {
	d := newTestDispatcher(t)
	ctx := context.Background()
	seedLead(t, d, "l1", "Alpha Roofing", "", "", "new", "2026-01-01T10:00:00Z")
	seedLead(t, d, "l2", "Beta Roofing", "", "", "new", "2026-01-02T10:00:00Z")
	seedLead(t, d, "l3", "Gamma Roofing", "", "", "quoted", "2026-01-03T10:00:00Z")

	params := map[string]any{"status": "new"}
	first := d.Execute(ctx, "query_leads", params)
	second := d.Execute(ctx, "query_leads", params)
	if !first.Success || !second.Success {
		t.Fatalf("query failed: %s / %s", first.Error, second.Error)
	}
	if first.Count == nil || *first.Count != 2 {
		t.Fatalf("count = %v, want 2", first.Count)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("repeated query diverged:\nfirst  = %+v\nsecond = %+v", first, second)
	}
}

func TestCreateAndFetchLead(t *testing.T) {
	d := newTestDispatcher(t)
	ctx := context.Background()
	created := d.Execute(ctx, "create_lead", map[string]any{
		"name":    "Maria Gonzales",
		"email":   "maria@example.com",
		"address": "12 Oak Street",
	})
	if !created.Success {
		t.Fatalf("create_lead failed: %s", created.Error)
	}
	fetched := d.Execute(ctx, "get_lead_details", map[string]any{"lead_name": "gonzales"})
	if !fetched.Success {
		t.Fatalf("get_lead_details failed: %s", fetched.Error)
	}
	row, ok := fetched.Data.(map[string]any)
	if !ok {
		t.Fatalf("data = %T, want row map", fetched.Data)
	}
	if row["name"] != "Maria Gonzales" {
		t.Fatalf("fetched name = %v", row["name"])
	}
	if row["status"] != "new" {
		t.Fatalf("new lead status = %v, want new", row["status"])
	}
}

func TestUpdateLeadStatusReportsTransition(t *testing.T) {
	d := newTestDispatcher(t)
	ctx := context.Background()
	seedLead(t, d, "l1", "Pete's Diner", "", "", "new", "2026-01-02T10:00:00Z")

	res := d.Execute(ctx, "update_lead_status", map[string]any{
		"lead_name":  "pete",
		"new_status": "contacted",
	})
	if !res.Success {
		t.Fatalf("update failed: %s", res.Error)
	}
	data, ok := res.Data.(map[string]any)
	if !ok {
		t.Fatalf("data = %T", res.Data)
	}
	if data["previous_status"] != "new" || data["new_status"] != "contacted" {
		t.Fatalf("transition = %v -> %v", data["previous_status"], data["new_status"])
	}
	if res.VisualType != VisualConfirmation {
		t.Fatalf("visual = %q", res.VisualType)
	}
}

func TestUpdateLeadStatusRejectsUnknownStatus(t *testing.T) {
	d := newTestDispatcher(t)
	seedLead(t, d, "l1", "Pete's Diner", "", "", "new", "2026-01-02T10:00:00Z")
	res := d.Execute(context.Background(), "update_lead_status", map[string]any{
		"lead_name":  "pete",
		"new_status": "vaporized",
	})
	if res.Success {
		t.Fatal("expected failure for invalid status")
	}
	if !strings.Contains(res.Error, "vaporized") {
		t.Fatalf("error should name the status, got %q", res.Error)
	}
}

func TestAdvanceLeadStopsAtEndOfPipeline(t *testing.T) {
	d := newTestDispatcher(t)
	seedLead(t, d, "l1", "Done Deal", "", "", "paid", "2026-01-02T10:00:00Z")
	res := d.Execute(context.Background(), "advance_lead", map[string]any{"lead_name": "done deal"})
	if res.Success {
		t.Fatal("expected failure when lead is at the last stage")
	}
}

func TestDeleteMissingLeadIsContained(t *testing.T) {
	d := newTestDispatcher(t)
	res := d.Execute(context.Background(), "delete_lead", map[string]any{"lead_name": "nobody here"})
	if res.Success {
		t.Fatal("expected failure")
	}
	if res.Error == "" {
		t.Fatal("failure should carry an error message")
	}
}

func TestLimitClamping(t *testing.T) {
	d := newTestDispatcher(t)
	if got := d.limit(Params{}); got != d.DefaultLimit {
		t.Fatalf("default limit = %d, want %d", got, d.DefaultLimit)
	}
	if got := d.limit(Params{"limit": float64(7)}); got != 7 {
		t.Fatalf("limit = %d, want 7", got)
	}
	if got := d.limit(Params{"limit": float64(5000)}); got != d.MaxLimit {
		t.Fatalf("limit = %d, want clamped to %d", got, d.MaxLimit)
	}
	if got := d.limit(Params{"limit": float64(-3)}); got != d.DefaultLimit {
		t.Fatalf("negative limit = %d, want default", got)
	}
}

func TestQueryLeadsAppliesToolVisual(t *testing.T) {
	d := newTestDispatcher(t)
	res := d.Execute(context.Background(), "query_leads", nil)
	if !res.Success {
		t.Fatalf("query failed: %s", res.Error)
	}
	if res.VisualType != VisualList {
		t.Fatalf("visual = %q, want %q", res.VisualType, VisualList)
	}
	if res.Count == nil || *res.Count != 0 {
		t.Fatalf("count = %v, want 0", res.Count)
	}
}

func TestToolCallsAppendEvents(t *testing.T) {
	d := newTestDispatcher(t)
	ctx := context.Background()
	d.Execute(ctx, "create_lead", map[string]any{"name": "Eventful"})
	events, err := d.Store.ListEvents(ctx, 10)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	if events[0].Type != "lead.created" || events[0].ActorID != "tester" {
		t.Fatalf("event = %+v", events[0])
	}
}

func TestClockInAndOutFlow(t *testing.T) {
	d := newTestDispatcher(t)
	ctx := context.Background()
	seedMember(t, d, "m1", "Joe Carpenter", "foreman")

	start := time.Date(2026, 3, 4, 8, 0, 0, 0, time.UTC)
	d.Now = func() time.Time { return start }

	in := d.Execute(ctx, "clock_in", map[string]any{"member_name": "joe"})
	if !in.Success {
		t.Fatalf("clock_in failed: %s", in.Error)
	}

	again := d.Execute(ctx, "clock_in", map[string]any{"member_name": "joe"})
	if again.Success {
		t.Fatal("second clock_in should fail while an entry is open")
	}

	open := d.Execute(ctx, "who_is_clocked_in", nil)
	if !open.Success || open.Count == nil || *open.Count != 1 {
		t.Fatalf("who_is_clocked_in = %+v", open)
	}

	d.Now = func() time.Time { return start.Add(7*time.Hour + 30*time.Minute) }
	out := d.Execute(ctx, "clock_out", map[string]any{"member_name": "joe"})
	if !out.Success {
		t.Fatalf("clock_out failed: %s", out.Error)
	}
	data := out.Data.(map[string]any)
	hours, _ := data["hours"].(float64)
	if hours < 7.49 || hours > 7.51 {
		t.Fatalf("hours = %v, want 7.5", hours)
	}

	sheet := d.Execute(ctx, "timesheet_summary", nil)
	if !sheet.Success {
		t.Fatalf("timesheet_summary failed: %s", sheet.Error)
	}
	if sheet.VisualType != VisualChart {
		t.Fatalf("visual = %q, want %q", sheet.VisualType, VisualChart)
	}
	total := sheet.Aggregates["total_hours"]
	if total < 7.49 || total > 7.51 {
		t.Fatalf("total_hours = %v, want 7.5", total)
	}
}

func TestNavigateToSpecificItemInEmptyTable(t *testing.T) {
	d := newTestDispatcher(t)
	res := d.Execute(context.Background(), "navigate_to_specific_item", map[string]any{
		"item_type": "lead",
		"search":    "anyone",
	})
	if res.Success {
		t.Fatal("expected failure when nothing matches")
	}
	if res.Error == "" {
		t.Fatal("failure should carry an error message")
	}
}

func TestNavigateToPage(t *testing.T) {
	d := newTestDispatcher(t)
	res := d.Execute(context.Background(), "navigate_to_page", map[string]any{"page": "finance"})
	if !res.Success {
		t.Fatalf("navigate failed: %s", res.Error)
	}
	if res.VisualType != VisualNavigation {
		t.Fatalf("visual = %q", res.VisualType)
	}
	data := res.Data.(map[string]any)
	if data["page"] != "finance" {
		t.Fatalf("page = %v", data["page"])
	}
}

func TestNavigateToSpecificItemFindsPage(t *testing.T) {
	d := newTestDispatcher(t)
	seedLead(t, d, "l1", "Maria Gonzales", "", "", "new", "2026-01-02T10:00:00Z")
	res := d.Execute(context.Background(), "navigate_to_specific_item", map[string]any{
		"item_type": "lead",
		"search":    "maria",
	})
	if !res.Success {
		t.Fatalf("navigate failed: %s", res.Error)
	}
	data := res.Data.(map[string]any)
	if data["page"] != "leads" || data["item_id"] != "l1" {
		t.Fatalf("data = %+v", data)
	}
}

func TestRegistryCoversEveryToolGroup(t *testing.T) {
	reg := NewRegistry()
	for _, name := range []string{
		"query_leads", "create_lead", "convert_lead_to_project",
		"query_projects", "query_invoices", "record_payment",
		"query_schedule", "query_work_orders", "query_tickets",
		"query_todos", "query_incidents", "query_team_members",
		"clock_in", "navigate_to_page",
	} {
		if _, ok := reg.Get(name); !ok {
			t.Errorf("missing tool %s", name)
		}
	}
	if reg.Len() != len(reg.Names()) {
		t.Fatalf("len mismatch: %d vs %d names", reg.Len(), len(reg.Names()))
	}
	tools := reg.OpenAITools()
	if len(tools) != reg.Len() {
		t.Fatalf("openai tools = %d, want %d", len(tools), reg.Len())
	}
}
