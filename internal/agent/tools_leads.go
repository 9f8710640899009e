package agent

import (
	"context"
	"fmt"

	"roofdesk/internal/domain"
	"roofdesk/internal/events"
	"roofdesk/internal/store"
)

func leadTools() []ToolSpec {
	statusEnum := domain.LeadPipeline
	return []ToolSpec{
		{
			Name:        "query_leads",
			Description: "List leads, optionally filtered by pipeline status, free-text search (name, email, address) and creation date range.",
			Params: []ParamSpec{
				{Name: "status", Type: "string", Description: "pipeline status filter", Enum: statusEnum},
				{Name: "search", Type: "string", Description: "partial match on name, email or address"},
				{Name: "date_from", Type: "string", Description: "only leads created on or after this date (RFC3339)"},
				{Name: "date_to", Type: "string", Description: "only leads created on or before this date (RFC3339)"},
				{Name: "limit", Type: "number", Description: "maximum number of results"},
			},
			Visual:  VisualList,
			Handler: handleQueryLeads,
		},
		{
			Name:        "get_lead_details",
			Description: "Fetch one lead by id or by a partial name, email or address.",
			Params: []ParamSpec{
				{Name: "lead_id", Type: "string", Description: "exact lead id"},
				{Name: "lead_name", Type: "string", Description: "partial name, email or address; also accepts latest/oldest"},
			},
			Visual:  VisualCard,
			Handler: handleGetLead,
		},
		{
			Name:        "create_lead",
			Description: "Create a new lead. Name is required; everything else is optional.",
			Params: []ParamSpec{
				{Name: "name", Type: "string", Description: "lead name", Required: true},
				{Name: "email", Type: "string", Description: "email address"},
				{Name: "phone", Type: "string", Description: "phone number"},
				{Name: "address", Type: "string", Description: "street address"},
				{Name: "source", Type: "string", Description: "where the lead came from"},
				{Name: "notes", Type: "string", Description: "free-form notes"},
			},
			Visual:  VisualCard,
			Handler: handleCreateLead,
		},
		{
			Name:        "update_lead",
			Description: "Update contact fields on an existing lead.",
			Params: []ParamSpec{
				{Name: "lead_id", Type: "string", Description: "exact lead id"},
				{Name: "lead_name", Type: "string", Description: "partial name, email or address"},
				{Name: "name", Type: "string", Description: "new name"},
				{Name: "email", Type: "string", Description: "new email"},
				{Name: "phone", Type: "string", Description: "new phone"},
				{Name: "address", Type: "string", Description: "new address"},
				{Name: "source", Type: "string", Description: "new source"},
				{Name: "notes", Type: "string", Description: "replacement notes"},
			},
			Visual:  VisualCard,
			Handler: handleUpdateLead,
		},
		{
			Name:        "update_lead_status",
			Description: "Move a lead to a new pipeline status and report the transition.",
			Params: []ParamSpec{
				{Name: "lead_id", Type: "string", Description: "exact lead id"},
				{Name: "lead_name", Type: "string", Description: "partial name, email or address"},
				{Name: "new_status", Type: "string", Description: "target pipeline status", Required: true, Enum: statusEnum},
			},
			Visual:  VisualConfirmation,
			Handler: handleUpdateLeadStatus,
		},
		{
			Name:        "advance_lead",
			Description: "Advance a lead to the next stage of the pipeline.",
			Params: []ParamSpec{
				{Name: "lead_id", Type: "string", Description: "exact lead id"},
				{Name: "lead_name", Type: "string", Description: "partial name, email or address"},
			},
			Visual:  VisualConfirmation,
			Handler: handleAdvanceLead,
		},
		{
			Name:        "add_lead_note",
			Description: "Append a note to a lead without replacing existing notes.",
			Params: []ParamSpec{
				{Name: "lead_id", Type: "string", Description: "exact lead id"},
				{Name: "lead_name", Type: "string", Description: "partial name, email or address"},
				{Name: "note", Type: "string", Description: "note text", Required: true},
			},
			Visual:  VisualConfirmation,
			Handler: handleAddLeadNote,
		},
		{
			Name:        "delete_lead",
			Description: "Permanently delete a lead.",
			Params: []ParamSpec{
				{Name: "lead_id", Type: "string", Description: "exact lead id"},
				{Name: "lead_name", Type: "string", Description: "partial name, email or address"},
			},
			Visual:  VisualConfirmation,
			Handler: handleDeleteLead,
		},
		{
			Name:        "count_leads_by_status",
			Description: "Count leads in each pipeline status.",
			Visual:      VisualChart,
			Handler:     handleCountLeadsByStatus,
		},
		{
			Name:        "convert_lead_to_project",
			Description: "Create a project from a lead's details and link the lead to it.",
			Params: []ParamSpec{
				{Name: "lead_id", Type: "string", Description: "exact lead id"},
				{Name: "lead_name", Type: "string", Description: "partial name, email or address"},
				{Name: "project_name", Type: "string", Description: "name for the new project; defaults to the lead's name"},
			},
			Visual:  VisualCard,
			Handler: handleConvertLead,
		},
	}
}

func handleQueryLeads(ctx context.Context, d *Dispatcher, p Params) Result {
	q := store.Query{Table: "leads", OrderBy: "created_at", Desc: true, Limit: d.limit(p)}
	if s := p.Str("status"); s != "" {
		q.Conds = append(q.Conds, store.Eq("status", s))
	}
	if from := p.Str("date_from"); from != "" {
		q.Conds = append(q.Conds, store.Gte("created_at", from))
	}
	if to := p.Str("date_to"); to != "" {
		q.Conds = append(q.Conds, store.Lte("created_at", to))
	}
	if search := p.Str("search"); search != "" {
		for _, f := range leadEntity.SearchFields {
			q.MatchAny = append(q.MatchAny, store.Like(f, search))
		}
	}
	return d.queryRows(ctx, q, nil)
}

func handleGetLead(ctx context.Context, d *Dispatcher, p Params) Result {
	row, res, okResolved := d.resolveTarget(ctx, leadEntity, p.Str("lead_id"), p.Str("lead_name"))
	if !okResolved {
		return res
	}
	return ok("", row)
}

func handleCreateLead(ctx context.Context, d *Dispatcher, p Params) Result {
	if res, missing := checkRequired(p, NeededField{Name: "name", Description: "the lead's name"}); missing {
		return res
	}
	now := d.timestamp()
	row := map[string]any{
		"id":         d.newID(),
		"name":       p.Str("name"),
		"email":      nullable(p.Str("email")),
		"phone":      nullable(p.Str("phone")),
		"address":    nullable(p.Str("address")),
		"status":     "new",
		"source":     nullable(p.Str("source")),
		"notes":      nullable(p.Str("notes")),
		"created_at": now,
		"updated_at": now,
	}
	if err := d.Store.Insert(ctx, "leads", row); err != nil {
		return storeFailure("create lead", err)
	}
	d.recordEvent(ctx, "lead.created", "lead", rowID(row), events.EventPayload{"name": p.Str("name")})
	return ok(fmt.Sprintf("created lead %s", p.Str("name")), row)
}

func handleUpdateLead(ctx context.Context, d *Dispatcher, p Params) Result {
	row, res, okResolved := d.resolveTarget(ctx, leadEntity, p.Str("lead_id"), p.Str("lead_name"))
	if !okResolved {
		return res
	}
	set := map[string]any{}
	for _, field := range []string{"name", "email", "phone", "address", "source", "notes"} {
		if p.Has(field) {
			set[field] = p.Str(field)
		}
	}
	if len(set) == 0 {
		return needsInput("nothing to update", []NeededField{{Name: "email", Description: "any field to change"}})
	}
	id := rowID(row)
	if _, err := d.updateByID(ctx, "leads", id, set); err != nil {
		return storeFailure("update lead", err)
	}
	updated, err := d.Store.SelectOne(ctx, store.Query{Table: "leads", Conds: []store.Cond{store.Eq("id", id)}})
	if err != nil {
		return storeFailure("reload lead", err)
	}
	d.recordEvent(ctx, "lead.updated", "lead", id, events.EventPayload{})
	return ok("lead updated", updated)
}

func handleUpdateLeadStatus(ctx context.Context, d *Dispatcher, p Params) Result {
	if res, missing := checkRequired(p, NeededField{Name: "new_status", Description: "the target pipeline status"}); missing {
		return res
	}
	newStatus := p.Str("new_status")
	if !validStatus(newStatus, domain.LeadPipeline) {
		return failure(fmt.Sprintf("invalid lead status %q", newStatus))
	}
	row, res, okResolved := d.resolveTarget(ctx, leadEntity, p.Str("lead_id"), p.Str("lead_name"))
	if !okResolved {
		return res
	}
	return d.transition(ctx, "leads", "lead", row, newStatus)
}

func handleAdvanceLead(ctx context.Context, d *Dispatcher, p Params) Result {
	row, res, okResolved := d.resolveTarget(ctx, leadEntity, p.Str("lead_id"), p.Str("lead_name"))
	if !okResolved {
		return res
	}
	current := rowStr(row, "status")
	next := ""
	for i, s := range domain.LeadPipeline {
		if s == current && i+1 < len(domain.LeadPipeline) {
			next = domain.LeadPipeline[i+1]
		}
	}
	if next == "" {
		return failure(fmt.Sprintf("lead %s is already at the end of the pipeline (%s)", rowStr(row, "name"), current))
	}
	return d.transition(ctx, "leads", "lead", row, next)
}

func handleAddLeadNote(ctx context.Context, d *Dispatcher, p Params) Result {
	if res, missing := checkRequired(p, NeededField{Name: "note", Description: "the note text"}); missing {
		return res
	}
	row, res, okResolved := d.resolveTarget(ctx, leadEntity, p.Str("lead_id"), p.Str("lead_name"))
	if !okResolved {
		return res
	}
	notes := rowStr(row, "notes")
	if notes != "" {
		notes += "\n"
	}
	notes += p.Str("note")
	id := rowID(row)
	if _, err := d.updateByID(ctx, "leads", id, map[string]any{"notes": notes}); err != nil {
		return storeFailure("add lead note", err)
	}
	d.recordEvent(ctx, "lead.note_added", "lead", id, events.EventPayload{})
	return ok("note added", map[string]any{"id": id, "notes": notes})
}

func handleDeleteLead(ctx context.Context, d *Dispatcher, p Params) Result {
	row, res, okResolved := d.resolveTarget(ctx, leadEntity, p.Str("lead_id"), p.Str("lead_name"))
	if !okResolved {
		return res
	}
	id := rowID(row)
	if _, err := d.Store.Delete(ctx, "leads", []store.Cond{store.Eq("id", id)}); err != nil {
		return storeFailure("delete lead", err)
	}
	d.recordEvent(ctx, "lead.deleted", "lead", id, events.EventPayload{"name": rowStr(row, "name")})
	return ok(fmt.Sprintf("deleted lead %s", rowStr(row, "name")), map[string]any{"id": id})
}

func handleCountLeadsByStatus(ctx context.Context, d *Dispatcher, _ Params) Result {
	counts := map[string]float64{}
	total := 0
	for _, status := range domain.LeadPipeline {
		n, err := d.Store.Count(ctx, store.Query{Table: "leads", Conds: []store.Cond{store.Eq("status", status)}})
		if err != nil {
			return storeFailure("count leads", err)
		}
		counts[status] = float64(n)
		total += n
	}
	return Result{Success: true, Data: counts, Count: &total, VisualType: VisualChart}
}

func handleConvertLead(ctx context.Context, d *Dispatcher, p Params) Result {
	row, res, okResolved := d.resolveTarget(ctx, leadEntity, p.Str("lead_id"), p.Str("lead_name"))
	if !okResolved {
		return res
	}
	name := p.Str("project_name")
	if name == "" {
		name = rowStr(row, "name")
	}
	now := d.timestamp()
	project := map[string]any{
		"id":             d.newID(),
		"name":           name,
		"address":        nullable(rowStr(row, "address")),
		"status":         "pending",
		"customer_name":  nullable(rowStr(row, "name")),
		"customer_email": nullable(rowStr(row, "email")),
		"customer_phone": nullable(rowStr(row, "phone")),
		"created_at":     now,
		"updated_at":     now,
	}
	if err := d.Store.Insert(ctx, "projects", project); err != nil {
		return storeFailure("create project from lead", err)
	}
	leadID := rowID(row)
	if _, err := d.updateByID(ctx, "leads", leadID, map[string]any{"project_id": project["id"]}); err != nil {
		return storeFailure("link lead to project", err)
	}
	d.recordEvent(ctx, "lead.converted", "lead", leadID, events.EventPayload{"project_id": project["id"]})
	return ok(fmt.Sprintf("created project %s from lead %s", name, rowStr(row, "name")), project)
}

func validStatus(status string, allowed []string) bool {
	for _, s := range allowed {
		if s == status {
			return true
		}
	}
	return false
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
