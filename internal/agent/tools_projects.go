package agent

import (
	"context"
	"fmt"

	"roofdesk/internal/domain"
	"roofdesk/internal/events"
	"roofdesk/internal/store"
)

func projectTools() []ToolSpec {
	statusEnum := domain.ProjectStatuses
	target := []ParamSpec{
		{Name: "project_id", Type: "string", Description: "exact project id"},
		{Name: "project_name", Type: "string", Description: "partial name, address or customer name; also accepts latest/oldest"},
	}
	return []ToolSpec{
		{
			Name:        "query_projects",
			Description: "List projects, optionally filtered by status and free-text search over name, address and customer name.",
			Params: []ParamSpec{
				{Name: "status", Type: "string", Description: "project status filter", Enum: statusEnum},
				{Name: "search", Type: "string", Description: "partial match on name, address or customer name"},
				{Name: "limit", Type: "number", Description: "maximum number of results"},
			},
			Visual:  VisualList,
			Handler: handleQueryProjects,
		},
		{
			Name:        "get_project_details",
			Description: "Fetch one project by id or by a partial name, address or customer name.",
			Params:      target,
			Visual:      VisualCard,
			Handler:     handleGetProject,
		},
		{
			Name:        "create_project",
			Description: "Create a new project. Name is required.",
			Params: []ParamSpec{
				{Name: "name", Type: "string", Description: "project name", Required: true},
				{Name: "address", Type: "string", Description: "job site address"},
				{Name: "customer_name", Type: "string", Description: "customer name"},
				{Name: "customer_email", Type: "string", Description: "customer email"},
				{Name: "customer_phone", Type: "string", Description: "customer phone"},
				{Name: "notes", Type: "string", Description: "free-form notes"},
			},
			Visual:  VisualCard,
			Handler: handleCreateProject,
		},
		{
			Name:        "update_project",
			Description: "Update fields on an existing project.",
			Params: append(target,
				ParamSpec{Name: "name", Type: "string", Description: "new name"},
				ParamSpec{Name: "address", Type: "string", Description: "new address"},
				ParamSpec{Name: "customer_name", Type: "string", Description: "new customer name"},
				ParamSpec{Name: "customer_email", Type: "string", Description: "new customer email"},
				ParamSpec{Name: "customer_phone", Type: "string", Description: "new customer phone"},
				ParamSpec{Name: "notes", Type: "string", Description: "replacement notes"},
			),
			Visual:  VisualCard,
			Handler: handleUpdateProject,
		},
		{
			Name:        "update_project_status",
			Description: "Move a project to a new status and report the transition.",
			Params: append(target,
				ParamSpec{Name: "new_status", Type: "string", Description: "target status", Required: true, Enum: statusEnum},
			),
			Visual:  VisualConfirmation,
			Handler: handleUpdateProjectStatus,
		},
		{
			Name:        "delete_project",
			Description: "Permanently delete a project.",
			Params:      target,
			Visual:      VisualConfirmation,
			Handler:     handleDeleteProject,
		},
		{
			Name:        "search_projects_by_address",
			Description: "Find projects whose job site address matches a fragment.",
			Params: []ParamSpec{
				{Name: "address", Type: "string", Description: "address fragment", Required: true},
				{Name: "limit", Type: "number", Description: "maximum number of results"},
			},
			Visual:  VisualList,
			Handler: handleSearchProjectsByAddress,
		},
	}
}

func handleQueryProjects(ctx context.Context, d *Dispatcher, p Params) Result {
	q := store.Query{Table: "projects", OrderBy: "created_at", Desc: true, Limit: d.limit(p)}
	if s := p.Str("status"); s != "" {
		q.Conds = append(q.Conds, store.Eq("status", s))
	}
	if search := p.Str("search"); search != "" {
		for _, f := range projectEntity.SearchFields {
			q.MatchAny = append(q.MatchAny, store.Like(f, search))
		}
	}
	return d.queryRows(ctx, q, nil)
}

func handleGetProject(ctx context.Context, d *Dispatcher, p Params) Result {
	row, res, okResolved := d.resolveTarget(ctx, projectEntity, p.Str("project_id"), p.Str("project_name"))
	if !okResolved {
		return res
	}
	return ok("", row)
}

func handleCreateProject(ctx context.Context, d *Dispatcher, p Params) Result {
	if res, missing := checkRequired(p, NeededField{Name: "name", Description: "the project name"}); missing {
		return res
	}
	now := d.timestamp()
	row := map[string]any{
		"id":             d.newID(),
		"name":           p.Str("name"),
		"address":        nullable(p.Str("address")),
		"status":         "pending",
		"customer_name":  nullable(p.Str("customer_name")),
		"customer_email": nullable(p.Str("customer_email")),
		"customer_phone": nullable(p.Str("customer_phone")),
		"notes":          nullable(p.Str("notes")),
		"created_at":     now,
		"updated_at":     now,
	}
	if err := d.Store.Insert(ctx, "projects", row); err != nil {
		return storeFailure("create project", err)
	}
	d.recordEvent(ctx, "project.created", "project", rowID(row), events.EventPayload{"name": p.Str("name")})
	return ok(fmt.Sprintf("created project %s", p.Str("name")), row)
}

func handleUpdateProject(ctx context.Context, d *Dispatcher, p Params) Result {
	row, res, okResolved := d.resolveTarget(ctx, projectEntity, p.Str("project_id"), p.Str("project_name"))
	if !okResolved {
		return res
	}
	set := map[string]any{}
	for _, field := range []string{"name", "address", "customer_name", "customer_email", "customer_phone", "notes"} {
		if p.Has(field) {
			set[field] = p.Str(field)
		}
	}
	if len(set) == 0 {
		return needsInput("nothing to update", []NeededField{{Name: "name", Description: "any field to change"}})
	}
	id := rowID(row)
	if _, err := d.updateByID(ctx, "projects", id, set); err != nil {
		return storeFailure("update project", err)
	}
	updated, err := d.Store.SelectOne(ctx, store.Query{Table: "projects", Conds: []store.Cond{store.Eq("id", id)}})
	if err != nil {
		return storeFailure("reload project", err)
	}
	d.recordEvent(ctx, "project.updated", "project", id, events.EventPayload{})
	return ok("project updated", updated)
}

func handleUpdateProjectStatus(ctx context.Context, d *Dispatcher, p Params) Result {
	if res, missing := checkRequired(p, NeededField{Name: "new_status", Description: "the target status"}); missing {
		return res
	}
	newStatus := p.Str("new_status")
	if !validStatus(newStatus, domain.ProjectStatuses) {
		return failure(fmt.Sprintf("invalid project status %q", newStatus))
	}
	row, res, okResolved := d.resolveTarget(ctx, projectEntity, p.Str("project_id"), p.Str("project_name"))
	if !okResolved {
		return res
	}
	return d.transition(ctx, "projects", "project", row, newStatus)
}

func handleDeleteProject(ctx context.Context, d *Dispatcher, p Params) Result {
	row, res, okResolved := d.resolveTarget(ctx, projectEntity, p.Str("project_id"), p.Str("project_name"))
	if !okResolved {
		return res
	}
	id := rowID(row)
	if _, err := d.Store.Delete(ctx, "projects", []store.Cond{store.Eq("id", id)}); err != nil {
		return storeFailure("delete project", err)
	}
	d.recordEvent(ctx, "project.deleted", "project", id, events.EventPayload{"name": rowStr(row, "name")})
	return ok(fmt.Sprintf("deleted project %s", rowStr(row, "name")), map[string]any{"id": id})
}

func handleSearchProjectsByAddress(ctx context.Context, d *Dispatcher, p Params) Result {
	if res, missing := checkRequired(p, NeededField{Name: "address", Description: "the address fragment to search for"}); missing {
		return res
	}
	q := store.Query{
		Table:   "projects",
		Conds:   []store.Cond{store.Like("address", p.Str("address"))},
		OrderBy: "created_at",
		Desc:    true,
		Limit:   d.limit(p),
	}
	return d.queryRows(ctx, q, nil)
}
