package agent

import (
	"context"
	"fmt"

	"roofdesk/internal/events"
	"roofdesk/internal/store"
)

var priorities = []string{"low", "medium", "high", "urgent"}

func workOrderTools() []ToolSpec {
	statuses := []string{"open", "assigned", "in_progress", "done", "cancelled"}
	target := []ParamSpec{
		{Name: "work_order_id", Type: "string", Description: "exact work order id"},
		{Name: "work_order_title", Type: "string", Description: "partial title; also accepts latest/oldest"},
	}
	return []ToolSpec{
		{
			Name:        "query_work_orders",
			Description: "List work orders, optionally filtered by status, priority and title search.",
			Params: []ParamSpec{
				{Name: "status", Type: "string", Description: "status filter", Enum: statuses},
				{Name: "priority", Type: "string", Description: "priority filter", Enum: priorities},
				{Name: "search", Type: "string", Description: "partial match on title"},
				{Name: "limit", Type: "number", Description: "maximum number of results"},
			},
			Visual: VisualList,
			Handler: func(ctx context.Context, d *Dispatcher, p Params) Result {
				q := store.Query{Table: "work_orders", OrderBy: "created_at", Desc: true, Limit: d.limit(p)}
				if s := p.Str("status"); s != "" {
					q.Conds = append(q.Conds, store.Eq("status", s))
				}
				if pr := p.Str("priority"); pr != "" {
					q.Conds = append(q.Conds, store.Eq("priority", pr))
				}
				if search := p.Str("search"); search != "" {
					q.MatchAny = append(q.MatchAny, store.Like("title", search))
				}
				return d.queryRows(ctx, q, nil)
			},
		},
		{
			Name:        "get_work_order_details",
			Description: "Fetch one work order by id or title fragment.",
			Params:      target,
			Visual:      VisualCard,
			Handler: func(ctx context.Context, d *Dispatcher, p Params) Result {
				row, res, okResolved := d.resolveTarget(ctx, workOrderEntity, p.Str("work_order_id"), p.Str("work_order_title"))
				if !okResolved {
					return res
				}
				return ok("", row)
			},
		},
		{
			Name:        "create_work_order",
			Description: "Create a work order. Title is required.",
			Params: []ParamSpec{
				{Name: "title", Type: "string", Description: "what needs doing", Required: true},
				{Name: "project_name", Type: "string", Description: "project to attach, by name or id"},
				{Name: "priority", Type: "string", Description: "priority", Enum: priorities},
				{Name: "notes", Type: "string", Description: "free-form notes"},
			},
			Visual: VisualCard,
			Handler: func(ctx context.Context, d *Dispatcher, p Params) Result {
				if res, missing := checkRequired(p, NeededField{Name: "title", Description: "what the work order is for"}); missing {
					return res
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
					"title":       p.Str("title"),
					"project_id":  projectID,
					"assignee_id": nil,
					"status":      "open",
					"priority":    nullable(p.Str("priority")),
					"notes":       nullable(p.Str("notes")),
					"created_at":  now,
					"updated_at":  now,
				}
				if err := d.Store.Insert(ctx, "work_orders", row); err != nil {
					return storeFailure("create work order", err)
				}
				d.recordEvent(ctx, "work_order.created", "work_order", rowID(row), events.EventPayload{"title": p.Str("title")})
				return ok(fmt.Sprintf("created work order %s", p.Str("title")), row)
			},
		},
		{
			Name:        "assign_work_order",
			Description: "Assign a work order to a team member and mark it assigned.",
			Params: append(target,
				ParamSpec{Name: "member_name", Type: "string", Description: "team member name or id", Required: true},
			),
			Visual: VisualConfirmation,
			Handler: func(ctx context.Context, d *Dispatcher, p Params) Result {
				if res, missing := checkRequired(p, NeededField{Name: "member_name", Description: "who to assign it to"}); missing {
					return res
				}
				row, res, okResolved := d.resolveTarget(ctx, workOrderEntity, p.Str("work_order_id"), p.Str("work_order_title"))
				if !okResolved {
					return res
				}
				member, res, okResolved := d.resolveTarget(ctx, memberEntity, "", p.Str("member_name"))
				if !okResolved {
					return res
				}
				id := rowID(row)
				if _, err := d.updateByID(ctx, "work_orders", id, map[string]any{
					"assignee_id": member["id"],
					"status":      "assigned",
				}); err != nil {
					return storeFailure("assign work order", err)
				}
				d.recordEvent(ctx, "work_order.assigned", "work_order", id, events.EventPayload{"assignee_id": member["id"]})
				return ok(fmt.Sprintf("assigned %s to %s", rowStr(row, "title"), rowStr(member, "name")),
					map[string]any{"id": id, "assignee": rowStr(member, "name"), "previous_status": rowStr(row, "status"), "new_status": "assigned"})
			},
		},
		{
			Name:        "update_work_order_status",
			Description: "Move a work order to a new status and report the transition.",
			Params: append(target,
				ParamSpec{Name: "new_status", Type: "string", Description: "target status", Required: true, Enum: statuses},
			),
			Visual: VisualConfirmation,
			Handler: func(ctx context.Context, d *Dispatcher, p Params) Result {
				if res, missing := checkRequired(p, NeededField{Name: "new_status", Description: "the target status"}); missing {
					return res
				}
				if !validStatus(p.Str("new_status"), statuses) {
					return failure(fmt.Sprintf("invalid work order status %q", p.Str("new_status")))
				}
				row, res, okResolved := d.resolveTarget(ctx, workOrderEntity, p.Str("work_order_id"), p.Str("work_order_title"))
				if !okResolved {
					return res
				}
				return d.transition(ctx, "work_orders", "work_order", row, p.Str("new_status"))
			},
		},
		{
			Name:        "delete_work_order",
			Description: "Permanently delete a work order.",
			Params:      target,
			Visual:      VisualConfirmation,
			Handler: func(ctx context.Context, d *Dispatcher, p Params) Result {
				row, res, okResolved := d.resolveTarget(ctx, workOrderEntity, p.Str("work_order_id"), p.Str("work_order_title"))
				if !okResolved {
					return res
				}
				id := rowID(row)
				if _, err := d.Store.Delete(ctx, "work_orders", []store.Cond{store.Eq("id", id)}); err != nil {
					return storeFailure("delete work order", err)
				}
				d.recordEvent(ctx, "work_order.deleted", "work_order", id, events.EventPayload{"title": rowStr(row, "title")})
				return ok(fmt.Sprintf("deleted work order %s", rowStr(row, "title")), map[string]any{"id": id})
			},
		},
	}
}

func ticketTools() []ToolSpec {
	statuses := []string{"open", "in_progress", "resolved", "closed"}
	target := []ParamSpec{
		{Name: "ticket_id", Type: "string", Description: "exact ticket id"},
		{Name: "ticket_title", Type: "string", Description: "partial title; also accepts latest/oldest"},
	}
	return []ToolSpec{
		{
			Name:        "query_tickets",
			Description: "List tickets, optionally filtered by status, priority and title search.",
			Params: []ParamSpec{
				{Name: "status", Type: "string", Description: "status filter", Enum: statuses},
				{Name: "priority", Type: "string", Description: "priority filter", Enum: priorities},
				{Name: "search", Type: "string", Description: "partial match on title"},
				{Name: "limit", Type: "number", Description: "maximum number of results"},
			},
			Visual: VisualList,
			Handler: func(ctx context.Context, d *Dispatcher, p Params) Result {
				q := store.Query{Table: "tickets", OrderBy: "created_at", Desc: true, Limit: d.limit(p)}
				if s := p.Str("status"); s != "" {
					q.Conds = append(q.Conds, store.Eq("status", s))
				}
				if pr := p.Str("priority"); pr != "" {
					q.Conds = append(q.Conds, store.Eq("priority", pr))
				}
				if search := p.Str("search"); search != "" {
					q.MatchAny = append(q.MatchAny, store.Like("title", search))
				}
				return d.queryRows(ctx, q, nil)
			},
		},
		{
			Name:        "create_ticket",
			Description: "Open a ticket. Title is required.",
			Params: []ParamSpec{
				{Name: "title", Type: "string", Description: "what the ticket is about", Required: true},
				{Name: "project_name", Type: "string", Description: "project to attach, by name or id"},
				{Name: "priority", Type: "string", Description: "priority", Enum: priorities},
				{Name: "notes", Type: "string", Description: "free-form notes"},
			},
			Visual: VisualCard,
			Handler: func(ctx context.Context, d *Dispatcher, p Params) Result {
				if res, missing := checkRequired(p, NeededField{Name: "title", Description: "what the ticket is about"}); missing {
					return res
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
					"id":         d.newID(),
					"title":      p.Str("title"),
					"project_id": projectID,
					"status":     "open",
					"priority":   nullable(p.Str("priority")),
					"notes":      nullable(p.Str("notes")),
					"created_at": now,
					"updated_at": now,
				}
				if err := d.Store.Insert(ctx, "tickets", row); err != nil {
					return storeFailure("create ticket", err)
				}
				d.recordEvent(ctx, "ticket.created", "ticket", rowID(row), events.EventPayload{"title": p.Str("title")})
				return ok(fmt.Sprintf("opened ticket %s", p.Str("title")), row)
			},
		},
		{
			Name:        "update_ticket_status",
			Description: "Move a ticket to a new status and report the transition.",
			Params: append(target,
				ParamSpec{Name: "new_status", Type: "string", Description: "target status", Required: true, Enum: statuses},
			),
			Visual: VisualConfirmation,
			Handler: func(ctx context.Context, d *Dispatcher, p Params) Result {
				if res, missing := checkRequired(p, NeededField{Name: "new_status", Description: "the target status"}); missing {
					return res
				}
				if !validStatus(p.Str("new_status"), statuses) {
					return failure(fmt.Sprintf("invalid ticket status %q", p.Str("new_status")))
				}
				row, res, okResolved := d.resolveTarget(ctx, ticketEntity, p.Str("ticket_id"), p.Str("ticket_title"))
				if !okResolved {
					return res
				}
				return d.transition(ctx, "tickets", "ticket", row, p.Str("new_status"))
			},
		},
		{
			Name:        "set_ticket_priority",
			Description: "Change a ticket's priority.",
			Params: append(target,
				ParamSpec{Name: "priority", Type: "string", Description: "new priority", Required: true, Enum: priorities},
			),
			Visual: VisualConfirmation,
			Handler: func(ctx context.Context, d *Dispatcher, p Params) Result {
				if res, missing := checkRequired(p, NeededField{Name: "priority", Description: "the new priority"}); missing {
					return res
				}
				if !validStatus(p.Str("priority"), priorities) {
					return failure(fmt.Sprintf("invalid priority %q", p.Str("priority")))
				}
				row, res, okResolved := d.resolveTarget(ctx, ticketEntity, p.Str("ticket_id"), p.Str("ticket_title"))
				if !okResolved {
					return res
				}
				id := rowID(row)
				previous := rowStr(row, "priority")
				if _, err := d.updateByID(ctx, "tickets", id, map[string]any{"priority": p.Str("priority")}); err != nil {
					return storeFailure("set ticket priority", err)
				}
				d.recordEvent(ctx, "ticket.priority_changed", "ticket", id, events.EventPayload{
					"previous_priority": previous,
					"new_priority":      p.Str("priority"),
				})
				return ok(fmt.Sprintf("ticket priority set to %s", p.Str("priority")),
					map[string]any{"id": id, "previous_priority": previous, "new_priority": p.Str("priority")})
			},
		},
		{
			Name:        "delete_ticket",
			Description: "Permanently delete a ticket.",
			Params:      target,
			Visual:      VisualConfirmation,
			Handler: func(ctx context.Context, d *Dispatcher, p Params) Result {
				row, res, okResolved := d.resolveTarget(ctx, ticketEntity, p.Str("ticket_id"), p.Str("ticket_title"))
				if !okResolved {
					return res
				}
				id := rowID(row)
				if _, err := d.Store.Delete(ctx, "tickets", []store.Cond{store.Eq("id", id)}); err != nil {
					return storeFailure("delete ticket", err)
				}
				d.recordEvent(ctx, "ticket.deleted", "ticket", id, events.EventPayload{"title": rowStr(row, "title")})
				return ok(fmt.Sprintf("deleted ticket %s", rowStr(row, "title")), map[string]any{"id": id})
			},
		},
	}
}

func todoTools() []ToolSpec {
	target := []ParamSpec{
		{Name: "todo_id", Type: "string", Description: "exact todo id"},
		{Name: "todo_title", Type: "string", Description: "partial title or assignee; also accepts latest/oldest"},
	}
	return []ToolSpec{
		{
			Name:        "query_todos",
			Description: "List todos, optionally filtered by status and assignee.",
			Params: []ParamSpec{
				{Name: "status", Type: "string", Description: "status filter", Enum: []string{"open", "done"}},
				{Name: "assignee", Type: "string", Description: "filter by assignee"},
				{Name: "limit", Type: "number", Description: "maximum number of results"},
			},
			Visual: VisualList,
			Handler: func(ctx context.Context, d *Dispatcher, p Params) Result {
				q := store.Query{Table: "todos", OrderBy: "created_at", Desc: true, Limit: d.limit(p)}
				if s := p.Str("status"); s != "" {
					q.Conds = append(q.Conds, store.Eq("status", s))
				}
				if assignee := p.Str("assignee"); assignee != "" {
					q.Conds = append(q.Conds, store.Like("assignee", assignee))
				}
				return d.queryRows(ctx, q, nil)
			},
		},
		{
			Name:        "create_todo",
			Description: "Add a todo. Title is required.",
			Params: []ParamSpec{
				{Name: "title", Type: "string", Description: "the task", Required: true},
				{Name: "assignee", Type: "string", Description: "who it is for"},
				{Name: "due_date", Type: "string", Description: "due date (RFC3339)"},
				{Name: "project_name", Type: "string", Description: "project to attach, by name or id"},
			},
			Visual: VisualCard,
			Handler: func(ctx context.Context, d *Dispatcher, p Params) Result {
				if res, missing := checkRequired(p, NeededField{Name: "title", Description: "what the todo is"}); missing {
					return res
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
					"id":         d.newID(),
					"title":      p.Str("title"),
					"assignee":   nullable(p.Str("assignee")),
					"status":     "open",
					"due_date":   nullable(p.Str("due_date")),
					"project_id": projectID,
					"created_at": now,
					"updated_at": now,
				}
				if err := d.Store.Insert(ctx, "todos", row); err != nil {
					return storeFailure("create todo", err)
				}
				d.recordEvent(ctx, "todo.created", "todo", rowID(row), events.EventPayload{"title": p.Str("title")})
				return ok(fmt.Sprintf("added todo %s", p.Str("title")), row)
			},
		},
		{
			Name:        "complete_todo",
			Description: "Mark a todo as done.",
			Params:      target,
			Visual:      VisualConfirmation,
			Handler: func(ctx context.Context, d *Dispatcher, p Params) Result {
				row, res, okResolved := d.resolveTarget(ctx, todoEntity, p.Str("todo_id"), p.Str("todo_title"))
				if !okResolved {
					return res
				}
				return d.transition(ctx, "todos", "todo", row, "done")
			},
		},
		{
			Name:        "update_todo",
			Description: "Update fields on a todo.",
			Params: append(target,
				ParamSpec{Name: "title", Type: "string", Description: "new title"},
				ParamSpec{Name: "assignee", Type: "string", Description: "new assignee"},
				ParamSpec{Name: "due_date", Type: "string", Description: "new due date (RFC3339)"},
			),
			Visual: VisualCard,
			Handler: func(ctx context.Context, d *Dispatcher, p Params) Result {
				row, res, okResolved := d.resolveTarget(ctx, todoEntity, p.Str("todo_id"), p.Str("todo_title"))
				if !okResolved {
					return res
				}
				set := map[string]any{}
				for _, field := range []string{"title", "assignee", "due_date"} {
					if p.Has(field) {
						set[field] = p.Str(field)
					}
				}
				if len(set) == 0 {
					return needsInput("nothing to update", []NeededField{{Name: "title", Description: "any field to change"}})
				}
				id := rowID(row)
				if _, err := d.updateByID(ctx, "todos", id, set); err != nil {
					return storeFailure("update todo", err)
				}
				updated, err := d.Store.SelectOne(ctx, store.Query{Table: "todos", Conds: []store.Cond{store.Eq("id", id)}})
				if err != nil {
					return storeFailure("reload todo", err)
				}
				d.recordEvent(ctx, "todo.updated", "todo", id, events.EventPayload{})
				return ok("todo updated", updated)
			},
		},
		{
			Name:        "delete_todo",
			Description: "Permanently delete a todo.",
			Params:      target,
			Visual:      VisualConfirmation,
			Handler: func(ctx context.Context, d *Dispatcher, p Params) Result {
				row, res, okResolved := d.resolveTarget(ctx, todoEntity, p.Str("todo_id"), p.Str("todo_title"))
				if !okResolved {
					return res
				}
				id := rowID(row)
				if _, err := d.Store.Delete(ctx, "todos", []store.Cond{store.Eq("id", id)}); err != nil {
					return storeFailure("delete todo", err)
				}
				d.recordEvent(ctx, "todo.deleted", "todo", id, events.EventPayload{"title": rowStr(row, "title")})
				return ok(fmt.Sprintf("deleted todo %s", rowStr(row, "title")), map[string]any{"id": id})
			},
		},
	}
}

func incidentTools() []ToolSpec {
	statuses := []string{"reported", "investigating", "resolved", "closed"}
	severities := []string{"minor", "major", "critical"}
	target := []ParamSpec{
		{Name: "incident_id", Type: "string", Description: "exact incident id"},
		{Name: "incident_title", Type: "string", Description: "partial title or description; also accepts latest/oldest"},
	}
	return []ToolSpec{
		{
			Name:        "query_incidents",
			Description: "List incidents, optionally filtered by status and severity.",
			Params: []ParamSpec{
				{Name: "status", Type: "string", Description: "status filter", Enum: statuses},
				{Name: "severity", Type: "string", Description: "severity filter", Enum: severities},
				{Name: "limit", Type: "number", Description: "maximum number of results"},
			},
			Visual: VisualList,
			Handler: func(ctx context.Context, d *Dispatcher, p Params) Result {
				q := store.Query{Table: "incidents", OrderBy: "created_at", Desc: true, Limit: d.limit(p)}
				if s := p.Str("status"); s != "" {
					q.Conds = append(q.Conds, store.Eq("status", s))
				}
				if sev := p.Str("severity"); sev != "" {
					q.Conds = append(q.Conds, store.Eq("severity", sev))
				}
				return d.queryRows(ctx, q, nil)
			},
		},
		{
			Name:        "report_incident",
			Description: "Report a new incident. Title is required.",
			Params: []ParamSpec{
				{Name: "title", Type: "string", Description: "what happened", Required: true},
				{Name: "severity", Type: "string", Description: "how bad it is", Enum: severities},
				{Name: "description", Type: "string", Description: "details"},
				{Name: "project_name", Type: "string", Description: "project it happened on, by name or id"},
			},
			Visual: VisualCard,
			Handler: func(ctx context.Context, d *Dispatcher, p Params) Result {
				if res, missing := checkRequired(p, NeededField{Name: "title", Description: "what happened"}); missing {
					return res
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
					"title":       p.Str("title"),
					"project_id":  projectID,
					"severity":    nullable(p.Str("severity")),
					"status":      "reported",
					"description": nullable(p.Str("description")),
					"created_at":  now,
					"updated_at":  now,
				}
				if err := d.Store.Insert(ctx, "incidents", row); err != nil {
					return storeFailure("report incident", err)
				}
				d.recordEvent(ctx, "incident.reported", "incident", rowID(row), events.EventPayload{"title": p.Str("title")})
				return ok(fmt.Sprintf("reported incident %s", p.Str("title")), row)
			},
		},
		{
			Name:        "update_incident_status",
			Description: "Move an incident to a new status and report the transition.",
			Params: append(target,
				ParamSpec{Name: "new_status", Type: "string", Description: "target status", Required: true, Enum: statuses},
			),
			Visual: VisualConfirmation,
			Handler: func(ctx context.Context, d *Dispatcher, p Params) Result {
				if res, missing := checkRequired(p, NeededField{Name: "new_status", Description: "the target status"}); missing {
					return res
				}
				if !validStatus(p.Str("new_status"), statuses) {
					return failure(fmt.Sprintf("invalid incident status %q", p.Str("new_status")))
				}
				row, res, okResolved := d.resolveTarget(ctx, incidentEntity, p.Str("incident_id"), p.Str("incident_title"))
				if !okResolved {
					return res
				}
				return d.transition(ctx, "incidents", "incident", row, p.Str("new_status"))
			},
		},
		{
			Name:        "close_incident",
			Description: "Close an incident.",
			Params:      target,
			Visual:      VisualConfirmation,
			Handler: func(ctx context.Context, d *Dispatcher, p Params) Result {
				row, res, okResolved := d.resolveTarget(ctx, incidentEntity, p.Str("incident_id"), p.Str("incident_title"))
				if !okResolved {
					return res
				}
				return d.transition(ctx, "incidents", "incident", row, "closed")
			},
		},
	}
}
