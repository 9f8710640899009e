package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"roofdesk/internal/events"
	"roofdesk/internal/store"
)

func teamTools() []ToolSpec {
	target := []ParamSpec{
		{Name: "member_id", Type: "string", Description: "exact team member id"},
		{Name: "member_name", Type: "string", Description: "partial name, email or role; also accepts latest/oldest"},
	}
	return []ToolSpec{
		{
			Name:        "query_team_members",
			Description: "List team members. Inactive members are excluded unless asked for.",
			Params: []ParamSpec{
				{Name: "role", Type: "string", Description: "filter by role"},
				{Name: "include_inactive", Type: "boolean", Description: "include deactivated members"},
				{Name: "limit", Type: "number", Description: "maximum number of results"},
			},
			Visual: VisualList,
			Handler: func(ctx context.Context, d *Dispatcher, p Params) Result {
				q := store.Query{Table: "team_members", OrderBy: "name", Limit: d.limit(p)}
				if !p.Bool("include_inactive") {
					q.Conds = append(q.Conds, store.Eq("active", 1))
				}
				if role := p.Str("role"); role != "" {
					q.Conds = append(q.Conds, store.Like("role", role))
				}
				return d.queryRows(ctx, q, nil)
			},
		},
		{
			Name:        "get_team_member_details",
			Description: "Fetch one team member by id or name fragment.",
			Params:      target,
			Visual:      VisualCard,
			Handler: func(ctx context.Context, d *Dispatcher, p Params) Result {
				row, res, okResolved := d.resolveTarget(ctx, memberEntity, p.Str("member_id"), p.Str("member_name"))
				if !okResolved {
					return res
				}
				return ok("", row)
			},
		},
		{
			Name:        "add_team_member",
			Description: "Add a team member. Name is required.",
			Params: []ParamSpec{
				{Name: "name", Type: "string", Description: "full name", Required: true},
				{Name: "email", Type: "string", Description: "email address"},
				{Name: "phone", Type: "string", Description: "phone number"},
				{Name: "role", Type: "string", Description: "role on the crew"},
			},
			Visual: VisualCard,
			Handler: func(ctx context.Context, d *Dispatcher, p Params) Result {
				if res, missing := checkRequired(p, NeededField{Name: "name", Description: "the member's name"}); missing {
					return res
				}
				now := d.timestamp()
				row := map[string]any{
					"id":         d.newID(),
					"name":       p.Str("name"),
					"email":      nullable(p.Str("email")),
					"phone":      nullable(p.Str("phone")),
					"role":       nullable(p.Str("role")),
					"active":     1,
					"created_at": now,
					"updated_at": now,
				}
				if err := d.Store.Insert(ctx, "team_members", row); err != nil {
					return storeFailure("add team member", err)
				}
				d.recordEvent(ctx, "team_member.added", "team_member", rowID(row), events.EventPayload{"name": p.Str("name")})
				return ok(fmt.Sprintf("added %s to the team", p.Str("name")), row)
			},
		},
		{
			Name:        "update_team_member",
			Description: "Update fields on a team member.",
			Params: append(target,
				ParamSpec{Name: "name", Type: "string", Description: "new name"},
				ParamSpec{Name: "email", Type: "string", Description: "new email"},
				ParamSpec{Name: "phone", Type: "string", Description: "new phone"},
				ParamSpec{Name: "role", Type: "string", Description: "new role"},
			),
			Visual: VisualCard,
			Handler: func(ctx context.Context, d *Dispatcher, p Params) Result {
				row, res, okResolved := d.resolveTarget(ctx, memberEntity, p.Str("member_id"), p.Str("member_name"))
				if !okResolved {
					return res
				}
				set := map[string]any{}
				for _, field := range []string{"name", "email", "phone", "role"} {
					if p.Has(field) {
						set[field] = p.Str(field)
					}
				}
				if len(set) == 0 {
					return needsInput("nothing to update", []NeededField{{Name: "name", Description: "any field to change"}})
				}
				id := rowID(row)
				if _, err := d.updateByID(ctx, "team_members", id, set); err != nil {
					return storeFailure("update team member", err)
				}
				updated, err := d.Store.SelectOne(ctx, store.Query{Table: "team_members", Conds: []store.Cond{store.Eq("id", id)}})
				if err != nil {
					return storeFailure("reload team member", err)
				}
				d.recordEvent(ctx, "team_member.updated", "team_member", id, events.EventPayload{})
				return ok("team member updated", updated)
			},
		},
		{
			Name:        "deactivate_team_member",
			Description: "Deactivate a team member. History is kept; the member stops appearing in active lists.",
			Params:      target,
			Visual:      VisualConfirmation,
			Handler: func(ctx context.Context, d *Dispatcher, p Params) Result {
				row, res, okResolved := d.resolveTarget(ctx, memberEntity, p.Str("member_id"), p.Str("member_name"))
				if !okResolved {
					return res
				}
				id := rowID(row)
				if _, err := d.updateByID(ctx, "team_members", id, map[string]any{"active": 0}); err != nil {
					return storeFailure("deactivate team member", err)
				}
				d.recordEvent(ctx, "team_member.deactivated", "team_member", id, events.EventPayload{"name": rowStr(row, "name")})
				return ok(fmt.Sprintf("deactivated %s", rowStr(row, "name")), map[string]any{"id": id, "active": false})
			},
		},
	}
}

func timeTools() []ToolSpec {
	memberParam := []ParamSpec{
		{Name: "member_name", Type: "string", Description: "team member name or id", Required: true},
	}
	return []ToolSpec{
		{
			Name:        "clock_in",
			Description: "Clock a team member in. Fails if they already have an open time entry.",
			Params: append(memberParam,
				ParamSpec{Name: "project_name", Type: "string", Description: "project worked on, by name or id"},
			),
			Visual: VisualConfirmation,
			Handler: func(ctx context.Context, d *Dispatcher, p Params) Result {
				if res, missing := checkRequired(p, NeededField{Name: "member_name", Description: "who is clocking in"}); missing {
					return res
				}
				member, res, okResolved := d.resolveTarget(ctx, memberEntity, "", p.Str("member_name"))
				if !okResolved {
					return res
				}
				open, err := d.openEntry(ctx, rowID(member))
				if err != nil {
					return storeFailure("check open entries", err)
				}
				if open != nil {
					return failure(fmt.Sprintf("%s is already clocked in since %s", rowStr(member, "name"), rowStr(open, "clock_in")))
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
					"member_id":  rowID(member),
					"project_id": projectID,
					"clock_in":   now,
					"clock_out":  nil,
					"hours":      0,
					"created_at": now,
					"updated_at": now,
				}
				if err := d.Store.Insert(ctx, "time_entries", row); err != nil {
					return storeFailure("clock in", err)
				}
				d.recordEvent(ctx, "time.clock_in", "time_entry", rowID(row), events.EventPayload{"member": rowStr(member, "name")})
				return ok(fmt.Sprintf("%s clocked in at %s", rowStr(member, "name"), now), row)
			},
		},
		{
			Name:        "clock_out",
			Description: "Clock a team member out and record the hours worked.",
			Params:      memberParam,
			Visual:      VisualConfirmation,
			Handler: func(ctx context.Context, d *Dispatcher, p Params) Result {
				if res, missing := checkRequired(p, NeededField{Name: "member_name", Description: "who is clocking out"}); missing {
					return res
				}
				member, res, okResolved := d.resolveTarget(ctx, memberEntity, "", p.Str("member_name"))
				if !okResolved {
					return res
				}
				open, err := d.openEntry(ctx, rowID(member))
				if err != nil {
					return storeFailure("check open entries", err)
				}
				if open == nil {
					return failure(fmt.Sprintf("%s is not clocked in", rowStr(member, "name")))
				}
				now := d.now().UTC()
				hours := 0.0
				if started, err := time.Parse(time.RFC3339, rowStr(open, "clock_in")); err == nil {
					hours = now.Sub(started).Hours()
					if hours < 0 {
						hours = 0
					}
				}
				id := rowID(open)
				if _, err := d.updateByID(ctx, "time_entries", id, map[string]any{
					"clock_out": now.Format(time.RFC3339),
					"hours":     hours,
				}); err != nil {
					return storeFailure("clock out", err)
				}
				d.recordEvent(ctx, "time.clock_out", "time_entry", id, events.EventPayload{
					"member": rowStr(member, "name"),
					"hours":  hours,
				})
				return ok(fmt.Sprintf("%s clocked out, %.2f hours", rowStr(member, "name"), hours),
					map[string]any{"id": id, "member": rowStr(member, "name"), "hours": hours})
			},
		},
		{
			Name:        "who_is_clocked_in",
			Description: "List everyone with an open time entry right now.",
			Visual:      VisualList,
			Handler: func(ctx context.Context, d *Dispatcher, p Params) Result {
				q := store.Query{
					Table:   "time_entries",
					Conds:   []store.Cond{store.IsNull("clock_out")},
					OrderBy: "clock_in",
				}
				rows, err := d.Store.Select(ctx, q)
				if err != nil {
					return storeFailure("query open entries", err)
				}
				for _, row := range rows {
					member, err := d.Store.SelectOne(ctx, store.Query{
						Table: "team_members",
						Conds: []store.Cond{store.Eq("id", rowStr(row, "member_id"))},
					})
					if err == nil {
						row["member_name"] = member["name"]
					}
				}
				return listResult(rows, nil)
			},
		},
		{
			Name:        "query_time_entries",
			Description: "List time entries, optionally for one member or within a date window.",
			Params: []ParamSpec{
				{Name: "member_name", Type: "string", Description: "limit to one team member"},
				{Name: "date_from", Type: "string", Description: "earliest clock-in (RFC3339)"},
				{Name: "date_to", Type: "string", Description: "latest clock-in (RFC3339)"},
				{Name: "limit", Type: "number", Description: "maximum number of results"},
			},
			Visual: VisualList,
			Handler: func(ctx context.Context, d *Dispatcher, p Params) Result {
				q := store.Query{Table: "time_entries", OrderBy: "clock_in", Desc: true, Limit: d.limit(p)}
				if hint := p.Str("member_name"); hint != "" {
					member, res, okResolved := d.resolveTarget(ctx, memberEntity, "", hint)
					if !okResolved {
						return res
					}
					q.Conds = append(q.Conds, store.Eq("member_id", member["id"]))
				}
				if from := p.Str("date_from"); from != "" {
					q.Conds = append(q.Conds, store.Gte("clock_in", from))
				}
				if to := p.Str("date_to"); to != "" {
					q.Conds = append(q.Conds, store.Lte("clock_in", to))
				}
				return d.queryRows(ctx, q, map[string]string{"total_hours": "hours"})
			},
		},
		{
			Name:        "timesheet_summary",
			Description: "Total hours worked per team member over a date window.",
			Params: []ParamSpec{
				{Name: "date_from", Type: "string", Description: "earliest clock-in (RFC3339)"},
				{Name: "date_to", Type: "string", Description: "latest clock-in (RFC3339)"},
			},
			Visual: VisualChart,
			Handler: func(ctx context.Context, d *Dispatcher, p Params) Result {
				members, err := d.Store.Select(ctx, store.Query{
					Table:   "team_members",
					Conds:   []store.Cond{store.Eq("active", 1)},
					OrderBy: "name",
				})
				if err != nil {
					return storeFailure("query team members", err)
				}
				var rows []map[string]any
				var grand float64
				for _, member := range members {
					q := store.Query{
						Table: "time_entries",
						Conds: []store.Cond{store.Eq("member_id", rowStr(member, "id"))},
					}
					if from := p.Str("date_from"); from != "" {
						q.Conds = append(q.Conds, store.Gte("clock_in", from))
					}
					if to := p.Str("date_to"); to != "" {
						q.Conds = append(q.Conds, store.Lte("clock_in", to))
					}
					hours, err := d.Store.Sum(ctx, q, "hours")
					if err != nil {
						return storeFailure("sum hours", err)
					}
					grand += hours
					rows = append(rows, map[string]any{"member": member["name"], "hours": hours})
				}
				res := listResult(rows, map[string]float64{"total_hours": grand})
				res.VisualType = VisualChart
				res.Message = fmt.Sprintf("%.2f hours across %d members", grand, len(members))
				return res
			},
		},
	}
}

// openEntry returns the member's open time entry, or nil when they are clocked out.
func (d *Dispatcher) openEntry(ctx context.Context, memberID string) (map[string]any, error) {
	row, err := d.Store.SelectOne(ctx, store.Query{
		Table: "time_entries",
		Conds: []store.Cond{store.Eq("member_id", memberID), store.IsNull("clock_out")},
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return row, nil
}
