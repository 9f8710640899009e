package agent

import (
	"context"
	"fmt"
	"time"

	"roofdesk/internal/events"
	"roofdesk/internal/store"
)

func scheduleTools() []ToolSpec {
	target := []ParamSpec{
		{Name: "entry_id", Type: "string", Description: "exact schedule entry id"},
		{Name: "entry_title", Type: "string", Description: "partial title or assignee; also accepts latest/oldest"},
	}
	return []ToolSpec{
		{
			Name:        "query_schedule",
			Description: "List schedule entries. Defaults to upcoming entries from today forward, earliest first.",
			Params: []ParamSpec{
				{Name: "date_from", Type: "string", Description: "start of the window (RFC3339); defaults to today"},
				{Name: "date_to", Type: "string", Description: "end of the window (RFC3339)"},
				{Name: "assignee", Type: "string", Description: "filter by assignee"},
				{Name: "include_past", Type: "boolean", Description: "include entries before today"},
				{Name: "limit", Type: "number", Description: "maximum number of results"},
			},
			Visual:  VisualList,
			Handler: handleQuerySchedule,
		},
		{
			Name:        "todays_schedule",
			Description: "List schedule entries for today.",
			Visual:      VisualList,
			Handler:     handleTodaysSchedule,
		},
		{
			Name:        "create_schedule_entry",
			Description: "Put a job on the schedule. Title and start time are required.",
			Params: []ParamSpec{
				{Name: "title", Type: "string", Description: "what is scheduled", Required: true},
				{Name: "starts_at", Type: "string", Description: "start time (RFC3339)", Required: true},
				{Name: "ends_at", Type: "string", Description: "end time (RFC3339)"},
				{Name: "assignee", Type: "string", Description: "who is assigned"},
				{Name: "project_name", Type: "string", Description: "project to attach, by name or id"},
				{Name: "notes", Type: "string", Description: "free-form notes"},
			},
			Visual:  VisualCard,
			Handler: handleCreateScheduleEntry,
		},
		{
			Name:        "update_schedule_entry",
			Description: "Update fields on a schedule entry.",
			Params: append(target,
				ParamSpec{Name: "title", Type: "string", Description: "new title"},
				ParamSpec{Name: "assignee", Type: "string", Description: "new assignee"},
				ParamSpec{Name: "notes", Type: "string", Description: "replacement notes"},
				ParamSpec{Name: "new_status", Type: "string", Description: "new status", Enum: []string{"scheduled", "confirmed", "completed", "cancelled"}},
			),
			Visual:  VisualCard,
			Handler: handleUpdateScheduleEntry,
		},
		{
			Name:        "reschedule_entry",
			Description: "Move a schedule entry to a new start time and report the change.",
			Params: append(target,
				ParamSpec{Name: "new_starts_at", Type: "string", Description: "new start time (RFC3339)", Required: true},
				ParamSpec{Name: "new_ends_at", Type: "string", Description: "new end time (RFC3339)"},
			),
			Visual:  VisualConfirmation,
			Handler: handleRescheduleEntry,
		},
		{
			Name:        "delete_schedule_entry",
			Description: "Remove an entry from the schedule.",
			Params:      target,
			Visual:      VisualConfirmation,
			Handler:     handleDeleteScheduleEntry,
		},
	}
}

func (d *Dispatcher) startOfToday() string {
	now := d.now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).Format(time.RFC3339)
}

func handleQuerySchedule(ctx context.Context, d *Dispatcher, p Params) Result {
	// Schedules read forward: upcoming entries first unless asked otherwise.
	q := store.Query{Table: "schedule_entries", OrderBy: "starts_at", Limit: d.limit(p)}
	from := p.Str("date_from")
	if from == "" && !p.Bool("include_past") {
		from = d.startOfToday()
	}
	if from != "" {
		q.Conds = append(q.Conds, store.Gte("starts_at", from))
	}
	if to := p.Str("date_to"); to != "" {
		q.Conds = append(q.Conds, store.Lte("starts_at", to))
	}
	if assignee := p.Str("assignee"); assignee != "" {
		q.Conds = append(q.Conds, store.Like("assignee", assignee))
	}
	return d.queryRows(ctx, q, nil)
}

func handleTodaysSchedule(ctx context.Context, d *Dispatcher, _ Params) Result {
	from := d.startOfToday()
	start, _ := time.Parse(time.RFC3339, from)
	to := start.Add(24 * time.Hour).Format(time.RFC3339)
	q := store.Query{
		Table:   "schedule_entries",
		Conds:   []store.Cond{store.Gte("starts_at", from), store.Lte("starts_at", to)},
		OrderBy: "starts_at",
	}
	return d.queryRows(ctx, q, nil)
}

func handleCreateScheduleEntry(ctx context.Context, d *Dispatcher, p Params) Result {
	if res, missing := checkRequired(p,
		NeededField{Name: "title", Description: "what to schedule"},
		NeededField{Name: "starts_at", Description: "when it starts"},
	); missing {
		return res
	}
	if _, err := time.Parse(time.RFC3339, p.Str("starts_at")); err != nil {
		return failure(fmt.Sprintf("invalid starts_at %q: expected RFC3339", p.Str("starts_at")))
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
		"assignee":   nullable(p.Str("assignee")),
		"starts_at":  p.Str("starts_at"),
		"ends_at":    nullable(p.Str("ends_at")),
		"status":     "scheduled",
		"notes":      nullable(p.Str("notes")),
		"created_at": now,
		"updated_at": now,
	}
	if err := d.Store.Insert(ctx, "schedule_entries", row); err != nil {
		return storeFailure("create schedule entry", err)
	}
	d.recordEvent(ctx, "schedule.created", "schedule_entry", rowID(row), events.EventPayload{"title": p.Str("title")})
	return ok(fmt.Sprintf("scheduled %s for %s", p.Str("title"), p.Str("starts_at")), row)
}

func handleUpdateScheduleEntry(ctx context.Context, d *Dispatcher, p Params) Result {
	row, res, okResolved := d.resolveTarget(ctx, scheduleEntity, p.Str("entry_id"), p.Str("entry_title"))
	if !okResolved {
		return res
	}
	set := map[string]any{}
	for _, field := range []string{"title", "assignee", "notes"} {
		if p.Has(field) {
			set[field] = p.Str(field)
		}
	}
	if s := p.Str("new_status"); s != "" {
		if !validStatus(s, []string{"scheduled", "confirmed", "completed", "cancelled"}) {
			return failure(fmt.Sprintf("invalid schedule status %q", s))
		}
		set["status"] = s
	}
	if len(set) == 0 {
		return needsInput("nothing to update", []NeededField{{Name: "title", Description: "any field to change"}})
	}
	id := rowID(row)
	if _, err := d.updateByID(ctx, "schedule_entries", id, set); err != nil {
		return storeFailure("update schedule entry", err)
	}
	updated, err := d.Store.SelectOne(ctx, store.Query{Table: "schedule_entries", Conds: []store.Cond{store.Eq("id", id)}})
	if err != nil {
		return storeFailure("reload schedule entry", err)
	}
	d.recordEvent(ctx, "schedule.updated", "schedule_entry", id, events.EventPayload{})
	return ok("schedule entry updated", updated)
}

func handleRescheduleEntry(ctx context.Context, d *Dispatcher, p Params) Result {
	if res, missing := checkRequired(p, NeededField{Name: "new_starts_at", Description: "the new start time"}); missing {
		return res
	}
	if _, err := time.Parse(time.RFC3339, p.Str("new_starts_at")); err != nil {
		return failure(fmt.Sprintf("invalid new_starts_at %q: expected RFC3339", p.Str("new_starts_at")))
	}
	row, res, okResolved := d.resolveTarget(ctx, scheduleEntity, p.Str("entry_id"), p.Str("entry_title"))
	if !okResolved {
		return res
	}
	id := rowID(row)
	previous := rowStr(row, "starts_at")
	set := map[string]any{"starts_at": p.Str("new_starts_at")}
	if p.Has("new_ends_at") {
		set["ends_at"] = p.Str("new_ends_at")
	}
	if _, err := d.updateByID(ctx, "schedule_entries", id, set); err != nil {
		return storeFailure("reschedule entry", err)
	}
	d.recordEvent(ctx, "schedule.rescheduled", "schedule_entry", id, events.EventPayload{
		"previous_starts_at": previous,
		"new_starts_at":      p.Str("new_starts_at"),
	})
	return ok(fmt.Sprintf("moved %s from %s to %s", rowStr(row, "title"), previous, p.Str("new_starts_at")),
		map[string]any{"id": id, "previous_starts_at": previous, "new_starts_at": p.Str("new_starts_at")})
}

func handleDeleteScheduleEntry(ctx context.Context, d *Dispatcher, p Params) Result {
	row, res, okResolved := d.resolveTarget(ctx, scheduleEntity, p.Str("entry_id"), p.Str("entry_title"))
	if !okResolved {
		return res
	}
	id := rowID(row)
	if _, err := d.Store.Delete(ctx, "schedule_entries", []store.Cond{store.Eq("id", id)}); err != nil {
		return storeFailure("delete schedule entry", err)
	}
	d.recordEvent(ctx, "schedule.deleted", "schedule_entry", id, events.EventPayload{"title": rowStr(row, "title")})
	return ok(fmt.Sprintf("removed %s from the schedule", rowStr(row, "title")), map[string]any{"id": id})
}
