package agent

import (
	"context"
	"fmt"
	"sort"
)

// pages the client UI knows how to show.
var pages = []string{
	"dashboard", "leads", "projects", "finance", "schedule",
	"work_orders", "tickets", "todos", "incidents", "team", "timesheets",
}

// pageForTable maps a resolvable entity table to the page that renders it.
var pageForTable = map[string]string{
	"leads":            "leads",
	"projects":         "projects",
	"invoices":         "finance",
	"schedule_entries": "schedule",
	"work_orders":      "work_orders",
	"tickets":          "tickets",
	"todos":            "todos",
	"incidents":        "incidents",
	"team_members":     "team",
}

func navigationTools() []ToolSpec {
	itemTypes := make([]string, 0, len(entityByName))
	for name := range entityByName {
		itemTypes = append(itemTypes, name)
	}
	sort.Strings(itemTypes)
	return []ToolSpec{
		{
			Name:        "navigate_to_page",
			Description: "Send the user to a page in the app.",
			Params: []ParamSpec{
				{Name: "page", Type: "string", Description: "destination page", Required: true, Enum: pages},
			},
			Visual: VisualNavigation,
			Handler: func(ctx context.Context, d *Dispatcher, p Params) Result {
				if res, missing := checkRequired(p, NeededField{Name: "page", Description: "where to go"}); missing {
					return res
				}
				page := p.Str("page")
				if !validStatus(page, pages) {
					return failure(fmt.Sprintf("unknown page %q", page))
				}
				return Result{
					Success:    true,
					Message:    "navigating to " + page,
					Data:       map[string]any{"page": page},
					VisualType: VisualNavigation,
				}
			},
		},
		{
			Name:        "navigate_to_specific_item",
			Description: "Look an item up by name and send the user to its detail view.",
			Params: []ParamSpec{
				{Name: "item_type", Type: "string", Description: "kind of item", Required: true, Enum: itemTypes},
				{Name: "search", Type: "string", Description: "name or identifier of the item", Required: true},
			},
			Visual: VisualNavigation,
			Handler: func(ctx context.Context, d *Dispatcher, p Params) Result {
				if res, missing := checkRequired(p,
					NeededField{Name: "item_type", Description: "what kind of item"},
					NeededField{Name: "search", Description: "the item's name"},
				); missing {
					return res
				}
				ent, found := entityByName[p.Str("item_type")]
				if !found {
					return failure(fmt.Sprintf("unknown item type %q", p.Str("item_type")))
				}
				row, res, okResolved := d.resolveTarget(ctx, ent, "", p.Str("search"))
				if !okResolved {
					return res
				}
				page := pageForTable[ent.Table]
				return Result{
					Success: true,
					Message: fmt.Sprintf("navigating to %s %s", ent.Label, rowStr(row, ent.SearchFields[0])),
					Data: map[string]any{
						"page":    page,
						"item_id": rowID(row),
					},
					VisualType: VisualNavigation,
				}
			},
		},
	}
}
