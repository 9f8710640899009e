package agent

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"roofdesk/internal/events"
	"roofdesk/internal/store"
)

// Dispatcher executes registry tools against the store. One dispatcher serves
// many requests; it holds no per-request state.
type Dispatcher struct {
	Store        store.Store
	Events       events.Writer
	Registry     *Registry
	ActorID      string
	DefaultLimit int
	MaxLimit     int
	Now          func() time.Time
	Logger       *log.Logger
}

type Options struct {
	ActorID      string
	DefaultLimit int
	MaxLimit     int
	Logger       *log.Logger
}

func NewDispatcher(st store.Store, reg *Registry, opts Options) *Dispatcher {
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = 25
	}
	if opts.MaxLimit < opts.DefaultLimit {
		opts.MaxLimit = 100
	}
	if opts.ActorID == "" {
		opts.ActorID = "agent"
	}
	return &Dispatcher{
		Store:        st,
		Events:       events.Writer{DB: st.DB},
		Registry:     reg,
		ActorID:      opts.ActorID,
		DefaultLimit: opts.DefaultLimit,
		MaxLimit:     opts.MaxLimit,
		Now:          time.Now,
		Logger:       opts.Logger,
	}
}

func (d *Dispatcher) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func (d *Dispatcher) timestamp() string {
	return d.now().UTC().Format(time.RFC3339)
}

func (d *Dispatcher) logger() *log.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return log.Default()
}

// Execute runs one tool by name. Store errors are contained: they come back
// as a structured failure, never as a propagated error.
func (d *Dispatcher) Execute(ctx context.Context, action string, params map[string]any) Result {
	spec, ok := d.Registry.Get(action)
	if !ok {
		return failure(fmt.Sprintf("unknown tool %q", action))
	}
	res := spec.Handler(ctx, d, Params(params))
	if res.VisualType == "" {
		res.VisualType = spec.Visual
	}
	if !res.Success && res.Error != "" {
		d.logger().Printf("tool %s failed: %s", action, res.Error)
	}
	return res
}

// checkRequired returns a needs-more-input result when human-facing required
// fields are absent, so the conversation can ask a follow-up instead of erroring.
func checkRequired(p Params, fields ...NeededField) (Result, bool) {
	var missing []NeededField
	for _, f := range fields {
		if !p.Has(f.Name) {
			missing = append(missing, f)
		}
	}
	if len(missing) == 0 {
		return Result{}, false
	}
	return needsInput("more information is needed", missing), true
}

// limit clamps the requested result limit to the configured bounds.
func (d *Dispatcher) limit(p Params) int {
	n, ok := p.Int("limit")
	if !ok || n <= 0 {
		return d.DefaultLimit
	}
	if n > d.MaxLimit {
		return d.MaxLimit
	}
	return n
}

func (d *Dispatcher) newID() string {
	return uuid.NewString()
}

// storeFailure converts a store error into a structured failure result.
func storeFailure(op string, err error) Result {
	return failure(fmt.Sprintf("%s: %v", op, err))
}

// resolveTarget resolves an id/hint pair for a tool and translates resolver
// outcomes into results. The bool reports whether resolution succeeded.
func (d *Dispatcher) resolveTarget(ctx context.Context, ent entity, id, hint string) (map[string]any, Result, bool) {
	row, err := d.resolve(ctx, ent, id, hint)
	if err == nil {
		return row, Result{}, true
	}
	if errors.Is(err, store.ErrNotFound) {
		term := hint
		if term == "" {
			term = id
		}
		return nil, notFound(ent, term), false
	}
	if errors.Is(err, errNoHint) {
		return nil, needsInput("which "+ent.Label+" do you mean?", []NeededField{
			{Name: ent.Label + "_name", Description: "name or identifier of the " + ent.Label},
		}), false
	}
	return nil, storeFailure("resolve "+ent.Label, err), false
}

func rowID(row map[string]any) string {
	if v, ok := row["id"].(string); ok {
		return v
	}
	return fmt.Sprint(row["id"])
}

func rowStr(row map[string]any, key string) string {
	if v, ok := row[key].(string); ok {
		return v
	}
	if row[key] == nil {
		return ""
	}
	return fmt.Sprint(row[key])
}

// recordEvent appends an audit row; failures are logged, never fatal to the call.
func (d *Dispatcher) recordEvent(ctx context.Context, evtType, kind, id string, payload events.EventPayload) {
	if err := d.Events.Append(ctx, evtType, kind, id, d.ActorID, payload); err != nil {
		d.logger().Printf("append event %s: %v", evtType, err)
	}
}

// queryRows runs a filtered select and packages it as a list result. The sums
// map requests aggregates: label -> numeric column summed over the same filter.
func (d *Dispatcher) queryRows(ctx context.Context, q store.Query, sums map[string]string) Result {
	rows, err := d.Store.Select(ctx, q)
	if err != nil {
		return storeFailure("query "+q.Table, err)
	}
	var aggs map[string]float64
	for label, field := range sums {
		total, err := d.Store.Sum(ctx, q, field)
		if err != nil {
			return storeFailure("aggregate "+q.Table, err)
		}
		if aggs == nil {
			aggs = map[string]float64{}
		}
		aggs[label] = total
	}
	return listResult(rows, aggs)
}

// transition updates an entity's status and reports the old and new values.
func (d *Dispatcher) transition(ctx context.Context, table, kind string, row map[string]any, newStatus string) Result {
	id := rowID(row)
	prev := rowStr(row, "status")
	if _, err := d.updateByID(ctx, table, id, map[string]any{"status": newStatus}); err != nil {
		return storeFailure("update "+kind+" status", err)
	}
	d.recordEvent(ctx, kind+".status_changed", kind, id, events.EventPayload{
		"previous_status": prev,
		"new_status":      newStatus,
	})
	return Result{
		Success:    true,
		Message:    fmt.Sprintf("%s status changed from %s to %s", kind, prev, newStatus),
		Data:       map[string]any{"id": id, "previous_status": prev, "new_status": newStatus},
		VisualType: VisualConfirmation,
	}
}

// updateByID sets columns on one row and reports whether it existed.
func (d *Dispatcher) updateByID(ctx context.Context, table, id string, set map[string]any) (bool, error) {
	set["updated_at"] = d.timestamp()
	n, err := d.Store.Update(ctx, table, set, []store.Cond{store.Eq("id", id)})
	return n > 0, err
}
