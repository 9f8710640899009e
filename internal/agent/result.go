package agent

// Visual hints tell the caller how to render a tool result. Each tool declares
// one and keeps it stable across invocations.
const (
	VisualList         = "list"
	VisualCard         = "card"
	VisualChart        = "chart"
	VisualInputForm    = "input_form"
	VisualNavigation   = "navigation"
	VisualConfirmation = "confirmation"
)

// NeededField names a required human-facing input the caller still has to collect.
type NeededField struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Result is the structured outcome of one tool call. Failures are values, not
// errors: the conversation loop reports them and keeps going.
type Result struct {
	Success      bool               `json:"success"`
	Error        string             `json:"error,omitempty"`
	Message      string             `json:"message,omitempty"`
	VisualType   string             `json:"visual_type,omitempty"`
	Data         any                `json:"data,omitempty"`
	Count        *int               `json:"count,omitempty"`
	Aggregates   map[string]float64 `json:"aggregates,omitempty"`
	NeededFields []NeededField      `json:"needed_fields,omitempty"`
}

func ok(message string, data any) Result {
	return Result{Success: true, Message: message, Data: data}
}

func failure(message string) Result {
	return Result{Success: false, Error: message}
}

func listResult(rows []map[string]any, aggregates map[string]float64) Result {
	if rows == nil {
		rows = []map[string]any{}
	}
	n := len(rows)
	return Result{Success: true, Data: rows, Count: &n, Aggregates: aggregates, VisualType: VisualList}
}

func needsInput(message string, fields []NeededField) Result {
	return Result{Success: false, Message: message, NeededFields: fields, VisualType: VisualInputForm}
}
