package domain

type Lead struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Email     string  `json:"email,omitempty"`
	Phone     string  `json:"phone,omitempty"`
	Address   string  `json:"address,omitempty"`
	Status    string  `json:"status" enum:"new,contacted,ready_to_quote,quoted,proposal_sent,contract_sent,in_production,inspected,paid"`
	Source    string  `json:"source,omitempty"`
	Notes     string  `json:"notes,omitempty"`
	ProjectID *string `json:"project_id,omitempty"`
	CreatedAt string  `json:"created_at" format:"date-time"`
	UpdatedAt string  `json:"updated_at" format:"date-time"`
}

// LeadPipeline lists lead statuses in pipeline order.
var LeadPipeline = []string{
	"new", "contacted", "ready_to_quote", "quoted", "proposal_sent",
	"contract_sent", "in_production", "inspected", "paid",
}

type Project struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Address       string `json:"address,omitempty"`
	Status        string `json:"status" enum:"pending,scheduled,active,in_progress,completed,on_hold,cancelled"`
	CustomerName  string `json:"customer_name,omitempty"`
	CustomerEmail string `json:"customer_email,omitempty"`
	CustomerPhone string `json:"customer_phone,omitempty"`
	Notes         string `json:"notes,omitempty"`
	CreatedAt     string `json:"created_at" format:"date-time"`
	UpdatedAt     string `json:"updated_at" format:"date-time"`
}

var ProjectStatuses = []string{
	"pending", "scheduled", "active", "in_progress", "completed", "on_hold", "cancelled",
}

type Invoice struct {
	ID         string  `json:"id"`
	Number     string  `json:"number"`
	ProjectID  *string `json:"project_id,omitempty"`
	Amount     float64 `json:"amount"`
	BalanceDue float64 `json:"balance_due"`
	Status     string  `json:"status" enum:"draft,sent,partial,paid,void"`
	DueDate    string  `json:"due_date,omitempty" format:"date-time"`
	CreatedAt  string  `json:"created_at" format:"date-time"`
	UpdatedAt  string  `json:"updated_at" format:"date-time"`
}

type Payment struct {
	ID        string  `json:"id"`
	InvoiceID string  `json:"invoice_id"`
	Amount    float64 `json:"amount"`
	Method    string  `json:"method,omitempty"`
	Note      string  `json:"note,omitempty"`
	CreatedAt string  `json:"created_at" format:"date-time"`
}

type ScheduleEntry struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	ProjectID *string `json:"project_id,omitempty"`
	Assignee  string  `json:"assignee,omitempty"`
	StartsAt  string  `json:"starts_at" format:"date-time"`
	EndsAt    string  `json:"ends_at,omitempty" format:"date-time"`
	Status    string  `json:"status" enum:"scheduled,confirmed,completed,cancelled"`
	Notes     string  `json:"notes,omitempty"`
	CreatedAt string  `json:"created_at" format:"date-time"`
	UpdatedAt string  `json:"updated_at" format:"date-time"`
}

type WorkOrder struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	ProjectID  *string `json:"project_id,omitempty"`
	AssigneeID *string `json:"assignee_id,omitempty"`
	Status     string  `json:"status" enum:"open,assigned,in_progress,done,cancelled"`
	Priority   string  `json:"priority,omitempty" enum:"low,medium,high,urgent"`
	Notes      string  `json:"notes,omitempty"`
	CreatedAt  string  `json:"created_at" format:"date-time"`
	UpdatedAt  string  `json:"updated_at" format:"date-time"`
}

type Ticket struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	ProjectID *string `json:"project_id,omitempty"`
	Status    string  `json:"status" enum:"open,in_progress,resolved,closed"`
	Priority  string  `json:"priority,omitempty" enum:"low,medium,high,urgent"`
	Notes     string  `json:"notes,omitempty"`
	CreatedAt string  `json:"created_at" format:"date-time"`
	UpdatedAt string  `json:"updated_at" format:"date-time"`
}

type Todo struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Assignee  string  `json:"assignee,omitempty"`
	Status    string  `json:"status" enum:"open,done"`
	DueDate   string  `json:"due_date,omitempty" format:"date-time"`
	ProjectID *string `json:"project_id,omitempty"`
	CreatedAt string  `json:"created_at" format:"date-time"`
	UpdatedAt string  `json:"updated_at" format:"date-time"`
}

type Incident struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	ProjectID   *string `json:"project_id,omitempty"`
	Severity    string  `json:"severity,omitempty" enum:"minor,major,critical"`
	Status      string  `json:"status" enum:"reported,investigating,resolved,closed"`
	Description string  `json:"description,omitempty"`
	CreatedAt   string  `json:"created_at" format:"date-time"`
	UpdatedAt   string  `json:"updated_at" format:"date-time"`
}

type TeamMember struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Role      string `json:"role,omitempty"`
	Active    bool   `json:"active"`
	CreatedAt string `json:"created_at" format:"date-time"`
	UpdatedAt string `json:"updated_at" format:"date-time"`
}

type TimeEntry struct {
	ID        string  `json:"id"`
	MemberID  string  `json:"member_id"`
	ProjectID *string `json:"project_id,omitempty"`
	ClockIn   string  `json:"clock_in" format:"date-time"`
	ClockOut  *string `json:"clock_out,omitempty" format:"date-time"`
	Hours     float64 `json:"hours,omitempty"`
	CreatedAt string  `json:"created_at" format:"date-time"`
	UpdatedAt string  `json:"updated_at" format:"date-time"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}

type APIKey struct {
	ID        string `json:"id"`
	ActorID   string `json:"actor_id"`
	Name      string `json:"name,omitempty"`
	KeyHash   string `json:"key_hash"`
	CreatedAt string `json:"created_at" format:"date-time"`
}
