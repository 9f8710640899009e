package server

import (
	"encoding/json"

	"roofdesk/internal/agent"
	"roofdesk/internal/domain"
)

// Request payloads

type ExecuteRequest struct {
	Action string         `json:"action"`
	Params map[string]any `json:"params,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

// ChatRequest carries the whole conversation; the server keeps no session
// state between turns.
type ChatRequest struct {
	Messages []agent.ChatMessage `json:"messages"`
}

type DevLoginRequest struct {
	ActorID string   `json:"actor_id"`
	Roles   []string `json:"roles,omitempty"`
}

// Response payloads

type DevLoginResponse struct {
	Token string `json:"token"`
}

type ToolParamInfo struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Required    bool     `json:"required,omitempty"`
	Enum        []string `json:"enum,omitempty"`
}

type ToolInfo struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Visual      string          `json:"visual,omitempty"`
	Params      []ToolParamInfo `json:"params,omitempty"`
}

type ToolListResponse struct {
	Tools []ToolInfo `json:"tools"`
	Count int        `json:"count"`
}

type LeadResponse struct {
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

type ProjectResponse struct {
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

type InvoiceResponse struct {
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

type EventResponse struct {
	ID         int64          `json:"id"`
	TS         string         `json:"ts" format:"date-time"`
	Type       string         `json:"type"`
	EntityKind string         `json:"entity_kind"`
	EntityID   string         `json:"entity_id,omitempty"`
	ActorID    string         `json:"actor_id"`
	Payload    map[string]any `json:"payload,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

func leadResponse(l domain.Lead) LeadResponse {
	return LeadResponse{
		ID:        l.ID,
		Name:      l.Name,
		Email:     l.Email,
		Phone:     l.Phone,
		Address:   l.Address,
		Status:    l.Status,
		Source:    l.Source,
		Notes:     l.Notes,
		ProjectID: l.ProjectID,
		CreatedAt: l.CreatedAt,
		UpdatedAt: l.UpdatedAt,
	}
}

func mapLeads(items []domain.Lead) []LeadResponse {
	res := make([]LeadResponse, 0, len(items))
	for _, l := range items {
		res = append(res, leadResponse(l))
	}
	return res
}

func projectResponse(p domain.Project) ProjectResponse {
	return ProjectResponse{
		ID:            p.ID,
		Name:          p.Name,
		Address:       p.Address,
		Status:        p.Status,
		CustomerName:  p.CustomerName,
		CustomerEmail: p.CustomerEmail,
		CustomerPhone: p.CustomerPhone,
		Notes:         p.Notes,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func mapProjects(items []domain.Project) []ProjectResponse {
	res := make([]ProjectResponse, 0, len(items))
	for _, p := range items {
		res = append(res, projectResponse(p))
	}
	return res
}

func invoiceResponse(inv domain.Invoice) InvoiceResponse {
	return InvoiceResponse{
		ID:         inv.ID,
		Number:     inv.Number,
		ProjectID:  inv.ProjectID,
		Amount:     inv.Amount,
		BalanceDue: inv.BalanceDue,
		Status:     inv.Status,
		DueDate:    inv.DueDate,
		CreatedAt:  inv.CreatedAt,
		UpdatedAt:  inv.UpdatedAt,
	}
}

func mapInvoices(items []domain.Invoice) []InvoiceResponse {
	res := make([]InvoiceResponse, 0, len(items))
	for _, inv := range items {
		res = append(res, invoiceResponse(inv))
	}
	return res
}

func eventResponse(e domain.Event) EventResponse {
	resp := EventResponse{
		ID:         e.ID,
		TS:         e.TS,
		Type:       e.Type,
		EntityKind: e.EntityKind,
		EntityID:   e.EntityID,
		ActorID:    e.ActorID,
	}
	if e.Payload != "" {
		var payload map[string]any
		if err := json.Unmarshal([]byte(e.Payload), &payload); err == nil {
			resp.Payload = payload
		}
	}
	return resp
}

func mapEvents(items []domain.Event) []EventResponse {
	res := make([]EventResponse, 0, len(items))
	for _, e := range items {
		res = append(res, eventResponse(e))
	}
	return res
}
