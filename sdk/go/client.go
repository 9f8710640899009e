package roofdesksdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Roofdesk HTTP API client.
type Client struct {
	BaseURL     string
	APIKey      string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// ToolResult is the structured outcome of a tool execution.
type ToolResult struct {
	Success      bool               `json:"success"`
	Error        string             `json:"error,omitempty"`
	Message      string             `json:"message,omitempty"`
	VisualType   string             `json:"visual_type,omitempty"`
	Data         any                `json:"data,omitempty"`
	Count        *int               `json:"count,omitempty"`
	Aggregates   map[string]float64 `json:"aggregates,omitempty"`
	NeededFields []NeededField      `json:"needed_fields,omitempty"`
}

// NeededField names a required input the agent still has to collect.
type NeededField struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// ChatMessage is one conversation entry. The server is stateless; send the
// full history on every call.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatOutcome is one conversation turn's output.
type ChatOutcome struct {
	Answer     string      `json:"answer"`
	Structured *ToolResult `json:"structured_data,omitempty"`
	ToolsUsed  []string    `json:"tools_used,omitempty"`
}

// Tool describes one registered agent tool.
type Tool struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Visual      string      `json:"visual,omitempty"`
	Params      []ToolParam `json:"params,omitempty"`
}

// ToolParam describes one tool parameter.
type ToolParam struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Required    bool     `json:"required,omitempty"`
	Enum        []string `json:"enum,omitempty"`
}

// Lead represents the API lead model.
type Lead struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Email     string  `json:"email,omitempty"`
	Phone     string  `json:"phone,omitempty"`
	Address   string  `json:"address,omitempty"`
	Status    string  `json:"status"`
	Source    string  `json:"source,omitempty"`
	Notes     string  `json:"notes,omitempty"`
	ProjectID *string `json:"project_id,omitempty"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

// Project represents the API project model.
type Project struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Address       string `json:"address,omitempty"`
	Status        string `json:"status"`
	CustomerName  string `json:"customer_name,omitempty"`
	CustomerEmail string `json:"customer_email,omitempty"`
	CustomerPhone string `json:"customer_phone,omitempty"`
	Notes         string `json:"notes,omitempty"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

// Invoice represents the API invoice model.
type Invoice struct {
	ID         string  `json:"id"`
	Number     string  `json:"number"`
	ProjectID  *string `json:"project_id,omitempty"`
	Amount     float64 `json:"amount"`
	BalanceDue float64 `json:"balance_due"`
	Status     string  `json:"status"`
	DueDate    string  `json:"due_date,omitempty"`
	CreatedAt  string  `json:"created_at"`
	UpdatedAt  string  `json:"updated_at"`
}

// Event represents an audit log entry.
type Event struct {
	ID         int64          `json:"id"`
	TS         string         `json:"ts"`
	Type       string         `json:"type"`
	EntityKind string         `json:"entity_kind"`
	EntityID   string         `json:"entity_id,omitempty"`
	ActorID    string         `json:"actor_id"`
	Payload    map[string]any `json:"payload,omitempty"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// Execute runs one agent tool by name.
func (c *Client) Execute(ctx context.Context, action string, params map[string]any) (ToolResult, error) {
	body := map[string]any{"action": action}
	if params != nil {
		body["params"] = params
	}
	var resp ToolResult
	err := c.do(ctx, http.MethodPost, "v0/agent/execute", body, &resp)
	return resp, err
}

// Chat sends one user message through the conversation loop.
func (c *Client) Chat(ctx context.Context, message string) (ChatOutcome, error) {
	return c.ChatHistory(ctx, []ChatMessage{{Role: "user", Content: message}})
}

// ChatHistory runs one turn over a full conversation history.
func (c *Client) ChatHistory(ctx context.Context, messages []ChatMessage) (ChatOutcome, error) {
	var resp ChatOutcome
	err := c.do(ctx, http.MethodPost, "v0/agent/chat", map[string]any{"messages": messages}, &resp)
	return resp, err
}

// Tools lists the registered agent tools.
func (c *Client) Tools(ctx context.Context) ([]Tool, error) {
	var resp struct {
		Tools []Tool `json:"tools"`
		Count int    `json:"count"`
	}
	err := c.do(ctx, http.MethodGet, "v0/agent/tools", nil, &resp)
	return resp.Tools, err
}

// Leads lists leads, optionally filtered by status.
func (c *Client) Leads(ctx context.Context, status string, limit int) ([]Lead, error) {
	var resp []Lead
	err := c.do(ctx, http.MethodGet, listEndpoint("v0/leads", status, limit), nil, &resp)
	return resp, err
}

// Lead fetches one lead by id.
func (c *Client) Lead(ctx context.Context, id string) (Lead, error) {
	var resp Lead
	err := c.do(ctx, http.MethodGet, "v0/leads/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

// Projects lists projects, optionally filtered by status.
func (c *Client) Projects(ctx context.Context, status string, limit int) ([]Project, error) {
	var resp []Project
	err := c.do(ctx, http.MethodGet, listEndpoint("v0/projects", status, limit), nil, &resp)
	return resp, err
}

// Project fetches one project by id.
func (c *Client) Project(ctx context.Context, id string) (Project, error) {
	var resp Project
	err := c.do(ctx, http.MethodGet, "v0/projects/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

// Invoices lists invoices, optionally filtered by status.
func (c *Client) Invoices(ctx context.Context, status string, limit int) ([]Invoice, error) {
	var resp []Invoice
	err := c.do(ctx, http.MethodGet, listEndpoint("v0/invoices", status, limit), nil, &resp)
	return resp, err
}

// Events returns recent audit events, newest first.
func (c *Client) Events(ctx context.Context, limit int) ([]Event, error) {
	endpoint := "v0/events"
	if limit > 0 {
		endpoint = fmt.Sprintf("%s?limit=%d", endpoint, limit)
	}
	var resp []Event
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// DevLogin mints a JWT through the dev-only login endpoint and stores it on
// the client for subsequent calls.
func (c *Client) DevLogin(ctx context.Context, actorID string, roles []string) (string, error) {
	body := map[string]any{"actor_id": actorID}
	if len(roles) > 0 {
		body["roles"] = roles
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := c.do(ctx, http.MethodPost, "v0/auth/dev/login", body, &resp); err != nil {
		return "", err
	}
	c.BearerToken = resp.Token
	return resp.Token, nil
}

func listEndpoint(base, status string, limit int) string {
	q := url.Values{}
	if status != "" {
		q.Set("status", status)
	}
	if limit > 0 {
		q.Set("limit", fmt.Sprint(limit))
	}
	if len(q) == 0 {
		return base
	}
	return base + "?" + q.Encode()
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
