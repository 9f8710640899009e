package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"roofdesk/internal/agent"
	"roofdesk/internal/db"
	"roofdesk/internal/domain"
	"roofdesk/internal/migrate"
	"roofdesk/internal/store"
)

const testSecret = "test-signing-secret"

func newTestServer(t *testing.T, allowDevLogin bool) (*httptest.Server, store.Store) {
	t.Helper()
	return newTestServerWithChat(t, allowDevLogin, nil)
}

func newTestServerWithChat(t *testing.T, allowDevLogin bool, chat agent.ChatClient) (*httptest.Server, store.Store) {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	st := store.Store{DB: conn}
	d := agent.NewDispatcher(st, agent.NewRegistry(), agent.Options{ActorID: "api"})
	var loop *agent.Loop
	if chat != nil {
		loop = agent.NewLoop(chat, d, "test-model")
	}
	handler, err := New(Config{
		Store:      st,
		Dispatcher: d,
		Loop:       loop,
		Auth: AuthConfig{
			JWTSecret:     testSecret,
			AllowDevLogin: allowDevLogin,
		},
	})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv, st
}

func devToken(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	res := postJSON(t, srv, "/v0/auth/dev/login", "", map[string]any{"actor_id": "alice"})
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("dev login status = %d", res.StatusCode)
	}
	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	if body.Token == "" {
		t.Fatal("empty token")
	}
	return body.Token
}

func postJSON(t *testing.T, srv *httptest.Server, path, bearer string, payload any) *http.Response {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, srv.URL+path, bytes.NewReader(data))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	res, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	return res
}

func getWithAuth(t *testing.T, srv *httptest.Server, path, bearer, apiKey string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, srv.URL+path, nil)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	if apiKey != "" {
		req.Header.Set("X-Api-Key", apiKey)
	}
	res, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	return res
}

func TestHealthIsOpen(t *testing.T) {
	srv, _ := newTestServer(t, true)
	res, err := srv.Client().Get(srv.URL + "/v0/health")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", res.StatusCode)
	}
}

func TestUnauthenticatedRequestsAreRejected(t *testing.T) {
	srv, _ := newTestServer(t, true)
	res := getWithAuth(t, srv, "/v0/leads", "", "")
	defer res.Body.Close()
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", res.StatusCode)
	}
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error.Code != "unauthorized" {
		t.Fatalf("code = %q", body.Error.Code)
	}
}

func TestGarbageBearerTokenIsRejected(t *testing.T) {
	srv, _ := newTestServer(t, true)
	res := getWithAuth(t, srv, "/v0/leads", "not-a-jwt", "")
	defer res.Body.Close()
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", res.StatusCode)
	}
}

func TestDevLoginDisabled(t *testing.T) {
	srv, _ := newTestServer(t, false)
	res := postJSON(t, srv, "/v0/auth/dev/login", "", map[string]any{"actor_id": "alice"})
	defer res.Body.Close()
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", res.StatusCode)
	}
}

func TestAgentExecuteWithBearerToken(t *testing.T) {
	srv, _ := newTestServer(t, true)
	token := devToken(t, srv)

	res := postJSON(t, srv, "/v0/agent/execute", token, map[string]any{
		"action": "create_lead",
		"params": map[string]any{"name": "Maria Gonzales"},
	})
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", res.StatusCode)
	}
	var result agent.Result
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !result.Success {
		t.Fatalf("result = %+v", result)
	}

	list := getWithAuth(t, srv, "/v0/leads", token, "")
	defer list.Body.Close()
	if list.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d", list.StatusCode)
	}
	var leads []LeadResponse
	if err := json.NewDecoder(list.Body).Decode(&leads); err != nil {
		t.Fatalf("decode leads: %v", err)
	}
	if len(leads) != 1 || leads[0].Name != "Maria Gonzales" {
		t.Fatalf("leads = %+v", leads)
	}
}

func TestAgentExecuteRequiresAction(t *testing.T) {
	srv, _ := newTestServer(t, true)
	token := devToken(t, srv)
	res := postJSON(t, srv, "/v0/agent/execute", token, map[string]any{"action": ""})
	defer res.Body.Close()
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", res.StatusCode)
	}
}

func TestAPIKeyAuthentication(t *testing.T) {
	srv, st := newTestServer(t, true)
	secret := "rdk_integration_key"
	err := st.InsertAPIKey(context.Background(), domain.APIKey{
		ID:      "k1",
		ActorID: "bot",
		KeyHash: store.HashAPIKey(secret),
	})
	if err != nil {
		t.Fatalf("insert key: %v", err)
	}

	res := getWithAuth(t, srv, "/v0/leads", "", secret)
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", res.StatusCode)
	}

	bad := getWithAuth(t, srv, "/v0/leads", "", "wrong-key")
	defer bad.Body.Close()
	if bad.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", bad.StatusCode)
	}
}

func TestChatWithoutModelIsUnavailable(t *testing.T) {
	srv, _ := newTestServer(t, true)
	token := devToken(t, srv)
	res := postJSON(t, srv, "/v0/agent/chat", token, map[string]any{
		"messages": []map[string]any{{"role": "user", "content": "hello"}},
	})
	defer res.Body.Close()
	if res.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", res.StatusCode)
	}
}

// erroringChat simulates an unreachable model endpoint.
type erroringChat struct{}

func (erroringChat) CreateChatCompletion(context.Context, openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	return openai.ChatCompletionResponse{}, errors.New("upstream unavailable")
}

func TestChatUpstreamFailureIs500(t *testing.T) {
	srv, _ := newTestServerWithChat(t, true, erroringChat{})
	token := devToken(t, srv)
	res := postJSON(t, srv, "/v0/agent/chat", token, map[string]any{
		"messages": []map[string]any{{"role": "user", "content": "hello"}},
	})
	defer res.Body.Close()
	if res.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", res.StatusCode)
	}
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error.Code != "model_error" {
		t.Fatalf("code = %q", body.Error.Code)
	}
}

func TestGetMissingLeadIs404(t *testing.T) {
	srv, _ := newTestServer(t, true)
	token := devToken(t, srv)
	res := getWithAuth(t, srv, "/v0/leads/ghost", token, "")
	defer res.Body.Close()
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", res.StatusCode)
	}
}

func TestToolListEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, true)
	token := devToken(t, srv)
	res := getWithAuth(t, srv, "/v0/agent/tools", token, "")
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", res.StatusCode)
	}
	var body ToolListResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Count == 0 || len(body.Tools) != body.Count {
		t.Fatalf("tools = %d, count = %d", len(body.Tools), body.Count)
	}
}
