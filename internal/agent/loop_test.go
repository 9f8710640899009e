package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"
)

// fakeChat replays canned responses and records every request.
type fakeChat struct {
	responses []openai.ChatCompletionResponse
	requests  []openai.ChatCompletionRequest
	err       error
}

func (f *fakeChat) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	if len(f.responses) == 0 {
		return openai.ChatCompletionResponse{}, errors.New("no canned response")
	}
	res := f.responses[0]
	f.responses = f.responses[1:]
	return res, nil
}

func textResponse(content string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content}},
		},
	}
}

func toolCallResponse(calls ...openai.ToolCall) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, ToolCalls: calls}},
		},
	}
}

func TestTurnWithoutToolCalls(t *testing.T) {
	d := newTestDispatcher(t)
	client := &fakeChat{responses: []openai.ChatCompletionResponse{textResponse("hello there")}}
	loop := NewLoop(client, d, "test-model")

	outcome, err := loop.Turn(context.Background(), "hi")
	if err != nil {
		t.Fatalf("turn: %v", err)
	}
	if outcome.Answer != "hello there" {
		t.Fatalf("answer = %q", outcome.Answer)
	}
	if outcome.Structured != nil || len(outcome.ToolsUsed) != 0 {
		t.Fatalf("outcome = %+v, want no tool activity", outcome)
	}
	if len(client.requests) != 1 {
		t.Fatalf("requests = %d, want 1", len(client.requests))
	}
	if len(client.requests[0].Tools) == 0 {
		t.Fatal("first request should offer the tool registry")
	}
}

func TestTurnRunsOneToolRound(t *testing.T) {
	d := newTestDispatcher(t)
	client := &fakeChat{responses: []openai.ChatCompletionResponse{
		toolCallResponse(openai.ToolCall{
			ID:   "call-1",
			Type: openai.ToolTypeFunction,
			Function: openai.FunctionCall{
				Name:      "create_lead",
				Arguments: `{"name":"Bob Builder"}`,
			},
		}),
		textResponse("created the lead"),
	}}
	loop := NewLoop(client, d, "test-model")

	outcome, err := loop.Turn(context.Background(), "add bob")
	if err != nil {
		t.Fatalf("turn: %v", err)
	}
	if outcome.Answer != "created the lead" {
		t.Fatalf("answer = %q", outcome.Answer)
	}
	if outcome.Structured == nil || !outcome.Structured.Success {
		t.Fatalf("structured = %+v", outcome.Structured)
	}
	if len(outcome.ToolsUsed) != 1 || outcome.ToolsUsed[0] != "create_lead" {
		t.Fatalf("tools used = %v", outcome.ToolsUsed)
	}
	if len(client.requests) != 2 {
		t.Fatalf("requests = %d, want 2", len(client.requests))
	}
	if len(client.requests[1].Tools) != 0 {
		t.Fatal("final request must not offer tools")
	}
	var toolMsg bool
	for _, m := range client.requests[1].Messages {
		if m.Role == openai.ChatMessageRoleTool && m.ToolCallID == "call-1" {
			toolMsg = true
		}
	}
	if !toolMsg {
		t.Fatal("final request should carry the tool result message")
	}

	// The tool actually ran.
	lead := d.Execute(context.Background(), "get_lead_details", map[string]any{"lead_name": "bob"})
	if !lead.Success {
		t.Fatalf("lead was not created: %s", lead.Error)
	}
}

func TestTurnFailedCallDoesNotAbortSiblings(t *testing.T) {
	d := newTestDispatcher(t)
	client := &fakeChat{responses: []openai.ChatCompletionResponse{
		toolCallResponse(
			openai.ToolCall{
				ID:   "call-1",
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      "summon_dragon",
					Arguments: `{}`,
				},
			},
			openai.ToolCall{
				ID:   "call-2",
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      "create_lead",
					Arguments: `{"name":"Bob Builder"}`,
				},
			},
		),
		textResponse("done"),
	}}
	loop := NewLoop(client, d, "test-model")

	outcome, err := loop.Turn(context.Background(), "do both")
	if err != nil {
		t.Fatalf("turn: %v", err)
	}
	if len(outcome.ToolsUsed) != 2 || outcome.ToolsUsed[0] != "summon_dragon" || outcome.ToolsUsed[1] != "create_lead" {
		t.Fatalf("tools used = %v", outcome.ToolsUsed)
	}
	// Last result wins the structured slot.
	if outcome.Structured == nil || !outcome.Structured.Success {
		t.Fatalf("structured = %+v, want the second call's success", outcome.Structured)
	}

	seen := map[string]bool{}
	for _, m := range client.requests[1].Messages {
		if m.Role == openai.ChatMessageRoleTool {
			seen[m.ToolCallID] = true
		}
	}
	if !seen["call-1"] || !seen["call-2"] {
		t.Fatalf("tool messages = %v, want both calls reported", seen)
	}

	lead := d.Execute(context.Background(), "get_lead_details", map[string]any{"lead_name": "bob"})
	if !lead.Success {
		t.Fatalf("second call did not run: %s", lead.Error)
	}
}

func TestTurnContainsMalformedArguments(t *testing.T) {
	d := newTestDispatcher(t)
	client := &fakeChat{responses: []openai.ChatCompletionResponse{
		toolCallResponse(openai.ToolCall{
			ID:   "call-1",
			Type: openai.ToolTypeFunction,
			Function: openai.FunctionCall{
				Name:      "create_lead",
				Arguments: `{"name":`,
			},
		}),
		textResponse("something went wrong"),
	}}
	loop := NewLoop(client, d, "test-model")

	outcome, err := loop.Turn(context.Background(), "add bob")
	if err != nil {
		t.Fatalf("turn: %v", err)
	}
	if outcome.Structured == nil || outcome.Structured.Success {
		t.Fatalf("structured = %+v, want contained failure", outcome.Structured)
	}
	if !strings.Contains(outcome.Structured.Error, "create_lead") {
		t.Fatalf("error = %q, should name the tool", outcome.Structured.Error)
	}
}

func TestTurnHistoryKeepsCallerMessages(t *testing.T) {
	d := newTestDispatcher(t)
	client := &fakeChat{responses: []openai.ChatCompletionResponse{textResponse("as I said")}}
	loop := NewLoop(client, d, "test-model")

	history := []ChatMessage{
		{Role: "user", Content: "list my leads"},
		{Role: "assistant", Content: "you have none"},
		{Role: "user", Content: "are you sure"},
	}
	if _, err := loop.TurnHistory(context.Background(), history); err != nil {
		t.Fatalf("turn: %v", err)
	}
	msgs := client.requests[0].Messages
	if len(msgs) != len(history)+1 {
		t.Fatalf("messages = %d, want history plus system prompt", len(msgs))
	}
	if msgs[0].Role != openai.ChatMessageRoleSystem {
		t.Fatalf("first message role = %q", msgs[0].Role)
	}
	if msgs[3].Content != "are you sure" {
		t.Fatalf("last message = %q", msgs[3].Content)
	}
}

func TestTurnHistoryRequiresMessages(t *testing.T) {
	d := newTestDispatcher(t)
	loop := NewLoop(&fakeChat{}, d, "test-model")
	if _, err := loop.TurnHistory(context.Background(), nil); err == nil {
		t.Fatal("expected error for empty history")
	}
}

func TestTurnAbortsOnTransportError(t *testing.T) {
	d := newTestDispatcher(t)
	client := &fakeChat{err: errors.New("connection refused")}
	loop := NewLoop(client, d, "test-model")

	_, err := loop.Turn(context.Background(), "hi")
	if err == nil || !strings.Contains(err.Error(), "chat completion") {
		t.Fatalf("err = %v", err)
	}
}
