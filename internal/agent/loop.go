package agent

import (
	"context"
	"encoding/json"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// maxToolRounds bounds how many times a turn may call tools. One round keeps
// turns cheap and makes every tool call attributable to the user's message.
const maxToolRounds = 1

// ChatClient is the slice of the chat-completions API the loop depends on.
// *openai.Client satisfies it; tests substitute a canned implementation.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Loop drives one user message through model, tools and back to prose.
type Loop struct {
	Client     ChatClient
	Dispatcher *Dispatcher
	Model      string
	System     string
}

// ChatMessage is one prior conversation entry supplied by the caller. The
// server holds no session state; history arrives with every request.
type ChatMessage struct {
	Role    string `json:"role" enum:"system,user,assistant"`
	Content string `json:"content"`
}

// TurnOutcome is what one message produced: the model's prose answer, the
// structured result of the last tool executed, and the names of every tool run.
type TurnOutcome struct {
	Answer     string   `json:"answer"`
	Structured *Result  `json:"structured_data,omitempty"`
	ToolsUsed  []string `json:"tools_used,omitempty"`
}

func NewLoop(client ChatClient, d *Dispatcher, model string) *Loop {
	return &Loop{
		Client:     client,
		Dispatcher: d,
		Model:      model,
		System:     defaultSystemPrompt,
	}
}

const defaultSystemPrompt = "You are the office assistant for a roofing contractor. " +
	"Use the provided tools to answer questions about leads, projects, invoices, " +
	"schedules, work orders, tickets, todos, incidents, the team and timesheets. " +
	"When a tool reports missing fields, ask the user for exactly those fields. " +
	"Answer in plain, brief language."

// Turn runs one conversation turn for a single user message with no prior
// history.
func (l *Loop) Turn(ctx context.Context, message string) (TurnOutcome, error) {
	return l.TurnHistory(ctx, []ChatMessage{{Role: openai.ChatMessageRoleUser, Content: message}})
}

// TurnHistory runs one conversation turn over caller-supplied history: at most
// one round of tool calls, executed in the order the model requested them,
// then a final prose answer with tools disabled. A transport failure on the
// first call aborts the turn; tool failures do not, they are reported back to
// the model as results.
func (l *Loop) TurnHistory(ctx context.Context, history []ChatMessage) (TurnOutcome, error) {
	if len(history) == 0 {
		return TurnOutcome{}, fmt.Errorf("at least one message is required")
	}
	messages := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: l.System})
	for _, m := range history {
		role := m.Role
		if role == "" {
			role = openai.ChatMessageRoleUser
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	first, err := l.Client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    l.Model,
		Messages: messages,
		Tools:    l.Dispatcher.Registry.OpenAITools(),
	})
	if err != nil {
		return TurnOutcome{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(first.Choices) == 0 {
		return TurnOutcome{}, fmt.Errorf("chat completion returned no choices")
	}
	choice := first.Choices[0].Message
	if len(choice.ToolCalls) == 0 {
		return TurnOutcome{Answer: choice.Content}, nil
	}

	outcome := TurnOutcome{}
	messages = append(messages, choice)
	for round := 0; round < maxToolRounds; round++ {
		for _, call := range choice.ToolCalls {
			res := l.runToolCall(ctx, call)
			outcome.Structured = &res
			outcome.ToolsUsed = append(outcome.ToolsUsed, call.Function.Name)
			payload, _ := json.Marshal(res)
			messages = append(messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				ToolCallID: call.ID,
				Content:    string(payload),
			})
		}
	}

	// Final call runs without tools so the turn always terminates in prose.
	final, err := l.Client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    l.Model,
		Messages: messages,
	})
	if err != nil {
		return outcome, fmt.Errorf("final completion: %w", err)
	}
	if len(final.Choices) > 0 {
		outcome.Answer = final.Choices[0].Message.Content
	}
	return outcome, nil
}

// runToolCall decodes one model tool call and executes it. Malformed arguments
// become a failure result rather than an error, like any other bad input.
func (l *Loop) runToolCall(ctx context.Context, call openai.ToolCall) Result {
	var params map[string]any
	if call.Function.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Function.Arguments), &params); err != nil {
			return failure(fmt.Sprintf("malformed arguments for %s: %v", call.Function.Name, err))
		}
	}
	return l.Dispatcher.Execute(ctx, call.Function.Name, params)
}
