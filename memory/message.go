package memory

import (
	"bytes"
	"encoding/json"
)

// Role identifies the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is a model request to invoke a named tool.
// IDs are unique within one assistant turn.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// Message is one entry of a conversation.
//
// Assistant messages may carry ToolCalls with empty Content. Tool messages
// carry the ToolCallID and ToolName of the request they answer; IsError
// marks a tool message whose Content describes a failure.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolName   string     `json:"tool_name,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	IsError    bool       `json:"is_error,omitempty"`
}

func NewSystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

func NewAssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// NewToolCallMessage builds the assistant message that requests tool calls.
func NewToolCallMessage(content string, calls []ToolCall) Message {
	return Message{Role: RoleAssistant, Content: content, ToolCalls: cloneCalls(calls)}
}

// NewToolResultMessage builds the tool message answering call.
func NewToolResultMessage(call ToolCall, content string) Message {
	return Message{Role: RoleTool, Content: content, ToolName: call.Name, ToolCallID: call.ID}
}

// NewToolErrorMessage builds the tool message reporting a failed call.
func NewToolErrorMessage(call ToolCall, description string) Message {
	m := NewToolResultMessage(call, description)
	m.IsError = true
	return m
}

// HasToolCalls reports whether m is an assistant tool request.
func (m Message) HasToolCalls() bool {
	return m.Role == RoleAssistant && len(m.ToolCalls) > 0
}

// Clone returns a copy of m that shares no mutable state with it.
func (m Message) Clone() Message {
	m.ToolCalls = cloneCalls(m.ToolCalls)
	return m
}

func cloneCalls(calls []ToolCall) []ToolCall {
	if calls == nil {
		return nil
	}
	out := make([]ToolCall, len(calls))
	for i, c := range calls {
		out[i] = ToolCall{ID: c.ID, Name: c.Name, Arguments: bytes.Clone(c.Arguments)}
	}
	return out
}

// NormalizeArguments makes an untrusted argument payload safe to store:
// empty input or null becomes {} and invalid JSON is kept as a JSON string literal.
func NormalizeArguments(raw []byte) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return json.RawMessage("{}")
	}
	if json.Valid(trimmed) {
		return json.RawMessage(bytes.Clone(trimmed))
	}
	quoted, _ := json.Marshal(string(trimmed))
	return quoted
}
