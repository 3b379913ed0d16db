package core

// Message is one entry of a specialist's working transcript. The transcript
// is owned by a single runner invocation and never shared across concurrent
// runners.
//
// Roles follow the usual chat convention: "system", "user", "assistant" and
// "tool". An assistant message either carries final Text or one or more
// ToolCalls; a tool message carries the serialized result of exactly one call,
// correlated via ToolCallID.
type Message struct {
	Role       string     `json:"role"`
	Text       string     `json:"text,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolName   string     `json:"tool_name,omitempty"`
}

// SystemMessage builds a system-role message.
func SystemMessage(text string) Message { return Message{Role: "system", Text: text} }

// UserMessage builds a user-role message.
func UserMessage(text string) Message { return Message{Role: "user", Text: text} }

// AssistantMessage builds an assistant-role text message.
func AssistantMessage(text string) Message { return Message{Role: "assistant", Text: text} }

// ToolMessage builds a tool-role message carrying a serialized tool result.
func ToolMessage(callID, toolName, payload string) Message {
	return Message{Role: "tool", Text: payload, ToolCallID: callID, ToolName: toolName}
}
