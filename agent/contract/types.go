package contract

import "time"

// Role identifies who produced a conversation turn.
type Role string

const (
	RoleUser       Role = "user"
	RoleAssistant  Role = "assistant"
	RoleToolResult Role = "tool-result"
)

// PartType identifies the kind of content carried by a turn part.
type PartType string

const (
	PartText       PartType = "text"
	PartFile       PartType = "file"
	PartToolCall   PartType = "tool_call"
	PartToolResult PartType = "tool_result"
)

// Part is one content element of a Turn. Exactly the fields relevant to
// its Type are populated.
type Part struct {
	Type PartType `json:"type"`

	// PartText
	Text string `json:"text,omitempty"`

	// PartFile. Attachment bytes only travel on the live request; persisted
	// history keeps the name and media type.
	FileName  string `json:"file_name,omitempty"`
	MediaType string `json:"media_type,omitempty"`

	// PartToolCall / PartToolResult
	ToolName string `json:"tool_name,omitempty"`
	CallID   string `json:"call_id,omitempty"`
	Args     string `json:"args,omitempty"`
	Result   string `json:"result,omitempty"`
	IsError  bool   `json:"is_error,omitempty"`
}

// Turn is one immutable unit of conversation history.
type Turn struct {
	Role  Role      `json:"role"`
	At    time.Time `json:"at,omitempty"`
	Parts []Part    `json:"parts"`
}

// ToolCall is a single tool invocation requested by the model.
type ToolCall struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Args string `json:"args"`
}

// ToolResult is the outcome of one Toolbox dispatch. Error carries a
// recoverable failure that is surfaced to the model as result content;
// transport-level failures are returned as real errors by Dispatch.
type ToolResult struct {
	Tool    string `json:"tool"`
	CallID  string `json:"call_id"`
	Content string `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`

	// Set on the corresponding successful operations so the orchestrator
	// can emit pdf_generated / prep_list events.
	URL   string     `json:"url,omitempty"`
	Preps []PrepInfo `json:"preps,omitempty"`
}

// PrepInfo is the metadata of one generated prep document.
type PrepInfo struct {
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	URL       string    `json:"url"`
}

// ResearchInput is the structured input of one research job.
type ResearchInput struct {
	Resume         string `json:"resume"`
	JobDescription string `json:"job_description"`
}

// ChatRequest is one inbound orchestrator invocation. History is the
// already-windowed turn sequence; the caller persists the updated log.
type ChatRequest struct {
	UserEmail  string
	Message    string
	Attachment []byte
	History    []Turn
}

// EventType enumerates the closed set of outbound wire events.
type EventType string

const (
	EventToken        EventType = "token"
	EventToolCall     EventType = "tool_call"
	EventPDFGenerated EventType = "pdf_generated"
	EventPrepList     EventType = "prep_list"
	EventError        EventType = "error"
)

// Event is one element of the outbound stream. Exactly the fields relevant
// to its Type are populated.
type Event struct {
	Type EventType

	Text    string     // token
	Name    string     // tool_call
	Args    string     // tool_call
	URL     string     // pdf_generated
	Preps   []PrepInfo // prep_list
	Message string     // error
}

// ObjectInfo describes one stored object without its content.
type ObjectInfo struct {
	Key     string
	Size    int64
	Created time.Time
}
