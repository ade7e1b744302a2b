package contract

import (
	"time"
)

// Role is the authenticated role of the caller. Authorization is an exact
// match: there is no hierarchy between roles.
type Role string

const (
	RolePatient         Role = "patient"
	RoleDoctor          Role = "doctor"
	RoleUnauthenticated Role = "unauthenticated"

	// RoleAny marks a tool as callable by every role.
	RoleAny Role = "any"
)

// CallerContext identifies an already-authenticated caller. Identity is the
// optional bound identity, e.g. the doctor a caller represents. The
// orchestrator never mutates it.
type CallerContext struct {
	Role     Role   `json:"role"`
	Identity string `json:"identity,omitempty"`
}

// Allows reports whether the caller satisfies a tool's required role.
func (c CallerContext) Allows(required Role) bool {
	if required == RoleAny || required == "" {
		return true
	}
	return c.Role == required
}

type TurnRole string

const (
	TurnUser      TurnRole = "user"
	TurnAssistant TurnRole = "assistant"
)

// Turn is one conversational message. Immutable once appended.
type Turn struct {
	Role    TurnRole  `json:"role"`
	Content string    `json:"content"`
	Time    time.Time `json:"time"`
}

// ParamSpec describes one tool parameter for schema advertisement.
type ParamSpec struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required,omitempty"`
}

// ToolSchema is the declarative shape of a tool as advertised to the model.
type ToolSchema struct {
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Params      map[string]ParamSpec `json:"params"`
}

// ToolResult is the uniform outcome of a dispatch. Exactly one of Result and
// Error carries content: OK implies an empty Error, and vice versa.
type ToolResult struct {
	Tool   string `json:"tool"`
	OK     bool   `json:"ok"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// ToolCall is one entry of the per-turn tool-call trace.
type ToolCall struct {
	Tool   string         `json:"tool"`
	Args   map[string]any `json:"args,omitempty"`
	Result ToolResult     `json:"result"`
}

// Mode records which path produced the turn's reply.
type Mode string

const (
	ModeModel    Mode = "model"
	ModeFallback Mode = "fallback"
)

// TurnResult is the caller-facing outcome of one inbound message.
type TurnResult struct {
	SessionID string     `json:"session_id"`
	Reply     string     `json:"reply"`
	ToolCalls []ToolCall `json:"tool_calls"`
	Mode      Mode       `json:"mode"`
}
