package contract

import "context"

// ExchangeRequest is the first model exchange of a turn: system policy text,
// the session's prior turns (oldest to newest, already capped), the new user
// message, and the role-filtered tool schemas the model may request.
type ExchangeRequest struct {
	System  string
	History []Turn
	Message string
	Tools   []ToolSchema
}

// ModelToolCall is one tool invocation requested by the model. RawArgs is the
// unparsed argument payload as produced by the model.
type ModelToolCall struct {
	ID      string
	Name    string
	RawArgs string
}

// ModelTurn is the outcome of the first exchange: either direct text or a set
// of requested tool calls. State is an opaque continuation the client needs to
// resume the conversation in Finalize; callers pass it back untouched.
type ModelTurn struct {
	Text      string
	ToolCalls []ModelToolCall
	State     any
}

// ToolOutcome feeds one dispatched result back to the model, keyed by the
// call identifier from the first exchange.
type ToolOutcome struct {
	CallID  string
	Payload string
}

// ModelClient is the black-box model collaborator. Both methods block until
// the exchange completes or ctx expires; failures are reported as errors and
// the driver degrades, never the caller.
type ModelClient interface {
	Exchange(ctx context.Context, req ExchangeRequest) (*ModelTurn, error)
	Finalize(ctx context.Context, turn *ModelTurn, results []ToolOutcome) (string, error)
}
