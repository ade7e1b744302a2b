// Package driver runs the per-message turn loop: session history, mode
// selection, model exchanges, tool dispatch, and the reply backstop.
package driver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	contractx "github.com/careline/clinic-agent/agent/contract"
	"github.com/careline/clinic-agent/agent/intent"
	"github.com/careline/clinic-agent/agent/session"
	"github.com/careline/clinic-agent/agent/summary"
	"github.com/careline/clinic-agent/agent/tool"
	"github.com/careline/clinic-agent/pkg/metrics"
)

const defaultModelTimeout = 45 * time.Second

type Driver struct {
	sessions   *session.Store
	dispatcher *tool.Dispatcher
	responder  *intent.Responder
	// model is nil when no API key is configured; every turn then runs
	// rule-based.
	model        contractx.ModelClient
	system       string
	modelTimeout time.Duration
	log          zerolog.Logger
	metrics      *metrics.Metrics
}

type Option func(*Driver)

// WithModel attaches the language-model collaborator. A nil client leaves
// the driver in rule-based mode.
func WithModel(client contractx.ModelClient, system string) Option {
	return func(d *Driver) {
		d.model = client
		d.system = system
	}
}

// WithModelTimeout bounds each model exchange pair.
func WithModelTimeout(timeout time.Duration) Option {
	return func(d *Driver) {
		if timeout > 0 {
			d.modelTimeout = timeout
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Driver) {
		d.metrics = m
	}
}

func New(sessions *session.Store, dispatcher *tool.Dispatcher, responder *intent.Responder, log zerolog.Logger, opts ...Option) *Driver {
	d := &Driver{
		sessions:     sessions,
		dispatcher:   dispatcher,
		responder:    responder,
		modelTimeout: defaultModelTimeout,
		log:          log,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Sessions exposes the underlying store for transcript reads.
func (d *Driver) Sessions() *session.Store {
	return d.sessions
}

// HandleMessage processes one inbound message end to end and always leaves
// the session transcript with the user turn followed by the assistant turn.
// The mode is re-selected on every call, so a model failure degrades a
// single turn, not the session.
func (d *Driver) HandleMessage(ctx context.Context, sessionID, message string, caller contractx.CallerContext) (contractx.TurnResult, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return contractx.TurnResult{}, fmt.Errorf("%w: message is required", contractx.ErrValidation)
	}

	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		sessionID = d.sessions.Create()
	}

	// History is captured before the new user turn so the model sees prior
	// turns once and the new message exactly once.
	history := d.sessions.History(sessionID)
	d.sessions.Append(sessionID, contractx.TurnUser, message)

	reply, calls, mode := d.runTurn(ctx, history, message, caller)
	d.sessions.Append(sessionID, contractx.TurnAssistant, reply)
	d.metrics.ObserveTurn(string(mode))

	return contractx.TurnResult{
		SessionID: sessionID,
		Reply:     reply,
		ToolCalls: calls,
		Mode:      mode,
	}, nil
}

func (d *Driver) runTurn(ctx context.Context, history []contractx.Turn, message string, caller contractx.CallerContext) (string, []contractx.ToolCall, contractx.Mode) {
	if d.model != nil {
		reply, calls, err := d.modelTurn(ctx, history, message, caller)
		if err == nil {
			return reply, calls, contractx.ModeModel
		}
		d.log.Warn().Err(err).Msg("model turn failed, degrading to rule-based mode")
	}

	reply, calls := d.responder.Respond(ctx, message, caller)
	return reply, calls, contractx.ModeFallback
}

func (d *Driver) modelTurn(ctx context.Context, history []contractx.Turn, message string, caller contractx.CallerContext) (string, []contractx.ToolCall, error) {
	ctx, cancel := context.WithTimeout(ctx, d.modelTimeout)
	defer cancel()

	turn, err := d.model.Exchange(ctx, contractx.ExchangeRequest{
		System:  d.system,
		History: history,
		Message: message,
		Tools:   d.dispatcher.Registry().Schemas(caller),
	})
	if err != nil {
		return "", nil, err
	}

	if len(turn.ToolCalls) == 0 {
		if reply := strings.TrimSpace(turn.Text); reply != "" {
			return reply, nil, nil
		}
		return summary.Render(nil), nil, nil
	}

	calls := make([]contractx.ToolCall, 0, len(turn.ToolCalls))
	outcomes := make([]contractx.ToolOutcome, 0, len(turn.ToolCalls))
	for _, requested := range turn.ToolCalls {
		args := parseArgs(requested.RawArgs, d.log)
		result := d.dispatcher.Dispatch(ctx, requested.Name, args, caller)
		calls = append(calls, contractx.ToolCall{Tool: requested.Name, Args: args, Result: result})
		outcomes = append(outcomes, contractx.ToolOutcome{
			CallID:  requested.ID,
			Payload: encodeResult(result),
		})
	}

	reply, err := d.model.Finalize(ctx, turn, outcomes)
	if err != nil {
		d.log.Warn().Err(err).Msg("finalize failed, summarizing tool results")
		return summary.Render(calls), calls, nil
	}
	if needsBackstop(reply) {
		return summary.Render(calls), calls, nil
	}
	return reply, calls, nil
}

// parseArgs decodes the model's raw argument payload. A malformed payload
// becomes an empty argument map so the tool's own validation produces the
// error, matching how every other bad input is reported.
func parseArgs(raw string, log zerolog.Logger) map[string]any {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[string]any{}
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		log.Debug().Str("raw", raw).Err(err).Msg("malformed tool arguments")
		return map[string]any{}
	}
	return args
}

func encodeResult(result contractx.ToolResult) string {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Sprintf(`{"tool":%q,"ok":false,"error":"unencodable result"}`, result.Tool)
	}
	return string(raw)
}

// needsBackstop detects final replies that merely echo tool output instead
// of answering the user.
func needsBackstop(reply string) bool {
	trimmed := strings.TrimSpace(reply)
	if trimmed == "" {
		return true
	}
	return strings.HasPrefix(strings.ToLower(trimmed), "tool result")
}
