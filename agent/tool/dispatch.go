package tool

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	contractx "github.com/careline/clinic-agent/agent/contract"
	"github.com/careline/clinic-agent/pkg/metrics"
)

// Dispatcher resolves a tool name to its operation, enforces the role gate,
// and normalizes every failure into a ToolResult. Nothing escapes it: both
// the model-driven flow and the fallback flow rely on that guarantee.
type Dispatcher struct {
	registry *Registry
	log      zerolog.Logger
	metrics  *metrics.Metrics
}

func NewDispatcher(registry *Registry, log zerolog.Logger, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{registry: registry, log: log, metrics: m}
}

// Registry exposes the catalogue behind the dispatcher for schema filtering.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Dispatch invokes the named tool for the caller. The returned result's OK
// flag is always consistent with its payload.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, args map[string]any, caller contractx.CallerContext) contractx.ToolResult {
	spec, ok := d.registry.Lookup(name)
	if !ok {
		d.metrics.ObserveDispatch(name, "unknown")
		return contractx.ToolResult{
			Tool:  name,
			Error: fmt.Errorf("%w %q", contractx.ErrUnknownTool, name).Error(),
		}
	}

	if !caller.Allows(spec.RequiredRole) {
		d.log.Warn().
			Str("tool", name).
			Str("caller_role", string(caller.Role)).
			Str("required_role", string(spec.RequiredRole)).
			Msg("tool dispatch forbidden")
		d.metrics.ObserveDispatch(name, "forbidden")
		return contractx.ToolResult{
			Tool:  name,
			Error: fmt.Errorf("%w: tool %q requires role %q", contractx.ErrForbidden, name, spec.RequiredRole).Error(),
		}
	}

	result := d.invoke(ctx, spec, Args(args), caller)
	if result.OK {
		d.metrics.ObserveDispatch(name, "ok")
	} else {
		d.metrics.ObserveDispatch(name, "error")
	}
	return result
}

func (d *Dispatcher) invoke(ctx context.Context, spec *Spec, args Args, caller contractx.CallerContext) (result contractx.ToolResult) {
	result.Tool = spec.Name
	defer func() {
		if r := recover(); r != nil {
			d.log.Error().Str("tool", spec.Name).Any("panic", r).Msg("tool panicked")
			result.OK = false
			result.Result = nil
			result.Error = fmt.Sprintf("tool %q failed: %v", spec.Name, r)
		}
	}()

	payload, err := spec.handler(ctx, args, caller)
	if err != nil {
		d.log.Debug().Str("tool", spec.Name).Err(err).Msg("tool returned error")
		result.Error = err.Error()
		return result
	}

	result.OK = true
	result.Result = payload
	return result
}
