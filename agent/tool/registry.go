// Package tool holds the registry of privileged operations, the authorization
// gate, and the dispatcher that turns every failure into a structured result.
package tool

import (
	"context"
	"time"

	contractx "github.com/careline/clinic-agent/agent/contract"
	"github.com/careline/clinic-agent/agent/schedule"
	"github.com/careline/clinic-agent/pkg/notify"
)

const (
	ToolDoctorAvailability = "get_doctor_availability"
	ToolCreateAppointment  = "create_appointment"
	ToolDoctorReport       = "get_doctor_summary_report"
)

// Handler executes one tool against already-gated arguments.
type Handler func(ctx context.Context, args Args, caller contractx.CallerContext) (any, error)

// Spec binds a tool's advertised schema to its required role and handler.
// Registered once at startup, read-only thereafter.
type Spec struct {
	contractx.ToolSchema
	RequiredRole contractx.Role

	handler Handler
}

// Deps are the external collaborators the tools run against.
type Deps struct {
	Store    schedule.Store
	Notifier *notify.Service
	Now      func() time.Time
}

// Registry is the static catalogue of invocable operations.
type Registry struct {
	deps  Deps
	specs map[string]*Spec
	order []string
}

func NewRegistry(deps Deps) *Registry {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	r := &Registry{
		deps:  deps,
		specs: make(map[string]*Spec),
	}
	r.register(availabilitySpec(), r.executeAvailability)
	r.register(bookingSpec(), r.executeBooking)
	r.register(reportSpec(), r.executeReport)
	return r
}

func (r *Registry) register(spec Spec, handler Handler) {
	spec.handler = handler
	r.specs[spec.Name] = &spec
	r.order = append(r.order, spec.Name)
}

// Lookup returns the spec for a tool name.
func (r *Registry) Lookup(name string) (*Spec, bool) {
	spec, ok := r.specs[name]
	return spec, ok
}

// Schemas returns the tool schemas the given caller may use, in registration
// order. This is the set advertised to the model, so a forbidden tool is not
// even offered; the dispatcher still gates every call as a second line.
func (r *Registry) Schemas(caller contractx.CallerContext) []contractx.ToolSchema {
	out := make([]contractx.ToolSchema, 0, len(r.order))
	for _, name := range r.order {
		spec := r.specs[name]
		if caller.Allows(spec.RequiredRole) {
			out = append(out, spec.ToolSchema)
		}
	}
	return out
}

func (r *Registry) today() time.Time {
	now := r.deps.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
