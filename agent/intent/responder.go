package intent

import (
	"context"
	"fmt"
	"time"

	contractx "github.com/careline/clinic-agent/agent/contract"
	"github.com/careline/clinic-agent/agent/summary"
	"github.com/careline/clinic-agent/agent/tool"
)

const placeholderEmail = "patient@example.com"

const helpText = "I can check a doctor's availability, book an appointment, " +
	"or produce a patient summary report for doctors. " +
	"Try: \"Is Dr. Ahuja available tomorrow?\""

// Responder turns classified intents into tool dispatches and a reply.
// It is the whole of the rule-based conversation mode.
type Responder struct {
	dispatcher *tool.Dispatcher
	// defaultDoctor, when set, is assumed for messages that never name a
	// doctor. When empty the responder asks instead of guessing.
	defaultDoctor string
	now           func() time.Time
}

func NewResponder(dispatcher *tool.Dispatcher, defaultDoctor string, now func() time.Time) *Responder {
	if now == nil {
		now = time.Now
	}
	return &Responder{dispatcher: dispatcher, defaultDoctor: defaultDoctor, now: now}
}

// Respond handles one message. The returned calls record every tool the
// responder dispatched, in order.
func (r *Responder) Respond(ctx context.Context, message string, caller contractx.CallerContext) (string, []contractx.ToolCall) {
	it := Classify(message, r.now())

	switch it.Kind {
	case KindReport:
		return r.respondReport(ctx, it, caller)
	case KindAvailability:
		return r.respondAvailability(ctx, it, caller)
	case KindBooking:
		return r.respondBooking(ctx, it, caller)
	}
	return helpText, nil
}

func (r *Responder) respondReport(ctx context.Context, it Intent, caller contractx.CallerContext) (string, []contractx.ToolCall) {
	if !caller.Allows(contractx.RoleDoctor) {
		return "Summary reports are only available to doctors.", nil
	}

	// A doctor asking without naming anyone means their own report.
	if it.Doctor == "" && caller.Identity != "" {
		it.Doctor = caller.Identity
	}
	doctor, clarify := r.resolveDoctor(it)
	if clarify != "" {
		return clarify, nil
	}

	args := map[string]any{"doctor_name": doctor}
	if it.Date != "" {
		args["ref_date"] = it.Date
	}
	call := r.dispatch(ctx, tool.ToolDoctorReport, args, caller)
	return summary.Render([]contractx.ToolCall{call}), []contractx.ToolCall{call}
}

func (r *Responder) respondAvailability(ctx context.Context, it Intent, caller contractx.CallerContext) (string, []contractx.ToolCall) {
	doctor, clarify := r.resolveDoctor(it)
	if clarify != "" {
		return clarify, nil
	}

	args := map[string]any{"doctor_name": doctor}
	if it.Date != "" {
		args["start_date"] = it.Date
	}
	call := r.dispatch(ctx, tool.ToolDoctorAvailability, args, caller)
	return summary.Render([]contractx.ToolCall{call}), []contractx.ToolCall{call}
}

func (r *Responder) respondBooking(ctx context.Context, it Intent, caller contractx.CallerContext) (string, []contractx.ToolCall) {
	doctor, clarify := r.resolveDoctor(it)
	if clarify != "" {
		return clarify, nil
	}

	// Without a concrete start time there is nothing to book yet, so
	// offer slots for the requested day instead.
	if it.StartISO == "" {
		args := map[string]any{"doctor_name": doctor}
		if it.Date != "" {
			args["start_date"] = it.Date
		}
		call := r.dispatch(ctx, tool.ToolDoctorAvailability, args, caller)
		reply := "To book, tell me the exact start time. " + summary.Render([]contractx.ToolCall{call})
		return reply, []contractx.ToolCall{call}
	}

	patient := it.Patient
	if patient == "" {
		patient = caller.Identity
	}
	if patient == "" {
		return fmt.Sprintf("Who is the appointment with %s at %s for? Please give me the patient's name.", doctor, it.StartISO), nil
	}

	call := r.dispatch(ctx, tool.ToolCreateAppointment, map[string]any{
		"doctor_name":   doctor,
		"patient_name":  patient,
		"patient_email": placeholderEmail,
		"start_iso":     it.StartISO,
	}, caller)
	return summary.Render([]contractx.ToolCall{call}), []contractx.ToolCall{call}
}

// resolveDoctor applies the configured default. With no default and no
// doctor in the message it returns a clarification question.
func (r *Responder) resolveDoctor(it Intent) (string, string) {
	if it.Doctor != "" {
		return it.Doctor, ""
	}
	if r.defaultDoctor != "" {
		return r.defaultDoctor, ""
	}
	return "", "Which doctor would you like? For example: \"Dr. Ahuja\"."
}

func (r *Responder) dispatch(ctx context.Context, name string, args map[string]any, caller contractx.CallerContext) contractx.ToolCall {
	result := r.dispatcher.Dispatch(ctx, name, args, caller)
	return contractx.ToolCall{Tool: name, Args: args, Result: result}
}
