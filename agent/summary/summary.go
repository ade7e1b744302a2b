// Package summary renders tool results into plain conversational text.
// It is the deterministic backstop used whenever the model produces no
// usable final reply, and the reply builder for the rule-based flow.
package summary

import (
	"encoding/json"
	"fmt"
	"strings"

	contractx "github.com/careline/clinic-agent/agent/contract"
	"github.com/careline/clinic-agent/agent/tool"
)

// maxSlotLines bounds how many free slots a rendered reply enumerates.
const maxSlotLines = 6

// Render produces a user-facing reply from the calls made during a turn.
// It is total: any combination of results, including failures and tools it
// has never seen, yields non-empty text. Rendering the same input twice
// yields the same output.
func Render(calls []contractx.ToolCall) string {
	if len(calls) == 0 {
		return "I could not complete that request. Could you rephrase it?"
	}

	parts := make([]string, 0, len(calls))
	for _, call := range calls {
		parts = append(parts, renderCall(call))
	}
	return strings.Join(parts, "\n\n")
}

func renderCall(call contractx.ToolCall) string {
	if !call.Result.OK {
		return renderFailure(call)
	}

	switch call.Tool {
	case tool.ToolDoctorAvailability:
		if payload, ok := call.Result.Result.(tool.AvailabilityResult); ok {
			return renderAvailability(payload)
		}
	case tool.ToolCreateAppointment:
		if payload, ok := call.Result.Result.(tool.BookingResult); ok {
			return renderBooking(payload)
		}
	case tool.ToolDoctorReport:
		if payload, ok := call.Result.Result.(tool.ReportResult); ok {
			return renderReport(payload)
		}
	}
	return renderGeneric(call)
}

func renderFailure(call contractx.ToolCall) string {
	msg := strings.TrimSpace(call.Result.Error)
	if msg == "" {
		msg = "the operation failed"
	}
	switch call.Tool {
	case tool.ToolCreateAppointment:
		return fmt.Sprintf("I could not book that appointment: %s.", strings.TrimSuffix(msg, "."))
	case tool.ToolDoctorAvailability:
		return fmt.Sprintf("I could not check availability: %s.", strings.TrimSuffix(msg, "."))
	case tool.ToolDoctorReport:
		return fmt.Sprintf("I could not build that report: %s.", strings.TrimSuffix(msg, "."))
	}
	return fmt.Sprintf("Something went wrong: %s.", strings.TrimSuffix(msg, "."))
}

func renderAvailability(payload tool.AvailabilityResult) string {
	if len(payload.Slots) == 0 {
		window := payload.StartDate
		if payload.EndDate != "" && payload.EndDate != payload.StartDate {
			window = payload.StartDate + " to " + payload.EndDate
		}
		if window == "" {
			return fmt.Sprintf("No slots available for %s. Would you like to try another day?", payload.Doctor)
		}
		return fmt.Sprintf("No slots available for %s on %s. Would you like to try another day?", payload.Doctor, window)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s has %d free slot%s:", payload.Doctor, len(payload.Slots), plural(len(payload.Slots)))
	shown := payload.Slots
	if len(shown) > maxSlotLines {
		shown = shown[:maxSlotLines]
	}
	for _, slot := range shown {
		fmt.Fprintf(&b, "\n  • %s %s to %s", slot.Date, trimSeconds(slot.StartTime), trimSeconds(slot.EndTime))
	}
	if extra := len(payload.Slots) - len(shown); extra > 0 {
		fmt.Fprintf(&b, "\n  ...and %d more.", extra)
	}
	return b.String()
}

func renderBooking(payload tool.BookingResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Booked! Appointment #%d with %s for %s at %s.",
		payload.AppointmentID, payload.Doctor, payload.PatientName, payload.StartISO)
	if payload.Email.OK {
		b.WriteString(" A confirmation email is on its way.")
	} else if payload.Email.Detail != "" {
		b.WriteString(" The confirmation email could not be sent.")
	}
	return b.String()
}

func renderReport(payload tool.ReportResult) string {
	text := strings.TrimSpace(payload.SummaryText)
	if text == "" {
		stats := payload.RawStats
		var b strings.Builder
		fmt.Fprintf(&b, "Report for %s (%s): %d patients yesterday, %d today, %d tomorrow.",
			stats.Doctor, stats.RefDate, stats.PatientsYesterday, stats.PatientsToday, stats.PatientsTomorrow)
		for _, rc := range stats.TopReasons {
			fmt.Fprintf(&b, "\n  • %s: %d", rc.Reason, rc.Count)
		}
		text = b.String()
	}
	if payload.NotificationSent {
		return text + "\nNotification sent: Yes"
	}
	return text + "\nNotification sent: No"
}

// renderGeneric covers tools the summarizer has no dedicated template for.
func renderGeneric(call contractx.ToolCall) string {
	raw, err := json.Marshal(call.Result.Result)
	if err != nil || len(raw) == 0 || string(raw) == "null" {
		return fmt.Sprintf("Done: %s completed.", call.Tool)
	}
	return fmt.Sprintf("Result from %s: %s", call.Tool, raw)
}

func trimSeconds(t string) string {
	return strings.TrimSuffix(t, ":00")
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
