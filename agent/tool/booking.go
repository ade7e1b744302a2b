package tool

import (
	"context"
	"fmt"
	"time"

	contractx "github.com/careline/clinic-agent/agent/contract"
	"github.com/careline/clinic-agent/agent/schedule"
	"github.com/careline/clinic-agent/pkg/notify"
)

type BookingResult struct {
	AppointmentID int64          `json:"appointment_id"`
	Doctor        string         `json:"doctor"`
	PatientName   string         `json:"patient_name"`
	StartISO      string         `json:"start_iso"`
	EndISO        string         `json:"end_iso"`
	Calendar      notify.Outcome `json:"calendar"`
	Email         notify.Outcome `json:"email"`
}

func bookingSpec() Spec {
	return Spec{
		ToolSchema: contractx.ToolSchema{
			Name:        ToolCreateAppointment,
			Description: "Book an appointment and notify the patient.",
			Params: map[string]contractx.ParamSpec{
				"doctor_name":   {Type: "string", Description: "Doctor full name.", Required: true},
				"patient_name":  {Type: "string", Description: "Patient full name.", Required: true},
				"patient_email": {Type: "string", Description: "Patient email for the confirmation.", Required: true},
				"start_iso":     {Type: "string", Description: "Start as ISO datetime, e.g. 2025-12-02T09:00:00.", Required: true},
				"end_iso":       {Type: "string", Description: "End as ISO datetime. Defaults to one hour after start."},
				"reason":        {Type: "string", Description: "Visit reason."},
			},
		},
		RequiredRole: contractx.RoleAny,
	}
}

func (r *Registry) executeBooking(ctx context.Context, args Args, _ contractx.CallerContext) (any, error) {
	name := args.String("doctor_name")
	patient := args.String("patient_name")
	email := args.String("patient_email")
	startRaw := args.String("start_iso")
	if name == "" || patient == "" || email == "" || startRaw == "" {
		return nil, fmt.Errorf("%w: doctor_name, patient_name, patient_email and start_iso are required", contractx.ErrBadArguments)
	}

	start, err := parseISODateTime(startRaw)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid start_iso %q", contractx.ErrBadArguments, startRaw)
	}
	end := start.Add(slotDuration)
	if endRaw := args.String("end_iso"); endRaw != "" {
		end, err = parseISODateTime(endRaw)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid end_iso %q", contractx.ErrBadArguments, endRaw)
		}
	}

	doc, err := r.deps.Store.FindDoctorByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("doctor %q: %w", name, err)
	}

	appt := &schedule.Appointment{
		DoctorID:     doc.ID,
		PatientName:  patient,
		PatientEmail: email,
		StartAt:      start,
		EndAt:        end,
		Reason:       args.String("reason"),
	}
	if err := r.deps.Store.CreateAppointment(ctx, appt); err != nil {
		return nil, err
	}

	startISO := start.Format("2006-01-02T15:04:05")
	endISO := end.Format("2006-01-02T15:04:05")
	calendar := r.deps.Notifier.CalendarInvite(ctx, doc.Name, patient, startISO, endISO)
	mail := r.deps.Notifier.EmailConfirmation(ctx, email,
		fmt.Sprintf("Appointment with %s", doc.Name),
		fmt.Sprintf("Your appointment with %s is confirmed for %s.", doc.Name, startISO))

	return BookingResult{
		AppointmentID: appt.ID,
		Doctor:        doc.Name,
		PatientName:   patient,
		StartISO:      startISO,
		EndISO:        endISO,
		Calendar:      calendar,
		Email:         mail,
	}, nil
}

func parseISODateTime(raw string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02T15:04"} {
		if parsed, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported datetime %q", raw)
}
