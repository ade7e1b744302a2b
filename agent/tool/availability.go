package tool

import (
	"context"
	"fmt"
	"time"

	contractx "github.com/careline/clinic-agent/agent/contract"
)

// Clinic operates hourly slots inside these hours.
const (
	clinicOpenHour  = 9
	clinicCloseHour = 17
	slotDuration    = time.Hour
)

type Slot struct {
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	StartISO  string `json:"start_iso"`
	EndISO    string `json:"end_iso"`
}

type AvailabilityResult struct {
	Doctor    string `json:"doctor"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Slots     []Slot `json:"available_slots"`
}

func availabilitySpec() Spec {
	return Spec{
		ToolSchema: contractx.ToolSchema{
			Name:        ToolDoctorAvailability,
			Description: "Return available appointment slots for a doctor between dates.",
			Params: map[string]contractx.ParamSpec{
				"doctor_name": {Type: "string", Description: "Doctor full name, e.g. 'Dr. Ahuja'.", Required: true},
				"start_date":  {Type: "string", Description: "Start date in YYYY-MM-DD format. Defaults to today."},
				"end_date":    {Type: "string", Description: "End date in YYYY-MM-DD format (inclusive). Defaults to start_date."},
				"time_of_day": {Type: "string", Description: "Optional filter: morning, afternoon, or evening."},
			},
		},
		RequiredRole: contractx.RoleAny,
	}
}

func (r *Registry) executeAvailability(ctx context.Context, args Args, _ contractx.CallerContext) (any, error) {
	name := args.String("doctor_name")
	if name == "" {
		return nil, fmt.Errorf("%w: doctor_name is required", contractx.ErrBadArguments)
	}

	doc, err := r.deps.Store.FindDoctorByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("doctor %q: %w", name, err)
	}

	startDate, err := parseDateOr(args.String("start_date"), r.today())
	if err != nil {
		return nil, fmt.Errorf("%w: invalid start_date", contractx.ErrBadArguments)
	}
	endDate, err := parseDateOr(args.String("end_date"), startDate)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid end_date", contractx.ErrBadArguments)
	}
	openHour, closeHour := hoursForTimeOfDay(args.String("time_of_day"))

	result := AvailabilityResult{
		Doctor:    doc.Name,
		StartDate: startDate.Format("2006-01-02"),
		EndDate:   endDate.Format("2006-01-02"),
		Slots:     []Slot{},
	}
	for day := startDate; !day.After(endDate); day = day.AddDate(0, 0, 1) {
		existing, err := r.deps.Store.AppointmentsOn(ctx, doc.ID, day)
		if err != nil {
			return nil, err
		}
		// A slot is taken only by an appointment starting at exactly that
		// time; off-grid bookings do not hide the surrounding hour slots.
		booked := make(map[string]bool, len(existing))
		for _, appt := range existing {
			booked[appt.StartAt.UTC().Format("15:04:05")] = true
		}

		for hour := openHour; hour < closeHour; hour++ {
			start := day.Add(time.Duration(hour) * time.Hour)
			if booked[start.Format("15:04:05")] {
				continue
			}
			end := start.Add(slotDuration)
			result.Slots = append(result.Slots, Slot{
				Date:      day.Format("2006-01-02"),
				StartTime: start.Format("15:04:05"),
				EndTime:   end.Format("15:04:05"),
				StartISO:  start.Format("2006-01-02T15:04:05"),
				EndISO:    end.Format("2006-01-02T15:04:05"),
			})
		}
	}
	return result, nil
}

func parseDateOr(raw string, fallback time.Time) (time.Time, error) {
	if raw == "" {
		return fallback, nil
	}
	parsed, err := time.ParseInLocation("2006-01-02", raw, time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	return parsed, nil
}

func hoursForTimeOfDay(timeOfDay string) (int, int) {
	switch timeOfDay {
	case "morning":
		return 9, 12
	case "afternoon":
		return 12, 16
	case "evening":
		return 16, 19
	default:
		return clinicOpenHour, clinicCloseHour
	}
}
