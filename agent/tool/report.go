package tool

import (
	"context"
	"fmt"
	"strings"

	contractx "github.com/careline/clinic-agent/agent/contract"
	"github.com/careline/clinic-agent/agent/schedule"
	"github.com/careline/clinic-agent/pkg/notify"
)

// topReasonLimit bounds the ranked breakdown included in a report.
const topReasonLimit = 10

type ReportStats struct {
	Doctor            string                 `json:"doctor"`
	RefDate           string                 `json:"ref_date"`
	PatientsYesterday int                    `json:"patients_yesterday"`
	PatientsToday     int                    `json:"patients_today"`
	PatientsTomorrow  int                    `json:"patients_tomorrow"`
	TopReasons        []schedule.ReasonCount `json:"top_reasons"`
}

type ReportResult struct {
	Doctor           string         `json:"doctor"`
	RefDate          string         `json:"ref_date"`
	SummaryText      string         `json:"summary_text"`
	RawStats         ReportStats    `json:"raw_stats"`
	Notification     notify.Outcome `json:"notification"`
	NotificationSent bool           `json:"notification_sent"`
}

func reportSpec() Spec {
	return Spec{
		ToolSchema: contractx.ToolSchema{
			Name:        ToolDoctorReport,
			Description: "Return a summary report of patient counts and visit reasons, optionally notifying the doctor's webhook.",
			Params: map[string]contractx.ParamSpec{
				"doctor_name":       {Type: "string", Description: "Doctor full name, e.g. 'Dr. Ahuja'.", Required: true},
				"ref_date":          {Type: "string", Description: "Reference date in YYYY-MM-DD format. Defaults to today."},
				"send_notification": {Type: "boolean", Description: "If true, push the summary to the doctor's webhook."},
			},
		},
		RequiredRole: contractx.RoleDoctor,
	}
}

func (r *Registry) executeReport(ctx context.Context, args Args, _ contractx.CallerContext) (any, error) {
	name := args.String("doctor_name")
	if name == "" {
		return nil, fmt.Errorf("%w: doctor_name is required", contractx.ErrBadArguments)
	}

	doc, err := r.deps.Store.FindDoctorByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("doctor %q: %w", name, err)
	}

	refDate, err := parseDateOr(args.String("ref_date"), r.today())
	if err != nil {
		return nil, fmt.Errorf("%w: invalid ref_date", contractx.ErrBadArguments)
	}

	yesterday, err := r.deps.Store.CountOn(ctx, doc.ID, refDate.AddDate(0, 0, -1))
	if err != nil {
		return nil, err
	}
	today, err := r.deps.Store.CountOn(ctx, doc.ID, refDate)
	if err != nil {
		return nil, err
	}
	tomorrow, err := r.deps.Store.CountOn(ctx, doc.ID, refDate.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}
	reasons, err := r.deps.Store.ReasonCounts(ctx, doc.ID)
	if err != nil {
		return nil, err
	}
	if len(reasons) > topReasonLimit {
		reasons = reasons[:topReasonLimit]
	}

	stats := ReportStats{
		Doctor:            doc.Name,
		RefDate:           refDate.Format("2006-01-02"),
		PatientsYesterday: yesterday,
		PatientsToday:     today,
		PatientsTomorrow:  tomorrow,
		TopReasons:        reasons,
	}
	summary := renderReportSummary(stats)

	result := ReportResult{
		Doctor:      doc.Name,
		RefDate:     stats.RefDate,
		SummaryText: summary,
		RawStats:    stats,
	}
	if args.Bool("send_notification", true) {
		result.Notification = r.deps.Notifier.DoctorWebhook(ctx, summary)
		result.NotificationSent = result.Notification.OK && result.Notification.Source == "webhook"
	}
	return result, nil
}

func renderReportSummary(stats ReportStats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Summary report for %s (%s)\n", stats.Doctor, stats.RefDate)
	fmt.Fprintf(&b, "- Patients yesterday: %d\n", stats.PatientsYesterday)
	fmt.Fprintf(&b, "- Patients today: %d\n", stats.PatientsToday)
	fmt.Fprintf(&b, "- Patients tomorrow: %d\n", stats.PatientsTomorrow)
	b.WriteString("- Reason breakdown:\n")
	if len(stats.TopReasons) == 0 {
		b.WriteString("  • No categorized reasons available.")
		return b.String()
	}
	for i, rc := range stats.TopReasons {
		fmt.Fprintf(&b, "  • %s: %d", titleWord(rc.Reason), rc.Count)
		if i < len(stats.TopReasons)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func titleWord(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
