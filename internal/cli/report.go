package cli

import (
	"bytes"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/Veraticus/carga/internal/billing"
	"github.com/Veraticus/carga/internal/ingest"
	"github.com/Veraticus/carga/internal/model"
	"github.com/Veraticus/carga/internal/storage"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var euroPrinter = message.NewPrinter(language.Spanish)

// Euros formats an amount the way the office reads it, e.g. "150,50 €".
func Euros(d decimal.Decimal) string {
	return euroPrinter.Sprintf("%.2f €", d.Round(2).InexactFloat64())
}

// RenderTable lays out rows under a bold header in aligned columns.
func RenderTable(headers []string, rows [][]string) string {
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	styled := make([]string, len(headers))
	for i, h := range headers {
		styled[i] = BoldStyle.Render(h)
	}
	_, _ = fmt.Fprintln(w, strings.Join(styled, "\t"))
	for _, row := range rows {
		_, _ = fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	_ = w.Flush()
	return buf.String()
}

// RenderSummary shows a summary's totals and its ranked and period views.
// top limits the driver and client tables; zero shows everything.
func RenderSummary(title string, s model.Summary, top int) string {
	var b strings.Builder
	b.WriteString(FormatTitle(title) + "\n")

	if s.Records == 0 {
		b.WriteString(SubtleStyle.Render("No records match.") + "\n")
		return b.String()
	}

	fmt.Fprintf(&b, "%s %s  %s %d  %s %d  %s %d\n\n",
		BoldStyle.Render("Total:"), Euros(s.Total),
		BoldStyle.Render("Records:"), s.Records,
		BoldStyle.Render("Drivers:"), len(s.ByDriver),
		BoldStyle.Render("Clients:"), len(s.ByClient))

	b.WriteString(RenderRanked("Drivers", "DRIVER", s.RankedDrivers(), top) + "\n")
	b.WriteString(RenderRanked("Clients", "CLIENT", s.RankedClients(), top) + "\n")
	b.WriteString(renderPeriodTotals("Months", "MONTH", s.MonthTotals()) + "\n")
	b.WriteString(renderPeriodTotals("Weeks", "WEEK", s.WeekTotals()))
	return b.String()
}

// RenderRanked shows ranked entities with their share of the listed total.
func RenderRanked(title, nameHeader string, entries []model.RankedEntity, top int) string {
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.Total)
	}

	shown := entries
	if top > 0 && len(shown) > top {
		shown = shown[:top]
	}

	rows := make([][]string, 0, len(shown))
	for i, e := range shown {
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			e.Name,
			fmt.Sprintf("%d", e.Count),
			Euros(e.Total),
			share(e.Total, total),
		})
	}

	out := InfoStyle.Render(title) + "\n" + RenderTable([]string{"#", nameHeader, "RECORDS", "TOTAL", "SHARE"}, rows)
	if hidden := len(entries) - len(shown); hidden > 0 {
		out += SubtleStyle.Render(fmt.Sprintf("… and %d more", hidden)) + "\n"
	}
	return out
}

func share(part, total decimal.Decimal) string {
	if total.IsZero() {
		return "-"
	}
	return part.Div(total).Mul(decimal.NewFromInt(100)).StringFixed(1) + "%"
}

func renderPeriodTotals(title, keyHeader string, totals []model.PeriodTotal) string {
	rows := make([][]string, 0, len(totals))
	for _, p := range totals {
		rows = append(rows, []string{p.Key, Euros(p.Total)})
	}
	return InfoStyle.Render(title) + "\n" + RenderTable([]string{keyHeader, "TOTAL"}, rows)
}

// RenderPeriods lists month or week keys with their record counts.
func RenderPeriods(title, keyHeader string, periods []billing.PeriodCount) string {
	if len(periods) == 0 {
		return SubtleStyle.Render("No records stored.") + "\n"
	}
	rows := make([][]string, 0, len(periods))
	for _, p := range periods {
		rows = append(rows, []string{p.Key, p.Index, fmt.Sprintf("%d", p.Count)})
	}
	return InfoStyle.Render(title) + "\n" + RenderTable([]string{keyHeader, "INDEX", "RECORDS"}, rows)
}

// RenderImportReport shows the outcome of an upload. At most maxErrors row
// errors are listed; zero lists them all.
func RenderImportReport(r *ingest.Report, maxErrors int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Source:     %s\n", r.Source)
	fmt.Fprintf(&b, "Batch:      %s\n", r.BatchID)
	fmt.Fprintf(&b, "Rows read:  %d\n", r.Rows)
	fmt.Fprintf(&b, "Accepted:   %d\n", len(r.Result.Accepted))
	fmt.Fprintf(&b, "Rejected:   %d\n", len(r.Result.Errors))
	if r.Result.Skipped > 0 {
		fmt.Fprintf(&b, "Empty rows: %d\n", r.Result.Skipped)
	}
	if r.Result.Duplicates > 0 {
		fmt.Fprintf(&b, "Duplicates: %d\n", r.Result.Duplicates)
	}
	fmt.Fprintf(&b, "Written:    %d\n", r.Written)
	if r.Summary.Records > 0 {
		fmt.Fprintf(&b, "Total:      %s\n", Euros(r.Summary.Total))
	}

	if len(r.Result.Errors) > 0 {
		b.WriteString("\n" + WarningStyle.Render("Rejected rows") + "\n")
		shown := r.Result.Errors
		if maxErrors > 0 && len(shown) > maxErrors {
			shown = shown[:maxErrors]
		}
		for _, e := range shown {
			b.WriteString("  " + e.String() + "\n")
		}
		if hidden := len(r.Result.Errors) - len(shown); hidden > 0 {
			b.WriteString(SubtleStyle.Render(fmt.Sprintf("  … and %d more", hidden)) + "\n")
		}
	}

	if len(r.Failures) > 0 {
		b.WriteString("\n" + ErrorStyle.Render("Write failures") + "\n")
		for _, f := range r.Failures {
			b.WriteString("  " + f.String() + "\n")
		}
	}

	return RenderBox(outcomeTitle(r.Outcome), strings.TrimRight(b.String(), "\n"))
}

func outcomeTitle(o model.IngestOutcome) string {
	switch o {
	case model.OutcomeSuccess:
		return FormatSuccess("Upload complete")
	case model.OutcomePartial:
		return FormatWarning("Upload complete with rejected rows")
	case model.OutcomeProblems:
		return FormatError("Upload finished with write failures")
	default:
		return FormatWarning("Nothing to upload")
	}
}

// RenderBatches lists upload batches, newest first.
func RenderBatches(batches []model.UploadBatch, now time.Time) string {
	if len(batches) == 0 {
		return SubtleStyle.Render("No uploads recorded.") + "\n"
	}
	rows := make([][]string, 0, len(batches))
	for _, b := range batches {
		rows = append(rows, []string{
			b.ID,
			b.Source,
			FormatRelativeTime(b.CreatedAt, now),
			fmt.Sprintf("%d", b.Accepted),
			fmt.Sprintf("%d", b.Rejected),
			fmt.Sprintf("%d", b.Written),
			fmt.Sprintf("%d", b.Failed),
		})
	}
	return RenderTable([]string{"BATCH", "SOURCE", "CREATED", "ACCEPTED", "REJECTED", "WRITTEN", "FAILED"}, rows)
}

// RenderCheckpoints lists checkpoints, newest first.
func RenderCheckpoints(checkpoints []storage.CheckpointInfo, now time.Time) string {
	if len(checkpoints) == 0 {
		return SubtleStyle.Render("No checkpoints found.") + "\n"
	}
	rows := make([][]string, 0, len(checkpoints))
	for _, cp := range checkpoints {
		kind := "manual"
		if cp.IsAuto {
			kind = "auto"
		}
		rows = append(rows, []string{
			cp.ID,
			FormatRelativeTime(cp.CreatedAt, now),
			FormatFileSize(cp.FileSize),
			fmt.Sprintf("%d", cp.Records),
			fmt.Sprintf("%d", cp.Batches),
			kind,
		})
	}
	return RenderTable([]string{"NAME", "CREATED", "SIZE", "RECORDS", "UPLOADS", "TYPE"}, rows)
}

// FormatFileSize renders a byte count with a binary unit.
func FormatFileSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}

// FormatRelativeTime renders t relative to now, falling back to a date after a week.
func FormatRelativeTime(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return plural(int(d.Minutes()), "minute") + " ago"
	case d < 24*time.Hour:
		return plural(int(d.Hours()), "hour") + " ago"
	case d < 48*time.Hour:
		return "yesterday"
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%d days ago", int(d.Hours()/24))
	default:
		return t.Local().Format("2006-01-02 15:04")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
