package regression

import (
	"fmt"
	"strings"

	"codeberg.org/mutker/vitalsctl/internal/vitals"
)

// GenerateReport formats res for humans.
func GenerateReport(res Result) string {
	var sb strings.Builder

	sb.WriteString("Performance Regression Report\n")
	sb.WriteString("=============================\n")
	fmt.Fprintf(&sb, "Baseline: %s", res.Baseline.ID)
	if !res.Baseline.Timestamp.IsZero() {
		fmt.Fprintf(&sb, " (%s)", res.Baseline.Timestamp.UTC().Format("2006-01-02 15:04:05 MST"))
	}
	sb.WriteString("\n")
	if res.Current.Page.URL != "" {
		fmt.Fprintf(&sb, "Page: %s\n", res.Current.Page.URL)
	}
	sb.WriteString("\n")

	if !res.HasRegression {
		sb.WriteString("No performance regressions detected.\n")
		return sb.String()
	}

	fmt.Fprintf(&sb, "Overall severity: %s\n", strings.ToUpper(res.Summary.OverallSeverity.String()))
	fmt.Fprintf(&sb, "Regressions: %d (%d critical, %d warning)\n\n",
		res.Summary.TotalRegressions,
		res.Summary.CriticalRegressions,
		res.Summary.WarningRegressions,
	)

	for _, r := range res.Regressions {
		fmt.Fprintf(&sb, "%s %s: %s -> %s (+%s",
			marker(r.Severity),
			strings.ToUpper(r.Metric.String()),
			r.Metric.Format(r.Baseline),
			r.Metric.Format(r.Current),
			r.Metric.Format(r.Change),
		)
		if r.Baseline != 0 {
			fmt.Fprintf(&sb, ", +%.1f%%", r.ChangePercent)
		}
		sb.WriteString(")\n")
	}
	return sb.String()
}

func marker(s vitals.Severity) string {
	switch s {
	case vitals.SeverityCritical:
		return "[CRITICAL]"
	case vitals.SeverityWarning:
		return "[WARNING]"
	case vitals.SeverityNone:
		return "[OK]"
	default:
		return "[?]"
	}
}
