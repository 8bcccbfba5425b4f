package pipeline

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"
)

// WriteSummary prints one row per stage.
func WriteSummary(w io.Writer, results []StageResult) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STAGE\tPOLICY\tSTATUS\tDURATION\tDETAIL")
	for _, res := range results {
		detail := string(res.Warning)
		if code := res.Code(); code != "" {
			if detail != "" {
				detail += " "
			}
			detail += string(code)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			res.Name, res.Policy, res.Status, res.Duration().Round(time.Millisecond), detail)
	}
	return tw.Flush()
}

// LogSummary logs one line per stage result.
func LogSummary(run *Run, results []StageResult) {
	for _, res := range results {
		attrs := []any{
			"stage", res.Name,
			"status", res.Status,
			"duration", res.Duration(),
		}
		if res.Warning != WarningNone {
			attrs = append(attrs, "warning", res.Warning)
		}
		if code := res.Code(); code != "" {
			attrs = append(attrs, "code", code)
		}
		run.Logger.Info("stage summary", attrs...)
	}
}
