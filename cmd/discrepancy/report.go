package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/JonMunkholm/discrepancy/internal/apperr"
	"github.com/JonMunkholm/discrepancy/internal/pipeline"
)

// printReport writes one line per document and a totals line.
func printReport(w io.Writer, r pipeline.Report) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SOURCE\tDOCUMENT\tSTATE\tFOUND\tNOTE")
	for _, d := range r.Documents {
		id := d.DocumentID
		if id == "" {
			id = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
			filepath.Base(d.Source), id, d.State, d.Discrepancies, note(d))
	}
	tw.Flush()

	c := r.Counts()
	fmt.Fprintf(w, "\n%d documents: %d persisted, %d skipped, %d failed, %d duplicate, %d partial\n",
		c.Total, c.Persisted, c.Skipped, c.Failed, c.Duplicate, c.Partial)
	fmt.Fprintf(w, "%d discrepancies found, %d stored, %d conflicts (run %s, %s)\n",
		r.Found, r.Stored, r.Conflicts, r.RunID, r.Duration.Round(time.Millisecond))
}

func note(d pipeline.DocumentResult) string {
	var parts []string
	if d.Err != nil {
		msg := apperr.MapError(d.Err)
		parts = append(parts, msg.Code+" "+msg.Message)
	}
	if d.Partial {
		parts = append(parts, fmt.Sprintf("RULE001 %d rule(s) could not evaluate", len(d.Diagnostics)))
	}
	return strings.Join(parts, "; ")
}
