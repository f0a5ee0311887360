package cmd

import (
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/JakeFAU/rootscan/internal/progress/sinks"
	"github.com/JakeFAU/rootscan/internal/store"
)

func renderSummary(w io.Writer, snap sinks.Snapshot, elapsed time.Duration) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle("Run %s", snap.RunID)
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRow(table.Row{"Queued", snap.Total})
	appendTally(t, snap.Tally)
	t.AppendFooter(table.Row{"Elapsed", elapsed.Round(time.Millisecond)})
	t.Render()
}

func renderRun(w io.Writer, run store.Run) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle("Run %s", run.ID)
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRow(table.Row{"Status", run.Status})
	t.AppendRow(table.Row{"Started", run.StartedAt.Format(time.RFC3339)})
	finished := "-"
	if run.FinishedAt != nil {
		finished = run.FinishedAt.Format(time.RFC3339)
	}
	t.AppendRow(table.Row{"Finished", finished})
	t.AppendRow(table.Row{"Queued", run.Total})
	appendTally(t, run.Tally)
	t.Render()
}

func appendTally(t table.Writer, tally store.Tally) {
	t.AppendRows([]table.Row{
		{"Processed", tally.Processed},
		{"Success", tally.Success},
		{"Failure", tally.Failure},
		{"Stored", tally.Stored},
		{"Ignored", tally.Ignored},
		{"Dropped", tally.Dropped},
		{"Body bytes", tally.BodyBytes},
	})
}
