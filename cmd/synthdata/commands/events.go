package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"git.home.luguber.info/inful/synthdata/internal/eventstore"
)

// EventsCmd implements the 'events' command. Without a run ID it lists runs
// recorded in the last --since; with one it prints that run's summary.
type EventsCmd struct {
	RunID string        `arg:"" optional:"" name:"run-id" help:"Show one run"`
	Since time.Duration `help:"How far back to list runs" default:"24h"`
	JSON  bool          `help:"Print JSON"`
	Raw   bool          `help:"Print the raw events instead of run summaries"`
}

func (e *EventsCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig(g)
	if err != nil {
		return err
	}
	store, err := eventstore.NewSQLiteStore(cfg.Storage.EventStore)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	out := root.stdout()

	if e.RunID != "" {
		if e.Raw {
			events, err := store.GetByRunID(ctx, e.RunID)
			if err != nil {
				return err
			}
			return e.printEvents(out, events)
		}
		summary, err := eventstore.ProjectRun(ctx, store, e.RunID)
		if err != nil {
			return err
		}
		return e.printRuns(out, []*eventstore.RunSummary{summary})
	}

	now := time.Now()
	events, err := store.GetRange(ctx, now.Add(-e.Since), now)
	if err != nil {
		return err
	}
	if e.Raw {
		return e.printEvents(out, events)
	}
	return e.printRuns(out, Summarize(events))
}

// Summarize folds events into run summaries, newest run first.
func Summarize(events []eventstore.Event) []*eventstore.RunSummary {
	projection := eventstore.NewRunProjection(nil, len(events)+1)
	for _, ev := range events {
		projection.Apply(ev)
	}
	return append(projection.Active(), projection.History()...)
}

func (e *EventsCmd) printRuns(w io.Writer, runs []*eventstore.RunSummary) error {
	if e.JSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}
	p := printer()
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "RUN\tRECIPE\tSTATUS\tSTARTED\tPOINTS\tANOMALIES\tERROR")
	for _, r := range runs {
		_, _ = p.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
			r.RunID, r.Recipe, r.Status, r.StartedAt.Format(time.RFC3339), r.Points, r.Anomalies, r.ErrorMessage)
	}
	return tw.Flush()
}

func (e *EventsCmd) printEvents(w io.Writer, events []eventstore.Event) error {
	if e.JSON {
		type row struct {
			RunID     string          `json:"run_id"`
			Type      string          `json:"type"`
			Timestamp time.Time       `json:"timestamp"`
			Payload   json.RawMessage `json:"payload"`
		}
		rows := make([]row, 0, len(events))
		for _, ev := range events {
			rows = append(rows, row{RunID: ev.RunID(), Type: ev.Type(), Timestamp: ev.Timestamp(), Payload: ev.Payload()})
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}
	for _, ev := range events {
		_, _ = fmt.Fprintf(w, "%s %s %s %s\n", ev.Timestamp().Format(time.RFC3339), ev.RunID(), ev.Type(), ev.Payload())
	}
	return nil
}
