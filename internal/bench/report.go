package bench

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/roach88/nullbench/internal/index"
)

// WriteJSON writes the report as indented JSON.
func WriteJSON(w io.Writer, r *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// WriteText writes the report as an aligned table, one row per case, with
// times in milliseconds.
func WriteText(w io.Writer, r *Report) error {
	fmt.Fprintf(w, "run %s  top-k %d  %d cases\n\n", r.RunID, r.TopK, len(r.Results))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DOCS\tOPERATOR\tSTRATEGY\tFIELD\tMODE\tN\tMIN ms\tMEAN ms\tP50 ms\tMAX ms\tHITS\tTOTAL\tSTATUS")
	for _, res := range r.Results {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%d\t%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			res.DocCount, res.Operator, res.Strategy, res.Field, res.Mode,
			res.Stats.N,
			millis(res.Stats.Min), millis(res.Stats.Mean), millis(res.Stats.P50), millis(res.Stats.Max),
			res.Hits, total(res), status(res))
	}
	return tw.Flush()
}

func millis(d time.Duration) string {
	return fmt.Sprintf("%.3f", float64(d)/float64(time.Millisecond))
}

func total(res Result) string {
	if res.Stats.N == 0 {
		return "-"
	}
	if res.Total.Relation == index.GreaterThanOrEqualTo {
		return fmt.Sprintf(">=%d", res.Total.Value)
	}
	return fmt.Sprintf("%d", res.Total.Value)
}

func status(res Result) string {
	switch {
	case res.Skipped != "":
		return "skipped: " + res.Skipped
	case res.TimedOut:
		return "timeout"
	case res.Error != "":
		return "error: " + res.Error
	}
	return "ok"
}
