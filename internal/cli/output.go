package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/tleroy/celcat-fetch/internal/ics"
	"github.com/tleroy/celcat-fetch/internal/scraper"
)

// OutputFormat specifies the output format.
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
	FormatICS  OutputFormat = "ics"
)

// jsonResult is the JSON rendering of a fetch, with errors flattened into
// strings.
type jsonResult struct {
	FetchedAt   time.Time    `json:"fetched_at"`
	Events      interface{}  `json:"events"`
	Windows     []jsonWindow `json:"windows"`
	ParseErrors []string     `json:"parse_errors,omitempty"`
}

type jsonWindow struct {
	Index  int    `json:"index"`
	Start  string `json:"start"`
	End    string `json:"end"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// WriteOutput renders the fetch result in the requested format.
func WriteOutput(w io.Writer, result *scraper.Result, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, result)
	case FormatICS:
		return ics.Encode(result.Events, w)
	case FormatText:
		return writeText(w, result)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

func writeJSON(w io.Writer, result *scraper.Result) error {
	out := jsonResult{
		FetchedAt: time.Now().UTC(),
		Events:    result.Events,
	}
	for _, ws := range result.Windows {
		jw := jsonWindow{
			Index:  ws.Window.Index,
			Start:  ws.Window.Start.Format(dateFlagFormat),
			End:    ws.Window.End.Format(dateFlagFormat),
			Status: string(ws.Status),
		}
		if ws.Err != nil {
			jw.Error = ws.Err.Error()
		}
		out.Windows = append(out.Windows, jw)
	}
	for _, pe := range result.ParseErrors {
		out.ParseErrors = append(out.ParseErrors, pe.Error())
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}

func writeText(w io.Writer, result *scraper.Result) error {
	if len(result.Events) == 0 {
		fmt.Fprintln(w, "No events found.")
	}

	var day string
	for _, ev := range result.Events {
		if d := ev.Start.Format("Mon 2006-01-02"); d != day {
			day = d
			fmt.Fprintf(w, "\n%s\n", day)
		}
		fmt.Fprintf(w, "  %s-%s  %s", ev.Start.Format("15:04"), ev.End.Format("15:04"), ev.Title)
		if ev.Category != "" {
			fmt.Fprintf(w, " [%s]", ev.Category)
		}
		if ev.Location != "" {
			fmt.Fprintf(w, " @ %s", ev.Location)
		}
		fmt.Fprintln(w)
	}

	if failed := result.Failed(); len(failed) > 0 {
		fmt.Fprintf(w, "\n%d window(s) incomplete:\n", len(failed))
		for _, ws := range failed {
			fmt.Fprintf(w, "  %s to %s: %s", ws.Window.Start.Format(dateFlagFormat),
				ws.Window.End.Format(dateFlagFormat), ws.Status)
			if ws.Err != nil {
				fmt.Fprintf(w, " (%v)", ws.Err)
			}
			fmt.Fprintln(w)
		}
	}
	if n := len(result.ParseErrors); n > 0 {
		fmt.Fprintf(w, "\n%d record(s) dropped as unparseable.\n", n)
	}
	return nil
}
