package analyze

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/okian/hoopvision/internal/domain/model"
	"github.com/okian/hoopvision/internal/domain/stats"
)

const directoryPermission = 0750

// WriteBoxScore renders the report's box score as an aligned table, best
// scorer first, followed by a team total row.
func WriteBoxScore(w io.Writer, r *Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "PLAYER\tPTS\tFGM\tFGA\t3PM\t3PA\tREB\tAST\t\n")

	var total model.PlayerStats
	for _, id := range stats.SortedIDs(r.Stats) {
		st := r.Stats[id]
		writeRow(tw, id, st)
		total.Points += st.Points
		total.Makes += st.Makes
		total.Attempts += st.Attempts
		total.ThreePtMakes += st.ThreePtMakes
		total.ThreePtAttempts += st.ThreePtAttempts
		total.Rebounds += st.Rebounds
		total.Assists += st.Assists
	}
	writeRow(tw, "TOTAL", total)
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("write box score: %w", err)
	}

	_, err := fmt.Fprintf(w, "\nsession %s: %d records, %d frames analyzed, %d skipped, %d rejected, %d events in %s\n",
		r.Summary.SessionID, r.Records, r.Summary.FramesProcessed, r.Skipped, r.Failed, len(r.Events), r.Duration.Round(time.Millisecond))
	return err
}

func writeRow(w io.Writer, id string, st model.PlayerStats) {
	fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t\n",
		id, st.Points, st.Makes, st.Attempts, st.ThreePtMakes, st.ThreePtAttempts, st.Rebounds, st.Assists)
}

// WriteEvents writes the game log as an indented JSON array.
func WriteEvents(w io.Writer, events []model.GameEvent) error {
	if events == nil {
		events = []model.GameEvent{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(events); err != nil {
		return fmt.Errorf("write events: %w", err)
	}
	return nil
}

// SaveEvents writes the game log to filename, creating its directory.
func SaveEvents(filename string, events []model.GameEvent) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if err := WriteEvents(f, events); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
