package tracking

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
)

// Row is one detection log entry: one per id-bearing detection per frame.
type Row struct {
	Frame    int
	Time     float64 // seconds, Frame / fps
	TrackID  int
	Class    string
	X1       int
	Y1       int
	X2       int
	Y2       int
	Behavior string
	Conf     float64
}

// logHeader is the fixed column schema of the detection log.
var logHeader = []string{"Frame", "Time (s)", "Track_ID", "Class", "X1", "Y1", "X2", "Y2", "Behavior", "Conf"}

// WriteRows overwrites the log file at path with all rows. Every flush is a
// complete rewrite, never an append, so a crash leaves at worst a stale but
// well-formed log rather than a torn one.
func WriteRows(path string, rows []Row) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating log %s: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(logHeader); err != nil {
		f.Close()
		return fmt.Errorf("writing log header: %w", err)
	}

	for _, r := range rows {
		record := []string{
			strconv.Itoa(r.Frame),
			strconv.FormatFloat(r.Time, 'f', -1, 64),
			strconv.Itoa(r.TrackID),
			r.Class,
			strconv.Itoa(r.X1),
			strconv.Itoa(r.Y1),
			strconv.Itoa(r.X2),
			strconv.Itoa(r.Y2),
			r.Behavior,
			strconv.FormatFloat(r.Conf, 'f', -1, 64),
		}
		if err := w.Write(record); err != nil {
			f.Close()
			return fmt.Errorf("writing log row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("flushing log: %w", err)
	}
	return f.Close()
}
