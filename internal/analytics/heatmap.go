package analytics

import (
	"time"

	"github.com/dukerupert/habitual/internal/model"
)

const (
	DefaultWindowDays = 90
	MaxWindowDays     = 366
)

// Color is the intensity class of a heatmap cell.
type Color string

const (
	ColorGreen  Color = "green"
	ColorYellow Color = "yellow"
	ColorRed    Color = "red"
)

// Classify maps a completion count to its heatmap color.
func Classify(count, threshold int) Color {
	switch {
	case count >= threshold:
		return ColorGreen
	case count > 0:
		return ColorYellow
	default:
		return ColorRed
	}
}

// NoteReader returns the free-text note for a user-day, empty if none.
type NoteReader interface {
	Note(userID int64, day time.Time) (string, error)
}

// NoteRanger is a NoteReader that can load every note in a date range at once.
// BuildHeatmap uses it instead of one Note call per day when available.
type NoteRanger interface {
	ListRange(userID int64, from, to time.Time) (map[string]string, error)
}

type HeatmapCell struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
	Color Color  `json:"color"`
	Note  string `json:"note"`
}

// Heatmap holds one cell per day, today first.
type Heatmap struct {
	Start     string        `json:"start"`
	End       string        `json:"end"`
	Threshold int           `json:"threshold"`
	Cells     []HeatmapCell `json:"cells"`
}

// BuildHeatmap evaluates each of the window days ending at today, walking
// backwards from today. It only reads.
func BuildHeatmap(e *Evaluator, notes NoteReader, userID int64, today time.Time, window int) (Heatmap, error) {
	if window < 1 || window > MaxWindowDays {
		return Heatmap{}, invalidArgf("window must be between 1 and %d days, got %d", MaxWindowDays, window)
	}
	today = model.Day(today)
	start := today.Add(-time.Duration(window-1) * oneDay)

	hm := Heatmap{
		Start:     model.FormatDate(start),
		End:       model.FormatDate(today),
		Threshold: e.Threshold(),
		Cells:     make([]HeatmapCell, 0, window),
	}

	var windowNotes map[string]string
	nr, batched := notes.(NoteRanger)
	if batched {
		var err error
		if windowNotes, err = nr.ListRange(userID, start, today); err != nil {
			return Heatmap{}, err
		}
	}
	for i := 0; i < window; i++ {
		d := today.Add(-time.Duration(i) * oneDay)
		ds, err := e.Evaluate(userID, d)
		if err != nil {
			return Heatmap{}, err
		}
		note := windowNotes[ds.Date]
		if !batched {
			if note, err = notes.Note(userID, d); err != nil {
				return Heatmap{}, err
			}
		}
		hm.Cells = append(hm.Cells, HeatmapCell{
			Date:  ds.Date,
			Count: ds.Count,
			Color: Classify(ds.Count, e.Threshold()),
			Note:  note,
		})
	}
	return hm, nil
}
