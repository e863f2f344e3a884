package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dukerupert/habitual/internal/analytics"
	"github.com/dukerupert/habitual/internal/database"
	"github.com/dukerupert/habitual/internal/store"
)

type statsCmd struct {
	Email string `arg:"" help:"Email of the user to report on."`
	Days  int    `help:"Heatmap window in days; 0 uses the configured default." default:"0"`
}

func (c *statsCmd) Run(app *appContext) error {
	analyticsCfg, err := app.Config.Analytics()
	if err != nil {
		return err
	}

	db, err := database.Open(app.Config.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	users := store.NewUserStore(db)
	user, err := users.GetByEmail(strings.ToLower(strings.TrimSpace(c.Email)))
	if err != nil {
		return err
	}
	if user == nil {
		return fmt.Errorf("no user with email %q", c.Email)
	}

	svc, err := analytics.NewService(store.NewHabitStore(db), store.NewNoteStore(db), users, analyticsCfg, nil, app.Logger)
	if err != nil {
		return err
	}

	st, err := svc.Streaks(user.ID)
	if err != nil {
		return err
	}
	hm, err := svc.Heatmap(user.ID, c.Days)
	if err != nil {
		return err
	}

	renderStats(os.Stdout, user.Email, st, hm)
	return nil
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	legendStyle = lipgloss.NewStyle().PaddingRight(2)
	cellStyles  = map[analytics.Color]lipgloss.Style{
		analytics.ColorGreen:  lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		analytics.ColorYellow: lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		analytics.ColorRed:    lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
	}
	legendOrder = []analytics.Color{analytics.ColorGreen, analytics.ColorYellow, analytics.ColorRed}
)

const (
	cellGlyph   = "■"
	daysPerWeek = 7
)

// renderStats prints the streak summary and the heatmap as rows of seven
// days, oldest first.
func renderStats(w io.Writer, email string, st analytics.Streak, hm analytics.Heatmap) {
	fmt.Fprintln(w, titleStyle.Render(email))
	fmt.Fprintf(w, "%s %d   %s %d\n",
		labelStyle.Render("current streak"), st.Current,
		labelStyle.Render("best streak"), st.Best)
	fmt.Fprintf(w, "%s %s to %s (threshold %d)\n\n",
		labelStyle.Render("heatmap"), hm.Start, hm.End, hm.Threshold)

	var row strings.Builder
	n := 0
	for i := len(hm.Cells) - 1; i >= 0; i-- {
		cell := hm.Cells[i]
		row.WriteString(cellStyles[cell.Color].Render(cellGlyph))
		n++
		if n%daysPerWeek == 0 || i == 0 {
			fmt.Fprintln(w, row.String())
			row.Reset()
		} else {
			row.WriteString(" ")
		}
	}

	legend := make([]string, 0, len(legendOrder))
	for i, c := range legendOrder {
		entry := legendStyle
		if i == len(legendOrder)-1 {
			entry = entry.UnsetPaddingRight()
		}
		legend = append(legend, entry.Render(cellStyles[c].Render(cellGlyph)+" "+string(c)))
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, lipgloss.JoinHorizontal(lipgloss.Top, legend...))
}
