package analysis

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// MonthName returns the English month name, "Unknown month" for 0 and
// "Month N" for anything out of range
func MonthName(m int) string {
	switch {
	case m == 0:
		return "Unknown month"
	case m >= 1 && m <= 12:
		return time.Month(m).String()
	default:
		return fmt.Sprintf("Month %d", m)
	}
}

// YearLabel returns the year, or "Unknown year" for 0
func YearLabel(y int) string {
	if y == 0 {
		return "Unknown year"
	}
	return fmt.Sprint(y)
}

// RenderText writes the report as plain text sections
func RenderText(w io.Writer, r Report) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintln(bw, "=== OVERALL SUMMARY ===")
	fmt.Fprintf(bw, "Total records:      %d\n", r.Summary.Total)
	fmt.Fprintf(bw, "Successful records: %d\n", r.Summary.Success)
	fmt.Fprintf(bw, "Failed records:     %d\n", r.Summary.Failed)
	fmt.Fprintln(bw)

	if len(r.Failures.Examples) == 0 && r.Failures.Remaining == 0 {
		fmt.Fprintln(bw, "=== ERRORS ===")
		fmt.Fprintln(bw, "No failures.")
	} else {
		fmt.Fprintln(bw, "=== ERRORS (examples) ===")
		for i, f := range r.Failures.Examples {
			fmt.Fprintf(bw, "%2d. File: %s\n", i+1, f.Source)
			fmt.Fprintf(bw, "    Error: %s\n", f.Error)
		}
		if r.Failures.Remaining > 0 {
			fmt.Fprintf(bw, "... and %d more failures.\n", r.Failures.Remaining)
		}
	}
	fmt.Fprintln(bw)

	fmt.Fprintln(bw, "=== CASES BY YEAR / MONTH ===")
	for _, p := range r.ByYearMonth {
		fmt.Fprintf(bw, "%-12s %-12s -> %d\n", YearLabel(p.Year), MonthName(p.Month), p.Count)
	}
	fmt.Fprintln(bw)

	writeCounts(bw, "=== CASES BY CITY ===", 25, r.ByCity)
	writeCounts(bw, "=== CASES BY OCCURRENCE TYPE ===", 30, r.ByOccurrence)
	writeCounts(bw, "=== CASES BY DISTRICT ===", 25, r.ByDistrict)

	fmt.Fprintln(bw, "=== CASES BY CITY AND YEAR ===")
	for _, cy := range r.ByCityAndYear {
		fmt.Fprintf(bw, "- %s:\n", cy.City)
		for _, y := range cy.Years {
			fmt.Fprintf(bw, "    %-12s -> %d\n", YearLabel(y.Year), y.Count)
		}
	}
	fmt.Fprintln(bw)

	return bw.Flush()
}

func writeCounts(w io.Writer, title string, width int, counts []Count) {
	fmt.Fprintln(w, title)
	for _, c := range counts {
		fmt.Fprintf(w, "%-*s -> %d\n", width, c.Label, c.Count)
	}
	fmt.Fprintln(w)
}

// RenderJSON writes the report as indented JSON
func RenderJSON(w io.Writer, r Report) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
