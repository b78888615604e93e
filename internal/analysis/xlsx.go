package analysis

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// WriteXLSX writes one worksheet per grouping to path
func WriteXLSX(path string, r Report) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheets := []struct {
		name    string
		headers []string
		rows    [][]any
	}{
		{
			name:    "Summary",
			headers: []string{"Total", "Successful", "Failed"},
			rows:    [][]any{{r.Summary.Total, r.Summary.Success, r.Summary.Failed}},
		},
		{
			name:    "Errors",
			headers: []string{"Source", "Error"},
			rows:    failureRows(r.Failures),
		},
		{
			name:    "Year-Month",
			headers: []string{"Year", "Month", "Cases"},
			rows:    periodRows(r.ByYearMonth),
		},
		{name: "City", headers: []string{"City", "Cases"}, rows: countRows(r.ByCity)},
		{name: "Occurrence", headers: []string{"Occurrence", "Cases"}, rows: countRows(r.ByOccurrence)},
		{name: "District", headers: []string{"District", "Cases"}, rows: countRows(r.ByDistrict)},
		{
			name:    "City-Year",
			headers: []string{"City", "Year", "Cases"},
			rows:    cityYearRows(r.ByCityAndYear),
		},
	}

	for i, s := range sheets {
		if i == 0 {
			// the new workbook starts with Sheet1
			if err := f.SetSheetName("Sheet1", s.name); err != nil {
				return fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(s.name); err != nil {
			return fmt.Errorf("add sheet %s: %w", s.name, err)
		}

		for col, h := range s.headers {
			cell, _ := excelize.CoordinatesToCellName(col+1, 1)
			if err := f.SetCellValue(s.name, cell, h); err != nil {
				return fmt.Errorf("write %s header: %w", s.name, err)
			}
		}
		for row, values := range s.rows {
			for col, v := range values {
				cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
				if err := f.SetCellValue(s.name, cell, v); err != nil {
					return fmt.Errorf("write %s row %d: %w", s.name, row+1, err)
				}
			}
		}
		_ = f.SetColWidth(s.name, "A", "A", 28)
		_ = f.SetColWidth(s.name, "B", "B", 18)
	}
	_ = f.SetColWidth("Errors", "B", "B", 80)
	f.SetActiveSheet(0)

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	return nil
}

func failureRows(l FailureList) [][]any {
	rows := make([][]any, 0, len(l.Examples))
	for _, e := range l.Examples {
		rows = append(rows, []any{e.Source, e.Error})
	}
	return rows
}

func periodRows(ps []PeriodCount) [][]any {
	rows := make([][]any, 0, len(ps))
	for _, p := range ps {
		rows = append(rows, []any{YearLabel(p.Year), MonthName(p.Month), p.Count})
	}
	return rows
}

func countRows(cs []Count) [][]any {
	rows := make([][]any, 0, len(cs))
	for _, c := range cs {
		rows = append(rows, []any{c.Label, c.Count})
	}
	return rows
}

func cityYearRows(cys []CityYears) [][]any {
	var rows [][]any
	for _, cy := range cys {
		for _, y := range cy.Years {
			rows = append(rows, []any{cy.City, YearLabel(y.Year), y.Count})
		}
	}
	return rows
}
