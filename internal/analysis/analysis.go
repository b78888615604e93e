// Package analysis computes grouped counts over a stored result collection.
//
// Every grouping is computed independently over the successful records,
// so a record with an unknown city still counts towards the year/month
// grouping. Failed records only appear in Summary and Failures.
package analysis

import (
	"cmp"
	"slices"

	"github.com/ppiankov/casefile/internal/model"
)

// UnknownLabel stands in for absent, empty or unparseable categorical values
const UnknownLabel = "Unknown"

// Summary holds overall record counts
type Summary struct {
	Total   int `json:"total"`
	Success int `json:"success"`
	Failed  int `json:"failed"`
}

// Failure is one failed record
type Failure struct {
	Source string `json:"source"`
	Error  string `json:"error"`
}

// FailureList holds the first failures and how many were left out
type FailureList struct {
	Examples  []Failure `json:"examples"`
	Remaining int       `json:"remaining"`
}

// Count is one categorical bucket
type Count struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// PeriodCount is one (year, month) bucket. 0 means unknown.
type PeriodCount struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Count int `json:"count"`
}

// YearCount is one year bucket inside a city. 0 means unknown.
type YearCount struct {
	Year  int `json:"year"`
	Count int `json:"count"`
}

// CityYears breaks one city down by year
type CityYears struct {
	City  string      `json:"city"`
	Years []YearCount `json:"years"`
}

// Report is the full structured aggregation, ready for any renderer
type Report struct {
	Summary       Summary       `json:"summary"`
	Failures      FailureList   `json:"failures"`
	ByYearMonth   []PeriodCount `json:"by_year_month"`
	ByCity        []Count       `json:"by_city"`
	ByOccurrence  []Count       `json:"by_occurrence"`
	ByDistrict    []Count       `json:"by_district"`
	ByCityAndYear []CityYears   `json:"by_city_and_year"`
}

// Build computes every grouping. maxErrors caps Failures.Examples; a
// negative value keeps them all.
func Build(records []model.CaseRecord, maxErrors int) Report {
	return Report{
		Summary:       Summarize(records),
		Failures:      Failures(records, maxErrors),
		ByYearMonth:   ByYearMonth(records),
		ByCity:        ByCity(records),
		ByOccurrence:  ByOccurrence(records),
		ByDistrict:    ByDistrict(records),
		ByCityAndYear: ByCityAndYear(records),
	}
}

// Summarize counts all, successful and failed records
func Summarize(records []model.CaseRecord) Summary {
	s := Summary{Total: len(records)}
	for _, r := range records {
		if r.Success {
			s.Success++
		}
	}
	s.Failed = s.Total - s.Success
	return s
}

// Failures lists failed records in stored order
func Failures(records []model.CaseRecord, limit int) FailureList {
	list := FailureList{Examples: []Failure{}}
	for _, r := range records {
		if r.Success {
			continue
		}
		if limit >= 0 && len(list.Examples) >= limit {
			list.Remaining++
			continue
		}
		msg := r.ErrorMessage()
		if msg == "" {
			msg = "<no error message>"
		}
		list.Examples = append(list.Examples, Failure{Source: r.Source, Error: msg})
	}
	return list
}

// ByYearMonth counts successful records per (year, month), chronologically
// with unknown parts sorting first
func ByYearMonth(records []model.CaseRecord) []PeriodCount {
	type key struct{ year, month int }
	counts := map[key]int{}
	for _, r := range successful(records) {
		counts[key{r.Year.ValueOr(0), r.Month.ValueOr(0)}]++
	}

	out := make([]PeriodCount, 0, len(counts))
	for k, n := range counts {
		out = append(out, PeriodCount{Year: k.year, Month: k.month, Count: n})
	}
	slices.SortFunc(out, func(a, b PeriodCount) int {
		if c := cmp.Compare(a.Year, b.Year); c != 0 {
			return c
		}
		return cmp.Compare(a.Month, b.Month)
	})
	return out
}

// ByCity counts successful records per city
func ByCity(records []model.CaseRecord) []Count {
	return countBy(records, func(r model.CaseRecord) model.Field[string] { return r.City })
}

// ByOccurrence counts successful records per occurrence type
func ByOccurrence(records []model.CaseRecord) []Count {
	return countBy(records, func(r model.CaseRecord) model.Field[string] { return r.Occurrence })
}

// ByDistrict counts successful records per district
func ByDistrict(records []model.CaseRecord) []Count {
	return countBy(records, func(r model.CaseRecord) model.Field[string] { return r.District })
}

// ByCityAndYear breaks each city down by year. Cities keep first-seen
// order; years ascend with unknown (0) first.
func ByCityAndYear(records []model.CaseRecord) []CityYears {
	var order []string
	byCity := map[string]map[int]int{}
	for _, r := range successful(records) {
		city := label(r.City)
		years, ok := byCity[city]
		if !ok {
			years = map[int]int{}
			byCity[city] = years
			order = append(order, city)
		}
		years[r.Year.ValueOr(0)]++
	}

	out := make([]CityYears, 0, len(order))
	for _, city := range order {
		cy := CityYears{City: city}
		for year, n := range byCity[city] {
			cy.Years = append(cy.Years, YearCount{Year: year, Count: n})
		}
		slices.SortFunc(cy.Years, func(a, b YearCount) int { return cmp.Compare(a.Year, b.Year) })
		out = append(out, cy)
	}
	return out
}

// countBy counts labels in descending order of count, ties kept in
// first-seen order
func countBy(records []model.CaseRecord, field func(model.CaseRecord) model.Field[string]) []Count {
	index := map[string]int{}
	var out []Count
	for _, r := range successful(records) {
		l := label(field(r))
		if i, ok := index[l]; ok {
			out[i].Count++
			continue
		}
		index[l] = len(out)
		out = append(out, Count{Label: l, Count: 1})
	}

	slices.SortStableFunc(out, func(a, b Count) int { return cmp.Compare(b.Count, a.Count) })
	if out == nil {
		out = []Count{}
	}
	return out
}

func successful(records []model.CaseRecord) []model.CaseRecord {
	var out []model.CaseRecord
	for _, r := range records {
		if r.Success {
			out = append(out, r)
		}
	}
	return out
}

func label(f model.Field[string]) string {
	if v, ok := f.Get(); ok && v != "" {
		return v
	}
	return UnknownLabel
}
