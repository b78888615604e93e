package worker

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/ppiankov/casefile/internal/extract"
	"github.com/ppiankov/casefile/internal/metrics"
	"github.com/ppiankov/casefile/internal/model"
	"github.com/ppiankov/casefile/internal/source"
)

// mapExtractor serves text per path and fails for paths in broken
type mapExtractor struct {
	text   map[string]string
	broken map[string]error
	calls  []string
}

func (m *mapExtractor) Extract(ctx context.Context, path string) (string, error) {
	m.calls = append(m.calls, path)
	if err, ok := m.broken[path]; ok {
		return "", &extract.Error{Source: path, Err: err}
	}
	return m.text[path], nil
}

// unitFunc adapts a function to Unit and counts calls
type unitFunc struct {
	fn    func(ctx context.Context, item source.Item, text string) Outcome
	calls int
}

func (u *unitFunc) Run(ctx context.Context, item source.Item, text string) Outcome {
	u.calls++
	return u.fn(ctx, item, text)
}

func items(names ...string) []source.Item {
	out := make([]source.Item, len(names))
	for i, n := range names {
		out[i] = source.Item{ID: "docs/" + n, Name: n, Key: n}
	}
	return out
}

func TestDriver_OneRecordPerItemInOrder(t *testing.T) {
	ext := &mapExtractor{
		text: map[string]string{
			"docs/a.pdf": "A",
			"docs/b.pdf": "B",
			"docs/d.pdf": "D",
		},
		broken: map[string]error{"docs/c.pdf": errors.New("pdftotext: exit status 1")},
	}
	unit := &unitFunc{fn: func(ctx context.Context, item source.Item, text string) Outcome {
		if text == "B" {
			return Outcome{Kind: OutcomeMalformed, Err: errors.New("malformed response: no JSON object found"), Attempts: 3}
		}
		return Outcome{Kind: OutcomeSuccess, Fields: model.CaseFields{City: model.Known(text)}}
	}}

	d := NewDriver(ext, unit, nil, nil, nil, quietLogger())
	records, err := d.Run(context.Background(), items("a.pdf", "b.pdf", "c.pdf", "d.pdf"))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(records) != 4 {
		t.Fatalf("expected 4 records, got %d", len(records))
	}
	for i, want := range []string{"docs/a.pdf", "docs/b.pdf", "docs/c.pdf", "docs/d.pdf"} {
		if records[i].Source != want {
			t.Errorf("record %d: expected source %s, got %s", i, want, records[i].Source)
		}
	}
	if !records[0].Success || !records[3].Success {
		t.Error("expected a and d to succeed")
	}
	if records[1].Success || records[1].ErrorMessage() != "malformed response: no JSON object found" {
		t.Errorf("unexpected record for b: %+v", records[1])
	}
}

func TestDriver_ExtractionFailureSkipsRemoteCall(t *testing.T) {
	ext := &mapExtractor{broken: map[string]error{"docs/bad.pdf": errors.New("no extractable text in docs/bad.pdf")}}
	unit := &unitFunc{fn: func(ctx context.Context, item source.Item, text string) Outcome {
		return Outcome{Kind: OutcomeSuccess}
	}}

	d := NewDriver(ext, unit, nil, nil, nil, quietLogger())
	records, err := d.Run(context.Background(), items("bad.pdf"))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if unit.calls != 0 {
		t.Errorf("expected zero remote calls, got %d", unit.calls)
	}
	rec := records[0]
	if rec.Success {
		t.Fatal("expected failure")
	}
	if rec.ErrorMessage() != "no extractable text in docs/bad.pdf" {
		t.Errorf("expected the extraction error message, got %q", rec.ErrorMessage())
	}
	for _, s := range []model.Presence{rec.District.State(), rec.City.State(), rec.Year.State(), rec.Month.State(), rec.Occurrence.State()} {
		if s != model.Absent {
			t.Errorf("expected all fields unknown, got %s", s)
		}
	}
}

func TestDriver_CooldownBetweenItemsOnly(t *testing.T) {
	ext := &mapExtractor{text: map[string]string{}}
	unit := &unitFunc{fn: func(ctx context.Context, item source.Item, text string) Outcome {
		return Outcome{Kind: OutcomeSuccess}
	}}
	sleeper := &recordingSleep{}
	limiter := NewLimiter(500*time.Millisecond, 0).WithSleep(sleeper.Sleep)

	d := NewDriver(ext, unit, limiter, nil, nil, quietLogger())
	if _, err := d.Run(context.Background(), items("a", "b", "c")); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(sleeper.delays) != 2 {
		t.Fatalf("expected 2 cooldowns for 3 items, got %v", sleeper.delays)
	}
	for _, d := range sleeper.delays {
		if d != 500*time.Millisecond {
			t.Errorf("unexpected cooldown %v", d)
		}
	}
}

func TestDriver_CancelDropsResults(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ext := &mapExtractor{text: map[string]string{}}
	unit := &unitFunc{fn: func(ctx context.Context, item source.Item, text string) Outcome {
		if item.Name == "b" {
			cancel()
		}
		return Outcome{Kind: OutcomeSuccess}
	}}

	d := NewDriver(ext, unit, nil, nil, nil, quietLogger())
	records, err := d.Run(ctx, items("a", "b", "c"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if records != nil {
		t.Errorf("expected no records after cancel, got %d", len(records))
	}
	if unit.calls != 2 {
		t.Errorf("expected processing to stop after b, got %d calls", unit.calls)
	}
}

func TestDriver_ProgressAndMetrics(t *testing.T) {
	ext := &mapExtractor{
		text:   map[string]string{},
		broken: map[string]error{"docs/b.pdf": errors.New("boom")},
	}
	unit := &unitFunc{fn: func(ctx context.Context, item source.Item, text string) Outcome {
		return Outcome{Kind: OutcomeSuccess, Cached: item.Name == "c.pdf"}
	}}
	var buf bytes.Buffer
	m := metrics.New()

	d := NewDriver(ext, unit, nil, NewLineProgress(&buf), m, quietLogger())
	if _, err := d.Run(context.Background(), items("a.pdf", "b.pdf", "c.pdf")); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"[1/3] Processing: a.pdf", "[3/3] Processing: c.pdf", "3 processed: 2 ok, 1 failed (1 from cache)"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in progress output %q", want, out)
		}
	}
	if got := testutil.ToFloat64(m.ItemsTotal.WithLabelValues("extraction")); got != 1 {
		t.Errorf("expected 1 extraction failure, got %v", got)
	}
	if got := testutil.ToFloat64(m.ItemsTotal.WithLabelValues("success")); got != 2 {
		t.Errorf("expected 2 successes, got %v", got)
	}
}

func TestDriver_EndToEndWithController(t *testing.T) {
	ext := &mapExtractor{text: map[string]string{
		"docs/1.pdf": "first",
		"docs/2.pdf": "second",
	}}
	provider := &scriptedProvider{steps: []step{
		{text: "```json\n{\"district\": \" Norte \", \"city\": \"Braga\", \"year\": \"ano 2022\", \"month\": null, \"occurrence\": \"Burla\"}\n```"},
		{text: `{"district": null, "city": "Lisbon", "year": 2021, "month": "sometime", "occurrence": ""}`},
	}}
	controller := NewController(provider, retryConfig(), ControllerOptions{Logger: quietLogger(), Sleep: (&recordingSleep{}).Sleep})

	d := NewDriver(ext, controller, nil, nil, nil, quietLogger())
	records, err := d.Run(context.Background(), items("1.pdf", "2.pdf"))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	first := records[0]
	if v, _ := first.District.Get(); v != "Norte" {
		t.Errorf("expected trimmed district, got %q", v)
	}
	if v, _ := first.Year.Get(); v != 2022 {
		t.Errorf("expected year 2022, got %d", v)
	}
	if first.Month.State() != model.Absent {
		t.Errorf("expected absent month, got %s", first.Month.State())
	}

	second := records[1]
	if second.Month.State() != model.Invalid {
		t.Errorf("expected invalid month, got %s", second.Month.State())
	}
	if len(second.InvalidFields) != 1 || second.InvalidFields[0] != model.FieldMonth {
		t.Errorf("expected invalid_fields [month], got %v", second.InvalidFields)
	}
	if v, ok := second.Occurrence.Get(); !ok || v != "" {
		t.Errorf("expected known empty occurrence, got %q %v", v, ok)
	}
}
