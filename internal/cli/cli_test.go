package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/ppiankov/casefile/internal/model"
	"github.com/ppiankov/casefile/internal/store"
	"github.com/ppiankov/casefile/internal/worker"
)

func newTestViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	bindEnv(v)
	return v
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadConfig(newTestViper())
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.Retry.MaxAttempts != 3 || cfg.Retry.BaseDelay != 2*time.Second {
		t.Errorf("unexpected retry defaults: %+v", cfg.Retry)
	}
	if cfg.Batch.Cooldown != 500*time.Millisecond {
		t.Errorf("unexpected cooldown %v", cfg.Batch.Cooldown)
	}
	if cfg.Output.Path != "./output.json" {
		t.Errorf("unexpected output path %s", cfg.Output.Path)
	}
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("CASEFILE_RETRY_MAX_ATTEMPTS", "5")
	t.Setenv("CASEFILE_BATCH_COOLDOWN", "2s")
	t.Setenv("CASEFILE_INPUT_DIR", "/data/reports")

	cfg, err := loadConfig(newTestViper())
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.Retry.MaxAttempts != 5 {
		t.Errorf("expected 5 attempts, got %d", cfg.Retry.MaxAttempts)
	}
	if cfg.Batch.Cooldown != 2*time.Second {
		t.Errorf("expected 2s cooldown, got %v", cfg.Batch.Cooldown)
	}
	if cfg.Input.Dir != "/data/reports" {
		t.Errorf("unexpected input dir %s", cfg.Input.Dir)
	}
}

func TestLoadConfig_ProviderKeys(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	v := newTestViper()
	v.Set("llm.provider", "openai")
	if _, err := loadConfig(v); err == nil {
		t.Fatal("expected error without OPENAI_API_KEY")
	}

	t.Setenv("OPENAI_API_KEY", "sk-test")
	cfg, err := loadConfig(v)
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.LLM.APIKey != "sk-test" {
		t.Errorf("expected key from environment, got %q", cfg.LLM.APIKey)
	}
	if cfg.LLM.BaseURL != "" {
		t.Errorf("expected ollama base URL to be cleared, got %q", cfg.LLM.BaseURL)
	}
}

func TestLoadConfig_OllamaBaseURL(t *testing.T) {
	t.Setenv("OLLAMA_BASE_URL", "http://gpu-box:11434")
	cfg, err := loadConfig(newTestViper())
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.LLM.BaseURL != "http://gpu-box:11434" {
		t.Errorf("unexpected base URL %s", cfg.LLM.BaseURL)
	}

	v := newTestViper()
	v.Set("llm.base_url", "http://explicit:11434")
	cfg, err = loadConfig(v)
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.LLM.BaseURL != "http://explicit:11434" {
		t.Errorf("explicit base URL should win, got %s", cfg.LLM.BaseURL)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	v := newTestViper()
	v.Set("retry.max_attempts", 0)
	if _, err := loadConfig(v); err == nil {
		t.Error("expected error for zero attempts")
	}

	v = newTestViper()
	v.Set("llm.provider", "mystery")
	if _, err := loadConfig(v); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	if err := writeDefaultConfig(path); err != nil {
		t.Fatalf("writeDefaultConfig failed: %v", err)
	}

	v := newTestViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		t.Fatalf("written config does not parse: %v", err)
	}
	cfg, err := loadConfig(v)
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.Retry.CallTimeout != 60*time.Second {
		t.Errorf("unexpected call timeout %v", cfg.Retry.CallTimeout)
	}

	if err := writeDefaultConfig(path); err == nil {
		t.Error("expected error when the file already exists")
	}
}

func writeResults(t *testing.T, records []model.CaseRecord) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "results.json")
	if err := store.WriteJSON(path, records); err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}
	return path
}

func success(city string, year, month int) model.CaseRecord {
	return model.CaseRecord{
		Source:  city + ".pdf",
		Success: true,
		CaseFields: model.CaseFields{
			City:  model.Known(city),
			Year:  model.Known(year),
			Month: model.Known(month),
		},
	}
}

func TestRunReport_Text(t *testing.T) {
	msg := "status 500"
	path := writeResults(t, []model.CaseRecord{
		success("Lisbon", 2021, 3),
		success("Lisbon", 2021, 3),
		{Source: "broken.pdf", Error: &msg},
	})

	var buf bytes.Buffer
	if err := runReport(&buf, path, "text", 5, ""); err != nil {
		t.Fatalf("runReport failed: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"Total records:      3",
		"Failed records:     1",
		"File: broken.pdf",
		"Error: status 500",
		"2021         March        -> 2",
		"Lisbon",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in report:\n%s", want, out)
		}
	}
}

func TestRunReport_JSONAndXLSX(t *testing.T) {
	path := writeResults(t, []model.CaseRecord{success("Porto", 2020, 1)})
	xlsxPath := filepath.Join(t.TempDir(), "report.xlsx")

	var buf bytes.Buffer
	if err := runReport(&buf, path, "json", -1, xlsxPath); err != nil {
		t.Fatalf("runReport failed: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("report is not JSON: %v", err)
	}
	if _, ok := got["by_city_and_year"]; !ok {
		t.Errorf("missing by_city_and_year in %v", got)
	}
	if _, err := os.Stat(xlsxPath); err != nil {
		t.Errorf("expected workbook: %v", err)
	}
}

func TestRunReport_Errors(t *testing.T) {
	if err := runReport(io.Discard, filepath.Join(t.TempDir(), "missing.json"), "text", 5, ""); err == nil {
		t.Error("expected error for a missing results file")
	}

	path := writeResults(t, nil)
	if err := runReport(io.Discard, path, "yaml", 5, ""); err == nil {
		t.Error("expected error for an unknown format")
	}
}

func TestRunBatch_EndToEnd(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tags" {
			_, _ = w.Write([]byte(`{"models":[]}`))
			return
		}
		var req struct {
			Prompt string `json:"prompt"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)

		answer := `{"district":"Lisboa","city":"Lisbon","year":2021,"month":3,"occurrence":"Furto"}`
		if strings.Contains(req.Prompt, "gibberish") {
			answer = "I could not find any case data."
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"model": "llama3.2", "response": answer, "done": true})
	}))
	defer server.Close()

	dir := t.TempDir()
	files := map[string]string{
		"a.txt":     "Ocorrência de furto em Lisboa, março de 2021.",
		"b.txt":     "gibberish",
		"c.txt":     "   ",
		"notes.csv": "ignored",
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0644); err != nil {
			t.Fatal(err)
		}
	}

	cfg := model.DefaultConfig()
	cfg.Input.Dir = dir
	cfg.Input.Extensions = []string{".txt"}
	cfg.LLM.BaseURL = server.URL
	cfg.Retry.MaxAttempts = 2
	cfg.Retry.BaseDelay = time.Millisecond
	cfg.Retry.CallTimeout = 5 * time.Second
	cfg.Batch.Cooldown = 0
	cfg.Metrics.File = filepath.Join(t.TempDir(), "casefile.prom")

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	records, err := runBatch(context.Background(), cfg, worker.NopProgress{}, logger)
	if err != nil {
		t.Fatalf("runBatch failed: %v", err)
	}

	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	if !records[0].Success {
		t.Errorf("expected a.txt to succeed: %+v", records[0])
	}
	if city, _ := records[0].City.Get(); city != "Lisbon" {
		t.Errorf("unexpected city %q", city)
	}
	if records[1].Success || records[2].Success {
		t.Error("expected b.txt and c.txt to fail")
	}

	prom, err := os.ReadFile(cfg.Metrics.File)
	if err != nil {
		t.Fatalf("expected metrics textfile: %v", err)
	}
	if !strings.Contains(string(prom), `casefile_items_total{outcome="success"} 1`) {
		t.Errorf("unexpected metrics:\n%s", prom)
	}
}

func TestRunBatch_MissingInputDir(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Input.Dir = filepath.Join(t.TempDir(), "nope")

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if _, err := runBatch(context.Background(), cfg, worker.NopProgress{}, logger); err == nil {
		t.Error("expected error for a missing input directory")
	}
}

func TestRunBatch_CacheDirSkipsRemoteCallsOnRerun(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tags" {
			_, _ = w.Write([]byte(`{"models":[]}`))
			return
		}
		calls++
		answer := `{"district":null,"city":"Faro","year":2019,"month":"n/a","occurrence":"Roubo"}`
		_ = json.NewEncoder(w).Encode(map[string]any{"model": "llama3.2", "response": answer, "done": true})
	}))
	defer server.Close()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("Roubo em Faro"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := model.DefaultConfig()
	cfg.Input.Dir = dir
	cfg.Input.Extensions = []string{".txt"}
	cfg.LLM.BaseURL = server.URL
	cfg.Batch.Cooldown = 0
	cfg.Batch.CacheDir = filepath.Join(t.TempDir(), "cache")

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	for run := 0; run < 2; run++ {
		records, err := runBatch(context.Background(), cfg, worker.NopProgress{}, logger)
		if err != nil {
			t.Fatalf("run %d failed: %v", run, err)
		}
		if records[0].Month.State() != model.Invalid {
			t.Errorf("run %d: expected invalid month, got %s", run, records[0].Month.State())
		}
	}
	if calls != 1 {
		t.Errorf("expected one remote call across both runs, got %d", calls)
	}
}

func TestRunBatch_ClearCacheForcesRemoteCall(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tags" {
			_, _ = w.Write([]byte(`{"models":[]}`))
			return
		}
		calls++
		_ = json.NewEncoder(w).Encode(map[string]any{"model": "llama3.2", "response": `{"city":"Evora"}`, "done": true})
	}))
	defer server.Close()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("Furto em Évora"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := model.DefaultConfig()
	cfg.Input.Dir = dir
	cfg.Input.Extensions = []string{".txt"}
	cfg.LLM.BaseURL = server.URL
	cfg.Batch.Cooldown = 0
	cfg.Batch.CacheDir = filepath.Join(t.TempDir(), "cache")

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if _, err := runBatch(context.Background(), cfg, worker.NopProgress{}, logger); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	cfg.Batch.ClearCache = true
	if _, err := runBatch(context.Background(), cfg, worker.NopProgress{}, logger); err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected the cleared cache to force a second call, got %d", calls)
	}
}

func TestRunBatch_UnsupportedExtension(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.docx"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := model.DefaultConfig()
	cfg.Input.Dir = dir
	cfg.Input.Extensions = []string{"docx"}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	_, err := runBatch(context.Background(), cfg, worker.NopProgress{}, logger)
	if err == nil || !strings.Contains(err.Error(), "no extractor") {
		t.Errorf("expected unsupported extension error, got %v", err)
	}
}
