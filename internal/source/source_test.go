package source

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestEnumerate_SortedAndFiltered(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "c.pdf", "a.pdf", "notes.txt", "B.PDF")
	if err := os.Mkdir(filepath.Join(dir, "sub.pdf"), 0755); err != nil {
		t.Fatal(err)
	}

	items, err := Enumerate(dir, []string{"pdf"})
	if err != nil {
		t.Fatalf("Enumerate failed: %v", err)
	}

	expected := []string{"B.PDF", "a.pdf", "c.pdf"}
	if len(items) != len(expected) {
		t.Fatalf("expected %d items, got %d", len(expected), len(items))
	}
	for i, item := range items {
		if item.Name != expected[i] {
			t.Errorf("index %d: expected %s, got %s", i, expected[i], item.Name)
		}
		if item.ID != filepath.Join(dir, expected[i]) {
			t.Errorf("index %d: unexpected ID %s", i, item.ID)
		}
	}
}

func TestEnumerate_MultipleExtensions(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.pdf", "b.html", "c.txt", "d.doc")

	items, err := Enumerate(dir, []string{".pdf", ".HTML", "txt"})
	if err != nil {
		t.Fatalf("Enumerate failed: %v", err)
	}
	if len(items) != 3 {
		t.Errorf("expected 3 items, got %d", len(items))
	}
}

func TestEnumerate_MissingDir(t *testing.T) {
	_, err := Enumerate(filepath.Join(t.TempDir(), "nope"), []string{".pdf"})
	if !errors.Is(err, ErrInputDir) {
		t.Errorf("expected ErrInputDir, got %v", err)
	}
}

func TestEnumerate_NotADir(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "file.pdf")
	_, err := Enumerate(filepath.Join(dir, "file.pdf"), []string{".pdf"})
	if !errors.Is(err, ErrInputDir) {
		t.Errorf("expected ErrInputDir, got %v", err)
	}
}

func TestEnumerate_NoDocuments(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.txt")

	_, err := Enumerate(dir, []string{".pdf"})
	if !errors.Is(err, ErrNoDocuments) {
		t.Errorf("expected ErrNoDocuments, got %v", err)
	}
}
