package logs

import (
	"os"
	"path/filepath"
	"testing"
)

func writeLines(t *testing.T, path string, lines string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(lines), 0o644); err != nil {
		t.Fatalf("write log file: %v", err)
	}
}

func TestLastLinesReturnsTrailingWindow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "folio.log")
	writeLines(t, path, "one\ntwo\nthree\nfour\n")

	lines, offset, err := LastLines(path, 2)
	if err != nil {
		t.Fatalf("LastLines: %v", err)
	}
	if len(lines) != 2 || lines[0] != "three" || lines[1] != "four" {
		t.Fatalf("unexpected lines %v", lines)
	}
	if offset == 0 {
		t.Fatal("expected non-zero offset")
	}
}

func TestLastLinesFewerThanLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "folio.log")
	writeLines(t, path, "only\n")

	lines, _, err := LastLines(path, 10)
	if err != nil {
		t.Fatalf("LastLines: %v", err)
	}
	if len(lines) != 1 || lines[0] != "only" {
		t.Fatalf("unexpected lines %v", lines)
	}
}

func TestLastLinesMissingFile(t *testing.T) {
	lines, offset, err := LastLines(filepath.Join(t.TempDir(), "absent.log"), 5)
	if err != nil {
		t.Fatalf("LastLines: %v", err)
	}
	if len(lines) != 0 || offset != 0 {
		t.Fatalf("expected empty result, got %v offset %d", lines, offset)
	}
}

func TestReadFromPicksUpNewLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "folio.log")
	writeLines(t, path, "first\n")

	_, offset, err := LastLines(path, 10)
	if err != nil {
		t.Fatalf("LastLines: %v", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open append: %v", err)
	}
	if _, err := f.WriteString("second\nthird\n"); err != nil {
		t.Fatalf("append: %v", err)
	}
	f.Close()

	lines, newOffset, err := ReadFrom(path, offset)
	if err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}
	if len(lines) != 2 || lines[0] != "second" || lines[1] != "third" {
		t.Fatalf("unexpected lines %v", lines)
	}
	if newOffset <= offset {
		t.Fatalf("offset should advance, got %d -> %d", offset, newOffset)
	}
}

func TestReadFromResetsOnTruncation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "folio.log")
	writeLines(t, path, "a\nb\nc\n")

	_, offset, err := LastLines(path, 10)
	if err != nil {
		t.Fatalf("LastLines: %v", err)
	}

	writeLines(t, path, "fresh\n")

	lines, _, err := ReadFrom(path, offset)
	if err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}
	if len(lines) != 1 || lines[0] != "fresh" {
		t.Fatalf("unexpected lines %v", lines)
	}
}
