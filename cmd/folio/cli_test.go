package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"folio/internal/archive"
	"folio/internal/config"
	"folio/internal/history"
	"folio/internal/taskmsg"
)

func TestConfigInitAndShow(t *testing.T) {
	env := setupCLITestEnv(t)

	tmp := t.TempDir()
	target := filepath.Join(tmp, "config.toml")
	out, _, err := runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected init to refuse an existing file")
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, ""); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}

	out, _, err = runCLI(t, []string{"config", "show"}, env.configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, env.configPath)
	requireContains(t, out, "pool.max_concurrency")
}

func TestInspectRendersManifest(t *testing.T) {
	env := setupCLITestEnv(t)

	doc := &archive.Document{
		Metadata:    map[string]string{"title": "Quarterly Notes"},
		ContentHTML: "<p>hello</p>",
	}
	data, err := archive.New(nil).Encode(doc)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	path := filepath.Join(env.baseDir, "notes.folio")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write archive: %v", err)
	}

	out, _, err := runCLI(t, []string{"inspect", path}, env.configPath)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	requireContains(t, out, "Schema version: 3")
	requireContains(t, out, "Quarterly Notes")
}

func TestInspectRejectsGarbage(t *testing.T) {
	env := setupCLITestEnv(t)

	path := filepath.Join(env.baseDir, "garbage.folio")
	if err := os.WriteFile(path, []byte{0x00, 0x01, 0x02}, 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if _, _, err := runCLI(t, []string{"inspect", path}, env.configPath); err == nil {
		t.Fatal("expected inspect to fail on non-archive bytes")
	}
}

func TestStatsShowsResolvedPool(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"stats"}, env.configPath)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	requireContains(t, out, "Max concurrency")
	requireContains(t, out, "2")
}

func TestHistoryListAndPrune(t *testing.T) {
	env := setupCLITestEnv(t)

	cfg, _, _, err := config.Load(env.configPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	store, err := history.Open(cfg)
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	now := time.Now()
	entry := history.Entry{
		Operation:  taskmsg.OpSave,
		Outcome:    history.OutcomeCompleted,
		Duration:   120 * time.Millisecond,
		StartedAt:  now.Add(-time.Second),
		FinishedAt: now,
	}
	if err := store.Record(context.Background(), entry); err != nil {
		t.Fatalf("record: %v", err)
	}
	store.Close()

	out, _, err := runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, taskmsg.OpSave)
	requireContains(t, out, "1 completed")

	out, _, err = runCLI(t, []string{"history", "prune"}, env.configPath)
	if err != nil {
		t.Fatalf("history prune: %v", err)
	}
	requireContains(t, out, "Pruned 0 entries")
}

func TestScratchCleanRemovesStaleDirs(t *testing.T) {
	env := setupCLITestEnv(t)

	stale := filepath.Join(env.scratchDir, "extract-stale")
	if err := os.MkdirAll(stale, 0o755); err != nil {
		t.Fatalf("mkdir stale: %v", err)
	}
	old := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(stale, old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	out, _, err := runCLI(t, []string{"scratch", "clean"}, env.configPath)
	if err != nil {
		t.Fatalf("scratch clean: %v", err)
	}
	requireContains(t, out, "Removed 1 extract directories")
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatalf("expected %s to be removed", stale)
	}
}
