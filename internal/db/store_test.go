package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/metalagman/playlint/internal/lint"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := Open(context.Background(), filepath.Join(t.TempDir(), "nested", "history.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewStore(db)
}

func TestStore_RecordAndListRuns(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openTestStore(t)

	res := &lint.Result{
		Files: []string{"site.yml", "extra.yml"},
		Matches: []lint.Match{
			{RuleID: "ANSIBLE1004", File: "site.yml", Line: 3, Message: "Tasks must have name"},
			{RuleID: "ANSIBLE1004", File: "site.yml", Line: 9, Message: "Tasks must have name"},
			{RuleID: "ANSIBLE1002", File: "extra.yml", Line: 1, Message: "easy_install not recommended tool"},
		},
	}
	first, err := store.RecordRun(ctx, []string{"site.yml"}, res)
	if err != nil {
		t.Fatalf("record run: %v", err)
	}
	second, err := store.RecordRun(ctx, []string{"other.yml"}, &lint.Result{Files: []string{"other.yml"}})
	if err != nil {
		t.Fatalf("record run: %v", err)
	}

	runs, err := store.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("len(runs) = %d, want %d", len(runs), 2)
	}
	if runs[0].ID != second || runs[1].ID != first {
		t.Fatalf("run order = [%d %d], want [%d %d]", runs[0].ID, runs[1].ID, second, first)
	}
	if runs[1].Matches != 3 || runs[1].Files != 2 {
		t.Fatalf("run = %+v, want 3 matches over 2 files", runs[1])
	}
	if runs[1].Paths[0] != "site.yml" {
		t.Fatalf("paths = %v, want [site.yml]", runs[1].Paths)
	}

	counts, err := store.RuleCounts(ctx, first)
	if err != nil {
		t.Fatalf("rule counts: %v", err)
	}
	if counts["ANSIBLE1004"] != 2 || counts["ANSIBLE1002"] != 1 {
		t.Fatalf("counts = %v", counts)
	}

	limited, err := store.ListRuns(ctx, 1)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("len(limited) = %d, want %d", len(limited), 1)
	}
}

func TestStore_PruneRuns(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openTestStore(t)

	base := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		at := base.Add(time.Duration(i) * 24 * time.Hour)
		store.now = func() time.Time { return at }
		if _, err := store.RecordRun(ctx, []string{"site.yml"}, &lint.Result{
			Matches: []lint.Match{{RuleID: "ANSIBLE1004", File: "site.yml", Line: 1, Message: "m"}},
		}); err != nil {
			t.Fatalf("record run %d: %v", i, err)
		}
	}
	store.now = func() time.Time { return base.Add(4 * 24 * time.Hour) }

	dry, err := store.PruneRuns(ctx, RetentionPolicy{KeepLast: 1}, true)
	if err != nil {
		t.Fatalf("dry run prune: %v", err)
	}
	if dry.Deleted != 3 || dry.Kept != 1 {
		t.Fatalf("dry run = %+v, want 3 deleted and 1 kept", dry)
	}

	res, err := store.PruneRuns(ctx, RetentionPolicy{KeepLast: 1, KeepDays: 3}, false)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if res.Deleted != 2 || res.Kept != 2 {
		t.Fatalf("prune = %+v, want 2 deleted and 2 kept", res)
	}

	runs, err := store.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("len(runs) = %d, want %d", len(runs), 2)
	}
	var orphaned int
	if err := store.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM matches`).Scan(&orphaned); err != nil {
		t.Fatalf("count matches: %v", err)
	}
	if orphaned != 2 {
		t.Fatalf("matches = %d, want %d", orphaned, 2)
	}
}
