package watchman_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ZhongRuoyu/watchman"
)

func Test_NotifySource_Feeds_File_Changes_Into_Collection(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	col := watchman.NewPendingCollection()

	src, err := watchman.NewNotifySource(root, col)
	if err != nil {
		t.Fatalf("NewNotifySource: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = src.Run(ctx) }()

	path := filepath.Join(root, "hello.txt")
	if err := os.WriteFile(path, []byte("hi"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	entry := awaitEntry(t, col, path)

	if !entry.Flags.Has(watchman.PendingViaNotify) {
		t.Fatalf("flags = %v, want PendingViaNotify set", entry.Flags)
	}
}

func Test_NotifySource_Marks_New_Directories_Recursive(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	col := watchman.NewPendingCollection()

	src, err := watchman.NewNotifySource(root, col)
	if err != nil {
		t.Fatalf("NewNotifySource: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = src.Run(ctx) }()

	dir := filepath.Join(root, "newdir")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}

	entry := awaitEntry(t, col, dir)

	if !entry.Flags.Has(watchman.PendingViaNotify | watchman.PendingRecursive) {
		t.Fatalf("flags = %v, want VIA_NOTIFY|RECURSIVE", entry.Flags)
	}
}

func Test_NotifySource_Skips_Ignored_Paths(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	col := watchman.NewPendingCollection()

	src, err := watchman.NewNotifySource(root, col,
		watchman.WithIgnoreGlobs("*.tmp"))
	if err != nil {
		t.Fatalf("NewNotifySource: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = src.Run(ctx) }()

	ignored := filepath.Join(root, "scratch.tmp")
	kept := filepath.Join(root, "kept.txt")

	if err := os.WriteFile(ignored, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if err := os.WriteFile(kept, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	awaitEntry(t, col, kept)

	view := col.Lock()
	defer view.Unlock()

	for p := view.StealItems(); p != nil; p = p.Next() {
		if p.Path == ignored {
			t.Fatalf("ignored path %q reached the collection", ignored)
		}
	}
}

// awaitEntry drains the collection until path shows up or the deadline
// passes. Entries for other paths are re-added so later assertions can
// still see them.
func awaitEntry(t *testing.T, col *watchman.PendingCollection, path string) *watchman.PendingChange {
	t.Helper()

	deadline := time.Now().Add(waitDeadline)

	for time.Now().Before(deadline) {
		view, _ := col.LockAndWait(100 * time.Millisecond)

		var found *watchman.PendingChange

		head := view.StealItems()
		for p := head; p != nil; p = p.Next() {
			if p.Path == path {
				found = p
			} else {
				view.Add(p.Path, p.ObservedAt, p.Flags)
			}
		}

		view.Unlock()

		if found != nil {
			return found
		}
	}

	t.Fatalf("entry for %q never arrived", path)

	return nil
}
