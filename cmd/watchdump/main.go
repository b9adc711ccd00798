// Watchdump watches a directory tree and prints drained batches of
// pending changes.
//
// It wires a NotifySource (fsnotify producer) to a PendingCollection
// and runs the canonical consumer loop: block in LockAndWait, steal
// the whole chain, print it, repeat. Useful for eyeballing
// consolidation and pruning against a live filesystem.
//
// Usage:
//
//	watchdump -dir /path/to/watch -ignore '.git/**' -v
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ZhongRuoyu/watchman"
)

func main() {
	var (
		dir     = flag.String("dir", ".", "directory to watch")
		ignore  = flag.String("ignore", "", "comma-separated ignore globs")
		timeout = flag.Duration("timeout", 2*time.Second, "consumer wait timeout")
		verbose = flag.Bool("v", false, "log collection internals (add/prune/skip)")
	)

	flag.Parse()

	if err := run(*dir, *ignore, *timeout, *verbose); err != nil {
		fmt.Fprintln(os.Stderr, "watchdump:", err)
		os.Exit(1)
	}
}

func run(dir, ignore string, timeout time.Duration, verbose bool) error {
	opts := []watchman.Option{
		watchman.WithCookiePredicate(watchman.DefaultCookiePredicate(".watchman-cookie-")),
	}

	if verbose {
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		opts = append(opts, watchman.WithLogger(logger))
	}

	if ignore != "" {
		opts = append(opts, watchman.WithIgnoreGlobs(strings.Split(ignore, ",")...))
	}

	col := watchman.NewPendingCollection(opts...)

	src, err := watchman.NewNotifySource(dir, col, opts...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		// Unblock the consumer so it can observe the shutdown.
		col.Ping()
	}()

	errs := make(chan error, 1)

	go func() { errs <- src.Run(ctx) }()

	fmt.Printf("watching %s (timeout %v)\n", dir, timeout)

	batch := 0

	for {
		if ctx.Err() != nil {
			return <-errs
		}

		view, _ := col.LockAndWait(timeout)
		head := view.StealItems()
		view.Unlock()

		if head == nil {
			// Timed out or pinged with nothing pending; loop re-checks
			// shutdown.
			continue
		}

		batch++
		fmt.Printf("batch %d:\n", batch)

		for p := head; p != nil; p = p.Next() {
			fmt.Printf("  %s  [%s]  %s\n",
				p.ObservedAt.Format(time.TimeOnly), p.Flags, p.Path)
		}
	}
}
