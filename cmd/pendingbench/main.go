// Pendingbench benchmarks the pending-change accumulator.
//
// It generates a synthetic directory tree of paths, then measures the
// three hot paths of the collection: first-time adds, consolidating
// re-adds for the same paths, and recursive adds that prune whole
// subtrees. Results are printed as a throughput table.
package main

import (
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/ZhongRuoyu/watchman"
)

type benchFlags struct {
	dirs     int
	files    int
	rounds   int
	cookie   bool
	caseName string
}

func main() {
	cfg := parseFlags()

	paths := generatePaths(cfg.dirs, cfg.files)

	var opts []watchman.Option
	if cfg.cookie {
		opts = append(opts, watchman.WithCookiePredicate(
			watchman.DefaultCookiePredicate(".watchman-cookie-")))
	}

	results := make([]result, 0, 4)

	for _, bench := range []struct {
		name string
		run  func(*watchman.PendingCollection, []string) int
	}{
		{"add", benchAdd},
		{"consolidate", benchConsolidate},
		{"prune", benchPrune},
		{"steal", benchSteal},
	} {
		var (
			total time.Duration
			ops   int
		)

		for i := 0; i < cfg.rounds; i++ {
			col := watchman.NewPendingCollection(opts...)

			start := time.Now()
			ops = bench.run(col, paths)
			total += time.Since(start)
		}

		results = append(results, result{
			name: bench.name,
			ops:  ops,
			avg:  total / time.Duration(cfg.rounds),
		})
	}

	printSummary(cfg, results)
}

type result struct {
	name string
	ops  int
	avg  time.Duration
}

func parseFlags() benchFlags {
	var cfg benchFlags

	flag.IntVar(&cfg.dirs, "dirs", 100, "number of synthetic directories")
	flag.IntVar(&cfg.files, "files", 100, "files per directory")
	flag.IntVar(&cfg.rounds, "rounds", 5, "measurement rounds per benchmark")
	flag.BoolVar(&cfg.cookie, "cookie", false, "install a cookie predicate")
	flag.StringVar(&cfg.caseName, "case", "", "label for this run")
	flag.Parse()

	if cfg.dirs < 1 || cfg.files < 1 || cfg.rounds < 1 {
		fmt.Fprintln(os.Stderr, "dirs, files, and rounds must be >= 1")
		os.Exit(2)
	}

	return cfg
}

func generatePaths(dirs, files int) []string {
	paths := make([]string, 0, dirs*files)

	for d := 0; d < dirs; d++ {
		for f := 0; f < files; f++ {
			paths = append(paths, fmt.Sprintf("/bench/dir-%04d/file-%04d.txt", d, f))
		}
	}

	return paths
}

// benchAdd measures first-time inserts.
func benchAdd(col *watchman.PendingCollection, paths []string) int {
	now := time.Now()

	view := col.Lock()
	defer view.Unlock()

	for _, p := range paths {
		view.Add(p, now, watchman.PendingViaNotify)
	}

	return len(paths)
}

// benchConsolidate measures re-adds that hit existing entries.
func benchConsolidate(col *watchman.PendingCollection, paths []string) int {
	now := time.Now()

	view := col.Lock()
	defer view.Unlock()

	for _, p := range paths {
		view.Add(p, now, watchman.PendingViaNotify)
	}

	for _, p := range paths {
		view.Add(p, now, watchman.PendingIsDesynced)
	}

	return len(paths)
}

// benchPrune measures recursive adds that wipe out pre-filled
// subtrees, including the restart-based prefix rescans.
func benchPrune(col *watchman.PendingCollection, paths []string) int {
	now := time.Now()

	view := col.Lock()
	defer view.Unlock()

	for _, p := range paths {
		view.Add(p, now, watchman.PendingViaNotify)
	}

	view.Add("/bench", now, watchman.PendingRecursive)

	if view.Size() != 1 {
		panic(fmt.Sprintf("prune left %d entries", view.Size()))
	}

	return len(paths)
}

// benchSteal measures fill-then-drain cycles.
func benchSteal(col *watchman.PendingCollection, paths []string) int {
	now := time.Now()

	const batch = 512

	view := col.Lock()
	defer view.Unlock()

	for i, p := range paths {
		view.Add(p, now, watchman.PendingViaNotify)

		if (i+1)%batch == 0 {
			for e := view.StealItems(); e != nil; e = e.Next() {
			}
		}
	}

	for e := view.StealItems(); e != nil; e = e.Next() {
	}

	return len(paths)
}

func printSummary(cfg benchFlags, results []result) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)

	if cfg.caseName != "" {
		fmt.Fprintf(w, "case\t%s\n", cfg.caseName)
	}

	fmt.Fprintf(w, "paths\t%d\trounds\t%d\n\n", cfg.dirs*cfg.files, cfg.rounds)
	fmt.Fprintln(w, "benchmark\tops\tavg\tops/sec")

	for _, r := range results {
		perSec := float64(r.ops) / r.avg.Seconds()
		fmt.Fprintf(w, "%s\t%d\t%v\t%.0f\n", r.name, r.ops, r.avg, perSec)
	}

	_ = w.Flush()
}
