package watchman

import "strings"

// PendingFlags records why a path is pending and how it must be
// processed. Flags on a live entry only ever accumulate: they are
// OR-ed together on consolidation and never cleared.
type PendingFlags uint8

const (
	// PendingCrawlOnly marks an entry produced by or for a directory
	// re-scan. Crawl-only entries are exempt from pruning and do not
	// trigger pruning of their children; this avoids repeatedly
	// re-pruning during a crawl-driven recursive stat pass.
	PendingCrawlOnly PendingFlags = 1 << iota

	// PendingRecursive means everything under the path is already
	// considered changed; finer-grained entries beneath it are
	// redundant.
	PendingRecursive

	// PendingViaNotify marks an entry that originated from an OS
	// change notification rather than a crawl.
	PendingViaNotify

	// PendingIsDesynced marks an entry observed after the notification
	// stream lost events (queue overflow); the consumer cannot assume
	// it has seen every change below it.
	PendingIsDesynced
)

// Has reports whether every bit in mask is set.
func (f PendingFlags) Has(mask PendingFlags) bool {
	return f&mask == mask
}

// String returns a "|"-joined label list, or "0" for the empty set.
func (f PendingFlags) String() string {
	if f == 0 {
		return "0"
	}

	labels := make([]string, 0, 4)

	if f&PendingCrawlOnly != 0 {
		labels = append(labels, "CRAWL_ONLY")
	}
	if f&PendingRecursive != 0 {
		labels = append(labels, "RECURSIVE")
	}
	if f&PendingViaNotify != 0 {
		labels = append(labels, "VIA_NOTIFY")
	}
	if f&PendingIsDesynced != 0 {
		labels = append(labels, "IS_DESYNCED")
	}

	return strings.Join(labels, "|")
}
