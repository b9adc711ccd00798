package watchman

import (
	"log/slog"
	"time"
)

// PendingChange is a single pending path: the node stored in the path
// index and linked into the pending list.
//
// An entry is live iff it is reachable from the list head and present
// in the index under its own path; the two views always contain
// exactly the same set of entries.
type PendingChange struct {
	// Path is the fully-qualified path and the index key. Immutable.
	Path string
	// ObservedAt is the timestamp of the observation that created the
	// entry.
	ObservedAt time.Time
	// Flags records why the path is pending. Grows monotonically via
	// OR; never cleared while the entry lives.
	Flags PendingFlags

	// next points toward the tail (older entries), prev toward the
	// head. Maintained by the owning ChangeSet.
	next *PendingChange
	prev *PendingChange
}

// Next returns the entry after p in a chain returned by StealItems
// (toward older entries), or nil at the tail.
func (p *PendingChange) Next() *PendingChange {
	return p.next
}

// ChangeSet accumulates pending changes with no synchronization of its
// own. It is the staging collection producers build privately and then
// merge into a shared [PendingCollection] via [LockedCollection.Append],
// and it is the core that PendingCollection guards behind its lock.
//
// A ChangeSet is not safe for concurrent use.
type ChangeSet struct {
	tree pathTree
	// head is the most recently added entry (LIFO order).
	head   *PendingChange
	cookie func(path string) bool
	log    *slog.Logger
}

// NewChangeSet returns an empty ChangeSet.
func NewChangeSet(opts ...Option) *ChangeSet {
	cfg := applyOptions(opts)

	s := newChangeSet(cfg)

	return &s
}

func newChangeSet(cfg options) ChangeSet {
	return ChangeSet{cookie: cfg.Cookie, log: cfg.Logger}
}

// Add records that path changed at now with the given flags.
//
// If path is already pending, the flags are consolidated into the
// existing entry. If a recursive entry higher in the tree already
// covers path, the notification is discarded as redundant. Otherwise a
// new entry is created, any finer-grained entries it obsoletes are
// pruned, and it is pushed onto the head of the list.
//
// Cookie paths (see [WithCookiePredicate]) are never discarded or
// pruned: the consumer must observe them individually.
func (s *ChangeSet) Add(path string, now time.Time, flags PendingFlags) {
	if existing := s.tree.search(path); existing != nil {
		s.consolidate(existing, flags)

		return
	}

	if s.obsoletedByContainingDir(path) {
		return
	}

	s.maybePruneObsoletedChildren(path, flags)

	if s.log != nil {
		s.log.Debug("pending: add",
			slog.String("path", path),
			slog.String("flags", flags.String()))
	}

	p := &PendingChange{Path: path, ObservedAt: now, Flags: flags}
	s.tree.insert(path, p)
	s.linkHead(p)
}

// consolidate strengthens an existing entry with new flags and, if the
// merged entry is now recursive, prunes children it covers.
func (s *ChangeSet) consolidate(p *PendingChange, flags PendingFlags) {
	p.Flags |= flags

	s.maybePruneObsoletedChildren(p.Path, p.Flags)
}

// obsoletedByContainingDir reports whether an entry higher in the tree
// is recursive and truly contains path, making a new entry for path
// redundant. Cookie paths are never obsoleted.
func (s *ChangeSet) obsoletedByContainingDir(path string) bool {
	ancestor := s.tree.longestMatch(path)
	if ancestor == nil {
		return false
	}

	if !ancestor.Flags.Has(PendingRecursive) || !isPathPrefix(ancestor.Path, path) {
		return false
	}

	if s.isCookie(path) {
		return false
	}

	if s.log != nil {
		s.log.Debug("pending: skip, obsoleted by containing dir",
			slog.String("path", path),
			slog.String("ancestor", ancestor.Path))
	}

	return true
}

// maybePruneObsoletedChildren removes entries strictly below path that
// a recursive entry for path makes redundant.
//
// Pruning fires only when flags are recursive and NOT crawl-only: a
// crawl-only recursive entry indicates a stat-and-crawl pass already
// in flight, and re-pruning behind it would only cause churn. Entries
// that are themselves crawl-only, and cookie paths, are never pruned.
func (s *ChangeSet) maybePruneObsoletedChildren(path string, flags PendingFlags) {
	if flags&(PendingRecursive|PendingCrawlOnly) != PendingRecursive {
		return
	}

	pruned := 0

	// Each deletion invalidates the prefix scan, so the visitor aborts
	// after every removal and the scan restarts until a full pass
	// deletes nothing.
	for s.tree.iterPrefix(path, func(key string, p *PendingChange) bool {
		if p.Flags.Has(PendingCrawlOnly) || len(key) <= len(path) {
			return false
		}

		if !isPathPrefix(path, key) || s.isCookie(p.Path) {
			return false
		}

		if p.Path != key {
			panic("watchman: pending index key does not match entry path")
		}

		s.unlink(p)
		s.tree.erase(key)
		pruned++

		return true
	}) {
	}

	if pruned > 0 && s.log != nil {
		s.log.Debug("pending: pruned obsoleted children",
			slog.String("path", path),
			slog.Int("pruned", pruned))
	}
}

// Append drains src and re-applies its entries to s one at a time in
// list order, with the same consolidate / discard / insert-and-prune
// logic as Add. The caller must have exclusive access to both sets for
// the duration.
func (s *ChangeSet) Append(src *ChangeSet) {
	p := src.StealItems()

	for p != nil {
		next := p.next

		if existing := s.tree.search(p.Path); existing != nil {
			s.consolidate(existing, p.Flags)
		} else if !s.obsoletedByContainingDir(p.Path) {
			s.maybePruneObsoletedChildren(p.Path, p.Flags)

			p.next = nil
			p.prev = nil
			s.tree.insert(p.Path, p)
			s.linkHead(p)
		}

		p = next
	}
}

// StealItems transfers ownership of the entire pending chain to the
// caller and leaves the set empty. The returned head is the most
// recently added entry; walk with [PendingChange.Next].
func (s *ChangeSet) StealItems() *PendingChange {
	head := s.head
	s.head = nil
	s.tree.clear()

	return head
}

// Drain discards all pending entries without destroying the set.
func (s *ChangeSet) Drain() {
	s.head = nil
	s.tree.clear()
}

// Size returns the number of unique pending paths.
func (s *ChangeSet) Size() int {
	return s.tree.size()
}

func (s *ChangeSet) isCookie(path string) bool {
	return s.cookie != nil && s.cookie(path)
}

// linkHead pushes p onto the head of the list.
func (s *ChangeSet) linkHead(p *PendingChange) {
	p.prev = nil
	p.next = s.head

	if p.next != nil {
		p.next.prev = p
	}

	s.head = p
}

// unlink removes p from the list in O(1), from any position.
func (s *ChangeSet) unlink(p *PendingChange) {
	if s.head == p {
		s.head = p.next
	}

	if p.prev != nil {
		p.prev.next = p.next
	}

	if p.next != nil {
		p.next.prev = p.prev
	}

	p.next = nil
	p.prev = nil
}
