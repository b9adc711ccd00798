package watchman

import (
	"sync"
	"time"
)

// NoTimeout makes [PendingCollection.LockAndWait] block until pinged,
// with no deadline. Any negative duration behaves the same.
const NoTimeout time.Duration = -1

// PendingCollection guards a [ChangeSet] behind a single lock and adds
// the wait/notify monitor used by producers and consumers. The lock,
// condition, pinged flag, and data all live in this one type; the set
// is only ever reached through a scoped [LockedCollection] view.
type PendingCollection struct {
	mu     sync.Mutex
	cond   *sync.Cond
	pinged bool
	set    ChangeSet
}

// NewPendingCollection returns an empty collection.
func NewPendingCollection(opts ...Option) *PendingCollection {
	cfg := applyOptions(opts)

	c := &PendingCollection{set: newChangeSet(cfg)}
	c.cond = sync.NewCond(&c.mu)

	return c
}

// LockedCollection is a scoped view over a locked PendingCollection.
// All operations run under the collection's lock; the view is invalid
// after Unlock and must not be retained.
type LockedCollection struct {
	c *PendingCollection
}

// Lock acquires the collection's lock and returns the view. The caller
// must call [LockedCollection.Unlock].
func (c *PendingCollection) Lock() *LockedCollection {
	c.mu.Lock()

	return &LockedCollection{c: c}
}

// Ping sets the pinged flag and wakes every waiter. Broadcast rather
// than single-wake: multiple consumers or timeout-driven callers may
// be blocked at once, and all must re-check state.
func (c *PendingCollection) Ping() {
	c.mu.Lock()
	c.pinged = true
	c.mu.Unlock()

	c.cond.Broadcast()
}

// LockAndWait blocks until there is work or the timeout elapses, then
// returns a locked view and whether work was signaled.
//
// If work is already pending (or a Ping arrived before the call), it
// returns immediately with pinged == true; this pre-check closes the
// race where a producer signals just before the consumer starts
// waiting. Pass [NoTimeout] to wait indefinitely. On a timeout the
// view is returned with pinged == false so the caller can re-check
// external shutdown conditions.
//
// The returned view holds the lock in every case; the caller must
// Unlock it.
func (c *PendingCollection) LockAndWait(timeout time.Duration) (*LockedCollection, bool) {
	c.mu.Lock()
	view := &LockedCollection{c: c}

	if c.checkAndResetPinged() {
		return view, true
	}

	if timeout < 0 {
		c.cond.Wait()
	} else {
		// sync.Cond has no timed wait: a one-shot timer broadcast
		// bounds the block. The timer takes the lock first so it
		// cannot broadcast before Wait has enqueued this waiter (the
		// lock is held from the pre-check until Wait releases it). A
		// waiter woken by another caller's timer returns early with
		// pinged == false, which the contract already requires callers
		// to handle.
		timer := time.AfterFunc(timeout, func() {
			c.mu.Lock()
			defer c.mu.Unlock()

			c.cond.Broadcast()
		})
		c.cond.Wait()
		timer.Stop()
	}

	// Wakeups are not attributed: whether this was a ping or a timer,
	// recompute and return with the lock held.
	return view, c.checkAndResetPinged()
}

// checkAndResetPinged reports whether the list is non-empty or a ping
// arrived, clearing the flag as a side effect. Caller holds the lock.
func (c *PendingCollection) checkAndResetPinged() bool {
	if c.set.head != nil || c.pinged {
		c.pinged = false

		return true
	}

	return false
}

// Add records a change; see [ChangeSet.Add].
func (l *LockedCollection) Add(path string, now time.Time, flags PendingFlags) {
	l.c.set.Add(path, now, flags)
}

// Append drains src into the collection; see [ChangeSet.Append]. src
// must be private to the caller.
func (l *LockedCollection) Append(src *ChangeSet) {
	l.c.set.Append(src)
}

// StealItems atomically takes the whole pending chain and leaves the
// collection empty; see [ChangeSet.StealItems].
func (l *LockedCollection) StealItems() *PendingChange {
	return l.c.set.StealItems()
}

// Drain discards all pending entries.
func (l *LockedCollection) Drain() {
	l.c.set.Drain()
}

// Size returns the number of unique pending paths.
func (l *LockedCollection) Size() int {
	return l.c.set.Size()
}

// CheckAndResetPinged reports whether there is work or an explicit
// wake signal, clearing the signal.
func (l *LockedCollection) CheckAndResetPinged() bool {
	return l.c.checkAndResetPinged()
}

// Unlock releases the collection's lock. The view must not be used
// afterwards.
func (l *LockedCollection) Unlock() {
	l.c.mu.Unlock()
}
