// Package watchman implements the pending-change accumulator at the
// heart of a filesystem-watching service.
//
// Raw change notifications (from OS watch APIs or recursive crawls)
// are fed into a [PendingCollection], which deduplicates them by path,
// consolidates repeated notifications for the same path, and prunes
// notifications that become redundant once a broader recursive change
// is known. A consumer blocks in [PendingCollection.LockAndWait] and
// atomically takes ownership of everything accumulated so far via
// [LockedCollection.StealItems].
//
// # Consolidation and pruning
//
// Each pending path has exactly one entry. Adding a path that is
// already pending ORs the new flags into the existing entry. Adding a
// path beneath an already-pending recursive entry is discarded as
// redundant. Adding a recursive entry prunes finer-grained entries
// beneath it. Synchronization-cookie paths (see [WithCookiePredicate])
// are exempt from both forms of suppression: cookies are liveness
// signals and must always be observed individually.
//
// # Producers and consumers
//
// All mutation happens under one lock per collection. Producers call
// [LockedCollection.Add] directly, or build a private [ChangeSet]
// outside the lock and merge it with [LockedCollection.Append].
// Consumers block in [PendingCollection.LockAndWait] until
// [PendingCollection.Ping] wakes them or the timeout elapses, then
// drain with [LockedCollection.StealItems]. The stolen chain is in
// LIFO order: the most recently added entry is first.
//
// # Feeding from the OS
//
// [NotifySource] is a ready-made producer that pumps fsnotify events
// into a collection, tagging entries with [PendingViaNotify] and
// scheduling recursive crawls for newly created directories.
//
// This package performs no I/O in the collection itself and makes no
// decisions about how a drained entry is processed; that belongs to
// the consumer.
package watchman
