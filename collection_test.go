package watchman_test

import (
	"testing"
	"time"

	"github.com/ZhongRuoyu/watchman"
)

const waitDeadline = 5 * time.Second

func Test_LockAndWait_Returns_Immediately_When_Pinged_Before_Waiting(t *testing.T) {
	t.Parallel()

	col := watchman.NewPendingCollection()
	col.Ping()

	start := time.Now()
	view, pinged := col.LockAndWait(waitDeadline)
	defer view.Unlock()

	if !pinged {
		t.Fatal("expected pinged = true after a ping")
	}

	if elapsed := time.Since(start); elapsed > waitDeadline/2 {
		t.Fatalf("expected a prompt return, blocked for %v", elapsed)
	}
}

func Test_LockAndWait_Returns_Immediately_When_Work_Added_Before_Waiting(t *testing.T) {
	t.Parallel()

	col := watchman.NewPendingCollection()

	view := col.Lock()
	view.Add("/a", time.Now(), watchman.PendingViaNotify)
	view.Unlock()

	// No explicit ping: pending work alone must satisfy the pre-check.
	view, pinged := col.LockAndWait(waitDeadline)
	defer view.Unlock()

	if !pinged {
		t.Fatal("expected pinged = true when work is already pending")
	}

	if view.Size() != 1 {
		t.Fatalf("expected the pending entry to be visible, size = %d", view.Size())
	}
}

func Test_LockAndWait_Times_Out_When_No_Work_Arrives(t *testing.T) {
	t.Parallel()

	col := watchman.NewPendingCollection()

	timeout := 20 * time.Millisecond
	start := time.Now()
	view, pinged := col.LockAndWait(timeout)
	defer view.Unlock()

	if pinged {
		t.Fatal("expected pinged = false on timeout")
	}

	if view.Size() != 0 {
		t.Fatalf("expected no work after timeout, size = %d", view.Size())
	}

	if elapsed := time.Since(start); elapsed < timeout {
		t.Fatalf("returned after %v, before the %v timeout", elapsed, timeout)
	}
}

func Test_LockAndWait_Wakes_When_Pinged_While_Blocked(t *testing.T) {
	t.Parallel()

	col := watchman.NewPendingCollection()

	done := make(chan bool, 1)

	go func() {
		view, pinged := col.LockAndWait(watchman.NoTimeout)
		view.Unlock()
		done <- pinged
	}()

	// Give the waiter a moment to block, then wake it. If it has not
	// blocked yet, the pre-check still observes the ping.
	time.Sleep(10 * time.Millisecond)
	col.Ping()

	select {
	case pinged := <-done:
		if !pinged {
			t.Fatal("expected pinged = true after an explicit ping")
		}
	case <-time.After(waitDeadline):
		t.Fatal("waiter never woke up")
	}
}

func Test_Ping_Wakes_All_Waiters(t *testing.T) {
	t.Parallel()

	col := watchman.NewPendingCollection()

	const waiters = 3

	done := make(chan bool, waiters)

	for i := 0; i < waiters; i++ {
		go func() {
			view, pinged := col.LockAndWait(watchman.NoTimeout)
			view.Unlock()
			done <- pinged
		}()
	}

	time.Sleep(10 * time.Millisecond)
	col.Ping()

	// One ping must unblock every already-blocked waiter; only the
	// first to reacquire the lock consumes the flag. Re-ping on a slow
	// path in case a waiter was not yet blocked when the ping fired.
	sawPinged := 0
	deadline := time.After(waitDeadline)

	for woken := 0; woken < waiters; {
		select {
		case pinged := <-done:
			if pinged {
				sawPinged++
			}

			woken++
		case <-time.After(50 * time.Millisecond):
			col.Ping()
		case <-deadline:
			t.Fatalf("only %d of %d waiters woke up", woken, waiters)
		}
	}

	if sawPinged == 0 {
		t.Fatal("expected at least one waiter to consume the ping")
	}
}

func Test_CheckAndResetPinged_Clears_Signal_After_Steal(t *testing.T) {
	t.Parallel()

	col := watchman.NewPendingCollection()

	view := col.Lock()
	view.Add("/x", time.Now(), watchman.PendingViaNotify)
	view.Add("/y", time.Now(), watchman.PendingViaNotify)

	if !view.CheckAndResetPinged() {
		t.Fatal("expected work to be reported")
	}

	head := view.StealItems()
	if head == nil || head.Path != "/y" {
		t.Fatalf("expected LIFO head /y, got %v", head)
	}

	if view.Size() != 0 {
		t.Fatalf("expected empty collection after steal, size = %d", view.Size())
	}

	// Drained and no explicit ping: no work to report.
	if view.CheckAndResetPinged() {
		t.Fatal("expected no signal after draining")
	}

	view.Unlock()
}

func Test_LockAndWait_Sees_Work_Added_By_Concurrent_Producer(t *testing.T) {
	t.Parallel()

	col := watchman.NewPendingCollection()

	go func() {
		time.Sleep(10 * time.Millisecond)

		view := col.Lock()
		view.Add("/produced", time.Now(), watchman.PendingViaNotify)
		view.Unlock()

		col.Ping()
	}()

	view, pinged := col.LockAndWait(waitDeadline)
	defer view.Unlock()

	if !pinged {
		t.Fatal("expected pinged = true once the producer signaled")
	}

	head := view.StealItems()
	if head == nil || head.Path != "/produced" {
		t.Fatalf("expected the produced entry, got %v", head)
	}
}
