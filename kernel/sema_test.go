package kernel

import (
	"errors"
	"testing"

	"minos/trace"
)

func TestSemaphoreCountWithoutBlocking(t *testing.T) {
	k, _ := newTestKernel(t, testConfig(noTicks))
	var s Semaphore
	k.InitSemaphore(&s, 3)

	var counts []int32
	body := func() {
		k.Wait(&s)
		k.Wait(&s)
		counts = append(counts, k.Count(&s))
		k.Signal(&s)
		counts = append(counts, k.Count(&s))
		k.Wait(&s)
		k.Wait(&s)
		counts = append(counts, k.Count(&s))
		k.Core().Halt(nil)
	}
	if err := k.AddThreads(body, yielder(k)); err != nil {
		t.Fatalf("AddThreads: %v", err)
	}
	if err := launch(t, k); err != nil {
		t.Fatalf("Launch: %v", err)
	}
	want := []int32{1, 2, 0}
	for i := range want {
		if counts[i] != want[i] {
			t.Fatalf("counts = %v, want %v", counts, want)
		}
	}
}

func TestWaitBlocksAndSignalWakesOne(t *testing.T) {
	k, rec := newTestKernel(t, testConfig(noTicks))
	var s Semaphore
	k.InitSemaphore(&s, 0)

	var (
		order        []uint8
		countBefore  int32
		blockedAt    [2]*Semaphore
		countAfter   int32
		blockedAfter [2]*Semaphore
	)
	waiter := func(id uint8) Entry {
		return func() {
			k.Wait(&s)
			order = append(order, id)
			for {
				k.Suspend()
			}
		}
	}
	signaller := func() {
		countBefore = k.Count(&s)
		blockedAt = [2]*Semaphore{k.BlockedOn(0), k.BlockedOn(1)}

		k.Signal(&s)
		countAfter = k.Count(&s)
		blockedAfter = [2]*Semaphore{k.BlockedOn(0), k.BlockedOn(1)}

		k.Signal(&s)
		for len(order) < 2 {
			k.Suspend()
		}
		k.Core().Halt(nil)
	}
	if err := k.AddThreads(waiter(0), waiter(1), signaller); err != nil {
		t.Fatalf("AddThreads: %v", err)
	}
	if err := launch(t, k); err != nil {
		t.Fatalf("Launch: %v", err)
	}

	if countBefore != -2 || blockedAt[0] != &s || blockedAt[1] != &s {
		t.Fatalf("before signal: count %d, blocked %v", countBefore, blockedAt)
	}
	if countAfter != -1 || blockedAfter[0] != nil || blockedAfter[1] != &s {
		t.Fatalf("after one signal: count %d, blocked %v", countAfter, blockedAfter)
	}
	if len(order) != 2 || order[0] != 0 || order[1] != 1 {
		t.Fatalf("wake order = %v, want [0 1]", order)
	}
	if got := k.Count(&s); got != 0 {
		t.Fatalf("final count = %d, want 0", got)
	}

	blocks := rec.Filter(trace.Block)
	wakes := rec.Filter(trace.Wake)
	if len(blocks) != 2 || len(wakes) != 2 {
		t.Fatalf("blocks %d wakes %d, want 2 and 2", len(blocks), len(wakes))
	}
	if wakes[0].Thread != 0 || wakes[0].Other != 2 || wakes[0].Sem != s.TraceID() {
		t.Fatalf("first wake = %+v", wakes[0])
	}
}

// A signal wakes the first waiter after the signaller in ring order, not the
// one that has waited longest.
func TestSignalWakesInRingOrder(t *testing.T) {
	k, _ := newTestKernel(t, testConfig(noTicks))
	var gate, s Semaphore
	k.InitSemaphore(&gate, 0)
	k.InitSemaphore(&s, 0)

	var (
		order   []uint8
		blocked [2]*Semaphore
	)
	t0 := func() {
		k.Wait(&gate)
		k.Wait(&s)
		order = append(order, 0)
		for {
			k.Suspend()
		}
	}
	t1 := func() {
		k.Wait(&s)
		order = append(order, 1)
		for {
			k.Suspend()
		}
	}
	t2 := func() {
		k.Signal(&gate)
		for k.BlockedOn(0) != &s {
			k.Suspend()
		}
		k.Signal(&s)
		blocked = [2]*Semaphore{k.BlockedOn(0), k.BlockedOn(1)}
		k.Signal(&s)
		for len(order) < 2 {
			k.Suspend()
		}
		k.Core().Halt(nil)
	}
	if err := k.AddThreads(t0, t1, t2); err != nil {
		t.Fatalf("AddThreads: %v", err)
	}
	if err := launch(t, k); err != nil {
		t.Fatalf("Launch: %v", err)
	}
	if blocked[0] != nil || blocked[1] != &s {
		t.Fatalf("after first signal blocked = %v, want thread 0 woken first", blocked)
	}
	if order[0] != 0 || order[1] != 1 {
		t.Fatalf("order = %v", order)
	}
}

func TestWaitersMatchNegativeCount(t *testing.T) {
	k, _ := newTestKernel(t, testConfig(40))
	var s Semaphore
	k.InitSemaphore(&s, 1)

	type sample struct {
		count   int32
		waiters int
	}
	var samples []sample
	worker := func() {
		for {
			k.Wait(&s)
			k.Core().Burn(25)
			k.Signal(&s)
			k.Core().Burn(3)
		}
	}
	observer := func() {
		for len(samples) < 200 {
			var smp sample
			k.locked(func(st *state) {
				smp.count = s.count
				for i := uint8(0); i < st.count; i++ {
					if st.tcbs[i].blocked == &s {
						smp.waiters++
					}
				}
			})
			samples = append(samples, smp)
			k.Core().Burn(7)
		}
		k.Core().Halt(nil)
	}
	if err := k.AddThreads(worker, worker, worker, observer); err != nil {
		t.Fatalf("AddThreads: %v", err)
	}
	if err := launch(t, k); err != nil {
		t.Fatalf("Launch: %v", err)
	}

	sawWaiters := false
	for i, smp := range samples {
		want := 0
		if smp.count < 0 {
			want = int(-smp.count)
			sawWaiters = true
		}
		if smp.waiters != want {
			t.Fatalf("sample %d: count %d with %d waiters", i, smp.count, smp.waiters)
		}
	}
	if !sawWaiters {
		t.Fatal("workers never contended")
	}
}

func TestSignalWithoutWaiterIsFatal(t *testing.T) {
	k, _ := newTestKernel(t, testConfig(noTicks))
	var s Semaphore
	k.InitSemaphore(&s, -1)

	if err := k.AddThreads(func() { k.Signal(&s) }, yielder(k)); err != nil {
		t.Fatalf("AddThreads: %v", err)
	}
	err := launch(t, k)
	if !errors.Is(err, ErrNoWaiter) {
		t.Fatalf("Launch error = %v, want ErrNoWaiter", err)
	}
	var fault *ThreadFault
	if !errors.As(err, &fault) || fault.Thread != 0 {
		t.Fatalf("Launch error = %v, want fault on thread 0", err)
	}
}

func TestAllThreadsBlockedIsFatal(t *testing.T) {
	k, _ := newTestKernel(t, testConfig(noTicks))
	var s Semaphore
	k.InitSemaphore(&s, 0)

	wait := func() { k.Wait(&s) }
	if err := k.AddThreads(wait, wait); err != nil {
		t.Fatalf("AddThreads: %v", err)
	}
	if err := launch(t, k); !errors.Is(err, ErrAllBlocked) {
		t.Fatalf("Launch error = %v, want ErrAllBlocked", err)
	}
}

func TestSemaphoresRegistry(t *testing.T) {
	k, _ := newTestKernel(t, testConfig(noTicks))
	user := Semaphore{Name: "user"}
	k.InitSemaphore(&user, 2)
	k.InitSemaphore(&user, 0)

	want := []string{"mail.send", "mail.ack", "fifo.size", "fifo.room", "fifo.mutex", "user"}
	got := k.Semaphores()
	if len(got) != len(want) {
		t.Fatalf("Semaphores() = %v", got)
	}
	for i, s := range got {
		if s.String() != want[i] || s.TraceID() != uint8(i+1) {
			t.Fatalf("semaphore %d = %v id %d, want %s id %d", i, s, s.TraceID(), want[i], i+1)
		}
	}
	if k.Count(&user) != 0 {
		t.Fatalf("re-init count = %d, want 0", k.Count(&user))
	}
}
