package timer

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestManager_ScheduleFires(t *testing.T) {
	m := NewManager()
	defer m.Close()

	fired := make(chan struct{})
	m.Schedule(50*time.Millisecond, func() {
		close(fired)
	})

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("Scheduled callback did not fire")
	}
}

func TestManager_FiresExactlyOnce(t *testing.T) {
	m := NewManager()
	defer m.Close()

	var count int32
	m.Schedule(50*time.Millisecond, func() {
		atomic.AddInt32(&count, 1)
	})

	time.Sleep(400 * time.Millisecond)
	if got := atomic.LoadInt32(&count); got != 1 {
		t.Fatalf("Expected exactly one firing, got %d", got)
	}
}

func TestManager_CancelPreventsFire(t *testing.T) {
	m := NewManager()
	defer m.Close()

	var fired int32
	id := m.Schedule(100*time.Millisecond, func() {
		atomic.AddInt32(&fired, 1)
	})

	if !m.Cancel(id) {
		t.Fatal("Cancel of a pending deadline should return true")
	}
	if m.Cancel(id) {
		t.Error("Second cancel of the same deadline should return false")
	}

	time.Sleep(300 * time.Millisecond)
	if atomic.LoadInt32(&fired) != 0 {
		t.Fatal("Cancelled callback must not fire")
	}
}

func TestManager_CancelAfterFire(t *testing.T) {
	m := NewManager()
	defer m.Close()

	fired := make(chan struct{})
	id := m.Schedule(30*time.Millisecond, func() {
		close(fired)
	})

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("Callback did not fire")
	}
	if m.Cancel(id) {
		t.Error("Cancel after firing should return false")
	}
}

func TestManager_OrderIndependentScheduling(t *testing.T) {
	m := NewManager()
	defer m.Close()

	order := make(chan string, 2)
	m.Schedule(200*time.Millisecond, func() { order <- "late" })
	m.Schedule(50*time.Millisecond, func() { order <- "early" })

	first := <-order
	if first != "early" {
		t.Fatalf("Expected the earlier deadline to fire first, got %q", first)
	}
}
