package state

import (
	"sync"
	"testing"
)

func TestProvider_SameHandleConcurrently(t *testing.T) {
	graph, behaviors := buildDefault(t)
	p := NewProvider(graph, behaviors)

	const goroutines = 32
	machines := make([]*Machine, goroutines)
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		i := i
		go func() {
			defer wg.Done()
			machines[i] = p.GetOrCreate("s1")
		}()
	}
	wg.Wait()

	for i := 1; i < goroutines; i++ {
		if machines[i] != machines[0] {
			t.Fatal("Concurrent GetOrCreate must return the same machine instance")
		}
	}
	if p.Count() != 1 {
		t.Fatalf("Expected 1 live machine, got %d", p.Count())
	}
}

func TestProvider_Release(t *testing.T) {
	graph, behaviors := buildDefault(t)
	p := NewProvider(graph, behaviors)

	p.GetOrCreate("s1")
	if _, exists := p.Get("s1"); !exists {
		t.Fatal("Get should find the created machine")
	}

	p.Release("s1")
	if _, exists := p.Get("s1"); exists {
		t.Fatal("Get should not find the released machine")
	}
	// A new session id reuse starts fresh.
	if m := p.GetOrCreate("s1"); m.Current() != PhaseNotStarted {
		t.Fatalf("Recreated machine must start in %s, got %s", PhaseNotStarted, m.Current())
	}
}
