package reactor_test

import (
	"sync"
	"testing"
	"time"

	"reactornet/internal/reactor"
)

func TestStrandRunsSerially(t *testing.T) {
	s := reactor.NewStrand()
	var mu sync.Mutex
	var order []int32

	const n = 50
	done := make(chan struct{})
	for i := 0; i < n; i++ {
		i := i
		s.Post(func() {
			mu.Lock()
			order = append(order, int32(i))
			count := len(order)
			mu.Unlock()
			if count == n {
				close(done)
			}
		})
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("strand did not drain in time")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(order) != n {
		t.Fatalf("ran %d callbacks, want %d", len(order), n)
	}
	for i, v := range order {
		if v != int32(i) {
			t.Fatalf("order[%d] = %d, want %d (strand must preserve FIFO order)", i, v, i)
		}
	}
}
