package sockqueue_test

import (
	"testing"
	"time"

	"reactornet/internal/sockqueue"
	"reactornet/nterr"
)

func TestSendQueuePriorityThenFIFO(t *testing.T) {
	q := sockqueue.NewSendQueue(0, 100)

	q.Push(&sockqueue.SendEntry{Priority: sockqueue.PriorityLow, Payload: []byte("low1")}, nil)
	q.Push(&sockqueue.SendEntry{Priority: sockqueue.PriorityHigh, Payload: []byte("high1")}, nil)
	q.Push(&sockqueue.SendEntry{Priority: sockqueue.PriorityLow, Payload: []byte("low2")}, nil)
	q.Push(&sockqueue.SendEntry{Priority: sockqueue.PriorityHigh, Payload: []byte("high2")}, nil)

	order := []string{}
	for q.Len() > 0 {
		e, _ := q.Pop()
		order = append(order, string(e.Payload))
	}
	want := []string{"high1", "high2", "low1", "low2"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestSendQueueWatermarkAlternation(t *testing.T) {
	q := sockqueue.NewSendQueue(1, 3)

	var crossedHigh bool
	for i := 0; i < 3; i++ {
		crossedHigh = q.Push(&sockqueue.SendEntry{}, nil)
	}
	if !crossedHigh {
		t.Fatal("expected the third push to cross the high watermark")
	}

	_, crossedLow := q.Pop()
	if crossedLow {
		t.Fatal("did not expect low watermark crossing yet")
	}
	_, crossedLow = q.Pop()
	if !crossedLow {
		t.Fatal("expected popping down to the low watermark to report it")
	}
}

func TestSendQueueCancelNotFound(t *testing.T) {
	q := sockqueue.NewSendQueue(0, 10)
	if _, err := q.Cancel(999); !nterr.Is(err, nterr.NotFound) {
		t.Fatalf("Cancel = %v, want NotFound", err)
	}
}

func TestSendQueueCancelRemovesEntry(t *testing.T) {
	q := sockqueue.NewSendQueue(0, 10)
	e := &sockqueue.SendEntry{Payload: []byte("x")}
	q.Push(e, nil)
	if _, err := q.Cancel(e.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if q.Len() != 0 {
		t.Fatalf("Len = %d, want 0", q.Len())
	}
}

func TestReceiveQueueBufferThenDrain(t *testing.T) {
	q := sockqueue.NewReceiveQueue(1, 3)

	q.Deliver(sockqueue.Datagram{Payload: []byte("a")})
	q.Deliver(sockqueue.Datagram{Payload: []byte("b")})

	dg, _, err := q.TryReceive()
	if err != nil {
		t.Fatalf("TryReceive: %v", err)
	}
	if string(dg.Payload) != "a" {
		t.Fatalf("got %q, want a (FIFO order)", dg.Payload)
	}
}

func TestReceiveQueuePendingSatisfiedOnDeliver(t *testing.T) {
	q := sockqueue.NewReceiveQueue(0, 10)

	got := make(chan sockqueue.Datagram, 1)
	q.QueueReceive(&sockqueue.PendingReceive{
		Token: "t1",
		Completion: func(dg sockqueue.Datagram, err error) {
			got <- dg
		},
	}, nil)

	q.Deliver(sockqueue.Datagram{Payload: []byte("hello")})

	select {
	case dg := <-got:
		if string(dg.Payload) != "hello" {
			t.Fatalf("payload = %q", dg.Payload)
		}
	case <-time.After(time.Second):
		t.Fatal("pending receive was not satisfied")
	}
}

func TestReceiveQueueCancelPending(t *testing.T) {
	q := sockqueue.NewReceiveQueue(0, 10)
	q.QueueReceive(&sockqueue.PendingReceive{Token: "t1", Completion: func(sockqueue.Datagram, error) {}}, nil)

	if _, err := q.CancelPending("t1"); err != nil {
		t.Fatalf("CancelPending: %v", err)
	}
	if _, err := q.CancelPending("t1"); !nterr.Is(err, nterr.NotFound) {
		t.Fatalf("second CancelPending = %v, want NotFound", err)
	}
}
