package socket_test

import (
	"net"
	"sync"
	"testing"
	"time"

	"reactornet/internal/ratelimit"
	"reactornet/internal/socket"
)

// TestDatagramLoopback exercises spec.md §8 scenario 6 in one
// direction: two sockets opened on the wildcard address, one sends 10
// messages of 32 bytes to the other, which receives all 10 with the
// sender's port as their source.
func TestDatagramLoopback(t *testing.T) {
	a := socket.New(socket.TransportUDPv4, nil)
	b := socket.New(socket.TransportUDPv4, nil)
	if err := a.Open(); err != nil {
		t.Fatalf("a.Open: %v", err)
	}
	if err := b.Open(); err != nil {
		t.Fatalf("b.Open: %v", err)
	}
	defer a.Close(nil)
	defer b.Close(nil)

	aAddr := a.LocalAddr().(*net.UDPAddr)
	bAddr := b.LocalAddr().(*net.UDPAddr)

	const n = 10
	payload := make([]byte, 32)
	for i := range payload {
		payload[i] = byte(i)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			b.OnReadable()
		}
	}()

	for i := 0; i < n; i++ {
		done := make(chan struct{})
		if err := a.Send(payload, bAddr, socket.Options{}, func(_ int, err error) {
			if err != nil {
				t.Errorf("send completion error: %v", err)
			}
			close(done)
		}); err != nil {
			t.Fatalf("Send: %v", err)
		}
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("send did not complete")
		}
	}

	wg.Wait()

	for i := 0; i < n; i++ {
		dg, err := b.Receive()
		if err != nil {
			t.Fatalf("Receive[%d]: %v", i, err)
		}
		if len(dg.Payload) != 32 {
			t.Fatalf("payload len = %d, want 32", len(dg.Payload))
		}
		src := dg.Source.(*net.UDPAddr)
		if src.Port != aAddr.Port {
			t.Fatalf("source port = %d, want %d", src.Port, aAddr.Port)
		}
	}
}

func TestSendAfterCloseIsInvalid(t *testing.T) {
	s := socket.New(socket.TransportUDPv4, nil)
	if err := s.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	done := make(chan struct{})
	s.Close(func() { close(done) })
	<-done

	err := s.Send([]byte("x"), &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 9}, socket.Options{}, nil)
	if err == nil {
		t.Fatal("expected Send after Close to fail")
	}
}

// TestSendRateLimitedQueuesThenDrainsOnTimerExpiry exercises spec.md
// §4.2's rate-limit backpressure cycle: a send that would exceed the
// limiter is queued instead of written directly, and the estimated
// replenishment timer eventually relaxes the limit and drains it
// without the caller doing anything further.
func TestSendRateLimitedQueuesThenDrainsOnTimerExpiry(t *testing.T) {
	a := socket.New(socket.TransportUDPv4, nil)
	b := socket.New(socket.TransportUDPv4, nil)
	if err := a.Open(); err != nil {
		t.Fatalf("a.Open: %v", err)
	}
	if err := b.Open(); err != nil {
		t.Fatalf("b.Open: %v", err)
	}
	defer a.Close(nil)
	defer b.Close(nil)

	bAddr := b.LocalAddr().(*net.UDPAddr)

	// Burst 0 keeps the bucket empty, so even the first send is queued;
	// the replenishment timer (20 bytes at 1000/sec: 20ms) then relaxes
	// the rate-limit reason and drains the queue.
	a.SetSendRateLimiter(ratelimit.New(1000, 0, 0))

	payload := []byte("rate-limited payload")
	done := make(chan error, 1)
	if err := a.Send(payload, bAddr, socket.Options{}, func(_ int, err error) {
		done <- err
	}); err != nil {
		t.Fatalf("Send: %v", err)
	}

	readDone := make(chan struct{})
	go func() {
		b.OnReadable()
		close(readDone)
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("send completion error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("rate-limited send never completed")
	}

	select {
	case <-readDone:
	case <-time.After(2 * time.Second):
		t.Fatal("receiver never observed the datagram")
	}

	dg, err := b.Receive()
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if string(dg.Payload) != string(payload) {
		t.Fatalf("payload = %q, want %q", dg.Payload, payload)
	}
}

func TestCancelUnknownIDIsNotFound(t *testing.T) {
	s := socket.New(socket.TransportUDPv4, nil)
	if err := s.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close(nil)

	if err := s.Cancel(9999); err == nil {
		t.Fatal("expected Cancel of an unknown id to fail")
	}
}
