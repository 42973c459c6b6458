package bytequeue_test

import (
	"bytes"
	"strings"
	"testing"

	"reactornet/internal/bytequeue"
)

func TestAppendPopRoundTrip(t *testing.T) {
	q := bytequeue.New(4) // tiny buffers to force chaining
	q.Append([]byte("hello "))
	q.Append([]byte("world"))

	if got := q.Length(); got != 11 {
		t.Fatalf("Length() = %d, want 11", got)
	}

	got := q.Pop(11)
	if !bytes.Equal(got, []byte("hello world")) {
		t.Fatalf("Pop(11) = %q, want %q", got, "hello world")
	}
	if q.Length() != 0 {
		t.Fatalf("Length() after full pop = %d, want 0", q.Length())
	}
}

func TestPartialPop(t *testing.T) {
	q := bytequeue.New(4)
	q.Append([]byte("abcdefgh"))

	first := q.Pop(3)
	if string(first) != "abc" {
		t.Fatalf("first pop = %q, want %q", first, "abc")
	}
	rest := q.Pop(5)
	if string(rest) != "defgh" {
		t.Fatalf("second pop = %q, want %q", rest, "defgh")
	}
}

func TestPopTooManyPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic popping more than queued")
		}
	}()
	q := bytequeue.New(4)
	q.Append([]byte("ab"))
	q.Pop(3)
}

func TestPeek(t *testing.T) {
	q := bytequeue.New(4)
	q.Append([]byte("abcdefgh"))
	for i, want := range []byte("abcdefgh") {
		if got := q.Peek(i); got != want {
			t.Fatalf("Peek(%d) = %q, want %q", i, got, want)
		}
	}
}

func TestPeekContiguousStraddlesBoundary(t *testing.T) {
	q := bytequeue.New(4)
	q.Append([]byte("abcd"))
	q.Append([]byte("efgh"))

	if view, ok := q.PeekContiguous(0, 4); !ok || string(view) != "abcd" {
		t.Fatalf("PeekContiguous(0,4) = %q,%v, want \"abcd\",true", view, ok)
	}
	if _, ok := q.PeekContiguous(2, 4); ok {
		t.Fatal("PeekContiguous(2,4) should straddle a buffer boundary and fail")
	}
}

func TestAppendFrom(t *testing.T) {
	q := bytequeue.New(4)
	r := strings.NewReader("some longer input than one buffer")
	n, err := q.AppendFrom(r, 10)
	if err != nil {
		t.Fatalf("AppendFrom: %v", err)
	}
	if n != 10 {
		t.Fatalf("AppendFrom read %d bytes, want 10", n)
	}
	if got := q.Pop(10); string(got) != "some longe" {
		t.Fatalf("Pop(10) = %q", got)
	}
}

func TestIterBuffers(t *testing.T) {
	q := bytequeue.New(3)
	q.Append([]byte("abcdefghi"))
	var joined []byte
	q.IterBuffers(func(b []byte) bool {
		joined = append(joined, b...)
		return true
	})
	if string(joined) != "abcdefghi" {
		t.Fatalf("IterBuffers joined = %q", joined)
	}
}
