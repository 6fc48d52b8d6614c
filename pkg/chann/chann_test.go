package chann

import (
	"testing"
	"time"
)

func TestUnboundedSendRecvOrder(t *testing.T) {
	ch := New[int]()
	defer ch.Close()

	for i := 0; i < 5; i++ {
		ch.In() <- i
	}
	for i := 0; i < 5; i++ {
		select {
		case got := <-ch.Out():
			if got != i {
				t.Fatalf("Out() = %d, want %d", got, i)
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for value")
		}
	}
}

func TestBufferedRespectsCapacity(t *testing.T) {
	ch := New[int](Cap(2))
	defer ch.Close()

	if ch.Cap() != 2 {
		t.Fatalf("Cap() = %d, want 2", ch.Cap())
	}
	ch.In() <- 1
	ch.In() <- 2

	select {
	case ch.In() <- 3:
		t.Fatal("send on a full buffered channel should have blocked")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestDrainableCloseAndDrainDeliversQueued(t *testing.T) {
	ch := NewAutoDrainChann[int]()
	for i := 0; i < 3; i++ {
		ch.In() <- i
	}

	done := make(chan struct{})
	go func() {
		ch.CloseAndDrain()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("CloseAndDrain did not return: a goroutine may be leaking")
	}
}
