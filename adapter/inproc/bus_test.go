package inproc

import (
	"context"
	"errors"
	"testing"

	"tandem/domain"
)

func drain(ch <-chan []byte) int {
	n := 0
	for {
		select {
		case <-ch:
			n++
		default:
			return n
		}
	}
}

func TestBus_DeliversToOthers(t *testing.T) {
	bus := New(Options{})
	a, b := domain.NewAgentID(), domain.NewAgentID()
	inA := bus.Register(a)
	inB := bus.Register(b)

	if err := bus.Endpoint(a).Broadcast(context.Background(), []byte("hello")); err != nil {
		t.Fatalf("Broadcast failed: %v", err)
	}
	if got := drain(inB); got != 1 {
		t.Errorf("b received %d frames, want 1", got)
	}
	if got := drain(inA); got != 0 {
		t.Errorf("sender received %d frames, want 0", got)
	}
}

func TestBus_Unregistered(t *testing.T) {
	bus := New(Options{})
	err := bus.Publish(domain.NewAgentID(), []byte("x"))
	if !errors.Is(err, ErrAgentNotRegistered) {
		t.Errorf("err = %v, want ErrAgentNotRegistered", err)
	}
}

func TestBus_QueueFull(t *testing.T) {
	bus := New(Options{Buffer: 1})
	a, b := domain.NewAgentID(), domain.NewAgentID()
	bus.Register(a)
	bus.Register(b)

	_ = bus.Publish(a, []byte("1"))
	if err := bus.Publish(a, []byte("2")); !errors.Is(err, ErrAgentQueueFull) {
		t.Errorf("err = %v, want ErrAgentQueueFull", err)
	}
}

func TestBus_DropAll(t *testing.T) {
	bus := New(Options{DropRate: 1})
	a, b := domain.NewAgentID(), domain.NewAgentID()
	bus.Register(a)
	inB := bus.Register(b)

	for range 10 {
		if err := bus.Publish(a, []byte("x")); err != nil {
			t.Fatalf("Publish failed: %v", err)
		}
	}
	if got := drain(inB); got != 0 {
		t.Errorf("received %d frames, want 0", got)
	}
}

func TestBus_DuplicateAll(t *testing.T) {
	bus := New(Options{DuplicateRate: 1})
	a, b := domain.NewAgentID(), domain.NewAgentID()
	bus.Register(a)
	inB := bus.Register(b)

	_ = bus.Publish(a, []byte("x"))
	if got := drain(inB); got != 2 {
		t.Errorf("received %d frames, want 2", got)
	}
}

func TestBus_SeedIsDeterministic(t *testing.T) {
	run := func() int {
		bus := New(Options{Buffer: 256, DropRate: 0.5, Seed: 42})
		a, b := domain.NewAgentID(), domain.NewAgentID()
		bus.Register(a)
		inB := bus.Register(b)
		for range 100 {
			_ = bus.Publish(a, []byte("x"))
		}
		return drain(inB)
	}
	first, second := run(), run()
	if first != second {
		t.Errorf("runs differ: %d vs %d", first, second)
	}
	if first == 0 || first == 100 {
		t.Errorf("received %d of 100, want partial loss", first)
	}
}
