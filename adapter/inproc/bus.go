package inproc

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"

	"tandem/domain"
)

var (
	ErrAgentNotRegistered = errors.New("agent is not registered in bus")
	ErrAgentQueueFull     = errors.New("agent queue is full")
)

// Options はバスの損失モデルです。確率は [0, 1] で、Seed が同じなら同じ順に落ちます。
type Options struct {
	Buffer        int
	DropRate      float64
	DuplicateRate float64
	Seed          uint64
}

// Bus はプロセス内でチームメイト同士をつなぐ損失ありの放送路です。
type Bus struct {
	mu   sync.RWMutex
	subs map[domain.AgentID]chan []byte
	opts Options

	rngMu sync.Mutex
	rng   *rand.Rand
}

func New(opts Options) *Bus {
	if opts.Buffer <= 0 {
		opts.Buffer = 64
	}
	return &Bus{
		subs: make(map[domain.AgentID]chan []byte),
		opts: opts,
		rng:  rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15)),
	}
}

func (b *Bus) Register(id domain.AgentID) <-chan []byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.subs[id]; ok {
		return ch
	}
	ch := make(chan []byte, b.opts.Buffer)
	b.subs[id] = ch
	return ch
}

func (b *Bus) Unregister(id domain.AgentID) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch, ok := b.subs[id]
	if !ok {
		return
	}
	delete(b.subs, id)
	close(ch)
}

// Endpoint は id から送る Broadcaster を返します。
func (b *Bus) Endpoint(id domain.AgentID) domain.Broadcaster {
	return &endpoint{bus: b, from: id}
}

// Publish は from 以外の登録済みエージェント全員に data を配ります。
// 損失モデルで落ちた分はエラーにしません。
func (b *Bus) Publish(from domain.AgentID, data []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if _, ok := b.subs[from]; !ok {
		return ErrAgentNotRegistered
	}
	var err error
	for id, ch := range b.subs {
		if id == from {
			continue
		}
		copies := b.copies()
		for range copies {
			select {
			case ch <- data:
			default:
				err = ErrAgentQueueFull
			}
		}
	}
	return err
}

// copies は1宛先に届ける回数 (0, 1, 2) を抽選します。
func (b *Bus) copies() int {
	b.rngMu.Lock()
	defer b.rngMu.Unlock()
	if b.opts.DropRate > 0 && b.rng.Float64() < b.opts.DropRate {
		return 0
	}
	if b.opts.DuplicateRate > 0 && b.rng.Float64() < b.opts.DuplicateRate {
		return 2
	}
	return 1
}

type endpoint struct {
	bus  *Bus
	from domain.AgentID
}

func (e *endpoint) Broadcast(_ context.Context, data []byte) error {
	return e.bus.Publish(e.from, data)
}
