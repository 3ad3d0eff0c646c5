package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"tandem/domain"
)

var errIdle = errors.New("peer idle")

// peer はリレーに接続している1エージェントです。
type peer struct {
	id        domain.AgentID
	team      string
	transport domain.Transport
	session   *domain.Session

	writeCh     chan []byte
	idleTimeout time.Duration
	closed      atomic.Bool
}

func newPeer(ident Identity, transport domain.Transport, queueSize int, idleTimeout time.Duration) *peer {
	return &peer{
		id:          ident.AgentID,
		team:        ident.Team,
		transport:   transport,
		session:     domain.NewSession(),
		writeCh:     make(chan []byte, queueSize),
		idleTimeout: idleTimeout,
	}
}

func (p *peer) send(data []byte) error {
	if p.closed.Load() {
		return domain.ErrConnectionClosed
	}
	select {
	case p.writeCh <- data:
		return nil
	default:
		return domain.ErrBackpressure
	}
}

func (p *peer) run(ctx context.Context, hub *Hub) error {
	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return p.ownerLoop(ctx)
	})
	eg.Go(func() error {
		return p.readLoop(ctx, hub)
	})
	eg.Go(func() error {
		return p.writeLoop(ctx)
	})
	err := eg.Wait()
	if errors.Is(err, errIdle) {
		p.close(domain.CloseIdle)
		return nil
	}
	p.close(domain.CloseNormal)
	return err
}

// ownerLoop は読み込みが idleTimeout を超えて途絶えた接続を切ります。
func (p *peer) ownerLoop(ctx context.Context) error {
	if p.idleTimeout <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(p.idleTimeout / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if p.session.IsReadIdle(p.idleTimeout) {
				slog.InfoContext(ctx, "relay peer idle", "team", p.team, "agentID", p.id)
				return errIdle
			}
		}
	}
}

func (p *peer) readLoop(ctx context.Context, hub *Hub) error {
	for {
		data, err := p.transport.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		p.session.TouchRead()

		header, err := domain.ParseHeader(data)
		if err != nil {
			slog.WarnContext(ctx, "relay malformed frame", "agentID", p.id, "err", err)
			continue
		}
		if header.Sender != p.id {
			slog.WarnContext(ctx, "relay sender mismatch", "agentID", p.id, "sender", header.Sender)
			continue
		}
		hub.forward(ctx, p, data)
	}
}

func (p *peer) writeLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case data := <-p.writeCh:
			if err := p.transport.Write(ctx, data); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("write: %w", err)
			}
			p.session.TouchWrite()
		}
	}
}

func (p *peer) close(reason domain.CloseReason) {
	if !p.closed.CompareAndSwap(false, true) {
		return
	}
	p.session.Close(reason)
	code, text := int32(1000), ""
	switch reason {
	case domain.CloseIdle:
		code, text = 1001, "idle"
	case domain.CloseRejected:
		code, text = 1008, "rejected"
	}
	_ = p.transport.Close(code, text)
}
