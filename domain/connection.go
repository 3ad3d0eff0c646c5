package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

var (
	// ErrBackpressure は書き込みチャネルが満杯の場合に返されるエラーです。
	ErrBackpressure = errors.New("write channel is full, apply backpressure")
	// ErrConnectionClosed はクローズ済みの接続に送信しようとした場合に返されるエラーです。
	ErrConnectionClosed = errors.New("connection closed")
)

const defaultWriteQueueSize = 64

// Connection はチームメイトとの物理接続を表します。
// Broadcast は書き込みチャネルへ積むだけで、実際の送信は Run の書き込みループが行います。
type Connection struct {
	AgentID   AgentID
	transport Transport
	session   *Session

	writeCh chan []byte
	closed  atomic.Bool
}

var _ Broadcaster = (*Connection)(nil)

func NewConnection(agentID AgentID, transport Transport, queueSize int) *Connection {
	if queueSize <= 0 {
		queueSize = defaultWriteQueueSize
	}
	return &Connection{
		AgentID:   agentID,
		transport: transport,
		session:   NewSession(),
		writeCh:   make(chan []byte, queueSize),
	}
}

// Session は接続の活動状況を返します。
func (c *Connection) Session() *Session {
	return c.session
}

// Broadcast はデータを送信キューに積みます。キューが満杯なら ErrBackpressure を返して破棄します。
func (c *Connection) Broadcast(ctx context.Context, data []byte) error {
	if c.closed.Load() {
		return ErrConnectionClosed
	}
	select {
	case c.writeCh <- data:
		return nil
	default:
		return ErrBackpressure
	}
}

// Run は読み込みループと書き込みループを起動し、どちらかが終わるまでブロックします。
// 受信したレポートは inbox に渡します。inbox が詰まっている場合は破棄します。
func (c *Connection) Run(ctx context.Context, inbox chan<- Report) error {
	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return c.writeLoop(ctx)
	})
	eg.Go(func() error {
		return c.readLoop(ctx, inbox)
	})
	err := eg.Wait()
	c.Close()
	return err
}

func (c *Connection) writeLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case data := <-c.writeCh:
			if err := c.transport.Write(ctx, data); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("write: %w", err)
			}
			c.session.TouchWrite()
		}
	}
}

func (c *Connection) readLoop(ctx context.Context, inbox chan<- Report) error {
	for {
		data, err := c.transport.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		c.session.TouchRead()

		header, report, err := DecodeReport(data)
		if err != nil {
			slog.WarnContext(ctx, "malformed report dropped", "agentID", c.AgentID, "err", err)
			continue
		}
		if header.Sender == c.AgentID {
			continue
		}

		select {
		case inbox <- report:
		default:
			slog.WarnContext(ctx, "inbox full, report dropped", "agentID", c.AgentID, "kind", report.Kind)
		}
	}
}

// Close は接続を閉じます。2回目以降の呼び出しは何もしません。
func (c *Connection) Close() {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}
	c.session.Close(CloseNormal)
	_ = c.transport.Close(1000, "")
}
