package agentloop

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"tandem/application"
	"tandem/domain"
)

var (
	ErrNotStarted = errors.New("loop: not started")
	ErrStopped    = errors.New("loop: stopped")
	ErrQueueFull  = errors.New("loop: queue full")
)

// Input は Loop に渡す1件の入力です。
type Input struct {
	Self  domain.SelfStatus
	Event application.Event

	reply chan application.Outcome
}

// Config controls the behaviour of the agent loop.
type Config struct {
	Agent     *application.Agent
	QueueSize int
	Logger    *slog.Logger
	// OnOutcome は Step のたびにループのゴルーチン上で呼ばれます。
	OnOutcome func(context.Context, application.Outcome)
}

// Loop は1体のエージェントの State を所有し、入力を単一のゴルーチンで Step に渡します。
// ゲーム側の tick とチームメイトからの受信が別ゴルーチンから来ても、State は共有されません。
type Loop struct {
	agent     *application.Agent
	queue     chan Input
	logger    *slog.Logger
	onOutcome func(context.Context, application.Outcome)

	mu       sync.Mutex
	state    application.State
	lastSelf domain.SelfStatus

	// sendMu は Submit の送信と Stop の close を排他します。
	sendMu  sync.RWMutex
	started atomic.Bool
	stopped atomic.Bool

	done chan struct{}
}

func New(cfg Config) (*Loop, error) {
	if cfg.Agent == nil {
		return nil, errors.New("loop: agent is required")
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 256
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	onOutcome := cfg.OnOutcome
	if onOutcome == nil {
		onOutcome = func(context.Context, application.Outcome) {}
	}
	return &Loop{
		agent:     cfg.Agent,
		queue:     make(chan Input, queueSize),
		logger:    logger,
		onOutcome: onOutcome,
		done:      make(chan struct{}),
	}, nil
}

// Start launches the loop goroutine. It must be called once.
func (l *Loop) Start(ctx context.Context) error {
	if !l.started.CompareAndSwap(false, true) {
		return errors.New("loop: start called multiple times")
	}
	go l.run(ctx)
	return nil
}

func (l *Loop) run(ctx context.Context) {
	defer close(l.done)
	for {
		select {
		case <-ctx.Done():
			l.logger.DebugContext(ctx, "loop: context cancelled", "err", ctx.Err())
			return
		case in, ok := <-l.queue:
			if !ok {
				return
			}
			l.mu.Lock()
			next, out := l.agent.Step(ctx, l.state, in.Self, in.Event)
			l.state = next
			l.lastSelf = in.Self
			l.mu.Unlock()
			l.onOutcome(ctx, out)
			if in.reply != nil {
				in.reply <- out
			}
		}
	}
}

// Submit は入力をキューに積みます。キューが満杯なら待たずに ErrQueueFull を返します。
func (l *Loop) Submit(in Input) error {
	if !l.started.Load() {
		return ErrNotStarted
	}
	l.sendMu.RLock()
	defer l.sendMu.RUnlock()
	if l.stopped.Load() {
		return ErrStopped
	}
	select {
	case l.queue <- in:
		return nil
	default:
		return ErrQueueFull
	}
}

// Step は入力をキューに積み、ループがそれを処理した結果を返します。
// Submit と違いキューに空きが出るまで待ちます。
func (l *Loop) Step(ctx context.Context, in Input) (application.Outcome, error) {
	if !l.started.Load() {
		return application.Outcome{}, ErrNotStarted
	}
	reply := make(chan application.Outcome, 1)
	in.reply = reply
	if err := l.enqueue(ctx, in); err != nil {
		return application.Outcome{}, err
	}
	select {
	case out := <-reply:
		return out, nil
	case <-ctx.Done():
		return application.Outcome{}, ctx.Err()
	case <-l.done:
		select {
		case out := <-reply:
			return out, nil
		default:
			return application.Outcome{}, ErrStopped
		}
	}
}

func (l *Loop) enqueue(ctx context.Context, in Input) error {
	l.sendMu.RLock()
	defer l.sendMu.RUnlock()
	if l.stopped.Load() {
		return ErrStopped
	}
	select {
	case l.queue <- in:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrStopped
	}
}

// Forward は inbox に届いたレポートを、直近の自機状態と一緒にループへ流します。
// inbox が閉じるか ctx が終わるまでブロックします。
func (l *Loop) Forward(ctx context.Context, inbox <-chan domain.Report) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case r, ok := <-inbox:
			if !ok {
				return nil
			}
			l.mu.Lock()
			self := l.lastSelf
			l.mu.Unlock()
			if err := l.Submit(Input{Self: self, Event: application.MessageReceived(r)}); err != nil {
				if errors.Is(err, ErrStopped) {
					return nil
				}
				l.logger.WarnContext(ctx, "loop: report dropped", "kind", r.Kind, "err", err)
			}
		}
	}
}

// State returns a copy of the state owned by the loop.
func (l *Loop) State() application.State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Stop drains the loop and waits for graceful completion.
func (l *Loop) Stop(ctx context.Context) error {
	l.sendMu.Lock()
	if !l.stopped.CompareAndSwap(false, true) {
		l.sendMu.Unlock()
		return errors.New("loop: stop called multiple times")
	}
	close(l.queue)
	l.sendMu.Unlock()
	select {
	case <-l.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// DrainTimeout closes the queue and waits for completion with the given timeout.
func (l *Loop) DrainTimeout(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return l.Stop(ctx)
}
