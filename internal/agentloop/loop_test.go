package agentloop

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"go.uber.org/mock/gomock"

	"tandem/application"
	"tandem/domain"
	"tandem/domain/mocks"
)

func newLoop(t *testing.T, out domain.Broadcaster, onOutcome func(context.Context, application.Outcome)) *Loop {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	agent, err := application.NewAgent(application.Config{Broadcaster: out, Logger: logger})
	if err != nil {
		t.Fatalf("NewAgent failed: %v", err)
	}
	l, err := New(Config{Agent: agent, QueueSize: 8, Logger: logger, OnOutcome: onOutcome})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return l
}

func TestNew_RequiresAgent(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("New without agent should fail")
	}
}

func TestLoop_SubmitBeforeStart(t *testing.T) {
	ctrl := gomock.NewController(t)
	l := newLoop(t, mocks.NewMockBroadcaster(ctrl), nil)
	if err := l.Submit(Input{Event: application.TickSkipped()}); !errors.Is(err, ErrNotStarted) {
		t.Errorf("Submit err = %v, want ErrNotStarted", err)
	}
}

func TestLoop_StepsInOrder(t *testing.T) {
	ctrl := gomock.NewController(t)
	out := mocks.NewMockBroadcaster(ctrl)
	out.EXPECT().Broadcast(gomock.Any(), gomock.Any()).Return(nil).Times(3)

	outcomes := make(chan application.Outcome, 8)
	l := newLoop(t, out, func(_ context.Context, o application.Outcome) { outcomes <- o })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := l.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	self := domain.SelfStatus{
		Position:  orb.Point{100, 100},
		Energy:    100,
		Footprint: 36,
		Arena:     orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{800, 600}},
		Tick:      1,
	}
	inbox := make(chan domain.Report, 1)
	inbox <- domain.GoalReport(domain.Goal{Point: orb.Point{5, 5}, Tick: 1})
	close(inbox)

	if err := l.Submit(Input{Self: self, Event: application.TickSkipped()}); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if err := l.Forward(ctx, inbox); err != nil {
		t.Fatalf("Forward failed: %v", err)
	}
	obs := domain.Observation{Entity: domain.EntityOpponent, Distance: 300}
	if err := l.Submit(Input{Self: self, Event: application.Observed(obs)}); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	for i := range 3 {
		select {
		case <-outcomes:
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for outcome %d", i)
		}
	}

	if err := l.DrainTimeout(time.Second); err != nil {
		t.Fatalf("DrainTimeout failed: %v", err)
	}
	st := l.State()
	if st.Stats.SkippedTicks != 1 {
		t.Errorf("SkippedTicks = %d, want 1", st.Stats.SkippedTicks)
	}
	if !st.HasGoal {
		t.Error("forwarded goal not merged")
	}
	if st.Opponent.Len() != 1 {
		t.Errorf("opponent history len = %d, want 1", st.Opponent.Len())
	}
	if err := l.Submit(Input{Self: self, Event: application.TickSkipped()}); !errors.Is(err, ErrStopped) {
		t.Errorf("Submit after stop err = %v, want ErrStopped", err)
	}
}

func TestLoop_StepReturnsOutcome(t *testing.T) {
	ctrl := gomock.NewController(t)
	out := mocks.NewMockBroadcaster(ctrl)
	out.EXPECT().Broadcast(gomock.Any(), gomock.Any()).Return(nil).Times(3)

	var seen int
	l := newLoop(t, out, func(context.Context, application.Outcome) { seen++ })
	ctx := context.Background()
	if _, err := l.Step(ctx, Input{Event: application.TickSkipped()}); !errors.Is(err, ErrNotStarted) {
		t.Errorf("Step before Start err = %v, want ErrNotStarted", err)
	}
	if err := l.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	self := domain.SelfStatus{
		Position:  orb.Point{100, 100},
		Energy:    100,
		Footprint: 36,
		Arena:     orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{800, 600}},
		Tick:      4,
	}
	obs := domain.Observation{Entity: domain.EntityOpponent, Distance: 300}
	got, err := l.Step(ctx, Input{Self: self, Event: application.Observed(obs)})
	if err != nil {
		t.Fatalf("Step failed: %v", err)
	}
	if got.Role != application.RoleLeader {
		t.Errorf("Role = %v, want leader", got.Role)
	}
	if got.Command.IsZero() {
		t.Error("Command is zero, want a drive toward the opponent")
	}
	if seen != 1 {
		t.Errorf("OnOutcome called %d times, want 1", seen)
	}
	if st := l.State(); st.Opponent.Len() != 1 {
		t.Errorf("opponent history len = %d, want 1", st.Opponent.Len())
	}

	if err := l.DrainTimeout(time.Second); err != nil {
		t.Fatalf("DrainTimeout failed: %v", err)
	}
	if _, err := l.Step(ctx, Input{Self: self, Event: application.TickSkipped()}); !errors.Is(err, ErrStopped) {
		t.Errorf("Step after stop err = %v, want ErrStopped", err)
	}
}
