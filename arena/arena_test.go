package arena

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/paulmach/orb"
	"go.uber.org/mock/gomock"

	"tandem/adapter/inproc"
	"tandem/application"
	"tandem/domain"
	"tandem/domain/mocks"
	"tandem/internal/agentloop"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Options{Field: Field{Width: 50, Height: 50, Footprint: 36}, Logger: quietLogger()}); err == nil {
		t.Error("New with tiny field should fail")
	}
	if _, err := New(Options{Loops: []*agentloop.Loop{nil}, Logger: quietLogger()}); err == nil {
		t.Error("New with one loop should fail")
	}
	if _, err := New(Options{Loops: []*agentloop.Loop{nil, nil}, Logger: quietLogger()}); err == nil {
		t.Error("New with nil loops should fail")
	}
}

func TestArena_RunSmoke(t *testing.T) {
	a, err := New(Options{Seed: 7, Logger: quietLogger()})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	res, err := a.Run(context.Background(), 300)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Ticks == 0 || res.Ticks > 300 {
		t.Errorf("Ticks = %d, want 1..300", res.Ticks)
	}
	for name, st := range res.Stats {
		if st.Broadcasts == 0 {
			t.Errorf("%s: Broadcasts = 0, want reports sent", name)
		}
	}
	bound := DefaultField().Bound()
	for _, b := range a.Bots() {
		if !bound.Contains(b.Position) {
			t.Errorf("%s left the field: %v", b.Name, b.Position)
		}
	}
}

func TestArena_Deterministic(t *testing.T) {
	run := func() Result {
		a, err := New(Options{Seed: 11, SkipRate: 0.05, Bus: inproc.Options{DropRate: 0.2}, Logger: quietLogger()})
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		res, err := a.Run(context.Background(), 200)
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		return res
	}
	first, second := run(), run()
	if first.Ticks != second.Ticks || first.Winner != second.Winner || first.Hits != second.Hits {
		t.Errorf("runs differ: %+v vs %+v", first, second)
	}
	for name, e := range first.Energies {
		if second.Energies[name] != e {
			t.Errorf("%s energy %v vs %v", name, e, second.Energies[name])
		}
	}
}

func TestArena_SkippedTicksCounted(t *testing.T) {
	a, err := New(Options{Seed: 3, SkipRate: 1, Logger: quietLogger()})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	res, err := a.Run(context.Background(), 20)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	for name, st := range res.Stats {
		if st.SkippedTicks != int(res.Ticks) {
			t.Errorf("%s: SkippedTicks = %d, want %d", name, st.SkippedTicks, res.Ticks)
		}
		if st.Broadcasts != 0 {
			t.Errorf("%s: Broadcasts = %d, want 0 when every tick is skipped", name, st.Broadcasts)
		}
	}
}

func TestArena_TeammatesShareReports(t *testing.T) {
	a, err := New(Options{Seed: 5, Logger: quietLogger()})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ctx := context.Background()
	a.Step(ctx)
	a.Step(ctx)

	st, err := a.State("agent-1")
	if err != nil {
		t.Fatalf("State failed: %v", err)
	}
	if !st.HasGoal {
		t.Error("agent-1 should have received its teammate's goal")
	}
	if _, err := a.State("nobody"); !errors.Is(err, ErrUnknownAgent) {
		t.Errorf("State(nobody) err = %v, want ErrUnknownAgent", err)
	}
}

func TestArena_Canceled(t *testing.T) {
	a, err := New(Options{Logger: quietLogger()})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := a.Run(ctx, 10); !errors.Is(err, context.Canceled) {
		t.Errorf("Run err = %v, want context.Canceled", err)
	}
}

func TestBot_MoveRespectsLimits(t *testing.T) {
	f := DefaultField()
	b := &Bot{Position: orb.Point{400, 300}, Energy: StartEnergy}
	b.Apply(domain.Command{BodyTurn: math.Pi, Ahead: 500}, true)

	b.move(f)
	if b.Velocity != Acceleration {
		t.Errorf("Velocity = %v, want %v", b.Velocity, Acceleration)
	}
	if got, want := b.Heading, maxBodyTurn(0); math.Abs(got-want) > 1e-12 {
		t.Errorf("Heading = %v, want %v", got, want)
	}
	for range 20 {
		b.move(f)
	}
	if b.Velocity > MaxSpeed {
		t.Errorf("Velocity = %v exceeds %v", b.Velocity, MaxSpeed)
	}
}

func TestBot_StopsAtWall(t *testing.T) {
	f := DefaultField()
	b := &Bot{Position: orb.Point{400, f.Height - f.Footprint/2 - 1}, Velocity: 8, Energy: StartEnergy}
	b.Apply(domain.Command{Ahead: 100}, true)

	if !b.move(f) {
		t.Fatal("move should report the wall")
	}
	if b.Velocity != 0 {
		t.Errorf("Velocity = %v, want 0", b.Velocity)
	}
	if b.Position[1] != f.Height-f.Footprint/2 {
		t.Errorf("Y = %v, want %v", b.Position[1], f.Height-f.Footprint/2)
	}
}

func TestBot_Fire(t *testing.T) {
	b := &Bot{Energy: 50}
	bullet, ok := b.fire(3)
	if !ok {
		t.Fatal("fire with a cool gun should succeed")
	}
	if bullet.Power != 3 || b.Energy != 47 {
		t.Errorf("power = %v, energy = %v, want 3, 47", bullet.Power, b.Energy)
	}
	if _, ok := b.fire(3); ok {
		t.Error("fire with a hot gun should fail")
	}
}

func TestBot_HaltsWhenWaypointDoesNotMove(t *testing.T) {
	for _, kind := range []application.WaypointKind{application.WaypointYield, application.WaypointHold} {
		t.Run(kind.String(), func(t *testing.T) {
			f := DefaultField()
			b := &Bot{Position: orb.Point{400, 300}, Energy: StartEnergy}
			b.Apply(domain.Command{BodyTurn: 0.5, Ahead: 200}, true)
			b.move(f)
			b.move(f)

			before := b.Position
			b.Apply(domain.Command{}, application.Waypoint{Kind: kind}.Moves())
			b.move(f)

			if b.Position != before {
				t.Errorf("bot moved %v -> %v", before, b.Position)
			}
			if b.Velocity != 0 || b.distanceRemaining != 0 || b.turnRemaining != 0 {
				t.Errorf("velocity = %v, remaining = %v, turn = %v, want all 0",
					b.Velocity, b.distanceRemaining, b.turnRemaining)
			}
		})
	}
}

func TestArena_RunsOnAgentLoops(t *testing.T) {
	ctrl := gomock.NewController(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var loops []*agentloop.Loop
	for range TeamSize {
		out := mocks.NewMockBroadcaster(ctrl)
		out.EXPECT().Broadcast(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
		agent, err := application.NewAgent(application.Config{Broadcaster: out, Logger: quietLogger()})
		if err != nil {
			t.Fatalf("NewAgent failed: %v", err)
		}
		l, err := agentloop.New(agentloop.Config{Agent: agent, Logger: quietLogger()})
		if err != nil {
			t.Fatalf("agentloop.New failed: %v", err)
		}
		if err := l.Start(ctx); err != nil {
			t.Fatalf("Start failed: %v", err)
		}
		loops = append(loops, l)
	}

	a, err := New(Options{Seed: 7, Loops: loops, Logger: quietLogger()})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	res, err := a.Run(ctx, 50)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	for name, st := range res.Stats {
		if st.Broadcasts == 0 {
			t.Errorf("%s: Broadcasts = 0, want reports sent through the loop", name)
		}
	}
	st, err := a.State("agent-1")
	if err != nil {
		t.Fatalf("State failed: %v", err)
	}
	if st.Opponent.Len() == 0 {
		t.Error("agent-1 loop state has no opponent samples")
	}
}
