package application

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"tandem/domain"
	"tandem/geom"
)

// Config は Agent の構成です。
type Config struct {
	ID          domain.AgentID
	Broadcaster domain.Broadcaster
	Tuning      Tuning
	Logger      *slog.Logger
}

// Agent は1体分の意思決定ロジックです。
// 世界観 (State) は持たず、Step の呼び出し側が所有して毎回受け渡します。
type Agent struct {
	id     domain.AgentID
	out    domain.Broadcaster
	tuning Tuning
	logger *slog.Logger
	tracer trace.Tracer
}

// Outcome は Step 1回分の結果です。
type Outcome struct {
	Command  domain.Command
	Role     Role
	Waypoint Waypoint
	// Goal はこの tick にチームメイトへ広報した目標点です。
	Goal   domain.Goal
	Phases []Phase
}

func NewAgent(cfg Config) (*Agent, error) {
	if cfg.Broadcaster == nil {
		return nil, errors.New("agent: broadcaster is required")
	}
	if cfg.ID.IsZero() {
		cfg.ID = domain.NewAgentID()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Agent{
		id:     cfg.ID,
		out:    cfg.Broadcaster,
		tuning: cfg.Tuning.withDefaults(),
		logger: logger.With("agentID", cfg.ID.String()),
		tracer: otel.Tracer("tandem/application"),
	}, nil
}

func (a *Agent) ID() domain.AgentID {
	return a.id
}

func (a *Agent) Tuning() Tuning {
	return a.tuning
}

// Step はイベント1件を処理し、更新した State とこの tick のコマンドを返します。
// ブロックする処理は行いません。どのイベントもエラーで中断しません。
func (a *Agent) Step(ctx context.Context, st State, self domain.SelfStatus, ev Event) (State, Outcome) {
	ctx, span := a.tracer.Start(ctx, "agent.step", trace.WithAttributes(
		attribute.String("event", ev.Kind.String()),
		attribute.Int64("tick", self.Tick),
	))
	defer span.End()

	if self.Tick > st.LastTick {
		st.LastTick = self.Tick
	}

	switch ev.Kind {
	case EventObserved:
		if ev.Observation.Entity == domain.EntityTeammate {
			st.Teammate.Record(SampleFromObservation(self, ev.Observation))
			return st, Outcome{Phases: []Phase{PhaseHistoryUpdated, PhaseIdle}}
		}
		next, out := a.engage(ctx, st, self, ev.Observation)
		span.SetAttributes(
			attribute.String("role", out.Role.String()),
			attribute.String("waypoint", out.Waypoint.Kind.String()),
			attribute.Bool("fire", out.Command.Fire),
		)
		return next, out

	case EventMessageReceived:
		next, ok := Merge(st, ev.Report)
		if !ok {
			next.Stats.StaleReports++
			a.logger.DebugContext(ctx, "stale report dropped",
				"kind", ev.Report.Kind,
				"reportTick", ev.Report.Tick(),
			)
		}
		return next, Outcome{Phases: []Phase{PhaseIdle}}

	case EventTickSkipped:
		st.Stats.SkippedTicks++
		a.logger.WarnContext(ctx, "skipped tick", "tick", self.Tick)
		return st, Outcome{Phases: []Phase{PhaseIdle}}

	case EventCollided:
		return st, a.collide(ctx, st, self, ev.Collision)

	default:
		a.logger.WarnContext(ctx, "unknown event", "kind", ev.Kind)
		return st, Outcome{Phases: []Phase{PhaseIdle}}
	}
}

// engage は敵を観測した tick の一連の処理です。
// 履歴更新 → 役割判定 → 移動目標 → 照準 → 広報 → 移動 の順に進めます。
func (a *Agent) engage(ctx context.Context, st State, self domain.SelfStatus, obs domain.Observation) (State, Outcome) {
	var out Outcome

	st.Opponent.Record(SampleFromObservation(self, obs))
	out.Phases = append(out.Phases, PhaseHistoryUpdated)

	out.Role = DecideRole(st, self, a.tuning.FreshnessWindow)
	out.Phases = append(out.Phases, PhaseRoleDecided)

	out.Waypoint = Plan(st, self, out.Role)
	out.Phases = append(out.Phases, PhaseWaypointPlanned)

	aim := AimAt(self, obs, a.tuning)
	out.Command.RadarTurn = aim.RadarTurn
	out.Command.GunTurn = aim.GunTurn
	if aim.Fire {
		out.Command.Fire = true
		out.Command.FirePower = aim.Power
	}
	out.Phases = append(out.Phases, PhaseAimed)

	out.Goal = domain.Goal{Point: out.Waypoint.Target, Tick: self.Tick}
	reports := []domain.Report{domain.SelfPositionReport(SelfSample(self))}
	if latest, ok := st.Opponent.Latest(); ok {
		reports = append(reports, domain.OpponentPositionReport(latest))
	}
	reports = append(reports, domain.GoalReport(out.Goal))
	a.broadcast(ctx, &st, reports)
	out.Phases = append(out.Phases, PhaseBroadcast)

	if out.Waypoint.Moves() {
		out.Command.BodyTurn, out.Command.Ahead = Drive(self, out.Waypoint.Target)
	}
	out.Phases = append(out.Phases, PhaseMovementIssued, PhaseIdle)

	a.logger.DebugContext(ctx, "tick",
		"tick", self.Tick,
		"role", out.Role,
		"waypoint", out.Waypoint.Kind,
		"fire", out.Command.Fire,
	)
	return st, out
}

// broadcast はレポートを順に送ります。失敗しても残りの送信と tick の処理は続けます。
func (a *Agent) broadcast(ctx context.Context, st *State, reports []domain.Report) {
	for _, r := range reports {
		st.Seq++
		data, err := domain.EncodeReport(a.id, st.Seq, r)
		if err != nil {
			a.logger.ErrorContext(ctx, "encode report failed", "kind", r.Kind, "err", err)
			continue
		}
		if err := a.out.Broadcast(ctx, data); err != nil {
			st.Stats.BroadcastFailures++
			a.logger.WarnContext(ctx, "broadcast failed", "kind", r.Kind, "err", err)
			continue
		}
		st.Stats.Broadcasts++
	}
}

// collide は体当たりを受けたときの回避です。敵との接触、
// またはアシスタントとしてチームメイトに接触したときだけ離れます。
func (a *Agent) collide(ctx context.Context, st State, self domain.SelfStatus, c Collision) Outcome {
	role := DecideRole(st, self, a.tuning.FreshnessWindow)
	out := Outcome{Role: role, Phases: []Phase{PhaseRoleDecided}}
	if c.Entity == domain.EntityTeammate && role != RoleAssistant {
		out.Phases = append(out.Phases, PhaseIdle)
		return out
	}
	out.Command.Ahead = Backoff(c)
	out.Phases = append(out.Phases, PhaseMovementIssued, PhaseIdle)
	a.logger.DebugContext(ctx, "collision backoff", "entity", c.Entity, "ahead", out.Command.Ahead)
	return out
}

// SampleFromObservation は相対方位と距離から相手の絶対位置を求めて Sample にします。
func SampleFromObservation(self domain.SelfStatus, obs domain.Observation) domain.Sample {
	return domain.Sample{
		Position:   geom.Project(self.Position, self.Heading+obs.Bearing, obs.Distance),
		Energy:     obs.Energy,
		Heading:    obs.Heading,
		HasHeading: true,
		Velocity:   obs.Velocity,
		Tick:       self.Tick,
	}
}

// SelfSample は自機の状態をチームメイトに送る Sample にします。
func SelfSample(self domain.SelfStatus) domain.Sample {
	return domain.Sample{
		Position:   self.Position,
		Energy:     self.Energy,
		Heading:    self.Heading,
		HasHeading: true,
		Velocity:   self.Velocity,
		Tick:       self.Tick,
	}
}
