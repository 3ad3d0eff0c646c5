package arena

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"slices"

	"github.com/paulmach/orb"

	"tandem/adapter/inproc"
	"tandem/application"
	"tandem/domain"
	"tandem/geom"
	"tandem/internal/agentloop"
)

const (
	DefaultWidth     = 800.0
	DefaultHeight    = 600.0
	DefaultFootprint = 36.0
	TeamSize         = 2
)

// Field はフィールドの大きさとボットの幅です。
type Field struct {
	Width     float64
	Height    float64
	Footprint float64
}

func DefaultField() Field {
	return Field{Width: DefaultWidth, Height: DefaultHeight, Footprint: DefaultFootprint}
}

func (f Field) Bound() orb.Bound {
	return geom.Arena(f.Width, f.Height)
}

// Options は1試合の設定です。
// Loops が空ならプロセス内の損失ありバスで通信するエージェントをアリーナ自身が作ります。
// Loops を渡すとき、受信したレポートは各 Loop の Forward で届けられている前提です。
type Options struct {
	Field    Field
	Seed     uint64
	SkipRate float64
	Tuning   application.Tuning
	Bus      inproc.Options
	Loops    []*agentloop.Loop
	IDs      []domain.AgentID
	Logger   *slog.Logger
}

// Result は試合結果です。
type Result struct {
	Ticks    int64
	Finished bool
	Winner   Side
	Energies map[string]float64
	Stats    map[string]application.Stats
	Hits     int
	Rams     int
}

type member struct {
	bot        *Bot
	collisions []application.Collision

	// loop が nil のときは agent をこのゴルーチンで直接進め、link から受信します。
	loop  *agentloop.Loop
	agent *application.Agent
	state application.State
	link  Link
}

func (m *member) step(ctx context.Context, logger *slog.Logger, self domain.SelfStatus, ev application.Event) application.Outcome {
	if m.loop == nil {
		var out application.Outcome
		m.state, out = m.agent.Step(ctx, m.state, self, ev)
		return out
	}
	out, err := m.loop.Step(ctx, agentloop.Input{Self: self, Event: ev})
	if err != nil {
		logger.WarnContext(ctx, "agent loop step failed", "bot", m.bot.Name, "kind", ev.Kind, "err", err)
	}
	return out
}

func (m *member) drain(ctx context.Context) []domain.Report {
	if m.link == nil {
		return nil
	}
	return m.link.Drain(ctx)
}

func (m *member) current() application.State {
	if m.loop != nil {
		return m.loop.State()
	}
	return m.state
}

// Arena は2体のエージェントと1体のルールボットを戦わせる headless なシミュレータです。
type Arena struct {
	field    Field
	members  []*member
	opponent *Bot
	ruleBot  *RuleBotController
	bullets  []Bullet
	rng      *rand.Rand
	skipRate float64
	logger   *slog.Logger

	tick   int64
	hits   int
	rams   int
	closed []func()
}

func New(opts Options) (*Arena, error) {
	if opts.Field == (Field{}) {
		opts.Field = DefaultField()
	}
	f := opts.Field
	if f.Width < 4*f.Footprint || f.Height < 4*f.Footprint {
		return nil, fmt.Errorf("arena: field %vx%v too small for footprint %v", f.Width, f.Height, f.Footprint)
	}
	if len(opts.Loops) != 0 && len(opts.Loops) != TeamSize {
		return nil, fmt.Errorf("arena: need %d loops, got %d", TeamSize, len(opts.Loops))
	}
	if slices.Contains(opts.Loops, nil) {
		return nil, errors.New("arena: nil loop")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ids := slices.Clone(opts.IDs)
	for len(ids) < TeamSize {
		ids = append(ids, domain.NewAgentID())
	}

	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed+1))
	a := &Arena{
		field:    f,
		rng:      rng,
		skipRate: opts.SkipRate,
		logger:   logger,
	}

	starts := []orb.Point{
		{f.Width * 0.2, f.Height * 0.25},
		{f.Width * 0.2, f.Height * 0.75},
	}
	var bus *inproc.Bus
	if len(opts.Loops) == 0 {
		busOpts := opts.Bus
		if busOpts.Seed == 0 {
			busOpts.Seed = opts.Seed
		}
		bus = inproc.New(busOpts)
	}
	for i := range TeamSize {
		m := &member{
			bot: &Bot{
				Name:     botName(i),
				Side:     SideTeam,
				Position: starts[i],
				Heading:  math.Pi / 2,
				Energy:   StartEnergy,
				GunHeat:  StartGunHeat,
			},
		}
		if bus == nil {
			m.loop = opts.Loops[i]
			a.members = append(a.members, m)
			continue
		}
		id := ids[i]
		m.link = NewInprocLink(bus, id)
		a.closed = append(a.closed, func() { bus.Unregister(id) })
		agent, err := application.NewAgent(application.Config{
			ID:          id,
			Broadcaster: m.link,
			Tuning:      opts.Tuning,
			Logger:      logger.With("bot", m.bot.Name),
		})
		if err != nil {
			return nil, fmt.Errorf("arena: %w", err)
		}
		m.agent = agent
		a.members = append(a.members, m)
	}
	a.opponent = &Bot{
		Name:     "opponent",
		Side:     SideOpponent,
		Position: orb.Point{f.Width * 0.8, f.Height / 2},
		Heading:  3 * math.Pi / 2,
		Energy:   StartEnergy,
		GunHeat:  StartGunHeat,
	}
	a.ruleBot = NewRuleBotController(rng, f.Footprint)
	return a, nil
}

func botName(i int) string {
	return fmt.Sprintf("agent-%d", i+1)
}

// Bots はフィールド上の全ボットを返します。
func (a *Arena) Bots() []*Bot {
	bots := make([]*Bot, 0, len(a.members)+1)
	for _, m := range a.members {
		bots = append(bots, m.bot)
	}
	return append(bots, a.opponent)
}

// Run は最大 n tick 進めます。どちらかの陣営が全滅したら早く終わります。
func (a *Arena) Run(ctx context.Context, n int64) (Result, error) {
	defer a.close()
	for range n {
		if err := ctx.Err(); err != nil {
			return a.result(), err
		}
		a.Step(ctx)
		if _, done := a.winner(); done {
			break
		}
	}
	res := a.result()
	a.logger.InfoContext(ctx, "arena finished",
		"ticks", res.Ticks,
		"finished", res.Finished,
		"winner", res.Winner,
		"hits", res.Hits,
	)
	return res, nil
}

// Step は1 tick 進めます。
func (a *Arena) Step(ctx context.Context) {
	a.tick++
	for _, m := range a.members {
		if m.bot.IsAlive() {
			a.think(ctx, m)
		}
	}
	if a.opponent.IsAlive() {
		cmd := a.ruleBot.Decide(a.opponent, a.Bots(), a.bullets, a.field)
		a.opponent.Apply(cmd, true)
		if cmd.Fire {
			a.fire(a.opponent, cmd.FirePower)
		}
	}
	a.physics(ctx)
}

// think はエージェント1体にこの tick のイベントを順に渡します。
func (a *Arena) think(ctx context.Context, m *member) {
	status := m.bot.Status(a.field, a.tick)
	step := func(ev application.Event) application.Outcome {
		return m.step(ctx, a.logger, status, ev)
	}

	for _, r := range m.drain(ctx) {
		step(application.MessageReceived(r))
	}

	if a.skipRate > 0 && a.rng.Float64() < a.skipRate {
		m.collisions = m.collisions[:0]
		step(application.TickSkipped())
		return
	}

	for _, c := range m.collisions {
		if out := step(application.Collided(c)); slices.Contains(out.Phases, application.PhaseMovementIssued) {
			m.bot.Apply(out.Command, true)
		}
	}
	m.collisions = m.collisions[:0]

	for _, other := range a.members {
		if other != m && other.bot.IsAlive() {
			step(application.Observed(m.bot.Observe(other.bot, domain.EntityTeammate)))
		}
	}
	if !a.opponent.IsAlive() {
		return
	}
	out := step(application.Observed(m.bot.Observe(a.opponent, domain.EntityOpponent)))
	m.bot.Apply(out.Command, out.Waypoint.Moves())
	if out.Command.Fire {
		a.fire(m.bot, out.Command.FirePower)
	}
}

func (a *Arena) fire(b *Bot, power float64) {
	if bullet, ok := b.fire(power); ok {
		a.bullets = append(a.bullets, bullet)
	}
}

// physics は移動・接触・弾丸・砲身の冷却を1 tick 分進めます。
func (a *Arena) physics(ctx context.Context) {
	bots := a.Bots()
	for _, b := range bots {
		if b.IsAlive() {
			b.move(a.field)
		}
	}
	a.resolveRams(bots)

	live := a.bullets[:0]
	for _, bullet := range a.bullets {
		if !bullet.advance(a.field) {
			continue
		}
		if hit, ok := a.hit(bullet, bots); ok {
			a.hits++
			a.logger.DebugContext(ctx, "bullet hit",
				"tick", a.tick,
				"attacker", hit.Attacker.Name,
				"victim", hit.Victim.Name,
				"damage", hit.Damage,
			)
			continue
		}
		live = append(live, bullet)
	}
	a.bullets = live

	for _, b := range bots {
		b.coolGun()
	}
}

func (a *Arena) hit(bullet Bullet, bots []*Bot) (HitEvent, bool) {
	for _, victim := range bots {
		if !bullet.hits(victim, a.field.Footprint) {
			continue
		}
		damage := application.BulletDamage(bullet.Power)
		victim.Energy = math.Max(0, victim.Energy-damage)
		if bullet.Owner.IsAlive() {
			bullet.Owner.Energy += 3 * bullet.Power
		}
		if !victim.IsAlive() {
			victim.stop()
		}
		return HitEvent{Attacker: bullet.Owner, Victim: victim, Damage: damage}, true
	}
	return HitEvent{}, false
}

// resolveRams は重なったボットを止めて引き離し、エージェントに接触を知らせます。
func (a *Arena) resolveRams(bots []*Bot) {
	for i, p := range bots {
		for _, q := range bots[i+1:] {
			if !p.IsAlive() || !q.IsAlive() {
				continue
			}
			dist := geom.Distance(p.Position, q.Position)
			if dist >= a.field.Footprint {
				continue
			}
			a.rams++
			p.stop()
			q.stop()
			p.Energy = math.Max(0, p.Energy-RamDamage)
			q.Energy = math.Max(0, q.Energy-RamDamage)

			dir := geom.Bearing(p.Position, q.Position)
			if dist == 0 {
				dir = p.Heading
			}
			push := (a.field.Footprint - dist) / 2
			p.Position = geom.Clamp(geom.Project(p.Position, dir, -push), a.field.Bound(), a.field.Footprint/2)
			q.Position = geom.Clamp(geom.Project(q.Position, dir, push), a.field.Bound(), a.field.Footprint/2)

			a.notifyRam(p, q)
			a.notifyRam(q, p)
		}
	}
}

func (a *Arena) notifyRam(self, other *Bot) {
	for _, m := range a.members {
		if m.bot != self {
			continue
		}
		entity := domain.EntityOpponent
		if other.Side == self.Side {
			entity = domain.EntityTeammate
		}
		m.collisions = append(m.collisions, application.Collision{
			Entity:  entity,
			Bearing: geom.NormalRelativeAngle(geom.Bearing(self.Position, other.Position) - self.Heading),
		})
	}
}

func (a *Arena) winner() (Side, bool) {
	if !a.opponent.IsAlive() {
		return SideTeam, true
	}
	for _, m := range a.members {
		if m.bot.IsAlive() {
			return 0, false
		}
	}
	return SideOpponent, true
}

func (a *Arena) result() Result {
	res := Result{
		Ticks:    a.tick,
		Energies: make(map[string]float64),
		Stats:    make(map[string]application.Stats),
		Hits:     a.hits,
		Rams:     a.rams,
	}
	res.Winner, res.Finished = a.winner()
	for _, b := range a.Bots() {
		res.Energies[b.Name] = b.Energy
	}
	for _, m := range a.members {
		res.Stats[m.bot.Name] = m.current().Stats
	}
	return res
}

func (a *Arena) close() {
	for _, fn := range a.closed {
		fn()
	}
	a.closed = nil
}

var ErrUnknownAgent = errors.New("arena: unknown agent")

// State は name のエージェントが持つ現在の State を返します。
func (a *Arena) State(name string) (application.State, error) {
	for _, m := range a.members {
		if m.bot.Name == name {
			return m.current(), nil
		}
	}
	return application.State{}, fmt.Errorf("%w %q", ErrUnknownAgent, name)
}
