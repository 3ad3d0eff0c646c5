package arena

import (
	"math"

	"github.com/paulmach/orb"

	"tandem/application"
	"tandem/domain"
	"tandem/geom"
)

const (
	MaxSpeed     = 8.0
	Acceleration = 1.0
	Deceleration = 2.0
	StartEnergy  = 100.0
	// StartGunHeat は開始直後に撃てない時間を作ります。
	StartGunHeat = 3.0
	GunCooling   = 0.1
	// RamDamage は接触1回あたり双方が失うエネルギーです。
	RamDamage = 0.6
)

var (
	maxGunTurn   = 20 * math.Pi / 180
	maxRadarTurn = 45 * math.Pi / 180
)

// maxBodyTurn は速度に応じた1 tick あたりの車体の最大旋回量です。
func maxBodyTurn(velocity float64) float64 {
	return (10 - 0.75*math.Abs(velocity)) * math.Pi / 180
}

// Side はボットの所属です。
type Side uint8

const (
	SideTeam Side = iota
	SideOpponent
)

func (s Side) String() string {
	switch s {
	case SideTeam:
		return "team"
	case SideOpponent:
		return "opponent"
	default:
		return "unknown"
	}
}

// Bot はフィールド上の1体です。
type Bot struct {
	Name         string
	Side         Side
	Position     orb.Point
	Heading      float64
	GunHeading   float64
	RadarHeading float64
	Velocity     float64
	Energy       float64
	GunHeat      float64

	// 前回のコマンドの残り。新しいコマンドが来るまで消化し続けます。
	turnRemaining     float64
	distanceRemaining float64
	gunRemaining      float64
	radarRemaining    float64
}

func (b *Bot) IsAlive() bool {
	return b.Energy > 0
}

// Status はエージェントに渡す自機の状態です。
func (b *Bot) Status(f Field, tick int64) domain.SelfStatus {
	return domain.SelfStatus{
		Position:     b.Position,
		Heading:      b.Heading,
		Velocity:     b.Velocity,
		GunHeading:   b.GunHeading,
		RadarHeading: b.RadarHeading,
		Energy:       b.Energy,
		GunHeat:      b.GunHeat,
		Footprint:    f.Footprint,
		Arena:        f.Bound(),
		Tick:         tick,
	}
}

// Observe は b から other を見たときの観測です。
func (b *Bot) Observe(other *Bot, entity domain.EntityKind) domain.Observation {
	return domain.Observation{
		Entity:   entity,
		Name:     other.Name,
		Bearing:  geom.NormalRelativeAngle(geom.Bearing(b.Position, other.Position) - b.Heading),
		Distance: geom.Distance(b.Position, other.Position),
		Velocity: other.Velocity,
		Heading:  other.Heading,
		Energy:   other.Energy,
	}
}

// Apply はコマンドの移動・旋回部分を残量として設定します。
// movement が false のときは車体をその場で止め、前回の移動の残りも捨てます。
func (b *Bot) Apply(cmd domain.Command, movement bool) {
	if movement {
		b.turnRemaining = cmd.BodyTurn
		b.distanceRemaining = cmd.Ahead
	} else {
		b.stop()
		b.turnRemaining = 0
	}
	b.gunRemaining = cmd.GunTurn
	b.radarRemaining = cmd.RadarTurn
}

// move は1 tick 分の旋回と移動を進めます。壁に当たったら true を返します。
func (b *Bot) move(f Field) bool {
	turn := clampAbs(b.turnRemaining, maxBodyTurn(b.Velocity))
	b.Heading = geom.NormalAbsoluteAngle(b.Heading + turn)
	b.turnRemaining -= turn

	gun := clampAbs(b.gunRemaining, maxGunTurn)
	b.GunHeading = geom.NormalAbsoluteAngle(b.GunHeading + gun)
	b.gunRemaining -= gun

	radar := clampAbs(b.radarRemaining, maxRadarTurn)
	b.RadarHeading = geom.NormalAbsoluteAngle(b.RadarHeading + radar)
	b.radarRemaining -= radar

	b.Velocity = nextVelocity(b.Velocity, b.distanceRemaining)
	next := geom.Project(b.Position, b.Heading, b.Velocity)
	b.distanceRemaining -= b.Velocity

	clamped := geom.Clamp(next, f.Bound(), f.Footprint/2)
	b.Position = clamped
	if clamped != next {
		b.Velocity = 0
		b.distanceRemaining = 0
		return true
	}
	return false
}

// stop は接触などで動きを止めます。
func (b *Bot) stop() {
	b.Velocity = 0
	b.distanceRemaining = 0
}

func (b *Bot) coolGun() {
	b.GunHeat = math.Max(0, b.GunHeat-GunCooling)
}

// fire は撃てるときだけ弾を作ります。
func (b *Bot) fire(power float64) (Bullet, bool) {
	if b.GunHeat > 0 || b.Energy <= power {
		return Bullet{}, false
	}
	power = math.Min(math.Max(power, application.MinFirePower), application.MaxFirePower)
	b.Energy -= power
	b.GunHeat = application.GunHeat(power)
	return Bullet{
		Owner:    b,
		Position: b.Position,
		Heading:  b.GunHeading,
		Power:    power,
	}, true
}

// nextVelocity は残り距離に向けて加減速した次の速度です。
func nextVelocity(v, remaining float64) float64 {
	target := clampAbs(remaining, MaxSpeed)
	switch {
	case v == target:
		return v
	case (v >= 0 && target > v) || (v <= 0 && target < v):
		// 同じ向きに加速
		return stepToward(v, target, Acceleration)
	default:
		return stepToward(v, target, Deceleration)
	}
}

func stepToward(v, target, step float64) float64 {
	if v < target {
		return math.Min(v+step, target)
	}
	return math.Max(v-step, target)
}

func clampAbs(v, limit float64) float64 {
	return math.Max(-limit, math.Min(limit, v))
}
