package arena

import (
	"math"
	"math/rand/v2"

	"github.com/paulmach/orb"

	"tandem/application"
	"tandem/domain"
	"tandem/geom"
)

const (
	botNoiseAngle = 0.52 // ±30度
	rushChance    = 0.02 // 毎tick 2% の確率で突撃
	botStepLength = 100.0
	botFirePower  = 2.0
	botFireRange  = 300.0
)

// RuleBotController は敵役のルールベース AI です。
// 距離に応じて後退・ストレイフ・接近を切り替え、正面撃ちで撃ちます。
type RuleBotController struct {
	CloseRange float64 // 後退を始める距離
	MidRange   float64 // ストレイフを始める距離
	StrafeSign float64 // +1: 時計回り, -1: 反時計回り

	rng *rand.Rand
}

// NewRuleBotController は rng で個性を決めたボット AI を生成します。
func NewRuleBotController(rng *rand.Rand, footprint float64) *RuleBotController {
	strafeSign := 1.0
	if rng.Float64() < 0.5 {
		strafeSign = -1.0
	}
	return &RuleBotController{
		CloseRange: footprint * (3 + rng.Float64()*2), // 3〜5 体分
		MidRange:   footprint * (6 + rng.Float64()*4), // 6〜10 体分
		StrafeSign: strafeSign,
		rng:        rng,
	}
}

func (r *RuleBotController) Decide(self *Bot, bots []*Bot, bullets []Bullet, f Field) domain.Command {
	target, ok := r.findNearestEnemy(self, bots)
	if !ok {
		return domain.Command{}
	}

	var cmd domain.Command
	headOn := geom.Bearing(self.Position, target.Position)
	dist := geom.Distance(self.Position, target.Position)
	cmd.GunTurn = geom.NormalRelativeAngle(headOn - self.GunHeading)
	if dist < botFireRange && self.GunHeat == 0 {
		cmd.Fire = true
		cmd.FirePower = botFirePower
	}

	dir, ok := r.evadeBullet(self, bullets, f.Footprint)
	if !ok {
		dir = r.approachDirection(self.Position, target.Position, dist)
	}
	if dir == (orb.Point{}) {
		return cmd
	}
	dest := geom.Add(self.Position, geom.Scale(addNoise(r.rng, dir), botStepLength))
	cmd.BodyTurn, cmd.Ahead = application.Drive(self.Status(f, 0), geom.Clamp(dest, f.Bound(), f.Footprint))
	return cmd
}

// approachDirection は距離帯ごとの移動方向 (単位ベクトル) です。
func (r *RuleBotController) approachDirection(self, target orb.Point, dist float64) orb.Point {
	if dist < 0.001 {
		return orb.Point{}
	}
	n := geom.Scale(geom.Sub(target, self), 1/dist)

	// ランダム突撃: 一定確率で距離に関係なく接近
	if r.rng.Float64() < rushChance {
		return n
	}
	switch {
	case dist < r.CloseRange:
		return geom.Scale(n, -1)
	case dist < r.MidRange:
		return geom.Scale(geom.Perpendicular(n), r.StrafeSign)
	default:
		return n
	}
}

// evadeBullet は自分に向かってくる近い弾丸を、その進行方向に垂直に避ける方向を返します。
func (r *RuleBotController) evadeBullet(self *Bot, bullets []Bullet, footprint float64) (orb.Point, bool) {
	danger := footprint * 3
	closest := math.MaxFloat64
	var dir orb.Point
	found := false

	for _, b := range bullets {
		if b.Owner == self {
			continue
		}
		dist := geom.Distance(self.Position, b.Position)
		if dist > danger {
			continue
		}
		// 弾丸が自分に向かっているか確認（内積 > 0）
		toSelf := geom.Sub(self.Position, b.Position)
		v := geom.Project(orb.Point{}, b.Heading, 1)
		if toSelf[0]*v[0]+toSelf[1]*v[1] <= 0 {
			continue
		}
		if dist < closest {
			closest = dist
			dir = geom.Perpendicular(v)
			found = true
		}
	}
	return dir, found
}

// findNearestEnemy は最寄りの生存している相手陣営のボットを探します。
func (r *RuleBotController) findNearestEnemy(self *Bot, bots []*Bot) (*Bot, bool) {
	var nearest *Bot
	nearestDistSq := math.MaxFloat64
	for _, other := range bots {
		if other == self || other.Side == self.Side || !other.IsAlive() {
			continue
		}
		if d := geom.DistanceSquared(self.Position, other.Position); d < nearestDistSq {
			nearestDistSq = d
			nearest = other
		}
	}
	return nearest, nearest != nil
}

// addNoise は移動方向に ±30度 のランダムノイズを加えます。
func addNoise(rng *rand.Rand, dir orb.Point) orb.Point {
	noise := (rng.Float64()*2 - 1) * botNoiseAngle
	cos, sin := math.Cos(noise), math.Sin(noise)
	return orb.Point{
		dir[0]*cos - dir[1]*sin,
		dir[0]*sin + dir[1]*cos,
	}
}
