package application

import (
	"math"

	"github.com/paulmach/orb"

	"tandem/domain"
	"tandem/geom"
)

// CollisionBackoff は体当たりを受けたときに離れる距離です。
const CollisionBackoff = 50.0

// Drive は target へ向かう車体の回転量と前進量を返します。
// 目標が背後にあるときは向きを変えずに後退で向かいます。
func Drive(self domain.SelfStatus, target orb.Point) (turn, ahead float64) {
	dist := geom.Distance(self.Position, target)
	if dist == 0 {
		return 0, 0
	}
	angle := geom.NormalRelativeAngle(geom.Bearing(self.Position, target) - self.Heading)
	return math.Atan(math.Tan(angle)), dist * math.Cos(angle)
}

// Collision はアリーナから届く接触イベントです。Bearing は自機の向きからの相対角。
type Collision struct {
	Entity  domain.EntityKind
	Bearing float64
}

// Backoff は接触相手から離れる前進量を返します。相手が前方なら後退、後方なら前進。
func Backoff(c Collision) float64 {
	b := geom.NormalRelativeAngle(c.Bearing)
	if b > -math.Pi/2 && b <= math.Pi/2 {
		return -CollisionBackoff
	}
	return CollisionBackoff
}
