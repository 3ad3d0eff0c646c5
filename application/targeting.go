package application

import (
	"math"

	"tandem/domain"
	"tandem/geom"
)

const (
	DefaultFirePower = 3.0
	DefaultFireRange = 150.0
	DefaultRadarGain = 1.95
)

// BulletSpeed は発射パワーに対する弾速です。照準計算と発射で同じパワーを使う必要があります。
func BulletSpeed(power float64) float64 {
	return 20 - 3*power
}

// BulletDamage は命中時のダメージです。
func BulletDamage(power float64) float64 {
	damage := 4 * power
	if power > 1 {
		damage += 2 * (power - 1)
	}
	return damage
}

// GunHeat は発射直後に加算される砲身の熱量です。
func GunHeat(power float64) float64 {
	return 1 + power/5
}

// Aim はレーダー・砲塔の回転量と発射判定の結果です。
type Aim struct {
	RadarTurn float64
	GunTurn   float64
	Fire      bool
	Power     float64
}

// RadarLock は最後に見えた方位へレーダーを gain 倍で振り戻す回転量を返します。
// 1 より大きい gain で相手を少し通り過ぎるように振るので、動く相手を見失いません。
func RadarLock(self domain.SelfStatus, obs domain.Observation, gain float64) float64 {
	return gain * geom.NormalRelativeAngle(self.Heading+obs.Bearing-self.RadarHeading)
}

// LeadBearing は線形予測照準で狙うべき絶対方位を返します。
func LeadBearing(self domain.SelfStatus, obs domain.Observation, power float64) float64 {
	headOn := self.Heading + obs.Bearing
	ratio := obs.Velocity / BulletSpeed(power) * math.Sin(obs.Heading-headOn)
	return headOn + math.Asin(math.Max(-1, math.Min(1, ratio)))
}

// AimAt は観測した相手に対するレーダー・砲塔・発射の判断をまとめて返します。
func AimAt(self domain.SelfStatus, obs domain.Observation, t Tuning) Aim {
	return Aim{
		RadarTurn: RadarLock(self, obs, t.RadarGain),
		GunTurn:   geom.NormalRelativeAngle(LeadBearing(self, obs, t.FirePower) - self.GunHeading),
		Fire:      obs.Distance < t.FireRange && self.GunHeat == 0,
		Power:     t.FirePower,
	}
}
