package arena

import (
	"github.com/paulmach/orb"

	"tandem/application"
	"tandem/geom"
)

// Bullet はフィールド上の弾丸です。
type Bullet struct {
	Owner    *Bot
	Position orb.Point
	Heading  float64
	Power    float64
}

// HitEvent は弾丸がボットに命中したイベントです。
type HitEvent struct {
	Attacker *Bot
	Victim   *Bot
	Damage   float64
}

// advance は弾を1 tick 進めます。フィールド外に出たら false を返します。
func (b *Bullet) advance(f Field) bool {
	b.Position = geom.Project(b.Position, b.Heading, application.BulletSpeed(b.Power))
	return f.Bound().Contains(b.Position)
}

// hits は弾が victim の当たり判定 (footprint の半径) 内にあるかを返します。
func (b *Bullet) hits(victim *Bot, footprint float64) bool {
	return victim != b.Owner && victim.IsAlive() &&
		geom.Distance(b.Position, victim.Position) <= footprint/2
}
