package application

import (
	"github.com/paulmach/orb"

	"tandem/domain"
	"tandem/geom"
)

const (
	// ClearanceFactor × 自機の幅だけ手前で敵への接近を止めます。
	ClearanceFactor = 2.0
	// CollisionFactor × 自機の幅以内にチームメイトがいるとアシスタントは動きません。
	CollisionFactor = 2.5
	// SafeMarginFactor × 自機の幅だけ壁から離れた領域に側面目標を収めます。
	SafeMarginFactor = 2.0
	// FlankOffsetGain は (goal − 敵) を90度回したベクトルに掛ける倍率です。
	FlankOffsetGain = 1.0
)

type WaypointKind uint8

const (
	WaypointHold     WaypointKind = iota // 敵が近い、または敵の情報がない
	WaypointApproach                     // リーダー: 敵へ接近
	WaypointFlank                        // アシスタント: 側面へ回り込む
	WaypointYield                        // アシスタント: チームメイトと近すぎるので停止
)

func (k WaypointKind) String() string {
	switch k {
	case WaypointHold:
		return "hold"
	case WaypointApproach:
		return "approach"
	case WaypointFlank:
		return "flank"
	case WaypointYield:
		return "yield"
	default:
		return "unknown"
	}
}

type Waypoint struct {
	Target orb.Point
	Kind   WaypointKind
}

// Moves はこの waypoint に向かって移動するかどうかを返します。
func (w Waypoint) Moves() bool {
	return w.Kind == WaypointApproach || w.Kind == WaypointFlank
}

// Plan は役割に応じた次の移動目標を返します。
// 敵の位置は現在 tick への予測値 (フィールド内にクランプ) を使います。
func Plan(st State, self domain.SelfStatus, role Role) Waypoint {
	hold := Waypoint{Target: self.Position, Kind: WaypointHold}

	pred, ok := Predict(st.Opponent, self.Tick)
	if !ok {
		return hold
	}
	opponent := geom.Clamp(pred.Position, self.Arena, self.Footprint/2)

	if role == RoleAssistant {
		if mate, ok := st.Teammate.Latest(); ok &&
			geom.Distance(self.Position, mate.Position) <= self.Footprint*CollisionFactor {
			return Waypoint{Target: self.Position, Kind: WaypointYield}
		}
		if !st.HasGoal {
			return hold
		}
		return PlanAssistant(self, opponent, st.Goal.Point)
	}
	return PlanLeader(self, opponent)
}

// PlanLeader は敵との間にクリアランスを残した接近点を返します。
func PlanLeader(self domain.SelfStatus, opponent orb.Point) Waypoint {
	clearance := self.Footprint * ClearanceFactor
	dist := geom.Distance(self.Position, opponent)
	if dist <= clearance {
		return Waypoint{Target: self.Position, Kind: WaypointHold}
	}
	return Waypoint{
		Target: geom.Lerp(self.Position, opponent, (dist-clearance)/dist),
		Kind:   WaypointApproach,
	}
}

// PlanAssistant は2つの側面候補のうち自機に近い方を返します。同距離なら1つ目。
func PlanAssistant(self domain.SelfStatus, opponent, goal orb.Point) Waypoint {
	p1, p2 := FlankCandidates(opponent, goal, self.Arena, self.Footprint*SafeMarginFactor)
	target := p2
	if geom.Distance(p1, self.Position) <= geom.Distance(p2, self.Position) {
		target = p1
	}
	return Waypoint{Target: target, Kind: WaypointFlank}
}

// FlankCandidates は敵を中心に (goal − 敵) を ±90度回した2点を、
// 壁から margin 離した領域にクランプして返します。
func FlankCandidates(opponent, goal orb.Point, arena orb.Bound, margin float64) (orb.Point, orb.Point) {
	offset := geom.Scale(geom.Perpendicular(geom.Sub(goal, opponent)), FlankOffsetGain)
	p1 := geom.Clamp(geom.Add(opponent, offset), arena, margin)
	p2 := geom.Clamp(geom.Sub(opponent, offset), arena, margin)
	return p1, p2
}
