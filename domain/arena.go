package domain

import "github.com/paulmach/orb"

// EntityKind は観測された相手がチームメイトか敵かを表します。
type EntityKind uint8

const (
	EntityOpponent EntityKind = iota
	EntityTeammate
)

func (k EntityKind) String() string {
	switch k {
	case EntityOpponent:
		return "opponent"
	case EntityTeammate:
		return "teammate"
	default:
		return "unknown"
	}
}

// Observation はアリーナから届く1回分の目視イベントです。
// Bearing は自機の向きからの相対角、Heading は相手の絶対方位です。
type Observation struct {
	Entity   EntityKind
	Name     string
	Bearing  float64
	Distance float64
	Velocity float64
	Heading  float64
	Energy   float64
}

// SelfStatus はアリーナが tick ごとに渡す自機の状態です。
type SelfStatus struct {
	Position     orb.Point
	Heading      float64
	Velocity     float64
	GunHeading   float64
	RadarHeading float64
	Energy       float64
	GunHeat      float64
	Footprint    float64 // 自機の幅 (正方形とみなす)
	Arena        orb.Bound
	Tick         int64
}

// Command は1 tick 分の出力です。角度はすべて相対回転量 (時計回り正)。
type Command struct {
	BodyTurn  float64
	Ahead     float64
	GunTurn   float64
	RadarTurn float64
	Fire      bool
	FirePower float64
}

// IsZero は何もしないコマンドかどうかを返します。
func (c Command) IsZero() bool {
	return c == Command{}
}
