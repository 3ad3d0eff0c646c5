package domain

import "github.com/paulmach/orb"

// Sample はある tick における1エンティティの観測値です。
// 値として受け渡し、生成後に書き換えることはありません。
type Sample struct {
	Position   orb.Point
	Energy     float64
	Heading    float64 // HasHeading が false のときは意味を持たない
	HasHeading bool
	Velocity   float64
	Tick       int64
}

// Goal はチームの集合点 (側面目標) です。Tick の新しい方が常に勝ちます。
type Goal struct {
	Point orb.Point
	Tick  int64
}

// ReportKind は Report の種別です。PayloadHeader の SubType にそのまま使います。
type ReportKind uint8

const (
	ReportSelfPosition     ReportKind = 1
	ReportOpponentPosition ReportKind = 2
	ReportGoal             ReportKind = 3
)

func (k ReportKind) String() string {
	switch k {
	case ReportSelfPosition:
		return "self_position"
	case ReportOpponentPosition:
		return "opponent_position"
	case ReportGoal:
		return "goal"
	default:
		return "unknown"
	}
}

// Report はチームメイト間で交換するメッセージです。
// Kind が Goal のときは Goal が、それ以外のときは Sample が有効です。
type Report struct {
	Kind   ReportKind
	Sample Sample
	Goal   Goal
}

func SelfPositionReport(s Sample) Report {
	return Report{Kind: ReportSelfPosition, Sample: s}
}

func OpponentPositionReport(s Sample) Report {
	return Report{Kind: ReportOpponentPosition, Sample: s}
}

func GoalReport(g Goal) Report {
	return Report{Kind: ReportGoal, Goal: g}
}

// Tick はペイロードが持つ tick を返します。
func (r Report) Tick() int64 {
	if r.Kind == ReportGoal {
		return r.Goal.Tick
	}
	return r.Sample.Tick
}
