package application

import (
	"math"

	"github.com/paulmach/orb"

	"tandem/geom"
)

// TurnThreshold を超える旋回量 (rad/観測) のときは円運動とみなします。
const TurnThreshold = 1e-5

// PredictionMode は予測に使ったモデルです。
type PredictionMode uint8

const (
	PredictStatic PredictionMode = iota // 観測が1つしかなく、最後の位置をそのまま返す
	PredictLinear
	PredictCircular
)

func (m PredictionMode) String() string {
	switch m {
	case PredictStatic:
		return "static"
	case PredictLinear:
		return "linear"
	case PredictCircular:
		return "circular"
	default:
		return "unknown"
	}
}

type Prediction struct {
	Position orb.Point
	Mode     PredictionMode
}

// Predict は直近2つの観測から tick 時点の位置を外挿します。
//
// speed は2点間の距離の2乗を tick 差で割った値です。単位は距離ではなく距離の2乗/tick です。
// 旋回量は2つの heading の差 (tick 差では割らない) です。
func Predict(h History, tick int64) (Prediction, bool) {
	latest, ok := h.Latest()
	if !ok {
		return Prediction{}, false
	}
	prev, ok := h.Previous()
	if !ok {
		return Prediction{Position: latest.Position, Mode: PredictStatic}, true
	}

	gap := float64(latest.Tick - prev.Tick)
	speed := geom.DistanceSquared(latest.Position, prev.Position) / gap

	var turn float64
	if latest.HasHeading && prev.HasHeading {
		turn = geom.NormalRelativeAngle(latest.Heading - prev.Heading)
	}

	heading := latest.Heading
	if !latest.HasHeading {
		heading = geom.Bearing(prev.Position, latest.Position)
	}

	dt := float64(tick - latest.Tick)

	if math.Abs(turn) > TurnThreshold {
		radius := speed / turn
		end := heading + turn*dt
		return Prediction{
			Position: orb.Point{
				latest.Position[0] + radius*(math.Cos(heading)-math.Cos(end)),
				latest.Position[1] + radius*(math.Sin(end)-math.Sin(heading)),
			},
			Mode: PredictCircular,
		}, true
	}

	return Prediction{
		Position: geom.Project(latest.Position, heading, speed*dt),
		Mode:     PredictLinear,
	}, true
}
