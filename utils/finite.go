package utils

import (
	"math"

	"github.com/paulmach/orb"
)

// FinitePoint は座標がどちらも NaN・無限大でないかを返します。
func FinitePoint(p orb.Point) bool {
	return IsFinite(p[0]) && IsFinite(p[1])
}

func IsFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
