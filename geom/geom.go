// Package geom はアリーナ座標系の平面幾何ヘルパーです。
//
// 方位はコンパス方式で扱います: 0 が +Y 方向、時計回りが正。
// heading h に距離 d 進むと (d·sin h, d·cos h) だけ移動します。
package geom

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Distance は2点間のユークリッド距離を返します。
func Distance(a, b orb.Point) float64 {
	return planar.Distance(a, b)
}

// DistanceSquared は2点間の距離の2乗を返します。
func DistanceSquared(a, b orb.Point) float64 {
	return planar.DistanceSquared(a, b)
}

// Project は p から heading 方向に dist だけ進んだ点を返します。
func Project(p orb.Point, heading, dist float64) orb.Point {
	return orb.Point{
		p[0] + math.Sin(heading)*dist,
		p[1] + math.Cos(heading)*dist,
	}
}

// Bearing は from から to を見た絶対方位を返します。
func Bearing(from, to orb.Point) float64 {
	return math.Atan2(to[0]-from[0], to[1]-from[1])
}

// Lerp は a と b を t の割合で線形補間します。t=0 で a、t=1 で b。
func Lerp(a, b orb.Point, t float64) orb.Point {
	return orb.Point{
		(1-t)*a[0] + t*b[0],
		(1-t)*a[1] + t*b[1],
	}
}

func Add(a, b orb.Point) orb.Point {
	return orb.Point{a[0] + b[0], a[1] + b[1]}
}

func Sub(a, b orb.Point) orb.Point {
	return orb.Point{a[0] - b[0], a[1] - b[1]}
}

func Scale(v orb.Point, k float64) orb.Point {
	return orb.Point{v[0] * k, v[1] * k}
}

// Perpendicular は v を 90 度回転したベクトル (-y, x) を返します。
func Perpendicular(v orb.Point) orb.Point {
	return orb.Point{-v[1], v[0]}
}

// Arena は原点を左下とする w×h のフィールド境界を返します。
func Arena(width, height float64) orb.Bound {
	return orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{width, height}}
}

// Clamp は p を境界から margin だけ内側の領域に収めます。
// 内側の領域が潰れている軸は中央に寄せます。
func Clamp(p orb.Point, b orb.Bound, margin float64) orb.Point {
	inner := b.Pad(-margin)
	return orb.Point{
		clampAxis(p[0], inner.Min[0], inner.Max[0]),
		clampAxis(p[1], inner.Min[1], inner.Max[1]),
	}
}

func clampAxis(v, lo, hi float64) float64 {
	if lo > hi {
		return (lo + hi) / 2
	}
	return math.Min(math.Max(v, lo), hi)
}

// NormalRelativeAngle は角度を (-π, π] に正規化します。
func NormalRelativeAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a <= -math.Pi {
		a += 2 * math.Pi
	} else if a > math.Pi {
		a -= 2 * math.Pi
	}
	return a
}

// NormalAbsoluteAngle は角度を [0, 2π) に正規化します。
func NormalAbsoluteAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a
}
