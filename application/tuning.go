package application

const (
	MinFirePower = 0.1
	MaxFirePower = 3.0
)

// Tuning はエージェントの調整値です。ゼロ値のフィールドは既定値で埋めます。
type Tuning struct {
	FreshnessWindow int64
	FirePower       float64
	FireRange       float64
	RadarGain       float64
}

func DefaultTuning() Tuning {
	return Tuning{
		FreshnessWindow: DefaultFreshnessWindow,
		FirePower:       DefaultFirePower,
		FireRange:       DefaultFireRange,
		RadarGain:       DefaultRadarGain,
	}
}

func (t Tuning) withDefaults() Tuning {
	d := DefaultTuning()
	if t.FreshnessWindow <= 0 {
		t.FreshnessWindow = d.FreshnessWindow
	}
	if t.FirePower <= 0 {
		t.FirePower = d.FirePower
	}
	t.FirePower = min(max(t.FirePower, MinFirePower), MaxFirePower)
	if t.FireRange <= 0 {
		t.FireRange = d.FireRange
	}
	if t.RadarGain <= 0 {
		t.RadarGain = d.RadarGain
	}
	return t
}
