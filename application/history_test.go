package application

import (
	"testing"

	"github.com/paulmach/orb"
	"pgregory.net/rapid"

	"tandem/domain"
)

func sampleAt(tick int64, x, y float64) domain.Sample {
	return domain.Sample{Position: orb.Point{x, y}, Tick: tick}
}

func TestHistory_Empty(t *testing.T) {
	var h History
	if _, ok := h.Latest(); ok {
		t.Error("Latest on empty history should report absent")
	}
	if _, ok := h.Previous(); ok {
		t.Error("Previous on empty history should report absent")
	}
	if h.Len() != 0 {
		t.Errorf("Len = %d, want 0", h.Len())
	}
}

func TestHistory_RecordOrder(t *testing.T) {
	var h History
	h.Record(sampleAt(1, 10, 10))
	h.Record(sampleAt(2, 20, 20))

	latest, _ := h.Latest()
	prev, _ := h.Previous()
	if latest.Tick != 2 {
		t.Errorf("Latest.Tick = %d, want 2", latest.Tick)
	}
	if prev.Tick != 1 {
		t.Errorf("Previous.Tick = %d, want 1", prev.Tick)
	}
}

func TestHistory_RejectsStale(t *testing.T) {
	var h History
	h.Record(sampleAt(5, 1, 1))

	if h.Record(sampleAt(5, 2, 2)) {
		t.Error("Record with equal tick should be rejected")
	}
	if h.Record(sampleAt(3, 3, 3)) {
		t.Error("Record with older tick should be rejected")
	}
	latest, _ := h.Latest()
	if latest.Position != (orb.Point{1, 1}) {
		t.Errorf("Latest.Position = %v, want [1 1]", latest.Position)
	}
	if h.Len() != 1 {
		t.Errorf("Len = %d, want 1", h.Len())
	}
}

func TestHistory_CopyIsIndependent(t *testing.T) {
	var h History
	h.Record(sampleAt(1, 0, 0))
	cp := h
	cp.Record(sampleAt(2, 5, 5))

	if h.Len() != 1 {
		t.Errorf("original Len = %d, want 1", h.Len())
	}
	if cp.Len() != 2 {
		t.Errorf("copy Len = %d, want 2", cp.Len())
	}
}

func TestHistory_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ticks := rapid.SliceOf(rapid.Int64Range(-5, 50)).Draw(t, "ticks")

		var h History
		var head int64
		has := false
		for _, tick := range ticks {
			accepted := h.Record(sampleAt(tick, float64(tick), 0))
			want := !has || tick > head
			if accepted != want {
				t.Fatalf("Record(%d) = %v, want %v (head %d)", tick, accepted, want, head)
			}
			if accepted {
				head = tick
				has = true
			}
		}

		if h.Len() > HistoryCapacity {
			t.Fatalf("Len = %d exceeds capacity %d", h.Len(), HistoryCapacity)
		}
		samples := h.Samples()
		for i := 1; i < len(samples); i++ {
			if samples[i-1].Tick <= samples[i].Tick {
				t.Fatalf("samples not strictly newest-first: %d then %d", samples[i-1].Tick, samples[i].Tick)
			}
		}
		if latest, ok := h.Latest(); ok && latest.Tick != head {
			t.Fatalf("Latest.Tick = %d, want %d", latest.Tick, head)
		}
	})
}
