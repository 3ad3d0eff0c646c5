package application

import "tandem/domain"

// HistoryCapacity は1エンティティあたりに保持する観測数です。
const HistoryCapacity = 8

// History は1エンティティの直近の観測を新しい順に保持します。
// 固定長配列の値型なので、State をコピーすると履歴も独立してコピーされます。
type History struct {
	samples [HistoryCapacity]domain.Sample
	n       int
}

// Record は s を先頭に追加します。
// 先頭の tick 以下の観測 (重複・再送・順序逆転) は何もせず false を返します。
func (h *History) Record(s domain.Sample) bool {
	if h.n > 0 && h.samples[0].Tick >= s.Tick {
		return false
	}
	copy(h.samples[1:], h.samples[:HistoryCapacity-1])
	h.samples[0] = s
	if h.n < HistoryCapacity {
		h.n++
	}
	return true
}

func (h History) Latest() (domain.Sample, bool) {
	return h.At(0)
}

func (h History) Previous() (domain.Sample, bool) {
	return h.At(1)
}

// At は新しい方から i 番目の観測を返します。
func (h History) At(i int) (domain.Sample, bool) {
	if i < 0 || i >= h.n {
		return domain.Sample{}, false
	}
	return h.samples[i], true
}

func (h History) Len() int {
	return h.n
}

// Samples は保持している観測を新しい順にコピーして返します。
func (h History) Samples() []domain.Sample {
	out := make([]domain.Sample, h.n)
	copy(out, h.samples[:h.n])
	return out
}
