package application

import "tandem/domain"

// Stats は1エージェントの累積カウンタです。
type Stats struct {
	Broadcasts        int
	BroadcastFailures int
	StaleReports      int
	SkippedTicks      int
}

// State はエージェントが単独で所有する世界観です。
// Agent.Step に値で渡し、更新後の値を受け取ります。共有はしません。
type State struct {
	Teammate History
	Opponent History

	// Goal はチームメイトが最後に広報した目標点です。
	Goal    domain.Goal
	HasGoal bool

	Seq      uint16
	LastTick int64
	Stats    Stats
}

// SetGoal は g が現在の Goal より新しいときだけ置き換えます。
func (st *State) SetGoal(g domain.Goal) bool {
	if st.HasGoal && g.Tick <= st.Goal.Tick {
		return false
	}
	st.Goal = g
	st.HasGoal = true
	return true
}

// Merge はチームメイトからのレポートを対応する履歴または Goal に取り込みます。
// 古い・重複したレポートは黙って捨て、false を返します。
func Merge(st State, r domain.Report) (State, bool) {
	var ok bool
	switch r.Kind {
	case domain.ReportSelfPosition:
		ok = st.Teammate.Record(r.Sample)
	case domain.ReportOpponentPosition:
		ok = st.Opponent.Record(r.Sample)
	case domain.ReportGoal:
		ok = st.SetGoal(r.Goal)
	}
	return st, ok
}
