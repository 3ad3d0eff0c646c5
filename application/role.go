package application

import "tandem/domain"

// DefaultFreshnessWindow は役割判定に使えるチームメイト情報の最大経過 tick です。
const DefaultFreshnessWindow int64 = 10

type Role uint8

const (
	RoleLeader Role = iota
	RoleAssistant
)

func (r Role) String() string {
	switch r {
	case RoleLeader:
		return "leader"
	case RoleAssistant:
		return "assistant"
	default:
		return "unknown"
	}
}

// IsAssistant はこの tick で自機がアシスタントに回るべきかを返します。
// チームメイトの観測と Goal があり、自機のエネルギーが厳密に低く、
// 観測の経過 tick が window 未満のときだけ true です。
// 状態は持たず、毎 tick 現在のデータから判定し直します。
func IsAssistant(st State, self domain.SelfStatus, window int64) bool {
	mate, ok := st.Teammate.Latest()
	if !ok || !st.HasGoal {
		return false
	}
	if !(self.Energy < mate.Energy) {
		return false
	}
	return self.Tick-mate.Tick < window
}

func DecideRole(st State, self domain.SelfStatus, window int64) Role {
	if IsAssistant(st, self, window) {
		return RoleAssistant
	}
	return RoleLeader
}
