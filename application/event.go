package application

import "tandem/domain"

// EventKind はアリーナとトランスポートから届くイベントの種別です。
type EventKind uint8

const (
	EventObserved EventKind = iota
	EventMessageReceived
	EventTickSkipped
	EventCollided
)

func (k EventKind) String() string {
	switch k {
	case EventObserved:
		return "observed"
	case EventMessageReceived:
		return "message_received"
	case EventTickSkipped:
		return "tick_skipped"
	case EventCollided:
		return "collided"
	default:
		return "unknown"
	}
}

// Event は Agent.Step に渡す1件のイベントです。Kind に対応するフィールドだけが有効です。
type Event struct {
	Kind        EventKind
	Observation domain.Observation
	Report      domain.Report
	Collision   Collision
}

func Observed(o domain.Observation) Event {
	return Event{Kind: EventObserved, Observation: o}
}

func MessageReceived(r domain.Report) Event {
	return Event{Kind: EventMessageReceived, Report: r}
}

func TickSkipped() Event {
	return Event{Kind: EventTickSkipped}
}

func Collided(c Collision) Event {
	return Event{Kind: EventCollided, Collision: c}
}

// Phase は1 tick 内の処理段階です。
type Phase uint8

const (
	PhaseIdle Phase = iota
	PhaseHistoryUpdated
	PhaseRoleDecided
	PhaseWaypointPlanned
	PhaseAimed
	PhaseBroadcast
	PhaseMovementIssued
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseHistoryUpdated:
		return "history_updated"
	case PhaseRoleDecided:
		return "role_decided"
	case PhaseWaypointPlanned:
		return "waypoint_planned"
	case PhaseAimed:
		return "aimed"
	case PhaseBroadcast:
		return "broadcast"
	case PhaseMovementIssued:
		return "movement_issued"
	default:
		return "unknown"
	}
}
