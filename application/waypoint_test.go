package application

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"pgregory.net/rapid"

	"tandem/domain"
	"tandem/geom"
)

func testSelf(pos orb.Point, tick int64) domain.SelfStatus {
	return domain.SelfStatus{
		Position:  pos,
		Energy:    100,
		Footprint: 18,
		Arena:     geom.Arena(800, 600),
		Tick:      tick,
	}
}

func TestPlan_LeaderApproach(t *testing.T) {
	var st State
	st.Opponent.Record(sampleAt(1, 100, 100))
	self := testSelf(orb.Point{0, 0}, 1)

	wp := Plan(st, self, RoleLeader)
	if wp.Kind != WaypointApproach {
		t.Fatalf("Kind = %v, want approach", wp.Kind)
	}

	opp := orb.Point{100, 100}
	if d := geom.Distance(wp.Target, opp); math.Abs(d-36) > 1e-9 {
		t.Errorf("distance to opponent = %f, want 36", d)
	}
	// on the segment self→opponent
	if math.Abs(wp.Target[0]-wp.Target[1]) > 1e-9 || wp.Target[0] <= 0 || wp.Target[0] >= 100 {
		t.Errorf("Target = %v, want on segment [0 0]→[100 100]", wp.Target)
	}
}

func TestPlan_LeaderHoldsWhenClose(t *testing.T) {
	self := testSelf(orb.Point{100, 100}, 1)
	wp := PlanLeader(self, orb.Point{120, 100})
	if wp.Kind != WaypointHold {
		t.Errorf("Kind = %v, want hold", wp.Kind)
	}
	if wp.Target != self.Position {
		t.Errorf("Target = %v, want self position", wp.Target)
	}
	if wp.Moves() {
		t.Error("hold should not move")
	}
}

func TestPlan_NoOpponent(t *testing.T) {
	self := testSelf(orb.Point{50, 50}, 1)
	wp := Plan(State{}, self, RoleLeader)
	if wp.Kind != WaypointHold || wp.Target != self.Position {
		t.Errorf("Plan = %+v, want hold at self", wp)
	}
}

func TestPlan_AssistantYields(t *testing.T) {
	var st State
	st.Opponent.Record(sampleAt(5, 400, 300))
	st.Teammate.Record(domain.Sample{Position: orb.Point{130, 100}, Energy: 100, Tick: 5})
	st.SetGoal(domain.Goal{Point: orb.Point{380, 300}, Tick: 5})
	self := testSelf(orb.Point{100, 100}, 5)

	wp := Plan(st, self, RoleAssistant)
	if wp.Kind != WaypointYield {
		t.Fatalf("Kind = %v, want yield", wp.Kind)
	}
	if wp.Target != self.Position {
		t.Errorf("Target = %v, want self position", wp.Target)
	}
}

func TestPlan_AssistantFlanks(t *testing.T) {
	var st State
	st.Opponent.Record(sampleAt(5, 400, 300))
	st.Teammate.Record(domain.Sample{Position: orb.Point{300, 300}, Energy: 100, Tick: 5})
	st.SetGoal(domain.Goal{Point: orb.Point{350, 300}, Tick: 5})
	self := testSelf(orb.Point{400, 100}, 5)

	wp := Plan(st, self, RoleAssistant)
	if wp.Kind != WaypointFlank {
		t.Fatalf("Kind = %v, want flank", wp.Kind)
	}
	// offset = perp(-50, 0) = (0, -50); candidates (400, 250) and (400, 350)
	want := orb.Point{400, 250}
	if geom.Distance(wp.Target, want) > 1e-9 {
		t.Errorf("Target = %v, want %v", wp.Target, want)
	}
}

func TestPlanAssistant_TieChoosesFirst(t *testing.T) {
	self := testSelf(orb.Point{400, 300}, 1)
	opp := orb.Point{400, 300}
	goal := orb.Point{350, 300}

	p1, _ := FlankCandidates(opp, goal, self.Arena, self.Footprint*SafeMarginFactor)
	wp := PlanAssistant(self, opp, goal)
	if wp.Target != p1 {
		t.Errorf("Target = %v, want first candidate %v", wp.Target, p1)
	}
}

func TestFlankCandidates_Clamped(t *testing.T) {
	arena := geom.Arena(800, 600)
	p1, p2 := FlankCandidates(orb.Point{20, 20}, orb.Point{20, 500}, arena, 36)
	for _, p := range []orb.Point{p1, p2} {
		if p[0] < 36 || p[0] > 764 || p[1] < 36 || p[1] > 564 {
			t.Errorf("candidate %v outside safe zone", p)
		}
	}
}

func TestFlankCandidates_Properties(t *testing.T) {
	arena := geom.Arena(800, 600)
	rapid.Check(t, func(t *rapid.T) {
		opp := orb.Point{
			rapid.Float64Range(300, 500).Draw(t, "ox"),
			rapid.Float64Range(250, 350).Draw(t, "oy"),
		}
		goal := orb.Point{
			opp[0] + rapid.Float64Range(-70, 70).Draw(t, "gx"),
			opp[1] + rapid.Float64Range(-70, 70).Draw(t, "gy"),
		}

		p1, p2 := FlankCandidates(opp, goal, arena, 36)

		r := geom.Distance(opp, goal)
		if d := geom.Distance(opp, p1); math.Abs(d-r) > 1e-6 {
			t.Fatalf("|p1 - opp| = %f, want %f", d, r)
		}
		if d := geom.Distance(opp, p2); math.Abs(d-r) > 1e-6 {
			t.Fatalf("|p2 - opp| = %f, want %f", d, r)
		}
		mid := geom.Lerp(p1, p2, 0.5)
		if geom.Distance(mid, opp) > 1e-6 {
			t.Fatalf("candidates %v %v not on opposite sides of %v", p1, p2, opp)
		}
		v := geom.Sub(p1, opp)
		g := geom.Sub(goal, opp)
		if dot := v[0]*g[0] + v[1]*g[1]; math.Abs(dot) > 1e-6 {
			t.Fatalf("offset not perpendicular to goal direction: dot = %f", dot)
		}
	})
}

func TestFlankCandidates_AlwaysInBounds(t *testing.T) {
	arena := geom.Arena(800, 600)
	rapid.Check(t, func(t *rapid.T) {
		opp := orb.Point{rapid.Float64Range(0, 800).Draw(t, "ox"), rapid.Float64Range(0, 600).Draw(t, "oy")}
		goal := orb.Point{rapid.Float64Range(0, 800).Draw(t, "gx"), rapid.Float64Range(0, 600).Draw(t, "gy")}

		p1, p2 := FlankCandidates(opp, goal, arena, 36)
		for _, p := range []orb.Point{p1, p2} {
			if p[0] < 36-1e-9 || p[0] > 764+1e-9 || p[1] < 36-1e-9 || p[1] > 564+1e-9 {
				t.Fatalf("candidate %v outside safe zone", p)
			}
		}
	})
}
