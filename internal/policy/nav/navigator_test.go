package nav

import (
	"testing"

	"github.com/Metta-AI/cogames-agents-sub000/internal/policy/grid"
	"github.com/Metta-AI/cogames-agents-sub000/internal/protocol"
)

// openGrid explores a (2r+1)^2 window around origin with the given
// sightings placed in it.
func openGrid(r int, visible map[grid.Pos]grid.Sighting) *grid.Grid {
	g := grid.New()
	g.Update(grid.Pos{}, r, r, visible, 1)
	return g
}

func newNav() *Navigator { return New(DefaultConfig(), 1, BiasFor(0)) }

func TestMoveToStepsTowardTarget(t *testing.T) {
	g := openGrid(5, map[grid.Pos]grid.Sighting{
		{Row: 3, Col: 0}: {Type: "carbon_extractor", RemainingUses: 5},
	})

	act := newNav().MoveTo(grid.Pos{}, grid.Pos{Row: 3, Col: 0}, g, true)
	if act != protocol.ActionMoveSouth {
		t.Fatalf("act = %s, want move_south", act)
	}
}

func TestMoveToRoutesAroundWall(t *testing.T) {
	// Wall segment directly south; the first step must go east or west.
	g := openGrid(5, map[grid.Pos]grid.Sighting{
		{Row: 1, Col: -1}: {Type: "wall"},
		{Row: 1, Col: 0}:  {Type: "wall"},
		{Row: 1, Col: 1}:  {Type: "wall"},
		{Row: 3, Col: 0}:  {Type: "charger"},
	})

	act := newNav().MoveTo(grid.Pos{}, grid.Pos{Row: 3, Col: 0}, g, true)
	if act != protocol.ActionMoveEast && act != protocol.ActionMoveWest {
		t.Fatalf("act = %s, want a sidestep around the wall", act)
	}
}

func TestMoveToTakesOptimalPathOnOpenGround(t *testing.T) {
	g := openGrid(8, nil)
	n := newNav()

	cur := grid.Pos{}
	target := grid.Pos{Row: 0, Col: 5}
	for step := 0; step < 5; step++ {
		act := n.MoveTo(cur, target, g, false)
		dr, dc := act.MoveDelta()
		if dr == 0 && dc == 0 {
			t.Fatalf("step %d: stalled at %v with %s", step, cur, act)
		}
		cur = cur.Add(dr, dc)
	}
	if cur != target {
		t.Fatalf("5 steps over open ground ended at %v, want %v", cur, target)
	}
}

func TestMoveToNoopWhenAdjacentWithReachAdjacent(t *testing.T) {
	g := openGrid(3, map[grid.Pos]grid.Sighting{
		{Row: 0, Col: 1}: {Type: "charger"},
	})
	act := newNav().MoveTo(grid.Pos{}, grid.Pos{Row: 0, Col: 1}, g, true)
	if act != protocol.ActionNoop {
		t.Fatalf("adjacent to target: act = %s, want noop", act)
	}
}

func TestMoveToWaitsThenSidestepsBehindAgent(t *testing.T) {
	// Another agent on the only cached next step.
	g := openGrid(5, map[grid.Pos]grid.Sighting{
		{Row: 0, Col: 1}: {Type: "agent"},
	})
	n := newNav()

	act := n.MoveTo(grid.Pos{}, grid.Pos{Row: 0, Col: 3}, g, false)
	// Either a sidestep off the blocked cell or a polite wait, never a
	// move into the agent.
	if dr, dc := act.MoveDelta(); dr == 0 && dc == 1 {
		t.Fatalf("moved into an occupied cell")
	}
	if act.IsMove() {
		next := grid.Pos{}.Add(act.MoveDelta())
		if g.HasAgent(next) {
			t.Fatalf("sidestep landed on an agent")
		}
	}
}

func TestMoveToReissuesRefusedMove(t *testing.T) {
	// The environment may refuse a move, leaving the agent on its old
	// cell. The cached path was already advanced past the refused step;
	// the navigator must replan and re-issue the move, not consume the
	// stale path into noops.
	g := openGrid(8, nil)
	n := newNav()

	cur := grid.Pos{}
	target := grid.Pos{Row: 0, Col: 6}
	if act := n.MoveTo(cur, target, g, false); act != protocol.ActionMoveEast {
		t.Fatalf("first act = %s, want move_east", act)
	}
	for i := 0; i < 4; i++ {
		if act := n.MoveTo(cur, target, g, false); act != protocol.ActionMoveEast {
			t.Fatalf("call %d after refused move: act = %s, want move_east", i+1, act)
		}
	}
}

func TestOscillationTriggersRecovery(t *testing.T) {
	g := openGrid(5, nil)
	n := newNav()

	a, b := grid.Pos{Row: 0, Col: 0}, grid.Pos{Row: 0, Col: 1}
	triggered := false
	for i := 0; i < 12; i++ {
		cur := a
		if i%2 == 1 {
			cur = b
		}
		n.MoveTo(cur, grid.Pos{Row: 4, Col: 4}, g, false)
		if n.Recovery() != RecoveryNone {
			triggered = true
			break
		}
	}
	if !triggered {
		t.Fatalf("oscillating between two cells never triggered recovery")
	}
}

func TestRecoveryBreaksOscillation(t *testing.T) {
	g := openGrid(8, nil)
	n := newNav()
	target := grid.Pos{Row: 6, Col: 6}

	a, b := grid.Pos{Row: 0, Col: 0}, grid.Pos{Row: 0, Col: 1}
	cur := a
	triggered := false
	for i := 0; i < 20; i++ {
		n.MoveTo(cur, target, g, false)
		if n.Recovery() != RecoveryNone {
			triggered = true
			break
		}
		if cur == a {
			cur = b
		} else {
			cur = a
		}
	}
	if !triggered {
		t.Fatalf("oscillating between two cells never triggered recovery")
	}

	// Follow the returned actions for real from here on. If recovery just
	// reproduced the A,B,A,B bounce the agent would never get anywhere;
	// it must leave the pair and reach the target.
	for tick := 0; tick < 200; tick++ {
		if cur == target {
			return
		}
		act := n.MoveTo(cur, target, g, false)
		dr, dc := act.MoveDelta()
		cur = cur.Add(dr, dc)
	}
	t.Fatalf("still short of %v after recovery, stuck near %v", target, cur)
}

func TestMotionlessTriggersRecovery(t *testing.T) {
	g := openGrid(5, nil)
	n := newNav()

	cur := grid.Pos{}
	for i := 0; i < DefaultConfig().MotionlessTicks+2; i++ {
		n.MoveTo(cur, grid.Pos{Row: 4, Col: 4}, g, false)
		if n.Recovery() != RecoveryNone {
			return
		}
	}
	t.Fatalf("motionless streak never triggered recovery")
}

func TestRecoveryEscalates(t *testing.T) {
	g := openGrid(5, nil)
	n := newNav()

	cur := grid.Pos{}
	sawRandomWalk, sawSpiral := false, false
	for i := 0; i < 80; i++ {
		n.MoveTo(cur, grid.Pos{Row: 4, Col: 4}, g, false)
		switch n.Recovery() {
		case RecoveryRandomWalk:
			sawRandomWalk = true
		case RecoverySpiral:
			sawSpiral = true
		}
		if sawRandomWalk && sawSpiral {
			return
		}
	}
	t.Fatalf("recovery never escalated: random_walk=%v spiral=%v", sawRandomWalk, sawSpiral)
}

func TestExploreHeadsForFrontier(t *testing.T) {
	g := openGrid(2, nil)
	act := newNav().Explore(grid.Pos{}, g, grid.East)
	if !act.IsMove() {
		t.Fatalf("explore on a tiny map should move, got %s", act)
	}
}

func TestExploreRespectsBias(t *testing.T) {
	// Fully symmetric window: the bias direction decides the frontier.
	g := openGrid(2, nil)
	act := newNav().Explore(grid.Pos{}, g, grid.South)
	if act != protocol.ActionMoveSouth {
		t.Fatalf("south-biased explore moved %s", act)
	}
}

func TestBiasForSpreadsSiblings(t *testing.T) {
	seen := map[grid.Dir]bool{}
	for id := 0; id < 4; id++ {
		seen[BiasFor(id)] = true
	}
	if len(seen) != 4 {
		t.Fatalf("four siblings share a bias: %v", seen)
	}
}

func TestGreedyFallbackWhenTargetUnreachable(t *testing.T) {
	// Target fully sealed in walls; A* fails on every attempt, but the
	// navigator must still produce some action.
	g := openGrid(5, map[grid.Pos]grid.Sighting{
		{Row: 2, Col: 2}: {Type: "wall"},
		{Row: 2, Col: 4}: {Type: "wall"},
		{Row: 1, Col: 3}: {Type: "wall"},
		{Row: 3, Col: 3}: {Type: "wall"},
		{Row: 2, Col: 3}: {Type: "junction"},
	})

	act := newNav().MoveTo(grid.Pos{}, grid.Pos{Row: 2, Col: 3}, g, true)
	if act == "" {
		t.Fatalf("no action produced for unreachable target")
	}
}

func TestFallbackExploreUsesOwnBias(t *testing.T) {
	// Target sealed in walls and the greedy directions blocked too, so
	// MoveTo bottoms out in exploration. Each navigator must fan out along
	// the bias it was built with, not a shared default.
	sightings := map[grid.Pos]grid.Sighting{
		{Row: 1, Col: 0}: {Type: "wall"},
		{Row: 0, Col: 1}: {Type: "wall"},
		{Row: 1, Col: 2}: {Type: "wall"},
		{Row: 3, Col: 2}: {Type: "wall"},
		{Row: 2, Col: 1}: {Type: "wall"},
		{Row: 2, Col: 3}: {Type: "wall"},
		{Row: 2, Col: 2}: {Type: "junction"},
	}
	g := openGrid(3, sightings)

	west := New(DefaultConfig(), 1, grid.West)
	if act := west.MoveTo(grid.Pos{}, grid.Pos{Row: 2, Col: 2}, g, false); act != protocol.ActionMoveWest {
		t.Fatalf("west-biased fallback moved %s, want move_west", act)
	}
	north := New(DefaultConfig(), 1, grid.North)
	if act := north.MoveTo(grid.Pos{}, grid.Pos{Row: 2, Col: 2}, g, false); act != protocol.ActionMoveNorth {
		t.Fatalf("north-biased fallback moved %s, want move_north", act)
	}
}

func TestRouteDoesNotFeedStuckDetector(t *testing.T) {
	// Route is for a second plan within the same tick; only the first plan
	// may count toward motionless and oscillation detection.
	g := openGrid(5, nil)
	n := newNav()

	for i := 0; i < 15; i++ {
		if act := n.Route(grid.Pos{}, grid.Pos{Row: 0, Col: 4}, g, true); !act.IsMove() {
			t.Fatalf("call %d: route returned %s, want a move", i, act)
		}
	}
	if n.Recovery() != RecoveryNone {
		t.Fatalf("repeated Route calls engaged recovery")
	}
}

func TestWaypointRoute(t *testing.T) {
	g := openGrid(6, nil)
	n := newNav()
	n.SetWaypoint("stash", grid.Pos{Row: 0, Col: 3})
	n.SetWaypoint("home", grid.Pos{Row: 0, Col: 0})

	act := n.NavigateRoute(grid.Pos{}, []string{"stash", "home"}, g, false)
	if act != protocol.ActionMoveEast {
		t.Fatalf("route should head to the first unreached waypoint, got %s", act)
	}
}

func TestAStarTieBreakIsDeterministic(t *testing.T) {
	g := openGrid(6, nil)
	first := newNav().MoveTo(grid.Pos{}, grid.Pos{Row: 3, Col: 3}, g, false)
	for i := 0; i < 5; i++ {
		if act := newNav().MoveTo(grid.Pos{}, grid.Pos{Row: 3, Col: 3}, g, false); act != first {
			t.Fatalf("same search produced %s then %s", first, act)
		}
	}
}
