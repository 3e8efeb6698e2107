package goal

import (
	"testing"

	"github.com/Metta-AI/cogames-agents-sub000/internal/policy/claims"
	"github.com/Metta-AI/cogames-agents-sub000/internal/policy/grid"
	"github.com/Metta-AI/cogames-agents-sub000/internal/policy/nav"
	"github.com/Metta-AI/cogames-agents-sub000/internal/policy/tuning"
	"github.com/Metta-AI/cogames-agents-sub000/internal/protocol"
	"github.com/Metta-AI/cogames-agents-sub000/internal/trace"
)

type fakeGoal struct {
	name      string
	satisfied bool
	pre       []Goal
	action    protocol.Action
	skip      bool
	executed  int
}

func (f *fakeGoal) Name() string                { return f.name }
func (f *fakeGoal) Satisfied(ctx *Context) bool { return f.satisfied }
func (f *fakeGoal) Preconditions() []Goal       { return f.pre }
func (f *fakeGoal) Execute(ctx *Context) (protocol.Action, bool) {
	f.executed++
	return f.action, !f.skip
}

func testContext() *Context {
	g := grid.New()
	g.Update(grid.Pos{}, 3, 3, nil, 1)
	tune := tuning.Default()
	return &Context{
		AgentID:  0,
		Step:     1,
		Phase:    PhaseEarly,
		State:    &State{},
		Grid:     g,
		Nav:      nav.New(nav.DefaultConfig(), 1, nav.BiasFor(0)),
		Coord:    claims.NewCoordinator(claims.DefaultConfig()),
		Attempts: NewAttemptStore(),
		Tune:     &tune,
		Rec:      &trace.TickRecord{},
	}
}

func TestEvaluatePicksFirstUnsatisfied(t *testing.T) {
	done := &fakeGoal{name: "Done", satisfied: true}
	active := &fakeGoal{name: "Active", action: protocol.ActionMoveNorth}
	never := &fakeGoal{name: "Never", action: protocol.ActionMoveSouth}

	ctx := testContext()
	act := Evaluate([]Goal{done, active, never}, ctx)
	if act != protocol.ActionMoveNorth {
		t.Fatalf("act = %s", act)
	}
	if never.executed != 0 {
		t.Fatalf("lower-priority goal executed")
	}
	if ctx.Rec.GoalChain != "Active" {
		t.Fatalf("goal chain = %q", ctx.Rec.GoalChain)
	}
	if len(ctx.Rec.Skips) != 1 || ctx.Rec.Skips[0].Reason != "satisfied" {
		t.Fatalf("skips = %+v", ctx.Rec.Skips)
	}
}

func TestEvaluateDescendsPreconditions(t *testing.T) {
	leaf := &fakeGoal{name: "Leaf", action: protocol.ActionMoveEast}
	mid := &fakeGoal{name: "Mid", pre: []Goal{leaf}, action: protocol.ActionNoop}
	top := &fakeGoal{name: "Top", pre: []Goal{mid}, action: protocol.ActionNoop}

	ctx := testContext()
	act := Evaluate([]Goal{top}, ctx)
	if act != protocol.ActionMoveEast {
		t.Fatalf("act = %s, want the deepest unsatisfied leaf", act)
	}
	if top.executed != 0 || mid.executed != 0 {
		t.Fatalf("non-leaf goals executed: top=%d mid=%d", top.executed, mid.executed)
	}
	if ctx.Rec.GoalChain != "Top>Mid>Leaf" {
		t.Fatalf("goal chain = %q", ctx.Rec.GoalChain)
	}
}

func TestEvaluateSatisfiedPreconditionIsSkipped(t *testing.T) {
	ready := &fakeGoal{name: "Ready", satisfied: true}
	top := &fakeGoal{name: "Top", pre: []Goal{ready}, action: protocol.ActionMoveWest}

	ctx := testContext()
	if act := Evaluate([]Goal{top}, ctx); act != protocol.ActionMoveWest {
		t.Fatalf("act = %s, want the goal itself", act)
	}
}

func TestEvaluateSkipContinuesDown(t *testing.T) {
	blocked := &fakeGoal{name: "Blocked", skip: true}
	fallback := &fakeGoal{name: "Fallback", action: protocol.ActionMoveSouth}

	ctx := testContext()
	act := Evaluate([]Goal{blocked, fallback}, ctx)
	if act != protocol.ActionMoveSouth {
		t.Fatalf("act = %s, want the fallback after a skip", act)
	}
	found := false
	for _, s := range ctx.Rec.Skips {
		if s.Goal == "Blocked" && s.Reason == "deferred" {
			found = true
		}
	}
	if !found {
		t.Fatalf("deferred skip not recorded: %+v", ctx.Rec.Skips)
	}
}

func TestEvaluateAllSatisfiedExplores(t *testing.T) {
	ctx := testContext()
	act := Evaluate([]Goal{&fakeGoal{name: "A", satisfied: true}}, ctx)
	if act == "" {
		t.Fatalf("no action when everything is satisfied")
	}
	if ctx.Rec.GoalChain != "AllGoalsSatisfied" {
		t.Fatalf("goal chain = %q", ctx.Rec.GoalChain)
	}
}

func TestEvaluateAlwaysReturnsOneAction(t *testing.T) {
	// Every goal skips: the engine must still act.
	ctx := testContext()
	act := Evaluate([]Goal{
		&fakeGoal{name: "A", skip: true},
		&fakeGoal{name: "B", skip: true},
	}, ctx)
	if act == "" {
		t.Fatalf("empty action from all-skip list")
	}
}

func TestAttemptStoreBackoffDoublesAndCaps(t *testing.T) {
	s := NewAttemptStore()
	k := Key{Goal: "MineResource", Target: grid.Pos{Row: 1, Col: 1}}

	s.Fail(k, 100, 100, 800)
	if !s.Blocked(k, 150) {
		t.Fatalf("not blocked inside cooldown")
	}
	if s.Blocked(k, 201) {
		t.Fatalf("still blocked after first cooldown (100)")
	}

	s.Fail(k, 300, 100, 800)
	if s.Blocked(k, 501) {
		t.Fatalf("second cooldown should be 200, not more")
	}
	if !s.Blocked(k, 499) {
		t.Fatalf("second cooldown shorter than 200")
	}

	// Repeated failures cap at the max.
	for i := 0; i < 10; i++ {
		s.Fail(k, 1000, 100, 800)
	}
	if s.Blocked(k, 1801) {
		t.Fatalf("cooldown exceeded the cap")
	}
	if !s.Blocked(k, 1799) {
		t.Fatalf("capped cooldown shorter than 800")
	}
}

func TestAttemptStoreProgressResets(t *testing.T) {
	s := NewAttemptStore()
	k := Key{Goal: "DepositCargo", Target: grid.Pos{Row: 2, Col: 2}}

	for i := 0; i < 4; i++ {
		s.Bump(k)
	}
	s.Progress(k)
	if got := s.Bump(k); got != 1 {
		t.Fatalf("count after progress = %d, want 1", got)
	}
}
