// Package goal implements the priority goal tree: an ordered list of
// goals with preconditions, evaluated top-down once per tick to pick
// exactly one action.
package goal

import (
	"github.com/Metta-AI/cogames-agents-sub000/internal/policy/claims"
	"github.com/Metta-AI/cogames-agents-sub000/internal/policy/grid"
	"github.com/Metta-AI/cogames-agents-sub000/internal/policy/nav"
	"github.com/Metta-AI/cogames-agents-sub000/internal/policy/tuning"
	"github.com/Metta-AI/cogames-agents-sub000/internal/protocol"
	"github.com/Metta-AI/cogames-agents-sub000/internal/trace"
)

// Phase is the coarse game phase driving goal-list selection.
type Phase int

const (
	PhaseEarly Phase = iota
	PhaseMid
	PhaseLate
)

func (p Phase) String() string {
	switch p {
	case PhaseMid:
		return "mid"
	case PhaseLate:
		return "late"
	}
	return "early"
}

// State is the decoded per-tick self snapshot handed in by perception.
// Position is agent-relative (origin = spawn), maintained by the loop
// from executed actions.
type State struct {
	Position grid.Pos
	Energy   int
	HP       int

	Cargo         protocol.CargoObs
	CargoCapacity int
	Hearts        int

	Vibe string
	Gear protocol.GearObs
}

// Context is everything a goal may consult during one tick. Rec may be
// nil; TickRecord methods are nil-safe.
type Context struct {
	AgentID int
	Step    int
	Phase   Phase

	State    *State
	Grid     *grid.Grid
	Nav      *nav.Navigator
	Coord    *claims.Coordinator
	Attempts *AttemptStore
	Tune     *tuning.Tuning

	Rec *trace.TickRecord
}

// Bias returns this agent's exploration direction profile.
func (c *Context) Bias() grid.Dir { return nav.BiasFor(c.AgentID) }

// Explore is the universal fallback action.
func (c *Context) Explore() protocol.Action {
	return c.Nav.Explore(c.State.Position, c.Grid, c.Bias())
}

// Goal is one node of the priority tree.
//
// Satisfied must be cheap and side-effect-free. Execute may create claims
// or bump attempt counters, but everything it creates must stay safe to
// abandon: a higher-priority goal becoming unsatisfied preempts it on any
// later tick. Execute returns ok=false to Skip — voluntarily defer this
// tick (e.g. a denied claim) and let evaluation continue with the next
// top-level goal.
type Goal interface {
	Name() string
	Satisfied(ctx *Context) bool
	Preconditions() []Goal
	Execute(ctx *Context) (protocol.Action, bool)
}
