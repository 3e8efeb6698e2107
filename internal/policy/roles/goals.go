package roles

import (
	"github.com/Metta-AI/cogames-agents-sub000/internal/policy/claims"
	"github.com/Metta-AI/cogames-agents-sub000/internal/policy/goal"
	"github.com/Metta-AI/cogames-agents-sub000/internal/policy/grid"
	"github.com/Metta-AI/cogames-agents-sub000/internal/protocol"
)

// ExploreMap is the terminal fallback: never satisfied, always explores.
type ExploreMap struct{}

func (g *ExploreMap) Name() string                     { return "ExploreMap" }
func (g *ExploreMap) Satisfied(ctx *goal.Context) bool { return false }
func (g *ExploreMap) Preconditions() []goal.Goal       { return nil }
func (g *ExploreMap) Execute(ctx *goal.Context) (protocol.Action, bool) {
	return ctx.Explore(), true
}

// ExploreUntil explores until the agent has seen a minimum number of
// cells; used to front-load map discovery in the early phase.
type ExploreUntil struct {
	Cells int
}

func (g *ExploreUntil) Name() string { return "ExploreUntil" }
func (g *ExploreUntil) Satisfied(ctx *goal.Context) bool {
	return ctx.Grid.ExploredCount() >= g.Cells
}
func (g *ExploreUntil) Preconditions() []goal.Goal { return nil }
func (g *ExploreUntil) Execute(ctx *goal.Context) (protocol.Action, bool) {
	return ctx.Explore(), true
}

// AcquireGear walks to the role's outfitting station and bumps it until
// the gear flag comes up.
type AcquireGear struct {
	Role Role
}

func (g *AcquireGear) Name() string { return "AcquireGear" }

func (g *AcquireGear) Satisfied(ctx *goal.Context) bool {
	switch g.Role {
	case Miner:
		return ctx.State.Gear.Miner
	case Scout:
		return ctx.State.Gear.Scout
	case Scrambler:
		return ctx.State.Gear.Scrambler
	}
	return ctx.State.Gear.Aligner
}

func (g *AcquireGear) Preconditions() []goal.Goal { return nil }

func (g *AcquireGear) Execute(ctx *goal.Context) (protocol.Action, bool) {
	stationType := g.Role.Vibe() + "_station"
	target, ok := g.findStation(ctx, stationType)
	if !ok {
		return ctx.Explore(), true
	}
	return bumpOrApproach(ctx, target), true
}

func (g *AcquireGear) findStation(ctx *goal.Context, stationType string) (grid.Pos, bool) {
	if m, ok := ctx.Grid.FindNearest(ctx.State.Position, grid.Query{Type: stationType}); ok {
		return m.Pos, true
	}
	// Fall back to a teammate's shared discovery.
	return ctx.Coord.Station(stationType)
}

// MineResource claims the best extractor and bumps it until cargo stops
// growing or the extractor proves dead.
type MineResource struct {
	target    grid.Pos
	hasTarget bool
	lastCargo int
}

func (g *MineResource) Name() string { return "MineResource" }

func (g *MineResource) Satisfied(ctx *goal.Context) bool {
	st := ctx.State
	return st.CargoCapacity > 0 && st.Cargo.Total() >= st.CargoCapacity
}

func (g *MineResource) Preconditions() []goal.Goal {
	return []goal.Goal{&AcquireGear{Role: Miner}}
}

func (g *MineResource) Execute(ctx *goal.Context) (protocol.Action, bool) {
	st := ctx.State

	// Claims are re-validated every tick; a preemption or TTL expiry
	// between ticks silently drops the target.
	if g.hasTarget && !ctx.Coord.Claim(ctx.AgentID, claims.KindExtractor, g.target, ctx.Step) {
		g.hasTarget = false
	}
	if !g.hasTarget {
		target, ok := g.pickExtractor(ctx)
		if !ok {
			return ctx.Explore(), true
		}
		if !ctx.Coord.Claim(ctx.AgentID, claims.KindExtractor, target, ctx.Step) {
			return protocol.ActionNoop, false // contested this tick, defer
		}
		g.target = target
		g.hasTarget = true
		g.lastCargo = st.Cargo.Total()
	}

	key := goal.Key{Goal: g.Name(), Target: g.target}
	progressed := st.Cargo.Total() > g.lastCargo
	if trackAttempts(ctx, key, adjacent(st.Position, g.target), progressed) {
		ctx.Coord.Release(ctx.AgentID, claims.KindExtractor)
		g.hasTarget = false
		return ctx.Explore(), true
	}
	g.lastCargo = st.Cargo.Total()
	return bumpOrApproach(ctx, g.target), true
}

func (g *MineResource) pickExtractor(ctx *goal.Context) (grid.Pos, bool) {
	m, ok := ctx.Grid.FindNearest(ctx.State.Position, grid.Query{
		TypeContains: "_extractor",
		Filter: func(s *grid.Structure) bool {
			if s.RemainingUses <= 0 && s.InventoryAmount <= 0 {
				return false
			}
			if ctx.Attempts.Blocked(goal.Key{Goal: g.Name(), Target: s.Pos}, ctx.Step) {
				return false
			}
			return !claimedByOther(ctx, claims.KindExtractor, s.Pos)
		},
	})
	if !ok {
		return grid.Pos{}, false
	}
	return m.Pos, true
}

// DepositCargo hauls a full-enough load to the best cogs depot.
type DepositCargo struct {
	lastCargo int
}

func (g *DepositCargo) Name() string { return "DepositCargo" }

func (g *DepositCargo) Satisfied(ctx *goal.Context) bool {
	st := ctx.State
	total := st.Cargo.Total()
	if total == 0 || st.CargoCapacity <= 0 {
		return true
	}
	ratio := float64(total) / float64(st.CargoCapacity)
	if ratio >= 1.0 {
		return false
	}
	depot, known := findDepot(ctx)
	if ratio >= ctx.Tune.DepositRatio {
		if !known {
			return false // deposit at the first opportunity
		}
		return grid.Manhattan(st.Position, depot) >= ctx.Tune.DepositMaxDetour
	}
	// Small loads only justify a deposit when a depot is right there.
	if total >= ctx.Tune.MinCargoDetour && known {
		return grid.Manhattan(st.Position, depot) >= ctx.Tune.DepositNearDist
	}
	return true
}

func (g *DepositCargo) Preconditions() []goal.Goal { return nil }

func (g *DepositCargo) Execute(ctx *goal.Context) (protocol.Action, bool) {
	st := ctx.State
	depot, ok := findDepot(ctx)
	if !ok {
		return ctx.Explore(), true
	}

	key := goal.Key{Goal: g.Name(), Target: depot}
	progressed := st.Cargo.Total() < g.lastCargo
	if trackAttempts(ctx, key, adjacent(st.Position, depot), progressed) {
		return ctx.Explore(), true
	}
	g.lastCargo = st.Cargo.Total()
	return bumpOrApproach(ctx, depot), true
}

// findDepot prefers assemblers (they convert resources to gear), then any
// cogs-aligned junction or charger.
func findDepot(ctx *goal.Context) (grid.Pos, bool) {
	if m, ok := ctx.Grid.FindNearest(ctx.State.Position, grid.Query{Type: "assembler"}); ok {
		return m.Pos, true
	}
	m, ok := ctx.Grid.FindNearest(ctx.State.Position, grid.Query{
		Filter: func(s *grid.Structure) bool {
			if s.Alignment != grid.AlignCogs {
				return false
			}
			return s.Type == "junction" || s.Type == "charger"
		},
	})
	if !ok {
		return grid.Pos{}, false
	}
	return m.Pos, true
}

// AcquireHeart reserves a pickup slot and charges a heart. Slot denial is
// a normal negotiation outcome: the goal defers instead of waiting.
type AcquireHeart struct{}

func (g *AcquireHeart) Name() string { return "AcquireHeart" }

func (g *AcquireHeart) Satisfied(ctx *goal.Context) bool { return ctx.State.Hearts > 0 }

func (g *AcquireHeart) Preconditions() []goal.Goal { return nil }

func (g *AcquireHeart) Execute(ctx *goal.Context) (protocol.Action, bool) {
	if !ctx.Coord.ReserveSlot(ctx.AgentID, ctx.Step) {
		return protocol.ActionNoop, false
	}
	m, ok := ctx.Grid.FindNearest(ctx.State.Position, grid.Query{
		TypeContains: "charger",
		Filter: func(s *grid.Structure) bool {
			return s.Alignment != grid.AlignClips
		},
	})
	if !ok {
		if pos, shared := ctx.Coord.Station("charger"); shared {
			return bumpOrApproach(ctx, pos), true
		}
		return ctx.Explore(), true
	}
	return bumpOrApproach(ctx, m.Pos), true
}

// junctionGoal is the shared alignment/scramble machinery: claim a
// junction of the wanted alignment and bump it until it flips.
type junctionGoal struct {
	name      string
	kind      claims.Kind
	want      grid.Alignment
	target    grid.Pos
	hasTarget bool
	lastAlign grid.Alignment
}

func (g *junctionGoal) satisfied(ctx *goal.Context) bool {
	_, ok := nearestJunction(ctx, g.name, g.kind, g.want)
	return !ok && !g.hasTarget
}

func (g *junctionGoal) execute(ctx *goal.Context) (protocol.Action, bool) {
	if g.hasTarget {
		j, known := ctx.Coord.Junction(g.target)
		if !known || j.Alignment != g.want {
			// Flipped (by us or someone else) — done with this one.
			ctx.Coord.Release(ctx.AgentID, g.kind)
			g.hasTarget = false
		} else if !ctx.Coord.Claim(ctx.AgentID, g.kind, g.target, ctx.Step) {
			g.hasTarget = false
		}
	}
	if !g.hasTarget {
		target, ok := nearestJunction(ctx, g.name, g.kind, g.want)
		if !ok {
			return ctx.Explore(), true
		}
		if !ctx.Coord.Claim(ctx.AgentID, g.kind, target, ctx.Step) {
			return protocol.ActionNoop, false
		}
		g.target = target
		g.hasTarget = true
		if j, known := ctx.Coord.Junction(target); known {
			g.lastAlign = j.Alignment
		}
	}

	progressed := false
	if j, known := ctx.Coord.Junction(g.target); known && j.Alignment != g.lastAlign {
		progressed = true
		g.lastAlign = j.Alignment
	}
	key := goal.Key{Goal: g.name, Target: g.target}
	if trackAttempts(ctx, key, adjacent(ctx.State.Position, g.target), progressed) {
		ctx.Coord.Release(ctx.AgentID, g.kind)
		g.hasTarget = false
		return ctx.Explore(), true
	}
	return bumpOrApproach(ctx, g.target), true
}

// AlignJunction converts neutral junctions to cogs. Needs a heart and
// aligner gear first.
type AlignJunction struct {
	junctionGoal
}

func (g *AlignJunction) Name() string { return "AlignJunction" }

func (g *AlignJunction) Satisfied(ctx *goal.Context) bool {
	g.init()
	return g.satisfied(ctx)
}

func (g *AlignJunction) Preconditions() []goal.Goal {
	return []goal.Goal{&AcquireGear{Role: Aligner}, &AcquireHeart{}}
}

func (g *AlignJunction) Execute(ctx *goal.Context) (protocol.Action, bool) {
	g.init()
	return g.execute(ctx)
}

func (g *AlignJunction) init() {
	g.name = g.Name()
	g.kind = claims.KindJunction
	g.want = grid.AlignNeutral
}

// ScrambleJunction knocks enemy junctions back to neutral.
type ScrambleJunction struct {
	junctionGoal
}

func (g *ScrambleJunction) Name() string { return "ScrambleJunction" }

func (g *ScrambleJunction) Satisfied(ctx *goal.Context) bool {
	g.init()
	return g.satisfied(ctx)
}

func (g *ScrambleJunction) Preconditions() []goal.Goal {
	return []goal.Goal{&AcquireGear{Role: Scrambler}, &AcquireHeart{}}
}

func (g *ScrambleJunction) Execute(ctx *goal.Context) (protocol.Action, bool) {
	g.init()
	return g.execute(ctx)
}

func (g *ScrambleJunction) init() {
	g.name = g.Name()
	g.kind = claims.KindScramble
	g.want = grid.AlignClips
}

// DefendJunction parks an agent beside an owned junction to hold it.
type DefendJunction struct {
	target    grid.Pos
	hasTarget bool
}

func (g *DefendJunction) Name() string { return "DefendJunction" }

func (g *DefendJunction) Satisfied(ctx *goal.Context) bool {
	_, ok := nearestJunction(ctx, g.Name(), claims.KindDefend, grid.AlignCogs)
	return !ok && !g.hasTarget
}

func (g *DefendJunction) Preconditions() []goal.Goal { return nil }

func (g *DefendJunction) Execute(ctx *goal.Context) (protocol.Action, bool) {
	if g.hasTarget {
		j, known := ctx.Coord.Junction(g.target)
		if !known || j.Alignment != grid.AlignCogs {
			ctx.Coord.Release(ctx.AgentID, claims.KindDefend)
			g.hasTarget = false
		} else if !ctx.Coord.Claim(ctx.AgentID, claims.KindDefend, g.target, ctx.Step) {
			g.hasTarget = false
		}
	}
	if !g.hasTarget {
		target, ok := nearestJunction(ctx, g.Name(), claims.KindDefend, grid.AlignCogs)
		if !ok {
			return ctx.Explore(), true
		}
		if !ctx.Coord.Claim(ctx.AgentID, claims.KindDefend, target, ctx.Step) {
			return protocol.ActionNoop, false
		}
		g.target = target
		g.hasTarget = true
	}

	ctx.Rec.SetNavTarget(g.target.Row, g.target.Col)
	if adjacent(ctx.State.Position, g.target) {
		return protocol.ActionNoop, true // hold position
	}
	return ctx.Nav.MoveTo(ctx.State.Position, g.target, ctx.Grid, true), true
}
