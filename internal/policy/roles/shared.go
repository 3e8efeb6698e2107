package roles

import (
	"github.com/Metta-AI/cogames-agents-sub000/internal/policy/claims"
	"github.com/Metta-AI/cogames-agents-sub000/internal/policy/goal"
	"github.com/Metta-AI/cogames-agents-sub000/internal/policy/grid"
	"github.com/Metta-AI/cogames-agents-sub000/internal/protocol"
)

func adjacent(a, b grid.Pos) bool { return grid.Manhattan(a, b) == 1 }

// claimedByOther reports whether pos is held by a different agent.
func claimedByOther(ctx *goal.Context, kind claims.Kind, pos grid.Pos) bool {
	holder, held := ctx.Coord.Holder(kind, pos)
	return held && holder != ctx.AgentID
}

// nearestJunction picks the closest known junction with the wanted
// alignment that is neither blacklisted nor claimed by another agent.
func nearestJunction(ctx *goal.Context, goalName string, kind claims.Kind, align grid.Alignment) (grid.Pos, bool) {
	var best grid.Pos
	bestDist := -1
	for _, j := range ctx.Coord.Junctions() {
		if j.Alignment != align {
			continue
		}
		if claimedByOther(ctx, kind, j.Pos) {
			continue
		}
		if ctx.Attempts.Blocked(goal.Key{Goal: goalName, Target: j.Pos}, ctx.Step) {
			continue
		}
		d := grid.Manhattan(ctx.State.Position, j.Pos)
		if bestDist < 0 || d < bestDist || (d == bestDist && less(j.Pos, best)) {
			best = j.Pos
			bestDist = d
		}
	}
	return best, bestDist >= 0
}

// less is a stable position order for distance tie-breaks.
func less(a, b grid.Pos) bool {
	if a.Row != b.Row {
		return a.Row < b.Row
	}
	return a.Col < b.Col
}

// bumpOrApproach moves adjacent to target, or bumps into it once there.
// Bumping an adjacent object cell is the implicit "use" action.
func bumpOrApproach(ctx *goal.Context, target grid.Pos) protocol.Action {
	ctx.Rec.SetNavTarget(target.Row, target.Col)
	cur := ctx.State.Position
	if adjacent(cur, target) {
		return grid.MoveAction(cur, target)
	}
	return ctx.Nav.MoveTo(cur, target, ctx.Grid, true)
}

// trackAttempts implements the uniform leaf retry/backoff: while adjacent
// and making no progress, bump the counter; past the limit, blacklist the
// target and report failure so the goal can fall back to exploring.
func trackAttempts(ctx *goal.Context, k goal.Key, adjacentNow, progressed bool) (failed bool) {
	if !adjacentNow {
		return false
	}
	if progressed {
		ctx.Attempts.Progress(k)
		return false
	}
	if ctx.Attempts.Bump(k) > ctx.Tune.MaxAttempts {
		ctx.Attempts.Fail(k, ctx.Step, ctx.Tune.FailCooldown, ctx.Tune.MaxFailCooldown)
		return true
	}
	return false
}
