// Package nav provides A* pathfinding over an incrementally discovered
// grid, with path caching, multi-agent collision avoidance, escalating
// stuck recovery, and frontier exploration.
package nav

import (
	"math/rand"

	"github.com/Metta-AI/cogames-agents-sub000/internal/policy/grid"
	"github.com/Metta-AI/cogames-agents-sub000/internal/protocol"
)

// Config bounds the navigator's search and recovery behavior. The defaults
// are empirically tuned; override via the tuning file, not in code.
type Config struct {
	MaxIterations     int // A* open-set pop budget per search
	FrontierRadius    int // BFS depth bound for exploration
	SidestepMaxDetour int // max Manhattan detour accepted to dodge an agent
	MaxWaits          int // noop ticks behind an agent before forcing a repath
	RandomWalkSteps   int
	SpiralSteps       int
	HistoryLen        int // rolling position-history window
	MotionlessTicks   int // consecutive motionless ticks counted as stuck
}

func DefaultConfig() Config {
	return Config{
		MaxIterations:     5000,
		FrontierRadius:    50,
		SidestepMaxDetour: 2,
		MaxWaits:          2,
		RandomWalkSteps:   5,
		SpiralSteps:       12,
		HistoryLen:        30,
		MotionlessTicks:   8,
	}
}

// Navigator plans one move per tick for a single agent. It is owned
// exclusively by that agent and carries no cross-agent state.
type Navigator struct {
	cfg  Config
	rng  *rand.Rand
	bias grid.Dir

	cachedPath     []grid.Pos
	cachedTarget   grid.Pos
	cachedReachAdj bool
	hasCache       bool

	history    []grid.Pos
	motionless int

	stage          RecoveryStage
	recoveryActive bool
	recoverySteps  int
	calm           int
	spiralDir      int
	spiralLeg      int
	spiralInLeg    int
	spiralLegsDone int

	waypoints map[string]grid.Pos
	waitCount map[grid.Pos]int
}

func New(cfg Config, seed int64, bias grid.Dir) *Navigator {
	return &Navigator{
		cfg:       cfg,
		rng:       rand.New(rand.NewSource(seed)),
		bias:      bias,
		waypoints: map[string]grid.Pos{},
		waitCount: map[grid.Pos]int{},
	}
}

// BiasFor returns the exploration direction profile for an agent, chosen
// so sibling agents naturally spread out.
func BiasFor(agentID int) grid.Dir {
	return [4]grid.Dir{grid.North, grid.East, grid.South, grid.West}[((agentID%4)+4)%4]
}

// MoveTo returns the next action to move from cur toward target. With
// reachAdjacent the goal is any of the target's four neighbors, and the
// target cell itself may be an obstacle (walk up to it, not onto it).
func (n *Navigator) MoveTo(cur, target grid.Pos, g *grid.Grid, reachAdjacent bool) protocol.Action {
	n.trackPosition(cur)

	if act, ok := n.stepRecovery(cur, g); ok {
		return act
	}
	if n.isStuck() {
		return n.escalateRecovery(cur, g)
	}
	return n.moveTo(cur, target, g, reachAdjacent)
}

// Route plans a move like MoveTo but does not feed the stuck detector.
// For callers that already planned once this tick and are overriding the
// result (the position was tracked by the first plan).
func (n *Navigator) Route(cur, target grid.Pos, g *grid.Grid, reachAdjacent bool) protocol.Action {
	return n.moveTo(cur, target, g, reachAdjacent)
}

// moveTo is MoveTo without position tracking, for internal re-entry.
func (n *Navigator) moveTo(cur, target grid.Pos, g *grid.Grid, reachAdjacent bool) protocol.Action {
	if cur == target && !reachAdjacent {
		return protocol.ActionNoop
	}
	if reachAdjacent && grid.Manhattan(cur, target) == 1 {
		return protocol.ActionNoop
	}

	path := n.pathTo(cur, target, g, reachAdjacent)
	if len(path) == 0 {
		if act, ok := n.greedyStep(cur, target, g); ok {
			return act
		}
		return n.explore(cur, g, n.bias, false)
	}

	next := path[0]
	if g.HasAgent(next) {
		return n.handleAgentCollision(cur, next, target, g)
	}
	delete(n.waitCount, next)

	if len(path) > 1 {
		n.cachedPath = path[1:]
	} else {
		n.cachedPath = nil
		n.hasCache = false
	}
	return grid.MoveAction(cur, next)
}

// Explore returns an action that moves toward the nearest frontier cell,
// preferring the biased direction so sibling agents fan out.
func (n *Navigator) Explore(cur grid.Pos, g *grid.Grid, bias grid.Dir) protocol.Action {
	n.trackPosition(cur)

	if act, ok := n.stepRecovery(cur, g); ok {
		return act
	}
	if n.isStuck() {
		return n.escalateRecovery(cur, g)
	}
	return n.explore(cur, g, bias, true)
}

func (n *Navigator) explore(cur grid.Pos, g *grid.Grid, bias grid.Dir, pathfind bool) protocol.Action {
	frontier, ok := n.findFrontier(cur, g, bias)
	if !ok {
		return n.randomMove(cur, g)
	}
	if !pathfind {
		// Reached from the moveTo fallback ladder; re-entering moveTo
		// could bounce straight back here, so route directly.
		if path := n.astar(cur, []grid.Pos{frontier}, g, true, true); len(path) > 0 {
			return grid.MoveAction(cur, path[0])
		}
		return n.randomMove(cur, g)
	}
	return n.moveTo(cur, frontier, g, false)
}

// InvalidateCache forces a fresh path computation on the next call.
func (n *Navigator) InvalidateCache() {
	n.cachedPath = nil
	n.hasCache = false
}

func (n *Navigator) pathTo(cur, target grid.Pos, g *grid.Grid, reachAdjacent bool) []grid.Pos {
	if n.hasCache && n.cachedTarget == target && n.cachedReachAdj == reachAdjacent && len(n.cachedPath) > 0 {
		next := n.cachedPath[0]
		// The cache is advanced when a move is issued, not when it is
		// confirmed. If the environment refused the move we are still on
		// the old cell and the cached step is no longer adjacent; replan
		// instead of consuming the path in place.
		if grid.Manhattan(cur, next) == 1 && !g.HasAgent(next) && !g.IsWall(next) && !g.IsStructure(next) {
			return n.cachedPath
		}
	}

	goals := n.goalCells(target, g, reachAdjacent)
	var path []grid.Pos
	if len(goals) > 0 {
		path = n.astar(cur, goals, g, false, true)
		if len(path) == 0 {
			path = n.astar(cur, goals, g, true, true)
		}
		if len(path) == 0 {
			// Agents may move out of the way next tick.
			path = n.astar(cur, goals, g, true, false)
		}
	}

	n.cachedPath = append([]grid.Pos(nil), path...)
	n.cachedTarget = target
	n.cachedReachAdj = reachAdjacent
	n.hasCache = len(path) > 0
	return path
}

func (n *Navigator) goalCells(target grid.Pos, g *grid.Grid, reachAdjacent bool) []grid.Pos {
	if !reachAdjacent {
		return []grid.Pos{target}
	}
	var goals []grid.Pos
	for _, d := range grid.Dirs {
		pos := target.Step(d)
		if traversable(g, pos, true, true) {
			goals = append(goals, pos)
		}
	}
	return goals
}

// handleAgentCollision dodges or waits behind another agent on the next
// path step. Escalates from sidestep to noop to a forced repath.
func (n *Navigator) handleAgentCollision(cur, blocked, target grid.Pos, g *grid.Grid) protocol.Action {
	waits := n.waitCount[blocked]
	n.waitCount[blocked] = waits + 1

	if waits < n.cfg.MaxWaits {
		if side, ok := n.findSidestep(cur, blocked, target, g); ok {
			n.InvalidateCache()
			return grid.MoveAction(cur, side)
		}
		return protocol.ActionNoop
	}

	n.InvalidateCache()
	delete(n.waitCount, blocked)
	if side, ok := n.findSidestep(cur, blocked, target, g); ok {
		return grid.MoveAction(cur, side)
	}
	return n.randomMove(cur, g)
}

func (n *Navigator) findSidestep(cur, blocked, target grid.Pos, g *grid.Grid) (grid.Pos, bool) {
	curDist := grid.Manhattan(cur, target)
	bestScore := n.cfg.SidestepMaxDetour + 1
	var best grid.Pos
	found := false
	for _, d := range grid.Dirs {
		pos := cur.Step(d)
		if pos == blocked {
			continue
		}
		if !traversable(g, pos, true, true) {
			continue
		}
		score := grid.Manhattan(pos, target) - curDist
		if score < bestScore {
			bestScore = score
			best = pos
			found = true
		}
	}
	return best, found
}

// greedyStep moves one cell toward target along the axis with the larger
// delta, avoiding only definitely known obstacles.
func (n *Navigator) greedyStep(cur, target grid.Pos, g *grid.Grid) (protocol.Action, bool) {
	dr := target.Row - cur.Row
	dc := target.Col - cur.Col

	var primary, secondary grid.Dir
	if abs(dr) >= abs(dc) {
		primary, secondary = vertDir(dr), horizDir(dc)
	} else {
		primary, secondary = horizDir(dc), vertDir(dr)
	}

	for _, d := range [2]grid.Dir{primary, secondary} {
		pos := cur.Step(d)
		if !g.IsWall(pos) && !g.IsStructure(pos) && !g.HasAgent(pos) {
			return d.Action(), true
		}
	}
	return protocol.ActionNoop, false
}

// randomMove picks a shuffled legal direction, preferring explored cells.
func (n *Navigator) randomMove(cur grid.Pos, g *grid.Grid) protocol.Action {
	dirs := [4]grid.Dir{grid.North, grid.South, grid.East, grid.West}
	n.rng.Shuffle(len(dirs), func(i, j int) { dirs[i], dirs[j] = dirs[j], dirs[i] })

	for _, d := range dirs {
		pos := cur.Step(d)
		if g.Explored(pos) && !g.IsWall(pos) && !g.IsStructure(pos) {
			return d.Action()
		}
	}
	for _, d := range dirs {
		if !g.IsWall(cur.Step(d)) {
			return d.Action()
		}
	}
	return protocol.ActionNoop
}

// traversable mirrors grid.IsTraversable but lets A* retries walk through
// cells occupied by agents (they may move before we arrive).
func traversable(g *grid.Grid, pos grid.Pos, allowUnknown, avoidAgents bool) bool {
	if avoidAgents && g.HasAgent(pos) {
		return false
	}
	switch g.Cell(pos) {
	case grid.Free:
		return true
	case grid.Obstacle:
		return false
	}
	return allowUnknown
}

func vertDir(dr int) grid.Dir {
	if dr > 0 {
		return grid.South
	}
	return grid.North
}

func horizDir(dc int) grid.Dir {
	if dc > 0 {
		return grid.East
	}
	return grid.West
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
