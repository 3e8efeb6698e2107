package nav

import (
	"github.com/Metta-AI/cogames-agents-sub000/internal/policy/grid"
	"github.com/Metta-AI/cogames-agents-sub000/internal/protocol"
)

// RecoveryStage is one phase of the escalating stuck-breaking state
// machine. Each trigger advances one stage; completing a stage without
// re-triggering drops back to RecoveryNone.
type RecoveryStage int

const (
	RecoveryNone RecoveryStage = iota
	RecoveryRandomWalk
	RecoverySpiral
	RecoveryReset
)

func (s RecoveryStage) String() string {
	switch s {
	case RecoveryRandomWalk:
		return "random_walk"
	case RecoverySpiral:
		return "spiral"
	case RecoveryReset:
		return "reset"
	}
	return "none"
}

// Recovery returns the active stage, for instrumentation.
func (n *Navigator) Recovery() RecoveryStage {
	if !n.recoveryActive {
		return RecoveryNone
	}
	return n.stage
}

func (n *Navigator) trackPosition(pos grid.Pos) {
	if len(n.history) > 0 && n.history[len(n.history)-1] == pos {
		n.motionless++
	} else {
		n.motionless = 0
	}
	n.history = append(n.history, pos)
	if len(n.history) > n.cfg.HistoryLen {
		n.history = n.history[1:]
	}
}

// isStuck checks the rolling position history for tight oscillation,
// revisits of the current cell, or a motionless streak.
func (n *Navigator) isStuck() bool {
	h := n.history
	if n.motionless >= n.cfg.MotionlessTicks {
		return true
	}
	if len(h) < 6 {
		return false
	}
	distinct := map[grid.Pos]bool{}
	for _, p := range h[len(h)-6:] {
		distinct[p] = true
	}
	if len(distinct) <= 2 {
		return true
	}
	if len(h) >= 20 {
		cur := h[len(h)-1]
		revisits := 0
		for _, p := range h[:len(h)-10] {
			if p == cur {
				revisits++
			}
		}
		if revisits >= 2 {
			return true
		}
	}
	return false
}

// escalateRecovery advances one recovery stage and executes its first
// step. The stage persists after its steps run out so a quick re-trigger
// escalates instead of repeating; it only decays back to RecoveryNone
// after a calm stretch or a Reset.
func (n *Navigator) escalateRecovery(cur grid.Pos, g *grid.Grid) protocol.Action {
	n.InvalidateCache()
	n.recoveryActive = true
	n.calm = 0

	switch n.stage {
	case RecoveryNone:
		n.stage = RecoveryRandomWalk
		n.recoverySteps = n.cfg.RandomWalkSteps
	case RecoveryRandomWalk:
		n.stage = RecoverySpiral
		n.recoverySteps = n.cfg.SpiralSteps
		n.spiralDir = n.rng.Intn(4)
		n.spiralLeg = 1
		n.spiralInLeg = 0
		n.spiralLegsDone = 0
	default:
		n.stage = RecoveryReset
		n.recoverySteps = 1
	}

	n.history = nil
	n.motionless = 0
	act, _ := n.stepRecovery(cur, g)
	return act
}

// stepRecovery executes one tick of the active recovery stage. Returns
// ok=false when no recovery is in progress.
func (n *Navigator) stepRecovery(cur grid.Pos, g *grid.Grid) (protocol.Action, bool) {
	if !n.recoveryActive || n.recoverySteps <= 0 {
		n.recoveryActive = false
		if n.stage != RecoveryNone {
			n.calm++
			if n.calm > recoveryCalmTicks {
				n.stage = RecoveryNone
			}
		}
		return protocol.ActionNoop, false
	}
	n.recoverySteps--

	switch n.stage {
	case RecoveryRandomWalk:
		return n.randomMove(cur, g), true
	case RecoverySpiral:
		return n.spiralMove(cur, g), true
	case RecoveryReset:
		n.history = nil
		n.motionless = 0
		n.InvalidateCache()
		n.waitCount = map[grid.Pos]int{}
		n.stage = RecoveryNone
		n.recoveryActive = false
		n.recoverySteps = 0
		return n.randomMove(cur, g), true
	}
	n.recoveryActive = false
	return protocol.ActionNoop, false
}

// recoveryCalmTicks is how long a completed stage lingers before the
// ladder resets to the bottom.
const recoveryCalmTicks = 20

// spiralMove walks an expanding square spiral: the leg length grows by one
// every two completed turns, which escapes confined pockets quickly.
func (n *Navigator) spiralMove(cur grid.Pos, g *grid.Grid) protocol.Action {
	d := spiralOrder[n.spiralDir%4]
	pos := cur.Step(d)

	n.spiralInLeg++
	if n.spiralInLeg >= n.spiralLeg {
		n.spiralInLeg = 0
		n.spiralDir++
		n.spiralLegsDone++
		if n.spiralLegsDone%2 == 0 {
			n.spiralLeg++
		}
	}

	if traversable(g, pos, true, true) {
		return d.Action()
	}
	return n.randomMove(cur, g)
}

// Clockwise turn order for the spiral.
var spiralOrder = [4]grid.Dir{grid.North, grid.East, grid.South, grid.West}
