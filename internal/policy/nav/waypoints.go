package nav

import (
	"github.com/Metta-AI/cogames-agents-sub000/internal/policy/grid"
	"github.com/Metta-AI/cogames-agents-sub000/internal/protocol"
)

// SetWaypoint registers a named position (e.g. "base", "junction") for
// later route navigation.
func (n *Navigator) SetWaypoint(name string, pos grid.Pos) {
	n.waypoints[name] = pos
}

// Waypoint returns a previously registered waypoint.
func (n *Navigator) Waypoint(name string) (grid.Pos, bool) {
	pos, ok := n.waypoints[name]
	return pos, ok
}

// NavigateRoute walks a sequence of waypoints, producing the action for
// the first one not yet reached. Unknown names are skipped; once every
// waypoint is reached it returns noop.
func (n *Navigator) NavigateRoute(cur grid.Pos, names []string, g *grid.Grid, reachAdjacent bool) protocol.Action {
	threshold := 0
	if reachAdjacent {
		threshold = 1
	}
	for _, name := range names {
		target, ok := n.waypoints[name]
		if !ok {
			continue
		}
		if grid.Manhattan(cur, target) > threshold {
			return n.MoveTo(cur, target, g, reachAdjacent)
		}
	}
	return protocol.ActionNoop
}
