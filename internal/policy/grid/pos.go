package grid

import "github.com/Metta-AI/cogames-agents-sub000/internal/protocol"

// Pos is an integer (row, col) in the agent-relative coordinate space.
// The origin is the spawn cell; rows grow south, columns grow east.
type Pos struct {
	Row int
	Col int
}

func (p Pos) Add(dr, dc int) Pos { return Pos{p.Row + dr, p.Col + dc} }

// Manhattan returns the L1 distance between two positions.
func Manhattan(a, b Pos) int {
	return abs(a.Row-b.Row) + abs(a.Col-b.Col)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Dir is one of the four orthogonal movement directions.
type Dir int

const (
	North Dir = iota
	South
	East
	West
)

var dirDeltas = [4][2]int{
	North: {-1, 0},
	South: {1, 0},
	East:  {0, 1},
	West:  {0, -1},
}

var dirActions = [4]protocol.Action{
	North: protocol.ActionMoveNorth,
	South: protocol.ActionMoveSouth,
	East:  protocol.ActionMoveEast,
	West:  protocol.ActionMoveWest,
}

var dirNames = [4]string{North: "north", South: "south", East: "east", West: "west"}

// Dirs lists all four directions in a fixed, deterministic order.
var Dirs = [4]Dir{North, South, East, West}

func (d Dir) Delta() (dr, dc int) { return dirDeltas[d][0], dirDeltas[d][1] }
func (d Dir) Action() protocol.Action {
	return dirActions[d]
}
func (d Dir) String() string { return dirNames[d] }

// Step returns the cell one step from p in direction d.
func (p Pos) Step(d Dir) Pos {
	dr, dc := d.Delta()
	return p.Add(dr, dc)
}

// MoveAction returns the move action from p to an orthogonally adjacent
// cell, or noop if next is not adjacent.
func MoveAction(p, next Pos) protocol.Action {
	for _, d := range Dirs {
		if p.Step(d) == next {
			return d.Action()
		}
	}
	return protocol.ActionNoop
}
