package nav

import "github.com/Metta-AI/cogames-agents-sub000/internal/policy/grid"

// biasProfiles orders neighbor expansion so agents with different biases
// sweep the map in different directions.
var biasProfiles = [4][4]grid.Dir{
	grid.North: {grid.North, grid.West, grid.East, grid.South},
	grid.South: {grid.South, grid.West, grid.East, grid.North},
	grid.East:  {grid.East, grid.North, grid.South, grid.West},
	grid.West:  {grid.West, grid.North, grid.South, grid.East},
}

// findFrontier runs a breadth-first search through explored free cells and
// returns the first unexplored cell adjacent to one, nearest first. The
// search depth is bounded by FrontierRadius.
func (n *Navigator) findFrontier(from grid.Pos, g *grid.Grid, bias grid.Dir) (grid.Pos, bool) {
	deltas := biasProfiles[bias]

	type item struct {
		pos  grid.Pos
		dist int
	}
	visited := map[grid.Pos]bool{from: true}
	queue := []item{{pos: from}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.dist > n.cfg.FrontierRadius {
			continue
		}

		for _, d := range deltas {
			pos := cur.pos.Step(d)
			if visited[pos] {
				continue
			}
			visited[pos] = true

			if !g.Explored(pos) {
				for _, d2 := range deltas {
					adj := pos.Step(d2)
					if g.Explored(adj) && g.IsFree(adj) {
						return pos, true
					}
				}
				continue
			}
			if g.IsFree(pos) {
				queue = append(queue, item{pos: pos, dist: cur.dist + 1})
			}
		}
	}
	return grid.Pos{}, false
}
