package nav

import (
	"container/heap"

	"github.com/Metta-AI/cogames-agents-sub000/internal/policy/grid"
)

type searchNode struct {
	pos grid.Pos
	f   int
	tie int // insertion counter, keeps pop order deterministic
}

type openSet []searchNode

func (s openSet) Len() int { return len(s) }
func (s openSet) Less(i, j int) bool {
	if s[i].f != s[j].f {
		return s[i].f < s[j].f
	}
	return s[i].tie < s[j].tie
}
func (s openSet) Swap(i, j int) { s[i], s[j] = s[j], s[i] }
func (s *openSet) Push(x any)   { *s = append(*s, x.(searchNode)) }
func (s *openSet) Pop() any {
	old := *s
	n := len(old)
	x := old[n-1]
	*s = old[:n-1]
	return x
}

// astar searches from start to any cell in goals. Goal cells are reachable
// even if nominally obstacles: the caller's intent is to walk adjacent to
// or bump into them. Returns the path excluding start, or nil when the
// iteration budget is exhausted or no goal is reachable.
func (n *Navigator) astar(start grid.Pos, goals []grid.Pos, g *grid.Grid, allowUnknown, avoidAgents bool) []grid.Pos {
	if len(goals) == 0 {
		return nil
	}
	goalSet := make(map[grid.Pos]bool, len(goals))
	for _, gp := range goals {
		goalSet[gp] = true
	}
	h := func(pos grid.Pos) int {
		best := grid.Manhattan(pos, goals[0])
		for _, gp := range goals[1:] {
			if d := grid.Manhattan(pos, gp); d < best {
				best = d
			}
		}
		return best
	}

	open := &openSet{{pos: start, f: h(start)}}
	heap.Init(open)
	cameFrom := map[grid.Pos]grid.Pos{}
	gScore := map[grid.Pos]int{start: 0}

	tie := 0
	for iter := 0; open.Len() > 0 && iter < n.cfg.MaxIterations; iter++ {
		cur := heap.Pop(open).(searchNode).pos
		if goalSet[cur] {
			return reconstruct(cameFrom, start, cur)
		}

		curG := gScore[cur]
		for _, d := range grid.Dirs {
			next := cur.Step(d)
			if !goalSet[next] && !traversable(g, next, allowUnknown, avoidAgents) {
				continue
			}
			tentative := curG + 1
			if prev, seen := gScore[next]; seen && tentative >= prev {
				continue
			}
			cameFrom[next] = cur
			gScore[next] = tentative
			tie++
			heap.Push(open, searchNode{pos: next, f: tentative + h(next), tie: tie})
		}
	}
	return nil
}

func reconstruct(cameFrom map[grid.Pos]grid.Pos, start, end grid.Pos) []grid.Pos {
	var path []grid.Pos
	for cur := end; cur != start; cur = cameFrom[cur] {
		path = append(path, cur)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
