// Package grid tracks an agent's incrementally discovered map knowledge:
// per-cell occupancy, explored flags, and sighted structures.
package grid

import "strings"

// Cell is the occupancy state of a single map cell. A cell only ever
// transitions Unknown -> Free or Unknown -> Obstacle; it never regresses
// to Unknown once observed.
type Cell uint8

const (
	Unknown Cell = iota
	Free
	Obstacle
)

// Alignment of a structure. Empty means neutral/unaligned.
type Alignment string

const (
	AlignNeutral Alignment = ""
	AlignCogs    Alignment = "cogs"
	AlignClips   Alignment = "clips"
)

const (
	typeWall  = "wall"
	typeAgent = "agent"
)

// Structure is a discovered non-agent entity. Created on first sighting
// and mutated in place on every later sighting; never deleted, even once
// out of view.
type Structure struct {
	Pos  Pos
	Type string

	Alignment       Alignment
	RemainingUses   int
	Cooldown        int
	InventoryAmount int

	LastSeen int
	seq      int // discovery order, for deterministic nearest tie-breaks
}

func (s *Structure) IsWall() bool { return s.Type == typeWall }

// Sighting is one decoded entity from the current observation window.
type Sighting struct {
	Type string

	Alignment       Alignment
	RemainingUses   int
	Cooldown        int
	InventoryAmount int
}

// Grid is the sparse occupancy map owned by a single agent.
type Grid struct {
	cells      map[Pos]Cell
	structures map[Pos]*Structure
	agents     map[Pos]bool // same-tick sightings only, rebuilt each update
	nextSeq    int
}

func New() *Grid {
	return &Grid{
		cells:      map[Pos]Cell{},
		structures: map[Pos]*Structure{},
		agents:     map[Pos]bool{},
	}
}

// Update ingests one observation window centered on agentPos. Every cell in
// the window is marked explored; cells holding a structure are marked
// Obstacle. Structures inside the window that are no longer visible were
// moved or destroyed and are dropped; structures outside the window are
// never touched. Agent markers are transient and rebuilt from scratch.
func (g *Grid) Update(agentPos Pos, halfH, halfW int, visible map[Pos]Sighting, step int) {
	minR, maxR := agentPos.Row-halfH, agentPos.Row+halfH
	minC, maxC := agentPos.Col-halfW, agentPos.Col+halfW

	for r := minR; r <= maxR; r++ {
		for c := minC; c <= maxC; c++ {
			g.cells[Pos{r, c}] = Free
		}
	}

	g.agents = map[Pos]bool{}

	for pos := range g.structures {
		if pos.Row < minR || pos.Row > maxR || pos.Col < minC || pos.Col > maxC {
			continue
		}
		if _, ok := visible[pos]; !ok {
			delete(g.structures, pos)
		}
	}

	for pos, s := range visible {
		if s.Type == typeAgent {
			if pos != agentPos {
				g.agents[pos] = true
			}
			continue
		}
		st := g.structures[pos]
		if st == nil {
			st = &Structure{Pos: pos, Type: s.Type, seq: g.nextSeq}
			g.nextSeq++
			g.structures[pos] = st
		}
		st.Type = s.Type
		st.Alignment = s.Alignment
		st.RemainingUses = s.RemainingUses
		st.Cooldown = s.Cooldown
		st.InventoryAmount = s.InventoryAmount
		st.LastSeen = step
		g.cells[pos] = Obstacle
	}
}

// Cell returns the occupancy state of pos.
func (g *Grid) Cell(pos Pos) Cell { return g.cells[pos] }

// Explored reports whether pos has ever been inside an observation window.
func (g *Grid) Explored(pos Pos) bool {
	_, ok := g.cells[pos]
	return ok
}

func (g *Grid) ExploredCount() int { return len(g.cells) }

// StructureAt returns the tracked structure at pos, if any.
func (g *Grid) StructureAt(pos Pos) *Structure { return g.structures[pos] }

func (g *Grid) HasAgent(pos Pos) bool { return g.agents[pos] }

func (g *Grid) IsWall(pos Pos) bool {
	s := g.structures[pos]
	return s != nil && s.IsWall()
}

func (g *Grid) IsStructure(pos Pos) bool {
	s := g.structures[pos]
	return s != nil && !s.IsWall()
}

// IsFree reports whether pos is explored and empty.
func (g *Grid) IsFree(pos Pos) bool {
	return g.cells[pos] == Free && !g.agents[pos]
}

// IsTraversable reports whether an agent may step onto pos. Free cells
// pass; Obstacle and agent-occupied cells fail; Unknown cells pass only
// when allowUnknown is set.
func (g *Grid) IsTraversable(pos Pos, allowUnknown bool) bool {
	if g.agents[pos] {
		return false
	}
	switch g.cells[pos] {
	case Free:
		return true
	case Obstacle:
		return false
	}
	return allowUnknown
}

// Query filters structure lookups. Zero fields match everything.
type Query struct {
	Type         string // exact type match
	TypeContains string // substring type match
	Filter       func(*Structure) bool
}

// Match is one (position, structure) query result.
type Match struct {
	Pos       Pos
	Structure *Structure
}

// Find returns all tracked structures matching q, in no particular order.
func (g *Grid) Find(q Query) []Match {
	var out []Match
	for pos, s := range g.structures {
		if q.Type != "" && s.Type != q.Type {
			continue
		}
		if q.TypeContains != "" && !strings.Contains(s.Type, q.TypeContains) {
			continue
		}
		if q.Filter != nil && !q.Filter(s) {
			continue
		}
		out = append(out, Match{Pos: pos, Structure: s})
	}
	return out
}

// FindNearest returns the match closest to from by Manhattan distance.
// Ties break by discovery order, so repeated calls are deterministic.
func (g *Grid) FindNearest(from Pos, q Query) (Match, bool) {
	var best Match
	bestDist, bestSeq := -1, -1
	for _, m := range g.Find(q) {
		d := Manhattan(from, m.Pos)
		if bestDist < 0 || d < bestDist || (d == bestDist && m.Structure.seq < bestSeq) {
			best = m
			bestDist = d
			bestSeq = m.Structure.seq
		}
	}
	return best, bestDist >= 0
}
