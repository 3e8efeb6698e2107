// Package claims arbitrates shared targets across the agents of one
// episode: single-owner target claims with TTL expiry, and capacity-limited
// priority slots for scarce pickups.
package claims

import (
	"sort"
	"sync"

	"github.com/Metta-AI/cogames-agents-sub000/internal/policy/grid"
)

// Kind distinguishes what a target claim is for. An agent may hold at most
// one claim per kind.
type Kind int

const (
	KindExtractor Kind = iota
	KindJunction
	KindScramble
	KindDefend
)

func (k Kind) String() string {
	switch k {
	case KindExtractor:
		return "extractor"
	case KindJunction:
		return "junction"
	case KindScramble:
		return "scramble"
	case KindDefend:
		return "defend"
	}
	return "unknown"
}

// Config carries the empirically tuned arbitration constants.
type Config struct {
	ClaimTTL    int // ticks a claim survives without refresh
	SlotCapMin  int
	SlotCapMax  int
	SlotDivisor int // capacity = clamp(min, max, (consumers+1)/divisor)
}

func DefaultConfig() Config {
	return Config{ClaimTTL: 200, SlotCapMin: 2, SlotCapMax: 4, SlotDivisor: 2}
}

type claimKey struct {
	kind Kind
	pos  grid.Pos
}

type claimRec struct {
	agent   int
	granted int // step of grant or last refresh
}

type slotRec struct {
	priority int
	granted  int
}

// JunctionInfo is the shared view of a known junction.
type JunctionInfo struct {
	Pos       grid.Pos
	Alignment grid.Alignment
	LastSeen  int
}

// ExtractorInfo is the shared view of a known extractor.
type ExtractorInfo struct {
	Pos      grid.Pos
	Resource string
	Depleted bool
	LastSeen int
}

// Coordinator is the only cross-agent mutable state in an episode. It is
// constructed once per episode and passed by reference into every agent's
// loop. Agents are stepped sequentially within a tick, but arbitration
// must not depend on that order: preemption tie-breaks use explicit keys
// (priority, then agent id), never insertion order.
type Coordinator struct {
	mu  sync.Mutex
	cfg Config

	claims     map[claimKey]claimRec
	junctions  map[grid.Pos]*JunctionInfo
	extractors map[grid.Pos]*ExtractorInfo
	stations   map[string]grid.Pos

	slots        map[int]slotRec // agent id -> reservation
	priorities   map[int]int     // agent id -> declared priority (lower wins)
	consumers    int
	slotCapacity int
}

func NewCoordinator(cfg Config) *Coordinator {
	c := &Coordinator{
		cfg:        cfg,
		claims:     map[claimKey]claimRec{},
		junctions:  map[grid.Pos]*JunctionInfo{},
		extractors: map[grid.Pos]*ExtractorInfo{},
		stations:   map[string]grid.Pos{},
		slots:      map[int]slotRec{},
		priorities: map[int]int{},
	}
	c.slotCapacity = cfg.SlotCapMin
	return c
}

// ---------------------------------------------------------------------
// Shared registries
// ---------------------------------------------------------------------

// UpdateJunction registers or refreshes a junction sighting.
func (c *Coordinator) UpdateJunction(pos grid.Pos, alignment grid.Alignment, step int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	j := c.junctions[pos]
	if j == nil {
		j = &JunctionInfo{Pos: pos}
		c.junctions[pos] = j
	}
	j.Alignment = alignment
	j.LastSeen = step
}

// UpdateExtractor registers or refreshes an extractor sighting.
func (c *Coordinator) UpdateExtractor(pos grid.Pos, resource string, depleted bool, step int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.extractors[pos]
	if e == nil {
		e = &ExtractorInfo{Pos: pos}
		c.extractors[pos] = e
	}
	e.Resource = resource
	e.Depleted = depleted
	e.LastSeen = step
}

func (c *Coordinator) Junction(pos grid.Pos) (JunctionInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	j := c.junctions[pos]
	if j == nil {
		return JunctionInfo{}, false
	}
	return *j, true
}

func (c *Coordinator) Extractor(pos grid.Pos) (ExtractorInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.extractors[pos]
	if e == nil {
		return ExtractorInfo{}, false
	}
	return *e, true
}

// Junctions returns a snapshot of every known junction.
func (c *Coordinator) Junctions() []JunctionInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]JunctionInfo, 0, len(c.junctions))
	for _, j := range c.junctions {
		out = append(out, *j)
	}
	return out
}

// Extractors returns a snapshot of every known extractor.
func (c *Coordinator) Extractors() []ExtractorInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ExtractorInfo, 0, len(c.extractors))
	for _, e := range c.extractors {
		out = append(out, *e)
	}
	return out
}

// JunctionCounts returns (cogs, clips, neutral) junction tallies.
func (c *Coordinator) JunctionCounts() (cogs, clips, neutral int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, j := range c.junctions {
		switch j.Alignment {
		case grid.AlignCogs:
			cogs++
		case grid.AlignClips:
			clips++
		default:
			neutral++
		}
	}
	return cogs, clips, neutral
}

func (c *Coordinator) IsWinning() bool {
	cogs, clips, _ := c.JunctionCounts()
	return cogs > clips
}

func (c *Coordinator) IsLosing() bool {
	cogs, clips, _ := c.JunctionCounts()
	return clips > cogs
}

// ShareStation publishes a discovered station location for the team.
func (c *Coordinator) ShareStation(stationType string, pos grid.Pos) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stations[stationType] = pos
}

func (c *Coordinator) Station(stationType string) (grid.Pos, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	pos, ok := c.stations[stationType]
	return pos, ok
}

// ---------------------------------------------------------------------
// Target claims
// ---------------------------------------------------------------------

// Claim grants the target to agent if it is unclaimed or already held by
// the same agent (idempotent; re-claiming refreshes the TTL). Claiming a
// target the coordinator has never seen is a no-op returning false.
func (c *Coordinator) Claim(agent int, kind Kind, pos grid.Pos, step int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sweepLocked(step)

	if !c.targetKnownLocked(kind, pos) {
		return false
	}

	key := claimKey{kind, pos}
	if rec, held := c.claims[key]; held && rec.agent != agent {
		return false
	}
	// One claim per kind per agent: a new target supersedes the old one.
	for k, rec := range c.claims {
		if k.kind == kind && rec.agent == agent && k.pos != pos {
			delete(c.claims, k)
		}
	}
	c.claims[key] = claimRec{agent: agent, granted: step}
	return true
}

// Release drops every claim of the given kind held by agent.
func (c *Coordinator) Release(agent int, kind Kind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, rec := range c.claims {
		if k.kind == kind && rec.agent == agent {
			delete(c.claims, k)
		}
	}
}

// Holder returns the current holder of a target, if claimed.
func (c *Coordinator) Holder(kind Kind, pos grid.Pos) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.claims[claimKey{kind, pos}]
	return rec.agent, ok
}

// ClaimedSet returns the positions currently claimed for a kind.
func (c *Coordinator) ClaimedSet(kind Kind, step int) map[grid.Pos]bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sweepLocked(step)
	out := map[grid.Pos]bool{}
	for k := range c.claims {
		if k.kind == kind {
			out[k.pos] = true
		}
	}
	return out
}

// AgentClaim returns the target agent currently holds for a kind.
func (c *Coordinator) AgentClaim(agent int, kind Kind) (grid.Pos, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, rec := range c.claims {
		if k.kind == kind && rec.agent == agent {
			return k.pos, true
		}
	}
	return grid.Pos{}, false
}

func (c *Coordinator) targetKnownLocked(kind Kind, pos grid.Pos) bool {
	switch kind {
	case KindExtractor:
		return c.extractors[pos] != nil
	default:
		return c.junctions[pos] != nil
	}
}

// sweepLocked lazily drops claims and slot reservations whose holders
// stopped refreshing them.
func (c *Coordinator) sweepLocked(step int) {
	for k, rec := range c.claims {
		if step-rec.granted > c.cfg.ClaimTTL {
			delete(c.claims, k)
		}
	}
	for agent, rec := range c.slots {
		if step-rec.granted > c.cfg.ClaimTTL {
			delete(c.slots, agent)
		}
	}
}

// ---------------------------------------------------------------------
// Capacity-limited priority slots
// ---------------------------------------------------------------------

// SetConsumers declares how many agents compete for pickup slots and
// rescales capacity.
func (c *Coordinator) SetConsumers(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.consumers = n
	cap := (n + 1) / c.cfg.SlotDivisor
	if cap < c.cfg.SlotCapMin {
		cap = c.cfg.SlotCapMin
	}
	if cap > c.cfg.SlotCapMax {
		cap = c.cfg.SlotCapMax
	}
	c.slotCapacity = cap
}

func (c *Coordinator) SlotCapacity() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.slotCapacity
}

// RegisterPriority declares an agent's slot priority; lower values win
// preemption contests.
func (c *Coordinator) RegisterPriority(agent, priority int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.priorities[agent] = priority
}

// ReserveSlot grants a pickup slot: immediately when under capacity, or by
// evicting the weakest strictly-lower-priority holder when full. Holding
// agents must re-reserve every tick; reservations expire like claims.
func (c *Coordinator) ReserveSlot(agent, step int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sweepLocked(step)

	if rec, held := c.slots[agent]; held {
		rec.granted = step
		c.slots[agent] = rec
		return true
	}
	myPrio := c.priorityLocked(agent)
	if len(c.slots) < c.slotCapacity {
		c.slots[agent] = slotRec{priority: myPrio, granted: step}
		return true
	}

	// Full: evict the lowest-priority holder, ties broken by highest
	// agent id, but only if strictly weaker than the requester.
	victim, found := -1, false
	for id, rec := range c.slots {
		if rec.priority <= myPrio {
			continue
		}
		if !found {
			victim, found = id, true
			continue
		}
		v := c.slots[victim]
		if rec.priority > v.priority || (rec.priority == v.priority && id > victim) {
			victim = id
		}
	}
	if !found {
		return false
	}
	delete(c.slots, victim)
	c.slots[agent] = slotRec{priority: myPrio, granted: step}
	return true
}

// ReleaseSlot gives a reservation back.
func (c *Coordinator) ReleaseSlot(agent int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.slots, agent)
}

// HoldsSlot reports whether agent currently holds a pickup slot.
func (c *Coordinator) HoldsSlot(agent int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.slots[agent]
	return ok
}

// SlotHolders returns holder ids in ascending order, for inspection.
func (c *Coordinator) SlotHolders() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]int, 0, len(c.slots))
	for id := range c.slots {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

func (c *Coordinator) priorityLocked(agent int) int {
	if p, ok := c.priorities[agent]; ok {
		return p
	}
	return 1
}
