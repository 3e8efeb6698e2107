// Package agent runs the per-tick decision loop: reconcile position from
// the executed action, fold the observation into the map, refresh shared
// registries, and evaluate the role's goal list down to one action.
package agent

import (
	"strings"

	"github.com/Metta-AI/cogames-agents-sub000/internal/policy/claims"
	"github.com/Metta-AI/cogames-agents-sub000/internal/policy/goal"
	"github.com/Metta-AI/cogames-agents-sub000/internal/policy/grid"
	"github.com/Metta-AI/cogames-agents-sub000/internal/policy/nav"
	"github.com/Metta-AI/cogames-agents-sub000/internal/policy/roles"
	"github.com/Metta-AI/cogames-agents-sub000/internal/policy/tuning"
	"github.com/Metta-AI/cogames-agents-sub000/internal/protocol"
	"github.com/Metta-AI/cogames-agents-sub000/internal/trace"
)

// extractorUsesUnknown stands in when the server omits remaining_uses and
// inventory_amount for an extractor; treat it as effectively unlimited
// rather than depleted.
const extractorUsesUnknown = 999

// Loop holds one agent's private decision state across an episode. All
// cross-agent state lives in the shared Coordinator.
type Loop struct {
	agentID int
	role    roles.Role
	episode string

	halfH, halfW int

	tune     *tuning.Tuning
	grid     *grid.Grid
	nav      *nav.Navigator
	coord    *claims.Coordinator
	attempts *goal.AttemptStore
	rec      trace.Recorder

	// Position is relative to spawn; the server never reports it.
	pos          grid.Pos
	lastIntended protocol.Action
	vibeRetries  int
	moveFails    int
	goals        map[goal.Phase][]goal.Goal
}

func NewLoop(agentID int, role roles.Role, welcome protocol.WelcomeMsg, coord *claims.Coordinator, tune *tuning.Tuning, rec trace.Recorder) *Loop {
	nc := nav.Config{
		MaxIterations:     tune.Navigator.MaxIterations,
		FrontierRadius:    tune.Navigator.FrontierRadius,
		SidestepMaxDetour: tune.Navigator.SidestepMaxDetour,
		MaxWaits:          tune.Navigator.MaxWaits,
		RandomWalkSteps:   tune.Navigator.RandomWalkSteps,
		SpiralSteps:       tune.Navigator.SpiralSteps,
		HistoryLen:        tune.Navigator.HistoryLen,
		MotionlessTicks:   tune.Navigator.MotionlessTicks,
	}
	return &Loop{
		agentID:  agentID,
		role:     role,
		halfH:    welcome.ObsHalfHeight,
		halfW:    welcome.ObsHalfWidth,
		tune:     tune,
		grid:     grid.New(),
		nav:      nav.New(nc, welcome.Seed+int64(agentID), nav.BiasFor(agentID)),
		coord:    coord,
		attempts: goal.NewAttemptStore(),
		rec:      rec,
		goals:    map[goal.Phase][]goal.Goal{},
	}
}

func (l *Loop) AgentID() int     { return l.agentID }
func (l *Loop) Role() roles.Role { return l.role }

// SetEpisode tags emitted trace records.
func (l *Loop) SetEpisode(id string) { l.episode = id }

// Position returns the agent's dead-reckoned position, for tests.
func (l *Loop) Position() grid.Pos { return l.pos }

// Step consumes one observation and produces exactly one action.
func (l *Loop) Step(obs *protocol.ObsMsg) protocol.Action {
	step := int(obs.Tick)
	l.reconcile(&obs.Self)

	visible := l.decodeEntities(obs.Entities)
	l.grid.Update(l.pos, l.halfH, l.halfW, visible, step)
	l.publishSightings(visible, step)

	phase := l.phase(step)
	role := l.effectiveRole(phase)

	rec := &trace.TickRecord{
		Episode: l.episode,
		Step:    step,
		AgentID: l.agentID,
		Role:    role.String(),
		Phase:   phase.String(),
		Row:     l.pos.Row,
		Col:     l.pos.Col,
		Energy:  obs.Self.Energy,
		HP:      obs.Self.HP,
	}

	act := l.decide(obs, step, phase, role, rec)

	rec.Action = string(act)
	if stage := l.nav.Recovery(); stage != nav.RecoveryNone {
		rec.Recovery = stage.String()
	}
	if l.rec != nil {
		l.rec.RecordTick(*rec)
	}
	l.lastIntended = act
	return act
}

func (l *Loop) decide(obs *protocol.ObsMsg, step int, phase goal.Phase, role roles.Role, rec *trace.TickRecord) protocol.Action {
	st := &goal.State{
		Position:      l.pos,
		Energy:        obs.Self.Energy,
		HP:            obs.Self.HP,
		Cargo:         obs.Self.Cargo,
		CargoCapacity: obs.Self.CargoCapacity,
		Hearts:        obs.Self.Hearts,
		Vibe:          obs.Self.Vibe,
		Gear:          obs.Self.Gear,
	}

	// A held heart frees the pickup slot for the next consumer.
	if st.Hearts > 0 {
		l.coord.ReleaseSlot(l.agentID)
	}

	if act, ok := l.ensureVibe(st.Vibe, role, rec); ok {
		return act
	}

	ctx := &goal.Context{
		AgentID:  l.agentID,
		Step:     step,
		Phase:    phase,
		State:    st,
		Grid:     l.grid,
		Nav:      l.nav,
		Coord:    l.coord,
		Attempts: l.attempts,
		Tune:     l.tune,
		Rec:      rec,
	}

	var act protocol.Action
	switch {
	case l.moveFails >= l.tune.MoveFailDropTarget:
		// The target itself looks unreachable. Drop the cached path and
		// start over somewhere else.
		l.nav.InvalidateCache()
		l.moveFails = 0
		rec.GoalChain = "DropTarget"
		act = ctx.Explore()
	case l.moveFails >= l.tune.MoveFailExplore:
		rec.GoalChain = "ForcedExplore"
		act = ctx.Explore()
	default:
		act = goal.Evaluate(l.goalList(role, phase), ctx)
	}

	return l.energyGate(act, st, rec)
}

// goalList caches goal lists per phase so leaf goals keep their target
// state across ticks.
func (l *Loop) goalList(role roles.Role, phase goal.Phase) []goal.Goal {
	if role != l.role {
		// Phase-switched role: rebuild fresh each tick, it carries no
		// long-lived targets worth preserving.
		return roles.Goals(role, phase)
	}
	gs := l.goals[phase]
	if gs == nil {
		gs = roles.Goals(role, phase)
		l.goals[phase] = gs
	}
	return gs
}

// reconcile advances the dead-reckoned position by the action the server
// actually executed, which may differ from the one we sent. Object
// interactions never displace.
func (l *Loop) reconcile(self *protocol.SelfObs) {
	moved := false
	if !self.UsedObject {
		if dr, dc := self.LastActionExecuted.MoveDelta(); dr != 0 || dc != 0 {
			l.pos = l.pos.Add(dr, dc)
			moved = true
		}
	}

	switch {
	case moved || self.UsedObject:
		l.moveFails = 0
	case l.lastIntended.IsMove():
		l.moveFails++
	}
}

func (l *Loop) decodeEntities(entities []protocol.EntityObs) map[grid.Pos]grid.Sighting {
	visible := make(map[grid.Pos]grid.Sighting, len(entities))
	for _, e := range entities {
		if e.Dr == 0 && e.Dc == 0 {
			continue // our own cell
		}
		s := grid.Sighting{
			Type:            e.Type,
			Alignment:       grid.Alignment(e.Alignment),
			RemainingUses:   e.RemainingUses,
			Cooldown:        e.Cooldown,
			InventoryAmount: e.InventoryAmount,
		}
		if isExtractor(e.Type) && e.RemainingUses == 0 && e.InventoryAmount == 0 {
			s.RemainingUses = extractorUsesUnknown
			s.InventoryAmount = extractorUsesUnknown
		}
		visible[l.pos.Add(e.Dr, e.Dc)] = s
	}
	return visible
}

// publishSightings pushes junctions, extractors and stations into the
// shared registries so teammates can use them sight-unseen.
func (l *Loop) publishSightings(visible map[grid.Pos]grid.Sighting, step int) {
	for pos, s := range visible {
		switch {
		case s.Type == "junction":
			l.coord.UpdateJunction(pos, s.Alignment, step)
		case isExtractor(s.Type):
			depleted := s.RemainingUses <= 0 && s.InventoryAmount <= 0
			l.coord.UpdateExtractor(pos, extractorResource(s.Type), depleted, step)
		case s.Type == "assembler" || s.Type == "charger" || strings.HasSuffix(s.Type, "_station"):
			l.coord.ShareStation(s.Type, pos)
		}
	}
}

// ensureVibe switches the vibe when it drifts from the role's, bounded by
// a retry cap so a server that refuses the change cannot wedge the agent.
func (l *Loop) ensureVibe(current string, role roles.Role, rec *trace.TickRecord) (protocol.Action, bool) {
	want := role.Vibe()
	if current == want {
		l.vibeRetries = 0
		return protocol.ActionNoop, false
	}
	if l.vibeRetries >= l.tune.VibeRetryMax {
		return protocol.ActionNoop, false
	}
	l.vibeRetries++
	rec.GoalChain = "EnsureVibe"
	return protocol.ChangeVibe(want), true
}

// energyGate keeps a reserve for object interactions: when energy dips
// below it, moves are redirected toward the nearest friendly charger, and
// a move we cannot pay for at all becomes a noop.
func (l *Loop) energyGate(act protocol.Action, st *goal.State, rec *trace.TickRecord) protocol.Action {
	if !act.IsMove() {
		return act
	}
	if st.Energy < l.tune.EnergyPerMove {
		rec.Skip("EnergyGate", "exhausted")
		return protocol.ActionNoop
	}
	if st.Energy >= l.tune.EnergyReserve {
		return act
	}
	m, ok := l.grid.FindNearest(l.pos, grid.Query{
		Type: "charger",
		Filter: func(s *grid.Structure) bool {
			return s.Alignment != grid.AlignClips
		},
	})
	if !ok {
		return act
	}
	rec.GoalChain = "Recharge"
	rec.SetNavTarget(m.Pos.Row, m.Pos.Col)
	if grid.Manhattan(l.pos, m.Pos) == 1 {
		return grid.MoveAction(l.pos, m.Pos)
	}
	// The goal that produced act already tracked this tick's position;
	// Route replans without tracking it a second time.
	return l.nav.Route(l.pos, m.Pos, l.grid, true)
}

// phase maps the tick counter onto the coarse game phase.
func (l *Loop) phase(step int) goal.Phase {
	switch {
	case step <= l.tune.PhaseEarlyMaxStep:
		return goal.PhaseEarly
	case step <= l.tune.PhaseMidMaxStep:
		return goal.PhaseMid
	}
	return goal.PhaseLate
}

// effectiveRole applies phase-driven switching: scouts have nothing left
// to scout once the map is opened, so they convert to aligners.
func (l *Loop) effectiveRole(phase goal.Phase) roles.Role {
	if l.role == roles.Scout && phase != goal.PhaseEarly {
		return roles.Aligner
	}
	return l.role
}

func isExtractor(t string) bool { return strings.HasSuffix(t, "_extractor") }

func extractorResource(t string) string {
	return strings.TrimSuffix(t, "_extractor")
}
