package agent

import (
	"github.com/Metta-AI/cogames-agents-sub000/internal/policy/claims"
	"github.com/Metta-AI/cogames-agents-sub000/internal/policy/roles"
	"github.com/Metta-AI/cogames-agents-sub000/internal/policy/tuning"
	"github.com/Metta-AI/cogames-agents-sub000/internal/protocol"
	"github.com/Metta-AI/cogames-agents-sub000/internal/trace"
)

// Team owns one episode's worth of agent loops and their shared
// coordinator. Role assignment follows the declarative composition from
// tuning, cycled when the team is larger than the composition.
type Team struct {
	Coord *claims.Coordinator
	Loops []*Loop
}

func NewTeam(welcome protocol.WelcomeMsg, tune *tuning.Tuning, rec trace.Recorder) *Team {
	coord := claims.NewCoordinator(claims.Config{
		ClaimTTL:    tune.Claims.TTL,
		SlotCapMin:  tune.Claims.SlotCapMin,
		SlotCapMax:  tune.Claims.SlotCapMax,
		SlotDivisor: tune.Claims.SlotDivisor,
	})

	dist := roles.Distribution(tune.Roles)
	if len(dist) == 0 {
		dist = []roles.Role{roles.Miner}
	}

	t := &Team{Coord: coord}
	consumers := 0
	for i := 0; i < welcome.TeamSize; i++ {
		role := dist[i%len(dist)]
		w := welcome
		w.AgentID = i
		loop := NewLoop(i, role, w, coord, tune, rec)
		t.Loops = append(t.Loops, loop)

		coord.RegisterPriority(i, role.SlotPriority())
		if role.ConsumesHearts() {
			consumers++
		}
	}
	coord.SetConsumers(consumers)
	return t
}

// Loop returns the loop for an agent id, or nil.
func (t *Team) Loop(agentID int) *Loop {
	if agentID < 0 || agentID >= len(t.Loops) {
		return nil
	}
	return t.Loops[agentID]
}
