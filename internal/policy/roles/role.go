// Package roles defines the closed set of agent roles, their leaf goals,
// and the per-phase goal lists that govern each role.
package roles

import (
	"github.com/Metta-AI/cogames-agents-sub000/internal/policy/goal"
	"github.com/Metta-AI/cogames-agents-sub000/internal/policy/tuning"
)

// Role is a closed tagged variant; behavior is selected through lookup
// tables, never string comparison.
type Role int

const (
	Miner Role = iota
	Scout
	Aligner
	Scrambler
	Defender
)

var roleNames = [...]string{
	Miner:     "miner",
	Scout:     "scout",
	Aligner:   "aligner",
	Scrambler: "scrambler",
	Defender:  "defender",
}

func (r Role) String() string {
	if int(r) < len(roleNames) {
		return roleNames[r]
	}
	return "miner"
}

// Vibe returns the vibe name the environment expects for this role.
// Defenders run on the aligner vibe: they re-align contested junctions.
func (r Role) Vibe() string {
	if r == Defender {
		return Aligner.String()
	}
	return r.String()
}

// SlotPriority is the heart-pickup priority: aligners score directly and
// outrank scramblers and everyone else. Lower wins.
func (r Role) SlotPriority() int {
	if r == Aligner || r == Defender {
		return 0
	}
	return 1
}

// ConsumesHearts reports whether the role competes for pickup slots.
func (r Role) ConsumesHearts() bool {
	switch r {
	case Aligner, Scrambler, Defender:
		return true
	}
	return false
}

func Parse(s string) (Role, bool) {
	for r, name := range roleNames {
		if name == s {
			return Role(r), true
		}
	}
	return Miner, false
}

// Distribution expands the declarative team composition into a role per
// agent slot, aligner-heavy roles first.
func Distribution(t tuning.Roles) []Role {
	var out []Role
	add := func(r Role, n int) {
		for i := 0; i < n; i++ {
			out = append(out, r)
		}
	}
	add(Aligner, t.Aligner)
	add(Scrambler, t.Scrambler)
	add(Miner, t.Miner)
	add(Scout, t.Scout)
	add(Defender, t.Defender)
	return out
}

// earlyExploreCells is how much map an agent wants before settling into
// its role during the early phase.
const earlyExploreCells = 300

type goalBuilder func(phase goal.Phase) []goal.Goal

// goalTable maps each role to its goal-list builder. Per-role variation
// is declarative list content; the evaluation engine is shared.
var goalTable = map[Role]goalBuilder{
	Miner: func(phase goal.Phase) []goal.Goal {
		return []goal.Goal{
			&DepositCargo{},
			&MineResource{},
			&ExploreMap{},
		}
	},
	Scout: func(phase goal.Phase) []goal.Goal {
		return []goal.Goal{&ExploreMap{}}
	},
	Aligner: func(phase goal.Phase) []goal.Goal {
		gs := []goal.Goal{&AlignJunction{}}
		if phase == goal.PhaseEarly {
			gs = append([]goal.Goal{&ExploreUntil{Cells: earlyExploreCells}}, gs...)
		}
		return append(gs, &ExploreMap{})
	},
	Scrambler: func(phase goal.Phase) []goal.Goal {
		gs := []goal.Goal{&ScrambleJunction{}}
		if phase == goal.PhaseEarly {
			gs = append([]goal.Goal{&ExploreUntil{Cells: earlyExploreCells}}, gs...)
		}
		return append(gs, &ExploreMap{})
	},
	Defender: func(phase goal.Phase) []goal.Goal {
		return []goal.Goal{
			&DefendJunction{},
			&ExploreMap{},
		}
	},
}

// Goals builds the priority-ordered goal list for a role in a phase.
func Goals(r Role, phase goal.Phase) []goal.Goal {
	if b, ok := goalTable[r]; ok {
		return b(phase)
	}
	return []goal.Goal{&ExploreMap{}}
}
