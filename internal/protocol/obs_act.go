package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	AgentName       string `json:"agent_name"`
	Vibe            string `json:"vibe,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	AgentID         int    `json:"agent_id"`
	TeamSize        int    `json:"team_size"`
	Seed            int64  `json:"seed"`
	TickRateHz      int    `json:"tick_rate_hz"`
	ObsHalfHeight   int    `json:"obs_half_height"`
	ObsHalfWidth    int    `json:"obs_half_width"`
}

// OBS (server -> client). Positions of visible entities are relative to the
// agent (dr, dc deltas from its cell); the agent's own absolute position is
// never reported and must be tracked from executed actions.
type ObsMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Tick            uint64 `json:"tick"`
	AgentID         int    `json:"agent_id"`

	Self     SelfObs     `json:"self"`
	Entities []EntityObs `json:"entities"`
}

type SelfObs struct {
	Energy int `json:"energy"`
	HP     int `json:"hp"`

	Cargo         CargoObs `json:"cargo"`
	CargoCapacity int      `json:"cargo_capacity"`
	Hearts        int      `json:"hearts"`

	Vibe string  `json:"vibe"`
	Gear GearObs `json:"gear"`

	// Action the environment actually executed last tick. May differ from
	// the action the agent emitted (conflicts, delays, external control).
	LastActionExecuted Action `json:"last_action_executed,omitempty"`
	// Set when the last tick resolved as an object interaction rather
	// than a displacement.
	UsedObject bool `json:"used_object,omitempty"`
}

type CargoObs struct {
	Carbon    int `json:"carbon"`
	Oxygen    int `json:"oxygen"`
	Germanium int `json:"germanium"`
	Silicon   int `json:"silicon"`
}

func (c CargoObs) Total() int {
	return c.Carbon + c.Oxygen + c.Germanium + c.Silicon
}

type GearObs struct {
	Miner     bool `json:"miner,omitempty"`
	Scout     bool `json:"scout,omitempty"`
	Aligner   bool `json:"aligner,omitempty"`
	Scrambler bool `json:"scrambler,omitempty"`
}

type EntityObs struct {
	Dr   int    `json:"dr"`
	Dc   int    `json:"dc"`
	Type string `json:"type"` // "wall", "agent", "carbon_extractor", "junction", ...

	Alignment       string `json:"alignment,omitempty"` // "cogs", "clips" or "" (neutral)
	RemainingUses   int    `json:"remaining_uses,omitempty"`
	Cooldown        int    `json:"cooldown,omitempty"`
	InventoryAmount int    `json:"inventory_amount,omitempty"`
}

// ACT (client -> server). Exactly one action per tick.
type ActMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Tick            uint64 `json:"tick"`
	AgentID         int    `json:"agent_id"`
	Action          Action `json:"action"`
}
