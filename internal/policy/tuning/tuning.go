// Package tuning loads the policy's empirically tuned constants. Every
// value has a default matching shipped play; a yaml file overrides fields
// selectively.
package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	// Phase boundaries (ticks).
	PhaseEarlyMaxStep int `yaml:"phase_early_max_step"`
	PhaseMidMaxStep   int `yaml:"phase_mid_max_step"`

	// Movement economy.
	EnergyPerMove int `yaml:"energy_per_move"`
	EnergyReserve int `yaml:"energy_reserve"`

	// Leaf-goal retry/backoff.
	MaxAttempts     int `yaml:"max_attempts"`
	FailCooldown    int `yaml:"fail_cooldown"`
	MaxFailCooldown int `yaml:"max_fail_cooldown"`

	// Failed-move handling in the agent loop.
	MoveFailExplore    int `yaml:"move_fail_explore"`
	MoveFailDropTarget int `yaml:"move_fail_drop_target"`
	VibeRetryMax       int `yaml:"vibe_retry_max"`

	// Cargo deposit thresholds.
	DepositRatio     float64 `yaml:"deposit_ratio"`
	DepositMaxDetour int     `yaml:"deposit_max_detour"`
	DepositNearDist  int     `yaml:"deposit_near_dist"`
	MinCargoDetour   int     `yaml:"min_cargo_detour"`

	Claims    Claims    `yaml:"claims"`
	Navigator Navigator `yaml:"navigator"`
	Roles     Roles     `yaml:"roles"`
}

type Claims struct {
	TTL         int `yaml:"ttl"`
	SlotCapMin  int `yaml:"slot_cap_min"`
	SlotCapMax  int `yaml:"slot_cap_max"`
	SlotDivisor int `yaml:"slot_divisor"`
}

type Navigator struct {
	MaxIterations     int `yaml:"max_iterations"`
	FrontierRadius    int `yaml:"frontier_radius"`
	SidestepMaxDetour int `yaml:"sidestep_max_detour"`
	MaxWaits          int `yaml:"max_waits"`
	RandomWalkSteps   int `yaml:"random_walk_steps"`
	SpiralSteps       int `yaml:"spiral_steps"`
	HistoryLen        int `yaml:"history_len"`
	MotionlessTicks   int `yaml:"motionless_ticks"`
}

// Roles is the declarative team composition.
type Roles struct {
	Miner     int `yaml:"miner"`
	Scout     int `yaml:"scout"`
	Aligner   int `yaml:"aligner"`
	Scrambler int `yaml:"scrambler"`
	Defender  int `yaml:"defender"`
}

// Default returns the shipped constants.
func Default() Tuning {
	return Tuning{
		PhaseEarlyMaxStep: 200,
		PhaseMidMaxStep:   1000,

		EnergyPerMove: 3,
		EnergyReserve: 15,

		MaxAttempts:     5,
		FailCooldown:    100,
		MaxFailCooldown: 800,

		MoveFailExplore:    10,
		MoveFailDropTarget: 15,
		VibeRetryMax:       3,

		DepositRatio:     0.8,
		DepositMaxDetour: 40,
		DepositNearDist:  8,
		MinCargoDetour:   10,

		Claims: Claims{
			TTL:         200,
			SlotCapMin:  2,
			SlotCapMax:  4,
			SlotDivisor: 2,
		},
		Navigator: Navigator{
			MaxIterations:     5000,
			FrontierRadius:    50,
			SidestepMaxDetour: 2,
			MaxWaits:          2,
			RandomWalkSteps:   5,
			SpiralSteps:       12,
			HistoryLen:        30,
			MotionlessTicks:   8,
		},
		Roles: Roles{
			Miner:     2,
			Scout:     1,
			Aligner:   5,
			Scrambler: 2,
			Defender:  0,
		},
	}
}

// Load reads a yaml tuning file over the defaults. A missing path returns
// the defaults unchanged.
func Load(path string) (Tuning, error) {
	t := Default()
	if path == "" {
		return t, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}
