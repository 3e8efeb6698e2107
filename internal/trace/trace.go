// Package trace defines the instrumentation hook the policy core emits
// per-tick records through, plus the sinks that persist them. The core
// only fills in TickRecord and calls a Recorder; it never depends on a
// particular sink.
package trace

// SkipEntry records one goal that declined to act this tick.
type SkipEntry struct {
	Goal   string `json:"goal"`
	Reason string `json:"reason"`
}

// TickRecord is everything the core exposes about one agent-tick: the
// chosen action, the active goal chain, skip reasons, and navigation
// state. One record per agent per tick.
type TickRecord struct {
	Episode string `json:"episode,omitempty"`
	Step    int    `json:"step"`
	AgentID int    `json:"agent_id"`
	Role    string `json:"role"`
	Phase   string `json:"phase"`

	Row int `json:"row"`
	Col int `json:"col"`

	Action    string      `json:"action"`
	GoalChain string      `json:"goal_chain,omitempty"`
	Skips     []SkipEntry `json:"skips,omitempty"`

	NavTargetRow *int   `json:"nav_target_row,omitempty"`
	NavTargetCol *int   `json:"nav_target_col,omitempty"`
	Recovery     string `json:"recovery,omitempty"`

	Energy int `json:"energy"`
	HP     int `json:"hp"`
}

// Skip appends a skip entry. Nil-safe so the core can call it
// unconditionally.
func (r *TickRecord) Skip(goal, reason string) {
	if r == nil {
		return
	}
	r.Skips = append(r.Skips, SkipEntry{Goal: goal, Reason: reason})
}

// SetNavTarget records the navigator's current target.
func (r *TickRecord) SetNavTarget(row, col int) {
	if r == nil {
		return
	}
	r.NavTargetRow = &row
	r.NavTargetCol = &col
}

// Recorder consumes tick records. Implementations must tolerate being
// called from multiple agent loops.
type Recorder interface {
	RecordTick(TickRecord) error
	Close() error
}

// Memory keeps records in a slice; test helper.
type Memory struct {
	Records []TickRecord
}

func (m *Memory) RecordTick(r TickRecord) error {
	m.Records = append(m.Records, r)
	return nil
}

func (m *Memory) Close() error { return nil }

// Multi fans records out to several sinks.
type Multi []Recorder

func (m Multi) RecordTick(r TickRecord) error {
	var first error
	for _, rec := range m {
		if err := rec.RecordTick(r); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m Multi) Close() error {
	var first error
	for _, rec := range m {
		if err := rec.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
