package goal

import "github.com/Metta-AI/cogames-agents-sub000/internal/policy/grid"

// Key identifies per-(goal, target) retry state.
type Key struct {
	Goal   string
	Target grid.Pos
}

// AttemptRecord tracks adjacent-but-not-progressing attempts against one
// target, and the blacklist window after too many failures.
type AttemptRecord struct {
	Count         int
	FailStreak    int
	LastFailStep  int
	CooldownUntil int
}

// AttemptStore is the typed replacement for a stringly-keyed blackboard:
// one record per (goal, target), owned by a single agent.
type AttemptStore struct {
	records map[Key]*AttemptRecord
}

func NewAttemptStore() *AttemptStore {
	return &AttemptStore{records: map[Key]*AttemptRecord{}}
}

// Bump increments the attempt counter and returns the new count. Call it
// while adjacent to the target and seeing no measurable progress.
func (s *AttemptStore) Bump(k Key) int {
	r := s.records[k]
	if r == nil {
		r = &AttemptRecord{}
		s.records[k] = r
	}
	r.Count++
	return r.Count
}

// Progress resets the attempt counter after observable progress.
func (s *AttemptStore) Progress(k Key) {
	if r := s.records[k]; r != nil {
		r.Count = 0
		r.FailStreak = 0
	}
}

// Fail blacklists the target until a cooldown deadline. The cooldown
// doubles on each repeated failure of the same target, capped at max.
func (s *AttemptStore) Fail(k Key, step, baseCooldown, maxCooldown int) {
	r := s.records[k]
	if r == nil {
		r = &AttemptRecord{}
		s.records[k] = r
	}
	cooldown := baseCooldown << r.FailStreak
	if cooldown > maxCooldown || cooldown <= 0 {
		cooldown = maxCooldown
	}
	r.FailStreak++
	r.Count = 0
	r.LastFailStep = step
	r.CooldownUntil = step + cooldown
}

// Blocked reports whether the target is inside its failure cooldown.
func (s *AttemptStore) Blocked(k Key, step int) bool {
	r := s.records[k]
	return r != nil && step < r.CooldownUntil
}

// Record returns a copy of the current state for a key.
func (s *AttemptStore) Record(k Key) (AttemptRecord, bool) {
	r := s.records[k]
	if r == nil {
		return AttemptRecord{}, false
	}
	return *r, true
}
