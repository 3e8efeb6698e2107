package trace

import (
	"database/sql"
	"sync"
	"sync/atomic"

	_ "modernc.org/sqlite"
)

// SQLiteIndex keeps a queryable per-episode index next to the compressed
// rollout logs: one row per episode plus per-agent tick/action tallies.
// All writes go through a single writer goroutine.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan TickRecord
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS episodes (
	id TEXT PRIMARY KEY,
	last_step INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS agent_ticks (
	episode TEXT NOT NULL,
	agent_id INTEGER NOT NULL,
	role TEXT NOT NULL,
	ticks INTEGER NOT NULL DEFAULT 0,
	moves INTEGER NOT NULL DEFAULT 0,
	noops INTEGER NOT NULL DEFAULT 0,
	skips INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (episode, agent_id)
);
`

func NewSQLiteIndex(path string) (*SQLiteIndex, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, err
	}
	idx := &SQLiteIndex{
		db: db,
		ch: make(chan TickRecord, 1024),
	}
	idx.wg.Add(1)
	go idx.writerLoop()
	return idx, nil
}

func (i *SQLiteIndex) RecordTick(r TickRecord) error {
	if i.closed.Load() {
		return nil
	}
	// Drop rather than block the tick loop when the writer falls behind.
	select {
	case i.ch <- r:
	default:
	}
	return nil
}

func (i *SQLiteIndex) writerLoop() {
	defer i.wg.Done()
	for r := range i.ch {
		i.apply(r)
	}
}

func (i *SQLiteIndex) apply(r TickRecord) {
	_, _ = i.db.Exec(`INSERT INTO episodes (id, last_step) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET last_step=MAX(last_step, excluded.last_step)`,
		r.Episode, r.Step)

	move, noop := 0, 0
	switch {
	case len(r.Action) > 5 && r.Action[:5] == "move_":
		move = 1
	case r.Action == "noop":
		noop = 1
	}
	_, _ = i.db.Exec(`INSERT INTO agent_ticks (episode, agent_id, role, ticks, moves, noops, skips)
		VALUES (?, ?, ?, 1, ?, ?, ?)
		ON CONFLICT(episode, agent_id) DO UPDATE SET
			role=excluded.role,
			ticks=ticks+1,
			moves=moves+excluded.moves,
			noops=noops+excluded.noops,
			skips=skips+excluded.skips`,
		r.Episode, r.AgentID, r.Role, move, noop, len(r.Skips))
}

func (i *SQLiteIndex) Close() error {
	var err error
	i.once.Do(func() {
		i.closed.Store(true)
		close(i.ch)
		i.wg.Wait()
		err = i.db.Close()
	})
	return err
}

// AgentSummary is one aggregated row for inspection and tests.
type AgentSummary struct {
	AgentID int
	Role    string
	Ticks   int
	Moves   int
	Noops   int
	Skips   int
}

// EpisodeSummary reads back the tallies for an episode, ordered by agent.
func (i *SQLiteIndex) EpisodeSummary(episode string) ([]AgentSummary, error) {
	rows, err := i.db.Query(`SELECT agent_id, role, ticks, moves, noops, skips
		FROM agent_ticks WHERE episode = ? ORDER BY agent_id`, episode)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AgentSummary
	for rows.Next() {
		var s AgentSummary
		if err := rows.Scan(&s.AgentID, &s.Role, &s.Ticks, &s.Moves, &s.Noops, &s.Skips); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
