// tracecat dumps and summarizes rollout traces written by cmd/agent.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/klauspost/compress/zstd"

	"github.com/Metta-AI/cogames-agents-sub000/internal/protocol"
	"github.com/Metta-AI/cogames-agents-sub000/internal/trace"
)

func main() {
	var (
		path      = flag.String("trace", "", "path to rollout-*.jsonl.zst")
		indexPath = flag.String("index", "", "sqlite trace index path (optional)")
		episode   = flag.String("episode", "", "episode id for -index lookup")
		agentID   = flag.Int("agent", -1, "only this agent (-1 = all)")
		fromStep  = flag.Int("from_step", 0, "start at step (inclusive)")
		toStep    = flag.Int("to_step", 0, "stop at step (inclusive, 0 = end)")
		dump      = flag.Bool("dump", false, "print every record, not just the summary")
	)
	flag.Parse()

	if *indexPath != "" {
		if err := printIndexSummary(*indexPath, *episode); err != nil {
			fmt.Fprintln(os.Stderr, "index:", err)
			os.Exit(1)
		}
		return
	}

	if *path == "" {
		fmt.Fprintln(os.Stderr, "missing -trace or -index")
		os.Exit(2)
	}
	if err := scanTrace(*path, *agentID, *fromStep, *toStep, *dump); err != nil {
		fmt.Fprintln(os.Stderr, "trace:", err)
		os.Exit(1)
	}
}

type agentTally struct {
	role  string
	ticks int
	moves int
	noops int
	skips int
}

func scanTrace(path string, agentID, fromStep, toStep int, dump bool) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)

	tallies := map[int]*agentTally{}
	lastStep := 0
	for sc.Scan() {
		var r trace.TickRecord
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		if agentID >= 0 && r.AgentID != agentID {
			continue
		}
		if r.Step < fromStep {
			continue
		}
		if toStep != 0 && r.Step > toStep {
			break
		}
		if dump {
			fmt.Printf("step=%d agent=%d role=%s phase=%s pos=(%d,%d) action=%s chain=%s\n",
				r.Step, r.AgentID, r.Role, r.Phase, r.Row, r.Col, r.Action, r.GoalChain)
		}

		t := tallies[r.AgentID]
		if t == nil {
			t = &agentTally{}
			tallies[r.AgentID] = t
		}
		t.role = r.Role
		t.ticks++
		t.skips += len(r.Skips)
		if protocol.Action(r.Action).IsMove() {
			t.moves++
		} else if protocol.Action(r.Action) == protocol.ActionNoop {
			t.noops++
		}
		if r.Step > lastStep {
			lastStep = r.Step
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}

	ids := make([]int, 0, len(tallies))
	for id := range tallies {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fmt.Printf("trace ok: last_step=%d agents=%d\n", lastStep, len(ids))
	for _, id := range ids {
		t := tallies[id]
		fmt.Printf("agent=%d role=%-9s ticks=%d moves=%d noops=%d skips=%d\n",
			id, t.role, t.ticks, t.moves, t.noops, t.skips)
	}
	return nil
}

func printIndexSummary(path, episode string) error {
	idx, err := trace.NewSQLiteIndex(path)
	if err != nil {
		return err
	}
	defer idx.Close()

	sums, err := idx.EpisodeSummary(episode)
	if err != nil {
		return err
	}
	if len(sums) == 0 {
		return fmt.Errorf("no rows for episode %q", episode)
	}
	for _, s := range sums {
		fmt.Printf("agent=%d role=%-9s ticks=%d moves=%d noops=%d skips=%d\n",
			s.AgentID, s.Role, s.Ticks, s.Moves, s.Noops, s.Skips)
	}
	return nil
}
