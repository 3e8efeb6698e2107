package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/Metta-AI/cogames-agents-sub000/internal/policy/agent"
	"github.com/Metta-AI/cogames-agents-sub000/internal/policy/tuning"
	"github.com/Metta-AI/cogames-agents-sub000/internal/protocol"
	"github.com/Metta-AI/cogames-agents-sub000/internal/trace"
)

func main() {
	var (
		url        = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name       = flag.String("name", "cogs", "agent name prefix")
		tuningPath = flag.String("tuning", "", "tuning yaml (optional)")
		traceDir   = flag.String("trace_dir", "", "write rollout-<episode>.jsonl.zst here (optional)")
		indexPath  = flag.String("index", "", "sqlite trace index path (optional)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[agent] ", log.LstdFlags|log.Lmicroseconds)

	tune, err := tuning.Load(*tuningPath)
	if err != nil {
		logger.Fatalf("tuning: %v", err)
	}

	// The first connection tells us the team size and seed; the rest of
	// the team connects after.
	first, welcome, err := connect(*url, fmt.Sprintf("%s-0", *name))
	if err != nil {
		logger.Fatalf("connect: %v", err)
	}
	logger.Printf("WELCOME agent_id=%d team_size=%d seed=%d tick_rate=%d",
		welcome.AgentID, welcome.TeamSize, welcome.Seed, welcome.TickRateHz)

	episode := fmt.Sprintf("ep-%d", welcome.Seed)
	rec, err := buildRecorder(*traceDir, *indexPath, episode)
	if err != nil {
		logger.Fatalf("trace: %v", err)
	}
	defer rec.Close()

	team := agent.NewTeam(welcome, &tune, rec)
	for _, l := range team.Loops {
		l.SetEpisode(episode)
	}

	conns := map[int]*websocket.Conn{welcome.AgentID: first}
	for i := 1; i < welcome.TeamSize; i++ {
		conn, w, err := connect(*url, fmt.Sprintf("%s-%d", *name, i))
		if err != nil {
			logger.Fatalf("connect agent %d: %v", i, err)
		}
		if conns[w.AgentID] != nil {
			logger.Fatalf("duplicate agent_id %d from server", w.AgentID)
		}
		conns[w.AgentID] = conn
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	var wg sync.WaitGroup
	for id, conn := range conns {
		loop := team.Loop(id)
		if loop == nil {
			logger.Fatalf("no loop for agent_id %d", id)
		}
		wg.Add(1)
		go func(conn *websocket.Conn, loop *agent.Loop) {
			defer wg.Done()
			defer conn.Close()
			runAgent(conn, loop, logger)
		}(conn, loop)
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-stop:
		for _, conn := range conns {
			conn.Close()
		}
		<-done
	case <-done:
	}
}

// connect dials, sends HELLO and waits for the WELCOME.
func connect(url, name string) (*websocket.Conn, protocol.WelcomeMsg, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, protocol.WelcomeMsg{}, err
	}
	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		AgentName:       name,
	}
	if err := conn.WriteJSON(hello); err != nil {
		conn.Close()
		return nil, protocol.WelcomeMsg{}, fmt.Errorf("send HELLO: %w", err)
	}

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			conn.Close()
			return nil, protocol.WelcomeMsg{}, fmt.Errorf("await WELCOME: %w", err)
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil || base.Type != protocol.TypeWelcome {
			continue
		}
		var w protocol.WelcomeMsg
		if err := json.Unmarshal(msg, &w); err != nil {
			conn.Close()
			return nil, protocol.WelcomeMsg{}, fmt.Errorf("decode WELCOME: %w", err)
		}
		return conn, w, nil
	}
}

func runAgent(conn *websocket.Conn, loop *agent.Loop, logger *log.Logger) {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeObs:
			var obs protocol.ObsMsg
			if err := json.Unmarshal(msg, &obs); err != nil {
				logger.Printf("agent %d: bad OBS: %v", loop.AgentID(), err)
				continue
			}
			act := protocol.ActMsg{
				Type:            protocol.TypeAct,
				ProtocolVersion: protocol.Version,
				Tick:            obs.Tick,
				AgentID:         obs.AgentID,
				Action:          loop.Step(&obs),
			}
			if err := conn.WriteJSON(act); err != nil {
				return
			}
		case protocol.TypeError:
			logger.Printf("agent %d: server error: %s", loop.AgentID(), msg)
		}
	}
}

func buildRecorder(traceDir, indexPath, episode string) (trace.Recorder, error) {
	var sinks trace.Multi
	if traceDir != "" {
		w, err := trace.NewJSONLZstdWriter(traceDir, episode)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, w)
	}
	if indexPath != "" {
		idx, err := trace.NewSQLiteIndex(indexPath)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, idx)
	}
	if len(sinks) == 0 {
		return trace.Multi{}, nil
	}
	return sinks, nil
}
