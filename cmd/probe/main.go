// Command probe joins a world over websocket and reads the thermal field
// around a point, either once or continuously with -watch.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"

	"thermocraft.ai/internal/protocol"
)

func main() {
	var (
		url     = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name    = flag.String("name", "probe", "agent name")
		worldID = flag.String("world", "", "world id (empty: server default)")
		x       = flag.Int("x", 0, "probe x")
		y       = flag.Int("y", 30, "probe y")
		z       = flag.Int("z", 0, "probe z")
		budget  = flag.Int("budget", 0, "exposure search budget (0: server default)")
		watch   = flag.Bool("watch", false, "re-probe once per second until interrupted")
	)
	flag.Parse()

	logger := log.New(os.Stderr, "[probe] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		AgentName:       *name,
		WorldID:         *worldID,
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatalf("send HELLO: %v", err)
	}

	welcome, err := awaitWelcome(conn)
	if err != nil {
		logger.Fatalf("handshake: %v", err)
	}
	logger.Printf("WELCOME agent_id=%s world=%s tick=%d day=%d peak=%+.1fC low=%+.1fC",
		welcome.AgentID, welcome.WorldID, welcome.Tick, welcome.Day,
		welcome.Diurnal.PeakC, welcome.Diurnal.LowC)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	probe(conn, logger, *x, *y, *z, *budget)
	if !*watch {
		return
	}
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			probe(conn, logger, *x, *y, *z, *budget)
		}
	}
}

var probeSeq int

// probe issues the standard query set at one cell and prints a result table.
func probe(conn *websocket.Conn, logger *log.Logger, x, y, z, budget int) {
	probeSeq++
	kinds := []string{
		protocol.QueryAmbient,
		protocol.QueryOffset,
		protocol.QueryExposure,
		protocol.QueryStepsToOutside,
	}
	fmt.Printf("probe (%d,%d,%d)\n", x, y, z)
	for _, kind := range kinds {
		q := protocol.QueryMsg{
			Type:            protocol.TypeQuery,
			ProtocolVersion: protocol.Version,
			ID:              fmt.Sprintf("Q%d_%s", probeSeq, kind),
			Kind:            kind,
			X:               x,
			Y:               y,
			Z:               z,
			Budget:          budget,
		}
		if err := conn.WriteJSON(q); err != nil {
			logger.Fatalf("send QUERY: %v", err)
		}
		res, err := awaitResult(conn, q.ID)
		if err != nil {
			logger.Fatalf("QUERY %s: %v", kind, err)
		}
		switch {
		case kind == protocol.QueryStepsToOutside && res.OK && res.Steps != nil:
			fmt.Printf("  %-18s %d steps\n", kind, *res.Steps)
		case kind == protocol.QueryStepsToOutside && res.Detail == "":
			fmt.Printf("  %-18s unreachable\n", kind)
		case !res.OK:
			fmt.Printf("  %-18s -\t(%s)\n", kind, res.Detail)
		case kind == protocol.QueryExposure:
			fmt.Printf("  %-18s %.3f\n", kind, res.Value)
		default:
			fmt.Printf("  %-18s %+.2fC\n", kind, res.Value)
		}
	}
}

func awaitWelcome(conn *websocket.Conn) (*protocol.WelcomeMsg, error) {
	deadline := time.Now().Add(5 * time.Second)
	_ = conn.SetReadDeadline(deadline)
	defer conn.SetReadDeadline(time.Time{})
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeWelcome:
			var w protocol.WelcomeMsg
			if err := json.Unmarshal(msg, &w); err != nil {
				return nil, err
			}
			return &w, nil
		case protocol.TypeError:
			var e protocol.ErrorMsg
			_ = json.Unmarshal(msg, &e)
			return nil, fmt.Errorf("%s: %s", e.Code, e.Message)
		}
	}
}

// awaitResult skips pushes (VITALS, DIURNAL) until the matching RESULT
// arrives.
func awaitResult(conn *websocket.Conn, id string) (*protocol.ResultMsg, error) {
	deadline := time.Now().Add(5 * time.Second)
	_ = conn.SetReadDeadline(deadline)
	defer conn.SetReadDeadline(time.Time{})
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil || base.Type != protocol.TypeResult {
			continue
		}
		var res protocol.ResultMsg
		if err := json.Unmarshal(msg, &res); err != nil {
			continue
		}
		if res.ID != id {
			continue
		}
		return &res, nil
	}
}
