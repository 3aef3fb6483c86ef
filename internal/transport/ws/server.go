// Package ws is the WebSocket front door: HELLO handshake, a reader loop
// for queries and acts, and a per-connection writer goroutine fed by the
// world's push channel.
package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"thermocraft.ai/internal/protocol"
	"thermocraft.ai/internal/sim/multiworld"
	"thermocraft.ai/internal/sim/tuning"
	"thermocraft.ai/internal/sim/world"
)

const (
	helloDeadline = 5 * time.Second
	readDeadline  = 120 * time.Second
	writeDeadline = 5 * time.Second
	pingPeriod    = 30 * time.Second
	maxReadBytes  = 64 * 1024
)

type Server struct {
	worlds *multiworld.Manager
	log    *log.Logger
	limits tuning.RateLimits

	upgrader websocket.Upgrader
}

func NewServer(worlds *multiworld.Manager, logger *log.Logger) *Server {
	return &Server{
		worlds: worlds,
		log:    logger,
		limits: tuning.Defaults().RateLimits,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

// SetRateLimits replaces the per-connection throttle windows. Call before
// the handler is mounted.
func (s *Server) SetRateLimits(l tuning.RateLimits) { s.limits = l }

// rateWindow is a fixed-window counter in world ticks. Zero config means
// unlimited.
type rateWindow struct {
	start uint64
	n     int
}

func (r *rateWindow) allow(now uint64, windowTicks, max int) bool {
	if windowTicks <= 0 || max <= 0 {
		return true
	}
	if now-r.start >= uint64(windowTicks) {
		r.start = now
		r.n = 0
	}
	r.n++
	return r.n <= max
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.SetReadLimit(maxReadBytes)

		w, agentID, out := s.handshake(conn)
		if agentID == "" {
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Writer goroutine: drains the world's push channel and pings.
		go func() {
			pinger := time.NewTicker(pingPeriod)
			defer pinger.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case b, ok := <-out:
					if !ok {
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(writeDeadline))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				case <-pinger.C:
					_ = conn.SetWriteDeadline(time.Now().Add(writeDeadline))
					if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop.
		var queryWin, actWin rateWindow
		for {
			_ = conn.SetReadDeadline(time.Now().Add(readDeadline))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				break
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil {
				s.push(out, protocol.ErrorMsg{Type: protocol.TypeError, Code: protocol.ErrBadMessage, Message: "bad json"})
				continue
			}
			switch base.Type {
			case protocol.TypeQuery:
				var q protocol.QueryMsg
				if err := json.Unmarshal(msg, &q); err != nil {
					s.push(out, protocol.ErrorMsg{Type: protocol.TypeError, Code: protocol.ErrBadMessage, Message: "bad QUERY"})
					continue
				}
				if !queryWin.allow(w.Tick(), s.limits.QueryWindowTicks, s.limits.QueryMax) {
					s.push(out, protocol.ResultMsg{Type: protocol.TypeResult, ID: q.ID, OK: false, Detail: protocol.ErrRateLimit})
					continue
				}
				s.push(out, s.answer(w, agentID, q))
			case protocol.TypeAct:
				var act protocol.ActMsg
				if err := json.Unmarshal(msg, &act); err != nil {
					s.push(out, protocol.ErrorMsg{Type: protocol.TypeError, Code: protocol.ErrBadMessage, Message: "bad ACT"})
					continue
				}
				if !actWin.allow(w.Tick(), s.limits.ActWindowTicks, s.limits.ActMax) {
					s.push(out, protocol.AckMsg{Type: protocol.TypeAck, ID: act.ID, OK: false, Code: protocol.ErrRateLimit})
					continue
				}
				w.Inbox() <- world.ActionEnvelope{AgentID: agentID, Act: act}
			default:
				s.push(out, protocol.ErrorMsg{Type: protocol.TypeError, Code: protocol.ErrBadMessage, Message: "unexpected " + base.Type})
			}
		}

		w.Leave() <- agentID
	}
}

// answer runs one query against the world. Queries never error; bad input
// degrades to ok=false with a neutral value.
func (s *Server) answer(w *world.World, agentID string, q protocol.QueryMsg) protocol.ResultMsg {
	res := protocol.ResultMsg{Type: protocol.TypeResult, ID: q.ID, OK: true}
	pos := world.Vec3i{X: q.X, Y: q.Y, Z: q.Z}
	switch q.Kind {
	case protocol.QueryAmbient:
		res.Value = w.AmbientC(pos)
	case protocol.QueryOffset:
		res.Value = w.OffsetC(pos)
	case protocol.QueryExposure:
		res.Value = w.Exposure(pos, q.Budget)
	case protocol.QueryStepsToOutside:
		steps, ok := w.StepsToOutside(pos, q.Budget)
		res.OK = ok
		res.Steps = &steps
		res.Value = float64(steps)
	case protocol.QueryBody:
		st, _, ok := w.AgentBody(agentID)
		res.OK = ok
		res.Value = st.BodyC
	default:
		res.OK = false
		res.Detail = protocol.ErrUnknownKind
	}
	return res
}

func (s *Server) handshake(conn *websocket.Conn) (*world.World, string, chan []byte) {
	_ = conn.SetReadDeadline(time.Now().Add(helloDeadline))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return nil, "", nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		closeWith(conn, "expected HELLO")
		return nil, "", nil
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		closeWith(conn, "bad HELLO")
		return nil, "", nil
	}
	if hello.ProtocolVersion != protocol.Version {
		_ = writeJSON(conn, protocol.ErrorMsg{
			Type:    protocol.TypeError,
			Code:    protocol.ErrBadVersion,
			Message: "want protocol_version " + protocol.Version,
		})
		closeWith(conn, "bad protocol_version")
		return nil, "", nil
	}

	w, err := s.worlds.Resolve(hello.WorldID)
	if err != nil {
		b, _ := json.Marshal(protocol.ErrorMsg{Type: protocol.TypeError, Code: protocol.ErrUnknownWorld, Message: err.Error()})
		_ = conn.SetWriteDeadline(time.Now().Add(writeDeadline))
		_ = conn.WriteMessage(websocket.TextMessage, b)
		return nil, "", nil
	}

	maxQ := hello.MaxQueue
	if maxQ <= 0 {
		maxQ = 16
	}
	if maxQ > 128 {
		maxQ = 128
	}
	out := make(chan []byte, maxQ)

	respCh := make(chan world.JoinResponse, 1)
	w.Join() <- world.JoinRequest{Name: hello.AgentName, Out: out, Resp: respCh}
	resp := <-respCh

	// The agent is ticking from here on; a failed delivery must undo the
	// join or the world keeps a client nobody is reading.
	if err := writeJSON(conn, resp.Welcome); err != nil {
		w.Leave() <- resp.Welcome.AgentID
		return nil, "", nil
	}
	if err := writeJSON(conn, resp.Diurnal); err != nil {
		w.Leave() <- resp.Welcome.AgentID
		return nil, "", nil
	}
	return w, resp.Welcome.AgentID, out
}

func (s *Server) push(out chan []byte, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	select {
	case out <- b:
	default:
		// Slow consumer: the reply is dropped, like any other push.
	}
}

func closeWith(conn *websocket.Conn, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason),
		time.Now().Add(time.Second))
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeDeadline))
	return conn.WriteMessage(websocket.TextMessage, b)
}
