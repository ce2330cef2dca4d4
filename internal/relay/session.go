package relay

import (
	"context"
	"log"
	"sync/atomic"

	"relaygo/internal/models"
)

// Conn is the transport handle a session delivers over. *websocket.Conn
// satisfies it.
type Conn interface {
	ReadJSON(v interface{}) error
	WriteJSON(v interface{}) error
	Close() error
}

// State is a session's lifecycle phase.
type State int32

const (
	StateConnecting State = iota
	StateRecovering
	StateLive
	StateClosed
)

type outbound struct {
	frame models.Frame
	// position is set for chat frames only; presence frames carry zero and
	// bypass the replay dedup filter.
	position int64
}

// Session is one connected client. Identity and offset are fixed at
// connection time; recovered reports whether the transport judged this a
// continuation of a prior connection, which is what makes it eligible for
// replay.
type Session struct {
	hub  *Hub
	conn Conn

	identity  string
	offset    int64
	recovered bool

	send       chan outbound
	registered chan struct{}
	state      atomic.Int32
}

const sendQueueSize = 256

func NewSession(hub *Hub, conn Conn, identity string, offset int64, recovered bool) *Session {
	return &Session{
		hub:        hub,
		conn:       conn,
		identity:   identity,
		offset:     offset,
		recovered:  recovered,
		send:       make(chan outbound, sendQueueSize),
		registered: make(chan struct{}),
	}
}

// Author resolves the identity used for logging, broadcast, and presence.
func (s *Session) Author() string {
	if s.identity == "" {
		return models.AnonymousAuthor
	}
	return s.identity
}

func (s *Session) State() State {
	return State(s.state.Load())
}

func (s *Session) setState(st State) {
	s.state.Store(int32(st))
}

// queue hands a frame to the session's delivery queue without blocking the
// hub. Called only from the hub loop. Fan-out is best-effort: a full queue
// drops this delivery for this session, which a later resumed connection
// recovers from the log.
func (s *Session) queue(ob outbound) {
	select {
	case s.send <- ob:
	default:
		debugLog("[session %q] queue full, dropping %s", s.Author(), ob.frame.Event)
	}
}

// WritePump owns the connection's write side: it registers with the hub,
// tells the client its resume token, replays missed history for recovered
// sessions, then forwards live fan-outs until the hub closes the queue.
// Live frames never overtake unreplayed history: the session registers
// before reading the log, so concurrent appends accumulate in the queue
// while replay writes straight to the transport, and the live phase drops
// any queued position already delivered.
func (s *Session) WritePump(ctx context.Context, sid string) {
	s.hub.Register(s)

	lastDelivered := int64(0)
	broken := s.conn.WriteJSON(models.Frame{Event: models.EventSession, Session: sid}) != nil

	if !broken && s.recovered {
		s.setState(StateRecovering)
		lastDelivered = s.offset
		missed, err := s.hub.log.ReadSince(ctx, s.offset)
		if err != nil {
			// Replay aborts for this connection only; the session still
			// goes live and a later resume can retry from the same offset.
			log.Printf("replay for %q aborted: %v", s.Author(), err)
		}
		for _, m := range missed {
			if err := s.conn.WriteJSON(models.ChatFrame(m)); err != nil {
				broken = true
				break
			}
			lastDelivered = m.Position
		}
	}

	s.setState(StateLive)
	if broken {
		s.hub.Unregister(s)
	}

	for ob := range s.send {
		if broken {
			continue
		}
		if ob.position != 0 && ob.position <= lastDelivered {
			debugLog("[session %q] skipping already-delivered position %d", s.Author(), ob.position)
			continue
		}
		if err := s.conn.WriteJSON(ob.frame); err != nil {
			broken = true
			s.hub.Unregister(s)
			continue
		}
		if ob.position != 0 {
			lastDelivered = ob.position
		}
	}

	s.setState(StateClosed)
	s.conn.Close()
}

// ReadPump owns the read side: it forwards every inbound chat message to
// the hub and unregisters the session once the transport drops.
func (s *Session) ReadPump() {
	<-s.registered
	for {
		var frame models.Frame
		if err := s.conn.ReadJSON(&frame); err != nil {
			break
		}
		if frame.Event != models.EventChatMessage {
			continue
		}
		s.hub.Publish(s, frame.Content)
	}
	s.hub.Unregister(s)
}
