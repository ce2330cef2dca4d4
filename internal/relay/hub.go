package relay

import (
	"context"
	"log"

	"relaygo/internal/models"
	"relaygo/internal/msglog"
)

type submission struct {
	from    *Session
	content string
}

// Hub is the broadcast router. It owns the live-session registry and a
// single run loop fed by register/unregister/publish events, so the
// registry is never mutated concurrently and every live session observes
// fan-outs in the order appends committed.
type Hub struct {
	log *msglog.Log

	register   chan *Session
	unregister chan *Session
	publish    chan submission

	sessions map[*Session]struct{}
}

func NewHub(messageLog *msglog.Log) *Hub {
	return &Hub{
		log:        messageLog,
		register:   make(chan *Session),
		unregister: make(chan *Session),
		publish:    make(chan submission, 64),
		sessions:   make(map[*Session]struct{}),
	}
}

// Run processes hub events until ctx is cancelled. Exactly one Run loop may
// be active per hub.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case s := <-h.register:
			h.sessions[s] = struct{}{}
			close(s.registered)
			h.announceJoin(s)
			debugLog("[hub] session %q registered (%d live)", s.Author(), len(h.sessions))
		case s := <-h.unregister:
			if _, ok := h.sessions[s]; !ok {
				continue
			}
			delete(h.sessions, s)
			close(s.send)
			h.announceLeave(s)
			debugLog("[hub] session %q unregistered (%d live)", s.Author(), len(h.sessions))
		case sub := <-h.publish:
			h.broadcast(ctx, sub)
		case <-ctx.Done():
			return
		}
	}
}

// Register adds the session to the live set and returns once the hub has
// processed it, so a session is guaranteed to see every append that commits
// after Register returns (queued if it is still recovering).
func (h *Hub) Register(s *Session) {
	h.register <- s
	<-s.registered
}

// Unregister removes the session from the live set. Idempotent.
func (h *Hub) Unregister(s *Session) {
	h.unregister <- s
}

// Publish appends the content under the session's identity and fans the
// logged message out to every live session, the publisher included. A
// storage failure is logged and the message dropped; the publisher gets no
// acknowledgment either way.
func (h *Hub) Publish(s *Session, content string) {
	h.publish <- submission{from: s, content: content}
}

func (h *Hub) broadcast(ctx context.Context, sub submission) {
	author := sub.from.Author()
	position, err := h.log.Append(ctx, sub.content, author)
	if err != nil {
		log.Printf("publish dropped: %v", err)
		return
	}
	frame := models.ChatFrame(models.Message{
		Position: position,
		Content:  sub.content,
		Author:   author,
	})
	for s := range h.sessions {
		s.queue(outbound{frame: frame, position: position})
	}
}
