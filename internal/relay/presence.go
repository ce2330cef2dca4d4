package relay

import "relaygo/internal/models"

// Presence events are advisory UI signals: not persisted, not retried, and
// carry no ordering guarantee relative to the message log. A session whose
// queue is full simply misses the announcement.

func (h *Hub) announceJoin(joined *Session) {
	frame := models.Frame{Event: models.EventNewUser, Username: joined.Author()}
	for s := range h.sessions {
		if s == joined {
			continue
		}
		s.queue(outbound{frame: frame})
	}
}

func (h *Hub) announceLeave(left *Session) {
	frame := models.Frame{Event: models.EventUserExit, Username: left.Author()}
	for s := range h.sessions {
		s.queue(outbound{frame: frame})
	}
}
