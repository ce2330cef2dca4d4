package models

import "strconv"

// Wire event names. These match the client protocol one for one.
const (
	EventChatMessage = "chat message"
	EventNewUser     = "new user"
	EventUserExit    = "user exit"
	EventSession     = "session"
)

// Frame is the JSON envelope exchanged over the websocket, both directions.
// Position travels as a decimal string so it round-trips exactly regardless
// of the client's numeric precision.
type Frame struct {
	Event    string `json:"event"`
	Content  string `json:"content,omitempty"`
	Position string `json:"position,omitempty"`
	Author   string `json:"author,omitempty"`
	Username string `json:"username,omitempty"`
	Session  string `json:"session,omitempty"`
}

// ChatFrame builds the delivery frame for a logged message.
func ChatFrame(m Message) Frame {
	return Frame{
		Event:    EventChatMessage,
		Content:  m.Content,
		Position: strconv.FormatInt(m.Position, 10),
		Author:   m.Author,
	}
}
