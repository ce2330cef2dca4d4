package models

import "time"

// Message is one durable entry in the broadcast log. Position is assigned
// by the store at append time, strictly increasing, and never reused.
type Message struct {
	Position  int64     `json:"position"`
	Content   string    `json:"content"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"created_at"`
}

// AnonymousAuthor is stored and broadcast when a session declared no identity.
const AnonymousAuthor = "anonymous"
