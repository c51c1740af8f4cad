package entity

import "time"

// ChatSession is the remote authority's view of a conversation. Messages is
// only populated when the session was fetched by id.
type ChatSession struct {
	Id            string
	PaperId       string
	PaperTitle    string
	Preview       string
	CreatedAt     time.Time
	LastMessageAt time.Time
	Messages      []ChatMessage
}
