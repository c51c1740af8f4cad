package entity

import "time"

// SessionListEntry is one row of the on-screen session list.
type SessionListEntry struct {
	SessionId  string
	PaperId    string
	Title      string
	Preview    string
	LastUsedAt time.Time
}
