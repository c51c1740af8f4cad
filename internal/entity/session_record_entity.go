package entity

import "time"

// SessionRecord links a paper to the remote session last used for it on this
// device. SessionId is always issued by the remote authority.
type SessionRecord struct {
	SessionId  string
	PaperId    string
	Title      string
	LastUsedAt time.Time
}
