package entity

import "time"

type ChatMessage struct {
	Text      string
	IsUser    bool
	Timestamp time.Time
}
