package model

import (
	"time"

	"gorm.io/datatypes"
)

// SessionIndexEntry is the structured on-disk form of one index entry. Older
// clients stored a bare session id instead; the mapper normalizes those on read.
type SessionIndexEntry struct {
	SessionId  string    `json:"sessionId"`
	PaperId    string    `json:"paperId"`
	Title      string    `json:"title,omitempty"`
	LastUsedAt time.Time `json:"lastUsedAt"`
}

// SessionIndexBlob holds the whole index of one scope as a single JSON value.
type SessionIndexBlob struct {
	Scope     string         `gorm:"type:varchar(255);primaryKey"`
	Blob      datatypes.JSON `gorm:"not null"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime"`
}

func (SessionIndexBlob) TableName() string {
	return "session_index_blobs"
}
