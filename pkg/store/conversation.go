package store

import (
	"sync"
	"time"
)

// ConversationState is the lifecycle position of one open conversation view.
type ConversationState string

const (
	StateUninitialized ConversationState = "UNINITIALIZED"
	StateResolving     ConversationState = "RESOLVING"
	StateReady         ConversationState = "READY"
	StateActive        ConversationState = "ACTIVE"
)

// Conversation is the context of one open conversation view. Each view owns
// its own value; nothing here is shared between views.
type Conversation struct {
	ID          string
	PaperID     string
	Title       string
	Authors     []string
	PDFURL      *string
	HasLocalPDF bool
	OpenedAt    time.Time

	mu        sync.Mutex
	sessionID string
	state     ConversationState
	revision  uint64
}

// ConversationSnapshot is a consistent copy of a conversation's mutable part.
type ConversationSnapshot struct {
	ID          string
	PaperID     string
	Title       string
	Authors     []string
	PDFURL      *string
	HasLocalPDF bool
	SessionID   string
	State       ConversationState
	Revision    uint64
}

func NewConversation(id, paperID, title string, authors []string, pdfURL *string, hasLocalPDF bool) *Conversation {
	return &Conversation{
		ID:          id,
		PaperID:     paperID,
		Title:       title,
		Authors:     append([]string(nil), authors...),
		PDFURL:      pdfURL,
		HasLocalPDF: hasLocalPDF,
		OpenedAt:    time.Now(),
		state:       StateUninitialized,
	}
}

func (c *Conversation) Snapshot() ConversationSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ConversationSnapshot{
		ID:          c.ID,
		PaperID:     c.PaperID,
		Title:       c.Title,
		Authors:     append([]string(nil), c.Authors...),
		PDFURL:      c.PDFURL,
		HasLocalPDF: c.HasLocalPDF,
		SessionID:   c.sessionID,
		State:       c.state,
		Revision:    c.revision,
	}
}

func (c *Conversation) State() ConversationState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SessionID returns "" while no session has been resolved or created.
func (c *Conversation) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

func (c *Conversation) HasSession() bool {
	return c.SessionID() != ""
}

// BeginResolving moves UNINITIALIZED to RESOLVING and returns the revision a
// later ApplyResolution must still match. ok is false from any other state.
func (c *Conversation) BeginResolving() (token uint64, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateUninitialized {
		return c.revision, false
	}
	c.state = StateResolving
	c.revision++
	return c.revision, true
}

// ApplyResolution moves RESOLVING to READY with the resolved session id (""
// for none). A result is dropped, and false returned, when the conversation
// has moved on since BeginResolving handed out token.
func (c *Conversation) ApplyResolution(token uint64, sessionID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateResolving || c.revision != token {
		return false
	}
	c.sessionID = sessionID
	c.state = StateReady
	c.revision++
	return true
}

// CanSend reports whether a message may be sent from the current state.
func (c *Conversation) CanSend() bool {
	switch c.State() {
	case StateResolving, StateReady, StateActive:
		return true
	default:
		return false
	}
}

// ApplyExchange records the authority's session id after a successful
// exchange and marks the conversation ACTIVE.
func (c *Conversation) ApplyExchange(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessionID = sessionID
	c.state = StateActive
	c.revision++
}
