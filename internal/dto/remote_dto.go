package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// SessionID is an opaque session identifier. The remote authority emits
// integers; older payloads and other deployments use strings.
type SessionID string

func (s *SessionID) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*s = ""
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var str string
		if err := json.Unmarshal(trimmed, &str); err != nil {
			return fmt.Errorf("session id: %w", err)
		}
		*s = SessionID(strings.TrimSpace(str))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return fmt.Errorf("session id: %w", err)
	}
	*s = SessionID(n.String())
	return nil
}

func (s SessionID) MarshalJSON() ([]byte, error) {
	if s == "" {
		return []byte("null"), nil
	}
	if isDigits(string(s)) {
		return []byte(s), nil
	}
	return json.Marshal(string(s))
}

func isDigits(s string) bool {
	if s == "" || len(s) > 18 || (len(s) > 1 && s[0] == '0') {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

var remoteTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// RemoteTime accepts timestamps with or without a zone; zone-less values are
// taken as UTC, which is what the authority stores.
type RemoteTime struct {
	time.Time
}

func (t *RemoteTime) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	if raw == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range remoteTimeLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("timestamp: unrecognised format %q", raw)
}

func (t RemoteTime) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

// --- /api/ai/question ---

type AskQuestionRequest struct {
	Question    string    `json:"question"`
	PaperId     string    `json:"paper_id"`
	PaperTitle  string    `json:"paper_title"`
	PdfUrl      *string   `json:"pdf_url"`
	UseFullText bool      `json:"use_full_text"`
	SessionId   SessionID `json:"session_id"`
}

type AskQuestionResponse struct {
	Answer       string    `json:"answer"`
	UsedPdf      bool      `json:"used_pdf"`
	SessionId    SessionID `json:"session_id"`
	IsNewSession bool      `json:"is_new_session"`
	PaperId      string    `json:"paper_id"`
}

// --- /api/ai/paper-chat-session/{paper_id} ---

type PaperChatSessionResponse struct {
	SessionId     SessionID  `json:"session_id"`
	PaperTitle    string     `json:"paper_title"`
	CreatedAt     RemoteTime `json:"created_at"`
	LastMessageAt RemoteTime `json:"last_message_at"`
}

// --- /api/ai/chat-sessions[/{id}] ---

type ChatSessionSummaryResponse struct {
	Id            SessionID  `json:"id"`
	PaperId       string     `json:"paper_id"`
	Question      string     `json:"question"`
	FirstQuestion string     `json:"first_question"`
	PaperTitle    string     `json:"paper_title"`
	CreatedAt     RemoteTime `json:"created_at"`
	LastMessageAt RemoteTime `json:"last_message_at"`
}

type ChatSessionDetailResponse struct {
	Id         SessionID                    `json:"id"`
	PaperId    string                       `json:"paper_id"`
	PaperTitle string                       `json:"paper_title"`
	CreatedAt  RemoteTime                   `json:"created_at"`
	Messages   []ChatSessionMessageResponse `json:"messages"`
}

type ChatSessionMessageResponse struct {
	IsUser    bool       `json:"is_user"`
	Message   string     `json:"message"`
	CreatedAt RemoteTime `json:"created_at"`
}

// RemoteErrorResponse is the authority's error body.
type RemoteErrorResponse struct {
	Detail string `json:"detail"`
}
