package mapper

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"paperchat/internal/dto"
	"paperchat/internal/entity"
	"paperchat/internal/model"
)

type SessionIndexMapper struct{}

func NewSessionIndexMapper() *SessionIndexMapper {
	return &SessionIndexMapper{}
}

// Decode parses a whole index blob. Entries may be structured records, a bare
// session id string, or a bare numeric session id; anything else is dropped and
// counted in skipped. A blob that is not a JSON object decodes as empty.
func (m *SessionIndexMapper) Decode(blob []byte) (records map[string]entity.SessionRecord, skipped int) {
	records = make(map[string]entity.SessionRecord)
	if len(bytes.TrimSpace(blob)) == 0 {
		return records, 0
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(blob, &raw); err != nil {
		return records, 1
	}

	for paperId, value := range raw {
		if strings.TrimSpace(paperId) == "" {
			skipped++
			continue
		}
		record, ok := m.decodeEntry(paperId, value)
		if !ok {
			skipped++
			continue
		}
		records[paperId] = record
	}
	return records, skipped
}

func (m *SessionIndexMapper) decodeEntry(paperId string, value json.RawMessage) (entity.SessionRecord, bool) {
	trimmed := bytes.TrimSpace(value)
	if len(trimmed) == 0 {
		return entity.SessionRecord{}, false
	}

	switch trimmed[0] {
	case '"':
		var sessionId string
		if err := json.Unmarshal(trimmed, &sessionId); err != nil {
			return entity.SessionRecord{}, false
		}
		return legacyRecord(paperId, sessionId)
	case '{':
		var entry looseIndexEntry
		if err := json.Unmarshal(trimmed, &entry); err != nil {
			return entity.SessionRecord{}, false
		}
		sessionId := strings.TrimSpace(string(entry.SessionId))
		if sessionId == "" {
			return entity.SessionRecord{}, false
		}
		return entity.SessionRecord{
			SessionId:  sessionId,
			PaperId:    paperId,
			Title:      entry.Title,
			LastUsedAt: parseLastUsed(entry.LastUsedAt),
		}, true
	default:
		var n json.Number
		if err := json.Unmarshal(trimmed, &n); err != nil {
			return entity.SessionRecord{}, false
		}
		return legacyRecord(paperId, n.String())
	}
}

// looseIndexEntry tolerates numeric session ids and epoch-millisecond
// timestamps written by older builds.
type looseIndexEntry struct {
	SessionId  dto.SessionID   `json:"sessionId"`
	Title      string          `json:"title"`
	LastUsedAt json.RawMessage `json:"lastUsedAt"`
}

// parseLastUsed accepts an RFC 3339 string or epoch milliseconds. Anything
// else gives the zero time, which loses every recency comparison.
func parseLastUsed(raw json.RawMessage) time.Time {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return time.Time{}
	}
	if raw[0] == '"' {
		var t time.Time
		if err := json.Unmarshal(raw, &t); err == nil {
			return t.UTC()
		}
		return time.Time{}
	}
	var ms json.Number
	if err := json.Unmarshal(raw, &ms); err != nil {
		return time.Time{}
	}
	if n, err := ms.Int64(); err == nil && n > 0 {
		return time.UnixMilli(n).UTC()
	}
	return time.Time{}
}

func legacyRecord(paperId, sessionId string) (entity.SessionRecord, bool) {
	sessionId = strings.TrimSpace(sessionId)
	if sessionId == "" {
		return entity.SessionRecord{}, false
	}
	return entity.SessionRecord{SessionId: sessionId, PaperId: paperId}, true
}

// Encode always writes the structured form.
func (m *SessionIndexMapper) Encode(records map[string]entity.SessionRecord) ([]byte, error) {
	out := make(map[string]*model.SessionIndexEntry, len(records))
	for paperId, record := range records {
		r := record
		r.PaperId = paperId
		out[paperId] = m.EntityToEntry(&r)
	}
	return json.Marshal(out)
}

func (m *SessionIndexMapper) EntityToEntry(r *entity.SessionRecord) *model.SessionIndexEntry {
	return &model.SessionIndexEntry{
		SessionId:  r.SessionId,
		PaperId:    r.PaperId,
		Title:      r.Title,
		LastUsedAt: r.LastUsedAt.UTC(),
	}
}
