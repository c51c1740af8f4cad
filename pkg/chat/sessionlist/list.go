// Package sessionlist keeps the recency-ordered session list shown next to
// the conversation views.
package sessionlist

import (
	"sort"
	"sync"
	"unicode/utf8"

	"paperchat/internal/entity"
)

// MaxPreviewRunes caps previews kept for list entries.
const MaxPreviewRunes = 120

// List is a read model recomputed from the index after every change. It is
// never spliced in place.
type List struct {
	mu       sync.RWMutex
	entries  []entity.SessionListEntry
	previews map[string]string
}

func New() *List {
	return &List{
		entries:  []entity.SessionListEntry{},
		previews: make(map[string]string),
	}
}

// Rebuild replaces the entries with records ordered by LastUsedAt descending,
// ties broken by session id. Only the most recent record of each paper and of
// each session id is kept.
func (l *List) Rebuild(records []entity.SessionRecord) {
	sorted := make([]entity.SessionRecord, 0, len(records))
	for _, r := range records {
		if r.SessionId == "" || r.PaperId == "" {
			continue
		}
		sorted = append(sorted, r)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].LastUsedAt.Equal(sorted[j].LastUsedAt) {
			return sorted[i].LastUsedAt.After(sorted[j].LastUsedAt)
		}
		return sorted[i].SessionId < sorted[j].SessionId
	})

	l.mu.Lock()
	defer l.mu.Unlock()

	seenPaper := make(map[string]struct{}, len(sorted))
	seenSession := make(map[string]struct{}, len(sorted))
	entries := make([]entity.SessionListEntry, 0, len(sorted))
	for _, r := range sorted {
		if _, ok := seenPaper[r.PaperId]; ok {
			continue
		}
		if _, ok := seenSession[r.SessionId]; ok {
			continue
		}
		seenPaper[r.PaperId] = struct{}{}
		seenSession[r.SessionId] = struct{}{}

		entries = append(entries, entity.SessionListEntry{
			SessionId:  r.SessionId,
			PaperId:    r.PaperId,
			Title:      r.Title,
			Preview:    l.previews[r.SessionId],
			LastUsedAt: r.LastUsedAt,
		})
	}
	l.entries = entries
}

// SetPreview records the preview for a session. It shows up on the next
// Rebuild, or immediately when the session is already listed.
func (l *List) SetPreview(sessionId, preview string) {
	preview = Truncate(preview, MaxPreviewRunes)

	l.mu.Lock()
	defer l.mu.Unlock()

	l.previews[sessionId] = preview
	for i := range l.entries {
		if l.entries[i].SessionId == sessionId {
			l.entries[i].Preview = preview
		}
	}
}

// Preview returns the stored preview for a session, if any.
func (l *List) Preview(sessionId string) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, ok := l.previews[sessionId]
	return p, ok
}

func (l *List) Entries() []entity.SessionListEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]entity.SessionListEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *List) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

func (l *List) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = []entity.SessionListEntry{}
	l.previews = make(map[string]string)
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
