package sessionlist

import (
	"testing"
	"time"

	"paperchat/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestRebuildOrdersByRecency(t *testing.T) {
	l := New()
	l.Rebuild([]entity.SessionRecord{
		{SessionId: "S1", PaperId: "P1", LastUsedAt: base},
		{SessionId: "S2", PaperId: "P2", LastUsedAt: base.Add(2 * time.Minute)},
		{SessionId: "S3", PaperId: "P3", LastUsedAt: base.Add(time.Minute)},
	})

	entries := l.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, []string{"S2", "S3", "S1"}, []string{entries[0].SessionId, entries[1].SessionId, entries[2].SessionId})
}

func TestRebuildBreaksTiesBySessionId(t *testing.T) {
	l := New()
	l.Rebuild([]entity.SessionRecord{
		{SessionId: "b", PaperId: "P1", LastUsedAt: base},
		{SessionId: "a", PaperId: "P2", LastUsedAt: base},
	})

	entries := l.Entries()
	assert.Equal(t, "a", entries[0].SessionId)
	assert.Equal(t, "b", entries[1].SessionId)
}

func TestRebuildNeverDuplicatesSessionOrPaper(t *testing.T) {
	l := New()
	l.Rebuild([]entity.SessionRecord{
		{SessionId: "S1", PaperId: "P1", LastUsedAt: base},
		{SessionId: "S1", PaperId: "P1-mirror", LastUsedAt: base.Add(time.Minute)},
		{SessionId: "S2", PaperId: "P1", LastUsedAt: base.Add(-time.Minute)},
		{SessionId: "", PaperId: "P4", LastUsedAt: base},
	})

	entries := l.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "S1", entries[0].SessionId)
	assert.Equal(t, "P1-mirror", entries[0].PaperId)
	assert.Equal(t, "S2", entries[1].SessionId)
	assert.Equal(t, "P1", entries[1].PaperId)
}

func TestPreviewSurvivesRebuild(t *testing.T) {
	l := New()
	l.SetPreview("S1", "What is attention?")
	l.Rebuild([]entity.SessionRecord{{SessionId: "S1", PaperId: "P1", Title: "Attention", LastUsedAt: base}})

	entries := l.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "What is attention?", entries[0].Preview)
	assert.Equal(t, "Attention", entries[0].Title)

	l.SetPreview("S1", "second question")
	assert.Equal(t, "second question", l.Entries()[0].Preview)
}

func TestReset(t *testing.T) {
	l := New()
	l.SetPreview("S1", "q")
	l.Rebuild([]entity.SessionRecord{{SessionId: "S1", PaperId: "P1", LastUsedAt: base}})

	l.Reset()

	assert.Equal(t, 0, l.Len())
	_, ok := l.Preview("S1")
	assert.False(t, ok)
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{name: "short", in: "abc", n: 5, want: "abc"},
		{name: "exact", in: "abcde", n: 5, want: "abcde"},
		{name: "cut", in: "abcdef", n: 5, want: "abcde"},
		{name: "multibyte", in: "日本語のテキスト", n: 3, want: "日本語"},
		{name: "zero", in: "abc", n: 0, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Truncate(tt.in, tt.n))
		})
	}
}
