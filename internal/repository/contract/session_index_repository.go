package contract

import (
	"context"

	"paperchat/internal/entity"
)

// SessionIndexRepository is the per-scope Local Session Index. Reads never
// fail and writes never return errors: storage problems are logged and the
// caller keeps working from its in-memory conversation.
type SessionIndexRepository interface {
	Get(ctx context.Context, paperId string) (*entity.SessionRecord, bool)
	Put(ctx context.Context, record entity.SessionRecord)
	// Replace stores record even over a newer entry for another session. The
	// stored LastUsedAt never moves backwards.
	Replace(ctx context.Context, record entity.SessionRecord)
	Evict(ctx context.Context, paperId string)
	All(ctx context.Context) []entity.SessionRecord
	Clear(ctx context.Context)
}
