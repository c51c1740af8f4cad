package implementation

import (
	"context"
	"sort"
	"strings"
	"sync"

	"paperchat/internal/entity"
	"paperchat/internal/mapper"
	"paperchat/internal/pkg/logger"
	"paperchat/internal/repository/contract"
)

const indexModule = "SessionIndex"

type SessionIndexRepositoryImpl struct {
	store  contract.BlobStore
	scope  string
	mapper *mapper.SessionIndexMapper
	logger logger.ILogger

	// whole-blob read-modify-write, so every mutation takes the lock
	mu sync.Mutex
}

func NewSessionIndexRepository(store contract.BlobStore, scope string, log logger.ILogger) contract.SessionIndexRepository {
	return &SessionIndexRepositoryImpl{
		store:  store,
		scope:  scope,
		mapper: mapper.NewSessionIndexMapper(),
		logger: log,
	}
}

func (r *SessionIndexRepositoryImpl) load(ctx context.Context) (map[string]entity.SessionRecord, bool) {
	blob, err := r.store.Load(ctx, r.scope)
	if err != nil {
		r.logger.Warn(indexModule, "Failed to read session index", map[string]interface{}{
			"scope": r.scope,
			"error": err.Error(),
		})
		return map[string]entity.SessionRecord{}, false
	}

	records, skipped := r.mapper.Decode(blob)
	if skipped > 0 {
		r.logger.Warn(indexModule, "Dropped unreadable session index entries", map[string]interface{}{
			"scope":   r.scope,
			"skipped": skipped,
		})
	}
	return records, true
}

func (r *SessionIndexRepositoryImpl) save(ctx context.Context, records map[string]entity.SessionRecord) {
	blob, err := r.mapper.Encode(records)
	if err != nil {
		r.logger.Error(indexModule, "Failed to encode session index", map[string]interface{}{
			"scope": r.scope,
			"error": err.Error(),
		})
		return
	}
	if err := r.store.Save(ctx, r.scope, blob); err != nil {
		r.logger.Error(indexModule, "Failed to write session index", map[string]interface{}{
			"scope": r.scope,
			"error": err.Error(),
		})
	}
}

func (r *SessionIndexRepositoryImpl) Get(ctx context.Context, paperId string) (*entity.SessionRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	records, _ := r.load(ctx)
	record, ok := records[paperId]
	if !ok {
		return nil, false
	}
	return &record, true
}

// Put overwrites the entry for record.PaperId. Writes race by LastUsedAt: an
// older write for a different session is dropped, an older write for the same
// session keeps the stored timestamp.
func (r *SessionIndexRepositoryImpl) Put(ctx context.Context, record entity.SessionRecord) {
	r.write(ctx, record, false)
}

// Replace is used for answers from the remote. The session it names wins
// regardless of timestamps.
func (r *SessionIndexRepositoryImpl) Replace(ctx context.Context, record entity.SessionRecord) {
	r.write(ctx, record, true)
}

func (r *SessionIndexRepositoryImpl) write(ctx context.Context, record entity.SessionRecord, authoritative bool) {
	record.PaperId = strings.TrimSpace(record.PaperId)
	record.SessionId = strings.TrimSpace(record.SessionId)
	if record.PaperId == "" || record.SessionId == "" {
		r.logger.Warn(indexModule, "Refusing to store incomplete session record", map[string]interface{}{
			"scope":      r.scope,
			"paper_id":   record.PaperId,
			"session_id": record.SessionId,
		})
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	records, ok := r.load(ctx)
	if !ok {
		return
	}

	if existing, found := records[record.PaperId]; found {
		sameSession := existing.SessionId == record.SessionId
		if record.LastUsedAt.Before(existing.LastUsedAt) {
			if !sameSession && !authoritative {
				r.logger.Debug(indexModule, "Dropping stale session record", map[string]interface{}{
					"scope":            r.scope,
					"paper_id":         record.PaperId,
					"stored_session":   existing.SessionId,
					"incoming_session": record.SessionId,
				})
				return
			}
			record.LastUsedAt = existing.LastUsedAt
		}
		if record.Title == "" && sameSession {
			record.Title = existing.Title
		}
		if !sameSession && authoritative {
			r.logger.Info(indexModule, "Replaced session record", map[string]interface{}{
				"scope":            r.scope,
				"paper_id":         record.PaperId,
				"stored_session":   existing.SessionId,
				"incoming_session": record.SessionId,
			})
		}
	}

	records[record.PaperId] = record
	r.save(ctx, records)
}

func (r *SessionIndexRepositoryImpl) Evict(ctx context.Context, paperId string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	records, ok := r.load(ctx)
	if !ok {
		return
	}
	if _, found := records[paperId]; !found {
		return
	}

	delete(records, paperId)
	r.save(ctx, records)
	r.logger.Info(indexModule, "Evicted session record", map[string]interface{}{
		"scope":    r.scope,
		"paper_id": paperId,
	})
}

func (r *SessionIndexRepositoryImpl) All(ctx context.Context) []entity.SessionRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	records, _ := r.load(ctx)
	out := make([]entity.SessionRecord, 0, len(records))
	for _, record := range records {
		out = append(out, record)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PaperId < out[j].PaperId })
	return out
}

func (r *SessionIndexRepositoryImpl) Clear(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.store.Delete(ctx, r.scope); err != nil {
		r.logger.Error(indexModule, "Failed to clear session index", map[string]interface{}{
			"scope": r.scope,
			"error": err.Error(),
		})
	}
}
