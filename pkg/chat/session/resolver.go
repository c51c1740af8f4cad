package session

import (
	"context"
	"time"

	"paperchat/internal/entity"
	"paperchat/internal/pkg/logger"
	"paperchat/internal/repository/contract"
	"paperchat/pkg/remote"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const resolverModule = "Resolver"

// DefaultVerifyTimeout bounds each liveness check and paper lookup.
const DefaultVerifyTimeout = 3 * time.Second

// Source says where a resolved session id came from.
type Source string

const (
	SourceCache  Source = "cache"
	SourceRemote Source = "remote"
	SourceNone   Source = "none"
)

// Resolution is the outcome of resolving a paper. SessionID is empty when a
// session will be created by the first message.
type Resolution struct {
	SessionID string
	Source    Source
	Evicted   bool

	// Session is the authority's copy of the session when a lookup returned
	// it. Cache hits carry the full message history.
	Session *entity.ChatSession
}

func (r Resolution) Found() bool {
	return r.SessionID != ""
}

// Resolver decides which remote session, if any, a paper's conversation
// continues.
type Resolver struct {
	authority     remote.Authority
	verifyTimeout time.Duration
	logger        logger.ILogger
	now           func() time.Time
	tracer        trace.Tracer
}

type Option func(*Resolver)

func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

// NewResolver creates a resolver. A non-positive verifyTimeout uses
// DefaultVerifyTimeout.
func NewResolver(authority remote.Authority, verifyTimeout time.Duration, log logger.ILogger, opts ...Option) *Resolver {
	if verifyTimeout <= 0 {
		verifyTimeout = DefaultVerifyTimeout
	}
	r := &Resolver{
		authority:     authority,
		verifyTimeout: verifyTimeout,
		logger:        log,
		now:           time.Now,
		tracer:        otel.Tracer("paperchat/pkg/chat/session"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve runs cache check, verification, paper lookup, in that order, and
// stops at the first hit. It never fails: every remote error falls through to
// the next step and ultimately to "no session".
func (r *Resolver) Resolve(ctx context.Context, index contract.SessionIndexRepository, paperId, title string) Resolution {
	ctx, span := r.tracer.Start(ctx, "session.Resolve",
		trace.WithAttributes(attribute.String("paper.id", paperId)))
	defer span.End()

	res := r.resolve(ctx, index, paperId, title)

	span.SetAttributes(
		attribute.String("resolution.source", string(res.Source)),
		attribute.Bool("resolution.evicted", res.Evicted),
	)
	return res
}

func (r *Resolver) resolve(ctx context.Context, index contract.SessionIndexRepository, paperId, title string) Resolution {
	evicted := false

	// 1. Local index, verified against the authority
	if cached, ok := index.Get(ctx, paperId); ok {
		session, err := r.verify(ctx, cached.SessionId)
		switch {
		case err == nil:
			r.logger.Debug(resolverModule, "Cached session verified", map[string]interface{}{
				"paper_id":   paperId,
				"session_id": cached.SessionId,
			})
			return Resolution{SessionID: cached.SessionId, Source: SourceCache, Session: session}
		case remote.IsNotFound(err):
			index.Evict(ctx, paperId)
			evicted = true
			r.logger.Info(resolverModule, "Cached session expired, evicted", map[string]interface{}{
				"paper_id":   paperId,
				"session_id": cached.SessionId,
			})
		default:
			r.logger.Warn(resolverModule, "Could not verify cached session", map[string]interface{}{
				"paper_id":   paperId,
				"session_id": cached.SessionId,
				"error":      err.Error(),
			})
		}
	}

	// 2. Authority lookup by paper (other devices, lost index)
	session, err := r.lookup(ctx, paperId)
	if err == nil && session != nil && session.Id != "" {
		recordTitle := session.PaperTitle
		if recordTitle == "" {
			recordTitle = title
		}
		index.Replace(ctx, entity.SessionRecord{
			SessionId:  session.Id,
			PaperId:    paperId,
			Title:      recordTitle,
			LastUsedAt: r.now(),
		})
		r.logger.Info(resolverModule, "Found session by paper", map[string]interface{}{
			"paper_id":   paperId,
			"session_id": session.Id,
		})
		return Resolution{SessionID: session.Id, Source: SourceRemote, Evicted: evicted, Session: session}
	}
	if err != nil && !remote.IsNotFound(err) {
		r.logger.Warn(resolverModule, "Paper session lookup failed", map[string]interface{}{
			"paper_id": paperId,
			"error":    err.Error(),
		})
	}

	// 3. Nothing: the first message creates the session
	return Resolution{Source: SourceNone, Evicted: evicted}
}

func (r *Resolver) verify(ctx context.Context, sessionId string) (*entity.ChatSession, error) {
	ctx, cancel := context.WithTimeout(ctx, r.verifyTimeout)
	defer cancel()
	return r.authority.FetchSessionByID(ctx, sessionId)
}

func (r *Resolver) lookup(ctx context.Context, paperId string) (*entity.ChatSession, error) {
	ctx, cancel := context.WithTimeout(ctx, r.verifyTimeout)
	defer cancel()
	return r.authority.FetchSessionByPaperID(ctx, paperId)
}
