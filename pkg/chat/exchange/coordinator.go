package exchange

import (
	"context"
	"errors"
	"strings"
	"time"

	"paperchat/internal/entity"
	"paperchat/internal/pkg/logger"
	"paperchat/internal/repository/contract"
	"paperchat/pkg/chat/sessionlist"
	"paperchat/pkg/remote"
	"paperchat/pkg/store"
)

const coordinatorModule = "Exchange"

// Outcome is a successful exchange.
type Outcome struct {
	Answer       string
	SessionID    string
	IsNewSession bool
	UsedPdf      bool
	Preview      string
}

// Coordinator sends one message on behalf of a conversation and applies the
// authority's reply to the conversation, the index and the session list.
type Coordinator struct {
	authority remote.Authority
	listener  SessionListener
	logger    logger.ILogger
	now       func() time.Time
}

type Option func(*Coordinator)

func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

func WithListener(listener SessionListener) Option {
	return func(c *Coordinator) {
		if listener != nil {
			c.listener = listener
		}
	}
}

func NewCoordinator(authority remote.Authority, log logger.ILogger, opts ...Option) *Coordinator {
	c := &Coordinator{
		authority: authority,
		listener:  noopListener{},
		logger:    log,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Send trims text and asks the authority. Empty text and closed
// conversations are rejected before any request. A failed request returns an
// *ExchangeError and leaves conv, index and list untouched.
func (c *Coordinator) Send(
	ctx context.Context,
	conv *store.Conversation,
	index contract.SessionIndexRepository,
	list *sessionlist.List,
	text string,
) (*Outcome, error) {
	question := strings.TrimSpace(text)
	if question == "" {
		return nil, ErrEmptyMessage
	}
	if conv == nil || !conv.CanSend() {
		return nil, ErrConversationNotOpen
	}

	snap := conv.Snapshot()
	reply, err := c.authority.SendMessage(ctx, &entity.ChatExchange{
		Question:    question,
		PaperId:     snap.PaperID,
		PaperTitle:  snap.Title,
		SessionId:   snap.SessionID,
		PdfUrl:      snap.PDFURL,
		UseFullText: snap.HasLocalPDF,
	})
	if err == nil && (reply == nil || reply.SessionId == "") {
		err = errors.New("reply carries no session id")
	}
	if err != nil {
		c.logger.Error(coordinatorModule, "Exchange failed", map[string]interface{}{
			"paper_id":   snap.PaperID,
			"session_id": snap.SessionID,
			"error":      err.Error(),
		})
		return nil, newExchangeError(err)
	}

	conv.ApplyExchange(reply.SessionId)

	record := entity.SessionRecord{
		SessionId:  reply.SessionId,
		PaperId:    snap.PaperID,
		Title:      snap.Title,
		LastUsedAt: c.now(),
	}
	index.Replace(ctx, record)

	preview := sessionlist.Truncate(question, sessionlist.MaxPreviewRunes)
	if list != nil {
		list.SetPreview(reply.SessionId, preview)
		list.Rebuild(upsert(index.All(ctx), record))
	}

	if reply.IsNewSession {
		c.listener.OnNewSession(ctx, reply.SessionId, preview, snap.Title)
	} else {
		c.listener.OnSessionUpdated(ctx, reply.SessionId, preview)
	}

	c.logger.Info(coordinatorModule, "Exchange completed", map[string]interface{}{
		"paper_id":       snap.PaperID,
		"session_id":     reply.SessionId,
		"is_new_session": reply.IsNewSession,
	})

	return &Outcome{
		Answer:       reply.Answer,
		SessionID:    reply.SessionId,
		IsNewSession: reply.IsNewSession,
		UsedPdf:      reply.UsedPdf,
		Preview:      preview,
	}, nil
}

// upsert replaces the paper's record in records with fresh. The newer of the
// two timestamps is kept.
func upsert(records []entity.SessionRecord, fresh entity.SessionRecord) []entity.SessionRecord {
	out := make([]entity.SessionRecord, 0, len(records)+1)
	replaced := false
	for _, r := range records {
		if r.PaperId != fresh.PaperId {
			out = append(out, r)
			continue
		}
		replaced = true
		if r.LastUsedAt.After(fresh.LastUsedAt) {
			fresh.LastUsedAt = r.LastUsedAt
		}
		out = append(out, fresh)
	}
	if !replaced {
		out = append(out, fresh)
	}
	return out
}
