package history

import (
	"context"

	"paperchat/internal/entity"
	"paperchat/internal/pkg/logger"
	"paperchat/pkg/remote"
)

// Loader produces the displayable history of a resolved session.
type Loader struct {
	authority remote.Authority
	logger    logger.ILogger
}

func NewLoader(authority remote.Authority, log logger.ILogger) *Loader {
	return &Loader{
		authority: authority,
		logger:    log,
	}
}

// Load returns the messages of sessionId in chronological order. When detail
// already carries the session's messages no request is made; otherwise the
// session is fetched once. Failures yield an empty history.
func (l *Loader) Load(ctx context.Context, sessionId string, detail *entity.ChatSession) []entity.ChatMessage {
	if sessionId == "" {
		return []entity.ChatMessage{}
	}

	if detail != nil && detail.Id == sessionId && detail.Messages != nil {
		return copyMessages(detail.Messages)
	}

	session, err := l.authority.FetchSessionByID(ctx, sessionId)
	if err != nil {
		l.logger.Warn("History", "Failed to load session history", map[string]interface{}{
			"session_id": sessionId,
			"error":      err.Error(),
		})
		return []entity.ChatMessage{}
	}

	return copyMessages(session.Messages)
}

func copyMessages(messages []entity.ChatMessage) []entity.ChatMessage {
	out := make([]entity.ChatMessage, len(messages))
	copy(out, messages)
	return out
}
