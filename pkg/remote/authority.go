package remote

import (
	"context"

	"paperchat/internal/entity"
)

// Authority is the service that owns chat sessions, their history and their
// expiry. Lookups report a missing or expired session with ErrSessionNotFound.
type Authority interface {
	FetchSessionByID(ctx context.Context, sessionId string) (*entity.ChatSession, error)
	FetchSessionByPaperID(ctx context.Context, paperId string) (*entity.ChatSession, error)
	SendMessage(ctx context.Context, exchange *entity.ChatExchange) (*entity.ChatReply, error)
	ListSessions(ctx context.Context) ([]*entity.ChatSession, error)
	DeleteSession(ctx context.Context, sessionId string) error
}

type tokenKey struct{}

// WithToken attaches the caller's bearer token to ctx for outgoing calls.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}
