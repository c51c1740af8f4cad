package mocks

import (
	"context"

	"paperchat/internal/entity"

	"github.com/stretchr/testify/mock"
)

// Authority is a testify mock of remote.Authority.
type Authority struct {
	mock.Mock
}

func (m *Authority) FetchSessionByID(ctx context.Context, sessionId string) (*entity.ChatSession, error) {
	args := m.Called(ctx, sessionId)
	session, _ := args.Get(0).(*entity.ChatSession)
	return session, args.Error(1)
}

func (m *Authority) FetchSessionByPaperID(ctx context.Context, paperId string) (*entity.ChatSession, error) {
	args := m.Called(ctx, paperId)
	session, _ := args.Get(0).(*entity.ChatSession)
	return session, args.Error(1)
}

func (m *Authority) SendMessage(ctx context.Context, exchange *entity.ChatExchange) (*entity.ChatReply, error) {
	args := m.Called(ctx, exchange)
	reply, _ := args.Get(0).(*entity.ChatReply)
	return reply, args.Error(1)
}

func (m *Authority) ListSessions(ctx context.Context) ([]*entity.ChatSession, error) {
	args := m.Called(ctx)
	sessions, _ := args.Get(0).([]*entity.ChatSession)
	return sessions, args.Error(1)
}

func (m *Authority) DeleteSession(ctx context.Context, sessionId string) error {
	args := m.Called(ctx, sessionId)
	return args.Error(0)
}

// SessionListener records session list callbacks.
type SessionListener struct {
	mock.Mock
}

func (m *SessionListener) OnNewSession(ctx context.Context, sessionId, preview, title string) {
	m.Called(ctx, sessionId, preview, title)
}

func (m *SessionListener) OnSessionUpdated(ctx context.Context, sessionId, preview string) {
	m.Called(ctx, sessionId, preview)
}
