package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"paperchat/internal/dto"
	"paperchat/internal/entity"
	"paperchat/internal/mapper"
	"paperchat/internal/pkg/logger"
	"paperchat/internal/repository/contract"
	"paperchat/pkg/chat/exchange"
	"paperchat/pkg/chat/history"
	"paperchat/pkg/chat/session"
	"paperchat/pkg/chat/sessionlist"
	"paperchat/pkg/events"
	"paperchat/pkg/remote"
	"paperchat/pkg/store"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

const (
	chatModule = "ChatService"

	defaultScopeIdleTTL  = 30 * time.Minute
	scopeCleanupInterval = 10 * time.Minute
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrSessionNotFound      = errors.New("no session for paper")
)

// Viewer identifies whose index is used and which token goes to the remote.
type Viewer struct {
	Scope string
	Token string
}

func (v Viewer) context(ctx context.Context) context.Context {
	if v.Token != "" {
		ctx = remote.WithToken(ctx, v.Token)
	}
	return events.WithScope(ctx, v.Scope)
}

// IndexFactory opens the session index of one scope.
type IndexFactory func(scope string) contract.SessionIndexRepository

type IChatService interface {
	OpenConversation(ctx context.Context, viewer Viewer, req *dto.OpenConversationRequest) (*dto.ConversationResponse, error)
	SendMessage(ctx context.Context, viewer Viewer, conversationId, text string) (*dto.SendMessageResponse, error)
	GetConversation(viewer Viewer, conversationId string) (*dto.ConversationResponse, error)
	CloseConversation(viewer Viewer, conversationId string) error
	ListSessions(ctx context.Context, viewer Viewer) []dto.SessionListItemResponse
	DeleteSession(ctx context.Context, viewer Viewer, paperId string) error
	SyncFromRemote(ctx context.Context, viewer Viewer) (*dto.SyncSessionsResponse, error)
	Forget(ctx context.Context, viewer Viewer)
}

// scopeState is everything one user scope owns: its index, its session list
// and its open conversation views.
type scopeState struct {
	index contract.SessionIndexRepository
	list  *sessionlist.List

	mu      sync.Mutex
	byId    map[string]*store.Conversation
	byPaper map[string]*store.Conversation
}

type chatService struct {
	authority   remote.Authority
	newIndex    IndexFactory
	resolver    *session.Resolver
	history     *history.Loader
	coordinator *exchange.Coordinator
	chatMapper  *mapper.ChatMapper
	convMapper  *mapper.ConversationMapper
	logger      logger.ILogger

	// idle scopes expire; their index stays in the blob store
	mu       sync.Mutex
	scopeTTL time.Duration
	scopes   *cache.Cache
}

type ChatServiceOption func(*chatService)

// WithScopeIdleTTL sets how long an untouched scope keeps its open
// conversations and session list in memory.
func WithScopeIdleTTL(ttl time.Duration) ChatServiceOption {
	return func(s *chatService) {
		if ttl > 0 {
			s.scopeTTL = ttl
		}
	}
}

func NewChatService(
	authority remote.Authority,
	newIndex IndexFactory,
	resolver *session.Resolver,
	historyLoader *history.Loader,
	coordinator *exchange.Coordinator,
	log logger.ILogger,
	opts ...ChatServiceOption,
) IChatService {
	s := &chatService{
		authority:   authority,
		newIndex:    newIndex,
		resolver:    resolver,
		history:     historyLoader,
		coordinator: coordinator,
		chatMapper:  mapper.NewChatMapper(),
		convMapper:  mapper.NewConversationMapper(),
		logger:      log,
		scopeTTL:    defaultScopeIdleTTL,
	}
	for _, opt := range opts {
		opt(s)
	}

	cleanup := scopeCleanupInterval
	if s.scopeTTL < cleanup {
		cleanup = s.scopeTTL
	}
	s.scopes = cache.New(s.scopeTTL, cleanup)
	s.scopes.OnEvicted(func(name string, _ interface{}) {
		s.logger.Debug(chatModule, "Scope state released", map[string]interface{}{
			"scope": name,
		})
	})
	return s
}

// scope returns the state of one scope, creating it on first use. Every call
// pushes the scope's expiry back.
func (s *chatService) scope(name string) *scopeState {
	if x, ok := s.scopes.Get(name); ok {
		s.scopes.SetDefault(name, x)
		return x.(*scopeState)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if x, ok := s.scopes.Get(name); ok {
		s.scopes.SetDefault(name, x)
		return x.(*scopeState)
	}
	st := &scopeState{
		index:   s.newIndex(name),
		list:    sessionlist.New(),
		byId:    make(map[string]*store.Conversation),
		byPaper: make(map[string]*store.Conversation),
	}
	s.scopes.SetDefault(name, st)
	return st
}

func (s *chatService) OpenConversation(ctx context.Context, viewer Viewer, req *dto.OpenConversationRequest) (*dto.ConversationResponse, error) {
	ctx = viewer.context(ctx)
	st := s.scope(viewer.Scope)

	st.mu.Lock()
	if existing, ok := st.byPaper[req.PaperId]; ok && existing.State() == store.StateActive {
		st.mu.Unlock()
		snap := existing.Snapshot()
		messages := s.history.Load(ctx, snap.SessionID, nil)
		return s.convMapper.OpenedToResponse(snap, messages, "", true), nil
	}
	conv := store.NewConversation(uuid.NewString(), req.PaperId, req.Title, req.Authors, req.PdfUrl, req.HasLocalPdf)
	if previous, ok := st.byPaper[req.PaperId]; ok {
		delete(st.byId, previous.ID)
	}
	st.byId[conv.ID] = conv
	st.byPaper[conv.PaperID] = conv
	st.mu.Unlock()

	token, _ := conv.BeginResolving()
	res := s.resolver.Resolve(ctx, st.index, req.PaperId, req.Title)
	if !conv.ApplyResolution(token, res.SessionID) {
		s.logger.Info(chatModule, "Discarded stale resolution", map[string]interface{}{
			"conversation_id": conv.ID,
			"paper_id":        req.PaperId,
			"session_id":      res.SessionID,
		})
	}

	st.list.Rebuild(st.index.All(ctx))

	snap := conv.Snapshot()
	var messages []entity.ChatMessage
	if snap.SessionID != "" {
		messages = s.history.Load(ctx, snap.SessionID, res.Session)
	}

	s.logger.Info(chatModule, "Conversation opened", map[string]interface{}{
		"conversation_id": conv.ID,
		"paper_id":        req.PaperId,
		"session_id":      snap.SessionID,
		"source":          string(res.Source),
		"evicted":         res.Evicted,
	})

	return s.convMapper.OpenedToResponse(snap, messages, string(res.Source), false), nil
}

func (s *chatService) conversation(viewer Viewer, conversationId string) (*scopeState, *store.Conversation, error) {
	st := s.scope(viewer.Scope)
	st.mu.Lock()
	defer st.mu.Unlock()
	conv, ok := st.byId[conversationId]
	if !ok {
		return nil, nil, ErrConversationNotFound
	}
	return st, conv, nil
}

func (s *chatService) SendMessage(ctx context.Context, viewer Viewer, conversationId, text string) (*dto.SendMessageResponse, error) {
	st, conv, err := s.conversation(viewer, conversationId)
	if err != nil {
		return nil, err
	}

	outcome, err := s.coordinator.Send(viewer.context(ctx), conv, st.index, st.list, text)
	if err != nil {
		return nil, err
	}
	return outcomeToResponse(outcome), nil
}

func outcomeToResponse(o *exchange.Outcome) *dto.SendMessageResponse {
	return &dto.SendMessageResponse{
		Answer:       o.Answer,
		SessionId:    o.SessionID,
		IsNewSession: o.IsNewSession,
		UsedPdf:      o.UsedPdf,
	}
}

func (s *chatService) GetConversation(viewer Viewer, conversationId string) (*dto.ConversationResponse, error) {
	_, conv, err := s.conversation(viewer, conversationId)
	if err != nil {
		return nil, err
	}
	return s.convMapper.SnapshotToResponse(conv.Snapshot()), nil
}

func (s *chatService) CloseConversation(viewer Viewer, conversationId string) error {
	st := s.scope(viewer.Scope)
	st.mu.Lock()
	defer st.mu.Unlock()

	conv, ok := st.byId[conversationId]
	if !ok {
		return ErrConversationNotFound
	}
	delete(st.byId, conversationId)
	if st.byPaper[conv.PaperID] == conv {
		delete(st.byPaper, conv.PaperID)
	}
	return nil
}

func (s *chatService) ListSessions(ctx context.Context, viewer Viewer) []dto.SessionListItemResponse {
	st := s.scope(viewer.Scope)
	st.list.Rebuild(st.index.All(ctx))
	return s.chatMapper.SessionListToResponse(st.list.Entries())
}

// DeleteSession deletes the paper's session remotely, then evicts it and
// closes any view still bound to it. A session the remote already dropped is
// evicted as well.
func (s *chatService) DeleteSession(ctx context.Context, viewer Viewer, paperId string) error {
	ctx = viewer.context(ctx)
	st := s.scope(viewer.Scope)

	record, ok := st.index.Get(ctx, paperId)
	if !ok {
		return ErrSessionNotFound
	}

	if err := s.authority.DeleteSession(ctx, record.SessionId); err != nil && !remote.IsNotFound(err) {
		return fmt.Errorf("failed to delete session %s: %w", record.SessionId, err)
	}
	st.index.Evict(ctx, paperId)

	st.mu.Lock()
	if conv, ok := st.byPaper[paperId]; ok && conv.SessionID() == record.SessionId {
		delete(st.byPaper, paperId)
		delete(st.byId, conv.ID)
	}
	st.mu.Unlock()

	st.list.Rebuild(st.index.All(ctx))

	s.logger.Info(chatModule, "Session deleted", map[string]interface{}{
		"paper_id":   paperId,
		"session_id": record.SessionId,
	})
	return nil
}

// SyncFromRemote mirrors the remote session list into the index. Entries are
// only added or refreshed; nothing is evicted.
func (s *chatService) SyncFromRemote(ctx context.Context, viewer Viewer) (*dto.SyncSessionsResponse, error) {
	ctx = viewer.context(ctx)
	st := s.scope(viewer.Scope)

	sessions, err := s.authority.ListSessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list remote sessions: %w", err)
	}

	mirrored := 0
	for _, remoteSession := range sessions {
		if remoteSession == nil || remoteSession.Id == "" || remoteSession.PaperId == "" {
			continue
		}
		lastUsedAt := remoteSession.LastMessageAt
		if lastUsedAt.IsZero() {
			lastUsedAt = remoteSession.CreatedAt
		}
		st.index.Put(ctx, entity.SessionRecord{
			SessionId:  remoteSession.Id,
			PaperId:    remoteSession.PaperId,
			Title:      remoteSession.PaperTitle,
			LastUsedAt: lastUsedAt,
		})
		if remoteSession.Preview != "" {
			st.list.SetPreview(remoteSession.Id, remoteSession.Preview)
		}
		mirrored++
	}

	st.list.Rebuild(st.index.All(ctx))

	s.logger.Info(chatModule, "Mirrored remote sessions", map[string]interface{}{
		"scope":    viewer.Scope,
		"mirrored": mirrored,
	})
	return &dto.SyncSessionsResponse{Mirrored: mirrored}, nil
}

// Forget drops everything held for the viewer's scope.
func (s *chatService) Forget(ctx context.Context, viewer Viewer) {
	st := s.scope(viewer.Scope)
	st.index.Clear(ctx)
	st.list.Reset()

	s.mu.Lock()
	s.scopes.Delete(viewer.Scope)
	s.mu.Unlock()

	s.logger.Info(chatModule, "Local session state cleared", map[string]interface{}{
		"scope": viewer.Scope,
	})
}
