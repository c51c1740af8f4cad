package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"paperchat/internal/dto"
	"paperchat/internal/entity"
	"paperchat/internal/mapper"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// Client talks JSON over HTTP to the authority's /api/ai routes.
type Client struct {
	BaseURL string
	Client  *http.Client
	mapper  *mapper.ChatMapper
}

// Ensure Client implements Authority
var _ Authority = &Client{}

// NewClient sets no client-side timeout; callers bound requests through ctx.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{},
		mapper:  mapper.NewChatMapper(),
	}
}

func (c *Client) FetchSessionByID(ctx context.Context, sessionId string) (*entity.ChatSession, error) {
	var res dto.ChatSessionDetailResponse
	path := "/api/ai/chat-sessions/" + url.PathEscape(sessionId)
	if err := c.do(ctx, http.MethodGet, path, nil, &res); err != nil {
		return nil, err
	}
	if res.Id == "" {
		res.Id = dto.SessionID(sessionId)
	}
	return c.mapper.SessionDetailToEntity(&res), nil
}

// FetchSessionByPaperID returns the latest session for a paper. The authority
// answers "no session" with a null id rather than a 404; both map to
// ErrSessionNotFound.
func (c *Client) FetchSessionByPaperID(ctx context.Context, paperId string) (*entity.ChatSession, error) {
	var res dto.PaperChatSessionResponse
	path := "/api/ai/paper-chat-session/" + url.PathEscape(paperId)
	if err := c.do(ctx, http.MethodGet, path, nil, &res); err != nil {
		return nil, err
	}
	if res.SessionId == "" {
		return nil, ErrSessionNotFound
	}
	return c.mapper.PaperSessionToEntity(paperId, &res), nil
}

func (c *Client) SendMessage(ctx context.Context, exchange *entity.ChatExchange) (*entity.ChatReply, error) {
	var res dto.AskQuestionResponse
	if err := c.do(ctx, http.MethodPost, "/api/ai/question", c.mapper.ExchangeToRequest(exchange), &res); err != nil {
		return nil, err
	}
	return c.mapper.ReplyToEntity(&res), nil
}

func (c *Client) ListSessions(ctx context.Context) ([]*entity.ChatSession, error) {
	var res []dto.ChatSessionSummaryResponse
	if err := c.do(ctx, http.MethodGet, "/api/ai/chat-sessions", nil, &res); err != nil {
		return nil, err
	}
	sessions := make([]*entity.ChatSession, 0, len(res))
	for i := range res {
		if res[i].Id == "" {
			continue
		}
		sessions = append(sessions, c.mapper.SessionSummaryToEntity(&res[i]))
	}
	return sessions, nil
}

func (c *Client) DeleteSession(ctx context.Context, sessionId string) error {
	path := "/api/ai/chat-sessions/" + url.PathEscape(sessionId)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		payloadBytes, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewBuffer(payloadBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := TokenFromContext(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s %s: %w", method, path, ErrSessionNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := &StatusError{Method: method, Path: path, StatusCode: resp.StatusCode}
		var errBody dto.RemoteErrorResponse
		if json.Unmarshal(respBody, &errBody) == nil {
			statusErr.Detail = errBody.Detail
		}
		return statusErr
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// IsNotFound reports whether err means the session no longer exists.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrSessionNotFound)
}
