package mapper

import (
	"paperchat/internal/dto"
	"paperchat/internal/entity"
)

type ChatMapper struct{}

func NewChatMapper() *ChatMapper {
	return &ChatMapper{}
}

// Remote -> Entity

func (m *ChatMapper) SessionDetailToEntity(r *dto.ChatSessionDetailResponse) *entity.ChatSession {
	if r == nil {
		return nil
	}

	messages := make([]entity.ChatMessage, 0, len(r.Messages))
	var last entity.ChatMessage
	for _, msg := range r.Messages {
		em := entity.ChatMessage{
			Text:      msg.Message,
			IsUser:    msg.IsUser,
			Timestamp: msg.CreatedAt.Time,
		}
		messages = append(messages, em)
		if em.IsUser {
			last = em
		}
	}

	lastMessageAt := r.CreatedAt.Time
	if n := len(messages); n > 0 && messages[n-1].Timestamp.After(lastMessageAt) {
		lastMessageAt = messages[n-1].Timestamp
	}

	return &entity.ChatSession{
		Id:            string(r.Id),
		PaperId:       r.PaperId,
		PaperTitle:    r.PaperTitle,
		Preview:       last.Text,
		CreatedAt:     r.CreatedAt.Time,
		LastMessageAt: lastMessageAt,
		Messages:      messages,
	}
}

func (m *ChatMapper) PaperSessionToEntity(paperId string, r *dto.PaperChatSessionResponse) *entity.ChatSession {
	if r == nil {
		return nil
	}
	return &entity.ChatSession{
		Id:            string(r.SessionId),
		PaperId:       paperId,
		PaperTitle:    r.PaperTitle,
		CreatedAt:     r.CreatedAt.Time,
		LastMessageAt: r.LastMessageAt.Time,
	}
}

func (m *ChatMapper) SessionSummaryToEntity(r *dto.ChatSessionSummaryResponse) *entity.ChatSession {
	if r == nil {
		return nil
	}
	preview := r.Question
	if preview == "" {
		preview = r.FirstQuestion
	}
	return &entity.ChatSession{
		Id:            string(r.Id),
		PaperId:       r.PaperId,
		PaperTitle:    r.PaperTitle,
		Preview:       preview,
		CreatedAt:     r.CreatedAt.Time,
		LastMessageAt: r.LastMessageAt.Time,
	}
}

func (m *ChatMapper) ReplyToEntity(r *dto.AskQuestionResponse) *entity.ChatReply {
	if r == nil {
		return nil
	}
	return &entity.ChatReply{
		Answer:       r.Answer,
		SessionId:    string(r.SessionId),
		IsNewSession: r.IsNewSession,
		UsedPdf:      r.UsedPdf,
	}
}

// Entity -> Remote

func (m *ChatMapper) ExchangeToRequest(e *entity.ChatExchange) *dto.AskQuestionRequest {
	return &dto.AskQuestionRequest{
		Question:    e.Question,
		PaperId:     e.PaperId,
		PaperTitle:  e.PaperTitle,
		PdfUrl:      e.PdfUrl,
		UseFullText: e.UseFullText,
		SessionId:   dto.SessionID(e.SessionId),
	}
}

// Entity -> Gateway

func (m *ChatMapper) MessagesToResponse(messages []entity.ChatMessage) []dto.ChatMessageResponse {
	res := make([]dto.ChatMessageResponse, 0, len(messages))
	for _, msg := range messages {
		res = append(res, dto.ChatMessageResponse{
			Text:      msg.Text,
			IsUser:    msg.IsUser,
			Timestamp: msg.Timestamp,
		})
	}
	return res
}

func (m *ChatMapper) SessionListToResponse(entries []entity.SessionListEntry) []dto.SessionListItemResponse {
	res := make([]dto.SessionListItemResponse, 0, len(entries))
	for _, e := range entries {
		res = append(res, dto.SessionListItemResponse{
			SessionId:  e.SessionId,
			PaperId:    e.PaperId,
			Title:      e.Title,
			Preview:    e.Preview,
			LastUsedAt: e.LastUsedAt,
		})
	}
	return res
}
