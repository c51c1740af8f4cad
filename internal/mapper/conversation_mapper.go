package mapper

import (
	"paperchat/internal/dto"
	"paperchat/internal/entity"
	"paperchat/pkg/store"
)

type ConversationMapper struct {
	chat *ChatMapper
}

func NewConversationMapper() *ConversationMapper {
	return &ConversationMapper{chat: NewChatMapper()}
}

func (m *ConversationMapper) SnapshotToResponse(snap store.ConversationSnapshot) *dto.ConversationResponse {
	var sessionId *string
	if snap.SessionID != "" {
		id := snap.SessionID
		sessionId = &id
	}
	authors := snap.Authors
	if authors == nil {
		authors = []string{}
	}
	return &dto.ConversationResponse{
		Id:          snap.ID,
		PaperId:     snap.PaperID,
		Title:       snap.Title,
		Authors:     authors,
		PdfUrl:      snap.PDFURL,
		HasLocalPdf: snap.HasLocalPDF,
		SessionId:   sessionId,
		State:       string(snap.State),
	}
}

func (m *ConversationMapper) OpenedToResponse(snap store.ConversationSnapshot, history []entity.ChatMessage, source string, reused bool) *dto.ConversationResponse {
	res := m.SnapshotToResponse(snap)
	res.Source = source
	res.Reused = reused
	res.History = m.chat.MessagesToResponse(history)
	return res
}
