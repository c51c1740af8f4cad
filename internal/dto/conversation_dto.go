package dto

import "time"

type OpenConversationRequest struct {
	PaperId     string   `json:"paper_id" validate:"required,max=255"`
	Title       string   `json:"title" validate:"required,max=500"`
	Authors     []string `json:"authors" validate:"max=100,dive,max=255"`
	PdfUrl      *string  `json:"pdf_url" validate:"omitempty,url"`
	HasLocalPdf bool     `json:"has_local_pdf"`
}

type ConversationResponse struct {
	Id          string                `json:"id"`
	PaperId     string                `json:"paper_id"`
	Title       string                `json:"title"`
	Authors     []string              `json:"authors"`
	PdfUrl      *string               `json:"pdf_url"`
	HasLocalPdf bool                  `json:"has_local_pdf"`
	SessionId   *string               `json:"session_id"`
	State       string                `json:"state"`
	Source      string                `json:"source,omitempty"`
	Reused      bool                  `json:"reused"`
	History     []ChatMessageResponse `json:"history,omitempty"`
}

type ChatMessageResponse struct {
	Text      string    `json:"text"`
	IsUser    bool      `json:"is_user"`
	Timestamp time.Time `json:"timestamp"`
}

type SendMessageRequest struct {
	Text string `json:"text" validate:"max=8000"`
}

type SendMessageResponse struct {
	Answer       string `json:"answer,omitempty"`
	SessionId    string `json:"session_id,omitempty"`
	IsNewSession bool   `json:"is_new_session"`
	UsedPdf      bool   `json:"used_pdf"`
	Error        string `json:"error,omitempty"`
}

type SessionListItemResponse struct {
	SessionId  string    `json:"session_id"`
	PaperId    string    `json:"paper_id"`
	Title      string    `json:"title"`
	Preview    string    `json:"preview"`
	LastUsedAt time.Time `json:"last_used_at"`
}

type SyncSessionsResponse struct {
	Mirrored int `json:"mirrored"`
}
