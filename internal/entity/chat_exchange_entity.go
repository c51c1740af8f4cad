package entity

// ChatExchange is one question sent to the remote authority.
type ChatExchange struct {
	Question    string
	PaperId     string
	PaperTitle  string
	SessionId   string // empty asks the remote to find or create one
	PdfUrl      *string
	UseFullText bool
}

// ChatReply is the authority's answer. SessionId is authoritative.
type ChatReply struct {
	Answer       string
	SessionId    string
	IsNewSession bool
	UsedPdf      bool
}
