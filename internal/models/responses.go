package models

// AddEmailRequest is the payload for creating a single email record.
// MessageID is optional; the server mints one when absent.
type AddEmailRequest struct {
	MessageID string `json:"message_id,omitempty"`
	Sender    string `json:"sender"`
	Receiver  string `json:"receiver"`
	Subject   string `json:"subject"`
	Content   string `json:"content"`
	SentAt    string `json:"sent_at,omitempty"` // RFC 3339; empty means unknown
}

// AddEmailResponse reports a single-record ingestion outcome.
type AddEmailResponse struct {
	Success   bool   `json:"success"`
	ID        int64  `json:"id,omitempty"`
	MessageID string `json:"message_id,omitempty"`
	Inserted  bool   `json:"inserted"`
	Error     string `json:"error,omitempty"`
}

// GenerateRequest asks for a drafted reply to Content, written as Receiver.
// Subject and InReplyTo are optional; when present they let the thread
// resolver pull in the surrounding conversation.
type GenerateRequest struct {
	Sender       string   `json:"sender"`
	Receiver     string   `json:"receiver"`
	Subject      string   `json:"subject,omitempty"`
	Content      string   `json:"content"`
	InReplyTo    string   `json:"in_reply_to,omitempty"`
	References   []string `json:"references,omitempty"`
	CustomPrompt string   `json:"custom_prompt,omitempty"`
}

// GenerateResponse carries the drafted reply.
type GenerateResponse struct {
	Success  bool     `json:"success"`
	Reply    string   `json:"reply,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// SendDraftRequest delivers an approved draft by email.
type SendDraftRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// SearchRequest is a semantic search over ingested mail.
type SearchRequest struct {
	Query  string `json:"query"`
	Limit  int    `json:"limit,omitempty"`
	Sender string `json:"sender,omitempty"` // exact-match metadata filter
}

// SearchResponse wraps semantic search hits.
type SearchResponse struct {
	Success bool           `json:"success"`
	Results []SimilarEmail `json:"results"`
	Error   string         `json:"error,omitempty"`
}

// ImportResponse reports the outcome of a storage import.
type ImportResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Report  *BatchReport `json:"report,omitempty"`
	Error   string       `json:"error,omitempty"`
}
