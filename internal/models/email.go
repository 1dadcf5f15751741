package models

import "time"

// Email is the canonical record for one ingested message.
// Records are created once at ingestion and never mutated in the
// retrieval path; updates replace content and re-embed under the same ID.
type Email struct {
	ID              int64      `db:"id" json:"id"`
	MessageID       string     `db:"message_id" json:"message_id"`
	ParentMessageID *string    `db:"parent_message_id" json:"parent_message_id,omitempty"`
	References      []string   `json:"references,omitempty"`
	Sender          string     `db:"sender" json:"sender"`
	Receiver        string     `db:"receiver" json:"receiver"`
	Subject         string     `db:"subject" json:"subject"`
	Content         string     `db:"content" json:"content"`
	SentAt          *time.Time `db:"sent_at" json:"sent_at,omitempty"`
}

// SimilarEmail is one hit from the embedding index.
// Distance is ascending-is-better (0 = identical).
type SimilarEmail struct {
	Key      string  `json:"key"`
	Content  string  `json:"content"`
	Distance float64 `json:"distance"`
	Sender   string  `json:"sender"`
}

// StylometricProfile holds the ranked most-frequent words an author uses,
// per grammatical category, lemmatized and case-folded.
type StylometricProfile struct {
	Verbs      []string `json:"verbs"`
	Adverbs    []string `json:"adverbs"`
	Adjectives []string `json:"adjectives"`
}

// Empty reports whether the profile carries no signal at all.
func (p StylometricProfile) Empty() bool {
	return len(p.Verbs) == 0 && len(p.Adverbs) == 0 && len(p.Adjectives) == 0
}

// ReplyContext is the flat structure handed to the generator: identity
// fields plus three context blocks. Absent sources leave their block
// empty rather than nil so the prompt builder never branches on nils.
type ReplyContext struct {
	Sender       string             `json:"sender"`   // author of the email being replied to
	Receiver     string             `json:"receiver"` // the account whose style the reply mimics
	Content      string             `json:"content"`  // the email being replied to
	RecentEmails []string           `json:"recent_emails"`
	ThreadEmails []string           `json:"thread_emails"`
	SimilarMails []SimilarEmail     `json:"similar_emails"`
	Profile      StylometricProfile `json:"profile"`
	Warnings     []string           `json:"warnings,omitempty"`
}
