package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"stylomail/internal/models"
)

// ErrNotFound is returned when a lookup matches no record.
var ErrNotFound = errors.New("email not found")

// subjectPrefixes are the conventional reply/forward markers matched by
// FindBySubjectVariants. Kept in sync with threads.NormalizeSubject.
var subjectPrefixes = []string{"Re: ", "RE: ", "re: ", "Fw: ", "FW: ", "Fwd: ", "FWD: "}

// orderRecentFirst keeps ordering deterministic: undated records sort
// last and id breaks timestamp ties.
const orderRecentFirst = "(sent_at IS NULL) ASC, sent_at DESC, id DESC"
const orderOldestFirst = "(sent_at IS NULL) ASC, sent_at ASC, id ASC"

// EmailStore is the relational store of canonical email records.
type EmailStore struct {
	db *sqlx.DB
}

// NewEmailStore wraps an open connection.
func NewEmailStore(db *sqlx.DB) *EmailStore {
	return &EmailStore{db: db}
}

// CreateTables creates the emails table and its indexes if missing.
func (s *EmailStore) CreateTables(ctx context.Context) error {
	var createTable string
	if s.db.DriverName() == "postgres" {
		createTable = `CREATE TABLE IF NOT EXISTS emails (
			id BIGSERIAL PRIMARY KEY,
			message_id VARCHAR(255) UNIQUE NOT NULL,
			parent_message_id VARCHAR(255),
			refs TEXT,
			sender VARCHAR(320) NOT NULL,
			receiver VARCHAR(320) NOT NULL,
			subject TEXT NOT NULL,
			content TEXT NOT NULL,
			sent_at TIMESTAMP
		)`
	} else {
		createTable = `CREATE TABLE IF NOT EXISTS emails (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			message_id VARCHAR(255) UNIQUE NOT NULL,
			parent_message_id VARCHAR(255),
			refs TEXT,
			sender VARCHAR(320) NOT NULL,
			receiver VARCHAR(320) NOT NULL,
			subject TEXT NOT NULL,
			content TEXT NOT NULL,
			sent_at TIMESTAMP NULL
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`
	}

	if _, err := s.db.ExecContext(ctx, createTable); err != nil {
		return fmt.Errorf("failed to create emails table: %w", err)
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_emails_sender_receiver ON emails(sender, receiver)`,
		`CREATE INDEX IF NOT EXISTS idx_emails_sent_at ON emails(sent_at)`,
	}
	for _, query := range indexes {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			// Index creation failures are non-fatal (may already exist on MySQL)
			fmt.Printf("Warning: Failed to create index: %v\n", err)
		}
	}

	return nil
}

// emailRow is the scan target; refs holds the ancestor chain as a
// space-joined string, oldest first, matching the wire header form.
type emailRow struct {
	ID              int64          `db:"id"`
	MessageID       string         `db:"message_id"`
	ParentMessageID sql.NullString `db:"parent_message_id"`
	Refs            sql.NullString `db:"refs"`
	Sender          string         `db:"sender"`
	Receiver        string         `db:"receiver"`
	Subject         string         `db:"subject"`
	Content         string         `db:"content"`
	SentAt          sql.NullTime   `db:"sent_at"`
}

func (r emailRow) toModel() models.Email {
	email := models.Email{
		ID:        r.ID,
		MessageID: r.MessageID,
		Sender:    r.Sender,
		Receiver:  r.Receiver,
		Subject:   r.Subject,
		Content:   r.Content,
	}
	if r.ParentMessageID.Valid && r.ParentMessageID.String != "" {
		parent := r.ParentMessageID.String
		email.ParentMessageID = &parent
	}
	if r.Refs.Valid && r.Refs.String != "" {
		email.References = strings.Fields(r.Refs.String)
	}
	if r.SentAt.Valid {
		sentAt := r.SentAt.Time
		email.SentAt = &sentAt
	}
	return email
}

func joinRefs(refs []string) sql.NullString {
	if len(refs) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: strings.Join(refs, " "), Valid: true}
}

func nullString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// Insert persists a record and returns its store-assigned internal id.
// A duplicate message_id is a no-op: the existing id comes back with
// inserted=false. The write runs in its own transaction so a failure
// leaves no partial row.
func (s *EmailStore) Insert(ctx context.Context, email *models.Email) (int64, bool, error) {
	if email.MessageID == "" {
		return 0, false, fmt.Errorf("email has no message id")
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() // no-op after commit
	}()

	var existingID int64
	err = tx.GetContext(ctx, &existingID,
		tx.Rebind(`SELECT id FROM emails WHERE message_id = ?`), email.MessageID)
	if err == nil {
		return existingID, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, false, fmt.Errorf("failed to check for duplicate: %w", err)
	}

	var id int64
	if s.db.DriverName() == "postgres" {
		err = tx.GetContext(ctx, &id, tx.Rebind(`
			INSERT INTO emails (message_id, parent_message_id, refs, sender, receiver, subject, content, sent_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`),
			email.MessageID, nullString(email.ParentMessageID), joinRefs(email.References),
			email.Sender, email.Receiver, email.Subject, email.Content, nullTime(email.SentAt))
		if err != nil {
			return 0, false, fmt.Errorf("failed to insert email: %w", err)
		}
	} else {
		result, execErr := tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO emails (message_id, parent_message_id, refs, sender, receiver, subject, content, sent_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
			email.MessageID, nullString(email.ParentMessageID), joinRefs(email.References),
			email.Sender, email.Receiver, email.Subject, email.Content, nullTime(email.SentAt))
		if execErr != nil {
			return 0, false, fmt.Errorf("failed to insert email: %w", execErr)
		}
		id, err = result.LastInsertId()
		if err != nil {
			return 0, false, fmt.Errorf("failed to read insert id: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("failed to commit insert: %w", err)
	}

	email.ID = id
	return id, true, nil
}

// InsertBatch inserts records one by one, classifying each row as
// inserted, skipped (duplicate) or failed. A single failing row never
// aborts the batch.
func (s *EmailStore) InsertBatch(ctx context.Context, batch []*models.Email) models.BatchReport {
	var report models.BatchReport
	for _, email := range batch {
		_, inserted, err := s.Insert(ctx, email)
		switch {
		case err != nil:
			report.Add(email.MessageID, models.RowFailed, err.Error())
		case inserted:
			report.Add(email.MessageID, models.RowInserted, "")
		default:
			report.Add(email.MessageID, models.RowSkipped, "duplicate message_id")
		}
	}
	return report
}

// FindByMessageID fetches one record by its external message id.
func (s *EmailStore) FindByMessageID(ctx context.Context, messageID string) (*models.Email, error) {
	var row emailRow
	err := s.db.GetContext(ctx, &row,
		s.db.Rebind(`SELECT * FROM emails WHERE message_id = ?`), messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find email: %w", err)
	}
	email := row.toModel()
	return &email, nil
}

// FindByInternalID fetches one record by its surrogate key.
func (s *EmailStore) FindByInternalID(ctx context.Context, id int64) (*models.Email, error) {
	var row emailRow
	err := s.db.GetContext(ctx, &row,
		s.db.Rebind(`SELECT * FROM emails WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find email: %w", err)
	}
	email := row.toModel()
	return &email, nil
}

// FindConversation returns prior mail on the directed sender→receiver
// pair, most recent first. Set bidirectional to include the reverse
// direction as well.
func (s *EmailStore) FindConversation(ctx context.Context, sender, receiver string, limit int, bidirectional bool) ([]models.Email, error) {
	where := `sender = ? AND receiver = ?`
	args := []interface{}{sender, receiver}
	if bidirectional {
		where = `(sender = ? AND receiver = ?) OR (sender = ? AND receiver = ?)`
		args = append(args, receiver, sender)
	}
	args = append(args, limit)

	query := s.db.Rebind(fmt.Sprintf(
		`SELECT * FROM emails WHERE %s ORDER BY %s LIMIT ?`, where, orderRecentFirst))

	return s.selectEmails(ctx, query, args...)
}

// FindByReferences fetches all records whose message_id appears in ids.
func (s *EmailStore) FindByReferences(ctx context.Context, ids []string) ([]models.Email, error) {
	if len(ids) == 0 {
		return []models.Email{}, nil
	}

	query, args, err := sqlx.In(
		`SELECT * FROM emails WHERE message_id IN (?) ORDER BY `+orderOldestFirst, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to build reference query: %w", err)
	}

	return s.selectEmails(ctx, s.db.Rebind(query), args...)
}

// FindBySubjectVariants matches records whose subject equals the
// normalized subject or any conventional reply/forward-prefixed variant
// of it, sent strictly before the given time. A nil before means no
// time bound. Results come back oldest first.
func (s *EmailStore) FindBySubjectVariants(ctx context.Context, normalizedSubject string, before *time.Time) ([]models.Email, error) {
	if normalizedSubject == "" {
		return []models.Email{}, nil
	}

	variants := make([]string, 0, len(subjectPrefixes)+1)
	variants = append(variants, normalizedSubject)
	for _, prefix := range subjectPrefixes {
		variants = append(variants, prefix+normalizedSubject)
	}

	base := `SELECT * FROM emails WHERE subject IN (?)`
	args := []interface{}{variants}
	if before != nil {
		base += ` AND sent_at IS NOT NULL AND sent_at < ?`
		args = append(args, *before)
	}
	base += ` ORDER BY ` + orderOldestFirst

	query, inArgs, err := sqlx.In(base, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to build subject query: %w", err)
	}

	return s.selectEmails(ctx, s.db.Rebind(query), inArgs...)
}

// ListBySender returns the sender's most recent outgoing mail, bounded
// by limit. Used for the stylometric window.
func (s *EmailStore) ListBySender(ctx context.Context, sender string, limit int) ([]models.Email, error) {
	query := s.db.Rebind(
		`SELECT * FROM emails WHERE sender = ? ORDER BY ` + orderRecentFirst + ` LIMIT ?`)
	return s.selectEmails(ctx, query, sender, limit)
}

// ListAll streams every record oldest-first; used by index reconciliation.
func (s *EmailStore) ListAll(ctx context.Context) ([]models.Email, error) {
	return s.selectEmails(ctx, `SELECT * FROM emails ORDER BY `+orderOldestFirst)
}

// Delete removes a record by internal id.
func (s *EmailStore) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM emails WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete email: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *EmailStore) selectEmails(ctx context.Context, query string, args ...interface{}) ([]models.Email, error) {
	var rows []emailRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query emails: %w", err)
	}

	emails := make([]models.Email, 0, len(rows))
	for _, row := range rows {
		emails = append(emails, row.toModel())
	}
	return emails, nil
}
