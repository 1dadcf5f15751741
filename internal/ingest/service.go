// Package ingest runs the email ingestion pipeline: parse, store,
// embed, index. The store is the source of truth; index writes are
// best effort and reported rather than rolled back.
package ingest

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"stylomail/internal/emails"
	"stylomail/internal/embeddings"
	"stylomail/internal/models"
)

// embedBatchSize bounds texts per embedding API call.
const embedBatchSize = 100

type ingestStore interface {
	Insert(ctx context.Context, email *models.Email) (int64, bool, error)
	ListAll(ctx context.Context) ([]models.Email, error)
}

type passageEmbedder interface {
	EmbedPassages(ctx context.Context, texts []string) ([][]float32, error)
}

type vectorWriter interface {
	UpsertBatch(ctx context.Context, entries []embeddings.IndexEntry) []string
}

// Service is the ingestion pipeline.
type Service struct {
	store    ingestStore
	embedder passageEmbedder
	index    vectorWriter
}

// NewService wires the pipeline. embedder and index may be nil
// together, which makes ingestion store-only.
func NewService(store ingestStore, embedder passageEmbedder, index vectorWriter) *Service {
	return &Service{
		store:    store,
		embedder: embedder,
		index:    index,
	}
}

// Ingest stores a batch oldest-first and indexes the newly inserted
// records. Each row is tallied as inserted, skipped or failed; an
// index write failure puts the email in IndexFailed but never undoes
// its store insert.
func (s *Service) Ingest(ctx context.Context, batch []*models.Email) models.BatchReport {
	emails.SortByDate(batch)

	var report models.BatchReport
	var inserted []*models.Email

	for _, email := range batch {
		if email.MessageID == "" {
			report.Add("", models.RowSkipped, "missing message id")
			continue
		}

		_, wasInserted, err := s.store.Insert(ctx, email)
		switch {
		case err != nil:
			report.Add(email.MessageID, models.RowFailed, err.Error())
		case wasInserted:
			report.Add(email.MessageID, models.RowInserted, "")
			inserted = append(inserted, email)
		default:
			report.Add(email.MessageID, models.RowSkipped, "duplicate message_id")
		}
	}

	if s.embedder != nil && s.index != nil && len(inserted) > 0 {
		report.IndexFailed = s.indexEmails(ctx, inserted)
	}

	log.Info().
		Int("inserted", report.Inserted).
		Int("skipped", report.Skipped).
		Int("failed", report.Failed).
		Int("index_failed", len(report.IndexFailed)).
		Msg("ingestion batch complete")

	return report
}

// indexEmails embeds and upserts in chunks so one failing chunk does
// not strand the rest. Returns the message ids that never made it into
// the index.
func (s *Service) indexEmails(ctx context.Context, batch []*models.Email) []string {
	var failed []string

	for i := 0; i < len(batch); i += embedBatchSize {
		end := i + embedBatchSize
		if end > len(batch) {
			end = len(batch)
		}
		chunk := batch[i:end]

		texts := make([]string, len(chunk))
		for j, email := range chunk {
			texts[j] = email.Content
		}

		vectors, err := s.embedder.EmbedPassages(ctx, texts)
		if err != nil {
			log.Warn().Err(err).Int("count", len(chunk)).Msg("failed to embed chunk, store inserts kept")
			for _, email := range chunk {
				failed = append(failed, email.MessageID)
			}
			continue
		}

		entries := make([]embeddings.IndexEntry, len(chunk))
		for j, email := range chunk {
			entries[j] = embeddings.IndexEntry{
				ID:        email.ID,
				MessageID: email.MessageID,
				Sender:    email.Sender,
				Content:   email.Content,
				Vector:    vectors[j],
			}
		}

		failed = append(failed, s.index.UpsertBatch(ctx, entries)...)
	}

	return failed
}

// IngestFile parses one .eml, .mbox or flat text file and ingests its
// contents.
func (s *Service) IngestFile(ctx context.Context, path string) (models.BatchReport, error) {
	batch, err := emails.ParseAnyFile(path)
	if err != nil {
		return models.BatchReport{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return s.Ingest(ctx, batch), nil
}

// IngestDirectory walks a directory of email files and ingests
// everything parseable. Unparseable files are counted as failures
// without stopping the walk.
func (s *Service) IngestDirectory(ctx context.Context, dir string) (models.BatchReport, error) {
	batch, parseErrors := emails.ParseDirectory(dir)
	if len(batch) == 0 && len(parseErrors) > 0 {
		return models.BatchReport{}, fmt.Errorf("no parseable emails in %s: %d files failed", dir, len(parseErrors))
	}

	report := s.Ingest(ctx, batch)
	for _, parseErr := range parseErrors {
		report.Add("", models.RowFailed, parseErr.Error())
	}
	return report, nil
}

// Reconcile re-embeds and re-upserts every stored email. Point ids are
// the store's internal ids, so reconciliation overwrites stale points
// instead of duplicating them.
func (s *Service) Reconcile(ctx context.Context) (int, []string, error) {
	if s.embedder == nil || s.index == nil {
		return 0, nil, fmt.Errorf("vector index not configured")
	}

	stored, err := s.store.ListAll(ctx)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to list stored emails: %w", err)
	}

	batch := make([]*models.Email, len(stored))
	for i := range stored {
		batch[i] = &stored[i]
	}

	failed := s.indexEmails(ctx, batch)
	return len(batch), failed, nil
}
