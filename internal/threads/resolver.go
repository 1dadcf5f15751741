// Package threads reconstructs the conversation an email belongs to,
// preferring explicit reference headers over subject matching.
package threads

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"stylomail/internal/models"
)

// threadStore is the slice of the email store the resolver needs.
type threadStore interface {
	FindByReferences(ctx context.Context, ids []string) ([]models.Email, error)
	FindBySubjectVariants(ctx context.Context, normalizedSubject string, before *time.Time) ([]models.Email, error)
}

// Resolver reconstructs threads from stored mail.
type Resolver struct {
	store threadStore
}

// NewResolver creates a thread resolver over the given store.
func NewResolver(store threadStore) *Resolver {
	return &Resolver{store: store}
}

// NormalizeSubject strips every leading reply/forward marker, however
// many are stacked. Normalizing an already normalized subject returns
// it unchanged.
func NormalizeSubject(subject string) string {
	s := strings.TrimSpace(subject)
	for {
		lower := strings.ToLower(s)
		stripped := false
		for _, prefix := range []string{"re:", "fw:", "fwd:"} {
			if strings.HasPrefix(lower, prefix) {
				s = strings.TrimSpace(s[len(prefix):])
				stripped = true
				break
			}
		}
		if !stripped {
			return s
		}
	}
}

// Resolve returns the prior emails in the given email's thread, oldest
// first, excluding the email itself. Reference headers are the primary
// signal; when they yield nothing the resolver falls back to subject
// matching bounded strictly before the email's send time. An email with
// neither references nor a usable subject gets an empty thread.
func (r *Resolver) Resolve(ctx context.Context, email *models.Email) ([]models.Email, error) {
	refs := referenceChain(email)
	if len(refs) > 0 {
		thread, err := r.store.FindByReferences(ctx, refs)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve thread by references: %w", err)
		}
		if len(thread) > 0 {
			return orderThread(thread, refs), nil
		}
	}

	normalized := NormalizeSubject(email.Subject)
	if normalized == "" {
		return []models.Email{}, nil
	}

	thread, err := r.store.FindBySubjectVariants(ctx, normalized, email.SentAt)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve thread by subject: %w", err)
	}

	// The time bound excludes the email itself when it is dated; an
	// undated email needs an explicit identity check.
	filtered := make([]models.Email, 0, len(thread))
	for _, candidate := range thread {
		if candidate.MessageID == email.MessageID {
			continue
		}
		filtered = append(filtered, candidate)
	}
	return filtered, nil
}

// referenceChain merges the references header with the parent id,
// oldest first, without duplicates. The parent goes last since it is
// the most recent ancestor.
func referenceChain(email *models.Email) []string {
	seen := make(map[string]struct{}, len(email.References)+1)
	chain := make([]string, 0, len(email.References)+1)
	for _, ref := range email.References {
		if ref == "" {
			continue
		}
		if _, ok := seen[ref]; ok {
			continue
		}
		seen[ref] = struct{}{}
		chain = append(chain, ref)
	}
	if email.ParentMessageID != nil && *email.ParentMessageID != "" {
		if _, ok := seen[*email.ParentMessageID]; !ok {
			chain = append(chain, *email.ParentMessageID)
		}
	}
	return chain
}

// orderThread arranges resolved emails in reference-chain order, then
// lets send times take over where both sides are dated. Undated emails
// keep their chain position.
func orderThread(thread []models.Email, refs []string) []models.Email {
	position := make(map[string]int, len(refs))
	for i, ref := range refs {
		position[ref] = i
	}

	sort.SliceStable(thread, func(i, j int) bool {
		return position[thread[i].MessageID] < position[thread[j].MessageID]
	})
	sort.SliceStable(thread, func(i, j int) bool {
		if thread[i].SentAt == nil || thread[j].SentAt == nil {
			return false
		}
		return thread[i].SentAt.Before(*thread[j].SentAt)
	})
	return thread
}
