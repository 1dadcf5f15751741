// Package contexts gathers everything the reply generator needs to
// write in someone's voice: recent correspondence, the surrounding
// thread, semantically similar past mail and a stylometric profile.
package contexts

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"stylomail/internal/cache"
	"stylomail/internal/models"
	"stylomail/internal/stylometry"
)

// conversationStore is the slice of the email store the assembler needs.
type conversationStore interface {
	FindConversation(ctx context.Context, sender, receiver string, limit int, bidirectional bool) ([]models.Email, error)
	ListBySender(ctx context.Context, sender string, limit int) ([]models.Email, error)
}

// similaritySearcher finds semantically similar past mail.
type similaritySearcher interface {
	SimilarTo(ctx context.Context, text, sender string, limit int) ([]models.SimilarEmail, error)
}

// threadResolver reconstructs the thread an email belongs to.
type threadResolver interface {
	Resolve(ctx context.Context, email *models.Email) ([]models.Email, error)
}

// Options tune how much context each block contributes.
type Options struct {
	RecentLimit   int
	SimilarLimit  int
	ProfileWindow int
	ProfileTopN   int
	ProfileTTL    time.Duration
	Bidirectional bool
}

// Assembler builds a ReplyContext from the store, the vector index and
// the stylometry pipeline. Sub-retrievals are best effort: one failing
// source leaves its block empty and adds a warning instead of failing
// the whole assembly.
type Assembler struct {
	store    conversationStore
	searcher similaritySearcher
	threads  threadResolver
	tagger   stylometry.Tagger
	profiles *cache.Cache
	opts     Options
}

// NewAssembler wires the context sources together. searcher, threads
// and tagger may each be nil, which disables that block.
func NewAssembler(store conversationStore, searcher similaritySearcher, threads threadResolver, tagger stylometry.Tagger, profiles *cache.Cache, opts Options) *Assembler {
	return &Assembler{
		store:    store,
		searcher: searcher,
		threads:  threads,
		tagger:   tagger,
		profiles: profiles,
		opts:     opts,
	}
}

// Assemble builds the reply context for answering the given incoming
// email. The email's Sender is the counterparty; receiver is the
// address whose voice the reply should carry. All retrieval is scoped
// to receiver's outgoing mail, so the context reflects how receiver
// writes, not how their correspondents do.
func (a *Assembler) Assemble(ctx context.Context, incoming *models.Email, receiver string) (*models.ReplyContext, error) {
	rc := &models.ReplyContext{
		Sender:       incoming.Sender,
		Receiver:     receiver,
		Content:      incoming.Content,
		RecentEmails: []string{},
		ThreadEmails: []string{},
		SimilarMails: []models.SimilarEmail{},
	}

	recent, err := a.store.FindConversation(ctx, receiver, incoming.Sender, a.opts.RecentLimit, a.opts.Bidirectional)
	if err != nil {
		a.warn(rc, "recent correspondence unavailable", err)
	} else {
		for _, email := range recent {
			rc.RecentEmails = append(rc.RecentEmails, email.Content)
		}
	}

	if a.threads != nil {
		thread, err := a.threads.Resolve(ctx, incoming)
		if err != nil {
			a.warn(rc, "thread reconstruction unavailable", err)
		} else {
			for _, email := range thread {
				rc.ThreadEmails = append(rc.ThreadEmails, email.Content)
			}
		}
	}

	if a.searcher != nil {
		similar, err := a.searcher.SimilarTo(ctx, incoming.Content, receiver, a.opts.SimilarLimit)
		if err != nil {
			a.warn(rc, "similarity search unavailable", err)
		} else {
			rc.SimilarMails = similar
		}
	}

	if a.tagger != nil {
		profile, err := a.profileFor(ctx, receiver)
		if err != nil {
			a.warn(rc, "stylometric profile unavailable", err)
		} else {
			rc.Profile = profile
		}
	}

	return rc, nil
}

// profileFor computes the receiver's stylometric profile over their
// recent outgoing mail, caching the result.
func (a *Assembler) profileFor(ctx context.Context, receiver string) (models.StylometricProfile, error) {
	cacheKey := "profile:" + receiver
	if a.profiles != nil {
		if cached, ok := a.profiles.Get(cacheKey); ok {
			if profile, ok := cached.(models.StylometricProfile); ok {
				return profile, nil
			}
		}
	}

	window, err := a.store.ListBySender(ctx, receiver, a.opts.ProfileWindow)
	if err != nil {
		return models.StylometricProfile{}, fmt.Errorf("failed to load profile window: %w", err)
	}
	if len(window) == 0 {
		return models.StylometricProfile{}, nil
	}

	texts := make([]string, len(window))
	for i, email := range window {
		texts[i] = email.Content
	}

	tags, err := a.tagger.Tag(ctx, texts)
	if err != nil {
		return models.StylometricProfile{}, fmt.Errorf("failed to tag profile window: %w", err)
	}

	profile := stylometry.BuildProfile(tags, a.opts.ProfileTopN)
	if a.profiles != nil {
		a.profiles.Set(cacheKey, profile, a.opts.ProfileTTL)
	}
	return profile, nil
}

func (a *Assembler) warn(rc *models.ReplyContext, message string, err error) {
	log.Warn().Err(err).Str("receiver", rc.Receiver).Msg(message)
	rc.Warnings = append(rc.Warnings, fmt.Sprintf("%s: %v", message, err))
}
