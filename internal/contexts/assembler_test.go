package contexts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stylomail/internal/cache"
	"stylomail/internal/models"
	"stylomail/internal/stylometry"
)

type fakeStore struct {
	conversation []models.Email
	bySender     []models.Email
	convErr      error
	listErr      error

	convSender   string
	convReceiver string
	listCalls    int
}

func (f *fakeStore) FindConversation(_ context.Context, sender, receiver string, _ int, _ bool) ([]models.Email, error) {
	f.convSender = sender
	f.convReceiver = receiver
	return f.conversation, f.convErr
}

func (f *fakeStore) ListBySender(_ context.Context, _ string, _ int) ([]models.Email, error) {
	f.listCalls++
	return f.bySender, f.listErr
}

type fakeSearcher struct {
	results []models.SimilarEmail
	err     error
	sender  string
}

func (f *fakeSearcher) SimilarTo(_ context.Context, _, sender string, _ int) ([]models.SimilarEmail, error) {
	f.sender = sender
	return f.results, f.err
}

type fakeResolver struct {
	thread []models.Email
	err    error
}

func (f *fakeResolver) Resolve(_ context.Context, _ *models.Email) ([]models.Email, error) {
	return f.thread, f.err
}

type fakeTagger struct {
	result *stylometry.TagResult
	err    error
	calls  int
}

func (f *fakeTagger) Tag(_ context.Context, _ []string) (*stylometry.TagResult, error) {
	f.calls++
	return f.result, f.err
}

func defaultOptions() Options {
	return Options{
		RecentLimit:   3,
		SimilarLimit:  5,
		ProfileWindow: 100,
		ProfileTopN:   5,
		ProfileTTL:    time.Minute,
	}
}

func incomingEmail() *models.Email {
	return &models.Email{
		MessageID: "<incoming@x>",
		Sender:    "customer@example.com",
		Receiver:  "me@example.com",
		Subject:   "Re: Invoice 42",
		Content:   "Could you resend the invoice?",
	}
}

func TestAssemble_FullContext(t *testing.T) {
	store := &fakeStore{
		conversation: []models.Email{{Content: "my last reply"}},
		bySender:     []models.Email{{Content: "outgoing one"}, {Content: "outgoing two"}},
	}
	searcher := &fakeSearcher{
		results: []models.SimilarEmail{{Key: "<old@x>", Content: "similar mail", Distance: 0.2}},
	}
	resolver := &fakeResolver{thread: []models.Email{{Content: "thread opener"}}}
	tagger := &fakeTagger{result: &stylometry.TagResult{Verbs: []string{"send", "send", "check"}}}

	assembler := NewAssembler(store, searcher, resolver, tagger, cache.New(), defaultOptions())

	rc, err := assembler.Assemble(context.Background(), incomingEmail(), "me@example.com")

	require.NoError(t, err)
	assert.Equal(t, "customer@example.com", rc.Sender)
	assert.Equal(t, "me@example.com", rc.Receiver)
	assert.Equal(t, []string{"my last reply"}, rc.RecentEmails)
	assert.Equal(t, []string{"thread opener"}, rc.ThreadEmails)
	require.Len(t, rc.SimilarMails, 1)
	assert.Equal(t, "<old@x>", rc.SimilarMails[0].Key)
	assert.Equal(t, []string{"send", "check"}, rc.Profile.Verbs)
	assert.Empty(t, rc.Warnings)

	// retrieval is scoped to the reply author's outgoing mail
	assert.Equal(t, "me@example.com", store.convSender)
	assert.Equal(t, "customer@example.com", store.convReceiver)
	assert.Equal(t, "me@example.com", searcher.sender)
}

func TestAssemble_EmptyStateYieldsEmptyBlocks(t *testing.T) {
	store := &fakeStore{}
	assembler := NewAssembler(store, &fakeSearcher{}, &fakeResolver{}, &fakeTagger{result: &stylometry.TagResult{}}, cache.New(), defaultOptions())

	rc, err := assembler.Assemble(context.Background(), incomingEmail(), "me@example.com")

	require.NoError(t, err)
	assert.Empty(t, rc.RecentEmails)
	assert.Empty(t, rc.ThreadEmails)
	assert.Empty(t, rc.SimilarMails)
	assert.True(t, rc.Profile.Empty())
	assert.Empty(t, rc.Warnings)
}

func TestAssemble_FailingSourceWarnsInsteadOfFailing(t *testing.T) {
	store := &fakeStore{convErr: errors.New("db down")}
	searcher := &fakeSearcher{err: errors.New("index down")}
	assembler := NewAssembler(store, searcher, &fakeResolver{}, nil, nil, defaultOptions())

	rc, err := assembler.Assemble(context.Background(), incomingEmail(), "me@example.com")

	require.NoError(t, err)
	assert.Empty(t, rc.RecentEmails)
	assert.Empty(t, rc.SimilarMails)
	require.Len(t, rc.Warnings, 2)
	assert.Contains(t, rc.Warnings[0], "db down")
	assert.Contains(t, rc.Warnings[1], "index down")
}

func TestAssemble_ProfileIsCached(t *testing.T) {
	store := &fakeStore{bySender: []models.Email{{Content: "some mail"}}}
	tagger := &fakeTagger{result: &stylometry.TagResult{Verbs: []string{"write"}}}
	assembler := NewAssembler(store, nil, nil, tagger, cache.New(), defaultOptions())

	_, err := assembler.Assemble(context.Background(), incomingEmail(), "me@example.com")
	require.NoError(t, err)
	_, err = assembler.Assemble(context.Background(), incomingEmail(), "me@example.com")
	require.NoError(t, err)

	assert.Equal(t, 1, tagger.calls)
	assert.Equal(t, 1, store.listCalls)
}

func TestAssemble_NilSourcesDisableBlocks(t *testing.T) {
	store := &fakeStore{conversation: []models.Email{{Content: "reply"}}}
	assembler := NewAssembler(store, nil, nil, nil, nil, defaultOptions())

	rc, err := assembler.Assemble(context.Background(), incomingEmail(), "me@example.com")

	require.NoError(t, err)
	assert.Equal(t, []string{"reply"}, rc.RecentEmails)
	assert.Empty(t, rc.ThreadEmails)
	assert.Empty(t, rc.SimilarMails)
	assert.True(t, rc.Profile.Empty())
}
