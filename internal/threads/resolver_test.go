package threads

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stylomail/internal/models"
)

type fakeThreadStore struct {
	byReferences []models.Email
	bySubject    []models.Email

	refsQueried    []string
	subjectQueried string
	beforeQueried  *time.Time
}

func (f *fakeThreadStore) FindByReferences(_ context.Context, ids []string) ([]models.Email, error) {
	f.refsQueried = ids
	return f.byReferences, nil
}

func (f *fakeThreadStore) FindBySubjectVariants(_ context.Context, normalizedSubject string, before *time.Time) ([]models.Email, error) {
	f.subjectQueried = normalizedSubject
	f.beforeQueried = before
	return f.bySubject, nil
}

func datedEmail(messageID string, sentAt time.Time) models.Email {
	return models.Email{MessageID: messageID, SentAt: &sentAt}
}

func TestNormalizeSubject(t *testing.T) {
	tests := []struct {
		name     string
		subject  string
		expected string
	}{
		{"plain subject", "Project update", "Project update"},
		{"single reply marker", "Re: Project update", "Project update"},
		{"stacked markers", "Re: RE: re: Project update", "Project update"},
		{"forward markers", "Fwd: FW: Project update", "Project update"},
		{"mixed markers", "Re: Fwd: Re: Project update", "Project update"},
		{"surrounding whitespace", "  Re:   Project update  ", "Project update"},
		{"marker only", "Re:", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeSubject(tt.subject))
		})
	}
}

func TestNormalizeSubject_Idempotent(t *testing.T) {
	subjects := []string{"Re: Re: hello", "Fwd: budget", "plain", "Re:"}
	for _, subject := range subjects {
		once := NormalizeSubject(subject)
		assert.Equal(t, once, NormalizeSubject(once))
	}
}

func TestResolve_ReferencesAreChronological(t *testing.T) {
	t1 := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	t3 := t2.Add(time.Hour)

	store := &fakeThreadStore{
		// store returns them out of order on purpose
		byReferences: []models.Email{
			datedEmail("<m3@x>", t3),
			datedEmail("<m1@x>", t1),
			datedEmail("<m2@x>", t2),
		},
	}
	resolver := NewResolver(store)

	parent := "<m3@x>"
	email := &models.Email{
		MessageID:       "<m4@x>",
		ParentMessageID: &parent,
		References:      []string{"<m1@x>", "<m2@x>", "<m3@x>"},
	}

	thread, err := resolver.Resolve(context.Background(), email)

	require.NoError(t, err)
	require.Len(t, thread, 3)
	assert.Equal(t, "<m1@x>", thread[0].MessageID)
	assert.Equal(t, "<m2@x>", thread[1].MessageID)
	assert.Equal(t, "<m3@x>", thread[2].MessageID)
	assert.Equal(t, []string{"<m1@x>", "<m2@x>", "<m3@x>"}, store.refsQueried)
}

func TestResolve_UndatedKeepsChainOrder(t *testing.T) {
	store := &fakeThreadStore{
		byReferences: []models.Email{
			{MessageID: "<m2@x>"},
			{MessageID: "<m1@x>"},
		},
	}
	resolver := NewResolver(store)

	email := &models.Email{
		MessageID:  "<m3@x>",
		References: []string{"<m1@x>", "<m2@x>"},
	}

	thread, err := resolver.Resolve(context.Background(), email)

	require.NoError(t, err)
	require.Len(t, thread, 2)
	assert.Equal(t, "<m1@x>", thread[0].MessageID)
	assert.Equal(t, "<m2@x>", thread[1].MessageID)
}

func TestResolve_ParentOnlyFallsIntoChain(t *testing.T) {
	store := &fakeThreadStore{
		byReferences: []models.Email{{MessageID: "<parent@x>"}},
	}
	resolver := NewResolver(store)

	parent := "<parent@x>"
	email := &models.Email{MessageID: "<m@x>", ParentMessageID: &parent}

	thread, err := resolver.Resolve(context.Background(), email)

	require.NoError(t, err)
	require.Len(t, thread, 1)
	assert.Equal(t, []string{"<parent@x>"}, store.refsQueried)
}

func TestResolve_SubjectFallbackWhenReferencesMissFromStore(t *testing.T) {
	sentAt := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	store := &fakeThreadStore{
		byReferences: nil, // referenced mail never ingested
		bySubject: []models.Email{
			datedEmail("<earlier@x>", sentAt.Add(-time.Hour)),
		},
	}
	resolver := NewResolver(store)

	email := &models.Email{
		MessageID:  "<m@x>",
		Subject:    "Re: Re: Budget review",
		References: []string{"<ghost@x>"},
		SentAt:     &sentAt,
	}

	thread, err := resolver.Resolve(context.Background(), email)

	require.NoError(t, err)
	require.Len(t, thread, 1)
	assert.Equal(t, "Budget review", store.subjectQueried)
	require.NotNil(t, store.beforeQueried)
	assert.True(t, store.beforeQueried.Equal(sentAt))
}

func TestResolve_SubjectFallbackExcludesSelf(t *testing.T) {
	store := &fakeThreadStore{
		bySubject: []models.Email{
			{MessageID: "<self@x>", Subject: "Budget review"},
			{MessageID: "<other@x>", Subject: "Budget review"},
		},
	}
	resolver := NewResolver(store)

	email := &models.Email{MessageID: "<self@x>", Subject: "Budget review"}

	thread, err := resolver.Resolve(context.Background(), email)

	require.NoError(t, err)
	require.Len(t, thread, 1)
	assert.Equal(t, "<other@x>", thread[0].MessageID)
}

func TestResolve_NoSignalsYieldsEmptyThread(t *testing.T) {
	store := &fakeThreadStore{}
	resolver := NewResolver(store)

	thread, err := resolver.Resolve(context.Background(), &models.Email{MessageID: "<m@x>", Subject: "Re:"})

	require.NoError(t, err)
	assert.Empty(t, thread)
	assert.Empty(t, store.subjectQueried)
}
