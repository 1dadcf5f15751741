package emails

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stylomail/internal/models"
)

const simpleEML = "Message-ID: <m1@example.com>\r\n" +
	"From: Alice Smith <Alice@Example.com>\r\n" +
	"To: Bob Jones <bob@example.com>\r\n" +
	"Subject: Quarterly numbers\r\n" +
	"Date: Mon, 04 Mar 2024 10:30:00 +0200\r\n" +
	"\r\n" +
	"Please find the figures attached.\r\n"

func TestParseMessage_SimpleEML(t *testing.T) {
	email, err := ParseMessage(strings.NewReader(simpleEML))

	require.NoError(t, err)
	assert.Equal(t, "m1@example.com", email.MessageID)
	assert.Equal(t, "alice@example.com", email.Sender)
	assert.Equal(t, "bob@example.com", email.Receiver)
	assert.Equal(t, "Quarterly numbers", email.Subject)
	assert.Equal(t, "Please find the figures attached.", email.Content)
	require.NotNil(t, email.SentAt)
	assert.Equal(t, time.UTC, email.SentAt.Location())
	assert.Equal(t, 8, email.SentAt.Hour()) // 10:30 +0200 is 08:30 UTC
	assert.Nil(t, email.ParentMessageID)
	assert.Empty(t, email.References)
}

func TestParseMessage_MissingMessageID(t *testing.T) {
	raw := "From: a@x.com\r\nTo: b@x.com\r\nSubject: no id\r\n\r\nbody\r\n"

	_, err := ParseMessage(strings.NewReader(raw))
	assert.ErrorIs(t, err, ErrMissingMessageID)
}

func TestParseMessage_ReplyHeaders(t *testing.T) {
	raw := "Message-ID: <m3@x.com>\r\n" +
		"From: a@x.com\r\n" +
		"To: b@x.com\r\n" +
		"Subject: Re: thread\r\n" +
		"In-Reply-To: <m2@x.com>\r\n" +
		"References: <m1@x.com> <m2@x.com>\r\n" +
		"\r\n" +
		"reply body\r\n"

	email, err := ParseMessage(strings.NewReader(raw))

	require.NoError(t, err)
	require.NotNil(t, email.ParentMessageID)
	assert.Equal(t, "m2@x.com", *email.ParentMessageID)
	assert.Equal(t, []string{"m1@x.com", "m2@x.com"}, email.References)
}

func TestParseMessage_ParentFallsBackToLastReference(t *testing.T) {
	raw := "Message-ID: <m3@x.com>\r\n" +
		"From: a@x.com\r\n" +
		"To: b@x.com\r\n" +
		"References: <m1@x.com> <m2@x.com>\r\n" +
		"\r\n" +
		"body\r\n"

	email, err := ParseMessage(strings.NewReader(raw))

	require.NoError(t, err)
	require.NotNil(t, email.ParentMessageID)
	assert.Equal(t, "m2@x.com", *email.ParentMessageID)
}

func TestParseMessage_UnparseableDateStaysNil(t *testing.T) {
	raw := "Message-ID: <m1@x.com>\r\n" +
		"From: a@x.com\r\n" +
		"To: b@x.com\r\n" +
		"Date: not a date\r\n" +
		"\r\n" +
		"body\r\n"

	email, err := ParseMessage(strings.NewReader(raw))

	require.NoError(t, err)
	assert.Nil(t, email.SentAt)
}

func TestParseMessage_MultiRecipientKeepsFirst(t *testing.T) {
	raw := "Message-ID: <m1@x.com>\r\n" +
		"From: a@x.com\r\n" +
		"To: First <first@x.com>, Second <second@x.com>\r\n" +
		"\r\n" +
		"body\r\n"

	email, err := ParseMessage(strings.NewReader(raw))

	require.NoError(t, err)
	assert.Equal(t, "first@x.com", email.Receiver)
}

func TestParseMessage_QuotedPrintableBody(t *testing.T) {
	raw := "Message-ID: <m1@x.com>\r\n" +
		"From: a@x.com\r\n" +
		"To: b@x.com\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"Content-Transfer-Encoding: quoted-printable\r\n" +
		"\r\n" +
		"Caf=C3=A9 meeting at noon\r\n"

	email, err := ParseMessage(strings.NewReader(raw))

	require.NoError(t, err)
	assert.Equal(t, "Café meeting at noon", email.Content)
}

func TestParseMessage_MultipartPrefersPlainText(t *testing.T) {
	raw := "Message-ID: <m1@x.com>\r\n" +
		"From: a@x.com\r\n" +
		"To: b@x.com\r\n" +
		"Content-Type: multipart/alternative; boundary=\"sep\"\r\n" +
		"\r\n" +
		"--sep\r\n" +
		"Content-Type: text/plain\r\n" +
		"\r\n" +
		"plain version\r\n" +
		"--sep\r\n" +
		"Content-Type: text/html\r\n" +
		"\r\n" +
		"<p>html version</p>\r\n" +
		"--sep--\r\n"

	email, err := ParseMessage(strings.NewReader(raw))

	require.NoError(t, err)
	assert.Equal(t, "plain version", email.Content)
}

func TestParseMessage_HTMLOnlyKeptVerbatim(t *testing.T) {
	raw := "Message-ID: <m1@x.com>\r\n" +
		"From: a@x.com\r\n" +
		"To: b@x.com\r\n" +
		"Content-Type: multipart/alternative; boundary=\"sep\"\r\n" +
		"\r\n" +
		"--sep\r\n" +
		"Content-Type: text/html\r\n" +
		"\r\n" +
		"<p>only html</p>\r\n" +
		"--sep--\r\n"

	email, err := ParseMessage(strings.NewReader(raw))

	require.NoError(t, err)
	assert.Equal(t, "<p>only html</p>", email.Content)
}

func TestParseFlatMessage(t *testing.T) {
	raw := "Message-ID: <flat1@corpus>\n" +
		"Date: Mon, 04 Mar 2024 10:30:00 -0800\n" +
		"From: phillip.allen@enron.com\n" +
		"To: tim.belden@enron.com\n" +
		"Subject: Re: forecast\n" +
		"\n" +
		"Here is our forecast.\n"

	email, err := ParseFlatMessage(strings.NewReader(raw))

	require.NoError(t, err)
	assert.Equal(t, "flat1@corpus", email.MessageID)
	assert.Equal(t, "phillip.allen@enron.com", email.Sender)
	assert.Equal(t, "tim.belden@enron.com", email.Receiver)
	assert.Equal(t, "Re: forecast", email.Subject)
	assert.Equal(t, "Here is our forecast.", email.Content)
}

func TestSortByDate(t *testing.T) {
	t1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)

	batch := []*models.Email{
		{MessageID: "undated"},
		{MessageID: "later", SentAt: &t2},
		{MessageID: "earlier", SentAt: &t1},
	}

	SortByDate(batch)

	assert.Equal(t, "earlier", batch[0].MessageID)
	assert.Equal(t, "later", batch[1].MessageID)
	assert.Equal(t, "undated", batch[2].MessageID)
}

func TestParseMBOXFile(t *testing.T) {
	mbox := "From alice@example.com Mon Mar  4 10:30:00 2024\n" +
		"Message-ID: <mb1@x.com>\n" +
		"From: alice@example.com\n" +
		"To: bob@example.com\n" +
		"Subject: first\n" +
		"\n" +
		"first body\n" +
		"\n" +
		"From bob@example.com Mon Mar  4 11:00:00 2024\n" +
		"Message-ID: <mb2@x.com>\n" +
		"From: bob@example.com\n" +
		"To: alice@example.com\n" +
		"Subject: second\n" +
		"\n" +
		"second body\n"

	path := filepath.Join(t.TempDir(), "test.mbox")
	require.NoError(t, os.WriteFile(path, []byte(mbox), 0o644))

	batch, err := ParseMBOXFile(path)

	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, "mb1@x.com", batch[0].MessageID)
	assert.Equal(t, "first body", batch[0].Content)
	assert.Equal(t, "mb2@x.com", batch[1].MessageID)
}

func TestParseDirectory_CollectsFailures(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "good.eml"), []byte(simpleEML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "noid.eml"), []byte("From: a@x.com\r\n\r\nbody\r\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignored.txt"), []byte("not an eml"), 0o644))

	batch, failures := ParseDirectory(dir)

	require.Len(t, batch, 1)
	assert.Equal(t, "m1@example.com", batch[0].MessageID)
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0].Error(), "noid.eml")
}

func TestParseAnyFile_UnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "emails.csv")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	_, err := ParseAnyFile(path)
	assert.Error(t, err)
}
