package emails

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"stylomail/internal/models"
)

// ErrMissingMessageID marks input with no parseable message identity.
// Such records are rejected permanently: not stored, not embedded.
var ErrMissingMessageID = errors.New("email has no message id")

// ParseEMLFile parses a single EML file into a canonical record
func ParseEMLFile(filename string) (*models.Email, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open EML file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			fmt.Printf("Warning: Error closing file: %v\n", err)
		}
	}()

	return ParseMessage(file)
}

// ParseMessage parses one RFC 822 message from a reader.
// Pure parse: no I/O beyond the reader, no storage side effects.
func ParseMessage(r io.Reader) (*models.Email, error) {
	msg, err := mail.ReadMessage(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read email message: %w", err)
	}
	return fromHeaderAndBody(headerGetter(msg.Header.Get), msg)
}

// ParseFlatMessage parses the flat bulk-corpus format: a standard
// key-value header block, a blank line, then the body. Headers are
// scanned by name, never by line position.
func ParseFlatMessage(r io.Reader) (*models.Email, error) {
	// The flat corpus is close enough to RFC 822 that net/mail handles
	// the header block; it only lacks MIME structure.
	msg, err := mail.ReadMessage(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read flat message: %w", err)
	}

	email, err := fromHeader(headerGetter(msg.Header.Get))
	if err != nil {
		return nil, err
	}

	body, err := io.ReadAll(msg.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read flat body: %w", err)
	}
	email.Content = strings.TrimSpace(string(body))
	return email, nil
}

type headerGetter func(key string) string

// fromHeader builds a record from headers only; the body is filled by the caller.
func fromHeader(get headerGetter) (*models.Email, error) {
	messageID := cleanMessageID(get("Message-ID"))
	if messageID == "" {
		return nil, ErrMissingMessageID
	}

	email := &models.Email{
		MessageID: messageID,
		Subject:   decodeHeader(get("Subject")),
		Sender:    extractAddress(get("From")),
		Receiver:  extractAddress(get("To")),
	}

	if refs := get("References"); refs != "" {
		for _, ref := range strings.Fields(refs) {
			if id := cleanMessageID(ref); id != "" {
				email.References = append(email.References, id)
			}
		}
	}

	// In-Reply-To wins; otherwise the last reference is the parent.
	if inReplyTo := cleanMessageID(get("In-Reply-To")); inReplyTo != "" {
		email.ParentMessageID = &inReplyTo
	} else if n := len(email.References); n > 0 {
		parent := email.References[n-1]
		email.ParentMessageID = &parent
	}

	// Unparseable dates stay nil so they sort after dated records,
	// never ahead of them.
	if dateStr := get("Date"); dateStr != "" {
		if date, err := mail.ParseDate(dateStr); err == nil {
			utc := date.UTC()
			email.SentAt = &utc
		}
	}

	return email, nil
}

func fromHeaderAndBody(get headerGetter, msg *mail.Message) (*models.Email, error) {
	email, err := fromHeader(get)
	if err != nil {
		return nil, err
	}

	body, err := extractBody(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to extract body: %w", err)
	}
	email.Content = strings.TrimSpace(body)

	return email, nil
}

// extractAddress strips a display name from a "Name <addr>" header value
// and lowercases the address. Extraction failure yields "", not an error.
func extractAddress(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}

	addr, err := mail.ParseAddress(header)
	if err != nil {
		// Multi-recipient To headers: keep the first parseable address.
		if list, listErr := mail.ParseAddressList(header); listErr == nil && len(list) > 0 {
			return strings.ToLower(list[0].Address)
		}
		return ""
	}
	return strings.ToLower(addr.Address)
}

// cleanMessageID removes < and > from Message-IDs
func cleanMessageID(msgID string) string {
	msgID = strings.TrimSpace(msgID)
	msgID = strings.TrimPrefix(msgID, "<")
	msgID = strings.TrimSuffix(msgID, ">")
	return msgID
}

// decodeHeader decodes MIME encoded headers
func decodeHeader(header string) string {
	dec := new(mime.WordDecoder)
	decoded, err := dec.DecodeHeader(header)
	if err != nil {
		return header
	}
	return decoded
}

// extractBody extracts the body text from an email message
func extractBody(msg *mail.Message) (string, error) {
	contentType := msg.Header.Get("Content-Type")
	if contentType == "" {
		body, err := io.ReadAll(msg.Body)
		if err != nil {
			return "", err
		}
		return string(body), nil
	}

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		// Fallback: read as plain text
		body, err := io.ReadAll(msg.Body)
		if err != nil {
			return "", err
		}
		return string(body), nil
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		return extractMultipartBody(msg.Body, params["boundary"])
	}

	return extractSinglePartBody(msg.Body, msg.Header.Get("Content-Transfer-Encoding"))
}

// extractMultipartBody walks a multipart message preferring text/plain;
// an HTML-only message yields the HTML part verbatim.
func extractMultipartBody(body io.Reader, boundary string) (string, error) {
	mr := multipart.NewReader(body, boundary)
	var textParts []string
	var htmlParts []string

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}

		partContentType := part.Header.Get("Content-Type")
		mediaType, params, _ := mime.ParseMediaType(partContentType)
		transferEncoding := part.Header.Get("Content-Transfer-Encoding")

		switch {
		case strings.HasPrefix(mediaType, "text/plain"):
			content, err := extractSinglePartBody(part, transferEncoding)
			if err == nil {
				textParts = append(textParts, content)
			}
		case strings.HasPrefix(mediaType, "text/html"):
			content, err := extractSinglePartBody(part, transferEncoding)
			if err == nil {
				htmlParts = append(htmlParts, content)
			}
		case strings.HasPrefix(mediaType, "multipart/"):
			if nestedBoundary, ok := params["boundary"]; ok {
				nested, err := extractMultipartBody(part, nestedBoundary)
				if err == nil && nested != "" {
					textParts = append(textParts, nested)
				}
			}
		}
	}

	if len(textParts) > 0 {
		return strings.Join(textParts, "\n\n"), nil
	}
	if len(htmlParts) > 0 {
		return strings.Join(htmlParts, "\n\n"), nil
	}
	return "", nil
}

// extractSinglePartBody extracts text from a single part
func extractSinglePartBody(body io.Reader, transferEncoding string) (string, error) {
	reader := body

	switch strings.ToLower(transferEncoding) {
	case "quoted-printable":
		reader = quotedprintable.NewReader(body)
	case "base64":
		reader = base64.NewDecoder(base64.StdEncoding, body)
	}

	content, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}

	return string(content), nil
}

// ParseDirectory recursively parses all EML files in a directory.
// Per-file failures are reported per path; the walk continues.
func ParseDirectory(dirPath string) ([]*models.Email, []error) {
	var parsed []*models.Email
	var failures []error

	err := filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if !strings.HasSuffix(strings.ToLower(path), ".eml") {
			return nil
		}

		email, err := ParseEMLFile(path)
		if err != nil {
			failures = append(failures, fmt.Errorf("%s: %w", path, err))
			return nil // keep walking
		}
		parsed = append(parsed, email)
		return nil
	})
	if err != nil {
		failures = append(failures, fmt.Errorf("failed to walk directory: %w", err))
	}

	return parsed, failures
}

// MBOXProgress tracks the progress of MBOX file parsing
type MBOXProgress struct {
	BytesProcessed  int64
	TotalBytes      int64
	EmailsProcessed int
	PercentComplete float64
}

// MBOXBatchCallback is called for each batch of emails processed
type MBOXBatchCallback func(batch []*models.Email, progress MBOXProgress) error

// ParseMBOXFile parses an MBOX file and returns all emails
func ParseMBOXFile(filename string) ([]*models.Email, error) {
	var allEmails []*models.Email

	err := ParseMBOXFileStreaming(filename, 100, func(batch []*models.Email, progress MBOXProgress) error {
		allEmails = append(allEmails, batch...)
		fmt.Printf("[MBOX_PARSER] Processed batch: %d emails (total: %d, %.1f%%)\n",
			len(batch), progress.EmailsProcessed, progress.PercentComplete)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return allEmails, nil
}

// ParseMBOXFileStreaming parses an MBOX file in batches with progress
// tracking. Memory stays bounded regardless of mailbox size.
func ParseMBOXFileStreaming(filename string, batchSize int, callback MBOXBatchCallback) error {
	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to open MBOX file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			fmt.Printf("Warning: Error closing file: %v\n", err)
		}
	}()

	fileInfo, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to get file info: %w", err)
	}
	totalBytes := fileInfo.Size()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024) // 10MB max token size

	var currentBatch []*models.Email
	var currentEmail bytes.Buffer
	var emailCount int
	var bytesProcessed int64

	flush := func(final bool) error {
		if currentEmail.Len() == 0 {
			return nil
		}
		email, err := ParseMessage(&currentEmail)
		if err != nil {
			fmt.Printf("[MBOX_PARSER] Warning: Failed to parse email #%d: %v\n", emailCount+1, err)
		} else {
			currentBatch = append(currentBatch, email)
		}
		emailCount++
		currentEmail.Reset()

		if len(currentBatch) >= batchSize || (final && len(currentBatch) > 0) {
			progress := MBOXProgress{
				BytesProcessed:  bytesProcessed,
				TotalBytes:      totalBytes,
				EmailsProcessed: emailCount,
				PercentComplete: float64(bytesProcessed) / float64(totalBytes) * 100,
			}
			if err := callback(currentBatch, progress); err != nil {
				return fmt.Errorf("batch processing error at email %d: %w", emailCount, err)
			}
			currentBatch = nil
		}
		return nil
	}

	for scanner.Scan() {
		line := scanner.Text()
		bytesProcessed += int64(len(line) + 1)

		// MBOX format: each email starts with "From " (with space)
		if strings.HasPrefix(line, "From ") {
			if err := flush(false); err != nil {
				return err
			}
			continue // skip the "From " separator itself
		}

		currentEmail.WriteString(line)
		currentEmail.WriteString("\n")
	}

	if err := flush(true); err != nil {
		return err
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading MBOX file: %w", err)
	}

	fmt.Printf("[MBOX_PARSER] Complete: Processed %d emails from %s\n",
		emailCount, filepath.Base(filename))

	return nil
}

// SortByDate orders a batch timestamp-ascending so parents land before
// their replies on insert. Undated records sort last, original order kept.
func SortByDate(batch []*models.Email) {
	sort.SliceStable(batch, func(i, j int) bool {
		a, b := batch[i], batch[j]
		if a.SentAt == nil {
			return false
		}
		if b.SentAt == nil {
			return true
		}
		return a.SentAt.Before(*b.SentAt)
	})
}

// ParseAnyFile picks the parser by extension (.eml, .mbox, .txt for the
// flat corpus format).
func ParseAnyFile(path string) ([]*models.Email, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".eml":
		email, err := ParseEMLFile(path)
		if err != nil {
			return nil, err
		}
		return []*models.Email{email}, nil
	case ".mbox":
		return ParseMBOXFile(path)
	case ".txt":
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open file: %w", err)
		}
		defer func() {
			if err := file.Close(); err != nil {
				fmt.Printf("Warning: Error closing file: %v\n", err)
			}
		}()
		email, err := ParseFlatMessage(file)
		if err != nil {
			return nil, err
		}
		return []*models.Email{email}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", filepath.Ext(path))
	}
}
