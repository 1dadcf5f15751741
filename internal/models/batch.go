package models

// RowStatus classifies the outcome of a single record inside a batch.
type RowStatus string

const (
	RowInserted RowStatus = "inserted"
	RowSkipped  RowStatus = "skipped" // duplicate message_id, not an error
	RowFailed   RowStatus = "failed"
)

// RowResult is the per-record outcome of a batch ingestion. One record
// failing never aborts the batch; the caller gets the full tally.
type RowResult struct {
	MessageID string    `json:"message_id"`
	Status    RowStatus `json:"status"`
	Reason    string    `json:"reason,omitempty"`
}

// BatchReport aggregates per-row results plus index-side failures.
// IndexFailed lists message IDs whose relational write committed but
// whose embedding write did not; those need a later Reconcile.
type BatchReport struct {
	Inserted    int         `json:"inserted"`
	Skipped     int         `json:"skipped"`
	Failed      int         `json:"failed"`
	Rows        []RowResult `json:"rows"`
	IndexFailed []string    `json:"index_failed,omitempty"`
}

// Add records one row outcome and updates the tally.
func (r *BatchReport) Add(messageID string, status RowStatus, reason string) {
	r.Rows = append(r.Rows, RowResult{MessageID: messageID, Status: status, Reason: reason})
	switch status {
	case RowInserted:
		r.Inserted++
	case RowSkipped:
		r.Skipped++
	case RowFailed:
		r.Failed++
	}
}
