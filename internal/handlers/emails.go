package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"stylomail/internal/emails"
	"stylomail/internal/models"

	"github.com/labstack/echo/v4"
)

// uploadSizeLimit bounds a single .eml upload.
const uploadSizeLimit = 25 << 20

// IngestService is the slice of the ingestion pipeline the email
// handlers need.
type IngestService interface {
	Ingest(ctx context.Context, batch []*models.Email) models.BatchReport
	IngestDirectory(ctx context.Context, dir string) (models.BatchReport, error)
	Reconcile(ctx context.Context) (int, []string, error)
}

// SimilaritySearcher finds semantically similar stored mail.
type SimilaritySearcher interface {
	SimilarTo(ctx context.Context, text, sender string, limit int) ([]models.SimilarEmail, error)
}

// AddEmailHandler ingests a single email record from JSON
// @Summary Add one email
// @Description Stores a single email record and indexes it for retrieval
// @Tags emails
// @Accept json
// @Produce json
// @Param request body models.AddEmailRequest true "Email record"
// @Success 200 {object} models.AddEmailResponse
// @Failure 400 {object} models.AddEmailResponse
// @Router /api/emails [post]
func AddEmailHandler(ingest IngestService) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req models.AddEmailRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, models.AddEmailResponse{Error: "Invalid request body"})
		}
		if req.Sender == "" || req.Receiver == "" || req.Content == "" {
			return c.JSON(http.StatusBadRequest, models.AddEmailResponse{Error: "sender, receiver and content are required"})
		}

		email := &models.Email{
			MessageID: req.MessageID,
			Sender:    strings.ToLower(strings.TrimSpace(req.Sender)),
			Receiver:  strings.ToLower(strings.TrimSpace(req.Receiver)),
			Subject:   req.Subject,
			Content:   req.Content,
		}
		if email.MessageID == "" {
			email.MessageID = fmt.Sprintf("<manual-%d@stylomail>", time.Now().UnixNano())
		}
		if req.SentAt != "" {
			sentAt, err := time.Parse(time.RFC3339, req.SentAt)
			if err != nil {
				return c.JSON(http.StatusBadRequest, models.AddEmailResponse{Error: "sent_at must be RFC 3339"})
			}
			utc := sentAt.UTC()
			email.SentAt = &utc
		}

		report := ingest.Ingest(c.Request().Context(), []*models.Email{email})
		if report.Failed > 0 {
			return c.JSON(http.StatusInternalServerError, models.AddEmailResponse{Error: report.Rows[0].Reason})
		}

		return c.JSON(http.StatusOK, models.AddEmailResponse{
			Success:   true,
			ID:        email.ID,
			MessageID: email.MessageID,
			Inserted:  report.Inserted == 1,
		})
	}
}

// UploadEMLHandler ingests an uploaded .eml file
// @Summary Upload an .eml file
// @Description Parses a single RFC 5322 message file and ingests it
// @Tags emails
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true ".eml file"
// @Success 200 {object} models.ImportResponse
// @Failure 400 {object} models.ImportResponse
// @Router /api/emails/upload [post]
func UploadEMLHandler(ingest IngestService) echo.HandlerFunc {
	return func(c echo.Context) error {
		fileHeader, err := c.FormFile("file")
		if err != nil {
			return c.JSON(http.StatusBadRequest, models.ImportResponse{Error: "file field is required"})
		}

		if !strings.EqualFold(filepath.Ext(fileHeader.Filename), ".eml") {
			return c.JSON(http.StatusBadRequest, models.ImportResponse{
				Error: fmt.Sprintf("unsupported file type %q, only .eml is accepted", filepath.Ext(fileHeader.Filename)),
			})
		}
		if fileHeader.Size > uploadSizeLimit {
			return c.JSON(http.StatusBadRequest, models.ImportResponse{Error: "file too large"})
		}

		file, err := fileHeader.Open()
		if err != nil {
			return c.JSON(http.StatusInternalServerError, models.ImportResponse{Error: "failed to read upload"})
		}
		defer file.Close()

		email, err := emails.ParseMessage(io.LimitReader(file, uploadSizeLimit))
		if err != nil {
			return c.JSON(http.StatusBadRequest, models.ImportResponse{
				Error: fmt.Sprintf("failed to parse message: %v", err),
			})
		}

		report := ingest.Ingest(c.Request().Context(), []*models.Email{email})
		return c.JSON(http.StatusOK, models.ImportResponse{
			Success: report.Failed == 0,
			Message: fmt.Sprintf("inserted %d, skipped %d, failed %d", report.Inserted, report.Skipped, report.Failed),
			Report:  &report,
		})
	}
}

// ImportFromStorageHandler ingests every email file under the mounted
// import directory
// @Summary Import emails from mounted storage
// @Tags emails
// @Produce json
// @Success 200 {object} models.ImportResponse
// @Failure 500 {object} models.ImportResponse
// @Router /api/emails/import [post]
func ImportFromStorageHandler(ingest IngestService, importPath string) echo.HandlerFunc {
	return func(c echo.Context) error {
		report, err := ingest.IngestDirectory(c.Request().Context(), importPath)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, models.ImportResponse{
				Error: fmt.Sprintf("import failed: %v", err),
			})
		}

		return c.JSON(http.StatusOK, models.ImportResponse{
			Success: true,
			Message: fmt.Sprintf("inserted %d, skipped %d, failed %d, index failures %d",
				report.Inserted, report.Skipped, report.Failed, len(report.IndexFailed)),
			Report: &report,
		})
	}
}

// ReconcileHandler re-indexes every stored email
// @Summary Rebuild the vector index from the store
// @Tags admin
// @Produce json
// @Success 200 {object} models.ImportResponse
// @Failure 500 {object} models.ImportResponse
// @Router /api/admin/reconcile [post]
func ReconcileHandler(ingest IngestService) echo.HandlerFunc {
	return func(c echo.Context) error {
		count, failed, err := ingest.Reconcile(c.Request().Context())
		if err != nil {
			return c.JSON(http.StatusInternalServerError, models.ImportResponse{
				Error: fmt.Sprintf("reconcile failed: %v", err),
			})
		}

		return c.JSON(http.StatusOK, models.ImportResponse{
			Success: true,
			Message: fmt.Sprintf("re-indexed %d emails, %d failures", count, len(failed)),
			Report:  &models.BatchReport{IndexFailed: failed},
		})
	}
}

// SearchHandler runs a semantic search over ingested mail
// @Summary Semantic email search
// @Tags emails
// @Accept json
// @Produce json
// @Param request body models.SearchRequest true "Search query"
// @Success 200 {object} models.SearchResponse
// @Failure 400 {object} models.SearchResponse
// @Router /api/emails/search [post]
func SearchHandler(searcher SimilaritySearcher) echo.HandlerFunc {
	return func(c echo.Context) error {
		if searcher == nil {
			return c.JSON(http.StatusServiceUnavailable, models.SearchResponse{Error: "vector index not configured"})
		}

		var req models.SearchRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, models.SearchResponse{Error: "Invalid request body"})
		}
		if strings.TrimSpace(req.Query) == "" {
			return c.JSON(http.StatusBadRequest, models.SearchResponse{Error: "query is required"})
		}
		if req.Limit <= 0 {
			req.Limit = 10
		}

		results, err := searcher.SimilarTo(c.Request().Context(), req.Query, strings.ToLower(req.Sender), req.Limit)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, models.SearchResponse{
				Error: fmt.Sprintf("search failed: %v", err),
			})
		}

		return c.JSON(http.StatusOK, models.SearchResponse{
			Success: true,
			Results: results,
		})
	}
}
