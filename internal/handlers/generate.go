package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"stylomail/internal/models"

	"github.com/labstack/echo/v4"
)

// ContextAssembler builds the retrieval context for a reply.
type ContextAssembler interface {
	Assemble(ctx context.Context, incoming *models.Email, receiver string) (*models.ReplyContext, error)
}

// ReplyGenerator drafts a reply from an assembled context.
type ReplyGenerator interface {
	Generate(ctx context.Context, rc *models.ReplyContext, customPrompt string) (string, error)
}

// DraftSender delivers an approved draft.
type DraftSender interface {
	SendDraft(to, subject, body string) error
}

// GenerateReplyHandler drafts a reply in the receiver's voice
// @Summary Generate a styled reply
// @Description Assembles retrieval context for the receiver and drafts a reply to the given email content
// @Tags generate
// @Accept json
// @Produce json
// @Param request body models.GenerateRequest true "Reply request"
// @Success 200 {object} models.GenerateResponse
// @Failure 400 {object} models.GenerateResponse
// @Failure 500 {object} models.GenerateResponse
// @Router /api/generate [post]
func GenerateReplyHandler(assembler ContextAssembler, generator ReplyGenerator) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req models.GenerateRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, models.GenerateResponse{Error: "Invalid request body"})
		}
		if req.Sender == "" || req.Receiver == "" || req.Content == "" {
			return c.JSON(http.StatusBadRequest, models.GenerateResponse{Error: "sender, receiver and content are required"})
		}

		incoming := &models.Email{
			Sender:     strings.ToLower(strings.TrimSpace(req.Sender)),
			Receiver:   strings.ToLower(strings.TrimSpace(req.Receiver)),
			Subject:    req.Subject,
			Content:    req.Content,
			References: req.References,
		}
		if req.InReplyTo != "" {
			incoming.ParentMessageID = &req.InReplyTo
		}

		ctx := c.Request().Context()
		rc, err := assembler.Assemble(ctx, incoming, incoming.Receiver)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, models.GenerateResponse{
				Error: fmt.Sprintf("failed to assemble context: %v", err),
			})
		}

		reply, err := generator.Generate(ctx, rc, req.CustomPrompt)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, models.GenerateResponse{
				Error:    fmt.Sprintf("failed to generate reply: %v", err),
				Warnings: rc.Warnings,
			})
		}

		return c.JSON(http.StatusOK, models.GenerateResponse{
			Success:  true,
			Reply:    reply,
			Warnings: rc.Warnings,
		})
	}
}

// SendDraftHandler delivers an approved draft
// @Summary Send a drafted reply
// @Tags generate
// @Accept json
// @Produce json
// @Param request body models.SendDraftRequest true "Draft to deliver"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /api/generate/send [post]
func SendDraftHandler(sender DraftSender) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req models.SendDraftRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]interface{}{"success": false, "error": "Invalid request body"})
		}
		if req.To == "" || req.Body == "" {
			return c.JSON(http.StatusBadRequest, map[string]interface{}{"success": false, "error": "to and body are required"})
		}

		if err := sender.SendDraft(req.To, req.Subject, req.Body); err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]interface{}{"success": false, "error": err.Error()})
		}

		return c.JSON(http.StatusOK, map[string]interface{}{"success": true})
	}
}
