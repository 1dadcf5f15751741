// Package generator turns an assembled reply context into a drafted
// email reply via the chat completion API.
package generator

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"stylomail/internal/models"
)

// chatClient is the slice of the OpenAI client the generator needs.
type chatClient interface {
	CreateChatCompletion(ctx context.Context, messages []openai.ChatCompletionMessage, maxTokens int, temperature float32) (*openai.ChatCompletionResponse, error)
}

// Generator drafts replies in the reply author's voice.
type Generator struct {
	client      chatClient
	maxTokens   int
	temperature float32
}

// NewGenerator creates a reply generator.
func NewGenerator(client chatClient) *Generator {
	return &Generator{
		client:      client,
		maxTokens:   800,
		temperature: 0.7,
	}
}

const systemPrompt = `You are an email assistant that drafts replies in the voice of the person you act for. ` +
	`You will receive the incoming email, examples of the author's own past mail and their stylometric features. ` +
	`Write the reply the author would write: reuse their greetings and sign-offs from the examples, match their ` +
	`sentence length and tone, and keep their characteristic word choices. Output only the reply body. ` +
	`Do not add unnecessary commas.`

// Generate drafts a reply for the given context. A single API call,
// no retries; the caller decides whether a failed draft is retried.
func (g *Generator) Generate(ctx context.Context, rc *models.ReplyContext, customPrompt string) (string, error) {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
		{Role: openai.ChatMessageRoleUser, Content: BuildPrompt(rc, customPrompt)},
	}

	resp, err := g.client.CreateChatCompletion(ctx, messages, g.maxTokens, g.temperature)
	if err != nil {
		return "", fmt.Errorf("failed to generate reply: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no reply generated")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// BuildPrompt renders the reply context as the user message. Empty
// blocks are omitted rather than rendered as empty headings.
func BuildPrompt(rc *models.ReplyContext, customPrompt string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "I am %s. Reply to this email from %s:\n\n%s\n", rc.Receiver, rc.Sender, rc.Content)

	if len(rc.ThreadEmails) > 0 {
		b.WriteString("\nEarlier emails in this thread, oldest first:\n")
		for i, email := range rc.ThreadEmails {
			fmt.Fprintf(&b, "%d. %s\n", i+1, email)
		}
	}

	if len(rc.RecentEmails) > 0 {
		fmt.Fprintf(&b, "\nMy most recent emails to %s:\n", rc.Sender)
		for i, email := range rc.RecentEmails {
			fmt.Fprintf(&b, "%d. %s\n", i+1, email)
		}
	}

	if len(rc.SimilarMails) > 0 {
		b.WriteString("\nEmails I wrote in similar situations:\n")
		for i, similar := range rc.SimilarMails {
			fmt.Fprintf(&b, "%d. %s\n", i+1, similar.Content)
		}
	}

	if !rc.Profile.Empty() {
		b.WriteString("\nMy stylometric features, most frequent first:\n")
		if len(rc.Profile.Verbs) > 0 {
			fmt.Fprintf(&b, "Verbs: %s\n", strings.Join(rc.Profile.Verbs, ", "))
		}
		if len(rc.Profile.Adverbs) > 0 {
			fmt.Fprintf(&b, "Adverbs: %s\n", strings.Join(rc.Profile.Adverbs, ", "))
		}
		if len(rc.Profile.Adjectives) > 0 {
			fmt.Fprintf(&b, "Adjectives: %s\n", strings.Join(rc.Profile.Adjectives, ", "))
		}
	}

	if customPrompt != "" {
		fmt.Fprintf(&b, "\nExtra instructions: %s\n", customPrompt)
	}

	return b.String()
}
