// Package email sends publish notifications through Resend.
package email

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/resendlabs/resend-go"

	"github.com/AtRiskMedia/pagebuilder-go/internal/domain/entities/canvas"
	"github.com/AtRiskMedia/pagebuilder-go/internal/infrastructure/email/templates"
	"github.com/AtRiskMedia/pagebuilder-go/internal/infrastructure/observability/logging"
)

var ErrNotConfigured = errors.New("email notifications are not configured")

type Config struct {
	APIKey     string
	From       string
	To         string
	PreviewURL string // base URL, the document id is appended
}

// ResendClient mails a notice whenever a document is published
type ResendClient struct {
	send       func(*resend.SendEmailRequest) error
	from       string
	to         []string
	previewURL string
	logger     *logging.ChanneledLogger
}

// NewService returns ErrNotConfigured when the API key or recipient is
// missing so callers can run without notifications.
func NewService(cfg Config, logger *logging.ChanneledLogger) (*ResendClient, error) {
	if cfg.APIKey == "" || cfg.To == "" {
		return nil, ErrNotConfigured
	}
	if cfg.From == "" {
		cfg.From = "Page Builder <noreply@pagebuilder.local>"
	}
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	client := resend.NewClient(cfg.APIKey)
	return &ResendClient{
		send: func(params *resend.SendEmailRequest) error {
			_, err := client.Emails.Send(params)
			return err
		},
		from:       cfg.From,
		to:         splitRecipients(cfg.To),
		previewURL: strings.TrimRight(cfg.PreviewURL, "/"),
		logger:     logger,
	}, nil
}

// NotifyPublished composes and sends the publish notice for doc
func (c *ResendClient) NotifyPublished(ctx context.Context, doc canvas.Document, elementCount int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	publishedAt := doc.UpdatedAt
	if doc.PublishedAt != nil {
		publishedAt = *doc.PublishedAt
	}
	preview := ""
	if c.previewURL != "" {
		preview = c.previewURL + "/" + doc.ID
	}

	content := templates.GetPublishNoticeContent(templates.PublishNoticeProps{
		DocumentName: doc.Name,
		DocumentID:   doc.ID,
		PublishedAt:  publishedAt,
		PreviewURL:   preview,
		ElementCount: elementCount,
	})
	html, err := templates.GetEmailLayout(templates.EmailLayoutProps{
		Preheader: "Published: " + doc.Name,
		Title:     "Page published",
		Content:   content,
	})
	if err != nil {
		return err
	}

	params := &resend.SendEmailRequest{
		From:    c.from,
		To:      c.to,
		Subject: fmt.Sprintf("Published: %s", doc.Name),
		Html:    html,
	}
	if err := c.send(params); err != nil {
		return fmt.Errorf("failed to send publish notice via Resend: %w", err)
	}
	c.logger.Persistence().Info("Publish notice sent", "documentId", doc.ID, "recipients", len(c.to))
	return nil
}

func splitRecipients(to string) []string {
	var out []string
	for _, addr := range strings.Split(to, ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}
