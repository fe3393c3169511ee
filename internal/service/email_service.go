package service

import (
	"context"
	"fmt"
	"html"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"lunara/internal/metrics"
)

// SESClient is the part of the SES v2 client the email service uses
type SESClient interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// EmailService handles sending emails via Amazon SES
type EmailService struct {
	client     SESClient
	fromEmail  string
	fromName   string
	appBaseURL string
	enabled    bool
	debug      bool
}

// NewEmailService creates a new email service. An empty fromEmail yields a
// disabled service that logs and skips every send.
func NewEmailService(ctx context.Context, awsRegion, fromEmail, fromName, appBaseURL string, debug bool) (*EmailService, error) {
	if fromEmail == "" {
		slog.Info("email service disabled: SES_FROM_EMAIL not configured")
		return &EmailService{appBaseURL: appBaseURL, debug: debug}, nil
	}

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(awsRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	slog.Info("email service enabled", "from", fromEmail, "region", awsRegion)
	return NewEmailServiceWithClient(sesv2.NewFromConfig(cfg), fromEmail, fromName, appBaseURL, debug), nil
}

// NewEmailServiceWithClient creates an enabled email service around an existing client
func NewEmailServiceWithClient(client SESClient, fromEmail, fromName, appBaseURL string, debug bool) *EmailService {
	return &EmailService{
		client:     client,
		fromEmail:  fromEmail,
		fromName:   fromName,
		appBaseURL: appBaseURL,
		enabled:    true,
		debug:      debug,
	}
}

// IsEnabled returns whether the email service is enabled
func (s *EmailService) IsEnabled() bool {
	return s != nil && s.enabled
}

// SendWelcomeEmail sends a welcome email to a new parent
func (s *EmailService) SendWelcomeEmail(ctx context.Context, toEmail, toName string) error {
	if !s.IsEnabled() {
		return s.skip("welcome", toEmail)
	}
	subject := "Welcome to Lunara!"
	text := fmt.Sprintf(`Hi %s,

Your Lunara account is ready. Add your kids, set up rewards they can earn
with moons, and follow their progress from your dashboard.

Get started: %s/login
`, toName, s.appBaseURL)

	return s.send(ctx, "welcome", toEmail, subject, text)
}

// SendInvitationEmail invites another adult to join a family
func (s *EmailService) SendInvitationEmail(ctx context.Context, toEmail, inviterName, familyName, code string) error {
	if !s.IsEnabled() {
		return s.skip("invitation", toEmail)
	}
	subject := fmt.Sprintf("%s invited you to %s on Lunara", inviterName, familyName)
	text := fmt.Sprintf(`Hi,

%s invited you to help manage the %s family on Lunara.

Accept the invitation: %s/invite?code=%s

This invitation expires in 7 days.
`, inviterName, familyName, s.appBaseURL, code)

	return s.send(ctx, "invitation", toEmail, subject, text)
}

// SendRedemptionRequestEmail tells a parent a kid asked to redeem a reward
func (s *EmailService) SendRedemptionRequestEmail(ctx context.Context, toEmail, parentName, kidName, rewardName string, cost int) error {
	if !s.IsEnabled() {
		return s.skip("redemption", toEmail)
	}
	subject := fmt.Sprintf("%s wants to redeem %s", kidName, rewardName)
	text := fmt.Sprintf(`Hi %s,

%s spent %d moons on "%s" and is waiting for your approval.

Review pending rewards: %s/parent/rewards
`, parentName, kidName, cost, rewardName, s.appBaseURL)

	return s.send(ctx, "redemption", toEmail, subject, text)
}

// skip is safe to call on a nil service
func (s *EmailService) skip(kind, toEmail string) error {
	if s != nil && s.debug {
		slog.Debug("skipping email send (service disabled)", "kind", kind, "to", toEmail)
	}
	metrics.EmailsSent.WithLabelValues(kind, "skipped").Inc()
	return nil
}

func (s *EmailService) send(ctx context.Context, kind, toEmail, subject, textBody string) error {
	fromAddress := s.fromEmail
	if s.fromName != "" {
		fromAddress = fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{toEmail},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Html: &types.Content{
						Data:    aws.String(renderHTML(subject, textBody)),
						Charset: aws.String("UTF-8"),
					},
					Text: &types.Content{
						Data:    aws.String(textBody),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		metrics.EmailsSent.WithLabelValues(kind, "error").Inc()
		return fmt.Errorf("failed to send email to %s: %w", toEmail, err)
	}

	metrics.EmailsSent.WithLabelValues(kind, "sent").Inc()
	if s.debug && result.MessageId != nil {
		slog.Debug("email sent", "kind", kind, "to", toEmail, "message_id", *result.MessageId)
	}
	return nil
}

func renderHTML(title, text string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><title>%s</title></head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
<div style="max-width: 600px; margin: 0 auto; padding: 20px;">
<div style="background-color: #7C6FE0; color: white; padding: 16px; border-radius: 5px 5px 0 0;">🌙 Lunara</div>
<pre style="white-space: pre-wrap; font-family: inherit; background-color: #f9f9f9; padding: 24px; margin: 0;">%s</pre>
</div>
</body>
</html>`, html.EscapeString(title), html.EscapeString(text))
}
