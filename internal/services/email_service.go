package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// EmailService defines the interface for sending transactional emails
type EmailService interface {
	SendVerificationEmail(ctx context.Context, email, token string, expiresAt time.Time) error
	SendPasswordResetEmail(ctx context.Context, email, token string, expiresAt time.Time) error
}

// AWSSESEmailService sends emails using AWS SES
type AWSSESEmailService struct {
	sesClient   *ses.Client
	fromAddress string
	clientURL   string
	logger      *slog.Logger
}

// NewAWSSESEmailService creates a new AWS SES email service
func NewAWSSESEmailService(region, fromAddress, clientURL string, logger *slog.Logger) (*AWSSESEmailService, error) {
	cfg, err := config.LoadDefaultConfig(context.Background(), config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &AWSSESEmailService{
		sesClient:   ses.NewFromConfig(cfg),
		fromAddress: fromAddress,
		clientURL:   clientURL,
		logger:      logger,
	}, nil
}

// SendVerificationEmail sends an email verification link to the user
func (s *AWSSESEmailService) SendVerificationEmail(ctx context.Context, email, token string, expiresAt time.Time) error {
	link := fmt.Sprintf("%s/verify-email?token=%s", s.clientURL, token)

	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background-color: #f8f9fa; padding: 20px; text-align: center; border-radius: 4px; }
        .content { padding: 20px 0; }
        .button { display: inline-block; background-color: #0066cc; color: white; padding: 12px 24px; text-decoration: none; border-radius: 4px; margin: 20px 0; }
        .footer { color: #666; font-size: 12px; margin-top: 20px; padding-top: 20px; border-top: 1px solid #eee; }
        .warning { background-color: #fff3cd; padding: 10px; border-left: 4px solid #ffc107; margin: 10px 0; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>Verify Your Email Address</h1>
        </div>
        <div class="content">
            <p>Welcome!</p>
            <p>Thank you for creating an account. To complete your registration, please verify your email address by clicking the link below:</p>
            <p><a href="%s" class="button">Verify Email Address</a></p>
            <p>Or copy and paste this link in your browser:<br>
            <code>%s</code></p>
            <div class="warning">
                <strong>Security Notice:</strong> This link will expire in 24 hours.
            </div>
            <p><strong>Didn't create this account?</strong><br>
            If you didn't sign up for this account, you can ignore this email. Your email address will not be verified.</p>
        </div>
        <div class="footer">
            <p>This is an automated message. Please do not reply to this email.</p>
        </div>
    </div>
</body>
</html>
`, link, link)

	textBody := fmt.Sprintf(`Verify Your Email Address

Welcome! Thank you for creating an account. To complete your registration, please verify your email address by clicking the link below:

%s

Security Notice: This link will expire in 24 hours.

Didn't create this account?
If you didn't sign up for this account, you can ignore this email. Your email address will not be verified.

This is an automated message. Please do not reply to this email.
`, link)

	return s.send(ctx, email, "Verify your email address", htmlBody, textBody)
}

// SendPasswordResetEmail sends a password reset link to the user
func (s *AWSSESEmailService) SendPasswordResetEmail(ctx context.Context, email, token string, expiresAt time.Time) error {
	link := fmt.Sprintf("%s/reset-password?token=%s", s.clientURL, token)

	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background-color: #f8f9fa; padding: 20px; text-align: center; border-radius: 4px; }
        .content { padding: 20px 0; }
        .button { display: inline-block; background-color: #0066cc; color: white; padding: 12px 24px; text-decoration: none; border-radius: 4px; margin: 20px 0; }
        .footer { color: #666; font-size: 12px; margin-top: 20px; padding-top: 20px; border-top: 1px solid #eee; }
        .warning { background-color: #fff3cd; padding: 10px; border-left: 4px solid #ffc107; margin: 10px 0; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>Reset Your Password</h1>
        </div>
        <div class="content">
            <p>We received a request to reset the password for your account.</p>
            <p><a href="%s" class="button">Reset Password</a></p>
            <p>Or copy and paste this link in your browser:<br>
            <code>%s</code></p>
            <div class="warning">
                <strong>Security Notice:</strong> This link will expire in 1 hour. Resetting your password signs you out of all devices.
            </div>
            <p><strong>Didn't request this?</strong><br>
            If you didn't ask to reset your password, you can ignore this email. Your password will not be changed.</p>
        </div>
        <div class="footer">
            <p>This is an automated message. Please do not reply to this email.</p>
        </div>
    </div>
</body>
</html>
`, link, link)

	textBody := fmt.Sprintf(`Reset Your Password

We received a request to reset the password for your account. Use the link below to choose a new password:

%s

Security Notice: This link will expire in 1 hour. Resetting your password signs you out of all devices.

Didn't request this?
If you didn't ask to reset your password, you can ignore this email. Your password will not be changed.

This is an automated message. Please do not reply to this email.
`, link)

	return s.send(ctx, email, "Reset your password", htmlBody, textBody)
}

func (s *AWSSESEmailService) send(ctx context.Context, email, subject, htmlBody, textBody string) error {
	input := &ses.SendEmailInput{
		Source: aws.String(s.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{email},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String(subject),
			},
			Body: &types.Body{
				Html: &types.Content{
					Data: aws.String(htmlBody),
				},
				Text: &types.Content{
					Data: aws.String(textBody),
				},
			},
		},
	}

	result, err := s.sesClient.SendEmail(ctx, input)
	if err != nil {
		s.logger.Error("failed to send email via SES",
			slog.String("subject", subject),
			slog.Any("error", err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info("email sent",
		slog.String("subject", subject),
		slog.String("message_id", *result.MessageId))

	return nil
}

// LogEmailService is the fallback when SES is not configured. It logs the
// links instead of delivering them, so local development works without AWS
// credentials.
type LogEmailService struct {
	clientURL string
	logger    *slog.Logger
}

// NewLogEmailService creates an email service that logs instead of sending
func NewLogEmailService(clientURL string, logger *slog.Logger) *LogEmailService {
	return &LogEmailService{clientURL: clientURL, logger: logger}
}

func (s *LogEmailService) SendVerificationEmail(ctx context.Context, email, token string, expiresAt time.Time) error {
	s.logger.Info("email delivery disabled, logging verification link",
		slog.String("link", fmt.Sprintf("%s/verify-email?token=%s", s.clientURL, token)),
		slog.Time("expires_at", expiresAt))
	return nil
}

func (s *LogEmailService) SendPasswordResetEmail(ctx context.Context, email, token string, expiresAt time.Time) error {
	s.logger.Info("email delivery disabled, logging password reset link",
		slog.String("link", fmt.Sprintf("%s/reset-password?token=%s", s.clientURL, token)),
		slog.Time("expires_at", expiresAt))
	return nil
}
