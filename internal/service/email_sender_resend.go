package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	resend "github.com/resend/resend-go/v2"
)

// ResendEmailSender delivers transactional email through the Resend API.
// Links point at the public app, which owns the activation and reset pages.
type ResendEmailSender struct {
	client       *resend.Client
	from         string
	appBaseURL   string
	activatePath string
	resetPath    string
}

func NewResendEmailSender(apiKey string, from string, appBaseURL string) *ResendEmailSender {
	if strings.TrimSpace(apiKey) == "" || strings.TrimSpace(from) == "" {
		return &ResendEmailSender{}
	}
	return &ResendEmailSender{
		client:       resend.NewClient(apiKey),
		from:         from,
		appBaseURL:   strings.TrimRight(appBaseURL, "/"),
		activatePath: "/activate",
		resetPath:    "/reset-password",
	}
}

func (s *ResendEmailSender) SendActivationEmail(ctx context.Context, email string, token string) error {
	if s.client == nil {
		return errors.New("email sender not configured")
	}
	link := s.buildURL(s.activatePath, token)
	subject := "Activate your RegTech Horizon account"
	html := fmt.Sprintf("<p>Welcome to RegTech Horizon!</p><p>Click the link below to activate your account. The link is valid for 24 hours.</p><p><a href=\"%s\">Activate Account</a></p>", link)
	text := fmt.Sprintf("Welcome to RegTech Horizon! Activate your account (valid for 24 hours): %s", link)
	return s.send(ctx, email, subject, html, text)
}

func (s *ResendEmailSender) SendPasswordResetEmail(ctx context.Context, email string, token string) error {
	if s.client == nil {
		return errors.New("email sender not configured")
	}
	link := s.buildURL(s.resetPath, token)
	subject := "Reset your RegTech Horizon password"
	html := fmt.Sprintf("<p>Click the link below to reset your password. The link is valid for 1 hour.</p><p><a href=\"%s\">Reset Password</a></p><p>If you did not request this, you can ignore this email.</p>", link)
	text := fmt.Sprintf("Reset your password (valid for 1 hour): %s", link)
	return s.send(ctx, email, subject, html, text)
}

func (s *ResendEmailSender) buildURL(path string, token string) string {
	if s.appBaseURL == "" {
		return token
	}
	if path == "" {
		path = "/"
	}
	return fmt.Sprintf("%s%s?token=%s", s.appBaseURL, path, token)
}

func (s *ResendEmailSender) send(_ context.Context, to string, subject string, html string, text string) error {
	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{to},
		Subject: subject,
		Html:    html,
		Text:    text,
	}
	_, err := s.client.Emails.Send(params)
	return err
}
