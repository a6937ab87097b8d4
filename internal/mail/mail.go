// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package mail relays contact-form submissions to the site owner.
//
// Messages are sent over authenticated SMTP (Gmail submission by default)
// as multipart/alternative with plain-text and HTML bodies. The recipient
// is fixed to the configured owner address; the visitor's address goes in
// Reply-To so replies reach them directly.
package mail

import (
	"errors"
	"fmt"
	"html"
	"mime"
	"net/smtp"
	"strings"
)

// Errors returned by Send.
var (
	// ErrNotConfigured indicates SMTP credentials are missing.
	ErrNotConfigured = errors.New("mail relay not configured")

	// ErrMissingFields indicates a required submission field is empty.
	ErrMissingFields = errors.New("missing required fields")

	// ErrInvalidAddress indicates the sender address is malformed.
	ErrInvalidAddress = errors.New("invalid sender address")
)

// Submission is one contact-form message.
type Submission struct {
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// Validate checks the submission for required fields and a plausible
// sender address.
func (s Submission) Validate() error {
	if s.Email == "" || s.Subject == "" || s.Message == "" {
		return ErrMissingFields
	}
	at := strings.Index(s.Email, "@")
	if at < 1 || at == len(s.Email)-1 || strings.ContainsAny(s.Email, " \t\r\n") {
		return fmt.Errorf("%w: %q", ErrInvalidAddress, s.Email)
	}
	return nil
}

// sendFunc matches smtp.SendMail. Swappable for tests.
type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Mailer sends submissions over SMTP.
type Mailer struct {
	host     string
	port     int
	username string
	password string
	to       string
	send     sendFunc
}

// NewMailer creates a mailer. username is also the envelope sender; to is
// the fixed recipient.
func NewMailer(host string, port int, username, password, to string) *Mailer {
	return &Mailer{
		host:     host,
		port:     port,
		username: username,
		password: password,
		to:       to,
		send:     smtp.SendMail,
	}
}

// WithSendFunc overrides the SMTP send function. Used by tests.
func (m *Mailer) WithSendFunc(fn sendFunc) *Mailer {
	m.send = fn
	return m
}

// IsConfigured returns true when credentials and a recipient are set.
func (m *Mailer) IsConfigured() bool {
	return m.username != "" && m.password != "" && m.to != ""
}

// Send validates and relays one submission.
func (m *Mailer) Send(sub Submission) error {
	if !m.IsConfigured() {
		return ErrNotConfigured
	}
	if err := sub.Validate(); err != nil {
		return err
	}

	msg := m.buildMessage(sub)
	addr := fmt.Sprintf("%s:%d", m.host, m.port)
	auth := smtp.PlainAuth("", m.username, m.password, m.host)

	if err := m.send(addr, auth, m.username, []string{m.to}, msg); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}
	return nil
}

// buildMessage renders the MIME message: headers, then text and HTML parts.
func (m *Mailer) buildMessage(sub Submission) []byte {
	const boundary = "kevai-mime-boundary"

	var b strings.Builder
	b.WriteString("From: " + m.username + "\r\n")
	b.WriteString("To: " + m.to + "\r\n")
	b.WriteString("Reply-To: " + sub.Email + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", sub.Subject) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: multipart/alternative; boundary=" + boundary + "\r\n")
	b.WriteString("\r\n")

	b.WriteString("--" + boundary + "\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(sub.Message + "\r\n\r\n---\r\nThis email was sent from kev.ai\r\n\r\n")

	b.WriteString("--" + boundary + "\r\n")
	b.WriteString("Content-Type: text/html; charset=utf-8\r\n\r\n")
	b.WriteString(htmlBody(sub.Message))
	b.WriteString("\r\n")

	b.WriteString("--" + boundary + "--\r\n")
	return []byte(b.String())
}

// htmlBody wraps the message in the contact-form HTML template.
func htmlBody(message string) string {
	escaped := html.EscapeString(message)
	escaped = strings.ReplaceAll(escaped, "\n", "<br>")

	return `<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">` +
		`<div style="margin-bottom: 20px;">` + escaped + `</div>` +
		`<hr style="border: none; border-top: 1px solid #eee; margin: 30px 0;">` +
		`<p style="color: #999; font-size: 12px; margin: 0;">` +
		`This email was sent from your portfolio website contact form.` +
		`</p></div>`
}
