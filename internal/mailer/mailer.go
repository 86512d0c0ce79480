package mailer

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"mime/multipart"
	"net/smtp"
	"net/textproto"

	"cryptonary/referral-service/pkg/logger"
)

// SMTPMailer sends mail with a single attachment over plain SMTP.
type SMTPMailer struct {
	addr string
	auth smtp.Auth
	from string
	log  *logger.Logger
}

func NewSMTPMailer(host string, port int, username, password, from string, log *logger.Logger) *SMTPMailer {
	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &SMTPMailer{
		addr: fmt.Sprintf("%s:%d", host, port),
		auth: auth,
		from: from,
		log:  log,
	}
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string, attachmentName string, attachment []byte) error {
	msg, err := buildMessage(m.from, to, subject, body, attachmentName, attachment)
	if err != nil {
		return fmt.Errorf("failed to build email: %w", err)
	}

	if err := smtp.SendMail(m.addr, m.auth, m.from, []string{to}, msg); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}

	m.log.Infof("Sent email %q to %s", subject, to)
	return nil
}

func buildMessage(from, to, subject, body, attachmentName string, attachment []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", to)
	fmt.Fprintf(&buf, "Subject: %s\r\n", subject)
	fmt.Fprintf(&buf, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%s\r\n\r\n", writer.Boundary())

	textHeader := textproto.MIMEHeader{}
	textHeader.Set("Content-Type", "text/plain; charset=utf-8")
	part, err := writer.CreatePart(textHeader)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write([]byte(body)); err != nil {
		return nil, err
	}

	if len(attachment) > 0 {
		fileHeader := textproto.MIMEHeader{}
		fileHeader.Set("Content-Type", "text/csv")
		fileHeader.Set("Content-Transfer-Encoding", "base64")
		fileHeader.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", attachmentName))
		part, err := writer.CreatePart(fileHeader)
		if err != nil {
			return nil, err
		}
		encoded := base64.StdEncoding.EncodeToString(attachment)
		if _, err := part.Write([]byte(encoded)); err != nil {
			return nil, err
		}
	}

	if err := writer.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// LogMailer is the EmailSender used in local development. It only logs what
// would have been sent.
type LogMailer struct {
	log *logger.Logger
}

func NewLogMailer(log *logger.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) Send(ctx context.Context, to, subject, body string, attachmentName string, attachment []byte) error {
	m.log.Infof("Would send email %q to %s with attachment %s (%d bytes)", subject, to, attachmentName, len(attachment))
	return nil
}
