package mailer

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"html/template"
	"net"
	"net/smtp"
	"time"

	"go.uber.org/zap"
)

// Config holds SMTP configuration
type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
}

// OTPMessage is one passcode delivery. Code only lives here and in the rendered body.
type OTPMessage struct {
	To       string
	Name     string
	Code     string
	Purpose  string // "registration" or "login"
	ValidFor time.Duration
}

const otpSubject = "Your RecipeHub verification code"

var otpTemplate = template.Must(template.New("otp").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="margin:0;padding:0;background-color:#fff7ed;font-family:'Segoe UI',Tahoma,Geneva,Verdana,sans-serif;">
    <div style="max-width:500px;margin:40px auto;background:#ffffff;border-radius:16px;overflow:hidden;border:1px solid #fed7aa;">
        <div style="background:#f97316;padding:32px;text-align:center;">
            <h1 style="color:#fff;margin:0;font-size:28px;font-weight:700;">RecipeHub</h1>
        </div>

        <div style="padding:32px;">
            <p style="color:#1f2937;font-size:16px;line-height:1.6;margin:0 0 24px;">
                Hello{{if .Name}} <strong>{{.Name}}</strong>{{end}},
            </p>
            <p style="color:#4b5563;font-size:14px;line-height:1.6;margin:0 0 24px;">
                Use the following one-time password (OTP) to complete your {{.Purpose}}:
            </p>

            <div style="background:#fff7ed;border:2px dashed #fdba74;border-radius:12px;padding:24px;text-align:center;margin:0 0 24px;">
                <span style="font-size:36px;font-weight:800;letter-spacing:8px;color:#ea580c;font-family:'Courier New',monospace;">{{.Code}}</span>
            </div>

            <p style="color:#6b7280;font-size:13px;line-height:1.5;margin:0 0 8px;">
                This code is valid for {{.Minutes}} minutes.
            </p>
            <p style="color:#6b7280;font-size:13px;line-height:1.5;margin:0;">
                If you did not request this, you can safely ignore this email.
            </p>
        </div>
    </div>
</body>
</html>`))

// Mailer handles sending emails
type Mailer struct {
	config Config
	log    *zap.Logger
}

// New creates a new Mailer instance
func New(cfg Config, log *zap.Logger) *Mailer {
	return &Mailer{config: cfg, log: log.Named("mailer")}
}

// SendOTP renders and delivers a passcode email
func (m *Mailer) SendOTP(ctx context.Context, msg OTPMessage) error {
	body, err := RenderOTP(msg)
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}
	return m.send(ctx, msg.To, otpSubject, body)
}

// RenderOTP returns the HTML body of a passcode email
func RenderOTP(msg OTPMessage) (string, error) {
	minutes := int(msg.ValidFor / time.Minute)
	if minutes < 1 {
		minutes = 1
	}

	var buf bytes.Buffer
	err := otpTemplate.Execute(&buf, map[string]interface{}{
		"Name":    msg.Name,
		"Code":    msg.Code,
		"Purpose": msg.Purpose,
		"Minutes": minutes,
	})
	return buf.String(), err
}

// send delivers an email via SMTP, bounded by ctx
func (m *Mailer) send(ctx context.Context, to, subject, htmlBody string) error {
	addr := net.JoinHostPort(m.config.Host, m.config.Port)

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s <%s>\r\n", m.config.FromName, m.config.From)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n\r\n")
	msg.WriteString(htmlBody)

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to smtp server: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	c, err := smtp.NewClient(conn, m.config.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to start smtp session: %w", err)
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: m.config.Host}); err != nil {
			return fmt.Errorf("failed to start tls: %w", err)
		}
	}
	if m.config.Username != "" && m.config.Password != "" {
		auth := smtp.PlainAuth("", m.config.Username, m.config.Password, m.config.Host)
		if err := c.Auth(auth); err != nil {
			return fmt.Errorf("failed to authenticate: %w", err)
		}
	}

	if err := c.Mail(m.config.From); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if err := c.Rcpt(to); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if _, err := w.Write(msg.Bytes()); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	m.log.Debug("email sent", zap.String("to", to), zap.String("subject", subject))
	return c.Quit()
}
