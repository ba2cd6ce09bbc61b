package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/devhub/pkg/slogx"
)

// Mailer delivers the out-of-band tokens. Implementations must not return
// until the message is handed off (or failed); AsyncMailer takes care of
// keeping that off the request path.
type Mailer interface {
	SendVerificationEmail(ctx context.Context, to, token string) error
	SendPasswordResetEmail(ctx context.Context, to, token string) error
}

const (
	verifyEmailPath   = "/verify-email"
	resetPasswordPath = "/reset-password"
)

func actionLink(publicURL, path, token string) string {
	return strings.TrimRight(publicURL, "/") + path + "?token=" + url.QueryEscape(token)
}

// LogMailer writes the message to the log instead of sending it. Used in
// development and by the end-to-end tests, which read the token back.
type LogMailer struct {
	Logger    *slog.Logger
	PublicURL string
}

func (m *LogMailer) SendVerificationEmail(ctx context.Context, to, token string) error {
	m.Logger.InfoContext(ctx, "mail: verify email",
		slog.String("to", to),
		slog.String("link", actionLink(m.PublicURL, verifyEmailPath, token)),
		slog.String("token", token),
	)
	return nil
}

func (m *LogMailer) SendPasswordResetEmail(ctx context.Context, to, token string) error {
	m.Logger.InfoContext(ctx, "mail: reset password",
		slog.String("to", to),
		slog.String("link", actionLink(m.PublicURL, resetPasswordPath, token)),
		slog.String("token", token),
	)
	return nil
}

// SMTPMailer sends plain-text mail through an SMTP relay with PLAIN auth.
type SMTPMailer struct {
	Host      string
	Port      int
	Username  string
	Password  string
	From      string
	PublicURL string

	// send is smtp.SendMail unless replaced in tests.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func (m *SMTPMailer) SendVerificationEmail(ctx context.Context, to, token string) error {
	body := "Welcome to DevHub!\r\n\r\n" +
		"Confirm your email address by opening the link below. It expires in 24 hours.\r\n\r\n" +
		actionLink(m.PublicURL, verifyEmailPath, token) + "\r\n"
	return m.sendMail(to, "Verify your DevHub email address", body)
}

func (m *SMTPMailer) SendPasswordResetEmail(ctx context.Context, to, token string) error {
	body := "Someone asked to reset the password for your DevHub account.\r\n\r\n" +
		"Open the link below to choose a new one. It expires in 1 hour.\r\n" +
		"If this was not you, ignore this message.\r\n\r\n" +
		actionLink(m.PublicURL, resetPasswordPath, token) + "\r\n"
	return m.sendMail(to, "Reset your DevHub password", body)
}

func (m *SMTPMailer) sendMail(to, subject, body string) error {
	if strings.ContainsAny(to, "\r\n") || strings.ContainsAny(subject, "\r\n") {
		return errors.New("mail header contains a line break")
	}

	headers := []string{
		"From: " + m.From,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
	}
	msg := []byte(strings.Join(headers, "\r\n") + "\r\n\r\n" + body)

	var auth smtp.Auth
	if m.Username != "" {
		auth = smtp.PlainAuth("", m.Username, m.Password, m.Host)
	}

	send := m.send
	if send == nil {
		send = smtp.SendMail
	}

	addr := net.JoinHostPort(m.Host, strconv.Itoa(m.Port))
	if err := send(addr, auth, m.From, []string{to}, msg); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}
	return nil
}

type mailJob struct {
	ctx   context.Context
	kind  string
	to    string
	token string
}

// AsyncMailer queues messages for a fixed pool of workers so the auth
// decision never waits on delivery. Enqueue never blocks: a full queue, or
// one that has been stopped, drops the message and logs it.
type AsyncMailer struct {
	Next    Mailer
	Logger  *slog.Logger
	Workers int
	Timeout time.Duration

	queue   chan mailJob
	wg      sync.WaitGroup
	mu      sync.RWMutex // guards stopped and the close of queue
	stopped bool
}

// NewAsyncMailer creates a mailer with the given queue size. Start must be
// called before messages are delivered.
func NewAsyncMailer(next Mailer, logger *slog.Logger, workers, queueSize int) *AsyncMailer {
	if workers <= 0 {
		workers = 2
	}
	if queueSize <= 0 {
		queueSize = 100
	}
	return &AsyncMailer{
		Next:    next,
		Logger:  logger,
		Workers: workers,
		Timeout: 30 * time.Second,
		queue:   make(chan mailJob, queueSize),
	}
}

// Start launches the workers.
func (m *AsyncMailer) Start() {
	for range m.Workers {
		m.wg.Add(1)
		go m.work()
	}
	m.Logger.Info("mail dispatcher started", "workers", m.Workers)
}

// Stop closes the queue and waits for queued messages to drain. Sends
// after Stop are dropped.
func (m *AsyncMailer) Stop() {
	m.mu.Lock()
	if !m.stopped {
		m.stopped = true
		close(m.queue)
	}
	m.mu.Unlock()

	m.wg.Wait()
	m.Logger.Info("mail dispatcher stopped")
}

func (m *AsyncMailer) SendVerificationEmail(ctx context.Context, to, token string) error {
	m.enqueue(mailJob{ctx: slogx.Detach(ctx), kind: "verify_email", to: to, token: token})
	return nil
}

func (m *AsyncMailer) SendPasswordResetEmail(ctx context.Context, to, token string) error {
	m.enqueue(mailJob{ctx: slogx.Detach(ctx), kind: "reset_password", to: to, token: token})
	return nil
}

func (m *AsyncMailer) enqueue(job mailJob) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.stopped {
		slogx.FromContextOr(job.ctx, m.Logger).Warn("mail dispatcher stopped, message dropped", "kind", job.kind)
		return
	}
	select {
	case m.queue <- job:
	default:
		slogx.FromContextOr(job.ctx, m.Logger).Error("mail queue full, message dropped", "kind", job.kind)
	}
}

func (m *AsyncMailer) work() {
	defer m.wg.Done()
	for job := range m.queue {
		m.deliver(job)
	}
}

func (m *AsyncMailer) deliver(job mailJob) {
	ctx, cancel := context.WithTimeout(job.ctx, m.Timeout)
	defer cancel()

	var err error
	switch job.kind {
	case "verify_email":
		err = m.Next.SendVerificationEmail(ctx, job.to, job.token)
	case "reset_password":
		err = m.Next.SendPasswordResetEmail(ctx, job.to, job.token)
	}
	if err != nil {
		slogx.FromContextOr(ctx, m.Logger).Error("mail delivery failed", "kind", job.kind, "error", err)
	}
}
