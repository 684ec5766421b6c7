package email

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
	"gopkg.in/gomail.v2"

	"github.com/cleanguard/qc-api/internal/model"
	"github.com/cleanguard/qc-api/pkg/logger"
	"github.com/cleanguard/qc-api/pkg/metrics"
)

// Config holds SMTP transport settings. Username and Password may be left
// empty: the channel then runs in log-only mode, recording every send as a
// logged success instead of failing, which keeps local and staging
// environments working without credentials.
type Config struct {
	Host          string
	Port          int
	Username      string
	Password      string
	From          string
	FromName      string
	RatePerSecond float64
}

// sender abstracts gomail's dialer for tests.
type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

type dialVerifier interface {
	Dial() (gomail.SendCloser, error)
}

// Channel delivers notifications over SMTP.
type Channel struct {
	cfg     Config
	sender  sender
	logOnly bool
	limiter *rate.Limiter
	metrics *metrics.Metrics
	logger  *logger.Logger
}

type Option func(*Channel)

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Channel) { c.metrics = m }
}

// withSender replaces the SMTP dialer, for tests.
func withSender(s sender) Option {
	return func(c *Channel) {
		c.sender = s
		c.logOnly = false
	}
}

func New(cfg Config, log *logger.Logger, opts ...Option) *Channel {
	c := &Channel{
		cfg:    cfg,
		logger: log,
	}

	if cfg.Username == "" || cfg.Password == "" {
		c.logOnly = true
		log.ZL.Warn().Msg("email channel: SMTP credentials not set, running in log-only mode")
	} else {
		c.sender = gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	}

	if cfg.RatePerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1)
	}

	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Channel) Name() model.ChannelName {
	return model.ChannelEmail
}

// Eligible filters recipients down to those addressable by email. A nil
// opt-in preference counts as opted in; only an explicit false excludes.
func Eligible(recipients []model.Recipient) []model.Recipient {
	var out []model.Recipient
	for _, r := range recipients {
		if r.Email != "" && r.EmailEnabled() {
			out = append(out, r)
		}
	}
	return out
}

// Send renders the event once and delivers the same message to every
// eligible recipient. A failed send is recorded and the loop continues;
// one bad mailbox never aborts the batch.
func (c *Channel) Send(ctx context.Context, event model.Event, recipients []model.Recipient, data map[string]interface{}, meta model.Meta) (*model.DeliveryReport, error) {
	subject, body, ok := render(event.Key, data)
	if !ok {
		return model.SkippedReport("no template"), nil
	}

	eligible := Eligible(recipients)
	if len(eligible) == 0 {
		return model.SkippedReport("no eligible recipients"), nil
	}

	start := time.Now()
	defer func() {
		if c.metrics != nil {
			c.metrics.ChannelLatency.WithLabelValues(string(model.ChannelEmail)).Observe(time.Since(start).Seconds())
		}
	}()

	report := &model.DeliveryReport{}
	for _, rec := range eligible {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				report.Failed++
				report.Details = append(report.Details, model.DeliveryDetail{
					UserID:  rec.UserID,
					Address: rec.Email,
					Error:   err.Error(),
				})
				continue
			}
		}

		detail := c.sendOne(rec, subject, body)
		if detail.Success {
			report.Sent++
		} else {
			report.Failed++
		}
		if c.metrics != nil {
			c.metrics.ChannelSends.WithLabelValues(string(model.ChannelEmail), sendStatus(detail)).Inc()
		}
		report.Details = append(report.Details, detail)
	}

	return report, nil
}

func (c *Channel) sendOne(rec model.Recipient, subject, body string) model.DeliveryDetail {
	detail := model.DeliveryDetail{UserID: rec.UserID, Address: rec.Email}

	if c.logOnly {
		c.logger.ZL.Info().
			Str("to", rec.Email).
			Str("subject", subject).
			Msg("email channel (log-only): message not sent")
		detail.Success = true
		detail.LogOnly = true
		return detail
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", c.cfg.From, c.cfg.FromName)
	m.SetHeader("To", rec.Email)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	if err := c.sender.DialAndSend(m); err != nil {
		c.logger.ZL.Error().Err(err).Str("to", rec.Email).Msg("failed to send email")
		detail.Error = err.Error()
		return detail
	}

	c.logger.ZL.Debug().Str("to", rec.Email).Str("subject", subject).Msg("email sent")
	detail.Success = true
	return detail
}

// Verify checks the SMTP connection. In log-only mode there is nothing to
// verify and the channel reports healthy.
func (c *Channel) Verify(ctx context.Context) error {
	if c.logOnly {
		return nil
	}
	d, ok := c.sender.(dialVerifier)
	if !ok {
		return nil
	}
	closer, err := d.Dial()
	if err != nil {
		return fmt.Errorf("smtp dial failed: %w", err)
	}
	return closer.Close()
}

func sendStatus(d model.DeliveryDetail) string {
	if d.Success {
		return "sent"
	}
	return "failed"
}
