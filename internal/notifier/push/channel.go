package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/cleanguard/qc-api/internal/model"
	"github.com/cleanguard/qc-api/pkg/logger"
	"github.com/cleanguard/qc-api/pkg/metrics"
)

const fcmScope = "https://www.googleapis.com/auth/firebase.messaging"

// Config holds Firebase Cloud Messaging settings. The channel must be both
// explicitly enabled and given a service account credential; otherwise every
// send reports skipped. Some deployments run without push on purpose, so
// this is checked on every call, not treated as a startup failure.
type Config struct {
	Enabled         bool
	CredentialsJSON string
	CredentialsFile string
	Timeout         time.Duration
}

// TokenInvalidator clears a dead device token on the user store. This is
// the only external state the channel mutates; the operation is idempotent.
type TokenInvalidator interface {
	ClearPushToken(ctx context.Context, userID uuid.UUID) error
}

type doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Channel delivers notifications through the FCM HTTP v1 API.
type Channel struct {
	enabled    bool
	projectID  string
	tokens     oauth2.TokenSource
	httpClient doer
	users      TokenInvalidator
	metrics    *metrics.Metrics
	logger     *logger.Logger
}

type Option func(*Channel)

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Channel) { c.metrics = m }
}

// withTransport swaps the HTTP client and token source, for tests.
func withTransport(client doer, tokens oauth2.TokenSource, projectID string) Option {
	return func(c *Channel) {
		c.httpClient = client
		c.tokens = tokens
		c.projectID = projectID
		c.enabled = true
	}
}

func New(cfg Config, users TokenInvalidator, log *logger.Logger, opts ...Option) *Channel {
	c := &Channel{
		users:  users,
		logger: log,
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c.httpClient = &http.Client{Timeout: timeout}

	c.configure(cfg)

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// configure loads the service account credential. Every failure path leaves
// the channel disabled rather than failing the process.
func (c *Channel) configure(cfg Config) {
	if !cfg.Enabled {
		c.logger.ZL.Info().Msg("push channel: not enabled")
		return
	}

	raw := []byte(cfg.CredentialsJSON)
	if len(raw) == 0 && cfg.CredentialsFile != "" {
		b, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			c.logger.ZL.Warn().Err(err).Msg("push channel: failed to read credentials file, push disabled")
			return
		}
		raw = b
	}
	if len(raw) == 0 {
		c.logger.ZL.Warn().Msg("push channel: no service account credentials, push disabled")
		return
	}

	var account struct {
		ProjectID string `json:"project_id"`
	}
	if err := json.Unmarshal(raw, &account); err != nil || account.ProjectID == "" {
		c.logger.ZL.Warn().Err(err).Msg("push channel: invalid service account JSON, push disabled")
		return
	}

	creds, err := google.CredentialsFromJSON(context.Background(), raw, fcmScope)
	if err != nil {
		c.logger.ZL.Warn().Err(err).Msg("push channel: failed to parse credentials, push disabled")
		return
	}

	c.projectID = account.ProjectID
	c.tokens = creds.TokenSource
	c.enabled = true
	c.logger.ZL.Info().Str("project", account.ProjectID).Msg("push channel initialized")
}

func (c *Channel) Name() model.ChannelName {
	return model.ChannelPush
}

// Eligible filters recipients down to those with a device token and push
// not explicitly opted out.
func Eligible(recipients []model.Recipient) []model.Recipient {
	var out []model.Recipient
	for _, r := range recipients {
		if r.PushToken != "" && r.PushEnabled() {
			out = append(out, r)
		}
	}
	return out
}

// Send delivers the event to every eligible device. The bearer token
// exchange happens once per batch; if it fails no request can proceed, so
// the whole batch is reported failed. Individual device failures are
// isolated, and a permanently invalid token triggers the clear-token side
// effect so it is never retried on later dispatches.
func (c *Channel) Send(ctx context.Context, event model.Event, recipients []model.Recipient, data map[string]interface{}, meta model.Meta) (*model.DeliveryReport, error) {
	if !c.enabled || c.tokens == nil {
		return model.SkippedReport("push notifications not enabled"), nil
	}

	msg, ok := render(event.Key, data)
	if !ok {
		return model.SkippedReport("no template"), nil
	}

	eligible := Eligible(recipients)
	if len(eligible) == 0 {
		return model.SkippedReport("no recipients with push tokens"), nil
	}

	tok, err := c.tokens.Token()
	if err != nil {
		c.logger.ZL.Error().Err(err).Msg("push channel: credential exchange failed")
		return &model.DeliveryReport{
			Failed: len(eligible),
			Details: []model.DeliveryDetail{
				{Error: fmt.Sprintf("credential exchange failed: %v", err)},
			},
		}, nil
	}

	start := time.Now()
	defer func() {
		if c.metrics != nil {
			c.metrics.ChannelLatency.WithLabelValues(string(model.ChannelPush)).Observe(time.Since(start).Seconds())
		}
	}()

	report := &model.DeliveryReport{}
	for _, rec := range eligible {
		detail := c.sendOne(ctx, tok.AccessToken, rec, event, msg)
		if detail.Success {
			report.Sent++
		} else {
			report.Failed++
		}
		if c.metrics != nil {
			status := "sent"
			if !detail.Success {
				status = "failed"
			}
			c.metrics.ChannelSends.WithLabelValues(string(model.ChannelPush), status).Inc()
		}
		report.Details = append(report.Details, detail)
	}

	return report, nil
}

func (c *Channel) sendOne(ctx context.Context, accessToken string, rec model.Recipient, event model.Event, msg message) model.DeliveryDetail {
	detail := model.DeliveryDetail{UserID: rec.UserID}

	body, err := json.Marshal(buildRequest(rec.PushToken, event, msg))
	if err != nil {
		detail.Error = err.Error()
		return detail
	}

	url := fmt.Sprintf("https://fcm.googleapis.com/v1/projects/%s/messages:send", c.projectID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		detail.Error = err.Error()
		return detail
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.ZL.Error().Err(err).Str("user_id", rec.UserID.String()).Msg("push send failed")
		detail.Error = err.Error()
		return detail
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode == http.StatusOK {
		var okResp struct {
			Name string `json:"name"`
		}
		_ = json.Unmarshal(respBody, &okResp)
		detail.Success = true
		detail.MessageID = okResp.Name
		c.logger.ZL.Debug().Str("user_id", rec.UserID.String()).Str("title", msg.Title).Msg("push sent")
		return detail
	}

	errMsg, errCode := parseError(respBody)
	detail.Error = errMsg
	c.logger.ZL.Error().
		Str("user_id", rec.UserID.String()).
		Int("status", resp.StatusCode).
		Str("fcm_error", errCode).
		Msg("push send rejected")

	if isUnregistered(resp.StatusCode, errMsg, errCode) {
		c.invalidateToken(ctx, rec.UserID)
	}

	return detail
}

// invalidateToken clears a dead device token so later dispatches stop
// retrying it. Clearing twice is harmless.
func (c *Channel) invalidateToken(ctx context.Context, userID uuid.UUID) {
	if c.users == nil {
		return
	}
	if err := c.users.ClearPushToken(ctx, userID); err != nil {
		c.logger.ZL.Error().Err(err).Str("user_id", userID.String()).Msg("failed to clear push token")
		return
	}
	if c.metrics != nil {
		c.metrics.TokensInvalidated.Inc()
	}
	c.logger.ZL.Info().Str("user_id", userID.String()).Msg("cleared invalid push token")
}

// Verify fetches a bearer token to prove the credential works.
func (c *Channel) Verify(ctx context.Context) error {
	if !c.enabled || c.tokens == nil {
		return nil
	}
	if _, err := c.tokens.Token(); err != nil {
		return fmt.Errorf("push credential check failed: %w", err)
	}
	return nil
}

func parseError(body []byte) (msg, code string) {
	var e struct {
		Error struct {
			Message string `json:"message"`
			Status  string `json:"status"`
			Details []struct {
				ErrorCode string `json:"errorCode"`
			} `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &e); err != nil {
		return string(body), ""
	}
	msg = e.Error.Message
	if msg == "" {
		msg = e.Error.Status
	}
	for _, d := range e.Error.Details {
		if d.ErrorCode != "" {
			code = d.ErrorCode
			break
		}
	}
	return msg, code
}

func isUnregistered(status int, errMsg, errCode string) bool {
	if errCode == "UNREGISTERED" {
		return true
	}
	if status == http.StatusNotFound {
		return true
	}
	return strings.Contains(errMsg, "not a valid FCM registration token") ||
		strings.Contains(errMsg, "Requested entity was not found")
}
