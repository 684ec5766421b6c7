package email

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"github.com/cleanguard/qc-api/internal/model"
	"github.com/cleanguard/qc-api/internal/notifier"
	"github.com/cleanguard/qc-api/pkg/logger"
)

type fakeSender struct {
	sent    []string
	failFor map[string]error
}

func (f *fakeSender) DialAndSend(msgs ...*gomail.Message) error {
	for _, m := range msgs {
		to := m.GetHeader("To")[0]
		if err, ok := f.failFor[to]; ok {
			return err
		}
		f.sent = append(f.sent, to)
	}
	return nil
}

func newTestChannel(s sender) *Channel {
	return New(Config{From: "noreply@x.test", FromName: "Test"}, logger.Nop(), withSender(s))
}

func ticketPayload() map[string]interface{} {
	return map[string]interface{}{
		"ticket": map[string]interface{}{
			"title":        "Broken sink",
			"locationName": "Building A",
			"priority":     "high",
			"status":       "open",
		},
	}
}

func mustEvent(t *testing.T, key model.EventKey) model.Event {
	t.Helper()
	evt, err := notifier.LookupEvent(key)
	require.NoError(t, err)
	return evt
}

func TestSendDeliversToEligibleRecipients(t *testing.T) {
	s := &fakeSender{}
	ch := newTestChannel(s)

	report, err := ch.Send(context.Background(), mustEvent(t, model.EventTicketCreated), []model.Recipient{
		{Email: "a@x.test"},
		{Email: "b@x.test"},
	}, ticketPayload(), model.Meta{})

	require.NoError(t, err)
	assert.Equal(t, 2, report.Sent)
	assert.Zero(t, report.Failed)
	assert.Equal(t, []string{"a@x.test", "b@x.test"}, s.sent)
}

func TestSendSkipsWithoutTemplate(t *testing.T) {
	s := &fakeSender{}
	ch := newTestChannel(s)

	report, err := ch.Send(context.Background(), model.Event{Key: model.EventKey("BOGUS")}, []model.Recipient{
		{Email: "a@x.test"},
	}, nil, model.Meta{})

	require.NoError(t, err)
	assert.True(t, report.Skipped)
	assert.Equal(t, "no template", report.Reason)
	assert.Empty(t, s.sent)
}

func TestSendSkipsWithoutEligibleRecipients(t *testing.T) {
	optOut := false
	ch := newTestChannel(&fakeSender{})

	report, err := ch.Send(context.Background(), mustEvent(t, model.EventTicketCreated), []model.Recipient{
		{Email: ""},
		{Email: "out@x.test", EmailOptIn: &optOut},
	}, ticketPayload(), model.Meta{})

	require.NoError(t, err)
	assert.True(t, report.Skipped)
	assert.Equal(t, "no eligible recipients", report.Reason)
}

func TestEligibleFailOpen(t *testing.T) {
	optIn := true
	optOut := false
	recipients := []model.Recipient{
		{Email: "unset@x.test"},
		{Email: "in@x.test", EmailOptIn: &optIn},
		{Email: "out@x.test", EmailOptIn: &optOut},
		{Email: ""},
	}

	eligible := Eligible(recipients)
	require.Len(t, eligible, 2)
	assert.Equal(t, "unset@x.test", eligible[0].Email)
	assert.Equal(t, "in@x.test", eligible[1].Email)
}

func TestSendIsolatesPerRecipientFailures(t *testing.T) {
	s := &fakeSender{failFor: map[string]error{"bad@x.test": errors.New("mailbox unavailable")}}
	ch := newTestChannel(s)

	report, err := ch.Send(context.Background(), mustEvent(t, model.EventTicketCreated), []model.Recipient{
		{Email: "bad@x.test"},
		{Email: "good@x.test"},
	}, ticketPayload(), model.Meta{})

	require.NoError(t, err)
	assert.Equal(t, 1, report.Sent)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Details, 2)
	assert.Contains(t, report.Details[0].Error, "mailbox unavailable")
	assert.True(t, report.Details[1].Success)
}

func TestLogOnlyMode(t *testing.T) {
	// No credentials: every send is recorded as a logged success.
	ch := New(Config{Host: "smtp.x.test", Port: 587, From: "noreply@x.test"}, logger.Nop())

	report, err := ch.Send(context.Background(), mustEvent(t, model.EventTicketCreated), []model.Recipient{
		{Email: "a@x.test"},
	}, ticketPayload(), model.Meta{})

	require.NoError(t, err)
	assert.Equal(t, 1, report.Sent)
	require.Len(t, report.Details, 1)
	assert.True(t, report.Details[0].LogOnly)
}

func TestVerifyLogOnlyAlwaysHealthy(t *testing.T) {
	ch := New(Config{}, logger.Nop())
	assert.NoError(t, ch.Verify(context.Background()))
}

func TestEveryEmailEventHasTemplate(t *testing.T) {
	for _, evt := range notifier.Events() {
		for _, name := range evt.Channels {
			if name != model.ChannelEmail {
				continue
			}
			subject, body, ok := render(evt.Key, map[string]interface{}{})
			assert.True(t, ok, "event %s declares email but has no template", evt.Key)
			assert.NotEmpty(t, subject, "event %s renders empty subject", evt.Key)
			assert.NotEmpty(t, body, "event %s renders empty body", evt.Key)
		}
	}
}

func TestRenderFillsTicketFields(t *testing.T) {
	subject, body, ok := render(model.EventTicketCreated, ticketPayload())
	require.True(t, ok)
	assert.Equal(t, "New Ticket: Broken sink", subject)
	assert.Contains(t, body, "Building A")
	assert.Contains(t, body, "high")
}

func TestRenderMissingDataFallsBack(t *testing.T) {
	subject, body, ok := render(model.EventTicketCreated, nil)
	require.True(t, ok)
	assert.Contains(t, subject, "N/A")
	assert.Contains(t, body, "N/A")
}
