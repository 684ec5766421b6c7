package notifier

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cleanguard/qc-api/internal/model"
	"github.com/cleanguard/qc-api/pkg/logger"
	"github.com/cleanguard/qc-api/pkg/messaging"
	"github.com/cleanguard/qc-api/pkg/metrics"
)

const outcomesTopic = "notifications.outcomes"

// Service routes events to their declared channels. Channels are isolated
// from each other: one transport blowing up must never suppress delivery on
// its siblings, so every send runs inside its own failure boundary and the
// aggregate call never returns a Go error.
type Service struct {
	mu          sync.RWMutex
	channels    map[model.ChannelName]Channel
	enabled     bool
	sendTimeout time.Duration
	broker      messaging.Broker
	metrics     *metrics.Metrics
	logger      *logger.Logger
}

type ServiceOption func(*Service)

// WithBroker publishes a summary of every dispatch outcome to Redis for
// operator tooling. Optional.
func WithBroker(b messaging.Broker) ServiceOption {
	return func(s *Service) { s.broker = b }
}

func WithMetrics(m *metrics.Metrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// WithSendTimeout bounds each channel's batch send so a stalled transport
// cannot pile up detached dispatches.
func WithSendTimeout(d time.Duration) ServiceOption {
	return func(s *Service) { s.sendTimeout = d }
}

func NewService(enabled bool, log *logger.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		channels:    make(map[model.ChannelName]Channel),
		enabled:     enabled,
		sendTimeout: 30 * time.Second,
		logger:      log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterChannel adds a delivery transport. Called at startup and from the
// admin surface; steady-state dispatch only reads the registry.
func (s *Service) RegisterChannel(ch Channel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channels[ch.Name()] = ch
	s.logger.ZL.Info().Str("channel", string(ch.Name())).Msg("notification channel registered")
}

// RemoveChannel removes a delivery transport.
func (s *Service) RemoveChannel(name model.ChannelName) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.channels, name)
	s.logger.ZL.Info().Str("channel", string(name)).Msg("notification channel removed")
}

// RegisteredChannels lists the channel names currently registered.
func (s *Service) RegisteredChannels() []model.ChannelName {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]model.ChannelName, 0, len(s.channels))
	for name := range s.channels {
		names = append(names, name)
	}
	return names
}

// HasChannel reports whether a channel is registered.
func (s *Service) HasChannel(name model.ChannelName) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.channels[name]
	return ok
}

// Channels returns the registered channels, for readiness checks.
func (s *Service) Channels() []Channel {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Channel, 0, len(s.channels))
	for _, ch := range s.channels {
		out = append(out, ch)
	}
	return out
}

// Notify fans one event out to every channel the event declares, in
// declared order. It never returns a Go error; callers inspect the result.
// An unknown event key is a programmer error and is surfaced in Err with
// zero channel calls performed.
func (s *Service) Notify(ctx context.Context, key model.EventKey, payload model.NotificationPayload) model.NotifyResult {
	if !s.enabled {
		return model.NotifyResult{Skipped: true, Reason: "notifications disabled"}
	}

	event, err := LookupEvent(key)
	if err != nil {
		s.logger.ZL.Warn().Str("event", string(key)).Msg("unknown notification event")
		return model.NotifyResult{Err: err.Error()}
	}

	if len(payload.Recipients) == 0 {
		return model.NotifyResult{Skipped: true, Reason: "no recipients"}
	}

	start := time.Now()
	result := model.NotifyResult{
		Channels: make(map[model.ChannelName]model.ChannelOutcome, len(event.Channels)),
	}

	s.logger.ZL.Info().
		Str("event", string(key)).
		Int("recipients", len(payload.Recipients)).
		Msg("dispatching notification")

	for _, name := range event.Channels {
		s.mu.RLock()
		ch, ok := s.channels[name]
		s.mu.RUnlock()

		if !ok {
			result.Channels[name] = model.ChannelOutcome{
				Skipped: true,
				Reason:  "channel not registered",
			}
			continue
		}

		result.Channels[name] = s.sendToChannel(ctx, ch, event, payload)
	}

	if s.metrics != nil {
		s.metrics.DispatchesTotal.WithLabelValues(string(key), outcomeLabel(result)).Inc()
		s.metrics.DispatchLatency.WithLabelValues(string(key)).Observe(time.Since(start).Seconds())
	}

	s.publishOutcome(ctx, key, result)

	return result
}

// sendToChannel invokes one channel inside a failure boundary: errors and
// panics become outcomes, never propagation.
func (s *Service) sendToChannel(ctx context.Context, ch Channel, event model.Event, payload model.NotificationPayload) (outcome model.ChannelOutcome) {
	defer func() {
		if p := recover(); p != nil {
			s.logger.ZL.Error().
				Str("channel", string(ch.Name())).
				Str("event", string(event.Key)).
				Interface("panic", p).
				Msg("channel send panicked")
			outcome = model.ChannelOutcome{Error: fmt.Sprintf("panic: %v", p)}
		}
	}()

	sendCtx := ctx
	if s.sendTimeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, s.sendTimeout)
		defer cancel()
	}

	report, err := ch.Send(sendCtx, event, payload.Recipients, payload.Data, payload.Meta)
	if err != nil {
		s.logger.ZL.Error().Err(err).
			Str("channel", string(ch.Name())).
			Str("event", string(event.Key)).
			Msg("channel send failed")
		return model.ChannelOutcome{Error: err.Error()}
	}

	if report != nil && report.Skipped {
		return model.ChannelOutcome{Skipped: true, Reason: report.Reason, Report: report}
	}

	return model.ChannelOutcome{Success: true, Report: report}
}

func (s *Service) publishOutcome(ctx context.Context, key model.EventKey, result model.NotifyResult) {
	if s.broker == nil {
		return
	}
	msg := messaging.Message{Type: string(key), Payload: result}
	if err := s.broker.Publish(ctx, outcomesTopic, msg); err != nil {
		s.logger.ZL.Warn().Err(err).Msg("failed to publish notification outcome")
	}
}

func outcomeLabel(result model.NotifyResult) string {
	switch {
	case result.Err != "":
		return "error"
	case result.Skipped:
		return "skipped"
	default:
		for _, ch := range result.Channels {
			if ch.Error != "" {
				return "partial"
			}
		}
		return "ok"
	}
}
