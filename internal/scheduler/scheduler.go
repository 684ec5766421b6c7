package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cleanguard/qc-api/internal/model"
	"github.com/cleanguard/qc-api/internal/notifier"
	"github.com/cleanguard/qc-api/internal/repository"
	"github.com/cleanguard/qc-api/pkg/logger"
	"github.com/cleanguard/qc-api/pkg/metrics"
)

// Clock abstracts wall time so sweeps can be tested at fixed instants.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Notifier is the dispatch surface the scheduler drives. Satisfied by
// *notifier.Service.
type Notifier interface {
	Notify(ctx context.Context, key model.EventKey, payload model.NotificationPayload) model.NotifyResult
}

// Config controls when the daily reminder run fires, in the business
// timezone rather than server time.
type Config struct {
	Hour     int
	Minute   int
	Timezone string
}

// Scheduler runs the daily reminder sweeps. It keeps no ledger of past
// runs: if the process restarts before the run hour, that day's reminders
// go out again. Duplicate reminders are preferred over missed ones.
type Scheduler struct {
	cfg      Config
	loc      *time.Location
	clock    Clock
	notifier Notifier
	resolver *notifier.Resolver
	tickets  repository.TicketRepository
	insps    repository.InspectionRepository
	metrics  *metrics.Metrics
	logger   *logger.Logger
}

type Option func(*Scheduler)

func WithClock(c Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scheduler) { s.metrics = m }
}

func New(cfg Config, n Notifier, resolver *notifier.Resolver, tickets repository.TicketRepository, insps repository.InspectionRepository, log *logger.Logger, opts ...Option) (*Scheduler, error) {
	if cfg.Timezone == "" {
		cfg.Timezone = "America/Los_Angeles"
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid scheduler timezone %q: %w", cfg.Timezone, err)
	}

	s := &Scheduler{
		cfg:      cfg,
		loc:      loc,
		clock:    systemClock{},
		notifier: n,
		resolver: resolver,
		tickets:  tickets,
		insps:    insps,
		logger:   log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start blocks until the context is cancelled, firing the daily sweeps at
// the configured local time. Uses a plain timer recomputed after each run
// so DST transitions in the business timezone are handled by the location
// math, not by a fixed 24h interval.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.ZL.Info().
		Int("hour", s.cfg.Hour).
		Int("minute", s.cfg.Minute).
		Str("timezone", s.cfg.Timezone).
		Msg("reminder scheduler started")

	for {
		next := s.nextRun(s.clock.Now())
		timer := time.NewTimer(next.Sub(s.clock.Now()))

		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.ZL.Info().Msg("reminder scheduler stopped")
			return
		case <-timer.C:
			s.RunDailySweeps(ctx)
		}
	}
}

// nextRun returns the next instant the daily run should fire, strictly
// after now.
func (s *Scheduler) nextRun(now time.Time) time.Time {
	local := now.In(s.loc)
	run := time.Date(local.Year(), local.Month(), local.Day(), s.cfg.Hour, s.cfg.Minute, 0, 0, s.loc)
	if !run.After(now) {
		run = run.AddDate(0, 0, 1)
	}
	return run
}

// DayBounds returns the start and end of the calendar day containing now in
// the given timezone. End is the last representable millisecond of the day,
// so BETWEEN queries include items scheduled at any time that day. Both
// bounds come from the calendar date rather than a fixed 24h offset, so
// 23- and 25-hour DST transition days keep their full local window.
func DayBounds(now time.Time, loc *time.Location) (start, end time.Time) {
	local := now.In(loc)
	start = time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	end = time.Date(local.Year(), local.Month(), local.Day(), 23, 59, 59, 999000000, loc)
	return start, end
}

// DaysOverdue reports how many days past due an item is, rounding any
// partial day up. Exactly 24h late is 1 day; one second past that is 2.
func DaysOverdue(due, now time.Time) int {
	elapsed := now.Sub(due)
	if elapsed <= 0 {
		return 0
	}
	days := int(elapsed / (24 * time.Hour))
	if elapsed%(24*time.Hour) > 0 {
		days++
	}
	return days
}

// RunDailySweeps executes the five reminder sweeps. Each sweep is isolated:
// a failure is logged and counted, and the remaining sweeps still run.
func (s *Scheduler) RunDailySweeps(ctx context.Context) {
	now := s.clock.Now()
	s.logger.ZL.Info().Time("at", now).Msg("running daily reminder sweeps")

	sweeps := []struct {
		name string
		fn   func(context.Context, time.Time) error
	}{
		{"tickets_due_today", s.sweepTicketsDueToday},
		{"tickets_due_tomorrow", s.sweepTicketsDueTomorrow},
		{"tickets_overdue", s.sweepTicketsOverdue},
		{"inspections_due_today", s.sweepInspectionsDueToday},
		{"inspections_due_tomorrow", s.sweepInspectionsDueTomorrow},
	}

	for _, sweep := range sweeps {
		started := s.clock.Now()
		err := sweep.fn(ctx, now)
		status := "ok"
		if err != nil {
			status = "error"
			s.logger.ZL.Error().Err(err).Str("sweep", sweep.name).Msg("reminder sweep failed")
		}
		if s.metrics != nil {
			s.metrics.SweepRuns.WithLabelValues(sweep.name, status).Inc()
			s.metrics.SweepDuration.WithLabelValues(sweep.name).Observe(time.Since(started).Seconds())
		}
	}
}

func (s *Scheduler) sweepTicketsDueToday(ctx context.Context, now time.Time) error {
	start, end := DayBounds(now, s.loc)
	return s.remindTickets(ctx, model.EventTicketReminderToday, start, end)
}

func (s *Scheduler) sweepTicketsDueTomorrow(ctx context.Context, now time.Time) error {
	start, end := DayBounds(now.AddDate(0, 0, 1), s.loc)
	return s.remindTickets(ctx, model.EventTicketReminderTomorrow, start, end)
}

func (s *Scheduler) sweepInspectionsDueToday(ctx context.Context, now time.Time) error {
	start, end := DayBounds(now, s.loc)
	return s.remindInspections(ctx, model.EventInspectionReminderToday, start, end)
}

func (s *Scheduler) sweepInspectionsDueTomorrow(ctx context.Context, now time.Time) error {
	start, end := DayBounds(now.AddDate(0, 0, 1), s.loc)
	return s.remindInspections(ctx, model.EventInspectionReminderTomorrow, start, end)
}

// remindTickets notifies the assignee of each ticket scheduled in the
// window.
func (s *Scheduler) remindTickets(ctx context.Context, key model.EventKey, start, end time.Time) error {
	tickets, err := s.tickets.ListScheduledBetween(ctx, start, end)
	if err != nil {
		return fmt.Errorf("failed to list scheduled tickets: %w", err)
	}

	for _, t := range tickets {
		assignee, err := s.recipientFor(ctx, t.AssignedTo)
		if err != nil {
			s.logger.ZL.Error().Err(err).Str("ticket_id", t.ID.String()).Msg("failed to resolve ticket assignee")
			continue
		}
		if len(assignee) == 0 {
			continue
		}
		s.notify(ctx, key, assignee, map[string]interface{}{"ticket": ticketData(t)})
	}

	s.logger.ZL.Info().Str("event", string(key)).Int("count", len(tickets)).Msg("ticket reminder sweep complete")
	return nil
}

// sweepTicketsOverdue notifies admins plus the assignee for every ticket
// past its due date. The day count is anchored at today's start, not the
// sweep's trigger instant, so the reported number does not depend on what
// hour the sweep runs.
func (s *Scheduler) sweepTicketsOverdue(ctx context.Context, now time.Time) error {
	start, _ := DayBounds(now, s.loc)
	tickets, err := s.tickets.ListOverdue(ctx, start)
	if err != nil {
		return fmt.Errorf("failed to list overdue tickets: %w", err)
	}

	admins, err := s.resolver.AdminRecipients(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve overdue audience: %w", err)
	}

	for _, t := range tickets {
		if t.DueDate == nil {
			continue
		}
		assignee, err := s.recipientFor(ctx, t.AssignedTo)
		if err != nil {
			s.logger.ZL.Error().Err(err).Str("ticket_id", t.ID.String()).Msg("failed to resolve ticket assignee")
			assignee = nil
		}
		recipients := notifier.MergeRecipients(admins, assignee)
		if len(recipients) == 0 {
			continue
		}
		s.notify(ctx, model.EventTicketOverdue, recipients, map[string]interface{}{
			"ticket":      ticketData(t),
			"daysOverdue": DaysOverdue(*t.DueDate, start),
		})
	}

	s.logger.ZL.Info().Int("count", len(tickets)).Msg("overdue ticket sweep complete")
	return nil
}

func (s *Scheduler) remindInspections(ctx context.Context, key model.EventKey, start, end time.Time) error {
	insps, err := s.insps.ListScheduledBetween(ctx, start, end)
	if err != nil {
		return fmt.Errorf("failed to list scheduled inspections: %w", err)
	}

	for _, i := range insps {
		inspector, err := s.recipientFor(ctx, i.InspectorID)
		if err != nil {
			s.logger.ZL.Error().Err(err).Str("inspection_id", i.ID.String()).Msg("failed to resolve inspector")
			continue
		}
		if len(inspector) == 0 {
			continue
		}
		s.notify(ctx, key, inspector, map[string]interface{}{"inspection": inspectionData(i)})
	}

	s.logger.ZL.Info().Str("event", string(key)).Int("count", len(insps)).Msg("inspection reminder sweep complete")
	return nil
}

func (s *Scheduler) recipientFor(ctx context.Context, id *uuid.UUID) ([]model.Recipient, error) {
	if id == nil {
		return nil, nil
	}
	rec, err := s.resolver.UserRecipient(ctx, *id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}
	return []model.Recipient{*rec}, nil
}

func (s *Scheduler) notify(ctx context.Context, key model.EventKey, recipients []model.Recipient, data map[string]interface{}) {
	result := s.notifier.Notify(ctx, key, model.NotificationPayload{
		Recipients: recipients,
		Data:       data,
	})
	if result.Err != "" {
		s.logger.ZL.Error().Str("event", string(key)).Str("error", result.Err).Msg("reminder dispatch failed")
	}
}

func ticketData(t *model.Ticket) map[string]interface{} {
	return map[string]interface{}{
		"id":           t.ID.String(),
		"title":        t.Title,
		"locationName": t.LocationName,
		"priority":     t.Priority,
		"status":       t.Status,
	}
}

func inspectionData(i *model.Inspection) map[string]interface{} {
	return map[string]interface{}{
		"id":           i.ID.String(),
		"locationName": i.LocationName,
		"templateName": i.TemplateName,
		"status":       i.Status,
	}
}
