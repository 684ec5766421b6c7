package scheduler

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleanguard/qc-api/internal/model"
	"github.com/cleanguard/qc-api/internal/notifier"
	"github.com/cleanguard/qc-api/pkg/logger"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type recordedNotify struct {
	key     model.EventKey
	payload model.NotificationPayload
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls []recordedNotify
}

func (f *fakeNotifier) Notify(_ context.Context, key model.EventKey, payload model.NotificationPayload) model.NotifyResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, recordedNotify{key: key, payload: payload})
	return model.NotifyResult{}
}

func (f *fakeNotifier) byKey(key model.EventKey) []recordedNotify {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []recordedNotify
	for _, c := range f.calls {
		if c.key == key {
			out = append(out, c)
		}
	}
	return out
}

type fakeTicketRepo struct {
	scheduled map[int64][]*model.Ticket
	overdue   []*model.Ticket
	schedErr  error
}

func (f *fakeTicketRepo) ListScheduledBetween(_ context.Context, start, _ time.Time) ([]*model.Ticket, error) {
	if f.schedErr != nil {
		return nil, f.schedErr
	}
	return f.scheduled[start.Unix()], nil
}

func (f *fakeTicketRepo) ListOverdue(_ context.Context, _ time.Time) ([]*model.Ticket, error) {
	return f.overdue, nil
}

type fakeInspectionRepo struct {
	scheduled map[int64][]*model.Inspection
}

func (f *fakeInspectionRepo) ListScheduledBetween(_ context.Context, start, _ time.Time) ([]*model.Inspection, error) {
	return f.scheduled[start.Unix()], nil
}

type fakeUserRepo struct {
	users  map[uuid.UUID]*model.User
	admins []*model.User
}

func (f *fakeUserRepo) Get(_ context.Context, id uuid.UUID) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return u, nil
}

func (f *fakeUserRepo) ListByRoles(_ context.Context, _ ...string) ([]*model.User, error) {
	return f.admins, nil
}

func (f *fakeUserRepo) ListClientsForLocation(_ context.Context, _ uuid.UUID) ([]*model.User, error) {
	return nil, nil
}

func (f *fakeUserRepo) ClearPushToken(_ context.Context, _ uuid.UUID) error { return nil }

func newUser(email, role string) *model.User {
	u := &model.User{Email: email, Name: email, Role: role}
	u.ID = uuid.New()
	return u
}

func ticketAt(at time.Time, assignee *uuid.UUID) *model.Ticket {
	t := &model.Ticket{
		Title:         "Broken sink",
		Status:        model.TicketStatusOpen,
		LocationName:  "Building A",
		AssignedTo:    assignee,
		ScheduledDate: &at,
	}
	t.ID = uuid.New()
	return t
}

func TestDayBounds(t *testing.T) {
	loc := time.FixedZone("UTC-8", -8*3600)
	now := time.Date(2025, 6, 15, 14, 30, 0, 0, loc)

	start, end := DayBounds(now, loc)

	assert.Equal(t, time.Date(2025, 6, 15, 0, 0, 0, 0, loc), start)
	assert.Equal(t, time.Date(2025, 6, 15, 23, 59, 59, 999000000, loc), end)
}

func TestDayBoundsCrossesDateLine(t *testing.T) {
	// 02:00 UTC on the 16th is still the 15th at UTC-8. The window must be
	// the local calendar day, not the UTC one.
	loc := time.FixedZone("UTC-8", -8*3600)
	now := time.Date(2025, 6, 16, 2, 0, 0, 0, time.UTC)

	start, _ := DayBounds(now, loc)
	assert.Equal(t, time.Date(2025, 6, 15, 0, 0, 0, 0, loc), start)
}

func TestDayBoundsFallBackDayIsTwentyFiveHours(t *testing.T) {
	loc, err := time.LoadLocation("America/Los_Angeles")
	require.NoError(t, err)

	// DST ends 2025-11-02: the local day has 25 hours. The window must
	// still end at 23:59:59.999, not an hour early.
	now := time.Date(2025, 11, 2, 8, 0, 0, 0, loc)
	start, end := DayBounds(now, loc)

	assert.Equal(t, 0, start.Hour())
	assert.Equal(t, 23, end.Hour())
	assert.Equal(t, 25*time.Hour-time.Millisecond, end.Sub(start))
}

func TestDayBoundsSpringForwardDayIsTwentyThreeHours(t *testing.T) {
	loc, err := time.LoadLocation("America/Los_Angeles")
	require.NoError(t, err)

	now := time.Date(2025, 3, 9, 8, 0, 0, 0, loc)
	start, end := DayBounds(now, loc)

	assert.Equal(t, 23, end.Hour())
	assert.Equal(t, 23*time.Hour-time.Millisecond, end.Sub(start))
}

func TestDaysOverdue(t *testing.T) {
	due := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		elapsed time.Duration
		want    int
	}{
		{0, 0},
		{-time.Hour, 0},
		{time.Second, 1},
		{24 * time.Hour, 1},
		{24*time.Hour + time.Second, 2},
		{48 * time.Hour, 2},
		{49 * time.Hour, 3},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, DaysOverdue(due, due.Add(tc.elapsed)), "elapsed %s", tc.elapsed)
	}
}

func newTestScheduler(t *testing.T, now time.Time, n Notifier, users *fakeUserRepo, tickets *fakeTicketRepo, insps *fakeInspectionRepo) *Scheduler {
	t.Helper()
	s, err := New(Config{Hour: 8, Timezone: "UTC"}, n, notifier.NewResolver(users),
		tickets, insps, logger.Nop(), WithClock(fixedClock{t: now}))
	require.NoError(t, err)
	return s
}

func TestRunDailySweepsFiresReminders(t *testing.T) {
	now := time.Date(2025, 6, 15, 8, 0, 0, 0, time.UTC)
	todayStart, _ := DayBounds(now, time.UTC)
	tomorrowStart, _ := DayBounds(now.AddDate(0, 0, 1), time.UTC)

	assignee := newUser("worker@x.test", model.RoleSupervisor)
	inspector := newUser("inspector@x.test", model.RoleSupervisor)

	tickets := &fakeTicketRepo{scheduled: map[int64][]*model.Ticket{
		todayStart.Unix():    {ticketAt(now, &assignee.ID)},
		tomorrowStart.Unix(): {ticketAt(now.AddDate(0, 0, 1), &assignee.ID)},
	}}
	sched := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	insp := &model.Inspection{LocationName: "Building A", Status: model.InspectionStatusPending, InspectorID: &inspector.ID, ScheduledDate: &sched}
	insp.ID = uuid.New()
	insps := &fakeInspectionRepo{scheduled: map[int64][]*model.Inspection{
		todayStart.Unix(): {insp},
	}}
	users := &fakeUserRepo{users: map[uuid.UUID]*model.User{
		assignee.ID:  assignee,
		inspector.ID: inspector,
	}}

	n := &fakeNotifier{}
	s := newTestScheduler(t, now, n, users, tickets, insps)
	s.RunDailySweeps(context.Background())

	today := n.byKey(model.EventTicketReminderToday)
	require.Len(t, today, 1)
	require.Len(t, today[0].payload.Recipients, 1)
	assert.Equal(t, "worker@x.test", today[0].payload.Recipients[0].Email)

	assert.Len(t, n.byKey(model.EventTicketReminderTomorrow), 1)

	inspToday := n.byKey(model.EventInspectionReminderToday)
	require.Len(t, inspToday, 1)
	assert.Equal(t, "inspector@x.test", inspToday[0].payload.Recipients[0].Email)
	assert.Empty(t, n.byKey(model.EventInspectionReminderTomorrow))
}

func TestRunDailySweepsSkipsUnassigned(t *testing.T) {
	now := time.Date(2025, 6, 15, 8, 0, 0, 0, time.UTC)
	todayStart, _ := DayBounds(now, time.UTC)

	tickets := &fakeTicketRepo{scheduled: map[int64][]*model.Ticket{
		todayStart.Unix(): {ticketAt(now, nil)},
	}}

	n := &fakeNotifier{}
	s := newTestScheduler(t, now, n, &fakeUserRepo{}, tickets, &fakeInspectionRepo{})
	s.RunDailySweeps(context.Background())

	assert.Empty(t, n.byKey(model.EventTicketReminderToday))
}

func TestOverdueSweepMergesAdminsAndAssignee(t *testing.T) {
	now := time.Date(2025, 6, 15, 8, 0, 0, 0, time.UTC)
	admin := newUser("admin@x.test", model.RoleAdmin)
	assignee := newUser("worker@x.test", model.RoleSupervisor)

	todayStart, _ := DayBounds(now, time.UTC)
	due := todayStart.Add(-49 * time.Hour)
	overdue := ticketAt(due, &assignee.ID)
	overdue.DueDate = &due

	tickets := &fakeTicketRepo{overdue: []*model.Ticket{overdue}}
	users := &fakeUserRepo{
		users:  map[uuid.UUID]*model.User{assignee.ID: assignee},
		admins: []*model.User{admin},
	}

	n := &fakeNotifier{}
	s := newTestScheduler(t, now, n, users, tickets, &fakeInspectionRepo{})
	s.RunDailySweeps(context.Background())

	calls := n.byKey(model.EventTicketOverdue)
	require.Len(t, calls, 1)

	recipients := calls[0].payload.Recipients
	require.Len(t, recipients, 2)
	assert.Equal(t, "admin@x.test", recipients[0].Email)
	assert.Equal(t, "worker@x.test", recipients[1].Email)

	assert.Equal(t, 3, calls[0].payload.Data["daysOverdue"])
}

func TestOverdueDayCountAnchoredAtDayStart(t *testing.T) {
	// The sweep runs at 08:00 but the day count is measured from midnight.
	// A ticket due exactly 24h before today's start is 1 day overdue no
	// matter what hour the sweep fires.
	now := time.Date(2025, 6, 15, 8, 0, 0, 0, time.UTC)
	todayStart, _ := DayBounds(now, time.UTC)

	admin := newUser("admin@x.test", model.RoleAdmin)
	due := todayStart.Add(-24 * time.Hour)
	overdue := ticketAt(due, nil)
	overdue.DueDate = &due

	tickets := &fakeTicketRepo{overdue: []*model.Ticket{overdue}}
	users := &fakeUserRepo{admins: []*model.User{admin}}

	n := &fakeNotifier{}
	s := newTestScheduler(t, now, n, users, tickets, &fakeInspectionRepo{})
	s.RunDailySweeps(context.Background())

	calls := n.byKey(model.EventTicketOverdue)
	require.Len(t, calls, 1)
	assert.Equal(t, 1, calls[0].payload.Data["daysOverdue"])
}

func TestOverdueSweepSkipsTicketsWithoutDueDate(t *testing.T) {
	now := time.Date(2025, 6, 15, 8, 0, 0, 0, time.UTC)
	admin := newUser("admin@x.test", model.RoleAdmin)

	tickets := &fakeTicketRepo{overdue: []*model.Ticket{ticketAt(now, nil)}}
	users := &fakeUserRepo{admins: []*model.User{admin}}

	n := &fakeNotifier{}
	s := newTestScheduler(t, now, n, users, tickets, &fakeInspectionRepo{})
	s.RunDailySweeps(context.Background())

	assert.Empty(t, n.byKey(model.EventTicketOverdue))
}

func TestSweepFailureIsolated(t *testing.T) {
	now := time.Date(2025, 6, 15, 8, 0, 0, 0, time.UTC)
	todayStart, _ := DayBounds(now, time.UTC)

	inspector := newUser("inspector@x.test", model.RoleSupervisor)
	sched := now.Add(time.Hour)
	insp := &model.Inspection{LocationName: "Building A", InspectorID: &inspector.ID, ScheduledDate: &sched}
	insp.ID = uuid.New()

	tickets := &fakeTicketRepo{schedErr: errors.New("db down")}
	insps := &fakeInspectionRepo{scheduled: map[int64][]*model.Inspection{
		todayStart.Unix(): {insp},
	}}
	users := &fakeUserRepo{users: map[uuid.UUID]*model.User{inspector.ID: inspector}}

	n := &fakeNotifier{}
	s := newTestScheduler(t, now, n, users, tickets, insps)
	s.RunDailySweeps(context.Background())

	// Ticket sweeps failed; inspection sweeps still delivered.
	assert.Len(t, n.byKey(model.EventInspectionReminderToday), 1)
}

func TestNextRun(t *testing.T) {
	s, err := New(Config{Hour: 8, Timezone: "UTC"}, &fakeNotifier{}, nil, nil, nil, logger.Nop())
	require.NoError(t, err)

	before := time.Date(2025, 6, 15, 7, 59, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 6, 15, 8, 0, 0, 0, time.UTC), s.nextRun(before).UTC())

	after := time.Date(2025, 6, 15, 8, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 6, 16, 8, 0, 0, 0, time.UTC), s.nextRun(after).UTC())
}

func TestNewRejectsBadTimezone(t *testing.T) {
	_, err := New(Config{Timezone: "Mars/Olympus"}, &fakeNotifier{}, nil, nil, nil, logger.Nop())
	assert.Error(t, err)
}
