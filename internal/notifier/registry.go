package notifier

import (
	"fmt"

	"github.com/cleanguard/qc-api/internal/model"
)

// events is the static catalog of everything the system can notify about.
// Built once at init, read-only afterwards. Which channels an event declares
// is a deliberate decision: account events never use push because a fresh
// user has no device token yet.
var events = map[model.EventKey]model.Event{
	model.EventTicketCreated: {
		Key:      model.EventTicketCreated,
		Title:    "New Ticket Created",
		Channels: []model.ChannelName{model.ChannelEmail, model.ChannelPush},
		Priority: model.PriorityNormal,
	},
	model.EventTicketAssigned: {
		Key:      model.EventTicketAssigned,
		Title:    "Ticket Assigned to You",
		Channels: []model.ChannelName{model.ChannelEmail, model.ChannelPush},
		Priority: model.PriorityNormal,
	},
	model.EventTicketScheduled: {
		Key:      model.EventTicketScheduled,
		Title:    "Ticket Scheduled",
		Channels: []model.ChannelName{model.ChannelEmail, model.ChannelPush},
		Priority: model.PriorityNormal,
	},
	model.EventTicketStatusChanged: {
		Key:      model.EventTicketStatusChanged,
		Title:    "Ticket Status Updated",
		Channels: []model.ChannelName{model.ChannelEmail, model.ChannelPush},
		Priority: model.PriorityNormal,
	},
	model.EventTicketResolved: {
		Key:      model.EventTicketResolved,
		Title:    "Ticket Resolved",
		Channels: []model.ChannelName{model.ChannelEmail, model.ChannelPush},
		Priority: model.PriorityNormal,
	},
	model.EventTicketUrgent: {
		Key:      model.EventTicketUrgent,
		Title:    "Urgent Ticket Created",
		Channels: []model.ChannelName{model.ChannelEmail, model.ChannelPush},
		Priority: model.PriorityHigh,
	},

	model.EventInspectionAssigned: {
		Key:      model.EventInspectionAssigned,
		Title:    "Inspection Assigned to You",
		Channels: []model.ChannelName{model.ChannelEmail, model.ChannelPush},
		Priority: model.PriorityNormal,
	},
	model.EventInspectionScheduled: {
		Key:      model.EventInspectionScheduled,
		Title:    "Inspection Scheduled",
		Channels: []model.ChannelName{model.ChannelEmail, model.ChannelPush},
		Priority: model.PriorityNormal,
	},
	model.EventInspectionCompleted: {
		Key:      model.EventInspectionCompleted,
		Title:    "Inspection Completed",
		Channels: []model.ChannelName{model.ChannelEmail, model.ChannelPush},
		Priority: model.PriorityNormal,
	},
	model.EventInspectionDeficient: {
		Key:      model.EventInspectionDeficient,
		Title:    "Deficient Inspection Alert",
		Channels: []model.ChannelName{model.ChannelEmail, model.ChannelPush},
		Priority: model.PriorityHigh,
	},

	// No push for account events: the user may not have a token yet.
	model.EventUserWelcome: {
		Key:      model.EventUserWelcome,
		Title:    "Welcome to CleanGuard QC",
		Channels: []model.ChannelName{model.ChannelEmail},
		Priority: model.PriorityNormal,
	},
	model.EventUserUpdated: {
		Key:      model.EventUserUpdated,
		Title:    "Account Updated",
		Channels: []model.ChannelName{model.ChannelEmail},
		Priority: model.PriorityNormal,
	},

	model.EventBulkTicketsCreated: {
		Key:      model.EventBulkTicketsCreated,
		Title:    "Bulk Tickets Created from Inspection",
		Channels: []model.ChannelName{model.ChannelEmail, model.ChannelPush},
		Priority: model.PriorityNormal,
	},

	model.EventTicketReminderToday: {
		Key:      model.EventTicketReminderToday,
		Title:    "Ticket Due Today",
		Channels: []model.ChannelName{model.ChannelEmail, model.ChannelPush},
		Priority: model.PriorityNormal,
	},
	model.EventTicketReminderTomorrow: {
		Key:      model.EventTicketReminderTomorrow,
		Title:    "Ticket Due Tomorrow",
		Channels: []model.ChannelName{model.ChannelEmail, model.ChannelPush},
		Priority: model.PriorityNormal,
	},
	model.EventTicketOverdue: {
		Key:      model.EventTicketOverdue,
		Title:    "Ticket Overdue",
		Channels: []model.ChannelName{model.ChannelEmail, model.ChannelPush},
		Priority: model.PriorityHigh,
	},
	model.EventInspectionReminderToday: {
		Key:      model.EventInspectionReminderToday,
		Title:    "Inspection Due Today",
		Channels: []model.ChannelName{model.ChannelEmail, model.ChannelPush},
		Priority: model.PriorityNormal,
	},
	model.EventInspectionReminderTomorrow: {
		Key:      model.EventInspectionReminderTomorrow,
		Title:    "Inspection Due Tomorrow",
		Channels: []model.ChannelName{model.ChannelEmail, model.ChannelPush},
		Priority: model.PriorityNormal,
	},
}

// LookupEvent resolves an event key against the catalog.
func LookupEvent(key model.EventKey) (model.Event, error) {
	evt, ok := events[key]
	if !ok {
		return model.Event{}, fmt.Errorf("unknown notification event: %s", key)
	}
	return evt, nil
}

// Events returns a copy of the catalog, for diagnostics and tests.
func Events() []model.Event {
	out := make([]model.Event, 0, len(events))
	for _, evt := range events {
		out = append(out, evt)
	}
	return out
}
