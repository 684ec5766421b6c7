package email

import (
	"fmt"

	"github.com/cleanguard/qc-api/internal/model"
)

// render builds the subject and HTML body for an event. The switch is the
// closed set of email-capable events; a key falling through to default is a
// template gap and reported as such by the caller (and caught in tests
// against the event catalog).
func render(key model.EventKey, data map[string]interface{}) (subject, body string, ok bool) {
	switch key {
	case model.EventTicketCreated:
		t := sub(data, "ticket")
		return fmt.Sprintf("New Ticket: %s", str(t, "title")),
			ticketBody("A new ticket has been created.", t), true

	case model.EventTicketAssigned:
		t := sub(data, "ticket")
		return fmt.Sprintf("Ticket Assigned to You: %s", str(t, "title")),
			ticketBody("A ticket has been assigned to you.", t), true

	case model.EventTicketScheduled:
		t := sub(data, "ticket")
		return fmt.Sprintf("Ticket Scheduled: %s", str(t, "title")),
			ticketBody("A ticket has been scheduled.", t), true

	case model.EventTicketStatusChanged:
		t := sub(data, "ticket")
		return fmt.Sprintf("Ticket Updated: %s", str(t, "title")),
			ticketBody(fmt.Sprintf("Ticket status changed to <b>%s</b>.", str(data, "newStatus")), t), true

	case model.EventTicketResolved:
		t := sub(data, "ticket")
		return fmt.Sprintf("Ticket Resolved: %s", str(t, "title")),
			ticketBody("The ticket has been resolved.", t), true

	case model.EventTicketUrgent:
		t := sub(data, "ticket")
		return fmt.Sprintf("URGENT Ticket: %s", str(t, "title")),
			ticketBody("An urgent ticket requires immediate attention.", t), true

	case model.EventTicketReminderToday:
		t := sub(data, "ticket")
		return fmt.Sprintf("Reminder: Ticket Due Today - %s", str(t, "title")),
			ticketBody("This ticket is scheduled for today.", t), true

	case model.EventTicketReminderTomorrow:
		t := sub(data, "ticket")
		return fmt.Sprintf("Reminder: Ticket Due Tomorrow - %s", str(t, "title")),
			ticketBody("This ticket is scheduled for tomorrow.", t), true

	case model.EventTicketOverdue:
		t := sub(data, "ticket")
		return fmt.Sprintf("OVERDUE: %s", str(t, "title")),
			ticketBody(fmt.Sprintf("This ticket is <b>%v day(s) overdue</b>.", data["daysOverdue"]), t), true

	case model.EventInspectionAssigned:
		i := sub(data, "inspection")
		return fmt.Sprintf("Inspection Assigned: %s", str(i, "locationName")),
			inspectionBody("An inspection has been assigned to you.", i), true

	case model.EventInspectionScheduled:
		i := sub(data, "inspection")
		return fmt.Sprintf("Inspection Scheduled: %s", str(i, "locationName")),
			inspectionBody("An inspection has been scheduled.", i), true

	case model.EventInspectionCompleted:
		i := sub(data, "inspection")
		return fmt.Sprintf("Inspection Completed: %s", str(i, "locationName")),
			inspectionBody(fmt.Sprintf("The inspection is complete. Score: <b>%v%%</b>.", i["totalScore"]), i), true

	case model.EventInspectionDeficient:
		i := sub(data, "inspection")
		return fmt.Sprintf("Deficient Inspection: %s", str(i, "locationName")),
			inspectionBody(fmt.Sprintf("An inspection scored below threshold: <b>%v%%</b>.", i["totalScore"]), i), true

	case model.EventInspectionReminderToday:
		i := sub(data, "inspection")
		return fmt.Sprintf("Reminder: Inspection Due Today - %s", str(i, "locationName")),
			inspectionBody("This inspection is scheduled for today.", i), true

	case model.EventInspectionReminderTomorrow:
		i := sub(data, "inspection")
		return fmt.Sprintf("Reminder: Inspection Due Tomorrow - %s", str(i, "locationName")),
			inspectionBody("This inspection is scheduled for tomorrow.", i), true

	case model.EventUserWelcome:
		u := sub(data, "user")
		return "Welcome to CleanGuard QC",
			fmt.Sprintf("<p>Hi %s,</p><p>Your account has been created. You can now sign in with %s.</p>",
				str(u, "name"), str(u, "email")), true

	case model.EventUserUpdated:
		u := sub(data, "user")
		return "Your Account Was Updated",
			fmt.Sprintf("<p>Hi %s,</p><p>Your account details were updated. If this wasn't you, contact an administrator.</p>",
				str(u, "name")), true

	case model.EventBulkTicketsCreated:
		return "Bulk Tickets Created from Inspection",
			fmt.Sprintf("<p><b>%v</b> tickets were created from a deficient inspection at <b>%s</b>.</p>",
				data["count"], str(data, "locationName")), true
	}

	return "", "", false
}

func ticketBody(lead string, t map[string]interface{}) string {
	return fmt.Sprintf(
		"<p>%s</p><ul><li>Title: %s</li><li>Location: %s</li><li>Priority: %s</li><li>Status: %s</li></ul>",
		lead, str(t, "title"), str(t, "locationName"), str(t, "priority"), str(t, "status"))
}

func inspectionBody(lead string, i map[string]interface{}) string {
	return fmt.Sprintf(
		"<p>%s</p><ul><li>Location: %s</li><li>Template: %s</li><li>Status: %s</li></ul>",
		lead, str(i, "locationName"), str(i, "templateName"), str(i, "status"))
}

func sub(data map[string]interface{}, key string) map[string]interface{} {
	if data == nil {
		return nil
	}
	if m, ok := data[key].(map[string]interface{}); ok {
		return m
	}
	return nil
}

func str(m map[string]interface{}, key string) string {
	if m == nil {
		return "N/A"
	}
	if s, ok := m[key].(string); ok && s != "" {
		return s
	}
	return "N/A"
}
