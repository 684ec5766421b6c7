package push

import (
	"fmt"

	"github.com/cleanguard/qc-api/internal/model"
)

// message is a rendered push notification. Data rides along as FCM data
// fields so the mobile client can deep-link.
type message struct {
	Title string
	Body  string
	Data  map[string]string
}

// render builds the notification text for an event. Push copy is shorter
// than the email equivalent; it has to fit a lock screen.
func render(key model.EventKey, data map[string]interface{}) (message, bool) {
	switch key {
	case model.EventTicketCreated:
		t := sub(data, "ticket")
		return message{
			Title: "New Ticket",
			Body:  fmt.Sprintf("%s at %s", str(t, "title"), str(t, "locationName")),
			Data:  ticketData(t),
		}, true

	case model.EventTicketAssigned:
		t := sub(data, "ticket")
		return message{
			Title: "Ticket Assigned",
			Body:  fmt.Sprintf("You were assigned: %s", str(t, "title")),
			Data:  ticketData(t),
		}, true

	case model.EventTicketScheduled:
		t := sub(data, "ticket")
		return message{
			Title: "Ticket Scheduled",
			Body:  fmt.Sprintf("%s at %s", str(t, "title"), str(t, "locationName")),
			Data:  ticketData(t),
		}, true

	case model.EventTicketStatusChanged:
		t := sub(data, "ticket")
		return message{
			Title: "Ticket Updated",
			Body:  fmt.Sprintf("%s is now %s", str(t, "title"), str(data, "newStatus")),
			Data:  ticketData(t),
		}, true

	case model.EventTicketResolved:
		t := sub(data, "ticket")
		return message{
			Title: "Ticket Resolved",
			Body:  str(t, "title"),
			Data:  ticketData(t),
		}, true

	case model.EventTicketUrgent:
		t := sub(data, "ticket")
		return message{
			Title: "URGENT Ticket",
			Body:  fmt.Sprintf("%s at %s needs immediate attention", str(t, "title"), str(t, "locationName")),
			Data:  ticketData(t),
		}, true

	case model.EventTicketReminderToday:
		t := sub(data, "ticket")
		return message{
			Title: "Ticket Due Today",
			Body:  str(t, "title"),
			Data:  ticketData(t),
		}, true

	case model.EventTicketReminderTomorrow:
		t := sub(data, "ticket")
		return message{
			Title: "Ticket Due Tomorrow",
			Body:  str(t, "title"),
			Data:  ticketData(t),
		}, true

	case model.EventTicketOverdue:
		t := sub(data, "ticket")
		return message{
			Title: "Ticket Overdue",
			Body:  fmt.Sprintf("%s is %v day(s) overdue", str(t, "title"), val(data, "daysOverdue")),
			Data:  ticketData(t),
		}, true

	case model.EventInspectionAssigned:
		i := sub(data, "inspection")
		return message{
			Title: "Inspection Assigned",
			Body:  fmt.Sprintf("Inspection at %s assigned to you", str(i, "locationName")),
			Data:  inspectionData(i),
		}, true

	case model.EventInspectionScheduled:
		i := sub(data, "inspection")
		return message{
			Title: "Inspection Scheduled",
			Body:  fmt.Sprintf("Inspection at %s", str(i, "locationName")),
			Data:  inspectionData(i),
		}, true

	case model.EventInspectionCompleted:
		i := sub(data, "inspection")
		return message{
			Title: "Inspection Completed",
			Body:  fmt.Sprintf("%s scored %v%%", str(i, "locationName"), val(i, "totalScore")),
			Data:  inspectionData(i),
		}, true

	case model.EventInspectionDeficient:
		i := sub(data, "inspection")
		return message{
			Title: "Deficient Inspection",
			Body:  fmt.Sprintf("%s scored %v%%, below threshold", str(i, "locationName"), val(i, "totalScore")),
			Data:  inspectionData(i),
		}, true

	case model.EventInspectionReminderToday:
		i := sub(data, "inspection")
		return message{
			Title: "Inspection Due Today",
			Body:  fmt.Sprintf("Inspection at %s", str(i, "locationName")),
			Data:  inspectionData(i),
		}, true

	case model.EventInspectionReminderTomorrow:
		i := sub(data, "inspection")
		return message{
			Title: "Inspection Due Tomorrow",
			Body:  fmt.Sprintf("Inspection at %s", str(i, "locationName")),
			Data:  inspectionData(i),
		}, true

	case model.EventBulkTicketsCreated:
		return message{
			Title: "Bulk Tickets Created",
			Body:  fmt.Sprintf("%v tickets created at %s", val(data, "count"), str(data, "locationName")),
			Data:  map[string]string{"type": "bulk_tickets"},
		}, true
	}

	return message{}, false
}

// buildRequest shapes the FCM v1 message envelope. High priority events get
// the urgent channel and alarm sound so they break through on device.
func buildRequest(token string, event model.Event, msg message) map[string]interface{} {
	androidPriority := "normal"
	channelID := "default"
	sound := "default"
	if event.Priority == model.PriorityHigh {
		androidPriority = "high"
		channelID = "urgent"
		sound = "alarm"
	}

	data := msg.Data
	if data == nil {
		data = map[string]string{}
	}

	return map[string]interface{}{
		"message": map[string]interface{}{
			"token": token,
			"notification": map[string]string{
				"title": msg.Title,
				"body":  msg.Body,
			},
			"data": data,
			"android": map[string]interface{}{
				"priority": androidPriority,
				"notification": map[string]string{
					"channel_id": channelID,
					"sound":      sound,
				},
			},
			"apns": map[string]interface{}{
				"payload": map[string]interface{}{
					"aps": map[string]interface{}{
						"sound": sound,
						"badge": 1,
					},
				},
			},
		},
	}
}

func ticketData(t map[string]interface{}) map[string]string {
	return map[string]string{
		"type":      "ticket",
		"ticket_id": str(t, "id"),
	}
}

func inspectionData(i map[string]interface{}) map[string]string {
	return map[string]string{
		"type":          "inspection",
		"inspection_id": str(i, "id"),
	}
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

func val(m map[string]interface{}, key string) interface{} {
	if m == nil {
		return "N/A"
	}
	if v, ok := m[key]; ok && v != nil {
		return v
	}
	return "N/A"
}
