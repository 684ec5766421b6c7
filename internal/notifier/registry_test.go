package notifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleanguard/qc-api/internal/model"
)

func TestLookupEvent(t *testing.T) {
	evt, err := LookupEvent(model.EventTicketCreated)
	require.NoError(t, err)
	assert.Equal(t, model.EventTicketCreated, evt.Key)
	assert.Equal(t, []model.ChannelName{model.ChannelEmail, model.ChannelPush}, evt.Channels)
}

func TestLookupEventUnknown(t *testing.T) {
	_, err := LookupEvent(model.EventKey("NO_SUCH_EVENT"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown notification event")
}

func TestCatalogShape(t *testing.T) {
	all := Events()
	require.Len(t, all, 18)

	for _, evt := range all {
		assert.NotEmpty(t, evt.Title, "event %s missing title", evt.Key)
		assert.NotEmpty(t, evt.Channels, "event %s declares no channels", evt.Key)
		assert.Contains(t, []model.Priority{model.PriorityNormal, model.PriorityHigh}, evt.Priority)
	}
}

func TestAccountEventsAreEmailOnly(t *testing.T) {
	for _, key := range []model.EventKey{model.EventUserWelcome, model.EventUserUpdated} {
		evt, err := LookupEvent(key)
		require.NoError(t, err)
		assert.Equal(t, []model.ChannelName{model.ChannelEmail}, evt.Channels)
	}
}

func TestHighPriorityEvents(t *testing.T) {
	for _, key := range []model.EventKey{model.EventTicketUrgent, model.EventInspectionDeficient, model.EventTicketOverdue} {
		evt, err := LookupEvent(key)
		require.NoError(t, err)
		assert.Equal(t, model.PriorityHigh, evt.Priority, "event %s", key)
	}
}
