package notifier

import (
	"context"

	"github.com/cleanguard/qc-api/internal/model"
)

// Channel is a delivery transport. Send delivers one event to a batch of
// recipients and reports per-recipient results; it returns an error only
// when the whole batch could not be attempted. Implementations must not
// panic across this boundary, but the orchestrator guards for it anyway.
type Channel interface {
	Name() model.ChannelName
	Send(ctx context.Context, event model.Event, recipients []model.Recipient, data map[string]interface{}, meta model.Meta) (*model.DeliveryReport, error)
	// Verify checks the transport is reachable with the configured
	// credentials. Used by readiness probes, never by dispatch.
	Verify(ctx context.Context) error
}
