package notify

import (
	"context"

	"github.com/vaxtrack-io/vaxtrack/internal/operator"
)

// NoopNotifier discards every notification. Used when the notifier is
// disabled and as a stand-in in tests.
type NoopNotifier struct{}

var _ operator.Notifier = (*NoopNotifier)(nil)

// NotifyApproved does nothing and always succeeds.
func (NoopNotifier) NotifyApproved(context.Context, operator.Operator) error {
	return nil
}
