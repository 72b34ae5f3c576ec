package notify

import "context"

// Notifier delivers a scan summary to one provider.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}
