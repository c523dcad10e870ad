// Package push delivers push notifications to registered devices.
//
// The credential core consumes only the Sender interface; delivery
// mechanics live behind it. The FCM implementation covers Android and
// web tokens. When no project is configured, main wires the no-op sender
// and device operations proceed without notifications.
package push

import (
	"context"
	"log/slog"
)

// Sender delivers one notification to one device token. Returns false
// (with a nil error) when the provider rejected the token; callers may
// treat that as a signal to drop the token.
type Sender interface {
	Send(ctx context.Context, token, title, body string, data map[string]string) (bool, error)
}

// Noop is a Sender that drops every notification. Used when push is not
// configured. It reports acceptance so callers never mistake the dropped
// send for a rejected token.
type Noop struct {
	Logger *slog.Logger
}

func (n Noop) Send(ctx context.Context, token, title, body string, data map[string]string) (bool, error) {
	if n.Logger != nil {
		n.Logger.Debug("push disabled, dropping notification", slog.String("title", title))
	}
	return true, nil
}
