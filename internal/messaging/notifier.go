package messaging

import (
	"context"
	"log/slog"

	"github.com/pixil98/go-horses/internal/display"
	"github.com/pixil98/go-horses/internal/horses"
	"github.com/pixil98/go-horses/internal/summon"
)

// SessionNotifier delivers plain text messages to a session's subject.
type SessionNotifier struct {
	pub   Publisher
	width int
}

func NewSessionNotifier(pub Publisher, width int) *SessionNotifier {
	return &SessionNotifier{pub: pub, width: width}
}

// Notify strips formatting codes, wraps msg and publishes it. Delivery is
// best effort.
func (n *SessionNotifier) Notify(ctx context.Context, id summon.SessionID, msg string) {
	text := display.Wrap(horses.StripColour(msg), n.width)
	if err := n.pub.Publish(sessionSubject(id), []byte(text)); err != nil {
		slog.WarnContext(ctx, "failed to notify session", "session", id, "error", err)
	}
}
