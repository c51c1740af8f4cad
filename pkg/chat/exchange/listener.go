package exchange

import "context"

// SessionListener is notified after the session list changed because of an
// exchange.
type SessionListener interface {
	OnNewSession(ctx context.Context, sessionId, preview, title string)
	OnSessionUpdated(ctx context.Context, sessionId, preview string)
}

// Listeners fans one notification out to several listeners, in order.
type Listeners []SessionListener

func (ls Listeners) OnNewSession(ctx context.Context, sessionId, preview, title string) {
	for _, l := range ls {
		if l != nil {
			l.OnNewSession(ctx, sessionId, preview, title)
		}
	}
}

func (ls Listeners) OnSessionUpdated(ctx context.Context, sessionId, preview string) {
	for _, l := range ls {
		if l != nil {
			l.OnSessionUpdated(ctx, sessionId, preview)
		}
	}
}

type noopListener struct{}

func (noopListener) OnNewSession(context.Context, string, string, string) {}
func (noopListener) OnSessionUpdated(context.Context, string, string)     {}
