package httpapi

import (
	"context"
	"net/http"
)

// daemonCtx is the process lifetime context; it is cancelled when the daemon
// shuts down. Defaults to Background if never set.
var daemonCtx = context.Background()

// SetBaseContext installs the daemon lifetime context used for long-running
// command handlers.
func SetBaseContext(ctx context.Context) {
	if ctx == nil {
		daemonCtx = context.Background()
		return
	}
	daemonCtx = ctx
}

// commandContext derives the context for a long-running command such as the
// staggered queue start: it dies with the daemon or with the request,
// whichever comes first. The returned cancel must always be called.
func commandContext(r *http.Request) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(daemonCtx)
	stop := context.AfterFunc(r.Context(), cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
