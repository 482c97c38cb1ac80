package sessioncache

import (
	"context"
	"net/http"
)

type callKey struct{}

// WithCall attaches the call description used by the transport bindings
func WithCall(ctx context.Context, call CallContext) context.Context {
	return context.WithValue(ctx, callKey{}, call)
}

// CallFrom returns the call description attached with WithCall
func CallFrom(ctx context.Context) (CallContext, bool) {
	call, ok := ctx.Value(callKey{}).(CallContext)
	return call, ok
}

// Transport wraps an http.RoundTripper and applies the plugin to every
// request whose context carries a CallContext. A nil base uses
// http.DefaultTransport.
func (p *Plugin) Transport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &sessionRoundTripper{plugin: p, base: base}
}

type sessionRoundTripper struct {
	plugin *Plugin
	base   http.RoundTripper
}

// RoundTrip clones the request before adding headers so the caller's
// request is never modified
func (t *sessionRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	call, ok := CallFrom(req.Context())
	if !ok {
		return t.base.RoundTrip(req)
	}

	clonedReq := req.Clone(req.Context())
	if clonedReq.Header == nil {
		clonedReq.Header = make(http.Header)
	}
	t.plugin.Apply(req.Context(), call, OutgoingOptions{Headers: clonedReq.Header})

	return t.base.RoundTrip(clonedReq)
}
