// Package sessioncache injects session-identifying headers into outgoing
// OpenAI chat-completion requests so the provider can route them to the
// same prompt cache.
//
// The plugin only acts when the request targets the "@ai-sdk/openai"
// client library and the provider options opt in with
// cacheSessionId: true. The session identifier is rewritten from the
// "ses_" prefix to "sess_" and written to the x-session-id and session_id
// headers, never replacing a value the caller already set.
//
// # Basic Usage
//
//	plugin := sessioncache.NewBuilder().
//		WithInput(sessioncache.PluginInput{Worktree: "/work/project"}).
//		Build()
//
//	out := plugin.Apply(ctx, sessioncache.CallContext{
//		Provider:  provider,
//		SessionID: "ses_01HZX3",
//	}, sessioncache.OutgoingOptions{Headers: map[string]string{}})
//
// # Header Containers
//
// Three header representations are supported:
//
//   - map[string]string is copied before it is written to
//   - [][2]string is copied and new pairs are appended
//   - http.Header, metadata.MD and any Collection are updated in place
//
// # Transports
//
// The same mutation is available as an http.RoundTripper, as gRPC client
// interceptors and as a grpc-gateway metadata annotator:
//
//	client := &http.Client{Transport: plugin.Transport(nil)}
//	ctx = sessioncache.WithCall(ctx, call)
//
//	conn, err := grpc.NewClient(target,
//		grpc.WithUnaryInterceptor(plugin.UnaryClientInterceptor()),
//	)
//
// # Diagnostics
//
// Setting OPENCODE_SESSION_CACHE_DEBUG=1, or sessionCacheDebug: true in a
// provider's options, appends a timestamped trail to
// OPENCODE_SESSION_CACHE_DEBUG.log in the worktree. The path can be
// overridden with OPENCODE_SESSION_CACHE_DEBUG_FILE. Write failures fall
// back to the temp directory and, if that fails too, diagnostics are
// switched off for the rest of the process.
package sessioncache
