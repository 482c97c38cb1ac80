package sessioncache

import (
	"context"
	"os"
	"time"
)

// Header names written by the plugin
const (
	HeaderXSessionID = "x-session-id"
	HeaderSessionID  = "session_id"
)

// OutgoingOptions are the mutable options of an outgoing request. Only
// Headers is ever replaced.
type OutgoingOptions struct {
	Headers any
	// Fields holds every other option and is passed through untouched
	Fields map[string]any
}

// Plugin injects session headers into eligible requests
type Plugin struct {
	environ     map[string]string
	diagnostics *Diagnostics
	logger      Logger
}

// SetLogger sets a custom logger
func (p *Plugin) SetLogger(logger Logger) {
	if logger == nil {
		logger = NoOpLogger{}
	}
	p.logger = logger
	p.diagnostics.logger = logger
}

// Diagnostics returns the process-wide diagnostic trail
func (p *Plugin) Diagnostics() *Diagnostics {
	return p.diagnostics
}

// Configure is the startup hook. It only decides whether diagnostics are
// enabled for the lifetime of the plugin.
func (p *Plugin) Configure(config *HostConfig) {
	if !LoadEnvConfig(p.environ).DebugEnabled() && !config.WantsDebug() {
		return
	}

	p.diagnostics.EnableByConfig()
	cwd, _ := os.Getwd()
	p.diagnostics.Printf("config hook enabled cwd=%s debugFile=%s", cwd, p.diagnostics.Path())
}

// Apply adds the session headers to opts when the call is eligible. The
// returned options differ from opts only in Headers; ineligible calls get
// opts back unchanged.
func (p *Plugin) Apply(ctx context.Context, call CallContext, opts OutgoingOptions) OutgoingOptions {
	decision := Decide(ctx, call)
	if decision.Err != nil {
		p.logger.Warn("Session cache skipped:", decision.Err)
	}

	debug := p.debugEnabled(decision.Provider)
	if debug {
		p.diagnostics.Write("chat.params enter")
	}

	if !decision.Eligible {
		if debug {
			p.diagnostics.Write("skip: " + skipMessage(decision.Reason))
		}
		return opts
	}

	sess := ToCacheIdentifier(decision.SessionID)
	headers := NormalizeHeaders(opts.Headers)

	hadX := headers.Has(HeaderXSessionID)
	hadSess := headers.Has(HeaderSessionID)

	headers.SetIfAbsent(HeaderXSessionID, sess)
	headers.SetIfAbsent(HeaderSessionID, sess)

	if debug {
		p.diagnostics.Printf("enabled cacheSessionId=true session=%s headersType=%s x-session-id=%s session_id=%s",
			MaskSessionID(sess), headers.Kind(), keepOrSet(hadX), keepOrSet(hadSess))
	}

	return OutgoingOptions{
		Headers: headers.Container(),
		Fields:  opts.Fields,
	}
}

func (p *Plugin) debugEnabled(provider *Provider) bool {
	if LoadEnvConfig(p.environ).DebugEnabled() {
		return true
	}
	if provider.BoolOption(optionDebug) {
		return true
	}
	return p.diagnostics.EnabledByConfig()
}

func skipMessage(reason Reason) string {
	switch reason {
	case ReasonNotTargetProvider:
		return "non-openai provider"
	case ReasonOptInMissing:
		return "cacheSessionId not true"
	case ReasonInvalidSessionID:
		return "invalid sessionID"
	default:
		return string(reason)
	}
}

func keepOrSet(had bool) string {
	if had {
		return "keep"
	}
	return "set"
}

// Builder helps build Plugin instances
type Builder struct {
	input        PluginInput
	environ      map[string]string
	logger       Logger
	appendFn     AppendFunc
	now          func() time.Time
	fallbackPath string
}

// NewBuilder creates a new plugin builder
func NewBuilder() *Builder {
	return &Builder{
		logger: NoOpLogger{},
	}
}

// WithInput sets the host initialization data used to place the log file
func (b *Builder) WithInput(input PluginInput) *Builder {
	b.input = input
	return b
}

// WithEnvironment replaces the process environment, mainly for tests
func (b *Builder) WithEnvironment(environ map[string]string) *Builder {
	b.environ = environ
	return b
}

// WithLogger sets the operational logger
func (b *Builder) WithLogger(logger Logger) *Builder {
	b.logger = logger
	return b
}

// WithAppender replaces the function that appends diagnostic lines
func (b *Builder) WithAppender(fn AppendFunc) *Builder {
	b.appendFn = fn
	return b
}

// WithClock sets the time source for diagnostic timestamps
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithFallbackPath overrides the temp directory fallback log path
func (b *Builder) WithFallbackPath(path string) *Builder {
	b.fallbackPath = path
	return b
}

// Build resolves the diagnostic log path once and creates the Plugin
func (b *Builder) Build() *Plugin {
	diagnostics := NewDiagnostics(ResolveDebugPath(LoadEnvConfig(b.environ), b.input))
	if b.appendFn != nil {
		diagnostics.appendFn = b.appendFn
	}
	if b.now != nil {
		diagnostics.now = b.now
	}
	if b.fallbackPath != "" {
		diagnostics.fallbackPath = b.fallbackPath
	}

	p := &Plugin{
		environ:     b.environ,
		diagnostics: diagnostics,
	}
	p.SetLogger(b.logger)
	return p
}
