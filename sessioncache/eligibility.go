package sessioncache

import (
	"context"
	"fmt"
)

// TargetAPI is the client library whose requests receive session headers
const TargetAPI = "@ai-sdk/openai"

const (
	optionCacheSessionID = "cacheSessionId"
	optionDebug          = "sessionCacheDebug"
)

// APIInfo names the client library a provider is served by
type APIInfo struct {
	NPM string `json:"npm" yaml:"npm"`
}

// ProviderInfo is the nested provider shape used by older hosts
type ProviderInfo struct {
	API *APIInfo `json:"api,omitempty" yaml:"api,omitempty"`
}

// Provider describes the destination integration of a request
type Provider struct {
	// API is the current location of the client library identifier
	API *APIInfo `json:"api,omitempty" yaml:"api,omitempty"`
	// Info carries the identifier on older hosts
	Info *ProviderInfo `json:"info,omitempty" yaml:"info,omitempty"`
	// Options holds provider specific flags such as cacheSessionId
	Options map[string]any `json:"options,omitempty" yaml:"options,omitempty"`
}

// APIIdentifier returns the client library identifier, preferring api.npm
// over info.api.npm
func (p *Provider) APIIdentifier() string {
	if p == nil {
		return ""
	}
	if p.API != nil && p.API.NPM != "" {
		return p.API.NPM
	}
	if p.Info != nil && p.Info.API != nil {
		return p.Info.API.NPM
	}
	return ""
}

// BoolOption reports whether the named option is the boolean true.
// Strings and other truthy values do not count.
func (p *Provider) BoolOption(name string) bool {
	if p == nil {
		return false
	}
	v, ok := p.Options[name].(bool)
	return ok && v
}

// Resolve returns the provider itself
func (p *Provider) Resolve(context.Context) (*Provider, error) {
	return p, nil
}

// ProviderSource yields the provider of a call, possibly after waiting on
// the host
type ProviderSource interface {
	Resolve(ctx context.Context) (*Provider, error)
}

// DeferredProvider is a provider that is only available after the host
// resolves it
type DeferredProvider func(ctx context.Context) (*Provider, error)

// Resolve waits for the host to produce the provider
func (f DeferredProvider) Resolve(ctx context.Context) (*Provider, error) {
	return f(ctx)
}

// CallContext describes one outgoing request
type CallContext struct {
	Provider ProviderSource
	// SessionID is the host supplied session identifier. Only a string is
	// accepted.
	SessionID any
}

// Reason explains an eligibility outcome
type Reason string

const (
	ReasonEligible          Reason = "eligible"
	ReasonNotTargetProvider Reason = "not_target_provider"
	ReasonOptInMissing      Reason = "opt_in_missing"
	ReasonInvalidSessionID  Reason = "invalid_session_id"
)

// Decision is the result of Decide
type Decision struct {
	Eligible bool
	Reason   Reason
	// SessionID is the raw identifier, set only when Eligible
	SessionID string
	// Provider is the resolved provider, nil if resolution failed
	Provider *Provider
	// Err is set when the provider could not be resolved
	Err error
}

// Decide checks, in order, that the call targets the OpenAI client
// library, that the provider opted in with cacheSessionId: true and that
// the session identifier is a string.
func Decide(ctx context.Context, call CallContext) Decision {
	var provider *Provider
	if call.Provider != nil {
		p, err := call.Provider.Resolve(ctx)
		if err != nil {
			return Decision{
				Reason: ReasonNotTargetProvider,
				Err:    fmt.Errorf("failed to resolve provider: %w", err),
			}
		}
		provider = p
	}

	if provider == nil || provider.APIIdentifier() != TargetAPI {
		return Decision{Reason: ReasonNotTargetProvider, Provider: provider}
	}

	if !provider.BoolOption(optionCacheSessionID) {
		return Decision{Reason: ReasonOptInMissing, Provider: provider}
	}

	sessionID, ok := call.SessionID.(string)
	if !ok {
		return Decision{Reason: ReasonInvalidSessionID, Provider: provider}
	}

	return Decision{
		Eligible:  true,
		Reason:    ReasonEligible,
		SessionID: sessionID,
		Provider:  provider,
	}
}
