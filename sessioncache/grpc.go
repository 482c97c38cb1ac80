package sessioncache

import (
	"context"
	"net/http"
	"strings"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

var sessionHeaders = []string{HeaderXSessionID, HeaderSessionID}

// UnaryClientInterceptor creates a gRPC unary client interceptor that adds
// the session metadata to calls whose context carries a CallContext
func (p *Plugin) UnaryClientInterceptor() grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		return invoker(p.outgoingContext(ctx), method, req, reply, cc, opts...)
	}
}

// StreamClientInterceptor creates a gRPC stream client interceptor
func (p *Plugin) StreamClientInterceptor() grpc.StreamClientInterceptor {
	return func(ctx context.Context, desc *grpc.StreamDesc, cc *grpc.ClientConn, method string, streamer grpc.Streamer, opts ...grpc.CallOption) (grpc.ClientStream, error) {
		return streamer(p.outgoingContext(ctx), desc, cc, method, opts...)
	}
}

// outgoingContext applies the plugin to a copy of the outgoing metadata
func (p *Plugin) outgoingContext(ctx context.Context) context.Context {
	call, ok := CallFrom(ctx)
	if !ok {
		return ctx
	}

	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()

	p.Apply(ctx, call, OutgoingOptions{Headers: md})
	return metadata.NewOutgoingContext(ctx, md)
}

// MetadataAnnotator creates a grpc-gateway annotator that emits the
// session metadata missing from the incoming HTTP request
func (p *Plugin) MetadataAnnotator() func(context.Context, *http.Request) metadata.MD {
	return func(ctx context.Context, req *http.Request) metadata.MD {
		md := metadata.New(map[string]string{})

		call, ok := CallFrom(ctx)
		if !ok {
			return md
		}

		header := req.Header.Clone()
		if header == nil {
			header = make(http.Header)
		}
		p.Apply(ctx, call, OutgoingOptions{Headers: header})

		for _, name := range sessionHeaders {
			if hasFoldedKey(req.Header, name) {
				continue
			}
			if values := header.Values(name); len(values) > 0 {
				md.Set(name, values...)
			}
		}

		p.logger.Debug("Annotated session metadata:", md)
		return md
	}
}

// HeaderMatcher forwards caller-set session headers to gRPC metadata
// unprefixed and defers to the gateway default for everything else
func (p *Plugin) HeaderMatcher() func(string) (string, bool) {
	return func(key string) (string, bool) {
		for _, name := range sessionHeaders {
			if strings.EqualFold(key, name) {
				return name, true
			}
		}
		return runtime.DefaultHeaderMatcher(key)
	}
}

// GatewayMuxOptions returns the ServeMux options that wire the plugin into
// grpc-gateway
func (p *Plugin) GatewayMuxOptions() []runtime.ServeMuxOption {
	return []runtime.ServeMuxOption{
		runtime.WithIncomingHeaderMatcher(p.HeaderMatcher()),
		runtime.WithMetadata(p.MetadataAnnotator()),
	}
}

// CreateGatewayMux creates a new gRPC gateway ServeMux with session headers
func CreateGatewayMux(plugin *Plugin, opts ...runtime.ServeMuxOption) *runtime.ServeMux {
	allOpts := append(plugin.GatewayMuxOptions(), opts...)
	return runtime.NewServeMux(allOpts...)
}
