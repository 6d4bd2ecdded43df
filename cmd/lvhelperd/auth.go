package main

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

type spiffeIDContextKey struct{}

func spiffeIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(spiffeIDContextKey{}).(string)
	return id, ok
}

// spiffeIDFromTLS returns the trust domain of the first SPIFFE URI SAN of the
// client certificate, e.g. spiffe://ci-runner-3 -> "ci-runner-3".
func spiffeIDFromTLS(ctx context.Context) (string, bool) {
	if id, ok := spiffeIDFromContext(ctx); ok {
		return id, true
	}

	p, ok := peer.FromContext(ctx)
	if !ok || p == nil {
		return "", false
	}
	ti, ok := p.AuthInfo.(credentials.TLSInfo)
	if !ok {
		return "", false
	}
	certs := ti.State.PeerCertificates
	if len(certs) == 0 || certs[0] == nil {
		return "", false
	}
	for _, uri := range certs[0].URIs {
		if uri != nil && uri.Scheme == "spiffe" && uri.Host != "" {
			return uri.Host, true
		}
	}
	return "", false
}

func withSpiffeID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, spiffeIDContextKey{}, id)
}

// injectSpiffeIDUnary rejects callers without a SPIFFE ID and stores it in the context.
func injectSpiffeIDUnary(ctx context.Context, req any, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	id, ok := spiffeIDFromTLS(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "client must have SPIFFE ID")
	}
	return handler(withSpiffeID(ctx, id), req)
}

type streamWithCtx struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *streamWithCtx) Context() context.Context { return s.ctx }

func injectSpiffeIDStream(srv any, ss grpc.ServerStream, _ *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	id, ok := spiffeIDFromTLS(ss.Context())
	if !ok {
		return status.Error(codes.Unauthenticated, "client must have SPIFFE ID")
	}
	return handler(srv, &streamWithCtx{ServerStream: ss, ctx: withSpiffeID(ss.Context(), id)})
}
