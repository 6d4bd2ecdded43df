package main

import (
	"context"
	"log/slog"
	"path"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"github.com/ni/labview-automation/pkg/lib/metrics"
)

// observeUnary counts every request by method and status code and logs failures.
func observeUnary(reg *metrics.Registry, logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		started := time.Now()
		resp, err := handler(ctx, req)
		observe(reg, logger, info.FullMethod, started, err)
		return resp, err
	}
}

func observeStream(reg *metrics.Registry, logger *slog.Logger) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		started := time.Now()
		err := handler(srv, ss)
		observe(reg, logger, info.FullMethod, started, err)
		return err
	}
}

func observe(reg *metrics.Registry, logger *slog.Logger, fullMethod string, started time.Time, err error) {
	method := path.Base(fullMethod)
	code := status.Code(err)
	reg.HelperRequest(method, code.String())
	if err != nil {
		logger.Info("request failed", "method", method, "code", code, "elapsed", time.Since(started), "error", err)
		return
	}
	logger.Debug("request served", "method", method, "elapsed", time.Since(started))
}
