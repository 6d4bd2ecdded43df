package main

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"

	"github.com/ni/labview-automation/pkg/lib/config"
	"github.com/ni/labview-automation/pkg/lib/helpers"
	"github.com/ni/labview-automation/pkg/lib/metrics"
)

// daemon bundles the mTLS gRPC server and the optional metrics endpoint.
type daemon struct {
	logger *slog.Logger

	lis  net.Listener
	grpc *grpc.Server

	metricsLis net.Listener
	metrics    *http.Server
}

// serverCredentials builds mTLS credentials from LVA_TLS_KEY, LVA_TLS_CERT and
// LVA_CA_TLS_CERT. Client certificates are required and verified.
func serverCredentials() (credentials.TransportCredentials, error) {
	keyPEM := os.Getenv("LVA_TLS_KEY")
	certPEM := os.Getenv("LVA_TLS_CERT")
	caPEM := os.Getenv("LVA_CA_TLS_CERT")
	if keyPEM == "" || certPEM == "" || caPEM == "" {
		return nil, errors.New("missing TLS environment variables; require LVA_TLS_KEY, LVA_TLS_CERT, LVA_CA_TLS_CERT")
	}

	cert, err := tls.X509KeyPair([]byte(certPEM), []byte(keyPEM))
	if err != nil {
		return nil, fmt.Errorf("failed to load server key pair: %w", err)
	}
	caPool := x509.NewCertPool()
	if ok := caPool.AppendCertsFromPEM([]byte(caPEM)); !ok {
		return nil, errors.New("failed to append CA certificate to pool")
	}

	return credentials.NewTLS(&tls.Config{
		Certificates: []tls.Certificate{cert},
		RootCAs:      caPool,
		ClientCAs:    caPool,
		ClientAuth:   tls.RequireAndVerifyClientCert,
		MinVersion:   tls.VersionTLS13,
	}), nil
}

// newGRPCServer serves h over HelperService. Every call is counted, then
// authenticated by SPIFFE ID; kill and output are restricted to the process owner.
func newGRPCServer(h helpers.SystemHelpers, reg *metrics.Registry, logger *slog.Logger, opts ...grpc.ServerOption) *grpc.Server {
	opts = append(opts,
		grpc.ChainUnaryInterceptor(observeUnary(reg, logger), injectSpiffeIDUnary),
		grpc.ChainStreamInterceptor(observeStream(reg, logger), injectSpiffeIDStream),
	)
	s := grpc.NewServer(opts...)
	helpers.NewServer(h,
		helpers.WithServerLogger(logger),
		helpers.WithOwnership(newOwners()),
	).Register(s)
	return s
}

func newDaemon(cfg *config.Config, logger *slog.Logger) (*daemon, error) {
	creds, err := serverCredentials()
	if err != nil {
		return nil, err
	}

	local := helpers.NewLocal(
		helpers.WithLocalLogger(logger),
		helpers.WithTempDir(cfg.Daemon.TempDir),
		helpers.WithListenerVI(cfg.Daemon.ListenerVI),
	)
	d := &daemon{
		logger: logger,
		grpc:   newGRPCServer(local, metrics.Get(), logger, grpc.Creds(creds)),
	}

	d.lis, err = net.Listen("tcp", cfg.Daemon.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to listen: %w", err)
	}

	if cfg.Daemon.MetricsAddress != "" {
		d.metricsLis, err = net.Listen("tcp", cfg.Daemon.MetricsAddress)
		if err != nil {
			_ = d.lis.Close()
			return nil, fmt.Errorf("failed to listen for metrics: %w", err)
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		d.metrics = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	}
	return d, nil
}

// Serve blocks until ctx is done or a listener fails, then stops both servers.
func (d *daemon) Serve(ctx context.Context) error {
	errCh := make(chan error, 2)
	go func() { errCh <- d.grpc.Serve(d.lis) }()
	if d.metrics != nil {
		go func() {
			if err := d.metrics.Serve(d.metricsLis); !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()
	}

	select {
	case <-ctx.Done():
		d.logger.Info("shutting down", "reason", context.Cause(ctx))
		d.Stop()
		return nil
	case err := <-errCh:
		d.Stop()
		return err
	}
}

// Addr returns the address the gRPC server is bound to.
func (d *daemon) Addr() net.Addr { return d.lis.Addr() }

// Stop gracefully stops the gRPC server and closes the metrics endpoint.
func (d *daemon) Stop() {
	d.grpc.GracefulStop()
	if d.metrics != nil {
		_ = d.metrics.Close()
	}
}
