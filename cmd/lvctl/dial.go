package main

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/status"

	"github.com/ni/labview-automation/pkg/lib/helpers"
)

// dialHelpers connects to lvhelperd with the mTLS identity from LVA_TLS_KEY,
// LVA_TLS_CERT and LVA_CA_TLS_CERT (PEM contents, not paths).
func dialHelpers(addr string) (*helpers.Remote, error) {
	creds, err := clientCredentials()
	if err != nil {
		return nil, err
	}
	return helpers.DialRemote(addr, creds)
}

func clientCredentials() (credentials.TransportCredentials, error) {
	keyPEM := os.Getenv("LVA_TLS_KEY")
	certPEM := os.Getenv("LVA_TLS_CERT")
	caPEM := os.Getenv("LVA_CA_TLS_CERT")
	if strings.TrimSpace(keyPEM) == "" || strings.TrimSpace(certPEM) == "" || strings.TrimSpace(caPEM) == "" {
		return nil, errors.New("missing TLS environment variables; require LVA_TLS_KEY, LVA_TLS_CERT, LVA_CA_TLS_CERT")
	}

	cert, err := tls.X509KeyPair([]byte(certPEM), []byte(keyPEM))
	if err != nil {
		return nil, fmt.Errorf("failed to parse TLS cert/key from env: %w", err)
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM([]byte(caPEM)) {
		return nil, errors.New("failed to parse CA cert from env")
	}

	return credentials.NewTLS(&tls.Config{
		Certificates: []tls.Certificate{cert},
		RootCAs:      pool,
		MinVersion:   tls.VersionTLS13,
	}), nil
}

func grpcCode(err error) codes.Code {
	st, ok := status.FromError(err)
	if !ok {
		return codes.Unknown
	}
	return st.Code()
}
