// Package grpcapi provides the internal gRPC API for the console.
// The API is shared by the CLI (via unix socket) and the relay
// (via mTLS network transport).
package grpcapi

import (
	"fmt"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"

	"github.com/spectre-ops/spectre/internal/console"
	"github.com/spectre-ops/spectre/internal/pki"
)

// Server wraps the gRPC server and the console it exposes.
type Server struct {
	grpcServer *grpc.Server
	listener   net.Listener
	handler    *Handler
}

// NewServer creates a gRPC server bound to a unix socket.
func NewServer(socketPath string, c *console.Console) (*Server, error) {
	lis, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", socketPath, err)
	}
	return serverFor(lis, c, grpc.NewServer()), nil
}

// NewTCPServer creates a plaintext gRPC server (for local/dev use only).
func NewTCPServer(addr string, c *console.Console) (*Server, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", addr, err)
	}
	return serverFor(lis, c, grpc.NewServer()), nil
}

// TLSConfig holds the mTLS configuration for the relay.
type TLSConfig struct {
	ServerCert *pki.CertBundle
	CACertPEM  []byte
}

// NewMTLSServer creates a gRPC server with mutual TLS authentication.
// Client certificates must be signed by the same authority.
func NewMTLSServer(addr string, c *console.Console, tlsCfg *TLSConfig) (*Server, error) {
	creds, err := pki.ServerTransportCredentials(tlsCfg.ServerCert, tlsCfg.CACertPEM)
	if err != nil {
		return nil, fmt.Errorf("configuring mTLS: %w", err)
	}
	return newServerWithCreds(addr, c, creds)
}

func newServerWithCreds(addr string, c *console.Console, creds credentials.TransportCredentials) (*Server, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", addr, err)
	}
	return serverFor(lis, c, grpc.NewServer(grpc.Creds(creds))), nil
}

func serverFor(lis net.Listener, c *console.Console, gs *grpc.Server) *Server {
	h := NewHandler(NewService(c))
	h.RegisterWithGRPC(gs)
	return &Server{grpcServer: gs, listener: lis, handler: h}
}

// Serve starts serving gRPC requests.
func (s *Server) Serve() error {
	return s.grpcServer.Serve(s.listener)
}

// Stop gracefully stops the gRPC server.
func (s *Server) Stop() {
	s.grpcServer.GracefulStop()
}

// Handler returns the JSON-RPC handler for direct access.
func (s *Server) Handler() *Handler {
	return s.handler
}
