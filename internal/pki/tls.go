package pki

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"

	"google.golang.org/grpc/credentials"
)

// ServerTLSConfig builds the relay-side TLS config. Connections without
// a client certificate signed by the authority are refused.
func ServerTLSConfig(relayBundle *CertBundle, authorityPEM []byte) (*tls.Config, error) {
	cert, err := tls.X509KeyPair(relayBundle.CertPEM, relayBundle.KeyPEM)
	if err != nil {
		return nil, fmt.Errorf("loading relay certificate: %w", err)
	}

	pool, err := authorityPool(authorityPEM)
	if err != nil {
		return nil, err
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		ClientAuth:   tls.RequireAndVerifyClientCert,
		ClientCAs:    pool,
		MinVersion:   tls.VersionTLS13,
	}, nil
}

// ClientTLSConfig builds the operator-side TLS config. The operator
// presents its certificate and verifies the relay against the authority.
func ClientTLSConfig(operatorBundle *CertBundle, authorityPEM []byte) (*tls.Config, error) {
	cert, err := tls.X509KeyPair(operatorBundle.CertPEM, operatorBundle.KeyPEM)
	if err != nil {
		return nil, fmt.Errorf("loading operator certificate: %w", err)
	}

	pool, err := authorityPool(authorityPEM)
	if err != nil {
		return nil, err
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		RootCAs:      pool,
		MinVersion:   tls.VersionTLS13,
	}, nil
}

// ServerTransportCredentials returns gRPC transport credentials for the relay.
func ServerTransportCredentials(relayBundle *CertBundle, authorityPEM []byte) (credentials.TransportCredentials, error) {
	tlsCfg, err := ServerTLSConfig(relayBundle, authorityPEM)
	if err != nil {
		return nil, err
	}
	return credentials.NewTLS(tlsCfg), nil
}

// ClientTransportCredentials returns gRPC transport credentials for an operator.
func ClientTransportCredentials(operatorBundle *CertBundle, authorityPEM []byte) (credentials.TransportCredentials, error) {
	tlsCfg, err := ClientTLSConfig(operatorBundle, authorityPEM)
	if err != nil {
		return nil, err
	}
	return credentials.NewTLS(tlsCfg), nil
}

func authorityPool(authorityPEM []byte) (*x509.CertPool, error) {
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(authorityPEM) {
		return nil, fmt.Errorf("failed to parse authority certificate")
	}
	return pool, nil
}
