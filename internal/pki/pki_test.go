package pki

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"net"
	"testing"
	"time"
)

func newTestAuthority(t *testing.T) *Authority {
	t.Helper()
	a, err := NewAuthority("TestOrg", 365*24*time.Hour)
	if err != nil {
		t.Fatalf("NewAuthority: %v", err)
	}
	return a
}

func TestNewAuthority(t *testing.T) {
	a := newTestAuthority(t)

	cert, err := ParseCertificate(a.CertPEM())
	if err != nil {
		t.Fatalf("ParseCertificate: %v", err)
	}
	if !cert.IsCA {
		t.Error("expected CA certificate")
	}
	if cert.Subject.CommonName != "SPECTRE Relay Authority" {
		t.Errorf("unexpected CN: %s", cert.Subject.CommonName)
	}
	if cert.Subject.Organization[0] != "TestOrg" {
		t.Errorf("unexpected org: %s", cert.Subject.Organization[0])
	}
	if cert.KeyUsage&x509.KeyUsageCertSign == 0 {
		t.Error("expected CertSign key usage")
	}

	block, _ := pem.Decode(a.Bundle().KeyPEM)
	if block == nil {
		t.Fatal("no key PEM data")
	}
	if block.Type != "EC PRIVATE KEY" {
		t.Errorf("unexpected key type: %s", block.Type)
	}
}

func TestLoadAuthorityRoundTrip(t *testing.T) {
	a := newTestAuthority(t)

	loaded, err := LoadAuthority(a.Bundle())
	if err != nil {
		t.Fatalf("LoadAuthority: %v", err)
	}
	if _, err := loaded.IssueOperatorCert("FED-1102", 24*time.Hour); err != nil {
		t.Errorf("loaded authority cannot sign: %v", err)
	}
}

func TestIssueRelayCert(t *testing.T) {
	a := newTestAuthority(t)

	bundle, err := a.IssueRelayCert([]string{"relay.example.com", "10.0.0.1"}, 90*24*time.Hour)
	if err != nil {
		t.Fatalf("IssueRelayCert: %v", err)
	}

	cert, err := ParseCertificate(bundle.CertPEM)
	if err != nil {
		t.Fatalf("ParseCertificate: %v", err)
	}
	if !containsDNS(cert.DNSNames, "relay.example.com") {
		t.Errorf("missing DNS SAN: %v", cert.DNSNames)
	}
	if !containsDNS(cert.DNSNames, "localhost") {
		t.Error("loopback DNS SAN not included")
	}
	if !containsIP(cert.IPAddresses, net.ParseIP("10.0.0.1")) {
		t.Errorf("missing IP SAN: %v", cert.IPAddresses)
	}
	if !containsIP(cert.IPAddresses, net.IPv4(127, 0, 0, 1)) {
		t.Error("loopback IP SAN not included")
	}

	// Chains back to the authority.
	pool := x509.NewCertPool()
	pool.AppendCertsFromPEM(a.CertPEM())
	if _, err := cert.Verify(x509.VerifyOptions{
		Roots:     pool,
		DNSName:   "relay.example.com",
		KeyUsages: []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}); err != nil {
		t.Errorf("relay cert does not verify: %v", err)
	}
}

func TestIssueOperatorCert(t *testing.T) {
	a := newTestAuthority(t)

	bundle, err := a.IssueOperatorCert("FED-8842", 30*24*time.Hour)
	if err != nil {
		t.Fatalf("IssueOperatorCert: %v", err)
	}

	cert, err := ParseCertificate(bundle.CertPEM)
	if err != nil {
		t.Fatalf("ParseCertificate: %v", err)
	}
	if cert.Subject.CommonName != "FED-8842" {
		t.Errorf("CN = %q, want badge number", cert.Subject.CommonName)
	}
	found := false
	for _, u := range cert.ExtKeyUsage {
		if u == x509.ExtKeyUsageClientAuth {
			found = true
		}
	}
	if !found {
		t.Error("expected ClientAuth ext key usage")
	}
}

func TestMutualTLSHandshake(t *testing.T) {
	a := newTestAuthority(t)

	relayBundle, err := a.IssueRelayCert([]string{"127.0.0.1"}, 24*time.Hour)
	if err != nil {
		t.Fatalf("IssueRelayCert: %v", err)
	}
	operatorBundle, err := a.IssueOperatorCert("FED-7712", 24*time.Hour)
	if err != nil {
		t.Fatalf("IssueOperatorCert: %v", err)
	}

	serverCfg, err := ServerTLSConfig(relayBundle, a.CertPEM())
	if err != nil {
		t.Fatalf("ServerTLSConfig: %v", err)
	}
	clientCfg, err := ClientTLSConfig(operatorBundle, a.CertPEM())
	if err != nil {
		t.Fatalf("ClientTLSConfig: %v", err)
	}
	clientCfg.ServerName = "localhost"

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer lis.Close()

	done := make(chan error, 1)
	go func() {
		conn, err := lis.Accept()
		if err != nil {
			done <- err
			return
		}
		defer conn.Close()
		srv := tls.Server(conn, serverCfg)
		done <- srv.Handshake()
	}()

	conn, err := tls.Dial("tcp", lis.Addr().String(), clientCfg)
	if err != nil {
		t.Fatalf("client handshake: %v", err)
	}
	conn.Close()

	if err := <-done; err != nil {
		t.Fatalf("server handshake: %v", err)
	}
}

func TestHandshakeRejectsUnknownAuthority(t *testing.T) {
	a := newTestAuthority(t)
	rogue := newTestAuthority(t)

	relayBundle, err := a.IssueRelayCert(nil, 24*time.Hour)
	if err != nil {
		t.Fatalf("IssueRelayCert: %v", err)
	}
	rogueBundle, err := rogue.IssueOperatorCert("FED-0000", 24*time.Hour)
	if err != nil {
		t.Fatalf("IssueOperatorCert: %v", err)
	}

	serverCfg, err := ServerTLSConfig(relayBundle, a.CertPEM())
	if err != nil {
		t.Fatalf("ServerTLSConfig: %v", err)
	}
	// The rogue operator trusts the real authority for the server side,
	// but presents a certificate the relay has never heard of.
	clientCfg, err := ClientTLSConfig(rogueBundle, a.CertPEM())
	if err != nil {
		t.Fatalf("ClientTLSConfig: %v", err)
	}
	clientCfg.ServerName = "localhost"

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer lis.Close()

	done := make(chan error, 1)
	go func() {
		conn, err := lis.Accept()
		if err != nil {
			done <- err
			return
		}
		defer conn.Close()
		srv := tls.Server(conn, serverCfg)
		done <- srv.Handshake()
	}()

	conn, err := tls.Dial("tcp", lis.Addr().String(), clientCfg)
	if err == nil {
		// TLS 1.3 may surface the rejection on first use instead.
		if _, werr := conn.Write([]byte("x")); werr == nil {
			var buf [1]byte
			if _, rerr := conn.Read(buf[:]); rerr == nil {
				t.Error("handshake with rogue certificate succeeded")
			}
		}
		conn.Close()
	}
	if err := <-done; err == nil {
		t.Error("relay accepted a certificate from an unknown authority")
	}
}
