// Package pki issues the certificates that secure the relay link. A
// self-signed authority signs one relay certificate and one certificate
// per operator; both sides verify the peer against the same authority,
// so a stray certificate from anywhere else is rejected outright.
package pki

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"time"
)

// CertBundle holds a certificate and its private key in PEM-encoded form.
type CertBundle struct {
	CertPEM []byte
	KeyPEM  []byte
}

// Authority is a loaded signing authority.
type Authority struct {
	cert   *x509.Certificate
	key    *ecdsa.PrivateKey
	bundle *CertBundle
}

// NewAuthority creates a self-signed authority using ECDSA P-256.
func NewAuthority(orgName string, validity time.Duration) (*Authority, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generating authority key: %w", err)
	}

	serial, err := randomSerial()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	template := &x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			Organization: []string{orgName},
			CommonName:   "SPECTRE Relay Authority",
		},
		NotBefore:             now,
		NotAfter:              now.Add(validity),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
		MaxPathLen:            1,
	}

	certDER, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return nil, fmt.Errorf("creating authority certificate: %w", err)
	}

	bundle, err := bundleFromDER(certDER, key)
	if err != nil {
		return nil, err
	}
	cert, err := x509.ParseCertificate(certDER)
	if err != nil {
		return nil, fmt.Errorf("parsing authority certificate: %w", err)
	}
	return &Authority{cert: cert, key: key, bundle: bundle}, nil
}

// LoadAuthority reconstructs an authority from its PEM bundle.
func LoadAuthority(bundle *CertBundle) (*Authority, error) {
	cert, err := ParseCertificate(bundle.CertPEM)
	if err != nil {
		return nil, fmt.Errorf("parsing authority certificate: %w", err)
	}

	block, _ := pem.Decode(bundle.KeyPEM)
	if block == nil {
		return nil, fmt.Errorf("no PEM data in authority key")
	}
	key, err := x509.ParseECPrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parsing authority key: %w", err)
	}
	return &Authority{cert: cert, key: key, bundle: bundle}, nil
}

// Bundle returns the authority's own PEM bundle.
func (a *Authority) Bundle() *CertBundle {
	return a.bundle
}

// CertPEM returns the authority certificate alone, for distribution to
// peers that only need to verify.
func (a *Authority) CertPEM() []byte {
	return a.bundle.CertPEM
}

// IssueRelayCert signs a certificate for the relay endpoint. The given
// hostnames and IP addresses become SANs; loopback is always included
// so a co-located CLI can connect.
func (a *Authority) IssueRelayCert(hosts []string, validity time.Duration) (*CertBundle, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generating relay key: %w", err)
	}

	serial, err := randomSerial()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	template := &x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			CommonName: "SPECTRE Relay",
		},
		NotBefore:   now,
		NotAfter:    now.Add(validity),
		KeyUsage:    x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage: []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		DNSNames:    []string{"localhost"},
		IPAddresses: []net.IP{net.IPv4(127, 0, 0, 1)},
	}

	for _, h := range hosts {
		if ip := net.ParseIP(h); ip != nil {
			if !containsIP(template.IPAddresses, ip) {
				template.IPAddresses = append(template.IPAddresses, ip)
			}
		} else if !containsDNS(template.DNSNames, h) {
			template.DNSNames = append(template.DNSNames, h)
		}
	}

	certDER, err := x509.CreateCertificate(rand.Reader, template, a.cert, &key.PublicKey, a.key)
	if err != nil {
		return nil, fmt.Errorf("creating relay certificate: %w", err)
	}
	return bundleFromDER(certDER, key)
}

// IssueOperatorCert signs a client certificate for one operator. The
// badge number is embedded as the Common Name so relay logs can tie a
// connection to an agent.
func (a *Authority) IssueOperatorCert(badge string, validity time.Duration) (*CertBundle, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generating operator key: %w", err)
	}

	serial, err := randomSerial()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	template := &x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			CommonName:   badge,
			Organization: []string{"SPECTRE Operators"},
		},
		NotBefore:   now,
		NotAfter:    now.Add(validity),
		KeyUsage:    x509.KeyUsageDigitalSignature,
		ExtKeyUsage: []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
	}

	certDER, err := x509.CreateCertificate(rand.Reader, template, a.cert, &key.PublicKey, a.key)
	if err != nil {
		return nil, fmt.Errorf("creating operator certificate: %w", err)
	}
	return bundleFromDER(certDER, key)
}

// ParseCertificate parses a PEM-encoded certificate.
func ParseCertificate(certPEM []byte) (*x509.Certificate, error) {
	block, _ := pem.Decode(certPEM)
	if block == nil {
		return nil, fmt.Errorf("no PEM data found")
	}
	return x509.ParseCertificate(block.Bytes)
}

func bundleFromDER(certDER []byte, key *ecdsa.PrivateKey) (*CertBundle, error) {
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER})
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("marshaling private key: %w", err)
	}
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})
	return &CertBundle{CertPEM: certPEM, KeyPEM: keyPEM}, nil
}

func randomSerial() (*big.Int, error) {
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, fmt.Errorf("generating serial: %w", err)
	}
	return serial, nil
}

func containsIP(ips []net.IP, target net.IP) bool {
	for _, ip := range ips {
		if ip.Equal(target) {
			return true
		}
	}
	return false
}

func containsDNS(names []string, target string) bool {
	for _, n := range names {
		if n == target {
			return true
		}
	}
	return false
}
