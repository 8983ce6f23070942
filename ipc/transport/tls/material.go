package tls

import (
	stdtls "crypto/tls"
	"crypto/x509"
	_ "embed"
	"os"

	"github.com/ValentinKolb/dIPC/ipc/common"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/pkg/errors"
)

var Logger = logger.GetLogger(common.LoggerTransport)

// Development credentials, used whenever no key material is configured.
// They are public and MUST NOT be used outside of local development.
var (
	//go:embed devcerts/server.key
	devKey []byte
	//go:embed devcerts/server.pub
	devCert []byte
)

// material is the loaded key material of a TLS configuration
type material struct {
	certificate *stdtls.Certificate
	pool        *x509.CertPool

	// set when the development credentials are in use
	devCertificate bool
	devPool        bool
}

// loadMaterial reads the configured files. Missing key or certificate fall
// back to the development credentials; a missing trusted list falls back to a
// pool containing the development certificate.
func loadMaterial(config *common.TLSConfig, requireCertificate bool) (*material, error) {
	if config == nil {
		config = &common.TLSConfig{}
	}

	m := &material{}

	keyPEM, certPEM := devKey, devCert
	switch {
	case config.Private != "" && config.Public != "":
		var err error
		if keyPEM, err = os.ReadFile(config.Private); err != nil {
			return nil, errors.Wrapf(err, "failed to read TLS key %s", config.Private)
		}
		if certPEM, err = os.ReadFile(config.Public); err != nil {
			return nil, errors.Wrapf(err, "failed to read TLS certificate %s", config.Public)
		}
	case config.Private != "" || config.Public != "":
		return nil, errors.New("TLS key and certificate must be configured together")
	case requireCertificate:
		m.devCertificate = true
	default:
		// clients without own certificate do not present one
		keyPEM, certPEM = nil, nil
	}

	if keyPEM != nil {
		cert, err := stdtls.X509KeyPair(certPEM, keyPEM)
		if err != nil {
			return nil, errors.Wrap(err, "failed to parse TLS key pair")
		}
		m.certificate = &cert
	}

	m.pool = x509.NewCertPool()
	if len(config.TrustedConnections) == 0 {
		m.pool.AppendCertsFromPEM(devCert)
		m.devPool = true
	}
	for _, path := range config.TrustedConnections {
		pem, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read trusted certificate %s", path)
		}
		if !m.pool.AppendCertsFromPEM(pem) {
			return nil, errors.Errorf("no certificate found in %s", path)
		}
	}

	if config.DHParam != "" {
		Logger.Warningf("Ignoring DH parameters %s, only ECDHE key exchange is supported", config.DHParam)
	}

	return m, nil
}
