// Copyright 2021 Kaleido

// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at

//     http://www.apache.org/licenses/LICENSE-2.0

// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package utils

import (
	"crypto/tls"
	"crypto/x509"
	"os"

	"github.com/hyperledger/firefly-loyaltyconnect/internal/conf"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/errors"
	log "github.com/sirupsen/logrus"
)

type tlsMaterial struct {
	certs  []tls.Certificate
	caPool *x509.CertPool
}

func loadTLSMaterial(tlsConfig *conf.TLSConfig) (*tlsMaterial, error) {
	if !AllOrNoneReqd(tlsConfig.ClientCertsFile, tlsConfig.ClientKeyFile) {
		return nil, errors.Errorf(errors.ConfigTLSCertOrKey)
	}

	m := &tlsMaterial{}
	if tlsConfig.ClientCertsFile != "" {
		cert, err := tls.LoadX509KeyPair(tlsConfig.ClientCertsFile, tlsConfig.ClientKeyFile)
		if err != nil {
			log.Errorf("Unable to load key/certificate: %s", err)
			return nil, err
		}
		m.certs = append(m.certs, cert)
	}
	if tlsConfig.CACertsFile != "" {
		caCert, err := os.ReadFile(tlsConfig.CACertsFile)
		if err != nil {
			log.Errorf("Unable to load CA certificates: %s", err)
			return nil, err
		}
		m.caPool = x509.NewCertPool()
		m.caPool.AppendCertsFromPEM(caCert)
	}
	return m, nil
}

// CreateTLSConfiguration creates the client side tls.Config (used for Kafka) from a TLSConfig structure.
// A nil config is returned when TLS is disabled
func CreateTLSConfiguration(tlsConfig *conf.TLSConfig) (*tls.Config, error) {
	m, err := loadTLSMaterial(tlsConfig)
	if err != nil {
		return nil, err
	}
	log.Debugf("Client TLS Enabled=%t Insecure=%t MutualAuth=%t CACertsFile=%s",
		tlsConfig.Enabled, tlsConfig.InsecureSkipVerify, len(m.certs) > 0, tlsConfig.CACertsFile)
	if !tlsConfig.Enabled {
		return nil, nil
	}
	// #nosec G402
	return &tls.Config{
		Certificates:       m.certs,
		RootCAs:            m.caPool,
		InsecureSkipVerify: tlsConfig.InsecureSkipVerify,
	}, nil
}

// CreateServerTLSConfiguration creates the tls.Config for the HTTP listener.
// The key pair is the server identity, and a CA file turns on client certificate verification
func CreateServerTLSConfiguration(tlsConfig *conf.TLSConfig) (*tls.Config, error) {
	m, err := loadTLSMaterial(tlsConfig)
	if err != nil {
		return nil, err
	}
	log.Debugf("Server TLS Enabled=%t ClientAuth=%t", tlsConfig.Enabled, m.caPool != nil)
	if !tlsConfig.Enabled {
		return nil, nil
	}
	t := &tls.Config{
		Certificates: m.certs,
		MinVersion:   tls.VersionTLS12,
	}
	if m.caPool != nil {
		t.ClientCAs = m.caPool
		t.ClientAuth = tls.RequireAndVerifyClientCert
	}
	return t, nil
}
