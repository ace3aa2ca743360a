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

package fabric

import (
	"encoding/hex"
	"os"
	"path"

	"github.com/hyperledger/fabric-sdk-go/pkg/common/providers/core"
	"github.com/hyperledger/fabric-sdk-go/pkg/common/providers/msp"
	fabcontext "github.com/hyperledger/fabric-sdk-go/pkg/context"
	"github.com/hyperledger/fabric-sdk-go/pkg/core/cryptosuite"
	"github.com/hyperledger/fabric-sdk-go/pkg/core/cryptosuite/bccsp/sw"
	fabImpl "github.com/hyperledger/fabric-sdk-go/pkg/fab"
	"github.com/hyperledger/fabric-sdk-go/pkg/fab/keyvaluestore"
	mspImpl "github.com/hyperledger/fabric-sdk-go/pkg/msp"
	mspApi "github.com/hyperledger/fabric-sdk-go/pkg/msp/api"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/errors"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/fabric/dep"
	log "github.com/sirupsen/logrus"
)

const clientIdentityType = "client"

type identityManagerProvider struct {
	identityManager msp.IdentityManager
}

// IdentityManager returns the organization's identity manager
func (p *identityManagerProvider) IdentityManager(orgName string) (msp.IdentityManager, bool) {
	return p.identityManager, true
}

type caWrapper struct {
	organization string
	caServerName string
	keystorePath string
	caClient     dep.CAClient
	identityMgr  dep.IdentityManager
}

// NewCA builds a CA client for the organization of the connection profile.
// The SDK keeps enrolled users in the profile's credential store, from
// where the certificate and private key are exported
func NewCA(profile *Profile) (CA, error) {
	org := profile.Organization
	configBackend, err := profile.ConfigProvider()()
	if err != nil {
		return nil, errors.Errorf(errors.CAClientCreateFailed, org, err)
	}
	cryptoConfig := cryptosuite.ConfigFromBackend(configBackend...)
	cs, err := sw.GetSuiteByConfig(cryptoConfig)
	if err != nil {
		return nil, errors.Errorf(errors.CAClientCreateFailed, org, err)
	}
	endpointConfig, err := fabImpl.ConfigFromBackend(configBackend...)
	if err != nil {
		return nil, errors.Errorf(errors.CAClientCreateFailed, org, err)
	}
	identityConfig, err := mspImpl.ConfigFromBackend(configBackend...)
	if err != nil {
		return nil, errors.Errorf(errors.CAClientCreateFailed, org, err)
	}
	userStore, err := newUserStore(identityConfig)
	if err != nil {
		return nil, errors.Errorf(errors.CAClientCreateFailed, org, err)
	}
	mgr, err := mspImpl.NewIdentityManager(org, userStore, cs, endpointConfig)
	if err != nil {
		return nil, errors.Errorf(errors.CAClientCreateFailed, org, err)
	}

	ctxProvider := fabcontext.NewProvider(
		fabcontext.WithIdentityManagerProvider(&identityManagerProvider{identityManager: mgr}),
		fabcontext.WithUserStore(userStore),
		fabcontext.WithCryptoSuite(cs),
		fabcontext.WithCryptoSuiteConfig(cryptoConfig),
		fabcontext.WithEndpointConfig(endpointConfig),
		fabcontext.WithIdentityConfig(identityConfig),
	)
	caClient, err := mspImpl.NewCAClient(org, &fabcontext.Client{Providers: ctxProvider})
	if err != nil {
		return nil, errors.Errorf(errors.CAClientCreateFailed, org, err)
	}
	return newCAWrapper(profile, cryptoConfig, caClient, mgr), nil
}

func newCAWrapper(profile *Profile, cryptoConfig core.CryptoSuiteConfig, caClient dep.CAClient, mgr dep.IdentityManager) *caWrapper {
	return &caWrapper{
		organization: profile.Organization,
		caServerName: profile.CAServerName,
		keystorePath: cryptoConfig.KeyStorePath(),
		caClient:     caClient,
		identityMgr:  mgr,
	}
}

func newUserStore(identityConfig msp.IdentityConfig) (msp.UserStore, error) {
	clientConfig := identityConfig.Client()
	if clientConfig.CredentialStore.Path == "" {
		return nil, errors.Errorf(errors.CAKeystoreMissing)
	}
	store, err := keyvaluestore.New(&keyvaluestore.FileKeyValueStoreOptions{
		Path: clientConfig.CredentialStore.Path,
	})
	if err != nil {
		return nil, err
	}
	return mspImpl.NewCertFileUserStore1(store)
}

// Register registers a client identity. The registrar is the admin
// configured for the CA in the connection profile
func (w *caWrapper) Register(enrollmentID, affiliation string) (string, error) {
	rr := &mspApi.RegistrationRequest{
		Name:        enrollmentID,
		Type:        clientIdentityType,
		Affiliation: affiliation,
		CAName:      w.caServerName,
	}
	secret, err := w.caClient.Register(rr)
	if err != nil {
		log.Errorf("Failed to register user %s. %s", enrollmentID, err)
		return "", errors.Errorf(errors.IdentityRegisterFailed, enrollmentID, err)
	}
	log.Infof("Registered %s with affiliation %s", enrollmentID, affiliation)
	return secret, nil
}

// Enroll obtains a certificate for the identity and exports it, with its
// key, so it can be stored in the wallet
func (w *caWrapper) Enroll(enrollmentID, secret string) (*Credentials, error) {
	err := w.caClient.Enroll(&mspApi.EnrollmentRequest{
		Name:   enrollmentID,
		Secret: secret,
		CAName: w.caServerName,
	})
	if err != nil {
		log.Errorf("Failed to enroll user %s. %s", enrollmentID, err)
		return nil, errors.Errorf(errors.IdentityEnrollFailed, enrollmentID, err)
	}
	si, err := w.identityMgr.GetSigningIdentity(enrollmentID)
	if err != nil {
		return nil, errors.Errorf(errors.CAKeyExportFailed, enrollmentID, err)
	}
	key, err := w.exportKey(si)
	if err != nil {
		return nil, errors.Errorf(errors.CAKeyExportFailed, enrollmentID, err)
	}
	log.Infof("Enrolled %s (%s)", enrollmentID, si.Identifier().MSPID)
	return &Credentials{
		Certificate: string(si.EnrollmentCertificate()),
		PrivateKey:  key,
	}, nil
}

// the software keystore holds one PEM file per key, named by its SKI
func (w *caWrapper) exportKey(si msp.SigningIdentity) (string, error) {
	if w.keystorePath == "" {
		return "", errors.Errorf(errors.CAKeystoreMissing)
	}
	keyFile := path.Join(w.keystorePath, hex.EncodeToString(si.PrivateKey().SKI())+"_sk")
	b, err := os.ReadFile(keyFile)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
