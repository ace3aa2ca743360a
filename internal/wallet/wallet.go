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

package wallet

import (
	lru "github.com/hashicorp/golang-lru"
	"github.com/hyperledger/fabric-sdk-go/pkg/gateway"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/conf"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/errors"
	log "github.com/sirupsen/logrus"
)

// Identity is an enrolled X.509 credential held in the wallet
type Identity struct {
	Label       string `json:"label"`
	MSPID       string `json:"mspId"`
	Certificate string `json:"certificate"`
	PrivateKey  string `json:"-"`
}

// IdentityStore persists enrolled identities keyed by label (the card id,
// or the admin enrollment id)
type IdentityStore interface {
	Exists(label string) bool
	Get(label string) (*Identity, error)
	Put(label string, id *Identity) error
	List() ([]string, error)
	Remove(label string) error
}

type sdkWallet struct {
	location string
	w        *gateway.Wallet
	present  *lru.Cache
}

// NewFileSystemStore opens (creating if needed) a directory wallet
func NewFileSystemStore(path string, cacheSize int) (IdentityStore, error) {
	w, err := gateway.NewFileSystemWallet(path)
	if err != nil {
		return nil, errors.Errorf(errors.WalletOpenFailed, path, err)
	}
	log.Infof("Wallet path: %s", path)
	return newSDKWallet(path, w, cacheSize), nil
}

// NewInMemoryStore is a non-persistent wallet
func NewInMemoryStore(cacheSize int) IdentityStore {
	return newSDKWallet("memory", gateway.NewInMemoryWallet(), cacheSize)
}

func newSDKWallet(location string, w *gateway.Wallet, cacheSize int) *sdkWallet {
	if cacheSize <= 0 {
		cacheSize = conf.DefaultIdentityCacheSize
	}
	cache, _ := lru.New(cacheSize)
	return &sdkWallet{
		location: location,
		w:        w,
		present:  cache,
	}
}

// Exists only trusts the cache for positive answers, so an identity added
// by another process is seen on the next call
func (s *sdkWallet) Exists(label string) bool {
	if s.present.Contains(label) {
		return true
	}
	if s.w.Exists(label) {
		s.present.Add(label, true)
		return true
	}
	return false
}

func (s *sdkWallet) Get(label string) (*Identity, error) {
	if !s.Exists(label) {
		return nil, errors.NewLoyaltyError(errors.KindIdentityMissing, errors.IdentityMissing, label)
	}
	id, err := s.w.Get(label)
	if err != nil {
		s.present.Remove(label)
		return nil, errors.Errorf(errors.WalletReadFailed, label, err)
	}
	x509, ok := id.(*gateway.X509Identity)
	if !ok {
		return nil, errors.Errorf(errors.WalletUnsupportedIdentity, label)
	}
	return &Identity{
		Label:       label,
		MSPID:       x509.MspID,
		Certificate: x509.Certificate(),
		PrivateKey:  x509.Key(),
	}, nil
}

func (s *sdkWallet) Put(label string, id *Identity) error {
	if err := s.w.Put(label, gateway.NewX509Identity(id.MSPID, id.Certificate, id.PrivateKey)); err != nil {
		return errors.NewLoyaltyError(errors.KindEnrollmentFailed, errors.IdentityStoreFailed, label, err)
	}
	s.present.Add(label, true)
	log.Debugf("Stored identity %s (%s) in wallet %s", label, id.MSPID, s.location)
	return nil
}

func (s *sdkWallet) List() ([]string, error) {
	labels, err := s.w.List()
	if err != nil {
		return nil, errors.Errorf(errors.WalletReadFailed, "*", err)
	}
	return labels, nil
}

func (s *sdkWallet) Remove(label string) error {
	s.present.Remove(label)
	return s.w.Remove(label)
}

// GatewayWallet builds the single-identity in-memory wallet handed to a
// gateway connection
func GatewayWallet(id *Identity) (*gateway.Wallet, error) {
	w := gateway.NewInMemoryWallet()
	if err := w.Put(id.Label, gateway.NewX509Identity(id.MSPID, id.Certificate, id.PrivateKey)); err != nil {
		return nil, err
	}
	return w, nil
}
