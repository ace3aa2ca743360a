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

package identity

import (
	"context"

	"github.com/hyperledger/firefly-loyaltyconnect/internal/conf"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/errors"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/fabric"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/wallet"
	log "github.com/sirupsen/logrus"
)

// Manager onboards identities into the wallet: the application admin,
// and the members and partners that register through it
type Manager interface {
	EnrollAdmin(ctx context.Context) error
	Register(ctx context.Context, cardID string) error
}

type manager struct {
	conf       *conf.FabricConf
	ca         fabric.CA
	identities wallet.IdentityStore
	locker     wallet.Locker
}

// NewManager constructs an identity manager
func NewManager(fc *conf.FabricConf, ca fabric.CA, identities wallet.IdentityStore, locker wallet.Locker) Manager {
	return &manager{
		conf:       fc,
		ca:         ca,
		identities: identities,
		locker:     locker,
	}
}

// EnrollAdmin enrolls the application admin and imports it into the
// wallet. Nothing is done when the admin is already there
func (m *manager) EnrollAdmin(ctx context.Context) error {
	admin := m.conf.AppAdmin
	unlock, err := m.locker.Lock(ctx, admin)
	if err != nil {
		return err
	}
	defer unlock()

	if m.identities.Exists(admin) {
		log.Infof("An identity for the admin user %s already exists in the wallet", admin)
		return nil
	}
	creds, err := m.ca.Enroll(admin, m.conf.AppAdminSecret)
	if err != nil {
		return errors.WithKind(errors.KindEnrollmentFailed, err)
	}
	if err := m.store(admin, creds); err != nil {
		return err
	}
	log.Infof("Successfully enrolled admin user %s and imported it into the wallet", admin)
	return nil
}

// Register registers and enrolls a new caller. The wallet is checked
// again once the lock is held, so only one of several concurrent
// registrations of the same card id reaches the CA
func (m *manager) Register(ctx context.Context, cardID string) error {
	unlock, err := m.locker.Lock(ctx, cardID)
	if err != nil {
		return err
	}
	defer unlock()

	if m.identities.Exists(cardID) {
		log.Warnf("An identity for the user %s already exists in the wallet", cardID)
		return errors.NewLoyaltyError(errors.KindIdentityExists, errors.IdentityExists, cardID)
	}
	if !m.identities.Exists(m.conf.AppAdmin) {
		log.Warnf("An identity for the admin user %s does not exist in the wallet", m.conf.AppAdmin)
		return errors.NewLoyaltyError(errors.KindAdminIdentityMissing, errors.IdentityAdminMissing, m.conf.AppAdmin)
	}

	secret, err := m.ca.Register(cardID, m.conf.Affiliation)
	if err != nil {
		return errors.WithKind(errors.KindEnrollmentFailed, err)
	}
	creds, err := m.ca.Enroll(cardID, secret)
	if err != nil {
		return errors.WithKind(errors.KindEnrollmentFailed, err)
	}
	if err := m.store(cardID, creds); err != nil {
		return err
	}
	log.Infof("Successfully registered and enrolled user %s and imported it into the wallet", cardID)
	return nil
}

func (m *manager) store(label string, creds *fabric.Credentials) error {
	return m.identities.Put(label, &wallet.Identity{
		Label:       label,
		MSPID:       m.conf.OrgMSPID,
		Certificate: creds.Certificate,
		PrivateKey:  creds.PrivateKey,
	})
}
