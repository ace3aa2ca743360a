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
	"time"

	"github.com/hyperledger/firefly-loyaltyconnect/internal/conf"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/fabric"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/wallet"
	log "github.com/sirupsen/logrus"
)

var newCA = fabric.NewCA

// NewLocker serializes registrations of a card id within the process and,
// when redis is configured, across every process sharing it
func NewLocker(rc *conf.RedisConf) wallet.Locker {
	local := wallet.NewKeyedLocker()
	if rc.Addr == "" {
		return local
	}
	log.Infof("Registration lock shared through redis at %s", rc.Addr)
	ttl := time.Duration(rc.LockTTLMS) * time.Millisecond
	return wallet.ChainLockers(local, wallet.NewRedisLocker(wallet.NewRedisClient(rc), ttl))
}

// NewManagerFromConfig builds the CA client for the organization of the
// connection profile, and the manager on top of it
func NewManagerFromConfig(config *conf.RESTGatewayConf, profile *fabric.Profile, identities wallet.IdentityStore) (Manager, error) {
	ca, err := newCA(profile)
	if err != nil {
		return nil, err
	}
	return NewManager(&config.Fabric, ca, identities, NewLocker(&config.Redis)), nil
}
