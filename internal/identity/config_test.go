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
	"fmt"
	"testing"

	"github.com/hyperledger/firefly-loyaltyconnect/internal/conf"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/fabric"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/wallet"
	mockfabric "github.com/hyperledger/firefly-loyaltyconnect/mocks/fabric"
	"github.com/stretchr/testify/assert"
)

func TestNewLockerLocalOnly(t *testing.T) {
	locker := NewLocker(&conf.RedisConf{})
	unlock, err := locker.Lock(context.Background(), "card1")
	assert.NoError(t, err)
	unlock()
}

func TestNewLockerWithRedis(t *testing.T) {
	locker := NewLocker(&conf.RedisConf{Addr: "localhost:6379", LockTTLMS: 1000})
	assert.NotNil(t, locker)
}

func TestNewManagerFromConfig(t *testing.T) {
	assert := assert.New(t)
	ca := mockfabric.NewCA(t)
	defer func() { newCA = fabric.NewCA }()
	newCA = func(profile *fabric.Profile) (fabric.CA, error) {
		assert.Equal("Org1", profile.Organization)
		return ca, nil
	}

	config := &conf.RESTGatewayConf{}
	config.Fabric.OrgMSPID = "Org1MSP"
	config.Fabric.ApplyDefaults()
	m, err := NewManagerFromConfig(config, &fabric.Profile{Organization: "Org1"}, wallet.NewInMemoryStore(10))
	assert.NoError(err)

	ca.On("Enroll", "admin", "adminpw").Return(testCreds, nil).Once()
	assert.NoError(m.EnrollAdmin(context.Background()))
}

func TestNewManagerFromConfigCAFailure(t *testing.T) {
	defer func() { newCA = fabric.NewCA }()
	newCA = func(profile *fabric.Profile) (fabric.CA, error) {
		return nil, fmt.Errorf("pop")
	}
	_, err := NewManagerFromConfig(&conf.RESTGatewayConf{}, &fabric.Profile{}, wallet.NewInMemoryStore(10))
	assert.EqualError(t, err, "pop")
}
