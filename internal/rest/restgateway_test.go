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

package rest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path"
	"sync"
	"testing"
	"time"

	"github.com/hyperledger/firefly-loyaltyconnect/internal/conf"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/loyalty"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/rest/test"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/wallet"
	mockloyalty "github.com/hyperledger/firefly-loyaltyconnect/mocks/loyalty"
	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
)

var lastPort = 9000
var tmpdir string
var testConfig *conf.RESTGatewayConf

func TestMain(m *testing.M) {
	setup()
	code := m.Run()
	teardown()
	os.Exit(code)
}

func setup() {
	tmpdir, testConfig = test.Setup()
}

func teardown() {
	test.Teardown(tmpdir)
}

func newTestConfig() *conf.RESTGatewayConf {
	c := *testConfig
	c.HTTP.Port = lastPort
	c.HTTP.LocalAddr = "127.0.0.1"
	lastPort++
	return &c
}

func stubNetwork(t *testing.T) *mockloyalty.Network {
	network := mockloyalty.NewNetwork(t)
	newNetwork = func(config *conf.RESTGatewayConf, identities wallet.IdentityStore) (loyalty.Network, error) {
		return network, nil
	}
	t.Cleanup(func() { newNetwork = connectNetwork })
	return network
}

func TestNewRESTGateway(t *testing.T) {
	assert := assert.New(t)
	config := newTestConfig()
	g := NewRESTGateway(config)
	assert.Equal("127.0.0.1", g.config.HTTP.LocalAddr)
	assert.Equal("Org1MSP", g.config.Fabric.OrgMSPID)
}

func TestValidateConf(t *testing.T) {
	assert := assert.New(t)

	config := newTestConfig()
	config.HTTP.Port = 0
	assert.EqualError(NewRESTGateway(config).ValidateConf(), "Must provide REST Gateway http listening port")

	config = newTestConfig()
	config.Fabric.ConnectionProfile = ""
	assert.EqualError(NewRESTGateway(config).ValidateConf(), "Must provide the path to the Fabric connection profile")

	config = newTestConfig()
	config.Fabric.OrgMSPID = ""
	assert.EqualError(NewRESTGateway(config).ValidateConf(), "Must provide the organization MSP ID")

	config = newTestConfig()
	config.HTTP.LocalAddr = ""
	assert.NoError(NewRESTGateway(config).ValidateConf())
	assert.Equal("0.0.0.0", config.HTTP.LocalAddr)
	assert.Equal(10, config.MaxInFlight)
}

func TestStartStatusStopNoKafkaHandler(t *testing.T) {
	assert := assert.New(t)
	stubNetwork(t)

	g := NewRESTGateway(newTestConfig())
	assert.NoError(g.ValidateConf())
	err := g.Init()
	assert.NoError(err)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		err = g.Start()
		wg.Done()
	}()

	url, _ := url.Parse(fmt.Sprintf("http://localhost:%d/status", g.config.HTTP.Port))
	var resp *http.Response
	var reqErr error
	for i := 0; i < 5; i++ {
		time.Sleep(200 * time.Millisecond)
		resp, reqErr = http.DefaultClient.Do(&http.Request{URL: url, Method: http.MethodGet})
		if reqErr == nil && resp.StatusCode == 200 {
			break
		}
	}
	assert.NoError(reqErr)
	assert.Equal(200, resp.StatusCode)
	var statusResp statusMsg
	assert.NoError(json.NewDecoder(resp.Body).Decode(&statusResp))
	resp.Body.Close()
	assert.Equal(true, statusResp.OK)

	g.srv.Close()
	wg.Wait()
	assert.EqualError(err, "http: Server closed")
}

func TestStartWithBadTLS(t *testing.T) {
	assert := assert.New(t)
	stubNetwork(t)

	config := newTestConfig()
	config.HTTP.TLS.Enabled = true
	config.HTTP.TLS.ClientKeyFile = "incomplete config"
	g := NewRESTGateway(config)
	err := g.Init()
	assert.NoError(err)
	defer g.Shutdown()

	err = g.Start()
	assert.EqualError(err, "Client private key and certificate must both be provided for mutual auth")
}

func TestInitInvalidMongo(t *testing.T) {
	assert := assert.New(t)
	stubNetwork(t)

	fakeRouter := &httprouter.Router{}
	fakeMongo := httptest.NewServer(fakeRouter)
	defer fakeMongo.Close()

	url, _ := url.Parse(fakeMongo.URL)
	url.Scheme = "mongodb"
	config := newTestConfig()
	config.Receipts.LevelDB.Path = ""
	config.Receipts.MongoDB.URL = url.String()
	config.Receipts.MongoDB.Database = "test"
	config.Receipts.MongoDB.Collection = "test"
	config.Receipts.MongoDB.ConnectTimeoutMS = 100
	g := NewRESTGateway(config)
	err := g.Init()
	assert.EqualError(err, "Unable to connect to MongoDB: no reachable servers")
}

func TestInitMissingConnectionProfile(t *testing.T) {
	assert := assert.New(t)

	config := newTestConfig()
	config.Fabric.ConnectionProfile = path.Join(tmpdir, "missing.yml")
	g := NewRESTGateway(config)
	err := g.Init()
	assert.Regexp("Failed to read the connection profile .*missing.yml", err)
}

func TestInitBadWalletPath(t *testing.T) {
	assert := assert.New(t)
	stubNetwork(t)

	config := newTestConfig()
	config.Fabric.WalletPath = path.Join(tmpdir, "config.json", "wallet")
	g := NewRESTGateway(config)
	err := g.Init()
	assert.Regexp("Failed to open the wallet", err)
}

func TestInitNetworkFailure(t *testing.T) {
	assert := assert.New(t)
	newNetwork = func(config *conf.RESTGatewayConf, identities wallet.IdentityStore) (loyalty.Network, error) {
		assert.True(identities.Exists("admin"))
		return nil, fmt.Errorf("pop")
	}
	defer func() { newNetwork = connectNetwork }()

	g := NewRESTGateway(newTestConfig())
	err := g.Init()
	assert.EqualError(err, "pop")
}
