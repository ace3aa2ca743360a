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

package test

import (
	"fmt"
	"os"
	"path"
	"runtime"
	"strings"

	"github.com/hyperledger/firefly-loyaltyconnect/internal/conf"
	"github.com/otiai10/copy"
	"github.com/spf13/viper"
)

const testConfigJSON = `{
  "maxInFlight": 10,
  "maxTXWaitTime": 60,
  "sendConcurrency": 25,
  "identityCacheSize": 10,
  "fabric": {
    "connectionProfile": "/test-ccp-path",
    "appAdmin": "admin",
    "appAdminSecret": "adminpw",
    "orgMSPID": "Org1MSP",
    "caName": "ca.org1.example.com",
    "affiliation": "org1.department1",
    "walletPath": "/test-wallet-path",
    "credentialStorePath": "/test-credentials-path",
    "channel": "meete-channel",
    "contract": "loyalty",
    "timeout": 30
  },
  "receipts": {
    "maxDocs": 1000,
    "queryLimit": 100,
    "retryInitialDelay": 5,
    "retryTimeout": 30,
    "leveldb": {
      "path": "/test-receipt-path"
    }
  },
  "http": {
    "port": 3000,
    "localAddr": "192.168.0.100"
  }
}`

const testConfigJSONBad = `{
  "maxInFlight": "abc",
  "maxTXWaitTime": 60,
  "fabric": {
    "connectionProfile": "/test-ccp-path"
  },
  "http": {
    "port": 3000
  }
}`

const testCCP = `name: "test-network-org1"
client:
  organization: Org1
organizations:
  Org1:
    mspid: Org1MSP
    peers:
      - peer0.org1.example.com
    certificateAuthorities:
      - ca.org1.example.com
peers:
  peer0.org1.example.com:
    url: grpcs://peer0.org1.example.com:7051
    grpcOptions:
      hostnameOverride: peer0.org1.example.com
orderers:
  orderer.example.com:
    url: grpcs://orderer.example.com:7050
certificateAuthorities:
  ca.org1.example.com:
    url: https://ca.org1.example.com:7054
    caName: ca-org1
    httpOptions:
      verify: false
`

// FixturesDir is where the staged test fixtures live
func FixturesDir() string {
	_, file, _, _ := runtime.Caller(0)
	return path.Join(path.Dir(file), "fixtures")
}

// Setup stages a temp directory with a config file (and a bad one), a
// connection profile, a wallet holding the "admin" and "card1"
// identities, and an empty receipts directory
func Setup() (string, *conf.RESTGatewayConf) {
	tmpdir, _ := os.MkdirTemp("", "restgateway_test")

	ccpPath := path.Join(tmpdir, "ccp.yml")
	_ = os.WriteFile(ccpPath, []byte(testCCP), 0644)

	walletPath := path.Join(tmpdir, "wallet")
	if err := copy.Copy(path.Join(FixturesDir(), "wallet"), walletPath); err != nil {
		fmt.Printf("Failed to stage the test wallet: %s", err)
	}

	receiptStorePath := path.Join(tmpdir, "receipts")
	_ = os.Mkdir(receiptStorePath, 0777)

	replacer := strings.NewReplacer(
		"/test-ccp-path", ccpPath,
		"/test-wallet-path", walletPath,
		"/test-credentials-path", path.Join(tmpdir, "credentials"),
		"/test-receipt-path", receiptStorePath,
	)
	configPath := path.Join(tmpdir, "config.json")
	_ = os.WriteFile(configPath, []byte(replacer.Replace(testConfigJSON)), 0644)
	_ = os.WriteFile(path.Join(tmpdir, "config-bad.json"), []byte(replacer.Replace(testConfigJSONBad)), 0644)

	testConfig := &conf.RESTGatewayConf{}
	v := viper.New()
	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("Failed to read the test config: %s", err)
	}
	if err := v.Unmarshal(testConfig); err != nil {
		fmt.Printf("Failed to unmarshal the test config: %s", err)
	}
	return tmpdir, testConfig
}

func Teardown(tmpdir string) {
	os.RemoveAll(tmpdir)
}
