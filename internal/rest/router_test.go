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
	"strings"
	"testing"
	"time"

	"github.com/hyperledger/fabric-protos-go/peer"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/auth"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/conf"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/errors"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/fabric"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/loyalty"
	restasync "github.com/hyperledger/firefly-loyaltyconnect/internal/rest/async"
	restidentity "github.com/hyperledger/firefly-loyaltyconnect/internal/rest/identity"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/rest/receipt"
	restsync "github.com/hyperledger/firefly-loyaltyconnect/internal/rest/sync"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/tx"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/wallet"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/ws"
	mockloyalty "github.com/hyperledger/firefly-loyaltyconnect/mocks/loyalty"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type bearerSecurity struct{}

func (s *bearerSecurity) VerifyToken(token string) (interface{}, error) {
	if token != "testat" {
		return nil, fmt.Errorf("bad token")
	}
	return "testuser", nil
}

func (s *bearerSecurity) AuthOperation(authCtx interface{}, operation, cardID string) error {
	return nil
}

func (s *bearerSecurity) AuthListAsyncReplies(authCtx interface{}) error {
	return nil
}

func (s *bearerSecurity) AuthReadAsyncReplyByUUID(authCtx interface{}) error {
	return nil
}

func newTestRouter(t *testing.T) (*httptest.Server, *mockloyalty.Network) {
	config := &conf.RESTGatewayConf{}
	network := mockloyalty.NewNetwork(t)
	processor := tx.NewTxProcessor(config)
	processor.Init(network)

	wsServer := ws.NewWebSocketServer()
	receipts := receipt.NewReceiptStore(config)
	assert.NoError(t, receipts.ValidateConf())
	assert.NoError(t, receipts.Init(wsServer))
	asyncD := restasync.NewAsyncDispatcher(config, processor, receipts)
	assert.NoError(t, asyncD.ValidateConf())

	identities := wallet.NewInMemoryStore(10)
	err := identities.Put("card1", &wallet.Identity{Label: "card1", MSPID: "Org1MSP", Certificate: "cert1", PrivateKey: "key1"})
	assert.NoError(t, err)

	r := newRouter(restsync.NewSyncDispatcher(processor), asyncD, restidentity.NewIdentityClient(identities), wsServer)
	r.addRoutes()
	server := httptest.NewServer(r.handler())
	t.Cleanup(func() {
		server.Close()
		asyncD.Close()
		wsServer.Close()
		receipts.Close()
	})
	return server, network
}

func validReceipt(fn string) *fabric.TxReceipt {
	return &fabric.TxReceipt{
		TransactionID: "tx1",
		BlockNumber:   12,
		Channel:       "meete-channel",
		Contract:      "loyalty",
		Function:      fn,
		Signer:        "card1",
		Status:        peer.TxValidationCode_VALID,
	}
}

func doRequest(t *testing.T, method, url, body string) (int, map[string]interface{}) {
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	assert.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	assert.NoError(t, err)
	defer resp.Body.Close()
	var reply map[string]interface{}
	_ = json.NewDecoder(resp.Body).Decode(&reply)
	return resp.StatusCode, reply
}

func TestRegisterMemberSync(t *testing.T) {
	assert := assert.New(t)
	server, network := newTestRouter(t)
	network.On("RegisterMember", mock.Anything, "card1", &loyalty.Member{
		AccountNumber: "1234",
		FirstName:     "Ada",
		LastName:      "Lovelace",
		Email:         "ada@example.com",
		PhoneNumber:   "555-0100",
	}).Return(validReceipt("CreateMember"), nil)

	status, reply := doRequest(t, http.MethodPost, server.URL+"/members?fly-signer=card1", `{
		"accountNumber": "1234",
		"firstName": "Ada",
		"lastName": "Lovelace",
		"email": "ada@example.com",
		"phoneNumber": "555-0100"
	}`)
	assert.Equal(200, status)
	assert.Equal("tx1", reply["transactionID"])
	assert.Equal("CreateMember", reply["function"])
	headers := reply["headers"].(map[string]interface{})
	assert.Equal("TransactionSuccess", headers["type"])
	assert.Equal("card1", headers["signer"])
}

func TestRegisterPartnerConflict(t *testing.T) {
	assert := assert.New(t)
	server, network := newTestRouter(t)
	network.On("RegisterPartner", mock.Anything, "card2", &loyalty.Partner{ID: "P1", Name: "Coffee"}).
		Return(nil, errors.NewLoyaltyError(errors.KindIdentityExists, errors.IdentityExists, "card2"))

	status, reply := doRequest(t, http.MethodPost, server.URL+"/partners", `{
		"headers": {"signer": "card2"},
		"id": "P1",
		"name": "Coffee"
	}`)
	assert.Equal(409, status)
	assert.Equal("An identity for the user card2 already exists in the wallet", reply["error"])
}

func TestRegisterPartnerInvalidBody(t *testing.T) {
	assert := assert.New(t)
	server, _ := newTestRouter(t)

	status, reply := doRequest(t, http.MethodPost, server.URL+"/partners?fly-signer=card2", `{"name": "Coffee"}`)
	assert.Equal(400, status)
	assert.Regexp("Invalid request body: .*id is required", reply["error"])
}

func TestPointsMissingSigner(t *testing.T) {
	assert := assert.New(t)
	server, _ := newTestRouter(t)

	status, _ := doRequest(t, http.MethodPost, server.URL+"/points/use", `{"points": 5, "member": "1234", "partner": "P1"}`)
	assert.Equal(400, status)
}

func TestEarnPointsAsync(t *testing.T) {
	assert := assert.New(t)
	server, network := newTestRouter(t)
	network.On("EarnPoints", mock.Anything, "card1", &loyalty.PointsTransaction{Points: 20, Member: "1234", Partner: "P1"}).
		Return(validReceipt("EarnPoints"), nil)

	status, reply := doRequest(t, http.MethodPost, server.URL+"/points/earn?fly-signer=card1&fly-sync=false", `{
		"points": 20,
		"member": "1234",
		"partner": "P1"
	}`)
	assert.Equal(202, status)
	assert.Equal(true, reply["sent"])
	requestID := reply["id"].(string)
	assert.NotEmpty(requestID)

	for i := 0; i < 20; i++ {
		status, reply = doRequest(t, http.MethodGet, server.URL+"/receipts/"+requestID, "")
		if status == 200 {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}
	assert.Equal(200, status)
	assert.Equal("tx1", reply["transactionID"])
	headers := reply["headers"].(map[string]interface{})
	assert.Equal(requestID, headers["requestId"])
	assert.Equal("TransactionSuccess", headers["type"])
}

func TestUsePointsRejected(t *testing.T) {
	assert := assert.New(t)
	server, network := newTestRouter(t)
	rejected := validReceipt("UsePoints")
	rejected.Status = peer.TxValidationCode_ENDORSEMENT_POLICY_FAILURE
	network.On("UsePoints", mock.Anything, "card1", &loyalty.PointsTransaction{Points: 5, Member: "1234", Partner: "P1"}).
		Return(rejected, errors.NewLoyaltyError(errors.KindTransactionRejected, errors.LedgerCommitInvalid, "tx1", rejected.Status.String()))

	status, reply := doRequest(t, http.MethodPost, server.URL+"/points/use", `{
		"headers": {"signer": "card1"},
		"points": 5,
		"member": "1234",
		"partner": "P1"
	}`)
	assert.Equal(500, status)
	assert.Regexp("^TX tx1: ", reply["error"])
}

func TestQueries(t *testing.T) {
	assert := assert.New(t)
	server, network := newTestRouter(t)
	network.On("MemberData", mock.Anything, "card1", "1234").Return(map[string]interface{}{"points": float64(20)}, nil)
	network.On("PartnerData", mock.Anything, "card1", "P1").Return(map[string]interface{}{"name": "Coffee"}, nil)
	network.On("AllPartnersInfo", mock.Anything, "card1").Return([]interface{}{"P1"}, nil)
	network.On("EarnPointsTransactionsInfo", mock.Anything, "card1", "member", "1234").Return([]interface{}{"e1"}, nil)
	network.On("UsePointsTransactionsInfo", mock.Anything, "card1", "partner", "P1").Return([]interface{}{"u1"}, nil)

	status, reply := doRequest(t, http.MethodGet, server.URL+"/members/1234?fly-signer=card1", "")
	assert.Equal(200, status)
	assert.Equal(map[string]interface{}{"points": float64(20)}, reply["result"])

	status, reply = doRequest(t, http.MethodGet, server.URL+"/partners/P1?fly-signer=card1", "")
	assert.Equal(200, status)
	assert.Equal(map[string]interface{}{"name": "Coffee"}, reply["result"])

	status, reply = doRequest(t, http.MethodGet, server.URL+"/partners?fly-signer=card1", "")
	assert.Equal(200, status)
	assert.Equal([]interface{}{"P1"}, reply["result"])

	status, reply = doRequest(t, http.MethodGet, server.URL+"/transactions/earn?fly-signer=card1&userType=member&userId=1234", "")
	assert.Equal(200, status)
	assert.Equal([]interface{}{"e1"}, reply["result"])

	status, reply = doRequest(t, http.MethodGet, server.URL+"/transactions/use?fly-signer=card1&userType=partner&userId=P1", "")
	assert.Equal(200, status)
	assert.Equal([]interface{}{"u1"}, reply["result"])
}

func TestQueryMissingParam(t *testing.T) {
	assert := assert.New(t)
	server, _ := newTestRouter(t)

	status, reply := doRequest(t, http.MethodGet, server.URL+"/transactions/earn?fly-signer=card1&userType=member", "")
	assert.Equal(400, status)
	assert.Equal("Must specify the 'userId' query parameter", reply["error"])
}

func TestQueryLedgerUnavailable(t *testing.T) {
	assert := assert.New(t)
	server, network := newTestRouter(t)
	network.On("AllPartnersInfo", mock.Anything, "card1").
		Return(nil, errors.NewLoyaltyError(errors.KindLedgerUnavailable, errors.LedgerConnectFailed, "card1", "refused"))

	status, _ := doRequest(t, http.MethodGet, server.URL+"/partners?fly-signer=card1", "")
	assert.Equal(503, status)
}

func TestIdentities(t *testing.T) {
	assert := assert.New(t)
	server, _ := newTestRouter(t)

	resp, err := http.Get(server.URL + "/identities")
	assert.NoError(err)
	var ids []*restidentity.Identity
	assert.NoError(json.NewDecoder(resp.Body).Decode(&ids))
	resp.Body.Close()
	assert.Equal(200, resp.StatusCode)
	assert.Len(ids, 1)
	assert.Equal("card1", ids[0].Name)

	status, reply := doRequest(t, http.MethodGet, server.URL+"/identities/card1", "")
	assert.Equal(200, status)
	assert.Equal("Org1MSP", reply["mspId"])

	status, _ = doRequest(t, http.MethodGet, server.URL+"/identities/ghost", "")
	assert.Equal(404, status)
}

func TestReceiptNotFound(t *testing.T) {
	server, _ := newTestRouter(t)
	status, _ := doRequest(t, http.MethodGet, server.URL+"/receipts/unknown", "")
	assert.Equal(t, 404, status)
}

func TestStatusWithAccessToken(t *testing.T) {
	assert := assert.New(t)
	auth.RegisterSecurityModule(&bearerSecurity{})
	defer auth.RegisterSecurityModule(nil)
	server, _ := newTestRouter(t)

	req, _ := http.NewRequest(http.MethodGet, server.URL+"/status", nil)
	req.Header.Set("AUTHORIZATION", "BeaRER testat")
	resp, err := http.DefaultClient.Do(req)
	assert.NoError(err)
	var statusResp statusMsg
	assert.NoError(json.NewDecoder(resp.Body).Decode(&statusResp))
	resp.Body.Close()
	assert.Equal(200, resp.StatusCode)
	assert.True(statusResp.OK)

	req, _ = http.NewRequest(http.MethodGet, server.URL+"/status", nil)
	req.Header.Set("Authorization", "bearer")
	resp, err = http.DefaultClient.Do(req)
	assert.NoError(err)
	var errResp errors.RestErrMsg
	assert.NoError(json.NewDecoder(resp.Body).Decode(&errResp))
	resp.Body.Close()
	assert.Equal(401, resp.StatusCode)
	assert.Equal("Unauthorized", errResp.Message)
}

func TestCORSPreflight(t *testing.T) {
	assert := assert.New(t)
	server, _ := newTestRouter(t)

	req, _ := http.NewRequest(http.MethodOptions, server.URL+"/members", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := http.DefaultClient.Do(req)
	assert.NoError(err)
	resp.Body.Close()
	assert.Equal("*", resp.Header.Get("Access-Control-Allow-Origin"))
}
