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
	"time"

	"github.com/hyperledger/fabric-sdk-go/pkg/common/providers/core"
	"github.com/hyperledger/fabric-sdk-go/pkg/common/providers/fab"
	"github.com/hyperledger/fabric-sdk-go/pkg/gateway"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/errors"
	"github.com/hyperledger/firefly-loyaltyconnect/internal/wallet"
	log "github.com/sirupsen/logrus"
)

// defined to allow mocking in tests
type walletBuilder func(*wallet.Identity) (*gateway.Wallet, error)
type gatewayCreator func(core.ConfigProvider, *gateway.Wallet, string, time.Duration) (*gateway.Gateway, error)
type gatewayCloser func(*gateway.Gateway)
type networkCreator func(*gateway.Gateway, string) (*gateway.Network, error)
type txPreparer func(*gateway.Contract, string) (*gateway.Transaction, <-chan *fab.TxStatusEvent, error)
type txSubmitter func(*gateway.Transaction, ...string) ([]byte, error)
type txEvaluator func(*gateway.Contract, string, ...string) ([]byte, error)

type gwConnector struct {
	configProvider core.ConfigProvider
	identities     wallet.IdentityStore
	timeout        time.Duration
	walletBuilder  walletBuilder
	gatewayCreator gatewayCreator
	gatewayCloser  gatewayCloser
	networkCreator networkCreator
	txPreparer     txPreparer
	txSubmitter    txSubmitter
	txEvaluator    txEvaluator
}

// NewConnector connects to the network of the profile with identities
// from the wallet. The timeout (seconds) bounds endorsement and commit
func NewConnector(profile *Profile, identities wallet.IdentityStore, timeout int) Connector {
	return &gwConnector{
		configProvider: profile.ConfigProvider(),
		identities:     identities,
		timeout:        time.Duration(timeout) * time.Second,
		walletBuilder:  wallet.GatewayWallet,
		gatewayCreator: createGateway,
		gatewayCloser:  closeGateway,
		networkCreator: getNetwork,
		txPreparer:     prepareTx,
		txSubmitter:    submitTx,
		txEvaluator:    evaluateTx,
	}
}

func (c *gwConnector) Connect(label string) (Connection, error) {
	id, err := c.identities.Get(label)
	if err != nil {
		return nil, err
	}
	w, err := c.walletBuilder(id)
	if err != nil {
		return nil, errors.NewLoyaltyError(errors.KindLedgerUnavailable, errors.LedgerConnectFailed, label, err)
	}
	gw, err := c.gatewayCreator(c.configProvider, w, label, c.timeout)
	if err != nil {
		log.Errorf("Failed to connect to the gateway as %s. %s", label, err)
		return nil, errors.NewLoyaltyError(errors.KindLedgerUnavailable, errors.LedgerConnectFailed, label, err)
	}
	log.Debugf("Gateway connected as %s", label)
	return &gwConnection{
		gwConnector: c,
		gw:          gw,
		signer:      id,
	}, nil
}

type gwConnection struct {
	*gwConnector
	gw     *gateway.Gateway
	signer *wallet.Identity
	closed bool
}

func (c *gwConnection) Contract(channel, name string) (Contract, error) {
	network, err := c.networkCreator(c.gw, channel)
	if err != nil {
		log.Errorf("Failed to get network %s. %s", channel, err)
		return nil, errors.NewLoyaltyError(errors.KindLedgerUnavailable, errors.LedgerNetworkFailed, channel, err)
	}
	return &gwContract{
		gwConnection: c,
		channel:      channel,
		name:         name,
		contract:     network.GetContract(name),
	}, nil
}

func (c *gwConnection) Close() {
	if c.closed {
		return
	}
	c.closed = true
	c.gatewayCloser(c.gw)
	log.Debugf("Gateway connection for %s closed", c.signer.Label)
}

type gwContract struct {
	*gwConnection
	channel  string
	name     string
	contract *gateway.Contract
}

func (c *gwContract) Submit(fn string, args ...string) ([]byte, *TxReceipt, error) {
	log.Tracef("TX [%s:%s:%s] --> %+v", c.channel, c.name, fn, args)
	tx, notifier, err := c.txPreparer(c.contract, fn)
	if err != nil {
		return nil, nil, errors.NewLoyaltyError(errors.KindTransactionRejected, errors.LedgerCreateTxFailed, fn, err)
	}
	result, err := c.txSubmitter(tx, args...)
	if err != nil {
		log.Errorf("Failed to submit transaction [%s:%s:%s]. %s", c.channel, c.name, fn, err)
		return nil, nil, errors.NewLoyaltyError(errors.KindTransactionRejected, errors.LedgerSubmitFailed, fn, err)
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()
	var txStatus *fab.TxStatusEvent
	select {
	case txStatus = <-notifier:
	case <-timer.C:
		return nil, nil, errors.NewLoyaltyError(errors.KindTransactionRejected, errors.LedgerCommitTimeout, fn)
	}

	receipt := &TxReceipt{
		BlockNumber:   txStatus.BlockNumber,
		SignerMSP:     c.signer.MSPID,
		Signer:        c.signer.Label,
		Channel:       c.channel,
		Contract:      c.name,
		Function:      fn,
		TransactionID: txStatus.TxID,
		Status:        txStatus.TxValidationCode,
	}
	if !receipt.IsSuccess() {
		return nil, receipt, errors.NewLoyaltyError(errors.KindTransactionRejected, errors.LedgerCommitInvalid, receipt.TransactionID, receipt.Status)
	}
	log.Tracef("TX [%s:%s:%s] <-- %s", c.channel, c.name, fn, result)
	log.Infof("TX:%s committed in block %d", receipt.TransactionID, receipt.BlockNumber)
	return result, receipt, nil
}

func (c *gwContract) Evaluate(fn string, args ...string) ([]byte, error) {
	log.Tracef("Query [%s:%s:%s] --> %+v", c.channel, c.name, fn, args)
	result, err := c.txEvaluator(c.contract, fn, args...)
	if err != nil {
		log.Errorf("Failed to evaluate transaction [%s:%s:%s]. %s", c.channel, c.name, fn, err)
		return nil, errors.NewLoyaltyError(errors.KindTransactionRejected, errors.LedgerEvaluateFailed, fn, err)
	}
	log.Tracef("Query [%s:%s:%s] <-- %s", c.channel, c.name, fn, result)
	return result, nil
}

func createGateway(configProvider core.ConfigProvider, w *gateway.Wallet, label string, timeout time.Duration) (*gateway.Gateway, error) {
	return gateway.Connect(gateway.WithConfig(configProvider), gateway.WithIdentity(w, label), gateway.WithTimeout(timeout))
}

func closeGateway(gw *gateway.Gateway) {
	gw.Close()
}

func getNetwork(gw *gateway.Gateway, channel string) (*gateway.Network, error) {
	return gw.GetNetwork(channel)
}

func prepareTx(contract *gateway.Contract, fn string) (*gateway.Transaction, <-chan *fab.TxStatusEvent, error) {
	tx, err := contract.CreateTransaction(fn)
	if err != nil {
		return nil, nil, err
	}
	notifier := tx.RegisterCommitEvent()
	return tx, notifier, nil
}

func submitTx(tx *gateway.Transaction, args ...string) ([]byte, error) {
	return tx.Submit(args...)
}

func evaluateTx(contract *gateway.Contract, fn string, args ...string) ([]byte, error) {
	return contract.EvaluateTransaction(fn, args...)
}
